package hooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

type fakePlugin struct {
	name  string
	hooks map[string]Func
}

func (p *fakePlugin) Name() string           { return p.name }
func (p *fakePlugin) Hooks() map[string]Func { return p.hooks }

func TestRun_InvokesMatchingHooksOnly(t *testing.T) {
	var fired []string
	r := NewRegistry()
	r.Register(&fakePlugin{name: "a", hooks: map[string]Func{
		BeforeBuild: func(*Context) error { fired = append(fired, "a"); return nil },
	}})
	r.Register(&fakePlugin{name: "b", hooks: map[string]Func{
		AfterBuild: func(*Context) error { fired = append(fired, "b"); return nil },
	}})

	r.Run(BeforeBuild, NewContext("test", &config.Config{}))
	require.Equal(t, []string{"a"}, fired)
}

func TestRun_FailingPluginDoesNotBlockOthers(t *testing.T) {
	var fired []string
	r := NewRegistry()
	r.Register(&fakePlugin{name: "bad", hooks: map[string]Func{
		BeforeBuild: func(*Context) error { return errors.New("boom") },
	}})
	r.Register(&fakePlugin{name: "panics", hooks: map[string]Func{
		BeforeBuild: func(*Context) error { panic("worse") },
	}})
	r.Register(&fakePlugin{name: "good", hooks: map[string]Func{
		BeforeBuild: func(*Context) error { fired = append(fired, "good"); return nil },
	}})

	ctx := NewContext("test", &config.Config{})
	require.NotPanics(t, func() { r.Run(BeforeBuild, ctx) })
	require.Equal(t, []string{"good"}, fired)
}

func TestLoad_ClearsPreviousPlugins(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakePlugin{name: "stale"})
	require.Equal(t, 1, r.Count())

	// No builtins registered in this test binary and no plugins dir.
	r.Load(&config.Config{})
	require.Zero(t, r.Count())
}

func TestContext_WithDoesNotMutateOriginal(t *testing.T) {
	ctx := NewContext("b1", &config.Config{})
	child := ctx.With("page_path", "pages/index.html")

	require.Empty(t, ctx.Payload)
	require.Equal(t, "pages/index.html", child.GetString("page_path"))
	require.Equal(t, "b1", child.BuildID)
}
