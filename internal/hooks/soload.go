package hooks

import (
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"strings"
)

// hookSymbols maps hook names to the exported symbol a shared-object
// plugin must provide for that hook. Symbols have the signature
// func(map[string]any) error.
var hookSymbols = map[string]string{
	BeforeBuild:           "BeforeBuild",
	AfterBuild:            "AfterBuild",
	BeforeRenderPage:      "BeforeRenderPage",
	AfterRenderPage:       "AfterRenderPage",
	BeforeCopyStatic:      "BeforeCopyStatic",
	AfterCopyStatic:       "AfterCopyStatic",
	BeforeCopyAssets:      "BeforeCopyAssets",
	AfterCopyAssets:       "AfterCopyAssets",
	BeforeGenerateSitemap: "BeforeGenerateSitemap",
	AfterGenerateSitemap:  "AfterGenerateSitemap",
	BeforeGenerateRSSFeed: "BeforeGenerateRSSFeed",
	AfterGenerateRSSFeed:  "AfterGenerateRSSFeed",
	Deploy:                "Deploy",
	CreateContent:         "CreateContent",
}

type soPlugin struct {
	name  string
	hooks map[string]Func
}

func (p *soPlugin) Name() string           { return p.name }
func (p *soPlugin) Hooks() map[string]Func { return p.hooks }

// loadSharedObjectPlugins opens every .so file directly inside the plugins
// directory (not recursive) and wires up whichever hook symbols each one
// exports. A module that fails to open is skipped with a logged error.
func loadSharedObjectPlugins(pluginsDir string) []Plugin {
	if pluginsDir == "" {
		return nil
	}
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read plugins directory", "dir", pluginsDir, "error", err)
		} else {
			slog.Info("No plugins directory found, skipping plugin loading", "dir", pluginsDir)
		}
		return nil
	}

	var plugins []Plugin
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		path := filepath.Join(pluginsDir, entry.Name())
		p, err := loadSharedObject(path)
		if err != nil {
			slog.Error("Failed to load plugin", "path", path, "error", err)
			continue
		}
		if len(p.hooks) == 0 {
			slog.Warn("Plugin exposes no hooks", "path", path)
		}
		plugins = append(plugins, p)
	}
	return plugins
}

func loadSharedObject(path string) (*soPlugin, error) {
	mod, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), ".so")
	hooks := map[string]Func{}
	for hookName, symbolName := range hookSymbols {
		sym, lookupErr := mod.Lookup(symbolName)
		if lookupErr != nil {
			continue
		}
		fn, ok := sym.(func(map[string]any) error)
		if !ok {
			slog.Warn("Plugin symbol has wrong signature", "plugin", name, "symbol", symbolName)
			continue
		}
		hooks[hookName] = func(ctx *Context) error { return fn(ctx.Payload) }
	}

	return &soPlugin{name: name, hooks: hooks}, nil
}
