package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/hooks"
)

type deployHookPlugin struct {
	fired      int
	outputDirs []string
}

func (p *deployHookPlugin) Name() string { return "deploy-recorder" }

func (p *deployHookPlugin) Hooks() map[string]hooks.Func {
	return map[string]hooks.Func{
		hooks.Deploy: func(ctx *hooks.Context) error {
			p.fired++
			p.outputDirs = append(p.outputDirs, ctx.GetString("output_dir"))
			return nil
		},
	}
}

func outputFixture(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		OutputDir:    filepath.Join(root, "out"),
		DeployBranch: "gh-pages",
	}
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "index.html"), []byte("<h1>site</h1>"), 0o644))
	return cfg
}

func bareRemote(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInit(path, true)
	require.NoError(t, err)
	return path
}

func TestRun_NoRemoteConfigured_FiresHookOnly(t *testing.T) {
	cfg := outputFixture(t)
	plugin := &deployHookPlugin{}
	registry := hooks.NewRegistry()
	registry.Register(plugin)

	err := NewDeployer(cfg).Run(context.Background(), "build-1", registry)
	require.NoError(t, err)
	require.Equal(t, 1, plugin.fired)
	require.Equal(t, []string{cfg.OutputDir}, plugin.outputDirs)

	// No git repository should appear without a configured remote.
	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, ".git"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRun_WithRemote_PushesOutputTreeToBranch(t *testing.T) {
	cfg := outputFixture(t)
	cfg.DeployRemote = bareRemote(t)

	deployer := NewDeployer(cfg, WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	err := deployer.Run(context.Background(), "build-1", hooks.NewRegistry())
	require.NoError(t, err)

	remote, err := git.PlainOpen(cfg.DeployRemote)
	require.NoError(t, err)
	ref, err := remote.Reference(plumbing.NewBranchReferenceName("gh-pages"), true)
	require.NoError(t, err)

	commit, err := remote.CommitObject(ref.Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("index.html")
	require.NoError(t, err)
}

func TestRun_SecondDeploySameTree_RemainsUpToDate(t *testing.T) {
	cfg := outputFixture(t)
	cfg.DeployRemote = bareRemote(t)
	deployer := NewDeployer(cfg)

	require.NoError(t, deployer.Run(context.Background(), "build-1", hooks.NewRegistry()))
	require.NoError(t, deployer.Run(context.Background(), "build-2", hooks.NewRegistry()))

	remote, err := git.PlainOpen(cfg.DeployRemote)
	require.NoError(t, err)
	ref, err := remote.Reference(plumbing.NewBranchReferenceName("gh-pages"), true)
	require.NoError(t, err)

	commit, err := remote.CommitObject(ref.Hash())
	require.NoError(t, err)
	require.Equal(t, 0, commit.NumParents())
}

func TestRun_MissingOutputDir_ReturnsError(t *testing.T) {
	cfg := &config.Config{
		OutputDir:    filepath.Join(t.TempDir(), "never-built"),
		DeployRemote: bareRemote(t),
	}

	err := NewDeployer(cfg).Run(context.Background(), "build-1", hooks.NewRegistry())
	require.Error(t, err)
	require.Contains(t, err.Error(), "run a build first")
}
