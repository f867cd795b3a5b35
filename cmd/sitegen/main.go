package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/create"
	"git.home.luguber.info/inful/sitegen/internal/deploy"
	"git.home.luguber.info/inful/sitegen/internal/hooks"
	"git.home.luguber.info/inful/sitegen/internal/linkcheck"
	"git.home.luguber.info/inful/sitegen/internal/server"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.json"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		CheckLinks bool `help:"Fail the build when internal links are broken"`
	} `cmd:"" help:"Build the site into the output directory"`

	Serve struct {
		Port int `short:"p" help:"Port to serve the site on" default:"8000"`
	} `cmd:"" help:"Build the site, serve it locally and rebuild on changes"`

	Deploy struct{} `cmd:"" help:"Publish the previously built output directory"`

	Create struct {
		Title string `arg:"" optional:"" help:"Title of the new page; without it only the create_content hook fires"`
	} `cmd:"" help:"Create a new page skeleton in the pages directory"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch ctx.Command() {
	case "build":
		if err := runBuild(cfg, CLI.Build.CheckLinks); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := runServe(cfg, CLI.Serve.Port); err != nil {
			slog.Error("Serve failed", "error", err)
			os.Exit(1)
		}
	case "deploy":
		if err := runDeploy(cfg); err != nil {
			slog.Error("Deploy failed", "error", err)
			os.Exit(1)
		}
	case "create", "create <title>":
		if err := runCreate(cfg, CLI.Create.Title); err != nil {
			slog.Error("Create failed", "error", err)
			os.Exit(1)
		}
	}
}

func runBuild(cfg *config.Config, checkLinks bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := build.NewBuilder(cfg)
	result, err := builder.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("Build complete",
		"build_id", result.BuildID,
		"rendered", result.Rendered,
		"skipped", result.Skipped,
		"duration", result.Duration)

	if checkLinks {
		findings := linkcheck.Check(cfg.OutputDir)
		if len(findings) > 0 {
			for _, f := range findings {
				slog.Error("Broken internal link", "source", f.SourceFile, "target", f.Target)
			}
			return fmt.Errorf("%d broken internal links", len(findings))
		}
		slog.Info("All internal links resolve")
	}
	return nil
}

func runServe(cfg *config.Config, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.New(cfg, port).Run(ctx)
}

func runDeploy(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := hooks.NewRegistry()
	registry.Load(cfg)
	return deploy.NewDeployer(cfg).Run(ctx, uuid.NewString(), registry)
}

func runCreate(cfg *config.Config, title string) error {
	registry := hooks.NewRegistry()
	registry.Load(cfg)

	if title == "" {
		registry.Run(hooks.CreateContent, hooks.NewContext(uuid.NewString(), cfg))
		return nil
	}

	path, err := create.Page(cfg, registry, title, time.Now)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
