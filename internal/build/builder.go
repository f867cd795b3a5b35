// Package build sequences one full site build.
//
// The pipeline is single-threaded and strictly ordered: plugin load,
// output reset, data and collection discovery, per-item rendering, static
// and asset copies, then artifact generation. Item-level failures are
// handled inside each stage; a stage error aborts the remaining stages.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/artifacts"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/hooks"
	"git.home.luguber.info/inful/sitegen/internal/linkcheck"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

// Result summarizes one completed build.
type Result struct {
	BuildID  string
	Records  []render.PageRecord
	Rendered int
	Skipped  int
	Duration time.Duration
}

// Builder runs full builds for one configuration.
type Builder struct {
	cfg      *config.Config
	recorder metrics.Recorder
	now      func() time.Time
	plugins  []hooks.Plugin
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = rec }
}

// WithClock overrides the time source (used by templates' now helper and
// the feed's lastBuildDate; overriding it makes builds reproducible).
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithPlugins registers extra plugins for every build this Builder runs,
// in addition to those discovered by the registry load.
func WithPlugins(plugins ...hooks.Plugin) Option {
	return func(b *Builder) { b.plugins = append(b.plugins, plugins...) }
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{cfg: cfg, recorder: metrics.NoopRecorder{}, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// state carries everything one build accumulates across stages.
type state struct {
	registry    *hooks.Registry
	hookCtx     *hooks.Context
	data        map[string]any
	pages       []content.Item
	collections map[string][]content.Item
	pipeline    *render.Pipeline
}

type stage struct {
	name string
	fn   func(ctx context.Context, st *state) error
}

// Run executes one full build.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	buildID := uuid.NewString()
	start := b.now()
	slog.Info("Starting build", "build_id", buildID)

	st := &state{
		registry: hooks.NewRegistry(),
		hookCtx:  hooks.NewContext(buildID, b.cfg),
	}

	// Plugins are reloaded from scratch on every build so a rebuild can
	// never see the previous cycle's plugins.
	st.registry.Load(b.cfg)
	for _, p := range b.plugins {
		st.registry.Register(p)
	}
	st.registry.Run(hooks.BeforeBuild, st.hookCtx)

	stages := []stage{
		{"prepare_output", b.stagePrepareOutput},
		{"load_data", b.stageLoadData},
		{"load_content", b.stageLoadContent},
		{"render", b.stageRender},
		{"copy_static", b.stageCopyStatic},
		{"copy_assets", b.stageCopyAssets},
		{"generate_sitemap", b.stageSitemap},
		{"generate_rss_feed", b.stageFeed},
		{"check_links", b.stageCheckLinks},
	}

	var runErr error
	for _, s := range stages {
		t0 := time.Now()
		if err := s.fn(ctx, st); err != nil {
			runErr = fmt.Errorf("stage %s: %w", s.name, err)
			slog.Error("Build stage failed", "stage", s.name, "error", err)
			break
		}
		slog.Debug("Build stage complete", "stage", s.name, "duration", time.Since(t0))
	}

	duration := b.now().Sub(start)
	result := &Result{BuildID: buildID, Duration: duration}
	outcome := "success"
	if runErr != nil {
		outcome = "failed"
	} else if st.pipeline != nil {
		result.Records = st.pipeline.Records
		result.Rendered = st.pipeline.Rendered
		result.Skipped = st.pipeline.Skipped
	}

	b.recorder.ObserveBuildDuration(duration)
	b.recorder.IncBuildOutcome(outcome)
	b.recorder.AddPagesRendered(result.Rendered)
	b.recorder.AddItemsSkipped(result.Skipped)
	b.recordHistory(ctx, result, start, outcome)

	st.registry.Run(hooks.AfterBuild, st.hookCtx)

	if runErr != nil {
		return nil, runErr
	}
	slog.Info("Static site generation complete",
		"build_id", buildID, "output", b.cfg.OutputDir,
		"rendered", result.Rendered, "skipped", result.Skipped, "duration", duration)
	return result, nil
}

func (b *Builder) stageLoadData(_ context.Context, st *state) error {
	st.data = content.LoadData(b.cfg)
	return nil
}

func (b *Builder) stageLoadContent(_ context.Context, st *state) error {
	st.pages = content.LoadPages(b.cfg)
	st.collections = content.LoadCollections(b.cfg)
	return nil
}

func (b *Builder) stageRender(_ context.Context, st *state) error {
	env := render.NewEnvironment(b.cfg, st.data, st.collections, b.now)
	st.pipeline = render.NewPipeline(env, st.registry, st.hookCtx)
	st.pipeline.RenderAll(st.pages, st.collections, collectionOrder(st.collections))
	return nil
}

func (b *Builder) stageSitemap(_ context.Context, st *state) error {
	st.registry.Run(hooks.BeforeGenerateSitemap, st.hookCtx.With("pages", st.pipeline.Records))
	sitemapPath, err := artifacts.WriteSitemap(st.pipeline.Records, b.cfg)
	if err != nil {
		return err
	}
	st.registry.Run(hooks.AfterGenerateSitemap, st.hookCtx.With("sitemap_path", sitemapPath))
	return nil
}

func (b *Builder) stageFeed(_ context.Context, st *state) error {
	st.registry.Run(hooks.BeforeGenerateRSSFeed, st.hookCtx.With("collections", st.collections))
	feedPath, err := artifacts.WriteFeed(st.collections, b.cfg, b.now)
	if err != nil {
		return err
	}
	st.registry.Run(hooks.AfterGenerateRSSFeed, st.hookCtx.With("rss_path", feedPath))
	return nil
}

func (b *Builder) stageCheckLinks(_ context.Context, st *state) error {
	findings := linkcheck.Check(b.cfg.OutputDir)
	if len(findings) > 0 {
		slog.Warn("Link check found unresolved internal links", "count", len(findings))
	}
	return nil
}

// recordHistory persists the build summary when a history database is
// configured. Failures here are advisory.
func (b *Builder) recordHistory(ctx context.Context, result *Result, start time.Time, outcome string) {
	if b.cfg.HistoryDB == "" {
		return
	}
	store, err := history.Open(b.cfg.HistoryDB)
	if err != nil {
		slog.Warn("Could not open build history database", "path", b.cfg.HistoryDB, "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	err = store.Record(ctx, history.BuildSummary{
		BuildID:   result.BuildID,
		StartedAt: start,
		Duration:  result.Duration,
		Rendered:  result.Rendered,
		Skipped:   result.Skipped,
		Outcome:   outcome,
	})
	if err != nil {
		slog.Warn("Could not record build summary", "error", err)
	}
}

// collectionOrder yields a deterministic rendering order for collections.
func collectionOrder(collections map[string][]content.Item) []string {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
