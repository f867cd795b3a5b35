// Package hooks provides the lifecycle extension mechanism.
//
// A Registry is constructed per build invocation and passed to every stage
// that fires hooks, so a rebuild can never observe plugins from a previous
// build cycle. Plugins come from two sources: factories compiled into the
// binary (registered at startup) and shared-object modules discovered in
// the configured plugins directory.
package hooks

import (
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Lifecycle hook names. Each is fired with relevant context values in the
// payload.
const (
	BeforeBuild           = "before_build"
	AfterBuild            = "after_build"
	BeforeRenderPage      = "before_render_page"
	AfterRenderPage       = "after_render_page"
	BeforeCopyStatic      = "before_copy_static"
	AfterCopyStatic       = "after_copy_static"
	BeforeCopyAssets      = "before_copy_assets"
	AfterCopyAssets       = "after_copy_assets"
	BeforeGenerateSitemap = "before_generate_sitemap"
	AfterGenerateSitemap  = "after_generate_sitemap"
	BeforeGenerateRSSFeed = "before_generate_rss_feed"
	AfterGenerateRSSFeed  = "after_generate_rss_feed"
	Deploy                = "deploy"
	CreateContent         = "create_content"
)

// Func is one hook implementation.
type Func func(ctx *Context) error

// Plugin exposes zero or more hook implementations keyed by hook name.
type Plugin interface {
	Name() string
	Hooks() map[string]Func
}

// Factory builds a plugin instance for one build invocation.
type Factory func(cfg *config.Config) (Plugin, error)

var (
	builtinMu sync.Mutex
	builtins  []Factory
)

// RegisterBuiltin adds a compiled-in plugin factory. Intended to be called
// from init functions or early in main, before any build runs.
func RegisterBuiltin(f Factory) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtins = append(builtins, f)
}

// Registry holds the plugins loaded for one build invocation.
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Load clears the registry and repopulates it from builtin factories and
// the plugins directory. A plugin that fails to load is skipped with a
// logged error; it never aborts the build or blocks other plugins.
func (r *Registry) Load(cfg *config.Config) {
	r.plugins = nil

	builtinMu.Lock()
	factories := make([]Factory, len(builtins))
	copy(factories, builtins)
	builtinMu.Unlock()

	for _, factory := range factories {
		p, err := factory(cfg)
		if err != nil {
			slog.Error("Failed to initialize builtin plugin", "error", err)
			continue
		}
		r.plugins = append(r.plugins, p)
		slog.Debug("Loaded builtin plugin", "plugin", p.Name())
	}

	for _, p := range loadSharedObjectPlugins(cfg.PluginsDir) {
		r.plugins = append(r.plugins, p)
		slog.Info("Loaded plugin", "plugin", p.Name())
	}
}

// Register appends a plugin directly. Used by tests and by callers that
// assemble a registry without a plugins directory.
func (r *Registry) Register(p Plugin) {
	if p == nil {
		return
	}
	r.plugins = append(r.plugins, p)
}

// Count returns the number of loaded plugins.
func (r *Registry) Count() int { return len(r.plugins) }

// Run invokes the named hook on every loaded plugin that implements it.
// Errors and panics are logged per plugin and never propagated: one
// failing plugin must not block the others or the build.
func (r *Registry) Run(name string, ctx *Context) {
	for _, p := range r.plugins {
		fn, ok := p.Hooks()[name]
		if !ok || fn == nil {
			continue
		}
		r.runOne(name, p, fn, ctx)
	}
}

func (r *Registry) runOne(name string, p Plugin, fn Func, ctx *Context) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Hook panicked", "hook", name, "plugin", p.Name(), "panic", fmt.Sprint(rec))
		}
	}()
	if err := fn(ctx); err != nil {
		slog.Error("Hook failed", "hook", name, "plugin", p.Name(), "error", err)
	}
}
