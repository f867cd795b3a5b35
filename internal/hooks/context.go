package hooks

import (
	"log/slog"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// Context is passed to every hook invocation. It carries the build
// identity and configuration plus a free-form payload for stage-specific
// values (page paths, rendered record lists and so on).
type Context struct {
	// BuildID uniquely identifies the current build.
	BuildID string

	// Config is the active site configuration.
	Config *config.Config

	// Logger is the structured logger plugins should use.
	Logger *slog.Logger

	// Payload holds stage-specific key-value context.
	Payload map[string]any
}

// NewContext creates a hook context for one build.
func NewContext(buildID string, cfg *config.Config) *Context {
	return &Context{
		BuildID: buildID,
		Config:  cfg,
		Logger:  slog.Default(),
		Payload: map[string]any{},
	}
}

// With returns a shallow copy of the context with one extra payload value.
func (c *Context) With(key string, value any) *Context {
	payload := make(map[string]any, len(c.Payload)+1)
	for k, v := range c.Payload {
		payload[k] = v
	}
	payload[key] = value

	return &Context{
		BuildID: c.BuildID,
		Config:  c.Config,
		Logger:  c.Logger,
		Payload: payload,
	}
}

// GetString retrieves a string payload value, empty when absent or not a
// string.
func (c *Context) GetString(key string) string {
	if v, ok := c.Payload[key].(string); ok {
		return v
	}
	return ""
}
