// Package urlutil resolves output-relative paths to site URLs.
//
// Both functions are pure with respect to the configuration and are used
// from the build orchestrator as well as from inside templates, so their
// behavior must be identical from both call sites.
package urlutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

// URL resolves a site-relative output path to its canonical URL.
// Leading slashes on the input are stripped, so repeated resolution is
// idempotent.
func URL(path string, cfg *config.Config) string {
	trimmed := strings.TrimLeft(path, "/")
	if cfg.UseAbsoluteURLs {
		return cfg.BaseURL + "/" + trimmed
	}
	return "/" + trimmed
}

// StaticURL resolves a path under the static assets root. A missing file
// is advisory: the URL is still produced so templates keep rendering.
func StaticURL(path string, cfg *config.Config) string {
	trimmed := strings.TrimLeft(path, "/")

	onDisk := filepath.Join(cfg.StaticDir, filepath.FromSlash(trimmed))
	if _, err := os.Stat(onDisk); err != nil {
		slog.Warn("Static file not found", "path", onDisk)
	}

	if cfg.UseAbsoluteStatic {
		return cfg.BaseURL + "/static/" + trimmed
	}
	return "/static/" + trimmed
}
