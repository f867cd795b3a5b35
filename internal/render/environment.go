// Package render turns content items into output files.
//
// The environment is built once per build: a single template set collected
// from the templates root, the pages root and every collection source, a
// FuncMap exposing the static, url and now helpers, and a read-only site
// namespace shared by every render context.
package render

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/urlutil"
)

const defaultNowLayout = "2006-01-02 15:04:05"

// Environment holds the shared template set and globals for one build.
type Environment struct {
	cfg  *config.Config
	root *template.Template
	site map[string]any
	now  func() time.Time
}

// NewEnvironment constructs the template environment.
//
// The search path is the union of the templates root, the pages root and
// every collection source root. Individual template files that fail to
// parse are skipped with a logged error so one broken layout does not take
// down the whole build.
func NewEnvironment(cfg *config.Config, data map[string]any, collections map[string][]content.Item, now func() time.Time) *Environment {
	if now == nil {
		now = time.Now
	}

	env := &Environment{
		cfg: cfg,
		now: now,
		site: map[string]any{
			"config":      cfg,
			"data":        data,
			"collections": collections,
		},
	}

	env.root = template.New("").Funcs(env.funcMap())

	searchPaths := []string{cfg.TemplatesDir, cfg.PagesDir}
	for _, coll := range cfg.Collections {
		if coll.Path != "" {
			searchPaths = append(searchPaths, coll.Path)
		}
	}
	for _, dir := range searchPaths {
		env.loadTemplates(dir)
	}
	return env
}

// funcMap exposes the custom helpers to templates. Behavior matches the
// urlutil package exactly; the helpers are the same functions.
func (e *Environment) funcMap() template.FuncMap {
	return template.FuncMap{
		"static": func(path string) string { return urlutil.StaticURL(path, e.cfg) },
		"url":    func(path string) string { return urlutil.URL(path, e.cfg) },
		"now": func(layout ...any) string {
			format := defaultNowLayout
			if len(layout) > 0 {
				if s, ok := layout[0].(string); ok && s != "" {
					format = s
				}
			}
			return e.now().Format(format)
		},
	}
}

// loadTemplates parses every .html file under dir into the shared set,
// named by its slash-separated path relative to dir. Front matter is
// stripped first, so page sources double as loadable layouts.
func (e *Environment) loadTemplates(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		slog.Debug("Template search path not found", "dir", dir)
		return
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Error("Failed to walk template directory", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".html" {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		name := filepath.ToSlash(rel)
		if e.root.Lookup(name) != nil {
			// Earlier search paths win, as in a first-match loader.
			return nil
		}

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Error("Failed to read template", "path", path, "error", readErr)
			return nil
		}
		_, body := frontmatter.Parse(string(raw))

		if _, parseErr := e.root.New(name).Parse(body); parseErr != nil {
			slog.Error("Failed to parse template", "template", name, "error", parseErr)
		}
		return nil
	})
	if walkErr != nil {
		slog.Error("Template directory walk failed", "dir", dir, "error", walkErr)
	}
}

// Site returns the global site namespace exposed to templates.
func (e *Environment) Site() map[string]any { return e.site }
