// Package content discovers pages, collection items and the site data tree.
//
// Discovery produces pure data: nothing here renders or writes. Every
// per-file failure is logged and skipped so a single bad file never stops
// a build.
package content

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

// Item is one discovered content file, either a page or a collection item.
type Item struct {
	// SourcePath is the location of the file on disk.
	SourcePath string
	// RelPath is the path relative to the discovery root, slash-separated.
	RelPath string
	// OutputRelPath is where the rendered file goes under the output root.
	OutputRelPath string
	// Collection is the owning collection name, empty for pages.
	Collection string
	// FrontMatter holds the parsed metadata block.
	FrontMatter map[string]any
	// Body is the raw text after the front matter.
	Body string
	// Markdown reports whether the body is Markdown rather than template
	// HTML.
	Markdown bool
}

// Layout returns the front-matter layout name, empty if unset.
func (it *Item) Layout() string {
	if v, ok := it.FrontMatter["layout"].(string); ok {
		return v
	}
	return ""
}

func isContentFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".md"
}

// LoadData builds the site data tree from JSON files under the data root.
//
// Directory structure forms nested keys; each filename without extension
// is the leaf key holding the parsed value. Non-JSON files are skipped
// with a warning; unreadable or malformed files with an error.
func LoadData(cfg *config.Config) map[string]any {
	data := map[string]any{}
	if cfg.DataDir == "" {
		return data
	}
	if _, err := os.Stat(cfg.DataDir); err != nil {
		slog.Info("No data directory found, skipping data loading", "dir", cfg.DataDir)
		return data
	}

	err := filepath.WalkDir(cfg.DataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Error("Failed to walk data directory", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".json" {
			slog.Warn("Skipping non-JSON data file", "path", path)
			return nil
		}

		rel, relErr := filepath.Rel(cfg.DataDir, path)
		if relErr != nil {
			slog.Error("Failed to resolve data file path", "path", path, "error", relErr)
			return nil
		}

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Error("Failed to read data file", "path", path, "error", readErr)
			return nil
		}

		var value any
		if jsonErr := json.Unmarshal(raw, &value); jsonErr != nil {
			slog.Error("Failed to parse data file", "path", path, "error", jsonErr)
			return nil
		}

		insertDataValue(data, filepath.ToSlash(rel), value)
		slog.Debug("Loaded data file", "path", rel)
		return nil
	})
	if err != nil {
		slog.Error("Data directory walk failed", "dir", cfg.DataDir, "error", err)
	}
	return data
}

// insertDataValue places value into the tree at the nested key implied by
// the slash-separated relative path. Last write wins on collisions.
func insertDataValue(tree map[string]any, relPath string, value any) {
	dir, file := filepath.Split(relPath)
	name := strings.TrimSuffix(file, filepath.Ext(file))

	node := tree
	for _, key := range strings.Split(strings.Trim(dir, "/"), "/") {
		if key == "" {
			continue
		}
		child, ok := node[key].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[key] = child
		}
		node = child
	}
	node[name] = value
}

// LoadCollections walks every configured collection source and parses each
// content file into an Item. A missing collection directory skips that
// collection with a warning.
func LoadCollections(cfg *config.Config) map[string][]Item {
	collections := map[string][]Item{}

	for name, coll := range cfg.Collections {
		if coll.Path == "" {
			slog.Warn("Collection has no source path", "collection", name)
			continue
		}
		if _, err := os.Stat(coll.Path); err != nil {
			slog.Warn("Collection path not found, skipping", "collection", name, "path", coll.Path)
			continue
		}

		slog.Info("Loading collection", "collection", name, "path", coll.Path)
		items := loadCollectionItems(name, coll)
		collections[name] = items
	}
	return collections
}

func loadCollectionItems(name string, coll config.Collection) []Item {
	var items []Item
	err := filepath.WalkDir(coll.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Error("Failed to walk collection directory", "collection", name, "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !isContentFile(path) {
			return nil
		}

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Error("Failed to read collection item", "path", path, "error", readErr)
			return nil
		}

		rel, relErr := filepath.Rel(coll.Path, path)
		if relErr != nil {
			slog.Error("Failed to resolve collection item path", "path", path, "error", relErr)
			return nil
		}

		fm, body := frontmatter.Parse(string(raw))
		items = append(items, Item{
			SourcePath:    path,
			RelPath:       filepath.ToSlash(rel),
			OutputRelPath: outputRelPath(coll.Output, path),
			Collection:    name,
			FrontMatter:   fm,
			Body:          body,
			Markdown:      strings.ToLower(filepath.Ext(path)) == ".md",
		})
		return nil
	})
	if err != nil {
		slog.Error("Collection walk failed", "collection", name, "error", err)
	}
	return items
}

// outputRelPath flattens collection items into the collection's output
// prefix, keeping only the base name. Markdown sources become .html.
func outputRelPath(outputPrefix, sourcePath string) string {
	base := filepath.Base(sourcePath)
	if strings.ToLower(filepath.Ext(base)) == ".md" {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ".html"
	}
	return filepath.ToSlash(filepath.Join(outputPrefix, base))
}

// LoadPages walks the pages root and parses each content file into an Item
// whose output path mirrors its source path.
func LoadPages(cfg *config.Config) []Item {
	var pages []Item
	if _, err := os.Stat(cfg.PagesDir); err != nil {
		slog.Warn("Pages directory not found", "dir", cfg.PagesDir)
		return pages
	}

	err := filepath.WalkDir(cfg.PagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Error("Failed to walk pages directory", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".html" {
			return nil
		}

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Error("Failed to read page", "path", path, "error", readErr)
			return nil
		}

		rel, relErr := filepath.Rel(cfg.PagesDir, path)
		if relErr != nil {
			slog.Error("Failed to resolve page path", "path", path, "error", relErr)
			return nil
		}

		fm, body := frontmatter.Parse(string(raw))
		pages = append(pages, Item{
			SourcePath:    path,
			RelPath:       filepath.ToSlash(rel),
			OutputRelPath: filepath.ToSlash(rel),
			FrontMatter:   fm,
			Body:          body,
		})
		return nil
	})
	if err != nil {
		slog.Error("Pages walk failed", "dir", cfg.PagesDir, "error", err)
	}
	return pages
}
