package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/hooks"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/urlutil"
)

// PageRecord is the post-render summary of one produced output file,
// consumed by the sitemap and feed generators. Content holds the
// pre-render body, not the rendered HTML.
type PageRecord struct {
	SourcePath  string
	OutputPath  string
	URL         string
	FrontMatter map[string]any
	Content     string
}

// Pipeline renders content items through the shared environment.
type Pipeline struct {
	Env      *Environment
	Registry *hooks.Registry
	HookCtx  *hooks.Context

	Records  []PageRecord
	Rendered int
	Skipped  int
}

// NewPipeline creates a pipeline bound to one build's environment and
// hook registry.
func NewPipeline(env *Environment, registry *hooks.Registry, hookCtx *hooks.Context) *Pipeline {
	return &Pipeline{Env: env, Registry: registry, HookCtx: hookCtx}
}

// RenderAll renders pages first (file-walk order), then each collection's
// items, appending a PageRecord per success. Failures skip the item and
// never abort the run.
func (p *Pipeline) RenderAll(pages []content.Item, collections map[string][]content.Item, collectionOrder []string) {
	slog.Info("Rendering pages", "count", len(pages))
	for _, page := range pages {
		p.renderOne(page)
	}

	for _, name := range collectionOrder {
		items := collections[name]
		slog.Info("Rendering collection items", "collection", name, "count", len(items))
		for _, item := range items {
			p.renderOne(item)
		}
	}
}

func (p *Pipeline) renderOne(item content.Item) {
	p.Registry.Run(hooks.BeforeRenderPage, p.HookCtx.With("page_path", item.SourcePath))

	outputPath := filepath.Join(p.Env.cfg.OutputDir, filepath.FromSlash(item.OutputRelPath))
	record, err := p.render(item, outputPath)
	if err != nil {
		slog.Error("Skipping item", "source", item.SourcePath, "output", outputPath, "error", err)
		p.Skipped++
	} else if record != nil {
		p.Records = append(p.Records, *record)
		p.Rendered++
		slog.Info("Rendered", "source", item.SourcePath, "output", outputPath)
	}

	p.Registry.Run(hooks.AfterRenderPage,
		p.HookCtx.With("page_path", item.SourcePath).With("output_path", outputPath))
}

func (p *Pipeline) render(item content.Item, outputPath string) (*PageRecord, error) {
	ctx, err := p.buildContext(item)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if item.Collection == "" {
		// Page variant: the body text is itself a template, typically one
		// that invokes a base layout from the shared set.
		tpl, cloneErr := p.Env.root.Clone()
		if cloneErr != nil {
			return nil, fmt.Errorf("clone template set: %w", cloneErr)
		}
		pageTpl, parseErr := tpl.New(item.RelPath).Parse(item.Body)
		if parseErr != nil {
			return nil, fmt.Errorf("compile page template: %w", parseErr)
		}
		if execErr := pageTpl.Execute(&buf, ctx); execErr != nil {
			return nil, fmt.Errorf("render page: %w", execErr)
		}
	} else {
		layoutName := item.Layout()
		if layoutName == "" {
			return nil, fmt.Errorf("collection item has no layout in front matter")
		}
		layout := p.Env.root.Lookup(layoutName)
		if layout == nil {
			return nil, fmt.Errorf("layout template %q not found", layoutName)
		}
		if execErr := layout.Execute(&buf, ctx); execErr != nil {
			return nil, fmt.Errorf("render with layout %q: %w", layoutName, execErr)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write output file: %w", err)
	}

	return &PageRecord{
		SourcePath:  item.SourcePath,
		OutputPath:  outputPath,
		URL:         urlutil.URL(item.OutputRelPath, p.Env.cfg),
		FrontMatter: item.FrontMatter,
		Content:     item.Body,
	}, nil
}

// buildContext assembles the page namespace for one item.
func (p *Pipeline) buildContext(item content.Item) (map[string]any, error) {
	pageData, dataURLs := p.loadPageData(item.FrontMatter)

	page := map[string]any{
		"front_matter":       item.FrontMatter,
		"data":               pageData,
		"data_json_urls":     dataURLs,
		"url":                urlutil.URL(item.OutputRelPath, p.Env.cfg),
		"canonical":          p.Env.cfg.BaseURL + "/" + strings.TrimLeft(item.OutputRelPath, "/"),
		"absolute_final_url": urlutil.URL(item.OutputRelPath, p.Env.cfg),
	}

	if item.Collection != "" {
		body := item.Body
		if item.Markdown {
			html, err := markdown.Render(body)
			if err != nil {
				return nil, fmt.Errorf("render markdown body: %w", err)
			}
			body = html
		}
		page["content"] = body
	}

	return map[string]any{
		"page": page,
		"site": p.Env.site,
	}, nil
}

// loadPageData resolves the data_file/data_files front-matter references
// against the assets root. Missing files degrade to empty data with a
// warning, malformed files with an error; multiple files merge
// left-to-right with later keys overwriting earlier ones.
func (p *Pipeline) loadPageData(fm map[string]any) (map[string]any, []string) {
	merged := map[string]any{}
	var urls []string

	var refs []string
	if single, ok := fm["data_file"].(string); ok {
		refs = append(refs, single)
	} else if many, ok := fm["data_files"].([]any); ok {
		for _, ref := range many {
			if s, ok := ref.(string); ok {
				refs = append(refs, s)
			}
		}
	}

	for _, ref := range refs {
		urls = append(urls, urlutil.URL(ref, p.Env.cfg))

		fullPath := filepath.Join(p.Env.cfg.AssetsDir, filepath.FromSlash(strings.TrimLeft(ref, "/")))
		raw, err := os.ReadFile(fullPath)
		if err != nil {
			slog.Warn("Page data asset file not found", "path", fullPath)
			continue
		}

		var value map[string]any
		if err := json.Unmarshal(raw, &value); err != nil {
			slog.Error("Failed to decode page data asset", "path", fullPath, "error", err)
			continue
		}
		for k, v := range value {
			merged[k] = v
		}
	}
	return merged, urls
}
