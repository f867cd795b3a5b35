// Package artifacts derives the sitemap and RSS feed from the build's
// rendered output.
package artifacts

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// WriteSitemap emits sitemap.xml listing every rendered page's URL, in
// build order.
func WriteSitemap(records []render.PageRecord, cfg *config.Config) (string, error) {
	doc := urlset{Xmlns: sitemapNamespace}
	for _, record := range records {
		doc.URLs = append(doc.URLs, sitemapURL{Loc: record.URL})
	}

	sitemapPath := filepath.Join(cfg.OutputDir, "sitemap.xml")
	if err := writeXML(sitemapPath, doc); err != nil {
		return "", err
	}
	slog.Info("Sitemap generated", "path", sitemapPath, "urls", len(doc.URLs))
	return sitemapPath, nil
}

func writeXML(path string, doc any) error {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal xml: %w", err)
	}
	payload := append([]byte(xml.Header), out...)
	payload = append(payload, '\n')
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
