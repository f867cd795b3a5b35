// Package create scaffolds new content files in the pages directory.
package create

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/hooks"
)

const dateLayout = "2006-01-02"

// Slugify converts a title into a filesystem and URL safe slug: accents
// are stripped, everything is lowercased, and runs of non-alphanumerics
// collapse into single hyphens.
func Slugify(title string) string {
	stripped, _, err := transform.String(transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), title)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// Page writes a new page skeleton for the given title into the pages
// directory and fires the create_content hook. An existing file is never
// overwritten.
func Page(cfg *config.Config, registry *hooks.Registry, title string, now func() time.Time) (string, error) {
	slug := Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("title %q produces an empty slug", title)
	}

	path := filepath.Join(cfg.PagesDir, slug+".html")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("content file already exists: %s", path)
	}

	front, err := json.MarshalIndent(map[string]string{
		"title": title,
		"date":  now().Format(dateLayout),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}

	content := fmt.Sprintf("+++\n%s\n+++\n\n<h1>%s</h1>\n", front, title)

	if err := os.MkdirAll(cfg.PagesDir, 0o755); err != nil {
		return "", fmt.Errorf("create pages directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write content file: %w", err)
	}

	hookCtx := hooks.NewContext("", cfg).With("path", path).With("title", title)
	registry.Run(hooks.CreateContent, hookCtx)

	slog.Info("Created content file", "path", path, "title", title)
	return path, nil
}
