// Package linkcheck scans rendered HTML output for internal references
// that do not resolve to a file in the output tree. Findings are advisory:
// they are logged as warnings and never fail a build.
package linkcheck

import (
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Finding is one unresolved internal reference.
type Finding struct {
	SourceFile string
	Target     string
}

// Check walks every .html file under outputDir and reports internal hrefs
// and srcs whose targets do not exist in the output tree.
func Check(outputDir string) []Finding {
	var findings []Finding

	err := filepath.WalkDir(outputDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.ToLower(filepath.Ext(filePath)) != ".html" {
			return nil
		}

		refs, parseErr := extractRefs(filePath)
		if parseErr != nil {
			slog.Warn("Could not parse rendered HTML for link check", "path", filePath, "error", parseErr)
			return nil
		}

		for _, ref := range refs {
			if target, broken := resolveInternal(outputDir, filePath, ref); broken {
				findings = append(findings, Finding{SourceFile: filePath, Target: ref})
				slog.Warn("Broken internal link", "source", filePath, "target", target)
			}
		}
		return nil
	})
	if err != nil {
		slog.Warn("Link check walk failed", "dir", outputDir, "error", err)
	}
	return findings
}

// extractRefs collects href/src attribute values from one HTML file.
func extractRefs(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// resolveInternal reports whether ref is a site-internal reference whose
// target file is missing. External URLs, fragments and query-only refs
// are ignored.
func resolveInternal(outputDir, sourceFile, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return "", false
	}
	target := parsed.Path
	if target == "" {
		return "", false
	}

	var onDisk string
	if strings.HasPrefix(target, "/") {
		onDisk = filepath.Join(outputDir, filepath.FromSlash(strings.TrimPrefix(target, "/")))
	} else {
		onDisk = filepath.Join(filepath.Dir(sourceFile), filepath.FromSlash(target))
	}

	// Directory references resolve through index.html, matching the dev
	// server's behavior.
	if info, statErr := os.Stat(onDisk); statErr == nil {
		if info.IsDir() {
			if _, idxErr := os.Stat(filepath.Join(onDisk, "index.html")); idxErr != nil {
				return path.Join(target, "index.html"), true
			}
		}
		return "", false
	}
	return target, true
}
