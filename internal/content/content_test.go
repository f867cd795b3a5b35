package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadData_NestedDirectories_FormNestedKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "site.json"), `{"name": "demo"}`)
	writeFile(t, filepath.Join(dir, "nav", "main.json"), `["home", "about"]`)

	data := LoadData(&config.Config{DataDir: dir})

	site, ok := data["site"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "demo", site["name"])

	nav, ok := data["nav"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []any{"home", "about"}, nav["main"])
}

func TestLoadData_MalformedAndNonJSON_AreSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.json"), `{"k": 1}`)
	writeFile(t, filepath.Join(dir, "bad.json"), `{broken`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not data")

	data := LoadData(&config.Config{DataDir: dir})
	require.Contains(t, data, "good")
	require.NotContains(t, data, "bad")
	require.NotContains(t, data, "notes")
}

func TestLoadData_NoDirectory_ReturnsEmptyTree(t *testing.T) {
	data := LoadData(&config.Config{DataDir: filepath.Join(t.TempDir(), "missing")})
	require.NotNil(t, data)
	require.Empty(t, data)
}

func TestLoadCollections_ParsesFrontMatterAndOutputPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "first.html"),
		"+++\n{\"layout\": \"post.html\", \"title\": \"First\"}\n+++\n<p>hi</p>")

	cfg := &config.Config{Collections: map[string]config.Collection{
		"posts": {Path: dir, Output: "blog"},
	}}

	collections := LoadCollections(cfg)
	require.Len(t, collections["posts"], 1)

	item := collections["posts"][0]
	require.Equal(t, "posts", item.Collection)
	require.Equal(t, "blog/first.html", item.OutputRelPath)
	require.Equal(t, "post.html", item.Layout())
	require.Equal(t, "<p>hi</p>", item.Body)
	require.False(t, item.Markdown)
}

func TestLoadCollections_MarkdownItem_OutputsHTMLExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "note.md"),
		"+++\n{\"layout\": \"post.html\"}\n+++\n# Heading")

	cfg := &config.Config{Collections: map[string]config.Collection{
		"posts": {Path: dir, Output: "blog"},
	}}

	item := LoadCollections(cfg)["posts"][0]
	require.True(t, item.Markdown)
	require.Equal(t, "blog/note.html", item.OutputRelPath)
}

func TestLoadCollections_MissingPath_SkipsCollection(t *testing.T) {
	cfg := &config.Config{Collections: map[string]config.Collection{
		"ghosts": {Path: filepath.Join(t.TempDir(), "nope"), Output: "ghosts"},
	}}

	collections := LoadCollections(cfg)
	require.NotContains(t, collections, "ghosts")
}

func TestLoadPages_OutputMirrorsSourcePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<h1>home</h1>")
	writeFile(t, filepath.Join(dir, "docs", "about.html"), "+++\n{\"title\": \"About\"}\n+++\nabout body")

	pages := LoadPages(&config.Config{PagesDir: dir})
	require.Len(t, pages, 2)

	byPath := map[string]Item{}
	for _, p := range pages {
		byPath[p.OutputRelPath] = p
	}
	require.Contains(t, byPath, "index.html")
	require.Contains(t, byPath, "docs/about.html")
	require.Equal(t, "About", byPath["docs/about.html"].FrontMatter["title"])
}
