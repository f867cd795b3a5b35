package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/history"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func serverFixture(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		PagesDir:     filepath.Join(root, "pages"),
		TemplatesDir: filepath.Join(root, "templates"),
		StaticDir:    filepath.Join(root, "static"),
		AssetsDir:    filepath.Join(root, "assets"),
		OutputDir:    filepath.Join(root, "out"),
		BaseURL:      "https://example.com",
		SiteTitle:    "Serve Fixture",
	}
	for _, dir := range []string{cfg.PagesDir, cfg.TemplatesDir, cfg.StaticDir, cfg.AssetsDir} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return New(cfg, 0), cfg
}

func TestHandleSite_DirectoryRequest_ServesIndexHTML(t *testing.T) {
	srv, cfg := serverFixture(t)
	writeFile(t, filepath.Join(cfg.OutputDir, "docs", "index.html"), "<h1>docs</h1>")

	rec := httptest.NewRecorder()
	srv.handleSite(rec, httptest.NewRequest(http.MethodGet, "/docs/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "<h1>docs</h1>")
}

func TestHandleSite_DirectoryWithoutIndex_Returns404NotListing(t *testing.T) {
	srv, cfg := serverFixture(t)
	writeFile(t, filepath.Join(cfg.OutputDir, "docs", "about.html"), "about")

	rec := httptest.NewRecorder()
	srv.handleSite(rec, httptest.NewRequest(http.MethodGet, "/docs/", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NotContains(t, rec.Body.String(), "about.html")
}

func TestHandleSite_PathTraversal_IsRejected(t *testing.T) {
	srv, cfg := serverFixture(t)
	writeFile(t, filepath.Join(cfg.OutputDir, "index.html"), "home")
	writeFile(t, filepath.Join(filepath.Dir(cfg.OutputDir), "secret.txt"), "secret")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	srv.handleSite(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBuilds_NoHistoryConfigured_ReturnsEmptyList(t *testing.T) {
	srv, _ := serverFixture(t)

	rec := httptest.NewRecorder()
	srv.handleBuilds(rec, httptest.NewRequest(http.MethodGet, "/builds", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []history.BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Empty(t, got)
}

func TestHandleBuilds_WithHistory_ReturnsRecordedBuilds(t *testing.T) {
	srv, cfg := serverFixture(t)
	cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(cfg.HistoryDB)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), history.BuildSummary{
		BuildID:   "abc-123",
		StartedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Duration:  250 * time.Millisecond,
		Rendered:  3,
		Outcome:   "success",
	}))
	require.NoError(t, store.Close())

	rec := httptest.NewRecorder()
	srv.handleBuilds(rec, httptest.NewRequest(http.MethodGet, "/builds", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []history.BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "abc-123", got[0].BuildID)
}

func TestRequestRebuild_WhilePending_CoalescesIntoOneTrigger(t *testing.T) {
	srv, cfg := serverFixture(t)
	w, err := newRebuildWatcher(cfg, srv.builder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	// Without the worker draining, repeated requests must not block and
	// must leave exactly one pending trigger.
	for i := 0; i < 5; i++ {
		w.RequestRebuild()
	}
	require.Len(t, w.trigger, 1)
}

func TestWatcher_FileChange_TriggersRebuild(t *testing.T) {
	_, cfg := serverFixture(t)
	writeFile(t, filepath.Join(cfg.PagesDir, "index.html"), "hello")

	w, err := newRebuildWatcher(cfg, build.NewBuilder(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	writeFile(t, filepath.Join(cfg.PagesDir, "new.html"), "new page")

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, "new.html"))
		return err == nil
	}, 10*time.Second, 100*time.Millisecond)

	cancel()
	w.Wait()
}
