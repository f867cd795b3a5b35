// Package server implements the development mode: an HTTP file server over
// the output directory plus a filesystem watcher that triggers full
// rebuilds.
//
// No synchronization happens between a rebuild and concurrent reads; a
// client may observe a transiently inconsistent output tree while the
// directory is regenerated. That race is accepted since every build
// replaces the whole tree.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/sitegen/internal/build"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Server is the development server for one configuration.
type Server struct {
	cfg     *config.Config
	port    int
	builder *build.Builder
	httpSrv *http.Server
}

// New creates a development server. The builder it constructs records
// metrics into a dedicated Prometheus registry exposed on /metrics.
func New(cfg *config.Config, port int) *Server {
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	s := &Server{
		cfg:     cfg,
		port:    port,
		builder: build.NewBuilder(cfg, build.WithRecorder(recorder)),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/builds", s.handleBuilds)
	mux.HandleFunc("/", s.handleSite)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run performs the initial build, starts the watcher, optional scheduler
// and HTTP server, and blocks until ctx is canceled. Shutdown waits for
// the server and watcher to quiesce.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.builder.Run(ctx); err != nil {
		// Serve whatever exists; the watcher will rebuild on change.
		slog.Error("Initial build failed", "error", err)
	}

	watcher, err := newRebuildWatcher(s.cfg, s.builder)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	watcher.Start(ctx)

	scheduler, err := s.startScheduler(watcher)
	if err != nil {
		slog.Warn("Could not start rebuild scheduler", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving site", "url", fmt.Sprintf("http://localhost:%d/", s.port), "dir", s.cfg.OutputDir)
		if serveErr := s.httpSrv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("Shutting down server and watcher")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			slog.Warn("Scheduler shutdown error", "error", err)
		}
	}
	watcher.Wait()
	slog.Info("Server and watcher stopped")
	return nil
}

// startScheduler sets up the optional periodic rebuild.
func (s *Server) startScheduler(watcher *rebuildWatcher) (gocron.Scheduler, error) {
	interval := s.cfg.RebuildInterval()
	if interval <= 0 {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(watcher.RequestRebuild),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	slog.Info("Periodic rebuild scheduled", "interval", interval)
	return scheduler, nil
}

// handleSite serves files from the output directory. Directory requests
// resolve through index.html; there are no directory listings.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	cleaned := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if cleaned == "." {
		cleaned = ""
	}
	if strings.HasPrefix(cleaned, "..") {
		http.NotFound(w, r)
		return
	}

	target := filepath.Join(s.cfg.OutputDir, cleaned)
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, "index.html")
		info, err = os.Stat(target)
	}
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, target)
}

// handleBuilds returns recent build summaries from the history store as
// JSON. Without a configured history database it reports an empty list.
func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	summaries := []history.BuildSummary{}
	if s.cfg.HistoryDB != "" {
		store, err := history.Open(s.cfg.HistoryDB)
		if err == nil {
			defer func() { _ = store.Close() }()
			if recent, qErr := store.Recent(r.Context(), 20); qErr == nil {
				summaries = recent
			}
		} else {
			slog.Warn("Could not open build history database", "error", err)
		}
	}
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		slog.Warn("Failed to encode build history response", "error", err)
	}
}
