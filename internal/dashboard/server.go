// Package dashboard serves a generated site over HTTP and optionally watches
// the snapshot file, rebuilding the site when it changes.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const debounceDelay = 250 * time.Millisecond

// RebuildFunc regenerates the site after the watched snapshot changes.
type RebuildFunc func(ctx context.Context) error

// Config configures a dashboard Server.
type Config struct {
	SiteDir   string
	Port      int
	WatchPath string      // snapshot file to watch; empty disables watching
	Rebuild   RebuildFunc // invoked after a watched change, may be nil
	Logger    *slog.Logger
}

// Server serves the static dashboard site.
type Server struct {
	siteDir   string
	port      int
	watchPath string
	rebuild   RebuildFunc
	logger    *slog.Logger
}

// New creates a Server from config.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		siteDir:   cfg.SiteDir,
		port:      cfg.Port,
		watchPath: cfg.WatchPath,
		rebuild:   cfg.Rebuild,
		logger:    logger,
	}
}

// Handler builds the chi router serving the site directory. The root path
// serves main.html; anything else resolves against the site directory and
// misses get a plain 404.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFile(w, req, filepath.Join(s.siteDir, "main.html"))
	})
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		s.serveStatic(w, req)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		s.logger.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

func (s *Server) serveStatic(w http.ResponseWriter, req *http.Request) {
	rel := strings.TrimPrefix(req.URL.Path, "/")
	// reject traversal before touching the filesystem
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		http.NotFound(w, req)
		return
	}

	path := filepath.Join(s.siteDir, clean)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, req)
		return
	}
	http.ServeFile(w, req, path)
}

// Serve starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dashboard", "addr", fmt.Sprintf("http://localhost:%d", s.port), "site", s.siteDir)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchPath != "" && s.rebuild != nil {
		eg.Go(func() error {
			return s.watchSnapshot(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchSnapshot watches the snapshot file's directory and triggers a rebuild
// when the file is written or recreated. Editors replace files rather than
// writing in place, so the parent directory is watched instead of the file.
func (s *Server) watchSnapshot(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.watchPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Base(s.watchPath)

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				s.logger.Info("snapshot changed, rebuilding site", "file", event.Name)
				if err := s.rebuild(ctx); err != nil {
					s.logger.Error("rebuild failed", "error", err)
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
