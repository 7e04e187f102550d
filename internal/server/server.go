// Package server exposes the data manager and structure renderer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/config"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/datamanager"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/observability"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/render/threedmol"
)

// shutdownTimeout bounds graceful shutdown once the serving context ends.
const shutdownTimeout = 10 * time.Second

// localScriptPath serves 3Dmol.js when it is configured as a local file.
const localScriptPath = "/static/3Dmol-min.js"

// Server hosts the dashboard API and viewer pages.
type Server struct {
	cfg     *config.Config
	data    *datamanager.Manager
	caps    render.Capabilities
	views   *threedmol.Factory
	script  string
	logger  *zap.Logger
	handler http.Handler
}

// New wires the routes. caps comes from render.Probe at startup.
func New(cfg *config.Config, data *datamanager.Manager, caps render.Capabilities, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		data:   data,
		caps:   caps,
		views:  threedmol.NewFactory(),
		script: scriptSource(cfg.Viewer.ScriptURL),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/fingerprint", s.handleFingerprint)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/molecules", s.handleMolecules)
	mux.HandleFunc("GET /api/molecules/{name}", s.handleMoleculeByName)
	mux.HandleFunc("GET /api/molecules/index/{i}", s.handleMoleculeByIndex)
	mux.HandleFunc("GET /api/values/{column}", s.handleValues)
	mux.HandleFunc("GET /api/names", s.handleNames)
	mux.HandleFunc("POST /api/files", s.handleUpload)
	mux.HandleFunc("GET /view/{name}", s.handleView)
	if s.script == localScriptPath {
		mux.HandleFunc("GET "+localScriptPath, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, cfg.Viewer.ScriptURL)
		})
	}
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.Handler())
	}

	var h http.Handler = withRequestLogging(logger, mux)
	if gz, err := gzhttp.NewWrapper(gzhttp.MinSize(cfg.Server.CompressMinBytes)); err != nil {
		logger.Warn("response compression disabled", zap.Error(err))
	} else {
		h = gz(h)
	}
	s.handler = observability.Middleware(h)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe runs the HTTP server until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	s.logger.Info("dashboard listening",
		zap.String("addr", s.cfg.Server.Addr),
		zap.Bool("rendering", s.caps.Rendering),
		zap.Bool("embedding", s.caps.Embedding))
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := srv.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.logger.Info("dashboard stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// scriptSource returns the src attribute for 3Dmol.js: remote URLs are used
// as is, local files are served by the dashboard.
func scriptSource(ref string) string {
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ref
	}
	if ref == "" {
		return ""
	}
	return localScriptPath
}
