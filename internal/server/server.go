// Package server provides the HTTP server for the chain try-on system.
package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/chainfit/internal/app"
	"github.com/ayusman/chainfit/internal/catalog"
	"github.com/ayusman/chainfit/internal/pipeline"
	"github.com/ayusman/chainfit/internal/placement"
	"github.com/ayusman/chainfit/internal/server/api"
)

// CameraControl starts and stops the capture loop.
type CameraControl interface {
	Start() error
	Stop()
	Status() app.Status
}

// Config holds the server configuration. Routes whose dependencies are nil
// are not registered.
type Config struct {
	StaticDir  string
	Hub        *pipeline.Hub
	Selector   *catalog.Selector
	Thumbnails *catalog.Thumbnailer
	Controls   *placement.Controls
	Camera     CameraControl

	// SnapshotRate is the per-client snapshot allowance in requests per
	// second, with bursts of SnapshotBurst.
	SnapshotRate  float64
	SnapshotBurst int

	Log *logrus.Logger
}

// Server represents the HTTP server for the chainfit application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
	http    *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	if config.SnapshotRate <= 0 {
		config.SnapshotRate = 1
	}
	if config.SnapshotBurst <= 0 {
		config.SnapshotBurst = 3
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = withHeaders(s.mux)
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Selector != nil {
		chains := api.NewChainsHandler(s.config.Selector, s.config.Thumbnails, s.config.Log)
		s.mux.Handle("/api/chains", chains)
		s.mux.Handle("/api/chains/", chains)
	}

	if s.config.Controls != nil {
		s.mux.Handle("/api/params", api.NewParamsHandler(s.config.Controls))
	}

	if s.config.Camera != nil {
		s.mux.HandleFunc("/api/camera/start", s.handleCameraStart)
		s.mux.HandleFunc("/api/camera/stop", s.handleCameraStop)
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Hub, s.config.Log))
		s.mux.Handle("/api/placement", NewPlacementHandler(s.config.Hub, s.config.Log))

		limiter := newRateLimiter(rate.Limit(s.config.SnapshotRate), s.config.SnapshotBurst, maxTrackedClients, s.config.Log)
		s.mux.Handle("/api/snapshot", limiter.limit(http.HandlerFunc(s.handleSnapshot)))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type healthResponse struct {
	Status string      `json:"status"`
	Uptime string      `json:"uptime"`
	Chains int         `json:"chains"`
	Camera *app.Status `json:"camera,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).String(),
	}
	if s.config.Selector != nil {
		response.Chains = s.config.Selector.Len()
	}
	if s.config.Camera != nil {
		st := s.config.Camera.Status()
		response.Camera = &st
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleCameraStart handles POST /api/camera/start.
func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.config.Camera.Start(); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.config.Camera.Status())
}

// handleCameraStop handles POST /api/camera/stop.
func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.config.Camera.Stop()
	s.writeJSON(w, http.StatusOK, s.config.Camera.Status())
}

// handleSnapshot handles GET /api/snapshot and returns the latest rendered
// frame as a PNG attachment.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f := s.config.Hub.Latest()
	if f == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": pipeline.ErrNoFrame.Error()})
		return
	}

	var buf bytes.Buffer
	if err := pipeline.EncodePNG(&buf, f.Image); err != nil {
		s.config.Log.WithError(err).Error("Failed to encode snapshot")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode snapshot"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pipeline.SnapshotName(f.At)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, s.config.Log, status, data)
}

// writeJSON writes a JSON response with the given status code. Encode
// failures are logged to log.
func writeJSON(w http.ResponseWriter, log *logrus.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoniter.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.http.Addr = addr
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
