package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"sense-firmware/pkg/config"
	"sense-firmware/pkg/globals"
	"sense-firmware/pkg/logger"
	"sense-firmware/pkg/metrics"
	"sense-firmware/pkg/system"

	"github.com/sirupsen/logrus"
)

// maxBody bounds a settings document upload.
const maxBody = 64 << 10

// Applier makes a candidate record live and persists it.
type Applier interface {
	Apply(config.Record) (config.Record, error)
}

// Capability reports what the attached sensor can deliver.
type Capability interface {
	MaxFrameSize() config.FrameSize
}

type Options struct {
	Live    *config.Live
	Codec   *config.Codec
	Applier Applier
	Camera  Capability
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

// Server is the device configuration endpoint.
type Server struct {
	live    *config.Live
	codec   *config.Codec
	applier Applier
	camera  Capability
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	watch   *hub
	unsaved atomic.Bool
	handler http.Handler
	server  *http.Server
}

func New(opts Options) *Server {
	s := &Server{
		live:    opts.Live,
		codec:   opts.Codec,
		applier: opts.Applier,
		camera:  opts.Camera,
		metrics: opts.Metrics,
		log:     opts.Log,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.watch = newHub(s.log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("POST /settings", s.handlePostSettings)
	mux.HandleFunc("GET /settings/watch", s.handleWatch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handler = s.withRequestID(withCORS(mux))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Settings server stopped")
		}
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("Settings server listening")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.watch.closeAll()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Publish pushes record to every watcher. persisted tells watchers whether
// the record also reached storage.
func (s *Server) Publish(r config.Record, persisted bool) {
	s.unsaved.Store(!persisted)
	msg, err := s.message(r, persisted)
	if err != nil {
		s.log.WithError(err).Error("Failed to render settings for watchers")
		return
	}
	s.watch.broadcast(msg)
}

func (s *Server) message(r config.Record, persisted bool) (Message, error) {
	doc, err := s.publicView(r, true)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: "settings", Payload: doc, Persisted: persisted}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := system.ReadHealth()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"system":          health,
			"firmwareVersion": globals.FirmwareVersion,
			"settingsTag":     s.live.Snapshot().Tag.String(),
			"sensorMax":       s.camera.MaxFrameSize().String(),
		},
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": logger.GetLogs()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

func writeDocument(w http.ResponseWriter, doc []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
