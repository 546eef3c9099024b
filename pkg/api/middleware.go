package api

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gofrs/uuid"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

// withRequestID tags every request with an ID, echoed in the response and
// carried by the request's logger, and logs the request once it is served.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			u, err := uuid.NewV4()
			if err != nil {
				s.log.WithError(err).Warn("Failed to generate request ID")
			} else {
				id = u.String()
			}
		}
		w.Header().Set(requestIDHeader, id)

		log := s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		m := httpsnoop.CaptureMetrics(next, w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, log)))
		log.WithFields(logrus.Fields{
			"status":   m.Code,
			"duration": m.Duration.String(),
			"bytes":    m.Written,
		}).Debug("Request served")
	})
}

func requestLog(r *http.Request, fallback logrus.FieldLogger) logrus.FieldLogger {
	if log, ok := r.Context().Value(ctxKey{}).(logrus.FieldLogger); ok {
		return log
	}
	return fallback
}

// withCORS lets the settings page be served from anywhere.
func withCORS(next http.Handler) http.Handler {
	handleCORS := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
	}).Handler
	return addPreflight(handleCORS(next))
}

func addPreflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
