package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"sense-firmware/pkg/config"
	"sense-firmware/pkg/reconfig"
)

// publicView is what clients get to read: no credentials and no frame-buffer
// internals, optionally with the enumeration metadata.
func (s *Server) publicView(r config.Record, types bool) ([]byte, error) {
	v := config.View{}
	if types {
		v.Types = config.Metadata(s.camera.MaxFrameSize())
	}
	return s.codec.Render(r, v)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := s.publicView(s.live.Snapshot(), r.URL.Query().Get("types") != "false")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeDocument(w, doc)
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r, s.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Settings document too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "Missing settings document")
		return
	}

	candidate, err := s.codec.Decode(body)
	if err != nil {
		log.WithError(err).Warn("Rejected settings document")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	applied, err := s.applier.Apply(candidate)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrTagMismatch), errors.Is(err, reconfig.ErrHardwareReject):
		log.WithError(err).Warn("Rejected settings")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, reconfig.ErrCommit):
		log.WithError(err).Error("Settings applied but not persisted")
		writeError(w, http.StatusInternalServerError, reconfig.ErrCommit.Error())
		return
	default:
		log.WithError(err).Error("Failed to apply settings")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc, err := s.codec.Render(applied, config.View{LowLevel: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info("Settings updated")
	writeDocument(w, doc)
}
