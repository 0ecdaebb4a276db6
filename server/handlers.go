package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oonrumail/threading/repository"
	"github.com/oonrumail/threading/subject"
	"github.com/oonrumail/threading/thread"
)

const (
	AlgorithmReferences     = "references"
	AlgorithmOrderedSubject = "orderedsubject"
)

type threadsResponse struct {
	FolderID  string        `json:"folder_id"`
	Algorithm string        `json:"algorithm"`
	Compact   bool          `json:"compact"`
	Threads   []*ThreadNode `json:"threads"`
}

// handleGetThreads builds the thread forest for a folder.
//
// GET /v1/folders/{folderID}/threads?algorithm=references&compact=true&format=json
func (s *Server) handleGetThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	folderID := chi.URLParam(r, "folderID")

	algorithm := r.URL.Query().Get("algorithm")
	if algorithm == "" {
		algorithm = s.config.Threading.DefaultAlgorithm
	}
	if algorithm != AlgorithmReferences && algorithm != AlgorithmOrderedSubject {
		s.respondError(w, http.StatusBadRequest, "unknown threading algorithm")
		return
	}

	compact := s.config.Threading.CompactByDefault
	if v := r.URL.Query().Get("compact"); v != "" {
		compact = v == "true" || v == "1"
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "imap" {
		s.respondError(w, http.StatusBadRequest, "unknown response format")
		return
	}

	// The rendered body depends on the format, so it is part of the
	// cache variant alongside the algorithm.
	variant := algorithm + ":" + format

	var modseq uint64
	if s.cache != nil {
		var err error
		modseq, err = s.source.GetFolderModSeq(ctx, folderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "folder not found")
				return
			}
			s.logger.Error("Failed to load folder modseq", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "threading failed")
			return
		}

		if body, err := s.cache.Get(ctx, folderID, variant, compact, modseq); err == nil {
			cacheHitsTotal.Inc()
			threadRequestsTotal.WithLabelValues(algorithm, "ok").Inc()
			s.respond(w, format, body)
			return
		}
		cacheMissesTotal.Inc()
	}

	envs, err := s.source.GetFolderEnvelopes(ctx, folderID, s.config.Threading.MaxMessages)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "folder not found")
			return
		}
		s.logger.Error("Failed to load folder envelopes",
			zap.String("folder_id", folderID),
			zap.Error(err))
		threadRequestsTotal.WithLabelValues(algorithm, "error").Inc()
		s.respondError(w, http.StatusInternalServerError, "threading failed")
		return
	}

	start := time.Now()
	var forest []*ThreadNode
	switch algorithm {
	case AlgorithmOrderedSubject:
		forest = orderedSubjectForest(envs, subject.StripReplyPrefix)
	default:
		msgs := make([]*thread.MessageInfo[uint32], 0, len(envs))
		for _, e := range envs {
			msgs = append(msgs, e.ThreadInfo())
		}
		root := s.threader.Thread(msgs, compact)
		forest = buildForest(root)
	}
	threadBuildDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
	messagesThreaded.Add(float64(len(envs)))

	var body []byte
	if format == "imap" {
		body = []byte(formatThreadResponse(forest))
	} else {
		body, err = json.Marshal(threadsResponse{
			FolderID:  folderID,
			Algorithm: algorithm,
			Compact:   compact,
			Threads:   forest,
		})
		if err != nil {
			s.logger.Error("Failed to encode thread forest", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "threading failed")
			return
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, folderID, variant, compact, modseq, body)
	}

	threadRequestsTotal.WithLabelValues(algorithm, "ok").Inc()
	s.respond(w, format, body)
}

func (s *Server) respond(w http.ResponseWriter, format string, body []byte) {
	if format == "imap" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
