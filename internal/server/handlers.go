package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subalign/internal/align"
	"subalign/internal/feedback"
	"subalign/internal/logging"
	"subalign/internal/services"
	"subalign/internal/subtitles"
)

type alignRequest struct {
	SourceSRT string `json:"source_srt"`
	TargetSRT string `json:"target_srt"`
}

type alignResponse struct {
	Success      bool               `json:"success"`
	Results      []align.PairRecord `json:"results"`
	Summary      align.Summary      `json:"summary"`
	TemporalOnly bool               `json:"temporal_only,omitempty"`
}

type learnRequest struct {
	SourceText string `json:"source_text"`
	TargetText string `json:"target_text"`
	WasCorrect *bool  `json:"was_correct"`
}

type generateRequest struct {
	AlignedPairs   []align.PairRecord `json:"aligned_pairs"`
	OmitMisaligned bool               `json:"omit_misaligned"`
}

type generateResponse struct {
	Success    bool   `json:"success"`
	SRTContent string `json:"srt_content"`
	Message    string `json:"message"`
	Blocks     int    `json:"blocks"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type learnResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// LearnedPairsCount is the number of entries accepted since start.
	LearnedPairsCount int `json:"learned_pairs_count"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "subalign",
		"version": s.info.Version,
		"features": []string{
			"semantic and temporal cue scoring",
			"order-preserving dynamic programming alignment",
			"confidence classification",
			"bilingual SRT generation",
			"reviewer feedback capture",
		},
		"endpoints": []string{"GET /health", "POST /api/align", "POST /api/learn", "POST /api/generate-srt"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":             "ok",
		"embedding_provider": s.info.EmbeddingProvider,
		"feedback_backend":   s.info.FeedbackBackend,
		"temporal_fallback":  s.info.TemporalFallback,
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignRequest
	if !s.decode(w, r, &req) {
		return
	}
	source := subtitles.ParseSRT([]byte(req.SourceSRT))
	target := subtitles.ParseSRT([]byte(req.TargetSRT))
	if len(source) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "source_srt contains no valid cues")
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.RequestTimeoutSeconds)*time.Second)
		defer cancel()
	}

	result, err := s.aligner.Align(ctx, source, target)
	if err != nil {
		status := services.HTTPStatus(err)
		logging.WithContext(r.Context(), s.logger).Warn("alignment request failed",
			logging.String(logging.FieldEventType, "align_failed"),
			logging.Int("status", status),
			logging.Error(err),
		)
		s.writeError(w, r, status, err.Error())
		return
	}
	s.writeJSON(w, r, http.StatusOK, alignResponse{
		Success:      true,
		Results:      align.Records(result.Pairs),
		Summary:      result.Summary,
		TemporalOnly: result.TemporalOnly,
	})
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "feedback is disabled")
		return
	}
	var req learnRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.WasCorrect == nil {
		s.writeError(w, r, http.StatusBadRequest, "was_correct is required")
		return
	}
	requestID, _ := services.RequestIDFromContext(r.Context())
	entry, err := feedback.Prepare(feedback.Entry{
		SourceText: req.SourceText,
		TargetText: req.TargetText,
		WasCorrect: *req.WasCorrect,
		RequestID:  requestID,
	})
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !s.feedback.Submit(entry) {
		s.writeError(w, r, http.StatusServiceUnavailable, "feedback queue is full; try again later")
		return
	}
	s.writeJSON(w, r, http.StatusAccepted, learnResponse{
		Success:           true,
		Message:           "feedback recorded",
		LearnedPairsCount: s.feedback.Stats().Accepted,
	})
}

func (s *Server) handleGenerateSRT(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.AlignedPairs) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "aligned_pairs is empty")
		return
	}
	pairs, err := align.PairsFromRecords(req.AlignedPairs)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var sb strings.Builder
	n, err := align.RenderMerged(&sb, pairs, align.RenderOptions{OmitMisaligned: req.OmitMisaligned})
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if n == 0 {
		s.writeError(w, r, http.StatusBadRequest, "no aligned pairs to generate SRT")
		return
	}
	s.writeJSON(w, r, http.StatusOK, generateResponse{
		Success:    true,
		SRTContent: sb.String(),
		Message:    fmt.Sprintf("generated %d subtitle blocks", n),
		Blocks:     n,
	})
}

// decode reads a size-limited JSON body into dst, writing the error
// response itself when it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			s.writeError(w, r, http.StatusBadRequest, "request body is empty")
		default:
			s.writeError(w, r, http.StatusBadRequest, "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.WithContext(r.Context(), s.logger).Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, messageResponse{Success: false, Error: message})
}
