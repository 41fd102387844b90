package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"pricelens/internal/llm"
	"pricelens/internal/observability"
	"pricelens/internal/predict"
	"pricelens/internal/storage"
)

// maxBodyBytes bounds the request body read. The specs field is capped at
// 2000 characters, so anything near this limit is garbage anyway.
const maxBodyBytes = 64 * 1024

const genericErrorMessage = "Something went wrong. Please try again."

// Server wires the prediction service into an HTTP surface.
type Server struct {
	service *predict.Service
	store   storage.Store // nil disables /api/history content
	mux     *http.ServeMux
}

func New(service *predict.Service, store storage.Store) *Server {
	s := &Server{service: service, store: store, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/predict", s.handlePredict)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", observability.Handler())
	return s
}

// Handler returns the full middleware chain: panic recovery outermost, then
// CORS, then routing.
func (s *Server) Handler() http.Handler {
	return recoverMiddleware(corsMiddleware(s.mux))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST requests are supported")
		return
	}

	start := time.Now()
	defer func() {
		observability.RequestDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Failed to read request body")
		return
	}

	specs, err := predict.ParseRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	result, err := s.service.Predict(r.Context(), specs)
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET requests are supported")
		return
	}

	type historyEntry struct {
		Specs             string    `json:"specs"`
		Product           string    `json:"product"`
		PredictedPriceINR float64   `json:"predicted_price_inr"`
		Source            string    `json:"source"`
		CreatedAt         time.Time `json:"created_at"`
	}

	entries := []historyEntry{}
	if s.store != nil {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		records, err := s.store.RecentPredictions(limit)
		if err != nil {
			log.Error().Err(err).Msg("failed to load prediction history")
			writeError(w, http.StatusInternalServerError, "INTERNAL", genericErrorMessage)
			return
		}
		for _, rec := range records {
			entries = append(entries, historyEntry{
				Specs:             rec.Specs,
				Product:           rec.Product,
				PredictedPriceINR: rec.PredictedPriceINR,
				Source:            rec.Source,
				CreatedAt:         rec.CreatedAt,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"predictions": entries})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeUpstreamError maps an upstream call failure to a response. Note that
// malformed upstream output never reaches this path: the normalizer absorbs
// it into a fallback result.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	var upstreamErr *llm.Error
	if !errors.As(err, &upstreamErr) {
		log.Error().Err(err).Msg("unexpected prediction error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", genericErrorMessage)
		return
	}

	observability.UpstreamErrorsTotal.WithLabelValues(upstreamErr.Code()).Inc()
	log.Error().
		Str("kind", string(upstreamErr.Kind)).
		Int("upstreamStatus", upstreamErr.Status).
		Str("detail", upstreamErr.Message).
		Msg("upstream call failed")

	writeError(w, statusForKind(upstreamErr.Kind), upstreamErr.Code(), messageForKind(upstreamErr.Kind))
}

func statusForKind(kind llm.Kind) int {
	switch kind {
	case llm.KindConfiguration:
		return http.StatusInternalServerError
	case llm.KindTimeout:
		return http.StatusGatewayTimeout
	case llm.KindRateLimited:
		return http.StatusTooManyRequests
	case llm.KindAccessDenied:
		return http.StatusForbidden
	case llm.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// messageForKind returns the user-facing message for an upstream failure.
// Internal details stay in the logs.
func messageForKind(kind llm.Kind) string {
	switch kind {
	case llm.KindConfiguration:
		return "The server is not configured correctly. Please contact the administrator."
	case llm.KindTimeout:
		return "The AI service took too long to respond. Please try again."
	case llm.KindRateLimited:
		return "The AI service is receiving too many requests right now. Please try again in a moment."
	case llm.KindAccessDenied:
		return "Access to the AI service was denied. The API key may be invalid or restricted."
	case llm.KindBadRequest:
		return "The AI service rejected the request."
	default:
		return "The AI service is temporarily unavailable. Please try again."
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// corsMiddleware adds permissive CORS headers to every response and answers
// preflight requests without touching the body.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware converts panics into a generic 500. Stack traces are
// logged, never returned to the caller.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("panic in request handler")
				writeError(w, http.StatusInternalServerError, "INTERNAL", genericErrorMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
