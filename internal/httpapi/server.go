package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelvault/internal/backend"
	"modelvault/internal/orchestrator"
	"modelvault/internal/router"
	"modelvault/pkg/types"
)

// Service defines the generation entry point required by the HTTP layer.
type Service interface {
	Generate(ctx context.Context, req types.GenerateRequest, sink func(types.GenerationChunk) error) (types.GenerateResult, error)
}

// Telemetry serves the health and status views.
type Telemetry interface {
	Snapshot(ctx context.Context) types.MetricsSnapshot
	Health(ctx context.Context) types.HealthStatus
}

// ModelSource lists backend models and answers readiness probes.
type ModelSource interface {
	ListModels(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) bool
}

// NewMux builds the router with all endpoints and middleware.
func NewMux(svc Service, tel Telemetry, models ModelSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Log-Level"},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/generate", handleGenerate(svc))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tel.Health(r.Context())); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tel.Snapshot(r.Context())); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		names, err := models.ListModels(r.Context())
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: names}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if models.Ping(r.Context()) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("backend unreachable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleGenerate negotiates streaming by the request's stream flag: NDJSON
// chunk lines when set, a single JSON result otherwise.
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		rid := middleware.GetReqID(r.Context())
		if lvl >= LevelInfo && zlog != nil {
			zlog.Info().Str("path", r.URL.Path).Bool("stream", req.Stream).
				Str("request_id", rid).Msg("generate start")
		}

		// Join server base context with request context so shutdown cancels
		// in-flight backend calls as well as client disconnects.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		if req.Stream {
			streamGenerate(ctx, w, r, svc, req, lvl, start, rid)
			return
		}

		result, err := svc.Generate(ctx, req, nil)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeJSONError(w, statusForError(err), err.Error())
			logGenerateEnd(lvl, rid, statusForError(err), start, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		logGenerateEnd(lvl, rid, http.StatusOK, start, nil)
	}
}

// streamGenerate writes chunk lines as they arrive. Once a chunk has been
// flushed the status line is fixed, so a mid-stream failure is reported as a
// terminal NDJSON error line carrying the delivered count; already-sent
// chunks are not retracted.
func streamGenerate(ctx context.Context, w http.ResponseWriter, r *http.Request, svc Service, req types.GenerateRequest, lvl LogLevel, start time.Time, rid string) {
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	wroteAny := false
	enc := json.NewEncoder(w)
	sink := func(ch types.GenerationChunk) error {
		if !wroteAny {
			w.Header().Set("Content-Type", "application/x-ndjson")
			wroteAny = true
		}
		if err := enc.Encode(ch); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
		return nil
	}

	_, err := svc.Generate(ctx, req, sink)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusForError(err)
		if !wroteAny {
			writeJSONError(w, status, err.Error())
			logGenerateEnd(lvl, rid, status, start, err)
			return
		}
		trailer := types.ErrorResponse{Error: err.Error(), Code: status}
		if si, ok := orchestrator.AsStreamInterrupted(err); ok {
			trailer.ChunksDelivered = si.Delivered
		}
		_ = enc.Encode(trailer)
		if flush != nil {
			flush()
		}
		logGenerateEnd(lvl, rid, status, start, err)
		return
	}
	logGenerateEnd(lvl, rid, http.StatusOK, start, nil)
}

func logGenerateEnd(lvl LogLevel, rid string, status int, start time.Time, err error) {
	if lvl < LevelInfo || zlog == nil {
		return
	}
	e := zlog.Info().Int("status", status).Dur("dur", time.Since(start)).Str("request_id", rid)
	if err != nil {
		e = e.Err(err)
	}
	e.Msg("generate end")
}

// statusForError maps the error taxonomy to distinguishable status codes:
// bad request and misconfiguration stay 4xx, backend reachability and
// deadline failures map to 503/504.
func statusForError(err error) int {
	switch {
	case orchestrator.IsInvalidRequest(err):
		return http.StatusBadRequest
	case router.IsConfigurationError(err):
		return http.StatusNotFound
	case backend.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case backend.IsTimeout(err):
		return http.StatusGatewayTimeout
	case backend.IsRemote(err):
		return http.StatusBadGateway
	}
	if _, ok := orchestrator.AsStreamInterrupted(err); ok {
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
