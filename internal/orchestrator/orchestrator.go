// Package orchestrator drives one generation request from receipt to
// completion or failure, coordinating the classifier, router, and backend
// client, and forwarding chunks to the caller's sink unmodified.
package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"modelvault/internal/backend"
	"modelvault/internal/classify"
	"modelvault/internal/router"
	"modelvault/internal/telemetry"
	"modelvault/pkg/types"
)

// Backend abstracts the inference backend client.
type Backend interface {
	Generate(ctx context.Context, model string, req types.GenerateRequest, onChunk func(types.GenerationChunk) error) error
}

// Orchestrator builds one pipeline per process; each Generate call runs an
// independent request, so the only shared mutable state is the telemetry
// counters.
type Orchestrator struct {
	classifier *classify.Classifier
	router     *router.Router
	backend    Backend
	state      *telemetry.State
	log        zerolog.Logger
}

// New wires the generation pipeline.
func New(c *classify.Classifier, r *router.Router, b Backend, state *telemetry.State, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{classifier: c, router: r, backend: b, state: state, log: log}
}

// Generate runs one request. Chunks are forwarded to sink (when non-nil) in
// the order received; the aggregated result is returned either way. Errors
// from the router and backend propagate unmodified; there is no fallback to
// a different role. The active-request counter is incremented on receipt and
// decremented on every terminal transition, including failures.
func (o *Orchestrator) Generate(ctx context.Context, req types.GenerateRequest, sink func(types.GenerationChunk) error) (types.GenerateResult, error) {
	if req.Empty() {
		return types.GenerateResult{}, invalidRequestError{}
	}

	o.state.RequestStarted()
	defer o.state.RequestFinished()

	id := uuid.NewString()
	log := o.log.With().Str("request_id", id).Logger()
	log.Debug().Str("stage", string(stageReceived)).Bool("stream", req.Stream).Msg("request received")

	role := o.classifier.Classify(req)
	log.Debug().Str("stage", string(stageClassified)).Str("role", string(role)).Msg("request classified")

	dec, err := o.router.Route(role)
	if err != nil {
		// Short-circuit: the backend is never invoked for an unbound role.
		o.fail(log, role, "", 0, err)
		return types.GenerateResult{}, err
	}
	log.Debug().Str("stage", string(stageRouted)).Str("model", dec.ModelName).Msg("request routed")

	delivered := 0
	var full []byte
	onChunk := func(ch types.GenerationChunk) error {
		if sink != nil {
			if err := sink(ch); err != nil {
				return err
			}
		}
		delivered++
		full = append(full, ch.Text...)
		chunksTotal.Inc()
		return nil
	}

	log.Debug().Str("stage", string(stageDispatched)).Msg("dispatching to backend")
	if err := o.backend.Generate(ctx, dec.ModelName, req, onChunk); err != nil {
		o.fail(log, role, dec.ModelName, delivered, err)
		return types.GenerateResult{}, err
	}

	generateTotal.WithLabelValues(string(role), outcomeOK).Inc()
	log.Info().Str("stage", string(stageCompleted)).Str("role", string(role)).
		Str("model", dec.ModelName).Int("chunks", delivered).Msg("generation completed")
	return types.GenerateResult{
		Role:     role,
		Model:    dec.ModelName,
		Response: string(full),
		Chunks:   delivered,
		Done:     true,
	}, nil
}

// fail records the terminal failure with enough context to diagnose without
// replaying the request.
func (o *Orchestrator) fail(log zerolog.Logger, role types.Role, model string, delivered int, err error) {
	o.state.RecordError(err)
	generateTotal.WithLabelValues(string(role), outcomeFor(err)).Inc()
	log.Error().Str("stage", string(stageFailed)).Str("role", string(role)).
		Str("model", model).Int("chunks_delivered", delivered).Err(err).
		Msg("generation failed")
}

func outcomeFor(err error) string {
	switch {
	case router.IsConfigurationError(err):
		return "config_error"
	case backend.IsUnavailable(err):
		return "backend_unavailable"
	case backend.IsTimeout(err):
		return "backend_timeout"
	default:
		if _, ok := AsStreamInterrupted(err); ok {
			return "stream_interrupted"
		}
		return "error"
	}
}

// AsStreamInterrupted unwraps err as a stream interruption, if it is one.
func AsStreamInterrupted(err error) (*backend.StreamInterruptedError, bool) {
	var si *backend.StreamInterruptedError
	if errors.As(err, &si) {
		return si, true
	}
	return nil, false
}
