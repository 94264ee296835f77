package telemetry

import (
	"context"

	"modelvault/pkg/types"
)

// Health indications reported by Service.Health.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Snapshotter reads resource counters on demand.
type Snapshotter interface {
	Snapshot(ctx context.Context) (types.MetricsSnapshot, error)
}

// Service composes sampler output with orchestrator-visible counters into
// the health and status views. It is read-only and side-channel: polling it
// never affects in-flight generations.
type Service struct {
	state   *State
	sampler Snapshotter
}

// NewService builds the telemetry Service over shared state and a sampler.
func NewService(state *State, sampler Snapshotter) *Service {
	return &Service{state: state, sampler: sampler}
}

// Snapshot returns a fresh resource snapshot. Partially failed samples are
// served with zeroed fields; health reporting is where degradation surfaces.
func (t *Service) Snapshot(ctx context.Context) types.MetricsSnapshot {
	snap, _ := t.sampler.Snapshot(ctx)
	return snap
}

// Health composes the live active-request count and last error with a fresh
// snapshot. A sampling failure degrades the health indication instead of
// pretending the counters are live.
func (t *Service) Health(ctx context.Context) types.HealthStatus {
	snap, err := t.sampler.Snapshot(ctx)
	health := HealthOK
	if err != nil {
		health = HealthDegraded
	}
	return types.HealthStatus{
		Health:         health,
		UptimeSeconds:  int64(t.state.Uptime().Seconds()),
		ActiveRequests: t.state.ActiveRequests(),
		LastError:      t.state.LastError(),
		Snapshot:       snap,
	}
}
