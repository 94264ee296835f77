package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"modelvault/pkg/types"
)

// Sampler reads instantaneous host and device counters on demand. GPU
// capability detection runs once per process; absence of a GPU is a normal
// state, not an error.
type Sampler struct {
	gpuEnabled bool
	gpuOnce    sync.Once
	gpuOK      bool
	log        zerolog.Logger
}

// NewSampler builds a Sampler. gpuEnabled gates nvidia-smi probing entirely.
func NewSampler(gpuEnabled bool, log zerolog.Logger) *Sampler {
	return &Sampler{gpuEnabled: gpuEnabled, log: log}
}

// Snapshot samples CPU, RAM, and (when available) GPU counters. CPU uses a
// non-blocking since-last-call delta, so the first reading may be zero. A
// CPU or RAM sampling failure is returned alongside whatever was read; GPU
// absence or failure is a normal state and never an error.
func (s *Sampler) Snapshot(ctx context.Context) (types.MetricsSnapshot, error) {
	snap := types.MetricsSnapshot{TimestampUnix: time.Now().Unix()}
	var sampleErr error

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		snap.CPUPercent = pcts[0]
	} else if err != nil {
		s.log.Debug().Err(err).Msg("cpu sample failed")
		sampleErr = fmt.Errorf("cpu sample: %w", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.RAMUsedBytes = vm.Used
		snap.RAMTotalBytes = vm.Total
	} else {
		s.log.Debug().Err(err).Msg("memory sample failed")
		if sampleErr == nil {
			sampleErr = fmt.Errorf("memory sample: %w", err)
		}
	}
	if s.gpuAvailable() {
		if gpu, err := readGPU(ctx); err == nil {
			snap.GPU = gpu
		} else {
			s.log.Debug().Err(err).Msg("gpu sample failed")
		}
	}
	return snap, sampleErr
}

// gpuAvailable resolves GPU monitoring capability, probing at most once for
// the process lifetime.
func (s *Sampler) gpuAvailable() bool {
	if !s.gpuEnabled {
		return false
	}
	s.gpuOnce.Do(func() {
		s.gpuOK = probeGPU()
		if s.gpuOK {
			s.log.Info().Msg("gpu monitoring available via nvidia-smi")
		} else {
			s.log.Info().Msg("gpu monitoring unavailable, omitting gpu from snapshots")
		}
	})
	return s.gpuOK
}
