package telemetry

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"modelvault/pkg/types"
)

const gpuQueryTimeout = 3 * time.Second

// probeGPU reports whether nvidia-smi is present and answers a query. Called
// once per process via the Sampler capability cache.
func probeGPU() bool {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), gpuQueryTimeout)
	defer cancel()
	_, err := queryGPU(ctx)
	return err == nil
}

// readGPU returns current GPU utilization and memory counters.
func readGPU(ctx context.Context) (*types.GPUStats, error) {
	ctx, cancel := context.WithTimeout(ctx, gpuQueryTimeout)
	defer cancel()
	return queryGPU(ctx)
}

func queryGPU(ctx context.Context) (*types.GPUStats, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu,memory.total,memory.used",
		"--format=csv,nounits,noheader",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	// First line only; multi-GPU hosts report the primary device.
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return nil, fmt.Errorf("unexpected nvidia-smi output: %q", line)
	}
	util, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing gpu utilization: %w", err)
	}
	total, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, fmt.Errorf("parsing gpu memory total: %w", err)
	}
	used, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, fmt.Errorf("parsing gpu memory used: %w", err)
	}
	return &types.GPUStats{UtilPercent: util, MemTotalMB: total, MemUsedMB: used}, nil
}
