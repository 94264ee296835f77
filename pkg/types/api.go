package types

// GenerateRequest represents a generation request payload.
type GenerateRequest struct {
	// Prompt text. May be empty when an image is supplied.
	// example: Tell me a joke
	Text string `json:"text,omitempty" example:"Tell me a joke"`
	// Optional image payload, base64 in JSON. Presence routes the request to
	// the vision model regardless of text content.
	Image []byte `json:"image_b64,omitempty" swaggertype:"string" format:"base64"`
	// If true, stream chunks as NDJSON lines. When false the response is a
	// single JSON result.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
}

// Empty reports whether the request carries neither text nor image.
func (r GenerateRequest) Empty() bool {
	return r.Text == "" && len(r.Image) == 0
}

// GenerateResult is the terminal outcome of a completed generation.
type GenerateResult struct {
	// Role the request was classified as.
	// example: general
	Role Role `json:"role" example:"general"`
	// Model name that served the request.
	// example: llama3.2:3b
	Model string `json:"model" example:"llama3.2:3b"`
	// Full generated text.
	Response string `json:"response"`
	// Number of chunks the backend delivered.
	// example: 12
	Chunks int `json:"chunks" example:"12"`
	// Always true on a completed result.
	Done bool `json:"done" example:"true"`
}

// ModelsResponse wraps the list of model names returned by GET /models.
type ModelsResponse struct {
	// Model names available on the inference backend.
	Models []string `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: text or image is required
	Error string `json:"error" example:"text or image is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Number of chunks already delivered before a mid-stream failure.
	// Present only on stream trailer errors.
	// example: 2
	ChunksDelivered int `json:"chunks_delivered,omitempty" example:"2"`
}

// GPUStats describes GPU utilization as reported by nvidia-smi.
type GPUStats struct {
	// GPU utilization percentage.
	// example: 37
	UtilPercent float64 `json:"util_percent" example:"37"`
	// GPU memory in use, MiB.
	// example: 2048
	MemUsedMB int `json:"mem_used_mb" example:"2048"`
	// Total GPU memory, MiB.
	// example: 8192
	MemTotalMB int `json:"mem_total_mb" example:"8192"`
}

// MetricsSnapshot is a point-in-time read of host/device resource counters,
// returned by GET /status. GPU is omitted when no monitoring capability is
// available; that is a normal state, not an error.
type MetricsSnapshot struct {
	// Sample time in unix seconds.
	// example: 1700000000
	TimestampUnix int64 `json:"timestamp_unix" example:"1700000000"`
	// Host CPU utilization percentage.
	// example: 12.5
	CPUPercent float64 `json:"cpu_percent" example:"12.5"`
	// RAM in use, bytes.
	RAMUsedBytes uint64 `json:"ram_used_bytes"`
	// Total RAM, bytes.
	RAMTotalBytes uint64 `json:"ram_total_bytes"`
	// GPU counters, absent without GPU monitoring capability.
	GPU *GPUStats `json:"gpu,omitempty"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	// Overall health indication.
	// example: ok
	Health string `json:"health" example:"ok"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Number of generation requests currently in flight.
	// example: 1
	ActiveRequests int64 `json:"active_requests" example:"1"`
	// Last generation error observed (if any).
	LastError string `json:"last_error,omitempty"`
	// Fresh resource snapshot.
	Snapshot MetricsSnapshot `json:"snapshot"`
}
