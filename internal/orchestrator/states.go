package orchestrator

// stage marks where a request is in its lifecycle. Streaming and completed
// collapse into the dispatched/completed pair here because chunk forwarding
// happens inside the backend call.
type stage string

const (
	stageReceived   stage = "received"
	stageClassified stage = "classified"
	stageRouted     stage = "routed"
	stageDispatched stage = "dispatched"
	stageCompleted  stage = "completed"
	stageFailed     stage = "failed"
)
