package types

// Role is the logical category of model a request is routed to.
type Role string

const (
	RoleGeneral Role = "general"
	RoleCoding  Role = "coding"
	RoleVision  Role = "vision"
)

// GenerationChunk is one incremental unit of generated output. Chunks for a
// single request carry strictly increasing indices starting at 0, and exactly
// one chunk has Done set; it is always the last one delivered.
type GenerationChunk struct {
	// Position of this chunk in the stream, starting at 0.
	// example: 3
	Index int `json:"index" example:"3"`
	// Generated text fragment. May be empty on the final chunk.
	Text string `json:"text"`
	// True only for the last chunk of the stream.
	// example: false
	Done bool `json:"done" example:"false"`
}
