// Package router resolves a classified role to the configured model name.
package router

import "modelvault/pkg/types"

// Bindings maps each role to a backend model name. An empty name leaves the
// role unbound.
type Bindings struct {
	General string
	Coding  string
	Vision  string
}

// Decision is the outcome of routing: the selected role and the model that
// will serve it.
type Decision struct {
	Role      types.Role
	ModelName string
}

// Router owns the role to model-name lookup. It has no side effects and
// never falls back to a different role.
type Router struct {
	bindings Bindings
}

// New builds a Router over the given bindings.
func New(b Bindings) *Router {
	return &Router{bindings: b}
}

// Route returns the Decision for role. It fails with a configuration error
// when the role has no bound model name.
func (r *Router) Route(role types.Role) (Decision, error) {
	var name string
	switch role {
	case types.RoleGeneral:
		name = r.bindings.General
	case types.RoleCoding:
		name = r.bindings.Coding
	case types.RoleVision:
		name = r.bindings.Vision
	default:
		return Decision{}, configurationError{role: role}
	}
	if name == "" {
		return Decision{}, configurationError{role: role}
	}
	return Decision{Role: role, ModelName: name}, nil
}
