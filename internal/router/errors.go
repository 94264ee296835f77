package router

import "modelvault/pkg/types"

// configurationError signals a role with no bound model name. The HTTP layer
// maps it to a client-visible 4xx; it is never downgraded to another role.
type configurationError struct{ role types.Role }

func (e configurationError) Error() string {
	return "no model configured for role: " + string(e.role)
}

// ErrRoleNotBound constructs a configuration error for role.
func ErrRoleNotBound(role types.Role) error { return configurationError{role: role} }

// IsConfigurationError reports whether err indicates an unbound role.
func IsConfigurationError(err error) bool {
	_, ok := err.(configurationError)
	return ok
}
