// Package auth registers accounts and issues opaque session tokens
package auth

import "fmt"

// Role is the closed set of account roles
type Role string

const (
	RoleFarmer     Role = "farmer"
	RoleAgronomist Role = "agronomist"
	RoleResearcher Role = "researcher"
)

// ParseRole rejects anything outside the known roles
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, err := r.RouteGroup(); err != nil {
		return "", err
	}
	return r, nil
}

// RouteGroup names the API route group a role may call beyond the shared
// authenticated routes
func (r Role) RouteGroup() (string, error) {
	switch r {
	case RoleFarmer:
		return "farmer", nil
	case RoleAgronomist:
		return "agronomist", nil
	case RoleResearcher:
		return "researcher", nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, string(r))
	}
}

// Allows reports whether the role may call the given route group
func (r Role) Allows(group string) bool {
	own, err := r.RouteGroup()
	return err == nil && own == group
}
