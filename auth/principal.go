// auth/principal.go
package auth

import "time"

// Principal is the verified identity derived from a credential. It is
// immutable once constructed and lives for the duration of one request.
type Principal struct {
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
