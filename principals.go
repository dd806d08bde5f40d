package idlink

import "time"

// Role of a principal. The engine only cares about admins, who are exempt from
// the unlink anti-lockout check.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the engine's view of an account owner. Accounts are owned and
// created elsewhere; this core reads them, and updates only their email
// verification state.
type Principal struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"` // empty for provider-only accounts
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	Role            Role       `json:"role"`
}

// Verified reports whether the principal's email has been confirmed
func (p *Principal) Verified() bool {
	return p.EmailVerifiedAt != nil
}

// PrincipalStore is the read/update surface the protocols need over accounts
type PrincipalStore interface {
	// GetPrincipal retrieves a principal by id. Returns ErrPrincipalNotFound
	// if absent.
	GetPrincipal(principalID string) (*Principal, error)

	// GetPrincipalByEmail retrieves a principal by normalized email.
	// Returns ErrPrincipalNotFound if absent.
	GetPrincipalByEmail(email string) (*Principal, error)

	// MarkEmailVerified stamps the principal's email as verified. The
	// verification protocol itself never calls this - it only proves the
	// code; flagging is the caller's step.
	MarkEmailVerified(principalID string, when time.Time) error
}
