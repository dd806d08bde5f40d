package idlink

import "time"

// ProviderIdentity attaches one (provider, providerUserId) pair to exactly one
// principal. The pair is globally unique: the store's uniqueness constraint is
// the backstop, and ConfirmLink re-validates inside its transaction.
type ProviderIdentity struct {
	Provider       Provider   `json:"provider"`
	ProviderUserID string     `json:"provider_user_id"`
	PrincipalID    string     `json:"principal_id"`
	LinkedAt       time.Time  `json:"linked_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// IdentityStore maps (provider, providerUserId) pairs to principals
type IdentityStore interface {
	// GetIdentity looks up the identity for a (provider, providerUserId)
	// pair. Returns ErrIdentityNotFound if no principal holds it.
	GetIdentity(provider Provider, providerUserID string) (*ProviderIdentity, error)

	// GetPrincipalIdentities returns all identities attached to a principal,
	// ordered by LinkedAt ascending.
	GetPrincipalIdentities(principalID string) ([]*ProviderIdentity, error)

	// CreateIdentity attaches the pair to a principal. Returns
	// ErrIdentityExists if any principal already holds the pair.
	CreateIdentity(identity *ProviderIdentity) error

	// DeleteIdentity detaches a provider from a principal. Deleting an
	// identity that does not exist is not an error.
	DeleteIdentity(principalID string, provider Provider) error

	// TouchIdentityLogin updates LastLoginAt for the pair
	TouchIdentityLogin(provider Provider, providerUserID string, when time.Time) error
}
