package idlink

import "time"

// CredentialKind tags the three one-time credential families. They share one
// shape - hashed, expiring, single-use - so they share one entity and one
// store keyed by (kind, fingerprint) instead of three parallel tables.
type CredentialKind string

const (
	// CredentialLinkRequest is issued by a principal who wants to attach a
	// provider. Carries PrincipalID and the target Provider.
	CredentialLinkRequest CredentialKind = "link_request"

	// CredentialProviderLink is minted by the provider-side handshake once a
	// human has authenticated with the provider. Carries Provider and
	// ProviderUserID; the principal is unknown until ConfirmLink.
	CredentialProviderLink CredentialKind = "provider_link"

	// CredentialEmailConfirm is a short human-typable code proving control
	// of an email address. Carries PrincipalID.
	CredentialEmailConfirm CredentialKind = "email_confirm"
)

// Default credential lifetimes
const (
	LinkTokenTTL        = 10 * time.Minute
	ProviderLinkTTL     = 10 * time.Minute
	VerificationCodeTTL = 15 * time.Minute
)

// Credential is a stored one-time credential. Only the fingerprint of the
// cleartext token/code is persisted; the cleartext exists in memory at
// issuance and is never recoverable from the store.
type Credential struct {
	Kind           CredentialKind `json:"kind"`
	Fingerprint    string         `json:"fingerprint"`
	PrincipalID    string         `json:"principal_id,omitempty"`
	Provider       Provider       `json:"provider,omitempty"`
	ProviderUserID string         `json:"provider_user_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	UsedAt         *time.Time     `json:"used_at,omitempty"`
}

// Expired reports whether the credential's TTL has passed at the given instant
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Used reports whether the credential has been consumed
func (c *Credential) Used() bool {
	return c.UsedAt != nil
}

// CredentialStore persists one-time credentials keyed by (kind, fingerprint)
type CredentialStore interface {
	// CreateCredential persists a new credential row
	CreateCredential(cred *Credential) error

	// GetCredential looks a credential up by kind and fingerprint. Returns
	// ErrCredentialNotFound if absent. Expired credentials are still
	// returned - distinguishing "expired" from "never existed" is the
	// protocol's job.
	GetCredential(kind CredentialKind, fingerprint string) (*Credential, error)

	// MarkCredentialUsed stamps the credential as consumed
	MarkCredentialUsed(kind CredentialKind, fingerprint string, when time.Time) error

	// PurgeExpiredCredentials removes credentials that expired before the
	// cutoff (for maintenance)
	PurgeExpiredCredentials(before time.Time) error
}

// LinkStore combines the store surfaces the protocols operate on, plus the
// one transactional primitive they need.
type LinkStore interface {
	CredentialStore
	IdentityStore
	PrincipalStore

	// Atomically runs fn against a store view whose reads and writes commit
	// or roll back as one unit. ConfirmLink and Unlink run their entire
	// read-check-write sequence inside this so concurrent calls cannot both
	// pass their preconditions; the identity uniqueness constraint backstops
	// weaker isolation levels.
	Atomically(fn func(tx LinkStore) error) error
}
