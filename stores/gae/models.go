//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
	il "github.com/panyam/idlink"
)

// Kind constants for Datastore entities
const (
	KindPrincipal     = "Principal"
	KindIdentity      = "ProviderIdentity"
	KindCredential    = "Credential"
	KindIdentityIndex = "PrincipalIdentityIndex"
)

// PrincipalEntity is the Datastore entity for principals
type PrincipalEntity struct {
	Key             *datastore.Key `datastore:"__key__"`
	Email           string         `datastore:"email"`
	EmailVerifiedAt *time.Time     `datastore:"email_verified_at"`
	Role            string         `datastore:"role"`
	CreatedAt       time.Time      `datastore:"created_at"`
	UpdatedAt       time.Time      `datastore:"updated_at"`
}

func (e *PrincipalEntity) ToPrincipal() *il.Principal {
	return &il.Principal{
		ID:              e.Key.Name,
		Email:           e.Email,
		EmailVerifiedAt: e.EmailVerifiedAt,
		Role:            il.Role(e.Role),
	}
}

// IdentityEntity is the Datastore entity for provider identities.
// Key format: Provider + ":" + ProviderUserID, so the pair is unique by key.
type IdentityEntity struct {
	Key            *datastore.Key `datastore:"__key__"`
	Provider       string         `datastore:"provider"`
	ProviderUserID string         `datastore:"provider_user_id"`
	PrincipalID    string         `datastore:"principal_id"`
	LinkedAt       time.Time      `datastore:"linked_at"`
	LastLoginAt    *time.Time     `datastore:"last_login_at"`
}

func (e *IdentityEntity) ToIdentity() *il.ProviderIdentity {
	return &il.ProviderIdentity{
		Provider:       il.Provider(e.Provider),
		ProviderUserID: e.ProviderUserID,
		PrincipalID:    e.PrincipalID,
		LinkedAt:       e.LinkedAt,
		LastLoginAt:    e.LastLoginAt,
	}
}

func IdentityToEntity(i *il.ProviderIdentity, key *datastore.Key) *IdentityEntity {
	return &IdentityEntity{
		Key:            key,
		Provider:       string(i.Provider),
		ProviderUserID: i.ProviderUserID,
		PrincipalID:    i.PrincipalID,
		LinkedAt:       i.LinkedAt,
		LastLoginAt:    i.LastLoginAt,
	}
}

// IdentityIndexEntity lists a principal's identity key names, keyed by the
// principal ID. It exists so "all identities of this principal" is a keyed
// read instead of a query: keyed reads work inside transactions, which the
// unlink anti-lockout check depends on. Maintained in the same transactions
// that create and delete identities.
type IdentityIndexEntity struct {
	Key  *datastore.Key `datastore:"__key__"`
	Refs []string       `datastore:"refs,noindex"`
}

// CredentialEntity is the Datastore entity for one-time credentials.
// Key format: Kind + ":" + Fingerprint.
type CredentialEntity struct {
	Key            *datastore.Key `datastore:"__key__"`
	CredKind       string         `datastore:"cred_kind"`
	Fingerprint    string         `datastore:"fingerprint"`
	PrincipalID    string         `datastore:"principal_id"`
	Provider       string         `datastore:"provider"`
	ProviderUserID string         `datastore:"provider_user_id"`
	CreatedAt      time.Time      `datastore:"created_at"`
	ExpiresAt      time.Time      `datastore:"expires_at"`
	UsedAt         *time.Time     `datastore:"used_at"`
}

func (e *CredentialEntity) ToCredential() *il.Credential {
	return &il.Credential{
		Kind:           il.CredentialKind(e.CredKind),
		Fingerprint:    e.Fingerprint,
		PrincipalID:    e.PrincipalID,
		Provider:       il.Provider(e.Provider),
		ProviderUserID: e.ProviderUserID,
		CreatedAt:      e.CreatedAt,
		ExpiresAt:      e.ExpiresAt,
		UsedAt:         e.UsedAt,
	}
}

func CredentialToEntity(c *il.Credential, key *datastore.Key) *CredentialEntity {
	return &CredentialEntity{
		Key:            key,
		CredKind:       string(c.Kind),
		Fingerprint:    c.Fingerprint,
		PrincipalID:    c.PrincipalID,
		Provider:       string(c.Provider),
		ProviderUserID: c.ProviderUserID,
		CreatedAt:      c.CreatedAt,
		ExpiresAt:      c.ExpiresAt,
		UsedAt:         c.UsedAt,
	}
}
