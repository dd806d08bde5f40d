package gorm

import (
	"time"

	il "github.com/panyam/idlink"
)

// PrincipalModel is the GORM model for principals
type PrincipalModel struct {
	ID              string  `gorm:"primaryKey;size:64"`
	Email           *string `gorm:"size:255;uniqueIndex"`
	EmailVerifiedAt *time.Time
	Role            string    `gorm:"size:32;default:user"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (PrincipalModel) TableName() string {
	return "principals"
}

func (m *PrincipalModel) ToPrincipal() *il.Principal {
	email := ""
	if m.Email != nil {
		email = *m.Email
	}
	return &il.Principal{
		ID:              m.ID,
		Email:           email,
		EmailVerifiedAt: m.EmailVerifiedAt,
		Role:            il.Role(m.Role),
	}
}

func PrincipalToModel(p *il.Principal) *PrincipalModel {
	m := &PrincipalModel{
		ID:              p.ID,
		EmailVerifiedAt: p.EmailVerifiedAt,
		Role:            string(p.Role),
	}
	if p.Email != "" {
		// Stored normalized so lookups by email need no collation tricks
		email := il.NormalizeEmail(p.Email)
		m.Email = &email
	}
	return m
}

// ProviderIdentityModel is the GORM model for provider identities. The
// composite unique index is the uniqueness backstop: even below serializable
// isolation, two racing attaches cannot both insert the same pair.
type ProviderIdentityModel struct {
	ID             string     `gorm:"primaryKey;size:36"`
	Provider       string     `gorm:"size:32;uniqueIndex:idx_identity_provider_uid"`
	ProviderUserID string     `gorm:"size:255;uniqueIndex:idx_identity_provider_uid"`
	PrincipalID    string     `gorm:"size:64;index"`
	LinkedAt       time.Time  `gorm:"index"`
	LastLoginAt    *time.Time ``
}

func (ProviderIdentityModel) TableName() string {
	return "provider_identities"
}

func (m *ProviderIdentityModel) ToIdentity() *il.ProviderIdentity {
	return &il.ProviderIdentity{
		Provider:       il.Provider(m.Provider),
		ProviderUserID: m.ProviderUserID,
		PrincipalID:    m.PrincipalID,
		LinkedAt:       m.LinkedAt,
		LastLoginAt:    m.LastLoginAt,
	}
}

// CredentialModel is the GORM model for one-time credentials, keyed by
// (kind, fingerprint)
type CredentialModel struct {
	Kind           string    `gorm:"primaryKey;size:32"`
	Fingerprint    string    `gorm:"primaryKey;size:128"`
	PrincipalID    string    `gorm:"size:64;index"`
	Provider       string    `gorm:"size:32"`
	ProviderUserID string    `gorm:"size:255"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	ExpiresAt      time.Time `gorm:"index"`
	UsedAt         *time.Time
}

func (CredentialModel) TableName() string {
	return "credentials"
}

func (m *CredentialModel) ToCredential() *il.Credential {
	return &il.Credential{
		Kind:           il.CredentialKind(m.Kind),
		Fingerprint:    m.Fingerprint,
		PrincipalID:    m.PrincipalID,
		Provider:       il.Provider(m.Provider),
		ProviderUserID: m.ProviderUserID,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
		UsedAt:         m.UsedAt,
	}
}

func CredentialToModel(c *il.Credential) *CredentialModel {
	return &CredentialModel{
		Kind:           string(c.Kind),
		Fingerprint:    c.Fingerprint,
		PrincipalID:    c.PrincipalID,
		Provider:       string(c.Provider),
		ProviderUserID: c.ProviderUserID,
		CreatedAt:      c.CreatedAt,
		ExpiresAt:      c.ExpiresAt,
		UsedAt:         c.UsedAt,
	}
}
