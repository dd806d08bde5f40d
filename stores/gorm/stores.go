package gorm

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	il "github.com/panyam/idlink"
)

// AutoMigrate runs database migrations for all idlink tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PrincipalModel{},
		&ProviderIdentityModel{},
		&CredentialModel{},
	)
}

// LinkStore implements il.LinkStore using GORM
type LinkStore struct {
	db *gorm.DB
}

// NewLinkStore creates a GORM-backed LinkStore. Open the db with
// TranslateError enabled so duplicate inserts surface as
// gorm.ErrDuplicatedKey, which CreateIdentity relies on.
func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

// Atomically runs fn inside a database transaction. Every store call fn makes
// goes through the transaction handle, so the whole read-check-write sequence
// commits or rolls back as one.
func (s *LinkStore) Atomically(fn func(tx il.LinkStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&LinkStore{db: tx})
	})
}

// =============================================================================
// CredentialStore
// =============================================================================

func (s *LinkStore) CreateCredential(cred *il.Credential) error {
	return s.db.Create(CredentialToModel(cred)).Error
}

func (s *LinkStore) GetCredential(kind il.CredentialKind, fingerprint string) (*il.Credential, error) {
	var model CredentialModel
	err := s.db.First(&model, "kind = ? AND fingerprint = ?", string(kind), fingerprint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, il.ErrCredentialNotFound
		}
		return nil, err
	}
	return model.ToCredential(), nil
}

func (s *LinkStore) MarkCredentialUsed(kind il.CredentialKind, fingerprint string, when time.Time) error {
	return s.db.Model(&CredentialModel{}).
		Where("kind = ? AND fingerprint = ?", string(kind), fingerprint).
		Update("used_at", when).Error
}

func (s *LinkStore) PurgeExpiredCredentials(before time.Time) error {
	return s.db.Delete(&CredentialModel{}, "expires_at < ?", before).Error
}

// =============================================================================
// IdentityStore
// =============================================================================

func (s *LinkStore) GetIdentity(provider il.Provider, providerUserID string) (*il.ProviderIdentity, error) {
	var model ProviderIdentityModel
	err := s.db.First(&model, "provider = ? AND provider_user_id = ?", string(provider), providerUserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, il.ErrIdentityNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

func (s *LinkStore) GetPrincipalIdentities(principalID string) ([]*il.ProviderIdentity, error) {
	var models []ProviderIdentityModel
	err := s.db.Where("principal_id = ?", principalID).
		Order("linked_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	identities := make([]*il.ProviderIdentity, len(models))
	for i, m := range models {
		identities[i] = m.ToIdentity()
	}
	return identities, nil
}

func (s *LinkStore) CreateIdentity(identity *il.ProviderIdentity) error {
	model := &ProviderIdentityModel{
		ID:             uuid.NewString(),
		Provider:       string(identity.Provider),
		ProviderUserID: identity.ProviderUserID,
		PrincipalID:    identity.PrincipalID,
		LinkedAt:       identity.LinkedAt,
		LastLoginAt:    identity.LastLoginAt,
	}
	if err := s.db.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return il.ErrIdentityExists
		}
		return err
	}
	return nil
}

func (s *LinkStore) DeleteIdentity(principalID string, provider il.Provider) error {
	return s.db.Delete(&ProviderIdentityModel{},
		"principal_id = ? AND provider = ?", principalID, string(provider)).Error
}

func (s *LinkStore) TouchIdentityLogin(provider il.Provider, providerUserID string, when time.Time) error {
	return s.db.Model(&ProviderIdentityModel{}).
		Where("provider = ? AND provider_user_id = ?", string(provider), providerUserID).
		Update("last_login_at", when).Error
}

// =============================================================================
// PrincipalStore
// =============================================================================

func (s *LinkStore) GetPrincipal(principalID string) (*il.Principal, error) {
	var model PrincipalModel
	if err := s.db.First(&model, "id = ?", principalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, il.ErrPrincipalNotFound
		}
		return nil, err
	}
	return model.ToPrincipal(), nil
}

func (s *LinkStore) GetPrincipalByEmail(email string) (*il.Principal, error) {
	var model PrincipalModel
	err := s.db.First(&model, "email = ?", il.NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, il.ErrPrincipalNotFound
		}
		return nil, err
	}
	return model.ToPrincipal(), nil
}

func (s *LinkStore) MarkEmailVerified(principalID string, when time.Time) error {
	return s.db.Model(&PrincipalModel{}).
		Where("id = ?", principalID).
		Update("email_verified_at", when).Error
}

// SavePrincipal creates or replaces a principal row. Principals are owned by
// the application; this is the seam it seeds them through.
func (s *LinkStore) SavePrincipal(p *il.Principal) error {
	return s.db.Save(PrincipalToModel(p)).Error
}
