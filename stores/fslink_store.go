package stores

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	il "github.com/panyam/idlink"
)

// FSLinkStore is a file-backed LinkStore for development and tests.
// Credentials, identities and principals live as JSON files under
// StoragePath. A single mutex stands in for the transaction manager, so
// Atomically really is atomic with respect to every other call on the same
// store.
type FSLinkStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSLinkStore(storagePath string) *FSLinkStore {
	return &FSLinkStore{StoragePath: storagePath}
}

// Atomically runs fn while holding the store lock. The view passed to fn
// bypasses the lock so fn's own store calls do not deadlock.
func (s *FSLinkStore) Atomically(fn func(tx il.LinkStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&fsView{s})
}

// fsView is the unlocked store surface used inside Atomically
type fsView struct {
	s *FSLinkStore
}

// Nested Atomically calls are already inside the lock
func (v *fsView) Atomically(fn func(tx il.LinkStore) error) error {
	return fn(v)
}

// ----------------------------------------------------------------------------
// CredentialStore
// ----------------------------------------------------------------------------

func (s *FSLinkStore) credentialPath(kind il.CredentialKind, fingerprint string) string {
	return filepath.Join(s.StoragePath, "credentials", fmt.Sprintf("%s_%s.json", kind, safeName(fingerprint)))
}

func (s *FSLinkStore) CreateCredential(cred *il.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCredential(cred)
}

func (v *fsView) CreateCredential(cred *il.Credential) error { return v.s.createCredential(cred) }

func (s *FSLinkStore) createCredential(cred *il.Credential) error {
	return writeAtomicJSON(s.credentialPath(cred.Kind, cred.Fingerprint), cred)
}

func (s *FSLinkStore) GetCredential(kind il.CredentialKind, fingerprint string) (*il.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCredential(kind, fingerprint)
}

func (v *fsView) GetCredential(kind il.CredentialKind, fingerprint string) (*il.Credential, error) {
	return v.s.getCredential(kind, fingerprint)
}

func (s *FSLinkStore) getCredential(kind il.CredentialKind, fingerprint string) (*il.Credential, error) {
	var cred il.Credential
	if err := readJSON(s.credentialPath(kind, fingerprint), &cred); err != nil {
		if os.IsNotExist(err) {
			return nil, il.ErrCredentialNotFound
		}
		return nil, err
	}
	return &cred, nil
}

func (s *FSLinkStore) MarkCredentialUsed(kind il.CredentialKind, fingerprint string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markCredentialUsed(kind, fingerprint, when)
}

func (v *fsView) MarkCredentialUsed(kind il.CredentialKind, fingerprint string, when time.Time) error {
	return v.s.markCredentialUsed(kind, fingerprint, when)
}

func (s *FSLinkStore) markCredentialUsed(kind il.CredentialKind, fingerprint string, when time.Time) error {
	cred, err := s.getCredential(kind, fingerprint)
	if err != nil {
		return err
	}
	cred.UsedAt = &when
	return writeAtomicJSON(s.credentialPath(kind, fingerprint), cred)
}

func (s *FSLinkStore) PurgeExpiredCredentials(before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeExpiredCredentials(before)
}

func (v *fsView) PurgeExpiredCredentials(before time.Time) error {
	return v.s.purgeExpiredCredentials(before)
}

func (s *FSLinkStore) purgeExpiredCredentials(before time.Time) error {
	dir := filepath.Join(s.StoragePath, "credentials")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		var cred il.Credential
		if err := readJSON(path, &cred); err != nil {
			continue
		}
		if cred.ExpiresAt.Before(before) {
			_ = os.Remove(path)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// IdentityStore
// ----------------------------------------------------------------------------

func (s *FSLinkStore) identityPath(provider il.Provider, providerUserID string) string {
	return filepath.Join(s.StoragePath, "identities", fmt.Sprintf("%s_%s.json", provider, safeName(providerUserID)))
}

func (s *FSLinkStore) GetIdentity(provider il.Provider, providerUserID string) (*il.ProviderIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getIdentity(provider, providerUserID)
}

func (v *fsView) GetIdentity(provider il.Provider, providerUserID string) (*il.ProviderIdentity, error) {
	return v.s.getIdentity(provider, providerUserID)
}

func (s *FSLinkStore) getIdentity(provider il.Provider, providerUserID string) (*il.ProviderIdentity, error) {
	var ident il.ProviderIdentity
	if err := readJSON(s.identityPath(provider, providerUserID), &ident); err != nil {
		if os.IsNotExist(err) {
			return nil, il.ErrIdentityNotFound
		}
		return nil, err
	}
	return &ident, nil
}

func (s *FSLinkStore) GetPrincipalIdentities(principalID string) ([]*il.ProviderIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPrincipalIdentities(principalID)
}

func (v *fsView) GetPrincipalIdentities(principalID string) ([]*il.ProviderIdentity, error) {
	return v.s.getPrincipalIdentities(principalID)
}

func (s *FSLinkStore) getPrincipalIdentities(principalID string) ([]*il.ProviderIdentity, error) {
	dir := filepath.Join(s.StoragePath, "identities")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*il.ProviderIdentity
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var ident il.ProviderIdentity
		if err := readJSON(filepath.Join(dir, entry.Name()), &ident); err != nil {
			continue
		}
		if ident.PrincipalID == principalID {
			out = append(out, &ident)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkedAt.Before(out[j].LinkedAt) })
	return out, nil
}

func (s *FSLinkStore) CreateIdentity(identity *il.ProviderIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createIdentity(identity)
}

func (v *fsView) CreateIdentity(identity *il.ProviderIdentity) error {
	return v.s.createIdentity(identity)
}

func (s *FSLinkStore) createIdentity(identity *il.ProviderIdentity) error {
	path := s.identityPath(identity.Provider, identity.ProviderUserID)
	if _, err := os.Stat(path); err == nil {
		return il.ErrIdentityExists
	}
	return writeAtomicJSON(path, identity)
}

func (s *FSLinkStore) DeleteIdentity(principalID string, provider il.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteIdentity(principalID, provider)
}

func (v *fsView) DeleteIdentity(principalID string, provider il.Provider) error {
	return v.s.deleteIdentity(principalID, provider)
}

func (s *FSLinkStore) deleteIdentity(principalID string, provider il.Provider) error {
	idents, err := s.getPrincipalIdentities(principalID)
	if err != nil {
		return err
	}
	for _, ident := range idents {
		if ident.Provider == provider {
			return os.Remove(s.identityPath(ident.Provider, ident.ProviderUserID))
		}
	}
	return nil
}

func (s *FSLinkStore) TouchIdentityLogin(provider il.Provider, providerUserID string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchIdentityLogin(provider, providerUserID, when)
}

func (v *fsView) TouchIdentityLogin(provider il.Provider, providerUserID string, when time.Time) error {
	return v.s.touchIdentityLogin(provider, providerUserID, when)
}

func (s *FSLinkStore) touchIdentityLogin(provider il.Provider, providerUserID string, when time.Time) error {
	ident, err := s.getIdentity(provider, providerUserID)
	if err != nil {
		return err
	}
	ident.LastLoginAt = &when
	return writeAtomicJSON(s.identityPath(provider, providerUserID), ident)
}

// safeName makes an opaque external id usable as a filename
func safeName(v string) string {
	v = strings.ReplaceAll(v, "/", "_")
	v = strings.ReplaceAll(v, ":", "_")
	return v
}
