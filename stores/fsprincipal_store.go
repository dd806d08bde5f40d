package stores

import (
	"os"
	"path/filepath"
	"time"

	il "github.com/panyam/idlink"
)

// Principal persistence for FSLinkStore. Principals are owned by the
// application; SavePrincipal exists so apps (and tests) can seed them, while
// the LinkStore surface only reads them and flips the verified stamp.

func (s *FSLinkStore) principalPath(principalID string) string {
	return filepath.Join(s.StoragePath, "principals", safeName(principalID)+".json")
}

// SavePrincipal creates or replaces a principal record
func (s *FSLinkStore) SavePrincipal(p *il.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomicJSON(s.principalPath(p.ID), p)
}

func (s *FSLinkStore) GetPrincipal(principalID string) (*il.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPrincipal(principalID)
}

func (v *fsView) GetPrincipal(principalID string) (*il.Principal, error) {
	return v.s.getPrincipal(principalID)
}

func (s *FSLinkStore) getPrincipal(principalID string) (*il.Principal, error) {
	var p il.Principal
	if err := readJSON(s.principalPath(principalID), &p); err != nil {
		if os.IsNotExist(err) {
			return nil, il.ErrPrincipalNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *FSLinkStore) GetPrincipalByEmail(email string) (*il.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPrincipalByEmail(email)
}

func (v *fsView) GetPrincipalByEmail(email string) (*il.Principal, error) {
	return v.s.getPrincipalByEmail(email)
}

func (s *FSLinkStore) getPrincipalByEmail(email string) (*il.Principal, error) {
	email = il.NormalizeEmail(email)
	dir := filepath.Join(s.StoragePath, "principals")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, il.ErrPrincipalNotFound
		}
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var p il.Principal
		if err := readJSON(filepath.Join(dir, entry.Name()), &p); err != nil {
			continue
		}
		if il.NormalizeEmail(p.Email) == email {
			return &p, nil
		}
	}
	return nil, il.ErrPrincipalNotFound
}

func (s *FSLinkStore) MarkEmailVerified(principalID string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markEmailVerified(principalID, when)
}

func (v *fsView) MarkEmailVerified(principalID string, when time.Time) error {
	return v.s.markEmailVerified(principalID, when)
}

func (s *FSLinkStore) markEmailVerified(principalID string, when time.Time) error {
	p, err := s.getPrincipal(principalID)
	if err != nil {
		return err
	}
	p.EmailVerifiedAt = &when
	return writeAtomicJSON(s.principalPath(principalID), p)
}
