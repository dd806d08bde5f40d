//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	il "github.com/panyam/idlink"
)

// LinkStore implements il.LinkStore using Google Cloud Datastore
type LinkStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
	tx        *datastore.Transaction // non-nil inside Atomically
}

// NewLinkStore creates a new Datastore-backed LinkStore
func NewLinkStore(client *datastore.Client, namespace string) *LinkStore {
	return &LinkStore{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *LinkStore) WithContext(ctx context.Context) *LinkStore {
	return &LinkStore{client: s.client, namespace: s.namespace, ctx: ctx}
}

// Atomically runs fn inside a Datastore transaction
func (s *LinkStore) Atomically(fn func(tx il.LinkStore) error) error {
	if s.tx != nil {
		return fn(s)
	}
	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		return fn(&LinkStore{client: s.client, namespace: s.namespace, ctx: s.ctx, tx: tx})
	})
	return err
}

func (s *LinkStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *LinkStore) get(key *datastore.Key, dst any) error {
	if s.tx != nil {
		return s.tx.Get(key, dst)
	}
	return s.client.Get(s.ctx, key, dst)
}

func (s *LinkStore) put(key *datastore.Key, src any) error {
	if s.tx != nil {
		_, err := s.tx.Put(key, src)
		return err
	}
	_, err := s.client.Put(s.ctx, key, src)
	return err
}

func (s *LinkStore) delete(key *datastore.Key) error {
	if s.tx != nil {
		return s.tx.Delete(key)
	}
	return s.client.Delete(s.ctx, key)
}

// ============================================================================
// CredentialStore
// ============================================================================

func credentialKeyName(kind il.CredentialKind, fingerprint string) string {
	return string(kind) + ":" + fingerprint
}

func (s *LinkStore) CreateCredential(cred *il.Credential) error {
	key := s.namespacedKey(KindCredential, credentialKeyName(cred.Kind, cred.Fingerprint))
	return s.put(key, CredentialToEntity(cred, key))
}

func (s *LinkStore) GetCredential(kind il.CredentialKind, fingerprint string) (*il.Credential, error) {
	key := s.namespacedKey(KindCredential, credentialKeyName(kind, fingerprint))
	var entity CredentialEntity
	if err := s.get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, il.ErrCredentialNotFound
		}
		return nil, err
	}
	return entity.ToCredential(), nil
}

func (s *LinkStore) MarkCredentialUsed(kind il.CredentialKind, fingerprint string, when time.Time) error {
	key := s.namespacedKey(KindCredential, credentialKeyName(kind, fingerprint))
	var entity CredentialEntity
	if err := s.get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return il.ErrCredentialNotFound
		}
		return err
	}
	entity.UsedAt = &when
	return s.put(key, &entity)
}

func (s *LinkStore) PurgeExpiredCredentials(before time.Time) error {
	query := datastore.NewQuery(KindCredential).
		Namespace(s.namespace).
		FilterField("expires_at", "<", before).
		KeysOnly()

	it := s.client.Run(s.ctx, query)
	var keys []*datastore.Key
	for {
		key, err := it.Next(nil)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.DeleteMulti(s.ctx, keys)
}

// ============================================================================
// IdentityStore
// ============================================================================

func identityKeyName(provider il.Provider, providerUserID string) string {
	return string(provider) + ":" + providerUserID
}

func (s *LinkStore) GetIdentity(provider il.Provider, providerUserID string) (*il.ProviderIdentity, error) {
	key := s.namespacedKey(KindIdentity, identityKeyName(provider, providerUserID))
	var entity IdentityEntity
	if err := s.get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, il.ErrIdentityNotFound
		}
		return nil, err
	}
	return entity.ToIdentity(), nil
}

// identityIndex reads a principal's identity index. Missing index means no
// identities yet.
func (s *LinkStore) identityIndex(principalID string) (*IdentityIndexEntity, error) {
	key := s.namespacedKey(KindIdentityIndex, principalID)
	var idx IdentityIndexEntity
	if err := s.get(key, &idx); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return &IdentityIndexEntity{Key: key}, nil
		}
		return nil, err
	}
	idx.Key = key
	return &idx, nil
}

// GetPrincipalIdentities reads through the per-principal index with keyed
// gets, never a query, so inside Atomically the reads join the transaction's
// read set. Unlink's anti-lockout check counts on that: two racing unlinks
// must conflict instead of both counting the same identities.
func (s *LinkStore) GetPrincipalIdentities(principalID string) ([]*il.ProviderIdentity, error) {
	idx, err := s.identityIndex(principalID)
	if err != nil {
		return nil, err
	}

	var out []*il.ProviderIdentity
	for _, ref := range idx.Refs {
		var entity IdentityEntity
		if err := s.get(s.namespacedKey(KindIdentity, ref), &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				continue
			}
			return nil, err
		}
		out = append(out, entity.ToIdentity())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkedAt.Before(out[j].LinkedAt) })
	return out, nil
}

func (s *LinkStore) CreateIdentity(identity *il.ProviderIdentity) error {
	refName := identityKeyName(identity.Provider, identity.ProviderUserID)
	key := s.namespacedKey(KindIdentity, refName)

	var existing IdentityEntity
	err := s.get(key, &existing)
	if err == nil {
		return il.ErrIdentityExists
	}
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		return err
	}
	if err := s.put(key, IdentityToEntity(identity, key)); err != nil {
		return err
	}

	idx, err := s.identityIndex(identity.PrincipalID)
	if err != nil {
		return err
	}
	for _, ref := range idx.Refs {
		if ref == refName {
			return nil
		}
	}
	idx.Refs = append(idx.Refs, refName)
	return s.put(idx.Key, idx)
}

func (s *LinkStore) DeleteIdentity(principalID string, provider il.Provider) error {
	idx, err := s.identityIndex(principalID)
	if err != nil {
		return err
	}

	prefix := string(provider) + ":"
	for i, ref := range idx.Refs {
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		if err := s.delete(s.namespacedKey(KindIdentity, ref)); err != nil {
			return err
		}
		idx.Refs = append(idx.Refs[:i], idx.Refs[i+1:]...)
		return s.put(idx.Key, idx)
	}
	return nil
}

func (s *LinkStore) TouchIdentityLogin(provider il.Provider, providerUserID string, when time.Time) error {
	key := s.namespacedKey(KindIdentity, identityKeyName(provider, providerUserID))
	var entity IdentityEntity
	if err := s.get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return il.ErrIdentityNotFound
		}
		return err
	}
	entity.LastLoginAt = &when
	return s.put(key, &entity)
}

// ============================================================================
// PrincipalStore
// ============================================================================

func (s *LinkStore) GetPrincipal(principalID string) (*il.Principal, error) {
	key := s.namespacedKey(KindPrincipal, principalID)
	var entity PrincipalEntity
	if err := s.get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, il.ErrPrincipalNotFound
		}
		return nil, err
	}
	return entity.ToPrincipal(), nil
}

func (s *LinkStore) GetPrincipalByEmail(email string) (*il.Principal, error) {
	query := datastore.NewQuery(KindPrincipal).
		Namespace(s.namespace).
		FilterField("email", "=", il.NormalizeEmail(email)).
		Limit(1)

	it := s.client.Run(s.ctx, query)
	var entity PrincipalEntity
	if _, err := it.Next(&entity); err == iterator.Done {
		return nil, il.ErrPrincipalNotFound
	} else if err != nil {
		return nil, err
	}
	return entity.ToPrincipal(), nil
}

func (s *LinkStore) MarkEmailVerified(principalID string, when time.Time) error {
	key := s.namespacedKey(KindPrincipal, principalID)
	var entity PrincipalEntity
	if err := s.get(key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return il.ErrPrincipalNotFound
		}
		return err
	}
	entity.EmailVerifiedAt = &when
	entity.UpdatedAt = time.Now()
	return s.put(key, &entity)
}

// SavePrincipal creates or replaces a principal record
func (s *LinkStore) SavePrincipal(p *il.Principal) error {
	key := s.namespacedKey(KindPrincipal, p.ID)
	now := time.Now()
	entity := &PrincipalEntity{
		Key:             key,
		Email:           il.NormalizeEmail(p.Email),
		EmailVerifiedAt: p.EmailVerifiedAt,
		Role:            string(p.Role),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return s.put(key, entity)
}
