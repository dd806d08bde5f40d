package idlink

import (
	"errors"
	"io"
	"log"
	"time"
)

// LinkStatus is the outcome of a successful ConfirmLink
type LinkStatus string

const (
	StatusLinked        LinkStatus = "linked"
	StatusAlreadyLinked LinkStatus = "already_linked"
)

// IssuedLink is returned from IssueLinkToken. Token is the cleartext; it is
// never persisted and this is the only time the caller sees it.
type IssuedLink struct {
	Token      string    `json:"token"`
	StartParam string    `json:"start_param"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ClaimedLink is returned from ClaimLinkToken: the confirmation token the
// provider-side flow hands back to the principal's client.
type ClaimedLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkResult is the outcome of ConfirmLink
type LinkResult struct {
	Provider Provider   `json:"provider"`
	Status   LinkStatus `json:"status"`
}

// Linking drives the provider attach/detach state machine over a LinkStore
type Linking struct {
	// Store holds all state; Linking keeps none of its own
	Store LinkStore

	// Random is the entropy source for token generation. Defaults to
	// crypto/rand; tests inject a deterministic reader.
	Random io.Reader

	// Token lifetimes. Zero values fall back to the package defaults.
	LinkTokenTTL    time.Duration
	ProviderLinkTTL time.Duration
}

// EnsureDefaults fills zero-valued configuration
func (l *Linking) EnsureDefaults() *Linking {
	if l.LinkTokenTTL <= 0 {
		l.LinkTokenTTL = LinkTokenTTL
	}
	if l.ProviderLinkTTL <= 0 {
		l.ProviderLinkTTL = ProviderLinkTTL
	}
	return l
}

// IssueLinkToken mints a link-request token binding "this principal wants to
// attach this provider". Each issued token is independent: requesting another
// one does not invalidate earlier ones that are still live, so two open tabs
// never surprise each other.
func (l *Linking) IssueLinkToken(principalID string, provider Provider) (*IssuedLink, error) {
	l.EnsureDefaults()
	if principalID == "" {
		return nil, NewFlowError(ErrKindInvalidInput, "principal id required")
	}
	if !knownProviders[provider] {
		return nil, NewFlowError(ErrKindInvalidInput, "unknown provider")
	}

	token, err := GenerateLinkToken(l.Random)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cred := &Credential{
		Kind:        CredentialLinkRequest,
		Fingerprint: Fingerprint(token),
		PrincipalID: principalID,
		Provider:    provider,
		CreatedAt:   now,
		ExpiresAt:   now.Add(l.LinkTokenTTL),
	}
	if err := l.Store.CreateCredential(cred); err != nil {
		return nil, err
	}

	return &IssuedLink{
		Token:      token,
		StartParam: StartParam(token),
		ExpiresAt:  cred.ExpiresAt,
	}, nil
}

// ClaimLinkToken is the provider-side half of the handshake. The provider's
// bot receives the start param from a human it has just authenticated, and
// trades the link-request token for a confirmation token bound to that
// human's (provider, providerUserId). The link-request token is consumed
// here, exactly once.
func (l *Linking) ClaimLinkToken(provider Provider, providerUserID string, linkToken string) (*ClaimedLink, error) {
	l.EnsureDefaults()
	if providerUserID == "" || linkToken == "" {
		return nil, NewFlowError(ErrKindInvalidInput, "provider user id and token required")
	}

	confirmToken, err := GenerateLinkToken(l.Random)
	if err != nil {
		return nil, err
	}

	var claimed *ClaimedLink
	err = l.Store.Atomically(func(tx LinkStore) error {
		cred, err := tx.GetCredential(CredentialLinkRequest, Fingerprint(linkToken))
		if errors.Is(err, ErrCredentialNotFound) {
			return NewFlowError(ErrKindInvalidRequestToken, "link token not found")
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if cred.Expired(now) {
			return NewFlowError(ErrKindRequestExpired, "link token expired")
		}
		if cred.Used() {
			return NewFlowError(ErrKindRequestUsed, "link token already used")
		}
		// A token issued for one provider cannot be claimed through another
		if cred.Provider != provider {
			return NewFlowError(ErrKindInvalidRequestToken, "link token not found")
		}

		if err := tx.MarkCredentialUsed(CredentialLinkRequest, cred.Fingerprint, now); err != nil {
			return err
		}

		confirm := &Credential{
			Kind:           CredentialProviderLink,
			Fingerprint:    Fingerprint(confirmToken),
			Provider:       provider,
			ProviderUserID: providerUserID,
			CreatedAt:      now,
			ExpiresAt:      now.Add(l.ProviderLinkTTL),
		}
		if err := tx.CreateCredential(confirm); err != nil {
			return err
		}

		claimed = &ClaimedLink{Token: confirmToken, ExpiresAt: confirm.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ConfirmLink consumes a provider confirmation token and attaches the identity
// it names to the calling principal. The whole read-check-write sequence runs
// in one transaction: two racing confirms for the same (provider, uid) cannot
// both create the identity.
//
// Failure order matters. A conflict with a different principal reports
// identity_already_linked even when the token was already used, so the caller
// sees the real blocking reason. A re-submit by the owning principal is a
// safe replay and succeeds with already_linked.
func (l *Linking) ConfirmLink(principalID string, requestToken string) (*LinkResult, error) {
	if principalID == "" {
		return nil, NewFlowError(ErrKindUnauthorized, "principal id required")
	}
	if requestToken == "" {
		return nil, NewFlowError(ErrKindInvalidInput, "request token required")
	}

	var result *LinkResult
	err := l.Store.Atomically(func(tx LinkStore) error {
		cred, err := tx.GetCredential(CredentialProviderLink, Fingerprint(requestToken))
		if errors.Is(err, ErrCredentialNotFound) {
			return NewFlowError(ErrKindInvalidRequestToken, "request token not found")
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if cred.Expired(now) {
			return NewFlowError(ErrKindRequestExpired, "request token expired")
		}

		existing, err := tx.GetIdentity(cred.Provider, cred.ProviderUserID)
		if err != nil && !errors.Is(err, ErrIdentityNotFound) {
			return err
		}

		if existing != nil && existing.PrincipalID != principalID {
			return NewFlowError(ErrKindIdentityAlreadyLinked, "identity belongs to another account")
		}

		if cred.Used() {
			if existing != nil {
				// Same principal re-submitting a consumed token: idempotent replay
				result = &LinkResult{Provider: cred.Provider, Status: StatusAlreadyLinked}
				return nil
			}
			return NewFlowError(ErrKindRequestUsed, "request token already used")
		}

		if existing == nil {
			identity := &ProviderIdentity{
				Provider:       cred.Provider,
				ProviderUserID: cred.ProviderUserID,
				PrincipalID:    principalID,
				LinkedAt:       now,
			}
			if err := tx.CreateIdentity(identity); err != nil {
				if errors.Is(err, ErrIdentityExists) {
					// A concurrent confirm won the race; the constraint is
					// the backstop when isolation is below serializable
					return NewFlowError(ErrKindIdentityAlreadyLinked, "identity belongs to another account")
				}
				return err
			}
			if err := tx.MarkCredentialUsed(CredentialProviderLink, cred.Fingerprint, now); err != nil {
				return err
			}
			result = &LinkResult{Provider: cred.Provider, Status: StatusLinked}
			return nil
		}

		// Re-confirming an identity the principal already holds
		if err := tx.MarkCredentialUsed(CredentialProviderLink, cred.Fingerprint, now); err != nil {
			return err
		}
		result = &LinkResult{Provider: cred.Provider, Status: StatusAlreadyLinked}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == StatusLinked {
		log.Printf("Linked %s identity to principal %s", result.Provider, principalID)
	}
	return result, nil
}

// ListIdentities returns the principal's attached identities, oldest first
func (l *Linking) ListIdentities(principalID string) ([]*ProviderIdentity, error) {
	if principalID == "" {
		return nil, NewFlowError(ErrKindUnauthorized, "principal id required")
	}
	return l.Store.GetPrincipalIdentities(principalID)
}

// Unlink detaches a provider from the principal. Unlinking a provider that is
// not attached is a successful noop. The anti-lockout check and the delete run
// in one transaction so two concurrent unlinks cannot both pass the
// "not the last identity" check.
func (l *Linking) Unlink(principalID string, provider Provider) error {
	if principalID == "" {
		return NewFlowError(ErrKindUnauthorized, "principal id required")
	}
	if !knownProviders[provider] {
		return NewFlowError(ErrKindInvalidInput, "unknown provider")
	}

	return l.Store.Atomically(func(tx LinkStore) error {
		identities, err := tx.GetPrincipalIdentities(principalID)
		if err != nil {
			return err
		}

		found := false
		for _, ident := range identities {
			if ident.Provider == provider {
				found = true
				break
			}
		}
		if !found {
			return nil
		}

		principal, err := tx.GetPrincipal(principalID)
		if err != nil {
			return err
		}

		// A principal whose email is a provider placeholder (or missing) has
		// no way back in without a provider identity. Admins are exempt.
		if principal.Role != RoleAdmin && len(identities) == 1 &&
			(principal.Email == "" || IsPlaceholderEmail(principal.Email)) {
			return NewFlowError(ErrKindWouldLockOut, "unlinking the last identity would lock the account out")
		}

		return tx.DeleteIdentity(principalID, provider)
	})
}
