package idlink

import (
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
)

// CreatePrincipalFunc provisions an account for a first-time provider sign-in.
// Account creation is owned by the application; the engine only attaches the
// identity. Implementations typically assign a placeholder email on the
// provider's reserved domain.
type CreatePrincipalFunc func(provider Provider, providerUserID string, profile map[string]any) (principalID string, err error)

// SignIn handles the other way a ProviderIdentity comes to exist: not through
// the token handshake, but through a successful sign-in with the provider
// itself.
type SignIn struct {
	Store LinkStore

	// CreatePrincipal is required for first-time sign-ins
	CreatePrincipal CreatePrincipalFunc

	// SaveProviderToken, if set, receives the provider's OAuth token for
	// providers that issue one. Telegram-style deep-link providers pass nil.
	SaveProviderToken func(principalID string, provider Provider, token *oauth2.Token) error
}

// EnsureProviderSignIn resolves a provider sign-in to a principal, creating
// the account and the identity on first contact and stamping LastLoginAt on
// returning ones.
func (s *SignIn) EnsureProviderSignIn(provider Provider, providerUserID string, token *oauth2.Token, profile map[string]any) (string, error) {
	if !knownProviders[provider] || providerUserID == "" {
		return "", NewFlowError(ErrKindInvalidInput, "provider and provider user id required")
	}

	var principalID string
	err := s.Store.Atomically(func(tx LinkStore) error {
		now := time.Now()

		existing, err := tx.GetIdentity(provider, providerUserID)
		if err == nil {
			principalID = existing.PrincipalID
			return tx.TouchIdentityLogin(provider, providerUserID, now)
		}
		if !errors.Is(err, ErrIdentityNotFound) {
			return err
		}

		if s.CreatePrincipal == nil {
			return NewFlowError(ErrKindForbidden, "sign-up via this provider is not enabled")
		}
		principalID, err = s.CreatePrincipal(provider, providerUserID, profile)
		if err != nil {
			return fmt.Errorf("failed to create principal: %w", err)
		}

		lastLogin := now
		identity := &ProviderIdentity{
			Provider:       provider,
			ProviderUserID: providerUserID,
			PrincipalID:    principalID,
			LinkedAt:       now,
			LastLoginAt:    &lastLogin,
		}
		if err := tx.CreateIdentity(identity); err != nil {
			if errors.Is(err, ErrIdentityExists) {
				// Lost a first-contact race; sign in to the winner's account
				won, werr := tx.GetIdentity(provider, providerUserID)
				if werr != nil {
					return werr
				}
				principalID = won.PrincipalID
				return tx.TouchIdentityLogin(provider, providerUserID, now)
			}
			return err
		}
		log.Printf("Created principal %s from first %s sign-in", principalID, provider)
		return nil
	})
	if err != nil {
		return "", err
	}

	if token != nil && s.SaveProviderToken != nil {
		if err := s.SaveProviderToken(principalID, provider, token); err != nil {
			log.Printf("Warning: failed to save provider token: %v", err)
		}
	}
	return principalID, nil
}
