package idlink

import (
	"errors"
	"io"
	"time"
)

// Verification drives the email-proof state machine: a short code goes out,
// the same code comes back, and the engine reports whether the address is
// proven. It never flips the verified flag itself - that is the caller's
// step, layered on top.
type Verification struct {
	Store LinkStore

	// Random is the entropy source for code generation. Defaults to
	// crypto/rand; tests inject a deterministic reader.
	Random io.Reader

	// CodeTTL is how long an issued code stays valid. Codes are short, so
	// the window is deliberately tighter than link tokens.
	CodeTTL time.Duration
}

// EnsureDefaults fills zero-valued configuration
func (v *Verification) EnsureDefaults() *Verification {
	if v.CodeTTL <= 0 {
		v.CodeTTL = VerificationCodeTTL
	}
	return v
}

// IssueCode mints a verification code for the principal's email. The
// cleartext is returned for out-of-band delivery; only its fingerprint is
// stored.
func (v *Verification) IssueCode(principalID string) (string, error) {
	v.EnsureDefaults()
	if principalID == "" {
		return "", NewFlowError(ErrKindUnauthorized, "principal id required")
	}

	code, err := GenerateVerificationCode(v.Random)
	if err != nil {
		return "", err
	}

	now := time.Now()
	cred := &Credential{
		Kind:        CredentialEmailConfirm,
		Fingerprint: FingerprintCode(code),
		PrincipalID: principalID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(v.CodeTTL),
	}
	if err := v.Store.CreateCredential(cred); err != nil {
		return "", err
	}
	return code, nil
}

// ConfirmCode proves control of an email address. Unlike link confirmation,
// re-verifying an already-claimed address is a hard email_taken conflict, not
// an idempotent replay - the asymmetry is intentional. All token problems
// (missing, used, expired, or issued to a different principal) collapse into
// invalid_or_expired_token so a guesser learns nothing about which it was.
func (v *Verification) ConfirmCode(email string, code string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" || NormalizeCode(code) == "" {
		return false, NewFlowError(ErrKindInvalidInput, "email and code required")
	}

	principal, err := v.Store.GetPrincipalByEmail(email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return false, NewFlowError(ErrKindInvalidOrExpiredToken, "invalid or expired code")
	}
	if err != nil {
		return false, err
	}

	if principal.Verified() {
		return false, NewFlowError(ErrKindEmailTaken, "email address already verified")
	}

	err = v.Store.Atomically(func(tx LinkStore) error {
		cred, err := tx.GetCredential(CredentialEmailConfirm, FingerprintCode(code))
		if errors.Is(err, ErrCredentialNotFound) {
			return NewFlowError(ErrKindInvalidOrExpiredToken, "invalid or expired code")
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if cred.Used() || cred.PrincipalID != principal.ID || cred.Expired(now) {
			return NewFlowError(ErrKindInvalidOrExpiredToken, "invalid or expired code")
		}

		return tx.MarkCredentialUsed(CredentialEmailConfirm, cred.Fingerprint, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
