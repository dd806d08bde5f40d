package idlink

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Link tokens carry 32 bytes of randomness rendered as 64 hex characters.
// Verification codes are short enough for a human to type.
const (
	linkTokenBytes = 32
	codeLength     = 8
)

// codeAlphabet is Crockford base32: no I, L, O, U, so a code survives being
// read over the phone.
const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// GenerateLinkToken produces a high-entropy cleartext link token from the
// given random source. Pass crypto/rand.Reader in production; tests can seed
// a deterministic source.
func GenerateLinkToken(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	b := make([]byte, linkTokenBytes)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateVerificationCode produces a short human-typable code from the given
// random source.
func GenerateVerificationCode(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	b := make([]byte, codeLength)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	out := make([]byte, codeLength)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(out), nil
}

// Fingerprint is the one-way transform from a cleartext token to its storable
// form. Deterministic, never reversible. Tokens are server-generated
// high-entropy values, so no salt is needed.
func Fingerprint(cleartext string) string {
	sum := sha256.Sum256([]byte(cleartext))
	return hex.EncodeToString(sum[:])
}

// FingerprintCode fingerprints a human-typable verification code after
// normalization. Codes are short, so this is the known weaker case; SHA3 plus
// the tighter VerificationCodeTTL are the compensating controls.
func FingerprintCode(code string) string {
	sum := sha3.Sum256([]byte(NormalizeCode(code)))
	return hex.EncodeToString(sum[:])
}

// NormalizeCode strips all whitespace and upcases, so "ab 12-cd" typed from an
// email matches what was issued. Hyphens are kept meaningful; only whitespace
// is forgiving.
func NormalizeCode(code string) string {
	var sb strings.Builder
	for _, r := range code {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}

// NormalizeEmail lowercases and trims an email address for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
