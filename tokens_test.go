package idlink_test

import (
	"bytes"
	"strings"
	"testing"

	il "github.com/panyam/idlink"
)

func TestGenerateLinkToken(t *testing.T) {
	token, err := il.GenerateLinkToken(nil)
	if err != nil {
		t.Fatalf("GenerateLinkToken failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(token))
	}

	other, _ := il.GenerateLinkToken(nil)
	if token == other {
		t.Error("two tokens from crypto/rand must differ")
	}
}

func TestGenerateLinkToken_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0xAB}, 32)

	first, err := il.GenerateLinkToken(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("GenerateLinkToken failed: %v", err)
	}
	second, err := il.GenerateLinkToken(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("GenerateLinkToken failed: %v", err)
	}
	if first != second {
		t.Errorf("same random source must yield the same token: %q vs %q", first, second)
	}
	if first != strings.Repeat("ab", 32) {
		t.Errorf("unexpected hex encoding: %q", first)
	}
}

func TestGenerateLinkToken_ShortRandomSource(t *testing.T) {
	_, err := il.GenerateLinkToken(bytes.NewReader([]byte{1, 2, 3}))
	if err == nil {
		t.Error("expected an error when the random source runs dry")
	}
}

func TestGenerateVerificationCode(t *testing.T) {
	code, err := il.GenerateVerificationCode(nil)
	if err != nil {
		t.Fatalf("GenerateVerificationCode failed: %v", err)
	}
	if len(code) != 8 {
		t.Errorf("expected 8 characters, got %d", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune("0123456789ABCDEFGHJKMNPQRSTVWXYZ", r) {
			t.Errorf("code contains character outside the alphabet: %q", r)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := il.Fingerprint("token-a")
	if a != il.Fingerprint("token-a") {
		t.Error("fingerprint must be deterministic")
	}
	if a == il.Fingerprint("token-b") {
		t.Error("different tokens must not collide")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
	if a == "token-a" {
		t.Error("fingerprint must not be the cleartext")
	}
}

func TestFingerprintCode_Normalizes(t *testing.T) {
	if il.FingerprintCode("ab 12 cd 34") != il.FingerprintCode("AB12CD34") {
		t.Error("fingerprints of equivalent codes must match")
	}
	if il.FingerprintCode("AB12CD34") == il.FingerprintCode("AB12CD35") {
		t.Error("different codes must not collide")
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ab12cd34", "AB12CD34"},
		{" AB 12\tCD\n34 ", "AB12CD34"},
		{"ab-12", "AB-12"}, // hyphens are meaningful, only whitespace is forgiving
	}
	for _, c := range cases {
		if got := il.NormalizeCode(c.in); got != c.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := il.NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
