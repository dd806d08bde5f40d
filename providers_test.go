package idlink_test

import (
	"testing"

	il "github.com/panyam/idlink"
)

func TestParseProvider(t *testing.T) {
	p, err := il.ParseProvider(" Telegram ")
	if err != nil {
		t.Fatalf("ParseProvider failed: %v", err)
	}
	if p != il.ProviderTelegram {
		t.Errorf("expected telegram, got %s", p)
	}

	if _, err := il.ParseProvider("discord"); il.KindOf(err) != il.ErrKindInvalidInput {
		t.Errorf("expected invalid_input for unknown provider, got %v", err)
	}
	if _, err := il.ParseProvider(""); il.KindOf(err) != il.ErrKindInvalidInput {
		t.Errorf("expected invalid_input for empty provider, got %v", err)
	}
}

func TestIsPlaceholderEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"42@telegram.local", true},
		{"7@MAX.LOCAL", true},
		{"user@example.com", false},
		{"telegram.local", false}, // no @ at all
		{"", false},
	}
	for _, c := range cases {
		if got := il.IsPlaceholderEmail(c.email); got != c.want {
			t.Errorf("IsPlaceholderEmail(%q) = %v, want %v", c.email, got, c.want)
		}
	}
}

func TestStartParam(t *testing.T) {
	if got := il.StartParam("abc123"); got != "link:abc123" {
		t.Errorf("StartParam = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	err := il.NewFlowError(il.ErrKindEmailTaken, "taken")
	if il.KindOf(err) != il.ErrKindEmailTaken {
		t.Errorf("expected email_taken, got %s", il.KindOf(err))
	}
	if il.KindOf(il.ErrCredentialNotFound) != il.ErrKindInternal {
		t.Error("non-flow errors classify as internal")
	}
}
