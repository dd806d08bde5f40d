package idlink

import (
	"fmt"
	"strings"
)

// Provider identifies an external chat platform whose accounts can be
// attached to a principal.
type Provider string

const (
	ProviderTelegram Provider = "telegram"
	ProviderMax      Provider = "max"
)

// KnownProviders returns the providers this build understands. Applications
// can extend the set with RegisterProvider before issuing any tokens.
func KnownProviders() []Provider {
	return []Provider{ProviderTelegram, ProviderMax}
}

var knownProviders = map[Provider]bool{
	ProviderTelegram: true,
	ProviderMax:      true,
}

// placeholderDomains maps each provider to the synthetic email domain assigned
// to accounts created through that provider before a real address is attached.
var placeholderDomains = map[Provider]string{
	ProviderTelegram: "telegram.local",
	ProviderMax:      "max.local",
}

// RegisterProvider adds a provider (and optionally its placeholder email
// domain) to the known set.
func RegisterProvider(p Provider, placeholderDomain string) {
	knownProviders[p] = true
	if placeholderDomain != "" {
		placeholderDomains[p] = placeholderDomain
	}
}

// ParseProvider validates a raw provider string from an inbound request
func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	if !knownProviders[p] {
		return "", NewFlowError(ErrKindInvalidInput, fmt.Sprintf("unknown provider: %q", raw))
	}
	return p, nil
}

// IsPlaceholderEmail reports whether the email is a synthetic provider-assigned
// address rather than a real one. A principal whose only email is a placeholder
// has no sign-in surface besides their provider identities, which is what the
// unlink anti-lockout check guards.
func IsPlaceholderEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range placeholderDomains {
		if domain == d {
			return true
		}
	}
	return false
}

// StartParam renders the deep-link payload the user carries into the provider's
// chat client, e.g. "link:3f9a...".
func StartParam(token string) string {
	return "link:" + token
}
