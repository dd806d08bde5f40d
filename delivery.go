package idlink

import "log"

// Delivery dispatches cleartext tokens and codes to the user out of band. The
// engine never sees how they travel; applications plug in email senders, bot
// messages, push, whatever fits.
type Delivery interface {
	// DeliverLinkToken hands the start param (e.g. "link:<token>") to the
	// principal for the chosen provider's deep-link flow
	DeliverLinkToken(principalID string, provider Provider, startParam string) error

	// DeliverVerificationCode sends the code to the given email address
	DeliverVerificationCode(email string, code string) error
}

// ConsoleDelivery is a development implementation that logs to the console
type ConsoleDelivery struct{}

func (c *ConsoleDelivery) DeliverLinkToken(principalID string, provider Provider, startParam string) error {
	log.Printf("\n=== DELIVERY: Link token ===")
	log.Printf("Principal: %s", principalID)
	log.Printf("Provider: %s", provider)
	log.Printf("Open in %s: %s", provider, startParam)
	log.Printf("============================\n")
	return nil
}

func (c *ConsoleDelivery) DeliverVerificationCode(email string, code string) error {
	log.Printf("\n=== DELIVERY: Verification code ===")
	log.Printf("To: %s", email)
	log.Printf("Subject: Confirm your email address")
	log.Printf("Body: Your verification code is %s", code)
	log.Printf("===================================\n")
	return nil
}
