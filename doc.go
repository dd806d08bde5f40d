// Package idlink is a multi-provider account-identity and one-time-credential
// engine. It lets a principal (an account) prove or attach control of external
// chat-platform identities and of an email address using short-lived,
// single-use, hashed tokens.
//
// Two invariants hold at all times: a principal can never be locked out of
// every sign-in method, and a (provider, providerUserId) pair is attached to
// at most one principal.
//
// # Architecture
//
// Principal: the account owner. Owned by the application; idlink reads it and
// updates only its email verification state.
//
// ProviderIdentity: one (provider, providerUserId) pair attached to exactly
// one principal. Created by a confirmed link flow or a first provider sign-in,
// deleted by an explicit unlink.
//
// Credential: a hashed, expiring, single-use token. All three token families
// (link requests, provider confirmations, email codes) share this one entity,
// tagged by kind.
//
// # Basic Usage
//
// Pick a store backend and wire the protocols:
//
//	import (
//	    "github.com/panyam/idlink"
//	    "github.com/panyam/idlink/stores"
//	)
//
//	store := stores.NewFSLinkStore("/path/to/storage")
//	linking := &idlink.Linking{Store: store}
//	verification := &idlink.Verification{Store: store}
//
// The linking flow has three legs. The principal requests a token:
//
//	issued, _ := linking.IssueLinkToken(principalID, idlink.ProviderTelegram)
//	// deliver issued.StartParam to the user, who opens it in the chat client
//
// The provider-side flow (a bot, typically) claims it once it knows who the
// human is on its side:
//
//	claimed, _ := linking.ClaimLinkToken(idlink.ProviderTelegram, providerUserID, issued.Token)
//
// And the principal's client confirms, atomically attaching the identity:
//
//	result, _ := linking.ConfirmLink(principalID, claimed.Token)
//	// result.Status is "linked", or "already_linked" on a safe replay
//
// Expose it over HTTP with the facade:
//
//	facade := &idlink.Facade{
//	    Linking:      linking,
//	    Verification: verification,
//	    Resolver:     &idlink.PrincipalResolver{JWTSecretKey: secret},
//	    Principals:   store,
//	    Delivery:     &idlink.ConsoleDelivery{},
//	}
//	http.ListenAndServe(":8080", facade.Handler())
//
// Expected failures are *FlowError values carrying a machine-readable kind
// (invalid_request_token, request_expired, identity_already_linked,
// would_lock_out, ...); anything else is an infrastructure error.
package idlink
