//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the idlink
// LinkStore. It supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - Principal: account records (read/verify-flag surface only)
//   - ProviderIdentity: (provider, providerUserId) attachments, keyed by
//     "provider:providerUserId" so the key itself enforces uniqueness
//   - PrincipalIdentityIndex: per-principal list of identity key names,
//     keyed by principal ID
//   - Credential: one-time credentials keyed by "kind:fingerprint"
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewLinkStore(client, "") // default namespace
//	linking := &idlink.Linking{Store: store}
//
// Atomically maps onto datastore transactions. Every read the protocols make
// inside a transaction is a keyed get: identity listing goes through the
// per-principal index entity rather than a query, so the anti-lockout count
// in Unlink is part of the transaction's read set and racing unlinks
// conflict instead of both committing. Only the email lookup and the expiry
// purge are query-based, and neither runs inside a transaction.
package gae
