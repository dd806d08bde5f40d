// Package grpc carries the authenticated principal between HTTP handlers and
// gRPC services via request metadata, so a gRPC-facing deployment of the
// linking facade resolves callers the same way the HTTP one does.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// DefaultMetadataKeyPrincipalID is the default gRPC metadata key carrying the
// authenticated principal's ID.
const DefaultMetadataKeyPrincipalID = "x-principal-id"

// Config holds the metadata key configuration
type Config struct {
	// MetadataKeyPrincipalID is the gRPC metadata key for the authenticated
	// principal ID. Defaults to "x-principal-id".
	MetadataKeyPrincipalID string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{MetadataKeyPrincipalID: DefaultMetadataKeyPrincipalID}
}

// EnsureDefaults fills in default values for any unset fields
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyPrincipalID == "" {
		c.MetadataKeyPrincipalID = DefaultMetadataKeyPrincipalID
	}
}

// PrincipalIDFromContext extracts the authenticated principal ID from the
// incoming gRPC metadata. Returns empty string when no principal is
// authenticated.
func PrincipalIDFromContext(ctx context.Context) string {
	return PrincipalIDFromContextWithConfig(ctx, nil)
}

// PrincipalIDFromContextWithConfig extracts the principal ID using the
// specified config.
func PrincipalIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyPrincipalID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// PrincipalIDToOutgoingContext adds the principal ID to outgoing gRPC
// metadata.
func PrincipalIDToOutgoingContext(ctx context.Context, principalID string) context.Context {
	return PrincipalIDToOutgoingContextWithKey(ctx, principalID, DefaultMetadataKeyPrincipalID)
}

// PrincipalIDToOutgoingContextWithKey adds the principal ID with a custom key
func PrincipalIDToOutgoingContextWithKey(ctx context.Context, principalID string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, principalID)
}

// IsAuthenticated returns true if there is an authenticated principal in the
// context.
func IsAuthenticated(ctx context.Context) bool {
	return PrincipalIDFromContext(ctx) != ""
}
