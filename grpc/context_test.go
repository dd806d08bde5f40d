package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeyPrincipalID != DefaultMetadataKeyPrincipalID {
		t.Errorf("expected MetadataKeyPrincipalID %q, got %q", DefaultMetadataKeyPrincipalID, config.MetadataKeyPrincipalID)
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeyPrincipalID != DefaultMetadataKeyPrincipalID {
		t.Errorf("expected MetadataKeyPrincipalID %q, got %q", DefaultMetadataKeyPrincipalID, config.MetadataKeyPrincipalID)
	}
}

func TestPrincipalIDFromContext_NoMetadata(t *testing.T) {
	principalID := PrincipalIDFromContext(context.Background())
	if principalID != "" {
		t.Errorf("expected empty principal ID, got %q", principalID)
	}
}

func TestPrincipalIDFromContext_WithPrincipalID(t *testing.T) {
	md := metadata.Pairs(DefaultMetadataKeyPrincipalID, "p123")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	principalID := PrincipalIDFromContext(ctx)
	if principalID != "p123" {
		t.Errorf("expected principal ID %q, got %q", "p123", principalID)
	}
}

func TestPrincipalIDFromContext_CustomKey(t *testing.T) {
	md := metadata.Pairs("x-custom-principal", "p456")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	config := &Config{MetadataKeyPrincipalID: "x-custom-principal"}
	principalID := PrincipalIDFromContextWithConfig(ctx, config)
	if principalID != "p456" {
		t.Errorf("expected principal ID %q, got %q", "p456", principalID)
	}
}

func TestPrincipalIDToOutgoingContext(t *testing.T) {
	ctx := PrincipalIDToOutgoingContext(context.Background(), "p789")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeyPrincipalID)
	if len(values) != 1 || values[0] != "p789" {
		t.Errorf("expected principal ID %q in outgoing context, got %v", "p789", values)
	}
}

func TestPrincipalIDToOutgoingContextWithKey(t *testing.T) {
	ctx := PrincipalIDToOutgoingContextWithKey(context.Background(), "p789", "custom-key")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get("custom-key")
	if len(values) != 1 || values[0] != "p789" {
		t.Errorf("expected principal ID %q in outgoing context, got %v", "p789", values)
	}
}

func TestIsAuthenticated(t *testing.T) {
	if IsAuthenticated(context.Background()) {
		t.Error("expected unauthenticated for empty context")
	}

	md := metadata.Pairs(DefaultMetadataKeyPrincipalID, "p123")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	if !IsAuthenticated(ctx) {
		t.Error("expected authenticated with principal metadata")
	}
}
