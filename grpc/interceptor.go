package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// InterceptorConfig configures the auth interceptor behavior
type InterceptorConfig struct {
	// Config holds the metadata key configuration
	*Config

	// RequireAuth when true rejects requests without a principal. When
	// false, requests proceed and PrincipalIDFromContext returns empty.
	RequireAuth bool

	// PublicMethods is a set of full method names ("/pkg.Service/Method")
	// that skip the auth requirement.
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests
func OptionalAuthConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor enforcing the
// principal requirement.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = normalized(config)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := checkAuth(ctx, config, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor enforcing the
// principal requirement.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = normalized(config)
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := checkAuth(ss.Context(), config, info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func normalized(config *InterceptorConfig) *InterceptorConfig {
	if config == nil {
		config = DefaultInterceptorConfig()
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()
	if config.PublicMethods == nil {
		config.PublicMethods = make(map[string]bool)
	}
	return config
}

func checkAuth(ctx context.Context, config *InterceptorConfig, fullMethod string) error {
	if !config.RequireAuth || config.PublicMethods[fullMethod] {
		return nil
	}
	if extractPrincipalID(ctx, config) == "" {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	return nil
}

func extractPrincipalID(ctx context.Context, config *InterceptorConfig) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.Config.MetadataKeyPrincipalID); len(values) > 0 {
		return values[0]
	}
	return ""
}
