package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig()
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true by default")
	}
	if config.PublicMethods == nil {
		t.Error("expected PublicMethods to be initialized")
	}
	if config.Config == nil {
		t.Error("expected Config to be initialized")
	}
}

func TestNewPublicMethodsConfig(t *testing.T) {
	config := NewPublicMethodsConfig("/pkg.Svc/Method1", "/pkg.Svc/Method2")
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true")
	}
	if !config.PublicMethods["/pkg.Svc/Method1"] {
		t.Error("expected Method1 to be public")
	}
	if config.PublicMethods["/pkg.Svc/Method3"] {
		t.Error("expected Method3 to not be public")
	}
}

func TestOptionalAuthConfig(t *testing.T) {
	config := OptionalAuthConfig()
	if config.RequireAuth {
		t.Error("expected RequireAuth to be false")
	}
}

func TestUnaryAuthInterceptor_RequireAuth_NoPrincipal(t *testing.T) {
	interceptor := UnaryAuthInterceptor(nil)

	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Error("handler should not be called")
		return nil, nil
	})

	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestUnaryAuthInterceptor_RequireAuth_WithPrincipal(t *testing.T) {
	interceptor := UnaryAuthInterceptor(nil)

	md := metadata.Pairs(DefaultMetadataKeyPrincipalID, "p123")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	handlerCalled := false
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "result", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	config := NewPublicMethodsConfig("/pkg.Svc/PublicMethod")
	interceptor := UnaryAuthInterceptor(config)

	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/PublicMethod"}
	handlerCalled := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return nil, nil
	})

	if err != nil {
		t.Fatalf("unexpected error for public method: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called for public method")
	}
}

func TestUnaryAuthInterceptor_OptionalAuth(t *testing.T) {
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig())

	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}
	handlerCalled := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return nil, nil
	})

	if err != nil {
		t.Fatalf("unexpected error with optional auth: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamAuthInterceptor_RequireAuth_NoPrincipal(t *testing.T) {
	interceptor := StreamAuthInterceptor(nil)

	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}
	ss := &fakeServerStream{ctx: context.Background()}

	err := interceptor(nil, ss, info, func(srv interface{}, stream grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})

	if err == nil {
		t.Fatal("expected error for unauthenticated stream")
	}
	if st, _ := status.FromError(err); st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestStreamAuthInterceptor_WithPrincipal(t *testing.T) {
	interceptor := StreamAuthInterceptor(nil)

	md := metadata.Pairs(DefaultMetadataKeyPrincipalID, "p123")
	ctx := metadata.NewIncomingContext(context.Background(), md)
	ss := &fakeServerStream{ctx: ctx}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Stream"}

	handlerCalled := false
	err := interceptor(nil, ss, info, func(srv interface{}, stream grpc.ServerStream) error {
		handlerCalled = true
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
}
