package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-signup/app/service"
	"github.com/vibast-solutions/ms-go-signup/app/types"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const metadataAPIKey = "x-api-key"

type callerKey struct{}

// CallerFromContext returns the caller admitted by the API key interceptor.
func CallerFromContext(ctx context.Context) (*types.InternalAccess, bool) {
	caller, ok := ctx.Value(callerKey{}).(*types.InternalAccess)
	return caller, ok
}

func APIKeyUnaryInterceptor(authService service.InternalAuthService, access string) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		caller, err := authorizeIncomingAPIKey(ctx, authService, access)
		if err != nil {
			logrus.WithField("method", info.FullMethod).Debug("Rejected grpc call")
			return nil, err
		}

		return handler(context.WithValue(ctx, callerKey{}, caller), req)
	}
}

func authorizeIncomingAPIKey(ctx context.Context, authService service.InternalAuthService, access string) (*types.InternalAccess, error) {
	apiKey := incomingAPIKeyFromMetadata(ctx)
	if apiKey == "" {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	caller, err := authService.AuthorizeInternalAPIKey(ctx, apiKey, access)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInternalAPIKey):
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		case errors.Is(err, service.ErrInternalAccessDenied):
			return nil, status.Error(codes.PermissionDenied, "forbidden")
		}
		logrus.WithError(err).Error("API key validation failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return caller, nil
}

func incomingAPIKeyFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(metadataAPIKey)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
