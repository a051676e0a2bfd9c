package grpc

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-signup/app/service"
	"github.com/vibast-solutions/ms-go-signup/app/types"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var _ SignUpServiceServer = (*SignUpServer)(nil)

type SignUpServer struct {
	signUpService service.SignUpService
	profileURL    string
}

func NewSignUpServer(signUpService service.SignUpService, profileURL string) *SignUpServer {
	return &SignUpServer{
		signUpService: signUpService,
		profileURL:    profileURL,
	}
}

func (s *SignUpServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	signUpReq := &types.SignUpRequest{
		Username: fields["username"].GetStringValue(),
		Email:    fields["email"].GetStringValue(),
		Password: fields["password"].GetStringValue(),
	}
	signUpReq.Normalize()

	logrus.WithField("username", signUpReq.Username).Info("Sign-up request received (grpc)")
	result, err := s.signUpService.Register(ctx, signUpReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrWeakPassword):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, service.ErrUserExists):
			return nil, status.Error(codes.AlreadyExists, service.ErrUserExists.Error())
		}
		logrus.WithError(err).WithField("username", signUpReq.Username).Error("Sign-up failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return structpb.NewStruct(map[string]any{
		"public_id": result.PublicID,
		"username":  result.Username,
		"email":     result.Email,
		"state":     result.State,
		"location":  "/api/v1/users/" + result.PublicID,
	})
}

func (s *SignUpServer) Verify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "invalid token")
	}

	user, err := s.signUpService.Verify(ctx, req.GetValue())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyVerified):
			return nil, status.Error(codes.FailedPrecondition, "account already verified")
		case errors.Is(err, service.ErrInvalidToken),
			errors.Is(err, service.ErrStaleToken),
			errors.Is(err, service.ErrUserNotFound):
			logrus.WithError(err).Info("Verification rejected (grpc)")
			return nil, status.Error(codes.InvalidArgument, "invalid token")
		}
		logrus.WithError(err).Error("Verification failed (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return structpb.NewStruct(map[string]any{
		"public_id":    user.PublicID,
		"username":     user.Username,
		"state":        string(service.StateVerified),
		"redirect_url": s.profileURL,
	})
}
