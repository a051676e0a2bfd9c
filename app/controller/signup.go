package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-signup/app/service"
	"github.com/vibast-solutions/ms-go-signup/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	signUpView        = "sign-up"
	confirmSignUpView = "sign-up-confirm"
)

type SignUpController struct {
	signUpService service.SignUpService
	profileURL    string
}

func NewSignUpController(signUpService service.SignUpService, profileURL string) *SignUpController {
	return &SignUpController{
		signUpService: signUpService,
		profileURL:    profileURL,
	}
}

// Register answers 201 with a Location header and an empty body.
func (c *SignUpController) Register(ctx echo.Context) error {
	req, err := types.NewSignUpRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind sign-up request")
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid request body"})
	}

	logrus.WithField("username", req.Username).Info("Sign-up request received")
	result, err := c.signUpService.Register(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrWeakPassword):
			logrus.WithField("username", req.Username).Debug("Sign-up validation failed")
			return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrUserExists):
			return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: service.ErrUserExists.Error()})
		}
		logrus.WithError(err).WithField("username", req.Username).Error("Sign-up failed")
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
	}

	ctx.Response().Header().Set(echo.HeaderLocation, "/api/v1/users/"+result.PublicID)
	return ctx.NoContent(http.StatusCreated)
}

// ConfirmVerify hands the token to a confirm view that submits it with POST.
func (c *SignUpController) ConfirmVerify(ctx echo.Context) error {
	req, err := types.NewVerifyRequestFromContext(ctx)
	if err != nil || req.Validate() != nil {
		return ctx.JSON(http.StatusBadRequest, types.ViewResponse{View: signUpView, Error: "invalid token"})
	}
	return ctx.JSON(http.StatusOK, types.ViewResponse{View: confirmSignUpView, Token: req.Token})
}

// Verify redirects to the profile page once the account is enabled.
func (c *SignUpController) Verify(ctx echo.Context) error {
	req, err := types.NewVerifyRequestFromContext(ctx)
	if err != nil || req.Validate() != nil {
		return ctx.JSON(http.StatusBadRequest, types.ViewResponse{View: signUpView, Error: "invalid token"})
	}

	user, err := c.signUpService.Verify(ctx.Request().Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyVerified):
			return ctx.JSON(http.StatusBadRequest, types.ViewResponse{View: signUpView, Error: "account already verified"})
		case errors.Is(err, service.ErrInvalidToken),
			errors.Is(err, service.ErrStaleToken),
			errors.Is(err, service.ErrUserNotFound):
			logrus.WithError(err).Info("Verification rejected")
			return ctx.JSON(http.StatusBadRequest, types.ViewResponse{View: signUpView, Error: "invalid token"})
		}
		logrus.WithError(err).Error("Verification failed")
		return ctx.JSON(http.StatusInternalServerError, types.ViewResponse{View: signUpView, Error: "internal server error"})
	}

	logrus.WithField("public_id", user.PublicID).Info("Redirecting verified user to profile")
	return ctx.Redirect(http.StatusFound, c.profileURL)
}
