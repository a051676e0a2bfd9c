package types

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"
)

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewSignUpRequestFromContext(ctx echo.Context) (*SignUpRequest, error) {
	var body SignUpRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Normalize()
	return &body, nil
}

// Normalize trims the identity fields and lowercases the email.
func (r *SignUpRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type SignUpResult struct {
	PublicID string
	Username string
	Email    string
	State    string
}

type VerifyRequest struct {
	Token string `query:"token" form:"token" json:"token"`
}

func NewVerifyRequestFromContext(ctx echo.Context) (*VerifyRequest, error) {
	var req VerifyRequest
	// echo only binds the query string on GET, DELETE and HEAD
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Token) == "" {
		if err := ctx.Bind(&req); err != nil {
			return nil, err
		}
	}
	req.Token = strings.TrimSpace(req.Token)
	return &req, nil
}

func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ViewResponse tells the client which view to render after verification.
type ViewResponse struct {
	View  string `json:"view"`
	Error string `json:"error,omitempty"`
	Token string `json:"token,omitempty"`
}
