package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-signup/app/service"
	"github.com/vibast-solutions/ms-go-signup/app/types"
)

const (
	HeaderAPIKey = "X-API-Key"

	ContextKeyCallerService   = "caller_service"
	ContextKeyCallerAccessMap = "caller_allowed_access"
)

type APIKeyMiddleware struct {
	authService service.InternalAuthService
}

func NewAPIKeyMiddleware(authService service.InternalAuthService) *APIKeyMiddleware {
	return &APIKeyMiddleware{authService: authService}
}

// RequireAccess admits callers whose API key carries the given allowed access.
func (m *APIKeyMiddleware) RequireAccess(access string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Let CORS preflight pass.
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			apiKey := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
			if apiKey == "" {
				logrus.Debug("Missing x-api-key header")
				return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized"})
			}

			caller, err := m.authService.AuthorizeInternalAPIKey(c.Request().Context(), apiKey, access)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrInvalidInternalAPIKey):
					logrus.Debug("Invalid x-api-key header")
					return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "unauthorized"})
				case errors.Is(err, service.ErrInternalAccessDenied):
					logrus.WithFields(logrus.Fields{
						"caller": caller.ServiceName,
						"access": access,
					}).Warn("API key lacks required access")
					return c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "forbidden"})
				}
				logrus.WithError(err).Error("API key validation failed")
				return c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
			}

			c.Set(ContextKeyCallerService, caller.ServiceName)
			c.Set(ContextKeyCallerAccessMap, caller.AllowedAccess)
			return next(c)
		}
	}
}
