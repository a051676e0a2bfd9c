package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-signup/app/service"
	"github.com/vibast-solutions/ms-go-signup/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type UserAdminController struct {
	userAdminService service.UserAdminService
}

func NewUserAdminController(userAdminService service.UserAdminService) *UserAdminController {
	return &UserAdminController{userAdminService: userAdminService}
}

func (c *UserAdminController) List(ctx echo.Context) error {
	var req types.PageRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid pagination parameters"})
	}

	page, err := c.userAdminService.ListUsers(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid pagination parameters"})
		}
		logrus.WithError(err).Error("List users failed")
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
	}
	return ctx.JSON(http.StatusOK, page)
}

func (c *UserAdminController) Get(ctx echo.Context) error {
	user, err := c.userAdminService.GetUser(ctx.Request().Context(), ctx.Param("publicId"))
	if err != nil {
		return c.handleError(ctx, err, "Get user failed")
	}
	return ctx.JSON(http.StatusOK, types.NewUserResponse(user))
}

func (c *UserAdminController) Enable(ctx echo.Context) error {
	changed, err := c.userAdminService.EnableUser(ctx.Request().Context(), ctx.Param("publicId"))
	if err != nil {
		return c.handleError(ctx, err, "Enable user failed")
	}
	return ctx.JSON(http.StatusOK, operationStatus(changed))
}

func (c *UserAdminController) Disable(ctx echo.Context) error {
	changed, err := c.userAdminService.DisableUser(ctx.Request().Context(), ctx.Param("publicId"))
	if err != nil {
		return c.handleError(ctx, err, "Disable user failed")
	}
	return ctx.JSON(http.StatusOK, operationStatus(changed))
}

func (c *UserAdminController) Delete(ctx echo.Context) error {
	if err := c.userAdminService.DeleteUser(ctx.Request().Context(), ctx.Param("publicId")); err != nil {
		return c.handleError(ctx, err, "Delete user failed")
	}
	return ctx.JSON(http.StatusOK, types.OperationStatusResponse{Status: types.OperationSuccess})
}

func (c *UserAdminController) handleError(ctx echo.Context, err error, message string) error {
	if errors.Is(err, service.ErrUserNotFound) {
		return ctx.JSON(http.StatusNotFound, types.ErrorResponse{Error: "user not found"})
	}
	logrus.WithError(err).WithField("public_id", ctx.Param("publicId")).Error(message)
	return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
}

func operationStatus(changed bool) types.OperationStatusResponse {
	if changed {
		return types.OperationStatusResponse{Status: types.OperationSuccess}
	}
	return types.OperationStatusResponse{Status: types.OperationFailure}
}
