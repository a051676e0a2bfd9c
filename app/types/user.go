package types

import (
	"time"

	"github.com/vibast-solutions/ms-go-signup/app/entity"
)

const (
	OperationSuccess = "SUCCESS"
	OperationFailure = "FAILURE"
)

type UserResponse struct {
	PublicID  string    `json:"public_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserResponse(user *entity.User) UserResponse {
	return UserResponse{
		PublicID:  user.PublicID,
		Username:  user.Username,
		Email:     user.Email,
		Enabled:   user.Enabled,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type PageRequest struct {
	Page int    `query:"page"`
	Size int    `query:"size"`
	Sort string `query:"sort"`
}

type UserPage struct {
	Content       []UserResponse `json:"content"`
	Page          int            `json:"page"`
	Size          int            `json:"size"`
	TotalElements int64          `json:"total_elements"`
	TotalPages    int            `json:"total_pages"`
}

type OperationStatusResponse struct {
	Status string `json:"status"`
}
