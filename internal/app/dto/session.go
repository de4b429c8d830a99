package dto

import "rentme-app/internal/domain/user"

type LoginRequest struct {
	User user.User `json:"user"`
}

type UpdateUserResponse struct {
	Applied bool       `json:"applied"`
	User    *user.User `json:"user,omitempty"`
}
