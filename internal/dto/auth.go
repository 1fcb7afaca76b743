package dto

import "e2ee-chat/internal/domain"

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UsernameRequest struct {
	Username string `json:"username"`
}

// APIResponse is the uniform REST response body the client expects.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// IdentityData field names (User_id, Username) are part of the client
// contract.
type IdentityData struct {
	UserID   domain.UserID `json:"User_id"`
	Username string        `json:"Username,omitempty"`
}
