package auth

import (
	"time"

	"college-erp/internal/account"
	"college-erp/internal/profile"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshToken stores refresh tokens in database
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AccountID uuid.UUID `bun:"account_id,type:uuid,notnull"`
	Token     string    `bun:"token,unique,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// LoginRequest is the request body for sign-in
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the request body for token refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is the response for successful authentication
type AuthResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         account.Summary `json:"user"`
}

type SessionResponse struct {
	User    account.Summary `json:"user"`
	Profile profile.Profile `json:"profile,omitempty"`
}
