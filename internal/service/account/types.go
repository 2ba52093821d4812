package account

import "time"

// AuthState is the signed-in state carried by auth events.
type AuthState string

const (
	StateSignedIn  AuthState = "signed_in"
	StateSignedOut AuthState = "signed_out"
)

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Username    string `json:"username" validate:"required,max=64"`
	AccountType string `json:"account_type" validate:"max=32"`
	Age         *int   `json:"age" validate:"omitempty,min=0,max=150"`
	City        string `json:"city" validate:"max=128"`
	About       string `json:"about"`
	Interests   string `json:"interests"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a signed-in user's access token.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ConfirmPasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

type Ack struct{}

// AuthEvent is published on every sign-in and sign-out.
type AuthEvent struct {
	UserID string    `json:"user_id"`
	State  AuthState `json:"state"`
	Time   time.Time `json:"time"`
}

type WatchAuthStateRequest struct{}
