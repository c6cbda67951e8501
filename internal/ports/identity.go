package ports

import (
	"context"
	"errors"
	"time"
)

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrAccountNotFound        = errors.New("account not found")
)

// Session is the authenticated caller as the core sees it.
type Session struct {
	UserID          string
	Email           string
	EmailVerifiedAt *time.Time
}

func (s *Session) EmailVerified() bool {
	return s != nil && s.EmailVerifiedAt != nil && !s.EmailVerifiedAt.IsZero()
}

type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type Account struct {
	UserID          string
	Email           string
	FirstName       string
	LastName        string
	Phone           string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
}

// AuthToken is an issued bearer token and the session it resolves to.
type AuthToken struct {
	Token     string
	ExpiresAt time.Time
	Session   Session
}

// Identity is the authentication provider.
// CurrentSession returns (nil, nil) for an empty token.
type Identity interface {
	CurrentSession(ctx context.Context, token string) (*Session, error)
	SignUp(ctx context.Context, input SignUpInput) (Account, error)
	SignIn(ctx context.Context, email string, password string) (AuthToken, error)
	SignOut(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, verificationToken string) (Session, error)
	ConfirmEmail(ctx context.Context, email string) (Session, error)
}

// VerificationSender delivers email verification links.
type VerificationSender interface {
	SendVerification(ctx context.Context, email string, token string) error
}
