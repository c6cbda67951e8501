package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/persistence/sqlite/model"
	"cashoffer/internal/ports"
)

const (
	MinPasswordLength = 8

	revokedKeyPrefix = "revoked_token:"
)

var (
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail = errors.New("invalid email address")
)

type Options struct {
	JWTSecret       string
	TokenTTL        time.Duration
	VerificationTTL time.Duration
	BcryptCost      int
}

// Provider is a local identity provider backed by the users table.
type Provider struct {
	db      *gorm.DB
	revoked ports.KVStore
	sender  ports.VerificationSender
	tokens  *tokenCodec
	opts    Options
	now     func() time.Time
}

var _ ports.Identity = (*Provider)(nil)

func NewProvider(db *gorm.DB, revoked ports.KVStore, sender ports.VerificationSender, opts Options) (*Provider, error) {
	if db == nil {
		return nil, errors.New("identity database is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 48 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	p := &Provider{db: db, revoked: revoked, sender: sender, opts: opts, now: time.Now}
	tokens, err := newTokenCodec(opts.JWTSecret, func() time.Time { return p.now() })
	if err != nil {
		return nil, err
	}
	p.tokens = tokens
	return p, nil
}

func (p *Provider) CurrentSession(ctx context.Context, token string) (*ports.Session, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	claims, err := p.tokens.parse(token, purposeSession)
	if err != nil {
		return nil, err
	}

	revoked, err := p.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: signed out", ports.ErrInvalidToken)
	}

	user, err := p.userByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ports.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ports.ErrInvalidToken)
		}
		return nil, err
	}
	session := sessionOf(user)
	return &session, nil
}

func (p *Provider) SignUp(ctx context.Context, input ports.SignUpInput) (ports.Account, error) {
	if ctx == nil {
		return ports.Account{}, errors.New("context is required")
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return ports.Account{}, err
	}
	if len(input.Password) < MinPasswordLength {
		return ports.Account{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), p.opts.BcryptCost)
	if err != nil {
		return ports.Account{}, errs.Wrap(err, "hash password")
	}

	now := p.now().UTC()
	row := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return errs.Wrap(err, "count users by email")
		}
		if count > 0 {
			return ports.ErrEmailAlreadyRegistered
		}
		if err := tx.Create(&row).Error; err != nil {
			return errs.Wrap(err, "insert user")
		}
		return nil
	}); err != nil {
		return ports.Account{}, err
	}

	ctx = logging.WithAttrs(ctx, slog.String("component", "identity"), slog.String("user_id", row.ID))
	logging.Info(ctx, "account created")
	if err := p.sendVerification(ctx, row); err != nil {
		logging.Warn(ctx, "send verification failed", slog.Any("err", errs.Loggable(err)))
	}
	return accountOf(row), nil
}

func (p *Provider) SignIn(ctx context.Context, email string, password string) (ports.AuthToken, error) {
	if ctx == nil {
		return ports.AuthToken{}, errors.New("context is required")
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return ports.AuthToken{}, ports.ErrInvalidCredentials
	}

	user, err := p.userByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ports.ErrAccountNotFound) {
			return ports.AuthToken{}, ports.ErrInvalidCredentials
		}
		return ports.AuthToken{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ports.AuthToken{}, ports.ErrInvalidCredentials
	}

	signed, claims, err := p.tokens.issue(user.ID, user.Email, purposeSession, p.opts.TokenTTL)
	if err != nil {
		return ports.AuthToken{}, err
	}
	return ports.AuthToken{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		Session:   sessionOf(user),
	}, nil
}

// SignOut revokes the token until it would have expired anyway.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	claims, err := p.tokens.parse(strings.TrimSpace(token), purposeSession)
	if err != nil {
		return err
	}
	if p.revoked == nil {
		return errors.New("revocation store is required")
	}

	ttl := claims.ExpiresAt.Time.Sub(p.now())
	if ttl <= 0 {
		return nil
	}
	if err := p.revoked.Set(ctx, revokedKeyPrefix+claims.ID, claims.Subject, ttl); err != nil {
		return errs.Wrap(err, "revoke token")
	}
	return nil
}

// ResendVerification is silent for unknown or already verified addresses.
func (p *Provider) ResendVerification(ctx context.Context, email string) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := p.userByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ports.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerifiedAt != nil {
		return nil
	}
	return p.sendVerification(ctx, user)
}

func (p *Provider) VerifyEmail(ctx context.Context, verificationToken string) (ports.Session, error) {
	if ctx == nil {
		return ports.Session{}, errors.New("context is required")
	}

	claims, err := p.tokens.parse(strings.TrimSpace(verificationToken), purposeVerify)
	if err != nil {
		return ports.Session{}, err
	}
	user, err := p.userByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ports.ErrAccountNotFound) {
			return ports.Session{}, fmt.Errorf("%w: unknown subject", ports.ErrInvalidToken)
		}
		return ports.Session{}, err
	}
	if !strings.EqualFold(user.Email, claims.Email) {
		return ports.Session{}, fmt.Errorf("%w: email changed", ports.ErrInvalidToken)
	}
	return p.markVerified(ctx, user)
}

// ConfirmEmail marks an address verified without a token, for operators.
func (p *Provider) ConfirmEmail(ctx context.Context, email string) (ports.Session, error) {
	if ctx == nil {
		return ports.Session{}, errors.New("context is required")
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return ports.Session{}, err
	}
	user, err := p.userByEmail(ctx, normalized)
	if err != nil {
		return ports.Session{}, err
	}
	return p.markVerified(ctx, user)
}

func (p *Provider) markVerified(ctx context.Context, user model.User) (ports.Session, error) {
	if user.EmailVerifiedAt != nil {
		return sessionOf(user), nil
	}

	now := p.now().UTC()
	if err := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND email_verified_at IS NULL", user.ID).
		Updates(map[string]any{
			"email_verified_at": now,
			"updated_at":        now,
		}).Error; err != nil {
		return ports.Session{}, errs.Wrap(err, "mark email verified")
	}
	user.EmailVerifiedAt = &now
	return sessionOf(user), nil
}

func (p *Provider) sendVerification(ctx context.Context, user model.User) error {
	if p.sender == nil {
		return nil
	}
	signed, _, err := p.tokens.issue(user.ID, user.Email, purposeVerify, p.opts.VerificationTTL)
	if err != nil {
		return err
	}
	return p.sender.SendVerification(ctx, user.Email, signed)
}

func (p *Provider) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if p.revoked == nil {
		return false, nil
	}
	_, found, err := p.revoked.Get(ctx, revokedKeyPrefix+tokenID)
	if err != nil {
		return false, errs.Wrap(err, "check token revocation")
	}
	return found, nil
}

func (p *Provider) userByID(ctx context.Context, userID string) (model.User, error) {
	var row model.User
	if err := p.db.WithContext(ctx).Where("id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, ports.ErrAccountNotFound
		}
		return model.User{}, errs.Wrap(err, "query user by id")
	}
	return row, nil
}

func (p *Provider) userByEmail(ctx context.Context, email string) (model.User, error) {
	var row model.User
	if err := p.db.WithContext(ctx).Where("email = ?", email).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, ports.ErrAccountNotFound
		}
		return model.User{}, errs.Wrap(err, "query user by email")
	}
	return row, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w %q", ErrInvalidEmail, raw)
	}
	return email, nil
}

func sessionOf(user model.User) ports.Session {
	return ports.Session{
		UserID:          user.ID,
		Email:           user.Email,
		EmailVerifiedAt: user.EmailVerifiedAt,
	}
}

func accountOf(user model.User) ports.Account {
	return ports.Account{
		UserID:          user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Phone:           user.Phone,
		EmailVerifiedAt: user.EmailVerifiedAt,
		CreatedAt:       user.CreatedAt,
	}
}
