package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cashoffer/internal/ports"
)

const (
	purposeSession = "session"
	purposeVerify  = "verify_email"

	tokenIssuer = "cashoffer"
)

type tokenClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// tokenCodec signs and parses HS256 tokens.
type tokenCodec struct {
	signingKey []byte
	now        func() time.Time
}

func newTokenCodec(signingKey string, now func() time.Time) (*tokenCodec, error) {
	if signingKey == "" {
		return nil, errors.New("jwt signing key cannot be empty")
	}
	return &tokenCodec{signingKey: []byte(signingKey), now: now}, nil
}

func (c *tokenCodec) issue(userID string, email string, purpose string, ttl time.Duration) (string, *tokenClaims, error) {
	now := c.now()
	claims := &tokenClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

func (c *tokenCodec) parse(raw string, purpose string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.signingKey, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidToken, err)
	}
	if claims.Purpose != purpose || claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: wrong token purpose", ports.ErrInvalidToken)
	}
	return claims, nil
}
