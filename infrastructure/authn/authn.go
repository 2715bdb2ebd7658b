// Package authn issues and verifies signed session tokens and hashes
// passwords.
package authn

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrazmi/devcamper/sdk/environment"
)

var (
	ErrMissingSecret = errors.New("token secret is required")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims are what a session token asserts.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Tokens issues and verifies session tokens.
type Tokens interface {
	NewToken(userID string) (string, error)
	Verify(token string) (Claims, error)
}

// Options represents the exportable token configuration
type Options struct {
	Secret string        `env:"JWT_SECRET" required:"true"`
	Expire time.Duration `env:"JWT_EXPIRE" default:"720h"`
	Issuer string        `env:"JWT_ISSUER" default:"devcamper"`
}

// TokenService signs HS256 tokens with a shared secret.
type TokenService struct {
	secret []byte
	expire time.Duration
	issuer string
	now    func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewFromEnv builds a TokenService from environment variables.
func NewFromEnv(prefix string, opts ...Option) (*TokenService, error) {
	var cfg Options
	if err := environment.ParseEnvTags(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing token config: %w", err)
	}
	return New(cfg, opts...)
}

// New builds a TokenService from cfg.
func New(cfg Options, opts ...Option) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	s := &TokenService{
		secret: []byte(cfg.Secret),
		expire: cfg.Expire,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewToken signs a token for userID.
func (s *TokenService) NewToken(userID string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	if s.expire > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expire))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token.
func (s *TokenService) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
