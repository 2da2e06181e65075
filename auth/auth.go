// auth/auth.go
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenHeader carries the static API token.
const TokenHeader = "X-Notes-Token"

var ErrUnauthorized = errors.New("unauthorized")

type Config struct {
	// Token is the static API token. Empty disables static tokens.
	Token string
	// PasswordHash is a bcrypt hash checked by Login. When empty Login
	// accepts the static token as the password.
	PasswordHash string
	// Secret signs issued JWTs. When empty a random secret is used, so
	// tokens do not survive a restart.
	Secret string
	TTL    time.Duration
}

type Authenticator struct {
	token  string
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(cfg Config) (*Authenticator, error) {
	if cfg.Token == "" && cfg.PasswordHash == "" {
		return nil, errors.New("auth: a token or a password hash is required")
	}
	if cfg.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("auth: password hash: %w", err)
		}
	}
	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		token:  cfg.Token,
		hash:   []byte(cfg.PasswordHash),
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Login checks password and issues a signed token.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if len(a.hash) > 0 {
		if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
			return "", time.Time{}, ErrUnauthorized
		}
	} else if !a.staticMatch(password) {
		return "", time.Time{}, ErrUnauthorized
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   "notes",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify accepts the static token or a valid, unexpired issued token.
func (a *Authenticator) Verify(token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	if a.staticMatch(token) {
		return nil
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return ErrUnauthorized
	}
	return nil
}

func (a *Authenticator) staticMatch(token string) bool {
	return a.token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}

// Middleware rejects requests without a valid token. The token is read from
// TokenHeader, an "Authorization: Bearer" header, or the token query
// parameter used by websocket clients.
func (a *Authenticator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.Verify(tokenFrom(c)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		return c.Next()
	}
}

func tokenFrom(c *fiber.Ctx) string {
	if token := c.Get(TokenHeader); token != "" {
		return token
	}
	if bearer, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return c.Query("token")
}

// HashPassword returns a bcrypt hash suitable for Config.PasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
