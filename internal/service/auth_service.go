package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"user_management/internal/repository"
	"user_management/internal/security"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
)

type TokenConfig struct {
	SigningKey []byte
	TTL        time.Duration
}

// EphemeralSigningKey returns a random HMAC key. Tokens signed with it do not
// survive a restart.
func EphemeralSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID int
	Admin  bool
}

type AuthService struct {
	creds  repository.Credentials
	hasher security.Hasher
	key    []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(creds repository.Credentials, hasher security.Hasher, cfg TokenConfig) *AuthService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{creds: creds, hasher: hasher, key: cfg.SigningKey, ttl: ttl, now: time.Now}
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID int  `json:"user_id"`
	Admin  bool `json:"admin"`
}

// GenerateToken validates credentials and returns JWT
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.creds.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if !s.hasher.Verify(password, u.PasswordHash, u.Salt) {
		return "", ErrInvalidPassword
	}
	return s.issueToken(u.ID, u.Admin)
}

// ParseToken parses JWT and returns the bearer identity
func (s *AuthService) ParseToken(accessToken string) (Identity, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Admin: claims.Admin}, nil
}

func (s *AuthService) issueToken(userID int, admin bool) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
		Admin:  admin,
	})
	return token.SignedString(s.key)
}
