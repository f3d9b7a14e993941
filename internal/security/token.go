package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single error surfaced for any verification
// failure: bad signature, malformed token, expiry, or wrong purpose.
// Callers never learn which, so the error cannot be used as an oracle.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	purposeAccess  = "access"
	purposeRefresh = "refresh"
)

type SessionClaims struct {
	WorkspaceID string `json:"wid"`
	Role        string `json:"role"`
	Purpose     string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the stateless access/refresh token
// pair. Both purposes share one HMAC secret; a purpose claim keeps them
// non-interchangeable.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type TokenInput struct {
	AccountID   string
	WorkspaceID string
	Role        string
}

func (s *TokenService) IssueAccess(input TokenInput) (string, error) {
	return s.issue(input, purposeAccess, s.accessTTL)
}

func (s *TokenService) IssueRefresh(input TokenInput) (string, error) {
	return s.issue(input, purposeRefresh, s.refreshTTL)
}

func (s *TokenService) issue(input TokenInput, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		WorkspaceID: input.WorkspaceID,
		Role:        input.Role,
		Purpose:     purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// VerifyAccess parses and validates an access token. A refresh token
// presented here fails exactly like a forgery.
func (s *TokenService) VerifyAccess(tokenStr string) (*SessionClaims, error) {
	return s.verify(tokenStr, purposeAccess)
}

// VerifyRefresh parses and validates a refresh token. An access token
// presented here fails exactly like a forgery.
func (s *TokenService) VerifyRefresh(tokenStr string) (*SessionClaims, error) {
	return s.verify(tokenStr, purposeRefresh)
}

func (s *TokenService) verify(tokenStr string, purpose string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
