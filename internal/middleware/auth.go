package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"personahub/api/internal/models"
	"personahub/api/internal/repository"
	"personahub/api/internal/security"
)

const principalKey = "principal"

const bearerPrefix = "Bearer "

// AccountLoader is the slice of the credential store the authenticator
// needs. Implemented by repository.AccountRepository; tests substitute
// an in-memory fake.
type AccountLoader interface {
	GetAuthRecord(ctx context.Context, id string) (repository.AuthRecord, error)
}

// Auth authenticates a request from its bearer token. The attached
// principal's role and workspace come from the freshly loaded account
// record, never from the token payload, so a role change takes effect
// on the next request even though tokens are stateless. The same
// re-load makes revocation-by-status-flip work: a deactivated account
// is rejected while its tokens are still cryptographically valid.
func Auth(tokens *security.TokenService, accounts AccountLoader, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing or malformed"})
			return
		}

		claims, err := tokens.VerifyAccess(token)
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		record, err := accounts.GetAuthRecord(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
				return
			}
			log.Error().Err(err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("account_id", claims.Subject).
				Msg("account load failed during authentication")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
			return
		}

		if record.Status != models.AccountStatusActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or inactive"})
			return
		}

		if record.WorkspaceID == nil || *record.WorkspaceID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User is not assigned to any workspace"})
			return
		}

		c.Set(principalKey, models.Principal{
			ID:          record.ID,
			Email:       record.Email,
			Name:        record.Name,
			Role:        record.Role,
			WorkspaceID: *record.WorkspaceID,
		})

		c.Next()
	}
}

// extractBearerToken accepts only the exact form "Bearer <token>":
// case-sensitive scheme, exactly one space, token free of surrounding
// whitespace.
func extractBearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" || strings.TrimSpace(token) != token {
		return "", false
	}
	return token, true
}

// CurrentPrincipal returns the principal attached by Auth.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}
