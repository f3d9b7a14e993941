package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"personahub/api/internal/models"
)

// RequireRoles allows the request through if the principal's role
// matches any of the required roles, compared case-insensitively after
// trimming.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return requireRoles(false, roles)
}

// RequireRolesOrSelf is RequireRoles with a permit-self escape hatch:
// if the role check fails but a resource-identifying route parameter
// (uid, then userId, then id) equals the principal's own id, the
// request passes anyway. Role match is checked first and
// short-circuits.
func RequireRolesOrSelf(roles ...string) gin.HandlerFunc {
	return requireRoles(true, roles)
}

func requireRoles(permitSelf bool, roles []string) gin.HandlerFunc {
	required := make([]string, 0, len(roles))
	for _, role := range roles {
		required = append(required, strings.ToUpper(strings.TrimSpace(role)))
	}

	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		have := strings.ToUpper(strings.TrimSpace(string(principal.Role)))
		for _, role := range required {
			if have == role {
				c.Next()
				return
			}
		}

		if permitSelf {
			for _, param := range []string{"uid", "userId", "id"} {
				if value := c.Param(param); value != "" {
					if value == principal.ID {
						c.Next()
						return
					}
					break
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}

// RequirePermission gates on the static role to permission-set table.
// An unrecognized role is an authentication failure (401), distinct
// from a known role lacking the permission (403).
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		perms, known := models.PermissionsForRole(principal.Role)
		if !known {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User role not found or invalid"})
			return
		}

		for _, p := range perms {
			if p == permission {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}
