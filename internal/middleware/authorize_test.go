package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"personahub/api/internal/models"
)

func withPrincipal(principal models.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(principalKey, principal)
	}
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func serveAuthorized(path, requestPath string, principal *models.Principal, guard gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := []gin.HandlerFunc{}
	if principal != nil {
		handlers = append(handlers, withPrincipal(*principal))
	}
	handlers = append(handlers, guard, okHandler)
	router.GET(path, handlers...)

	req := httptest.NewRequest(http.MethodGet, requestPath, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireRoles_NoPrincipal(t *testing.T) {
	w := serveAuthorized("/x", "/x", nil, RequireRoles("ADMIN"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestRequireRoles_Match(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleAdmin, WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequireRoles("ADMIN"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoles_CaseInsensitive(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleAdmin, WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequireRoles(" admin "))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoles_Mismatch(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleMember, WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequireRoles("ADMIN"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient role")
}

func TestRequireRolesOrSelf_PermitsOwnResource(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleMember, WorkspaceID: "ws-1"}
	w := serveAuthorized("/users/:uid", "/users/acc-1", principal, RequireRolesOrSelf("ADMIN"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesOrSelf_RejectsOtherResource(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleMember, WorkspaceID: "ws-1"}
	w := serveAuthorized("/users/:uid", "/users/acc-2", principal, RequireRolesOrSelf("ADMIN"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesOrSelf_AdminBypassesSelfCheck(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleAdmin, WorkspaceID: "ws-1"}
	w := serveAuthorized("/users/:uid", "/users/acc-2", principal, RequireRolesOrSelf("ADMIN"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_NoPrincipal(t *testing.T) {
	w := serveAuthorized("/x", "/x", nil, RequirePermission(models.PermPersonasWrite))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestRequirePermission_UnknownRole(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.Role("SUPERUSER"), WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequirePermission(models.PermPersonasRead))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "User role not found or invalid")
}

func TestRequirePermission_MemberDeniedWrite(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleMember, WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequirePermission(models.PermPersonasWrite))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient permissions")
}

func TestRequirePermission_MemberAllowedRead(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleMember, WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequirePermission(models.PermPersonasRead))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_AdminHasManage(t *testing.T) {
	principal := &models.Principal{ID: "acc-1", Role: models.RoleAdmin, WorkspaceID: "ws-1"}
	w := serveAuthorized("/x", "/x", principal, RequirePermission(models.PermAccountsManage))
	assert.Equal(t, http.StatusOK, w.Code)
}
