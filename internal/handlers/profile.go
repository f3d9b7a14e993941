package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"personahub/api/internal/middleware"
)

type updateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.profileService.UpdateName(c.Request.Context(), principal.ID, req.Name); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.profileService.ChangePassword(c.Request.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}

func (h HandlerSet) UploadAvatar(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar file is required"})
		return
	}
	defer file.Close()

	avatarURL, err := h.profileService.UploadAvatar(c.Request.Context(), principal.ID, file, header)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatarUrl": avatarURL})
}

// GetAccount serves account detail for admins and for the account
// owner (the route is gated by RequireRolesOrSelf).
func (h HandlerSet) GetAccount(c *gin.Context) {
	account, err := h.accounts.GetByID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}
