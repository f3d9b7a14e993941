package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"personahub/api/internal/middleware"
	"personahub/api/internal/models"
)

// AdminListAccounts lists the accounts of the caller's own workspace.
func (h HandlerSet) AdminListAccounts(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, offset := paginationParams(c)
	accounts, err := h.accounts.ListByWorkspace(c.Request.Context(), principal.WorkspaceID, limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, toAccountResponse(account))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// adminSettableStatuses are the transitions an admin may apply.
// ACTIVE reinstates, DEACTIVATED suspends, PENDING_DELETION schedules
// removal (the actual purge is handled elsewhere).
var adminSettableStatuses = map[models.AccountStatus]struct{}{
	models.AccountStatusActive:          {},
	models.AccountStatusDeactivated:     {},
	models.AccountStatusPendingDeletion: {},
}

func (h HandlerSet) AdminSetAccountStatus(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.AccountStatus(req.Status)
	if _, allowed := adminSettableStatuses[status]; !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	}

	targetID := c.Param("uid")
	if targetID == principal.ID && status != models.AccountStatusActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate your own account"})
		return
	}

	target, err := h.accounts.GetByID(c.Request.Context(), targetID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if target.WorkspaceID == nil || *target.WorkspaceID != principal.WorkspaceID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
		return
	}

	if err := h.accounts.UpdateStatus(c.Request.Context(), targetID, status); err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.log.Info().
		Str("admin_id", principal.ID).
		Str("account_id", targetID).
		Str("status", string(status)).
		Msg("account status changed")

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}
