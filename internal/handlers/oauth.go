package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type googleCallbackRequest struct {
	Code string `json:"code" binding:"required"`
}

// GoogleCallback exchanges the authorization code for a Google profile
// and runs it through the account linker.
func (h HandlerSet) GoogleCallback(c *gin.Context) {
	var req googleCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.google.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		h.logRequestError(c, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "OAuth provider exchange failed"})
		return
	}

	result, err := h.oauthService.Login(c.Request.Context(), profile)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"user":         toAccountResponse(result.Account),
		"isNewUser":    result.IsNewUser,
	})
}
