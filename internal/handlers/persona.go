package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"personahub/api/internal/middleware"
	"personahub/api/internal/models"
	"personahub/api/internal/service"
)

type personaRequest struct {
	Name         string `json:"name" binding:"required"`
	SystemPrompt string `json:"systemPrompt"`
	WebhookURL   string `json:"webhookUrl" binding:"required"`
}

// personaResponse never carries the webhook URL, encrypted or not.
type personaResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SystemPrompt string    `json:"systemPrompt"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toPersonaResponse(persona models.Persona) personaResponse {
	return personaResponse{
		ID:           persona.ID,
		Name:         persona.Name,
		SystemPrompt: persona.SystemPrompt,
		CreatedBy:    persona.CreatedBy,
		CreatedAt:    persona.CreatedAt,
		UpdatedAt:    persona.UpdatedAt,
	}
}

func (h HandlerSet) CreatePersona(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona, err := h.personaService.Create(c.Request.Context(), principal, service.PersonaInput{
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		WebhookURL:   req.WebhookURL,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPersonaResponse(persona))
}

func (h HandlerSet) UpdatePersona(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona, err := h.personaService.Update(c.Request.Context(), principal, c.Param("id"), service.PersonaInput{
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		WebhookURL:   req.WebhookURL,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPersonaResponse(persona))
}

func (h HandlerSet) GetPersona(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	persona, err := h.personaService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPersonaResponse(persona))
}

func (h HandlerSet) ListPersonas(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, offset := paginationParams(c)
	personas, err := h.personaService.List(c.Request.Context(), principal, limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	items := make([]personaResponse, 0, len(personas))
	for _, persona := range personas {
		items = append(items, toPersonaResponse(persona))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) DeletePersona(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.personaService.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Persona deleted"})
}

type startSessionRequest struct {
	Title string `json:"title"`
}

func (h HandlerSet) StartChatSession(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.personaService.StartSession(c.Request.Context(), principal, c.Param("id"), req.Title)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        session.ID,
		"personaId": session.PersonaID,
		"title":     session.Title,
		"createdAt": session.CreatedAt,
	})
}

func (h HandlerSet) ListChatSessions(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, offset := paginationParams(c)
	sessions, err := h.personaService.ListSessions(c.Request.Context(), principal, limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, gin.H{
			"id":        session.ID,
			"personaId": session.PersonaID,
			"title":     session.Title,
			"createdAt": session.CreatedAt,
			"updatedAt": session.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) ListChatMessages(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	limit, offset := paginationParams(c)
	messages, err := h.personaService.ListMessages(c.Request.Context(), principal, c.Param("id"), limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(messages))
	for _, message := range messages {
		items = append(items, gin.H{
			"id":        message.ID,
			"role":      string(message.Role),
			"content":   message.Content,
			"createdAt": message.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h HandlerSet) PostChatMessage(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exchange, err := h.personaService.PostMessage(c.Request.Context(), principal, c.Param("id"), req.Content)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": gin.H{
			"id":        exchange.UserMessage.ID,
			"role":      string(exchange.UserMessage.Role),
			"content":   exchange.UserMessage.Content,
			"createdAt": exchange.UserMessage.CreatedAt,
		},
		"reply": gin.H{
			"id":        exchange.AssistantMessage.ID,
			"role":      string(exchange.AssistantMessage.Role),
			"content":   exchange.AssistantMessage.Content,
			"createdAt": exchange.AssistantMessage.CreatedAt,
		},
	})
}
