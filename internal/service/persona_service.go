package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"personahub/api/internal/config"
	"personahub/api/internal/ids"
	"personahub/api/internal/models"
	"personahub/api/internal/security"
)

// PersonaService manages AI personas and their chat sessions. Persona
// webhook URLs are encrypted at rest; the plaintext is decrypted per
// dispatch and never cached.
type PersonaService struct {
	personas PersonaStore
	chats    ChatStore
	http     *resty.Client
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewPersonaService(
	personas PersonaStore,
	chats ChatStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *PersonaService {
	client := resty.New().
		SetTimeout(cfg.Persona.WebhookTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PersonaService{
		personas: personas,
		chats:    chats,
		http:     client,
		cfg:      cfg,
		log:      log,
	}
}

type PersonaInput struct {
	Name         string
	SystemPrompt string
	WebhookURL   string
}

func (s *PersonaService) Create(ctx context.Context, principal models.Principal, input PersonaInput) (models.Persona, error) {
	if err := validatePersonaInput(input); err != nil {
		return models.Persona{}, err
	}

	encrypted, err := security.Encrypt(input.WebhookURL, s.cfg.Security.EncryptionKey)
	if err != nil {
		return models.Persona{}, fmt.Errorf("encrypt webhook url: %w", err)
	}

	persona := models.Persona{
		ID:                  ids.New(),
		WorkspaceID:         principal.WorkspaceID,
		Name:                strings.TrimSpace(input.Name),
		SystemPrompt:        input.SystemPrompt,
		WebhookURLEncrypted: encrypted,
		CreatedBy:           principal.ID,
	}

	if err := s.personas.Create(ctx, persona); err != nil {
		return models.Persona{}, err
	}
	return persona, nil
}

func (s *PersonaService) Update(ctx context.Context, principal models.Principal, personaID string, input PersonaInput) (models.Persona, error) {
	if err := validatePersonaInput(input); err != nil {
		return models.Persona{}, err
	}

	persona, err := s.getTenanted(ctx, principal, personaID)
	if err != nil {
		return models.Persona{}, err
	}

	encrypted, err := security.Encrypt(input.WebhookURL, s.cfg.Security.EncryptionKey)
	if err != nil {
		return models.Persona{}, fmt.Errorf("encrypt webhook url: %w", err)
	}

	persona.Name = strings.TrimSpace(input.Name)
	persona.SystemPrompt = input.SystemPrompt
	persona.WebhookURLEncrypted = encrypted

	if err := s.personas.Update(ctx, persona); err != nil {
		return models.Persona{}, err
	}
	return persona, nil
}

func (s *PersonaService) Get(ctx context.Context, principal models.Principal, personaID string) (models.Persona, error) {
	return s.getTenanted(ctx, principal, personaID)
}

func (s *PersonaService) List(ctx context.Context, principal models.Principal, limit, offset int) ([]models.Persona, error) {
	return s.personas.ListByWorkspace(ctx, principal.WorkspaceID, limit, offset)
}

func (s *PersonaService) Delete(ctx context.Context, principal models.Principal, personaID string) error {
	if _, err := s.getTenanted(ctx, principal, personaID); err != nil {
		return err
	}
	return s.personas.Delete(ctx, personaID)
}

// getTenanted loads a persona and enforces the workspace boundary. A
// persona in another workspace is reported as not found, not forbidden,
// so ids do not leak across tenants.
func (s *PersonaService) getTenanted(ctx context.Context, principal models.Principal, personaID string) (models.Persona, error) {
	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return models.Persona{}, err
	}
	if persona.WorkspaceID != principal.WorkspaceID {
		return models.Persona{}, ErrNotFound
	}
	return persona, nil
}

func validatePersonaInput(input PersonaInput) error {
	var issues []string

	if strings.TrimSpace(input.Name) == "" {
		issues = append(issues, "Persona name is required")
	}
	if strings.TrimSpace(input.WebhookURL) == "" {
		issues = append(issues, "Webhook URL is required")
	} else if u, err := url.Parse(input.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, "Webhook URL must be a valid http(s) URL")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func (s *PersonaService) StartSession(ctx context.Context, principal models.Principal, personaID string, title string) (models.ChatSession, error) {
	persona, err := s.getTenanted(ctx, principal, personaID)
	if err != nil {
		return models.ChatSession{}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("Chat with %s", persona.Name)
	}

	session := models.ChatSession{
		ID:          ids.New(),
		PersonaID:   persona.ID,
		WorkspaceID: principal.WorkspaceID,
		AccountID:   principal.ID,
		Title:       title,
	}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return models.ChatSession{}, err
	}
	return session, nil
}

func (s *PersonaService) ListSessions(ctx context.Context, principal models.Principal, limit, offset int) ([]models.ChatSession, error) {
	return s.chats.ListSessionsByAccount(ctx, principal.ID, limit, offset)
}

func (s *PersonaService) ListMessages(ctx context.Context, principal models.Principal, sessionID string, limit, offset int) ([]models.ChatMessage, error) {
	if _, err := s.getOwnSession(ctx, principal, sessionID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, sessionID, limit, offset)
}

type webhookRequest struct {
	SessionID    string `json:"session_id"`
	SystemPrompt string `json:"system_prompt"`
	Message      string `json:"message"`
}

type webhookResponse struct {
	Reply string `json:"reply"`
}

type ChatExchange struct {
	UserMessage      models.ChatMessage
	AssistantMessage models.ChatMessage
}

// PostMessage stores the user's message, dispatches it to the
// persona's webhook, and stores the reply. The webhook URL is
// decrypted for this call only.
func (s *PersonaService) PostMessage(ctx context.Context, principal models.Principal, sessionID string, content string) (ChatExchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return ChatExchange{}, &ValidationError{Issues: []string{"Message content is required"}}
	}

	session, err := s.getOwnSession(ctx, principal, sessionID)
	if err != nil {
		return ChatExchange{}, err
	}

	persona, err := s.personas.GetByID(ctx, session.PersonaID)
	if err != nil {
		return ChatExchange{}, err
	}

	webhookURL, err := security.Decrypt(persona.WebhookURLEncrypted, s.cfg.Security.EncryptionKey)
	if err != nil {
		s.log.Error().Err(err).Str("persona_id", persona.ID).Msg("webhook url decryption failed")
		return ChatExchange{}, fmt.Errorf("decrypt webhook url: %w", err)
	}

	userMessage := models.ChatMessage{
		ID:        ids.New(),
		SessionID: session.ID,
		Role:      models.ChatMessageRoleUser,
		Content:   content,
	}
	if err := s.chats.CreateMessage(ctx, userMessage); err != nil {
		return ChatExchange{}, err
	}

	var reply webhookResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(webhookRequest{
			SessionID:    session.ID,
			SystemPrompt: persona.SystemPrompt,
			Message:      content,
		}).
		SetResult(&reply).
		Post(webhookURL)
	if err != nil {
		return ChatExchange{}, fmt.Errorf("persona webhook: %w", err)
	}
	if !resp.IsSuccess() {
		return ChatExchange{}, fmt.Errorf("persona webhook: status %d", resp.StatusCode())
	}

	assistantMessage := models.ChatMessage{
		ID:        ids.New(),
		SessionID: session.ID,
		Role:      models.ChatMessageRoleAssistant,
		Content:   reply.Reply,
	}
	if err := s.chats.CreateMessage(ctx, assistantMessage); err != nil {
		return ChatExchange{}, err
	}

	if err := s.chats.TouchSession(ctx, session.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("touch session failed")
	}

	return ChatExchange{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

func (s *PersonaService) getOwnSession(ctx context.Context, principal models.Principal, sessionID string) (models.ChatSession, error) {
	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		return models.ChatSession{}, err
	}
	if session.WorkspaceID != principal.WorkspaceID || session.AccountID != principal.ID {
		return models.ChatSession{}, ErrNotFound
	}
	return session, nil
}
