package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personahub/api/internal/config"
	"personahub/api/internal/models"
	"personahub/api/internal/security"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

type personaFixture struct {
	svc      *PersonaService
	personas *fakePersonaStore
	chats    *fakeChatStore
}

func newPersonaFixture(t *testing.T) *personaFixture {
	t.Helper()
	cfg := &config.AppConfig{
		Security: config.SecurityConfig{EncryptionKey: testEncryptionKey},
		Persona:  config.PersonaConfig{WebhookTimeout: 2 * time.Second},
	}
	fx := &personaFixture{
		personas: newFakePersonaStore(),
		chats:    newFakeChatStore(),
	}
	fx.svc = NewPersonaService(fx.personas, fx.chats, cfg, zerolog.Nop())
	return fx
}

func testPrincipal(workspaceID string) models.Principal {
	return models.Principal{
		ID:          "acc-1",
		Email:       "ada@example.com",
		Name:        "Ada",
		Role:        models.RoleAdmin,
		WorkspaceID: workspaceID,
	}
}

func TestPersonaCreate_EncryptsWebhookURL(t *testing.T) {
	fx := newPersonaFixture(t)
	ctx := context.Background()
	principal := testPrincipal("ws-1")

	persona, err := fx.svc.Create(ctx, principal, PersonaInput{
		Name:         "Support Bot",
		SystemPrompt: "You are helpful.",
		WebhookURL:   "https://hooks.example.com/persona/1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ws-1", persona.WorkspaceID)
	assert.Equal(t, "acc-1", persona.CreatedBy)

	// stored form is ciphertext, not the URL
	stored, err := fx.personas.GetByID(ctx, persona.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.WebhookURLEncrypted, "hooks.example.com")

	plaintext, err := security.Decrypt(stored.WebhookURLEncrypted, testEncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/persona/1", plaintext)
}

func TestPersonaCreate_Validation(t *testing.T) {
	fx := newPersonaFixture(t)

	_, err := fx.svc.Create(context.Background(), testPrincipal("ws-1"), PersonaInput{
		Name:       "",
		WebhookURL: "ftp://not-http.example.com",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 2)
}

func TestPersonaGet_CrossWorkspaceHidden(t *testing.T) {
	fx := newPersonaFixture(t)
	ctx := context.Background()

	persona, err := fx.svc.Create(ctx, testPrincipal("ws-1"), PersonaInput{
		Name:       "Support Bot",
		WebhookURL: "https://hooks.example.com/persona/1",
	})
	require.NoError(t, err)

	// same id, different tenant: reported as not found, not forbidden
	_, err = fx.svc.Get(ctx, testPrincipal("ws-2"), persona.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, fx.svc.Delete(ctx, testPrincipal("ws-2"), persona.ID), ErrNotFound)
}

func TestPersonaUpdate_ReencryptsWebhookURL(t *testing.T) {
	fx := newPersonaFixture(t)
	ctx := context.Background()
	principal := testPrincipal("ws-1")

	persona, err := fx.svc.Create(ctx, principal, PersonaInput{
		Name:       "Support Bot",
		WebhookURL: "https://hooks.example.com/persona/1",
	})
	require.NoError(t, err)

	updated, err := fx.svc.Update(ctx, principal, persona.ID, PersonaInput{
		Name:       "Sales Bot",
		WebhookURL: "https://hooks.example.com/persona/2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sales Bot", updated.Name)

	plaintext, err := security.Decrypt(updated.WebhookURLEncrypted, testEncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/persona/2", plaintext)
}

func TestPostMessage_DispatchesToWebhook(t *testing.T) {
	fx := newPersonaFixture(t)
	ctx := context.Background()
	principal := testPrincipal("ws-1")

	var received webhookRequest
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"reply": "Hello from the persona"})
	}))
	defer webhook.Close()

	persona, err := fx.svc.Create(ctx, principal, PersonaInput{
		Name:         "Support Bot",
		SystemPrompt: "You are helpful.",
		WebhookURL:   webhook.URL,
	})
	require.NoError(t, err)

	session, err := fx.svc.StartSession(ctx, principal, persona.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Chat with Support Bot", session.Title)

	exchange, err := fx.svc.PostMessage(ctx, principal, session.ID, "Hi there")
	require.NoError(t, err)

	assert.Equal(t, session.ID, received.SessionID)
	assert.Equal(t, "You are helpful.", received.SystemPrompt)
	assert.Equal(t, "Hi there", received.Message)

	assert.Equal(t, models.ChatMessageRoleUser, exchange.UserMessage.Role)
	assert.Equal(t, "Hi there", exchange.UserMessage.Content)
	assert.Equal(t, models.ChatMessageRoleAssistant, exchange.AssistantMessage.Role)
	assert.Equal(t, "Hello from the persona", exchange.AssistantMessage.Content)

	messages, err := fx.svc.ListMessages(ctx, principal, session.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestPostMessage_WebhookFailure(t *testing.T) {
	fx := newPersonaFixture(t)
	ctx := context.Background()
	principal := testPrincipal("ws-1")

	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer webhook.Close()

	persona, err := fx.svc.Create(ctx, principal, PersonaInput{
		Name:       "Support Bot",
		WebhookURL: webhook.URL,
	})
	require.NoError(t, err)

	session, err := fx.svc.StartSession(ctx, principal, persona.ID, "Debugging")
	require.NoError(t, err)

	_, err = fx.svc.PostMessage(ctx, principal, session.ID, "Hi there")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPostMessage_ForeignSessionHidden(t *testing.T) {
	fx := newPersonaFixture(t)
	ctx := context.Background()
	owner := testPrincipal("ws-1")

	persona, err := fx.svc.Create(ctx, owner, PersonaInput{
		Name:       "Support Bot",
		WebhookURL: "https://hooks.example.com/persona/1",
	})
	require.NoError(t, err)

	session, err := fx.svc.StartSession(ctx, owner, persona.ID, "Private")
	require.NoError(t, err)

	other := owner
	other.ID = "acc-2"
	_, err = fx.svc.PostMessage(ctx, other, session.ID, "Hi")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.ListMessages(ctx, other, session.ID, 50, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostMessage_EmptyContent(t *testing.T) {
	fx := newPersonaFixture(t)

	_, err := fx.svc.PostMessage(context.Background(), testPrincipal("ws-1"), "any", "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
