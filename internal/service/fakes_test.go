package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"personahub/api/internal/models"
	"personahub/api/internal/repository"
)

var errTokenMissing = errors.New("token not found")

// In-memory store fakes shared by the service tests.

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]models.Account{}}
}

func (f *fakeAccountStore) Create(ctx context.Context, account models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.CreatedAt = time.Now()
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountStore) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return models.Account{}, repository.ErrAccountNotFound
}

func (f *fakeAccountStore) GetByID(ctx context.Context, id string) (models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return models.Account{}, repository.ErrAccountNotFound
	}
	return account, nil
}

func (f *fakeAccountStore) update(id string, fn func(*models.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	fn(&account)
	f.accounts[id] = account
	return nil
}

func (f *fakeAccountStore) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	return f.update(id, func(a *models.Account) { a.Status = status })
}

func (f *fakeAccountStore) MarkEmailVerified(ctx context.Context, id string) error {
	return f.update(id, func(a *models.Account) {
		a.EmailVerified = true
		if a.Status == models.AccountStatusPendingVerify {
			a.Status = models.AccountStatusActive
		}
	})
}

func (f *fakeAccountStore) RecordLoginSuccess(ctx context.Context, id string) error {
	now := time.Now()
	return f.update(id, func(a *models.Account) {
		a.LastLoginAt = &now
		a.FailedLoginCount = 0
		a.LockedUntil = nil
	})
}

func (f *fakeAccountStore) RecordLoginFailure(ctx context.Context, id string) (int, error) {
	var count int
	err := f.update(id, func(a *models.Account) {
		a.FailedLoginCount++
		count = a.FailedLoginCount
	})
	return count, err
}

func (f *fakeAccountStore) SetLockout(ctx context.Context, id string, until time.Time) error {
	return f.update(id, func(a *models.Account) { a.LockedUntil = &until })
}

func (f *fakeAccountStore) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	return f.update(id, func(a *models.Account) { a.PasswordHash = passwordHash })
}

func (f *fakeAccountStore) UpdateName(ctx context.Context, id string, name string) error {
	return f.update(id, func(a *models.Account) { a.Name = name })
}

func (f *fakeAccountStore) UpdateAvatarURL(ctx context.Context, id string, avatarURL string) error {
	return f.update(id, func(a *models.Account) { a.AvatarURL = &avatarURL })
}

func (f *fakeAccountStore) CountActiveInWorkspace(ctx context.Context, workspaceID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, account := range f.accounts {
		if account.WorkspaceID != nil && *account.WorkspaceID == workspaceID && account.Status == models.AccountStatusActive {
			count++
		}
	}
	return count, nil
}

type fakeWorkspaceStore struct {
	mu         sync.Mutex
	workspaces map[string]models.Workspace
}

func newFakeWorkspaceStore() *fakeWorkspaceStore {
	return &fakeWorkspaceStore{workspaces: map[string]models.Workspace{}}
}

func (f *fakeWorkspaceStore) Create(ctx context.Context, workspace models.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if workspace.CreatedAt.IsZero() {
		workspace.CreatedAt = time.Now()
	}
	f.workspaces[workspace.ID] = workspace
	return nil
}

func (f *fakeWorkspaceStore) GetByID(ctx context.Context, id string) (models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	workspace, ok := f.workspaces[id]
	if !ok {
		return models.Workspace{}, repository.ErrWorkspaceNotFound
	}
	return workspace, nil
}

func (f *fakeWorkspaceStore) FindByDomain(ctx context.Context, domain string) (models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, workspace := range f.workspaces {
		if workspace.Domain == domain {
			return workspace, nil
		}
	}
	return models.Workspace{}, repository.ErrWorkspaceNotFound
}

func (f *fakeWorkspaceStore) FindOldestActive(ctx context.Context) (models.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := make([]models.Workspace, 0, len(f.workspaces))
	for _, workspace := range f.workspaces {
		if workspace.Status == models.WorkspaceStatusActive {
			active = append(active, workspace)
		}
	}
	if len(active) == 0 {
		return models.Workspace{}, repository.ErrWorkspaceNotFound
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	return active[0], nil
}

type fakePersonaStore struct {
	mu       sync.Mutex
	personas map[string]models.Persona
}

func newFakePersonaStore() *fakePersonaStore {
	return &fakePersonaStore{personas: map[string]models.Persona{}}
}

func (f *fakePersonaStore) Create(ctx context.Context, persona models.Persona) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	persona.CreatedAt = time.Now()
	f.personas[persona.ID] = persona
	return nil
}

func (f *fakePersonaStore) GetByID(ctx context.Context, id string) (models.Persona, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	persona, ok := f.personas[id]
	if !ok {
		return models.Persona{}, repository.ErrPersonaNotFound
	}
	return persona, nil
}

func (f *fakePersonaStore) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]models.Persona, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Persona
	for _, persona := range f.personas {
		if persona.WorkspaceID == workspaceID {
			out = append(out, persona)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePersonaStore) Update(ctx context.Context, persona models.Persona) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.personas[persona.ID]; !ok {
		return repository.ErrPersonaNotFound
	}
	f.personas[persona.ID] = persona
	return nil
}

func (f *fakePersonaStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.personas[id]; !ok {
		return repository.ErrPersonaNotFound
	}
	delete(f.personas, id)
	return nil
}

type fakeChatStore struct {
	mu       sync.Mutex
	sessions map[string]models.ChatSession
	messages map[string][]models.ChatMessage
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		sessions: map[string]models.ChatSession{},
		messages: map[string][]models.ChatMessage{},
	}
}

func (f *fakeChatStore) CreateSession(ctx context.Context, session models.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeChatStore) GetSession(ctx context.Context, id string) (models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return models.ChatSession{}, repository.ErrChatSessionNotFound
	}
	return session, nil
}

func (f *fakeChatStore) ListSessionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatSession
	for _, session := range f.sessions {
		if session.AccountID == accountID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeChatStore) CreateMessage(ctx context.Context, message models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message.CreatedAt = time.Now()
	f.messages[message.SessionID] = append(f.messages[message.SessionID], message)
	return nil
}

func (f *fakeChatStore) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatMessage(nil), f.messages[sessionID]...), nil
}

func (f *fakeChatStore) TouchSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return repository.ErrChatSessionNotFound
	}
	session.UpdatedAt = time.Now()
	f.sessions[id] = session
	return nil
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]string{}}
}

func (f *fakeTokenStore) Put(ctx context.Context, kind string, token string, accountID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[kind+":"+token] = accountID
	return nil
}

func (f *fakeTokenStore) Take(ctx context.Context, kind string, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := kind + ":" + token
	accountID, ok := f.tokens[key]
	if !ok {
		return "", errTokenMissing
	}
	delete(f.tokens, key)
	return accountID, nil
}

type recordingMailer struct {
	mu            sync.Mutex
	verifyTokens  []string
	resetTokens   []string
	lastRecipient string
}

func (m *recordingMailer) SendVerification(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyTokens = append(m.verifyTokens, token)
	m.lastRecipient = email
	return nil
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens = append(m.resetTokens, token)
	m.lastRecipient = email
	return nil
}
