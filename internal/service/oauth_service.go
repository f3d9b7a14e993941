package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"personahub/api/internal/ids"
	"personahub/api/internal/models"
	"personahub/api/internal/oauth"
	"personahub/api/internal/repository"
	"personahub/api/internal/security"
)

// OAuthService links an OAuth profile to an account, creating account
// and workspace on first sign-in.
type OAuthService struct {
	accounts   AccountStore
	workspaces WorkspaceStore
	tokens     *security.TokenService
	log        zerolog.Logger
}

func NewOAuthService(
	accounts AccountStore,
	workspaces WorkspaceStore,
	tokens *security.TokenService,
	log zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		accounts:   accounts,
		workspaces: workspaces,
		tokens:     tokens,
		log:        log,
	}
}

type OAuthLoginResult struct {
	AuthResult
	IsNewUser bool
}

// Login runs the profile through validation, then the existing-user or
// new-user path, and finishes by issuing the same token pair password
// login does.
func (s *OAuthService) Login(ctx context.Context, profile oauth.Profile) (OAuthLoginResult, error) {
	email, err := validateProfile(profile)
	if err != nil {
		return OAuthLoginResult{}, err
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err == nil {
		return s.existingUser(ctx, account)
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return OAuthLoginResult{}, err
	}

	return s.newUser(ctx, profile, email)
}

// validateProfile enforces the profile gate, collecting every
// violation. The first syntactically valid email wins.
func validateProfile(profile oauth.Profile) (string, error) {
	var issues []string

	if strings.TrimSpace(profile.ProviderID) == "" {
		issues = append(issues, "OAuth profile is missing a provider id")
	}
	if strings.TrimSpace(profile.DisplayName) == "" {
		issues = append(issues, "OAuth profile is missing a display name")
	}

	var email string
	for _, candidate := range profile.Emails {
		candidate = normalizeEmail(candidate)
		if isValidEmail(candidate) {
			email = candidate
			break
		}
	}
	if email == "" {
		issues = append(issues, "OAuth profile has no valid email address")
	}

	if len(issues) > 0 {
		return "", &ValidationError{Issues: issues}
	}
	return email, nil
}

func (s *OAuthService) existingUser(ctx context.Context, account models.Account) (OAuthLoginResult, error) {
	if account.Status != models.AccountStatusActive {
		return OAuthLoginResult{}, ErrAccountInactive
	}
	if account.WorkspaceID == nil {
		return OAuthLoginResult{}, ErrNoWorkspace
	}

	workspace, err := s.workspaces.GetByID(ctx, *account.WorkspaceID)
	if err != nil {
		return OAuthLoginResult{}, err
	}
	if workspace.Status != models.WorkspaceStatusActive {
		return OAuthLoginResult{}, ErrWorkspaceInactive
	}

	tokens, err := s.issueTokens(account)
	if err != nil {
		return OAuthLoginResult{}, err
	}
	return OAuthLoginResult{AuthResult: tokens, IsNewUser: false}, nil
}

func (s *OAuthService) newUser(ctx context.Context, profile oauth.Profile, email string) (OAuthLoginResult, error) {
	workspace, err := s.resolveWorkspace(ctx, emailDomain(email))
	if err != nil {
		return OAuthLoginResult{}, err
	}

	role, err := s.bootstrapRole(ctx, workspace.ID)
	if err != nil {
		return OAuthLoginResult{}, err
	}

	provider := profile.Provider
	providerID := profile.ProviderID
	account := models.Account{
		ID:            ids.New(),
		Email:         email,
		Name:          strings.TrimSpace(profile.DisplayName),
		Role:          role,
		Status:        models.AccountStatusActive,
		EmailVerified: true, // the provider verified it
		WorkspaceID:   &workspace.ID,
		OAuthProvider: &provider,
		OAuthID:       &providerID,
	}
	if profile.AvatarURL != "" {
		avatarURL := profile.AvatarURL
		account.AvatarURL = &avatarURL
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return OAuthLoginResult{}, err
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("workspace_id", workspace.ID).
		Str("role", string(role)).
		Msg("oauth account created")

	tokens, err := s.issueTokens(account)
	if err != nil {
		return OAuthLoginResult{}, err
	}
	return OAuthLoginResult{AuthResult: tokens, IsNewUser: true}, nil
}

// resolveWorkspace prefers the oldest active workspace (stable first
// workspace selection) and creates one from the email domain only when
// none exists.
func (s *OAuthService) resolveWorkspace(ctx context.Context, domain string) (models.Workspace, error) {
	workspace, err := s.workspaces.FindOldestActive(ctx)
	if err == nil {
		return workspace, nil
	}
	if !errors.Is(err, repository.ErrWorkspaceNotFound) {
		return models.Workspace{}, fmt.Errorf("%w: %v", ErrWorkspaceCreate, err)
	}

	workspace = models.Workspace{
		ID:     ids.New(),
		Name:   fmt.Sprintf("%s Workspace", domain),
		Domain: domain,
		Status: models.WorkspaceStatusActive,
	}
	if err := s.workspaces.Create(ctx, workspace); err != nil {
		return models.Workspace{}, fmt.Errorf("%w: %v", ErrWorkspaceCreate, err)
	}
	return workspace, nil
}

// bootstrapRole: the first active account in a workspace becomes its
// admin. First-mover-wins is deliberate and auditable, not a default.
func (s *OAuthService) bootstrapRole(ctx context.Context, workspaceID string) (models.Role, error) {
	count, err := s.accounts.CountActiveInWorkspace(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return models.RoleAdmin, nil
	}
	return models.RoleMember, nil
}

func (s *OAuthService) issueTokens(account models.Account) (AuthResult, error) {
	input := security.TokenInput{
		AccountID:   account.ID,
		WorkspaceID: derefString(account.WorkspaceID),
		Role:        string(account.Role),
	}

	access, err := s.tokens.IssueAccess(input)
	if err != nil {
		return AuthResult{}, err
	}
	refresh, err := s.tokens.IssueRefresh(input)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      account,
	}, nil
}
