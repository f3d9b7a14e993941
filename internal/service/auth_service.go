package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personahub/api/internal/breach"
	"personahub/api/internal/config"
	"personahub/api/internal/ids"
	"personahub/api/internal/models"
	"personahub/api/internal/repository"
	"personahub/api/internal/security"
	mailer "personahub/api/internal/mail"
)

const (
	tokenKindVerify = "verify"
	tokenKindReset  = "reset"
)

type AuthService struct {
	accounts   AccountStore
	workspaces WorkspaceStore
	tokens     *security.TokenService
	breach     *breach.Client
	otp        OneTimeTokenStore
	mailer     mailer.Mailer
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewAuthService(
	accounts AccountStore,
	workspaces WorkspaceStore,
	tokens *security.TokenService,
	breachClient *breach.Client,
	otp OneTimeTokenStore,
	m mailer.Mailer,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		workspaces: workspaces,
		tokens:     tokens,
		breach:     breachClient,
		otp:        otp,
		mailer:     m,
		cfg:        cfg,
		log:        log,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type RegisterResult struct {
	Account models.Account
	// Warning is set when the password was accepted despite appearing
	// in breach data (strong complexity override).
	Warning string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Account      models.Account
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	var issues []string
	if !isValidEmail(email) {
		issues = append(issues, "A valid email address is required")
	}
	if name == "" {
		issues = append(issues, "Name is required")
	}
	if input.Password == "" {
		issues = append(issues, "Password is required")
	}
	if len(issues) > 0 {
		return RegisterResult{}, &ValidationError{Issues: issues}
	}

	policy := s.breach.ValidateWithPolicy(ctx, input.Password)
	if !policy.IsValid {
		return RegisterResult{}, &ValidationError{Issues: []string{policy.Reason}}
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return RegisterResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return RegisterResult{}, err
	}

	workspace, err := s.resolveWorkspaceByDomain(ctx, emailDomain(email))
	if err != nil {
		return RegisterResult{}, err
	}

	role, err := s.bootstrapRole(ctx, workspace.ID)
	if err != nil {
		return RegisterResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	account := models.Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		Status:       models.AccountStatusPendingVerify,
		WorkspaceID:  &workspace.ID,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return RegisterResult{}, err
	}

	if err := s.sendVerification(ctx, account); err != nil {
		// Account exists either way; the token can be re-requested.
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("send verification failed")
	}

	result := RegisterResult{Account: account}
	if policy.Warning {
		result.Warning = policy.Reason
	}
	return result, nil
}

func (s *AuthService) sendVerification(ctx context.Context, account models.Account) error {
	token := ids.New()
	if err := s.otp.Put(ctx, tokenKindVerify, token, account.ID, s.cfg.Security.VerifyTokenTTL); err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, account.Email, token)
}

// VerifyEmail consumes a verification token, marking the account
// verified and activating it if it was pending.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	accountID, err := s.otp.Take(ctx, tokenKindVerify, token)
	if err != nil {
		return ErrTokenInvalid
	}
	return s.accounts.MarkEmailVerified(ctx, accountID)
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	// OAuth-only accounts have no password to check.
	if account.PasswordHash == nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if account.LockedUntil != nil && account.LockedUntil.After(time.Now()) {
		return AuthResult{}, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(input.Password, account.PasswordHash)
	if err != nil || !ok {
		s.recordFailure(ctx, account.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	switch account.Status {
	case models.AccountStatusPendingVerify:
		return AuthResult{}, ErrEmailNotVerified
	case models.AccountStatusActive:
	default:
		return AuthResult{}, ErrAccountInactive
	}

	if account.WorkspaceID == nil {
		return AuthResult{}, ErrNoWorkspace
	}
	workspace, err := s.workspaces.GetByID(ctx, *account.WorkspaceID)
	if err != nil {
		return AuthResult{}, err
	}
	if workspace.Status != models.WorkspaceStatusActive {
		return AuthResult{}, ErrWorkspaceInactive
	}

	if err := s.accounts.RecordLoginSuccess(ctx, account.ID); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("record login success failed")
	}

	return s.issueTokens(account)
}

func (s *AuthService) recordFailure(ctx context.Context, accountID string) {
	count, err := s.accounts.RecordLoginFailure(ctx, accountID)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("record login failure failed")
		return
	}
	if count >= s.cfg.Security.MaxLoginFails {
		until := time.Now().Add(s.cfg.Security.LockoutWindow)
		if err := s.accounts.SetLockout(ctx, accountID, until); err != nil {
			s.log.Warn().Err(err).Str("account_id", accountID).Msg("set lockout failed")
		}
	}
}

// Refresh rotates the token pair. Role and workspace are re-derived
// from the store, so a token minted before a role change cannot carry
// the old privilege forward.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return AuthResult{}, ErrTokenInvalid
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return AuthResult{}, ErrTokenInvalid
		}
		return AuthResult{}, err
	}

	if account.Status != models.AccountStatusActive {
		return AuthResult{}, ErrAccountInactive
	}
	if account.WorkspaceID == nil {
		return AuthResult{}, ErrNoWorkspace
	}

	return s.issueTokens(account)
}

// RequestPasswordReset issues a reset token if the email is known. It
// succeeds either way so callers cannot probe for registered addresses.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil
		}
		return err
	}

	token := ids.New()
	if err := s.otp.Put(ctx, tokenKindReset, token, account.ID, s.cfg.Security.ResetTokenTTL); err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, account.Email, token)
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if issues := security.ValidatePasswordComplexity(newPassword); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	policy := s.breach.ValidateWithPolicy(ctx, newPassword)
	if !policy.IsValid {
		return &ValidationError{Issues: []string{policy.Reason}}
	}

	accountID, err := s.otp.Take(ctx, tokenKindReset, token)
	if err != nil {
		return ErrTokenInvalid
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, accountID, passwordHash)
}

func (s *AuthService) issueTokens(account models.Account) (AuthResult, error) {
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

// resolveWorkspaceByDomain finds the workspace for an email domain,
// creating it on first registration from that domain.
func (s *AuthService) resolveWorkspaceByDomain(ctx context.Context, domain string) (models.Workspace, error) {
	workspace, err := s.workspaces.FindByDomain(ctx, domain)
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

// bootstrapRole grants ADMIN to the first active account of a
// workspace so every workspace always has at least one admin.
func (s *AuthService) bootstrapRole(ctx context.Context, workspaceID string) (models.Role, error) {
	count, err := s.accounts.CountActiveInWorkspace(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return models.RoleAdmin, nil
	}
	return models.RoleMember, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func emailDomain(email string) string {
	if idx := strings.LastIndex(email, "@"); idx >= 0 {
		return email[idx+1:]
	}
	return email
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
