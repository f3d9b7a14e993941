package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personahub/api/internal/breach"
	"personahub/api/internal/config"
	"personahub/api/internal/models"
	"personahub/api/internal/security"
)

type profileFixture struct {
	svc      *ProfileService
	accounts *fakeAccountStore
}

// newProfileFixture wires a ProfileService against the in-memory account
// store and a breach endpoint that reports the given passwords as
// breached and everything else as clean.
func newProfileFixture(t *testing.T, breachedPasswords ...string) *profileFixture {
	t.Helper()

	suffixes := map[string]struct{}{}
	for _, password := range breachedPasswords {
		sum := sha1.Sum([]byte(password))
		hash := strings.ToUpper(hex.EncodeToString(sum[:]))
		suffixes[hash[5:]] = struct{}{}
	}

	breachSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for suffix := range suffixes {
			fmt.Fprintf(w, "%s:50000\r\n", suffix)
		}
		fmt.Fprint(w, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA:1\r\n")
	}))
	t.Cleanup(breachSrv.Close)

	breachClient := breach.NewClient(config.BreachConfig{
		BaseURL:   breachSrv.URL,
		UserAgent: "personahub-test",
		Timeout:   2 * time.Second,
	}, zerolog.Nop())

	cfg := &config.AppConfig{
		Security: config.SecurityConfig{EncryptionKey: testEncryptionKey},
	}

	fx := &profileFixture{accounts: newFakeAccountStore()}
	fx.svc = NewProfileService(fx.accounts, breachClient, nil, cfg, zerolog.Nop())
	return fx
}

func (fx *profileFixture) seedAccount(t *testing.T, password string) models.Account {
	t.Helper()

	var hash []byte
	if password != "" {
		var err error
		hash, err = security.HashPassword(password)
		require.NoError(t, err)
	}

	wsID := "ws-1"
	account := models.Account{
		ID:           "acc-1",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Name:         "Ada",
		Role:         models.RoleMember,
		Status:       models.AccountStatusActive,
		WorkspaceID:  &wsID,
	}
	require.NoError(t, fx.accounts.Create(context.Background(), account))
	return account
}

func TestChangePassword_Success(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	account := fx.seedAccount(t, "Old!Passw0rd")

	require.NoError(t, fx.svc.ChangePassword(ctx, account.ID, "Old!Passw0rd", "N3w!StrongPass"))

	reloaded, err := fx.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)

	ok, err := security.VerifyPassword("N3w!StrongPass", reloaded.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("Old!Passw0rd", reloaded.PasswordHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	account := fx.seedAccount(t, "Old!Passw0rd")

	err := fx.svc.ChangePassword(ctx, account.ID, "guessed-wrong", "N3w!StrongPass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// the credential was not touched
	reloaded, err := fx.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("Old!Passw0rd", reloaded.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChangePassword_OAuthOnlyAccount(t *testing.T) {
	fx := newProfileFixture(t)
	account := fx.seedAccount(t, "") // nil hash, provider-originated

	err := fx.svc.ChangePassword(context.Background(), account.ID, "anything", "N3w!StrongPass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword_WeakNewPassword(t *testing.T) {
	fx := newProfileFixture(t)
	account := fx.seedAccount(t, "Old!Passw0rd")

	err := fx.svc.ChangePassword(context.Background(), account.ID, "Old!Passw0rd", "weak")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Issues)
}

func TestChangePassword_BreachedWeakNewPassword(t *testing.T) {
	// passes the complexity gate's letter/digit/upper/special axes but
	// not the policy's lowercase requirement, so a breach hit rejects it
	newPassword := "PASSW0RD!2024"
	fx := newProfileFixture(t, newPassword)
	account := fx.seedAccount(t, "Old!Passw0rd")

	err := fx.svc.ChangePassword(context.Background(), account.ID, "Old!Passw0rd", newPassword)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Contains(t, verr.Issues[0], "50000")
}

func TestUpdateName(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	account := fx.seedAccount(t, "Old!Passw0rd")

	require.NoError(t, fx.svc.UpdateName(ctx, account.ID, "  Ada Lovelace  "))
	reloaded, err := fx.accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", reloaded.Name)

	err = fx.svc.UpdateName(ctx, account.ID, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
