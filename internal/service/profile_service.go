package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"personahub/api/internal/breach"
	"personahub/api/internal/config"
	"personahub/api/internal/ids"
	"personahub/api/internal/media/sniffer"
	"personahub/api/internal/models"
	"personahub/api/internal/security"
	"personahub/api/internal/storage"
)

const maxAvatarBytes = 5 << 20 // 5 MiB

type ProfileService struct {
	accounts AccountStore
	breach   *breach.Client
	store    *storage.ObjectStore
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewProfileService(
	accounts AccountStore,
	breachClient *breach.Client,
	store *storage.ObjectStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		accounts: accounts,
		breach:   breachClient,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

func (s *ProfileService) Get(ctx context.Context, accountID string) (models.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

func (s *ProfileService) UpdateName(ctx context.Context, accountID string, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Issues: []string{"Name is required"}}
	}
	return s.accounts.UpdateName(ctx, accountID, name)
}

// ChangePassword verifies the current password before applying the
// strict complexity gate and breach policy to the new one. A wrong
// current password reports the same error as bad login credentials.
func (s *ProfileService) ChangePassword(ctx context.Context, accountID string, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.PasswordHash == nil {
		return ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(currentPassword, account.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if issues := security.ValidatePasswordComplexity(newPassword); len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	policy := s.breach.ValidateWithPolicy(ctx, newPassword)
	if !policy.IsValid {
		return &ValidationError{Issues: []string{policy.Reason}}
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, accountID, passwordHash)
}

// UploadAvatar sniffs the file's real format, stores it in the avatar
// bucket, and points the account at the new URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, accountID string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if file == nil || header == nil {
		return "", &ValidationError{Issues: []string{"Avatar file is required"}}
	}
	if header.Size > maxAvatarBytes {
		return "", &ValidationError{Issues: []string{"Avatar file exceeds the 5 MiB limit"}}
	}

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > maxAvatarBytes {
		return "", &ValidationError{Issues: []string{"Avatar file exceeds the 5 MiB limit"}}
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	result, err := sniffer.DetectHead(head)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return "", &ValidationError{Issues: []string{"Avatar must be a JPEG, PNG, GIF, or WebP image"}}
		}
		return "", err
	}

	objectKey := fmt.Sprintf("avatars/%s/%s.%s", accountID, ids.New(), result.Type)
	avatarURL, err := s.store.PutAvatar(ctx, objectKey, bytes.NewReader(data), int64(len(data)), result.MIME)
	if err != nil {
		return "", err
	}

	if err := s.accounts.UpdateAvatarURL(ctx, accountID, avatarURL); err != nil {
		return "", err
	}
	return avatarURL, nil
}
