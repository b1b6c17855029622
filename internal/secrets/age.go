// Package secrets seals and opens repository credentials with age, so a
// step file or API request can carry an armored password instead of a
// plaintext one.
package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/narvanalabs/zapper/internal/models"
)

var (
	// ErrNoRecipient is returned when sealing without a public key.
	ErrNoRecipient = errors.New("no age recipient configured")
	// ErrNoIdentity is returned when opening without a private key.
	ErrNoIdentity = errors.New("no age identity configured")
	// ErrDecryptionFailed is returned when opening fails.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrEncryptionFailed is returned when sealing fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrInvalidKey is returned when a key is invalid.
	ErrInvalidKey = errors.New("invalid key format")
)

// Config holds age keys.
type Config struct {
	// Recipient is the age public key used to seal secrets (age1...).
	Recipient string
	// Identity is the age private key used to open them (AGE-SECRET-KEY-1...).
	Identity string
}

// Service seals and opens armored age payloads.
type Service struct {
	recipient *age.X25519Recipient
	identity  *age.X25519Identity
	logger    *slog.Logger
}

// NewService creates a Service. Either key may be empty; the matching
// operation then fails.
func NewService(cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{logger: logger}
	if cfg == nil {
		return svc, nil
	}

	if cfg.Recipient != "" {
		r, err := age.ParseX25519Recipient(strings.TrimSpace(cfg.Recipient))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid recipient: %v", ErrInvalidKey, err)
		}
		svc.recipient = r
	}
	if cfg.Identity != "" {
		id, err := age.ParseX25519Identity(strings.TrimSpace(cfg.Identity))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid identity: %v", ErrInvalidKey, err)
		}
		svc.identity = id
		if svc.recipient == nil {
			svc.recipient = id.Recipient()
		}
	}
	return svc, nil
}

// IsSealed reports whether value is an armored age payload.
func IsSealed(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), armor.Header)
}

// Seal encrypts plaintext into an armored string.
func (s *Service) Seal(ctx context.Context, plaintext string) (string, error) {
	if s.recipient == nil {
		return "", ErrNoRecipient
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, s.recipient)
	if err != nil {
		s.logger.Error("failed to create age encryptor", "error", err)
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return buf.String(), nil
}

// Open decrypts an armored payload produced by Seal.
func (s *Service) Open(ctx context.Context, sealed string) (string, error) {
	if s.identity == nil {
		return "", ErrNoIdentity
	}

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(sealed))), s.identity)
	if err != nil {
		s.logger.Error("failed to create age decryptor", "error", err)
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// ResolveCredentials returns creds with a sealed password opened.
// Plaintext passwords and nil credentials pass through unchanged.
func (s *Service) ResolveCredentials(ctx context.Context, creds *models.RepositoryCredentials) (*models.RepositoryCredentials, error) {
	if creds == nil || !IsSealed(creds.Password) {
		return creds, nil
	}
	password, err := s.Open(ctx, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("opening repository password for %s: %w", creds.Username, err)
	}
	return &models.RepositoryCredentials{Username: creds.Username, Password: password}, nil
}

// GenerateKeyPair generates a new age key pair.
func GenerateKeyPair() (recipient, identity string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate age key pair: %w", err)
	}
	return id.Recipient().String(), id.String(), nil
}
