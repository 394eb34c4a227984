// Package auth verifies dashboard logins against a credential pair held
// in a secrets store. The secret payload is strict JSON, schema-validated
// on every fetch; malformed or missing secrets fail verification instead
// of panicking.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SecretProvider fetches the raw credential payload.
type SecretProvider interface {
	SecretString(ctx context.Context, secretID string) (string, error)
}

// credentials is the expected secret payload. Exactly one of PasswordHash
// (hex sha256) or Password must be present; hashed is preferred, plain is
// accepted for legacy secrets.
type credentials struct {
	Username     string `json:"username" validate:"required"`
	PasswordHash string `json:"password_hash" validate:"required_without=Password,omitempty,hexadecimal,len=64"`
	Password     string `json:"password" validate:"required_without=PasswordHash"`
}

// Authenticator checks username/password pairs.
type Authenticator struct {
	provider SecretProvider
	secretID string
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates an Authenticator reading the named secret.
func New(provider SecretProvider, secretID string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Authenticator{
		provider: provider,
		secretID: secretID,
		validate: validator.New(),
		logger:   logger,
	}
}

// Verify reports whether the pair matches the stored credentials. Any
// provider or payload problem returns false with the error; a plain
// mismatch returns false, nil.
func (a *Authenticator) Verify(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	creds, err := a.load(ctx)
	if err != nil {
		a.logger.Warn("credential lookup failed", "secret_id", a.secretID, "error", err)
		return false, err
	}

	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(username)) == 1

	var passOK bool
	if creds.PasswordHash != "" {
		sum := sha256.Sum256([]byte(password))
		passOK = subtle.ConstantTimeCompare([]byte(creds.PasswordHash), []byte(hex.EncodeToString(sum[:]))) == 1
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(creds.Password), []byte(password)) == 1
	}

	return userOK && passOK, nil
}

func (a *Authenticator) load(ctx context.Context) (*credentials, error) {
	payload, err := a.provider.SecretString(ctx, a.secretID)
	if err != nil {
		return nil, fmt.Errorf("fetch secret: %w", err)
	}
	var creds credentials
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&creds); err != nil {
		return nil, fmt.Errorf("parse secret payload: %w", err)
	}
	if err := a.validate.Struct(&creds); err != nil {
		return nil, fmt.Errorf("invalid secret payload: %w", err)
	}
	return &creds, nil
}
