package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edp-labs/dataops/internal/auth"
)

// Credentials is the shape of a database credential secret. Secrets are
// strict JSON; unknown fields are rejected.
type Credentials struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	Database string `json:"database" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	SSLMode  string `json:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
}

// DSN renders a postgres connection URL.
func (c Credentials) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + c.SSLMode
	}
	return u.String()
}

// LoadCredentials fetches and validates a database credential secret.
func LoadCredentials(ctx context.Context, provider auth.SecretProvider, secretID string) (*Credentials, error) {
	raw, err := provider.SecretString(ctx, secretID)
	if err != nil {
		return nil, fmt.Errorf("fetch db secret: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var creds Credentials
	if err := dec.Decode(&creds); err != nil {
		return nil, fmt.Errorf("decode db secret: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(creds); err != nil {
		return nil, fmt.Errorf("validate db secret: %w", err)
	}
	return &creds, nil
}
