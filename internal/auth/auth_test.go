package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp-labs/dataops/internal/testutil"
)

func sha256hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestVerify(t *testing.T) {
	secretID := "dashboard-credentials"
	hashed := fmt.Sprintf(`{"username":"editor","password_hash":%q}`, sha256hex("hunter2"))

	tests := []struct {
		name     string
		payload  string
		username string
		password string
		want     bool
		wantErr  bool
	}{
		{
			name:     "correct pair with hashed password",
			payload:  hashed,
			username: "editor",
			password: "hunter2",
			want:     true,
		},
		{
			name:     "correct pair with plain password",
			payload:  `{"username":"editor","password":"hunter2"}`,
			username: "editor",
			password: "hunter2",
			want:     true,
		},
		{
			name:     "wrong password",
			payload:  hashed,
			username: "editor",
			password: "wrong",
			want:     false,
		},
		{
			name:     "wrong username",
			payload:  hashed,
			username: "admin",
			password: "hunter2",
			want:     false,
		},
		{
			name:     "empty inputs rejected without fetch",
			payload:  hashed,
			username: "",
			password: "",
			want:     false,
		},
		{
			name:     "malformed payload",
			payload:  `{"username": "editor",`,
			username: "editor",
			password: "hunter2",
			want:     false,
			wantErr:  true,
		},
		{
			name:     "missing password fields",
			payload:  `{"username":"editor"}`,
			username: "editor",
			password: "hunter2",
			want:     false,
			wantErr:  true,
		},
		{
			name:     "unknown fields rejected",
			payload:  `{"username":"editor","password":"hunter2","role":"admin"}`,
			username: "editor",
			password: "hunter2",
			want:     false,
			wantErr:  true,
		},
		{
			name:     "bad hash shape rejected",
			payload:  `{"username":"editor","password_hash":"zz"}`,
			username: "editor",
			password: "hunter2",
			want:     false,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(StaticProvider{secretID: tt.payload}, secretID, testutil.NewTestLogger(t))
			ok, err := a.Verify(context.Background(), tt.username, tt.password)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifyMissingSecret(t *testing.T) {
	a := New(StaticProvider{}, "nope", testutil.NewTestLogger(t))
	ok, err := a.Verify(context.Background(), "editor", "hunter2")
	assert.False(t, ok)
	assert.Error(t, err, "missing secret fails closed with an error, no panic")
}
