package web

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp-labs/dataops/internal/auth"
	"github.com/edp-labs/dataops/internal/blob"
	"github.com/edp-labs/dataops/internal/dataset"
	"github.com/edp-labs/dataops/internal/state"
	"github.com/edp-labs/dataops/internal/testutil"
)

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  blob.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := blob.NewMemory()
	_, err := store.Put(context.Background(), "datasets/customers.csv",
		[]byte("row_id,name,city\nr1,ada,london\nr2,grace,nyc\n"), blob.PutOptions{})
	require.NoError(t, err)

	audit, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = audit.Close() })

	svc := dataset.New(store, audit, nil, []dataset.Definition{
		{Name: "customers", Key: "datasets/customers.csv", KeyColumn: "row_id"},
	}, testutil.NewTestLogger(t))

	hash := sha256.Sum256([]byte("s3cret"))
	secret := fmt.Sprintf(`{"username":"ops","password_hash":"%s"}`, hex.EncodeToString(hash[:]))
	authn := auth.New(auth.StaticProvider{"dashboard/login": secret}, "dashboard/login", testutil.NewTestLogger(t))

	server := NewServer(Config{
		Datasets:      svc,
		Auth:          authn,
		Audit:         audit,
		SessionSecret: "test-secret",
		Logger:        testutil.NewTestLogger(t),
	})

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: ts, client: &http.Client{Jar: jar}, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, _ := e.do(t, http.MethodPost, "/api/login", map[string]string{"username": "ops", "password": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ok")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/login", map[string]string{"username": "ops", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCookieUsableOverPlainHTTP(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/login", map[string]string{"username": "ops", "password": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)
	var found bool
	for _, c := range cookies {
		if c.Name == sessionName {
			found = true
			assert.True(t, c.HttpOnly)
			// Secure would make every HTTP client drop the cookie.
			assert.False(t, c.Secure)
		}
	}
	require.True(t, found, "session cookie not set")

	// The cookie must actually authenticate the next request.
	resp, _ = env.do(t, http.MethodGet, "/api/datasets", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecureCookiesOptIn(t *testing.T) {
	s := NewServer(Config{SessionSecret: "x", SecureCookies: true})
	assert.True(t, s.sessionStore.Options.Secure)

	s = NewServer(Config{SessionSecret: "x"})
	assert.False(t, s.sessionStore.Options.Secure)
}

func TestDatasetEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/api/datasets", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEditReviewSaveFlow(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.do(t, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []datasetInfo
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "customers", list[0].Name)

	resp, body = env.do(t, http.MethodPost, "/api/datasets/customers/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loaded struct {
		ETag  string       `json:"etag"`
		Table tablePayload `json:"table"`
	}
	require.NoError(t, json.Unmarshal(body, &loaded))
	require.NotEmpty(t, loaded.ETag)
	require.Len(t, loaded.Table.Rows, 2)

	edited := loaded.Table
	edited.Rows[0][2] = "paris"
	edited.Rows = append(edited.Rows, []string{"", "alan", "cambridge"})

	resp, _ = env.do(t, http.MethodPost, "/api/datasets/customers/edit", edited)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/datasets/customers/review", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var changes changesPayload
	require.NoError(t, json.Unmarshal(body, &changes))
	assert.Equal(t, "keyed", changes.Mode)
	assert.Len(t, changes.Added, 1)
	assert.Len(t, changes.Modified, 1)
	assert.False(t, changes.Empty)

	resp, body = env.do(t, http.MethodPost, "/api/datasets/customers/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved struct {
		Added    int `json:"added"`
		Modified int `json:"modified"`
	}
	require.NoError(t, json.Unmarshal(body, &saved))
	assert.Equal(t, 1, saved.Added)
	assert.Equal(t, 1, saved.Modified)

	// Save drops the working state; reviewing again needs a reload.
	resp, _ = env.do(t, http.MethodGet, "/api/datasets/customers/review", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/datasets/customers/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []state.SaveEvent
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "ops", events[0].User)
}

func TestSaveConflict(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.do(t, http.MethodPost, "/api/datasets/customers/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Out-of-band change invalidates the loaded ETag.
	_, err := env.store.Put(context.Background(), "datasets/customers.csv",
		[]byte("row_id,name,city\nr9,zuse,berlin\n"), blob.PutOptions{})
	require.NoError(t, err)

	resp, _ = env.do(t, http.MethodPost, "/api/datasets/customers/save", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoadUnknownDataset(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	resp, _ := env.do(t, http.MethodPost, "/api/datasets/nope/load", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "what is row_id?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Contains(t, reply.Reply, "row_id")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	resp, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dataops_logins_total")
}

func TestSaveWithoutNotifierDoesNotCountAsNotifyFailure(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.do(t, http.MethodPost, "/api/datasets/customers/load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/datasets/customers/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dataops_notify_failures_total 0")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/datasets", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
