package fakeprod

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	store := NewUserStore()
	require.NoError(t, store.LoadCSV(filepath.Join("testdata", "fake_users.csv")))

	server := NewServer(store, NewMockRegistry(t.TempDir()), zerolog.Nop())
	server.sleep = func(time.Duration) {}
	return server
}

func doRequest(t *testing.T, server *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func decodeUsers(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	return users
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestHandleListUsers(t *testing.T) {
	server := setupTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeUsers(t, rr), 4)
}

func TestHandleListUsersFiltered(t *testing.T) {
	server := setupTestServer(t)

	q := url.Values{"filter": {"(&(memberOf=Users)(uidNumber>=1501))"}}
	rr := doRequest(t, server, http.MethodGet, "/users?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	users := decodeUsers(t, rr)
	require.Len(t, users, 1)
	assert.Equal(t, "janedoe", users[0]["cn"])
	assert.Equal(t, float64(1501), users[0]["uidNumber"], "integer attributes encode as JSON numbers")
	assert.Equal(t, []interface{}{"Users"}, users[0]["memberOf"])
}

func TestHandleListUsersBadFilter(t *testing.T) {
	server := setupTestServer(t)

	q := url.Values{"filter": {"(&(cn=x)"}}
	rr := doRequest(t, server, http.MethodGet, "/users?"+q.Encode(), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"detail":"bad filter"}`, rr.Body.String())
}

func TestHandleListUsersErrorInjection(t *testing.T) {
	server := setupTestServer(t)

	server.randFloat = func() float64 { return 0.0 }
	rr := doRequest(t, server, http.MethodGet, "/users?error_rate=0.5", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"detail":"injected error"}`, rr.Body.String())

	server.randFloat = func() float64 { return 0.9 }
	rr = doRequest(t, server, http.MethodGet, "/users?error_rate=0.5", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleListUsersDelay(t *testing.T) {
	server := setupTestServer(t)

	var slept time.Duration
	server.sleep = func(d time.Duration) { slept = d }

	rr := doRequest(t, server, http.MethodGet, "/users?delay_ms=250", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 250*time.Millisecond, slept)
}

func TestHandleGetUser(t *testing.T) {
	server := setupTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/users/jdoe", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "johndoe", user["cn"])

	rr = doRequest(t, server, http.MethodGet, "/users/nobody", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"detail":"not found"}`, rr.Body.String())
}

func TestHandleCreateUser(t *testing.T) {
	server := setupTestServer(t)

	payload := `{
		"dn": "cn=newuser,ou=users,dc=example,dc=com",
		"sAMAccountName": "newuser",
		"uidNumber": 4000,
		"memberOf": ["Users"]
	}`
	rr := doRequest(t, server, http.MethodPost, "/users", []byte(payload))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, server, http.MethodGet, "/users/newuser", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// The new record is visible to filtered searches.
	q := url.Values{"filter": {"(uidNumber=4000)"}}
	rr = doRequest(t, server, http.MethodGet, "/users?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeUsers(t, rr), 1)
}

func TestHandleCreateUserRejectsIncomplete(t *testing.T) {
	server := setupTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/users", []byte(`{"cn":"nobody"}`))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, server, http.MethodPost, "/users", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMockLifecycle(t *testing.T) {
	server := setupTestServer(t)

	register := `{
		"label": "greeting",
		"filename": "greeting.json",
		"content": "{\"hello\": \"world\"}",
		"type": "json",
		"status": 203,
		"headers": {"X-Mock-Source": "fakeprod"}
	}`
	rr := doRequest(t, server, http.MethodPost, "/admin/mocks", []byte(register))
	require.Equal(t, http.StatusCreated, rr.Code)

	// Duplicate labels conflict.
	rr = doRequest(t, server, http.MethodPost, "/admin/mocks", []byte(register))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, server, http.MethodGet, "/mocks/greeting", nil)
	require.Equal(t, 203, rr.Code)
	assert.JSONEq(t, `{"hello":"world"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "fakeprod", rr.Header().Get("X-Mock-Source"))

	rr = doRequest(t, server, http.MethodGet, "/admin/mocks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "greeting")

	rr = doRequest(t, server, http.MethodDelete, "/admin/mocks/greeting", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(t, server, http.MethodGet, "/mocks/greeting", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, server, http.MethodDelete, "/admin/mocks/greeting", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRegisterMockBase64(t *testing.T) {
	server := setupTestServer(t)

	// "raw bytes" base64-encoded.
	register := `{
		"label": "blob",
		"content_b64": "cmF3IGJ5dGVz",
		"type": "raw",
		"content_type": "text/plain"
	}`
	rr := doRequest(t, server, http.MethodPost, "/admin/mocks", []byte(register))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doRequest(t, server, http.MethodGet, "/mocks/blob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "raw bytes", rr.Body.String())
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
}

func TestRegisterMockValidation(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"missing label", `{"content": "{}"}`},
		{"missing content", `{"label": "x"}`},
		{"invalid base64", `{"label": "x", "content_b64": "!!!"}`},
		{"invalid json content", `{"label": "x", "content": "nope", "type": "json"}`},
		{"invalid body", `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, server, http.MethodPost, "/admin/mocks", []byte(tt.payload))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHandleInspect(t *testing.T) {
	server := setupTestServer(t)
	router := server.Router()

	for _, path := range []string{"/health", "/users", "/users/nobody"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		_ = rr
	}

	rr := doRequest(t, server, http.MethodGet, "/inspect", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		RecentRequests []RequestEntry `json:"recent_requests"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.GreaterOrEqual(t, len(resp.RecentRequests), 3)

	last := resp.RecentRequests[len(resp.RecentRequests)-1]
	assert.Equal(t, "/users/nobody", last.Path)
	assert.Equal(t, http.StatusNotFound, last.Status)
}

func TestInspectStream(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/inspect/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var entry RequestEntry
	require.NoError(t, conn.ReadJSON(&entry))
	assert.Equal(t, "/health", entry.Path)
	assert.Equal(t, http.StatusOK, entry.Status)
}
