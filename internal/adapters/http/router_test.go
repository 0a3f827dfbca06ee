package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/adapters/blob"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/cache"
	"github.com/lmco/eurekastreams-sub009/internal/adapters/db/sqlite"
	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardQueue struct{}

func (discardQueue) Enqueue(context.Context, ...domain.UserActionRequest) error { return nil }

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "http_test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(ctx, db, nil))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mem, err := cache.NewMemory(1000, 100)
	require.NoError(t, err)
	blobs, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := application.NewService(sqlite.NewRepository(db), mem, blobs, log, application.Options{})
	exec := application.NewExecutor(discardQueue{}, log)
	exec.Register(svc.Actions()...)
	require.NoError(t, svc.BootstrapAdmin(ctx, "admin", "admin@example.com", "admin-password"))

	return NewRouter(svc, exec, log, opts)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, account, password string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"login": account, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["token"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eureka_")
}

func TestLoginAndWhoAmI(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/auth/whoami", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := login(t, h, "admin", "admin-password")
	rec = doJSON(t, h, http.MethodGet, "/api/auth/whoami", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var who map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(t, "admin", who["account_id"])
	assert.Contains(t, who["permissions"], "*")
}

func TestSessionCookieLogin(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "admin@example.com", "password": "admin-password", "mode": "session"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActionErrorsMapToStatus(t *testing.T) {
	h := newTestRouter(t, Options{})
	admin := login(t, h, "admin", "admin-password")

	rec := doJSON(t, h, http.MethodPost, "/api/actions/createPerson", admin, map[string]any{
		"accountId":             "pat",
		"firstName":             "Pat",
		"lastName":              "Lee",
		"email":                 "pat@example.com",
		"organizationShortName": "root",
		"password":              "pat-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/actions/createPerson", admin, map[string]any{"accountId": "pat"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var verr map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verr))
	assert.Contains(t, verr, "fields")

	rec = doJSON(t, h, http.MethodPost, "/api/actions/noSuchAction", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/actions/getPerson", strings.NewReader("{broken"))
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pat := login(t, h, "pat", "pat-password")
	rec = doJSON(t, h, http.MethodPost, "/api/actions/createOrganization", pat, map[string]any{
		"shortName":                   "sales",
		"name":                        "Sales",
		"parentOrganizationShortName": "root",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/resources/person/pat", pat, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accountId":"pat"`)

	rec = doJSON(t, h, http.MethodGet, "/resources/person/nobody", pat, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/resources/stream/person/pat?maxResults=abc", pat, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamJSONAndAtom(t *testing.T) {
	h := newTestRouter(t, Options{})
	admin := login(t, h, "admin", "admin-password")

	rec := doJSON(t, h, http.MethodPost, "/api/actions/postActivity", admin, map[string]any{
		"destinationType":     "PERSON",
		"destinationUniqueId": "admin",
		"body":                "quarterly numbers are in",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/resources/stream/person/admin?maxResults=5", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stream []domain.ActivityModelView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stream))
	require.Len(t, stream, 1)
	assert.Equal(t, "quarterly numbers are in", stream[0].Body)

	rec = doJSON(t, h, http.MethodGet, "/resources/atom/stream/person/admin", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/atom+xml")
	assert.Contains(t, rec.Body.String(), "<feed")
	assert.Contains(t, rec.Body.String(), "quarterly numbers are in")

	rec = doJSON(t, h, http.MethodGet, "/resources/atom/stream/person/ghost", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvatarRouteRejectsUnknownKeys(t *testing.T) {
	h := newTestRouter(t, Options{})
	rec := doJSON(t, h, http.MethodGet, "/resources/avatar/not-a-key", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitPerKey(t *testing.T) {
	h := newTestRouter(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "admin", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"login": "admin", "password": "nope"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitSharesBucketAcrossClientPorts(t *testing.T) {
	h := newTestRouter(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})
	attempt := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"login":"admin","password":"nope"}`))
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, attempt("203.0.113.7:40001"))
	assert.Equal(t, http.StatusUnauthorized, attempt("203.0.113.7:40002"))
	assert.Equal(t, http.StatusTooManyRequests, attempt("203.0.113.7:40003"))
	assert.Equal(t, http.StatusUnauthorized, attempt("198.51.100.2:40004"))
}

func TestRemoteHost(t *testing.T) {
	assert.Equal(t, "203.0.113.7", remoteHost("203.0.113.7:5555"))
	assert.Equal(t, "::1", remoteHost("[::1]:5555"))
	assert.Equal(t, "pipe", remoteHost("pipe"))
}

func TestFeedTitleTruncates(t *testing.T) {
	assert.Equal(t, "first line", feedTitle("first line\nsecond"))
	long := strings.Repeat("x", 100)
	assert.Len(t, feedTitle(long), feedTitleLength)
}
