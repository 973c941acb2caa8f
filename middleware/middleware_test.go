package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"plantmaint/auth"
	"plantmaint/db"
	"plantmaint/metrics"
	"plantmaint/models"
)

func newIdentity(t *testing.T) (*auth.Service, *auth.Session) {
	t.Helper()
	svc := auth.NewService(
		db.NewRepository(db.NewMemoryStore()),
		auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour),
		auth.ServiceOptions{BcryptCost: bcrypt.MinCost},
	)
	sess, err := svc.Register(context.Background(), "admin@plant.com", "Segura123")
	require.NoError(t, err)
	return svc, sess
}

var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	user, _ := GetUserFromContext(r.Context())
	token, _ := GetTokenFromContext(r.Context())
	json.NewEncoder(w).Encode(map[string]string{"email": user.Email, "token": token})
})

func TestAuthMiddleware(t *testing.T) {
	svc, sess := newIdentity(t)
	h := AuthMiddleware(svc)(echoUser)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + sess.Token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin@plant.com", body["email"])
	assert.Equal(t, sess.Token, body["token"])
}

func TestAuthMiddlewareRevokedToken(t *testing.T) {
	svc, sess := newIdentity(t)
	require.NoError(t, svc.Logout(context.Background(), sess.Token))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	AuthMiddleware(svc)(echoUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "auth/invalid-session")
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireRole(models.RoleAdmin, models.RoleManager)(ok)

	serve := func(user *models.User) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != nil {
			req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&models.User{Role: models.RoleTechnician}))
	assert.Equal(t, http.StatusNoContent, serve(&models.User{Role: models.RoleManager}))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1000", ""))
	assert.Equal(t, http.StatusOK, serve("10.0.0.1:2000", ""), "port is ignored")
	assert.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:3000", ""))
	assert.Equal(t, http.StatusOK, serve("10.0.0.2:1000", ""))
	assert.Equal(t, http.StatusOK, serve("10.0.0.9:1000", "192.168.1.5, 10.0.0.9"))

	assert.Equal(t, 0, rl.Prune(time.Hour))
	assert.Equal(t, 3, rl.Prune(-time.Second))
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORSMiddleware([]string{"http://localhost:5173"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	m := metrics.New()
	h := RequestLogger(m, func(p string) bool { return p == "/api/orders" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, out.Body.String(), `plantmaint_http_requests_total{method="GET",path="/api/orders",status="418"} 2`)
}
