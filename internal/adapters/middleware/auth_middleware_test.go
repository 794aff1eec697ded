package middleware

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/test/mocks"
)

func generateTestKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey, &privateKey.PublicKey
}

func signToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(sub, role string, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{"sub": sub, "role": role, "exp": exp.Unix()}
}

// echoActor writes the actor found in the context.
func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(actor.ID + "/" + string(actor.Role)))
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/visits/my-visits", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	otherKey, _ := generateTestKeys(t)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid volunteer token",
			header:     "Bearer " + signToken(t, privateKey, jwt.SigningMethodRS256, claimsFor("vol-1", "VOLUNTEER", future)),
			wantStatus: http.StatusOK,
			wantBody:   "vol-1/VOLUNTEER",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			header:     "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + signToken(t, privateKey, jwt.SigningMethodRS256, claimsFor("vol-1", "VOLUNTEER", time.Now().Add(-time.Hour))),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no expiry",
			header:     "Bearer " + signToken(t, privateKey, jwt.SigningMethodRS256, jwt.MapClaims{"sub": "vol-1", "role": "VOLUNTEER"}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "signed by another key",
			header:     "Bearer " + signToken(t, otherKey, jwt.SigningMethodRS256, claimsFor("vol-1", "VOLUNTEER", future)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown role",
			header:     "Bearer " + signToken(t, privateKey, jwt.SigningMethodRS256, claimsFor("vol-1", "PARENT", future)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing subject",
			header:     "Bearer " + signToken(t, privateKey, jwt.SigningMethodRS256, jwt.MapClaims{"role": "ADMIN", "exp": future.Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(publicKey, mocks.NewMockRedisClient(), slog.New(slog.DiscardHandler))

			rec := serve(m.Authenticate(echoActor()), tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAuthenticate_RejectsHMACToken(t *testing.T) {
	_, publicKey := generateTestKeys(t)
	m := NewAuthMiddleware(publicKey, nil, slog.New(slog.DiscardHandler))

	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsFor("admin-1", "ADMIN", time.Now().Add(time.Hour))).
		SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	rec := serve(m.Authenticate(echoActor()), "Bearer "+hs)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	redisClient := mocks.NewMockRedisClient()
	m := NewAuthMiddleware(publicKey, redisClient, slog.New(slog.DiscardHandler))

	token := signToken(t, privateKey, jwt.SigningMethodRS256, claimsFor("vol-1", "VOLUNTEER", time.Now().Add(time.Hour)))
	redisClient.Revoke(RevokedKey(token), time.Hour)

	rec := serve(m.Authenticate(echoActor()), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "revoked")
	assert.Equal(t, 1, redisClient.ExistsCalls)
}

func TestAuthenticate_RevocationStoreDown(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	redisClient := mocks.NewMockRedisClient()
	redisClient.ExistsError = errors.New("connection refused")
	m := NewAuthMiddleware(publicKey, redisClient, slog.New(slog.DiscardHandler))

	token := signToken(t, privateKey, jwt.SigningMethodRS256, claimsFor("vol-1", "VOLUNTEER", time.Now().Add(time.Hour)))

	rec := serve(m.Authenticate(echoActor()), "Bearer "+token)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRevokedKey(t *testing.T) {
	key := RevokedKey("abc")

	assert.Equal(t, "token_blacklist:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", key)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	supervisors := RequireRole(domain.RoleAdmin, domain.RoleCoordinator)(ok)

	tests := []struct {
		name       string
		actor      *domain.Actor
		wantStatus int
	}{
		{"admin", &domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, http.StatusOK},
		{"coordinator", &domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator}, http.StatusOK},
		{"volunteer", &domain.Actor{ID: "vol-1", Role: domain.RoleVolunteer}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()

			supervisors.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequestLogger_RecordsActor(t *testing.T) {
	privateKey, publicKey := generateTestKeys(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := NewAuthMiddleware(publicKey, nil, logger)

	h := RequestLogger(logger)(m.Authenticate(echoActor()))
	token := signToken(t, privateKey, jwt.SigningMethodRS256, claimsFor("coord-1", "COORDINATOR", time.Now().Add(time.Hour)))

	rec := serve(h, "Bearer "+token)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"actor_id":"coord-1"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"path":"/visits/my-visits"`)
}

func TestRequestLogger_ProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Empty(t, buf.String())
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/visits", nil)
		req.Header.Set("Origin", "https://app.example.org")
		rec := httptest.NewRecorder()

		CORS([]string{"https://app.example.org"})(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://app.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/visits", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		CORS([]string{"https://app.example.org"})(next).ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/visits/v1/check-in", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()

		CORS([]string{"*"})(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
