package middleware

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/familycare/visit-service/internal/config"
	"github.com/familycare/visit-service/internal/core/domain"
)

// revokedKeyPrefix namespaces logged-out tokens in Redis. The identity
// service writes sha256(token) under this prefix with the token's remaining TTL.
const revokedKeyPrefix = "token_blacklist:"

// RevocationStore is the part of the Redis client the middleware needs.
type RevocationStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type AuthMiddleware struct {
	publicKey *rsa.PublicKey
	revoked   RevocationStore
	cb        *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

func NewAuthMiddleware(publicKey *rsa.PublicKey, revoked RevocationStore, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		publicKey: publicKey,
		revoked:   revoked,
		cb:        config.NewCircuitBreaker(config.BreakerRedisAuth),
		logger:    logger,
	}
}

type contextKeyActor struct{}

// WithActor stores the authenticated caller in ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

// ActorFrom returns the caller set by Authenticate.
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor{}).(domain.Actor)
	return actor, ok
}

// Authenticate verifies the RS256 bearer token, rejects revoked tokens and
// puts the caller's domain.Actor in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			return m.publicKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			m.logger.WarnContext(ctx, "rejected token", "error", err, "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		userID := stringClaim(claims, "sub")
		role := domain.Role(stringClaim(claims, "role"))
		if userID == "" || !role.Valid() {
			m.logger.WarnContext(ctx, "token missing subject or role", "sub", claims["sub"], "role", claims["role"])
			writeError(w, http.StatusUnauthorized, "invalid token: missing user or role")
			return
		}

		revoked, err := m.isRevoked(ctx, tokenString)
		if err != nil {
			m.logger.ErrorContext(ctx, "token revocation check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "authentication temporarily unavailable")
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, "token has been revoked")
			return
		}

		actor := domain.Actor{ID: userID, Role: role}
		recordActor(ctx, actor)
		next.ServeHTTP(w, r.WithContext(WithActor(ctx, actor)))
	})
}

// RequireRole lets the request through only for the listed roles. It must run
// after Authenticate.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) isRevoked(ctx context.Context, token string) (bool, error) {
	if m.revoked == nil {
		return false, nil
	}
	n, err := m.cb.Execute(func() (interface{}, error) {
		return m.revoked.Exists(ctx, RevokedKey(token)).Result()
	})
	if err != nil {
		return false, err
	}
	return n.(int64) > 0, nil
}

// RevokedKey returns the Redis key under which token is denylisted.
func RevokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
