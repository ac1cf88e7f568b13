// internal/api/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"wallet-ledger/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDHeader carries the owner id for clients that do not send a bearer token.
const UserIDHeader = "X-User-Id"

type ownerIDKeyType string

const ownerIDKey ownerIDKeyType = "ownerID"

var (
	errMissingCredentials = errors.New("missing credentials")
	errInvalidToken       = errors.New("invalid token")
)

// WithOwnerID returns a copy of ctx carrying the authenticated owner id.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerIDFromContext returns the owner id stored by Auth.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(ownerIDKey).(string)
	return ownerID, ok && ownerID != ""
}

// OwnerVerifier checks that a resolved owner may act. service.AuthService implements it.
type OwnerVerifier interface {
	VerifyOwner(ctx context.Context, ownerID string) error
}

// Auth resolves the caller's owner id from an HS256 bearer token (the "sub" claim),
// falling back to the X-User-Id header. Requests without a valid UUID owner, or whose owner
// is unknown to verifier, are rejected with 401; deactivated owners get 403.
// A nil verifier skips the lookup.
func Auth(secret string, verifier OwnerVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := resolveOwner(r, key)
			if err != nil {
				logger.Debug("request rejected by auth", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if verifier != nil {
				if err := verifier.VerifyOwner(r.Context(), ownerID); err != nil {
					switch {
					case errors.Is(err, util.ErrUserInactive):
						writeError(w, http.StatusForbidden, "user is inactive")
					case errors.Is(err, util.ErrNotFound):
						logger.Debug("request from unknown owner", zap.String("owner_id", ownerID))
						writeError(w, http.StatusUnauthorized, "unauthorized")
					default:
						logger.Warn("owner verification failed", zap.String("owner_id", ownerID), zap.Error(err))
						writeError(w, http.StatusUnauthorized, "unauthorized")
					}
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

func resolveOwner(r *http.Request, key []byte) (string, error) {
	var subject string
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		sub, err := validateToken(strings.TrimPrefix(authHeader, "Bearer "), key)
		if err != nil {
			return "", err
		}
		subject = sub
	} else {
		subject = strings.TrimSpace(r.Header.Get(UserIDHeader))
	}

	if subject == "" {
		return "", errMissingCredentials
	}
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return "", fmt.Errorf("owner id %q is not a UUID", subject)
	}
	return id.String(), nil
}

func validateToken(tokenString string, key []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	if !token.Valid {
		return "", errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	return sub, nil
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
