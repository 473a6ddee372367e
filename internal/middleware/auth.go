package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
)

type contextKey string

const HouseholdContextKey contextKey = "household"

// RequireHouseholdToken authenticates a household API token sent as a bearer
// token or a token query parameter. Only tokens with one of the given scopes
// are accepted.
func RequireHouseholdToken(tokenRepo repository.APITokenRepository, scopes ...models.TokenScope) func(http.Handler) http.Handler {
	if len(scopes) == 0 {
		scopes = []models.TokenScope{models.TokenScopeAPI}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := requestToken(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			token, err := tokenRepo.FindByTokenHash(r.Context(), repository.HashToken(raw))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if token.ExpiresAt != nil && token.ExpiresAt.Before(time.Now()) {
				writeAuthError(w, http.StatusUnauthorized, "Token expired")
				return
			}

			if !slices.Contains(scopes, token.Scope) {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), HouseholdContextKey, token.HouseholdID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminToken guards household provisioning with the configured admin
// token.
func RequireAdminToken(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := requestToken(r)
			if adminToken == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(adminToken)) != 1 {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetHouseholdID(ctx context.Context) string {
	householdID, _ := ctx.Value(HouseholdContextKey).(string)
	return householdID
}

func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("encoding auth error", "error", err)
	}
}
