package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/middleware"
	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/go-chi/chi/v5"
)

// TokenHandler manages the API and calendar tokens of the calling household.
type TokenHandler struct {
	tokenRepo repository.APITokenRepository
}

func NewTokenHandler(tokenRepo repository.APITokenRepository) *TokenHandler {
	return &TokenHandler{tokenRepo: tokenRepo}
}

type tokenResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Scope     models.TokenScope `json:"scope"`
	ExpiresAt *time.Time        `json:"expiresAt"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (handler *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokens, err := handler.tokenRepo.FindByHousehold(ctx, middleware.GetHouseholdID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]tokenResponse, 0, len(tokens))
	for _, token := range tokens {
		response = append(response, tokenResponse{
			ID:        token.ID,
			Name:      token.Name,
			Scope:     token.Scope,
			ExpiresAt: token.ExpiresAt,
			CreatedAt: token.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

type createTokenRequest struct {
	Name      string            `json:"name"`
	Scope     models.TokenScope `json:"scope"`
	ExpiresAt *time.Time        `json:"expiresAt"`
}

func (handler *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request createTokenRequest
	if err := decodeJSON(r, &request); err != nil {
		badRequest(w, err.Error())
		return
	}
	name := strings.TrimSpace(request.Name)
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	if request.Scope == "" {
		request.Scope = models.TokenScopeICal
	}
	if request.Scope != models.TokenScopeAPI && request.Scope != models.TokenScopeICal {
		badRequest(w, "scope must be api or ical")
		return
	}

	rawToken := generateToken()
	created, err := handler.tokenRepo.Create(ctx, models.APIToken{
		Name:        name,
		TokenHash:   repository.HashToken(rawToken),
		Scope:       request.Scope,
		HouseholdID: middleware.GetHouseholdID(ctx),
		ExpiresAt:   request.ExpiresAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    created.ID,
		"name":  created.Name,
		"scope": created.Scope,
		"token": rawToken,
	})
}

func (handler *TokenHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	tokens, err := handler.tokenRepo.FindByHousehold(ctx, middleware.GetHouseholdID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	owned := false
	for _, token := range tokens {
		if token.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "token not found"})
		return
	}

	if err := handler.tokenRepo.Delete(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("revoked token", "token_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
