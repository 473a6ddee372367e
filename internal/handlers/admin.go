package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
)

type AdminHandler struct {
	householdRepo repository.HouseholdRepository
	tokenRepo     repository.APITokenRepository
}

func NewAdminHandler(householdRepo repository.HouseholdRepository, tokenRepo repository.APITokenRepository) *AdminHandler {
	return &AdminHandler{
		householdRepo: householdRepo,
		tokenRepo:     tokenRepo,
	}
}

type createHouseholdRequest struct {
	Name string `json:"name"`
}

// CreateHousehold provisions a household and its first API token. The raw
// token is only ever returned here.
func (handler *AdminHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request createHouseholdRequest
	if err := decodeJSON(r, &request); err != nil {
		badRequest(w, err.Error())
		return
	}
	name := strings.TrimSpace(request.Name)
	if name == "" {
		badRequest(w, "name is required")
		return
	}

	household, err := handler.householdRepo.Create(ctx, models.Household{Name: name})
	if err != nil {
		writeError(w, r, err)
		return
	}

	rawToken := generateToken()
	token, err := handler.tokenRepo.Create(ctx, models.APIToken{
		Name:        name + " API",
		TokenHash:   repository.HashToken(rawToken),
		Scope:       models.TokenScopeAPI,
		HouseholdID: household.ID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("created household", "household_id", household.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"household": household,
		"token": map[string]any{
			"id":    token.ID,
			"name":  token.Name,
			"scope": token.Scope,
			"token": rawToken,
		},
	})
}
