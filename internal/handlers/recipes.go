package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/MikeDwight/meal-plan-app/internal/middleware"
	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type RecipeHandler struct {
	recipeRepo  repository.RecipeRepository
	catalogRepo repository.CatalogRepository
}

func NewRecipeHandler(recipeRepo repository.RecipeRepository, catalogRepo repository.CatalogRepository) *RecipeHandler {
	return &RecipeHandler{
		recipeRepo:  recipeRepo,
		catalogRepo: catalogRepo,
	}
}

func (handler *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}

	summaries, err := handler.recipeRepo.FindSummaries(r.Context(), householdID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type recipeIngredientRequest struct {
	IngredientID string          `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       *string         `json:"unitId"`
}

type createRecipeRequest struct {
	HouseholdID string                    `json:"householdId"`
	Title       string                    `json:"title"`
	Servings    *int                      `json:"servings"`
	TagIDs      []string                  `json:"tagIds"`
	Ingredients []recipeIngredientRequest `json:"ingredients"`
}

func (handler *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request createRecipeRequest
	if err := decodeJSON(r, &request); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, request.HouseholdID)
	if !ok {
		return
	}

	title := strings.TrimSpace(request.Title)
	if title == "" {
		badRequest(w, "title is required")
		return
	}
	if request.Servings != nil && *request.Servings < 1 {
		badRequest(w, "servings must be positive")
		return
	}

	recipe := models.Recipe{
		HouseholdID: householdID,
		Title:       title,
		Servings:    request.Servings,
		TagIDs:      request.TagIDs,
	}
	for _, ingredient := range request.Ingredients {
		if !ingredient.Quantity.IsPositive() {
			badRequest(w, "ingredient quantities must be positive")
			return
		}
		found, err := handler.catalogRepo.FindIngredientByID(ctx, ingredient.IngredientID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			writeError(w, r, err)
			return
		}
		if err != nil || found.HouseholdID != householdID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ingredient not found in this household: " + ingredient.IngredientID})
			return
		}
		recipe.Ingredients = append(recipe.Ingredients, models.RecipeIngredient{
			IngredientID: ingredient.IngredientID,
			Quantity:     ingredient.Quantity,
			UnitID:       ingredient.UnitID,
		})
	}

	created, err := handler.recipeRepo.Create(ctx, recipe)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (handler *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	recipe, err := handler.recipeRepo.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && recipe.HouseholdID != middleware.GetHouseholdID(ctx)) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Recipe not found in this household"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := handler.recipeRepo.Delete(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
