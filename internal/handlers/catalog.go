package handlers

import (
	"net/http"
	"strings"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/shopspring/decimal"
)

// CatalogHandler creates the reference data recipes, pantry and shopping
// items point at.
type CatalogHandler struct {
	catalogRepo repository.CatalogRepository
	pantryRepo  repository.PantryRepository
}

func NewCatalogHandler(catalogRepo repository.CatalogRepository, pantryRepo repository.PantryRepository) *CatalogHandler {
	return &CatalogHandler{
		catalogRepo: catalogRepo,
		pantryRepo:  pantryRepo,
	}
}

type catalogRequest struct {
	HouseholdID    string  `json:"householdId"`
	Name           string  `json:"name"`
	Abbr           string  `json:"abbr"`
	SortOrder      int     `json:"sortOrder"`
	DefaultUnitID  *string `json:"defaultUnitId"`
	DefaultAisleID *string `json:"defaultAisleId"`
}

// decodeCatalogRequest decodes a named catalog entry scoped to the caller's
// household. It writes the error response itself.
func decodeCatalogRequest(w http.ResponseWriter, r *http.Request) (catalogRequest, string, bool) {
	var request catalogRequest
	if err := decodeJSON(r, &request); err != nil {
		badRequest(w, err.Error())
		return catalogRequest{}, "", false
	}
	householdID, ok := scopedHousehold(w, r, request.HouseholdID)
	if !ok {
		return catalogRequest{}, "", false
	}
	request.Name = strings.TrimSpace(request.Name)
	if request.Name == "" {
		badRequest(w, "name is required")
		return catalogRequest{}, "", false
	}
	return request, householdID, true
}

func (handler *CatalogHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	request, householdID, ok := decodeCatalogRequest(w, r)
	if !ok {
		return
	}
	abbr := strings.TrimSpace(request.Abbr)
	if abbr == "" {
		abbr = request.Name
	}

	unit, err := handler.catalogRepo.CreateUnit(r.Context(), models.Unit{HouseholdID: householdID, Name: request.Name, Abbr: abbr})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, unit)
}

func (handler *CatalogHandler) CreateAisle(w http.ResponseWriter, r *http.Request) {
	request, householdID, ok := decodeCatalogRequest(w, r)
	if !ok {
		return
	}

	aisle, err := handler.catalogRepo.CreateAisle(r.Context(), models.Aisle{HouseholdID: householdID, Name: request.Name, SortOrder: request.SortOrder})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, aisle)
}

func (handler *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	request, householdID, ok := decodeCatalogRequest(w, r)
	if !ok {
		return
	}

	tag, err := handler.catalogRepo.CreateTag(r.Context(), models.Tag{HouseholdID: householdID, Name: request.Name})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (handler *CatalogHandler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	request, householdID, ok := decodeCatalogRequest(w, r)
	if !ok {
		return
	}

	ingredient, err := handler.catalogRepo.CreateIngredient(r.Context(), models.Ingredient{
		HouseholdID:    householdID,
		Name:           request.Name,
		DefaultUnitID:  request.DefaultUnitID,
		DefaultAisleID: request.DefaultAisleID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingredient)
}

type pantryItemRequest struct {
	HouseholdID  string          `json:"householdId"`
	IngredientID string          `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       *string         `json:"unitId"`
}

func (handler *CatalogHandler) CreatePantryItem(w http.ResponseWriter, r *http.Request) {
	var request pantryItemRequest
	if err := decodeJSON(r, &request); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, request.HouseholdID)
	if !ok {
		return
	}
	if request.IngredientID == "" {
		badRequest(w, "ingredientId is required")
		return
	}
	if request.Quantity.IsNegative() {
		badRequest(w, "quantity must not be negative")
		return
	}

	item, err := handler.pantryRepo.Create(r.Context(), models.PantryItem{
		HouseholdID:  householdID,
		IngredientID: request.IngredientID,
		Quantity:     request.Quantity,
		UnitID:       request.UnitID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (handler *CatalogHandler) ListPantry(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}

	items, err := handler.pantryRepo.FindByHousehold(r.Context(), householdID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.PantryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}
