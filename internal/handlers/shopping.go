package handlers

import (
	"net/http"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ShoppingHandler struct {
	builder      *services.ShoppingListBuilder
	shoppingList *services.ShoppingListService
}

func NewShoppingHandler(builder *services.ShoppingListBuilder, shoppingList *services.ShoppingListService) *ShoppingHandler {
	return &ShoppingHandler{
		builder:      builder,
		shoppingList: shoppingList,
	}
}

type buildRequest struct {
	HouseholdID string  `json:"householdId"`
	WeekPlanID  *string `json:"weekPlanId"`
	WeekStart   *string `json:"weekStart"`
}

func (handler *ShoppingHandler) Build(w http.ResponseWriter, r *http.Request) {
	var body buildRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	response, err := handler.builder.Build(r.Context(), services.BuildRequest{
		HouseholdID: householdID,
		WeekPlanID:  body.WeekPlanID,
		WeekStart:   body.WeekStart,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

// List serves the shopping list. Archived items are hidden and done items
// shown unless the query says otherwise.
func (handler *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}
	includeArchived, err := queryBool(r, "includeArchived", false)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	includeDone, err := queryBool(r, "includeDone", true)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	query := services.ShoppingListQuery{
		HouseholdID:     householdID,
		IncludeArchived: includeArchived,
		IncludeDone:     includeDone,
	}
	if weekPlanID := r.URL.Query().Get("weekPlanId"); weekPlanID != "" {
		query.WeekPlanID = &weekPlanID
	}

	response, err := handler.shoppingList.GetShoppingList(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

type archiveDoneRequest struct {
	HouseholdID string `json:"householdId"`
	WeekPlanID  string `json:"weekPlanId"`
}

func (handler *ShoppingHandler) ArchiveDone(w http.ResponseWriter, r *http.Request) {
	var body archiveDoneRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	archived, err := handler.shoppingList.ArchiveDone(r.Context(), householdID, body.WeekPlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "archived": archived})
}

func (handler *ShoppingHandler) Purge(w http.ResponseWriter, r *http.Request) {
	var body householdRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	deleted, err := handler.shoppingList.Purge(r.Context(), householdID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": deleted})
}

type manualItemRequest struct {
	HouseholdID  string              `json:"householdId"`
	IngredientID *string             `json:"ingredientId"`
	Label        string              `json:"label"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	UnitID       *string             `json:"unitId"`
	AisleID      *string             `json:"aisleId"`
}

func (handler *ShoppingHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var body manualItemRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	item, err := handler.shoppingList.CreateManualItem(r.Context(), services.ManualItemRequest{
		HouseholdID:  householdID,
		IngredientID: body.IngredientID,
		Label:        body.Label,
		Quantity:     body.Quantity,
		UnitID:       body.UnitID,
		AisleID:      body.AisleID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type itemStatusRequest struct {
	HouseholdID string                     `json:"householdId"`
	Status      *models.ShoppingItemStatus `json:"status"`
}

// UpdateItem sets the item's status, or toggles it when none is sent.
func (handler *ShoppingHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body itemStatusRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	item, err := handler.shoppingList.SetItemStatus(r.Context(), householdID, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
