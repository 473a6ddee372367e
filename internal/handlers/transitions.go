package handlers

import (
	"net/http"

	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/go-chi/chi/v5"
)

type TransitionHandler struct {
	transitionService *services.TransitionService
}

func NewTransitionHandler(transitionService *services.TransitionService) *TransitionHandler {
	return &TransitionHandler{transitionService: transitionService}
}

func (handler *TransitionHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}
	includeDone, err := queryBool(r, "includeDone", false)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	items, err := handler.transitionService.List(r.Context(), householdID, includeDone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (handler *TransitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body services.TransitionItemRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}
	body.HouseholdID = householdID

	item, err := handler.transitionService.Create(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type transitionUpdateRequest struct {
	HouseholdID string `json:"householdId"`
	services.TransitionItemUpdate
}

func (handler *TransitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body transitionUpdateRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	item, err := handler.transitionService.Update(r.Context(), householdID, chi.URLParam(r, "id"), body.TransitionItemUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (handler *TransitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var body householdRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	if err := handler.transitionService.Delete(r.Context(), householdID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Apply answers 201 when anything was carried over and 200 otherwise.
func (handler *TransitionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var body householdRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	result, err := handler.transitionService.Apply(r.Context(), householdID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Applied > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}
