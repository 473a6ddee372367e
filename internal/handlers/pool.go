package handlers

import (
	"net/http"

	"github.com/MikeDwight/meal-plan-app/internal/services"
)

type PoolHandler struct {
	poolGenerator *services.PoolGenerator
}

func NewPoolHandler(poolGenerator *services.PoolGenerator) *PoolHandler {
	return &PoolHandler{poolGenerator: poolGenerator}
}

type poolRequest struct {
	HouseholdID string                     `json:"householdId"`
	WeekStart   string                     `json:"weekStart"`
	Count       int                        `json:"count"`
	Exclude     services.Exclusions        `json:"exclude"`
	AntiRepeat  services.AntiRepeatOptions `json:"antiRepeat"`
}

func (handler *PoolHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var body poolRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	response, err := handler.poolGenerator.SavePool(r.Context(), services.PoolRequest{
		HouseholdID: householdID,
		WeekStart:   body.WeekStart,
		Count:       body.Count,
		Exclude:     body.Exclude,
		AntiRepeat:  body.AntiRepeat,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (handler *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}
	weekStart := r.URL.Query().Get("weekStart")
	if weekStart == "" {
		badRequest(w, "weekStart is required")
		return
	}

	response, err := handler.poolGenerator.GetPool(r.Context(), householdID, weekStart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (handler *PoolHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var body weekRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	if err := handler.poolGenerator.ClearPool(r.Context(), householdID, body.WeekStart); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
