package handlers

import (
	"log/slog"
	"net/http"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/services"
)

type MealPlanHandler struct {
	generator       *services.MealPlanGenerator
	weekPlanService *services.WeekPlanService
	builder         *services.ShoppingListBuilder
	calendarService *services.CalendarService
}

func NewMealPlanHandler(
	generator *services.MealPlanGenerator,
	weekPlanService *services.WeekPlanService,
	builder *services.ShoppingListBuilder,
	calendarService *services.CalendarService,
) *MealPlanHandler {
	return &MealPlanHandler{
		generator:       generator,
		weekPlanService: weekPlanService,
		builder:         builder,
		calendarService: calendarService,
	}
}

// generateRequest accepts the legacy requiredPlacements and exclusions
// spellings next to required and exclude, but never both of a pair.
type generateRequest struct {
	HouseholdID         string                       `json:"householdId"`
	WeekStart           string                       `json:"weekStart"`
	Days                *int                         `json:"days"`
	MealSlots           []models.MealSlot            `json:"mealSlots"`
	Required            []services.RequiredPlacement `json:"required"`
	RequiredPlacements  []services.RequiredPlacement `json:"requiredPlacements"`
	Exclude             *services.Exclusions         `json:"exclude"`
	Exclusions          *services.Exclusions         `json:"exclusions"`
	AntiRepeat          services.AntiRepeatOptions   `json:"antiRepeat"`
	TagQuotas           []services.TagQuota          `json:"tagQuotas"`
	QuotaBonus          *float64                     `json:"quotaBonus"`
	PreserveManualSlots bool                         `json:"preserveManualSlots"`
	Debug               bool                         `json:"debug"`
}

func (request generateRequest) normalize(householdID string) (services.GenerateRequest, string) {
	if request.Required != nil && request.RequiredPlacements != nil {
		return services.GenerateRequest{}, "Ambiguous request: cannot specify both 'required' and 'requiredPlacements'"
	}
	if request.Exclude != nil && request.Exclusions != nil {
		return services.GenerateRequest{}, "Ambiguous request: cannot specify both 'exclude' and 'exclusions'"
	}

	required := request.Required
	if required == nil {
		required = request.RequiredPlacements
	}
	var exclude services.Exclusions
	switch {
	case request.Exclude != nil:
		exclude = *request.Exclude
	case request.Exclusions != nil:
		exclude = *request.Exclusions
	}

	return services.GenerateRequest{
		HouseholdID:         householdID,
		WeekStart:           request.WeekStart,
		Days:                request.Days,
		MealSlots:           request.MealSlots,
		Required:            required,
		Exclude:             exclude,
		AntiRepeat:          request.AntiRepeat,
		TagQuotas:           request.TagQuotas,
		QuotaBonus:          request.QuotaBonus,
		PreserveManualSlots: request.PreserveManualSlots,
		Debug:               request.Debug,
	}, ""
}

// Generate fills the week and rebuilds its shopping list.
func (handler *MealPlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body generateRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}
	request, problem := body.normalize(householdID)
	if problem != "" {
		badRequest(w, problem)
		return
	}

	response, err := handler.generator.Generate(ctx, request)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The plan is already committed; a failed rebuild leaves the previous list
	// until the next build.
	if _, err := handler.builder.Build(ctx, services.BuildRequest{HouseholdID: householdID, WeekPlanID: &response.WeekPlanID}); err != nil {
		slog.Error("building shopping list after generation",
			"household_id", householdID,
			"week_plan_id", response.WeekPlanID,
			"error", err,
		)
	}
	writeJSON(w, http.StatusCreated, response)
}

func (handler *MealPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}
	weekStart := r.URL.Query().Get("weekStart")
	if weekStart == "" {
		badRequest(w, "weekStart is required")
		return
	}

	response, err := handler.weekPlanService.GetWeekPlan(r.Context(), householdID, weekStart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

type setSlotRequest struct {
	HouseholdID string          `json:"householdId"`
	WeekStart   string          `json:"weekStart"`
	DayIndex    *int            `json:"dayIndex"`
	MealSlot    models.MealSlot `json:"mealSlot"`
	RecipeID    string          `json:"recipeId"`
	Servings    *int            `json:"servings"`
}

func (handler *MealPlanHandler) SetSlot(w http.ResponseWriter, r *http.Request) {
	var body setSlotRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}
	if body.DayIndex == nil || body.RecipeID == "" {
		badRequest(w, "dayIndex and recipeId are required")
		return
	}

	response, err := handler.weekPlanService.SetSlot(r.Context(), services.SetSlotRequest{
		HouseholdID: householdID,
		WeekStart:   body.WeekStart,
		DayIndex:    *body.DayIndex,
		MealSlot:    body.MealSlot,
		RecipeID:    body.RecipeID,
		Servings:    body.Servings,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

type weekRequest struct {
	HouseholdID string `json:"householdId"`
	WeekStart   string `json:"weekStart"`
}

func (handler *MealPlanHandler) ClearWeek(w http.ResponseWriter, r *http.Request) {
	var body weekRequest
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	householdID, ok := scopedHousehold(w, r, body.HouseholdID)
	if !ok {
		return
	}

	response, err := handler.weekPlanService.ClearWeek(r.Context(), householdID, body.WeekStart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// ICal serves the week's plan as a calendar feed.
func (handler *MealPlanHandler) ICal(w http.ResponseWriter, r *http.Request) {
	householdID, ok := scopedHousehold(w, r, r.URL.Query().Get("householdId"))
	if !ok {
		return
	}
	weekStart := r.URL.Query().Get("weekStart")
	if weekStart == "" {
		badRequest(w, "weekStart is required")
		return
	}

	document, err := handler.calendarService.ExportWeekPlanICS(r.Context(), householdID, weekStart)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=meal-plan.ics")
	if _, err := w.Write([]byte(document)); err != nil {
		slog.Error("writing ical feed", "error", err)
	}
}
