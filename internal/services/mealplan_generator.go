package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDays          = 7
	defaultLookbackWeeks = 4
	defaultBasePenalty   = 0.5
	defaultDecay         = 0.5
	defaultQuotaBonus    = 0.1
	maxLookbackWeeks     = 52
)

var defaultMealSlots = []models.MealSlot{models.MealSlotLunch, models.MealSlotDinner}

var defaultLeftoversOverride = LeftoversOverride{
	Enabled:                      false,
	MinPantryCoverageRatio:       0.8,
	PenaltyMultiplierWhenCovered: 0.2,
}

type RequiredPlacement struct {
	DayIndex int             `json:"dayIndex"`
	MealSlot models.MealSlot `json:"mealSlot"`
	RecipeID string          `json:"recipeId"`
}

// LeftoversOverrideOptions overrides individual fields of the default
// leftovers override.
type LeftoversOverrideOptions struct {
	Enabled                      *bool    `json:"enabled"`
	MinPantryCoverageRatio       *float64 `json:"minPantryCoverageRatio"`
	PenaltyMultiplierWhenCovered *float64 `json:"penaltyMultiplierWhenCovered"`
}

type AntiRepeatOptions struct {
	LookbackWeeks     *int                      `json:"lookbackWeeks"`
	BasePenalty       *float64                  `json:"basePenalty"`
	Decay             *float64                  `json:"decay"`
	LeftoversOverride *LeftoversOverrideOptions `json:"leftoversOverride"`
}

type GenerateRequest struct {
	HouseholdID         string
	WeekStart           string
	Days                *int
	MealSlots           []models.MealSlot
	Required            []RequiredPlacement
	Exclude             Exclusions
	AntiRepeat          AntiRepeatOptions
	TagQuotas           []TagQuota
	QuotaBonus          *float64
	PreserveManualSlots bool
	Debug               bool
}

type SlotAssignment struct {
	DayIndex  int             `json:"dayIndex"`
	MealSlot  models.MealSlot `json:"mealSlot"`
	RecipeID  string          `json:"recipeId"`
	SortOrder int             `json:"sortOrder"`
}

type SlotScoreBreakdown struct {
	DayIndex            int             `json:"dayIndex"`
	MealSlot            models.MealSlot `json:"mealSlot"`
	RecipeID            string          `json:"recipeId"`
	RecipeTitle         string          `json:"recipeTitle"`
	PantryCoverageRatio float64         `json:"pantryCoverageRatio"`
	AntiRepeatPenalty   float64         `json:"antiRepeatPenalty"`
	QuotaBonus          float64         `json:"quotaBonus"`
	FinalScore          float64         `json:"finalScore"`
}

type GenerateMeta struct {
	TotalSlots     int                  `json:"totalSlots"`
	FilledSlots    int                  `json:"filledSlots"`
	PreservedSlots int                  `json:"preservedSlots"`
	ScoreBreakdown []SlotScoreBreakdown `json:"scoreBreakdown,omitempty"`
}

type GenerateResponse struct {
	WeekPlanID string           `json:"weekPlanId"`
	WeekStart  string           `json:"weekStart"`
	Slots      []SlotAssignment `json:"slots"`
	Meta       GenerateMeta     `json:"meta"`
}

// antiRepeatSettings is AntiRepeatOptions with defaults applied.
type antiRepeatSettings struct {
	lookbackWeeks int
	basePenalty   float64
	decay         float64
	leftovers     LeftoversOverride
}

type scoringContext struct {
	pantry     []models.PantryItem
	history    []models.HistoryEntry
	antiRepeat antiRepeatSettings
	tagQuotas  []TagQuota
	quotaBonus float64
}

func (scoring scoringContext) score(recipe models.Recipe, tagCounts map[string]int) recipeScore {
	coverage := ComputePantryCoverage(recipe, scoring.pantry)
	penalty := ComputeAntiRepeatPenalty(
		recipe.ID, scoring.history,
		scoring.antiRepeat.basePenalty, scoring.antiRepeat.decay,
		scoring.antiRepeat.leftovers, coverage,
	)
	bonus := ComputeQuotaBonus(recipe.TagIDs, tagCounts, scoring.tagQuotas, scoring.quotaBonus)
	return recipeScore{
		recipe:              recipe,
		pantryCoverageRatio: coverage,
		antiRepeatPenalty:   penalty,
		quotaBonus:          bonus,
		finalScore:          coverage + bonus - penalty,
	}
}

type slotKey struct {
	dayIndex int
	mealSlot models.MealSlot
}

type MealPlanGenerator struct {
	householdRepo repository.HouseholdRepository
	recipeRepo    repository.RecipeRepository
	pantryRepo    repository.PantryRepository
	weekPlanRepo  repository.WeekPlanRepository
}

func NewMealPlanGenerator(
	householdRepo repository.HouseholdRepository,
	recipeRepo repository.RecipeRepository,
	pantryRepo repository.PantryRepository,
	weekPlanRepo repository.WeekPlanRepository,
) *MealPlanGenerator {
	return &MealPlanGenerator{
		householdRepo: householdRepo,
		recipeRepo:    recipeRepo,
		pantryRepo:    pantryRepo,
		weekPlanRepo:  weekPlanRepo,
	}
}

// Generate fills every slot of the week with a recipe and persists the
// result, replacing earlier generated assignments.
func (service *MealPlanGenerator) Generate(ctx context.Context, request GenerateRequest) (GenerateResponse, error) {
	if err := requireHousehold(ctx, service.householdRepo, request.HouseholdID); err != nil {
		return GenerateResponse{}, err
	}

	monday, err := ParseWeekStart(request.WeekStart)
	if err != nil {
		return GenerateResponse{}, err
	}
	weekStart := FormatDate(monday)

	days, mealSlots, err := resolveGrid(request.Days, request.MealSlots)
	if err != nil {
		return GenerateResponse{}, err
	}
	antiRepeat, err := resolveAntiRepeat(request.AntiRepeat)
	if err != nil {
		return GenerateResponse{}, err
	}
	quotaBonus, err := resolveQuotaBonus(request.QuotaBonus)
	if err != nil {
		return GenerateResponse{}, err
	}
	for _, quota := range request.TagQuotas {
		if quota.TagID == "" || quota.Min < 0 {
			return GenerateResponse{}, badRequest("tagQuotas entries need a tagId and a non-negative min")
		}
	}
	if err := checkDuplicateRequired(request.Required); err != nil {
		return GenerateResponse{}, err
	}

	var (
		recipes []models.Recipe
		pantry  []models.PantryItem
		history []models.HistoryEntry
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		recipes, err = service.recipeRepo.FindByHousehold(groupCtx, request.HouseholdID)
		return err
	})
	group.Go(func() error {
		var err error
		pantry, err = service.pantryRepo.FindByHousehold(groupCtx, request.HouseholdID)
		return err
	})
	group.Go(func() error {
		var err error
		history, err = service.weekPlanRepo.FindHistory(groupCtx, request.HouseholdID, weekStart, antiRepeat.lookbackWeeks)
		return err
	})
	if err := group.Wait(); err != nil {
		return GenerateResponse{}, fmt.Errorf("loading generation inputs: %w", err)
	}

	if len(recipes) == 0 {
		return GenerateResponse{}, conflict("No recipes available for this household")
	}

	recipesByID := make(map[string]models.Recipe, len(recipes))
	for _, recipe := range recipes {
		recipesByID[recipe.ID] = recipe
	}

	required := make(map[slotKey]models.Recipe, len(request.Required))
	for _, placement := range request.Required {
		if placement.DayIndex < 0 || placement.DayIndex >= days {
			return GenerateResponse{}, badRequest("Invalid dayIndex %d in required", placement.DayIndex)
		}
		if !slices.Contains(mealSlots, placement.MealSlot) {
			return GenerateResponse{}, badRequest("Invalid mealSlot %s in required", placement.MealSlot)
		}
		recipe, ok := recipesByID[placement.RecipeID]
		if !ok {
			return GenerateResponse{}, notFound("Recipe not found for required placement: %s", placement.RecipeID)
		}
		required[slotKey{placement.DayIndex, placement.MealSlot}] = recipe
	}

	state := newSelectionState()
	frozen, err := service.preservedSlots(ctx, request, weekStart)
	if err != nil {
		return GenerateResponse{}, err
	}
	for _, placement := range request.Required {
		if _, ok := frozen[slotKey{placement.DayIndex, placement.MealSlot}]; ok {
			return GenerateResponse{}, badRequest("Required placement on day %d %s collides with a preserved manual slot", placement.DayIndex, placement.MealSlot)
		}
	}
	for _, assignment := range frozen {
		state.take(assignment.RecipeID, recipesByID[assignment.RecipeID].TagIDs)
	}
	// Required recipes are reserved up front so scoring never picks them for
	// an earlier slot.
	for _, recipe := range required {
		state.used[recipe.ID] = true
	}

	scoring := scoringContext{
		pantry:     pantry,
		history:    history,
		antiRepeat: antiRepeat,
		tagQuotas:  request.TagQuotas,
		quotaBonus: quotaBonus,
	}
	eligible := filterEligible(recipes, request.Exclude)

	totalSlots := days * len(mealSlots)
	preserved := 0
	var slots []SlotAssignment
	var breakdown []SlotScoreBreakdown
	for dayIndex := 0; dayIndex < days; dayIndex++ {
		for _, mealSlot := range mealSlots {
			key := slotKey{dayIndex, mealSlot}
			if _, ok := frozen[key]; ok {
				preserved++
				continue
			}

			var chosen recipeScore
			if recipe, ok := required[key]; ok {
				chosen = scoring.score(recipe, state.tagCounts)
			} else {
				best, found := selectBest(eligible, state, scoring)
				if !found {
					return GenerateResponse{}, &UnfilledSlotsError{Filled: len(slots) + preserved, Total: totalSlots}
				}
				chosen = best
			}

			slots = append(slots, SlotAssignment{
				DayIndex:  dayIndex,
				MealSlot:  mealSlot,
				RecipeID:  chosen.recipe.ID,
				SortOrder: len(slots),
			})
			state.take(chosen.recipe.ID, chosen.recipe.TagIDs)

			if request.Debug {
				breakdown = append(breakdown, SlotScoreBreakdown{
					DayIndex:            dayIndex,
					MealSlot:            mealSlot,
					RecipeID:            chosen.recipe.ID,
					RecipeTitle:         chosen.recipe.Title,
					PantryCoverageRatio: chosen.pantryCoverageRatio,
					AntiRepeatPenalty:   chosen.antiRepeatPenalty,
					QuotaBonus:          chosen.quotaBonus,
					FinalScore:          chosen.finalScore,
				})
			}
		}
	}

	assignments := make([]models.WeekPlanRecipe, 0, len(slots))
	for _, slot := range slots {
		assignments = append(assignments, models.WeekPlanRecipe{
			RecipeID:  slot.RecipeID,
			DayIndex:  slot.DayIndex,
			MealSlot:  slot.MealSlot,
			SortOrder: slot.SortOrder,
		})
	}
	plan, err := service.weekPlanRepo.SaveGenerated(ctx, request.HouseholdID, weekStart, assignments, request.PreserveManualSlots)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("saving generated plan: %w", err)
	}

	slog.Info("generated meal plan",
		"household_id", request.HouseholdID,
		"week_start", weekStart,
		"generated", len(slots),
		"preserved", preserved,
	)

	response := GenerateResponse{
		WeekPlanID: plan.ID,
		WeekStart:  weekStart,
		Slots:      slots,
		Meta: GenerateMeta{
			TotalSlots:     totalSlots,
			FilledSlots:    len(slots) + preserved,
			PreservedSlots: preserved,
		},
	}
	if response.Slots == nil {
		response.Slots = []SlotAssignment{}
	}
	if request.Debug {
		response.Meta.ScoreBreakdown = breakdown
	}
	return response, nil
}

// preservedSlots loads the manual pins of an existing plan for the week.
func (service *MealPlanGenerator) preservedSlots(ctx context.Context, request GenerateRequest, weekStart string) (map[slotKey]models.WeekPlanRecipe, error) {
	frozen := make(map[slotKey]models.WeekPlanRecipe)
	if !request.PreserveManualSlots {
		return frozen, nil
	}

	plan, err := service.weekPlanRepo.FindByHouseholdAndWeek(ctx, request.HouseholdID, weekStart)
	if errors.Is(err, sql.ErrNoRows) {
		return frozen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding week plan: %w", err)
	}

	manual, err := service.weekPlanRepo.FindManualAssignments(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("finding manual assignments: %w", err)
	}
	for _, assignment := range manual {
		frozen[slotKey{assignment.DayIndex, assignment.MealSlot}] = assignment
	}
	return frozen, nil
}

func selectBest(eligible []models.Recipe, state *selectionState, scoring scoringContext) (recipeScore, bool) {
	var candidates []recipeScore
	for _, recipe := range eligible {
		if state.used[recipe.ID] {
			continue
		}
		candidates = append(candidates, scoring.score(recipe, state.tagCounts))
	}
	if len(candidates) == 0 {
		return recipeScore{}, false
	}
	rankScores(candidates)
	return candidates[0], true
}

func requireHousehold(ctx context.Context, households repository.HouseholdRepository, householdID string) error {
	if householdID == "" {
		return badRequest("householdId is required")
	}
	if _, err := households.FindByID(ctx, householdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Household not found: %s", householdID)
		}
		return fmt.Errorf("finding household: %w", err)
	}
	return nil
}

func checkDuplicateRequired(required []RequiredPlacement) error {
	seen := make(map[string]bool, len(required))
	var duplicates []string
	for _, placement := range required {
		if seen[placement.RecipeID] && !slices.Contains(duplicates, placement.RecipeID) {
			duplicates = append(duplicates, placement.RecipeID)
		}
		seen[placement.RecipeID] = true
	}
	if len(duplicates) > 0 {
		return badRequest("Duplicate recipeId in required placements: %s", strings.Join(duplicates, ", "))
	}
	return nil
}

func resolveGrid(days *int, mealSlots []models.MealSlot) (int, []models.MealSlot, error) {
	resolvedDays := defaultDays
	if days != nil {
		if *days < 1 || *days > 7 {
			return 0, nil, badRequest("days must be between 1 and 7")
		}
		resolvedDays = *days
	}

	if len(mealSlots) == 0 {
		return resolvedDays, defaultMealSlots, nil
	}
	for index, slot := range mealSlots {
		if !slot.Valid() {
			return 0, nil, badRequest("Invalid mealSlot %s", slot)
		}
		if slices.Contains(mealSlots[:index], slot) {
			return 0, nil, badRequest("Duplicate mealSlot %s", slot)
		}
	}
	return resolvedDays, mealSlots, nil
}

func resolveAntiRepeat(options AntiRepeatOptions) (antiRepeatSettings, error) {
	settings := antiRepeatSettings{
		lookbackWeeks: defaultLookbackWeeks,
		basePenalty:   defaultBasePenalty,
		decay:         defaultDecay,
		leftovers:     defaultLeftoversOverride,
	}

	if options.LookbackWeeks != nil {
		if *options.LookbackWeeks < 0 || *options.LookbackWeeks > maxLookbackWeeks {
			return antiRepeatSettings{}, badRequest("antiRepeat.lookbackWeeks must be between 0 and %d", maxLookbackWeeks)
		}
		settings.lookbackWeeks = *options.LookbackWeeks
	}
	if err := applyRatio(&settings.basePenalty, options.BasePenalty, "antiRepeat.basePenalty"); err != nil {
		return antiRepeatSettings{}, err
	}
	if err := applyRatio(&settings.decay, options.Decay, "antiRepeat.decay"); err != nil {
		return antiRepeatSettings{}, err
	}

	if override := options.LeftoversOverride; override != nil {
		if override.Enabled != nil {
			settings.leftovers.Enabled = *override.Enabled
		}
		if err := applyRatio(&settings.leftovers.MinPantryCoverageRatio, override.MinPantryCoverageRatio, "leftoversOverride.minPantryCoverageRatio"); err != nil {
			return antiRepeatSettings{}, err
		}
		if err := applyRatio(&settings.leftovers.PenaltyMultiplierWhenCovered, override.PenaltyMultiplierWhenCovered, "leftoversOverride.penaltyMultiplierWhenCovered"); err != nil {
			return antiRepeatSettings{}, err
		}
	}
	return settings, nil
}

func resolveQuotaBonus(value *float64) (float64, error) {
	bonus := defaultQuotaBonus
	if err := applyRatio(&bonus, value, "quotaBonus"); err != nil {
		return 0, err
	}
	return bonus, nil
}

// applyRatio overwrites target with value when set, requiring 0..1.
func applyRatio(target *float64, value *float64, name string) error {
	if value == nil {
		return nil
	}
	if *value < 0 || *value > 1 {
		return badRequest("%s must be between 0 and 1", name)
	}
	*target = *value
	return nil
}
