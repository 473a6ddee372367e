package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
)

type SlotRecipe struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type WeekPlanSlot struct {
	DayIndex  int             `json:"dayIndex"`
	MealSlot  models.MealSlot `json:"mealSlot"`
	SortOrder int             `json:"sortOrder"`
	IsManual  bool            `json:"isManual"`
	Servings  *int            `json:"servings"`
	Recipe    SlotRecipe      `json:"recipe"`
}

type WeekPlanResponse struct {
	WeekPlanID string         `json:"weekPlanId"`
	WeekStart  string         `json:"weekStart"`
	Slots      []WeekPlanSlot `json:"slots"`
}

type SetSlotRequest struct {
	HouseholdID string
	WeekStart   string
	DayIndex    int
	MealSlot    models.MealSlot
	RecipeID    string
	Servings    *int
}

type SetSlotResponse struct {
	WeekPlanID string       `json:"weekPlanId"`
	WeekStart  string       `json:"weekStart"`
	Slot       WeekPlanSlot `json:"slot"`
}

type ClearWeekResponse struct {
	OK       bool  `json:"ok"`
	Deleted  int64 `json:"deleted"`
	Archived int64 `json:"archived"`
}

type WeekPlanService struct {
	recipeRepo   repository.RecipeRepository
	weekPlanRepo repository.WeekPlanRepository
	builder      *ShoppingListBuilder
}

func NewWeekPlanService(
	recipeRepo repository.RecipeRepository,
	weekPlanRepo repository.WeekPlanRepository,
	builder *ShoppingListBuilder,
) *WeekPlanService {
	return &WeekPlanService{
		recipeRepo:   recipeRepo,
		weekPlanRepo: weekPlanRepo,
		builder:      builder,
	}
}

func (service *WeekPlanService) GetWeekPlan(ctx context.Context, householdID string, weekStart string) (WeekPlanResponse, error) {
	plan, err := service.findPlan(ctx, householdID, weekStart)
	if err != nil {
		return WeekPlanResponse{}, err
	}

	assignments, err := service.weekPlanRepo.FindAssignments(ctx, plan.ID)
	if err != nil {
		return WeekPlanResponse{}, fmt.Errorf("finding assignments: %w", err)
	}

	slots := make([]WeekPlanSlot, 0, len(assignments))
	for _, assignment := range assignments {
		slots = append(slots, weekPlanSlot(assignment))
	}
	return WeekPlanResponse{WeekPlanID: plan.ID, WeekStart: plan.WeekStart, Slots: slots}, nil
}

// SetSlot pins a recipe of the household to one slot, creating the week plan
// if needed, then rebuilds the plan's shopping list.
func (service *WeekPlanService) SetSlot(ctx context.Context, request SetSlotRequest) (SetSlotResponse, error) {
	monday, err := ParseWeekStart(request.WeekStart)
	if err != nil {
		return SetSlotResponse{}, err
	}
	weekStart := FormatDate(monday)

	if request.DayIndex < 0 || request.DayIndex > 6 {
		return SetSlotResponse{}, badRequest("dayIndex must be between 0 and 6")
	}
	if !request.MealSlot.Valid() {
		return SetSlotResponse{}, badRequest("Invalid mealSlot %s", request.MealSlot)
	}
	if request.Servings != nil && *request.Servings < 1 {
		return SetSlotResponse{}, badRequest("servings must be positive")
	}

	recipe, err := service.recipeRepo.FindByID(ctx, request.RecipeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return SetSlotResponse{}, fmt.Errorf("finding recipe: %w", err)
	}
	if err != nil || recipe.HouseholdID != request.HouseholdID {
		return SetSlotResponse{}, notFound("Recipe not found in this household")
	}

	plan, assignment, err := service.weekPlanRepo.SetSlot(ctx, request.HouseholdID, weekStart, models.WeekPlanRecipe{
		RecipeID: recipe.ID,
		DayIndex: request.DayIndex,
		MealSlot: request.MealSlot,
		Servings: request.Servings,
	})
	if err != nil {
		return SetSlotResponse{}, fmt.Errorf("setting slot: %w", err)
	}

	if _, err := service.builder.Build(ctx, BuildRequest{HouseholdID: request.HouseholdID, WeekPlanID: &plan.ID}); err != nil {
		return SetSlotResponse{}, fmt.Errorf("rebuilding shopping list: %w", err)
	}

	assignment.RecipeTitle = recipe.Title
	assignment.RecipeTags, err = service.tagNames(ctx, plan.ID, assignment.ID)
	if err != nil {
		return SetSlotResponse{}, err
	}

	slog.Info("pinned recipe to slot",
		"household_id", request.HouseholdID,
		"week_start", weekStart,
		"day_index", request.DayIndex,
		"meal_slot", request.MealSlot,
		"recipe_id", recipe.ID,
	)
	return SetSlotResponse{WeekPlanID: plan.ID, WeekStart: plan.WeekStart, Slot: weekPlanSlot(assignment)}, nil
}

// ClearWeek removes every assignment of the week and archives the plan's
// meal-plan shopping items. A week without a plan is already clear.
func (service *WeekPlanService) ClearWeek(ctx context.Context, householdID string, weekStart string) (ClearWeekResponse, error) {
	plan, err := service.findPlan(ctx, householdID, weekStart)
	if errors.Is(err, ErrNotFound) {
		return ClearWeekResponse{OK: true}, nil
	}
	if err != nil {
		return ClearWeekResponse{}, err
	}

	result, err := service.weekPlanRepo.ClearWeek(ctx, plan.ID)
	if err != nil {
		return ClearWeekResponse{}, fmt.Errorf("clearing week: %w", err)
	}

	slog.Info("cleared week plan",
		"household_id", householdID,
		"week_start", plan.WeekStart,
		"deleted", result.DeletedAssignments,
		"archived", result.ArchivedItems,
	)
	return ClearWeekResponse{OK: true, Deleted: result.DeletedAssignments, Archived: result.ArchivedItems}, nil
}

func (service *WeekPlanService) findPlan(ctx context.Context, householdID string, weekStart string) (models.WeekPlan, error) {
	monday, err := ParseWeekStart(weekStart)
	if err != nil {
		return models.WeekPlan{}, err
	}
	normalized := FormatDate(monday)

	plan, err := service.weekPlanRepo.FindByHouseholdAndWeek(ctx, householdID, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeekPlan{}, notFound("No week plan found for week %s", normalized)
	}
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("finding week plan: %w", err)
	}
	return plan, nil
}

func (service *WeekPlanService) tagNames(ctx context.Context, weekPlanID string, assignmentID string) ([]string, error) {
	assignments, err := service.weekPlanRepo.FindAssignments(ctx, weekPlanID)
	if err != nil {
		return nil, fmt.Errorf("finding assignments: %w", err)
	}
	for _, assignment := range assignments {
		if assignment.ID == assignmentID {
			return assignment.RecipeTags, nil
		}
	}
	return []string{}, nil
}

func weekPlanSlot(assignment models.WeekPlanRecipe) WeekPlanSlot {
	tags := assignment.RecipeTags
	if tags == nil {
		tags = []string{}
	}
	return WeekPlanSlot{
		DayIndex:  assignment.DayIndex,
		MealSlot:  assignment.MealSlot,
		SortOrder: assignment.SortOrder,
		IsManual:  assignment.IsManual,
		Servings:  assignment.Servings,
		Recipe: SlotRecipe{
			ID:    assignment.RecipeID,
			Title: assignment.RecipeTitle,
			Tags:  tags,
		},
	}
}
