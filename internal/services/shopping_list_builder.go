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
	"github.com/shopspring/decimal"
)

// NeedKey identifies one line of the shopping list. UnitID is empty when the
// quantity has no unit.
type NeedKey struct {
	IngredientID string
	UnitID       string
}

func newNeedKey(ingredientID string, unitID *string) NeedKey {
	key := NeedKey{IngredientID: ingredientID}
	if unitID != nil {
		key.UnitID = *unitID
	}
	return key
}

type AggregatedNeed struct {
	IngredientID   string
	IngredientName string
	UnitID         *string
	AisleID        *string
	Quantity       decimal.Decimal
}

type BuildRequest struct {
	HouseholdID string
	WeekPlanID  *string
	WeekStart   *string
}

type BuildMeta struct {
	TotalActive           int `json:"totalActive"`
	IngredientsAggregated int `json:"ingredientsAggregated"`
	PantryDeductions      int `json:"pantryDeductions"`
	Created               int `json:"created"`
	Updated               int `json:"updated"`
	Archived              int `json:"archived"`
}

type BuildResponse struct {
	WeekPlanID string                `json:"weekPlanId"`
	WeekStart  string                `json:"weekStart"`
	Items      []models.ShoppingItem `json:"items"`
	Meta       BuildMeta             `json:"meta"`
}

// AggregateNeeds sums every planned ingredient requirement, scaled by
// requested over recipe servings, per ingredient and resolved unit. The
// recipe-ingredient unit wins over the ingredient's default unit.
func AggregateNeeds(planned []models.PlannedIngredient) map[NeedKey]AggregatedNeed {
	needs := make(map[NeedKey]AggregatedNeed)
	for _, row := range planned {
		unitID := row.UnitID
		if unitID == nil {
			unitID = row.DefaultUnitID
		}
		key := newNeedKey(row.IngredientID, unitID)
		quantity := scaleQuantity(row.Quantity, row.RequestedServings, row.RecipeServings)

		need, ok := needs[key]
		if !ok {
			need = AggregatedNeed{
				IngredientID:   row.IngredientID,
				IngredientName: row.IngredientName,
				UnitID:         unitID,
				AisleID:        row.DefaultAisleID,
				Quantity:       decimal.Zero,
			}
		}
		need.Quantity = need.Quantity.Add(quantity)
		needs[key] = need
	}
	return needs
}

// scaleQuantity multiplies before dividing so whole-number ratios stay exact.
func scaleQuantity(quantity decimal.Decimal, requestedServings, recipeServings *int) decimal.Decimal {
	base := 1
	if recipeServings != nil {
		base = *recipeServings
	}
	requested := base
	if requestedServings != nil {
		requested = *requestedServings
	}
	if base <= 0 || requested == base {
		return quantity
	}
	return quantity.Mul(decimal.NewFromInt(int64(requested))).Div(decimal.NewFromInt(int64(base)))
}

// DeductPantry subtracts positive pantry stock of the same ingredient and
// unit from each need, dropping needs that are fully covered. It also
// returns how many needs had stock deducted.
func DeductPantry(needs map[NeedKey]AggregatedNeed, pantry []models.PantryItem) (map[NeedKey]AggregatedNeed, int) {
	stock := make(map[NeedKey]decimal.Decimal)
	for _, item := range pantry {
		key := newNeedKey(item.IngredientID, item.UnitID)
		stock[key] = stock[key].Add(item.Quantity)
	}

	remaining := make(map[NeedKey]AggregatedNeed, len(needs))
	deductions := 0
	for key, need := range needs {
		available, ok := stock[key]
		if !ok || !available.IsPositive() {
			remaining[key] = need
			continue
		}
		deductions++
		need.Quantity = need.Quantity.Sub(available)
		if need.Quantity.IsPositive() {
			remaining[key] = need
		}
	}
	return remaining, deductions
}

// reconcile diffs the computed needs against the plan's active meal-plan
// items. Matching items are revived to TODO with the new quantity unless
// nothing changed; a DONE item keeps its state while its need is unchanged.
func reconcile(householdID string, weekPlanID string, needs map[NeedKey]AggregatedNeed, existing []models.ShoppingItem) repository.ShoppingReconciliation {
	var reconciliation repository.ShoppingReconciliation
	matched := make(map[NeedKey]bool, len(existing))

	for _, item := range existing {
		if item.IngredientID == nil {
			reconciliation.ArchiveIDs = append(reconciliation.ArchiveIDs, item.ID)
			continue
		}
		key := newNeedKey(*item.IngredientID, item.UnitID)
		need, ok := needs[key]
		if !ok || matched[key] {
			reconciliation.ArchiveIDs = append(reconciliation.ArchiveIDs, item.ID)
			continue
		}
		matched[key] = true

		if itemSatisfiesNeed(item, need) {
			continue
		}
		item.Label = need.IngredientName
		item.Quantity = decimal.NewNullDecimal(need.Quantity)
		item.AisleID = need.AisleID
		item.Status = models.ShoppingItemStatusTodo
		reconciliation.Updates = append(reconciliation.Updates, item)
	}

	for _, key := range sortedNeedKeys(needs) {
		if matched[key] {
			continue
		}
		need := needs[key]
		ingredientID := need.IngredientID
		reconciliation.Creates = append(reconciliation.Creates, models.ShoppingItem{
			HouseholdID:  householdID,
			WeekPlanID:   &weekPlanID,
			IngredientID: &ingredientID,
			Label:        need.IngredientName,
			Quantity:     decimal.NewNullDecimal(need.Quantity),
			UnitID:       need.UnitID,
			AisleID:      need.AisleID,
			Status:       models.ShoppingItemStatusTodo,
			Source:       models.ShoppingItemSourceMealPlan,
		})
	}
	return reconciliation
}

func itemSatisfiesNeed(item models.ShoppingItem, need AggregatedNeed) bool {
	if !item.Quantity.Valid || !item.Quantity.Decimal.Equal(need.Quantity) {
		return false
	}
	if item.Status == models.ShoppingItemStatusDone {
		return true
	}
	return item.Label == need.IngredientName && equalOptional(item.AisleID, need.AisleID)
}

func equalOptional(left, right *string) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return *left == *right
}

func sortedNeedKeys(needs map[NeedKey]AggregatedNeed) []NeedKey {
	keys := make([]NeedKey, 0, len(needs))
	for key := range needs {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(left, right NeedKey) int {
		if left.IngredientID != right.IngredientID {
			return strings.Compare(left.IngredientID, right.IngredientID)
		}
		return strings.Compare(left.UnitID, right.UnitID)
	})
	return keys
}

type ShoppingListBuilder struct {
	householdRepo repository.HouseholdRepository
	weekPlanRepo  repository.WeekPlanRepository
	pantryRepo    repository.PantryRepository
	shoppingRepo  repository.ShoppingItemRepository
}

func NewShoppingListBuilder(
	householdRepo repository.HouseholdRepository,
	weekPlanRepo repository.WeekPlanRepository,
	pantryRepo repository.PantryRepository,
	shoppingRepo repository.ShoppingItemRepository,
) *ShoppingListBuilder {
	return &ShoppingListBuilder{
		householdRepo: householdRepo,
		weekPlanRepo:  weekPlanRepo,
		pantryRepo:    pantryRepo,
		shoppingRepo:  shoppingRepo,
	}
}

// Build recomputes the shopping list of one week plan and reconciles it with
// the plan's meal-plan items in a single transaction.
func (service *ShoppingListBuilder) Build(ctx context.Context, request BuildRequest) (BuildResponse, error) {
	if err := requireHousehold(ctx, service.householdRepo, request.HouseholdID); err != nil {
		return BuildResponse{}, err
	}
	plan, err := resolveWeekPlan(ctx, service.weekPlanRepo, request.HouseholdID, request.WeekPlanID, request.WeekStart)
	if err != nil {
		return BuildResponse{}, err
	}

	count, err := service.weekPlanRepo.CountAssignments(ctx, plan.ID)
	if err != nil {
		return BuildResponse{}, fmt.Errorf("counting assignments: %w", err)
	}
	if count == 0 {
		return BuildResponse{}, conflict("Week plan %s has no recipes", plan.ID)
	}

	planned, err := service.weekPlanRepo.FindPlannedIngredients(ctx, plan.ID)
	if err != nil {
		return BuildResponse{}, fmt.Errorf("loading planned ingredients: %w", err)
	}
	pantry, err := service.pantryRepo.FindByHousehold(ctx, request.HouseholdID)
	if err != nil {
		return BuildResponse{}, fmt.Errorf("loading pantry: %w", err)
	}

	needs := AggregateNeeds(planned)
	remaining, deductions := DeductPantry(needs, pantry)

	existing, err := service.shoppingRepo.FindMealPlanItems(ctx, request.HouseholdID, plan.ID)
	if err != nil {
		return BuildResponse{}, fmt.Errorf("loading shopping items: %w", err)
	}
	reconciliation := reconcile(request.HouseholdID, plan.ID, remaining, existing)
	if err := service.shoppingRepo.ApplyReconciliation(ctx, reconciliation); err != nil {
		return BuildResponse{}, fmt.Errorf("applying shopping list changes: %w", err)
	}

	items, err := service.shoppingRepo.FindActiveForPlan(ctx, request.HouseholdID, plan.ID)
	if err != nil {
		return BuildResponse{}, fmt.Errorf("reloading shopping items: %w", err)
	}
	if items == nil {
		items = []models.ShoppingItem{}
	}

	meta := BuildMeta{
		TotalActive:           len(items),
		IngredientsAggregated: len(needs),
		PantryDeductions:      deductions,
		Created:               len(reconciliation.Creates),
		Updated:               len(reconciliation.Updates),
		Archived:              len(reconciliation.ArchiveIDs),
	}
	slog.Info("built shopping list",
		"household_id", request.HouseholdID,
		"week_plan_id", plan.ID,
		"created", meta.Created,
		"updated", meta.Updated,
		"archived", meta.Archived,
	)

	return BuildResponse{
		WeekPlanID: plan.ID,
		WeekStart:  plan.WeekStart,
		Items:      items,
		Meta:       meta,
	}, nil
}

// resolveWeekPlan finds a plan by id or by week, exactly one of which must be
// given, and checks it belongs to the household.
func resolveWeekPlan(ctx context.Context, weekPlans repository.WeekPlanRepository, householdID string, weekPlanID *string, weekStart *string) (models.WeekPlan, error) {
	hasID := weekPlanID != nil && *weekPlanID != ""
	hasWeek := weekStart != nil && *weekStart != ""
	switch {
	case hasID && hasWeek:
		return models.WeekPlan{}, badRequest("Provide weekPlanId or weekStart, not both")
	case !hasID && !hasWeek:
		return models.WeekPlan{}, badRequest("Either weekPlanId or weekStart must be provided")
	}

	if hasID {
		plan, err := weekPlans.FindByID(ctx, *weekPlanID)
		if errors.Is(err, sql.ErrNoRows) {
			return models.WeekPlan{}, notFound("Week plan not found: %s", *weekPlanID)
		}
		if err != nil {
			return models.WeekPlan{}, fmt.Errorf("finding week plan: %w", err)
		}
		if plan.HouseholdID != householdID {
			return models.WeekPlan{}, forbidden("Week plan does not belong to this household")
		}
		return plan, nil
	}

	monday, err := ParseWeekStart(*weekStart)
	if err != nil {
		return models.WeekPlan{}, err
	}
	normalized := FormatDate(monday)
	plan, err := weekPlans.FindByHouseholdAndWeek(ctx, householdID, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WeekPlan{}, notFound("No week plan for week %s", normalized)
	}
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("finding week plan: %w", err)
	}
	return plan, nil
}
