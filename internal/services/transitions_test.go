package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/MikeDwight/meal-plan-app/internal/testutil"
	"github.com/shopspring/decimal"
)

func (env *testEnv) transitionService() *services.TransitionService {
	return services.NewTransitionService(env.households, env.transitions)
}

func TestTransitionService_CreateAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	service := env.transitionService()

	item, err := service.Create(ctx, services.TransitionItemRequest{HouseholdID: household.ID, Label: " rice "})
	if err != nil {
		t.Fatalf("creating: %v", err)
	}
	if item.Label != "rice" || item.Status != models.ShoppingItemStatusTodo {
		t.Errorf("unexpected item %+v", item)
	}
	if _, err := service.Update(ctx, household.ID, item.ID, services.TransitionItemUpdate{}); err != nil {
		t.Fatalf("toggling: %v", err)
	}
	if _, err := service.Create(ctx, services.TransitionItemRequest{HouseholdID: household.ID, Label: "oil"}); err != nil {
		t.Fatalf("creating: %v", err)
	}

	todo, err := service.List(ctx, household.ID, false)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	all, err := service.List(ctx, household.ID, true)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(todo) != 1 || len(all) != 2 {
		t.Errorf("expected 1 todo and 2 total, got %d and %d", len(todo), len(all))
	}

	tests := []struct {
		name     string
		request  services.TransitionItemRequest
		expected error
	}{
		{"blank label", services.TransitionItemRequest{HouseholdID: household.ID, Label: "  "}, services.ErrBadRequest},
		{"missing household", services.TransitionItemRequest{Label: "x"}, services.ErrBadRequest},
		{"unknown household", services.TransitionItemRequest{HouseholdID: "nope", Label: "x"}, services.ErrNotFound},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := service.Create(ctx, testCase.request); !errors.Is(err, testCase.expected) {
				t.Errorf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}

func TestTransitionService_UpdateOnlyTouchesSentFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	grams := env.fixtures.Unit(household.ID, "g")
	service := env.transitionService()

	item, err := service.Create(ctx, services.TransitionItemRequest{
		HouseholdID: household.ID,
		Label:       "cheese",
		Quantity:    decimal.NewNullDecimal(decimal.NewFromInt(200)),
		UnitID:      &grams.ID,
	})
	if err != nil {
		t.Fatalf("creating: %v", err)
	}

	var update services.TransitionItemUpdate
	if err := json.Unmarshal([]byte(`{"status":"TODO","quantity":null,"label":"parmesan"}`), &update); err != nil {
		t.Fatalf("decoding update: %v", err)
	}
	updated, err := service.Update(ctx, household.ID, item.ID, update)
	if err != nil {
		t.Fatalf("updating: %v", err)
	}
	if updated.Status != models.ShoppingItemStatusTodo {
		t.Errorf("expected explicit TODO, got %s", updated.Status)
	}
	if updated.Quantity.Valid {
		t.Errorf("expected quantity cleared, got %s", updated.Quantity.Decimal)
	}
	if updated.Label != "parmesan" {
		t.Errorf("expected label parmesan, got %s", updated.Label)
	}
	if updated.UnitID == nil || *updated.UnitID != grams.ID {
		t.Errorf("expected unit kept, got %v", updated.UnitID)
	}
}

func TestTransitionService_OwnershipErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	other := env.fixtures.Household("Other")
	service := env.transitionService()

	item, err := service.Create(ctx, services.TransitionItemRequest{HouseholdID: household.ID, Label: "bread"})
	if err != nil {
		t.Fatalf("creating: %v", err)
	}

	tests := []struct {
		name        string
		householdID string
		itemID      string
		expected    error
	}{
		{"missing item", household.ID, "nope", services.ErrNotFound},
		{"other household", other.ID, item.ID, services.ErrForbidden},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := service.Update(ctx, testCase.householdID, testCase.itemID, services.TransitionItemUpdate{}); !errors.Is(err, testCase.expected) {
				t.Errorf("update: expected %v, got %v", testCase.expected, err)
			}
			if err := service.Delete(ctx, testCase.householdID, testCase.itemID); !errors.Is(err, testCase.expected) {
				t.Errorf("delete: expected %v, got %v", testCase.expected, err)
			}
		})
	}

	blank := "  "
	if _, err := service.Update(ctx, household.ID, item.ID, services.TransitionItemUpdate{Label: &blank}); !errors.Is(err, services.ErrBadRequest) {
		t.Errorf("expected bad request for a blank label, got %v", err)
	}
	if err := service.Delete(ctx, household.ID, item.ID); err != nil {
		t.Fatalf("deleting: %v", err)
	}
}

func TestTransitionService_ApplyMergesIntoShoppingList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	grams := env.fixtures.Unit(household.ID, "g")
	rice := env.fixtures.Ingredient(household.ID, "rice", &grams.ID, nil)
	service := env.transitionService()

	nothing, err := service.Apply(ctx, household.ID)
	if err != nil {
		t.Fatalf("applying nothing: %v", err)
	}
	if nothing.Applied != 0 || nothing.Merged != 0 || nothing.Created != 0 {
		t.Errorf("expected zero result, got %+v", nothing)
	}

	if _, err := env.shoppingList().CreateManualItem(ctx, services.ManualItemRequest{
		HouseholdID:  household.ID,
		IngredientID: &rice.ID,
		Label:        "rice",
		Quantity:     decimal.NewNullDecimal(decimal.NewFromInt(300)),
		UnitID:       &grams.ID,
	}); err != nil {
		t.Fatalf("creating shopping item: %v", err)
	}
	for _, request := range []services.TransitionItemRequest{
		{HouseholdID: household.ID, IngredientID: &rice.ID, Label: "rice", Quantity: decimal.NewNullDecimal(decimal.NewFromInt(200)), UnitID: &grams.ID},
		{HouseholdID: household.ID, Label: "foil"},
	} {
		if _, err := service.Create(ctx, request); err != nil {
			t.Fatalf("creating transition item: %v", err)
		}
	}

	result, err := service.Apply(ctx, household.ID)
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if result.Applied != 2 || result.Merged != 1 || result.Created != 1 {
		t.Errorf("expected 2 applied, 1 merged, 1 created, got %+v", result)
	}

	list, err := env.shoppingList().GetShoppingList(ctx, services.ShoppingListQuery{HouseholdID: household.ID, IncludeDone: true})
	if err != nil {
		t.Fatalf("getting list: %v", err)
	}
	for _, item := range list.Items {
		if item.Label == "rice" && !item.Quantity.Decimal.Equal(testutil.Decimal(t, "500")) {
			t.Errorf("expected merged rice 500, got %s", item.Quantity.Decimal)
		}
		if item.Label == "foil" && item.Source != models.ShoppingItemSourceTransition {
			t.Errorf("expected foil from TRANSITION, got %s", item.Source)
		}
	}

	remaining, err := service.List(ctx, household.ID, false)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected every transition item DONE, got %d TODO", len(remaining))
	}
}

func TestTransitionService_ApplyLeavesBuilderItemsAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	eggs := env.fixtures.Ingredient(household.ID, "eggs", nil, nil)
	env.fixtures.Recipe(household.ID, "omelette", "Omelette", nil, nil, testutil.Requirement(eggs.ID, "6", nil))

	plan, err := env.weekPlans.SaveGenerated(ctx, household.ID, "2025-01-06", []models.WeekPlanRecipe{
		{RecipeID: "omelette", DayIndex: 0, MealSlot: models.MealSlotLunch},
	}, false)
	if err != nil {
		t.Fatalf("saving plan: %v", err)
	}
	built, err := env.builder().Build(ctx, services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &plan.ID})
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	if len(built.Items) != 1 {
		t.Fatalf("expected one eggs item, got %+v", built.Items)
	}
	planned := built.Items[0]
	done := models.ShoppingItemStatusDone
	if _, err := env.shoppingList().SetItemStatus(ctx, household.ID, planned.ID, &done); err != nil {
		t.Fatalf("marking eggs done: %v", err)
	}

	service := env.transitionService()
	if _, err := service.Create(ctx, services.TransitionItemRequest{
		HouseholdID:  household.ID,
		IngredientID: &eggs.ID,
		Label:        "eggs",
		Quantity:     decimal.NewNullDecimal(decimal.NewFromInt(2)),
	}); err != nil {
		t.Fatalf("creating transition item: %v", err)
	}
	result, err := service.Apply(ctx, household.ID)
	if err != nil {
		t.Fatalf("applying: %v", err)
	}
	if result.Applied != 1 || result.Merged != 0 || result.Created != 1 {
		t.Errorf("expected the leftover as a new item, got %+v", result)
	}

	if _, err := env.builder().Build(ctx, services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &plan.ID}); err != nil {
		t.Fatalf("rebuilding: %v", err)
	}

	list, err := env.shoppingList().GetShoppingList(ctx, services.ShoppingListQuery{HouseholdID: household.ID, IncludeDone: true})
	if err != nil {
		t.Fatalf("getting list: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected planned and carried-over eggs, got %+v", list.Items)
	}
	for _, item := range list.Items {
		switch item.Source {
		case models.ShoppingItemSourceMealPlan:
			if item.Status != models.ShoppingItemStatusDone || !item.Quantity.Decimal.Equal(decimal.NewFromInt(6)) {
				t.Errorf("expected planned eggs to stay DONE at 6, got %s %s", item.Status, item.Quantity.Decimal)
			}
		case models.ShoppingItemSourceTransition:
			if item.Status != models.ShoppingItemStatusTodo || !item.Quantity.Decimal.Equal(decimal.NewFromInt(2)) {
				t.Errorf("expected carried-over eggs TODO at 2, got %s %s", item.Status, item.Quantity.Decimal)
			}
		default:
			t.Errorf("unexpected item source %s", item.Source)
		}
	}
}
