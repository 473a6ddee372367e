package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/MikeDwight/meal-plan-app/internal/testutil"
	"github.com/shopspring/decimal"
)

func plannedRow(assignmentID, ingredientID, quantity string, unitID *string, requested, servings *int) models.PlannedIngredient {
	return models.PlannedIngredient{
		AssignmentID:      assignmentID,
		RecipeID:          "recipe-" + assignmentID,
		RequestedServings: requested,
		RecipeServings:    servings,
		IngredientID:      ingredientID,
		IngredientName:    ingredientID,
		Quantity:          decimal.RequireFromString(quantity),
		UnitID:            unitID,
	}
}

func TestAggregateNeeds_ScalesAndResolvesUnits(t *testing.T) {
	grams := testutil.Ptr("g")
	pieces := testutil.Ptr("pc")

	eggsWithDefault := plannedRow("a3", "eggs", "2", nil, nil, nil)
	eggsWithDefault.DefaultUnitID = pieces

	needs := services.AggregateNeeds([]models.PlannedIngredient{
		plannedRow("a1", "flour", "200", grams, testutil.Ptr(2), testutil.Ptr(1)),
		plannedRow("a2", "flour", "300", grams, testutil.Ptr(2), testutil.Ptr(4)),
		eggsWithDefault,
		plannedRow("a4", "eggs", "1", pieces, nil, testutil.Ptr(2)),
		plannedRow("a5", "salt", "1", nil, nil, nil),
	})

	tests := []struct {
		key      services.NeedKey
		expected string
	}{
		{services.NeedKey{IngredientID: "flour", UnitID: "g"}, "550"},
		{services.NeedKey{IngredientID: "eggs", UnitID: "pc"}, "3"},
		{services.NeedKey{IngredientID: "salt"}, "1"},
	}

	if len(needs) != len(tests) {
		t.Fatalf("expected %d needs, got %d: %+v", len(tests), len(needs), needs)
	}
	for _, testCase := range tests {
		need, ok := needs[testCase.key]
		if !ok {
			t.Errorf("missing need %+v", testCase.key)
			continue
		}
		if !need.Quantity.Equal(decimal.RequireFromString(testCase.expected)) {
			t.Errorf("%+v: expected %s, got %s", testCase.key, testCase.expected, need.Quantity)
		}
	}
}

func TestAggregateNeeds_IsOrderIndependent(t *testing.T) {
	unit := testutil.Ptr("g")
	rows := []models.PlannedIngredient{
		plannedRow("a1", "flour", "0.1", unit, testutil.Ptr(3), testutil.Ptr(2)),
		plannedRow("a2", "flour", "0.2", unit, nil, nil),
		plannedRow("a3", "sugar", "1.005", unit, testutil.Ptr(1), testutil.Ptr(3)),
		plannedRow("a4", "flour", "33.3", unit, testutil.Ptr(5), testutil.Ptr(3)),
		plannedRow("a5", "sugar", "2", unit, nil, testutil.Ptr(4)),
	}
	expected := services.AggregateNeeds(rows)

	permutations := [][]int{
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 4, 0, 3, 2},
	}
	for _, order := range permutations {
		shuffled := make([]models.PlannedIngredient, 0, len(rows))
		for _, index := range order {
			shuffled = append(shuffled, rows[index])
		}
		got := services.AggregateNeeds(shuffled)
		if len(got) != len(expected) {
			t.Fatalf("order %v: expected %d needs, got %d", order, len(expected), len(got))
		}
		for key, need := range expected {
			if !got[key].Quantity.Equal(need.Quantity) {
				t.Errorf("order %v: %+v expected %s, got %s", order, key, need.Quantity, got[key].Quantity)
			}
		}
	}
}

func TestDeductPantry(t *testing.T) {
	grams := testutil.Ptr("g")
	needs := services.AggregateNeeds([]models.PlannedIngredient{
		plannedRow("a1", "flour", "400", grams, nil, nil),
		plannedRow("a2", "milk", "1", testutil.Ptr("l"), nil, nil),
		plannedRow("a3", "butter", "250", grams, nil, nil),
		plannedRow("a4", "rice", "100", grams, nil, nil),
	})
	pantry := []models.PantryItem{
		{IngredientID: "flour", Quantity: decimal.RequireFromString("300"), UnitID: grams},
		{IngredientID: "flour", Quantity: decimal.RequireFromString("200"), UnitID: grams},
		{IngredientID: "milk", Quantity: decimal.RequireFromString("500"), UnitID: testutil.Ptr("ml")},
		{IngredientID: "butter", Quantity: decimal.RequireFromString("100"), UnitID: grams},
		{IngredientID: "rice", Quantity: decimal.Zero, UnitID: grams},
	}

	remaining, deductions := services.DeductPantry(needs, pantry)

	if deductions != 2 {
		t.Errorf("expected 2 deductions, got %d", deductions)
	}
	if _, ok := remaining[services.NeedKey{IngredientID: "flour", UnitID: "g"}]; ok {
		t.Error("expected flour to be fully covered by summed pantry rows")
	}
	if milk := remaining[services.NeedKey{IngredientID: "milk", UnitID: "l"}]; !milk.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected stock in another unit to be ignored, got %s", milk.Quantity)
	}
	if butter := remaining[services.NeedKey{IngredientID: "butter", UnitID: "g"}]; !butter.Quantity.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected 150 butter left, got %s", butter.Quantity)
	}
	if rice := remaining[services.NeedKey{IngredientID: "rice", UnitID: "g"}]; !rice.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected zero stock not to count, got %s", rice.Quantity)
	}
}

func TestShoppingListBuilder_PantryCoversScaledNeed(t *testing.T) {
	env := newTestEnv(t)
	household := env.fixtures.Household("Home")
	grams := env.fixtures.Unit(household.ID, "g")
	flour := env.fixtures.Ingredient(household.ID, "flour", nil, nil)
	env.fixtures.Pantry(household.ID, flour.ID, "500", &grams.ID)
	env.fixtures.Recipe(household.ID, "bread", "Bread", testutil.Ptr(1), nil, testutil.Requirement(flour.ID, "200", &grams.ID))

	plan, err := env.weekPlans.SaveGenerated(context.Background(), household.ID, "2025-01-06", []models.WeekPlanRecipe{
		{RecipeID: "bread", DayIndex: 0, MealSlot: models.MealSlotDinner, Servings: testutil.Ptr(2)},
	}, false)
	if err != nil {
		t.Fatalf("saving plan: %v", err)
	}

	response, err := env.builder().Build(context.Background(), services.BuildRequest{
		HouseholdID: household.ID,
		WeekPlanID:  &plan.ID,
	})
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	if len(response.Items) != 0 || response.Meta.Created != 0 {
		t.Errorf("expected no flour item, got %+v", response.Items)
	}
	if response.Meta.IngredientsAggregated != 1 || response.Meta.PantryDeductions != 1 {
		t.Errorf("unexpected meta %+v", response.Meta)
	}
}

func TestShoppingListBuilder_DoneItemSurvivesUnchangedPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	eggs := env.fixtures.Ingredient(household.ID, "eggs", nil, nil)
	env.fixtures.Recipe(household.ID, "omelette", "Omelette", nil, nil, testutil.Requirement(eggs.ID, "4", nil))
	env.fixtures.Recipe(household.ID, "cake", "Cake", nil, nil, testutil.Requirement(eggs.ID, "2", nil))
	env.fixtures.Recipe(household.ID, "quiche", "Quiche", nil, nil, testutil.Requirement(eggs.ID, "2", nil))

	plan, err := env.weekPlans.SaveGenerated(ctx, household.ID, "2025-01-06", []models.WeekPlanRecipe{
		{RecipeID: "omelette", DayIndex: 0, MealSlot: models.MealSlotLunch},
		{RecipeID: "cake", DayIndex: 0, MealSlot: models.MealSlotDinner, SortOrder: 1},
	}, false)
	if err != nil {
		t.Fatalf("saving plan: %v", err)
	}
	builder := env.builder()
	request := services.BuildRequest{HouseholdID: household.ID, WeekStart: testutil.Ptr("2025-01-08")}

	first, err := builder.Build(ctx, request)
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	if len(first.Items) != 1 {
		t.Fatalf("expected one eggs item, got %+v", first.Items)
	}
	item := first.Items[0]
	if !item.Quantity.Decimal.Equal(decimal.NewFromInt(6)) || item.Status != models.ShoppingItemStatusTodo {
		t.Fatalf("expected TODO eggs x6, got %+v", item)
	}
	if item.Source != models.ShoppingItemSourceMealPlan || item.WeekPlanID == nil || *item.WeekPlanID != plan.ID {
		t.Errorf("expected a meal plan item of the plan, got %+v", item)
	}

	if err := env.shopping.UpdateStatus(ctx, item.ID, models.ShoppingItemStatusDone); err != nil {
		t.Fatalf("marking done: %v", err)
	}

	second, err := builder.Build(ctx, request)
	if err != nil {
		t.Fatalf("rebuilding: %v", err)
	}
	if second.Meta.Created != 0 || second.Meta.Updated != 0 || second.Meta.Archived != 0 {
		t.Errorf("expected no changes, got %+v", second.Meta)
	}
	if second.Items[0].Status != models.ShoppingItemStatusDone {
		t.Errorf("expected the item to stay DONE, got %s", second.Items[0].Status)
	}

	if _, _, err := env.weekPlans.SetSlot(ctx, household.ID, "2025-01-06", models.WeekPlanRecipe{
		RecipeID: "quiche", DayIndex: 1, MealSlot: models.MealSlotLunch,
	}); err != nil {
		t.Fatalf("adding a recipe: %v", err)
	}

	third, err := builder.Build(ctx, request)
	if err != nil {
		t.Fatalf("building after edit: %v", err)
	}
	if third.Meta.Updated != 1 || third.Meta.Created != 0 {
		t.Errorf("expected one update, got %+v", third.Meta)
	}
	revived := third.Items[0]
	if revived.ID != item.ID || revived.Status != models.ShoppingItemStatusTodo || !revived.Quantity.Decimal.Equal(decimal.NewFromInt(8)) {
		t.Errorf("expected the same item revived as TODO x8, got %+v", revived)
	}
}

func TestShoppingListBuilder_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	grams := env.fixtures.Unit(household.ID, "g")
	dairy := env.fixtures.Aisle(household.ID, "Dairy", 2)
	produce := env.fixtures.Aisle(household.ID, "Produce", 1)
	cheese := env.fixtures.Ingredient(household.ID, "cheese", &grams.ID, &dairy.ID)
	tomato := env.fixtures.Ingredient(household.ID, "tomato", nil, &produce.ID)
	env.fixtures.Recipe(household.ID, "pizza", "Pizza", testutil.Ptr(3), nil,
		testutil.Requirement(cheese.ID, "100", nil),
		testutil.Requirement(tomato.ID, "2", nil),
	)

	plan, err := env.weekPlans.SaveGenerated(ctx, household.ID, "2025-01-06", []models.WeekPlanRecipe{
		{RecipeID: "pizza", DayIndex: 2, MealSlot: models.MealSlotDinner, Servings: testutil.Ptr(2)},
	}, false)
	if err != nil {
		t.Fatalf("saving plan: %v", err)
	}
	builder := env.builder()
	request := services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &plan.ID}

	first, err := builder.Build(ctx, request)
	if err != nil {
		t.Fatalf("building: %v", err)
	}
	if first.Meta.Created != 2 || len(first.Items) != 2 {
		t.Fatalf("expected two created items, got %+v", first.Meta)
	}
	if first.Items[0].Label != "tomato" || first.Items[1].Label != "cheese" {
		t.Errorf("expected items ordered by aisle, got %s then %s", first.Items[0].Label, first.Items[1].Label)
	}
	if first.Items[1].UnitAbbr == nil || *first.Items[1].UnitAbbr != "g" {
		t.Errorf("expected the default unit to be resolved, got %+v", first.Items[1])
	}

	for run := 2; run <= 3; run++ {
		again, err := builder.Build(ctx, request)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if again.Meta.Created != 0 || again.Meta.Updated != 0 || again.Meta.Archived != 0 {
			t.Errorf("run %d: expected no changes, got %+v", run, again.Meta)
		}
		if len(again.Items) != 2 {
			t.Errorf("run %d: expected 2 items, got %d", run, len(again.Items))
		}
	}
}

func TestShoppingListBuilder_ArchivesDroppedNeeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	pasta := env.fixtures.Ingredient(household.ID, "pasta", nil, nil)
	rice := env.fixtures.Ingredient(household.ID, "rice", nil, nil)
	env.fixtures.Recipe(household.ID, "carbonara", "Carbonara", nil, nil, testutil.Requirement(pasta.ID, "250", nil))
	env.fixtures.Recipe(household.ID, "pilaf", "Pilaf", nil, nil, testutil.Requirement(rice.ID, "200", nil))

	plan, err := env.weekPlans.SaveGenerated(ctx, household.ID, "2025-01-06", []models.WeekPlanRecipe{
		{RecipeID: "carbonara", DayIndex: 0, MealSlot: models.MealSlotDinner},
	}, false)
	if err != nil {
		t.Fatalf("saving plan: %v", err)
	}

	manual, err := env.shopping.Create(ctx, models.ShoppingItem{
		HouseholdID: household.ID,
		Label:       "Batteries",
		Source:      models.ShoppingItemSourceManual,
	})
	if err != nil {
		t.Fatalf("creating manual item: %v", err)
	}

	builder := env.builder()
	request := services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &plan.ID}
	if _, err := builder.Build(ctx, request); err != nil {
		t.Fatalf("building: %v", err)
	}

	if _, err := env.weekPlans.SaveGenerated(ctx, household.ID, "2025-01-06", []models.WeekPlanRecipe{
		{RecipeID: "pilaf", DayIndex: 0, MealSlot: models.MealSlotDinner},
	}, false); err != nil {
		t.Fatalf("replacing plan: %v", err)
	}

	response, err := builder.Build(ctx, request)
	if err != nil {
		t.Fatalf("rebuilding: %v", err)
	}
	if response.Meta.Archived != 1 || response.Meta.Created != 1 {
		t.Errorf("expected pasta archived and rice created, got %+v", response.Meta)
	}

	labels := make(map[string]bool)
	for _, item := range response.Items {
		labels[item.Label] = true
	}
	if labels["pasta"] || !labels["rice"] || !labels[manual.Label] {
		t.Errorf("expected rice and the manual item only, got %v", labels)
	}

	archived, err := env.shopping.FindAll(ctx, household.ID, repository.ShoppingItemFilter{IncludeArchived: true, IncludeDone: true})
	if err != nil {
		t.Fatalf("finding all items: %v", err)
	}
	if len(archived) != 3 {
		t.Errorf("expected the archived item to be kept, got %d items", len(archived))
	}
}

func TestShoppingListBuilder_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	household := env.fixtures.Household("Home")
	other := env.fixtures.Household("Other")

	emptyPlan, err := env.weekPlans.SaveGenerated(ctx, household.ID, "2025-01-06", nil, false)
	if err != nil {
		t.Fatalf("saving empty plan: %v", err)
	}
	otherPlan, err := env.weekPlans.SaveGenerated(ctx, other.ID, "2025-01-06", nil, false)
	if err != nil {
		t.Fatalf("saving other plan: %v", err)
	}

	tests := []struct {
		name     string
		request  services.BuildRequest
		expected error
	}{
		{"unknown household", services.BuildRequest{HouseholdID: "missing", WeekPlanID: &emptyPlan.ID}, services.ErrNotFound},
		{"neither plan nor week", services.BuildRequest{HouseholdID: household.ID}, services.ErrBadRequest},
		{"both plan and week", services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &emptyPlan.ID, WeekStart: testutil.Ptr("2025-01-06")}, services.ErrBadRequest},
		{"unknown plan", services.BuildRequest{HouseholdID: household.ID, WeekPlanID: testutil.Ptr("nope")}, services.ErrNotFound},
		{"no plan for week", services.BuildRequest{HouseholdID: household.ID, WeekStart: testutil.Ptr("2025-02-03")}, services.ErrNotFound},
		{"plan of another household", services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &otherPlan.ID}, services.ErrForbidden},
		{"plan without recipes", services.BuildRequest{HouseholdID: household.ID, WeekPlanID: &emptyPlan.ID}, services.ErrConflict},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := env.builder().Build(ctx, testCase.request)
			if !errors.Is(err, testCase.expected) {
				t.Errorf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}
