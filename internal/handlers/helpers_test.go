package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeDwight/meal-plan-app/internal/middleware"
	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/MikeDwight/meal-plan-app/internal/testutil"
)

type handlerEnv struct {
	db          *sql.DB
	fixtures    *testutil.Fixtures
	household   models.Household
	households  *repository.SQLiteHouseholdRepository
	tokens      *repository.SQLiteAPITokenRepository
	catalog     *repository.SQLiteCatalogRepository
	recipes     *repository.SQLiteRecipeRepository
	pantry      *repository.SQLitePantryRepository
	weekPlans   *repository.SQLiteWeekPlanRepository
	shopping    *repository.SQLiteShoppingItemRepository
	transitions *repository.SQLiteTransitionItemRepository
	pools       *repository.SQLiteRecipePoolRepository
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	fixtures := testutil.NewFixtures(t, db)
	return &handlerEnv{
		db:          db,
		fixtures:    fixtures,
		household:   fixtures.Household("Home"),
		households:  repository.NewHouseholdRepository(db),
		tokens:      repository.NewAPITokenRepository(db),
		catalog:     repository.NewCatalogRepository(db),
		recipes:     repository.NewRecipeRepository(db),
		pantry:      repository.NewPantryRepository(db),
		weekPlans:   repository.NewWeekPlanRepository(db),
		shopping:    repository.NewShoppingItemRepository(db),
		transitions: repository.NewTransitionItemRepository(db),
		pools:       repository.NewRecipePoolRepository(db),
	}
}

func (env *handlerEnv) builder() *services.ShoppingListBuilder {
	return services.NewShoppingListBuilder(env.households, env.weekPlans, env.pantry, env.shopping)
}

func (env *handlerEnv) mealPlanHandler() *MealPlanHandler {
	builder := env.builder()
	return NewMealPlanHandler(
		services.NewMealPlanGenerator(env.households, env.recipes, env.pantry, env.weekPlans),
		services.NewWeekPlanService(env.recipes, env.weekPlans, builder),
		builder,
		services.NewCalendarService(env.households, env.weekPlans),
	)
}

func (env *handlerEnv) shoppingHandler() *ShoppingHandler {
	return NewShoppingHandler(env.builder(), services.NewShoppingListService(env.weekPlans, env.shopping))
}

// createToken stores a token for the household and returns the raw value.
func (env *handlerEnv) createToken(t *testing.T, householdID string, scope models.TokenScope, raw string) string {
	t.Helper()
	if _, err := env.tokens.Create(context.Background(), models.APIToken{
		Name:        string(scope) + " token",
		TokenHash:   repository.HashToken(raw),
		Scope:       scope,
		HouseholdID: householdID,
	}); err != nil {
		t.Fatalf("creating %s token: %v", scope, err)
	}
	return raw
}

// newRequest builds a request already authenticated for the household.
func newRequest(t *testing.T, method, target, householdID string, body any) *http.Request {
	t.Helper()
	var reader bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reader).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	request := httptest.NewRequest(method, target, &reader)
	request.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(request.Context(), middleware.HouseholdContextKey, householdID)
	return request.WithContext(ctx)
}

func decodeResponse[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var decoded T
	if err := json.NewDecoder(recorder.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

// numberedRecipes creates count untagged recipes without ingredients.
func (env *handlerEnv) numberedRecipes(t *testing.T, count int) {
	t.Helper()
	for index := 1; index <= count; index++ {
		id := fmt.Sprintf("r%02d", index)
		env.fixtures.Recipe(env.household.ID, id, "Recipe "+id, nil, nil)
	}
}
