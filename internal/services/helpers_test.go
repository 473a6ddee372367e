package services_test

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/MikeDwight/meal-plan-app/internal/testutil"
)

type testEnv struct {
	db          *sql.DB
	fixtures    *testutil.Fixtures
	households  *repository.SQLiteHouseholdRepository
	recipes     *repository.SQLiteRecipeRepository
	pantry      *repository.SQLitePantryRepository
	weekPlans   *repository.SQLiteWeekPlanRepository
	shopping    *repository.SQLiteShoppingItemRepository
	transitions *repository.SQLiteTransitionItemRepository
	pools       *repository.SQLiteRecipePoolRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	return &testEnv{
		db:          db,
		fixtures:    testutil.NewFixtures(t, db),
		households:  repository.NewHouseholdRepository(db),
		recipes:     repository.NewRecipeRepository(db),
		pantry:      repository.NewPantryRepository(db),
		weekPlans:   repository.NewWeekPlanRepository(db),
		shopping:    repository.NewShoppingItemRepository(db),
		transitions: repository.NewTransitionItemRepository(db),
		pools:       repository.NewRecipePoolRepository(db),
	}
}

func (env *testEnv) generator() *services.MealPlanGenerator {
	return services.NewMealPlanGenerator(env.households, env.recipes, env.pantry, env.weekPlans)
}

func (env *testEnv) poolGenerator() *services.PoolGenerator {
	return services.NewPoolGenerator(env.households, env.recipes, env.pantry, env.weekPlans, env.pools)
}

func (env *testEnv) builder() *services.ShoppingListBuilder {
	return services.NewShoppingListBuilder(env.households, env.weekPlans, env.pantry, env.shopping)
}

// numberedRecipes creates count untagged recipes without ingredients, with ids
// r01, r02, ... so that id order is their selection order.
func (env *testEnv) numberedRecipes(householdID string, count int) []models.Recipe {
	recipes := make([]models.Recipe, 0, count)
	for index := 1; index <= count; index++ {
		id := fmt.Sprintf("r%02d", index)
		recipes = append(recipes, env.fixtures.Recipe(householdID, id, "Recipe "+id, nil, nil))
	}
	return recipes
}
