package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/shopspring/decimal"
)

// Fixtures creates catalog rows for tests against a migrated database.
type Fixtures struct {
	t          *testing.T
	households *repository.SQLiteHouseholdRepository
	catalog    *repository.SQLiteCatalogRepository
	recipes    *repository.SQLiteRecipeRepository
	pantry     *repository.SQLitePantryRepository
}

func NewFixtures(t *testing.T, db *sql.DB) *Fixtures {
	t.Helper()
	return &Fixtures{
		t:          t,
		households: repository.NewHouseholdRepository(db),
		catalog:    repository.NewCatalogRepository(db),
		recipes:    repository.NewRecipeRepository(db),
		pantry:     repository.NewPantryRepository(db),
	}
}

func (fixtures *Fixtures) Household(name string) models.Household {
	fixtures.t.Helper()
	household, err := fixtures.households.Create(context.Background(), models.Household{Name: name})
	if err != nil {
		fixtures.t.Fatalf("creating household %s: %v", name, err)
	}
	return household
}

func (fixtures *Fixtures) Unit(householdID, abbr string) models.Unit {
	fixtures.t.Helper()
	unit, err := fixtures.catalog.CreateUnit(context.Background(), models.Unit{HouseholdID: householdID, Name: abbr, Abbr: abbr})
	if err != nil {
		fixtures.t.Fatalf("creating unit %s: %v", abbr, err)
	}
	return unit
}

func (fixtures *Fixtures) Aisle(householdID, name string, sortOrder int) models.Aisle {
	fixtures.t.Helper()
	aisle, err := fixtures.catalog.CreateAisle(context.Background(), models.Aisle{HouseholdID: householdID, Name: name, SortOrder: sortOrder})
	if err != nil {
		fixtures.t.Fatalf("creating aisle %s: %v", name, err)
	}
	return aisle
}

func (fixtures *Fixtures) Tag(householdID, name string) models.Tag {
	fixtures.t.Helper()
	tag, err := fixtures.catalog.CreateTag(context.Background(), models.Tag{HouseholdID: householdID, Name: name})
	if err != nil {
		fixtures.t.Fatalf("creating tag %s: %v", name, err)
	}
	return tag
}

func (fixtures *Fixtures) Ingredient(householdID, name string, defaultUnitID, defaultAisleID *string) models.Ingredient {
	fixtures.t.Helper()
	ingredient, err := fixtures.catalog.CreateIngredient(context.Background(), models.Ingredient{
		HouseholdID:    householdID,
		Name:           name,
		DefaultUnitID:  defaultUnitID,
		DefaultAisleID: defaultAisleID,
	})
	if err != nil {
		fixtures.t.Fatalf("creating ingredient %s: %v", name, err)
	}
	return ingredient
}

// Recipe creates a recipe with the given id so tests can rely on id order.
func (fixtures *Fixtures) Recipe(householdID, id, title string, servings *int, tagIDs []string, ingredients ...models.RecipeIngredient) models.Recipe {
	fixtures.t.Helper()
	recipe, err := fixtures.recipes.Create(context.Background(), models.Recipe{
		ID:          id,
		HouseholdID: householdID,
		Title:       title,
		Servings:    servings,
		TagIDs:      tagIDs,
		Ingredients: ingredients,
	})
	if err != nil {
		fixtures.t.Fatalf("creating recipe %s: %v", title, err)
	}
	return recipe
}

func (fixtures *Fixtures) Pantry(householdID, ingredientID string, quantity string, unitID *string) models.PantryItem {
	fixtures.t.Helper()
	item, err := fixtures.pantry.Create(context.Background(), models.PantryItem{
		HouseholdID:  householdID,
		IngredientID: ingredientID,
		Quantity:     Decimal(fixtures.t, quantity),
		UnitID:       unitID,
	})
	if err != nil {
		fixtures.t.Fatalf("creating pantry item: %v", err)
	}
	return item
}

func Requirement(ingredientID string, quantity string, unitID *string) models.RecipeIngredient {
	return models.RecipeIngredient{
		IngredientID: ingredientID,
		Quantity:     decimal.RequireFromString(quantity),
		UnitID:       unitID,
	}
}

func Decimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", value, err)
	}
	return parsed
}

func Ptr[T any](value T) *T {
	return &value
}
