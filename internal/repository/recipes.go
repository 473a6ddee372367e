package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

type RecipeRepository interface {
	FindByID(ctx context.Context, id string) (models.Recipe, error)
	FindByHousehold(ctx context.Context, householdID string) ([]models.Recipe, error)
	FindSummaries(ctx context.Context, householdID string) ([]models.RecipeSummary, error)
	Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error)
	Delete(ctx context.Context, id string) error
}

type SQLiteRecipeRepository struct {
	database *sql.DB
}

func NewRecipeRepository(database *sql.DB) *SQLiteRecipeRepository {
	return &SQLiteRecipeRepository{database: database}
}

func (repository *SQLiteRecipeRepository) FindByID(ctx context.Context, id string) (models.Recipe, error) {
	var recipe models.Recipe
	err := repository.database.QueryRowContext(ctx,
		`SELECT id, household_id, title, servings, created_at, updated_at
		FROM recipes WHERE id = ?`, id,
	).Scan(&recipe.ID, &recipe.HouseholdID, &recipe.Title, &recipe.Servings, &recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("finding recipe by id: %w", err)
	}

	tagRows, err := repository.database.QueryContext(ctx,
		"SELECT tag_id FROM recipe_tags WHERE recipe_id = ? ORDER BY tag_id", id,
	)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("finding recipe tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tagID string
		if err := tagRows.Scan(&tagID); err != nil {
			return models.Recipe{}, fmt.Errorf("scanning recipe tag: %w", err)
		}
		recipe.TagIDs = append(recipe.TagIDs, tagID)
	}
	if err := tagRows.Err(); err != nil {
		return models.Recipe{}, fmt.Errorf("iterating recipe tags: %w", err)
	}
	tagRows.Close()

	ingredientRows, err := repository.database.QueryContext(ctx,
		`SELECT ingredient_id, quantity, unit_id FROM recipe_ingredients
		WHERE recipe_id = ? ORDER BY ingredient_id`, id,
	)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("finding recipe ingredients: %w", err)
	}
	defer ingredientRows.Close()
	for ingredientRows.Next() {
		var ingredient models.RecipeIngredient
		if err := ingredientRows.Scan(&ingredient.IngredientID, &ingredient.Quantity, &ingredient.UnitID); err != nil {
			return models.Recipe{}, fmt.Errorf("scanning recipe ingredient: %w", err)
		}
		recipe.Ingredients = append(recipe.Ingredients, ingredient)
		recipe.IngredientIDs = append(recipe.IngredientIDs, ingredient.IngredientID)
	}
	return recipe, ingredientRows.Err()
}

// FindByHousehold returns the household's recipe catalog ordered by id, each
// recipe carrying its tag ids and ingredient ids. Requirement quantities are
// not loaded.
func (repository *SQLiteRecipeRepository) FindByHousehold(ctx context.Context, householdID string) ([]models.Recipe, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT id, household_id, title, servings, created_at, updated_at
		FROM recipes WHERE household_id = ? ORDER BY id`, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding recipes by household: %w", err)
	}
	defer rows.Close()

	var recipes []models.Recipe
	indexByID := make(map[string]int)
	for rows.Next() {
		var recipe models.Recipe
		if err := rows.Scan(&recipe.ID, &recipe.HouseholdID, &recipe.Title, &recipe.Servings, &recipe.CreatedAt, &recipe.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		recipe.TagIDs = []string{}
		recipe.IngredientIDs = []string{}
		indexByID[recipe.ID] = len(recipes)
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipes: %w", err)
	}
	rows.Close()

	if err := repository.attachIDs(ctx, householdID,
		`SELECT rt.recipe_id, rt.tag_id FROM recipe_tags rt
		JOIN recipes r ON r.id = rt.recipe_id
		WHERE r.household_id = ? ORDER BY rt.recipe_id, rt.tag_id`,
		func(index int, id string) { recipes[index].TagIDs = append(recipes[index].TagIDs, id) },
		indexByID,
	); err != nil {
		return nil, fmt.Errorf("attaching recipe tags: %w", err)
	}

	if err := repository.attachIDs(ctx, householdID,
		`SELECT ri.recipe_id, ri.ingredient_id FROM recipe_ingredients ri
		JOIN recipes r ON r.id = ri.recipe_id
		WHERE r.household_id = ? ORDER BY ri.recipe_id, ri.ingredient_id`,
		func(index int, id string) { recipes[index].IngredientIDs = append(recipes[index].IngredientIDs, id) },
		indexByID,
	); err != nil {
		return nil, fmt.Errorf("attaching recipe ingredients: %w", err)
	}

	return recipes, nil
}

// FindSummaries lists the household's recipes by title with their tag names.
func (repository *SQLiteRecipeRepository) FindSummaries(ctx context.Context, householdID string) ([]models.RecipeSummary, error) {
	rows, err := repository.database.QueryContext(ctx,
		"SELECT id, title FROM recipes WHERE household_id = ? ORDER BY title, id", householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding recipe summaries: %w", err)
	}
	defer rows.Close()

	summaries := []models.RecipeSummary{}
	for rows.Next() {
		var summary models.RecipeSummary
		if err := rows.Scan(&summary.ID, &summary.Title); err != nil {
			return nil, fmt.Errorf("scanning recipe summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipe summaries: %w", err)
	}
	rows.Close()

	tags, err := recipeTagNames(ctx, repository.database, "SELECT id FROM recipes WHERE household_id = ?", householdID)
	if err != nil {
		return nil, err
	}
	for index := range summaries {
		summaries[index].Tags = tagsOrEmpty(tags[summaries[index].ID])
	}
	return summaries, nil
}

func (repository *SQLiteRecipeRepository) attachIDs(
	ctx context.Context,
	householdID string,
	query string,
	attach func(index int, id string),
	indexByID map[string]int,
) error {
	rows, err := repository.database.QueryContext(ctx, query, householdID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID, id string
		if err := rows.Scan(&recipeID, &id); err != nil {
			return err
		}
		if index, ok := indexByID[recipeID]; ok {
			attach(index, id)
		}
	}
	return rows.Err()
}

// Create stores the recipe with its tags and ingredient requirements in one
// transaction.
func (repository *SQLiteRecipeRepository) Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error) {
	if recipe.ID == "" {
		recipe.ID = uuid.New().String()
	}
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	_, err = transaction.ExecContext(ctx,
		`INSERT INTO recipes (id, household_id, title, servings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		recipe.ID, recipe.HouseholdID, recipe.Title, recipe.Servings, recipe.CreatedAt, recipe.UpdatedAt,
	)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("creating recipe: %w", err)
	}

	for _, tagID := range recipe.TagIDs {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, tagID,
		); err != nil {
			return models.Recipe{}, fmt.Errorf("inserting recipe tag: %w", err)
		}
	}

	recipe.IngredientIDs = make([]string, 0, len(recipe.Ingredients))
	for _, ingredient := range recipe.Ingredients {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit_id) VALUES (?, ?, ?, ?)",
			recipe.ID, ingredient.IngredientID, ingredient.Quantity, ingredient.UnitID,
		); err != nil {
			return models.Recipe{}, fmt.Errorf("inserting recipe ingredient: %w", err)
		}
		recipe.IngredientIDs = append(recipe.IngredientIDs, ingredient.IngredientID)
	}

	if err := transaction.Commit(); err != nil {
		return models.Recipe{}, fmt.Errorf("committing recipe: %w", err)
	}
	return recipe, nil
}

func (repository *SQLiteRecipeRepository) Delete(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting recipe: %w", err)
	}
	return nil
}

// recipeTagNames maps each recipe id returned by recipeIDQuery to its tag
// names in name order.
func recipeTagNames(ctx context.Context, source querier, recipeIDQuery string, args ...any) (map[string][]string, error) {
	rows, err := source.QueryContext(ctx,
		`SELECT rt.recipe_id, t.name
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id IN (`+recipeIDQuery+`)
		ORDER BY t.name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("finding recipe tag names: %w", err)
	}
	defer rows.Close()

	names := make(map[string][]string)
	for rows.Next() {
		var recipeID, name string
		if err := rows.Scan(&recipeID, &name); err != nil {
			return nil, fmt.Errorf("scanning recipe tag name: %w", err)
		}
		names[recipeID] = append(names[recipeID], name)
	}
	return names, rows.Err()
}

func tagsOrEmpty(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
