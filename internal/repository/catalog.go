package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

// CatalogRepository stores the household reference data recipes and
// shopping items point at.
type CatalogRepository interface {
	CreateUnit(ctx context.Context, unit models.Unit) (models.Unit, error)
	CreateAisle(ctx context.Context, aisle models.Aisle) (models.Aisle, error)
	CreateTag(ctx context.Context, tag models.Tag) (models.Tag, error)
	CreateIngredient(ctx context.Context, ingredient models.Ingredient) (models.Ingredient, error)
	FindIngredientByID(ctx context.Context, id string) (models.Ingredient, error)
}

type SQLiteCatalogRepository struct {
	database *sql.DB
}

func NewCatalogRepository(database *sql.DB) *SQLiteCatalogRepository {
	return &SQLiteCatalogRepository{database: database}
}

func (repository *SQLiteCatalogRepository) CreateUnit(ctx context.Context, unit models.Unit) (models.Unit, error) {
	if unit.ID == "" {
		unit.ID = uuid.New().String()
	}
	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO units (id, household_id, name, abbr) VALUES (?, ?, ?, ?)",
		unit.ID, unit.HouseholdID, unit.Name, unit.Abbr,
	)
	if err != nil {
		return models.Unit{}, fmt.Errorf("creating unit: %w", err)
	}
	return unit, nil
}

func (repository *SQLiteCatalogRepository) CreateAisle(ctx context.Context, aisle models.Aisle) (models.Aisle, error) {
	if aisle.ID == "" {
		aisle.ID = uuid.New().String()
	}
	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO aisles (id, household_id, name, sort_order) VALUES (?, ?, ?, ?)",
		aisle.ID, aisle.HouseholdID, aisle.Name, aisle.SortOrder,
	)
	if err != nil {
		return models.Aisle{}, fmt.Errorf("creating aisle: %w", err)
	}
	return aisle, nil
}

func (repository *SQLiteCatalogRepository) CreateTag(ctx context.Context, tag models.Tag) (models.Tag, error) {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO tags (id, household_id, name) VALUES (?, ?, ?)",
		tag.ID, tag.HouseholdID, tag.Name,
	)
	if err != nil {
		return models.Tag{}, fmt.Errorf("creating tag: %w", err)
	}
	return tag, nil
}

func (repository *SQLiteCatalogRepository) CreateIngredient(ctx context.Context, ingredient models.Ingredient) (models.Ingredient, error) {
	if ingredient.ID == "" {
		ingredient.ID = uuid.New().String()
	}
	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO ingredients (id, household_id, name, default_unit_id, default_aisle_id)
		VALUES (?, ?, ?, ?, ?)`,
		ingredient.ID, ingredient.HouseholdID, ingredient.Name, ingredient.DefaultUnitID, ingredient.DefaultAisleID,
	)
	if err != nil {
		return models.Ingredient{}, fmt.Errorf("creating ingredient: %w", err)
	}
	return ingredient, nil
}

func (repository *SQLiteCatalogRepository) FindIngredientByID(ctx context.Context, id string) (models.Ingredient, error) {
	var ingredient models.Ingredient
	err := repository.database.QueryRowContext(ctx,
		"SELECT id, household_id, name, default_unit_id, default_aisle_id FROM ingredients WHERE id = ?", id,
	).Scan(&ingredient.ID, &ingredient.HouseholdID, &ingredient.Name, &ingredient.DefaultUnitID, &ingredient.DefaultAisleID)
	if err != nil {
		return models.Ingredient{}, fmt.Errorf("finding ingredient by id: %w", err)
	}
	return ingredient, nil
}
