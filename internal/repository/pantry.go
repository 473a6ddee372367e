package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

type PantryRepository interface {
	FindByHousehold(ctx context.Context, householdID string) ([]models.PantryItem, error)
	Create(ctx context.Context, item models.PantryItem) (models.PantryItem, error)
}

type SQLitePantryRepository struct {
	database *sql.DB
}

func NewPantryRepository(database *sql.DB) *SQLitePantryRepository {
	return &SQLitePantryRepository{database: database}
}

func (repository *SQLitePantryRepository) FindByHousehold(ctx context.Context, householdID string) ([]models.PantryItem, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT id, household_id, ingredient_id, quantity, unit_id, updated_at
		FROM pantry_items WHERE household_id = ? ORDER BY ingredient_id, id`, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding pantry items: %w", err)
	}
	defer rows.Close()

	var items []models.PantryItem
	for rows.Next() {
		var item models.PantryItem
		if err := rows.Scan(&item.ID, &item.HouseholdID, &item.IngredientID, &item.Quantity, &item.UnitID, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning pantry item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (repository *SQLitePantryRepository) Create(ctx context.Context, item models.PantryItem) (models.PantryItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.UpdatedAt = time.Now()

	_, err := repository.database.ExecContext(ctx,
		`INSERT INTO pantry_items (id, household_id, ingredient_id, quantity, unit_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.HouseholdID, item.IngredientID, item.Quantity, item.UnitID, item.UpdatedAt,
	)
	if err != nil {
		return models.PantryItem{}, fmt.Errorf("creating pantry item: %w", err)
	}
	return item, nil
}
