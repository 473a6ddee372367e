package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

type HouseholdRepository interface {
	FindByID(ctx context.Context, id string) (models.Household, error)
	Create(ctx context.Context, household models.Household) (models.Household, error)
}

type SQLiteHouseholdRepository struct {
	database *sql.DB
}

func NewHouseholdRepository(database *sql.DB) *SQLiteHouseholdRepository {
	return &SQLiteHouseholdRepository{database: database}
}

func (repository *SQLiteHouseholdRepository) FindByID(ctx context.Context, id string) (models.Household, error) {
	var household models.Household
	err := repository.database.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM households WHERE id = ?", id,
	).Scan(&household.ID, &household.Name, &household.CreatedAt)
	if err != nil {
		return models.Household{}, fmt.Errorf("finding household by id: %w", err)
	}
	return household, nil
}

func (repository *SQLiteHouseholdRepository) Create(ctx context.Context, household models.Household) (models.Household, error) {
	if household.ID == "" {
		household.ID = uuid.New().String()
	}
	household.CreatedAt = time.Now()

	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO households (id, name, created_at) VALUES (?, ?, ?)",
		household.ID, household.Name, household.CreatedAt,
	)
	if err != nil {
		return models.Household{}, fmt.Errorf("creating household: %w", err)
	}
	return household, nil
}
