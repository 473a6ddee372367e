package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

type RecipePoolRepository interface {
	FindByWeek(ctx context.Context, householdID string, weekStart string) (models.RecipePool, error)
	Replace(ctx context.Context, householdID string, weekStart string, items []models.RecipePoolItem) (models.RecipePool, error)
	Clear(ctx context.Context, householdID string, weekStart string) error
}

type SQLiteRecipePoolRepository struct {
	database *sql.DB
}

func NewRecipePoolRepository(database *sql.DB) *SQLiteRecipePoolRepository {
	return &SQLiteRecipePoolRepository{database: database}
}

func (repository *SQLiteRecipePoolRepository) FindByWeek(ctx context.Context, householdID string, weekStart string) (models.RecipePool, error) {
	var pool models.RecipePool
	err := repository.database.QueryRowContext(ctx,
		`SELECT id, household_id, week_start, created_at, updated_at
		FROM recipe_pools WHERE household_id = ? AND week_start = ?`, householdID, weekStart,
	).Scan(&pool.ID, &pool.HouseholdID, &pool.WeekStart, &pool.CreatedAt, &pool.UpdatedAt)
	if err != nil {
		return models.RecipePool{}, fmt.Errorf("finding recipe pool: %w", err)
	}

	rows, err := repository.database.QueryContext(ctx,
		`SELECT pi.id, pi.pool_id, pi.recipe_id, r.title, pi.score, pi.sort_order
		FROM recipe_pool_items pi
		JOIN recipes r ON r.id = pi.recipe_id
		WHERE pi.pool_id = ? ORDER BY pi.sort_order`, pool.ID,
	)
	if err != nil {
		return models.RecipePool{}, fmt.Errorf("finding recipe pool items: %w", err)
	}
	defer rows.Close()

	pool.Items = []models.RecipePoolItem{}
	for rows.Next() {
		var item models.RecipePoolItem
		if err := rows.Scan(&item.ID, &item.PoolID, &item.RecipeID, &item.RecipeTitle, &item.Score, &item.SortOrder); err != nil {
			return models.RecipePool{}, fmt.Errorf("scanning recipe pool item: %w", err)
		}
		pool.Items = append(pool.Items, item)
	}
	if err := rows.Err(); err != nil {
		return models.RecipePool{}, fmt.Errorf("iterating recipe pool items: %w", err)
	}
	rows.Close()

	tags, err := recipeTagNames(ctx, repository.database,
		"SELECT recipe_id FROM recipe_pool_items WHERE pool_id = ?", pool.ID)
	if err != nil {
		return models.RecipePool{}, err
	}
	for index := range pool.Items {
		pool.Items[index].RecipeTags = tagsOrEmpty(tags[pool.Items[index].RecipeID])
	}
	return pool, nil
}

// Replace upserts the household-week pool and swaps its items for the given
// ones in one transaction.
func (repository *SQLiteRecipePoolRepository) Replace(ctx context.Context, householdID string, weekStart string, items []models.RecipePoolItem) (models.RecipePool, error) {
	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return models.RecipePool{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	now := time.Now()
	if _, err := transaction.ExecContext(ctx,
		`INSERT INTO recipe_pools (id, household_id, week_start, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (household_id, week_start) DO UPDATE SET updated_at = excluded.updated_at`,
		uuid.New().String(), householdID, weekStart, now, now,
	); err != nil {
		return models.RecipePool{}, fmt.Errorf("upserting recipe pool: %w", err)
	}

	var poolID string
	if err := transaction.QueryRowContext(ctx,
		"SELECT id FROM recipe_pools WHERE household_id = ? AND week_start = ?", householdID, weekStart,
	).Scan(&poolID); err != nil {
		return models.RecipePool{}, fmt.Errorf("reloading recipe pool: %w", err)
	}

	if _, err := transaction.ExecContext(ctx, "DELETE FROM recipe_pool_items WHERE pool_id = ?", poolID); err != nil {
		return models.RecipePool{}, fmt.Errorf("clearing recipe pool items: %w", err)
	}

	for _, item := range items {
		if _, err := transaction.ExecContext(ctx,
			"INSERT INTO recipe_pool_items (id, pool_id, recipe_id, score, sort_order) VALUES (?, ?, ?, ?, ?)",
			uuid.New().String(), poolID, item.RecipeID, item.Score, item.SortOrder,
		); err != nil {
			return models.RecipePool{}, fmt.Errorf("inserting recipe pool item: %w", err)
		}
	}

	if err := transaction.Commit(); err != nil {
		return models.RecipePool{}, fmt.Errorf("committing recipe pool: %w", err)
	}
	return repository.FindByWeek(ctx, householdID, weekStart)
}

func (repository *SQLiteRecipePoolRepository) Clear(ctx context.Context, householdID string, weekStart string) error {
	_, err := repository.database.ExecContext(ctx,
		"DELETE FROM recipe_pools WHERE household_id = ? AND week_start = ?", householdID, weekStart,
	)
	if err != nil {
		return fmt.Errorf("clearing recipe pool: %w", err)
	}
	return nil
}
