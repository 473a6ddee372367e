package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransitionApplyResult struct {
	Applied int `json:"applied"`
	Merged  int `json:"merged"`
	Created int `json:"created"`
}

type TransitionItemRepository interface {
	FindByID(ctx context.Context, id string) (models.TransitionItem, error)
	FindByHousehold(ctx context.Context, householdID string, includeDone bool) ([]models.TransitionItem, error)
	Create(ctx context.Context, item models.TransitionItem) (models.TransitionItem, error)
	Update(ctx context.Context, item models.TransitionItem) (models.TransitionItem, error)
	Delete(ctx context.Context, id string) error
	Apply(ctx context.Context, householdID string) (TransitionApplyResult, error)
}

type SQLiteTransitionItemRepository struct {
	database *sql.DB
}

func NewTransitionItemRepository(database *sql.DB) *SQLiteTransitionItemRepository {
	return &SQLiteTransitionItemRepository{database: database}
}

const transitionItemColumns = `id, household_id, ingredient_id, label, quantity, unit_id, aisle_id,
	status, created_at, updated_at`

func scanTransitionItem(scanner interface{ Scan(...any) error }) (models.TransitionItem, error) {
	var item models.TransitionItem
	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &item.IngredientID, &item.Label, &item.Quantity,
		&item.UnitID, &item.AisleID, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (repository *SQLiteTransitionItemRepository) FindByID(ctx context.Context, id string) (models.TransitionItem, error) {
	item, err := scanTransitionItem(repository.database.QueryRowContext(ctx,
		"SELECT "+transitionItemColumns+" FROM transition_items WHERE id = ?", id,
	))
	if err != nil {
		return models.TransitionItem{}, fmt.Errorf("finding transition item by id: %w", err)
	}
	return item, nil
}

func (repository *SQLiteTransitionItemRepository) FindByHousehold(ctx context.Context, householdID string, includeDone bool) ([]models.TransitionItem, error) {
	query := "SELECT " + transitionItemColumns + " FROM transition_items WHERE household_id = ?"
	args := []any{householdID}
	if !includeDone {
		query += " AND status = ?"
		args = append(args, models.ShoppingItemStatusTodo)
	}
	query += " ORDER BY created_at, id"

	items, err := queryTransitionItems(ctx, repository.database, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding transition items: %w", err)
	}
	return items, nil
}

func (repository *SQLiteTransitionItemRepository) Create(ctx context.Context, item models.TransitionItem) (models.TransitionItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = models.ShoppingItemStatusTodo
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := repository.database.ExecContext(ctx,
		"INSERT INTO transition_items ("+transitionItemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.HouseholdID, item.IngredientID, item.Label, item.Quantity,
		item.UnitID, item.AisleID, item.Status, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return models.TransitionItem{}, fmt.Errorf("creating transition item: %w", err)
	}
	return item, nil
}

func (repository *SQLiteTransitionItemRepository) Update(ctx context.Context, item models.TransitionItem) (models.TransitionItem, error) {
	item.UpdatedAt = time.Now()
	_, err := repository.database.ExecContext(ctx,
		`UPDATE transition_items SET ingredient_id = ?, label = ?, quantity = ?, unit_id = ?,
			aisle_id = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		item.IngredientID, item.Label, item.Quantity, item.UnitID,
		item.AisleID, item.Status, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return models.TransitionItem{}, fmt.Errorf("updating transition item: %w", err)
	}
	return item, nil
}

func (repository *SQLiteTransitionItemRepository) Delete(ctx context.Context, id string) error {
	_, err := repository.database.ExecContext(ctx, "DELETE FROM transition_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting transition item: %w", err)
	}
	return nil
}

// Apply moves every TODO transition item onto the active shopping list and
// marks it DONE. An item whose ingredient and unit match an active shopping
// item is merged into it by adding quantities; anything else becomes a new
// TRANSITION item.
func (repository *SQLiteTransitionItemRepository) Apply(ctx context.Context, householdID string) (TransitionApplyResult, error) {
	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return TransitionApplyResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	pending, err := queryTransitionItems(ctx, transaction,
		"SELECT "+transitionItemColumns+" FROM transition_items WHERE household_id = ? AND status = ? ORDER BY created_at, id",
		householdID, models.ShoppingItemStatusTodo,
	)
	if err != nil {
		return TransitionApplyResult{}, fmt.Errorf("finding pending transition items: %w", err)
	}

	var result TransitionApplyResult
	now := time.Now()
	for _, pendingItem := range pending {
		merged, err := mergeIntoShoppingItem(ctx, transaction, householdID, pendingItem, now)
		if err != nil {
			return TransitionApplyResult{}, err
		}
		if merged {
			result.Merged++
		} else {
			if _, err := insertShoppingItem(ctx, transaction, models.ShoppingItem{
				HouseholdID:  householdID,
				IngredientID: pendingItem.IngredientID,
				Label:        pendingItem.Label,
				Quantity:     pendingItem.Quantity,
				UnitID:       pendingItem.UnitID,
				AisleID:      pendingItem.AisleID,
				Status:       models.ShoppingItemStatusTodo,
				Source:       models.ShoppingItemSourceTransition,
			}); err != nil {
				return TransitionApplyResult{}, err
			}
			result.Created++
		}

		if _, err := transaction.ExecContext(ctx,
			"UPDATE transition_items SET status = ?, updated_at = ? WHERE id = ?",
			models.ShoppingItemStatusDone, now, pendingItem.ID,
		); err != nil {
			return TransitionApplyResult{}, fmt.Errorf("marking transition item done: %w", err)
		}
		result.Applied++
	}

	if err := transaction.Commit(); err != nil {
		return TransitionApplyResult{}, fmt.Errorf("committing transition apply: %w", err)
	}
	return result, nil
}

func mergeIntoShoppingItem(ctx context.Context, transaction *sql.Tx, householdID string, item models.TransitionItem, now time.Time) (bool, error) {
	if item.IngredientID == nil {
		return false, nil
	}

	var existingID string
	var existingQuantity decimal.NullDecimal
	// Meal plan items belong to the builder and DONE quantities are final, so
	// only open manual or transition items take the extra amount.
	err := transaction.QueryRowContext(ctx,
		`SELECT id, quantity FROM shopping_items
		WHERE household_id = ? AND ingredient_id = ? AND unit_id IS ? AND archived_at IS NULL
		AND status = ? AND source <> ?
		ORDER BY created_at, id LIMIT 1`,
		householdID, *item.IngredientID, item.UnitID,
		models.ShoppingItemStatusTodo, models.ShoppingItemSourceMealPlan,
	).Scan(&existingID, &existingQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finding shopping item to merge: %w", err)
	}

	if _, err := transaction.ExecContext(ctx,
		"UPDATE shopping_items SET quantity = ?, updated_at = ? WHERE id = ?",
		addNullable(existingQuantity, item.Quantity), now, existingID,
	); err != nil {
		return false, fmt.Errorf("merging transition item: %w", err)
	}
	return true, nil
}

func addNullable(left, right decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case left.Valid && right.Valid:
		return decimal.NewNullDecimal(left.Decimal.Add(right.Decimal))
	case left.Valid:
		return left
	default:
		return right
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryTransitionItems(ctx context.Context, source querier, query string, args ...any) ([]models.TransitionItem, error) {
	rows, err := source.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.TransitionItem
	for rows.Next() {
		item, err := scanTransitionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transition item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
