package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

type ShoppingItemFilter struct {
	WeekPlanID      *string
	IncludeArchived bool
	IncludeDone     bool
}

// ShoppingReconciliation is one builder pass worth of changes, applied
// all-or-nothing.
type ShoppingReconciliation struct {
	Updates    []models.ShoppingItem
	ArchiveIDs []string
	Creates    []models.ShoppingItem
}

type ShoppingItemRepository interface {
	FindByID(ctx context.Context, id string) (models.ShoppingItem, error)
	FindAll(ctx context.Context, householdID string, filter ShoppingItemFilter) ([]models.ShoppingItem, error)
	FindMealPlanItems(ctx context.Context, householdID string, weekPlanID string) ([]models.ShoppingItem, error)
	FindActiveForPlan(ctx context.Context, householdID string, weekPlanID string) ([]models.ShoppingItem, error)
	CountActiveByStatus(ctx context.Context, householdID string) (map[models.ShoppingItemStatus]int, error)
	Create(ctx context.Context, item models.ShoppingItem) (models.ShoppingItem, error)
	UpdateStatus(ctx context.Context, id string, status models.ShoppingItemStatus) error
	ApplyReconciliation(ctx context.Context, reconciliation ShoppingReconciliation) error
	ArchiveDone(ctx context.Context, householdID string, weekPlanID string) (int64, error)
	Purge(ctx context.Context, householdID string) (int64, error)
}

type SQLiteShoppingItemRepository struct {
	database *sql.DB
}

func NewShoppingItemRepository(database *sql.DB) *SQLiteShoppingItemRepository {
	return &SQLiteShoppingItemRepository{database: database}
}

const shoppingItemSelect = `SELECT s.id, s.household_id, s.week_plan_id, s.ingredient_id, s.label, s.quantity,
	s.unit_id, s.aisle_id, s.status, s.source, s.archived_at, s.created_at, s.updated_at,
	u.abbr, a.name, a.sort_order
FROM shopping_items s
LEFT JOIN units u ON u.id = s.unit_id
LEFT JOIN aisles a ON a.id = s.aisle_id`

const shoppingItemOrder = " ORDER BY a.sort_order IS NULL, a.sort_order, s.label, s.id"

func scanShoppingItem(scanner interface{ Scan(...any) error }) (models.ShoppingItem, error) {
	var item models.ShoppingItem
	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &item.WeekPlanID, &item.IngredientID, &item.Label, &item.Quantity,
		&item.UnitID, &item.AisleID, &item.Status, &item.Source, &item.ArchivedAt, &item.CreatedAt, &item.UpdatedAt,
		&item.UnitAbbr, &item.AisleName, &item.AisleSortOrder,
	)
	return item, err
}

func (repository *SQLiteShoppingItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]models.ShoppingItem, error) {
	rows, err := repository.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ShoppingItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shopping item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (repository *SQLiteShoppingItemRepository) FindByID(ctx context.Context, id string) (models.ShoppingItem, error) {
	item, err := scanShoppingItem(repository.database.QueryRowContext(ctx, shoppingItemSelect+" WHERE s.id = ?", id))
	if err != nil {
		return models.ShoppingItem{}, fmt.Errorf("finding shopping item by id: %w", err)
	}
	return item, nil
}

func (repository *SQLiteShoppingItemRepository) FindAll(ctx context.Context, householdID string, filter ShoppingItemFilter) ([]models.ShoppingItem, error) {
	query := shoppingItemSelect + " WHERE s.household_id = ?"
	args := []any{householdID}

	if filter.WeekPlanID != nil {
		query += " AND s.week_plan_id = ?"
		args = append(args, *filter.WeekPlanID)
	}
	if !filter.IncludeArchived {
		query += " AND s.archived_at IS NULL"
	}
	if !filter.IncludeDone {
		query += " AND s.status = ?"
		args = append(args, models.ShoppingItemStatusTodo)
	}
	query += shoppingItemOrder

	items, err := repository.queryItems(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding shopping items: %w", err)
	}
	return items, nil
}

// FindMealPlanItems returns the plan's active items owned by the builder.
func (repository *SQLiteShoppingItemRepository) FindMealPlanItems(ctx context.Context, householdID string, weekPlanID string) ([]models.ShoppingItem, error) {
	items, err := repository.queryItems(ctx,
		shoppingItemSelect+` WHERE s.household_id = ? AND s.week_plan_id = ? AND s.source = ? AND s.archived_at IS NULL
		ORDER BY s.created_at, s.id`,
		householdID, weekPlanID, models.ShoppingItemSourceMealPlan,
	)
	if err != nil {
		return nil, fmt.Errorf("finding meal plan items: %w", err)
	}
	return items, nil
}

// FindActiveForPlan returns the plan's active items together with the
// household's active items that are not tied to any plan.
func (repository *SQLiteShoppingItemRepository) FindActiveForPlan(ctx context.Context, householdID string, weekPlanID string) ([]models.ShoppingItem, error) {
	items, err := repository.queryItems(ctx,
		shoppingItemSelect+` WHERE s.household_id = ? AND s.archived_at IS NULL
		AND (s.week_plan_id = ? OR s.week_plan_id IS NULL)`+shoppingItemOrder,
		householdID, weekPlanID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding active items for plan: %w", err)
	}
	return items, nil
}

func (repository *SQLiteShoppingItemRepository) CountActiveByStatus(ctx context.Context, householdID string) (map[models.ShoppingItemStatus]int, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM shopping_items
		WHERE household_id = ? AND archived_at IS NULL GROUP BY status`, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting shopping items: %w", err)
	}
	defer rows.Close()

	counts := map[models.ShoppingItemStatus]int{
		models.ShoppingItemStatusTodo: 0,
		models.ShoppingItemStatusDone: 0,
	}
	for rows.Next() {
		var status models.ShoppingItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (repository *SQLiteShoppingItemRepository) Create(ctx context.Context, item models.ShoppingItem) (models.ShoppingItem, error) {
	item, err := insertShoppingItem(ctx, repository.database, item)
	if err != nil {
		return models.ShoppingItem{}, err
	}
	return item, nil
}

func (repository *SQLiteShoppingItemRepository) UpdateStatus(ctx context.Context, id string, status models.ShoppingItemStatus) error {
	_, err := repository.database.ExecContext(ctx,
		"UPDATE shopping_items SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating shopping item status: %w", err)
	}
	return nil
}

func (repository *SQLiteShoppingItemRepository) ApplyReconciliation(ctx context.Context, reconciliation ShoppingReconciliation) error {
	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	now := time.Now()
	for _, item := range reconciliation.Updates {
		if _, err := transaction.ExecContext(ctx,
			`UPDATE shopping_items SET label = ?, quantity = ?, aisle_id = ?, status = ?,
				archived_at = NULL, updated_at = ?
			WHERE id = ?`,
			item.Label, item.Quantity, item.AisleID, item.Status, now, item.ID,
		); err != nil {
			return fmt.Errorf("updating shopping item: %w", err)
		}
	}

	for _, id := range reconciliation.ArchiveIDs {
		if _, err := transaction.ExecContext(ctx,
			"UPDATE shopping_items SET archived_at = ?, updated_at = ? WHERE id = ?",
			now, now, id,
		); err != nil {
			return fmt.Errorf("archiving shopping item: %w", err)
		}
	}

	for _, item := range reconciliation.Creates {
		if _, err := insertShoppingItem(ctx, transaction, item); err != nil {
			return err
		}
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("committing reconciliation: %w", err)
	}
	return nil
}

func (repository *SQLiteShoppingItemRepository) ArchiveDone(ctx context.Context, householdID string, weekPlanID string) (int64, error) {
	now := time.Now()
	result, err := repository.database.ExecContext(ctx,
		`UPDATE shopping_items SET archived_at = ?, updated_at = ?
		WHERE household_id = ? AND week_plan_id = ? AND status = ? AND archived_at IS NULL`,
		now, now, householdID, weekPlanID, models.ShoppingItemStatusDone,
	)
	if err != nil {
		return 0, fmt.Errorf("archiving done items: %w", err)
	}
	return result.RowsAffected()
}

func (repository *SQLiteShoppingItemRepository) Purge(ctx context.Context, householdID string) (int64, error) {
	result, err := repository.database.ExecContext(ctx, "DELETE FROM shopping_items WHERE household_id = ?", householdID)
	if err != nil {
		return 0, fmt.Errorf("purging shopping items: %w", err)
	}
	return result.RowsAffected()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertShoppingItem(ctx context.Context, executor execer, item models.ShoppingItem) (models.ShoppingItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = models.ShoppingItemStatusTodo
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := executor.ExecContext(ctx,
		`INSERT INTO shopping_items (id, household_id, week_plan_id, ingredient_id, label, quantity,
			unit_id, aisle_id, status, source, archived_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.HouseholdID, item.WeekPlanID, item.IngredientID, item.Label, item.Quantity,
		item.UnitID, item.AisleID, item.Status, item.Source, item.ArchivedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return models.ShoppingItem{}, fmt.Errorf("creating shopping item: %w", err)
	}
	return item, nil
}
