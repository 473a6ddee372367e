package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/google/uuid"
)

const weekStartLayout = "2006-01-02"

const mealSlotOrder = "CASE meal_slot WHEN 'breakfast' THEN 1 WHEN 'lunch' THEN 2 WHEN 'dinner' THEN 3 END"

type WeekPlanRepository interface {
	FindByID(ctx context.Context, id string) (models.WeekPlan, error)
	FindByHouseholdAndWeek(ctx context.Context, householdID string, weekStart string) (models.WeekPlan, error)
	FindHistory(ctx context.Context, householdID string, weekStart string, lookbackWeeks int) ([]models.HistoryEntry, error)
	FindAssignments(ctx context.Context, weekPlanID string) ([]models.WeekPlanRecipe, error)
	FindManualAssignments(ctx context.Context, weekPlanID string) ([]models.WeekPlanRecipe, error)
	CountAssignments(ctx context.Context, weekPlanID string) (int, error)
	FindPlannedIngredients(ctx context.Context, weekPlanID string) ([]models.PlannedIngredient, error)
	SaveGenerated(ctx context.Context, householdID string, weekStart string, assignments []models.WeekPlanRecipe, preserveManual bool) (models.WeekPlan, error)
	SetSlot(ctx context.Context, householdID string, weekStart string, assignment models.WeekPlanRecipe) (models.WeekPlan, models.WeekPlanRecipe, error)
	ClearWeek(ctx context.Context, weekPlanID string) (ClearWeekResult, error)
}

type ClearWeekResult struct {
	DeletedAssignments int64
	ArchivedItems      int64
}

type SQLiteWeekPlanRepository struct {
	database *sql.DB
}

func NewWeekPlanRepository(database *sql.DB) *SQLiteWeekPlanRepository {
	return &SQLiteWeekPlanRepository{database: database}
}

func (repository *SQLiteWeekPlanRepository) FindByID(ctx context.Context, id string) (models.WeekPlan, error) {
	var plan models.WeekPlan
	err := repository.database.QueryRowContext(ctx,
		"SELECT id, household_id, week_start, created_at, updated_at FROM week_plans WHERE id = ?", id,
	).Scan(&plan.ID, &plan.HouseholdID, &plan.WeekStart, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("finding week plan by id: %w", err)
	}
	return plan, nil
}

func (repository *SQLiteWeekPlanRepository) FindByHouseholdAndWeek(ctx context.Context, householdID string, weekStart string) (models.WeekPlan, error) {
	var plan models.WeekPlan
	err := repository.database.QueryRowContext(ctx,
		`SELECT id, household_id, week_start, created_at, updated_at
		FROM week_plans WHERE household_id = ? AND week_start = ?`, householdID, weekStart,
	).Scan(&plan.ID, &plan.HouseholdID, &plan.WeekStart, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("finding week plan by week: %w", err)
	}
	return plan, nil
}

// FindHistory lists every recipe assigned in the household's week plans
// starting between lookbackWeeks weeks and one week before weekStart,
// inclusive. WeeksAgo is the calendar distance rounded to whole weeks.
func (repository *SQLiteWeekPlanRepository) FindHistory(ctx context.Context, householdID string, weekStart string, lookbackWeeks int) ([]models.HistoryEntry, error) {
	target, err := time.Parse(weekStartLayout, weekStart)
	if err != nil {
		return nil, fmt.Errorf("parsing week start: %w", err)
	}
	from := target.AddDate(0, 0, -7*lookbackWeeks).Format(weekStartLayout)
	to := target.AddDate(0, 0, -7).Format(weekStartLayout)

	rows, err := repository.database.QueryContext(ctx,
		`SELECT wp.week_start, wpr.recipe_id
		FROM week_plans wp
		JOIN week_plan_recipes wpr ON wpr.week_plan_id = wp.id
		WHERE wp.household_id = ? AND wp.week_start >= ? AND wp.week_start <= ?
		ORDER BY wp.week_start DESC, wpr.day_index, wpr.sort_order`,
		householdID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("finding history: %w", err)
	}
	defer rows.Close()

	var history []models.HistoryEntry
	for rows.Next() {
		var planWeek, recipeID string
		if err := rows.Scan(&planWeek, &recipeID); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		planDate, err := time.Parse(weekStartLayout, planWeek)
		if err != nil {
			return nil, fmt.Errorf("parsing history week start: %w", err)
		}
		weeksAgo := int(math.Round(target.Sub(planDate).Hours() / (24 * 7)))
		history = append(history, models.HistoryEntry{RecipeID: recipeID, WeeksAgo: weeksAgo})
	}
	return history, rows.Err()
}

func (repository *SQLiteWeekPlanRepository) FindAssignments(ctx context.Context, weekPlanID string) ([]models.WeekPlanRecipe, error) {
	return repository.findAssignments(ctx, weekPlanID, false)
}

func (repository *SQLiteWeekPlanRepository) FindManualAssignments(ctx context.Context, weekPlanID string) ([]models.WeekPlanRecipe, error) {
	return repository.findAssignments(ctx, weekPlanID, true)
}

func (repository *SQLiteWeekPlanRepository) findAssignments(ctx context.Context, weekPlanID string, manualOnly bool) ([]models.WeekPlanRecipe, error) {
	query := `SELECT wpr.id, wpr.week_plan_id, wpr.recipe_id, r.title, wpr.day_index, wpr.meal_slot,
		wpr.sort_order, wpr.servings, wpr.is_manual
	FROM week_plan_recipes wpr
	JOIN recipes r ON r.id = wpr.recipe_id
	WHERE wpr.week_plan_id = ?`
	if manualOnly {
		query += " AND wpr.is_manual = 1"
	}
	query += " ORDER BY wpr.day_index, " + mealSlotOrder + ", wpr.sort_order"

	rows, err := repository.database.QueryContext(ctx, query, weekPlanID)
	if err != nil {
		return nil, fmt.Errorf("finding assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.WeekPlanRecipe
	for rows.Next() {
		var assignment models.WeekPlanRecipe
		if err := rows.Scan(
			&assignment.ID, &assignment.WeekPlanID, &assignment.RecipeID, &assignment.RecipeTitle,
			&assignment.DayIndex, &assignment.MealSlot, &assignment.SortOrder,
			&assignment.Servings, &assignment.IsManual,
		); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	rows.Close()

	tags, err := recipeTagNames(ctx, repository.database,
		"SELECT recipe_id FROM week_plan_recipes WHERE week_plan_id = ?", weekPlanID)
	if err != nil {
		return nil, err
	}
	for index := range assignments {
		assignments[index].RecipeTags = tagsOrEmpty(tags[assignments[index].RecipeID])
	}
	return assignments, nil
}

func (repository *SQLiteWeekPlanRepository) CountAssignments(ctx context.Context, weekPlanID string) (int, error) {
	var count int
	err := repository.database.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM week_plan_recipes WHERE week_plan_id = ?", weekPlanID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting assignments: %w", err)
	}
	return count, nil
}

func (repository *SQLiteWeekPlanRepository) FindPlannedIngredients(ctx context.Context, weekPlanID string) ([]models.PlannedIngredient, error) {
	rows, err := repository.database.QueryContext(ctx,
		`SELECT wpr.id, wpr.recipe_id, wpr.servings, r.servings,
			ri.ingredient_id, i.name, ri.quantity, ri.unit_id, i.default_unit_id, i.default_aisle_id
		FROM week_plan_recipes wpr
		JOIN recipes r ON r.id = wpr.recipe_id
		JOIN recipe_ingredients ri ON ri.recipe_id = r.id
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE wpr.week_plan_id = ?
		ORDER BY wpr.day_index, wpr.sort_order, ri.ingredient_id`,
		weekPlanID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding planned ingredients: %w", err)
	}
	defer rows.Close()

	var planned []models.PlannedIngredient
	for rows.Next() {
		var row models.PlannedIngredient
		if err := rows.Scan(
			&row.AssignmentID, &row.RecipeID, &row.RequestedServings, &row.RecipeServings,
			&row.IngredientID, &row.IngredientName, &row.Quantity, &row.UnitID,
			&row.DefaultUnitID, &row.DefaultAisleID,
		); err != nil {
			return nil, fmt.Errorf("scanning planned ingredient: %w", err)
		}
		planned = append(planned, row)
	}
	return planned, rows.Err()
}

// SaveGenerated upserts the week plan header and replaces its generated
// assignments in one transaction. Manual assignments survive when
// preserveManual is set.
func (repository *SQLiteWeekPlanRepository) SaveGenerated(
	ctx context.Context,
	householdID string,
	weekStart string,
	assignments []models.WeekPlanRecipe,
	preserveManual bool,
) (models.WeekPlan, error) {
	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	plan, err := upsertWeekPlan(ctx, transaction, householdID, weekStart)
	if err != nil {
		return models.WeekPlan{}, err
	}

	deleteQuery := "DELETE FROM week_plan_recipes WHERE week_plan_id = ?"
	if preserveManual {
		deleteQuery += " AND is_manual = 0"
	}
	if _, err := transaction.ExecContext(ctx, deleteQuery, plan.ID); err != nil {
		return models.WeekPlan{}, fmt.Errorf("deleting prior assignments: %w", err)
	}

	for _, assignment := range assignments {
		if err := insertAssignment(ctx, transaction, plan.ID, assignment); err != nil {
			return models.WeekPlan{}, err
		}
	}

	if err := transaction.Commit(); err != nil {
		return models.WeekPlan{}, fmt.Errorf("committing generated plan: %w", err)
	}
	return plan, nil
}

// SetSlot pins a recipe to one slot, replacing whatever occupied it.
func (repository *SQLiteWeekPlanRepository) SetSlot(
	ctx context.Context,
	householdID string,
	weekStart string,
	assignment models.WeekPlanRecipe,
) (models.WeekPlan, models.WeekPlanRecipe, error) {
	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return models.WeekPlan{}, models.WeekPlanRecipe{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	plan, err := upsertWeekPlan(ctx, transaction, householdID, weekStart)
	if err != nil {
		return models.WeekPlan{}, models.WeekPlanRecipe{}, err
	}

	if _, err := transaction.ExecContext(ctx,
		"DELETE FROM week_plan_recipes WHERE week_plan_id = ? AND day_index = ? AND meal_slot = ?",
		plan.ID, assignment.DayIndex, assignment.MealSlot,
	); err != nil {
		return models.WeekPlan{}, models.WeekPlanRecipe{}, fmt.Errorf("clearing slot: %w", err)
	}

	assignment.ID = uuid.New().String()
	assignment.WeekPlanID = plan.ID
	assignment.SortOrder = 0
	assignment.IsManual = true
	if err := insertAssignment(ctx, transaction, plan.ID, assignment); err != nil {
		return models.WeekPlan{}, models.WeekPlanRecipe{}, err
	}

	if err := transaction.Commit(); err != nil {
		return models.WeekPlan{}, models.WeekPlanRecipe{}, fmt.Errorf("committing slot: %w", err)
	}
	return plan, assignment, nil
}

// ClearWeek removes every assignment of the plan and archives the plan's
// active meal-plan shopping items, atomically.
func (repository *SQLiteWeekPlanRepository) ClearWeek(ctx context.Context, weekPlanID string) (ClearWeekResult, error) {
	transaction, err := repository.database.BeginTx(ctx, nil)
	if err != nil {
		return ClearWeekResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer transaction.Rollback()

	var result ClearWeekResult
	deleted, err := transaction.ExecContext(ctx, "DELETE FROM week_plan_recipes WHERE week_plan_id = ?", weekPlanID)
	if err != nil {
		return ClearWeekResult{}, fmt.Errorf("deleting assignments: %w", err)
	}
	if result.DeletedAssignments, err = deleted.RowsAffected(); err != nil {
		return ClearWeekResult{}, fmt.Errorf("counting deleted assignments: %w", err)
	}

	now := time.Now()
	archived, err := transaction.ExecContext(ctx,
		`UPDATE shopping_items SET archived_at = ?, updated_at = ?
		WHERE week_plan_id = ? AND source = ? AND archived_at IS NULL`,
		now, now, weekPlanID, models.ShoppingItemSourceMealPlan,
	)
	if err != nil {
		return ClearWeekResult{}, fmt.Errorf("archiving shopping items: %w", err)
	}
	if result.ArchivedItems, err = archived.RowsAffected(); err != nil {
		return ClearWeekResult{}, fmt.Errorf("counting archived items: %w", err)
	}

	if err := transaction.Commit(); err != nil {
		return ClearWeekResult{}, fmt.Errorf("committing clear week: %w", err)
	}
	return result, nil
}

func upsertWeekPlan(ctx context.Context, transaction *sql.Tx, householdID string, weekStart string) (models.WeekPlan, error) {
	now := time.Now()
	_, err := transaction.ExecContext(ctx,
		`INSERT INTO week_plans (id, household_id, week_start, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (household_id, week_start) DO UPDATE SET updated_at = excluded.updated_at`,
		uuid.New().String(), householdID, weekStart, now, now,
	)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("upserting week plan: %w", err)
	}

	var plan models.WeekPlan
	err = transaction.QueryRowContext(ctx,
		`SELECT id, household_id, week_start, created_at, updated_at
		FROM week_plans WHERE household_id = ? AND week_start = ?`, householdID, weekStart,
	).Scan(&plan.ID, &plan.HouseholdID, &plan.WeekStart, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("reloading week plan: %w", err)
	}
	return plan, nil
}

func insertAssignment(ctx context.Context, transaction *sql.Tx, weekPlanID string, assignment models.WeekPlanRecipe) error {
	if assignment.ID == "" {
		assignment.ID = uuid.New().String()
	}
	_, err := transaction.ExecContext(ctx,
		`INSERT INTO week_plan_recipes (id, week_plan_id, recipe_id, day_index, meal_slot, sort_order, servings, is_manual)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		assignment.ID, weekPlanID, assignment.RecipeID, assignment.DayIndex, assignment.MealSlot,
		assignment.SortOrder, assignment.Servings, assignment.IsManual,
	)
	if err != nil {
		return fmt.Errorf("inserting assignment: %w", err)
	}
	return nil
}
