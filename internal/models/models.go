package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MealSlot string

const (
	MealSlotBreakfast MealSlot = "breakfast"
	MealSlotLunch     MealSlot = "lunch"
	MealSlotDinner    MealSlot = "dinner"
)

func (slot MealSlot) Valid() bool {
	switch slot {
	case MealSlotBreakfast, MealSlotLunch, MealSlotDinner:
		return true
	}
	return false
}

type TokenScope string

const (
	TokenScopeAPI  TokenScope = "api"
	TokenScopeICal TokenScope = "ical"
)

type ShoppingItemStatus string

const (
	ShoppingItemStatusTodo ShoppingItemStatus = "TODO"
	ShoppingItemStatusDone ShoppingItemStatus = "DONE"
)

func (status ShoppingItemStatus) Valid() bool {
	return status == ShoppingItemStatusTodo || status == ShoppingItemStatusDone
}

type ShoppingItemSource string

const (
	ShoppingItemSourceMealPlan   ShoppingItemSource = "MEALPLAN"
	ShoppingItemSourceManual     ShoppingItemSource = "MANUAL"
	ShoppingItemSourceTransition ShoppingItemSource = "TRANSITION"
)

type Household struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type APIToken struct {
	ID          string
	Name        string
	TokenHash   string
	Scope       TokenScope
	HouseholdID string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

type Unit struct {
	ID          string `json:"id"`
	HouseholdID string `json:"householdId"`
	Name        string `json:"name"`
	Abbr        string `json:"abbr"`
}

type Aisle struct {
	ID          string `json:"id"`
	HouseholdID string `json:"householdId"`
	Name        string `json:"name"`
	SortOrder   int    `json:"sortOrder"`
}

type Tag struct {
	ID          string `json:"id"`
	HouseholdID string `json:"householdId"`
	Name        string `json:"name"`
}

type Ingredient struct {
	ID             string  `json:"id"`
	HouseholdID    string  `json:"householdId"`
	Name           string  `json:"name"`
	DefaultUnitID  *string `json:"defaultUnitId"`
	DefaultAisleID *string `json:"defaultAisleId"`
}

// RecipeIngredient is one ingredient requirement of a recipe, expressed for
// the recipe's default servings.
type RecipeIngredient struct {
	IngredientID string          `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       *string         `json:"unitId"`
}

type Recipe struct {
	ID            string             `json:"id"`
	HouseholdID   string             `json:"householdId"`
	Title         string             `json:"title"`
	Servings      *int               `json:"servings"`
	TagIDs        []string           `json:"tagIds"`
	IngredientIDs []string           `json:"ingredientIds"`
	Ingredients   []RecipeIngredient `json:"ingredients,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

type RecipeSummary struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type PantryItem struct {
	ID           string          `json:"id"`
	HouseholdID  string          `json:"householdId"`
	IngredientID string          `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitID       *string         `json:"unitId"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// HistoryEntry records that a recipe was planned WeeksAgo weeks before the
// week being generated. WeeksAgo is at least 1.
type HistoryEntry struct {
	RecipeID string
	WeeksAgo int
}

type WeekPlan struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"householdId"`
	WeekStart   string    `json:"weekStart"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type WeekPlanRecipe struct {
	ID          string   `json:"id"`
	WeekPlanID  string   `json:"weekPlanId"`
	RecipeID    string   `json:"recipeId"`
	RecipeTitle string   `json:"recipeTitle,omitempty"`
	RecipeTags  []string `json:"recipeTags,omitempty"`
	DayIndex    int      `json:"dayIndex"`
	MealSlot    MealSlot `json:"mealSlot"`
	SortOrder   int      `json:"sortOrder"`
	Servings    *int     `json:"servings"`
	IsManual    bool     `json:"isManual"`
}

// PlannedIngredient is one recipe ingredient requirement of one week plan
// assignment, joined with what is needed to scale and place it.
type PlannedIngredient struct {
	AssignmentID      string
	RecipeID          string
	RequestedServings *int
	RecipeServings    *int
	IngredientID      string
	IngredientName    string
	Quantity          decimal.Decimal
	UnitID            *string
	DefaultUnitID     *string
	DefaultAisleID    *string
}

type ShoppingItem struct {
	ID           string              `json:"id"`
	HouseholdID  string              `json:"householdId"`
	WeekPlanID   *string             `json:"weekPlanId"`
	IngredientID *string             `json:"ingredientId"`
	Label        string              `json:"label"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	UnitID       *string             `json:"unitId"`
	AisleID      *string             `json:"aisleId"`
	Status       ShoppingItemStatus  `json:"status"`
	Source       ShoppingItemSource  `json:"source"`
	ArchivedAt   *time.Time          `json:"archivedAt"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`

	UnitAbbr       *string `json:"unitAbbr,omitempty"`
	AisleName      *string `json:"aisleName,omitempty"`
	AisleSortOrder *int    `json:"aisleSortOrder,omitempty"`
}

// TransitionItem is a leftover to carry onto the next shopping list.
type TransitionItem struct {
	ID           string              `json:"id"`
	HouseholdID  string              `json:"householdId"`
	IngredientID *string             `json:"ingredientId"`
	Label        string              `json:"label"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	UnitID       *string             `json:"unitId"`
	AisleID      *string             `json:"aisleId"`
	Status       ShoppingItemStatus  `json:"status"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type RecipePool struct {
	ID          string           `json:"id"`
	HouseholdID string           `json:"householdId"`
	WeekStart   string           `json:"weekStart"`
	Items       []RecipePoolItem `json:"items"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type RecipePoolItem struct {
	ID          string   `json:"id"`
	PoolID      string   `json:"poolId"`
	RecipeID    string   `json:"recipeId"`
	RecipeTitle string   `json:"recipeTitle"`
	RecipeTags  []string `json:"recipeTags"`
	Score       float64  `json:"score"`
	SortOrder   int      `json:"sortOrder"`
}
