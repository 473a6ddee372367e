package services_test

import (
	"math"
	"testing"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/services"
)

func approxEqual(left, right float64) bool {
	return math.Abs(left-right) < 1e-9
}

func TestComputePantryCoverage(t *testing.T) {
	pantry := []models.PantryItem{
		{IngredientID: "flour"},
		{IngredientID: "eggs"},
		{IngredientID: "eggs"},
	}

	tests := []struct {
		name          string
		ingredientIDs []string
		expected      float64
	}{
		{"no ingredients", nil, 0},
		{"nothing stocked", []string{"milk", "butter"}, 0},
		{"half stocked", []string{"flour", "milk"}, 0.5},
		{"fully stocked", []string{"flour", "eggs"}, 1},
		{"one of three", []string{"flour", "milk", "sugar"}, 1.0 / 3.0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			recipe := models.Recipe{ID: "r1", IngredientIDs: testCase.ingredientIDs}
			if got := services.ComputePantryCoverage(recipe, pantry); !approxEqual(got, testCase.expected) {
				t.Errorf("expected %v, got %v", testCase.expected, got)
			}
		})
	}
}

func TestComputePantryCoverage_EmptyPantry(t *testing.T) {
	recipe := models.Recipe{ID: "r1", IngredientIDs: []string{"flour"}}
	if got := services.ComputePantryCoverage(recipe, nil); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestComputeAntiRepeatPenalty(t *testing.T) {
	disabled := services.LeftoversOverride{}
	history := []models.HistoryEntry{
		{RecipeID: "r1", WeeksAgo: 1},
		{RecipeID: "r1", WeeksAgo: 3},
		{RecipeID: "r2", WeeksAgo: 1},
	}

	tests := []struct {
		name     string
		recipeID string
		expected float64
	}{
		{"compounds across weeks", "r1", 0.5 + 0.5*0.25},
		{"single entry", "r2", 0.5},
		{"never planned", "r3", 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := services.ComputeAntiRepeatPenalty(testCase.recipeID, history, 0.5, 0.5, disabled, 0)
			if !approxEqual(got, testCase.expected) {
				t.Errorf("expected %v, got %v", testCase.expected, got)
			}
		})
	}
}

func TestComputeAntiRepeatPenalty_LeftoversOverride(t *testing.T) {
	history := []models.HistoryEntry{{RecipeID: "r1", WeeksAgo: 1}}
	override := services.LeftoversOverride{
		Enabled:                      true,
		MinPantryCoverageRatio:       0.8,
		PenaltyMultiplierWhenCovered: 0.2,
	}

	tests := []struct {
		name     string
		override services.LeftoversOverride
		coverage float64
		expected float64
	}{
		{"covered", override, 0.8, 0.1},
		{"under threshold", override, 0.79, 0.5},
		{"disabled ignores coverage", services.LeftoversOverride{MinPantryCoverageRatio: 0, PenaltyMultiplierWhenCovered: 0}, 1, 0.5},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := services.ComputeAntiRepeatPenalty("r1", history, 0.5, 0.5, testCase.override, testCase.coverage)
			if !approxEqual(got, testCase.expected) {
				t.Errorf("expected %v, got %v", testCase.expected, got)
			}
		})
	}
}

func TestComputeAntiRepeatPenalty_NonIncreasingWithAge(t *testing.T) {
	for _, decay := range []float64{0, 0.25, 0.5, 1} {
		previous := math.Inf(1)
		for weeksAgo := 1; weeksAgo <= 12; weeksAgo++ {
			history := []models.HistoryEntry{{RecipeID: "r1", WeeksAgo: weeksAgo}}
			penalty := services.ComputeAntiRepeatPenalty("r1", history, 0.5, decay, services.LeftoversOverride{}, 0)
			if penalty > previous {
				t.Fatalf("decay %v: penalty grew from %v to %v at %d weeks", decay, previous, penalty, weeksAgo)
			}
			previous = penalty
		}
	}
}

func TestComputeQuotaBonus(t *testing.T) {
	quotas := []services.TagQuota{
		{TagID: "veggie", Min: 2},
		{TagID: "fish", Min: 1},
	}

	tests := []struct {
		name     string
		tagIDs   []string
		counts   map[string]int
		expected float64
	}{
		{"untagged", nil, map[string]int{}, 0},
		{"under quota", []string{"veggie"}, map[string]int{"veggie": 1}, 0.1},
		{"quota met", []string{"veggie"}, map[string]int{"veggie": 2}, 0},
		{"two under quota tags do not stack", []string{"veggie", "fish"}, map[string]int{}, 0.1},
		{"second quota qualifies", []string{"veggie", "fish"}, map[string]int{"veggie": 5}, 0.1},
		{"tag without quota", []string{"dessert"}, map[string]int{}, 0},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			got := services.ComputeQuotaBonus(testCase.tagIDs, testCase.counts, quotas, 0.1)
			if got != testCase.expected {
				t.Errorf("expected %v, got %v", testCase.expected, got)
			}
		})
	}
}

func TestIncrementTagCounts(t *testing.T) {
	counts := map[string]int{"veggie": 1}
	services.IncrementTagCounts([]string{"veggie", "fish"}, counts)
	services.IncrementTagCounts([]string{"fish"}, counts)

	if counts["veggie"] != 2 {
		t.Errorf("expected veggie count 2, got %d", counts["veggie"])
	}
	if counts["fish"] != 2 {
		t.Errorf("expected fish count 2, got %d", counts["fish"])
	}
}
