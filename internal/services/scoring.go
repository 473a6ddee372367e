package services

import (
	"math"
	"slices"

	"github.com/MikeDwight/meal-plan-app/internal/models"
)

type LeftoversOverride struct {
	Enabled                      bool    `json:"enabled"`
	MinPantryCoverageRatio       float64 `json:"minPantryCoverageRatio"`
	PenaltyMultiplierWhenCovered float64 `json:"penaltyMultiplierWhenCovered"`
}

type TagQuota struct {
	TagID string `json:"tagId"`
	Min   int    `json:"min"`
}

// ComputePantryCoverage is the fraction of the recipe's ingredients present
// in the pantry in any quantity or unit. A recipe without ingredients has
// coverage 0.
func ComputePantryCoverage(recipe models.Recipe, pantry []models.PantryItem) float64 {
	if len(recipe.IngredientIDs) == 0 {
		return 0
	}

	stocked := make(map[string]bool, len(pantry))
	for _, item := range pantry {
		stocked[item.IngredientID] = true
	}

	covered := 0
	for _, ingredientID := range recipe.IngredientIDs {
		if stocked[ingredientID] {
			covered++
		}
	}
	return float64(covered) / float64(len(recipe.IngredientIDs))
}

// ComputeAntiRepeatPenalty sums basePenalty * decay^(weeksAgo-1) over every
// history entry of the recipe. When the leftovers override applies, each term
// is scaled by its multiplier.
func ComputeAntiRepeatPenalty(
	recipeID string,
	history []models.HistoryEntry,
	basePenalty float64,
	decay float64,
	leftovers LeftoversOverride,
	pantryCoverageRatio float64,
) float64 {
	covered := leftovers.Enabled && pantryCoverageRatio >= leftovers.MinPantryCoverageRatio

	total := 0.0
	for _, entry := range history {
		if entry.RecipeID != recipeID {
			continue
		}
		penalty := basePenalty * math.Pow(decay, float64(entry.WeeksAgo-1))
		if covered {
			penalty *= leftovers.PenaltyMultiplierWhenCovered
		}
		total += penalty
	}
	return total
}

// ComputeQuotaBonus returns bonus for the first quota, in order, whose tag the
// recipe carries and whose count is still under its minimum. Bonuses never
// stack.
func ComputeQuotaBonus(recipeTagIDs []string, tagCounts map[string]int, quotas []TagQuota, bonus float64) float64 {
	for _, quota := range quotas {
		if !slices.Contains(recipeTagIDs, quota.TagID) {
			continue
		}
		if tagCounts[quota.TagID] < quota.Min {
			return bonus
		}
	}
	return 0
}

func IncrementTagCounts(recipeTagIDs []string, tagCounts map[string]int) {
	for _, tagID := range recipeTagIDs {
		tagCounts[tagID]++
	}
}

// selectionState is the mutable state of one generation run.
type selectionState struct {
	used      map[string]bool
	tagCounts map[string]int
}

func newSelectionState() *selectionState {
	return &selectionState{
		used:      make(map[string]bool),
		tagCounts: make(map[string]int),
	}
}

func (state *selectionState) take(recipeID string, tagIDs []string) {
	state.used[recipeID] = true
	IncrementTagCounts(tagIDs, state.tagCounts)
}

type recipeScore struct {
	recipe              models.Recipe
	pantryCoverageRatio float64
	antiRepeatPenalty   float64
	quotaBonus          float64
	finalScore          float64
}

// rankScores orders by final score descending, then recipe id ascending.
func rankScores(scores []recipeScore) {
	slices.SortFunc(scores, func(left, right recipeScore) int {
		if left.finalScore != right.finalScore {
			if left.finalScore > right.finalScore {
				return -1
			}
			return 1
		}
		if left.recipe.ID < right.recipe.ID {
			return -1
		}
		if left.recipe.ID > right.recipe.ID {
			return 1
		}
		return 0
	})
}

// filterEligible drops excluded recipes and recipes carrying an excluded tag.
func filterEligible(recipes []models.Recipe, exclude Exclusions) []models.Recipe {
	excludedRecipes := make(map[string]bool, len(exclude.RecipeIDs))
	for _, id := range exclude.RecipeIDs {
		excludedRecipes[id] = true
	}
	excludedTags := make(map[string]bool, len(exclude.TagIDs))
	for _, id := range exclude.TagIDs {
		excludedTags[id] = true
	}

	var eligible []models.Recipe
	for _, recipe := range recipes {
		if excludedRecipes[recipe.ID] {
			continue
		}
		if slices.ContainsFunc(recipe.TagIDs, func(tagID string) bool { return excludedTags[tagID] }) {
			continue
		}
		eligible = append(eligible, recipe)
	}
	return eligible
}

type Exclusions struct {
	RecipeIDs []string `json:"recipeIds"`
	TagIDs    []string `json:"tagIds"`
}
