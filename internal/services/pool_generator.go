package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	minPoolCount = 1
	maxPoolCount = 50
)

type PoolRequest struct {
	HouseholdID string
	WeekStart   string
	Count       int
	Exclude     Exclusions
	AntiRepeat  AntiRepeatOptions
}

type PoolItem struct {
	RecipeID  string  `json:"recipeId"`
	Score     float64 `json:"score"`
	SortOrder int     `json:"sortOrder"`
}

type PoolMeta struct {
	Requested int `json:"requested"`
	Generated int `json:"generated"`
}

type PoolResult struct {
	WeekStart string
	Items     []PoolItem
	Meta      PoolMeta
}

// PoolRecipe is one stored suggestion as shown to clients.
type PoolRecipe struct {
	ID        string   `json:"id"`
	RecipeID  string   `json:"recipeId"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Score     float64  `json:"score"`
	SortOrder int      `json:"sortOrder"`
}

type PoolResponse struct {
	PoolID    *string      `json:"poolId"`
	WeekStart string       `json:"weekStart"`
	Recipes   []PoolRecipe `json:"recipes"`
	Meta      *PoolMeta    `json:"meta,omitempty"`
}

type PoolGenerator struct {
	householdRepo repository.HouseholdRepository
	recipeRepo    repository.RecipeRepository
	pantryRepo    repository.PantryRepository
	weekPlanRepo  repository.WeekPlanRepository
	poolRepo      repository.RecipePoolRepository
}

func NewPoolGenerator(
	householdRepo repository.HouseholdRepository,
	recipeRepo repository.RecipeRepository,
	pantryRepo repository.PantryRepository,
	weekPlanRepo repository.WeekPlanRepository,
	poolRepo repository.RecipePoolRepository,
) *PoolGenerator {
	return &PoolGenerator{
		householdRepo: householdRepo,
		recipeRepo:    recipeRepo,
		pantryRepo:    pantryRepo,
		weekPlanRepo:  weekPlanRepo,
		poolRepo:      poolRepo,
	}
}

// Generate ranks the household's eligible recipes by pantry coverage minus
// anti-repeat penalty and returns the best Count of them. Recipes are never
// used up, so nothing is assigned or stored.
func (service *PoolGenerator) Generate(ctx context.Context, request PoolRequest) (PoolResult, error) {
	if request.Count < minPoolCount || request.Count > maxPoolCount {
		return PoolResult{}, badRequest("count must be between %d and %d", minPoolCount, maxPoolCount)
	}
	if err := requireHousehold(ctx, service.householdRepo, request.HouseholdID); err != nil {
		return PoolResult{}, err
	}

	monday, err := ParseWeekStart(request.WeekStart)
	if err != nil {
		return PoolResult{}, err
	}
	weekStart := FormatDate(monday)

	antiRepeat, err := resolveAntiRepeat(request.AntiRepeat)
	if err != nil {
		return PoolResult{}, err
	}

	var (
		recipes []models.Recipe
		pantry  []models.PantryItem
		history []models.HistoryEntry
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		recipes, err = service.recipeRepo.FindByHousehold(groupCtx, request.HouseholdID)
		return err
	})
	group.Go(func() error {
		var err error
		pantry, err = service.pantryRepo.FindByHousehold(groupCtx, request.HouseholdID)
		return err
	})
	group.Go(func() error {
		var err error
		history, err = service.weekPlanRepo.FindHistory(groupCtx, request.HouseholdID, weekStart, antiRepeat.lookbackWeeks)
		return err
	})
	if err := group.Wait(); err != nil {
		return PoolResult{}, fmt.Errorf("loading pool inputs: %w", err)
	}

	if len(recipes) == 0 {
		return PoolResult{}, conflict("No recipes available for this household")
	}
	eligible := filterEligible(recipes, request.Exclude)
	if len(eligible) == 0 {
		return PoolResult{}, conflict("No eligible recipes after exclusions")
	}

	scores := make([]recipeScore, 0, len(eligible))
	for _, recipe := range eligible {
		coverage := ComputePantryCoverage(recipe, pantry)
		penalty := ComputeAntiRepeatPenalty(recipe.ID, history, antiRepeat.basePenalty, antiRepeat.decay, antiRepeat.leftovers, coverage)
		scores = append(scores, recipeScore{
			recipe:              recipe,
			pantryCoverageRatio: coverage,
			antiRepeatPenalty:   penalty,
			finalScore:          coverage - penalty,
		})
	}
	rankScores(scores)
	if len(scores) > request.Count {
		scores = scores[:request.Count]
	}

	items := make([]PoolItem, 0, len(scores))
	for index, scored := range scores {
		items = append(items, PoolItem{
			RecipeID:  scored.recipe.ID,
			Score:     scored.finalScore,
			SortOrder: index,
		})
	}
	return PoolResult{
		WeekStart: weekStart,
		Items:     items,
		Meta:      PoolMeta{Requested: request.Count, Generated: len(items)},
	}, nil
}

// SavePool generates a pool and stores it as the week's suggestions,
// replacing any earlier pool for that week.
func (service *PoolGenerator) SavePool(ctx context.Context, request PoolRequest) (PoolResponse, error) {
	result, err := service.Generate(ctx, request)
	if err != nil {
		return PoolResponse{}, err
	}

	items := make([]models.RecipePoolItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, models.RecipePoolItem{
			RecipeID:  item.RecipeID,
			Score:     item.Score,
			SortOrder: item.SortOrder,
		})
	}
	pool, err := service.poolRepo.Replace(ctx, request.HouseholdID, result.WeekStart, items)
	if err != nil {
		return PoolResponse{}, fmt.Errorf("saving recipe pool: %w", err)
	}

	slog.Info("generated recipe pool",
		"household_id", request.HouseholdID,
		"week_start", result.WeekStart,
		"requested", result.Meta.Requested,
		"generated", result.Meta.Generated,
	)

	response := poolResponse(pool, result.WeekStart)
	response.Meta = &result.Meta
	return response, nil
}

// GetPool returns the stored pool of the week, or an empty response with a
// nil PoolID when none exists.
func (service *PoolGenerator) GetPool(ctx context.Context, householdID string, weekStart string) (PoolResponse, error) {
	monday, err := ParseWeekStart(weekStart)
	if err != nil {
		return PoolResponse{}, err
	}
	normalized := FormatDate(monday)

	pool, err := service.poolRepo.FindByWeek(ctx, householdID, normalized)
	if errors.Is(err, sql.ErrNoRows) {
		return PoolResponse{WeekStart: normalized, Recipes: []PoolRecipe{}}, nil
	}
	if err != nil {
		return PoolResponse{}, fmt.Errorf("finding recipe pool: %w", err)
	}
	return poolResponse(pool, normalized), nil
}

func (service *PoolGenerator) ClearPool(ctx context.Context, householdID string, weekStart string) error {
	monday, err := ParseWeekStart(weekStart)
	if err != nil {
		return err
	}
	if err := service.poolRepo.Clear(ctx, householdID, FormatDate(monday)); err != nil {
		return fmt.Errorf("clearing recipe pool: %w", err)
	}
	return nil
}

func poolResponse(pool models.RecipePool, weekStart string) PoolResponse {
	recipes := make([]PoolRecipe, 0, len(pool.Items))
	for _, item := range pool.Items {
		recipes = append(recipes, PoolRecipe{
			ID:        item.ID,
			RecipeID:  item.RecipeID,
			Title:     item.RecipeTitle,
			Tags:      item.RecipeTags,
			Score:     item.Score,
			SortOrder: item.SortOrder,
		})
	}
	poolID := pool.ID
	return PoolResponse{PoolID: &poolID, WeekStart: weekStart, Recipes: recipes}
}
