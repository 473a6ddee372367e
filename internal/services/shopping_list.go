package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/shopspring/decimal"
)

type ShoppingListQuery struct {
	HouseholdID     string
	WeekPlanID      *string
	IncludeArchived bool
	IncludeDone     bool
}

type ShoppingListMeta struct {
	Total    int `json:"total"`
	Done     int `json:"done"`
	Todo     int `json:"todo"`
	Archived int `json:"archived"`
}

type ShoppingListResponse struct {
	Items []models.ShoppingItem `json:"items"`
	Meta  ShoppingListMeta      `json:"meta"`
}

type ManualItemRequest struct {
	HouseholdID  string
	IngredientID *string
	Label        string
	Quantity     decimal.NullDecimal
	UnitID       *string
	AisleID      *string
}

type ShoppingListService struct {
	weekPlanRepo repository.WeekPlanRepository
	shoppingRepo repository.ShoppingItemRepository
}

func NewShoppingListService(weekPlanRepo repository.WeekPlanRepository, shoppingRepo repository.ShoppingItemRepository) *ShoppingListService {
	return &ShoppingListService{
		weekPlanRepo: weekPlanRepo,
		shoppingRepo: shoppingRepo,
	}
}

// GetShoppingList lists the household's items. Done and todo counts always
// cover every active item of the household, whatever the filters.
func (service *ShoppingListService) GetShoppingList(ctx context.Context, query ShoppingListQuery) (ShoppingListResponse, error) {
	items, err := service.shoppingRepo.FindAll(ctx, query.HouseholdID, repository.ShoppingItemFilter{
		WeekPlanID:      query.WeekPlanID,
		IncludeArchived: query.IncludeArchived,
		IncludeDone:     query.IncludeDone,
	})
	if err != nil {
		return ShoppingListResponse{}, fmt.Errorf("finding shopping items: %w", err)
	}
	if items == nil {
		items = []models.ShoppingItem{}
	}

	counts, err := service.shoppingRepo.CountActiveByStatus(ctx, query.HouseholdID)
	if err != nil {
		return ShoppingListResponse{}, fmt.Errorf("counting shopping items: %w", err)
	}

	archived := 0
	for _, item := range items {
		if item.ArchivedAt != nil {
			archived++
		}
	}

	return ShoppingListResponse{
		Items: items,
		Meta: ShoppingListMeta{
			Total:    len(items),
			Done:     counts[models.ShoppingItemStatusDone],
			Todo:     counts[models.ShoppingItemStatusTodo],
			Archived: archived,
		},
	}, nil
}

// SetItemStatus sets the item's status, or toggles it when status is nil.
func (service *ShoppingListService) SetItemStatus(ctx context.Context, householdID string, itemID string, status *models.ShoppingItemStatus) (models.ShoppingItem, error) {
	item, err := service.findOwnedItem(ctx, householdID, itemID)
	if err != nil {
		return models.ShoppingItem{}, err
	}

	next := toggledStatus(item.Status)
	if status != nil {
		if !status.Valid() {
			return models.ShoppingItem{}, badRequest("status must be TODO or DONE")
		}
		next = *status
	}

	if err := service.shoppingRepo.UpdateStatus(ctx, item.ID, next); err != nil {
		return models.ShoppingItem{}, fmt.Errorf("updating shopping item: %w", err)
	}
	return service.shoppingRepo.FindByID(ctx, item.ID)
}

func (service *ShoppingListService) CreateManualItem(ctx context.Context, request ManualItemRequest) (models.ShoppingItem, error) {
	label := strings.TrimSpace(request.Label)
	if label == "" {
		return models.ShoppingItem{}, badRequest("label is required")
	}
	if request.Quantity.Valid && !request.Quantity.Decimal.IsPositive() {
		return models.ShoppingItem{}, badRequest("quantity must be positive")
	}

	created, err := service.shoppingRepo.Create(ctx, models.ShoppingItem{
		HouseholdID:  request.HouseholdID,
		IngredientID: request.IngredientID,
		Label:        label,
		Quantity:     request.Quantity,
		UnitID:       request.UnitID,
		AisleID:      request.AisleID,
		Status:       models.ShoppingItemStatusTodo,
		Source:       models.ShoppingItemSourceManual,
	})
	if err != nil {
		return models.ShoppingItem{}, fmt.Errorf("creating manual item: %w", err)
	}
	return service.shoppingRepo.FindByID(ctx, created.ID)
}

// ArchiveDone archives the DONE items of one week plan.
func (service *ShoppingListService) ArchiveDone(ctx context.Context, householdID string, weekPlanID string) (int64, error) {
	if weekPlanID == "" {
		return 0, badRequest("weekPlanId is required")
	}
	plan, err := service.weekPlanRepo.FindByID(ctx, weekPlanID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("Week plan not found: %s", weekPlanID)
	}
	if err != nil {
		return 0, fmt.Errorf("finding week plan: %w", err)
	}
	if plan.HouseholdID != householdID {
		return 0, forbidden("Week plan does not belong to this household")
	}

	archived, err := service.shoppingRepo.ArchiveDone(ctx, householdID, weekPlanID)
	if err != nil {
		return 0, fmt.Errorf("archiving done items: %w", err)
	}
	slog.Info("archived done shopping items", "household_id", householdID, "week_plan_id", weekPlanID, "count", archived)
	return archived, nil
}

// Purge hard-deletes every shopping item of the household.
func (service *ShoppingListService) Purge(ctx context.Context, householdID string) (int64, error) {
	deleted, err := service.shoppingRepo.Purge(ctx, householdID)
	if err != nil {
		return 0, fmt.Errorf("purging shopping items: %w", err)
	}
	slog.Info("purged shopping items", "household_id", householdID, "count", deleted)
	return deleted, nil
}

func (service *ShoppingListService) findOwnedItem(ctx context.Context, householdID string, itemID string) (models.ShoppingItem, error) {
	item, err := service.shoppingRepo.FindByID(ctx, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ShoppingItem{}, notFound("Shopping item not found: %s", itemID)
	}
	if err != nil {
		return models.ShoppingItem{}, fmt.Errorf("finding shopping item: %w", err)
	}
	if item.HouseholdID != householdID {
		return models.ShoppingItem{}, forbidden("Shopping item does not belong to this household")
	}
	return item, nil
}

func toggledStatus(status models.ShoppingItemStatus) models.ShoppingItemStatus {
	if status == models.ShoppingItemStatusDone {
		return models.ShoppingItemStatusTodo
	}
	return models.ShoppingItemStatusDone
}
