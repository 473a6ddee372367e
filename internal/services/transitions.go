package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/shopspring/decimal"
)

// Optional distinguishes a JSON field that was sent, possibly as null, from
// one that was left out.
type Optional[T any] struct {
	Set   bool
	Value T
}

func (optional *Optional[T]) UnmarshalJSON(data []byte) error {
	optional.Set = true
	if bytes.Equal(data, []byte("null")) {
		var zero T
		optional.Value = zero
		return nil
	}
	return json.Unmarshal(data, &optional.Value)
}

type TransitionItemRequest struct {
	HouseholdID  string              `json:"householdId"`
	IngredientID *string             `json:"ingredientId"`
	Label        string              `json:"label"`
	Quantity     decimal.NullDecimal `json:"quantity"`
	UnitID       *string             `json:"unitId"`
	AisleID      *string             `json:"aisleId"`
}

// TransitionItemUpdate changes only the fields that were sent. A missing
// status toggles the item between TODO and DONE.
type TransitionItemUpdate struct {
	Status       *models.ShoppingItemStatus    `json:"status"`
	Label        *string                       `json:"label"`
	Quantity     Optional[decimal.NullDecimal] `json:"quantity"`
	UnitID       Optional[*string]             `json:"unitId"`
	AisleID      Optional[*string]             `json:"aisleId"`
	IngredientID Optional[*string]             `json:"ingredientId"`
}

type TransitionService struct {
	householdRepo  repository.HouseholdRepository
	transitionRepo repository.TransitionItemRepository
}

func NewTransitionService(householdRepo repository.HouseholdRepository, transitionRepo repository.TransitionItemRepository) *TransitionService {
	return &TransitionService{
		householdRepo:  householdRepo,
		transitionRepo: transitionRepo,
	}
}

func (service *TransitionService) List(ctx context.Context, householdID string, includeDone bool) ([]models.TransitionItem, error) {
	items, err := service.transitionRepo.FindByHousehold(ctx, householdID, includeDone)
	if err != nil {
		return nil, fmt.Errorf("listing transition items: %w", err)
	}
	if items == nil {
		items = []models.TransitionItem{}
	}
	return items, nil
}

func (service *TransitionService) Create(ctx context.Context, request TransitionItemRequest) (models.TransitionItem, error) {
	label := strings.TrimSpace(request.Label)
	if label == "" {
		return models.TransitionItem{}, badRequest("label is required")
	}
	if err := requireHousehold(ctx, service.householdRepo, request.HouseholdID); err != nil {
		return models.TransitionItem{}, err
	}

	item, err := service.transitionRepo.Create(ctx, models.TransitionItem{
		HouseholdID:  request.HouseholdID,
		IngredientID: request.IngredientID,
		Label:        label,
		Quantity:     request.Quantity,
		UnitID:       request.UnitID,
		AisleID:      request.AisleID,
		Status:       models.ShoppingItemStatusTodo,
	})
	if err != nil {
		return models.TransitionItem{}, fmt.Errorf("creating transition item: %w", err)
	}
	return item, nil
}

func (service *TransitionService) Update(ctx context.Context, householdID string, itemID string, update TransitionItemUpdate) (models.TransitionItem, error) {
	item, err := service.findOwnedItem(ctx, householdID, itemID)
	if err != nil {
		return models.TransitionItem{}, err
	}

	item.Status = toggledStatus(item.Status)
	if update.Status != nil {
		if !update.Status.Valid() {
			return models.TransitionItem{}, badRequest("status must be TODO or DONE")
		}
		item.Status = *update.Status
	}
	if update.Label != nil {
		label := strings.TrimSpace(*update.Label)
		if label == "" {
			return models.TransitionItem{}, badRequest("label must not be empty")
		}
		item.Label = label
	}
	if update.Quantity.Set {
		item.Quantity = update.Quantity.Value
	}
	if update.UnitID.Set {
		item.UnitID = update.UnitID.Value
	}
	if update.AisleID.Set {
		item.AisleID = update.AisleID.Value
	}
	if update.IngredientID.Set {
		item.IngredientID = update.IngredientID.Value
	}

	updated, err := service.transitionRepo.Update(ctx, item)
	if err != nil {
		return models.TransitionItem{}, fmt.Errorf("updating transition item: %w", err)
	}
	return updated, nil
}

func (service *TransitionService) Delete(ctx context.Context, householdID string, itemID string) error {
	item, err := service.findOwnedItem(ctx, householdID, itemID)
	if err != nil {
		return err
	}
	if err := service.transitionRepo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("deleting transition item: %w", err)
	}
	return nil
}

// Apply carries every TODO transition item onto the shopping list.
func (service *TransitionService) Apply(ctx context.Context, householdID string) (repository.TransitionApplyResult, error) {
	if err := requireHousehold(ctx, service.householdRepo, householdID); err != nil {
		return repository.TransitionApplyResult{}, err
	}

	result, err := service.transitionRepo.Apply(ctx, householdID)
	if err != nil {
		return repository.TransitionApplyResult{}, fmt.Errorf("applying transition items: %w", err)
	}
	if result.Applied > 0 {
		slog.Info("applied transition items",
			"household_id", householdID,
			"applied", result.Applied,
			"merged", result.Merged,
			"created", result.Created,
		)
	}
	return result, nil
}

func (service *TransitionService) findOwnedItem(ctx context.Context, householdID string, itemID string) (models.TransitionItem, error) {
	item, err := service.transitionRepo.FindByID(ctx, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransitionItem{}, notFound("TransitionItem not found: %s", itemID)
	}
	if err != nil {
		return models.TransitionItem{}, fmt.Errorf("finding transition item: %w", err)
	}
	if item.HouseholdID != householdID {
		return models.TransitionItem{}, forbidden("TransitionItem does not belong to this household")
	}
	return item, nil
}
