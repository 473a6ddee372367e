package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	ical "github.com/arran4/golang-ical"
)

const calendarName = "Meal Plan"

// mealHours is the UTC start hour of each meal slot. Every meal lasts an hour.
var mealHours = map[models.MealSlot]int{
	models.MealSlotBreakfast: 8,
	models.MealSlotLunch:     12,
	models.MealSlotDinner:    19,
}

type CalendarService struct {
	householdRepo repository.HouseholdRepository
	weekPlanRepo  repository.WeekPlanRepository
}

func NewCalendarService(householdRepo repository.HouseholdRepository, weekPlanRepo repository.WeekPlanRepository) *CalendarService {
	return &CalendarService{
		householdRepo: householdRepo,
		weekPlanRepo:  weekPlanRepo,
	}
}

// ExportWeekPlanICS renders the household's plan for the week as an
// iCalendar document with one event per assignment.
func (service *CalendarService) ExportWeekPlanICS(ctx context.Context, householdID string, weekStart string) (string, error) {
	if err := requireHousehold(ctx, service.householdRepo, householdID); err != nil {
		return "", err
	}
	plan, err := resolveWeekPlan(ctx, service.weekPlanRepo, householdID, nil, &weekStart)
	if err != nil {
		return "", err
	}

	assignments, err := service.weekPlanRepo.FindAssignments(ctx, plan.ID)
	if err != nil {
		return "", fmt.Errorf("finding assignments: %w", err)
	}

	monday, err := time.Parse(dateLayout, plan.WeekStart)
	if err != nil {
		return "", fmt.Errorf("parsing stored week start %q: %w", plan.WeekStart, err)
	}
	return renderWeekPlan(plan, monday, assignments), nil
}

func renderWeekPlan(plan models.WeekPlan, monday time.Time, assignments []models.WeekPlanRecipe) string {
	calendar := ical.NewCalendar()
	calendar.SetMethod(ical.MethodPublish)
	calendar.SetProductId("-//meal-plan-app//Meal Plan//EN")
	calendar.SetXWRCalName(calendarName)

	for _, assignment := range assignments {
		start := monday.AddDate(0, 0, assignment.DayIndex).Add(time.Duration(mealHours[assignment.MealSlot]) * time.Hour)

		event := calendar.AddEvent(fmt.Sprintf("%s@meal-plan-app", assignment.ID))
		event.SetDtStampTime(plan.UpdatedAt.UTC())
		event.SetStartAt(start)
		event.SetEndAt(start.Add(time.Hour))
		event.SetSummary(fmt.Sprintf("[%s] %s", mealLabel(assignment.MealSlot), assignment.RecipeTitle))
		if len(assignment.RecipeTags) > 0 {
			event.SetDescription(strings.Join(assignment.RecipeTags, ", "))
		}
	}
	return calendar.Serialize()
}

func mealLabel(slot models.MealSlot) string {
	name := string(slot)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
