package services

import "time"

const dateLayout = "2006-01-02"

// ParseWeekStart parses a YYYY-MM-DD date and returns the Monday of its week.
func ParseWeekStart(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil || len(value) != len(dateLayout) {
		return time.Time{}, badRequest("weekStart must be YYYY-MM-DD format")
	}
	return NormalizeToMonday(date), nil
}

// NormalizeToMonday returns midnight UTC of the Monday on or before date.
func NormalizeToMonday(date time.Time) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())
	if weekday == 0 {
		return day.AddDate(0, 0, -6)
	}
	return day.AddDate(0, 0, 1-weekday)
}

func FormatDate(date time.Time) string {
	return date.UTC().Format(dateLayout)
}
