package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MikeDwight/meal-plan-app/internal/middleware"
	"github.com/MikeDwight/meal-plan-app/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeError answers with the status of the error's kind. Untyped errors are
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.StatusCode(err)
	if status == http.StatusInternalServerError {
		slog.Error("handling request", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": "Internal server error"})
		return
	}

	body := map[string]any{"error": err.Error()}
	var unfilled *services.UnfilledSlotsError
	if errors.As(err, &unfilled) {
		body["filledSlots"] = unfilled.Filled
		body["totalSlots"] = unfilled.Total
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// decodeJSON reads the request body into target. An empty body leaves
// target untouched.
func decodeJSON(r *http.Request, target any) error {
	err := json.NewDecoder(r.Body).Decode(target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

type householdRequest struct {
	HouseholdID string `json:"householdId"`
}

// scopedHousehold returns the household of the request's token. A householdId
// sent by the client must name the same household.
func scopedHousehold(w http.ResponseWriter, r *http.Request, given string) (string, bool) {
	householdID := middleware.GetHouseholdID(r.Context())
	if given != "" && given != householdID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "householdId does not match the token's household"})
		return "", false
	}
	return householdID, true
}

func queryBool(r *http.Request, key string, defaultValue bool) (bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", key)
	}
	return parsed, nil
}
