package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/interfaces"
)

type AvailabilityHandler struct {
	service interfaces.AvailabilityService
	logger  logger.Logger
}

func NewAvailabilityHandler(service interfaces.AvailabilityService, logger logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		logger:  logger,
	}
}

type AvailabilityResponse struct {
	Dates          []string `json:"dates"`
	FirstAvailable *string  `json:"first_available"`
	SelectedDate   *string  `json:"selected_date"`
	TimeSlots      []string `json:"time_slots"`
}

// HandleStores routes GET /stores/{id}/availability. The cart's category ids
// arrive as a comma-separated "categories" query parameter; an optional
// "date" selects the day whose time slots are returned.
func (h *AvailabilityHandler) HandleStores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "availability" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	storeID, err := strconv.Atoi(parts[1])
	if err != nil {
		http.Error(w, "Invalid store id", http.StatusBadRequest)
		return
	}

	categoryIDs, err := parseCategoryIDs(r.URL.Query().Get("categories"))
	if err != nil {
		http.Error(w, "Invalid categories parameter", http.StatusBadRequest)
		return
	}

	var date *string
	if raw := r.URL.Query().Get("date"); raw != "" {
		date = &raw
	}

	result, err := h.service.GetAvailability(r.Context(), storeID, categoryIDs, date)
	if err != nil {
		h.logger.Error("availability_failed", "Failed to compute pickup availability", "", map[string]interface{}{
			"store_id": storeID,
		}, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// "No availability" is a normal response, rendered with explicit empty
	// fields rather than an error status.
	resp := AvailabilityResponse{
		Dates:     make([]string, len(result.Dates)),
		TimeSlots: result.TimeSlots,
	}
	for i, d := range result.Dates {
		resp.Dates[i] = string(d)
	}
	if result.FirstAvailable != nil {
		s := string(*result.FirstAvailable)
		resp.FirstAvailable = &s
	}
	if result.SelectedDate != nil {
		s := string(*result.SelectedDate)
		resp.SelectedDate = &s
	}
	if resp.TimeSlots == nil {
		resp.TimeSlots = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func parseCategoryIDs(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
