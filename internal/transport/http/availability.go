package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/seatgrid/reservation/internal/cache"
)

// AvailabilityService is the minimal interface needed for availability reads.
type AvailabilityService interface {
	Availability(ctx context.Context, eventID string) (cache.Availability, error)
}

// HandleAvailability returns an HTTP handler for per-event unit counts.
// Route shape: GET /events/{id}/availability.
func HandleAvailability(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		eventID, ok := parseAvailabilityPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		view, err := svc.Availability(r.Context(), eventID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := availabilityResponse{
			EventID:   view.EventID,
			Available: view.Available,
			Held:      view.Held,
			Sold:      view.Sold,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseAvailabilityPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "events" || parts[2] != "availability" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type availabilityResponse struct {
	EventID   string `json:"event_id"`
	Available int    `json:"available"`
	Held      int    `json:"held"`
	Sold      int    `json:"sold"`
}
