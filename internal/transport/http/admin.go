package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/seatgrid/reservation/internal/app"
	"github.com/seatgrid/reservation/internal/domain"
)

// CatalogService is the minimal interface needed for the admin endpoints.
type CatalogService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	AddUnits(ctx context.Context, in app.AddUnitsInput) ([]domain.Unit, error)
	ListUnits(ctx context.Context, eventID string) ([]domain.Unit, error)
}

// HandleAdminEvents returns an HTTP handler for event creation/listing.
func HandleAdminEvents(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, toEventResponse(event))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var startsAt *time.Time
			if req.StartsAt != "" {
				parsed, err := time.Parse(time.RFC3339, req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid starts_at format")
					return
				}
				startsAt = &parsed
			}

			event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
				Name:     req.Name,
				StartsAt: startsAt,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toEventResponse(event))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminUnits returns an HTTP handler for adding and listing units
// under an event. Route shape: /admin/events/{id}/units.
func HandleAdminUnits(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := parseAdminUnitsPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			units, err := svc.ListUnits(r.Context(), eventID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]unitResponse, 0, len(units))
			for _, unit := range units {
				resp = append(resp, toUnitResponse(unit))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req addUnitsRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			units, err := svc.AddUnits(r.Context(), app.AddUnitsInput{
				EventID:    eventID,
				Quantity:   req.Quantity,
				PriceCents: req.PriceCents,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			resp := make([]unitResponse, 0, len(units))
			for _, unit := range units {
				resp = append(resp, toUnitResponse(unit))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(resp)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseAdminUnitsPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	if parts[0] != "admin" || parts[1] != "events" || parts[3] != "units" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type createEventRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at,omitempty"`
}

type eventResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{ID: e.ID, Name: e.Name, StartsAt: e.StartsAt}
}

type addUnitsRequest struct {
	Quantity   int   `json:"quantity"`
	PriceCents int64 `json:"price_cents"`
}

type unitResponse struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	Status     string `json:"status"`
	Version    int64  `json:"version"`
	PriceCents int64  `json:"price_cents"`
}

func toUnitResponse(u domain.Unit) unitResponse {
	return unitResponse{
		ID:         u.ID,
		EventID:    u.EventID,
		Status:     string(u.Status),
		Version:    u.Version,
		PriceCents: u.PriceCents,
	}
}
