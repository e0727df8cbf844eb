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

// HoldService is the minimal interface needed for the hold endpoints.
type HoldService interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
	CancelHold(ctx context.Context, in app.CancelHoldInput) error
}

// HandleCreateHold returns an HTTP handler for claiming a unit.
func HandleCreateHold(svc HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			UnitID:   req.UnitID,
			HolderID: req.HolderID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := holdResponse{
			ID:        hold.ID,
			UnitID:    hold.UnitID,
			EventID:   hold.EventID,
			HolderID:  hold.HolderID,
			ExpiresAt: hold.ExpiresAt,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleCancelHold returns an HTTP handler for releasing a hold.
// Route shape: POST /holds/{id}/cancel.
func HandleCancelHold(svc HoldService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		holdID, ok := parseCancelHoldPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req cancelHoldRequest
		if r.Body != nil && r.ContentLength != 0 {
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
		}

		err := svc.CancelHold(r.Context(), app.CancelHoldInput{
			HoldID:   holdID,
			HolderID: req.HolderID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseCancelHoldPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "holds" || parts[2] != "cancel" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createHoldRequest struct {
	UnitID   string `json:"unit_id"`
	HolderID string `json:"holder_id"`
}

type cancelHoldRequest struct {
	HolderID string `json:"holder_id"`
}

type holdResponse struct {
	ID        string    `json:"id"`
	UnitID    string    `json:"unit_id"`
	EventID   string    `json:"event_id"`
	HolderID  string    `json:"holder_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
