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

// PaymentService is the minimal interface needed for the payment endpoints.
type PaymentService interface {
	SubmitPayment(ctx context.Context, in app.SubmitPaymentInput) (domain.PaymentAttempt, error)
	SubmitPaymentAsync(ctx context.Context, in app.SubmitPaymentInput) (domain.PaymentAttempt, error)
	ResolvePayment(ctx context.Context, attemptID string) (domain.PaymentAttempt, error)
}

// HandleSubmitPayment returns an HTTP handler for starting checkout on a
// hold. With "async": true the attempt comes back pending and the caller
// polls GET /payments/{id} until it settles.
func HandleSubmitPayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req submitPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in := app.SubmitPaymentInput{
			HoldID:   req.HoldID,
			HolderID: req.HolderID,
		}

		var (
			attempt domain.PaymentAttempt
			err     error
		)
		if req.Async {
			attempt, err = svc.SubmitPaymentAsync(r.Context(), in)
		} else {
			attempt, err = svc.SubmitPayment(r.Context(), in)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if req.Async {
			w.WriteHeader(http.StatusAccepted)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(toAttemptResponse(attempt))
	}
}

// HandleResolvePayment returns an HTTP handler for polling an attempt.
// Route shape: GET /payments/{id}.
func HandleResolvePayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		attemptID, ok := parsePaymentPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		attempt, err := svc.ResolvePayment(r.Context(), attemptID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toAttemptResponse(attempt))
	}
}

func parsePaymentPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		return "", false
	}
	if parts[0] != "payments" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type submitPaymentRequest struct {
	HoldID   string `json:"hold_id"`
	HolderID string `json:"holder_id"`
	Async    bool   `json:"async,omitempty"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	HoldID        string    `json:"hold_id"`
	UnitID        string    `json:"unit_id"`
	EventID       string    `json:"event_id"`
	Outcome       string    `json:"outcome"`
	FailureReason string    `json:"failure_reason,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toAttemptResponse(a domain.PaymentAttempt) attemptResponse {
	return attemptResponse{
		ID:            a.ID,
		HoldID:        a.HoldID,
		UnitID:        a.UnitID,
		EventID:       a.EventID,
		Outcome:       string(a.Outcome),
		FailureReason: a.FailureReason,
		AmountCents:   a.AmountCents,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
