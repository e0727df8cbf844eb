package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seatgrid/reservation/internal/app"
	"github.com/seatgrid/reservation/internal/domain"
)

type fakeCatalogService struct {
	events     []domain.Event
	createErr  error
	addErr     error
	lastAddIn  app.AddUnitsInput
	lastCreate app.CreateEventInput
}

func (f *fakeCatalogService) CreateEvent(_ context.Context, in app.CreateEventInput) (domain.Event, error) {
	f.lastCreate = in
	if f.createErr != nil {
		return domain.Event{}, f.createErr
	}
	e := domain.Event{ID: "event-1", Name: in.Name, StartsAt: time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)}
	if in.StartsAt != nil {
		e.StartsAt = *in.StartsAt
	}
	return e, nil
}

func (f *fakeCatalogService) ListEvents(context.Context) ([]domain.Event, error) {
	return f.events, nil
}

func (f *fakeCatalogService) AddUnits(_ context.Context, in app.AddUnitsInput) ([]domain.Unit, error) {
	f.lastAddIn = in
	if f.addErr != nil {
		return nil, f.addErr
	}
	units := make([]domain.Unit, in.Quantity)
	for i := range units {
		units[i] = domain.Unit{
			ID:         "unit-" + string(rune('a'+i)),
			EventID:    in.EventID,
			Status:     domain.UnitStatusAvailable,
			Version:    1,
			PriceCents: in.PriceCents,
		}
	}
	return units, nil
}

func (f *fakeCatalogService) ListUnits(_ context.Context, eventID string) ([]domain.Unit, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	return []domain.Unit{{ID: "unit-a", EventID: eventID, Status: domain.UnitStatusAvailable, Version: 1, PriceCents: 2500}}, nil
}

func TestHandleAdminEvents(t *testing.T) {
	t.Run("creates event with start time", func(t *testing.T) {
		svc := &fakeCatalogService{}
		req := httptest.NewRequest(http.MethodPost, "/admin/events",
			strings.NewReader(`{"name":"Concert","starts_at":"2026-06-01T20:00:00Z"}`))
		rec := httptest.NewRecorder()

		HandleAdminEvents(svc)(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.lastCreate.Name != "Concert" || svc.lastCreate.StartsAt == nil {
			t.Fatalf("service got %+v", svc.lastCreate)
		}
	})

	t.Run("rejects invalid starts_at", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/events",
			strings.NewReader(`{"name":"Concert","starts_at":"tomorrow"}`))
		rec := httptest.NewRecorder()

		HandleAdminEvents(&fakeCatalogService{})(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps missing name to 400", func(t *testing.T) {
		svc := &fakeCatalogService{createErr: domain.ErrEventNameRequired}
		req := httptest.NewRequest(http.MethodPost, "/admin/events", strings.NewReader(`{"name":""}`))
		rec := httptest.NewRecorder()

		HandleAdminEvents(svc)(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("lists events", func(t *testing.T) {
		svc := &fakeCatalogService{events: []domain.Event{{ID: "event-1", Name: "Concert"}}}
		req := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
		rec := httptest.NewRecorder()

		HandleAdminEvents(svc)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp []eventResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 1 || resp[0].Name != "Concert" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})
}

func TestHandleAdminUnits(t *testing.T) {
	t.Run("adds units", func(t *testing.T) {
		svc := &fakeCatalogService{}
		req := httptest.NewRequest(http.MethodPost, "/admin/events/event-1/units",
			strings.NewReader(`{"quantity":3,"price_cents":2500}`))
		rec := httptest.NewRecorder()

		HandleAdminUnits(svc)(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.lastAddIn.EventID != "event-1" || svc.lastAddIn.Quantity != 3 || svc.lastAddIn.PriceCents != 2500 {
			t.Fatalf("service got %+v", svc.lastAddIn)
		}
		var resp []unitResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 3 || resp[0].Status != "available" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("maps bad quantity to 400", func(t *testing.T) {
		svc := &fakeCatalogService{addErr: domain.ErrInvalidQuantity}
		req := httptest.NewRequest(http.MethodPost, "/admin/events/event-1/units",
			strings.NewReader(`{"quantity":0,"price_cents":2500}`))
		rec := httptest.NewRecorder()

		HandleAdminUnits(svc)(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps missing event to 404", func(t *testing.T) {
		svc := &fakeCatalogService{addErr: domain.ErrEventNotFound}
		req := httptest.NewRequest(http.MethodGet, "/admin/events/event-1/units", nil)
		rec := httptest.NewRecorder()

		HandleAdminUnits(svc)(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("rejects bad path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/events/event-1/zones", nil)
		rec := httptest.NewRecorder()

		HandleAdminUnits(&fakeCatalogService{})(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
