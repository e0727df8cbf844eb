package app

import (
	"context"
	"time"

	"github.com/seatgrid/reservation/internal/clock"
	"github.com/seatgrid/reservation/internal/domain"
)

type CatalogRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateUnits(ctx context.Context, units []domain.Unit) error
	ListUnitsByEvent(ctx context.Context, eventID string) ([]domain.Unit, error)
}

// CatalogService seeds the ledger: events and their units. Units enter the
// pool as available and are never deleted.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name     string
	StartsAt *time.Time
}

func (s *CatalogService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	now := s.clock.Now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	event := domain.Event{
		ID:        newID(),
		Name:      in.Name,
		StartsAt:  startsAt,
		CreatedAt: now,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

type AddUnitsInput struct {
	EventID    string
	Quantity   int
	PriceCents int64
}

// AddUnits creates Quantity available units priced at PriceCents under the
// event. Price is fixed at creation.
func (s *CatalogService) AddUnits(ctx context.Context, in AddUnitsInput) ([]domain.Unit, error) {
	if in.EventID == "" {
		return nil, domain.ErrInvalidID
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.PriceCents <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	if _, err := s.repo.GetEvent(ctx, in.EventID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	units := make([]domain.Unit, 0, in.Quantity)
	for i := 0; i < in.Quantity; i++ {
		units = append(units, domain.Unit{
			ID:         newID(),
			EventID:    in.EventID,
			Status:     domain.UnitStatusAvailable,
			Version:    1,
			PriceCents: in.PriceCents,
			CreatedAt:  now,
		})
	}
	if err := s.repo.CreateUnits(ctx, units); err != nil {
		return nil, err
	}
	return units, nil
}

func (s *CatalogService) ListUnits(ctx context.Context, eventID string) ([]domain.Unit, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListUnitsByEvent(ctx, eventID)
}
