package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatgrid/reservation/internal/clock"
	"github.com/seatgrid/reservation/internal/domain"
	"github.com/seatgrid/reservation/internal/gateway"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUnit(ctx context.Context, unitID string) (domain.Unit, error)
	UpdateUnitStatus(ctx context.Context, unitID string, version int64, status domain.UnitStatus) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	DeleteHold(ctx context.Context, holdID string) error
	CreatePaymentAttempt(ctx context.Context, attempt domain.PaymentAttempt) error
	GetPaymentAttempt(ctx context.Context, attemptID string) (domain.PaymentAttempt, error)
	// SetAttemptTransaction records the gateway transaction id on a pending attempt.
	SetAttemptTransaction(ctx context.Context, attemptID, externalTxID string) error
	// SettleAttempt writes the terminal outcome, guarded so only the first
	// settlement of a pending attempt wins; later calls get
	// domain.ErrAttemptSettled.
	SettleAttempt(ctx context.Context, attempt domain.PaymentAttempt) error
}

// PaymentService drives a hold through the gateway to a sold unit or a
// recorded failure.
type PaymentService struct {
	repo             PaymentRepository
	clock            clock.Clock
	events           EventPublisher
	gw               gateway.Gateway
	log              zerolog.Logger
	releaseOnFailure bool
}

func NewPaymentService(repo PaymentRepository, clk clock.Clock, events EventPublisher, gw gateway.Gateway, log zerolog.Logger, opts ...PaymentServiceOption) *PaymentService {
	svc := &PaymentService{
		repo:   repo,
		clock:  clk,
		events: events,
		gw:     gw,
		log:    log,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PaymentServiceOption func(*PaymentService)

// WithReleaseOnFailure makes a failed payment release the hold immediately
// instead of leaving it to expire.
func WithReleaseOnFailure(release bool) PaymentServiceOption {
	return func(s *PaymentService) {
		s.releaseOnFailure = release
	}
}

type SubmitPaymentInput struct {
	HoldID   string
	HolderID string
}

// SubmitPayment runs the synchronous checkout: it records a pending attempt,
// blocks on the gateway for its processing delay, and applies the terminal
// outcome before returning.
func (s *PaymentService) SubmitPayment(ctx context.Context, in SubmitPaymentInput) (domain.PaymentAttempt, error) {
	attempt, err := s.openAttempt(ctx, in)
	if err != nil {
		return domain.PaymentAttempt{}, err
	}

	resp, err := s.gw.Submit(ctx, attempt.ID, attempt.AmountCents)
	if err != nil {
		// The attempt stays pending; a later ResolvePayment or expiry
		// handles it.
		return attempt, fmt.Errorf("gateway submit: %w", err)
	}
	if err := s.recordTransaction(ctx, &attempt, resp.TransactionID); err != nil {
		return attempt, err
	}

	return s.CompletePayment(ctx, CompletePaymentInput{
		AttemptID:     attempt.ID,
		Outcome:       outcomeFromStatus(resp.Status),
		FailureReason: resp.FailureReason,
	})
}

// SubmitPaymentAsync hands the payment to the gateway and returns a pending
// attempt immediately; callers poll ResolvePayment until it settles.
func (s *PaymentService) SubmitPaymentAsync(ctx context.Context, in SubmitPaymentInput) (domain.PaymentAttempt, error) {
	attempt, err := s.openAttempt(ctx, in)
	if err != nil {
		return domain.PaymentAttempt{}, err
	}

	resp, err := s.gw.SubmitAsync(ctx, attempt.ID, attempt.AmountCents)
	if err != nil {
		return attempt, fmt.Errorf("gateway submit: %w", err)
	}
	if err := s.recordTransaction(ctx, &attempt, resp.TransactionID); err != nil {
		return attempt, err
	}
	return attempt, nil
}

// ResolvePayment polls the gateway for a pending attempt and applies the
// outcome once the gateway reports a terminal state. It is safe to call any
// number of times.
func (s *PaymentService) ResolvePayment(ctx context.Context, attemptID string) (domain.PaymentAttempt, error) {
	attempt, err := s.repo.GetPaymentAttempt(ctx, attemptID)
	if err != nil {
		return domain.PaymentAttempt{}, err
	}
	if attempt.Outcome.Terminal() || attempt.ExternalTxID == "" {
		return attempt, nil
	}

	resp, err := s.gw.CheckStatus(ctx, attempt.ExternalTxID)
	if err != nil {
		return attempt, err
	}
	switch resp.Status {
	case gateway.StatusSuccess, gateway.StatusFailed:
		return s.CompletePayment(ctx, CompletePaymentInput{
			AttemptID:     attempt.ID,
			Outcome:       outcomeFromStatus(resp.Status),
			FailureReason: resp.FailureReason,
		})
	default:
		return attempt, nil
	}
}

type CompletePaymentInput struct {
	AttemptID     string
	Outcome       domain.PaymentOutcome
	FailureReason string
}

// CompletePayment applies a gateway outcome to the ledger. It is idempotent:
// duplicate deliveries of the same terminal outcome find the attempt already
// settled and return it unchanged, with no second transition and no second
// event. Exactly one terminal outcome ever lands per attempt, even under
// concurrent delivery; the settlement write is the arbiter.
func (s *PaymentService) CompletePayment(ctx context.Context, in CompletePaymentInput) (domain.PaymentAttempt, error) {
	if !in.Outcome.Terminal() {
		return domain.PaymentAttempt{}, fmt.Errorf("complete payment: outcome %q is not terminal", in.Outcome)
	}

	now := s.clock.Now()
	var (
		result  domain.PaymentAttempt
		changes []domain.StatusChanged
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		attempt, err := s.repo.GetPaymentAttempt(txCtx, in.AttemptID)
		if err != nil {
			return err
		}
		if attempt.Outcome.Terminal() {
			result = attempt
			return nil
		}

		attempt.UpdatedAt = now
		changes = changes[:0]

		var plan settlementPlan
		switch in.Outcome {
		case domain.PaymentOutcomeSuccess:
			plan, err = s.planSuccess(txCtx, &attempt)
		case domain.PaymentOutcomeFailed:
			plan, err = s.planFailure(txCtx, &attempt, in.FailureReason)
		}
		if err != nil {
			return err
		}

		// Claim the attempt before touching the unit: whoever settles the
		// row is the one delivery that gets to mutate the ledger and emit.
		if err := s.repo.SettleAttempt(txCtx, attempt); err != nil {
			if errors.Is(err, domain.ErrAttemptSettled) {
				settled, rerr := s.repo.GetPaymentAttempt(txCtx, in.AttemptID)
				if rerr != nil {
					return rerr
				}
				result = settled
				return nil
			}
			return err
		}

		if err := s.applyPlan(txCtx, attempt, plan, &changes, now); err != nil {
			return err
		}
		result = attempt
		return nil
	})
	if err != nil {
		// A version conflict here means another deliverer moved the unit
		// while we raced it; if that delivery settled the attempt, its
		// outcome stands and this call is a duplicate.
		if errors.Is(err, domain.ErrVersionConflict) {
			settled, rerr := s.repo.GetPaymentAttempt(ctx, in.AttemptID)
			if rerr == nil && settled.Outcome.Terminal() {
				return settled, nil
			}
		}
		return domain.PaymentAttempt{}, err
	}

	for _, change := range changes {
		s.events.Publish(change)
	}
	return result, nil
}

// settlementPlan is the ledger work a settlement implies, computed from
// reads before the attempt is claimed and applied only by the claimant.
type settlementPlan struct {
	sellUnit     *domain.Unit
	releaseUnit  *domain.Unit
	deleteHoldID string
}

func (s *PaymentService) planSuccess(ctx context.Context, attempt *domain.PaymentAttempt) (settlementPlan, error) {
	var plan settlementPlan

	hold, err := s.repo.GetHold(ctx, attempt.HoldID)
	if err != nil {
		if !errors.Is(err, domain.ErrHoldNotFound) {
			return plan, err
		}
		// The attempt is still pending, so its own settlement never removed
		// this hold: the sweeper reclaimed it before the gateway settled.
		// The unit is back in the pool and may already be held or sold by
		// another buyer, so the sale cannot be honored.
		attempt.Outcome = domain.PaymentOutcomeFailed
		attempt.FailureReason = "hold released before settlement"
		s.log.Warn().
			Str("attempt_id", attempt.ID).
			Str("unit_id", attempt.UnitID).
			Msg("gateway success arrived after hold was reclaimed")
		return plan, nil
	}

	unit, err := s.repo.GetUnit(ctx, attempt.UnitID)
	if err != nil {
		return plan, err
	}
	if unit.Status.CanTransition(domain.UnitStatusSold) {
		plan.sellUnit = &unit
	}
	plan.deleteHoldID = hold.ID
	attempt.Outcome = domain.PaymentOutcomeSuccess
	attempt.FailureReason = ""
	return plan, nil
}

func (s *PaymentService) planFailure(ctx context.Context, attempt *domain.PaymentAttempt, reason string) (settlementPlan, error) {
	var plan settlementPlan

	if reason == "" {
		reason = "payment failed"
	}
	attempt.Outcome = domain.PaymentOutcomeFailed
	attempt.FailureReason = reason

	if !s.releaseOnFailure {
		// Default policy: the buyer keeps the hold and may retry until it
		// expires naturally.
		return plan, nil
	}

	hold, err := s.repo.GetHold(ctx, attempt.HoldID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotFound) {
			return plan, nil
		}
		return plan, err
	}
	unit, err := s.repo.GetUnit(ctx, hold.UnitID)
	if err != nil {
		return plan, err
	}
	if unit.Status.CanTransition(domain.UnitStatusAvailable) {
		plan.releaseUnit = &unit
	}
	plan.deleteHoldID = hold.ID
	return plan, nil
}

func (s *PaymentService) applyPlan(ctx context.Context, attempt domain.PaymentAttempt, plan settlementPlan, changes *[]domain.StatusChanged, now time.Time) error {
	if plan.sellUnit != nil {
		unit := *plan.sellUnit
		if err := s.repo.UpdateUnitStatus(ctx, unit.ID, unit.Version, domain.UnitStatusSold); err != nil {
			return err
		}
		*changes = append(*changes, domain.StatusChanged{
			UnitID:     unit.ID,
			EventID:    unit.EventID,
			OldStatus:  domain.UnitStatusHeld,
			NewStatus:  domain.UnitStatusSold,
			HolderID:   attempt.HolderID,
			Reason:     domain.ReasonPurchaseCompleted,
			OccurredAt: now,
		})
	}
	if plan.releaseUnit != nil {
		unit := *plan.releaseUnit
		if err := s.repo.UpdateUnitStatus(ctx, unit.ID, unit.Version, domain.UnitStatusAvailable); err != nil {
			return err
		}
		*changes = append(*changes, domain.StatusChanged{
			UnitID:     unit.ID,
			EventID:    unit.EventID,
			OldStatus:  domain.UnitStatusHeld,
			NewStatus:  domain.UnitStatusAvailable,
			HolderID:   attempt.HolderID,
			Reason:     domain.ReasonHoldCancelled,
			OccurredAt: now,
		})
	}
	if plan.deleteHoldID != "" {
		if err := s.repo.DeleteHold(ctx, plan.deleteHoldID); err != nil && !errors.Is(err, domain.ErrHoldNotFound) {
			return err
		}
	}
	return nil
}

func (s *PaymentService) openAttempt(ctx context.Context, in SubmitPaymentInput) (domain.PaymentAttempt, error) {
	if in.HoldID == "" {
		return domain.PaymentAttempt{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var attempt domain.PaymentAttempt

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if in.HolderID != "" && hold.HolderID != in.HolderID {
			return domain.ErrNotHolder
		}
		if hold.Expired(now) {
			return domain.ErrHoldExpired
		}

		unit, err := s.repo.GetUnit(txCtx, hold.UnitID)
		if err != nil {
			return err
		}
		if unit.Status != domain.UnitStatusHeld {
			return domain.ErrUnitNotAvailable
		}

		attempt = domain.PaymentAttempt{
			ID:          newID(),
			HoldID:      hold.ID,
			UnitID:      unit.ID,
			EventID:     unit.EventID,
			HolderID:    hold.HolderID,
			Outcome:     domain.PaymentOutcomePending,
			AmountCents: unit.PriceCents,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.CreatePaymentAttempt(txCtx, attempt)
	})
	if err != nil {
		return domain.PaymentAttempt{}, err
	}
	return attempt, nil
}

func (s *PaymentService) recordTransaction(ctx context.Context, attempt *domain.PaymentAttempt, externalTxID string) error {
	if err := s.repo.SetAttemptTransaction(ctx, attempt.ID, externalTxID); err != nil {
		return err
	}
	attempt.ExternalTxID = externalTxID
	return nil
}

func outcomeFromStatus(status gateway.Status) domain.PaymentOutcome {
	if status == gateway.StatusSuccess {
		return domain.PaymentOutcomeSuccess
	}
	return domain.PaymentOutcomeFailed
}
