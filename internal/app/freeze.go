/**
 * @description
 * This file contains the freeze orchestrator. It runs the full workflow:
 * validate the request, compute the timeline and billing adjustments, commit
 * the freeze transactionally, reschedule displaced sessions and publish the
 * resulting events.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/therapyhub/freeze-service/internal/config"
	"github.com/therapyhub/freeze-service/internal/domain"
)

// FreezeStore defines the database operations the orchestrator needs.
type FreezeStore interface {
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	GetFreeze(ctx context.Context, id string) (*domain.FreezeRecord, error)
	ListFreezes(ctx context.Context, subscriptionID string) ([]domain.FreezeRecord, error)
	CommitFreeze(ctx context.Context, freeze *domain.FreezeRecord, newEndDate time.Time) (*domain.FreezeRecord, error)
	GetFreezeStatistics(ctx context.Context, subscriptionID string) (*domain.FreezeStatistics, error)
}

// FreezeService orchestrates the freeze workflow end to end.
type FreezeService struct {
	validator *ValidationService
	timeline  *TimelineManager
	engine    *ReschedulingEngine
	store     FreezeStore
	publisher EventPublisher
	cfg       config.Config
	logger    *slog.Logger
}

// NewFreezeService creates the orchestrator. The publisher may be nil when
// event publishing is disabled.
func NewFreezeService(
	validator *ValidationService,
	timeline *TimelineManager,
	engine *ReschedulingEngine,
	store FreezeStore,
	publisher EventPublisher,
	cfg config.Config,
	logger *slog.Logger,
) *FreezeService {
	return &FreezeService{
		validator: validator,
		timeline:  timeline,
		engine:    engine,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Validate runs a dry-run validation of a freeze request.
func (s *FreezeService) Validate(ctx context.Context, req *domain.FreezeRequest) *domain.ValidationResult {
	return s.validator.ValidateFreezeRequest(ctx, req)
}

// Preview computes the timeline and billing adjustments the freeze would
// produce, without committing anything. The end-date walk uses the cumulative
// frozen day count so the preview matches what a commit would persist.
func (s *FreezeService) Preview(ctx context.Context, req *domain.FreezeRequest) (*domain.TimelineAdjustment, *domain.BillingAdjustment, error) {
	days := req.FreezeDays
	if days == 0 {
		days = req.InclusiveDays()
	}

	sub, err := s.store.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}

	timeline, err := s.timeline.CalculateNewEndDate(ctx, req.SubscriptionID, sub.FreezeDaysUsed+days)
	if err != nil {
		return nil, nil, err
	}
	billing, err := s.timeline.AdjustBillingCycle(ctx, req.SubscriptionID, req.StartDate, req.EndDate, billingMode(req))
	if err != nil {
		return nil, nil, err
	}
	return timeline, billing, nil
}

// ApplyFreeze runs the full workflow. A failed validation returns an outcome
// carrying only the validation result and performs no mutation. Once the
// freeze is committed, a rescheduling failure no longer rolls it back: the
// freeze stands and the error is logged for manual follow-up.
func (s *FreezeService) ApplyFreeze(ctx context.Context, req *domain.FreezeRequest, actorID string) (*domain.FreezeOutcome, error) {
	if req.FreezeDays == 0 {
		req.FreezeDays = req.InclusiveDays()
	}

	outcome := &domain.FreezeOutcome{
		Validation: s.validator.ValidateFreezeRequest(ctx, req),
	}
	if !outcome.Validation.CanProceed {
		return outcome, nil
	}

	sub, err := s.store.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	timeline, err := s.timeline.CalculateNewEndDate(ctx, req.SubscriptionID, sub.FreezeDaysUsed+req.FreezeDays)
	if err != nil {
		return nil, err
	}
	billing, err := s.timeline.AdjustBillingCycle(ctx, req.SubscriptionID, req.StartDate, req.EndDate, billingMode(req))
	if err != nil {
		return nil, err
	}
	outcome.Timeline = timeline
	outcome.Billing = billing

	freeze := &domain.FreezeRecord{
		ID:             uuid.NewString(),
		SubscriptionID: req.SubscriptionID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		FreezeDays:     req.FreezeDays,
		Reason:         req.Reason,
		CreatedBy:      actorID,
	}
	committed, err := s.store.CommitFreeze(ctx, freeze, timeline.NewEndDate)
	if err != nil {
		return nil, err
	}
	outcome.Freeze = committed
	s.logger.Info("freeze committed",
		"freeze_id", committed.ID,
		"subscription_id", req.SubscriptionID,
		"freeze_days", req.FreezeDays,
		"new_end_date", timeline.NewEndDate)

	s.publish(ctx, domain.EventFreezeApplied, domain.FreezeAppliedEvent{
		FreezeID:       committed.ID,
		SubscriptionID: req.SubscriptionID,
		StudentID:      sub.StudentID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		FreezeDays:     req.FreezeDays,
		NewEndDate:     timeline.NewEndDate,
		CreditMinor:    billing.CreditMinor,
	})

	rescheduling, err := s.engine.RescheduleSessionsForFreeze(ctx, &domain.ReschedulingRequest{
		SubscriptionID: req.SubscriptionID,
		StudentID:      sub.StudentID,
		FreezeStart:    req.StartDate,
		FreezeEnd:      req.EndDate,
	})
	if err != nil {
		s.logger.Error("rescheduling failed after freeze commit",
			"freeze_id", committed.ID, "subscription_id", req.SubscriptionID, "error", err)
		return outcome, nil
	}
	outcome.Rescheduling = rescheduling

	if len(rescheduling.ConflictsDetected) > 0 {
		s.publish(ctx, domain.EventConflictsDetected, domain.ConflictsDetectedEvent{
			SubscriptionID: req.SubscriptionID,
			FreezeID:       committed.ID,
			Conflicts:      rescheduling.ConflictsDetected,
		})
	}

	return outcome, nil
}

// RetryRescheduling re-runs the engine for an already committed freeze, used
// when conflicts were resolved manually or availability changed.
func (s *FreezeService) RetryRescheduling(ctx context.Context, freezeID string) (*domain.ReschedulingResult, error) {
	freeze, err := s.store.GetFreeze(ctx, freezeID)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.GetSubscription(ctx, freeze.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return s.engine.RescheduleSessionsForFreeze(ctx, &domain.ReschedulingRequest{
		SubscriptionID: freeze.SubscriptionID,
		StudentID:      sub.StudentID,
		FreezeStart:    freeze.StartDate,
		FreezeEnd:      freeze.EndDate,
	})
}

// History returns the committed freezes of a subscription.
func (s *FreezeService) History(ctx context.Context, subscriptionID string) ([]domain.FreezeRecord, error) {
	return s.store.ListFreezes(ctx, subscriptionID)
}

// Statistics returns the backend-computed freeze aggregate for a subscription.
func (s *FreezeService) Statistics(ctx context.Context, subscriptionID string) (*domain.FreezeStatistics, error) {
	return s.store.GetFreezeStatistics(ctx, subscriptionID)
}

func (s *FreezeService) publish(ctx context.Context, routingKey string, body any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, body); err != nil {
		s.logger.Error("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

func billingMode(req *domain.FreezeRequest) string {
	if req.BillingMode == "" {
		return domain.BillingModeProportional
	}
	return req.BillingMode
}
