/**
 * @description
 * Scheduled job implementations for the freeze-service: reactivating
 * subscriptions whose freeze window has ended and reminding staff about
 * sessions still stuck in conflict.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/therapyhub/freeze-service/internal/config"
	"github.com/therapyhub/freeze-service/internal/domain"
)

// JobsRepository defines database operations needed by the jobs.
type JobsRepository interface {
	GetExpiredFrozenSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	ReactivateSubscription(ctx context.Context, subscriptionID string) error
	GetStaleConflictSessions(ctx context.Context, olderThan time.Time) ([]domain.TherapySession, error)
}

// NotificationClient defines the interface for notifying staff about
// unresolved scheduling conflicts.
type NotificationClient interface {
	SendConflictDigest(ctx context.Context, sessions []domain.TherapySession) error
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo      JobsRepository
	notifier  NotificationClient
	publisher EventPublisher
	logger    *slog.Logger
	config    config.Config
}

// NewJobs creates a new Jobs runner. Both notifier and publisher may be nil.
func NewJobs(repo JobsRepository, notifier NotificationClient, publisher EventPublisher, logger *slog.Logger, cfg config.Config) *Jobs {
	return &Jobs{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		config:    cfg,
	}
}

// ProcessFreezeExpiry reactivates frozen subscriptions whose latest freeze
// window has passed.
func (j *Jobs) ProcessFreezeExpiry() {
	j.logger.Info("starting freeze expiry job")
	ctx := context.Background()

	subs, err := j.repo.GetExpiredFrozenSubscriptions(ctx)
	if err != nil {
		j.logger.Error("failed to query expired frozen subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		j.logger.Info("no expired freezes to process")
		return
	}

	j.logger.Info("found expired freezes", "count", len(subs))
	for _, sub := range subs {
		if err := j.repo.ReactivateSubscription(ctx, sub.ID); err != nil {
			j.logger.Error("failed to reactivate subscription", "subscription_id", sub.ID, "error", err)
			continue
		}
		j.logger.Info("reactivated subscription", "subscription_id", sub.ID)

		if j.publisher != nil {
			event := domain.FreezeReactivatedEvent{
				SubscriptionID: sub.ID,
				ReactivatedAt:  time.Now().UTC(),
			}
			if err := j.publisher.Publish(ctx, domain.EventFreezeReactivated, event); err != nil {
				j.logger.Error("failed to publish reactivation event", "subscription_id", sub.ID, "error", err)
			}
		}
	}

	j.logger.Info("freeze expiry job finished")
}

// ProcessConflictReminders notifies staff about sessions that have carried a
// conflict flag for more than a day.
func (j *Jobs) ProcessConflictReminders() {
	j.logger.Info("starting conflict reminder job")
	ctx := context.Background()

	cutoff := time.Now().Add(-24 * time.Hour)
	sessions, err := j.repo.GetStaleConflictSessions(ctx, cutoff)
	if err != nil {
		j.logger.Error("failed to query stale conflict sessions", "error", err)
		return
	}
	if len(sessions) == 0 {
		j.logger.Info("no stale conflicts to report")
		return
	}

	j.logger.Info("found stale conflict sessions", "count", len(sessions))
	if j.notifier == nil {
		j.logger.Warn("notification client not configured, skipping conflict digest")
		return
	}
	if err := j.notifier.SendConflictDigest(ctx, sessions); err != nil {
		j.logger.Error("failed to send conflict digest", "error", err)
		return
	}

	j.logger.Info("conflict reminder job finished")
}
