package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/therapyhub/freeze-service/internal/config"
	"github.com/therapyhub/freeze-service/internal/domain"
)

type jobsRepoStub struct {
	expired     []domain.Subscription
	expiredErr  error
	stale       []domain.TherapySession
	staleErr    error
	reactivated []string
	reactErrFor string
}

func (s *jobsRepoStub) GetExpiredFrozenSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	if s.expiredErr != nil {
		return nil, s.expiredErr
	}
	return s.expired, nil
}

func (s *jobsRepoStub) ReactivateSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == s.reactErrFor {
		return errors.New("db unavailable")
	}
	s.reactivated = append(s.reactivated, subscriptionID)
	return nil
}

func (s *jobsRepoStub) GetStaleConflictSessions(ctx context.Context, olderThan time.Time) ([]domain.TherapySession, error) {
	if s.staleErr != nil {
		return nil, s.staleErr
	}
	return s.stale, nil
}

type notifierStub struct {
	digests [][]domain.TherapySession
	err     error
}

func (n *notifierStub) SendConflictDigest(ctx context.Context, sessions []domain.TherapySession) error {
	if n.err != nil {
		return n.err
	}
	n.digests = append(n.digests, sessions)
	return nil
}

func newTestJobs(repo JobsRepository, notifier NotificationClient, publisher EventPublisher) *Jobs {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(repo, notifier, publisher, logger, config.Config{})
}

func TestProcessFreezeExpiry_ReactivatesAndPublishes(t *testing.T) {
	repo := &jobsRepoStub{expired: []domain.Subscription{{ID: "sub-1"}, {ID: "sub-2"}}}
	publisher := &publisherStub{}
	jobs := newTestJobs(repo, nil, publisher)

	jobs.ProcessFreezeExpiry()

	if len(repo.reactivated) != 2 {
		t.Fatalf("expected 2 reactivations, got %v", repo.reactivated)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 reactivation events, got %v", publisher.keys())
	}
	for _, k := range publisher.keys() {
		if k != domain.EventFreezeReactivated {
			t.Fatalf("unexpected routing key %s", k)
		}
	}
}

func TestProcessFreezeExpiry_ContinuesOnReactivateError(t *testing.T) {
	repo := &jobsRepoStub{
		expired:     []domain.Subscription{{ID: "sub-1"}, {ID: "sub-2"}},
		reactErrFor: "sub-1",
	}
	jobs := newTestJobs(repo, nil, &publisherStub{})

	jobs.ProcessFreezeExpiry()

	if len(repo.reactivated) != 1 || repo.reactivated[0] != "sub-2" {
		t.Fatalf("expected sub-2 still reactivated after sub-1 failure, got %v", repo.reactivated)
	}
}

func TestProcessFreezeExpiry_NothingToDo(t *testing.T) {
	publisher := &publisherStub{}
	jobs := newTestJobs(&jobsRepoStub{}, nil, publisher)

	jobs.ProcessFreezeExpiry()

	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %v", publisher.keys())
	}
}

func TestProcessConflictReminders_SendsDigest(t *testing.T) {
	repo := &jobsRepoStub{stale: []domain.TherapySession{tuesdaySession("sess-1")}}
	notifier := &notifierStub{}
	jobs := newTestJobs(repo, notifier, nil)

	jobs.ProcessConflictReminders()

	if len(notifier.digests) != 1 || len(notifier.digests[0]) != 1 {
		t.Fatalf("expected one digest with one session, got %v", notifier.digests)
	}
}

func TestProcessConflictReminders_SkipsWhenNoneStale(t *testing.T) {
	notifier := &notifierStub{}
	jobs := newTestJobs(&jobsRepoStub{}, notifier, nil)

	jobs.ProcessConflictReminders()

	if len(notifier.digests) != 0 {
		t.Fatalf("expected no digest, got %v", notifier.digests)
	}
}

func TestProcessConflictReminders_NoNotifierConfigured(t *testing.T) {
	repo := &jobsRepoStub{stale: []domain.TherapySession{tuesdaySession("sess-1")}}
	jobs := newTestJobs(repo, nil, nil)

	// Must not panic without a notification client.
	jobs.ProcessConflictReminders()
}
