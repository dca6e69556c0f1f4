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

type movedSession struct {
	id    string
	date  time.Time
	start string
	end   string
}

type schedulingStoreStub struct {
	sessions     []domain.TherapySession
	sessionsErr  error
	availability map[string][]domain.AvailabilityWindow
	booked       map[string][]domain.BookedSlot
	moved        []movedSession
	flagged      []string
	moveErr      error
	flagErr      error
}

func (s *schedulingStoreStub) GetSessionsInWindow(ctx context.Context, subscriptionID string, start, end time.Time) ([]domain.TherapySession, error) {
	if s.sessionsErr != nil {
		return nil, s.sessionsErr
	}
	var inWindow []domain.TherapySession
	for _, session := range s.sessions {
		if session.Status != domain.SessionStatusScheduled {
			continue
		}
		if session.ScheduledDate.Before(start) || session.ScheduledDate.After(end) {
			continue
		}
		inWindow = append(inWindow, session)
	}
	return inWindow, nil
}

func (s *schedulingStoreStub) GetTherapistAvailability(ctx context.Context, therapistID string) ([]domain.AvailabilityWindow, error) {
	return s.availability[therapistID], nil
}

func (s *schedulingStoreStub) GetBookedSlots(ctx context.Context, therapistID string, from, to time.Time) ([]domain.BookedSlot, error) {
	return s.booked[therapistID], nil
}

func (s *schedulingStoreStub) MoveSession(ctx context.Context, sessionID string, newDate time.Time, startTime, endTime string) error {
	if s.moveErr != nil {
		return s.moveErr
	}
	s.moved = append(s.moved, movedSession{id: sessionID, date: newDate, start: startTime, end: endTime})
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			s.sessions[i].ScheduledDate = newDate
			s.sessions[i].StartTime = startTime
			s.sessions[i].EndTime = endTime
			s.sessions[i].HasConflicts = false
		}
	}
	return nil
}

func (s *schedulingStoreStub) FlagSessionConflict(ctx context.Context, sessionID string) error {
	if s.flagErr != nil {
		return s.flagErr
	}
	s.flagged = append(s.flagged, sessionID)
	return nil
}

func newTestEngine(st SchedulingStore) *ReschedulingEngine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReschedulingEngine(st, config.Config{RescheduleLookaheadDays: 60}, nil, logger)
}

// Freeze window 2024-06-10 (Mon) through 2024-06-16 (Sun).
func frozenWeekRequest() *domain.ReschedulingRequest {
	return &domain.ReschedulingRequest{
		SubscriptionID: "sub-1",
		StudentID:      "student-1",
		FreezeStart:    date(2024, 6, 10),
		FreezeEnd:      date(2024, 6, 16),
	}
}

func tuesdaySession(id string) domain.TherapySession {
	return domain.TherapySession{
		ID:              id,
		SubscriptionID:  "sub-1",
		TherapistID:     "ther-1",
		ScheduledDate:   date(2024, 6, 11), // Tuesday inside the freeze window
		StartTime:       "10:00",
		EndTime:         "11:00",
		DurationMinutes: 60,
		Status:          domain.SessionStatusScheduled,
	}
}

func tuesdayMorningAvailability() map[string][]domain.AvailabilityWindow {
	return map[string][]domain.AvailabilityWindow{
		"ther-1": {{
			TherapistID: "ther-1",
			Weekday:     time.Tuesday,
			StartTime:   "09:00",
			EndTime:     "12:00",
		}},
	}
}

func TestReschedule_MovesSessionToNextMatchingWeekday(t *testing.T) {
	st := &schedulingStoreStub{
		sessions:     []domain.TherapySession{tuesdaySession("sess-1")},
		availability: tuesdayMorningAvailability(),
	}
	engine := newTestEngine(st)

	result, err := engine.RescheduleSessionsForFreeze(context.Background(), frozenWeekRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success || result.SessionsRescheduled != 1 {
		t.Fatalf("expected one rescheduled session, got %+v", result)
	}
	if len(result.ConflictsDetected) != 0 {
		t.Fatalf("expected no conflicts, got %v", result.ConflictsDetected)
	}
	if len(st.moved) != 1 {
		t.Fatalf("expected one move, got %d", len(st.moved))
	}
	// First Tuesday after the freeze window is 2024-06-18; earliest window slot wins.
	move := st.moved[0]
	if !move.date.Equal(date(2024, 6, 18)) || move.start != "09:00" || move.end != "10:00" {
		t.Fatalf("unexpected slot: %+v", move)
	}
}

func TestReschedule_NoSlotAvailable(t *testing.T) {
	st := &schedulingStoreStub{
		sessions:     []domain.TherapySession{tuesdaySession("sess-1")},
		availability: map[string][]domain.AvailabilityWindow{},
	}
	engine := newTestEngine(st)

	result, err := engine.RescheduleSessionsForFreeze(context.Background(), frozenWeekRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success {
		t.Fatal("no-slot outcomes must not fail the batch")
	}
	if result.SessionsRescheduled != 0 || len(st.moved) != 0 {
		t.Fatalf("expected no moves, got %+v", result)
	}
	if len(result.ConflictsDetected) != 1 {
		t.Fatalf("expected one conflict, got %v", result.ConflictsDetected)
	}
	conflict := result.ConflictsDetected[0]
	if conflict.Type != domain.ConflictTypeNoSlotAvailable || conflict.SessionID != "sess-1" || conflict.Severity != domain.ConflictSeverityHigh {
		t.Fatalf("unexpected conflict entry: %+v", conflict)
	}
	if len(st.flagged) != 1 || st.flagged[0] != "sess-1" {
		t.Fatalf("expected session flagged for manual handling, got %v", st.flagged)
	}
}

func TestReschedule_NoDoubleBookingWithinBatch(t *testing.T) {
	first := tuesdaySession("sess-1")
	second := tuesdaySession("sess-2")
	second.StartTime, second.EndTime = "11:00", "12:00"
	st := &schedulingStoreStub{
		sessions:     []domain.TherapySession{first, second},
		availability: tuesdayMorningAvailability(),
	}
	engine := newTestEngine(st)

	result, err := engine.RescheduleSessionsForFreeze(context.Background(), frozenWeekRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionsRescheduled != 2 {
		t.Fatalf("expected both sessions placed, got %+v", result)
	}

	// Both land on the same Tuesday but must not overlap.
	if len(st.moved) != 2 {
		t.Fatalf("expected two moves, got %d", len(st.moved))
	}
	a, b := st.moved[0], st.moved[1]
	if !a.date.Equal(b.date) {
		return
	}
	if a.start < b.end && b.start < a.end {
		t.Fatalf("double booking within batch: %+v vs %+v", a, b)
	}
}

func TestReschedule_SkipsBookedSlots(t *testing.T) {
	st := &schedulingStoreStub{
		sessions:     []domain.TherapySession{tuesdaySession("sess-1")},
		availability: tuesdayMorningAvailability(),
		booked: map[string][]domain.BookedSlot{
			"ther-1": {{
				TherapistID: "ther-1",
				Date:        date(2024, 6, 18),
				StartTime:   "09:00",
				EndTime:     "10:00",
			}},
		},
	}
	engine := newTestEngine(st)

	result, err := engine.RescheduleSessionsForFreeze(context.Background(), frozenWeekRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SessionsRescheduled != 1 {
		t.Fatalf("expected one rescheduled session, got %+v", result)
	}
	move := st.moved[0]
	if move.start != "10:00" || move.end != "11:00" {
		t.Fatalf("expected the occupied 09:00 slot to be skipped, got %+v", move)
	}
}

func TestReschedule_EmptyWindow(t *testing.T) {
	st := &schedulingStoreStub{}
	engine := newTestEngine(st)

	result, err := engine.RescheduleSessionsForFreeze(context.Background(), frozenWeekRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.SessionsRescheduled != 0 || len(result.ConflictsDetected) != 0 {
		t.Fatalf("expected clean empty result, got %+v", result)
	}
}

func TestReschedule_StoreErrorAbortsBatch(t *testing.T) {
	st := &schedulingStoreStub{sessionsErr: errors.New("db unavailable")}
	engine := newTestEngine(st)

	result, err := engine.RescheduleSessionsForFreeze(context.Background(), frozenWeekRequest())
	if err == nil {
		t.Fatal("expected store failure to abort the batch")
	}
	if result != nil {
		t.Fatalf("expected no partial result, got %+v", result)
	}
}

func TestReschedule_SecondRunLeavesMovedSessionAlone(t *testing.T) {
	st := &schedulingStoreStub{
		sessions:     []domain.TherapySession{tuesdaySession("sess-1")},
		availability: tuesdayMorningAvailability(),
	}
	engine := newTestEngine(st)

	req := frozenWeekRequest()
	if _, err := engine.RescheduleSessionsForFreeze(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on first run: %v", err)
	}

	// The session now lives outside the freeze window, so a rerun of the same
	// window must not touch it again.
	st.moved = nil
	result, err := engine.RescheduleSessionsForFreeze(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if result.SessionsRescheduled != 0 || len(st.moved) != 0 {
		t.Fatalf("expected idempotent rerun, got %+v moved=%v", result, st.moved)
	}
}
