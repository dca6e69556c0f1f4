/**
 * @description
 * This file contains the rescheduling engine. It relocates the therapy
 * sessions of a subscription that fall inside a freeze window to the earliest
 * matching therapist slot after the window. Sessions that cannot be placed are
 * reported as conflicts, not errors.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/therapyhub/freeze-service/internal/config"
	"github.com/therapyhub/freeze-service/internal/domain"
)

// SchedulingStore defines the database operations the engine needs.
type SchedulingStore interface {
	GetSessionsInWindow(ctx context.Context, subscriptionID string, start, end time.Time) ([]domain.TherapySession, error)
	GetTherapistAvailability(ctx context.Context, therapistID string) ([]domain.AvailabilityWindow, error)
	GetBookedSlots(ctx context.Context, therapistID string, from, to time.Time) ([]domain.BookedSlot, error)
	MoveSession(ctx context.Context, sessionID string, newDate time.Time, startTime, endTime string) error
	FlagSessionConflict(ctx context.Context, sessionID string) error
}

// EventPublisher publishes domain events to the freeze.events exchange.
// Publishing is best-effort; implementations must not block indefinitely.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// Candidate slots are probed on a 15-minute grid inside availability windows.
const slotStepMinutes = 15

// ReschedulingEngine finds alternate slots for sessions displaced by a freeze.
type ReschedulingEngine struct {
	store     SchedulingStore
	cfg       config.Config
	publisher EventPublisher
	logger    *slog.Logger
}

// NewReschedulingEngine creates a new rescheduling engine. The publisher may
// be nil, in which case per-session events are skipped.
func NewReschedulingEngine(store SchedulingStore, cfg config.Config, publisher EventPublisher, logger *slog.Logger) *ReschedulingEngine {
	return &ReschedulingEngine{store: store, cfg: cfg, publisher: publisher, logger: logger}
}

// clockInterval is a time-of-day range in minutes since midnight.
type clockInterval struct {
	start int
	end   int
}

func (a clockInterval) overlaps(b clockInterval) bool {
	return a.start < b.end && b.start < a.end
}

// therapistCalendar caches one therapist's availability and occupied slots for
// the duration of a batch. Reservations made earlier in the batch are recorded
// here so later sessions cannot double-book the same slot.
type therapistCalendar struct {
	windows  []domain.AvailabilityWindow
	occupied map[string][]clockInterval // date key -> occupied intervals
}

func (c *therapistCalendar) occupy(dateKey string, iv clockInterval) {
	c.occupied[dateKey] = append(c.occupied[dateKey], iv)
}

func (c *therapistCalendar) isFree(dateKey string, iv clockInterval) bool {
	for _, booked := range c.occupied[dateKey] {
		if iv.overlaps(booked) {
			return false
		}
	}
	return true
}

// RescheduleSessionsForFreeze relocates every scheduled session inside the
// freeze window. Sessions are processed in chronological order; a store error
// aborts the whole batch, while an unplaceable session only produces a
// conflict entry.
func (e *ReschedulingEngine) RescheduleSessionsForFreeze(ctx context.Context, req *domain.ReschedulingRequest) (*domain.ReschedulingResult, error) {
	started := time.Now()
	result := &domain.ReschedulingResult{ConflictsDetected: []domain.SessionConflict{}}

	sessions, err := e.store.GetSessionsInWindow(ctx, req.SubscriptionID, req.FreezeStart, req.FreezeEnd)
	if err != nil {
		return nil, fmt.Errorf("querying sessions in freeze window: %w", err)
	}
	if len(sessions) == 0 {
		result.Success = true
		result.ExecutionTimeMS = time.Since(started).Milliseconds()
		return result, nil
	}

	searchFrom := req.FreezeEnd.AddDate(0, 0, 1)
	searchTo := req.FreezeEnd.AddDate(0, 0, e.cfg.RescheduleLookaheadDays)
	calendars := make(map[string]*therapistCalendar)

	for _, session := range sessions {
		cal, err := e.calendarFor(ctx, calendars, session.TherapistID, searchFrom, searchTo)
		if err != nil {
			return nil, fmt.Errorf("loading calendar for therapist %s: %w", session.TherapistID, err)
		}

		newDate, slot, found := e.findSlot(cal, session, searchFrom, searchTo)
		if !found {
			if err := e.store.FlagSessionConflict(ctx, session.ID); err != nil {
				return nil, fmt.Errorf("flagging conflicted session %s: %w", session.ID, err)
			}
			result.ConflictsDetected = append(result.ConflictsDetected, domain.SessionConflict{
				Type:      domain.ConflictTypeNoSlotAvailable,
				SessionID: session.ID,
				Severity:  domain.ConflictSeverityHigh,
				Detail:    fmt.Sprintf("no slot for therapist %s within %d days after the freeze", session.TherapistID, e.cfg.RescheduleLookaheadDays),
			})
			continue
		}

		startStr := formatClock(slot.start)
		endStr := formatClock(slot.end)
		if err := e.store.MoveSession(ctx, session.ID, newDate, startStr, endStr); err != nil {
			return nil, fmt.Errorf("moving session %s: %w", session.ID, err)
		}
		cal.occupy(dateKey(newDate), slot)
		result.SessionsRescheduled++

		if e.publisher != nil {
			event := domain.SessionRescheduledEvent{
				SessionID:      session.ID,
				SubscriptionID: session.SubscriptionID,
				OldDate:        session.ScheduledDate,
				NewDate:        newDate,
				NewStartTime:   startStr,
				NewEndTime:     endStr,
			}
			if err := e.publisher.Publish(ctx, domain.EventSessionRescheduled, event); err != nil {
				e.logger.Error("failed to publish session rescheduled event", "session_id", session.ID, "error", err)
			}
		}
	}

	result.Success = true
	result.ExecutionTimeMS = time.Since(started).Milliseconds()
	return result, nil
}

// calendarFor loads (or returns the cached) availability and booked slots for
// a therapist over the search range.
func (e *ReschedulingEngine) calendarFor(ctx context.Context, calendars map[string]*therapistCalendar, therapistID string, from, to time.Time) (*therapistCalendar, error) {
	if cal, ok := calendars[therapistID]; ok {
		return cal, nil
	}

	windows, err := e.store.GetTherapistAvailability(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	booked, err := e.store.GetBookedSlots(ctx, therapistID, from, to)
	if err != nil {
		return nil, err
	}

	cal := &therapistCalendar{windows: windows, occupied: make(map[string][]clockInterval)}
	for _, slot := range booked {
		iv, err := parseInterval(slot.StartTime, slot.EndTime)
		if err != nil {
			e.logger.Warn("skipping booked slot with malformed time", "therapist_id", therapistID, "start", slot.StartTime, "end", slot.EndTime)
			continue
		}
		cal.occupy(dateKey(slot.Date), iv)
	}
	calendars[therapistID] = cal
	return cal, nil
}

// findSlot returns the earliest free slot matching the session's weekday and
// duration, scanning dates ascending and candidate start times ascending.
func (e *ReschedulingEngine) findSlot(cal *therapistCalendar, session domain.TherapySession, from, to time.Time) (time.Time, clockInterval, bool) {
	duration := session.DurationMinutes
	if duration <= 0 {
		if iv, err := parseInterval(session.StartTime, session.EndTime); err == nil {
			duration = iv.end - iv.start
		}
	}
	if duration <= 0 {
		return time.Time{}, clockInterval{}, false
	}

	targetWeekday := session.ScheduledDate.Weekday()
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		if date.Weekday() != targetWeekday {
			continue
		}
		key := dateKey(date)
		for _, w := range cal.windows {
			if w.Weekday != targetWeekday {
				continue
			}
			window, err := parseInterval(w.StartTime, w.EndTime)
			if err != nil {
				continue
			}
			for start := window.start; start+duration <= window.end; start += slotStepMinutes {
				candidate := clockInterval{start: start, end: start + duration}
				if cal.isFree(key, candidate) {
					return date, candidate, true
				}
			}
		}
	}
	return time.Time{}, clockInterval{}, false
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		// Tolerate seconds, as some schedule tables store "HH:MM:SS".
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
		}
	}
	return t.Hour()*60 + t.Minute(), nil
}

func parseInterval(start, end string) (clockInterval, error) {
	s, err := parseClock(start)
	if err != nil {
		return clockInterval{}, err
	}
	e, err := parseClock(end)
	if err != nil {
		return clockInterval{}, err
	}
	if e <= s {
		return clockInterval{}, fmt.Errorf("interval %s-%s is empty", start, end)
	}
	return clockInterval{start: s, end: e}, nil
}

// formatClock converts minutes since midnight back to "HH:MM".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func dateKey(date time.Time) string {
	return date.Format("2006-01-02")
}
