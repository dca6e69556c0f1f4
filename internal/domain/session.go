/**
 * @description
 * Session and rescheduling models. Sessions are never deleted by the freeze
 * workflow; they are either moved to a new slot or left in place with a
 * conflict flag for manual handling.
 */
package domain

import "time"

// Session statuses relevant to rescheduling.
const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// Conflict classification.
const (
	ConflictTypeNoSlotAvailable = "no_slot_available"
	ConflictSeverityHigh        = "high"
)

// TherapySession is one scheduled therapy session. Times of day are stored as
// "HH:MM" strings to match the schedule tables; ScheduledDate carries the day.
type TherapySession struct {
	ID              string    `json:"id"`
	SubscriptionID  string    `json:"subscription_id"`
	TherapistID     string    `json:"therapist_id"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	HasConflicts    bool      `json:"has_conflicts"`
}

// AvailabilityWindow is a therapist's recurring weekly working window.
type AvailabilityWindow struct {
	TherapistID string       `json:"therapist_id"`
	Weekday     time.Weekday `json:"weekday"`
	StartTime   string       `json:"start_time"`
	EndTime     string       `json:"end_time"`
}

// BookedSlot is an already-occupied therapist slot on a concrete date.
type BookedSlot struct {
	TherapistID string    `json:"therapist_id"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
}

// ReschedulingRequest asks the engine to relocate every session of a
// subscription that falls inside the freeze window.
type ReschedulingRequest struct {
	SubscriptionID string    `json:"subscription_id"`
	StudentID      string    `json:"student_id"`
	FreezeStart    time.Time `json:"freeze_start"`
	FreezeEnd      time.Time `json:"freeze_end"`
}

// SessionConflict is a session the engine could not relocate.
type SessionConflict struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Severity  string `json:"severity"`
	Detail    string `json:"detail,omitempty"`
}

// ReschedulingResult reports the outcome of one rescheduling batch. Success
// means the batch ran to completion; individual conflicts are expected
// outcomes, not failures.
type ReschedulingResult struct {
	Success             bool              `json:"success"`
	SessionsRescheduled int               `json:"sessions_rescheduled"`
	ConflictsDetected   []SessionConflict `json:"conflicts_detected"`
	ExecutionTimeMS     int64             `json:"execution_time_ms"`
}

// FreezeStatistics is the server-side aggregate computed by the
// get_freeze_statistics database function.
type FreezeStatistics struct {
	SubscriptionID   string     `json:"subscription_id"`
	TotalFreezes     int        `json:"total_freezes"`
	TotalFrozenDays  int        `json:"total_frozen_days"`
	RemainingDays    int        `json:"remaining_days"`
	LastFreezeEndsAt *time.Time `json:"last_freeze_ends_at,omitempty"`
}
