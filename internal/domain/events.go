/**
 * @description
 * Event payloads published to the freeze.events topic exchange. Consumers are
 * the notification service and the parent-dashboard cache invalidator.
 */
package domain

import "time"

// Routing keys on the freeze.events exchange.
const (
	EventFreezeApplied      = "freeze.applied"
	EventFreezeReactivated  = "freeze.reactivated"
	EventSessionRescheduled = "session.rescheduled"
	EventConflictsDetected  = "freeze.conflicts_detected"
)

// FreezeAppliedEvent announces a committed freeze.
type FreezeAppliedEvent struct {
	FreezeID       string    `json:"freeze_id"`
	SubscriptionID string    `json:"subscription_id"`
	StudentID      string    `json:"student_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	FreezeDays     int       `json:"freeze_days"`
	NewEndDate     time.Time `json:"new_end_date"`
	CreditMinor    int64     `json:"credit_minor"`
}

// FreezeReactivatedEvent announces a subscription whose freeze window ended.
type FreezeReactivatedEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	ReactivatedAt  time.Time `json:"reactivated_at"`
}

// SessionRescheduledEvent announces one session moved to a new slot.
type SessionRescheduledEvent struct {
	SessionID      string    `json:"session_id"`
	SubscriptionID string    `json:"subscription_id"`
	OldDate        time.Time `json:"old_date"`
	NewDate        time.Time `json:"new_date"`
	NewStartTime   string    `json:"new_start_time"`
	NewEndTime     string    `json:"new_end_time"`
}

// ConflictsDetectedEvent carries the sessions a rescheduling batch could not place.
type ConflictsDetectedEvent struct {
	SubscriptionID string            `json:"subscription_id"`
	FreezeID       string            `json:"freeze_id"`
	Conflicts      []SessionConflict `json:"conflicts"`
}
