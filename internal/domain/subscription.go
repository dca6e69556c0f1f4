/**
 * @description
 * This file defines the core domain models for the freeze-service.
 * It includes the Subscription struct that maps to the database table,
 * the freeze request/record value objects, and the related status enums.
 */
package domain

import "time"

// Subscription statuses. A subscription is only freezable while 'active';
// the freeze expiry job moves 'frozen' subscriptions back to 'active'.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusFrozen    = "frozen"
	SubscriptionStatusCompleted = "completed"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription represents a student's enrollment in a therapy program.
type Subscription struct {
	ID                string    `json:"id"`
	StudentID         string    `json:"student_id"`
	ProgramID         string    `json:"program_id"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	OriginalEndDate   time.Time `json:"original_end_date"` // set at enrollment, never shifted by freezes
	FreezeDaysAllowed int       `json:"freeze_days_allowed"`
	FreezeDaysUsed    int       `json:"freeze_days_used"`
	Status            string    `json:"status"`
	TotalSessions     int       `json:"total_sessions"`
	SessionsCompleted int       `json:"sessions_completed"`
	IsActive          bool      `json:"is_active"`
}

// FreezeDaysRemaining returns how many freeze days the subscription can still consume.
func (s *Subscription) FreezeDaysRemaining() int {
	remaining := s.FreezeDaysAllowed - s.FreezeDaysUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TherapyProgram holds the program-level policy fields the freeze workflow
// reads: weekend exclusion for timeline math and pricing for billing credits.
type TherapyProgram struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	ExcludeWeekends   bool   `json:"exclude_weekends"`
	MonthlyPriceMinor int64  `json:"monthly_price_minor"` // halalas
	BillingCycleDays  int    `json:"billing_cycle_days"`
}

// FreezeRequest is the ephemeral value object describing a proposed freeze.
// FreezeDays of 0 means "derive from the date range"; a non-zero value must
// match the inclusive day count or validation rejects it with DAYS_MISMATCH.
type FreezeRequest struct {
	SubscriptionID string    `json:"subscription_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Reason         string    `json:"reason"`
	FreezeDays     int       `json:"freeze_days"`
	BillingMode    string    `json:"billing_mode,omitempty"` // proportional (default), flat, none
}

// InclusiveDays returns the inclusive calendar day count of the freeze window.
// A single-day freeze (start == end) counts as 1.
func (r *FreezeRequest) InclusiveDays() int {
	if r.EndDate.Before(r.StartDate) {
		return 0
	}
	return int(r.EndDate.Sub(r.StartDate).Hours()/24) + 1
}

// FreezeRecord is a committed freeze persisted in subscription_freezes.
type FreezeRecord struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	FreezeDays     int       `json:"freeze_days"`
	Reason         string    `json:"reason"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// FreezeOutcome aggregates everything a single ApplyFreeze call produced.
// Validation is always populated; the remaining fields stay nil until the
// request passes validation and the freeze is committed.
type FreezeOutcome struct {
	Validation   *ValidationResult   `json:"validation"`
	Freeze       *FreezeRecord       `json:"freeze,omitempty"`
	Timeline     *TimelineAdjustment `json:"timeline,omitempty"`
	Billing      *BillingAdjustment  `json:"billing,omitempty"`
	Rescheduling *ReschedulingResult `json:"rescheduling,omitempty"`
}
