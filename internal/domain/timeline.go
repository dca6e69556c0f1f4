/**
 * @description
 * Output types for the timeline manager: end-date recomputation and billing
 * credits for a frozen period. All monetary amounts are int64 minor units
 * (halalas) to keep proportional credit math exact.
 */
package domain

import "time"

// Calculation methods for end-date adjustment.
const (
	CalcMethodCalendarDays     = "calendar_days"
	CalcMethodBusinessDaysOnly = "business_days_only"
)

// Billing adjustment modes.
const (
	BillingModeProportional = "proportional"
	BillingModeFlat         = "flat"
	BillingModeNone         = "none"
)

// TimelineAdjustment describes how a freeze shifts a subscription's end date.
// AdjustmentDays is the calendar-day shift applied; with weekend exclusion it
// can exceed FreezeDays because skipped weekend days still move the calendar.
type TimelineAdjustment struct {
	SubscriptionID    string    `json:"subscription_id"`
	OriginalEndDate   time.Time `json:"original_end_date"`
	NewEndDate        time.Time `json:"new_end_date"`
	FreezeDays        int       `json:"freeze_days"`
	AdjustmentDays    int       `json:"adjustment_days"`
	CalculationMethod string    `json:"calculation_method"`
}

// BillingAdjustment describes the credit issued for a frozen period.
// Invariant: AdjustedMinor = OriginalMinor - CreditMinor, CreditMinor >= 0.
type BillingAdjustment struct {
	SubscriptionID string `json:"subscription_id"`
	AdjustmentType string `json:"adjustment_type"`
	OriginalMinor  int64  `json:"original_minor"`
	AdjustedMinor  int64  `json:"adjusted_minor"`
	CreditMinor    int64  `json:"credit_minor"`
}
