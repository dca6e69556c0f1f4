/**
 * @description
 * This file contains the timeline manager: end-date recomputation for an
 * approved freeze and the billing credit for the frozen period. Monetary math
 * uses int64 minor units throughout.
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

// TimelineStore defines the database operations the timeline manager needs.
type TimelineStore interface {
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	GetProgram(ctx context.Context, id string) (*domain.TherapyProgram, error)
}

// TimelineManager computes timeline and billing adjustments for a freeze.
// It never persists anything; committing the new end date is the caller's job.
type TimelineManager struct {
	store  TimelineStore
	cfg    config.Config
	logger *slog.Logger
}

// NewTimelineManager creates a new timeline manager.
func NewTimelineManager(store TimelineStore, cfg config.Config, logger *slog.Logger) *TimelineManager {
	return &TimelineManager{store: store, cfg: cfg, logger: logger}
}

// CalculateNewEndDate computes the subscription end date after extending the
// program by freezeDays. The walk is always anchored at original_end_date so
// repeated freezes stay deterministic: callers committing a second freeze pass
// the cumulative day count. With weekend exclusion enabled, only Mon-Fri days
// consume freeze days, so the calendar shift can exceed freezeDays.
func (m *TimelineManager) CalculateNewEndDate(ctx context.Context, subscriptionID string, freezeDays int) (*domain.TimelineAdjustment, error) {
	if freezeDays < 0 {
		return nil, fmt.Errorf("freeze days must be non-negative, got %d", freezeDays)
	}

	sub, err := m.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	prog, err := m.store.GetProgram(ctx, sub.ProgramID)
	if err != nil {
		return nil, err
	}

	adj := &domain.TimelineAdjustment{
		SubscriptionID:  subscriptionID,
		OriginalEndDate: sub.OriginalEndDate,
		FreezeDays:      freezeDays,
	}

	if !prog.ExcludeWeekends {
		adj.NewEndDate = sub.OriginalEndDate.AddDate(0, 0, freezeDays)
		adj.AdjustmentDays = freezeDays
		adj.CalculationMethod = domain.CalcMethodCalendarDays
		return adj, nil
	}

	// Walk forward one calendar day at a time, consuming a freeze day only on
	// business days. Skipped weekend days still move the calendar.
	date := sub.OriginalEndDate
	consumed := 0
	calendarDays := 0
	for consumed < freezeDays {
		date = date.AddDate(0, 0, 1)
		calendarDays++
		if isBusinessDay(date) {
			consumed++
		}
	}
	adj.NewEndDate = date
	adj.AdjustmentDays = calendarDays
	adj.CalculationMethod = domain.CalcMethodBusinessDaysOnly
	return adj, nil
}

// AdjustBillingCycle computes the credit for a frozen period.
func (m *TimelineManager) AdjustBillingCycle(ctx context.Context, subscriptionID string, freezeStart, freezeEnd time.Time, mode string) (*domain.BillingAdjustment, error) {
	sub, err := m.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	prog, err := m.store.GetProgram(ctx, sub.ProgramID)
	if err != nil {
		return nil, err
	}

	cycleDays := prog.BillingCycleDays
	if cycleDays <= 0 {
		cycleDays = 30
	}

	adj := &domain.BillingAdjustment{
		SubscriptionID: subscriptionID,
		AdjustmentType: mode,
		OriginalMinor:  prog.MonthlyPriceMinor,
	}

	var credit int64
	switch mode {
	case domain.BillingModeProportional:
		frozenDays := inclusiveDays(freezeStart, freezeEnd)
		if frozenDays > cycleDays {
			frozenDays = cycleDays
		}
		// Integer proration in minor units, rounded half up.
		credit = (prog.MonthlyPriceMinor*int64(frozenDays) + int64(cycleDays)/2) / int64(cycleDays)
	case domain.BillingModeFlat:
		credit = m.cfg.FreezeFlatCreditMinor
	case domain.BillingModeNone:
		credit = 0
	default:
		return nil, fmt.Errorf("unknown billing adjustment mode %q", mode)
	}

	if credit < 0 {
		credit = 0
	}
	if credit > prog.MonthlyPriceMinor {
		credit = prog.MonthlyPriceMinor
	}
	adj.CreditMinor = credit
	adj.AdjustedMinor = prog.MonthlyPriceMinor - credit
	return adj, nil
}

// isBusinessDay reports whether the date counts toward program duration.
func isBusinessDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// inclusiveDays returns the inclusive calendar day count of [start, end].
func inclusiveDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
