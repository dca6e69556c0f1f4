/**
 * @description
 * This file implements the data access layer for the freeze-service.
 * It contains all the SQL queries and logic for interacting with the database:
 * subscriptions, therapy programs, freeze records, sessions and therapist
 * availability.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/therapyhub/freeze-service/internal/domain"
)

// Sentinel errors returned by the repository.
var (
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrProgramNotFound        = errors.New("therapy program not found")
	ErrFreezeNotFound         = errors.New("freeze record not found")
	ErrFreezeBalanceExhausted = errors.New("freeze day balance exhausted")
)

// Repository handles database operations for the freeze workflow.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetSubscription retrieves a subscription by id.
func (r *Repository) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT id, student_id, program_id, start_date, end_date, original_end_date,
               freeze_days_allowed, freeze_days_used, status,
               total_sessions, sessions_completed, is_active
        FROM subscriptions
        WHERE id = $1
    `
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.StudentID,
		&sub.ProgramID,
		&sub.StartDate,
		&sub.EndDate,
		&sub.OriginalEndDate,
		&sub.FreezeDaysAllowed,
		&sub.FreezeDaysUsed,
		&sub.Status,
		&sub.TotalSessions,
		&sub.SessionsCompleted,
		&sub.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetProgram retrieves a therapy program by id.
func (r *Repository) GetProgram(ctx context.Context, id string) (*domain.TherapyProgram, error) {
	var prog domain.TherapyProgram
	query := `
        SELECT id, name, exclude_weekends, monthly_price_minor, billing_cycle_days
        FROM therapy_programs
        WHERE id = $1
    `
	err := r.db.QueryRow(ctx, query, id).Scan(
		&prog.ID,
		&prog.Name,
		&prog.ExcludeWeekends,
		&prog.MonthlyPriceMinor,
		&prog.BillingCycleDays,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return &prog, nil
}

// GetFreeze retrieves a committed freeze record by id.
func (r *Repository) GetFreeze(ctx context.Context, id string) (*domain.FreezeRecord, error) {
	var f domain.FreezeRecord
	query := `
        SELECT id, subscription_id, start_date, end_date, freeze_days, reason, created_by, created_at
        FROM subscription_freezes
        WHERE id = $1
    `
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.SubscriptionID, &f.StartDate, &f.EndDate,
		&f.FreezeDays, &f.Reason, &f.CreatedBy, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFreezeNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListFreezes returns all committed freezes for a subscription, newest first.
func (r *Repository) ListFreezes(ctx context.Context, subscriptionID string) ([]domain.FreezeRecord, error) {
	query := `
        SELECT id, subscription_id, start_date, end_date, freeze_days, reason, created_by, created_at
        FROM subscription_freezes
        WHERE subscription_id = $1
        ORDER BY start_date DESC
    `
	rows, err := r.db.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var freezes []domain.FreezeRecord
	for rows.Next() {
		var f domain.FreezeRecord
		if err := rows.Scan(
			&f.ID, &f.SubscriptionID, &f.StartDate, &f.EndDate,
			&f.FreezeDays, &f.Reason, &f.CreatedBy, &f.CreatedAt,
		); err != nil {
			return nil, err
		}
		freezes = append(freezes, f)
	}
	return freezes, rows.Err()
}

// GetOverlappingFreezes returns committed freezes whose window intersects
// [start, end] inclusive.
func (r *Repository) GetOverlappingFreezes(ctx context.Context, subscriptionID string, start, end time.Time) ([]domain.FreezeRecord, error) {
	query := `
        SELECT id, subscription_id, start_date, end_date, freeze_days, reason, created_by, created_at
        FROM subscription_freezes
        WHERE subscription_id = $1
          AND start_date <= $3
          AND end_date >= $2
        ORDER BY start_date
    `
	rows, err := r.db.Query(ctx, query, subscriptionID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var freezes []domain.FreezeRecord
	for rows.Next() {
		var f domain.FreezeRecord
		if err := rows.Scan(
			&f.ID, &f.SubscriptionID, &f.StartDate, &f.EndDate,
			&f.FreezeDays, &f.Reason, &f.CreatedBy, &f.CreatedAt,
		); err != nil {
			return nil, err
		}
		freezes = append(freezes, f)
	}
	return freezes, rows.Err()
}

// CommitFreeze persists a freeze record and shifts the subscription timeline
// in a single transaction. The UPDATE carries the balance guard, so a
// concurrent freeze that would overdraw the allowance leaves zero rows
// affected and the transaction rolls back with ErrFreezeBalanceExhausted.
func (r *Repository) CommitFreeze(ctx context.Context, freeze *domain.FreezeRecord, newEndDate time.Time) (*domain.FreezeRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	updateQuery := `
        UPDATE subscriptions
        SET end_date = $1,
            freeze_days_used = freeze_days_used + $2,
            status = CASE
                WHEN $3::date <= CURRENT_DATE AND $4::date >= CURRENT_DATE THEN 'frozen'
                ELSE status
            END,
            updated_at = NOW()
        WHERE id = $5
          AND status = 'active'
          AND freeze_days_used + $2 <= freeze_days_allowed
    `
	tag, err := tx.Exec(ctx, updateQuery,
		newEndDate, freeze.FreezeDays, freeze.StartDate, freeze.EndDate, freeze.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrFreezeBalanceExhausted
	}

	var created domain.FreezeRecord
	insertQuery := `
        INSERT INTO subscription_freezes (id, subscription_id, start_date, end_date, freeze_days, reason, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, subscription_id, start_date, end_date, freeze_days, reason, created_by, created_at
    `
	err = tx.QueryRow(ctx, insertQuery,
		freeze.ID, freeze.SubscriptionID, freeze.StartDate, freeze.EndDate,
		freeze.FreezeDays, freeze.Reason, freeze.CreatedBy,
	).Scan(
		&created.ID, &created.SubscriptionID, &created.StartDate, &created.EndDate,
		&created.FreezeDays, &created.Reason, &created.CreatedBy, &created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetSessionsInWindow returns scheduled sessions of a subscription whose date
// falls inside [start, end] inclusive, in chronological order.
func (r *Repository) GetSessionsInWindow(ctx context.Context, subscriptionID string, start, end time.Time) ([]domain.TherapySession, error) {
	query := `
        SELECT id, subscription_id, therapist_id, scheduled_date, start_time, end_time,
               duration_minutes, status, has_conflicts
        FROM therapy_sessions
        WHERE subscription_id = $1
          AND status = 'scheduled'
          AND scheduled_date >= $2
          AND scheduled_date <= $3
        ORDER BY scheduled_date, start_time
    `
	rows, err := r.db.Query(ctx, query, subscriptionID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.TherapySession
	for rows.Next() {
		var s domain.TherapySession
		if err := rows.Scan(
			&s.ID, &s.SubscriptionID, &s.TherapistID, &s.ScheduledDate,
			&s.StartTime, &s.EndTime, &s.DurationMinutes, &s.Status, &s.HasConflicts,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetTherapistAvailability returns a therapist's recurring weekly windows.
func (r *Repository) GetTherapistAvailability(ctx context.Context, therapistID string) ([]domain.AvailabilityWindow, error) {
	query := `
        SELECT therapist_id, weekday, start_time, end_time
        FROM therapist_availability
        WHERE therapist_id = $1
        ORDER BY weekday, start_time
    `
	rows, err := r.db.Query(ctx, query, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []domain.AvailabilityWindow
	for rows.Next() {
		var w domain.AvailabilityWindow
		if err := rows.Scan(&w.TherapistID, &w.Weekday, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// GetBookedSlots returns every occupied slot for a therapist in [from, to],
// across all subscriptions, so the engine can avoid double booking.
func (r *Repository) GetBookedSlots(ctx context.Context, therapistID string, from, to time.Time) ([]domain.BookedSlot, error) {
	query := `
        SELECT therapist_id, scheduled_date, start_time, end_time
        FROM therapy_sessions
        WHERE therapist_id = $1
          AND status = 'scheduled'
          AND scheduled_date >= $2
          AND scheduled_date <= $3
    `
	rows, err := r.db.Query(ctx, query, therapistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.BookedSlot
	for rows.Next() {
		var s domain.BookedSlot
		if err := rows.Scan(&s.TherapistID, &s.Date, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// MoveSession rewrites a session's slot in place. The session id and status
// are unchanged and any prior conflict flag is cleared.
func (r *Repository) MoveSession(ctx context.Context, sessionID string, newDate time.Time, startTime, endTime string) error {
	query := `
        UPDATE therapy_sessions
        SET scheduled_date = $1,
            start_time = $2,
            end_time = $3,
            has_conflicts = FALSE,
            updated_at = NOW()
        WHERE id = $4
    `
	_, err := r.db.Exec(ctx, query, newDate, startTime, endTime, sessionID)
	return err
}

// FlagSessionConflict marks a session the engine could not relocate.
func (r *Repository) FlagSessionConflict(ctx context.Context, sessionID string) error {
	query := `UPDATE therapy_sessions SET has_conflicts = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, sessionID)
	return err
}

// GetFreezeStatistics calls the backend aggregate function for a subscription.
func (r *Repository) GetFreezeStatistics(ctx context.Context, subscriptionID string) (*domain.FreezeStatistics, error) {
	var stats domain.FreezeStatistics
	query := `SELECT subscription_id, total_freezes, total_frozen_days, remaining_days, last_freeze_ends_at
              FROM get_freeze_statistics($1)`
	err := r.db.QueryRow(ctx, query, subscriptionID).Scan(
		&stats.SubscriptionID,
		&stats.TotalFreezes,
		&stats.TotalFrozenDays,
		&stats.RemainingDays,
		&stats.LastFreezeEndsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &stats, nil
}

// GetExpiredFrozenSubscriptions finds frozen subscriptions whose latest freeze
// window has ended.
func (r *Repository) GetExpiredFrozenSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	query := `
        SELECT s.id, s.student_id, s.program_id, s.start_date, s.end_date, s.original_end_date,
               s.freeze_days_allowed, s.freeze_days_used, s.status,
               s.total_sessions, s.sessions_completed, s.is_active
        FROM subscriptions s
        WHERE s.status = 'frozen'
          AND NOT EXISTS (
              SELECT 1 FROM subscription_freezes f
              WHERE f.subscription_id = s.id AND f.end_date >= CURRENT_DATE
          )
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.StudentID, &sub.ProgramID, &sub.StartDate, &sub.EndDate,
			&sub.OriginalEndDate, &sub.FreezeDaysAllowed, &sub.FreezeDaysUsed,
			&sub.Status, &sub.TotalSessions, &sub.SessionsCompleted, &sub.IsActive,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ReactivateSubscription moves a frozen subscription back to active.
func (r *Repository) ReactivateSubscription(ctx context.Context, subscriptionID string) error {
	query := `
        UPDATE subscriptions
        SET status = 'active', updated_at = NOW()
        WHERE id = $1 AND status = 'frozen'
    `
	_, err := r.db.Exec(ctx, query, subscriptionID)
	return err
}

// GetStaleConflictSessions returns conflicted sessions last touched before the cutoff.
func (r *Repository) GetStaleConflictSessions(ctx context.Context, olderThan time.Time) ([]domain.TherapySession, error) {
	query := `
        SELECT id, subscription_id, therapist_id, scheduled_date, start_time, end_time,
               duration_minutes, status, has_conflicts
        FROM therapy_sessions
        WHERE has_conflicts = TRUE
          AND status = 'scheduled'
          AND updated_at < $1
        ORDER BY scheduled_date
    `
	rows, err := r.db.Query(ctx, query, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.TherapySession
	for rows.Next() {
		var s domain.TherapySession
		if err := rows.Scan(
			&s.ID, &s.SubscriptionID, &s.TherapistID, &s.ScheduledDate,
			&s.StartTime, &s.EndTime, &s.DurationMinutes, &s.Status, &s.HasConflicts,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
