/**
 * @description
 * This file contains the freeze request validation logic. Validation collects
 * every violation instead of short-circuiting, so the caller can render all of
 * them at once. Problems are returned as data, never as errors; store failures
 * fail closed with a single system-level entry.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/therapyhub/freeze-service/internal/config"
	"github.com/therapyhub/freeze-service/internal/domain"
	"github.com/therapyhub/freeze-service/internal/store"
)

// ValidationStore defines the database operations the validator needs.
type ValidationStore interface {
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	GetOverlappingFreezes(ctx context.Context, subscriptionID string, start, end time.Time) ([]domain.FreezeRecord, error)
}

// ValidationService validates freeze requests against subscription state and
// the configured business rules. It performs no mutation.
type ValidationService struct {
	store  ValidationStore
	cfg    config.Config
	logger *slog.Logger
}

// NewValidationService creates a new validation service.
func NewValidationService(store ValidationStore, cfg config.Config, logger *slog.Logger) *ValidationService {
	return &ValidationService{store: store, cfg: cfg, logger: logger}
}

// ValidateFreezeRequest runs every check against the request and returns the
// collected result. CanProceed is true only when no error-severity entries
// were produced.
func (s *ValidationService) ValidateFreezeRequest(ctx context.Context, req *domain.FreezeRequest) *domain.ValidationResult {
	result := &domain.ValidationResult{Valid: true}
	defer result.Finalize()

	// Date range
	if req.EndDate.Before(req.StartDate) {
		result.AddError("end_date", domain.CodeInvalidRange,
			"end date must be on or after start date", domain.SeverityError)
	}

	// Requested day count must match the inclusive range; zero means derive.
	requestedDays := req.FreezeDays
	if inclusive := req.InclusiveDays(); requestedDays == 0 {
		requestedDays = inclusive
	} else if inclusive > 0 && requestedDays != inclusive {
		result.AddError("freeze_days", domain.CodeFreezeDaysMismatch,
			fmt.Sprintf("freeze_days %d does not match the %d-day date range", requestedDays, inclusive),
			domain.SeverityError)
	}

	// Reason length
	if len(strings.TrimSpace(req.Reason)) < s.cfg.FreezeMinReasonLen {
		result.AddError("reason", domain.CodeReasonTooShort,
			fmt.Sprintf("reason must be at least %d characters", s.cfg.FreezeMinReasonLen),
			domain.SeverityError)
	}

	// Duration ceiling
	if requestedDays > s.cfg.FreezeMaxDurationDays {
		result.AddError("duration", domain.CodeDurationTooLong,
			fmt.Sprintf("freeze duration exceeds the %d-day maximum", s.cfg.FreezeMaxDurationDays),
			domain.SeverityError)
	}

	sub, err := s.store.GetSubscription(ctx, req.SubscriptionID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			result.AddError("subscription_id", domain.CodeSubscriptionNotFound,
				"subscription not found", domain.SeverityError)
			return result
		}
		s.logger.Error("validation aborted by store failure", "subscription_id", req.SubscriptionID, "error", err)
		result.AddError("system", domain.CodeValidationError,
			"could not validate request against subscription state", domain.SeverityError)
		return result
	}

	// Status gate
	freezable := sub.Status == domain.SubscriptionStatusActive
	result.AddRule(domain.RuleSubscriptionFreezable, freezable)
	if !freezable {
		result.AddError("status", domain.CodeInvalidStatus,
			fmt.Sprintf("subscription status %q does not allow freezing", sub.Status),
			domain.SeverityError)
	}

	// Freeze-day balance
	sufficient := requestedDays <= sub.FreezeDaysRemaining()
	result.AddRule(domain.RuleSufficientBalance, sufficient)
	if !sufficient {
		result.AddError("freeze_days", domain.CodeInsufficientFreezeDays,
			fmt.Sprintf("requested %d freeze days but only %d remain", requestedDays, sub.FreezeDaysRemaining()),
			domain.SeverityError)
	}

	// No-overlap rule. Blocking behaviour is configurable; by default the rule
	// is advisory and surfaces as a warning.
	if !req.EndDate.Before(req.StartDate) {
		overlapping, err := s.store.GetOverlappingFreezes(ctx, req.SubscriptionID, req.StartDate, req.EndDate)
		if err != nil {
			s.logger.Error("overlap check failed", "subscription_id", req.SubscriptionID, "error", err)
			result.AddError("system", domain.CodeValidationError,
				"could not check for overlapping freezes", domain.SeverityError)
			return result
		}
		noOverlap := len(overlapping) == 0
		result.AddRule(domain.RuleNoOverlappingFreezes, noOverlap)
		if !noOverlap {
			severity := domain.SeverityWarning
			if s.cfg.FreezeOverlapBlocking {
				severity = domain.SeverityError
			}
			result.AddError("start_date", domain.CodeOverlappingFreeze,
				"the requested window overlaps an existing freeze", severity)
		}
	}

	return result
}
