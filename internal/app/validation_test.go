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
	"github.com/therapyhub/freeze-service/internal/store"
)

type validationStoreStub struct {
	sub        *domain.Subscription
	subErr     error
	overlaps   []domain.FreezeRecord
	overlapErr error
}

func (s *validationStoreStub) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	if s.subErr != nil {
		return nil, s.subErr
	}
	return s.sub, nil
}

func (s *validationStoreStub) GetOverlappingFreezes(ctx context.Context, subscriptionID string, start, end time.Time) ([]domain.FreezeRecord, error) {
	if s.overlapErr != nil {
		return nil, s.overlapErr
	}
	return s.overlaps, nil
}

func testValidationConfig() config.Config {
	return config.Config{
		FreezeMaxDurationDays: 30,
		FreezeMinReasonLen:    10,
	}
}

func newTestValidator(st ValidationStore, cfg config.Config) *ValidationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewValidationService(st, cfg, logger)
}

func activeSubscription() *domain.Subscription {
	return &domain.Subscription{
		ID:                "sub-1",
		StudentID:         "student-1",
		ProgramID:         "prog-1",
		StartDate:         date(2024, 1, 1),
		EndDate:           date(2024, 12, 31),
		OriginalEndDate:   date(2024, 12, 31),
		FreezeDaysAllowed: 30,
		FreezeDaysUsed:    5,
		Status:            domain.SubscriptionStatusActive,
		IsActive:          true,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hasCode(result *domain.ValidationResult, code string) bool {
	for _, e := range result.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func ruleResult(result *domain.ValidationResult, name string) (bool, bool) {
	for _, r := range result.BusinessRules {
		if r.Name == name {
			return r.Passed, true
		}
	}
	return false, false
}

func TestValidateFreezeRequest_Passes(t *testing.T) {
	validator := newTestValidator(&validationStoreStub{sub: activeSubscription()}, testValidationConfig())

	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 16),
		Reason:         "family travel abroad",
		FreezeDays:     7,
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if !result.Valid || !result.CanProceed {
		t.Fatalf("expected request to pass, got valid=%v can_proceed=%v errors=%v", result.Valid, result.CanProceed, result.Errors)
	}
	for _, rule := range []string{domain.RuleSubscriptionFreezable, domain.RuleSufficientBalance, domain.RuleNoOverlappingFreezes} {
		passed, found := ruleResult(result, rule)
		if !found || !passed {
			t.Fatalf("expected rule %s to be recorded as passed", rule)
		}
	}
}

func TestValidateFreezeRequest_InsufficientBalance(t *testing.T) {
	validator := newTestValidator(&validationStoreStub{sub: activeSubscription()}, testValidationConfig())

	// 25 of 30 days remain; asking for 30 must fail.
	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 1),
		EndDate:        date(2024, 6, 30),
		Reason:         "extended medical leave",
		FreezeDays:     30,
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if result.CanProceed {
		t.Fatal("expected can_proceed=false for insufficient balance")
	}
	if !hasCode(result, domain.CodeInsufficientFreezeDays) {
		t.Fatalf("expected %s error, got %v", domain.CodeInsufficientFreezeDays, result.Errors)
	}
	if passed, _ := ruleResult(result, domain.RuleSufficientBalance); passed {
		t.Fatal("expected sufficient_freeze_balance rule to fail")
	}
}

func TestValidateFreezeRequest_InvalidRange(t *testing.T) {
	validator := newTestValidator(&validationStoreStub{sub: activeSubscription()}, testValidationConfig())

	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 5),
		Reason:         "scheduling mistake",
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if !hasCode(result, domain.CodeInvalidRange) {
		t.Fatalf("expected %s error, got %v", domain.CodeInvalidRange, result.Errors)
	}
}

func TestValidateFreezeRequest_CollectsAllViolations(t *testing.T) {
	sub := activeSubscription()
	sub.Status = domain.SubscriptionStatusCancelled
	validator := newTestValidator(&validationStoreStub{sub: sub}, testValidationConfig())

	// Inverted range, one-word reason, over-ceiling duration, bad status and
	// insufficient balance all at once: every violation must be reported.
	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 5),
		Reason:         "sick",
		FreezeDays:     40,
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if len(result.Errors) < 4 {
		t.Fatalf("expected at least 4 collected errors, got %d: %v", len(result.Errors), result.Errors)
	}
	for _, code := range []string{
		domain.CodeInvalidRange,
		domain.CodeReasonTooShort,
		domain.CodeDurationTooLong,
		domain.CodeInvalidStatus,
		domain.CodeInsufficientFreezeDays,
	} {
		if !hasCode(result, code) {
			t.Fatalf("expected error code %s in %v", code, result.Errors)
		}
	}
}

func TestValidateFreezeRequest_DaysMismatch(t *testing.T) {
	validator := newTestValidator(&validationStoreStub{sub: activeSubscription()}, testValidationConfig())

	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 16),
		Reason:         "family travel abroad",
		FreezeDays:     5, // range is 7 days inclusive
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if !hasCode(result, domain.CodeFreezeDaysMismatch) {
		t.Fatalf("expected %s error, got %v", domain.CodeFreezeDaysMismatch, result.Errors)
	}
}

func TestValidateFreezeRequest_OverlapIsAdvisoryByDefault(t *testing.T) {
	st := &validationStoreStub{
		sub: activeSubscription(),
		overlaps: []domain.FreezeRecord{{
			ID: "freeze-1", SubscriptionID: "sub-1",
			StartDate: date(2024, 6, 12), EndDate: date(2024, 6, 14), FreezeDays: 3,
		}},
	}
	validator := newTestValidator(st, testValidationConfig())

	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 16),
		Reason:         "family travel abroad",
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if passed, found := ruleResult(result, domain.RuleNoOverlappingFreezes); !found || passed {
		t.Fatal("expected no_overlapping_freezes rule to be recorded as failed")
	}
	if !result.CanProceed {
		t.Fatal("advisory overlap must not block can_proceed")
	}
}

func TestValidateFreezeRequest_OverlapBlocksWhenConfigured(t *testing.T) {
	st := &validationStoreStub{
		sub: activeSubscription(),
		overlaps: []domain.FreezeRecord{{
			ID: "freeze-1", SubscriptionID: "sub-1",
			StartDate: date(2024, 6, 12), EndDate: date(2024, 6, 14), FreezeDays: 3,
		}},
	}
	cfg := testValidationConfig()
	cfg.FreezeOverlapBlocking = true
	validator := newTestValidator(st, cfg)

	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 16),
		Reason:         "family travel abroad",
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if result.CanProceed {
		t.Fatal("expected blocking overlap to stop can_proceed")
	}
	if !hasCode(result, domain.CodeOverlappingFreeze) {
		t.Fatalf("expected %s error, got %v", domain.CodeOverlappingFreeze, result.Errors)
	}
}

func TestValidateFreezeRequest_StoreFailureFailsClosed(t *testing.T) {
	validator := newTestValidator(&validationStoreStub{subErr: errors.New("db unavailable")}, testValidationConfig())

	req := &domain.FreezeRequest{
		SubscriptionID: "sub-1",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 16),
		Reason:         "family travel abroad",
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if result.Valid || result.CanProceed {
		t.Fatal("expected fail-closed result on store failure")
	}
	if !hasCode(result, domain.CodeValidationError) {
		t.Fatalf("expected %s error, got %v", domain.CodeValidationError, result.Errors)
	}
}

func TestValidateFreezeRequest_SubscriptionNotFound(t *testing.T) {
	validator := newTestValidator(&validationStoreStub{subErr: store.ErrSubscriptionNotFound}, testValidationConfig())

	req := &domain.FreezeRequest{
		SubscriptionID: "missing",
		StartDate:      date(2024, 6, 10),
		EndDate:        date(2024, 6, 16),
		Reason:         "family travel abroad",
	}
	result := validator.ValidateFreezeRequest(context.Background(), req)

	if result.CanProceed {
		t.Fatal("expected can_proceed=false for unknown subscription")
	}
	if !hasCode(result, domain.CodeSubscriptionNotFound) {
		t.Fatalf("expected %s error, got %v", domain.CodeSubscriptionNotFound, result.Errors)
	}
}
