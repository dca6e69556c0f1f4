/**
 * @description
 * Structured validation output for freeze requests. Validation problems are
 * returned as data, never as errors, so the caller can render every violation
 * at once.
 */
package domain

// Severity levels for validation entries.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Machine-readable validation codes.
const (
	CodeInvalidRange           = "INVALID_RANGE"
	CodeInvalidStatus          = "INVALID_STATUS"
	CodeInsufficientFreezeDays = "INSUFFICIENT_FREEZE_DAYS"
	CodeReasonTooShort         = "TOO_SHORT"
	CodeDurationTooLong        = "TOO_LONG"
	CodeFreezeDaysMismatch     = "DAYS_MISMATCH"
	CodeSubscriptionNotFound   = "NOT_FOUND"
	CodeOverlappingFreeze      = "OVERLAPPING_FREEZE"
	CodeValidationError        = "VALIDATION_ERROR"
)

// Named business rules surfaced alongside field errors.
const (
	RuleNoOverlappingFreezes  = "no_overlapping_freezes"
	RuleSufficientBalance     = "sufficient_freeze_balance"
	RuleSubscriptionFreezable = "subscription_freezable"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// BusinessRule is a named rule evaluation surfaced for UI diagnostics,
// independent of whether it contributed a blocking error.
type BusinessRule struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// ValidationResult is the full outcome of validating one freeze request.
type ValidationResult struct {
	Valid         bool           `json:"valid"`
	Errors        []FieldError   `json:"errors"`
	CanProceed    bool           `json:"can_proceed"`
	BusinessRules []BusinessRule `json:"business_rules"`
}

// AddError appends a field error. Only error-severity entries mark the result
// invalid; warnings are advisory.
func (v *ValidationResult) AddError(field, code, message, severity string) {
	v.Errors = append(v.Errors, FieldError{
		Field:    field,
		Code:     code,
		Message:  message,
		Severity: severity,
	})
	if severity == SeverityError {
		v.Valid = false
	}
}

// AddRule records a named business-rule evaluation.
func (v *ValidationResult) AddRule(name string, passed bool) {
	v.BusinessRules = append(v.BusinessRules, BusinessRule{Name: name, Passed: passed})
}

// Finalize computes CanProceed: true only when no error-severity entries exist.
func (v *ValidationResult) Finalize() {
	for _, e := range v.Errors {
		if e.Severity == SeverityError {
			v.CanProceed = false
			return
		}
	}
	v.CanProceed = true
}
