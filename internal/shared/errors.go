package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates a row lookup returned nothing.
	ErrNotFound = errors.New("not found")
	// ErrRecordLocked is returned by stores when a write hits an approved payment.
	ErrRecordLocked = errors.New("record locked")
)

// ErrorKind classifies business rule violations.
type ErrorKind string

const (
	KindCalculationMismatch ErrorKind = "calculation_mismatch"
	KindPriceChanged        ErrorKind = "price_changed"
	KindPaymentExceedsOrder ErrorKind = "payment_exceeds_order"
	KindRecordImmutable     ErrorKind = "record_immutable"
	KindUnauthorizedRole    ErrorKind = "unauthorized_role"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindNotFound            ErrorKind = "not_found"
	KindValidation          ErrorKind = "validation"
	KindBusinessRule        ErrorKind = "business_rule"
)

// HTTPStatus returns the default response status for the kind.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindRecordImmutable, KindUnauthorizedRole:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

// BusinessError is an expected, user-facing rule violation. Fields holds the
// form-level error map: message lists keyed by field plus machine-readable details.
type BusinessError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]any
	Err     error
}

// Error implements error.
func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause.
func (e *BusinessError) Unwrap() error { return e.Err }

// Is matches any BusinessError of the same kind, so callers can write
// errors.Is(err, shared.ErrKind(shared.KindNotFound)).
func (e *BusinessError) Is(target error) bool {
	var t *BusinessError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus returns the response status for the error.
func (e *BusinessError) HTTPStatus() int { return e.Kind.HTTPStatus() }

// WithField adds a detail to the error map.
func (e *BusinessError) WithField(key string, value any) *BusinessError {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// WithCause records the underlying error.
func (e *BusinessError) WithCause(err error) *BusinessError {
	e.Err = err
	return e
}

// ErrKind returns a bare error of the given kind for use with errors.Is.
func ErrKind(kind ErrorKind) error { return &BusinessError{Kind: kind} }

// AsBusinessError unwraps err into a BusinessError.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsKind reports whether err carries a BusinessError of kind.
func IsKind(err error, kind ErrorKind) bool {
	be, ok := AsBusinessError(err)
	return ok && be.Kind == kind
}

func newBusinessError(kind ErrorKind, message string, fields map[string]any) *BusinessError {
	return &BusinessError{Kind: kind, Message: message, Fields: fields}
}

// ============================================================================
// CONSTRUCTORS
// ============================================================================

// NewCalculationMismatch reports a submitted total that disagrees with quantity x price.
func NewCalculationMismatch(expected, submitted, quantity, unitPrice decimal.Decimal) *BusinessError {
	msg := fmt.Sprintf("Total amount calculation is incorrect. Expected: %s, Submitted: %s",
		expected.StringFixed(2), submitted.StringFixed(2))
	return newBusinessError(KindCalculationMismatch, msg, map[string]any{
		"total_amount":    []string{msg},
		"expected_total":  expected.StringFixed(2),
		"submitted_total": submitted.StringFixed(2),
		"quantity":        quantity.StringFixed(2),
		"price_per_unit":  unitPrice.StringFixed(2),
	})
}

// NewPriceChanged reports a stale client-side brick price.
func NewPriceChanged(current, submitted decimal.Decimal) *BusinessError {
	msg := fmt.Sprintf("Brick price has changed from %s to %s. Please refresh and try again.",
		submitted.StringFixed(2), current.StringFixed(2))
	return newBusinessError(KindPriceChanged, msg, map[string]any{
		"brick_price":     []string{msg},
		"current_price":   current.StringFixed(2),
		"submitted_price": submitted.StringFixed(2),
	})
}

// NewPaymentExceedsOrder reports a received amount above the order total.
func NewPaymentExceedsOrder(orderTotal, attempted, alreadyReceived, remaining decimal.Decimal) *BusinessError {
	msg := fmt.Sprintf("Payment amount (%s) exceeds remaining order amount (%s)",
		attempted.StringFixed(2), remaining.StringFixed(2))
	return newBusinessError(KindPaymentExceedsOrder, msg, map[string]any{
		"amount_received":   []string{msg},
		"order_total":       orderTotal.StringFixed(2),
		"attempted_payment": attempted.StringFixed(2),
		"already_received":  alreadyReceived.StringFixed(2),
		"remaining_amount":  remaining.StringFixed(2),
	})
}

// NewRecordImmutable reports a mutation on a record whose status forbids it.
// field names the status column the client should highlight.
func NewRecordImmutable(message, field string) *BusinessError {
	if field == "" {
		field = "record_status"
	}
	return newBusinessError(KindRecordImmutable, message, map[string]any{
		field: []string{message},
	})
}

// NewApprovedPaymentLocked is the RecordImmutable variant for approved payments.
func NewApprovedPaymentLocked() *BusinessError {
	return NewRecordImmutable("Approved payment records cannot be modified", "payment_status")
}

// NewUnauthorizedRole reports an actor lacking every one of the required roles.
func NewUnauthorizedRole(actual Role, required ...Role) *BusinessError {
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}
	if len(names) == 1 {
		msg := fmt.Sprintf("This operation requires '%s' role. Current role: '%s'", names[0], actual)
		return newBusinessError(KindUnauthorizedRole, msg, map[string]any{
			"authorization": []string{msg},
			"required_role": names[0],
			"user_role":     string(actual),
		})
	}
	msg := fmt.Sprintf("This operation requires one of the following roles: %s. Current role: '%s'",
		strings.Join(names, ", "), actual)
	return newBusinessError(KindUnauthorizedRole, msg, map[string]any{
		"authorization":  []string{msg},
		"required_roles": names,
		"user_role":      string(actual),
	})
}

// NewInvalidTransition reports an illegal state change.
func NewInvalidTransition(field, from, to string) *BusinessError {
	msg := fmt.Sprintf("Cannot transition from %s to %s", from, to)
	return newBusinessError(KindInvalidTransition, msg, map[string]any{
		field:            []string{msg},
		"current_status": from,
		"target_status":  to,
	})
}

// NewNotFound reports a missing or filtered-out entity.
func NewNotFound(entity string, id any) *BusinessError {
	msg := fmt.Sprintf("%s not found", entity)
	return newBusinessError(KindNotFound, msg, map[string]any{
		"entity": entity,
		"id":     id,
	})
}

// NewValidation wraps field-level input errors.
func NewValidation(fields map[string][]string) *BusinessError {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return newBusinessError(KindValidation, "The given data was invalid", m)
}

// NewBusinessRule reports a generic rule violation against one field.
func NewBusinessRule(message, field string) *BusinessError {
	fields := map[string]any{}
	if field != "" {
		fields[field] = []string{message}
	}
	return newBusinessError(KindBusinessRule, message, fields)
}
