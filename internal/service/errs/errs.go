package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Transports map kinds to their own status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindImmutableOrderState
	KindServiceUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindImmutableOrderState:
		return "IMMUTABLE_ORDER_STATE"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// Reason narrows a kind down to a concrete domain condition.
type Reason string

const (
	ReasonCustomerNotFound      Reason = "CUSTOMER_NOT_FOUND"
	ReasonProductNotFound       Reason = "PRODUCT_NOT_FOUND"
	ReasonOrderNotFound         Reason = "ORDER_NOT_FOUND"
	ReasonInsufficientInventory Reason = "INSUFFICIENT_INVENTORY"
	ReasonInvalidTransition     Reason = "INVALID_TRANSITION"
	ReasonDuplicateEmail        Reason = "DUPLICATE_EMAIL"
	ReasonCustomerHasOrders     Reason = "CUSTOMER_HAS_ORDERS"
	ReasonProductInUse          Reason = "PRODUCT_IN_USE"
	ReasonStaleOrderState       Reason = "STALE_ORDER_STATE"
)

// Error is a typed domain error.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and, when the target carries one, by reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

var (
	ErrCustomerNotFound = &Error{
		Kind: KindNotFound, Reason: ReasonCustomerNotFound, Message: "customer not found",
	}
	ErrProductNotFound = &Error{
		Kind: KindNotFound, Reason: ReasonProductNotFound, Message: "product not found",
	}
	ErrOrderNotFound = &Error{
		Kind: KindNotFound, Reason: ReasonOrderNotFound, Message: "order not found",
	}
	ErrInsufficientInventory = &Error{
		Kind: KindConflict, Reason: ReasonInsufficientInventory, Message: "insufficient inventory",
	}
	ErrInvalidTransition = &Error{
		Kind: KindConflict, Reason: ReasonInvalidTransition, Message: "invalid order status transition",
	}
	ErrDuplicateEmail = &Error{
		Kind: KindConflict, Reason: ReasonDuplicateEmail, Message: "email is already registered",
	}
	ErrCustomerHasOrders = &Error{
		Kind: KindConflict, Reason: ReasonCustomerHasOrders, Message: "customer has existing orders",
	}
	ErrProductInUse = &Error{
		Kind: KindConflict, Reason: ReasonProductInUse, Message: "product is referenced by active orders",
	}
	ErrStaleOrderState = &Error{
		Kind: KindConflict, Reason: ReasonStaleOrderState, Message: "order was modified concurrently",
	}
	ErrImmutableOrderState = &Error{
		Kind: KindImmutableOrderState, Message: "order can no longer be modified",
	}
)

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps an upstream provider failure.
func Unavailable(service string, err error) *Error {
	return &Error{
		Kind:    KindServiceUnavailable,
		Message: service + " is unavailable",
		Err:     err,
	}
}

// InvalidTransition describes a rejected status change. It matches ErrInvalidTransition.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindConflict,
		Reason:  ReasonInvalidTransition,
		Message: fmt.Sprintf("cannot change order status from %s to %s", from, to),
	}
}

// Immutable returns ErrImmutableOrderState with a more specific message.
func Immutable(msg string) *Error {
	return &Error{Kind: KindImmutableOrderState, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// ReasonOf returns the reason of the first *Error in err's chain.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}

	return ""
}

// MessageOf returns a client-safe message for err. Internal errors are redacted.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}

	return "internal server error"
}
