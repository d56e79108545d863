// Package apperr defines the stable error kinds surfaced by the order core
// (spec §7). Every component returns one of these instead of a bare error
// so callers — the handlers package, and ultimately the query gateway —
// can branch on a kind without parsing messages.
package apperr

import "fmt"

// Kind is one of the error kinds named in spec §7.
type Kind string

const (
	KindAuthDenied               Kind = "auth_denied"
	KindNotFound                 Kind = "not_found"
	KindInvalidOrderData         Kind = "invalid_order_data"
	KindInventoryReservationFailed Kind = "inventory_reservation_failed"
	KindTimeoutRejected          Kind = "timeout_rejected"
	KindAlreadyCompensated       Kind = "already_compensated"
	KindExternalServiceError     Kind = "external_service_error"
	KindStorageError             Kind = "storage_error"
)

// Error is the typed error returned by every component.
type Error struct {
	Kind   Kind
	Entity string // e.g. "order", "user", "product_variant" — names the failing entity
	ID     string // the entity's id, if known
	Msg    string
	Cause  error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.ID, e.Msg)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Entity, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error.
func New(kind Kind, entity, id, msg string) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Msg: msg}
}

// Wrap constructs an *Error that carries an underlying cause.
func Wrap(kind Kind, entity, id string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Entity: entity, ID: id, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
// Unrecognized errors are reported as storage_error, the conservative
// default for an unexpected internal failure.
func KindOf(err error) Kind {
	var appErr *Error
	if asError(err, &appErr) {
		return appErr.Kind
	}
	return KindStorageError
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
