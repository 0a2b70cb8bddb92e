package models

import "errors"

// Error classes surfaced to the shopper. Wrap them with fmt.Errorf("...: %w", ErrX).
var (
	ErrNetwork       = errors.New("network error")
	ErrValidation    = errors.New("validation error")
	ErrStateConflict = errors.New("state conflict")
	ErrGateway       = errors.New("gateway error")
	ErrNotFound      = errors.New("not found")
)

// Error kinds, used as metric labels and in API responses
const (
	KindNetwork       = "NetworkError"
	KindValidation    = "ValidationError"
	KindStateConflict = "StateConflict"
	KindGateway       = "GatewayError"
	KindNotFound      = "NotFound"
	KindInternal      = "Internal"
)

// KindOf maps err to its taxonomy name.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrGateway):
		return KindGateway
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
