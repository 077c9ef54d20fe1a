package inventory

import "errors"

var (
	// ErrInvalidReservation marks a reservation request with a missing item or a non-positive quantity.
	ErrInvalidReservation = errors.New("invalid reservation")
	// ErrStoreUnavailable marks a failed or timed-out call to the stock store.
	ErrStoreUnavailable = errors.New("stock store unavailable")
	// ErrMalformedEvent marks an order event whose body cannot be decoded.
	ErrMalformedEvent = errors.New("malformed order event")
)
