package ledger

import "errors"

// Sentinel errors returned by ledger operations. Callers match them with errors.Is.
var (
	// ErrInvalidInput is returned for malformed or out-of-range request data
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when no customer has the requested id
	ErrNotFound = errors.New("customer not found")

	// ErrDuplicateKey is returned when registering an id that already exists
	ErrDuplicateKey = errors.New("customer already exists")

	// ErrLimitReached is returned when granting coupons to a customer at the cap
	ErrLimitReached = errors.New("max coupons reached")

	// ErrInsufficientBalance is returned when consuming more coupons than available
	ErrInsufficientBalance = errors.New("insufficient coupon balance")

	// ErrStorageUnavailable wraps failures of the storage collaborator
	ErrStorageUnavailable = errors.New("storage unavailable")
)
