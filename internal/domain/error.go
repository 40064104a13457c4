package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrForbidden          = errors.New("operation not allowed for this actor")

	// Subscription algebra
	ErrInvalidSubscriptionPurchase     = errors.New("subscription purchase has no duration")
	ErrNegativeQuantity                = errors.New("purchase quantity must be at least 1")
	ErrDurationRequiredForSubscription = errors.New("duration is required when a subscription type is set")
	ErrInvalidInterval                 = errors.New("interval end must be after its start")
	ErrCalendarOverflow                = errors.New("interval end overflows the calendar")

	// Payment protocol
	ErrMalformedNotification    = errors.New("malformed payment notification")
	ErrUnauthorizedNotification = errors.New("payment notification signature rejected")
	ErrForeignNotification      = errors.New("payment notification addressed to another terminal")
	ErrUnknownInvoice           = errors.New("payment notification references an unknown invoice")

	// Payment methods
	ErrBalanceMethodExists  = errors.New("a balance payment method already exists")
	ErrInsufficientBalance  = errors.New("balance would fall below the configured minimum")
	ErrBalanceAboveMaximum  = errors.New("balance would exceed the configured maximum")
	ErrPriceRejected        = errors.New("amount rejected by the payment method")
	ErrLedgerRejected       = errors.New("external ledger rejected the debit")
	ErrInvoiceAlreadyValid  = errors.New("invoice is already validated")
	ErrInvalidMethodSetting = errors.New("invalid payment method settings")

	// Concurrency
	ErrConflict = errors.New("concurrent modification, retry the operation")
)

// IsProtocolError reports whether err belongs to the gateway notification
// protocol class. Those errors are answered with a bare 400.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrMalformedNotification) ||
		errors.Is(err, ErrUnauthorizedNotification) ||
		errors.Is(err, ErrForeignNotification) ||
		errors.Is(err, ErrUnknownInvoice)
}

// IsValidationError reports whether err is caused by caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidSubscriptionPurchase) ||
		errors.Is(err, ErrNegativeQuantity) ||
		errors.Is(err, ErrDurationRequiredForSubscription) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrCalendarOverflow) ||
		errors.Is(err, ErrInvalidMethodSetting)
}

// IsRetryable reports whether the operation may succeed when retried as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
