package domain

import "errors"

// Settlement error taxonomy. Every failure is terminal and local: the
// operation aborts with no partial state change and reports one of these to
// the caller. The engine never retries.
var (
	ErrNotFound              = errors.New("market not found")
	ErrAlreadyInitialized    = errors.New("market already initialized")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrMarketResolved        = errors.New("market is resolved")
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrMarketNotResolved     = errors.New("market not resolved")
	ErrMarketExpired         = errors.New("market trading window closed")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidOutcome        = errors.New("invalid outcome")
	ErrInvalidDuration       = errors.New("market end time must be in the future")
	ErrQuestionTooLong       = errors.New("question too long")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrUnbalancedPool        = errors.New("unbalanced pool")
	ErrNothingToClaim        = errors.New("nothing to claim")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrAddressMismatch       = errors.New("address does not match derivation")
	ErrLockHeld              = errors.New("lock already held")
)
