package domain

import "errors"

// Initialization errors
var (
	ErrAlreadyInitialized   = errors.New("manager already initialized")
	ErrNotInitialized       = errors.New("manager not initialized")
	ErrMissingReference     = errors.New("required reference is missing")
	ErrLengthMismatch       = errors.New("input list lengths do not match")
	ErrWeightSumMismatch    = errors.New("core weights do not sum to 10000")
	ErrWeightOutOfBounds    = errors.New("weight outside allowed bounds")
	ErrImplementationReused = errors.New("implementation used more than once")
	ErrImplementationDenied = errors.New("implementation failed registry validation")
)

// Authorization errors
var (
	ErrNotFund         = errors.New("caller is not the fund")
	ErrNotManagerOwner = errors.New("caller is not the manager owner")
	ErrNotPendingOwner = errors.New("caller is not the pending manager owner")
)

// Parameter errors
var (
	ErrTiltOutOfRange     = errors.New("tilt outside [-maxTilt, +maxTilt]")
	ErrTiltStepExceeded   = errors.New("tilt change exceeds max step")
	ErrTiltSumNotZero     = errors.New("proposed tilts do not sum to zero")
	ErrBandOutOfRange     = errors.New("band outside governed range")
	ErrCooldownNotElapsed = errors.New("cooldown has not elapsed")
	ErrZeroArgument       = errors.New("argument must be nonzero")
)

// Invariant violations. These abort the whole operation and must never
// be silently tolerated.
var (
	ErrEffectiveWeightRange = errors.New("effective weight outside [0, 10000]")
	ErrWeightSumViolation   = errors.New("effective weights do not sum to 10000 after mutation")
)

// ErrReentrantCall is returned when a collaborator re-enters a manager
// operation that is still executing.
var ErrReentrantCall = errors.New("reentrant manager call rejected")
