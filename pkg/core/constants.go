package core

import "errors"

// Errors
var (
	ErrNoOrderID         = errors.New("order has no assigned id")
	ErrWrongSide         = errors.New("order is on the wrong side")
	ErrNotPending        = errors.New("order is not in a pending state")
	ErrTerminalOrder     = errors.New("order is terminal")
	ErrAlreadyInit       = errors.New("order already initialized")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrNegativeInterest  = errors.New("interest would become negative")
	ErrIllegalTransition = errors.New("illegal market state transition")
	ErrMarketClosed      = errors.New("Market closed")
	ErrZeroVolumeUncross = errors.New("uncross invoked with zero resolved volume")
	ErrLevelNotCrossing  = errors.New("aggressing level does not cross resting level")
)
