package engine

import "errors"

// Sentinel errors for every failure mode of the engine. Callers dispatch
// with errors.Is; the HTTP layer maps these to status codes.
var (
	ErrAlreadyInitialized = errors.New("engine: already initialized")
	ErrAdminNotSet        = errors.New("engine: admin not set")
	ErrOracleNotSet       = errors.New("engine: oracle not set")

	ErrUnauthorizedAdmin  = errors.New("engine: caller is not the admin")
	ErrUnauthorizedOracle = errors.New("engine: caller is not the oracle")
	ErrUnauthorizedCaller = errors.New("engine: caller may not act for this address")

	ErrInvalidDuration = errors.New("engine: invalid window configuration")
	ErrInvalidPrice    = errors.New("engine: price must be positive")
	ErrWrongRoundMode  = errors.New("engine: operation does not match round mode")

	ErrRoundAlreadyActive = errors.New("engine: a round is already active")
	ErrNoActiveRound      = errors.New("engine: no active round")
	ErrRoundEnded         = errors.New("engine: betting window has closed")
	ErrRoundNotEnded      = errors.New("engine: round has not reached its end ledger")

	ErrInvalidBetAmount    = errors.New("engine: bet amount must be positive")
	ErrInsufficientBalance = errors.New("engine: insufficient balance")
	ErrAlreadyBet          = errors.New("engine: address already has a position this round")
)
