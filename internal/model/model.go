// Package model defines the core domain types shared across the prediction
// engine. All token amounts are int64 stroops (1 token = 10^7 stroops) with
// checked arithmetic — never float64 for money.
package model

import "time"

// StroopsPerToken is the smallest-unit scale: 1 token = 10^7 stroops,
// following the Stellar convention the price feed uses.
const StroopsPerToken int64 = 10_000_000

// InitialGrant is the one-time faucet amount for new users: 1000 tokens.
const InitialGrant int64 = 1000 * 10_000_000

// Mode selects how a round is scored at resolution.
type Mode string

const (
	// ModeUpDown settles on price direction: winners split the losing
	// pool pari-mutuel style.
	ModeUpDown Mode = "updown"

	// ModePrecision settles on closeness of each predicted price to the
	// final price.
	ModePrecision Mode = "precision"
)

// Valid reports whether m is a known round mode.
func (m Mode) Valid() bool {
	return m == ModeUpDown || m == ModePrecision
}

// BetSide is the direction of an Up/Down position.
type BetSide string

const (
	SideUp   BetSide = "up"
	SideDown BetSide = "down"
)

// Valid reports whether s is a known bet side.
func (s BetSide) Valid() bool {
	return s == SideUp || s == SideDown
}

// Windows configures round timing in ledger sequence numbers: betting
// closes BetLedgers after round start, resolution unlocks RunLedgers after
// round start. Invariant: 0 < BetLedgers < RunLedgers.
type Windows struct {
	BetLedgers uint32 `json:"bet_ledgers"`
	RunLedgers uint32 `json:"run_ledgers"`
}

// DefaultWindows applies when the admin never configured windows.
var DefaultWindows = Windows{BetLedgers: 6, RunLedgers: 12}

// Round is the single active prediction round. Created by the admin,
// destroyed by a successful resolution. Round ids start at 1, strictly
// increase, and are never reused.
type Round struct {
	RoundID      uint64 `json:"round_id"`
	Mode         Mode   `json:"mode"`
	PriceStart   uint64 `json:"price_start"` // stroops
	StartLedger  uint32 `json:"start_ledger"`
	BetEndLedger uint32 `json:"bet_end_ledger"`
	EndLedger    uint32 `json:"end_ledger"`
	PoolUp       int64  `json:"pool_up"`   // total staked on Up, stroops
	PoolDown     int64  `json:"pool_down"` // total staked on Down, stroops
}

// UserPosition is one address's stake in an Up/Down round. Immutable once
// placed; cleared only by round resolution.
type UserPosition struct {
	Amount int64   `json:"amount"` // stroops, > 0
	Side   BetSide `json:"side"`
}

// PrecisionPrediction is one address's exact-price guess in a Precision
// round.
type PrecisionPrediction struct {
	User           string `json:"user"`
	PredictedPrice uint64 `json:"predicted_price"` // stroops
	Amount         int64  `json:"amount"`          // stroops, > 0
}

// UserStats tracks win/loss counters and streaks across rounds.
type UserStats struct {
	TotalWins     uint32 `json:"total_wins"`
	TotalLosses   uint32 `json:"total_losses"`
	CurrentStreak uint32 `json:"current_streak"`
	BestStreak    uint32 `json:"best_streak"`
}

// OraclePayload is the settlement report submitted by the oracle. It is
// validated and consumed during resolution, never persisted.
type OraclePayload struct {
	Price     uint64 `json:"price"`     // final price in stroops
	Timestamp uint64 `json:"timestamp"` // unix seconds the report was produced
	RoundID   uint64 `json:"round_id"`  // round the report settles
}

// Settlement is an immutable audit record of one round resolution.
// Once written, these are never modified or deleted.
type Settlement struct {
	ID         string    `json:"id" db:"id"`
	RoundID    uint64    `json:"round_id" db:"round_id"`
	Mode       Mode      `json:"mode" db:"mode"`
	PriceStart uint64    `json:"price_start" db:"price_start"`
	PriceFinal uint64    `json:"price_final" db:"price_final"`
	PoolUp     int64     `json:"pool_up" db:"pool_up"`
	PoolDown   int64     `json:"pool_down" db:"pool_down"`
	TotalPaid  int64     `json:"total_paid" db:"total_paid"`
	Dust       int64     `json:"dust" db:"dust"` // truncation remainder left unallocated
	Winners    int       `json:"winners" db:"winners"`
	Losers     int       `json:"losers" db:"losers"`
	Refunded   bool      `json:"refunded" db:"refunded"`
	ResolvedAt uint32    `json:"resolved_at" db:"resolved_at"` // ledger sequence
	ResolvedTS time.Time `json:"resolved_ts" db:"resolved_ts"`
}
