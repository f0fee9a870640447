// Package store defines the persistence port for the prediction engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and development).
//
// The engine treats storage as an injected dependency: every operation
// receives a Store and a context, and absence of a value is reported as
// ErrNotFound rather than a zero value, so lifecycle checks (admin unset,
// no active round, never-granted balance) stay explicit.
package store

import (
	"context"
	"errors"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// ErrNotFound is returned when a requested key has no value.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface.
type Store interface {
	// --- Roles ---

	// Admin returns the admin address, or ErrNotFound before initialization.
	Admin(ctx context.Context) (string, error)
	SetAdmin(ctx context.Context, addr string) error

	// Oracle returns the oracle address, or ErrNotFound before initialization.
	Oracle(ctx context.Context) (string, error)
	SetOracle(ctx context.Context, addr string) error

	// --- Window configuration ---

	// Windows returns the configured round windows, or ErrNotFound when the
	// admin never set them (callers fall back to model.DefaultWindows).
	Windows(ctx context.Context) (model.Windows, error)
	SetWindows(ctx context.Context, w model.Windows) error

	// --- Round lifecycle ---

	// ActiveRound returns the current round, or ErrNotFound when none.
	ActiveRound(ctx context.Context) (*model.Round, error)
	SetActiveRound(ctx context.Context, r *model.Round) error
	ClearActiveRound(ctx context.Context) error

	// LastRoundID returns the highest round id ever assigned, zero before
	// the first round.
	LastRoundID(ctx context.Context) (uint64, error)
	SetLastRoundID(ctx context.Context, id uint64) error

	// --- Balances ---

	// Balance returns the spendable balance, or ErrNotFound when the
	// address was never granted one.
	Balance(ctx context.Context, addr string) (int64, error)
	SetBalance(ctx context.Context, addr string, amount int64) error

	// --- Up/Down positions (current round only) ---

	Position(ctx context.Context, addr string) (*model.UserPosition, error)
	SetPosition(ctx context.Context, addr string, pos model.UserPosition) error
	Positions(ctx context.Context) (map[string]model.UserPosition, error)
	ClearPositions(ctx context.Context) error

	// --- Precision predictions (current round only) ---

	PrecisionPredictions(ctx context.Context) ([]model.PrecisionPrediction, error)
	AppendPrecisionPrediction(ctx context.Context, p model.PrecisionPrediction) error
	ClearPrecisionPredictions(ctx context.Context) error

	// --- Winnings and stats ---

	// PendingWinnings returns zero for addresses with nothing pending.
	PendingWinnings(ctx context.Context, addr string) (int64, error)
	SetPendingWinnings(ctx context.Context, addr string, amount int64) error
	ClearPendingWinnings(ctx context.Context, addr string) error

	// UserStats returns zero-valued stats for unseen addresses.
	UserStats(ctx context.Context, addr string) (model.UserStats, error)
	SetUserStats(ctx context.Context, addr string, s model.UserStats) error

	// --- Immutable settlement audit ---

	// InsertSettlement appends an immutable resolution record.
	InsertSettlement(ctx context.Context, s *model.Settlement) error

	// ListSettlements returns the most recent settlements, newest first.
	ListSettlements(ctx context.Context, limit int) ([]model.Settlement, error)
}
