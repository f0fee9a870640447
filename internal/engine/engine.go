// Package engine implements the prediction round lifecycle: initialization,
// round creation, betting, oracle-driven resolution, and winnings claims.
//
// Every mutating operation validates and computes its full outcome before
// the first storage write, so a typed failure never leaves partial state
// behind. Operations are serialized with a mutex; there is at most one
// active round, so a single writer is the correct concurrency model.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Josue19-08/Xelma-Blockchain/internal/address"
	"github.com/Josue19-08/Xelma-Blockchain/internal/auth"
	"github.com/Josue19-08/Xelma-Blockchain/internal/ledger"
	"github.com/Josue19-08/Xelma-Blockchain/internal/metrics"
	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
	"github.com/Josue19-08/Xelma-Blockchain/internal/oracle"
	"github.com/Josue19-08/Xelma-Blockchain/internal/payout"
	"github.com/Josue19-08/Xelma-Blockchain/internal/stats"
	"github.com/Josue19-08/Xelma-Blockchain/internal/store"
)

// Events receives notifications after state changes commit. The HTTP layer
// fans these out to WebSocket subscribers.
type Events interface {
	RoundCreated(r model.Round)
	BetPlaced(roundID uint64, user string, side string, amount int64)
	RoundResolved(s model.Settlement)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) RoundCreated(model.Round)             {}
func (NopEvents) BetPlaced(uint64, string, string, int64) {}
func (NopEvents) RoundResolved(model.Settlement)       {}

// Engine coordinates the prediction market. All state lives in the Store;
// the Engine holds only its collaborators.
type Engine struct {
	mu        sync.Mutex
	store     store.Store
	clock     ledger.Clock
	auth      auth.Authorizer
	validator *oracle.Validator
	events    Events
	log       *slog.Logger
}

// New creates an Engine. A nil events sink and a nil logger are replaced
// with no-op defaults.
func New(st store.Store, clock ledger.Clock, authz auth.Authorizer, validator *oracle.Validator, events Events, log *slog.Logger) *Engine {
	if events == nil {
		events = NopEvents{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:     st,
		clock:     clock,
		auth:      authz,
		validator: validator,
		events:    events,
		log:       log,
	}
}

// Initialize records the admin and oracle addresses. It can run exactly
// once; re-initialization is rejected so the roles cannot be hijacked.
func (e *Engine) Initialize(ctx context.Context, admin, oracleAddr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := address.Validate(admin); err != nil {
		return err
	}
	if err := address.Validate(oracleAddr); err != nil {
		return err
	}

	if _, err := e.store.Admin(ctx); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := e.store.SetAdmin(ctx, admin); err != nil {
		return err
	}
	if err := e.store.SetOracle(ctx, oracleAddr); err != nil {
		return err
	}

	e.log.Info("engine initialized", "admin", admin, "oracle", oracleAddr)
	return nil
}

// SetWindows configures round timing. Admin only. Both windows must be
// positive and the betting window strictly shorter than the run window.
func (e *Engine) SetWindows(ctx context.Context, w model.Windows) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(ctx); err != nil {
		return err
	}
	if w.BetLedgers == 0 || w.RunLedgers == 0 || w.BetLedgers >= w.RunLedgers {
		return ErrInvalidDuration
	}
	if err := e.store.SetWindows(ctx, w); err != nil {
		return err
	}
	e.log.Info("round windows updated", "bet_ledgers", w.BetLedgers, "run_ledgers", w.RunLedgers)
	return nil
}

// CreateRound opens a new round. Admin only; fails while another round is
// active. Round ids are assigned from a strictly increasing counter and
// never reused, even if a later write fails.
func (e *Engine) CreateRound(ctx context.Context, mode model.Mode, priceStart uint64) (*model.Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, ErrWrongRoundMode
	}
	if priceStart == 0 {
		return nil, ErrInvalidPrice
	}

	if _, err := e.store.ActiveRound(ctx); err == nil {
		return nil, ErrRoundAlreadyActive
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	w, err := e.windows(ctx)
	if err != nil {
		return nil, err
	}
	lastID, err := e.store.LastRoundID(ctx)
	if err != nil {
		return nil, err
	}

	seq := e.clock.Sequence()
	round := model.Round{
		RoundID:      lastID + 1,
		Mode:         mode,
		PriceStart:   priceStart,
		StartLedger:  seq,
		BetEndLedger: satAddLedger(seq, w.BetLedgers),
		EndLedger:    satAddLedger(seq, w.RunLedgers),
	}

	// Counter first: a failed round write burns the id rather than reuse it.
	if err := e.store.SetLastRoundID(ctx, round.RoundID); err != nil {
		return nil, err
	}
	if err := e.store.SetActiveRound(ctx, &round); err != nil {
		return nil, err
	}

	metrics.RoundsCreated.WithLabelValues(string(mode)).Inc()
	e.events.RoundCreated(round)
	e.log.Info("round created",
		"round_id", round.RoundID,
		"mode", mode,
		"price_start", priceStart,
		"bet_end", round.BetEndLedger,
		"end", round.EndLedger)
	return &round, nil
}

// PlaceBet stakes amount on a direction in the active Up/Down round.
// One position per address per round; the stake is deducted immediately.
func (e *Engine) PlaceBet(ctx context.Context, user string, side model.BetSide, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireCaller(ctx, user); err != nil {
		return err
	}
	if amount <= 0 || !side.Valid() {
		return ErrInvalidBetAmount
	}

	round, err := e.activeRound(ctx)
	if err != nil {
		return err
	}
	if round.Mode != model.ModeUpDown {
		return ErrWrongRoundMode
	}
	if e.clock.Sequence() >= round.BetEndLedger {
		return ErrRoundEnded
	}

	if _, err := e.store.Position(ctx, user); err == nil {
		return ErrAlreadyBet
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	balance, err := e.spendable(ctx, user)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	newBalance, err := payout.CheckedSub(balance, amount)
	if err != nil {
		return err
	}

	updated := *round
	switch side {
	case model.SideUp:
		updated.PoolUp, err = payout.CheckedAdd(round.PoolUp, amount)
	case model.SideDown:
		updated.PoolDown, err = payout.CheckedAdd(round.PoolDown, amount)
	}
	if err != nil {
		return err
	}

	if err := e.store.SetBalance(ctx, user, newBalance); err != nil {
		return err
	}
	if err := e.store.SetPosition(ctx, user, model.UserPosition{Amount: amount, Side: side}); err != nil {
		return err
	}
	if err := e.store.SetActiveRound(ctx, &updated); err != nil {
		return err
	}

	metrics.BetsPlaced.WithLabelValues(string(side)).Inc()
	metrics.StakedStroops.Add(float64(amount))
	e.events.BetPlaced(round.RoundID, user, string(side), amount)
	e.log.Info("bet placed", "round_id", round.RoundID, "user", user, "side", side, "amount", amount)
	return nil
}

// PlacePrecisionPrediction stakes amount on an exact final price in the
// active Precision round. One prediction per address per round.
func (e *Engine) PlacePrecisionPrediction(ctx context.Context, user string, predictedPrice uint64, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireCaller(ctx, user); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidBetAmount
	}
	if predictedPrice == 0 {
		return ErrInvalidPrice
	}

	round, err := e.activeRound(ctx)
	if err != nil {
		return err
	}
	if round.Mode != model.ModePrecision {
		return ErrWrongRoundMode
	}
	if e.clock.Sequence() >= round.BetEndLedger {
		return ErrRoundEnded
	}

	preds, err := e.store.PrecisionPredictions(ctx)
	if err != nil {
		return err
	}
	for _, p := range preds {
		if p.User == user {
			return ErrAlreadyBet
		}
	}

	balance, err := e.spendable(ctx, user)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	newBalance, err := payout.CheckedSub(balance, amount)
	if err != nil {
		return err
	}

	if err := e.store.SetBalance(ctx, user, newBalance); err != nil {
		return err
	}
	if err := e.store.AppendPrecisionPrediction(ctx, model.PrecisionPrediction{
		User:           user,
		PredictedPrice: predictedPrice,
		Amount:         amount,
	}); err != nil {
		return err
	}

	metrics.BetsPlaced.WithLabelValues("precision").Inc()
	metrics.StakedStroops.Add(float64(amount))
	e.events.BetPlaced(round.RoundID, user, "precision", amount)
	e.log.Info("precision prediction placed",
		"round_id", round.RoundID, "user", user, "predicted_price", predictedPrice, "amount", amount)
	return nil
}

// resolution is the fully computed outcome of a round, staged before any
// write happens.
type resolution struct {
	awards    []payout.Award
	scored    bool // false for refunds and void rounds: no stats recorded
	refunded  bool
	pot       int64
	totalPaid int64
}

// ResolveRound settles the active round with an oracle report. Oracle only.
// The report must bind to the active round, be fresh, and carry a positive
// price. On success the round and its positions are destroyed, winnings
// are credited to pending balances, stats are updated, and an immutable
// settlement record is written.
func (e *Engine) ResolveRound(ctx context.Context, payload model.OraclePayload) (*model.Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOracle(ctx); err != nil {
		return nil, err
	}
	round, err := e.activeRound(ctx)
	if err != nil {
		return nil, err
	}
	seq := e.clock.Sequence()
	if seq < round.EndLedger {
		return nil, ErrRoundNotEnded
	}
	if err := e.validator.Validate(payload, round.RoundID, e.clock.Timestamp()); err != nil {
		return nil, err
	}

	var res resolution
	switch round.Mode {
	case model.ModeUpDown:
		res, err = e.resolveUpDown(ctx, round, payload.Price)
	case model.ModePrecision:
		res, err = e.resolvePrecision(ctx, payload.Price)
	default:
		err = ErrWrongRoundMode
	}
	if err != nil {
		return nil, err
	}

	// Stage every ledger mutation before the first write.
	type credit struct {
		user    string
		pending int64
	}
	type statUpdate struct {
		user  string
		stats model.UserStats
	}
	var credits []credit
	var statUpdates []statUpdate

	winners, losers := 0, 0
	for _, a := range res.awards {
		if a.Amount > 0 {
			pending, err := e.store.PendingWinnings(ctx, a.User)
			if err != nil {
				return nil, err
			}
			total, err := payout.CheckedAdd(pending, a.Amount)
			if err != nil {
				return nil, err
			}
			credits = append(credits, credit{user: a.User, pending: total})
		}
		if res.scored {
			s, err := e.store.UserStats(ctx, a.User)
			if err != nil {
				return nil, err
			}
			statUpdates = append(statUpdates, statUpdate{user: a.User, stats: stats.Apply(s, a.Won)})
			if a.Won {
				winners++
			} else {
				losers++
			}
		}
	}

	dust := res.pot - res.totalPaid

	settlement := model.Settlement{
		ID:         uuid.NewString(),
		RoundID:    round.RoundID,
		Mode:       round.Mode,
		PriceStart: round.PriceStart,
		PriceFinal: payload.Price,
		PoolUp:     round.PoolUp,
		PoolDown:   round.PoolDown,
		TotalPaid:  res.totalPaid,
		Dust:       dust,
		Winners:    winners,
		Losers:     losers,
		Refunded:   res.refunded,
		ResolvedAt: seq,
		ResolvedTS: time.Unix(int64(e.clock.Timestamp()), 0).UTC(),
	}

	for _, c := range credits {
		if err := e.store.SetPendingWinnings(ctx, c.user, c.pending); err != nil {
			return nil, err
		}
	}
	for _, u := range statUpdates {
		if err := e.store.SetUserStats(ctx, u.user, u.stats); err != nil {
			return nil, err
		}
	}
	if err := e.store.InsertSettlement(ctx, &settlement); err != nil {
		return nil, err
	}
	if err := e.store.ClearPositions(ctx); err != nil {
		return nil, err
	}
	if err := e.store.ClearPrecisionPredictions(ctx); err != nil {
		return nil, err
	}
	if err := e.store.ClearActiveRound(ctx); err != nil {
		return nil, err
	}

	outcome := "paid"
	switch {
	case res.refunded:
		outcome = "refunded"
	case len(res.awards) == 0:
		outcome = "void"
	}
	metrics.RoundsResolved.WithLabelValues(string(round.Mode), outcome).Inc()
	metrics.PaidStroops.Add(float64(res.totalPaid))
	metrics.DustStroops.Add(float64(dust))
	e.events.RoundResolved(settlement)
	e.log.Info("round resolved",
		"round_id", round.RoundID,
		"mode", round.Mode,
		"outcome", outcome,
		"price_final", payload.Price,
		"total_paid", res.totalPaid,
		"dust", dust,
		"winners", winners,
		"losers", losers)
	return &settlement, nil
}

func (e *Engine) resolveUpDown(ctx context.Context, round *model.Round, finalPrice uint64) (resolution, error) {
	positions, err := e.store.Positions(ctx)
	if err != nil {
		return resolution{}, err
	}
	pot, err := payout.CheckedAdd(round.PoolUp, round.PoolDown)
	if err != nil {
		return resolution{}, err
	}

	// Unchanged price: everyone gets their stake back, nothing is scored.
	if finalPrice == round.PriceStart {
		awards := payout.Refunds(positions)
		total, err := payout.Total(awards)
		if err != nil {
			return resolution{}, err
		}
		return resolution{awards: awards, refunded: true, pot: pot, totalPaid: total}, nil
	}

	winningSide := model.SideDown
	winningPool, losingPool := round.PoolDown, round.PoolUp
	if finalPrice > round.PriceStart {
		winningSide = model.SideUp
		winningPool, losingPool = round.PoolUp, round.PoolDown
	}

	awards, err := payout.UpDown(positions, winningSide, winningPool, losingPool)
	if err != nil {
		return resolution{}, err
	}
	total, err := payout.Total(awards)
	if err != nil {
		return resolution{}, err
	}
	// An empty winning pool yields no awards: nobody is paid and nothing
	// is scored, the stakes stay in the house.
	return resolution{awards: awards, scored: len(awards) > 0, pot: pot, totalPaid: total}, nil
}

func (e *Engine) resolvePrecision(ctx context.Context, finalPrice uint64) (resolution, error) {
	preds, err := e.store.PrecisionPredictions(ctx)
	if err != nil {
		return resolution{}, err
	}
	awards, pot, refunded, err := payout.Precision(preds, finalPrice)
	if err != nil {
		return resolution{}, err
	}
	total, err := payout.Total(awards)
	if err != nil {
		return resolution{}, err
	}
	return resolution{
		awards:    awards,
		scored:    !refunded && len(awards) > 0,
		refunded:  refunded,
		pot:       pot,
		totalPaid: total,
	}, nil
}

// ClaimWinnings moves the caller's pending winnings into their spendable
// balance. Claiming with nothing pending is a harmless no-op, so the
// operation is idempotent.
func (e *Engine) ClaimWinnings(ctx context.Context, user string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireCaller(ctx, user); err != nil {
		return 0, err
	}

	pending, err := e.store.PendingWinnings(ctx, user)
	if err != nil {
		return 0, err
	}
	if pending == 0 {
		return 0, nil
	}

	balance, err := e.spendable(ctx, user)
	if err != nil {
		return 0, err
	}
	newBalance, err := payout.CheckedAdd(balance, pending)
	if err != nil {
		return 0, err
	}

	if err := e.store.SetBalance(ctx, user, newBalance); err != nil {
		return 0, err
	}
	if err := e.store.ClearPendingWinnings(ctx, user); err != nil {
		return 0, err
	}

	metrics.ClaimsTotal.Inc()
	e.log.Info("winnings claimed", "user", user, "amount", pending)
	return pending, nil
}

// MintInitial grants the one-time starting balance to a new address.
// Repeat calls are no-ops and report minted=false.
func (e *Engine) MintInitial(ctx context.Context, user string) (balance int64, minted bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireCaller(ctx, user); err != nil {
		return 0, false, err
	}

	current, err := e.store.Balance(ctx, user)
	if err == nil {
		return current, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, false, err
	}

	if err := e.store.SetBalance(ctx, user, model.InitialGrant); err != nil {
		return 0, false, err
	}
	e.log.Info("initial grant minted", "user", user, "amount", model.InitialGrant)
	return model.InitialGrant, true, nil
}

// --- Read views ---

// ActiveRound returns the current round, or ErrNoActiveRound.
func (e *Engine) ActiveRound(ctx context.Context) (*model.Round, error) {
	return e.activeRound(ctx)
}

// LastRoundID returns the highest round id assigned so far, zero before
// the first round.
func (e *Engine) LastRoundID(ctx context.Context) (uint64, error) {
	return e.store.LastRoundID(ctx)
}

// Admin returns the admin address, or ErrAdminNotSet before initialization.
func (e *Engine) Admin(ctx context.Context) (string, error) {
	admin, err := e.store.Admin(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrAdminNotSet
	}
	return admin, err
}

// Oracle returns the oracle address, or ErrOracleNotSet before
// initialization.
func (e *Engine) Oracle(ctx context.Context) (string, error) {
	addr, err := e.store.Oracle(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrOracleNotSet
	}
	return addr, err
}

// Windows returns the effective round windows, falling back to the
// defaults when never configured.
func (e *Engine) Windows(ctx context.Context) (model.Windows, error) {
	return e.windows(ctx)
}

// Balance returns the spendable balance; addresses never seen have zero.
func (e *Engine) Balance(ctx context.Context, user string) (int64, error) {
	if err := address.Validate(user); err != nil {
		return 0, err
	}
	return e.spendable(ctx, user)
}

// Position returns the caller's stake in the active Up/Down round, or
// store.ErrNotFound when none.
func (e *Engine) Position(ctx context.Context, user string) (*model.UserPosition, error) {
	if err := address.Validate(user); err != nil {
		return nil, err
	}
	return e.store.Position(ctx, user)
}

// PendingWinnings returns the unclaimed winnings for an address.
func (e *Engine) PendingWinnings(ctx context.Context, user string) (int64, error) {
	if err := address.Validate(user); err != nil {
		return 0, err
	}
	return e.store.PendingWinnings(ctx, user)
}

// Stats returns the win/loss record for an address; unseen addresses
// have zero-valued stats.
func (e *Engine) Stats(ctx context.Context, user string) (model.UserStats, error) {
	if err := address.Validate(user); err != nil {
		return model.UserStats{}, err
	}
	return e.store.UserStats(ctx, user)
}

// Settlements returns the most recent settlement records, newest first.
func (e *Engine) Settlements(ctx context.Context, limit int) ([]model.Settlement, error) {
	return e.store.ListSettlements(ctx, limit)
}

// --- Helpers ---

func (e *Engine) requireAdmin(ctx context.Context) error {
	admin, err := e.store.Admin(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAdminNotSet
	}
	if err != nil {
		return err
	}
	if !e.auth.Authorized(ctx, admin) {
		return ErrUnauthorizedAdmin
	}
	return nil
}

func (e *Engine) requireOracle(ctx context.Context) error {
	addr, err := e.store.Oracle(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOracleNotSet
	}
	if err != nil {
		return err
	}
	if !e.auth.Authorized(ctx, addr) {
		return ErrUnauthorizedOracle
	}
	return nil
}

func (e *Engine) requireCaller(ctx context.Context, user string) error {
	if err := address.Validate(user); err != nil {
		return err
	}
	if !e.auth.Authorized(ctx, user) {
		return ErrUnauthorizedCaller
	}
	return nil
}

func (e *Engine) activeRound(ctx context.Context) (*model.Round, error) {
	round, err := e.store.ActiveRound(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveRound
	}
	return round, err
}

func (e *Engine) windows(ctx context.Context) (model.Windows, error) {
	w, err := e.store.Windows(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultWindows, nil
	}
	return w, err
}

// spendable returns the balance, treating a never-granted address as zero.
func (e *Engine) spendable(ctx context.Context, user string) (int64, error) {
	balance, err := e.store.Balance(ctx, user)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	return balance, err
}

// satAddLedger saturates at the sequence ceiling so a round created near
// it never wraps into an end ledger before its start.
func satAddLedger(seq, window uint32) uint32 {
	if sum := seq + window; sum >= seq {
		return sum
	}
	return math.MaxUint32
}
