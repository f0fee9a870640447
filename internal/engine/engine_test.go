package engine_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/Josue19-08/Xelma-Blockchain/internal/address"
	"github.com/Josue19-08/Xelma-Blockchain/internal/auth"
	"github.com/Josue19-08/Xelma-Blockchain/internal/engine"
	"github.com/Josue19-08/Xelma-Blockchain/internal/ledger"
	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
	"github.com/Josue19-08/Xelma-Blockchain/internal/oracle"
	"github.com/Josue19-08/Xelma-Blockchain/internal/store"
)

const ledgerTime = uint64(1_700_000_000)

// addr builds a well-formed account address from a repeated base32 char.
func addr(c byte) string {
	return "G" + strings.Repeat(string(c), 55)
}

var (
	adminAddr  = addr('D')
	oracleAddr = addr('O')
	alice      = addr('A')
	bob        = addr('B')
	charlie    = addr('C')
)

type env struct {
	eng   *engine.Engine
	st    *store.MemoryStore
	clock *ledger.ManualClock
	ctx   context.Context
}

// newEnv creates an engine over the in-memory store with a manual ledger
// clock and permissive auth.
func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemoryStore()
	clock := ledger.NewManualClock(0, ledgerTime)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(st, clock, auth.AllowAll{}, oracle.NewValidator(0), nil, logger)
	return &env{eng: eng, st: st, clock: clock, ctx: context.Background()}
}

func (e *env) initialize(t *testing.T) {
	t.Helper()
	if err := e.eng.Initialize(e.ctx, adminAddr, oracleAddr); err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (e *env) mint(t *testing.T, users ...string) {
	t.Helper()
	for _, u := range users {
		if _, _, err := e.eng.MintInitial(e.ctx, u); err != nil {
			t.Fatalf("mint %s: %v", u, err)
		}
	}
}

func (e *env) bet(t *testing.T, user string, side model.BetSide, amount int64) {
	t.Helper()
	if err := e.eng.PlaceBet(e.ctx, user, side, amount); err != nil {
		t.Fatalf("bet %s: %v", user, err)
	}
}

func (e *env) predict(t *testing.T, user string, price uint64, amount int64) {
	t.Helper()
	if err := e.eng.PlacePrecisionPrediction(e.ctx, user, price, amount); err != nil {
		t.Fatalf("predict %s: %v", user, err)
	}
}

func (e *env) createRound(t *testing.T, mode model.Mode, priceStart uint64) *model.Round {
	t.Helper()
	round, err := e.eng.CreateRound(e.ctx, mode, priceStart)
	if err != nil {
		t.Fatalf("create round: %v", err)
	}
	return round
}

// resolve advances the clock to the round's end ledger and settles it with
// a fresh, correctly bound oracle report.
func (e *env) resolve(t *testing.T, priceFinal uint64) *model.Settlement {
	t.Helper()
	round, err := e.eng.ActiveRound(e.ctx)
	if err != nil {
		t.Fatalf("active round: %v", err)
	}
	e.clock.SetSequence(round.EndLedger)
	s, err := e.eng.ResolveRound(e.ctx, model.OraclePayload{
		Price:     priceFinal,
		Timestamp: ledgerTime,
		RoundID:   round.RoundID,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return s
}

func (e *env) pending(t *testing.T, user string) int64 {
	t.Helper()
	p, err := e.eng.PendingWinnings(e.ctx, user)
	if err != nil {
		t.Fatalf("pending %s: %v", user, err)
	}
	return p
}

func (e *env) stats(t *testing.T, user string) model.UserStats {
	t.Helper()
	s, err := e.eng.Stats(e.ctx, user)
	if err != nil {
		t.Fatalf("stats %s: %v", user, err)
	}
	return s
}

// --- Initialization ---

func TestInitialize_Once(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)

	err := e.eng.Initialize(e.ctx, adminAddr, oracleAddr)
	if !errors.Is(err, engine.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitialize_InvalidAddress(t *testing.T) {
	e := newEnv(t)
	err := e.eng.Initialize(e.ctx, "not-an-address", oracleAddr)
	if !errors.Is(err, address.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	// A failed initialize must not partially set the roles.
	if _, err := e.eng.Admin(e.ctx); !errors.Is(err, engine.ErrAdminNotSet) {
		t.Errorf("expected ErrAdminNotSet, got %v", err)
	}
}

func TestUninitializedEngine_RejectsAdminOps(t *testing.T) {
	e := newEnv(t)
	_, err := e.eng.CreateRound(e.ctx, model.ModeUpDown, 1000)
	if !errors.Is(err, engine.ErrAdminNotSet) {
		t.Errorf("expected ErrAdminNotSet, got %v", err)
	}
}

// --- Faucet ---

func TestMintInitial_Idempotent(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)

	balance, minted, err := e.eng.MintInitial(e.ctx, alice)
	if err != nil || !minted || balance != model.InitialGrant {
		t.Fatalf("first mint: got (%d, %v, %v)", balance, minted, err)
	}

	balance, minted, err = e.eng.MintInitial(e.ctx, alice)
	if err != nil || minted || balance != model.InitialGrant {
		t.Fatalf("second mint must be a no-op: got (%d, %v, %v)", balance, minted, err)
	}
}

func TestMintInitial_NeverTopsUp(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	e.createRound(t, model.ModeUpDown, 1000)

	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	balance, minted, err := e.eng.MintInitial(e.ctx, alice)
	if err != nil || minted {
		t.Fatalf("re-mint after spending: got (%v, %v)", minted, err)
	}
	if balance != model.InitialGrant-100 {
		t.Errorf("expected spent balance %d, got %d", model.InitialGrant-100, balance)
	}
}

// --- Windows ---

func TestSetWindows_Validation(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)

	cases := []model.Windows{
		{BetLedgers: 0, RunLedgers: 12},
		{BetLedgers: 6, RunLedgers: 0},
		{BetLedgers: 12, RunLedgers: 12},
		{BetLedgers: 13, RunLedgers: 12},
	}
	for _, w := range cases {
		if err := e.eng.SetWindows(e.ctx, w); !errors.Is(err, engine.ErrInvalidDuration) {
			t.Errorf("%+v: expected ErrInvalidDuration, got %v", w, err)
		}
	}
}

func TestSetWindows_AppliesToNextRound(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)

	if err := e.eng.SetWindows(e.ctx, model.Windows{BetLedgers: 2, RunLedgers: 4}); err != nil {
		t.Fatalf("set windows: %v", err)
	}
	e.clock.SetSequence(10)
	round := e.createRound(t, model.ModeUpDown, 1000)
	if round.BetEndLedger != 12 || round.EndLedger != 14 {
		t.Errorf("expected windows (12, 14), got (%d, %d)", round.BetEndLedger, round.EndLedger)
	}
}

func TestDefaultWindows(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)

	round := e.createRound(t, model.ModeUpDown, 1000)
	if round.BetEndLedger != 6 || round.EndLedger != 12 {
		t.Errorf("expected default windows (6, 12), got (%d, %d)", round.BetEndLedger, round.EndLedger)
	}
}

func TestCreateRound_WindowsSaturateAtSequenceCeiling(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)

	// A round opened within a window of the sequence ceiling must not
	// wrap its end ledgers around to before its start.
	e.clock.SetSequence(math.MaxUint32 - 3)
	round := e.createRound(t, model.ModeUpDown, 1000)

	if round.BetEndLedger != math.MaxUint32 || round.EndLedger != math.MaxUint32 {
		t.Errorf("expected saturated windows, got (%d, %d)", round.BetEndLedger, round.EndLedger)
	}
	if round.BetEndLedger < round.StartLedger || round.EndLedger < round.StartLedger {
		t.Errorf("windows wrapped before start ledger %d: (%d, %d)",
			round.StartLedger, round.BetEndLedger, round.EndLedger)
	}

	// The betting window is still open at the creation ledger.
	e.bet(t, alice, model.SideUp, 100)
}

// --- Round lifecycle ---

func TestCreateRound_Validation(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)

	if _, err := e.eng.CreateRound(e.ctx, model.ModeUpDown, 0); !errors.Is(err, engine.ErrInvalidPrice) {
		t.Errorf("zero start price: expected ErrInvalidPrice, got %v", err)
	}
	if _, err := e.eng.CreateRound(e.ctx, "sideways", 1000); !errors.Is(err, engine.ErrWrongRoundMode) {
		t.Errorf("unknown mode: expected ErrWrongRoundMode, got %v", err)
	}

	e.createRound(t, model.ModeUpDown, 1000)
	if _, err := e.eng.CreateRound(e.ctx, model.ModeUpDown, 1000); !errors.Is(err, engine.ErrRoundAlreadyActive) {
		t.Errorf("expected ErrRoundAlreadyActive, got %v", err)
	}
}

func TestRoundIDs_StrictlyIncrease(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)

	for want := uint64(1); want <= 3; want++ {
		round := e.createRound(t, model.ModeUpDown, 1000)
		if round.RoundID != want {
			t.Fatalf("expected round id %d, got %d", want, round.RoundID)
		}
		e.resolve(t, 1100)
	}

	id, err := e.eng.LastRoundID(e.ctx)
	if err != nil || id != 3 {
		t.Errorf("expected last round id 3, got (%d, %v)", id, err)
	}
}

// --- Betting windows ---

func TestPlaceBet_WindowEnforcement(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModeUpDown, 1000)

	// Last ledger inside the betting window.
	e.clock.SetSequence(5)
	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 100); err != nil {
		t.Fatalf("bet at ledger 5 should be accepted: %v", err)
	}

	// First ledger after the window closes.
	e.clock.SetSequence(6)
	err := e.eng.PlaceBet(e.ctx, bob, model.SideDown, 100)
	if !errors.Is(err, engine.ErrRoundEnded) {
		t.Errorf("bet at ledger 6: expected ErrRoundEnded, got %v", err)
	}
}

func TestResolveRound_WindowEnforcement(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	round := e.createRound(t, model.ModeUpDown, 1000)
	payload := model.OraclePayload{Price: 1100, Timestamp: ledgerTime, RoundID: round.RoundID}

	e.clock.SetSequence(11)
	if _, err := e.eng.ResolveRound(e.ctx, payload); !errors.Is(err, engine.ErrRoundNotEnded) {
		t.Fatalf("resolve at ledger 11: expected ErrRoundNotEnded, got %v", err)
	}

	e.clock.SetSequence(12)
	if _, err := e.eng.ResolveRound(e.ctx, payload); err != nil {
		t.Fatalf("resolve at ledger 12 should succeed: %v", err)
	}
}

// --- Bet validation ---

func TestPlaceBet_Validation(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)

	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 100); !errors.Is(err, engine.ErrNoActiveRound) {
		t.Errorf("no round: expected ErrNoActiveRound, got %v", err)
	}

	e.createRound(t, model.ModeUpDown, 1000)

	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 0); !errors.Is(err, engine.ErrInvalidBetAmount) {
		t.Errorf("zero amount: expected ErrInvalidBetAmount, got %v", err)
	}
	if err := e.eng.PlaceBet(e.ctx, alice, "sideways", 100); !errors.Is(err, engine.ErrInvalidBetAmount) {
		t.Errorf("bad side: expected ErrInvalidBetAmount, got %v", err)
	}
	if err := e.eng.PlaceBet(e.ctx, bob, model.SideUp, 100); !errors.Is(err, engine.ErrInsufficientBalance) {
		t.Errorf("unfunded bettor: expected ErrInsufficientBalance, got %v", err)
	}
	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, model.InitialGrant+1); !errors.Is(err, engine.ErrInsufficientBalance) {
		t.Errorf("over balance: expected ErrInsufficientBalance, got %v", err)
	}

	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if err := e.eng.PlaceBet(e.ctx, alice, model.SideDown, 50); !errors.Is(err, engine.ErrAlreadyBet) {
		t.Errorf("second bet: expected ErrAlreadyBet, got %v", err)
	}
}

func TestPlaceBet_WrongMode(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	e.createRound(t, model.ModePrecision, 1000)

	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 100); !errors.Is(err, engine.ErrWrongRoundMode) {
		t.Errorf("directional bet in precision round: expected ErrWrongRoundMode, got %v", err)
	}
}

func TestPlacePrediction_WrongMode(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	e.createRound(t, model.ModeUpDown, 1000)

	err := e.eng.PlacePrecisionPrediction(e.ctx, alice, 1050, 100)
	if !errors.Is(err, engine.ErrWrongRoundMode) {
		t.Errorf("prediction in updown round: expected ErrWrongRoundMode, got %v", err)
	}
}

func TestPlaceBet_DeductsBalanceAndGrowsPool(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	e.createRound(t, model.ModeUpDown, 1000)

	if err := e.eng.PlaceBet(e.ctx, alice, model.SideUp, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}

	balance, _ := e.eng.Balance(e.ctx, alice)
	if balance != model.InitialGrant-100 {
		t.Errorf("expected balance %d, got %d", model.InitialGrant-100, balance)
	}
	round, _ := e.eng.ActiveRound(e.ctx)
	if round.PoolUp != 100 || round.PoolDown != 0 {
		t.Errorf("expected pools (100, 0), got (%d, %d)", round.PoolUp, round.PoolDown)
	}
	pos, err := e.eng.Position(e.ctx, alice)
	if err != nil || pos.Amount != 100 || pos.Side != model.SideUp {
		t.Errorf("expected position (100, up), got (%+v, %v)", pos, err)
	}
}

// --- Up/Down settlement ---

func TestResolve_UpWins(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob, charlie)
	e.createRound(t, model.ModeUpDown, 1000)

	e.bet(t, alice, model.SideUp, 100)
	e.bet(t, bob, model.SideUp, 200)
	e.bet(t, charlie, model.SideDown, 150)

	s := e.resolve(t, 1100)

	if got := e.pending(t, alice); got != 150 {
		t.Errorf("alice pending: expected 150, got %d", got)
	}
	if got := e.pending(t, bob); got != 300 {
		t.Errorf("bob pending: expected 300, got %d", got)
	}
	if got := e.pending(t, charlie); got != 0 {
		t.Errorf("charlie pending: expected 0, got %d", got)
	}

	if st := e.stats(t, alice); st.TotalWins != 1 || st.CurrentStreak != 1 {
		t.Errorf("alice stats: expected one win, got %+v", st)
	}
	if st := e.stats(t, charlie); st.TotalLosses != 1 || st.CurrentStreak != 0 {
		t.Errorf("charlie stats: expected one loss, got %+v", st)
	}

	if s.TotalPaid != 450 || s.Dust != 0 || s.Winners != 2 || s.Losers != 1 || s.Refunded {
		t.Errorf("settlement: %+v", s)
	}

	// Round and positions are destroyed by resolution.
	if _, err := e.eng.ActiveRound(e.ctx); !errors.Is(err, engine.ErrNoActiveRound) {
		t.Errorf("expected round cleared, got %v", err)
	}
	if _, err := e.eng.Position(e.ctx, alice); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected positions cleared, got %v", err)
	}
}

func TestResolve_DownWins(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModeUpDown, 1000)

	e.bet(t, alice, model.SideUp, 100)
	e.bet(t, bob, model.SideDown, 50)

	e.resolve(t, 900)

	if got := e.pending(t, bob); got != 150 {
		t.Errorf("bob pending: expected stake plus losing pool 150, got %d", got)
	}
	if got := e.pending(t, alice); got != 0 {
		t.Errorf("alice pending: expected 0, got %d", got)
	}
}

func TestResolve_UnchangedPriceRefunds(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModeUpDown, 1000)

	e.bet(t, alice, model.SideUp, 100)
	e.bet(t, bob, model.SideDown, 50)

	s := e.resolve(t, 1000)

	if !s.Refunded {
		t.Error("expected a refunded settlement")
	}
	if got := e.pending(t, alice); got != 100 {
		t.Errorf("alice refund: expected 100, got %d", got)
	}
	if got := e.pending(t, bob); got != 50 {
		t.Errorf("bob refund: expected 50, got %d", got)
	}

	// Refunds leave the win/loss record untouched.
	if st := e.stats(t, alice); st != (model.UserStats{}) {
		t.Errorf("alice stats should be untouched, got %+v", st)
	}
	if st := e.stats(t, bob); st != (model.UserStats{}) {
		t.Errorf("bob stats should be untouched, got %+v", st)
	}
}

func TestResolve_EmptyWinningPoolIsVoid(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	e.createRound(t, model.ModeUpDown, 1000)

	e.bet(t, alice, model.SideDown, 100)

	s := e.resolve(t, 1100) // Up wins but nobody bet Up.

	if s.TotalPaid != 0 || s.Winners != 0 || s.Losers != 0 {
		t.Errorf("void settlement should pay nothing: %+v", s)
	}
	if got := e.pending(t, alice); got != 0 {
		t.Errorf("alice pending: expected 0, got %d", got)
	}
	if st := e.stats(t, alice); st != (model.UserStats{}) {
		t.Errorf("void round must not score stats, got %+v", st)
	}
}

func TestResolve_SingleSidedWinnersGetStakeBack(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModeUpDown, 1000)

	// Everyone bet the winning side: the losing pool is empty, so each
	// winner gets exactly their stake back.
	e.bet(t, alice, model.SideUp, 100)
	e.bet(t, bob, model.SideUp, 200)

	s := e.resolve(t, 1100)

	if got := e.pending(t, alice); got != 100 {
		t.Errorf("alice pending: expected 100, got %d", got)
	}
	if got := e.pending(t, bob); got != 200 {
		t.Errorf("bob pending: expected 200, got %d", got)
	}
	if st := e.stats(t, alice); st.TotalWins != 1 {
		t.Errorf("alice should still record a win, got %+v", st)
	}
	if s.TotalPaid != 300 || s.Winners != 2 || s.Losers != 0 {
		t.Errorf("settlement: %+v", s)
	}
}

// --- Oracle gating ---

func TestResolve_OracleGates(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	round := e.createRound(t, model.ModeUpDown, 1000)
	e.bet(t, alice, model.SideUp, 100)
	e.clock.SetSequence(round.EndLedger)

	cases := []struct {
		name    string
		payload model.OraclePayload
		want    error
	}{
		{"wrong round", model.OraclePayload{Price: 1100, Timestamp: ledgerTime, RoundID: round.RoundID + 1}, oracle.ErrInvalidRound},
		{"stale", model.OraclePayload{Price: 1100, Timestamp: ledgerTime - 301, RoundID: round.RoundID}, oracle.ErrStaleData},
		{"zero price", model.OraclePayload{Price: 0, Timestamp: ledgerTime, RoundID: round.RoundID}, oracle.ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.eng.ResolveRound(e.ctx, tc.payload)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Failed resolutions leave the round and positions intact.
	if _, err := e.eng.ActiveRound(e.ctx); err != nil {
		t.Errorf("round should still be active: %v", err)
	}
	if _, err := e.eng.Position(e.ctx, alice); err != nil {
		t.Errorf("position should survive failed resolutions: %v", err)
	}
}

// --- Precision settlement ---

func TestResolve_PrecisionClosestWins(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModePrecision, 1000)

	e.predict(t, alice, 1100, 1000) // exact
	e.predict(t, bob, 1500, 1000)   // off by 400

	s := e.resolve(t, 1100)

	alicePending := e.pending(t, alice)
	bobPending := e.pending(t, bob)
	if alicePending <= bobPending {
		t.Errorf("exact guess should earn more: alice=%d bob=%d", alicePending, bobPending)
	}
	if s.TotalPaid > 2000 {
		t.Errorf("payouts exceed pot: %d", s.TotalPaid)
	}
	if _, err := e.eng.ActiveRound(e.ctx); !errors.Is(err, engine.ErrNoActiveRound) {
		t.Errorf("expected round cleared, got %v", err)
	}
}

func TestResolve_PrecisionDegenerateRefund(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModePrecision, 1_000_000)

	// Guesses so far off that every truncated score is zero.
	e.predict(t, alice, 1, 10)
	e.predict(t, bob, 2, 10)

	s := e.resolve(t, 1_000_000)

	if !s.Refunded {
		t.Error("expected degenerate round to refund")
	}
	if got := e.pending(t, alice); got != 10 {
		t.Errorf("alice refund: expected 10, got %d", got)
	}
	if st := e.stats(t, alice); st != (model.UserStats{}) {
		t.Errorf("refund must not score stats, got %+v", st)
	}
}

func TestPlacePrediction_OnePerAddress(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)
	e.createRound(t, model.ModePrecision, 1000)

	if err := e.eng.PlacePrecisionPrediction(e.ctx, alice, 1100, 100); err != nil {
		t.Fatalf("prediction: %v", err)
	}
	err := e.eng.PlacePrecisionPrediction(e.ctx, alice, 1200, 100)
	if !errors.Is(err, engine.ErrAlreadyBet) {
		t.Errorf("expected ErrAlreadyBet, got %v", err)
	}
}

// --- Claims ---

func TestClaimWinnings(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)
	e.createRound(t, model.ModeUpDown, 1000)

	e.bet(t, alice, model.SideUp, 100)
	e.bet(t, bob, model.SideDown, 50)
	e.resolve(t, 1100)

	claimed, err := e.eng.ClaimWinnings(e.ctx, alice)
	if err != nil || claimed != 150 {
		t.Fatalf("claim: got (%d, %v)", claimed, err)
	}
	balance, _ := e.eng.Balance(e.ctx, alice)
	if balance != model.InitialGrant-100+150 {
		t.Errorf("expected balance %d, got %d", model.InitialGrant-100+150, balance)
	}

	// Idempotent: a second claim moves nothing.
	claimed, err = e.eng.ClaimWinnings(e.ctx, alice)
	if err != nil || claimed != 0 {
		t.Errorf("second claim: got (%d, %v)", claimed, err)
	}
	again, _ := e.eng.Balance(e.ctx, alice)
	if again != balance {
		t.Errorf("second claim changed balance: %d -> %d", balance, again)
	}
}

func TestClaimWinnings_NothingPending(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)

	claimed, err := e.eng.ClaimWinnings(e.ctx, alice)
	if err != nil || claimed != 0 {
		t.Errorf("expected (0, nil), got (%d, %v)", claimed, err)
	}
}

// --- Streaks across rounds ---

func TestStats_StreakAcrossRounds(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice, bob)

	// Alice wins twice, then loses once.
	outcomes := []struct {
		aliceSide model.BetSide
		final     uint64
	}{
		{model.SideUp, 1100},
		{model.SideUp, 1100},
		{model.SideUp, 900},
	}
	for _, o := range outcomes {
		e.createRound(t, model.ModeUpDown, 1000)
		e.bet(t, alice, o.aliceSide, 100)
		other := model.SideDown
		if o.aliceSide == model.SideDown {
			other = model.SideUp
		}
		e.bet(t, bob, other, 100)
		e.resolve(t, o.final)
	}

	st := e.stats(t, alice)
	if st.TotalWins != 2 || st.TotalLosses != 1 {
		t.Errorf("expected 2 wins 1 loss, got %+v", st)
	}
	if st.CurrentStreak != 0 || st.BestStreak != 2 {
		t.Errorf("expected streak 0 best 2, got %+v", st)
	}
}

// --- Authorization ---

func TestAuthorization(t *testing.T) {
	st := store.NewMemoryStore()
	clock := ledger.NewManualClock(0, ledgerTime)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(st, clock, auth.CallerAuthorizer{}, oracle.NewValidator(0), nil, logger)
	ctx := context.Background()

	if err := eng.Initialize(ctx, adminAddr, oracleAddr); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// No caller in context: admin and caller ops are rejected.
	if _, err := eng.CreateRound(ctx, model.ModeUpDown, 1000); !errors.Is(err, engine.ErrUnauthorizedAdmin) {
		t.Errorf("expected ErrUnauthorizedAdmin, got %v", err)
	}
	if _, _, err := eng.MintInitial(ctx, alice); !errors.Is(err, engine.ErrUnauthorizedCaller) {
		t.Errorf("expected ErrUnauthorizedCaller, got %v", err)
	}

	adminCtx := auth.WithCaller(ctx, adminAddr)
	if _, err := eng.CreateRound(adminCtx, model.ModeUpDown, 1000); err != nil {
		t.Fatalf("admin create round: %v", err)
	}

	// Alice cannot bet on Bob's behalf.
	aliceCtx := auth.WithCaller(ctx, alice)
	if _, _, err := eng.MintInitial(aliceCtx, alice); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := eng.PlaceBet(aliceCtx, bob, model.SideUp, 100); !errors.Is(err, engine.ErrUnauthorizedCaller) {
		t.Errorf("expected ErrUnauthorizedCaller, got %v", err)
	}

	// Only the oracle may resolve.
	clock.SetSequence(12)
	payload := model.OraclePayload{Price: 1100, Timestamp: ledgerTime, RoundID: 1}
	if _, err := eng.ResolveRound(aliceCtx, payload); !errors.Is(err, engine.ErrUnauthorizedOracle) {
		t.Errorf("expected ErrUnauthorizedOracle, got %v", err)
	}
	oracleCtx := auth.WithCaller(ctx, oracleAddr)
	if _, err := eng.ResolveRound(oracleCtx, payload); err != nil {
		t.Fatalf("oracle resolve: %v", err)
	}
}

// --- Settlement history ---

func TestSettlements_NewestFirst(t *testing.T) {
	e := newEnv(t)
	e.initialize(t)
	e.mint(t, alice)

	for i := 0; i < 3; i++ {
		e.createRound(t, model.ModeUpDown, 1000)
		e.bet(t, alice, model.SideUp, 100)
		e.resolve(t, 1100)
	}

	settlements, err := e.eng.Settlements(e.ctx, 10)
	if err != nil {
		t.Fatalf("settlements: %v", err)
	}
	if len(settlements) != 3 {
		t.Fatalf("expected 3 settlements, got %d", len(settlements))
	}
	for i, want := range []uint64{3, 2, 1} {
		if settlements[i].RoundID != want {
			t.Errorf("settlement %d: expected round %d, got %d", i, want, settlements[i].RoundID)
		}
		if settlements[i].ID == "" {
			t.Errorf("settlement %d: expected a non-empty id", i)
		}
	}
}
