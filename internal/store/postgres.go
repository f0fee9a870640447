package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Singleton state (roles, windows, the active round, the round counter)
// lives in a keyed engine_state table; per-address ledgers and the
// immutable settlement audit get their own tables. Prices are stored as
// NUMERIC since they are unsigned 64-bit values.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS engine_state (
			key   TEXT PRIMARY KEY,
			value JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS balances (
			addr   TEXT PRIMARY KEY,
			amount BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS positions (
			addr   TEXT PRIMARY KEY,
			amount BIGINT NOT NULL,
			side   TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS precision_predictions (
			seq             BIGSERIAL PRIMARY KEY,
			addr            TEXT NOT NULL,
			predicted_price NUMERIC(20,0) NOT NULL,
			amount          BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pending_winnings (
			addr   TEXT PRIMARY KEY,
			amount BIGINT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS user_stats (
			addr           TEXT PRIMARY KEY,
			total_wins     INT NOT NULL,
			total_losses   INT NOT NULL,
			current_streak INT NOT NULL,
			best_streak    INT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS settlements (
			id          TEXT PRIMARY KEY,
			round_id    BIGINT NOT NULL,
			mode        TEXT NOT NULL,
			price_start NUMERIC(20,0) NOT NULL,
			price_final NUMERIC(20,0) NOT NULL,
			pool_up     BIGINT NOT NULL,
			pool_down   BIGINT NOT NULL,
			total_paid  BIGINT NOT NULL,
			dust        BIGINT NOT NULL,
			winners     INT NOT NULL,
			losers      INT NOT NULL,
			refunded    BOOLEAN NOT NULL,
			resolved_at BIGINT NOT NULL,
			resolved_ts TIMESTAMPTZ NOT NULL
		);`)
	return err
}

// --- engine_state singletons ---

func (s *PostgresStore) getState(ctx context.Context, key Key, out any) error {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM engine_state WHERE key = $1`, key.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get state %s: %w", key, err)
	}
	return json.Unmarshal(raw, out)
}

func (s *PostgresStore) setState(ctx context.Context, key Key, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO engine_state (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key.String(), raw)
	return err
}

func (s *PostgresStore) deleteState(ctx context.Context, key Key) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM engine_state WHERE key = $1`, key.String())
	return err
}

func (s *PostgresStore) Admin(ctx context.Context) (string, error) {
	var addr string
	if err := s.getState(ctx, Singleton(KeyAdmin), &addr); err != nil {
		return "", err
	}
	return addr, nil
}

func (s *PostgresStore) SetAdmin(ctx context.Context, addr string) error {
	return s.setState(ctx, Singleton(KeyAdmin), addr)
}

func (s *PostgresStore) Oracle(ctx context.Context) (string, error) {
	var addr string
	if err := s.getState(ctx, Singleton(KeyOracle), &addr); err != nil {
		return "", err
	}
	return addr, nil
}

func (s *PostgresStore) SetOracle(ctx context.Context, addr string) error {
	return s.setState(ctx, Singleton(KeyOracle), addr)
}

func (s *PostgresStore) Windows(ctx context.Context) (model.Windows, error) {
	var w model.Windows
	if err := s.getState(ctx, Singleton(KeyWindows), &w); err != nil {
		return model.Windows{}, err
	}
	return w, nil
}

func (s *PostgresStore) SetWindows(ctx context.Context, w model.Windows) error {
	return s.setState(ctx, Singleton(KeyWindows), w)
}

func (s *PostgresStore) ActiveRound(ctx context.Context) (*model.Round, error) {
	var r model.Round
	if err := s.getState(ctx, Singleton(KeyActiveRound), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) SetActiveRound(ctx context.Context, r *model.Round) error {
	return s.setState(ctx, Singleton(KeyActiveRound), r)
}

func (s *PostgresStore) ClearActiveRound(ctx context.Context) error {
	return s.deleteState(ctx, Singleton(KeyActiveRound))
}

func (s *PostgresStore) LastRoundID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.getState(ctx, Singleton(KeyLastRoundID), &id)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) SetLastRoundID(ctx context.Context, id uint64) error {
	return s.setState(ctx, Singleton(KeyLastRoundID), id)
}

// --- Balances ---

func (s *PostgresStore) Balance(ctx context.Context, addr string) (int64, error) {
	var amount int64
	err := s.pool.QueryRow(ctx,
		`SELECT amount FROM balances WHERE addr = $1`, addr).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", addr, err)
	}
	return amount, nil
}

func (s *PostgresStore) SetBalance(ctx context.Context, addr string, amount int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO balances (addr, amount) VALUES ($1, $2)
		 ON CONFLICT (addr) DO UPDATE SET amount = EXCLUDED.amount`,
		addr, amount)
	return err
}

// --- Positions ---

func (s *PostgresStore) Position(ctx context.Context, addr string) (*model.UserPosition, error) {
	var pos model.UserPosition
	var side string
	err := s.pool.QueryRow(ctx,
		`SELECT amount, side FROM positions WHERE addr = $1`, addr).
		Scan(&pos.Amount, &side)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", addr, err)
	}
	pos.Side = model.BetSide(side)
	return &pos, nil
}

func (s *PostgresStore) SetPosition(ctx context.Context, addr string, pos model.UserPosition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (addr, amount, side) VALUES ($1, $2, $3)
		 ON CONFLICT (addr) DO UPDATE SET amount = EXCLUDED.amount, side = EXCLUDED.side`,
		addr, pos.Amount, string(pos.Side))
	return err
}

func (s *PostgresStore) Positions(ctx context.Context) (map[string]model.UserPosition, error) {
	rows, err := s.pool.Query(ctx, `SELECT addr, amount, side FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make(map[string]model.UserPosition)
	for rows.Next() {
		var addr, side string
		var amount int64
		if err := rows.Scan(&addr, &amount, &side); err != nil {
			return nil, err
		}
		positions[addr] = model.UserPosition{Amount: amount, Side: model.BetSide(side)}
	}
	return positions, rows.Err()
}

func (s *PostgresStore) ClearPositions(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM positions`)
	return err
}

// --- Precision predictions ---

func (s *PostgresStore) PrecisionPredictions(ctx context.Context) ([]model.PrecisionPrediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT addr, predicted_price::TEXT, amount FROM precision_predictions ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []model.PrecisionPrediction
	for rows.Next() {
		var p model.PrecisionPrediction
		var priceS string
		if err := rows.Scan(&p.User, &priceS, &p.Amount); err != nil {
			return nil, err
		}
		p.PredictedPrice, err = strconv.ParseUint(priceS, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse predicted price %q: %w", priceS, err)
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func (s *PostgresStore) AppendPrecisionPrediction(ctx context.Context, p model.PrecisionPrediction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO precision_predictions (addr, predicted_price, amount)
		 VALUES ($1, $2::NUMERIC, $3)`,
		p.User, strconv.FormatUint(p.PredictedPrice, 10), p.Amount)
	return err
}

func (s *PostgresStore) ClearPrecisionPredictions(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM precision_predictions`)
	return err
}

// --- Winnings and stats ---

func (s *PostgresStore) PendingWinnings(ctx context.Context, addr string) (int64, error) {
	var amount int64
	err := s.pool.QueryRow(ctx,
		`SELECT amount FROM pending_winnings WHERE addr = $1`, addr).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get pending winnings %s: %w", addr, err)
	}
	return amount, nil
}

func (s *PostgresStore) SetPendingWinnings(ctx context.Context, addr string, amount int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_winnings (addr, amount) VALUES ($1, $2)
		 ON CONFLICT (addr) DO UPDATE SET amount = EXCLUDED.amount`,
		addr, amount)
	return err
}

func (s *PostgresStore) ClearPendingWinnings(ctx context.Context, addr string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_winnings WHERE addr = $1`, addr)
	return err
}

func (s *PostgresStore) UserStats(ctx context.Context, addr string) (model.UserStats, error) {
	var st model.UserStats
	err := s.pool.QueryRow(ctx,
		`SELECT total_wins, total_losses, current_streak, best_streak
		 FROM user_stats WHERE addr = $1`, addr).
		Scan(&st.TotalWins, &st.TotalLosses, &st.CurrentStreak, &st.BestStreak)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserStats{}, nil
	}
	if err != nil {
		return model.UserStats{}, fmt.Errorf("get user stats %s: %w", addr, err)
	}
	return st, nil
}

func (s *PostgresStore) SetUserStats(ctx context.Context, addr string, st model.UserStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_stats (addr, total_wins, total_losses, current_streak, best_streak)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (addr) DO UPDATE SET
		   total_wins = EXCLUDED.total_wins,
		   total_losses = EXCLUDED.total_losses,
		   current_streak = EXCLUDED.current_streak,
		   best_streak = EXCLUDED.best_streak`,
		addr, st.TotalWins, st.TotalLosses, st.CurrentStreak, st.BestStreak)
	return err
}

// --- Settlement audit ---

func (s *PostgresStore) InsertSettlement(ctx context.Context, st *model.Settlement) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settlements
		   (id, round_id, mode, price_start, price_final, pool_up, pool_down,
		    total_paid, dust, winners, losers, refunded, resolved_at, resolved_ts)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		st.ID, st.RoundID, string(st.Mode),
		strconv.FormatUint(st.PriceStart, 10), strconv.FormatUint(st.PriceFinal, 10),
		st.PoolUp, st.PoolDown, st.TotalPaid, st.Dust,
		st.Winners, st.Losers, st.Refunded, st.ResolvedAt, st.ResolvedTS)
	return err
}

func (s *PostgresStore) ListSettlements(ctx context.Context, limit int) ([]model.Settlement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, round_id, mode, price_start::TEXT, price_final::TEXT,
		        pool_up, pool_down, total_paid, dust, winners, losers,
		        refunded, resolved_at, resolved_ts
		 FROM settlements ORDER BY round_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []model.Settlement
	for rows.Next() {
		var st model.Settlement
		var mode, startS, finalS string
		if err := rows.Scan(&st.ID, &st.RoundID, &mode, &startS, &finalS,
			&st.PoolUp, &st.PoolDown, &st.TotalPaid, &st.Dust,
			&st.Winners, &st.Losers, &st.Refunded, &st.ResolvedAt, &st.ResolvedTS); err != nil {
			return nil, err
		}
		st.Mode = model.Mode(mode)
		if st.PriceStart, err = strconv.ParseUint(startS, 10, 64); err != nil {
			return nil, fmt.Errorf("parse price_start %q: %w", startS, err)
		}
		if st.PriceFinal, err = strconv.ParseUint(finalS, 10, 64); err != nil {
			return nil, fmt.Errorf("parse price_final %q: %w", finalS, err)
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}
