package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: the active round, balances, pending
// winnings, and user stats. Writes go to the primary store and invalidate
// the cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

func cacheKey(k Key) string { return "xelma:" + k.String() }

// --- Active round (read-through) ---

func (s *CachedStore) ActiveRound(ctx context.Context) (*model.Round, error) {
	data, err := s.rdb.Get(ctx, cacheKey(Singleton(KeyActiveRound))).Bytes()
	if err == nil {
		var r model.Round
		if json.Unmarshal(data, &r) == nil {
			return &r, nil
		}
	}

	r, err := s.primary.ActiveRound(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(r); err == nil {
		s.rdb.Set(ctx, cacheKey(Singleton(KeyActiveRound)), data, s.ttl)
	}
	return r, nil
}

func (s *CachedStore) SetActiveRound(ctx context.Context, r *model.Round) error {
	if err := s.primary.SetActiveRound(ctx, r); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, cacheKey(Singleton(KeyActiveRound)))
	return nil
}

func (s *CachedStore) ClearActiveRound(ctx context.Context) error {
	if err := s.primary.ClearActiveRound(ctx); err != nil {
		return err
	}
	s.rdb.Del(ctx, cacheKey(Singleton(KeyActiveRound)))
	return nil
}

// --- Balances (read-through) ---

func (s *CachedStore) Balance(ctx context.Context, addr string) (int64, error) {
	val, err := s.rdb.Get(ctx, cacheKey(Addressed(KeyBalance, addr))).Result()
	if err == nil {
		if amount, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return amount, nil
		}
	}

	amount, err := s.primary.Balance(ctx, addr)
	if err != nil {
		return 0, err
	}
	s.rdb.Set(ctx, cacheKey(Addressed(KeyBalance, addr)), strconv.FormatInt(amount, 10), s.ttl)
	return amount, nil
}

func (s *CachedStore) SetBalance(ctx context.Context, addr string, amount int64) error {
	if err := s.primary.SetBalance(ctx, addr, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, cacheKey(Addressed(KeyBalance, addr)))
	return nil
}

// --- Pending winnings (read-through) ---

func (s *CachedStore) PendingWinnings(ctx context.Context, addr string) (int64, error) {
	val, err := s.rdb.Get(ctx, cacheKey(Addressed(KeyPendingWinnings, addr))).Result()
	if err == nil {
		if amount, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return amount, nil
		}
	}

	amount, err := s.primary.PendingWinnings(ctx, addr)
	if err != nil {
		return 0, err
	}
	s.rdb.Set(ctx, cacheKey(Addressed(KeyPendingWinnings, addr)), strconv.FormatInt(amount, 10), s.ttl)
	return amount, nil
}

func (s *CachedStore) SetPendingWinnings(ctx context.Context, addr string, amount int64) error {
	if err := s.primary.SetPendingWinnings(ctx, addr, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, cacheKey(Addressed(KeyPendingWinnings, addr)))
	return nil
}

func (s *CachedStore) ClearPendingWinnings(ctx context.Context, addr string) error {
	if err := s.primary.ClearPendingWinnings(ctx, addr); err != nil {
		return err
	}
	s.rdb.Del(ctx, cacheKey(Addressed(KeyPendingWinnings, addr)))
	return nil
}

// --- User stats (read-through) ---

func (s *CachedStore) UserStats(ctx context.Context, addr string) (model.UserStats, error) {
	data, err := s.rdb.Get(ctx, cacheKey(Addressed(KeyUserStats, addr))).Bytes()
	if err == nil {
		var st model.UserStats
		if json.Unmarshal(data, &st) == nil {
			return st, nil
		}
	}

	st, err := s.primary.UserStats(ctx, addr)
	if err != nil {
		return model.UserStats{}, err
	}
	if data, err := json.Marshal(st); err == nil {
		s.rdb.Set(ctx, cacheKey(Addressed(KeyUserStats, addr)), data, s.ttl)
	}
	return st, nil
}

func (s *CachedStore) SetUserStats(ctx context.Context, addr string, st model.UserStats) error {
	if err := s.primary.SetUserStats(ctx, addr, st); err != nil {
		return err
	}
	s.rdb.Del(ctx, cacheKey(Addressed(KeyUserStats, addr)))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) Admin(ctx context.Context) (string, error) { return s.primary.Admin(ctx) }
func (s *CachedStore) SetAdmin(ctx context.Context, addr string) error {
	return s.primary.SetAdmin(ctx, addr)
}
func (s *CachedStore) Oracle(ctx context.Context) (string, error) { return s.primary.Oracle(ctx) }
func (s *CachedStore) SetOracle(ctx context.Context, addr string) error {
	return s.primary.SetOracle(ctx, addr)
}
func (s *CachedStore) Windows(ctx context.Context) (model.Windows, error) {
	return s.primary.Windows(ctx)
}
func (s *CachedStore) SetWindows(ctx context.Context, w model.Windows) error {
	return s.primary.SetWindows(ctx, w)
}
func (s *CachedStore) LastRoundID(ctx context.Context) (uint64, error) {
	return s.primary.LastRoundID(ctx)
}
func (s *CachedStore) SetLastRoundID(ctx context.Context, id uint64) error {
	return s.primary.SetLastRoundID(ctx, id)
}
func (s *CachedStore) Position(ctx context.Context, addr string) (*model.UserPosition, error) {
	return s.primary.Position(ctx, addr)
}
func (s *CachedStore) SetPosition(ctx context.Context, addr string, pos model.UserPosition) error {
	return s.primary.SetPosition(ctx, addr, pos)
}
func (s *CachedStore) Positions(ctx context.Context) (map[string]model.UserPosition, error) {
	return s.primary.Positions(ctx)
}
func (s *CachedStore) ClearPositions(ctx context.Context) error {
	return s.primary.ClearPositions(ctx)
}
func (s *CachedStore) PrecisionPredictions(ctx context.Context) ([]model.PrecisionPrediction, error) {
	return s.primary.PrecisionPredictions(ctx)
}
func (s *CachedStore) AppendPrecisionPrediction(ctx context.Context, p model.PrecisionPrediction) error {
	return s.primary.AppendPrecisionPrediction(ctx, p)
}
func (s *CachedStore) ClearPrecisionPredictions(ctx context.Context) error {
	return s.primary.ClearPrecisionPredictions(ctx)
}
func (s *CachedStore) InsertSettlement(ctx context.Context, st *model.Settlement) error {
	return s.primary.InsertSettlement(ctx, st)
}
func (s *CachedStore) ListSettlements(ctx context.Context, limit int) ([]model.Settlement, error) {
	return s.primary.ListSettlements(ctx, limit)
}
