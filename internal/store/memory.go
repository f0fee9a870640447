package store

import (
	"context"
	"sync"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	admin       string
	oracle      string
	windows     *model.Windows
	round       *model.Round
	lastRoundID uint64
	balances    map[string]int64
	positions   map[string]model.UserPosition
	predictions []model.PrecisionPrediction
	pending     map[string]int64
	stats       map[string]model.UserStats
	settlements []model.Settlement
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:  make(map[string]int64),
		positions: make(map[string]model.UserPosition),
		pending:   make(map[string]int64),
		stats:     make(map[string]model.UserStats),
	}
}

func (s *MemoryStore) Admin(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin == "" {
		return "", ErrNotFound
	}
	return s.admin, nil
}

func (s *MemoryStore) SetAdmin(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = addr
	return nil
}

func (s *MemoryStore) Oracle(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.oracle == "" {
		return "", ErrNotFound
	}
	return s.oracle, nil
}

func (s *MemoryStore) SetOracle(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oracle = addr
	return nil
}

func (s *MemoryStore) Windows(_ context.Context) (model.Windows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.windows == nil {
		return model.Windows{}, ErrNotFound
	}
	return *s.windows, nil
}

func (s *MemoryStore) SetWindows(_ context.Context, w model.Windows) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = &w
	return nil
}

func (s *MemoryStore) ActiveRound(_ context.Context) (*model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.round == nil {
		return nil, ErrNotFound
	}
	// Return a copy to avoid external mutation.
	round := *s.round
	return &round, nil
}

func (s *MemoryStore) SetActiveRound(_ context.Context, r *model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	round := *r
	s.round = &round
	return nil
}

func (s *MemoryStore) ClearActiveRound(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round = nil
	return nil
}

func (s *MemoryStore) LastRoundID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRoundID, nil
}

func (s *MemoryStore) SetLastRoundID(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRoundID = id
	return nil
}

func (s *MemoryStore) Balance(_ context.Context, addr string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	amount, ok := s.balances[addr]
	if !ok {
		return 0, ErrNotFound
	}
	return amount, nil
}

func (s *MemoryStore) SetBalance(_ context.Context, addr string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] = amount
	return nil
}

func (s *MemoryStore) Position(_ context.Context, addr string) (*model.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return &pos, nil
}

func (s *MemoryStore) SetPosition(_ context.Context, addr string, pos model.UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[addr] = pos
	return nil
}

func (s *MemoryStore) Positions(_ context.Context) (map[string]model.UserPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.UserPosition, len(s.positions))
	for addr, pos := range s.positions {
		out[addr] = pos
	}
	return out, nil
}

func (s *MemoryStore) ClearPositions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = make(map[string]model.UserPosition)
	return nil
}

func (s *MemoryStore) PrecisionPredictions(_ context.Context) ([]model.PrecisionPrediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PrecisionPrediction, len(s.predictions))
	copy(out, s.predictions)
	return out, nil
}

func (s *MemoryStore) AppendPrecisionPrediction(_ context.Context, p model.PrecisionPrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = append(s.predictions, p)
	return nil
}

func (s *MemoryStore) ClearPrecisionPredictions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = nil
	return nil
}

func (s *MemoryStore) PendingWinnings(_ context.Context, addr string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[addr], nil
}

func (s *MemoryStore) SetPendingWinnings(_ context.Context, addr string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[addr] = amount
	return nil
}

func (s *MemoryStore) ClearPendingWinnings(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, addr)
	return nil
}

func (s *MemoryStore) UserStats(_ context.Context, addr string) (model.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats[addr], nil
}

func (s *MemoryStore) SetUserStats(_ context.Context, addr string, stats model.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[addr] = stats
	return nil
}

func (s *MemoryStore) InsertSettlement(_ context.Context, settlement *model.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements = append(s.settlements, *settlement)
	return nil
}

func (s *MemoryStore) ListSettlements(_ context.Context, limit int) ([]model.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Settlement
	for i := len(s.settlements) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.settlements[i])
	}
	return out, nil
}
