package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

func TestMemoryStore_NotFoundSentinels(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Admin(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Admin: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Oracle(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Oracle: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Windows(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("Windows: expected ErrNotFound, got %v", err)
	}
	if _, err := s.ActiveRound(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("ActiveRound: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Balance(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Balance: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Position(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Position: expected ErrNotFound, got %v", err)
	}

	// Pending winnings and stats default to zero values, not errors.
	if p, err := s.PendingWinnings(ctx, "alice"); err != nil || p != 0 {
		t.Errorf("PendingWinnings: expected (0, nil), got (%d, %v)", p, err)
	}
	if st, err := s.UserStats(ctx, "alice"); err != nil || st != (model.UserStats{}) {
		t.Errorf("UserStats: expected zero stats, got (%+v, %v)", st, err)
	}
	if id, err := s.LastRoundID(ctx); err != nil || id != 0 {
		t.Errorf("LastRoundID: expected (0, nil), got (%d, %v)", id, err)
	}
}

func TestMemoryStore_RoundCopyOnReturn(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	round := &model.Round{RoundID: 1, Mode: model.ModeUpDown, PriceStart: 1000}
	if err := s.SetActiveRound(ctx, round); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.ActiveRound(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.PoolUp = 999

	again, _ := s.ActiveRound(ctx)
	if again.PoolUp != 0 {
		t.Error("mutating a returned round must not affect stored state")
	}
}

func TestMemoryStore_ClearPositions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.SetPosition(ctx, "alice", model.UserPosition{Amount: 10, Side: model.SideUp})
	s.SetPosition(ctx, "bob", model.UserPosition{Amount: 20, Side: model.SideDown})

	if err := s.ClearPositions(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	positions, _ := s.Positions(ctx)
	if len(positions) != 0 {
		t.Errorf("expected no positions after clear, got %d", len(positions))
	}
}

func TestMemoryStore_SettlementsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		s.InsertSettlement(ctx, &model.Settlement{ID: "s", RoundID: i})
	}

	got, err := s.ListSettlements(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 settlements, got %d", len(got))
	}
	for i, want := range []uint64{5, 4, 3} {
		if got[i].RoundID != want {
			t.Errorf("settlement %d: expected round %d, got %d", i, want, got[i].RoundID)
		}
	}
}

func TestKeyStrings(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{Singleton(KeyAdmin), "admin"},
		{Singleton(KeyOracle), "oracle"},
		{Singleton(KeyWindows), "windows"},
		{Singleton(KeyActiveRound), "round:active"},
		{Singleton(KeyLastRoundID), "round:last_id"},
		{Addressed(KeyBalance, "alice"), "balance:alice"},
		{Addressed(KeyPendingWinnings, "alice"), "pending:alice"},
		{Addressed(KeyUserStats, "alice"), "stats:alice"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Errorf("Key%+v: got %q, want %q", tc.key, got, tc.want)
		}
	}
}
