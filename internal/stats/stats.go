// Package stats tracks per-user win/loss counters and streaks. Updates are
// pure functions of the prior stats and an outcome; the engine applies
// exactly one update per participant per resolution.
package stats

import "github.com/Josue19-08/Xelma-Blockchain/internal/model"

// ApplyWin increments the win counter, extends the current streak, and
// raises the best streak when the current one surpasses it.
func ApplyWin(s model.UserStats) model.UserStats {
	s.TotalWins++
	s.CurrentStreak++
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	return s
}

// ApplyLoss increments the loss counter and resets the current streak.
// The best streak is preserved.
func ApplyLoss(s model.UserStats) model.UserStats {
	s.TotalLosses++
	s.CurrentStreak = 0
	return s
}

// Apply dispatches on outcome.
func Apply(s model.UserStats, won bool) model.UserStats {
	if won {
		return ApplyWin(s)
	}
	return ApplyLoss(s)
}
