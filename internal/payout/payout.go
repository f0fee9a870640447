// Package payout implements the settlement arithmetic for prediction
// rounds.
//
// Up/Down rounds use pari-mutuel distribution: each winner receives their
// stake back plus a share of the losing pool proportional to their stake,
//
//	payout = amount + (amount * losingPool) / winningPool
//
// with truncating integer division. The truncation remainder ("dust") is
// left unallocated; the sum of all payouts never exceeds the total pot.
//
// Precision rounds weight each prediction by closeness to the final price:
//
//	score  = amount / (1 + |predicted - final|)
//	payout = (pot * score) / totalScore
//
// An exact guess divides by 1 and so carries the maximal per-stake weight.
// The same conservation property holds.
//
// All amounts are int64 stroops. Every multiplication and addition is
// checked; overflow aborts the whole computation with ErrOverflow so the
// caller can fail the resolution without partial writes.
package payout

import (
	"errors"
	"math"
	"sort"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// ErrOverflow is returned when a payout computation exceeds int64 range.
var ErrOverflow = errors.New("payout: arithmetic overflow")

// Award is the settlement outcome for a single participant.
type Award struct {
	User   string
	Amount int64 // stroops credited to pending winnings
	Won    bool  // drives the stats tracker: true = win, false = loss
}

// UpDown computes pari-mutuel awards for a directional round. Every
// participant receives exactly one Award: winners carry their payout,
// losers carry zero. A zero winning pool means there is nobody to pay;
// no awards are produced and no stats are recorded, matching the
// unreachable-once-a-winner-exists guard in the settlement rules.
//
// Awards are ordered by user address so settlement is deterministic.
func UpDown(positions map[string]model.UserPosition, winningSide model.BetSide, winningPool, losingPool int64) ([]Award, error) {
	if winningPool == 0 {
		return nil, nil
	}

	users := sortedUsers(positions)
	awards := make([]Award, 0, len(users))

	for _, user := range users {
		pos := positions[user]
		if pos.Side != winningSide {
			awards = append(awards, Award{User: user, Amount: 0, Won: false})
			continue
		}

		shareNum, err := CheckedMul(pos.Amount, losingPool)
		if err != nil {
			return nil, err
		}
		share := shareNum / winningPool // truncating: dust stays in the pot

		amount, err := CheckedAdd(pos.Amount, share)
		if err != nil {
			return nil, err
		}
		awards = append(awards, Award{User: user, Amount: amount, Won: true})
	}

	return awards, nil
}

// Refunds returns face-value awards for every position, used when the
// final price equals the starting price. Refunds are neither wins nor
// losses; callers must not feed them to the stats tracker.
func Refunds(positions map[string]model.UserPosition) []Award {
	users := sortedUsers(positions)
	awards := make([]Award, 0, len(users))
	for _, user := range users {
		awards = append(awards, Award{User: user, Amount: positions[user].Amount})
	}
	return awards
}

// Precision computes closeness-weighted awards for a precision round.
//
// Returns the awards, the total pot, and whether the round degenerated
// into a refund (every score truncated to zero, so no weighting is
// possible). Refund awards, like Refunds, carry no win/loss outcome.
func Precision(preds []model.PrecisionPrediction, finalPrice uint64) (awards []Award, pot int64, refunded bool, err error) {
	if len(preds) == 0 {
		return nil, 0, false, nil
	}

	// Deterministic settlement order.
	ordered := make([]model.PrecisionPrediction, len(preds))
	copy(ordered, preds)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].User < ordered[j].User })

	scores := make([]int64, len(ordered))
	var totalScore int64
	for i, p := range ordered {
		pot, err = CheckedAdd(pot, p.Amount)
		if err != nil {
			return nil, 0, false, err
		}
		scores[i] = closenessScore(p.Amount, p.PredictedPrice, finalPrice)
		// Each score <= its amount, so the sum is bounded by pot.
		totalScore += scores[i]
	}

	if totalScore == 0 {
		awards = make([]Award, 0, len(ordered))
		for _, p := range ordered {
			awards = append(awards, Award{User: p.User, Amount: p.Amount})
		}
		return awards, pot, true, nil
	}

	awards = make([]Award, 0, len(ordered))
	for i, p := range ordered {
		num, err := CheckedMul(pot, scores[i])
		if err != nil {
			return nil, 0, false, err
		}
		amount := num / totalScore // truncating
		awards = append(awards, Award{User: p.User, Amount: amount, Won: amount > 0})
	}

	return awards, pot, false, nil
}

// closenessScore is amount scaled down by distance from the final price.
// Truncating division means a guess further away than its stake scores
// zero; a distance so large that the divisor leaves int64 range also
// scores zero.
func closenessScore(amount int64, predicted, final uint64) int64 {
	var dist uint64
	if predicted > final {
		dist = predicted - final
	} else {
		dist = final - predicted
	}
	if dist >= math.MaxInt64 {
		return 0
	}
	return amount / (int64(dist) + 1)
}

// Total sums award amounts with overflow checking.
func Total(awards []Award) (int64, error) {
	var total int64
	var err error
	for _, a := range awards {
		total, err = CheckedAdd(total, a.Amount)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// CheckedAdd returns a + b or ErrOverflow.
func CheckedAdd(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub returns a - b or ErrOverflow.
func CheckedSub(a, b int64) (int64, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, ErrOverflow
	}
	return diff, nil
}

// CheckedMul returns a * b or ErrOverflow.
func CheckedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	// MinInt64 * -1 has no int64 representation and its division check
	// would itself trap, so reject it up front.
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, ErrOverflow
	}
	prod := a * b
	if prod/b != a {
		return 0, ErrOverflow
	}
	return prod, nil
}

func sortedUsers(positions map[string]model.UserPosition) []string {
	users := make([]string, 0, len(positions))
	for user := range positions {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}
