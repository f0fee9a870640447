// Package oracle validates settlement reports before the payout engine may
// consume them. The checks are mandatory gates: a failed report aborts
// resolution with no state mutation.
//
// The engine never verifies oracle signatures itself — caller identity is
// the authorization layer's concern. This package only checks that an
// already-authorized report is bound to the round being resolved, fresh
// enough to trust, and carries a usable price.
package oracle

import (
	"errors"

	"github.com/Josue19-08/Xelma-Blockchain/internal/model"
)

// DefaultMaxReportAge is the freshness bound: a report produced more than
// this many seconds before the ledger clock is rejected even if correctly
// authorized.
const DefaultMaxReportAge uint64 = 300

var (
	// ErrInvalidRound is returned when a payload's round id does not match
	// the round being resolved. Binding a report to exactly one round
	// prevents replay across rounds.
	ErrInvalidRound = errors.New("oracle: payload bound to a different round")

	// ErrStaleData is returned when a report is older than the freshness
	// bound.
	ErrStaleData = errors.New("oracle: stale price report")

	// ErrInvalidPrice is returned when the reported price is zero.
	ErrInvalidPrice = errors.New("oracle: invalid price")
)

// Validator gates oracle payloads against a round and the ledger clock.
type Validator struct {
	maxAge uint64 // seconds
}

// NewValidator creates a validator with the given freshness bound in
// seconds; zero selects DefaultMaxReportAge.
func NewValidator(maxAgeSeconds uint64) *Validator {
	if maxAgeSeconds == 0 {
		maxAgeSeconds = DefaultMaxReportAge
	}
	return &Validator{maxAge: maxAgeSeconds}
}

// Validate checks a payload against the round it claims to settle and the
// current ledger timestamp. Order matters: round binding first, then
// freshness, then the price itself.
func (v *Validator) Validate(p model.OraclePayload, roundID uint64, ledgerTime uint64) error {
	if p.RoundID != roundID {
		return ErrInvalidRound
	}
	if ledgerTime > p.Timestamp && ledgerTime-p.Timestamp > v.maxAge {
		return ErrStaleData
	}
	if p.Price == 0 {
		return ErrInvalidPrice
	}
	return nil
}
