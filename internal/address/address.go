// Package address validates principal addresses at the service boundary.
// Addresses use the strkey account format of the settlement network: a
// 56-character base32 string with a leading G.
package address

import (
	"errors"
	"fmt"
	"regexp"
)

// accountRegex matches ed25519 public-key strkeys: G + 55 base32 chars.
var accountRegex = regexp.MustCompile(`^G[A-Z2-7]{55}$`)

// ErrInvalidAddress is returned for anything that is not a well-formed
// account address.
var ErrInvalidAddress = errors.New("address: invalid account address")

// Validate checks that addr is a well-formed account address. It does not
// verify the strkey checksum; ownership proof is the authorization layer's
// concern.
func Validate(addr string) error {
	if !accountRegex.MatchString(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}
