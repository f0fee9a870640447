package address

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_WellFormed(t *testing.T) {
	addr := "G" + strings.Repeat("A", 55)
	if err := Validate(addr); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"too short", "GABC"},
		{"too long", "G" + strings.Repeat("A", 56)},
		{"wrong prefix", "S" + strings.Repeat("A", 55)},
		{"lowercase", "G" + strings.Repeat("a", 55)},
		{"digit outside base32", "G" + strings.Repeat("1", 55)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.addr); !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("expected ErrInvalidAddress for %q, got %v", tc.addr, err)
			}
		})
	}
}
