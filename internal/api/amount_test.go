package api

import (
	"testing"
)

func TestParseTokens(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1", 10_000_000, false},
		{"0.0000001", 1, false},
		{"12.5", 125_000_000, false},
		{"1000", 10_000_000_000, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"0.00000001", 0, true}, // below stroop resolution
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := parseTokens(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseTokens(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseTokens(%q): got (%d, %v), want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	if got, err := parsePrice("0.25"); err != nil || got != 2_500_000 {
		t.Errorf("parsePrice(0.25): got (%d, %v)", got, err)
	}
	if _, err := parsePrice("0"); err == nil {
		t.Error("parsePrice(0): expected error")
	}
	if _, err := parsePrice("-1"); err == nil {
		t.Error("parsePrice(-1): expected error")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	if got := formatStroops(125_000_000); got != "12.5" {
		t.Errorf("formatStroops: got %q, want 12.5", got)
	}
	if got := formatStroops(0); got != "0" {
		t.Errorf("formatStroops(0): got %q", got)
	}
	if got := formatPrice(2_500_000); got != "0.25" {
		t.Errorf("formatPrice: got %q, want 0.25", got)
	}
}
