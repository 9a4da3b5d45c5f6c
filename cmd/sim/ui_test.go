package main

import (
	"strings"
	"testing"

	"securesim/internal/game"
)

func TestOrderedTickers(t *testing.T) {
	got := orderedTickers(map[string]game.StockState{
		"NOVA": {}, "ZED": {}, "LUX": {}, "ABC": {},
	})
	want := []string{"LUX", "NOVA", "ABC", "ZED"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("orderedTickers = %v, want %v", got, want)
	}
}

func TestTickLine(t *testing.T) {
	line := tickLine(game.NewPortfolio().Snapshot())
	for _, want := range []string{"tick 0", "LUX 120.00", "FIZZ 95.00", "NOVA 180.00", "cash $800.00", "Beginner Investor"} {
		if !strings.Contains(line, want) {
			t.Fatalf("tick line %q missing %q", line, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 6, "abc..."},
		{"abcdef", 2, "ab"},
	}
	for _, tc := range tests {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
