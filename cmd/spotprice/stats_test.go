package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/icodeforyou/spotprice-go/stats"
	"github.com/icodeforyou/spotprice-go/types/maybe"
)

func TestPrintStats(t *testing.T) {
	st := stats.Stats{
		Hour:     "2024-01-10 14",
		PriceNow: maybe.Some(4.2),
		Today:    stats.DayStats{Date: "2024-01-10", Max: maybe.Some(9.0), Min: maybe.Some(-0.5), Mean: maybe.Some(3.25)},
		Tomorrow: stats.DayStats{Date: "2024-01-11"},
		Cheapest: []stats.Window{
			{Hours: 2, Start: "10.01.2024 22:00", Mean: maybe.Some(0.1)},
			{Hours: 6},
		},
	}

	var buf bytes.Buffer
	if err := printStats(&buf, st); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"4.20", "-0.50", "3.25", "10.01.2024 22:00", "0.10"} {
		if !strings.Contains(out, want) {
			t.Errorf("printStats() expected output to contain %q, got:\n%s", want, out)
		}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 7 {
		t.Fatalf("printStats() expected 7 lines, got %d:\n%s", len(lines), out)
	}
	if got := strings.Fields(lines[3]); len(got) != 4 || got[1] != "-" || got[3] != "-" {
		t.Errorf("printStats() expected missing tomorrow values as '-', got %q", lines[3])
	}
	if got := strings.Fields(lines[6]); len(got) != 4 || got[2] != "-" {
		t.Errorf("printStats() expected empty window as '-', got %q", lines[6])
	}
}
