package domain

import (
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestPromotionIsValid(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	window := Promotion{
		IsActive:  true,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(p *Promotion)
		want   bool
	}{
		{"inside window", func(p *Promotion) {}, true},
		{"inactive", func(p *Promotion) { p.IsActive = false }, false},
		{"before start", func(p *Promotion) { p.StartDate = now.Add(time.Minute) }, false},
		{"after end", func(p *Promotion) { p.EndDate = now.Add(-time.Minute) }, false},
		{"at start boundary", func(p *Promotion) { p.StartDate = now }, true},
		{"at end boundary", func(p *Promotion) { p.EndDate = now }, true},
		{"exhausted", func(p *Promotion) { p.MaxUses = intPtr(3); p.UsedCount = 3 }, false},
		{"uses remaining", func(p *Promotion) { p.MaxUses = intPtr(3); p.UsedCount = 2 }, true},
		{"unlimited uses", func(p *Promotion) { p.UsedCount = 1_000_000 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := window
			tc.mutate(&p)
			if got := p.IsValid(now); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDiscountAmountFloors(t *testing.T) {
	cases := []struct {
		base    int64
		percent int
		want    int64
	}{
		{1000, 10, 100},
		{999, 10, 99},
		{1, 50, 0},
		{0, 50, 0},
		{-100, 50, 0},
		{1000, 0, 0},
		{1000, 100, 1000},
		{333, 33, 109},
	}
	for _, tc := range cases {
		p := Promotion{DiscountPercent: tc.percent}
		if got := p.DiscountAmount(tc.base); got != tc.want {
			t.Errorf("DiscountAmount(%d) at %d%%: got %d, want %d", tc.base, tc.percent, got, tc.want)
		}
	}
}

func TestDiscountAmountNeverExceedsBase(t *testing.T) {
	for percent := 0; percent <= 100; percent++ {
		p := Promotion{DiscountPercent: percent}
		for _, base := range []int64{1, 99, 100, 101, 9999, 1_000_000} {
			d := p.DiscountAmount(base)
			if d < 0 || d > base {
				t.Fatalf("DiscountAmount(%d) at %d%% = %d, out of [0, base]", base, percent, d)
			}
		}
	}
}

func TestExhausted(t *testing.T) {
	if (&Promotion{UsedCount: 10}).Exhausted() {
		t.Error("nil MaxUses must never exhaust")
	}
	if (&Promotion{MaxUses: intPtr(5), UsedCount: 4}).Exhausted() {
		t.Error("4/5 is not exhausted")
	}
	if !(&Promotion{MaxUses: intPtr(5), UsedCount: 5}).Exhausted() {
		t.Error("5/5 is exhausted")
	}
}
