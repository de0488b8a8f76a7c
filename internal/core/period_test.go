package core

import (
	"testing"
	"time"
)

func TestPeriodBoundsLeapYear(t *testing.T) {
	from, to := Period{Month: 2, Year: 2024}.Bounds()
	if !from.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from: %v", from)
	}
	if !to.Equal(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected to: %v", to)
	}

	// Non-leap February ends on the 28th.
	_, to = Period{Month: 2, Year: 2025}.Bounds()
	if !to.Equal(time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected to: %v", to)
	}
}

func TestPeriodBoundsThirtyDayMonth(t *testing.T) {
	_, to := Period{Month: 4, Year: 2025}.Bounds()
	if !to.Equal(time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected to: %v", to)
	}
}

func TestPeriodContainsBoundaries(t *testing.T) {
	p := Period{Month: 4, Year: 2025}
	lastSecond := time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC)
	oneLater := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !p.Contains(lastSecond) {
		t.Fatal("last second of the month must be inside")
	}
	if p.Contains(oneLater) {
		t.Fatal("first second of the next month must be outside")
	}
	if !p.Contains(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("first instant of the month must be inside")
	}
}

func TestPeriodOfUsesUTC(t *testing.T) {
	// 23:30 on Jan 31 in UTC-2 is already February in UTC.
	loc := time.FixedZone("UTC-2", -2*3600)
	got := PeriodOf(time.Date(2025, 1, 31, 23, 30, 0, 0, loc))
	if got != (Period{Month: 2, Year: 2025}) {
		t.Fatalf("unexpected period: %+v", got)
	}
}

func TestPeriodPrevious(t *testing.T) {
	if p := (Period{Month: 1, Year: 2025}).Previous(); p != (Period{Month: 12, Year: 2024}) {
		t.Fatalf("unexpected previous: %+v", p)
	}
	if p := (Period{Month: 7, Year: 2025}).Previous(); p != (Period{Month: 6, Year: 2025}) {
		t.Fatalf("unexpected previous: %+v", p)
	}
}

func TestPeriodValidate(t *testing.T) {
	cases := []struct {
		p  Period
		ok bool
	}{
		{Period{Month: 1, Year: 2025}, true},
		{Period{Month: 12, Year: 2025}, true},
		{Period{Month: 0, Year: 2025}, false},
		{Period{Month: 13, Year: 2025}, false},
		{Period{Month: 6, Year: 0}, false},
	}
	for i, tc := range cases {
		err := tc.p.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
