package core

import "testing"

func TestBudgetAlert(t *testing.T) {
	cases := []struct {
		name  string
		spent int64
		limit int64
		want  AlertClass
	}{
		{"well under", 20_000, 50_000, AlertNormal},
		{"just under threshold", 39_999, 50_000, AlertNormal},
		{"at 80 percent", 40_000, 50_000, AlertNearLimit},
		{"at 90 percent", 45_000, 50_000, AlertNearLimit},
		{"exactly at limit", 50_000, 50_000, AlertNearLimit},
		{"one cent over", 50_001, 50_000, AlertExceeded},
		{"zero limit zero spent", 0, 0, AlertNormal},
		{"zero limit with spend", 100, 0, AlertExceeded},
	}
	for _, tc := range cases {
		b := Budget{Spent: Money{Cents: tc.spent}, Limit: Money{Cents: tc.limit}}
		if got := b.Alert(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestBudgetPercent(t *testing.T) {
	b := Budget{Spent: Money{Cents: 45_000}, Limit: Money{Cents: 50_000}}
	if got := b.Percent(); got != 90 {
		t.Fatalf("expected 90, got %v", got)
	}
	if got := (Budget{Spent: Money{Cents: 100}}).Percent(); got != 0 {
		t.Fatalf("zero limit should report 0%%, got %v", got)
	}
}

func TestBudgetRemaining(t *testing.T) {
	b := Budget{Spent: Money{Cents: 45_000}, Limit: Money{Cents: 50_000}}
	if got := b.Remaining(); got.Cents != 5_000 {
		t.Fatalf("expected 5000, got %d", got.Cents)
	}
	over := Budget{Spent: Money{Cents: 60_000}, Limit: Money{Cents: 50_000}}
	if got := over.Remaining(); got.Cents != -10_000 {
		t.Fatalf("expected -10000, got %d", got.Cents)
	}
}
