package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{14950, "149.50"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Item:     "Coffee",
		Category: "Food & Dining",
		Amount:   Money{Cents: 260},
		Date:     NewDate(2023, 12, 25),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(e *Expense)
	}{
		{"empty item", func(e *Expense) { e.Item = "  " }},
		{"bad category", func(e *Expense) { e.Category = "Groceries" }},
		{"zero amount", func(e *Expense) { e.Amount.Cents = 0 }},
		{"amount too large", func(e *Expense) { e.Amount.Cents = 100000000 }},
		{"zero date", func(e *Expense) { e.Date = Date{} }},
	}
	for _, tc := range cases {
		e := valid
		tc.mutate(&e)
		if err := e.Validate(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Amount: Money{Cents: 100000}, AlertThreshold: 80}
	if err := b.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	b.AlertThreshold = 40
	if err := b.Validate(); err == nil {
		t.Error("threshold below 50 accepted")
	}
	b.AlertThreshold = 101
	if err := b.Validate(); err == nil {
		t.Error("threshold above 100 accepted")
	}
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2023-12-25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ISO() != "2023-12-25" {
		t.Errorf("round trip = %q", d.ISO())
	}
	if _, err := ParseISODate("25/12/2023"); err == nil {
		t.Error("expected error for non-ISO format")
	}
}
