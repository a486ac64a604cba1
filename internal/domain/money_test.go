package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/flora-agent/flora/internal/domain"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Money
	}{
		{"10.00", 1000},
		{"10", 1000},
		{"10.5", 1050},
		{"0.07", 7},
		{"-3.25", -325},
		{" 35.00 ", 3500},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := domain.ParseMoney(tc.in)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d minor units, got %d", tc.want, got)
			}
		})
	}
}

func TestParseMoney_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "10.x"} {
		if _, err := domain.ParseMoney(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		in   domain.Money
		want string
	}{
		{1000, "10.00"},
		{3500, "35.00"},
		{7, "0.07"},
		{-325, "-3.25"},
		{0, "0.00"},
	}

	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(domain.Money(3000))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"30.00"` {
		t.Fatalf("unexpected json: %s", data)
	}

	var m domain.Money
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if m != 3000 {
		t.Fatalf("expected 3000, got %d", m)
	}
}

func TestMoneyMulQty_NoDrift(t *testing.T) {
	// 3 * 10.00 + 1 * 5.00 == 35.00, точная целочисленная арифметика.
	total := domain.Money(1000).MulQty(3) + domain.Money(500).MulQty(1)
	if total.String() != "35.00" {
		t.Fatalf("expected 35.00, got %s", total)
	}
}
