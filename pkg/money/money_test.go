package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromDecimal_RoundsHalfUp(t *testing.T) {
	cases := map[string]Cents{
		"1200":     120000,
		"1200.5":   120050,
		"0.005":    1,
		"0.004":    0,
		"12.345":   1235,
		"-12.345":  -1235,
		"99999.99": 9999999,
	}
	for in, want := range cases {
		got, err := FromDecimal(decimal.RequireFromString(in))
		if err != nil {
			t.Fatalf("FromDecimal(%s) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("FromDecimal(%s) = %d, want %d", in, got, want)
		}
	}
}

func TestCents_JSON(t *testing.T) {
	var payload struct {
		Amount Cents `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount": 50.25}`), &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if payload.Amount != 5025 {
		t.Errorf("Expected 5025 cents, got %d", payload.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount": "7.10"}`), &payload); err != nil {
		t.Fatalf("Unmarshal of quoted amount failed: %v", err)
	}
	if payload.Amount != 710 {
		t.Errorf("Expected 710 cents, got %d", payload.Amount)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"amount":7.10}` {
		t.Errorf("Unexpected encoding %s", out)
	}

	if err := json.Unmarshal([]byte(`{"amount": "abc"}`), &payload); err == nil {
		t.Error("Expected error for non-numeric amount")
	}
}

func TestFromDecimal_RejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"184467440737095516.17", "1e30", "-1e30", "10000000000000.01"} {
		if _, err := FromDecimal(decimal.RequireFromString(in)); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("FromDecimal(%s): expected ErrOutOfRange, got %v", in, err)
		}
	}

	got, err := FromDecimal(decimal.RequireFromString("10000000000000"))
	if err != nil {
		t.Fatalf("FromDecimal at the limit failed: %v", err)
	}
	if got != MaxAmount {
		t.Errorf("Expected %d, got %d", MaxAmount, got)
	}

	var payload struct {
		Amount Cents `json:"amount"`
	}
	payload.Amount = 42
	err = json.Unmarshal([]byte(`{"amount": 1e30}`), &payload)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange from Unmarshal, got %v", err)
	}
	if payload.Amount != 42 {
		t.Errorf("Expected the target to be left untouched, got %d", payload.Amount)
	}

	if _, err := FromMajor("99999999999999999999"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange from FromMajor, got %v", err)
	}
}

func TestMonthlyInterest(t *testing.T) {
	tests := []struct {
		balance Cents
		rate    string
		want    Cents
	}{
		{120000, "12", 1200},
		{116200, "12", 1162},
		{100000, "0", 0},
		{0, "18", 0},
		// 5 * 12 / 1200 = 0.05 -> 0
		{5, "12", 0},
		// 50 * 12 / 1200 = 0.5 -> 1
		{50, "12", 1},
		// 333333 * 19.99 / 1200 = 5552.7747... -> 5553
		{333333, "19.99", 5553},
	}
	for _, tt := range tests {
		got := MonthlyInterest(tt.balance, decimal.RequireFromString(tt.rate))
		if got != tt.want {
			t.Errorf("MonthlyInterest(%d, %s) = %d, want %d", tt.balance, tt.rate, got, tt.want)
		}
	}
}
