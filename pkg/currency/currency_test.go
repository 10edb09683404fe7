package currency

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToSafeDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: "0"},
		{name: "float", input: 1234.56, want: "1234.56"},
		{name: "int", input: 42, want: "42"},
		{name: "numeric string", input: "19.90", want: "19.9"},
		{name: "brl string", input: "R$ 1.234,56", want: "1234.56"},
		{name: "negative brl string", input: "-R$ 50,00", want: "-50"},
		{name: "comma decimal", input: "10,5", want: "10.5"},
		{name: "garbage string", input: "abc", want: "0"},
		{name: "empty string", input: "", want: "0"},
		{name: "nan", input: math.NaN(), want: "0"},
		{name: "positive inf", input: math.Inf(1), want: "0"},
		{name: "negative inf", input: math.Inf(-1), want: "0"},
		{name: "nil string pointer", input: (*string)(nil), want: "0"},
		{name: "struct", input: struct{}{}, want: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToSafeDecimal(tc.input)
			if got.String() != tc.want {
				t.Fatalf("ToSafeDecimal(%v) = %s, want %s", tc.input, got, tc.want)
			}
		})
	}
}

func TestRoundCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "10.005", want: "10.01"},
		{input: "10.004", want: "10"},
		{input: "0.125", want: "0.13"},
		{input: "-0.125", want: "-0.13"},
		{input: "99.999", want: "100"},
	}

	for _, tc := range tests {
		d := decimal.RequireFromString(tc.input)
		if got := RoundCurrency(d); got.String() != tc.want {
			t.Fatalf("RoundCurrency(%s) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "thousands", input: 1234.56, want: "R$ 1.234,56"},
		{name: "millions", input: 1234567.89, want: "R$ 1.234.567,89"},
		{name: "nil", input: nil, want: "R$ 0,00"},
		{name: "negative", input: -50.0, want: "-R$ 50,00"},
		{name: "zero", input: 0.0, want: "R$ 0,00"},
		{name: "small", input: 0.5, want: "R$ 0,50"},
		{name: "garbage", input: "not-a-number", want: "R$ 0,00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatBRLValue(tc.input); got != tc.want {
				t.Fatalf("FormatBRLValue(%v) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.RequireFromString("150"), decimal.RequireFromString("10"))
	if got.String() != "15" {
		t.Fatalf("Percent(150, 10) = %s, want 15", got)
	}
}

func TestClampNonNegative(t *testing.T) {
	if got := ClampNonNegative(decimal.RequireFromString("-3.50")); !got.IsZero() {
		t.Fatalf("expected clamp to zero, got %s", got)
	}
	kept := decimal.RequireFromString("3.50")
	if got := ClampNonNegative(kept); !got.Equal(kept) {
		t.Fatalf("expected positive amount untouched, got %s", got)
	}
}
