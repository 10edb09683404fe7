package currency

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// ToSafeDecimal coerces arbitrary input into a finite decimal amount.
// Numbers, numeric strings (plain or BRL-formatted) and fmt.Stringer
// values are parsed; nil, NaN, infinities and garbage collapse to 0.
// The function never panics and never surfaces a parse error.
func ToSafeDecimal(input any) decimal.Decimal {
	switch v := input.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		return fromString(v)
	case *string:
		if v == nil {
			return decimal.Zero
		}
		return fromString(*v)
	case fmt.Stringer:
		return fromString(v.String())
	default:
		return decimal.Zero
	}
}

func fromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func fromString(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	if parsed, err := decimal.NewFromString(trimmed); err == nil {
		return parsed
	}
	if parsed, err := decimal.NewFromString(normalizeBRL(trimmed)); err == nil {
		return parsed
	}
	return decimal.Zero
}

// normalizeBRL strips the currency prefix and converts the Brazilian
// "1.234,56" notation into a parseable "1234.56".
func normalizeBRL(raw string) string {
	s := strings.TrimSpace(raw)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	if negative {
		s = "-" + s
	}
	return s
}

// RoundCurrency rounds to two decimal places, half up on the magnitude.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatBRL renders an amount in Brazilian real notation: thousands
// separated by dots, cents by a comma. Negative amounts keep a leading
// minus sign ahead of the currency symbol.
func FormatBRL(d decimal.Decimal) string {
	rounded := RoundCurrency(d)
	negative := rounded.IsNegative()

	fixed := rounded.Abs().StringFixed(2)
	intPart := fixed[:len(fixed)-3]
	centsPart := fixed[len(fixed)-2:]

	formatted := "R$ " + groupThousands(intPart) + "," + centsPart
	if negative {
		return "-" + formatted
	}
	return formatted
}

// FormatBRLValue is the forgiving variant used at display boundaries:
// it coerces first, so malformed input renders as "R$ 0,00".
func FormatBRLValue(input any) string {
	return FormatBRL(ToSafeDecimal(input))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Percent applies value% to base and rounds to cents.
func Percent(base, value decimal.Decimal) decimal.Decimal {
	return RoundCurrency(base.Mul(value).Div(decimal.NewFromInt(100)))
}

// ClampNonNegative floors an amount at zero.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
