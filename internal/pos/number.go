package pos

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand    = decimal.NewFromInt(1000)
	hundred     = decimal.NewFromInt(100)
	percentUnit = decimal.NewFromInt(100000)
)

// Number is an upstream numeric field. Numbers and numeric strings decode;
// null, missing and anything non-numeric leave it invalid (zero) instead of
// failing the whole document.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

// NewNumber returns a valid Number holding n.
func NewNumber(n int64) Number {
	return Number{Value: decimal.NewFromInt(n), Valid: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	*n = Number{Value: d, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

// Decimal returns the raw value, zero when invalid.
func (n Number) Decimal() decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Value
}

// Thousandths decodes the fixed-point ×1000 encoding: 4500 → 4.5.
func (n Number) Thousandths() decimal.Decimal {
	return n.Decimal().Div(thousand)
}

// TaxRate decodes a ×100000 percentage into a fraction: 2500000 → 0.25.
func (n Number) TaxRate() decimal.Decimal {
	return n.Decimal().Div(percentUnit).Div(hundred)
}

// Int returns the value as an integer when it is valid and whole.
func (n Number) Int() (int64, bool) {
	if !n.Valid || !n.Value.IsInteger() {
		return 0, false
	}
	return n.Value.IntPart(), true
}

// Text is a string field that upstream sometimes sends as a number.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		return nil
	}
	*t = Text(string(b))
	return nil
}

func (t Text) String() string { return string(t) }

// Flag is a boolean that tolerates 1/0 and string forms.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Code is a two-digit upstream type code; numeric forms are zero padded.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	var t Text
	_ = t.UnmarshalJSON(b)
	s := string(t)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && len(s) < 2 {
		s = "0" + strconv.Itoa(n)
	}
	*c = Code(s)
	return nil
}
