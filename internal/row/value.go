package row

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Value is a sealed interface over the attribute value types the system
// can canonicalize and store. Only String, Int, Float, Bool, Decimal,
// Time, and Null implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// String is a character-string attribute value.
type String string

func (String) value() {}

// Int is an integer attribute value. Always int64.
type Int int64

func (Int) value() {}

// Float is a floating-point attribute value.
//
// Unlike integers and decimals, floats canonicalize via the host's
// shortest round-trippable text form, so a float that prints as 0.30000000000000004
// hashes as that text even when the store later reports it rounded.
type Float float64

func (Float) value() {}

// Bool is a boolean attribute value.
type Bool bool

func (Bool) value() {}

// Decimal is a fixed-point value carried as its exact pre-storage text,
// e.g. "1.10". The text is what gets canonicalized, not the stored value.
type Decimal string

func (Decimal) value() {}

// Time is a date/time attribute value. Canonicalized in UTC at second
// precision, matching the store's timestamp domain.
type Time time.Time

func (Time) value() {}

// Null is an explicit missing value. Null is storable in non-hashed
// attributes but is rejected by canonicalization.
type Null struct{}

func (Null) value() {}

// Row maps attribute names to values. Hashed-attribute order comes from
// the table configuration, never from map iteration.
type Row map[string]Value

// Clone returns a shallow copy of the row. Values are immutable, so a
// shallow copy is sufficient.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a copy of the row containing only the named attributes
// that are present.
func (r Row) Project(names ...string) Row {
	out := make(Row, len(names))
	for _, n := range names {
		if v, ok := r[n]; ok {
			out[n] = v
		}
	}
	return out
}

var decimalPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// NewDecimal validates text as a fixed-point literal and returns it as a
// Decimal value.
func NewDecimal(text string) (Decimal, error) {
	if !decimalPattern.MatchString(text) {
		return "", fmt.Errorf("invalid decimal literal %q", text)
	}
	return Decimal(text), nil
}

// DecimalFromFloat renders a float through the shortest round-trip text
// form and returns it as a Decimal. The result may differ from an exactly
// supplied literal for the same stored value; see the package comment.
func DecimalFromFloat(f float64) Decimal {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return Decimal(s)
}

// Equal reports whether two values are identical in type and content.
// Comparison is on the canonical text, so Decimal("1.10") and
// Decimal("1.1") are NOT equal even though the store treats them as the
// same number.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Decimal:
		bv, ok := b.(Decimal)
		return ok && av == bv
	case Time:
		bv, ok := b.(Time)
		return ok && time.Time(av).Equal(time.Time(bv))
	case Null:
		_, ok := b.(Null)
		return ok
	default:
		return false
	}
}

// Format renders a value for display and error messages.
func Format(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Decimal:
		return string(val)
	case Time:
		return time.Time(val).UTC().Format(TimeLayout)
	case Null:
		return "NULL"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TimeLayout is the canonical textual form of a Time value.
const TimeLayout = "2006-01-02 15:04:05"
