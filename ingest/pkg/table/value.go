package table

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is a single typed cell. The zero value is null.
type Value struct {
	kind Kind
	s    string
	f    float64
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Num returns a numeric value.
func Num(f float64) Value { return Value{kind: KindNumber, f: f} }

// Time returns a time value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Parse infers a cell from its raw text: empty text is null, plain decimal
// text is a number, anything else is a string.
func Parse(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null()
	}
	if f, ok := parseDecimal(s); ok {
		return Num(f)
	}
	return Str(raw)
}

var decimalRE = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseDecimal accepts digits with an optional sign, point and exponent.
// NaN, infinities and hex floats stay text.
func parseDecimal(s string) (float64, bool) {
	if !decimalRE.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric content. Strings holding a number are converted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.f, true
	case KindString:
		return parseDecimal(strings.TrimSpace(v.s))
	default:
		return 0, false
	}
}

// AsTime returns the time content for time values.
func (v Value) AsTime() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// String renders the value for display. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format(time.DateOnly)
		}
		return v.t.Format(time.DateTime)
	default:
		return ""
	}
}

// Key returns the join key for the value. Numbers and numeric strings share a
// key space so that "7" in one sheet matches 7 in another.
func (v Value) Key() (string, bool) {
	switch v.kind {
	case KindNull:
		return "", false
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return "", false
		}
		if f, ok := parseDecimal(s); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return s, true
	default:
		return v.String(), true
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.f == o.f
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}
