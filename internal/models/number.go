package models

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"
)

// NumberKind identifies which OTLP numeric field a data point carried.
type NumberKind int

const (
	NumberNone NumberKind = iota
	NumberInt
	NumberDouble
)

// NumberValue is the numeric value of a data point: asInt, asDouble, or neither.
type NumberValue struct {
	Kind   NumberKind
	Int    int64
	Double float64
}

// IntValue returns an integer NumberValue.
func IntValue(v int64) NumberValue {
	return NumberValue{Kind: NumberInt, Int: v}
}

// DoubleValue returns a double NumberValue.
func DoubleValue(v float64) NumberValue {
	return NumberValue{Kind: NumberDouble, Double: v}
}

// Float64 returns the value as a float64, 0 when no value is set.
func (n NumberValue) Float64() float64 {
	switch n.Kind {
	case NumberInt:
		return float64(n.Int)
	case NumberDouble:
		return n.Double
	default:
		return 0
	}
}

// IsPositive reports whether a value is set, finite and strictly greater than zero.
func (n NumberValue) IsPositive() bool {
	switch n.Kind {
	case NumberInt:
		return n.Int > 0
	case NumberDouble:
		return n.Double > 0 && !math.IsInf(n.Double, 0) && !math.IsNaN(n.Double)
	default:
		return false
	}
}

// UnixNano is an optional timestamp in nanoseconds since the Unix epoch.
type UnixNano struct {
	nanos int64
	set   bool
}

// NewUnixNano returns a set UnixNano.
func NewUnixNano(nanos int64) UnixNano {
	return UnixNano{nanos: nanos, set: true}
}

// Time returns the timestamp as a UTC instant, or false when it was absent.
func (u UnixNano) Time() (time.Time, bool) {
	if !u.set {
		return time.Time{}, false
	}
	return time.Unix(0, u.nanos).UTC(), true
}

func parseNumberValue(asInt, asDouble []byte) NumberValue {
	if present(asInt) {
		if n, ok := parseInt(asInt); ok {
			return IntValue(n)
		}
		return NumberValue{}
	}
	if present(asDouble) {
		if f, ok := parseFloat(asDouble); ok {
			return DoubleValue(f)
		}
	}
	return NumberValue{}
}

// parseUnixNano accepts the decimal string form used by OTLP/JSON as well as a
// bare number. An empty string or a numeric zero means "not set".
func parseUnixNano(raw []byte) UnixNano {
	if !present(raw) {
		return UnixNano{}
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return UnixNano{}
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return UnixNano{}
		}
		return NewUnixNano(n)
	}

	n, ok := parseInt(raw)
	if !ok || n == 0 {
		return UnixNano{}
	}
	return NewUnixNano(n)
}

// parseInt reads an OTLP int64, which JSON encoders emit either as a decimal
// string or as a number. Fractional numbers are truncated toward zero.
func parseInt(raw []byte) (int64, bool) {
	if !present(raw) {
		return 0, false
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}

	text := string(raw)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseFloat reads an OTLP double, accepting the string forms ("NaN",
// "Infinity", "1.5") that protobuf JSON mapping allows.
func parseFloat(raw []byte) (float64, bool) {
	if !present(raw) {
		return 0, false
	}
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	return f, err == nil
}

func present(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
