package models

import (
	"errors"
	"testing"
	"time"
)

func TestParsePayload_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		notObject bool
	}{
		{"NotJSON", "not json", false},
		{"Empty", "", false},
		{"Truncated", `{"resourceMetrics": [`, false},
		{"TrailingGarbage", `{} x`, false},
		{"Array", `[1, 2]`, true},
		{"Null", `null`, true},
		{"String", `"hello"`, true},
		{"Number", `42`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.body))
			if err == nil {
				t.Fatalf("ParsePayload(%q) expected error, got %+v", tt.body, p)
			}
			if got := errors.Is(err, ErrNotObject); got != tt.notObject {
				t.Errorf("errors.Is(err, ErrNotObject) = %v, want %v (err=%v)", got, tt.notObject, err)
			}
		})
	}
}

func TestParsePayload_LenientNesting(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"EmptyObject", `{}`},
		{"NullResourceMetrics", `{"resourceMetrics": null}`},
		{"ScalarResourceMetrics", `{"resourceMetrics": 5}`},
		{"ScalarScopeMetrics", `{"resourceMetrics": [{"scopeMetrics": "x"}]}`},
		{"ObjectMetrics", `{"resourceMetrics": [{"scopeMetrics": [{"metrics": {}}]}]}`},
		{"ScalarSum", `{"resourceMetrics": [{"scopeMetrics": [{"metrics": [{"name": "m", "sum": 1}]}]}]}`},
		{"ScalarElements", `{"resourceMetrics": [1, "two", null, true]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParsePayload() unexpected error: %v", err)
			}
			points := 0
			for _, rm := range p.ResourceMetrics {
				for _, sm := range rm.ScopeMetrics {
					for _, m := range sm.Metrics {
						points += len(m.Sum.DataPoints)
					}
				}
			}
			if points != 0 {
				t.Errorf("expected no data points, got %d", points)
			}
		})
	}
}

func TestParsePayload_MalformedResourceKeepsScopes(t *testing.T) {
	body := `{"resourceMetrics": [{"resource": "oops", "scopeMetrics": [{"metrics": [{"name": "a"}, {"name": 7}, {"name": "b"}]}]}]}`

	p, err := ParsePayload([]byte(body))
	if err != nil {
		t.Fatalf("ParsePayload() unexpected error: %v", err)
	}
	if len(p.ResourceMetrics) != 1 {
		t.Fatalf("len(ResourceMetrics) = %d, want 1", len(p.ResourceMetrics))
	}
	rm := p.ResourceMetrics[0]
	if len(rm.Resource.Attributes) != 0 {
		t.Errorf("expected empty resource attributes, got %v", rm.Resource.Attributes)
	}
	metrics := rm.ScopeMetrics[0].Metrics
	if len(metrics) != 2 || metrics[0].Name != "a" || metrics[1].Name != "b" {
		t.Errorf("metrics = %+v, want [a b]", metrics)
	}
}

func TestDataPoint_Value(t *testing.T) {
	tests := []struct {
		name string
		dp   string
		want NumberValue
	}{
		{"IntString", `{"asInt": "150"}`, IntValue(150)},
		{"IntNumber", `{"asInt": 150}`, IntValue(150)},
		{"IntNegative", `{"asInt": "-5"}`, IntValue(-5)},
		{"IntFractional", `{"asInt": 42.9}`, IntValue(42)},
		{"Double", `{"asDouble": 0.000407}`, DoubleValue(0.000407)},
		{"DoubleString", `{"asDouble": "1.5"}`, DoubleValue(1.5)},
		{"IntWins", `{"asInt": "3", "asDouble": 9.5}`, IntValue(3)},
		{"NullIntFallsBack", `{"asInt": null, "asDouble": 2.5}`, DoubleValue(2.5)},
		{"BadIntDoesNotFallBack", `{"asInt": "abc", "asDouble": 2.5}`, NumberValue{}},
		{"Neither", `{}`, NumberValue{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dp DataPoint
			if err := json.Unmarshal([]byte(tt.dp), &dp); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if dp.Value != tt.want {
				t.Errorf("Value = %+v, want %+v", dp.Value, tt.want)
			}
		})
	}
}

func TestNumberValue_IsPositive(t *testing.T) {
	tests := []struct {
		name string
		v    NumberValue
		want bool
	}{
		{"PositiveInt", IntValue(1), true},
		{"ZeroInt", IntValue(0), false},
		{"NegativeInt", IntValue(-5), false},
		{"PositiveDouble", DoubleValue(0.000407), true},
		{"ZeroDouble", DoubleValue(0), false},
		{"NegativeDouble", DoubleValue(-0.5), false},
		{"None", NumberValue{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsPositive(); got != tt.want {
				t.Errorf("IsPositive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNumberValue_NonFinite(t *testing.T) {
	for _, s := range []string{`{"asDouble": "NaN"}`, `{"asDouble": "Infinity"}`} {
		var dp DataPoint
		if err := json.Unmarshal([]byte(s), &dp); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", s, err)
		}
		if dp.Value.Kind != NumberDouble {
			t.Fatalf("Kind = %v, want NumberDouble", dp.Value.Kind)
		}
		if dp.Value.IsPositive() {
			t.Errorf("IsPositive() = true for %s", s)
		}
	}
}

func TestDataPoint_TimeUnixNano(t *testing.T) {
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	tests := []struct {
		name   string
		dp     string
		want   time.Time
		wantOK bool
	}{
		{"String", `{"timeUnixNano": "1700000000000000000"}`, want, true},
		{"Number", `{"timeUnixNano": 1700000000000000000}`, want, true},
		{"SubSecond", `{"timeUnixNano": "1772186899885000000"}`, time.Unix(0, 1772186899885000000).UTC(), true},
		{"ZeroString", `{"timeUnixNano": "0"}`, time.Unix(0, 0).UTC(), true},
		{"ZeroNumber", `{"timeUnixNano": 0}`, time.Time{}, false},
		{"EmptyString", `{"timeUnixNano": ""}`, time.Time{}, false},
		{"Garbage", `{"timeUnixNano": "soon"}`, time.Time{}, false},
		{"Absent", `{}`, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dp DataPoint
			if err := json.Unmarshal([]byte(tt.dp), &dp); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			got, ok := dp.TimeUnixNano.Time()
			if ok != tt.wantOK {
				t.Fatalf("Time() ok = %v, want %v", ok, tt.wantOK)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
			if ok && got.Location() != time.UTC {
				t.Errorf("Time() location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestAttributes_Get(t *testing.T) {
	body := `[
		{"key": "type", "value": {"stringValue": "input"}},
		{"key": "count", "value": {"intValue": "42"}},
		{"key": "count_num", "value": {"intValue": 7}},
		{"key": "ratio", "value": {"doubleValue": 0.5}},
		{"key": "flag", "value": {"boolValue": true}},
		{"key": "dup", "value": {"boolValue": true}},
		{"key": "dup", "value": {"stringValue": "second"}},
		{"key": "broken", "value": "nope"},
		"garbage"
	]`

	var attrs Attributes
	if err := json.Unmarshal([]byte(body), &attrs); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"type", "input"},
		{"count", "42"},
		{"count_num", "7"},
		{"ratio", "0.5"},
		{"flag", ""},
		{"dup", "second"},
		{"broken", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		if got := attrs.Get(tt.key); got != tt.want {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestMetricRecord_Dimension(t *testing.T) {
	rec := MetricRecord{
		MetricName: MetricTokenUsage,
		Dimensions: []Dimension{{Name: "User", Value: "alice"}, {Name: "TokenType", Value: "input"}},
	}

	if v, ok := rec.Dimension("TokenType"); !ok || v != "input" {
		t.Errorf("Dimension(TokenType) = %q, %v", v, ok)
	}
	if _, ok := rec.Dimension("ServiceName"); ok {
		t.Error("Dimension(ServiceName) should be absent")
	}
}
