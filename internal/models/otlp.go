// Package models defines data structures and domain types.
package models

import (
	"bytes"
	"errors"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotObject is returned when a payload's top-level JSON value is not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Payload is the root of an OTLP/JSON metrics export request.
type Payload struct {
	ResourceMetrics List[ResourceMetrics] `json:"resourceMetrics"`
}

// ResourceMetrics groups the metrics emitted by a single resource (process).
type ResourceMetrics struct {
	Resource     Resource           `json:"resource"`
	ScopeMetrics List[ScopeMetrics] `json:"scopeMetrics"`
}

// Resource describes the emitting process, e.g. service.name and service.version.
type Resource struct {
	Attributes Attributes `json:"attributes"`
}

// ScopeMetrics groups the metrics produced by one instrumentation scope.
type ScopeMetrics struct {
	Metrics List[Metric] `json:"metrics"`
}

// Metric is a named metric. Only sum metrics are read.
type Metric struct {
	Name string `json:"name"`
	Sum  Sum    `json:"sum"`
}

// Sum holds the data points of a sum metric.
type Sum struct {
	DataPoints List[DataPoint] `json:"dataPoints"`
}

// DataPoint is a single numeric observation.
type DataPoint struct {
	Attributes   Attributes
	Value        NumberValue
	TimeUnixNano UnixNano
}

// ParsePayload decodes an OTLP/JSON metrics payload. It fails only when data is
// not valid JSON or its top-level value is not an object; every nested field is
// optional and tolerated when malformed.
func ParsePayload(data []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return nil, errors.New("invalid JSON")
		}
		return nil, ErrNotObject
	}

	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List is a JSON array that decodes leniently: an absent, null or non-array
// value yields an empty list, and elements that cannot be decoded into T are
// dropped.
type List[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *List[T]) UnmarshalJSON(data []byte) error {
	*l = nil

	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	items := make(List[T], 0, len(raw))
	for _, elem := range raw {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	*l = items
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. A resource that is not an object
// is treated as having no attributes.
func (r *Resource) UnmarshalJSON(data []byte) error {
	type plain Resource
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*r = Resource{}
		return nil
	}
	*r = Resource(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. A sum that is not an object is
// treated as having no data points.
func (s *Sum) UnmarshalJSON(data []byte) error {
	type plain Sum
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*s = Sum{}
		return nil
	}
	*s = Sum(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. The numeric value is resolved
// once here: asInt wins over asDouble whenever it is present.
func (dp *DataPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Attributes   Attributes          `json:"attributes"`
		AsInt        jsoniter.RawMessage `json:"asInt"`
		AsDouble     jsoniter.RawMessage `json:"asDouble"`
		TimeUnixNano jsoniter.RawMessage `json:"timeUnixNano"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*dp = DataPoint{
		Attributes:   raw.Attributes,
		Value:        parseNumberValue(raw.AsInt, raw.AsDouble),
		TimeUnixNano: parseUnixNano(raw.TimeUnixNano),
	}
	return nil
}

// Attributes is an ordered OTLP key/value list.
type Attributes []Attribute

// UnmarshalJSON implements json.Unmarshaler with the same leniency as List.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var l List[Attribute]
	if err := l.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = Attributes(l)
	return nil
}

// Attribute is a single OTLP key/value pair.
type Attribute struct {
	Key   string         `json:"key"`
	Value AttributeValue `json:"value"`
}

// AttributeValue is the subset of OTLP AnyValue that can be used as a
// dimension: string, int and double values, all rendered as strings.
type AttributeValue struct {
	str string
	ok  bool
}

// StringAttribute returns a string attribute, mostly useful in tests.
func StringAttribute(key, value string) Attribute {
	return Attribute{Key: key, Value: AttributeValue{str: value, ok: true}}
}

// Text returns the rendered value and whether a supported value was set.
func (v AttributeValue) Text() (string, bool) {
	return v.str, v.ok
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	*v = AttributeValue{}

	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	if raw, ok := fields["stringValue"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			*v = AttributeValue{str: s, ok: true}
			return nil
		}
	}
	if raw, ok := fields["intValue"]; ok {
		if n, ok := parseInt(raw); ok {
			*v = AttributeValue{str: strconv.FormatInt(n, 10), ok: true}
			return nil
		}
	}
	if raw, ok := fields["doubleValue"]; ok {
		if f, ok := parseFloat(raw); ok {
			*v = AttributeValue{str: strconv.FormatFloat(f, 'f', -1, 64), ok: true}
			return nil
		}
	}
	return nil
}

// Get returns the value of the first attribute named key that carries a
// supported value, or "" when there is none.
func (a Attributes) Get(key string) string {
	for _, attr := range a {
		if attr.Key != key {
			continue
		}
		if s, ok := attr.Value.Text(); ok {
			return s
		}
	}
	return ""
}
