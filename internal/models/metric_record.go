package models

import "time"

// MetricName is the CloudWatch metric name of a published record.
type MetricName string

const (
	MetricTokenUsage MetricName = "TokenUsage"
	MetricCostUsage  MetricName = "CostUsage"
)

// Unit is the CloudWatch standard unit of a published record.
type Unit string

const (
	UnitCount Unit = "Count"
	UnitNone  Unit = "None"
)

// Dimension is a name/value pair used to slice a metric in CloudWatch.
type Dimension struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// MetricRecord is one flat metric datum ready to be submitted to a sink.
type MetricRecord struct {
	Timestamp  time.Time   `json:"Timestamp"`
	MetricName MetricName  `json:"MetricName"`
	Unit       Unit        `json:"Unit"`
	Dimensions []Dimension `json:"Dimensions"`
	Value      float64     `json:"Value"`
}

// Dimension returns the value of the named dimension.
func (r MetricRecord) Dimension(name string) (string, bool) {
	for _, d := range r.Dimensions {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}
