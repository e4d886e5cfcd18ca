package domain

import (
	"encoding/json"
	"fmt"
)

// ComparisonNotAvailable is rendered when a location has no query, or its
// query legitimately returned no data. It is never used to paper over a
// transport failure.
const ComparisonNotAvailable = "N/A"

// ComparisonValue is the numeric-or-"N/A" result shown next to a marker.
type ComparisonValue struct {
	Number  float64
	HasData bool
}

// Comparison wraps a numeric query result.
func Comparison(n float64) ComparisonValue {
	return ComparisonValue{Number: n, HasData: true}
}

// NoComparison is the value for locations with no query or no data.
func NoComparison() ComparisonValue {
	return ComparisonValue{}
}

// Display formats the value for the marker popup: "42.50%" or "N/A".
func (v ComparisonValue) Display() string {
	if !v.HasData {
		return ComparisonNotAvailable
	}
	return fmt.Sprintf("%.2f%%", v.Number)
}

// MarshalJSON emits either the bare number or the literal "N/A".
func (v ComparisonValue) MarshalJSON() ([]byte, error) {
	if !v.HasData {
		return json.Marshal(ComparisonNotAvailable)
	}
	return json.Marshal(v.Number)
}

func (v *ComparisonValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Comparison(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != ComparisonNotAvailable {
		return fmt.Errorf("comparison value: unexpected string %q", s)
	}
	*v = NoComparison()
	return nil
}

// QueryDescriptor pairs a location's derived lookup key with the query to
// run on its behalf inside one batched dispatch.
type QueryDescriptor struct {
	Key   string `json:"key"`
	Query string `json:"query"`
}

// MarkerView is the display payload produced for one visible location.
type MarkerView struct {
	Guid        string          `json:"guid"`
	Title       string          `json:"title"`
	StatusColor string          `json:"statusColor"`
	Comparison  ComparisonValue `json:"comparisonValue"`
	Description string          `json:"descriptionText"`
	Selected    bool            `json:"selected"`
	Workload    *LinkedEntity   `json:"workload,omitempty"`
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
}

// StatusColor maps a location's worst alert severity to a marker color.
func StatusColor(l *MapLocation) string {
	switch l.WorstSeverity() {
	case "CRITICAL":
		return "#bf0016"
	case "WARNING":
		return "#ffd966"
	case "NOT_ALERTING":
		return "#11a600"
	default:
		return "#8e9494"
	}
}
