package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// AlertSeverityNotConfigured is the sentinel severity for linked entities
// that have no alert conditions set up.
const AlertSeverityNotConfigured = "NOT_CONFIGURED"

// LinkedEntity is a telemetry entity associated with a map location.
type LinkedEntity struct {
	Guid          string `json:"guid"`
	Name          string `json:"name,omitempty"`
	Type          string `json:"type,omitempty"`
	AlertSeverity string `json:"alertSeverity"`
}

// GeoPosition is a marker coordinate plus an optional description.
// Upload files carry lat/lng either as JSON numbers or as numeric strings;
// both forms are coerced to float64 once, during decode. Valid reports
// whether the coercion produced finite coordinates.
type GeoPosition struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	Valid       bool    `json:"-"`
}

// NewGeoPosition builds an already-coerced position.
func NewGeoPosition(lat, lng float64) *GeoPosition {
	return &GeoPosition{Lat: lat, Lng: lng, Valid: finite(lat) && finite(lng)}
}

func (p *GeoPosition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat         any    `json:"lat"`
		Lng         any    `json:"lng"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	lat, latOK := coerceCoordinate(raw.Lat)
	lng, lngOK := coerceCoordinate(raw.Lng)

	p.Lat = lat
	p.Lng = lng
	p.Description = raw.Description
	p.Valid = latOK && lngOK
	return nil
}

// coerceCoordinate converts a raw JSON value into a finite float64.
func coerceCoordinate(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MapLocation is a point of interest rendered as a marker on a map.
// Records originate either from the host entity feed or from file
// ingestion; the only mutation they ever receive is a generated guid
// when ingested without one.
type MapLocation struct {
	Guid       string         `json:"guid"`
	Title      string         `json:"title"`
	ExternalID string         `json:"externalId,omitempty"`
	Map        string         `json:"map,omitempty"`
	Query      string         `json:"query,omitempty"`
	Location   *GeoPosition   `json:"location,omitempty"`
	Entities   []LinkedEntity `json:"entities,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
}

// UnmarshalJSON unifies the two shapes locations arrive in: a bare record,
// or a storage envelope {"id": ..., "document": {record}}. The envelope is
// unwrapped here so the ambiguity never reaches the filtering or query
// coordination code.
func (l *MapLocation) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Document json.RawMessage `json:"document"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Document) > 0 {
		data = envelope.Document
	}

	type plain MapLocation
	var rec plain
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	for i := range rec.Entities {
		if rec.Entities[i].AlertSeverity == "" {
			rec.Entities[i].AlertSeverity = AlertSeverityNotConfigured
		}
	}

	*l = MapLocation(rec)
	return nil
}

// HasCoordinates reports whether the location can be placed on a map.
func (l *MapLocation) HasCoordinates() bool {
	return l.Location != nil && l.Location.Valid
}

// FirstWorkload returns the first linked entity of type WORKLOAD, if any.
func (l *MapLocation) FirstWorkload() *LinkedEntity {
	for i := range l.Entities {
		if l.Entities[i].Type == "WORKLOAD" {
			return &l.Entities[i]
		}
	}
	return nil
}

// WorstSeverity returns the most severe alert state across linked entities.
func (l *MapLocation) WorstSeverity() string {
	worst := AlertSeverityNotConfigured
	for _, e := range l.Entities {
		if severityRank(e.AlertSeverity) > severityRank(worst) {
			worst = e.AlertSeverity
		}
	}
	return worst
}

func severityRank(s string) int {
	switch s {
	case "CRITICAL":
		return 3
	case "WARNING":
		return 2
	case "NOT_ALERTING":
		return 1
	default:
		return 0
	}
}

// Map is a named map owning a collection of locations. Center and zoom are
// optional; renderers fall back to defaults when unset.
type Map struct {
	Guid      string    `json:"guid"`
	Title     string    `json:"title"`
	AccountID int       `json:"accountId"`
	Lat       float64   `json:"lat,omitempty"`
	Lng       float64   `json:"lng,omitempty"`
	Zoom      int       `json:"zoom,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Fallback viewport used when a map has no stored center or zoom.
const (
	DefaultCenterLat = 10.5731
	DefaultCenterLng = -7.5898
	DefaultZoom      = 3
)

// Center returns the stored center or the default when unset.
func (m *Map) Center() (lat, lng float64) {
	if m.Lat != 0 || m.Lng != 0 {
		return m.Lat, m.Lng
	}
	return DefaultCenterLat, DefaultCenterLng
}

// ZoomOrDefault returns the stored zoom level or the default when unset.
func (m *Map) ZoomOrDefault() int {
	if m.Zoom > 0 {
		return m.Zoom
	}
	return DefaultZoom
}
