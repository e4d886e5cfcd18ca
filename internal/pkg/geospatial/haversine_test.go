package geospatial_test

import (
	"math"
	"testing"

	"mapmarks/internal/pkg/geospatial"
)

func TestHaversine_OneDegreeOfLatitude(t *testing.T) {
	// One degree of latitude is about 111.19 km on a 6371 km sphere.
	got := geospatial.Haversine(0, 0, 1, 0)
	if math.Abs(got-111195) > 100 {
		t.Errorf("expected ~111195m, got %f", got)
	}

	if d := geospatial.Haversine(40.4168, -3.7038, 40.4168, -3.7038); d != 0 {
		t.Errorf("distance to self must be zero, got %f", d)
	}
}

func TestBoundsAround_ContainsTheCircle(t *testing.T) {
	b := geospatial.BoundsAround(10, 20, 50000)

	if !b.Contains(10, 20) {
		t.Error("center must be inside its own bounds")
	}
	// A point just inside the radius due north.
	if !b.Contains(10+49000/111320.0, 20) {
		t.Error("point within the radius must be inside the bounds")
	}
	// Well past the box in either axis.
	if b.Contains(12, 20) || b.Contains(10, 23) {
		t.Error("points far outside the radius must be outside the bounds")
	}
}
