package domain

// Bounds is a geographic bounding box in WGS 84 degrees, matching the
// rectangle of the currently visible map viewport. A nil *Bounds means
// the viewport is not known yet and no location should be excluded.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Contains reports whether the point lies inside the box. Edges count as
// inside: a marker sitting exactly on the viewport border is still drawn.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}
