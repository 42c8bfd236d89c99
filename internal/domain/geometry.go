package domain

// GeometryKind distinguishes the two crop geometry shapes carried by rows.
type GeometryKind string

const (
	GeometryPoint   GeometryKind = "point"
	GeometryPolygon GeometryKind = "polygon"
)

// Geometry is the WGS-84 shape used to crop a facility's region out of a COG
// scene: either a point (the facility location) or a polygon exterior ring.
type Geometry struct {
	Kind GeometryKind

	// Point coordinates, set when Kind is GeometryPoint.
	Lon float64
	Lat float64

	// Ring is the polygon exterior as lon/lat pairs, set when Kind is
	// GeometryPolygon. The ring is not required to be closed.
	Ring [][2]float64
}

// PointGeometry returns a point geometry at lon/lat.
func PointGeometry(lon, lat float64) Geometry {
	return Geometry{Kind: GeometryPoint, Lon: lon, Lat: lat}
}

// BoxGeometry returns a rectangular polygon geometry spanning the given
// bounds.
func BoxGeometry(minLon, minLat, maxLon, maxLat float64) Geometry {
	return Geometry{
		Kind: GeometryPolygon,
		Ring: [][2]float64{
			{minLon, minLat},
			{maxLon, minLat},
			{maxLon, maxLat},
			{minLon, maxLat},
		},
	}
}

// BoxAround returns a square polygon geometry centered on lon/lat with the
// given half-side length in degrees.
func BoxAround(lon, lat, halfSideDeg float64) Geometry {
	return BoxGeometry(lon-halfSideDeg, lat-halfSideDeg, lon+halfSideDeg, lat+halfSideDeg)
}

// IsZero reports whether the geometry is unset.
func (g Geometry) IsZero() bool {
	return g.Kind == ""
}

// Bounds returns the geometry's bounding box. A point's bounds are
// degenerate (min equals max).
func (g Geometry) Bounds() (minLon, minLat, maxLon, maxLat float64) {
	if g.Kind == GeometryPoint || len(g.Ring) == 0 {
		return g.Lon, g.Lat, g.Lon, g.Lat
	}
	minLon, minLat = g.Ring[0][0], g.Ring[0][1]
	maxLon, maxLat = minLon, minLat
	for _, pt := range g.Ring[1:] {
		minLon = min(minLon, pt[0])
		maxLon = max(maxLon, pt[0])
		minLat = min(minLat, pt[1])
		maxLat = max(maxLat, pt[1])
	}
	return minLon, minLat, maxLon, maxLat
}
