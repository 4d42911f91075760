package model

// CoordinatePrecision is the fixed-point scale: lon/lat are stored as
// degrees * CoordinatePrecision, matching spec's "fixed-point (lon, lat)
// in 1e-6 degrees".
const CoordinatePrecision = 1000000

// Coordinate is a fixed-point (lon, lat) pair in 1e-6 degree units.
type Coordinate struct {
	Lon int32
	Lat int32
}

// FromDegrees builds a Coordinate from floating point degrees.
func FromDegrees(lon, lat float64) Coordinate {
	return Coordinate{
		Lon: int32(lon * CoordinatePrecision),
		Lat: int32(lat * CoordinatePrecision),
	}
}

// ToDegrees returns the floating point degree representation.
func (c Coordinate) ToDegrees() (lon, lat float64) {
	return float64(c.Lon) / CoordinatePrecision, float64(c.Lat) / CoordinatePrecision
}

// Valid reports whether the coordinate lies within the legal lon/lat range.
func (c Coordinate) Valid() bool {
	lon, lat := c.ToDegrees()
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// Equal reports whether two coordinates are the same fixed-point point.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.Lon == o.Lon && c.Lat == o.Lat
}
