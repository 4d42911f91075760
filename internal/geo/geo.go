// Package geo provides the great-circle distance and bearing helpers the
// extraction pipeline needs over fixed-point coordinates. Grounded on the
// teacher's geomath.go/geo.go/movement.go, which build this same
// distance/bearing/turn-angle concern on `github.com/paulmach/orb` and
// `github.com/paulmach/orb/geo`; this package keeps that library usage,
// generalized to operate on model.Coordinate instead of the teacher's
// float-only GeoPoint and orb.Point/orb.LineString.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/LdDl/mapextract/internal/model"
)

const (
	pi180    = math.Pi / 180.0
	pi180Rev = 180.0 / math.Pi
)

func radiansToDegrees(r float64) float64 { return r * pi180Rev }

func toOrbPoint(c model.Coordinate) orb.Point {
	lon, lat := c.ToDegrees()
	return orb.Point{lon, lat}
}

// HaversineMeters returns the great-circle distance between two
// coordinates, in meters, via orb/geo.Distance.
func HaversineMeters(p, q model.Coordinate) float64 {
	return orbgeo.Distance(toOrbPoint(p), toOrbPoint(q))
}

// LineLengthMeters sums the great-circle length of consecutive segments,
// via orb/geo.Length over an orb.LineString.
func LineLengthMeters(pts []model.Coordinate) float64 {
	if len(pts) < 2 {
		return 0
	}
	line := make(orb.LineString, len(pts))
	for i, c := range pts {
		line[i] = toOrbPoint(c)
	}
	return orbgeo.Length(line)
}

// BearingRadians returns the initial compass bearing (radians, clockwise
// from north) from p to q, via orb/geo.Bearing, used by the turn-angle
// consultation in C9.
func BearingRadians(p, q model.Coordinate) float64 {
	return orbgeo.Bearing(toOrbPoint(p), toOrbPoint(q)) * pi180
}

// TurnAngleDegrees returns the signed deflection angle (degrees, -180..180)
// of the turn from edge (u->v) onto edge (v->w), where 0 is straight
// ahead and positive is a right (clockwise) turn. Used to feed the profile's
// process_turn callback (spec §6) with the "angle" parameter.
func TurnAngleDegrees(u, v, w model.Coordinate) float64 {
	in := BearingRadians(u, v)
	out := BearingRadians(v, w)
	diff := out - in
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return radiansToDegrees(diff)
}
