package orbit

import (
	"math"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soypat/geometry/md3"
)

// WGS-84 ellipsoid, in meters.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
	// EarthRotationRate is the sidereal rotation rate of the Earth in rad/s.
	EarthRotationRate = 7.292115146706979e-5
)

// Geodetic is a WGS-84 position (radians, meters above the ellipsoid).
type Geodetic struct {
	Latitude, Longitude, Altitude float64
}

// FixedFrames holds an inertial state expressed in the Earth fixed frame and as geodetic coordinates.
// Inputs and outputs are in meters and meters per second.
type FixedFrames struct {
	JD           float64
	GMST         float64
	PositionECEF md3.Vec
	VelocityECEF md3.Vec
	Geodetic     Geodetic
}

// NewFixedFrames converts the inertial state R, V at the provided Julian date.
func NewFixedFrames(R, V md3.Vec, jd float64) FixedFrames {
	θ := GMST(jd)
	r, v := ECI2ECEF(R, V, θ)
	return FixedFrames{JD: jd, GMST: θ, PositionECEF: r, VelocityECEF: v, Geodetic: ECEF2Geodetic(r)}
}

// GMST returns the Greenwich mean sidereal time in radians at the Julian date jd.
func GMST(jd float64) float64 {
	dt := julian.JDToTime(jd).UTC()
	θ := satellite.GSTimeFromDate(dt.Year(), int(dt.Month()), dt.Day(), dt.Hour(), dt.Minute(), dt.Second())
	// GSTimeFromDate only takes whole seconds.
	θ += EarthRotationRate * float64(dt.Nanosecond()) / 1e9
	return normalizeAngle(θ)
}

// ECI2ECEF converts an inertial state to the Earth fixed frame for the provided GMST (radians).
func ECI2ECEF(R, V md3.Vec, θgst float64) (md3.Vec, md3.Vec) {
	r := satellite.ECIToECEF(satellite.Vector3{X: R.X, Y: R.Y, Z: R.Z}, θgst)
	v := satellite.ECIToECEF(satellite.Vector3{X: V.X, Y: V.Y, Z: V.Z}, θgst)
	// Remove the transport velocity ω × r.
	return md3.Vec{X: r.X, Y: r.Y, Z: r.Z},
		md3.Vec{X: v.X + EarthRotationRate*r.Y, Y: v.Y - EarthRotationRate*r.X, Z: v.Z}
}

// ECEF2Geodetic converts an Earth fixed position in meters to WGS-84 geodetic coordinates
// using Bowring's iteration.
func ECEF2Geodetic(R md3.Vec) Geodetic {
	lon := math.Atan2(R.Y, R.X)
	p := math.Hypot(R.X, R.Y)
	lat := math.Atan2(R.Z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(R.Z+wgs84E2*N*sinLat, p)
	}
	sinLat, cosLat := math.Sincos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - N
	} else {
		alt = math.Abs(R.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}
	return Geodetic{Latitude: lat, Longitude: lon, Altitude: alt}
}

// Geodetic2ECEF converts WGS-84 geodetic coordinates to an Earth fixed position in meters.
func Geodetic2ECEF(g Geodetic) md3.Vec {
	sinLat, cosLat := math.Sincos(g.Latitude)
	sinLon, cosLon := math.Sincos(g.Longitude)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	return md3.Vec{
		X: (N + g.Altitude) * cosLat * cosLon,
		Y: (N + g.Altitude) * cosLat * sinLon,
		Z: (N*(1-wgs84E2) + g.Altitude) * sinLat,
	}
}
