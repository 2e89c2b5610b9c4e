// Package geodetic computes bearings and distances between latitude/longitude fixes.
//
// Courses are solved with Mercator sailing on the WGS84 ellipsoid. Fixes on the same parallel get a
// nudged origin latitude, so east and west courses are still solved by sailing. Latitudes at the
// poles are pulled just inside them, where the projection is defined.
package geodetic

import (
	"math"

	geo "github.com/kellydunn/golang-geo"

	"github.com/timoonboru/cartographer-new/utils"
)

// WGS84 ellipsoid and projection parameters.
const (
	SemiMajorAxisMeters   = 6378137.0
	InverseFlattening     = 298.257223563
	MercatorScaleFactor   = 0.9996
	MetersPerNauticalMile = 1852.0
	minutesPerDegree      = 60.0
)

const (
	// EqualLatitudeEpsilon is the latitude difference, in degrees, below which two fixes are
	// considered to be on the same parallel. The origin latitude is nudged by this amount toward
	// the equator so the sailing formula keeps a non-zero northing. Latitudes are also kept this
	// far inside the poles.
	EqualLatitudeEpsilon = 1e-9

	// SailingSingularityEpsilon bounds |cos(course)|. At or below it the sailing distance is
	// undefined and the great circle solution is used. The equal-latitude nudge leaves |cos(course)|
	// well above this bound, so only courses handed directly to the sailing step reach it.
	SailingSingularityEpsilon = 1e-12

	// CoincidentEpsilon is the half-difference, in radians, of both longitude and reduced
	// latitude below which the great circle solution reports zero distance.
	CoincidentEpsilon = 1e-12
)

var (
	flattening          = 1 / InverseFlattening
	eccentricitySquared = 2*flattening - flattening*flattening
	eccentricity        = math.Sqrt(eccentricitySquared)
)

// Result is the course between two fixes.
type Result struct {
	// BearingDeg is in [0, 360), measured clockwise from north.
	BearingDeg float64
	// DistanceMeters is never negative.
	DistanceMeters float64
}

// BearingDistance returns the bearing from b toward a and the distance between them.
//
// Both bearing and distance are computed in a projection whose false origin is a's latitude.
// The distance uses a nudged origin latitude when the fixes share a parallel.
func BearingDistance(a, b *geo.Point) Result {
	rawLonA, rawLonB := NormalizeLongitude(a.Lng()), NormalizeLongitude(b.Lng())
	lonA, lonB := alignLongitudes(rawLonA, rawLonB)
	latA, latB := clampLatitude(a.Lat()), clampLatitude(b.Lat())

	return Result{
		BearingDeg:     bearing(latA, lonA, latB, lonB),
		DistanceMeters: sailingDistance(latA, lonA, latB, lonB, rawLonA, rawLonB) * MetersPerNauticalMile,
	}
}

// clampLatitude keeps lat inside the poles, where the isometric latitude is finite.
func clampLatitude(lat float64) float64 {
	limit := 90 - EqualLatitudeEpsilon
	return math.Max(-limit, math.Min(limit, lat))
}

// NormalizeLongitude wraps a longitude in degrees into [-180, 180].
func NormalizeLongitude(lon float64) float64 {
	return utils.RadToDeg(adjustLongitude(utils.DegToRad(lon)))
}

// alignLongitudes puts two longitudes of opposite sign into the same phase, choosing the shorter
// way around, and then shifts both into a positive working range.
func alignLongitudes(lon0, lon1 float64) (float64, float64) {
	if lon0*lon1 >= 0 {
		return lon0, lon1
	}
	if lon0 < 0 {
		lon0 += 360
	} else {
		lon1 += 360
	}
	if math.Abs(lon0-lon1) > 180 {
		if lon0 > lon1 {
			lon0 -= 360
		} else {
			lon1 -= 360
		}
	}
	return lon0 + 360, lon1 + 360
}

// mercatorProject returns the (east, north) offset in meters of (lat, lon) in an ellipsoidal
// Mercator projection whose false origin is (lat0, lon0).
func mercatorProject(lat, lon, lat0, lon0 float64) (float64, float64) {
	z := SemiMajorAxisMeters * MercatorScaleFactor
	east := utils.DegToRad(lon-lon0) * z
	north := z * (isometricLatitude(lat) - isometricLatitude(lat0))
	return east, north
}

func isometricLatitude(lat float64) float64 {
	phi := utils.DegToRad(lat)
	s := math.Sin(phi)
	return math.Log(math.Tan(math.Pi/4+phi/2) * math.Pow((1-eccentricity*s)/(1+eccentricity*s), eccentricity/2))
}

func bearing(latA, lonA, latB, lonB float64) float64 {
	east, north := mercatorProject(latB, lonB, latA, lonA)
	brg := 180 + utils.RadToDeg(math.Atan2(east, north))
	switch {
	case brg < 0:
		return brg + 360
	case brg >= 360:
		return brg - 360
	default:
		return brg
	}
}

// sailingDistance returns the Mercator sailing distance in nautical miles. rawLonA and rawLonB
// are the unaligned longitudes handed to the great circle fallback.
func sailingDistance(latA, lonA, latB, lonB, rawLonA, rawLonB float64) float64 {
	originLat := latA
	if math.Abs(latB-latA) < EqualLatitudeEpsilon {
		if latA > 0 {
			originLat = latA - EqualLatitudeEpsilon
		} else {
			originLat = latA + EqualLatitudeEpsilon
		}
	}
	east, north := mercatorProject(latB, lonB, originLat, lonA)
	course := math.Atan2(east, north)
	return distanceAlongCourse(course, originLat, latB, func() float64 {
		return GreatCircleNauticalMiles(latA, rawLonA, latB, rawLonB)
	})
}

func distanceAlongCourse(course, originLat, latB float64, greatCircle func() float64) float64 {
	cosCourse := math.Cos(course)
	if math.Abs(cosCourse) <= SailingSingularityEpsilon {
		return greatCircle()
	}
	return (latB - originLat) * minutesPerDegree / cosCourse
}

// GreatCircleNauticalMiles returns the geodesic distance in nautical miles between two fixes on
// the WGS84 ellipsoid, using the Andoyer-Lambert second order solution of the inverse problem.
func GreatCircleNauticalMiles(lat0, lon0, lat1, lon1 float64) float64 {
	oneMinusF := math.Sqrt(1 - eccentricitySquared)
	f := 1 - oneMinusF
	f4 := f / 4
	f64 := f * f / 64

	// reduced latitudes
	th1 := math.Atan(oneMinusF * math.Tan(utils.DegToRad(lat0)))
	th2 := math.Atan(oneMinusF * math.Tan(utils.DegToRad(lat1)))
	thm := (th1 + th2) / 2
	dthm := (th2 - th1) / 2
	dlam := adjustLongitude(utils.DegToRad(lon1) - utils.DegToRad(lon0))
	dlamm := dlam / 2
	if math.Abs(dlam) < CoincidentEpsilon && math.Abs(dthm) < CoincidentEpsilon {
		return 0
	}

	sinDlamm := math.Sin(dlamm)
	cosThm, sinThm := math.Cos(thm), math.Sin(thm)
	cosDthm, sinDthm := math.Cos(dthm), math.Sin(dthm)
	l := sinDthm*sinDthm + (cosDthm*cosDthm-sinThm*sinThm)*sinDlamm*sinDlamm
	cosD := 1 - l - l
	d := math.Acos(cosD)

	e := cosD + cosD
	sinD := math.Sin(d)
	y := sinThm * cosDthm
	y *= (y + y) / (1 - l)
	t := sinDthm * cosThm
	t *= (t + t) / l
	x := y + t
	y -= t
	t = d / sinD
	dd := 4 * t * t
	aa := dd * e
	bb := dd + dd

	meters := SemiMajorAxisMeters * sinD * (t - f4*(t*x-y) +
		f64*(x*(aa+(t-.5*(aa-e))*x)-y*(bb+e*y)+dd*x*y))
	return meters / MetersPerNauticalMile
}

// adjustLongitude wraps radians into [-pi, pi].
func adjustLongitude(lon float64) float64 {
	if math.Abs(lon) <= math.Pi {
		return lon
	}
	lon += math.Pi
	lon -= 2 * math.Pi * math.Floor(lon/(2*math.Pi))
	return lon - math.Pi
}
