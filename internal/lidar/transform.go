package lidar

import "math"

// SphericalToCartesian converts distance (meters), azimuth (degrees) and
// elevation (degrees) into Cartesian sensor-frame coordinates.
// Coordinate convention: X=forward, Y=left, Z=up, azimuth measured
// counter-clockwise from +X so that atan2(y, x) recovers it.
func SphericalToCartesian(distance, azimuthDeg, elevationDeg float64) (x, y, z float64) {
	azimuthRad := azimuthDeg * math.Pi / 180.0
	elevationRad := elevationDeg * math.Pi / 180.0

	cosElevation := math.Cos(elevationRad)
	sinElevation := math.Sin(elevationRad)
	cosAzimuth := math.Cos(azimuthRad)
	sinAzimuth := math.Sin(azimuthRad)

	x = distance * cosElevation * cosAzimuth
	y = distance * cosElevation * sinAzimuth
	z = distance * sinElevation
	return
}

// CartesianToSpherical is the inverse of SphericalToCartesian. Azimuth is in
// (-180, 180] degrees. A point at the origin returns all zeros.
func CartesianToSpherical(x, y, z float64) (distance, azimuthDeg, elevationDeg float64) {
	distance = math.Sqrt(x*x + y*y + z*z)
	if distance == 0 {
		return 0, 0, 0
	}
	azimuthDeg = math.Atan2(y, x) * 180.0 / math.Pi
	elevationDeg = math.Asin(z/distance) * 180.0 / math.Pi
	return
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg / 180.0 * math.Pi }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad / math.Pi * 180.0 }
