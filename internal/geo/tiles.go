package geo

import "math"

// TileSize is the pixel edge of a slippy-map tile.
const TileSize = 256

// MaxZoom is the deepest zoom level requested from tile services.
const MaxZoom = 19

// TilePoint returns the fractional tile coordinates of c at zoom z.
// Multiplying by TileSize gives global pixel coordinates.
func TilePoint(c LatLng, z int) (x, y float64) {
	n := math.Exp2(float64(z))
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, c.Lat))
	latRad := lat * math.Pi / 180
	x = (c.Lng + 180) / 360 * n
	y = (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n
	return x, y
}

// PixelSize returns the pixel width and height the bounds span at zoom z.
func PixelSize(b Bounds, z int) (w, h float64) {
	x1, y1 := TilePoint(LatLng{Lat: b.NorthEast.Lat, Lng: b.SouthWest.Lng}, z)
	x2, y2 := TilePoint(LatLng{Lat: b.SouthWest.Lat, Lng: b.NorthEast.Lng}, z)
	return (x2 - x1) * TileSize, (y2 - y1) * TileSize
}

// ZoomFor returns the smallest zoom at which the bounds cover at least
// minWidth by minHeight pixels, capped at MaxZoom.
func ZoomFor(b Bounds, minWidth, minHeight int) int {
	for z := 0; z < MaxZoom; z++ {
		w, h := PixelSize(b, z)
		if w >= float64(minWidth) && h >= float64(minHeight) {
			return z
		}
	}
	return MaxZoom
}
