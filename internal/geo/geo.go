// Package geo holds the geographic primitives shared by the engine adapter
// and the tile mosaic: WGS84 bounds, spherical mercator projection and
// slippy-map tile math.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for bounds validation.
var (
	ErrInvalidLatitude  = errors.New("latitude out of range")
	ErrInvalidLongitude = errors.New("longitude out of range")
	ErrInvalidBounds    = errors.New("southwest corner must be below and left of northeast corner")
)

// earthRadius is the WGS84 semi-major axis used by EPSG:3857.
const earthRadius = 6378137.0

// MaxLatitude is the mercator cutoff; the projection diverges at the poles.
const MaxLatitude = 85.0511287798066

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Bounds is a geographic bounding box.
type Bounds struct {
	SouthWest LatLng `yaml:"southWest" json:"southWest"`
	NorthEast LatLng `yaml:"northEast" json:"northEast"`
}

// Validate checks coordinate ranges and corner ordering.
func (b Bounds) Validate() error {
	for _, c := range []LatLng{b.SouthWest, b.NorthEast} {
		if c.Lat < -MaxLatitude || c.Lat > MaxLatitude || math.IsNaN(c.Lat) {
			return fmt.Errorf("%w: %v", ErrInvalidLatitude, c.Lat)
		}
		if c.Lng < -180 || c.Lng > 180 || math.IsNaN(c.Lng) {
			return fmt.Errorf("%w: %v", ErrInvalidLongitude, c.Lng)
		}
	}
	if b.SouthWest.Lat >= b.NorthEast.Lat || b.SouthWest.Lng >= b.NorthEast.Lng {
		return ErrInvalidBounds
	}
	return nil
}

// Extent is a projected EPSG:3857 rectangle in meters.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// String formats the extent as "minx,miny,maxx,maxy".
func (e Extent) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", e.MinX, e.MinY, e.MaxX, e.MaxY)
}

// Project converts bounds into spherical mercator meters.
func Project(b Bounds) Extent {
	x1, y1 := Forward(b.SouthWest)
	x2, y2 := Forward(b.NorthEast)
	return Extent{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Forward projects one coordinate into EPSG:3857.
func Forward(c LatLng) (x, y float64) {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, c.Lat))
	x = earthRadius * c.Lng * math.Pi / 180
	y = earthRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}
