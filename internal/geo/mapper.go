// Package geo converts geographic points into the pixel space of a WMS map request.
package geo

import (
	"math"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// ToPixel returns the pixel offset of point inside viewport, measured from the
// west edge (I) and the north edge (J) and rounded to the nearest integer.
//
// It is the inverse of the pixel-to-degrees mapping a WMS 1.3.0 server applies to
// a plain EPSG:4326 BBOX request. The viewport must not be degenerate; callers
// check models.Viewport.Validate first.
func ToPixel(point models.Coordinates, viewport models.Viewport) models.PixelPoint {
	b := viewport.Bounds
	width := float64(viewport.Size.Width)
	height := float64(viewport.Size.Height)

	i := (point.Lng - b.West) / (b.East - b.West) * width
	j := (b.North - point.Lat) / (b.North - b.South) * height

	return models.PixelPoint{
		I: int(math.Round(i)),
		J: int(math.Round(j)),
	}
}
