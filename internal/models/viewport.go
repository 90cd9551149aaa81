package models

import "errors"

// ErrDegenerateViewport is returned when a viewport has no geographic or pixel extent.
var ErrDegenerateViewport = errors.New("degenerate viewport")

// Bounds is the geographic extent of the visible map, in degrees.
type Bounds struct {
	North float64 `json:"north" binding:"gte=-90,lte=90"`
	South float64 `json:"south" binding:"gte=-90,lte=90"`
	East  float64 `json:"east" binding:"gte=-180,lte=180"`
	West  float64 `json:"west" binding:"gte=-180,lte=180"`
}

// Size is the pixel size of the visible map.
type Size struct {
	Width  int `json:"width" binding:"required,gt=0"`
	Height int `json:"height" binding:"required,gt=0"`
}

// Viewport pairs the map bounds with the pixel size they are rendered at.
type Viewport struct {
	Bounds Bounds `json:"bounds" binding:"required"`
	Size   Size   `json:"size" binding:"required"`
}

// PixelPoint is a pixel offset from the top-left corner of the viewport.
type PixelPoint struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Validate reports ErrDegenerateViewport when the bounds are empty or inverted
// or when either pixel dimension is not positive.
func (v Viewport) Validate() error {
	if v.Bounds.North <= v.Bounds.South || v.Bounds.East <= v.Bounds.West {
		return ErrDegenerateViewport
	}
	if v.Size.Width <= 0 || v.Size.Height <= 0 {
		return ErrDegenerateViewport
	}
	return nil
}
