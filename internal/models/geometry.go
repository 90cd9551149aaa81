package models

import "encoding/json"

// Point is a GeoJSON Point geometry in WGS84 (SRID 4326).
// GeoJSON stores positions as [lon, lat].
type Point struct {
	Lng float64
	Lat float64
}

// PointFrom converts clicked coordinates into a GeoJSON point.
func PointFrom(c Coordinates) Point {
	return Point{Lng: c.Lng, Lat: c.Lat}
}

// MarshalJSON implements json.Marshaler using the GeoJSON Point layout.
func (p Point) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Type:        "Point",
		Coordinates: [2]float64{p.Lng, p.Lat},
	}
	return json.Marshal(geom)
}

// Feature is a GeoJSON Feature carrying a selected parcel as its properties.
type Feature struct {
	Geometry   Point  `json:"geometry"`
	Properties Parcel `json:"properties"`
}

// MarshalJSON adds the GeoJSON type member.
func (f Feature) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       string `json:"type"`
		Geometry   Point  `json:"geometry"`
		Properties Parcel `json:"properties"`
	}{
		Type:       "Feature",
		Geometry:   f.Geometry,
		Properties: f.Properties,
	})
}

// FeatureCollection is a GeoJSON FeatureCollection of selected parcels.
type FeatureCollection struct {
	Features []Feature
}

// NewFeatureCollection builds a collection in store order, one point per click.
func NewFeatureCollection(parcels []Parcel) FeatureCollection {
	features := make([]Feature, 0, len(parcels))
	for _, p := range parcels {
		features = append(features, Feature{
			Geometry:   PointFrom(p.Coordinates),
			Properties: p,
		})
	}
	return FeatureCollection{Features: features}
}

// MarshalJSON implements json.Marshaler for the GeoJSON FeatureCollection layout.
func (fc FeatureCollection) MarshalJSON() ([]byte, error) {
	features := fc.Features
	if features == nil {
		features = []Feature{}
	}
	return json.Marshal(struct {
		Type     string    `json:"type"`
		Features []Feature `json:"features"`
	}{
		Type:     "FeatureCollection",
		Features: features,
	})
}
