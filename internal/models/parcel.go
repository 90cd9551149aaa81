package models

// Coordinates is a WGS84 point as clicked on the map.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Parcel is a cadastral parcel resolved from a single map click.
// Every string field may be empty when the feature service did not return it.
// Coordinates always hold the clicked point, not the parcel centroid.
type Parcel struct {
	Coordinates  Coordinates `json:"coordinates"`
	ID           string      `json:"id"`
	Voivodeship  string      `json:"voivodeship"`
	County       string      `json:"county"`
	Municipality string      `json:"municipality"`
	Precinct     string      `json:"precinct"`
	PlotNumber   string      `json:"plotNumber"`
	Area         string      `json:"area,omitempty"`
}

// Key returns the identity used to merge repeated clicks on the same parcel.
func (p Parcel) Key() string {
	return p.PlotNumber + "-" + p.Precinct
}
