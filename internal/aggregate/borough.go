// Package aggregate groups selected parcels by borough and merges repeated clicks.
package aggregate

import (
	"encoding/json"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// Entry is one unique parcel within a borough and how many times it was selected.
type Entry struct {
	Key        string `json:"key"`
	PlotNumber string `json:"plotNumber"`
	Precinct   string `json:"precinct"`
	Count      int    `json:"count"`
}

// Borough holds the unique parcels of one municipality in first-selection order.
type Borough struct {
	Name    string
	entries []*Entry
	index   map[string]*Entry
}

// Entries returns the unique parcels in first-selection order.
func (b *Borough) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = *e
	}
	return out
}

// Entry looks up a parcel by its PlotNumber-Precinct key.
func (b *Borough) Entry(key string) (Entry, bool) {
	e, ok := b.index[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Total is the number of selections in the borough, duplicates included.
func (b *Borough) Total() int {
	total := 0
	for _, e := range b.entries {
		total += e.Count
	}
	return total
}

// MarshalJSON encodes the borough with its entries as an ordered array.
func (b *Borough) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string  `json:"name"`
		Total   int     `json:"total"`
		Parcels []Entry `json:"parcels"`
	}{
		Name:    b.Name,
		Total:   b.Total(),
		Parcels: b.Entries(),
	})
}

// Groups is the borough grouping of a parcel sequence.
type Groups struct {
	boroughs []*Borough
	index    map[string]*Borough
}

// Boroughs returns the boroughs in first-occurrence order.
func (g *Groups) Boroughs() []*Borough {
	out := make([]*Borough, len(g.boroughs))
	copy(out, g.boroughs)
	return out
}

// Lookup returns the borough with the given municipality name.
func (g *Groups) Lookup(name string) (*Borough, bool) {
	b, ok := g.index[name]
	return b, ok
}

// Len is the number of distinct boroughs.
func (g *Groups) Len() int {
	return len(g.boroughs)
}

// MarshalJSON encodes the groups as an ordered array of boroughs.
func (g *Groups) MarshalJSON() ([]byte, error) {
	boroughs := g.boroughs
	if boroughs == nil {
		boroughs = []*Borough{}
	}
	return json.Marshal(boroughs)
}

// ByBorough groups parcels by Municipality and, inside each borough, by
// (PlotNumber, Precinct). Both levels keep first-occurrence order. Parcels without a
// municipality are grouped under the empty name. The input is not modified.
func ByBorough(parcels []models.Parcel) *Groups {
	g := &Groups{index: make(map[string]*Borough)}

	for _, p := range parcels {
		b, ok := g.index[p.Municipality]
		if !ok {
			b = &Borough{Name: p.Municipality, index: make(map[string]*Entry)}
			g.index[p.Municipality] = b
			g.boroughs = append(g.boroughs, b)
		}

		key := p.Key()
		e, ok := b.index[key]
		if !ok {
			e = &Entry{Key: key, PlotNumber: p.PlotNumber, Precinct: p.Precinct}
			b.index[key] = e
			b.entries = append(b.entries, e)
		}
		e.Count++
	}

	return g
}
