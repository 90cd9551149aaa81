package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

func parcel(plot, precinct, borough string) models.Parcel {
	return models.Parcel{PlotNumber: plot, Precinct: precinct, Municipality: borough}
}

func names(g *Groups) []string {
	var out []string
	for _, b := range g.Boroughs() {
		out = append(out, b.Name)
	}
	return out
}

func TestByBorough_WolaUrsusExample(t *testing.T) {
	g := ByBorough([]models.Parcel{
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("5", "Ursus", "Dzielnica Ursus"),
	})

	require.Equal(t, []string{"Dzielnica Wola", "Dzielnica Ursus"}, names(g))

	wola, ok := g.Lookup("Dzielnica Wola")
	require.True(t, ok)
	require.Len(t, wola.Entries(), 1)
	e, ok := wola.Entry("12-Wola")
	require.True(t, ok)
	assert.Equal(t, Entry{Key: "12-Wola", PlotNumber: "12", Precinct: "Wola", Count: 2}, e)

	ursus, ok := g.Lookup("Dzielnica Ursus")
	require.True(t, ok)
	e, ok = ursus.Entry("5-Ursus")
	require.True(t, ok)
	assert.Equal(t, 1, e.Count)
}

func TestByBorough_FirstOccurrenceOrder(t *testing.T) {
	g := ByBorough([]models.Parcel{
		parcel("9", "B", "Żoliborz"),
		parcel("1", "A", "Bemowo"),
		parcel("3", "B", "Żoliborz"),
		parcel("9", "B", "Żoliborz"),
		parcel("2", "A", "Bemowo"),
	})

	assert.Equal(t, []string{"Żoliborz", "Bemowo"}, names(g))

	zoliborz, _ := g.Lookup("Żoliborz")
	entries := zoliborz.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "9-B", entries[0].Key)
	assert.Equal(t, 2, entries[0].Count)
	assert.Equal(t, "3-B", entries[1].Key)
	assert.Equal(t, 3, zoliborz.Total())
}

func TestByBorough_SameParcelDifferentBoroughs(t *testing.T) {
	g := ByBorough([]models.Parcel{
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("12", "Wola", "Dzielnica Bemowo"),
	})

	require.Equal(t, 2, g.Len())
	for _, b := range g.Boroughs() {
		e, ok := b.Entry("12-Wola")
		require.True(t, ok)
		assert.Equal(t, 1, e.Count)
	}
}

func TestByBorough_EmptyMunicipalityKept(t *testing.T) {
	g := ByBorough([]models.Parcel{
		parcel("", "", ""),
		parcel("", "", ""),
		parcel("1", "X", "Wawer"),
	})

	assert.Equal(t, []string{"", "Wawer"}, names(g))
	empty, ok := g.Lookup("")
	require.True(t, ok)
	e, ok := empty.Entry("-")
	require.True(t, ok)
	assert.Equal(t, 2, e.Count)
}

func TestByBorough_Idempotent(t *testing.T) {
	input := []models.Parcel{
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("5", "Ursus", "Dzielnica Ursus"),
		parcel("12", "Wola", "Dzielnica Wola"),
	}

	first, err := json.Marshal(ByBorough(input))
	require.NoError(t, err)
	second, err := json.Marshal(ByBorough(input))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestByBorough_PermutationKeepingFirstOccurrence(t *testing.T) {
	a := []models.Parcel{
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("5", "Ursus", "Dzielnica Ursus"),
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("5", "Ursus", "Dzielnica Ursus"),
	}
	b := []models.Parcel{a[0], a[1], a[3], a[2]}

	ja, _ := json.Marshal(ByBorough(a))
	jb, _ := json.Marshal(ByBorough(b))
	assert.Equal(t, string(ja), string(jb))
}

func TestByBorough_Empty(t *testing.T) {
	g := ByBorough(nil)
	assert.Equal(t, 0, g.Len())

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestGroupsJSON(t *testing.T) {
	g := ByBorough([]models.Parcel{
		parcel("12", "Wola", "Dzielnica Wola"),
		parcel("12", "Wola", "Dzielnica Wola"),
	})

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"name":"Dzielnica Wola","total":2,"parcels":[{"key":"12-Wola","plotNumber":"12","precinct":"Wola","count":2}]}]`,
		string(data))
}
