package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

func TestASCIIName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"WAiB_Wola_2024-05-01.txt", "WAiB_Wola_2024-05-01.txt"},
		{"WAiB_Żoliborz_2024-05-01.txt", "WAiB_Zoliborz_2024-05-01.txt"},
		{"PINB_Białołęka_2024-05-01.txt", "PINB_Bialoleka_2024-05-01.txt"},
		{"PINB_Praga-Północ_2024-05-01.txt", "PINB_Praga-Polnoc_2024-05-01.txt"},
		{`odd"name.txt`, "odd_name.txt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ASCIIName(tt.in), tt.in)
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Praga-Północ", SafeName("Praga-Północ"))
	assert.Equal(t, "A_B_C_D", SafeName(`A/B\C:D`))
	assert.Equal(t, "tab_new_", SafeName("tab\tnew\n"))
}

func TestNameSet(t *testing.T) {
	names := nameSet{}
	assert.Equal(t, "a.txt", names.unique("a.txt"))
	assert.Equal(t, "a_2.txt", names.unique("a.txt"))
	assert.Equal(t, "a_2_2.txt", names.unique("a_2.txt"))
	assert.Equal(t, "a_3.txt", names.unique("a.txt"))
	assert.Equal(t, "b", names.unique("b"))
	assert.Equal(t, "b_2", names.unique("b"))
}

func TestContentDisposition(t *testing.T) {
	a := Artifact{Filename: "WAiB_Śródmieście_2024-05-01.txt"}

	got := a.ContentDisposition()
	assert.Contains(t, got, `attachment; filename="WAiB_Srodmiescie_2024-05-01.txt"`)
	assert.Contains(t, got, `filename*=UTF-8''WAiB_%C5%9Ar%C3%B3dmie%C5%9Bcie_2024-05-01.txt`)
}

func TestExportGeoJSON(t *testing.T) {
	a, err := ExportGeoJSON([]models.Parcel{wolaParcel}, fixedClock())
	require.NoError(t, err)
	assert.Equal(t, ContentTypeGeoJSON, a.ContentType)
	assert.Equal(t, "dzialki_2024-05-01T14-30-00-000Z.geojson", a.Filename)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties models.Parcel `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(a.Content, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{20.9712, 52.2381}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "12", fc.Features[0].Properties.PlotNumber)
}
