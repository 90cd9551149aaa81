package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

var wolaParcel = models.Parcel{
	ID:           "146302_8.0606.12",
	Voivodeship:  "mazowieckie",
	County:       "Warszawa",
	Municipality: "Dzielnica Wola",
	Precinct:     "6-06-06",
	PlotNumber:   "12",
	Area:         "0.0421",
	Coordinates:  models.Coordinates{Lat: 52.2381, Lng: 20.9712},
}

func TestExportTable_EmptyIsHeaderOnly(t *testing.T) {
	a, err := ExportTable(nil, models.SchemaV2, fixedClock())
	require.NoError(t, err)

	assert.Equal(t,
		"\ufeff\"Identifier\",\"Voivodeship\",\"County\",\"Municipality\",\"Precinct\",\"Plot number\",\"Latitude\",\"Longitude\"\n",
		a.Text())
}

func TestExportTable_CurrentSchemaUsesFormulaText(t *testing.T) {
	a, err := ExportTable([]models.Parcel{wolaParcel}, models.SchemaV2, fixedClock())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(a.Text(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "\ufeff\"Identifier\""))
	assert.Equal(t,
		`"146302_8.0606.12","=""mazowieckie""","=""Warszawa""","=""Dzielnica Wola""","=""6-06-06""","=""12""","52.2381","20.9712"`,
		lines[1])
	assert.NotContains(t, a.Text(), "0.0421")
}

func TestExportTable_AreaSchemaPlainQuoted(t *testing.T) {
	a, err := ExportTable([]models.Parcel{wolaParcel}, models.SchemaV1, fixedClock())
	require.NoError(t, err)

	assert.Equal(t,
		"\ufeff\"Identifier\",\"Voivodeship\",\"County\",\"Municipality\",\"Precinct\",\"Plot number\",\"Area (ha)\",\"Latitude\",\"Longitude\"\n"+
			"\"146302_8.0606.12\",\"mazowieckie\",\"Warszawa\",\"Dzielnica Wola\",\"6-06-06\",\"12\",\"0.0421\",\"52.2381\",\"20.9712\"\n",
		a.Text())
}

func TestExportTable_StoreOrderAndDuplicates(t *testing.T) {
	second := wolaParcel
	second.PlotNumber = "5"

	a, err := ExportTable([]models.Parcel{wolaParcel, second, wolaParcel}, models.SchemaV1, fixedClock())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(a.Text(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], `"12"`)
	assert.Contains(t, lines[2], `"5"`)
	assert.Contains(t, lines[3], `"12"`)
}

func TestExportTable_EscapesQuotes(t *testing.T) {
	p := models.Parcel{ID: `a"b`, PlotNumber: `7"`}

	a, err := ExportTable([]models.Parcel{p}, models.SchemaV2, fixedClock())
	require.NoError(t, err)
	assert.Contains(t, a.Text(), `"a""b"`)
	assert.Contains(t, a.Text(), `,"=""7""""""",`)

	a, err = ExportTable([]models.Parcel{p}, models.SchemaV1, fixedClock())
	require.NoError(t, err)
	assert.Contains(t, a.Text(), `"7"""`)
}

func TestTableFilename(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 34, 56, 789_000_000, time.FixedZone("CEST", 2*3600))

	assert.Equal(t, "dzialki_2024-05-01T10-34-56-789Z.csv", TableFilename(now, ".csv"))

	a, err := ExportTable(nil, models.SchemaV2, now)
	require.NoError(t, err)
	assert.Equal(t, "dzialki_2024-05-01T10-34-56-789Z.csv", a.Filename)
	assert.Equal(t, ContentTypeCSV, a.ContentType)
}
