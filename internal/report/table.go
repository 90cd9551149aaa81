package report

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

const (
	utf8BOM     = "\ufeff"
	tablePrefix = "dzialki_"
)

var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")

// TableColumns returns the header of the table for schema.
func TableColumns(schema models.Schema) []string {
	cols := []string{"Identifier", "Voivodeship", "County", "Municipality", "Precinct", "Plot number"}
	if schema.TracksArea() {
		cols = append(cols, "Area (ha)")
	}
	return append(cols, "Latitude", "Longitude")
}

// WriteTable writes parcels in store order as a BOM-prefixed, fully quoted CSV table.
// With a formula-text schema every text cell except the identifier is written as
// ="value" so spreadsheets keep plot numbers like 12/3 or 0012 as text.
func WriteTable(w io.Writer, parcels []models.Parcel, schema models.Schema) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}

	writeRow(bw, TableColumns(schema))

	text := quote
	if schema.FormulaText() {
		text = formula
	}

	for _, p := range parcels {
		row := []string{
			quote(p.ID),
			text(p.Voivodeship),
			text(p.County),
			text(p.Municipality),
			text(p.Precinct),
			text(p.PlotNumber),
		}
		if schema.TracksArea() {
			row = append(row, text(p.Area))
		}
		row = append(row,
			quote(strconv.FormatFloat(p.Coordinates.Lat, 'f', -1, 64)),
			quote(strconv.FormatFloat(p.Coordinates.Lng, 'f', -1, 64)),
		)
		bw.WriteString(strings.Join(row, ",") + "\n")
	}

	return bw.Flush()
}

// ExportTable renders the table as an artifact named after now.
func ExportTable(parcels []models.Parcel, schema models.Schema, now time.Time) (Artifact, error) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, parcels, schema); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    TableFilename(now, ".csv"),
		ContentType: ContentTypeCSV,
		Content:     buf.Bytes(),
	}, nil
}

// TableFilename is dzialki_ plus the UTC ISO-8601 timestamp with ':' and '.' as '-'.
func TableFilename(now time.Time, ext string) string {
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	return tablePrefix + timestampReplacer.Replace(stamp) + ext
}

func writeRow(bw *bufio.Writer, cells []string) {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = quote(c)
	}
	bw.WriteString(strings.Join(quoted, ",") + "\n")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formula(s string) string {
	return quote(`="` + strings.ReplaceAll(s, `"`, `""`) + `"`)
}
