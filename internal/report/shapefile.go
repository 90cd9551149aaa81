package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// wgs84PRJ is the ESRI WKT of EPSG:4326, written next to the shapefile.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const shapefileStem = "dzialki"

type dbfColumn struct {
	field shp.Field
	value func(p models.Parcel) string
}

func dbfColumns(schema models.Schema) []dbfColumn {
	cols := []dbfColumn{
		{shp.StringField("ID", 64), func(p models.Parcel) string { return p.ID }},
		{shp.StringField("WOJ", 64), func(p models.Parcel) string { return p.Voivodeship }},
		{shp.StringField("POWIAT", 64), func(p models.Parcel) string { return p.County }},
		{shp.StringField("GMINA", 80), func(p models.Parcel) string { return p.Municipality }},
		{shp.StringField("OBREB", 80), func(p models.Parcel) string { return p.Precinct }},
		{shp.StringField("NUMER", 32), func(p models.Parcel) string { return p.PlotNumber }},
	}
	if schema.TracksArea() {
		cols = append(cols, dbfColumn{shp.StringField("POLE", 16), func(p models.Parcel) string { return p.Area }})
	}
	return cols
}

// ExportShapefile writes the clicked points as an ESRI point shapefile and returns the
// .shp, .shx, .dbf, .prj and .cpg files zipped together.
func ExportShapefile(parcels []models.Parcel, schema models.Schema, now time.Time) (Artifact, error) {
	dir, err := os.MkdirTemp("", "parcelpicker-shp-")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create shapefile directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := writeShapefile(filepath.Join(dir, shapefileStem+".shp"), parcels, schema); err != nil {
		return Artifact{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, shapefileStem+".prj"), []byte(wgs84PRJ), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write projection file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, shapefileStem+".cpg"), []byte("UTF-8"), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to write code page file: %w", err)
	}

	content, err := zipDir(dir)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Filename:    TableFilename(now, ".zip"),
		ContentType: ContentTypeZip,
		Content:     content,
	}, nil
}

func writeShapefile(path string, parcels []models.Parcel, schema models.Schema) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	defer w.Close()

	cols := dbfColumns(schema)
	fields := make([]shp.Field, len(cols))
	for i, c := range cols {
		fields[i] = c.field
	}
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("failed to set shapefile fields: %w", err)
	}

	for _, p := range parcels {
		row := int(w.Write(&shp.Point{X: p.Coordinates.Lng, Y: p.Coordinates.Lat}))
		for i, c := range cols {
			value := truncateBytes(c.value(p), int(c.field.Size))
			if err := w.WriteAttribute(row, i, value); err != nil {
				return fmt.Errorf("failed to write attribute %d of row %d: %w", i, row, err)
			}
		}
	}

	return nil
}

// truncateBytes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func zipDir(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list shapefile directory: %w", err)
	}

	var files []zipEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		files = append(files, zipEntry{
			name: e.Name(),
			open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	return zipFiles(files)
}

type zipEntry struct {
	name string
	open func() (io.ReadCloser, error)
}

// zipFiles writes the entries, in order, into a zip archive.
func zipFiles(entries []zipEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		src, err := e.open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", e.name, err)
		}
		dst, err := zw.Create(e.name)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("failed to add %s to archive: %w", e.name, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Bundle zips several artifacts into one download. Entry names are made safe and unique.
func Bundle(filename string, artifacts []Artifact) (Artifact, error) {
	entries := make([]zipEntry, len(artifacts))
	names := nameSet{}
	for i, a := range artifacts {
		content := a.Content
		entries[i] = zipEntry{
			name: names.unique(SafeName(a.Filename)),
			open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
		}
	}

	content, err := zipFiles(entries)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Filename: filename, ContentType: ContentTypeZip, Content: content}, nil
}
