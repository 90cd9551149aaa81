package wms

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// Attribute labels published by the national parcel service for the dzialki layer.
const (
	LabelID           = "Identyfikator działki"
	LabelVoivodeship  = "Województwo"
	LabelCounty       = "Powiat"
	LabelMunicipality = "Gmina"
	LabelPrecinct     = "Obręb"
	LabelPlotNumber   = "Numer działki"
	LabelArea         = "Pole pow. w ewidencji gruntów (ha)"
)

// FeatureInfo holds the named attribute values found in a GetFeatureInfo response.
type FeatureInfo struct {
	values map[string]string
}

// Get returns the value of the attribute with the exact label, or "" when absent.
func (f FeatureInfo) Get(label string) string {
	return f.values[norm.NFC.String(label)]
}

// Len is the number of distinct attributes found.
func (f FeatureInfo) Len() int {
	return len(f.values)
}

// Parcel builds a parcel record at the clicked point. Missing attributes stay empty.
func (f FeatureInfo) Parcel(at models.Coordinates, schema models.Schema) models.Parcel {
	p := models.Parcel{
		Coordinates:  at,
		ID:           f.Get(LabelID),
		Voivodeship:  f.Get(LabelVoivodeship),
		County:       f.Get(LabelCounty),
		Municipality: f.Get(LabelMunicipality),
		Precinct:     f.Get(LabelPrecinct),
		PlotNumber:   f.Get(LabelPlotNumber),
	}
	if schema.TracksArea() {
		p.Area = f.Get(LabelArea)
	}
	return p
}

// ParseFeatureInfo reads every <Attribute Name="..."> element of a GML feature info
// document. The first occurrence of a label wins, matching the first feature hit.
// A well-formed document without attributes is not an error.
func ParseFeatureInfo(r io.Reader) (FeatureInfo, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	info := FeatureInfo{values: make(map[string]string)}

	var (
		capturing bool
		depth     int
		label     string
		text      bytes.Buffer
		root      = true
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return FeatureInfo{}, fmt.Errorf("failed to decode feature info: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root {
				root = false
				if t.Name.Local == "ServiceExceptionReport" {
					return FeatureInfo{}, fmt.Errorf("service exception: %s", exceptionText(dec))
				}
			}
			if capturing {
				depth++
				continue
			}
			if t.Name.Local != "Attribute" {
				continue
			}
			if name := attrValue(t, "Name"); name != "" {
				capturing = true
				depth = 0
				label = norm.NFC.String(name)
				text.Reset()
			}
		case xml.CharData:
			if capturing {
				text.Write(t)
			}
		case xml.EndElement:
			if !capturing {
				continue
			}
			if depth > 0 {
				depth--
				continue
			}
			if _, seen := info.values[label]; !seen {
				info.values[label] = strings.TrimSpace(text.String())
			}
			capturing = false
		}
	}

	return info, nil
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// exceptionText collects the character data of the rest of an exception report.
func exceptionText(dec *xml.Decoder) string {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(cd)); s != "" {
				if sb.Len() > 0 {
					sb.WriteString("; ")
				}
				sb.WriteString(s)
			}
		}
	}
	if sb.Len() == 0 {
		return "no message"
	}
	return sb.String()
}

// charsetReader decodes non UTF-8 documents, e.g. ISO-8859-2 served by older MapServer builds.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
