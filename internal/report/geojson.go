package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stwalsh4118/parcelpicker/internal/models"
)

// ExportGeoJSON renders the clicked points as a GeoJSON FeatureCollection.
func ExportGeoJSON(parcels []models.Parcel, now time.Time) (Artifact, error) {
	content, err := json.MarshalIndent(models.NewFeatureCollection(parcels), "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return Artifact{
		Filename:    TableFilename(now, ".geojson"),
		ContentType: ContentTypeGeoJSON,
		Content:     content,
	}, nil
}
