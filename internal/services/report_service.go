package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/stwalsh4118/parcelpicker/internal/aggregate"
	"github.com/stwalsh4118/parcelpicker/internal/logger"
	"github.com/stwalsh4118/parcelpicker/internal/metrics"
	"github.com/stwalsh4118/parcelpicker/internal/models"
	"github.com/stwalsh4118/parcelpicker/internal/report"
	"github.com/stwalsh4118/parcelpicker/internal/store"
)

// Artifact kinds recorded in metrics, besides the letter kinds.
const (
	ArtifactTable     = "table"
	ArtifactShapefile = "shapefile"
	ArtifactGeoJSON   = "geojson"
)

// ErrAreaNotCollected is returned when a table with an area column is requested but
// the configured schema never reads area from the registry.
var ErrAreaNotCollected = errors.New("area is not collected under the configured schema")

// ReportConfig holds the fixed inputs of report generation.
type ReportConfig struct {
	Directory            report.Directory
	EnforcementRecipient string
	Schema               models.Schema
	Clock                func() time.Time
}

// ReportService derives groupings and documents from a session's selections.
// Nothing it returns is stored; every call recomputes from the current store.
type ReportService interface {
	// Boroughs groups the session's parcels by borough.
	Boroughs(session string) *aggregate.Groups

	// Letters renders one letter per borough for kind.
	// Returns report.ErrUnknownVariant for an unknown kind.
	Letters(session string, kind report.Kind) ([]report.Artifact, error)

	// LetterBundle zips the letters of kind into one download named <PREFIX>_<date>.zip.
	LetterBundle(session string, kind report.Kind) (report.Artifact, error)

	// Table exports the session's parcels as CSV. An empty schema uses the configured one.
	// Returns ErrAreaNotCollected when schema has an area column the configured one lacks.
	Table(session string, schema models.Schema) (report.Artifact, error)

	// Shapefile exports the clicked points as a zipped point shapefile.
	Shapefile(session string) (report.Artifact, error)

	// GeoJSON exports the clicked points as a FeatureCollection.
	GeoJSON(session string) (report.Artifact, error)
}

type reportService struct {
	registry *store.Registry
	cfg      ReportConfig
	variants map[report.Kind]report.Variant
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewReportService creates a new instance of ReportService.
func NewReportService(registry *store.Registry, cfg ReportConfig, log *logger.Logger, m *metrics.Metrics) ReportService {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Schema == "" {
		cfg.Schema = models.DefaultSchema
	}

	return &reportService{
		registry: registry,
		cfg:      cfg,
		variants: map[report.Kind]report.Variant{
			report.KindInquiry:     report.InquiryVariant(cfg.Directory),
			report.KindEnforcement: report.EnforcementVariant(cfg.EnforcementRecipient),
		},
		log:     log,
		metrics: m,
	}
}

func (s *reportService) Boroughs(session string) *aggregate.Groups {
	return aggregate.ByBorough(s.registry.Snapshot(session))
}

func (s *reportService) Letters(session string, kind report.Kind) ([]report.Artifact, error) {
	variant, ok := s.variants[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", report.ErrUnknownVariant, kind)
	}

	groups := s.Boroughs(session)
	gen := report.NewLetterGenerator(variant, s.cfg.Directory, s.cfg.Clock)

	letters, err := gen.Generate(groups)
	if err != nil {
		s.log.Error("Letter generation failed", err, map[string]interface{}{
			"session": session,
			"kind":    string(kind),
		})
		return nil, err
	}

	s.log.Info("Letters generated", map[string]interface{}{
		"session":  session,
		"kind":     string(kind),
		"boroughs": groups.Len(),
	})
	s.metrics.ObserveArtifacts(string(kind), len(letters))

	return letters, nil
}

func (s *reportService) LetterBundle(session string, kind report.Kind) (report.Artifact, error) {
	letters, err := s.Letters(session, kind)
	if err != nil {
		return report.Artifact{}, err
	}

	filename := s.variants[kind].Prefix + "_" + s.cfg.Clock().Format(report.DateLayout) + ".zip"
	bundle, err := report.Bundle(filename, letters)
	if err != nil {
		return report.Artifact{}, fmt.Errorf("failed to bundle letters: %w", err)
	}
	return bundle, nil
}

func (s *reportService) Table(session string, schema models.Schema) (report.Artifact, error) {
	if schema == "" {
		schema = s.cfg.Schema
	}
	if schema.TracksArea() && !s.cfg.Schema.TracksArea() {
		return report.Artifact{}, fmt.Errorf("%w: requested %s, configured %s", ErrAreaNotCollected, schema, s.cfg.Schema)
	}
	parcels := s.registry.Snapshot(session)

	artifact, err := report.ExportTable(parcels, schema, s.cfg.Clock())
	if err != nil {
		return report.Artifact{}, fmt.Errorf("failed to export table: %w", err)
	}

	s.log.Info("Table exported", map[string]interface{}{
		"session": session,
		"schema":  string(schema),
		"rows":    len(parcels),
	})
	s.metrics.ObserveArtifacts(ArtifactTable, 1)
	return artifact, nil
}

func (s *reportService) Shapefile(session string) (report.Artifact, error) {
	parcels := s.registry.Snapshot(session)

	artifact, err := report.ExportShapefile(parcels, s.cfg.Schema, s.cfg.Clock())
	if err != nil {
		s.log.Error("Shapefile export failed", err, map[string]interface{}{"session": session})
		return report.Artifact{}, err
	}

	s.metrics.ObserveArtifacts(ArtifactShapefile, 1)
	return artifact, nil
}

func (s *reportService) GeoJSON(session string) (report.Artifact, error) {
	artifact, err := report.ExportGeoJSON(s.registry.Snapshot(session), s.cfg.Clock())
	if err != nil {
		return report.Artifact{}, err
	}

	s.metrics.ObserveArtifacts(ArtifactGeoJSON, 1)
	return artifact, nil
}
