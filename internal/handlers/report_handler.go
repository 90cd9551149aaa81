package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/parcelpicker/internal/aggregate"
	apierrors "github.com/stwalsh4118/parcelpicker/internal/errors"
	"github.com/stwalsh4118/parcelpicker/internal/middleware"
	"github.com/stwalsh4118/parcelpicker/internal/models"
	"github.com/stwalsh4118/parcelpicker/internal/report"
	"github.com/stwalsh4118/parcelpicker/internal/services"
)

// Letter response formats
const (
	FormatJSON = "json"
	FormatZip  = "zip"
)

// ReportHandler serves borough groupings, letters and exports of the session's selection.
type ReportHandler struct {
	service services.ReportService
}

// NewReportHandler creates a new ReportHandler instance.
func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{
		service: service,
	}
}

// BoroughsResponse lists the boroughs in first-click order.
type BoroughsResponse struct {
	Boroughs *aggregate.Groups `json:"boroughs"`
	Count    int               `json:"count"`
}

// LetterData is one generated letter in the JSON response.
type LetterData struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// LettersResponse lists one letter per borough.
type LettersResponse struct {
	Kind    report.Kind  `json:"kind"`
	Letters []LetterData `json:"letters"`
	Count   int          `json:"count"`
}

// Boroughs handles GET /api/v1/boroughs.
func (h *ReportHandler) Boroughs(c *gin.Context) {
	groups := h.service.Boroughs(middleware.GetSession(c))

	c.JSON(http.StatusOK, BoroughsResponse{
		Boroughs: groups,
		Count:    groups.Len(),
	})
}

// Letters handles GET /api/v1/letters/:kind.
// The letters are returned as JSON, or as a zip download with ?format=zip.
func (h *ReportHandler) Letters(c *gin.Context) {
	session := middleware.GetSession(c)

	kind, err := report.ParseKind(c.Param("kind"))
	if err != nil {
		apierrors.NotFound(c, "Unknown letter kind, expected inquiry or enforcement")
		return
	}

	switch format := c.DefaultQuery("format", FormatJSON); format {
	case FormatJSON:
		letters, err := h.service.Letters(session, kind)
		if err != nil {
			h.fail(c, "Failed to generate letters", err)
			return
		}

		data := make([]LetterData, 0, len(letters))
		for _, letter := range letters {
			data = append(data, LetterData{Filename: letter.Filename, Text: letter.Text()})
		}
		c.JSON(http.StatusOK, LettersResponse{
			Kind:    kind,
			Letters: data,
			Count:   len(data),
		})

	case FormatZip:
		bundle, err := h.service.LetterBundle(session, kind)
		if err != nil {
			h.fail(c, "Failed to generate letters", err)
			return
		}
		sendArtifact(c, bundle)

	default:
		apierrors.BadRequest(c, "Unsupported format", map[string]interface{}{
			"format":    format,
			"supported": []string{FormatJSON, FormatZip},
		})
	}
}

// Table handles GET /api/v1/exports/table.
// An optional ?schema=v1|v2 overrides the configured column schema.
func (h *ReportHandler) Table(c *gin.Context) {
	var schema models.Schema
	if raw := c.Query("schema"); raw != "" {
		parsed, err := models.ParseSchema(raw)
		if err != nil {
			apierrors.BadRequest(c, err.Error(), map[string]interface{}{
				"supported": []string{string(models.SchemaV1), string(models.SchemaV2)},
			})
			return
		}
		schema = parsed
	}

	artifact, err := h.service.Table(middleware.GetSession(c), schema)
	if err != nil {
		h.fail(c, "Failed to export table", err)
		return
	}
	sendArtifact(c, artifact)
}

// Shapefile handles GET /api/v1/exports/shapefile.
func (h *ReportHandler) Shapefile(c *gin.Context) {
	artifact, err := h.service.Shapefile(middleware.GetSession(c))
	if err != nil {
		h.fail(c, "Failed to export shapefile", err)
		return
	}
	sendArtifact(c, artifact)
}

// GeoJSON handles GET /api/v1/exports/geojson.
func (h *ReportHandler) GeoJSON(c *gin.Context) {
	artifact, err := h.service.GeoJSON(middleware.GetSession(c))
	if err != nil {
		h.fail(c, "Failed to export GeoJSON", err)
		return
	}
	sendArtifact(c, artifact)
}

func (h *ReportHandler) fail(c *gin.Context, message string, err error) {
	if errors.Is(err, report.ErrUnknownVariant) {
		apierrors.NotFound(c, err.Error())
		return
	}
	if errors.Is(err, services.ErrAreaNotCollected) {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}
	apierrors.InternalServerError(c, message, err)
}

// sendArtifact writes an artifact as an attachment download.
func sendArtifact(c *gin.Context, artifact report.Artifact) {
	c.Header("Content-Disposition", artifact.ContentDisposition())
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}
