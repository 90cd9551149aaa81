package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/parcelpicker/internal/errors"
	"github.com/stwalsh4118/parcelpicker/internal/middleware"
	"github.com/stwalsh4118/parcelpicker/internal/models"
	"github.com/stwalsh4118/parcelpicker/internal/services"
	"github.com/stwalsh4118/parcelpicker/internal/store"
)

// SelectionHandler handles the map click and selection list endpoints.
type SelectionHandler struct {
	service services.SelectionService
}

// NewSelectionHandler creates a new SelectionHandler instance.
func NewSelectionHandler(service services.SelectionService) *SelectionHandler {
	return &SelectionHandler{
		service: service,
	}
}

// SelectRequest is one map click as sent by the browser.
type SelectRequest struct {
	Lat       float64       `json:"lat" binding:"gte=-90,lte=90"`
	Lng       float64       `json:"lng" binding:"gte=-180,lte=180"`
	Bounds    models.Bounds `json:"bounds" binding:"required"`
	Size      models.Size   `json:"size" binding:"required"`
	Confirmed bool          `json:"confirmed"`
}

// SelectResponse reports the outcome of a click. Parcel and Index are present
// only when the parcel was added.
type SelectResponse struct {
	Status string         `json:"status"`
	Parcel *models.Parcel `json:"parcel,omitempty"`
	Index  *int           `json:"index,omitempty"`
}

// ListResponse is the session's selection in click order.
type ListResponse struct {
	Parcels []models.Parcel `json:"parcels"`
	Count   int             `json:"count"`
}

// RemoveResponse carries the removed parcel and the remaining count.
type RemoveResponse struct {
	Parcel models.Parcel `json:"parcel"`
	Count  int           `json:"count"`
}

// Select handles POST /api/v1/selections.
// It resolves the clicked point to a parcel and appends it to the session.
func (h *SelectionHandler) Select(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	result, err := h.service.Select(c.Request.Context(), middleware.GetSession(c), services.ClickRequest{
		Point:     models.Coordinates{Lat: req.Lat, Lng: req.Lng},
		Viewport:  models.Viewport{Bounds: req.Bounds, Size: req.Size},
		Confirmed: req.Confirmed,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCoordinates) || errors.Is(err, models.ErrDegenerateViewport) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to select parcel", err)
		return
	}

	response := SelectResponse{Status: result.Status}
	if result.Status == services.StatusAdded {
		index := result.Index
		response.Parcel = result.Parcel
		response.Index = &index
	}

	c.JSON(http.StatusOK, response)
}

// List handles GET /api/v1/selections.
func (h *SelectionHandler) List(c *gin.Context) {
	parcels := h.service.List(middleware.GetSession(c))
	if parcels == nil {
		parcels = []models.Parcel{}
	}

	c.JSON(http.StatusOK, ListResponse{
		Parcels: parcels,
		Count:   len(parcels),
	})
}

// Remove handles DELETE /api/v1/selections/:index.
func (h *SelectionHandler) Remove(c *gin.Context) {
	session := middleware.GetSession(c)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		apierrors.BadRequest(c, "Selection index must be an integer", map[string]interface{}{
			"index": c.Param("index"),
		})
		return
	}

	removed, err := h.service.Remove(session, index)
	if err != nil {
		if errors.Is(err, store.ErrIndexOutOfRange) {
			apierrors.IndexOutOfRange(c, index, len(h.service.List(session)))
			return
		}
		apierrors.InternalServerError(c, "Failed to remove selection", err)
		return
	}

	c.JSON(http.StatusOK, RemoveResponse{
		Parcel: removed,
		Count:  len(h.service.List(session)),
	})
}

// Clear handles DELETE /api/v1/selections.
func (h *SelectionHandler) Clear(c *gin.Context) {
	h.service.Clear(middleware.GetSession(c))
	c.Status(http.StatusNoContent)
}
