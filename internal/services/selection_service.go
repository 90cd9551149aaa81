package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/parcelpicker/internal/logger"
	"github.com/stwalsh4118/parcelpicker/internal/metrics"
	"github.com/stwalsh4118/parcelpicker/internal/models"
	"github.com/stwalsh4118/parcelpicker/internal/store"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrUnknownPolicy      = errors.New("unknown confirmation policy")
)

// ConfirmPolicy decides whether a click needs explicit user confirmation before querying.
type ConfirmPolicy string

const (
	// ConfirmRequire declines every click that was not confirmed by the user.
	ConfirmRequire ConfirmPolicy = "require"
	// ConfirmSkip queries every click.
	ConfirmSkip ConfirmPolicy = "skip"
)

// ParsePolicy validates a confirmation policy name.
func ParsePolicy(name string) (ConfirmPolicy, error) {
	switch ConfirmPolicy(name) {
	case ConfirmRequire, ConfirmSkip:
		return ConfirmPolicy(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Selection statuses
const (
	StatusAdded    = "added"
	StatusDeclined = "declined"
	StatusFailed   = "failed"
)

// ParcelQuerier resolves the parcel under a clicked point.
type ParcelQuerier interface {
	Query(ctx context.Context, point models.Coordinates, viewport models.Viewport) (*models.Parcel, error)
}

// ClickRequest is one map click together with the viewport it was made in.
type ClickRequest struct {
	Point     models.Coordinates
	Viewport  models.Viewport
	Confirmed bool
}

// SelectResult reports what happened to a click. Parcel and Index are set only when
// Status is StatusAdded.
type SelectResult struct {
	Parcel *models.Parcel
	Status string
	Index  int
}

// SelectionService defines the parcel selection operations of a session.
type SelectionService interface {
	// Select resolves a click and appends the parcel to the session store.
	// Returns ErrInvalidCoordinates or models.ErrDegenerateViewport for bad input.
	// Query failures are not errors: they yield StatusFailed and leave the store unchanged.
	Select(ctx context.Context, session string, req ClickRequest) (SelectResult, error)

	// List returns the session's parcels in click order.
	List(session string) []models.Parcel

	// Remove deletes the parcel at index. Returns store.ErrIndexOutOfRange when absent.
	Remove(session string, index int) (models.Parcel, error)

	// Clear empties the session store.
	Clear(session string)
}

type selectionService struct {
	querier  ParcelQuerier
	registry *store.Registry
	policy   ConfirmPolicy
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewSelectionService creates a new instance of SelectionService.
func NewSelectionService(querier ParcelQuerier, registry *store.Registry, policy ConfirmPolicy, log *logger.Logger, m *metrics.Metrics) SelectionService {
	return &selectionService{
		querier:  querier,
		registry: registry,
		policy:   policy,
		log:      log,
		metrics:  m,
	}
}

// Select runs the confirmation gate, validates the click, queries the feature service
// and appends whatever parcel it returned, even one without an identifier.
func (s *selectionService) Select(ctx context.Context, session string, req ClickRequest) (SelectResult, error) {
	fields := map[string]interface{}{
		"session": session,
		"lat":     req.Point.Lat,
		"lng":     req.Point.Lng,
	}

	if s.policy == ConfirmRequire && !req.Confirmed {
		s.log.Debug("Selection declined by user", fields)
		s.metrics.ObserveSelection(StatusDeclined)
		return SelectResult{Status: StatusDeclined, Index: -1}, nil
	}

	if err := validatePoint(req.Point); err != nil {
		s.log.Warn("Invalid click coordinates", fields)
		return SelectResult{}, err
	}

	if err := req.Viewport.Validate(); err != nil {
		s.log.Warn("Degenerate viewport", map[string]interface{}{
			"session": session,
			"bounds":  req.Viewport.Bounds,
			"size":    req.Viewport.Size,
		})
		return SelectResult{}, err
	}

	parcel, err := s.querier.Query(ctx, req.Point, req.Viewport)
	if err != nil {
		fields["error"] = err.Error()
		s.log.Warn("Parcel query failed, click ignored", fields)
		s.metrics.ObserveSelection(StatusFailed)
		return SelectResult{Status: StatusFailed, Index: -1}, nil
	}

	index := s.registry.Get(session).Append(*parcel)

	s.log.Info("Parcel selected", map[string]interface{}{
		"session":      session,
		"index":        index,
		"parcel_id":    parcel.ID,
		"municipality": parcel.Municipality,
		"plot_number":  parcel.PlotNumber,
	})
	s.metrics.ObserveSelection(StatusAdded)

	return SelectResult{Parcel: parcel, Status: StatusAdded, Index: index}, nil
}

// List returns a snapshot of the session store. Unknown sessions read as empty.
func (s *selectionService) List(session string) []models.Parcel {
	return s.registry.Snapshot(session)
}

// Remove deletes one entry of the session store.
func (s *selectionService) Remove(session string, index int) (models.Parcel, error) {
	var (
		removed models.Parcel
		err     error
	)
	if st, ok := s.registry.Lookup(session); ok {
		removed, err = st.RemoveAt(index)
	} else {
		err = fmt.Errorf("%w: %d (len 0)", store.ErrIndexOutOfRange, index)
	}
	if err != nil {
		s.log.Warn("Remove of missing selection", map[string]interface{}{
			"session": session,
			"index":   index,
		})
		return models.Parcel{}, err
	}

	s.log.Info("Selection removed", map[string]interface{}{
		"session":   session,
		"index":     index,
		"parcel_id": removed.ID,
	})
	return removed, nil
}

// Clear empties the session store.
func (s *selectionService) Clear(session string) {
	if st, ok := s.registry.Lookup(session); ok {
		st.Clear()
	}
	s.log.Info("Selections cleared", map[string]interface{}{"session": session})
}

func validatePoint(p models.Coordinates) error {
	if p.Lat < MinLatitude || p.Lat > MaxLatitude {
		return fmt.Errorf("%w: latitude must be between %f and %f, got %f",
			ErrInvalidCoordinates, MinLatitude, MaxLatitude, p.Lat)
	}
	if p.Lng < MinLongitude || p.Lng > MaxLongitude {
		return fmt.Errorf("%w: longitude must be between %f and %f, got %f",
			ErrInvalidCoordinates, MinLongitude, MaxLongitude, p.Lng)
	}
	return nil
}
