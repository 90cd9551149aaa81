package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/parcelpicker/internal/logger"
	"github.com/stwalsh4118/parcelpicker/internal/metrics"
	"github.com/stwalsh4118/parcelpicker/internal/middleware"
	"github.com/stwalsh4118/parcelpicker/internal/models"
	"github.com/stwalsh4118/parcelpicker/internal/report"
	"github.com/stwalsh4118/parcelpicker/internal/services"
	"github.com/stwalsh4118/parcelpicker/internal/store"
	"github.com/stwalsh4118/parcelpicker/internal/wms"
)

const testSession = "0b5c3a9e-4d2f-4a51-9c1e-6f0d2b7a8e13"

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

// parcelDoc renders a feature info response for one parcel.
func parcelDoc(municipality, precinct, plot string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<FeatureInfoResponse>
  <Layer Name="dzialki">
    <Feature>
      <Attribute Name="Identyfikator działki">146302_8.%s.%s</Attribute>
      <Attribute Name="Województwo">mazowieckie</Attribute>
      <Attribute Name="Powiat">Warszawa</Attribute>
      <Attribute Name="Gmina">%s</Attribute>
      <Attribute Name="Obręb">%s</Attribute>
      <Attribute Name="Numer działki">%s</Attribute>
    </Feature>
  </Layer>
</FeatureInfoResponse>`, precinct, plot, municipality, precinct, plot)
}

// fakeRegistry serves the queued documents in order and counts requests.
type fakeRegistry struct {
	docs  []string
	calls atomic.Int32
	down  atomic.Bool
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.calls.Add(1)) - 1
	if f.down.Load() {
		http.Error(w, "maintenance", http.StatusBadGateway)
		return
	}
	if r.URL.Query().Get("REQUEST") == "GetCapabilities" {
		fmt.Fprint(w, `<WMS_Capabilities version="1.3.0"/>`)
		return
	}
	if n >= len(f.docs) {
		n = len(f.docs) - 1
	}
	w.Header().Set("Content-Type", "application/vnd.ogc.gml")
	fmt.Fprint(w, f.docs[n])
}

type testAPI struct {
	router   *gin.Engine
	upstream *fakeRegistry
	registry *store.Registry
}

// setupAPI wires the real services against a fake land registry.
func setupAPI(t *testing.T, policy services.ConfirmPolicy, docs ...string) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := &fakeRegistry{docs: docs}
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	log := logger.Nop()
	m := metrics.New(prometheus.NewRegistry())
	registry := store.NewRegistry()

	client := wms.NewClient(wms.Config{URL: srv.URL, Schema: models.SchemaV2, Timeout: 2 * time.Second}, srv.Client(), m)
	selections := services.NewSelectionService(client, registry, policy, log, m)
	reports := services.NewReportService(registry, services.ReportConfig{
		Directory:            report.NewDirectory(report.DefaultBoroughPrefix, report.DefaultRecipients()),
		EnforcementRecipient: "pinb@example.org",
		Schema:               models.SchemaV2,
		Clock:                func() time.Time { return fixedNow },
	}, log, m)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Session())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	health := NewHealthHandler(client, "test")
	router.GET("/health/ready", health.Ready)

	RegisterRoutes(router.Group("/api/v1"), NewSelectionHandler(selections), NewReportHandler(reports))

	return &testAPI{router: router, upstream: upstream, registry: registry}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SessionHeader, testSession)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func click(lat, lng float64, confirmed bool) map[string]interface{} {
	return map[string]interface{}{
		"lat":       lat,
		"lng":       lng,
		"bounds":    map[string]float64{"north": 52.30, "south": 52.10, "east": 21.20, "west": 20.80},
		"size":      map[string]int{"width": 800, "height": 400},
		"confirmed": confirmed,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestSelect_AddsParcel(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

	w := api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, true))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response SelectResponse
	decode(t, w, &response)
	assert.Equal(t, services.StatusAdded, response.Status)
	require.NotNil(t, response.Parcel)
	require.NotNil(t, response.Index)
	assert.Equal(t, 0, *response.Index)
	assert.Equal(t, "Dzielnica Wola", response.Parcel.Municipality)
	assert.Equal(t, "12/3", response.Parcel.PlotNumber)
	assert.Equal(t, 52.2381, response.Parcel.Coordinates.Lat)

	assert.Equal(t, 1, api.registry.Get(testSession).Len())
}

func TestSelect_DeclinedMakesNoRequest(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

	w := api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, false))
	require.Equal(t, http.StatusOK, w.Code)

	var response SelectResponse
	decode(t, w, &response)
	assert.Equal(t, services.StatusDeclined, response.Status)
	assert.Nil(t, response.Parcel)
	assert.Nil(t, response.Index)
	assert.Equal(t, int32(0), api.upstream.calls.Load())
	assert.Equal(t, 0, api.registry.Get(testSession).Len())
}

func TestSelect_SkipPolicyQueriesUnconfirmedClicks(t *testing.T) {
	api := setupAPI(t, services.ConfirmSkip, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

	w := api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, false))

	var response SelectResponse
	decode(t, w, &response)
	assert.Equal(t, services.StatusAdded, response.Status)
	assert.Equal(t, int32(1), api.upstream.calls.Load())
}

func TestSelect_UpstreamFailureLeavesStoreUnchanged(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))
	api.upstream.down.Store(true)

	w := api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, true))
	require.Equal(t, http.StatusOK, w.Code)

	var response SelectResponse
	decode(t, w, &response)
	assert.Equal(t, services.StatusFailed, response.Status)
	assert.Nil(t, response.Parcel)
	assert.Equal(t, 0, api.registry.Get(testSession).Len())
}

func TestSelect_EmptyDocumentIsStillAppended(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, `<FeatureInfoResponse><Layer Name="dzialki"/></FeatureInfoResponse>`)

	w := api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, true))

	var response SelectResponse
	decode(t, w, &response)
	assert.Equal(t, services.StatusAdded, response.Status)
	require.NotNil(t, response.Parcel)
	assert.Empty(t, response.Parcel.ID)
	assert.Equal(t, 1, api.registry.Get(testSession).Len())
}

func TestSelect_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name         string
		body         interface{}
		expectedCode string
	}{
		{
			name:         "latitude out of range",
			body:         click(95, 20.97, true),
			expectedCode: "VALIDATION_ERROR",
		},
		{
			name: "zero pixel size",
			body: map[string]interface{}{
				"lat": 52.2, "lng": 21.0, "confirmed": true,
				"bounds": map[string]float64{"north": 52.3, "south": 52.1, "east": 21.2, "west": 20.8},
				"size":   map[string]int{"width": 0, "height": 400},
			},
			expectedCode: "VALIDATION_ERROR",
		},
		{
			name: "inverted bounds",
			body: map[string]interface{}{
				"lat": 52.2, "lng": 21.0, "confirmed": true,
				"bounds": map[string]float64{"north": 52.1, "south": 52.3, "east": 21.2, "west": 20.8},
				"size":   map[string]int{"width": 800, "height": 400},
			},
			expectedCode: "BAD_REQUEST",
		},
		{
			name:         "malformed json",
			body:         "not an object",
			expectedCode: "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

			w := api.do(t, http.MethodPost, "/api/v1/selections", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedCode)
			assert.Equal(t, int32(0), api.upstream.calls.Load())
		})
	}
}

func TestSelections_ListRemoveClear(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire,
		parcelDoc("Dzielnica Wola", "6-06-06", "12/3"),
		parcelDoc("Dzielnica Ursus", "2-09-01", "5"),
	)

	api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, true))
	api.do(t, http.MethodPost, "/api/v1/selections", click(52.1920, 20.8840, true))

	var list ListResponse
	decode(t, api.do(t, http.MethodGet, "/api/v1/selections", nil), &list)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "12/3", list.Parcels[0].PlotNumber)
	assert.Equal(t, "5", list.Parcels[1].PlotNumber)

	w := api.do(t, http.MethodDelete, "/api/v1/selections/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var removed RemoveResponse
	decode(t, w, &removed)
	assert.Equal(t, "12/3", removed.Parcel.PlotNumber)
	assert.Equal(t, 1, removed.Count)

	w = api.do(t, http.MethodDelete, "/api/v1/selections/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "INDEX_OUT_OF_RANGE")

	w = api.do(t, http.MethodDelete, "/api/v1/selections/first", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/selections", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	decode(t, api.do(t, http.MethodGet, "/api/v1/selections", nil), &list)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Parcels)
}

func TestSelections_SessionsAreIsolated(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))
	api.do(t, http.MethodPost, "/api/v1/selections", click(52.2381, 20.9712, true))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/selections", nil)
	req.Header.Set(middleware.SessionHeader, "5f1d0c2a-7b3e-4c8d-9a6f-1e2b3c4d5e6f")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)

	var list ListResponse
	decode(t, w, &list)
	assert.Equal(t, 0, list.Count)
}

func TestReads_DoNotAllocateSessions(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire)

	paths := []string{
		"/api/v1/selections",
		"/api/v1/boroughs",
		"/api/v1/exports/table",
		"/api/v1/exports/geojson",
	}
	for i := 0; i < 50; i++ {
		for _, path := range paths {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			if i%2 == 1 {
				req.Header.Set(middleware.SessionHeader, uuid.NewString())
			}
			api.router.ServeHTTP(httptest.NewRecorder(), req)
		}
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/selections", nil)
		api.router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 0, api.registry.Sessions())
}

// selectAll clicks one parcel per document queued on the fake registry.
func selectAll(t *testing.T, api *testAPI) {
	t.Helper()
	for range api.upstream.docs {
		w := api.do(t, http.MethodPost, "/api/v1/selections", click(52.2, 20.9, true))
		require.Contains(t, w.Body.String(), services.StatusAdded)
	}
}

func TestBoroughs(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire,
		parcelDoc("Dzielnica Wola", "6-06-06", "12/3"),
		parcelDoc("Dzielnica Ursus", "2-09-01", "5"),
		parcelDoc("Dzielnica Wola", "6-06-06", "12/3"),
	)
	selectAll(t, api)

	w := api.do(t, http.MethodGet, "/api/v1/boroughs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Boroughs []struct {
			Name    string `json:"name"`
			Total   int    `json:"total"`
			Parcels []struct {
				Key   string `json:"key"`
				Count int    `json:"count"`
			} `json:"parcels"`
		} `json:"boroughs"`
		Count int `json:"count"`
	}
	decode(t, w, &response)

	require.Equal(t, 2, response.Count)
	assert.Equal(t, "Dzielnica Wola", response.Boroughs[0].Name)
	assert.Equal(t, 2, response.Boroughs[0].Total)
	assert.Equal(t, "12/3-6-06-06", response.Boroughs[0].Parcels[0].Key)
	assert.Equal(t, 2, response.Boroughs[0].Parcels[0].Count)
	assert.Equal(t, "Dzielnica Ursus", response.Boroughs[1].Name)
}

func TestBoroughs_Empty(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

	w := api.do(t, http.MethodGet, "/api/v1/boroughs", nil)
	assert.JSONEq(t, `{"boroughs":[],"count":0}`, w.Body.String())
}

func TestLetters_JSON(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire,
		parcelDoc("Dzielnica Wola", "6-06-06", "12/3"),
		parcelDoc("Dzielnica Wola", "6-06-06", "12/3"),
	)
	selectAll(t, api)

	w := api.do(t, http.MethodGet, "/api/v1/letters/inquiry", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response LettersResponse
	decode(t, w, &response)
	assert.Equal(t, report.KindInquiry, response.Kind)
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "WAiB_Wola_2026-10-17.txt", response.Letters[0].Filename)
	assert.Contains(t, response.Letters[0].Text, "2 billboards on parcel no. 12/3 in precinct 6-06-06")
}

func TestLetters_Zip(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire,
		parcelDoc("Dzielnica Wola", "6-06-06", "12/3"),
		parcelDoc("Dzielnica Ursus", "2-09-01", "5"),
	)
	selectAll(t, api)

	w := api.do(t, http.MethodGet, "/api/v1/letters/enforcement?format=zip", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentTypeZip, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="PINB_2026-10-17.zip"`)

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "PINB_Wola_2026-10-17.txt", zr.File[0].Name)
	assert.Equal(t, "PINB_Ursus_2026-10-17.txt", zr.File[1].Name)
}

func TestLetters_BadKindOrFormat(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

	w := api.do(t, http.MethodGet, "/api/v1/letters/complaint", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/letters/inquiry?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportTable(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))
	selectAll(t, api)

	w := api.do(t, http.MethodGet, "/api/v1/exports/table", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentTypeCSV, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dzialki_2026-10-17T09-30-00-000Z.csv")

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\ufeff"))
	assert.NotContains(t, body, "Area (ha)")
	assert.Contains(t, body, `"=""Dzielnica Wola"""`)

	w = api.do(t, http.MethodGet, "/api/v1/exports/table?schema=v2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Area is never read from the registry under v2, so a v1 table would be blank.
	w = api.do(t, http.MethodGet, "/api/v1/exports/table?schema=v1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "area is not collected")

	w = api.do(t, http.MethodGet, "/api/v1/exports/table?schema=v3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportShapefileAndGeoJSON(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))
	selectAll(t, api)

	w := api.do(t, http.MethodGet, "/api/v1/exports/shapefile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ContentTypeZip, w.Header().Get("Content-Type"))
	_, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)

	w = api.do(t, http.MethodGet, "/api/v1/exports/geojson", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var collection struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	decode(t, w, &collection)
	assert.Equal(t, "FeatureCollection", collection.Type)
	require.Len(t, collection.Features, 1)
	assert.Equal(t, []float64{20.9, 52.2}, collection.Features[0].Geometry.Coordinates)
}

func TestReady_UsesRegistryCapabilities(t *testing.T) {
	api := setupAPI(t, services.ConfirmRequire, parcelDoc("Dzielnica Wola", "6-06-06", "12/3"))

	w := api.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	api.upstream.down.Store(true)
	w = api.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
