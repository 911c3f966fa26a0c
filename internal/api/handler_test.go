package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
	"github.com/mr1hm/go-schoolzone-scan/internal/repository"
)

// mockRepo implements repository.PredictionRepository for testing
type mockRepo struct {
	rows []models.StoredPrediction
}

func (m *mockRepo) ReplaceRun(ctx context.Context, runID string, rows []models.StoredPrediction) error {
	m.rows = rows
	return nil
}

func (m *mockRepo) List(ctx context.Context, opts repository.Filter) ([]models.StoredPrediction, error) {
	results := m.rows

	if opts.Label != nil {
		var filtered []models.StoredPrediction
		for _, r := range results {
			if r.Label == *opts.Label {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if opts.MinScore != nil {
		var filtered []models.StoredPrediction
		for _, r := range results {
			if r.Score >= *opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

func (m *mockRepo) Runs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var runs []string
	for _, r := range m.rows {
		if !seen[r.RunID] {
			seen[r.RunID] = true
			runs = append(runs, r.RunID)
		}
	}
	return runs, nil
}

func setupTestRouter(repo repository.PredictionRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(repo)
	handler.RegisterRoutes(router)
	return router
}

func seededRepo() *mockRepo {
	now := time.Now()
	return &mockRepo{rows: []models.StoredPrediction{
		{RunID: "run1", SchoolID: "s1", RoadName: "Main Street", Latitude: -33.79, Longitude: 151.18,
			Bearing: 90, ImagePath: "a.jpg", Label: models.SignLabelSchoolZone, Score: 92, CreatedAt: now},
		{RunID: "run1", SchoolID: "s1", RoadName: "Main Street", Latitude: -33.80, Longitude: 151.19,
			Bearing: 92, ImagePath: "b.jpg", Label: models.SignLabelNone, Score: 64, CreatedAt: now},
	}}
}

func TestGetPredictions_GeoJSON(t *testing.T) {
	router := setupTestRouter(seededRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/predictions", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	if f.Geometry.Type != "Point" {
		t.Errorf("expected Point geometry, got %q", f.Geometry.Type)
	}
	// GeoJSON is lon/lat ordered.
	if f.Geometry.Coordinates[0] != 151.18 || f.Geometry.Coordinates[1] != -33.79 {
		t.Errorf("unexpected coordinates: %v", f.Geometry.Coordinates)
	}
	if f.Properties["label"] != string(models.SignLabelSchoolZone) {
		t.Errorf("unexpected label: %v", f.Properties["label"])
	}
}

func TestGetPredictions_LabelFilter(t *testing.T) {
	router := setupTestRouter(seededRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/predictions?label=no_sign", nil)
	router.ServeHTTP(w, req)

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["label"] != string(models.SignLabelNone) {
		t.Errorf("unexpected label: %v", fc.Features[0].Properties["label"])
	}
}

func TestGetPredictions_MinScoreFilter(t *testing.T) {
	router := setupTestRouter(seededRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/predictions?min_score=80", nil)
	router.ServeHTTP(w, req)

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 high-confidence feature, got %d", len(fc.Features))
	}
}

func TestGetRuns(t *testing.T) {
	router := setupTestRouter(seededRepo())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Runs []string `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0] != "run1" {
		t.Errorf("unexpected runs: %v", resp.Runs)
	}
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(&mockRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)
		codes[w.Code]++
	}

	if codes[http.StatusTooManyRequests] == 0 {
		t.Error("expected some requests to be rate limited")
	}
}
