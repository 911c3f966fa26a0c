package imagery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/config"
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

type fakeProvider struct {
	server    *httptest.Server
	downloads atomic.Int64
	lookups   atomic.Int64
	noResult  map[string]bool // lat query values with no imagery
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{noResult: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("/meta", func(w http.ResponseWriter, r *http.Request) {
		p.lookups.Add(1)
		if p.noResult[r.URL.Query().Get("lat")] {
			json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"images": []map[string]string{{"url": p.server.URL + "/image.jpg"}},
		})
	})
	mux.HandleFunc("/image.jpg", func(w http.ResponseWriter, r *http.Request) {
		p.downloads.Add(1)
		w.Write([]byte("jpeg-bytes"))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func setupFetcher(t *testing.T, provider *fakeProvider, points []models.SamplePoint) (*Fetcher, *artifact.Store) {
	t.Helper()

	store, err := artifact.NewStore(t.TempDir(), "testrun")
	if err != nil {
		t.Fatalf("failed to create artifact store: %v", err)
	}
	if err := store.Write(artifact.StageRoadPoints, points); err != nil {
		t.Fatalf("failed to seed road points artifact: %v", err)
	}

	cfg := config.ImageryConfig{
		MetadataURL:    provider.server.URL + "/meta",
		APIKey:         "test-key",
		CoordPrecision: 5,
		Timeout:        5 * time.Second,
	}
	return NewFetcher(cfg, store), store
}

func TestFetcher_DownloadsAndCachesImages(t *testing.T) {
	provider := newFakeProvider(t)

	points := []models.SamplePoint{
		{SchoolID: "s1", RoadName: "Main Street", Latitude: -33.86521, Longitude: 151.20943, Bearing: 90},
		{SchoolID: "s1", RoadName: "Main Street", Latitude: -33.86540, Longitude: 151.20961, Bearing: 92},
	}

	fetcher, store := setupFetcher(t, provider, points)
	if err := fetcher.Run(context.Background()); err != nil {
		t.Fatalf("fetcher run failed: %v", err)
	}

	var records []models.ImageryRecord
	if err := store.Read(artifact.StageImagery, &records); err != nil {
		t.Fatalf("failed to read imagery artifact: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	for i, rec := range records {
		if !rec.HasImage() {
			t.Fatalf("record %d missing image path", i)
		}
		if _, err := os.Stat(rec.ImagePath); err != nil {
			t.Errorf("record %d image file missing: %v", i, err)
		}
	}

	want := filepath.Join(store.ImagesDir(), "-33.86521_151.20943_90.jpg")
	if records[0].ImagePath != want {
		t.Errorf("cache filename = %q, want %q", records[0].ImagePath, want)
	}

	if provider.downloads.Load() != 2 {
		t.Errorf("expected 2 downloads, got %d", provider.downloads.Load())
	}
}

func TestFetcher_RerunPerformsZeroRedownloads(t *testing.T) {
	provider := newFakeProvider(t)

	points := []models.SamplePoint{
		{SchoolID: "s1", RoadName: "Main Street", Latitude: -33.86521, Longitude: 151.20943, Bearing: 90},
	}

	fetcher, _ := setupFetcher(t, provider, points)
	if err := fetcher.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if provider.downloads.Load() != 1 {
		t.Fatalf("expected 1 download on first run, got %d", provider.downloads.Load())
	}

	if err := fetcher.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if provider.downloads.Load() != 1 {
		t.Errorf("re-run should not re-download, got %d downloads", provider.downloads.Load())
	}
}

func TestFetcher_FailedLookupLeavesRowWithoutImage(t *testing.T) {
	provider := newFakeProvider(t)
	provider.noResult["10"] = true

	points := []models.SamplePoint{
		{SchoolID: "s1", RoadName: "Main Street", Latitude: 10, Longitude: 20, Bearing: 45},
		{SchoolID: "s1", RoadName: "Main Street", Latitude: 11, Longitude: 21, Bearing: 45},
	}

	fetcher, store := setupFetcher(t, provider, points)
	if err := fetcher.Run(context.Background()); err != nil {
		t.Fatalf("fetcher run failed: %v", err)
	}

	var records []models.ImageryRecord
	if err := store.Read(artifact.StageImagery, &records); err != nil {
		t.Fatalf("failed to read imagery artifact: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both rows to flow downstream, got %d", len(records))
	}

	if records[0].HasImage() {
		t.Error("row with failed lookup should carry no image reference")
	}
	if !records[1].HasImage() {
		t.Error("row with successful lookup should carry an image reference")
	}
}

func TestFetcher_ProviderErrorTreatedAsNoResult(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	store, err := artifact.NewStore(t.TempDir(), "testrun")
	if err != nil {
		t.Fatalf("failed to create artifact store: %v", err)
	}
	points := []models.SamplePoint{
		{SchoolID: "s1", RoadName: "Main Street", Latitude: 1, Longitude: 2, Bearing: 0},
	}
	if err := store.Write(artifact.StageRoadPoints, points); err != nil {
		t.Fatalf("failed to seed road points artifact: %v", err)
	}

	fetcher := NewFetcher(config.ImageryConfig{
		MetadataURL:    broken.URL,
		APIKey:         "test-key",
		CoordPrecision: 5,
		Timeout:        5 * time.Second,
	}, store)

	if err := fetcher.Run(context.Background()); err != nil {
		t.Fatalf("lookup failures must not fail the stage: %v", err)
	}

	var records []models.ImageryRecord
	if err := store.Read(artifact.StageImagery, &records); err != nil {
		t.Fatalf("failed to read imagery artifact: %v", err)
	}
	if len(records) != 1 || records[0].HasImage() {
		t.Errorf("expected 1 imageless record, got %+v", records)
	}
}

func TestFetcher_CacheFileName(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir(), "testrun")
	if err != nil {
		t.Fatalf("failed to create artifact store: %v", err)
	}
	f := NewFetcher(config.ImageryConfig{CoordPrecision: 5}, store)

	p := models.SamplePoint{Latitude: -33.865432109, Longitude: 151.209876543, Bearing: 93.7}
	got := f.fileName(p)
	want := fmt.Sprintf("%.5f_%.5f_%d.jpg", -33.865432109, 151.209876543, 94)
	if got != want {
		t.Errorf("fileName = %q, want %q", got, want)
	}
}
