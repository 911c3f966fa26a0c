// Package imagery implements the third pipeline stage: retrieving
// street-level images for road sample points.
package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/config"
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

type metadataResponse struct {
	Status string      `json:"status"`
	Images []imageLink `json:"images"`
}

type imageLink struct {
	URL string `json:"url"`
}

var errNoImagery = errors.New("no imagery available")

// Fetcher looks up imagery metadata per sample point and downloads the
// first returned image link into an idempotent cache. Points are
// processed one at a time, in artifact order; any lookup failure is
// treated as "no result" for that point.
type Fetcher struct {
	cfg    config.ImageryConfig
	client *http.Client
	store  *artifact.Store
}

func NewFetcher(cfg config.ImageryConfig, store *artifact.Store) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		store: store,
	}
}

func (f *Fetcher) Name() string {
	return "street-imagery-fetcher"
}

func (f *Fetcher) Run(ctx context.Context) error {
	var points []models.SamplePoint
	if err := f.store.Read(artifact.StageRoadPoints, &points); err != nil {
		return fmt.Errorf("imagery fetcher: %w", err)
	}

	records := make([]models.ImageryRecord, 0, len(points))
	fetched := 0
	for _, p := range points {
		rec := models.ImageryRecord{SamplePoint: p}

		path, err := f.fetchOne(ctx, p)
		if err != nil {
			slog.Debug("imagery lookup skipped", "lat", p.Latitude, "lon", p.Longitude, "error", err)
		} else {
			rec.ImagePath = path
			fetched++
		}

		records = append(records, rec)
	}

	if err := f.store.Write(artifact.StageImagery, records); err != nil {
		return fmt.Errorf("imagery fetcher: %w", err)
	}

	slog.Info("imagery fetched", "points", len(points), "images", fetched)
	return nil
}

// fetchOne returns the cached image path for a sample point. An
// already-cached file is returned without any network call.
func (f *Fetcher) fetchOne(ctx context.Context, p models.SamplePoint) (string, error) {
	dest := filepath.Join(f.store.ImagesDir(), f.fileName(p))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	link, err := f.lookup(ctx, p)
	if err != nil {
		return "", err
	}

	if err := f.download(ctx, link, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// fileName keys the cache by rounded position and heading, so
// re-running the stage never re-downloads an existing image.
func (f *Fetcher) fileName(p models.SamplePoint) string {
	prec := f.cfg.CoordPrecision
	heading := int(math.Round(p.Bearing))
	return fmt.Sprintf("%.*f_%.*f_%d.jpg", prec, p.Latitude, prec, p.Longitude, heading)
}

func (f *Fetcher) lookup(ctx context.Context, p models.SamplePoint) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	q.Set("heading", strconv.FormatFloat(p.Bearing, 'f', -1, 64))
	q.Set("key", f.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.MetadataURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error doing metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var meta metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("error decoding resp.Body: %w", err)
	}

	if meta.Status != "OK" || len(meta.Images) == 0 {
		return "", errNoImagery
	}
	return meta.Images[0].URL, nil
}

func (f *Fetcher) download(ctx context.Context, link, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("error downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	tmp, err := os.CreateTemp(f.store.ImagesDir(), "download-*.jpg")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error saving image: %w", err)
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error moving image into cache: %w", err)
	}
	return nil
}
