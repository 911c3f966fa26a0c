// Package schools implements the first pipeline stage: fetching the
// raw schools dataset and normalizing it into the pipeline schema.
package schools

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/config"
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

// Raw source columns with fixed names. Latitude/longitude column names
// vary by provider and come from config instead.
const (
	colID     = "school_id"
	colName   = "school_name"
	colRegion = "state"
	colSuburb = "town_suburb"
)

// Locator downloads the schools archive once, extracts the target
// file, renames the position columns, and filters to the target
// region.
type Locator struct {
	cfg    config.DatasetConfig
	client *http.Client
	store  *artifact.Store
}

func NewLocator(cfg config.DatasetConfig, client *http.Client, store *artifact.Store) *Locator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Locator{
		cfg:    cfg,
		client: client,
		store:  store,
	}
}

func (l *Locator) Name() string {
	return "school-locator"
}

func (l *Locator) Run(ctx context.Context) error {
	raw, err := l.fetchSource(ctx)
	if err != nil {
		return fmt.Errorf("school locator: %w", err)
	}

	schools, err := l.parse(raw)
	if err != nil {
		return fmt.Errorf("school locator: %w", err)
	}

	if err := l.store.Write(artifact.StageSchools, schools); err != nil {
		return fmt.Errorf("school locator: %w", err)
	}

	slog.Info("schools normalized", "dataset", l.cfg.Label, "region", l.cfg.Region, "count", len(schools))
	return nil
}

// fetchSource returns the path of the extracted source table. The
// download and extraction happen once per run; an existing file is
// reused.
func (l *Locator) fetchSource(ctx context.Context) (string, error) {
	dest := filepath.Join(l.store.RunDir(), l.cfg.TargetFile)
	if _, err := os.Stat(dest); err == nil {
		slog.Debug("source table already extracted", "path", dest)
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	if !l.cfg.Unzip {
		if err := writeFile(dest, resp.Body); err != nil {
			return "", err
		}
		return dest, nil
	}

	tmp, err := os.CreateTemp(l.store.RunDir(), "dataset-*.zip")
	if err != nil {
		return "", fmt.Errorf("error creating temp archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("error saving archive: %w", err)
	}
	tmp.Close()

	if err := l.extract(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (l *Locator) extract(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("error opening archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if filepath.Base(f.Name) != l.cfg.TargetFile {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("error opening %s in archive: %w", f.Name, err)
		}
		defer rc.Close()
		return writeFile(dest, rc)
	}

	return fmt.Errorf("target file %s not found in archive", l.cfg.TargetFile)
}

// parse reads the raw table, binding the configured latitude and
// longitude column names onto the normalized schema and keeping only
// rows in the target region. An empty region keeps everything.
func (l *Locator) parse(path string) ([]models.School, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening source table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colID, colName, l.cfg.LatColumn, l.cfg.LonColumn} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("source table missing column %q", required)
		}
	}

	schools := make([]models.School, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading row: %w", err)
		}

		region := field(row, cols, colRegion)
		if l.cfg.Region != "" && region != l.cfg.Region {
			continue
		}

		lat, err1 := parseFloat(field(row, cols, l.cfg.LatColumn))
		lon, err2 := parseFloat(field(row, cols, l.cfg.LonColumn))
		if err1 != nil || err2 != nil {
			slog.Debug("skipping row with invalid position", "school", field(row, cols, colID))
			continue
		}

		schools = append(schools, models.School{
			ID:        field(row, cols, colID),
			Name:      field(row, cols, colName),
			Latitude:  lat,
			Longitude: lon,
			Region:    region,
			Suburb:    field(row, cols, colSuburb),
		})
	}

	return schools, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("error writing %s: %w", dest, err)
	}
	return nil
}
