package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Run        RunConfig
	Server     ServerConfig
	Dataset    DatasetConfig
	Roads      RoadsConfig
	Imagery    ImageryConfig
	Classifier ClassifierConfig
	DB         DatabaseConfig
	Logging    LoggingConfig
}

type RunConfig struct {
	ID      string
	DataDir string
}

type ServerConfig struct {
	Host string
	Port int
}

// DatasetConfig describes the remote schools dataset. LatColumn and
// LonColumn name the source's position columns, which the locator
// renames into the normalized schema.
type DatasetConfig struct {
	Label      string
	URL        string
	Unzip      bool
	TargetFile string
	LatColumn  string
	LonColumn  string
	Region     string
}

// RoadsConfig drives the road point sampler. Step is the sampling
// interval in coordinate units (degrees).
type RoadsConfig struct {
	OverpassURL   string
	SearchRadiusM float64
	Step          float64
	Timeout       time.Duration
}

type ImageryConfig struct {
	MetadataURL    string
	APIKey         string
	CoordPrecision int
	Timeout        time.Duration
}

// ClassifierConfig names the model to apply. ModelRef is the explicit
// model reference; when empty, the newest weight file under ModelDir
// is used instead.
type ClassifierConfig struct {
	ModelDir     string
	ModelRef     string
	LabelsFile   string
	InferenceURL string
	Timeout      time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Run: RunConfig{
			ID:      getEnv("RUN_ID", time.Now().Format("20060102")),
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Dataset: DatasetConfig{
			Label:      getEnv("DATASET_LABEL", "public-schools"),
			URL:        getEnv("DATASET_URL", ""),
			Unzip:      getEnvBool("DATASET_UNZIP", true),
			TargetFile: getEnv("DATASET_TARGET_FILE", "schools.csv"),
			LatColumn:  getEnv("DATASET_LAT_COLUMN", "Y"),
			LonColumn:  getEnv("DATASET_LON_COLUMN", "X"),
			Region:     getEnv("DATASET_REGION", ""),
		},
		Roads: RoadsConfig{
			OverpassURL:   getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			SearchRadiusM: getEnvFloat("ROAD_SEARCH_RADIUS_M", 250),
			Step:          getEnvFloat("SAMPLE_STEP", 0.0002),
			Timeout:       getEnvDuration("OVERPASS_TIMEOUT", 60*time.Second),
		},
		Imagery: ImageryConfig{
			MetadataURL:    getEnv("IMAGERY_METADATA_URL", ""),
			APIKey:         getEnv("IMAGERY_API_KEY", ""),
			CoordPrecision: getEnvInt("IMAGERY_COORD_PRECISION", 5),
			Timeout:        getEnvDuration("IMAGERY_TIMEOUT", 15*time.Second),
		},
		Classifier: ClassifierConfig{
			ModelDir:     getEnv("MODEL_DIR", "./models"),
			ModelRef:     getEnv("MODEL_REF", ""),
			LabelsFile:   getEnv("MODEL_LABELS_FILE", "labels.json"),
			InferenceURL: getEnv("INFERENCE_URL", "http://localhost:9090/classify"),
			Timeout:      getEnvDuration("INFERENCE_TIMEOUT", 30*time.Second),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/schoolzone.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Run.ID == "" {
		return fmt.Errorf("run ID must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Roads.Step <= 0 {
		return fmt.Errorf("sample step must be positive, got %g", c.Roads.Step)
	}
	if c.Roads.SearchRadiusM <= 0 {
		return fmt.Errorf("road search radius must be positive, got %g", c.Roads.SearchRadiusM)
	}

	if c.Imagery.MetadataURL != "" && c.Imagery.APIKey == "" {
		return fmt.Errorf("imagery API key is required when a metadata URL is set")
	}
	if c.Imagery.CoordPrecision < 0 || c.Imagery.CoordPrecision > 9 {
		return fmt.Errorf("imagery coordinate precision out of range: %d", c.Imagery.CoordPrecision)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
