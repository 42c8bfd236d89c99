package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Tabular source paths.
	ImageMetadataPath string
	FacilitiesPath    string
	EmissionsPath     string

	// Dataset parameters.
	TargetColumn  string
	ImageSizePx   int
	TrainValRatio float64
	TestYear      int
	MaxDarkFrac   float64
	SplitSeed     int64
	BatchSize     int
	NumWorkers    int
	Stage         string // "fit" or "test"

	// COG tiler client.
	TilerURL       string
	TilerTimeout   time.Duration
	TilerCacheSize int

	// Optional manifest publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaManifestTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	imageSize, err := intInRange("IMAGE_SIZE_PX", 64, 8, 2048)
	if err != nil {
		return nil, err
	}
	trainValRatio, err := floatInRange("TRAIN_VAL_RATIO", 0.8, 0, 1)
	if err != nil {
		return nil, err
	}
	testYear, err := intInRange("TEST_YEAR", 2023, 2015, 2100)
	if err != nil {
		return nil, err
	}
	maxDarkFrac, err := floatInRange("MAX_DARK_FRAC", 0.5, 0, 1)
	if err != nil {
		return nil, err
	}
	splitSeed, err := intInRange("SPLIT_SEED", 42, 0, 1<<31)
	if err != nil {
		return nil, err
	}
	batchSize, err := intInRange("BATCH_SIZE", 32, 1, 1024)
	if err != nil {
		return nil, err
	}
	numWorkers, err := intInRange("NUM_WORKERS", 0, 0, 256)
	if err != nil {
		return nil, err
	}
	tilerTimeout, err := positiveDuration("COG_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	tilerCacheSize, err := intInRange("COG_CACHE_SIZE", 512, 0, 1<<20)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := positiveDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ImageMetadataPath: envOrDefault("IMAGE_METADATA_PATH", "data/image_metadata.csv"),
		FacilitiesPath:    envOrDefault("FACILITIES_PATH", "data/campd_facilities.csv"),
		EmissionsPath:     envOrDefault("EMISSIONS_PATH", "data/campd_emissions.csv"),

		TargetColumn:  envOrDefault("TARGET_COLUMN", "co2_mass_short_tons"),
		ImageSizePx:   imageSize,
		TrainValRatio: trainValRatio,
		TestYear:      testYear,
		MaxDarkFrac:   maxDarkFrac,
		SplitSeed:     int64(splitSeed),
		BatchSize:     batchSize,
		NumWorkers:    numWorkers,
		Stage:         envOrDefault("STAGE", "fit"),

		TilerURL:       envOrDefault("COG_TILER_URL", "http://localhost:8081"),
		TilerTimeout:   tilerTimeout,
		TilerCacheSize: tilerCacheSize,

		KafkaEnabled:       envOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers:       splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaManifestTopic: envOrDefault("KAFKA_MANIFEST_TOPIC", "dataset-manifests"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.Stage != "fit" && cfg.Stage != "test" {
		return nil, fmt.Errorf("STAGE must be \"fit\" or \"test\", got %q", cfg.Stage)
	}
	if cfg.ImageMetadataPath == "" || cfg.FacilitiesPath == "" || cfg.EmissionsPath == "" {
		return nil, fmt.Errorf("IMAGE_METADATA_PATH, FACILITIES_PATH and EMISSIONS_PATH are required")
	}
	if cfg.TilerURL == "" {
		return nil, fmt.Errorf("COG_TILER_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaManifestTopic == "" {
		return nil, fmt.Errorf("KAFKA_ENABLED is true but KAFKA_MANIFEST_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func intInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be in [%d, %d], got %d", key, lo, hi, n)
	}
	return n, nil
}

func floatInRange(key string, fallback, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	if f < lo || f > hi {
		return 0, fmt.Errorf("%s must be in [%g, %g], got %g", key, lo, hi, f)
	}
	return f, nil
}

func positiveDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
