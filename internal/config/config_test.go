package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/image_metadata.csv", cfg.ImageMetadataPath)
	assert.Equal(t, "data/campd_facilities.csv", cfg.FacilitiesPath)
	assert.Equal(t, "data/campd_emissions.csv", cfg.EmissionsPath)
	assert.Equal(t, "co2_mass_short_tons", cfg.TargetColumn)
	assert.Equal(t, 64, cfg.ImageSizePx)
	assert.Equal(t, 0.8, cfg.TrainValRatio)
	assert.Equal(t, 2023, cfg.TestYear)
	assert.Equal(t, 0.5, cfg.MaxDarkFrac)
	assert.Equal(t, int64(42), cfg.SplitSeed)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 0, cfg.NumWorkers)
	assert.Equal(t, "fit", cfg.Stage)
	assert.Equal(t, "http://localhost:8081", cfg.TilerURL)
	assert.Equal(t, 30*time.Second, cfg.TilerTimeout)
	assert.Equal(t, 512, cfg.TilerCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "dataset-manifests", cfg.KafkaManifestTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("IMAGE_METADATA_PATH", "/data/images.csv")
	t.Setenv("FACILITIES_PATH", "/data/facilities.csv")
	t.Setenv("EMISSIONS_PATH", "/data/emissions.csv")
	t.Setenv("TARGET_COLUMN", "cloud_cover")
	t.Setenv("IMAGE_SIZE_PX", "128")
	t.Setenv("TRAIN_VAL_RATIO", "0.7")
	t.Setenv("TEST_YEAR", "2024")
	t.Setenv("MAX_DARK_FRAC", "0.25")
	t.Setenv("SPLIT_SEED", "7")
	t.Setenv("BATCH_SIZE", "16")
	t.Setenv("NUM_WORKERS", "4")
	t.Setenv("STAGE", "test")
	t.Setenv("COG_TILER_URL", "http://tiler:8000")
	t.Setenv("COG_TIMEOUT", "5s")
	t.Setenv("COG_CACHE_SIZE", "64")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_MANIFEST_TOPIC", "manifests")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/images.csv", cfg.ImageMetadataPath)
	assert.Equal(t, "cloud_cover", cfg.TargetColumn)
	assert.Equal(t, 128, cfg.ImageSizePx)
	assert.Equal(t, 0.7, cfg.TrainValRatio)
	assert.Equal(t, 2024, cfg.TestYear)
	assert.Equal(t, 0.25, cfg.MaxDarkFrac)
	assert.Equal(t, int64(7), cfg.SplitSeed)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 4, cfg.NumWorkers)
	assert.Equal(t, "test", cfg.Stage)
	assert.Equal(t, "http://tiler:8000", cfg.TilerURL)
	assert.Equal(t, 5*time.Second, cfg.TilerTimeout)
	assert.Equal(t, 64, cfg.TilerCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "manifests", cfg.KafkaManifestTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidStage(t *testing.T) {
	t.Setenv("STAGE", "predict")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STAGE")
}

func TestLoad_InvalidRatio(t *testing.T) {
	t.Setenv("TRAIN_VAL_RATIO", "1.2")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRAIN_VAL_RATIO")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidImageSize(t *testing.T) {
	t.Setenv("IMAGE_SIZE_PX", "4")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAGE_SIZE_PX")
}

func TestLoad_InvalidDarkFraction(t *testing.T) {
	t.Setenv("MAX_DARK_FRAC", "nope")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_DARK_FRAC")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_KafkaEnabledNeedsBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
