// Package pipeline orchestrates the dataset lifecycle: joining raw tabular
// sources into the canonical table, partitioning facilities into splits,
// and exposing batched sample streams per split.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/config"
	"github.com/carbonwatch/emissions-dataprep/internal/dataset"
	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/carbonwatch/emissions-dataprep/internal/observability"
)

// Stage selects which sample streams a setup constructs.
type Stage string

const (
	StageFit  Stage = "fit"  // train + val streams
	StageTest Stage = "test" // test stream
)

// TableBuilder joins the raw tabular sources into the canonical row table.
type TableBuilder interface {
	BuildTable(ctx context.Context, imageMetadataPath, facilitiesPath, emissionsPath string) (domain.Table, error)
}

// ManifestPublisher records dataset lineage after a successful setup.
type ManifestPublisher interface {
	PublishManifest(ctx context.Context, m domain.DatasetManifest) error
}

// DataModule binds the raw source paths to per-split datasets. Construct it
// once, call Setup for the stage you need, then pull batches from the split
// loaders.
type DataModule struct {
	cfg       *config.Config
	builder   TableBuilder
	fetcher   domain.ImageFetcher
	publisher ManifestPublisher // nil disables lineage publishing
	logger    *slog.Logger
	metrics   *observability.Metrics

	train *dataset.Dataset
	val   *dataset.Dataset
	test  *dataset.Dataset

	manifest domain.DatasetManifest
	ready    atomic.Bool
}

// New creates a DataModule. Pass a nil publisher to skip manifest events.
func New(cfg *config.Config, builder TableBuilder, fetcher domain.ImageFetcher, publisher ManifestPublisher, logger *slog.Logger, metrics *observability.Metrics) *DataModule {
	return &DataModule{
		cfg:       cfg,
		builder:   builder,
		fetcher:   fetcher,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Setup builds the canonical table, partitions the facility set, labels
// every row with its resolved split, and constructs the stage's datasets.
// Each split's rows are shuffled once here; passes over a dataset do not
// reshuffle.
func (m *DataModule) Setup(ctx context.Context, stage Stage) error {
	if stage != StageFit && stage != StageTest {
		return fmt.Errorf("unknown stage %q", stage)
	}

	start := time.Now()

	table, err := m.builder.BuildTable(ctx, m.cfg.ImageMetadataPath, m.cfg.FacilitiesPath, m.cfg.EmissionsPath)
	if err != nil {
		return fmt.Errorf("build canonical table: %w", err)
	}

	ids := table.FacilityIDs()
	mapping, err := domain.PartitionFacilities(ids, m.cfg.TrainValRatio, m.cfg.SplitSeed)
	if err != nil {
		return fmt.Errorf("partition facilities: %w", err)
	}

	for i := range table.Rows {
		row := &table.Rows[i]
		row.Split = domain.ResolveSplit(row.FacilityID, row.TS.Year(), mapping, m.cfg.TestYear)
	}

	m.metrics.RowsJoined.Set(float64(table.Len()))
	m.metrics.FacilitiesPartitioned.Set(float64(len(ids)))
	for _, split := range []domain.Split{domain.SplitTrain, domain.SplitVal, domain.SplitTest} {
		m.metrics.SplitRows.WithLabelValues(string(split)).Set(float64(table.FilterSplit(split).Len()))
	}

	rng := rand.New(rand.NewSource(m.cfg.SplitSeed))
	switch stage {
	case StageFit:
		m.train, err = m.newSplitDataset(table, domain.SplitTrain, rng, domain.TrainTransforms(m.cfg.SplitSeed))
		if err != nil {
			return err
		}
		m.val, err = m.newSplitDataset(table, domain.SplitVal, rng, domain.EvalTransforms())
		if err != nil {
			return err
		}
	case StageTest:
		m.test, err = m.newSplitDataset(table, domain.SplitTest, rng, domain.EvalTransforms())
		if err != nil {
			return err
		}
	}

	m.manifest = domain.NewDatasetManifest(string(stage), table, m.cfg.TrainValRatio, m.cfg.TestYear)
	if m.publisher != nil {
		// Lineage is best-effort; a publish failure must not fail the prep run.
		if err := m.publisher.PublishManifest(ctx, m.manifest); err != nil {
			m.logger.Warn("manifest publish failed", "stage", stage, "error", err)
		}
	}

	m.metrics.SetupDuration.Observe(time.Since(start).Seconds())
	m.metrics.DataModuleReady.Set(1)
	m.ready.Store(true)

	m.logger.Info("datamodule setup complete",
		"stage", stage,
		"rows", table.Len(),
		"facilities", len(ids),
		"train_rows", m.manifest.SplitRows[domain.SplitTrain],
		"val_rows", m.manifest.SplitRows[domain.SplitVal],
		"test_rows", m.manifest.SplitRows[domain.SplitTest],
	)
	return nil
}

func (m *DataModule) newSplitDataset(table domain.Table, split domain.Split, rng *rand.Rand, transform domain.Transform) (*dataset.Dataset, error) {
	rows := table.FilterSplit(split).Shuffled(rng)
	ds, err := dataset.New(rows, m.fetcher, dataset.Config{
		Target:      m.cfg.TargetColumn,
		ImageSize:   m.cfg.ImageSizePx,
		MaxDarkFrac: m.cfg.MaxDarkFrac,
		Transform:   transform,
	})
	if err != nil {
		return nil, fmt.Errorf("construct %s dataset: %w", split, err)
	}
	return ds, nil
}

// TrainLoader returns the batched train stream. Setup(StageFit) must have
// succeeded first.
func (m *DataModule) TrainLoader() (*Loader, error) {
	return m.loaderFor(m.train, domain.SplitTrain)
}

// ValLoader returns the batched validation stream.
func (m *DataModule) ValLoader() (*Loader, error) {
	return m.loaderFor(m.val, domain.SplitVal)
}

// TestLoader returns the batched test stream. Setup(StageTest) must have
// succeeded first.
func (m *DataModule) TestLoader() (*Loader, error) {
	return m.loaderFor(m.test, domain.SplitTest)
}

func (m *DataModule) loaderFor(ds *dataset.Dataset, split domain.Split) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("%s dataset not constructed; run the matching setup stage first", split)
	}
	return &Loader{
		ds:        ds,
		split:     split,
		batchSize: m.cfg.BatchSize,
		workers:   m.cfg.NumWorkers,
		metrics:   m.metrics,
	}, nil
}

// Manifest returns the lineage summary of the last successful setup.
func (m *DataModule) Manifest() (domain.DatasetManifest, bool) {
	if !m.ready.Load() {
		return domain.DatasetManifest{}, false
	}
	return m.manifest, true
}

// CheckReadiness returns nil once a setup has completed, or an error
// describing why the service is not yet ready.
func (m *DataModule) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("datamodule has not completed setup yet")
	}
	return nil
}
