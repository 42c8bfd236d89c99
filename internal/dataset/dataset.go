// Package dataset turns a canonical row table into a lazily evaluated,
// worker-shardable stream of training samples. Image fetches happen at
// consumption time; rows whose image fails the dark-pixel quality gate are
// skipped silently.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
)

// DefaultMaxDarkFrac is the dark-pixel fraction above which an image is
// dropped when the config leaves the threshold unset.
const DefaultMaxDarkFrac = 0.5

// Config controls how rows become samples.
type Config struct {
	// Target is the column cast to the sample's scalar target. Defaults to
	// co2_mass_short_tons.
	Target string

	// ImageSize is the square crop edge in pixels.
	ImageSize int

	// MaxDarkFrac is the maximum tolerable dark-pixel fraction. Zero is a
	// valid (strictest) threshold; a negative value selects
	// DefaultMaxDarkFrac.
	MaxDarkFrac float64

	// Transform is applied to each fetched image. Nil means identity.
	Transform domain.Transform
}

// Dataset streams samples from a row table. It holds no iteration state;
// every Iter call starts a fresh pass.
type Dataset struct {
	table   domain.Table
	fetcher domain.ImageFetcher
	cfg     Config
}

// New validates the table against the required column set and returns a
// dataset. Column validation happens here, once, so iteration never has to
// care about table shape.
func New(table domain.Table, fetcher domain.ImageFetcher, cfg Config) (*Dataset, error) {
	if missing := table.MissingColumns(domain.RequiredColumns); len(missing) > 0 {
		return nil, fmt.Errorf("table is missing required columns: %s", strings.Join(missing, ", "))
	}
	if fetcher == nil {
		return nil, errors.New("image fetcher is required")
	}
	if cfg.Target == "" {
		cfg.Target = domain.ColEmissions
	}
	if cfg.ImageSize <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %d", cfg.ImageSize)
	}
	if cfg.MaxDarkFrac < 0 {
		cfg.MaxDarkFrac = DefaultMaxDarkFrac
	}
	if cfg.MaxDarkFrac > 1 {
		return nil, fmt.Errorf("max dark fraction %v outside [0, 1]", cfg.MaxDarkFrac)
	}
	return &Dataset{table: table, fetcher: fetcher, cfg: cfg}, nil
}

// Len returns the underlying row count: an upper bound on the samples a full
// pass yields, exact when no image is too dark.
func (d *Dataset) Len() int { return d.table.Len() }

// Iter starts a pass over the worker's shard. Worker i of W owns row indices
// i, i+W, i+2W, …, so the shards of all workers cover every index exactly
// once with no coordination. Iter(0, 1) covers the whole table.
func (d *Dataset) Iter(workerID, workerCount int) (*Iterator, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workerCount)
	}
	if workerID < 0 || workerID >= workerCount {
		return nil, fmt.Errorf("worker id %d outside [0, %d)", workerID, workerCount)
	}
	return &Iterator{d: d, next: workerID, stride: workerCount}, nil
}

// Iterator is a single worker's one-pass cursor over its shard. It is not
// safe for concurrent use and cannot be resumed across passes; start a new
// pass with Iter.
type Iterator struct {
	d      *Dataset
	next   int
	stride int
}

// Next fetches rows in ascending index order until one yields a sample,
// skipping rows whose image is too dark. It returns io.EOF when the shard is
// exhausted. A fetch failure is returned as-is and ends the pass for this
// worker.
func (it *Iterator) Next(ctx context.Context) (domain.Sample, error) {
	for it.next < it.d.Len() {
		if err := ctx.Err(); err != nil {
			return domain.Sample{}, err
		}

		row := it.d.table.Rows[it.next]
		idx := it.next
		it.next += it.stride

		img, err := it.d.fetcher.Fetch(ctx, row.Source, row.Geometry, it.d.cfg.ImageSize)
		if err != nil {
			return domain.Sample{}, fmt.Errorf("fetch image for row %d: %w", idx, err)
		}

		dark, err := domain.TooDark(img, it.d.cfg.MaxDarkFrac)
		if err != nil {
			return domain.Sample{}, fmt.Errorf("dark check for row %d: %w", idx, err)
		}
		if dark {
			continue
		}

		if it.d.cfg.Transform != nil {
			img = it.d.cfg.Transform(img).SqueezeLeading()
		}

		target, err := row.Target(it.d.cfg.Target)
		if err != nil {
			return domain.Sample{}, fmt.Errorf("target for row %d: %w", idx, err)
		}

		return domain.Sample{
			Image:    img,
			Target:   float32(target),
			Metadata: row.Metadata(it.d.cfg.Target),
		}, nil
	}
	return domain.Sample{}, io.EOF
}
