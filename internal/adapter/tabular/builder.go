// Package tabular builds the canonical row table from CSV exports.
//
// Three sources are joined: per-capture image metadata (one row per COG
// scene), the facility registry (CAMPD facility attributes), and daily
// emissions records. The join key is facility id plus capture date.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
)

// boxHalfSideDeg is half the side of the crop window around a facility,
// in degrees. 0.02 deg is roughly a 4.4 km square at the equator, enough
// to cover a plant and its plume.
const boxHalfSideDeg = 0.02

// Image metadata columns.
const (
	colTS         = "ts"
	colCOGURL     = "cog_url"
	colBands      = "bands"
	colCloudCover = "cloud_cover"
)

// Facility registry columns.
const (
	colFacilityName = "facility_name"
	colLatitude     = "latitude"
	colLongitude    = "longitude"
)

// Emissions columns.
const (
	colFacilityID = "facility_id"
	colDate       = "date"
	colEmissions  = "co2_mass_short_tons"
)

// Builder implements pipeline.TableBuilder over CSV files.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a CSV table builder.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger}
}

type facility struct {
	name string
	lat  float64
	lon  float64
}

// BuildTable joins the three sources into the canonical table. Image rows
// without a matching facility or emissions record are dropped, not errored:
// the sources are exported on different schedules and partial overlap is
// normal.
func (b *Builder) BuildTable(ctx context.Context, imagePath, facilitiesPath, emissionsPath string) (domain.Table, error) {
	facilities, err := b.loadFacilities(facilitiesPath)
	if err != nil {
		return domain.Table{}, fmt.Errorf("load facilities: %w", err)
	}
	emissions, err := b.loadEmissions(emissionsPath)
	if err != nil {
		return domain.Table{}, fmt.Errorf("load emissions: %w", err)
	}

	table := domain.Table{Columns: domain.RequiredColumns}
	dropped := 0

	err = forEachRecord(imagePath, []string{colFacilityID, colTS, colCOGURL, colCloudCover}, func(rec record) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, err := rec.int64(colFacilityID)
		if err != nil {
			return err
		}
		ts, err := rec.timestamp(colTS)
		if err != nil {
			return err
		}
		cloudCover, err := rec.float(colCloudCover)
		if err != nil {
			return err
		}

		fac, ok := facilities[id]
		if !ok {
			dropped++
			return nil
		}
		co2, ok := emissions[emissionKey(id, ts)]
		if !ok {
			dropped++
			return nil
		}

		src := domain.ImageSource{URL: rec.get(colCOGURL)}
		if bands := rec.get(colBands); bands != "" {
			src.Bands = strings.Split(bands, ";")
		}

		table.Rows = append(table.Rows, domain.Row{
			FacilityID:   id,
			FacilityName: fac.name,
			Latitude:     fac.lat,
			Longitude:    fac.lon,
			TS:           ts,
			Emissions:    co2,
			CloudCover:   cloudCover,
			Source:       src,
			Geometry:     domain.BoxAround(fac.lon, fac.lat, boxHalfSideDeg),
		})
		return nil
	})
	if err != nil {
		return domain.Table{}, fmt.Errorf("join image metadata: %w", err)
	}

	b.logger.Info("built canonical table",
		"rows", table.Len(),
		"facilities", len(facilities),
		"dropped", dropped,
	)
	return table, nil
}

func (b *Builder) loadFacilities(path string) (map[int64]facility, error) {
	out := make(map[int64]facility)
	err := forEachRecord(path, []string{colFacilityID, colFacilityName, colLatitude, colLongitude}, func(rec record) error {
		id, err := rec.int64(colFacilityID)
		if err != nil {
			return err
		}
		lat, err := rec.float(colLatitude)
		if err != nil {
			return err
		}
		lon, err := rec.float(colLongitude)
		if err != nil {
			return err
		}
		out[id] = facility{name: rec.get(colFacilityName), lat: lat, lon: lon}
		return nil
	})
	return out, err
}

func (b *Builder) loadEmissions(path string) (map[string]float64, error) {
	out := make(map[string]float64)
	err := forEachRecord(path, []string{colFacilityID, colDate, colEmissions}, func(rec record) error {
		id, err := rec.int64(colFacilityID)
		if err != nil {
			return err
		}
		date, err := time.Parse(time.DateOnly, rec.get(colDate))
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", colDate, rec.get(colDate), err)
		}
		co2, err := rec.float(colEmissions)
		if err != nil {
			return err
		}
		out[emissionKey(id, date)] = co2
		return nil
	})
	return out, err
}

// emissionKey joins facility id and capture day; emissions are daily totals.
func emissionKey(id int64, ts time.Time) string {
	return strconv.FormatInt(id, 10) + "|" + ts.UTC().Format(time.DateOnly)
}

// record is one CSV row addressed by header name.
type record struct {
	colIndex map[string]int
	fields   []string
}

func (r record) get(col string) string {
	i, ok := r.colIndex[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) int64(col string) (int64, error) {
	v, err := strconv.ParseInt(r.get(col), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", col, r.get(col), err)
	}
	return v, nil
}

func (r record) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.get(col), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", col, r.get(col), err)
	}
	return v, nil
}

func (r record) timestamp(col string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339, r.get(col))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s %q: %w", col, r.get(col), err)
	}
	return v, nil
}

// forEachRecord streams a CSV file, mapping the header to column indices and
// verifying the required columns before the first data row.
func forEachRecord(path string, required []string, fn func(record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			return fmt.Errorf("%s: required column %q not found", path, col)
		}
	}

	for line := 2; ; line++ {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s line %d: %w", path, line, err)
		}
		if err := fn(record{colIndex: colIndex, fields: fields}); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}
