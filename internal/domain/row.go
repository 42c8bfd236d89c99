package domain

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"
)

// Canonical column names of the joined dataset table.
const (
	ColFacilityID   = "facility_id"
	ColFacilityName = "facility_name"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"
	ColTimestamp    = "ts"
	ColEmissions    = "co2_mass_short_tons"
	ColCloudCover   = "cloud_cover"
	ColCOGURL       = "cog_url"
	ColGeometry     = "geometry"
)

// RequiredColumns is the full column set every canonical table must carry.
var RequiredColumns = []string{
	ColFacilityID,
	ColFacilityName,
	ColLatitude,
	ColLongitude,
	ColTimestamp,
	ColEmissions,
	ColCloudCover,
	ColCOGURL,
	ColGeometry,
}

// ImageSource references the imagery for one observation: either a single
// visual COG or an ordered list of per-band COGs.
type ImageSource struct {
	URL   string
	Bands []string // takes precedence over URL when non-empty
}

// Ref returns a stable string form of the source, usable as a cache key.
func (s ImageSource) Ref() string {
	if len(s.Bands) > 0 {
		return strings.Join(s.Bands, ",")
	}
	return s.URL
}

// IsZero reports whether the source references no imagery at all.
func (s ImageSource) IsZero() bool {
	return s.URL == "" && len(s.Bands) == 0
}

// Row is one observation: one facility at one capture timestamp.
type Row struct {
	FacilityID   int64
	FacilityName string
	Latitude     float64
	Longitude    float64
	TS           time.Time
	Emissions    float64 // CO2 mass in short tons, the default target
	CloudCover   float64 // 0.0–1.0 scene cloud fraction
	Source       ImageSource
	Geometry     Geometry

	// Split is resolved during data-module setup and is empty before that.
	Split Split
}

// Target returns the row's value for the named target column.
func (r Row) Target(column string) (float64, error) {
	switch column {
	case ColEmissions:
		return r.Emissions, nil
	case ColCloudCover:
		return r.CloudCover, nil
	default:
		return 0, fmt.Errorf("unknown target column %q", column)
	}
}

// Metadata returns the row's fields keyed by column name, excluding the
// target column, the geometry, and the split label. The timestamp is
// serialized to RFC3339 in UTC.
func (r Row) Metadata(target string) map[string]any {
	m := map[string]any{
		ColFacilityID:   r.FacilityID,
		ColFacilityName: r.FacilityName,
		ColLatitude:     r.Latitude,
		ColLongitude:    r.Longitude,
		ColTimestamp:    r.TS.UTC().Format(time.RFC3339),
		ColEmissions:    r.Emissions,
		ColCloudCover:   r.CloudCover,
		ColCOGURL:       r.Source.Ref(),
	}
	delete(m, target)
	return m
}

// Table is the canonical joined row table. Columns records the column set the
// builder produced so consumers can fail fast on an incomplete join.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// MissingColumns returns the required columns absent from the table, in the
// order they appear in required.
func (t Table) MissingColumns(required []string) []string {
	var missing []string
	for _, col := range required {
		if !slices.Contains(t.Columns, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// FacilityIDs returns the distinct facility identifiers in ascending order.
func (t Table) FacilityIDs() []int64 {
	seen := make(map[int64]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		seen[row.FacilityID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// FilterSplit returns a table containing only the rows labeled with s.
// Columns are shared with the receiver.
func (t Table) FilterSplit(s Split) Table {
	out := Table{Columns: t.Columns}
	for _, row := range t.Rows {
		if row.Split == s {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Shuffled returns a copy of the table with rows in random order.
func (t Table) Shuffled(rng *rand.Rand) Table {
	rows := slices.Clone(t.Rows)
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})
	return Table{Columns: t.Columns, Rows: rows}
}
