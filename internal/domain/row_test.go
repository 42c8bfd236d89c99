package domain_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRow(facilityID int64, ts time.Time) domain.Row {
	return domain.Row{
		FacilityID:   facilityID,
		FacilityName: "Sandow Station",
		Latitude:     30.56,
		Longitude:    -97.06,
		TS:           ts,
		Emissions:    1234.5,
		CloudCover:   0.12,
		Source:       domain.ImageSource{URL: "https://cogs.example.com/scene.tif"},
		Geometry:     domain.BoxAround(-97.06, 30.56, 0.02),
	}
}

func TestRowMetadata_ExcludesTargetGeometryAndSplit(t *testing.T) {
	ts := time.Date(2021, time.June, 3, 17, 30, 0, 0, time.UTC)
	row := makeRow(42, ts)
	row.Split = domain.SplitTrain

	meta := row.Metadata(domain.ColEmissions)

	assert.NotContains(t, meta, domain.ColEmissions)
	assert.NotContains(t, meta, domain.ColGeometry)
	assert.NotContains(t, meta, "data_set")
	assert.Equal(t, "2021-06-03T17:30:00Z", meta[domain.ColTimestamp])
	assert.Equal(t, int64(42), meta[domain.ColFacilityID])
	assert.Equal(t, "Sandow Station", meta[domain.ColFacilityName])
	assert.Equal(t, 0.12, meta[domain.ColCloudCover])
	assert.Equal(t, "https://cogs.example.com/scene.tif", meta[domain.ColCOGURL])
}

func TestRowTarget(t *testing.T) {
	row := makeRow(1, time.Now())

	v, err := row.Target(domain.ColEmissions)
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v)

	v, err = row.Target(domain.ColCloudCover)
	require.NoError(t, err)
	assert.Equal(t, 0.12, v)

	_, err = row.Target("no_such_column")
	assert.Error(t, err)
}

func TestImageSourceRef(t *testing.T) {
	single := domain.ImageSource{URL: "https://cogs.example.com/tci.tif"}
	assert.Equal(t, "https://cogs.example.com/tci.tif", single.Ref())

	bands := domain.ImageSource{
		URL:   "ignored-when-bands-present",
		Bands: []string{"https://cogs.example.com/b04.tif", "https://cogs.example.com/b03.tif"},
	}
	assert.Equal(t, "https://cogs.example.com/b04.tif,https://cogs.example.com/b03.tif", bands.Ref())

	assert.True(t, domain.ImageSource{}.IsZero())
	assert.False(t, single.IsZero())
}

func TestTableMissingColumns(t *testing.T) {
	table := domain.Table{Columns: []string{domain.ColFacilityID, domain.ColTimestamp}}
	missing := table.MissingColumns(domain.RequiredColumns)
	assert.Contains(t, missing, domain.ColGeometry)
	assert.Contains(t, missing, domain.ColEmissions)
	assert.NotContains(t, missing, domain.ColFacilityID)

	full := domain.Table{Columns: domain.RequiredColumns}
	assert.Empty(t, full.MissingColumns(domain.RequiredColumns))
}

func TestTableFacilityIDs(t *testing.T) {
	table := domain.Table{Rows: []domain.Row{
		makeRow(3, time.Now()),
		makeRow(1, time.Now()),
		makeRow(3, time.Now()),
		makeRow(2, time.Now()),
	}}
	assert.Equal(t, []int64{1, 2, 3}, table.FacilityIDs())
}

func TestTableFilterSplit(t *testing.T) {
	train := makeRow(1, time.Now())
	train.Split = domain.SplitTrain
	test := makeRow(2, time.Now())
	test.Split = domain.SplitTest

	table := domain.Table{Columns: domain.RequiredColumns, Rows: []domain.Row{train, test}}

	got := table.FilterSplit(domain.SplitTrain)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, int64(1), got.Rows[0].FacilityID)
	assert.Equal(t, domain.RequiredColumns, got.Columns)
}

func TestTableShuffled_PreservesRows(t *testing.T) {
	table := domain.Table{}
	for i := int64(0); i < 20; i++ {
		table.Rows = append(table.Rows, makeRow(i, time.Now()))
	}

	shuffled := table.Shuffled(rand.New(rand.NewSource(5)))
	require.Equal(t, table.Len(), shuffled.Len())
	assert.ElementsMatch(t, table.FacilityIDs(), shuffled.FacilityIDs())
	// Original order untouched.
	assert.Equal(t, int64(0), table.Rows[0].FacilityID)
}

func TestGeometryBounds(t *testing.T) {
	pt := domain.PointGeometry(-97.06, 30.56)
	minLon, minLat, maxLon, maxLat := pt.Bounds()
	assert.Equal(t, -97.06, minLon)
	assert.Equal(t, minLon, maxLon)
	assert.Equal(t, 30.56, minLat)
	assert.Equal(t, minLat, maxLat)

	box := domain.BoxAround(-97.0, 30.5, 0.02)
	minLon, minLat, maxLon, maxLat = box.Bounds()
	assert.InDelta(t, -97.02, minLon, 1e-9)
	assert.InDelta(t, -96.98, maxLon, 1e-9)
	assert.InDelta(t, 30.48, minLat, 1e-9)
	assert.InDelta(t, 30.52, maxLat, 1e-9)

	assert.True(t, domain.Geometry{}.IsZero())
	assert.False(t, box.IsZero())
}

func TestNewDatasetManifest(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	train := makeRow(1, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	train.Split = domain.SplitTrain
	test := makeRow(2, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	test.Split = domain.SplitTest

	m := domain.NewDatasetManifest("fit", domain.Table{Rows: []domain.Row{train, train, test}}, 0.8, 2023)

	assert.Equal(t, "fit", m.Stage)
	assert.Equal(t, 3, m.Rows)
	assert.Equal(t, 2, m.Facilities)
	assert.Equal(t, 2, m.SplitRows[domain.SplitTrain])
	assert.Equal(t, 1, m.SplitRows[domain.SplitTest])
	assert.Equal(t, fakeClock.Now(), m.PreparedAt)
}
