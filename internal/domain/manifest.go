package domain

import "time"

// DatasetManifest summarizes one data-module setup: how many rows were
// joined, how the facility set was partitioned, and how rows landed in each
// split. Manifests feed lineage tooling downstream of the prep job.
type DatasetManifest struct {
	Stage         string        `json:"stage"`
	Rows          int           `json:"rows"`
	Facilities    int           `json:"facilities"`
	SplitRows     map[Split]int `json:"split_rows"`
	TrainValRatio float64       `json:"train_val_ratio"`
	TestYear      int           `json:"test_year"`
	PreparedAt    time.Time     `json:"prepared_at"`
}

// NewDatasetManifest builds a manifest from a fully labeled table, stamping
// PreparedAt from the package clock.
func NewDatasetManifest(stage string, table Table, trainValRatio float64, testYear int) DatasetManifest {
	splitRows := make(map[Split]int, 3)
	for _, row := range table.Rows {
		splitRows[row.Split]++
	}
	return DatasetManifest{
		Stage:         stage,
		Rows:          table.Len(),
		Facilities:    len(table.FacilityIDs()),
		SplitRows:     splitRows,
		TrainValRatio: trainValRatio,
		TestYear:      testYear,
		PreparedAt:    clock.Now(),
	}
}
