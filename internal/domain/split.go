package domain

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// Split labels a row as training, validation, or test data.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// ErrNoFacilities is returned when a partition is requested over an empty
// facility set.
var ErrNoFacilities = errors.New("facility set is empty")

// PartitionFacilities randomly partitions the distinct facility set into
// train and val so that round(trainRatio * len(ids)) facilities land in
// train. The partition is a function of the sorted id set and the seed only:
// the same facilities and seed always produce the same mapping, regardless
// of input order.
func PartitionFacilities(ids []int64, trainRatio float64, seed int64) (map[int64]Split, error) {
	if len(ids) == 0 {
		return nil, ErrNoFacilities
	}
	if trainRatio < 0 || trainRatio > 1 {
		return nil, fmt.Errorf("train ratio %v outside [0, 1]", trainRatio)
	}

	// Sort before shuffling so the outcome doesn't depend on caller order.
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(sorted), func(i, j int) {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	})

	nTrain := int(math.Round(trainRatio * float64(len(sorted))))
	mapping := make(map[int64]Split, len(sorted))
	for i, id := range sorted {
		if i < nTrain {
			mapping[id] = SplitTrain
		} else {
			mapping[id] = SplitVal
		}
	}
	return mapping, nil
}

// ResolveSplit returns the split for one row. Rows at or past the test year
// are test data unconditionally; older rows follow the facility mapping.
func ResolveSplit(facilityID int64, year int, mapping map[int64]Split, testYear int) Split {
	if year >= testYear {
		return SplitTest
	}
	return mapping[facilityID]
}
