// Package split partitions a labeled table into train/test subsets by a
// reproducible per-row pseudo-random assignment.
package split

import (
	"fmt"
	"hash/fnv"

	"github.com/mokala/veldscan/internal/models"
)

// Assign maps (row identity, seed) to a stable value in [0, 1) via FNV-1a.
// The same id and seed always produce the same value.
func Assign(id string, seed int64) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", id, seed)
	return float64(h.Sum64()>>11) / float64(uint64(1)<<53)
}

// Partition splits samples into train (assignment < fraction) and test.
// Every row lands in exactly one subset; identical inputs and seed reproduce
// the identical partition.
func Partition(samples []models.LabeledSample, fraction float64, seed int64) (train, test []models.LabeledSample) {
	for _, s := range samples {
		if Assign(s.ObservationID, seed) < fraction {
			train = append(train, s)
		} else {
			test = append(test, s)
		}
	}
	return train, test
}
