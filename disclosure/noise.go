package disclosure

import (
	"fmt"
	"math"
	"math/rand/v2"

	"hermannm.dev/safetab/tabulate"
)

const (
	DefaultBaseEpsilon = 1.0
	minEpsilon         = 0.1
	maxEpsilon         = 2.0
	// A single individual changes any count by at most 1.
	countSensitivity = 1.0
)

// NoiseAdder protects a table with differential privacy: every cell (zeros included) gets
// independent Laplace noise, and is then rounded to the nearest integer and clamped at 0. The
// row, column and grand totals are computed from the noisy cells, so the true total is never
// published in this mode.
//
// The privacy budget shrinks for queries over small parts of the dataset: epsilon is
// BaseEpsilon scaled by 0.3, 0.5, 0.8 or 1.0 when the filtered rows make up at most 10%, 30%,
// 70% or more of the dataset, then clamped to [0.1, 2.0].
type NoiseAdder struct {
	BaseEpsilon  float64
	FilteredRows int
	DatasetRows  int
	// Defaults to a randomly seeded source when nil.
	Random *rand.Rand
}

func (noiseAdder NoiseAdder) Protect(table tabulate.Table) (ProtectedTable, error) {
	if noiseAdder.BaseEpsilon <= 0 || math.IsNaN(noiseAdder.BaseEpsilon) {
		return ProtectedTable{}, fmt.Errorf(
			"base epsilon must be positive, got %v", noiseAdder.BaseEpsilon,
		)
	}

	random := noiseAdder.Random
	if random == nil {
		random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	scale := countSensitivity / noiseAdder.Epsilon()

	protected := newProtectedTable(table, ModeDifferentialPrivacy)
	for i, row := range table.Counts {
		protected.Cells[i] = make([]Cell, len(row))
		for j, count := range row {
			noisy := float64(count) + laplace(random, scale)
			noisyCount := int(math.Max(math.RoundToEven(noisy), 0))
			protected.Cells[i][j] = Visible(noisyCount)
			protected.GrandTotal += noisyCount
		}
	}
	protected.computeSubtotals()

	return protected, nil
}

// Epsilon returns the privacy budget for the query, scaled by how much of the dataset it covers.
func (noiseAdder NoiseAdder) Epsilon() float64 {
	proportion := 1.0
	if noiseAdder.DatasetRows > 0 {
		proportion = float64(noiseAdder.FilteredRows) / float64(noiseAdder.DatasetRows)
	}

	var factor float64
	switch {
	case proportion <= 0.1:
		factor = 0.3
	case proportion <= 0.3:
		factor = 0.5
	case proportion <= 0.7:
		factor = 0.8
	default:
		factor = 1.0
	}

	return min(max(noiseAdder.BaseEpsilon*factor, minEpsilon), maxEpsilon)
}

// The difference of two exponential samples is Laplace-distributed.
func laplace(random *rand.Rand, scale float64) float64 {
	return scale * (random.ExpFloat64() - random.ExpFloat64())
}
