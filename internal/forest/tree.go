package forest

import (
	"math/rand"
	"sort"
)

// node is one decision-tree node. Leaves predict the mean target of their
// training rows.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	leaf      bool
	value     float64
}

type tree struct {
	root *node
}

func (t *tree) predict(row []float64) float64 {
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// growTree builds one regression tree over the bootstrap rows idx.
// Split impurity decreases (sum-of-squares) are accumulated into imp per
// feature. All tie-breaks are deterministic: candidate features are visited
// in sorted order and only strictly better splits are taken.
func growTree(x [][]float64, y []float64, idx []int, minLeaf int, rng *rand.Rand, imp []float64) *tree {
	p := len(x[0])
	mtry := featureSubsetSize(p)
	return &tree{root: buildNode(x, y, idx, minLeaf, mtry, rng, imp)}
}

func featureSubsetSize(p int) int {
	m := 0
	for m*m < p {
		m++
	}
	if m < 1 {
		m = 1
	}
	return m
}

func buildNode(x [][]float64, y []float64, idx []int, minLeaf, mtry int, rng *rand.Rand, imp []float64) *node {
	mean, sse := meanSSE(y, idx)
	if len(idx) < 2*minLeaf || sse == 0 {
		return &node{leaf: true, value: mean}
	}

	candidates := rng.Perm(len(x[0]))[:mtry]
	sort.Ints(candidates)

	bestFeature := -1
	var bestThreshold, bestSSE float64
	var bestLeft, bestRight []int

	for _, f := range candidates {
		threshold, splitSSE, ok := bestSplitOn(x, y, idx, f, minLeaf)
		if !ok {
			continue
		}
		if bestFeature == -1 || splitSSE < bestSSE {
			bestFeature = f
			bestThreshold = threshold
			bestSSE = splitSSE
		}
	}
	if bestFeature == -1 || bestSSE >= sse {
		return &node{leaf: true, value: mean}
	}

	for _, i := range idx {
		if x[i][bestFeature] <= bestThreshold {
			bestLeft = append(bestLeft, i)
		} else {
			bestRight = append(bestRight, i)
		}
	}
	imp[bestFeature] += sse - bestSSE

	return &node{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      buildNode(x, y, bestLeft, minLeaf, mtry, rng, imp),
		right:     buildNode(x, y, bestRight, minLeaf, mtry, rng, imp),
	}
}

// bestSplitOn scans all valid thresholds of one feature and returns the one
// minimizing the summed child sum-of-squares. Thresholds are midpoints
// between adjacent distinct sorted values; both children must hold at least
// minLeaf rows.
func bestSplitOn(x [][]float64, y []float64, idx []int, f, minLeaf int) (threshold, splitSSE float64, ok bool) {
	sorted := make([]int, len(idx))
	copy(sorted, idx)
	sort.Slice(sorted, func(a, b int) bool {
		if x[sorted[a]][f] != x[sorted[b]][f] {
			return x[sorted[a]][f] < x[sorted[b]][f]
		}
		return sorted[a] < sorted[b]
	})

	n := len(sorted)
	var sumTotal, sumSqTotal float64
	for _, i := range sorted {
		sumTotal += y[i]
		sumSqTotal += y[i] * y[i]
	}

	var sumL, sumSqL float64
	for k := 0; k < n-1; k++ {
		i := sorted[k]
		sumL += y[i]
		sumSqL += y[i] * y[i]

		nL := k + 1
		nR := n - nL
		if nL < minLeaf || nR < minLeaf {
			continue
		}
		vk, vnext := x[i][f], x[sorted[k+1]][f]
		if vk == vnext {
			continue // no threshold separates equal values
		}

		sseL := sumSqL - sumL*sumL/float64(nL)
		sumR := sumTotal - sumL
		sseR := (sumSqTotal - sumSqL) - sumR*sumR/float64(nR)
		total := sseL + sseR
		if !ok || total < splitSSE {
			threshold = (vk + vnext) / 2
			splitSSE = total
			ok = true
		}
	}
	return threshold, splitSSE, ok
}

func meanSSE(y []float64, idx []int) (mean, sse float64) {
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(idx))
	mean = sum / n
	sse = sumSq - sum*sum/n
	if sse < 0 {
		sse = 0 // rounding
	}
	return mean, sse
}
