package anomaly

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// eulerGamma is the Euler–Mascheroni constant used in the harmonic number
// approximation H(i) ≈ ln(i) + γ.
const eulerGamma = 0.5772156649015329

// node is one vertex of an isolation tree. Leaves record how many training
// samples reached them.
type node struct {
	leaf    bool
	size    int
	feature int
	split   float64
	left    *node
	right   *node
}

// Model is a fitted isolation forest together with the standardization and
// decision threshold learned from its training batch. It is immutable and
// may be reused to score records from other batches.
type Model struct {
	trees     []*node
	psi       int
	mean      []float64
	scale     []float64
	threshold float64
}

// Size returns the number of trees.
func (m *Model) Size() int { return len(m.trees) }

// SampleSize returns the per-tree subsample size ψ.
func (m *Model) SampleSize() int { return m.psi }

// Threshold returns the score below which a record is anomalous.
func (m *Model) Threshold() float64 { return m.threshold }

// IsAnomalous reports whether score falls below the fitted threshold.
func (m *Model) IsAnomalous(score float64) bool { return score < m.threshold }

// Score returns the anomaly score of a raw (unstandardized) feature vector:
// -2^(-E[h(x)]/c(ψ)), in [-1, 0], lower meaning more anomalous. The vector
// must have as many features as the model was fitted with.
func (m *Model) Score(features []float64) (float64, error) {
	if len(features) != len(m.mean) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), len(m.mean))
	}
	return m.score(features), nil
}

// score is Score for vectors already known to have the fitted width.
func (m *Model) score(features []float64) float64 {
	x := make([]float64, len(features))
	for j, v := range features {
		x[j] = (v - m.mean[j]) / m.scale[j]
	}
	return m.scoreStandardized(x)
}

func (m *Model) scoreStandardized(x []float64) float64 {
	norm := averagePathLength(m.psi)
	if norm == 0 {
		// ψ = 1: every tree is a single leaf and nothing can be isolated.
		return -0.5
	}
	var total float64
	for _, t := range m.trees {
		total += pathLength(x, t)
	}
	mean := total / float64(len(m.trees))
	return -math.Pow(2, -mean/norm)
}

// fit standardizes the columns of X and grows the forest.
func fit(ctx context.Context, X *mat.Dense, opts Options) (*Model, error) {
	n, d := X.Dims()

	m := &Model{
		mean:  make([]float64, d),
		scale: make([]float64, d),
	}
	Z := mat.NewDense(n, d, nil)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		mu, sd := stat.PopMeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.mean[j], m.scale[j] = mu, sd
		for i := 0; i < n; i++ {
			Z.Set(i, j, (col[i]-mu)/sd)
		}
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = Z.RawRowView(i)
	}

	m.psi = n
	if opts.MaxSamples < m.psi {
		m.psi = opts.MaxSamples
	}
	limit := int(math.Ceil(math.Log2(math.Max(float64(m.psi), 2))))

	rng := rand.New(rand.NewSource(opts.Seed))
	m.trees = make([]*node, 0, opts.Trees)
	for t := 0; t < opts.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample := rng.Perm(n)[:m.psi]
		m.trees = append(m.trees, grow(rng, rows, sample, 0, limit))
	}
	return m, nil
}

// grow builds an isolation tree over the rows selected by idx. A node
// becomes a leaf at the height limit, when it holds at most one sample, or
// when every feature is constant across its samples.
func grow(rng *rand.Rand, rows [][]float64, idx []int, depth, limit int) *node {
	if depth >= limit || len(idx) <= 1 {
		return &node{leaf: true, size: len(idx)}
	}

	d := len(rows[idx[0]])
	lo := make([]float64, d)
	hi := make([]float64, d)
	copy(lo, rows[idx[0]])
	copy(hi, rows[idx[0]])
	for _, i := range idx[1:] {
		for j, v := range rows[i] {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	candidates := make([]int, 0, d)
	for j := 0; j < d; j++ {
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{leaf: true, size: len(idx)}
	}

	f := candidates[rng.Intn(len(candidates))]
	split := lo[f] + rng.Float64()*(hi[f]-lo[f])

	var left, right []int
	for _, i := range idx {
		if rows[i][f] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature: f,
		split:   split,
		left:    grow(rng, rows, left, depth+1, limit),
		right:   grow(rng, rows, right, depth+1, limit),
	}
}

// pathLength is the depth at which x lands in t, plus the expected depth
// of the unbuilt subtree below a leaf holding more than one sample.
func pathLength(x []float64, t *node) float64 {
	depth := 0
	n := t
	for !n.leaf {
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
