package analysis

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KMeansConfig controls model fitting. Seed makes fits reproducible for a
// given build; NInit independent k-means++ starts are tried and the lowest
// inertia wins.
type KMeansConfig struct {
	K         int
	Seed      int64
	NInit     int
	MaxIter   int
	Tolerance float64
}

// DefaultKMeansConfig returns k=3, seed 42, 10 starts, 300 iterations.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		K:         3,
		Seed:      42,
		NInit:     10,
		MaxIter:   300,
		Tolerance: 1e-4,
	}
}

// Model is a fitted k-means model. It is never mutated after fitting.
type Model struct {
	K          int
	Seed       int64
	Features   []string
	Centers    [][]float64
	Inertia    float64
	Iterations int
}

// Predict returns the index of the nearest center.
func (m *Model) Predict(x []float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range m.Centers {
		if d := sqDist(x, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// ClusterResult is the outcome of FitAndAssign.
type ClusterResult struct {
	Rows        []ScoreRow
	Features    []string
	Matrix      *mat.Dense
	Assignments []int
	Model       *Model
	Dropped     int
}

// ClusterEngine fits k-means over score tables.
type ClusterEngine struct {
	cfg KMeansConfig
}

// NewClusterEngine creates a cluster engine. Zero fields fall back to defaults.
func NewClusterEngine(cfg KMeansConfig) *ClusterEngine {
	def := DefaultKMeansConfig()
	if cfg.K <= 0 {
		cfg.K = def.K
	}
	if cfg.NInit <= 0 {
		cfg.NInit = def.NInit
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	return &ClusterEngine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *ClusterEngine) Config() KMeansConfig {
	return e.cfg
}

// FitAndAssign clusters the rows of t over its numeric columns minus excluded.
// Rows missing any feature value are dropped first. Returned rows carry their
// cluster id; t is left untouched.
func (e *ClusterEngine) FitAndAssign(t *ScoreTable, excluded []string) (*ClusterResult, error) {
	fm, err := buildFeatures(t, excluded)
	if err != nil {
		return nil, err
	}
	if len(fm.rows) < e.cfg.K {
		return nil, fmt.Errorf("%w: %d rows for k=%d", ErrClusteringUnderflow, len(fm.rows), e.cfg.K)
	}

	model, assignments := e.fit(fm.matrix, e.cfg.K)
	model.Features = fm.features

	for i := range fm.rows {
		fm.rows[i].ClusterID = assignments[i]
	}

	return &ClusterResult{
		Rows:        fm.rows,
		Features:    fm.features,
		Matrix:      fm.matrix,
		Assignments: assignments,
		Model:       model,
		Dropped:     fm.dropped,
	}, nil
}

type featureMatrix struct {
	features []string
	rows     []ScoreRow
	matrix   *mat.Dense
	dropped  int
}

// buildFeatures selects the numeric columns of t not in excluded and keeps
// the rows that have a value for every one of them.
func buildFeatures(t *ScoreTable, excluded []string) (*featureMatrix, error) {
	skip := make(map[string]bool, len(excluded))
	for _, col := range excluded {
		skip[col] = true
	}

	fm := &featureMatrix{}
	for _, col := range t.NumericColumns() {
		if !skip[col] {
			fm.features = append(fm.features, col)
		}
	}
	if len(fm.features) == 0 {
		return nil, ErrNoFeatureColumns
	}

	fm.rows = make([]ScoreRow, 0, len(t.Rows))
	data := make([]float64, 0, len(t.Rows)*len(fm.features))
	for _, row := range t.Rows {
		values := make([]float64, len(fm.features))
		complete := true
		for j, col := range fm.features {
			v, ok := row.Value(col)
			if !ok {
				complete = false
				break
			}
			values[j] = v
		}
		if !complete {
			fm.dropped++
			continue
		}
		fm.rows = append(fm.rows, row)
		data = append(data, values...)
	}

	if len(fm.rows) > 0 {
		fm.matrix = mat.NewDense(len(fm.rows), len(fm.features), data)
	}
	return fm, nil
}

// ElbowPoint is the inertia of the best fit for one k.
type ElbowPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// Elbow fits k = 1..maxK (capped at the number of rows) over the same
// feature selection as FitAndAssign and reports the inertia of each fit.
func (e *ClusterEngine) Elbow(t *ScoreTable, excluded []string, maxK int) ([]ElbowPoint, error) {
	fm, err := buildFeatures(t, excluded)
	if err != nil {
		return nil, err
	}
	n := len(fm.rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrClusteringUnderflow)
	}
	if maxK < 1 {
		maxK = 1
	}
	data := fm.matrix
	if maxK > n {
		maxK = n
	}

	points := make([]ElbowPoint, 0, maxK)
	for k := 1; k <= maxK; k++ {
		model, _ := e.fit(data, k)
		points = append(points, ElbowPoint{K: k, Inertia: model.Inertia})
	}
	return points, nil
}

// fit runs NInit seeded starts and keeps the lowest inertia.
func (e *ClusterEngine) fit(data *mat.Dense, k int) (*Model, []int) {
	tol := e.cfg.Tolerance * meanVariance(data)

	var (
		best       *Model
		bestLabels []int
	)
	for run := 0; run < e.cfg.NInit; run++ {
		rng := rand.New(rand.NewSource(e.cfg.Seed + int64(run)))
		centers, labels, inertia, iters := lloyd(data, initPlusPlus(data, k, rng), e.cfg.MaxIter, tol)
		if best == nil || inertia < best.Inertia {
			best = &Model{
				K:          k,
				Seed:       e.cfg.Seed,
				Centers:    denseRows(centers),
				Inertia:    inertia,
				Iterations: iters,
			}
			bestLabels = labels
		}
	}
	return best, bestLabels
}

// initPlusPlus picks k seeds, each with probability proportional to its
// squared distance from the nearest seed chosen so far.
func initPlusPlus(data *mat.Dense, k int, rng *rand.Rand) *mat.Dense {
	n, d := data.Dims()
	centers := mat.NewDense(k, d, nil)
	centers.SetRow(0, data.RawRowView(rng.Intn(n)))

	dist := make([]float64, n)
	for i := range dist {
		dist[i] = sqDist(data.RawRowView(i), centers.RawRowView(0))
	}

	for c := 1; c < k; c++ {
		total := 0.0
		for _, v := range dist {
			total += v
		}

		next := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, v := range dist {
				cum += v
				if cum >= target {
					next = i
					break
				}
			}
		}
		centers.SetRow(c, data.RawRowView(next))

		for i := range dist {
			if v := sqDist(data.RawRowView(i), centers.RawRowView(c)); v < dist[i] {
				dist[i] = v
			}
		}
	}
	return centers
}

// lloyd iterates assignment and update steps until the summed squared center
// shift drops to tol or maxIter is reached.
func lloyd(data, centers *mat.Dense, maxIter int, tol float64) (*mat.Dense, []int, float64, int) {
	n, d := data.Dims()
	k, _ := centers.Dims()
	labels := make([]int, n)

	iter := 0
	for iter < maxIter {
		iter++
		assign(data, centers, labels)

		next := mat.NewDense(k, d, nil)
		counts := make([]int, k)
		for i := 0; i < n; i++ {
			row := next.RawRowView(labels[i])
			for j, v := range data.RawRowView(i) {
				row[j] += v
			}
			counts[labels[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				next.SetRow(c, data.RawRowView(farthest(data, centers, labels)))
				continue
			}
			row := next.RawRowView(c)
			for j := range row {
				row[j] /= float64(counts[c])
			}
		}

		shift := 0.0
		for c := 0; c < k; c++ {
			shift += sqDist(centers.RawRowView(c), next.RawRowView(c))
		}
		centers = next
		if shift <= tol {
			break
		}
	}

	inertia := assign(data, centers, labels)
	return centers, labels, inertia, iter
}

// assign writes the nearest center of every row into labels and returns the
// summed squared distance. Ties go to the lowest center index.
func assign(data, centers *mat.Dense, labels []int) float64 {
	n, _ := data.Dims()
	k, _ := centers.Dims()
	inertia := 0.0
	for i := 0; i < n; i++ {
		point := data.RawRowView(i)
		best, bestDist := 0, math.Inf(1)
		for c := 0; c < k; c++ {
			if dd := sqDist(point, centers.RawRowView(c)); dd < bestDist {
				best, bestDist = c, dd
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return inertia
}

// farthest returns the row furthest from its assigned center; empty clusters
// are re-seeded there.
func farthest(data, centers *mat.Dense, labels []int) int {
	n, _ := data.Dims()
	idx, far := 0, -1.0
	for i := 0; i < n; i++ {
		if dd := sqDist(data.RawRowView(i), centers.RawRowView(labels[i])); dd > far {
			idx, far = i, dd
		}
	}
	return idx
}

func meanVariance(data *mat.Dense) float64 {
	n, d := data.Dims()
	if n < 2 || d == 0 {
		return 0
	}
	col := make([]float64, n)
	total := 0.0
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		total += stat.Variance(col, nil)
	}
	return total / float64(d)
}

func denseRows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = append([]float64(nil), m.RawRowView(i)...)
	}
	return out
}
