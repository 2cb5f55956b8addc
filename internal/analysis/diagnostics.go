package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Diagnostic keys, also used as JSON field names.
const (
	DiagCorrelation   = "correlation"
	DiagProjection    = "pca"
	DiagSilhouette    = "silhouette"
	DiagDescriptive   = "descriptive"
	DiagClusterCounts = "cluster_counts"
	DiagStrongestPair = "strongest_correlation"
)

// CorrelationMatrix holds Pearson coefficients; nil cells are undefined
// (a constant column).
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// ProjectedPoint is one respondent in principal component space.
type ProjectedPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ClusterID int     `json:"cluster_id"`
}

// Projection is the 2-component PCA of the feature matrix.
type Projection struct {
	Points            []ProjectedPoint `json:"points"`
	ExplainedVariance [2]float64       `json:"explained_variance"`
}

// Silhouette holds per-point coefficients and their mean.
type Silhouette struct {
	Samples []float64 `json:"samples"`
	Mean    float64   `json:"mean"`
}

// VariableStats are descriptive statistics of one column.
type VariableStats struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	MAD    float64 `json:"mad"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ClusterCount is the population of one cluster.
type ClusterCount struct {
	ClusterID int `json:"cluster_id"`
	Count     int `json:"count"`
}

// CorrelationPair is the off-diagonal pair with the largest |r|.
type CorrelationPair struct {
	First  string  `json:"first"`
	Second string  `json:"second"`
	Value  float64 `json:"value"`
}

// Diagnostics is the visualization payload. A nil field means that
// diagnostic failed; the cause is kept in Failures and logged.
type Diagnostics struct {
	Correlation   *CorrelationMatrix `json:"correlation,omitempty"`
	Projection    *Projection        `json:"pca,omitempty"`
	Silhouette    *Silhouette        `json:"silhouette,omitempty"`
	Descriptive   []VariableStats    `json:"descriptive,omitempty"`
	ClusterCounts []ClusterCount     `json:"cluster_counts,omitempty"`
	StrongestPair *CorrelationPair   `json:"strongest_correlation,omitempty"`

	Failures map[string]error `json:"-"`
}

// DiagnosticsEngine computes each diagnostic in isolation.
type DiagnosticsEngine struct {
	logger *slog.Logger
}

// NewDiagnosticsEngine creates an engine logging failures to logger, or to
// the default logger when nil.
func NewDiagnosticsEngine(logger *slog.Logger) *DiagnosticsEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagnosticsEngine{logger: logger}
}

// Compute runs every diagnostic over data (rows are respondents, columns are
// named by columns) with clusters giving each row's cluster id.
func (e *DiagnosticsEngine) Compute(columns []string, data *mat.Dense, clusters []int) *Diagnostics {
	d := &Diagnostics{Failures: make(map[string]error)}

	var rawCorr [][]float64
	e.run(d, DiagCorrelation, func() error {
		m, raw, err := correlationMatrix(columns, data)
		if err != nil {
			return err
		}
		d.Correlation, rawCorr = m, raw
		return nil
	})
	e.run(d, DiagStrongestPair, func() error {
		if rawCorr == nil {
			return errors.New("correlation matrix unavailable")
		}
		p, err := strongestPair(columns, rawCorr)
		d.StrongestPair = p
		return err
	})
	e.run(d, DiagProjection, func() error {
		p, err := project(data, clusters)
		d.Projection = p
		return err
	})
	e.run(d, DiagSilhouette, func() error {
		s, err := silhouette(data, clusters)
		d.Silhouette = s
		return err
	})
	e.run(d, DiagDescriptive, func() error {
		s, err := describe(columns, data)
		d.Descriptive = s
		return err
	})
	e.run(d, DiagClusterCounts, func() error {
		d.ClusterCounts = countClusters(clusters)
		return nil
	})

	return d
}

// run executes fn, turning a returned error or a panic into a logged failure.
func (e *DiagnosticsEngine) run(d *Diagnostics, name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		d.Failures[name] = err
		e.logger.Warn("Diagnostic failed", "diagnostic", name, "error", err)
	}
}

func columnsOf(data *mat.Dense) [][]float64 {
	n, c := data.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		cols[j] = mat.Col(make([]float64, n), j, data)
	}
	return cols
}

func correlationMatrix(names []string, data *mat.Dense) (*CorrelationMatrix, [][]float64, error) {
	n, c := data.Dims()
	if c < 2 {
		return nil, nil, fmt.Errorf("correlation needs at least two columns, got %d", c)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("correlation needs at least two rows, got %d", n)
	}

	cols := columnsOf(data)
	constant := make([]bool, c)
	for j, col := range cols {
		constant[j] = floats.Min(col) == floats.Max(col)
	}

	raw := make([][]float64, c)
	out := &CorrelationMatrix{Columns: append([]string(nil), names...), Values: make([][]*float64, c)}
	for i := 0; i < c; i++ {
		raw[i] = make([]float64, c)
		out.Values[i] = make([]*float64, c)
		for j := 0; j < c; j++ {
			var r float64
			switch {
			case constant[i] || constant[j]:
				r = math.NaN()
			case i == j:
				r = 1
			case j < i:
				r = raw[j][i]
			default:
				r = stat.Correlation(cols[i], cols[j], nil)
			}
			raw[i][j] = r
			if !math.IsNaN(r) {
				v := round(r, 2)
				out.Values[i][j] = &v
			}
		}
	}
	return out, raw, nil
}

// strongestPair scans row-major and keeps the first maximum of |r|.
func strongestPair(names []string, corr [][]float64) (*CorrelationPair, error) {
	var best *CorrelationPair
	bestAbs := -1.0
	for i := range corr {
		for j, r := range corr[i] {
			if i == j || math.IsNaN(r) {
				continue
			}
			if a := math.Abs(r); a > bestAbs {
				bestAbs = a
				best = &CorrelationPair{First: names[i], Second: names[j], Value: round(r, 4)}
			}
		}
	}
	if best == nil {
		return nil, errors.New("no defined off-diagonal correlation")
	}
	return best, nil
}

func project(data *mat.Dense, clusters []int) (*Projection, error) {
	n, d := data.Dims()
	if n < 2 || d < 2 {
		return nil, fmt.Errorf("projection needs at least 2 rows and 2 columns, got %dx%d", n, d)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("principal component analysis failed")
	}
	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)
	if total == 0 || len(vars) < 2 {
		return nil, errors.New("features have no variance")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	centered := mat.DenseCopyOf(data)
	for j := 0; j < d; j++ {
		mean := stat.Mean(mat.Col(nil, j, data), nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, centered.At(i, j)-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, 2))

	out := &Projection{
		Points: make([]ProjectedPoint, n),
		ExplainedVariance: [2]float64{
			round(vars[0]/total*100, 2),
			round(vars[1]/total*100, 2),
		},
	}
	for i := 0; i < n; i++ {
		out.Points[i] = ProjectedPoint{X: proj.At(i, 0), Y: proj.At(i, 1), ClusterID: clusters[i]}
	}
	return out, nil
}

// silhouette uses Euclidean distance. A point alone in its cluster scores 0.
func silhouette(data *mat.Dense, clusters []int) (*Silhouette, error) {
	n, _ := data.Dims()
	if len(clusters) != n {
		return nil, fmt.Errorf("silhouette: %d labels for %d rows", len(clusters), n)
	}

	sizes := make(map[int]int)
	for _, c := range clusters {
		sizes[c]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return nil, fmt.Errorf("silhouette needs between 2 and %d clusters, got %d", n-1, len(sizes))
	}

	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		if sizes[clusters[i]] == 1 {
			continue
		}
		sum := make(map[int]float64, len(sizes))
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sum[clusters[j]] += math.Sqrt(sqDist(data.RawRowView(i), data.RawRowView(j)))
		}

		a := sum[clusters[i]] / float64(sizes[clusters[i]]-1)
		b := math.Inf(1)
		for c, size := range sizes {
			if c == clusters[i] {
				continue
			}
			if mean := sum[c] / float64(size); mean < b {
				b = mean
			}
		}
		if den := math.Max(a, b); den > 0 {
			samples[i] = (b - a) / den
		}
	}

	out := &Silhouette{Samples: make([]float64, n), Mean: round(stat.Mean(samples, nil), 4)}
	for i, s := range samples {
		out.Samples[i] = round(s, 4)
	}
	return out, nil
}

func describe(names []string, data *mat.Dense) ([]VariableStats, error) {
	n, _ := data.Dims()
	if n == 0 {
		return nil, errors.New("no rows to describe")
	}

	out := make([]VariableStats, 0, len(names))
	for j, col := range columnsOf(data) {
		s := VariableStats{
			Column: names[j],
			Mean:   round(stat.Mean(col, nil), 4),
			Median: median(col),
			MAD:    mad(col),
			Min:    floats.Min(col),
			Max:    floats.Max(col),
		}
		if n > 1 {
			s.StdDev = round(stat.StdDev(col, nil), 4)
		}
		out = append(out, s)
	}
	return out, nil
}

func countClusters(clusters []int) []ClusterCount {
	counts := make(map[int]int)
	for _, c := range clusters {
		counts[c]++
	}
	out := make([]ClusterCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, ClusterCount{ClusterID: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out
}
