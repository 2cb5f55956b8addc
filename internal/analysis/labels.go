package analysis

import (
	"fmt"
	"sort"
)

// rankLabels are assigned to clusters in ascending mean total score order.
var rankLabels = []Classification{Introverted, Ambivalent, Extroverted}

// LabelMap maps cluster ids onto personality labels.
type LabelMap map[int]Classification

// ClusterSummary describes one cluster of a labeled run.
type ClusterSummary struct {
	ClusterID      int            `json:"cluster_id"`
	Size           int            `json:"size"`
	MeanTotalScore float64        `json:"mean_total_score"`
	Label          Classification `json:"label"`
}

// AssignLabels ranks clusters by the mean total score of their members and
// labels them lowest to highest. It needs k == 3 and all three clusters
// populated. Equal means are ordered by cluster id.
func AssignLabels(assignments []int, totals []float64, k int) (LabelMap, []ClusterSummary, error) {
	if k != len(rankLabels) {
		return nil, nil, fmt.Errorf("%w: got k=%d", ErrUnsupportedK, k)
	}
	if len(assignments) != len(totals) {
		return nil, nil, fmt.Errorf("label assignment: %d assignments for %d totals", len(assignments), len(totals))
	}

	sums := make(map[int]float64, k)
	sizes := make(map[int]int, k)
	for i, c := range assignments {
		if c < 0 || c >= k {
			return nil, nil, fmt.Errorf("label assignment: cluster id %d outside [0, %d)", c, k)
		}
		sums[c] += totals[i]
		sizes[c]++
	}
	if len(sizes) != k {
		return nil, nil, fmt.Errorf("%w: %d of %d clusters have members", ErrDegenerateClusters, len(sizes), k)
	}

	summaries := make([]ClusterSummary, 0, k)
	for c := 0; c < k; c++ {
		summaries = append(summaries, ClusterSummary{
			ClusterID:      c,
			Size:           sizes[c],
			MeanTotalScore: sums[c] / float64(sizes[c]),
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].MeanTotalScore < summaries[j].MeanTotalScore
	})

	labels := make(LabelMap, k)
	for rank := range summaries {
		summaries[rank].Label = rankLabels[rank]
		labels[summaries[rank].ClusterID] = rankLabels[rank]
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ClusterID < summaries[j].ClusterID
	})
	return labels, summaries, nil
}

// LabelRows assigns labels to clustered rows in place.
func LabelRows(rows []ScoreRow, k int) (LabelMap, []ClusterSummary, error) {
	assignments := make([]int, len(rows))
	totals := make([]float64, len(rows))
	for i, row := range rows {
		assignments[i] = row.ClusterID
		totals[i] = float64(row.TotalScore)
	}

	labels, summaries, err := AssignLabels(assignments, totals, k)
	if err != nil {
		return nil, nil, err
	}
	for i := range rows {
		rows[i].PredictedLabel = labels[rows[i].ClusterID]
	}
	return labels, summaries, nil
}
