package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/database"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/types"
	"github.com/spf13/cobra"
)

func newRunCommand(e *env) *cobra.Command {
	var (
		questions []string
		outDir    string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "run <export.csv|export.xlsx>",
		Short: "Score, cluster and label a survey export",
		Long: `Run the full pipeline over a survey export: encode answers, score
categories, fit k-means, label clusters and persist the model.

The classified table is written as clustered_<name>.csv and
prediction_<name>.xlsx to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runPipeline(cmd, args[0], questions, outDir, !noHistory)
		},
	}

	cmd.Flags().StringSliceVarP(&questions, "questions", "q", nil, "question ids to use (default: every catalog question in the file)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "export directory (default: storage.output_dir)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the run history")
	return cmd
}

func (e *env) runPipeline(cmd *cobra.Command, path string, questions []string, outDir string, record bool) error {
	table, err := dataset.ReadFile(path)
	if err != nil {
		return err
	}

	store, err := e.store()
	if err != nil {
		return err
	}

	if outDir == "" {
		outDir = e.cfg.Storage.OutputDir
	}

	source := filepath.Base(path)
	analyzer := analysis.NewAnalyzer(e.catalog, e.cfg.KMeans(), store, e.logger.Logger)

	start := time.Now()
	result, err := analyzer.Run(table, analysis.Options{Source: source, Questions: questions, OutputDir: outDir})
	if err != nil {
		return err
	}
	duration := time.Since(start)
	e.logger.PipelineLogger(source, result.RowsBefore, result.Rows(), result.ModelHandle, duration)

	runID := ""
	if record {
		runID, err = e.recordRun(cmd, result, duration)
		if err != nil {
			return err
		}
	}

	resp := types.NewPipelineResponse(result, runID, result.Files)
	if e.json {
		resp.Table = nil
		return e.printJSON(resp)
	}
	return e.printRun(resp)
}

func (e *env) recordRun(cmd *cobra.Command, result *analysis.Result, duration time.Duration) (string, error) {
	db, err := database.NewDB(e.cfg.Storage.DataDir)
	if err != nil {
		return "", err
	}
	defer db.Close()

	run, err := database.NewRunService(database.NewRepository(db)).Record(cmd.Context(), result, duration)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (e *env) printRun(resp *types.PipelineResponse) error {
	fmt.Fprintf(e.out, "Source:   %s\n", resp.Source)
	fmt.Fprintf(e.out, "Rows:     %d kept, %d dropped (blank %d, unmapped %d, missing %d)\n",
		resp.Rows, resp.RowsDropped,
		resp.DropReport.BlankAnswers, resp.DropReport.UnmappedAnswers, resp.DropReport.MissingFeatures)
	fmt.Fprintf(e.out, "Model:    %s\n", resp.Model)
	fmt.Fprintf(e.out, "Exports:  %s, %s\n", resp.Files.Clustered, resp.Files.Prediction)
	if resp.RunID != "" {
		fmt.Fprintf(e.out, "Run:      %s\n", resp.RunID)
	}
	if resp.Diagnostics != nil && resp.Diagnostics.Silhouette != nil {
		fmt.Fprintf(e.out, "Silhouette: %.4f\n", resp.Diagnostics.Silhouette.Mean)
	}
	fmt.Fprintln(e.out)

	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLUSTER\tSIZE\tMEAN SCORE\tLABEL")
	for _, c := range resp.Clusters {
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%s\n", c.ClusterID, c.Size, c.MeanTotalScore, c.Label)
	}
	return w.Flush()
}

func newElbowCommand(e *env) *cobra.Command {
	var (
		questions []string
		maxK      int
	)

	cmd := &cobra.Command{
		Use:   "elbow <export.csv|export.xlsx>",
		Short: "Report k-means inertia for k = 1..max-k",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := dataset.ReadFile(args[0])
			if err != nil {
				return err
			}
			if maxK == 0 {
				maxK = e.cfg.Clustering.ElbowMaxK
			}

			// Elbow never persists, so no store is needed.
			analyzer := analysis.NewAnalyzer(e.catalog, e.cfg.KMeans(), nil, e.logger.Logger)
			points, err := analyzer.Elbow(table, questions, maxK)
			if err != nil {
				return err
			}

			if e.json {
				return e.printJSON(types.ElbowResponse{Source: filepath.Base(args[0]), Questions: questions, Points: points})
			}
			w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "K\tINERTIA")
			for _, p := range points {
				fmt.Fprintf(w, "%d\t%.4f\n", p.K, p.Inertia)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringSliceVarP(&questions, "questions", "q", nil, "question ids to use (default: every catalog question in the file)")
	cmd.Flags().IntVarP(&maxK, "max-k", "k", 0, "largest k to fit (default: clustering.elbow_max_k)")
	return cmd
}
