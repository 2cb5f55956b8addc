package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/database"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/types"
	"github.com/spf13/cobra"
)

func newModelsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect persisted k-means models",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List model handles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store()
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}

			if e.json {
				if names == nil {
					names = []string{}
				}
				return e.printJSON(types.ModelListResponse{Models: names, Count: len(names)})
			}
			for _, name := range names {
				fmt.Fprintln(e.out, name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info <model>",
		Short: "Show a model's clusters, centers and training size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.store()
			if err != nil {
				return err
			}
			info, err := store.Info(args[0])
			if err != nil {
				return err
			}

			if e.json {
				return e.printJSON(info)
			}
			fmt.Fprintf(e.out, "Name:      %s\n", info.Name)
			fmt.Fprintf(e.out, "Created:   %s\n", info.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(e.out, "Clusters:  %d\n", info.NClusters)
			fmt.Fprintf(e.out, "Inertia:   %.4f\n", info.Inertia)
			fmt.Fprintf(e.out, "Rows:      %d\n", info.Rows)
			fmt.Fprintf(e.out, "Features:  %d\n", len(info.Features))
			return nil
		},
	})

	return cmd
}

func newRunsCommand(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the pipeline run history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewDB(e.cfg.Storage.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := database.NewRunService(database.NewRepository(db)).List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if e.json {
				return e.printJSON(runs)
			}
			w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tROWS\tDROPPED\tMODEL")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.CreatedAt.Format(time.RFC3339), r.Source, r.Rows, r.RowsDropped, r.ModelHandle)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", database.DefaultListLimit, "maximum number of runs to show")
	return cmd
}
