package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/types"
	"github.com/spf13/cobra"
)

func newCatalogCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the question catalog or derive one from an export",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the questions and category taxonomy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.json {
				return e.printJSON(map[string]interface{}{
					"questions":  types.NewQuestionDTOs(e.catalog),
					"categories": e.catalog.Taxonomy().Categories(),
				})
			}

			tax := e.catalog.Taxonomy()
			w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tQUESTION")
			for _, q := range e.catalog.Questions() {
				category, ok := tax.CategoryOf(q.ID)
				if !ok {
					category = types.UnclassifiedCategory
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", q.ID, category, q.Text)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(e.out)
			for _, c := range tax.Categories() {
				fmt.Fprintf(e.out, "%s (min %d): %s\n", c.Name, c.Minimum, strings.Join(c.Members, ", "))
			}
			return nil
		},
	})

	var output string
	export := &cobra.Command{
		Use:   "export <sheet.xlsx|sheet.csv>",
		Short: "Convert a survey spreadsheet into a JSON question list",
		Long: `Convert a survey spreadsheet export into a JSON list of form fields.

Each column becomes {name, label, type, options}: a select with the column's
distinct answers, or a text field for the respondent name column. Timestamp
and score columns are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := dataset.ReadFile(args[0])
			if err != nil {
				return err
			}
			fields := catalog.FieldsFromTable(table)

			if output == "" {
				return e.printJSON(fields)
			}

			data, err := json.MarshalIndent(fields, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			e.logger.Info("Catalog exported", "fields", len(fields), "path", output)
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.AddCommand(export)

	return cmd
}
