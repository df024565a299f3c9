package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/dofusdb-explorer/internal/app"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
	"github.com/cesargomez89/dofusdb-explorer/internal/storage"
)

var (
	importForceItems bool
	sqlOutput        string
)

func init() {
	importCmd.Flags().BoolVar(&importForceItems, "items", false, "Fetch items even when the store already holds SKIP_ITEMS_THRESHOLD of them")
	sqlCmd.Flags().StringVarP(&sqlOutput, "output", "o", "seed.sql", "File to write the statement log to, - for stdout")
	rootCmd.AddCommand(importCmd, sqlCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [--items] [--target sqlite|postgres]",
	Short: "Fetches items and recipes and loads them into the store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		backend, err := app.OpenBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		pipeline := app.NewPipeline(app.NewSource(cfg, appLogger), backend, app.PipelineOptionsFrom(cfg), appLogger)
		report, err := pipeline.Run(ctx, app.RunOptions{
			Mode:          domain.ImportModeLoad,
			ForceItems:    importForceItems,
			FetchProgress: fetchProgress(cmd),
			LoadProgress: func(rel domain.Relation, written, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%s: %d/%d", rel, written, total)
				if written == total {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
			},
		})
		if err != nil {
			return err
		}

		printReport(cmd, report)
		if n := len(report.Summary.Failed); n > 0 {
			return fmt.Errorf("%d batches failed", n)
		}
		return nil
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql [-o seed.sql]",
	Short: "Fetches items and recipes and writes them as a SQL statement log.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var file *storage.AtomicFile
		if sqlOutput != "-" {
			f, err := storage.Create(sqlOutput)
			if err != nil {
				return err
			}
			defer f.Abort()
			file, out = f, f
		}

		pipeline := app.NewPipeline(app.NewSource(cfg, appLogger), nil, app.PipelineOptionsFrom(cfg), appLogger)
		report, err := pipeline.Run(cmd.Context(), app.RunOptions{
			Mode:          domain.ImportModeSQL,
			Output:        out,
			FetchProgress: fetchProgress(cmd),
		})
		if err != nil {
			return err
		}

		printReport(cmd, report)
		if file != nil {
			if err := file.Commit(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Statement log written to %s\n", file.Path())
		}
		return nil
	},
}

func fetchProgress(cmd *cobra.Command) func(collection string, current, total int) {
	return func(collection string, current, total int) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\r%s: %d/%d", collection, current, total)
		if current >= total {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
	}
}

func printReport(cmd *cobra.Command, report *app.Report) {
	w := cmd.ErrOrStderr()
	counts := report.Counts()
	if report.ItemsSkipped {
		fmt.Fprintln(w, "Items fetch skipped: store already populated")
	}
	fmt.Fprintf(w, "Fetched %d items and %d recipes in %s\n", report.ItemsFetched, report.RecipesFetched, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Items: %d, recipes: %d, ingredients: %d\n", counts.Items, counts.Recipes, counts.Ingredients)
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "Skipped recipe %d: %s\n", s.RecipeID, s.Reason)
	}
	for _, f := range report.Summary.Failed {
		fmt.Fprintf(w, "Failed batch: %s\n", f.Error())
	}
}
