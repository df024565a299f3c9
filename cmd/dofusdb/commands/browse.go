package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/dofusdb-explorer/internal/app"
	"github.com/cesargomez89/dofusdb-explorer/internal/browse"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

var (
	itemsFilter domain.ItemFilter
	itemsLimit  int
	rankLimit   int
	jsonOutput  bool
)

func init() {
	f := itemsCmd.Flags()
	f.StringVar(&itemsFilter.Search, "search", "", "Case-insensitive substring of the item name")
	f.StringVar(&itemsFilter.Type, "type", "", "Exact item type, or all")
	f.IntVar(&itemsFilter.MinLevel, "min-level", 0, "Minimum level, 0 for none")
	f.IntVar(&itemsFilter.MaxLevel, "max-level", 0, "Maximum level, 0 for none")
	f.IntVar(&itemsLimit, "limit", 50, "Maximum number of items to print")

	rankingCmd.Flags().IntVar(&rankLimit, "limit", 50, "Maximum number of ranked items to print")

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(itemsCmd, rankingCmd)
}

func openBrowser(ctx context.Context) (*browse.Service, func() error, error) {
	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return browse.NewService(backend, browse.Options{PageSize: cfg.BrowsePageSize}, appLogger), backend.Close, nil
}

// loadUntil keeps loading pages until n rows are held or none remain.
func loadUntil(ctx context.Context, n int, held func() int, hasMore func() bool, loadMore func(context.Context) error) error {
	for held() < n && hasMore() {
		if err := loadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

var itemsCmd = &cobra.Command{
	Use:   "items [--search s] [--type t] [--min-level n] [--max-level n] [--limit n]",
	Short: "Lists stored items ordered by level.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if itemsFilter.MinLevel > 0 && itemsFilter.MaxLevel > 0 && itemsFilter.MinLevel > itemsFilter.MaxLevel {
			return fmt.Errorf("--min-level %d is greater than --max-level %d", itemsFilter.MinLevel, itemsFilter.MaxLevel)
		}
		ctx := cmd.Context()
		svc, closeFn, err := openBrowser(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		session := svc.NewCatalogSession()
		if err := session.SetQuery(ctx, itemsFilter); err != nil {
			return err
		}
		held := func() int { return len(session.Items()) }
		if err := loadUntil(ctx, itemsLimit, held, session.HasMore, session.LoadMore); err != nil {
			return err
		}

		items := session.Items()
		if len(items) > itemsLimit {
			items = items[:itemsLimit]
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLEVEL\tTYPE\tNAME")
		for _, it := range items {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", it.ID, it.Level, it.Type, it.Name)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d items\n", len(items), session.Total())
		return nil
	},
}

var rankingCmd = &cobra.Command{
	Use:   "ranking [--limit n]",
	Short: "Lists ingredients by tension score, highest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, closeFn, err := openBrowser(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		session := svc.NewRankingSession()
		if err := session.Reset(ctx); err != nil {
			return err
		}
		held := func() int { return len(session.Items()) }
		if err := loadUntil(ctx, rankLimit, held, session.HasMore, session.LoadMore); err != nil {
			return err
		}

		ranked := session.Items()
		if len(ranked) > rankLimit {
			ranked = ranked[:rankLimit]
		}
		if jsonOutput {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(ranked)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tID\tSCORE\tQUANTITY\tRECIPES\tNAME")
		for _, r := range ranked {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\n",
				r.Rank, r.ID, r.Stats.TensionScore, r.Stats.TotalQuantity, r.Stats.RecipeCount, r.Name)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d ranked ingredients\n", len(ranked), session.Total())
		return nil
	},
}
