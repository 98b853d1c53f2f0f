package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <category> [prefix]",
	Short: "Print the words of a category starting with prefix",
	Long: `Opens the index read-only and prints the matches for prefix. Nothing
is written to the data directory; categories without a word file are
answered from their seed. Without --limit the category's default_limit
applies.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSearch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print word counts per category as JSON",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results, -1 for all")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd, statsCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ix, cfg, _, err := openIndex(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer ix.Close()

	category, prefix := args[0], ""
	if len(args) == 2 {
		prefix = args[1]
	}
	limit := searchLimit
	if !cmd.Flags().Changed("limit") {
		limit = cfg.DefaultLimits()[category]
		if limit <= 0 {
			limit = 10
		}
	}

	words, err := ix.Search(category, prefix, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		if words == nil {
			words = []string{}
		}
		data, err := json.MarshalIndent(words, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(words) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	for _, w := range words {
		fmt.Fprintln(out, w)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	ix, _, _, err := openIndex(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer ix.Close()

	data, err := json.MarshalIndent(ix.Stats(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
