package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/storage/sqlite"
	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored enrichment results",
	RunE:  runResultsList,
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transcripts with stored results",
	RunE:  runResultsList,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <transcript-id>",
	Short: "Show the enriched segments for a transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsShow,
}

func init() {
	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	rootCmd.AddCommand(resultsCmd)
}

// openResultStore opens the persistent store read path. The caller must
// call the returned close function.
func openResultStore() (driven.ResultStore, func() error, error) {
	store, err := sqlite.NewStore("")
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	return store.ResultStore(), store.Close, nil
}

func runResultsList(cmd *cobra.Command, _ []string) error {
	results, closeStore, err := openResultStore()
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // Read-only path

	ids, err := results.ListTranscripts(context.Background())
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	if len(ids) == 0 {
		cmd.Println("No stored results. Run 'enrich run' first.")
		return nil
	}

	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	results, closeStore, err := openResultStore()
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck // Read-only path

	enriched, err := results.GetEnriched(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no stored result for %q", args[0])
		}
		return fmt.Errorf("load result: %w", err)
	}

	for _, seg := range enriched {
		printEnrichedSegment(cmd, seg)
	}
	return nil
}

func printEnrichedSegment(cmd *cobra.Command, seg domain.EnrichedSegment) {
	header := seg.ID
	if seg.Title != "" {
		header += ": " + seg.Title
	}
	cmd.Printf("%s (score %.2f)\n", header, seg.Score)

	if len(seg.Matches) == 0 {
		cmd.Println("  (no accepted matches)")
		return
	}
	for _, m := range seg.Matches {
		cmd.Printf("  %.2f  %-9s %s  %s\n", m.Confidence, m.Method, m.Label, m.ConceptID)
	}
}
