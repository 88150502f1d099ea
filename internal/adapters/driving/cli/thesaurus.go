package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/thesaurus/skos"
	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

var thesaurusLanguage string

var thesaurusCmd = &cobra.Command{
	Use:   "thesaurus <file-or-url>",
	Short: "Inspect a SKOS thesaurus export",
	Long: `Load a SKOS N-Triples thesaurus export and print its version hash and
concept counts per category. Useful for checking an export before a run.`,
	Args: cobra.ExactArgs(1),
	RunE: runThesaurusInfo,
}

func init() {
	thesaurusCmd.Flags().StringVar(&thesaurusLanguage, "language", "nl", "preferred label language")
	rootCmd.AddCommand(thesaurusCmd)
}

func runThesaurusInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	thesaurus, err := skos.New(args[0], skos.Config{PreferredLanguage: thesaurusLanguage}).Load(ctx)
	if err != nil {
		return fmt.Errorf("load thesaurus: %w", err)
	}

	counts := map[domain.ConceptCategory]int{}
	var withScope, withAlt, topConcepts, withHierarchy int
	for _, c := range thesaurus.Concepts {
		counts[c.Category]++
		if c.ScopeNote != "" {
			withScope++
		}
		if len(c.AltLabels) > 0 {
			withAlt++
		}
		if c.TopConcept {
			topConcepts++
		}
		if len(c.Broader)+len(c.Narrower) > 0 {
			withHierarchy++
		}
	}

	cmd.Printf("Version:  %s\n", thesaurus.Version)
	cmd.Printf("Concepts: %d\n", len(thesaurus.Concepts))
	cmd.Printf("  camps:      %d\n", counts[domain.CategoryCamp])
	cmd.Printf("  locations:  %d\n", counts[domain.CategoryLocation])
	cmd.Printf("  other:      %d\n", counts[domain.CategoryOther])
	cmd.Printf("Top concepts:         %d\n", topConcepts)
	cmd.Printf("With broader/narrower: %d\n", withHierarchy)
	cmd.Printf("With scope note: %d\n", withScope)
	cmd.Printf("With alt labels: %d\n", withAlt)

	return nil
}
