package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/ai"
	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/export"
	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/storage/memory"
	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/storage/sqlite"
	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/thesaurus/skos"
	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/transcript/vtt"
	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/validator"
	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
	"github.com/archiva-labs/enrich-cli/internal/core/services"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

var (
	runThesaurus       string
	runLanguage        string
	runOutput          string
	runNoCache         bool
	runNoMetadata      bool
	runForceReload     bool
	runTopK            int
	runThreshold       float64
	runExactCategories []string
	runEmbedCategories []string
)

var runCmd = &cobra.Command{
	Use:   "run <transcript.vtt> [more.vtt...]",
	Short: "Enrich one or more transcripts",
	Long: `Run the enrichment pipeline over WebVTT transcript files.

Each transcript is segmented, the segments worth annotating are selected,
and every selected segment is matched against the thesaurus. Results are
stored in the local cache and optionally exported as JSON.

An LLM provider must be configured (see 'enrich settings llm'). Without
an embedding provider matching falls back to exact label lookup only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runThesaurus, "thesaurus", "t", "", "thesaurus N-Triples file or URL (required)")
	runCmd.Flags().StringVar(&runLanguage, "language", "nl", "preferred label language")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "directory for JSON result files")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "run without the persistent cache")
	runCmd.Flags().BoolVar(&runNoMetadata, "no-metadata", false, "skip name extraction and segment titles")
	runCmd.Flags().BoolVar(&runForceReload, "force-reload", false, "recompute concept embeddings even when cached")
	runCmd.Flags().IntVar(&runTopK, "top-k", 0, "select the K highest-scoring segments instead of thresholding")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "minimum selection score (default policy)")
	runCmd.Flags().StringSliceVar(&runExactCategories, "exact-categories", nil, "restrict exact lookup to these categories (camp, location, other)")
	runCmd.Flags().StringSliceVar(&runEmbedCategories, "embed-categories", nil, "restrict similarity search to these categories (camp, location, other)")
	_ = runCmd.MarkFlagRequired("thesaurus")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	llm, err := ai.CreateAndValidateLLMService(loadLLMSettings())
	if err != nil {
		return err
	}
	if llm == nil {
		return errors.New("no LLM provider configured; run 'enrich settings llm' first")
	}
	defer llm.Close()

	embedder, err := ai.CreateAndValidateEmbeddingService(loadEmbeddingSettings())
	if err != nil {
		logger.Warn("Embedding provider unavailable, falling back to exact matching: %v", err)
		embedder = nil
	}
	if embedder != nil {
		defer embedder.Close()
	}

	var (
		validationStore driven.ValidationStore
		embeddingStore  driven.EmbeddingStore
		resultStore     driven.ResultStore
	)
	if runNoCache {
		validationStore = memory.NewValidationStore()
		embeddingStore = memory.NewEmbeddingStore()
		resultStore = memory.NewResultStore()
	} else {
		store, err := sqlite.NewStore("")
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()
		validationStore = store.ValidationStore()
		embeddingStore = store.EmbeddingStore()
		resultStore = store.ResultStore()
	}

	thesaurus, err := skos.New(runThesaurus, skos.Config{PreferredLanguage: runLanguage}).Load(ctx)
	if err != nil {
		return fmt.Errorf("load thesaurus: %w", err)
	}
	logger.Info("Loaded thesaurus %s: %d concepts", shortVersion(thesaurus.Version), len(thesaurus.Concepts))

	exactCats, err := parseCategories(runExactCategories)
	if err != nil {
		return err
	}
	embedCats, err := parseCategories(runEmbedCategories)
	if err != nil {
		return err
	}

	index, err := services.BuildThesaurusIndex(ctx, thesaurus, embedder, embeddingStore, services.IndexOptions{
		ExactCategories: exactCats,
		EmbedCategories: embedCats,
		ForceReload:     runForceReload,
	})
	if err != nil {
		return fmt.Errorf("build thesaurus index: %w", err)
	}

	engine := services.NewMatchingEngine(
		index,
		embedder,
		validator.New(llm, validator.Config{}),
		validationStore,
		domain.DefaultMatcherConfig(),
	)

	var metadata *services.MetadataService
	if !runNoMetadata {
		metadata = services.NewMetadataService(llm)
	}

	pipeline := services.NewEnrichmentPipeline(
		services.NewSegmenter(domain.DefaultSegmenterConfig()),
		services.NewSelector(selectorConfig()),
		engine,
		metadata,
		resultStore,
	)

	var writer *export.Writer
	if runOutput != "" {
		writer = export.NewWriter(runOutput)
	}

	source := vtt.New()
	var failed int
	for _, path := range args {
		transcript, err := source.Load(ctx, path)
		if err != nil {
			cmd.PrintErrf("Error: %s: %v\n", path, err)
			failed++
			continue
		}

		result, err := pipeline.EnrichTranscript(ctx, transcript)
		if err != nil {
			if result == nil {
				cmd.PrintErrf("Error: %s: %v\n", path, err)
				failed++
				continue
			}
			// Partial result: report, keep what was produced.
			cmd.PrintErrf("Warning: %s finished with errors: %v\n", path, err)
		}

		printSummary(cmd, result)

		if writer != nil {
			out, err := writer.Write(result)
			if err != nil {
				cmd.PrintErrf("Error: export %s: %v\n", result.TranscriptID, err)
				failed++
				continue
			}
			cmd.Printf("  Exported to %s\n", out)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d transcripts failed", failed, len(args))
	}
	return nil
}

// parseCategories maps flag values onto concept categories. Nil input
// means no restriction.
func parseCategories(names []string) ([]domain.ConceptCategory, error) {
	var cats []domain.ConceptCategory
	for _, name := range names {
		c := domain.ConceptCategory(strings.TrimSpace(name))
		if !c.IsValid() {
			return nil, fmt.Errorf("unknown concept category %q (want camp, location, or other)", name)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// shortVersion abbreviates a content-hash version for log lines. Version
// strings are opaque; the source decides their length.
func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

// selectorConfig applies the selection flags over the defaults.
func selectorConfig() domain.SelectorConfig {
	cfg := domain.DefaultSelectorConfig()
	if runTopK > 0 {
		cfg.Policy = domain.SelectTopK
		cfg.TopK = runTopK
	}
	if runThreshold > 0 {
		cfg.Policy = domain.SelectThreshold
		cfg.Threshold = runThreshold
	}
	return cfg
}

func printSummary(cmd *cobra.Command, result *domain.RunResult) {
	s := result.Summary
	cmd.Printf("%s: %d segments, %d selected, %d enriched",
		result.TranscriptID, s.SegmentCount, s.SelectedCount, len(result.Enriched))
	if result.IntervieweeName != "" {
		cmd.Printf(" (interviewee: %s)", result.IntervieweeName)
	}
	cmd.Println()
	cmd.Printf("  %d candidates, %d validator calls, %d cache hits, took %s\n",
		s.CandidateCount, s.ValidatorCalls, s.CacheHits, s.Elapsed.Round(time.Millisecond))
	if len(s.Unresolved) > 0 {
		cmd.Printf("  %d candidates unresolved after retries\n", len(s.Unresolved))
	}
	if len(s.EmbeddingDegraded) > 0 {
		cmd.Printf("  %d segments fell back to exact matching\n", len(s.EmbeddingDegraded))
	}
}
