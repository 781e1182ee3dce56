// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/coordinator"
	"github.com/pdiddy/research-assistant/internal/metrics"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/internal/runstore"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <query>",
	Short: "Run the research pipeline for one query",
	Long: `Run executes research, summarize, evaluate, synthesize and write for the
query and prints the resulting report. The report is saved under the
configured output directory and the run is recorded in the run store.

Stage failures do not stop the pipeline; they are listed under Errors and
the remaining stages run on defaults.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if noWeb, _ := cmd.Flags().GetBool("no-web"); noWeb {
		cfg.Retrieval.IncludeWeb = false
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		cfg.Retrieval.Limit = limit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt, err := coordinator.Open(ctx, cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	defer rt.Close()

	store, err := runstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	id := uuid.NewString()
	if _, err := store.Create(ctx, id, query); err != nil {
		return err
	}

	state := rt.Run(ctx, query)
	if err := store.Complete(context.Background(), id, state); err != nil {
		logger.Warn("recording run", zap.String("run_id", id), zap.Error(err))
	}

	if path, _ := cmd.Flags().GetString("bibtex"); path != "" {
		if err := os.WriteFile(path, []byte(report.BibTeX(state.Report.References)), 0o644); err != nil {
			return fmt.Errorf("writing BibTeX to %s: %w", path, err)
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return err
		}
	} else {
		printReport(os.Stdout, id, state)
	}

	if state.Outcome() == types.OutcomeFailed {
		return fmt.Errorf("research run %s failed with %d error(s)", id, len(state.Errors))
	}
	return nil
}

func printReport(w io.Writer, id string, state types.PipelineState) {
	r := state.Report
	fmt.Fprintf(w, "%s\n%s\n\n", r.Title, strings.Repeat("=", len(r.Title)))
	fmt.Fprintf(w, "Run:      %s\nDate:     %s\nOutcome:  %s\nSources:  %d\n",
		id, r.Date, state.Outcome(), len(state.Documents))
	if r.Location != "" {
		fmt.Fprintf(w, "Saved to: %s\n", r.Location)
	}

	if r.ExecutiveSummary != "" {
		fmt.Fprintf(w, "\nExecutive Summary\n-----------------\n%s\n", r.ExecutiveSummary)
	}
	printList(w, "Key Findings", r.Findings.KeyFindings)
	printList(w, "Research Gaps", state.Synthesis.ResearchGaps)

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(w, "\nRecommendations\n---------------\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "- [%s] %s\n", rec.Category, rec.Recommendation)
		}
	}

	if len(r.References) > 0 {
		fmt.Fprintf(w, "\nReferences\n----------\n")
		for _, ref := range r.References {
			fmt.Fprintf(w, "[%s] %s", ref.CitationKey, ref.Title)
			if len(ref.Authors) > 0 {
				fmt.Fprintf(w, ". %s", strings.Join(ref.Authors, ", "))
			}
			if ref.Year != 0 {
				fmt.Fprintf(w, " (%d)", ref.Year)
			}
			fmt.Fprintln(w)
		}
	}

	if len(state.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors\n------\n")
		for _, e := range state.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}
}

func printList(w io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n%s\n", heading, strings.Repeat("-", len(heading)))
	for _, it := range items {
		fmt.Fprintf(w, "- %s\n", it)
	}
}

func init() {
	runCmd.Flags().Bool("json", false, "print the full pipeline state as JSON")
	runCmd.Flags().Bool("no-web", false, "search the vector index only")
	runCmd.Flags().Int("limit", 0, "maximum documents to retrieve (0 = use config)")
	runCmd.Flags().String("bibtex", "", "write the references as BibTeX to this file")

	rootCmd.AddCommand(runCmd)
}
