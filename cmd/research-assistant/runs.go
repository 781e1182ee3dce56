// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-assistant/internal/runstore"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded research runs (list, show, export)",
	Long: `Runs reads the run store shared by "run" and "serve". Use subcommands to
list runs, show one run with its final state, or export a digest.`,
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openRunStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(context.Background(), listOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-10s  %-8s  %-20s  %s\n", "Run", "Status", "Outcome", "Created", "Query")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range runs {
		query := r.Query
		if len(query) > 40 {
			query = query[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-10s  %-8s  %-20s  %s\n",
			r.ID, r.Status, r.Outcome, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), query)
	}
	return nil
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run including its final pipeline state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRunStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// --- export subcommand ---

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a digest of runs as YAML or JSON",
	Long: `Export writes one entry per run with its status, outcome, document count,
report title and report path. Filters narrow the export.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openRunStore()
		if err != nil {
			return err
		}
		defer store.Close()

		opts := listOptsFromFlags(cmd)
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "yaml", "":
			return store.ExportYAML(context.Background(), os.Stdout, opts)
		case "json":
			return store.ExportJSON(context.Background(), os.Stdout, opts)
		default:
			return fmt.Errorf("unsupported export format %q (use yaml or json)", format)
		}
	},
}

// --- shared helpers ---

func openRunStore() (*runstore.Store, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return nil, err
	}
	return runstore.Open(cfg.Store.Path)
}

func listOptsFromFlags(cmd *cobra.Command) runstore.ListOptions {
	status, _ := cmd.Flags().GetString("status")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")
	return runstore.ListOptions{
		Status: runstore.Status(status),
		Query:  query,
		Limit:  limit,
	}
}

func init() {
	for _, c := range []*cobra.Command{runsListCmd, runsExportCmd} {
		c.Flags().String("status", "", "filter by status: processing, completed, failed")
		c.Flags().String("query", "", "filter by query substring")
		c.Flags().Int("limit", 0, "maximum runs (0 = default)")
	}
	runsListCmd.Flags().Bool("json", false, "output results as JSON")
	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)

	rootCmd.AddCommand(runsCmd)
}
