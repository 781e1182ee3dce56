// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/coordinator"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Show the stages of the research workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := coordinator.NewDefault(coordinator.Deps{}).WorkflowStatus()

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}

		fmt.Printf("%s (entry point: %s)\n", status.Name, status.EntryPoint)
		for _, s := range status.Stages {
			fmt.Printf("  %d. %s\n", s.Position, s.Name)
		}
		return nil
	},
}

func init() {
	workflowCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(workflowCmd)
}
