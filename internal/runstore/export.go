// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one run in an export, with the report fields that
// identify what it produced.
type ExportEntry struct {
	ID          string   `json:"run_id" yaml:"run_id"`
	Query       string   `json:"query" yaml:"query"`
	Status      Status   `json:"status" yaml:"status"`
	Outcome     string   `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	CreatedAt   string   `json:"created_at" yaml:"created_at"`
	Documents   int      `json:"documents" yaml:"documents"`
	ReportTitle string   `json:"report_title,omitempty" yaml:"report_title,omitempty"`
	ReportPath  string   `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	Errors      []string `json:"errors" yaml:"errors"`
}

const exportLimit = 100000

// ExportYAML writes the runs matching opts to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts ListOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes the runs matching opts to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, opts ListOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (s *Store) exportEntries(ctx context.Context, opts ListOptions) ([]ExportEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = exportLimit
	}
	runs, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(runs))
	for i, r := range runs {
		entries[i] = ExportEntry{
			ID:        r.ID,
			Query:     r.Query,
			Status:    r.Status,
			Outcome:   string(r.Outcome),
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Errors:    r.Errors,
		}
		if r.Status == StatusProcessing {
			continue
		}
		full, err := s.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if full.State != nil {
			entries[i].Documents = len(full.State.Documents)
			entries[i].ReportTitle = full.State.Report.Title
			entries[i].ReportPath = full.State.Report.Location
		}
	}
	return entries, nil
}
