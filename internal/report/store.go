// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report persists research reports and derives their citations.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// PersistenceError reports a report that could not be saved or loaded.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("report %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("report %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FileStore writes reports as indented JSON files in Dir.
type FileStore struct {
	Dir string

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Now: time.Now}
}

// Save writes rep to report_<YYYYMMDD_HHMMSS>_<id>.json and returns the
// path. The file appears atomically; concurrent saves never collide.
func (s *FileStore) Save(ctx context.Context, rep types.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &PersistenceError{Op: "save", Err: err}
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", &PersistenceError{Op: "save", Path: s.Dir, Err: err}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name := fmt.Sprintf("report_%s_%s.json", now().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(s.Dir, name)

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", &PersistenceError{Op: "encode", Path: path, Err: err}
	}

	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing report: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Load reads a report written by Save.
func Load(path string) (types.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Report{}, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	var rep types.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return types.Report{}, &PersistenceError{Op: "decode", Path: path, Err: err}
	}
	if rep.Location == "" {
		rep.Location = path
	}
	return rep, nil
}

// List returns the report files in dir, newest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "list", Path: dir, Err: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "report_") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}
