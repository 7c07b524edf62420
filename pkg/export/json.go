// Package export writes documents to JSON files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	TimestampLayout = "20060102_150405"
	BatchSource     = "sf_to_elasticsearch_batch"
)

// Entry is one document to export together with its id.
type Entry struct {
	ID       string
	Document any
}

// Metadata heads a combined export file.
type Metadata struct {
	TotalProcessed int       `json:"total_processed"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	GeneratedAt    time.Time `json:"generated_at"`
	Source         string    `json:"source"`
	RunID          string    `json:"run_id,omitempty"`
}

type combinedFile struct {
	Metadata      Metadata `json:"metadata"`
	Opportunities []any    `json:"opportunities"`
}

// Writer writes export files into a directory.
type Writer struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewWriter creates a Writer for dir. The directory is created on the
// first write.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, now: time.Now, logger: logger}
}

// WithClock replaces the clock used for file names and metadata.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// DocumentFileName returns the default name for a single document export.
func (w *Writer) DocumentFileName(id string) string {
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("opportunity_%s_%s.json", id, w.now().Format(TimestampLayout))
}

// WriteDocument writes one document. An empty name uses DocumentFileName.
// A name containing a directory is used as given, otherwise the file goes
// into the writer's directory.
func (w *Writer) WriteDocument(entry Entry, name string) (string, error) {
	if name == "" {
		name = w.DocumentFileName(entry.ID)
	}
	path := w.resolve(name)
	if err := writeJSON(path, entry.Document); err != nil {
		return "", err
	}
	w.logger.Info("Data saved to JSON file", zap.String("path", path), zap.String("id", entry.ID))
	return path, nil
}

// WriteEach writes every entry to its own file and returns the paths
// written. Writing stops at the first error.
func (w *Writer) WriteEach(entries []Entry) ([]string, error) {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		path := w.resolve(w.DocumentFileName(e.ID))
		if err := writeJSON(path, e.Document); err != nil {
			return paths, err
		}
		w.logger.Debug("Saved individual result", zap.String("path", path))
		paths = append(paths, path)
	}
	w.logger.Info("Saved individual files", zap.Int("count", len(paths)), zap.String("dir", w.dir))
	return paths, nil
}

// WriteCombined writes every entry into a single file preceded by meta.
// GeneratedAt and Source are filled in when empty.
func (w *Writer) WriteCombined(entries []Entry, meta Metadata, name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("batch_opportunities_%s.json", w.now().Format(TimestampLayout))
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = w.now().UTC()
	}
	if meta.Source == "" {
		meta.Source = BatchSource
	}

	file := combinedFile{Metadata: meta, Opportunities: make([]any, 0, len(entries))}
	for _, e := range entries {
		file.Opportunities = append(file.Opportunities, e.Document)
	}

	path := w.resolve(name)
	if err := writeJSON(path, file); err != nil {
		return "", err
	}
	w.logger.Info("Saved combined results", zap.String("path", path), zap.Int("count", len(entries)))
	return path, nil
}

func (w *Writer) resolve(name string) string {
	if filepath.Dir(name) != "." || w.dir == "" {
		return name
	}
	return filepath.Join(w.dir, name)
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export dir %s: %w", dir, err)
		}
	}

	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
