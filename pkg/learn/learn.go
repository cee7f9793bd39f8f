// Package learn persists finished interactions so format heuristics
// can be tuned offline. Recording is strictly fire-and-forget: the
// pipeline never blocks on it and a sink failure never fails a
// request.
package learn

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/calebcgates/ImproveLLMStructure/pkg/correct"
	"github.com/calebcgates/ImproveLLMStructure/pkg/schema"
	"github.com/calebcgates/ImproveLLMStructure/pkg/validate"
)

// ProfileDelta records how a profile changed between the first and the
// final attempt of one interaction. Profiles are immutable values, so
// change shows up only as delta events like this one.
type ProfileDelta struct {
	FromKind       schema.ProfileKind `json:"from_kind"`
	ToKind         schema.ProfileKind `json:"to_kind"`
	FromConfidence float64            `json:"from_confidence"`
	ToConfidence   float64            `json:"to_confidence"`
}

// InteractionRecord is the full story of one request.
type InteractionRecord struct {
	Timestamp      time.Time         `json:"timestamp"`
	Prompt         string            `json:"prompt"`
	Format         string            `json:"format"`
	Intent         schema.Intent     `json:"intent,omitempty"`
	InputProfile   schema.Profile    `json:"input_profile"`
	OutputProfile  schema.Profile    `json:"output_profile"`
	RawResponse    string            `json:"raw_response"`
	Output         string            `json:"output"`
	Report         validate.Report   `json:"report"`
	Attempts       []correct.Attempt `json:"attempts,omitempty"`
	Corrected      bool              `json:"corrected"`
	ProfileDeltas  []ProfileDelta    `json:"profile_deltas,omitempty"`
	DurationMillis int64             `json:"duration_ms"`
}

// Recorder writes interaction records somewhere durable.
type Recorder interface {
	Record(record InteractionRecord)
}

// FileRecorder writes one JSON file per interaction under a base
// directory. Safe for concurrent use.
type FileRecorder struct {
	baseDir string
	logf    func(format string, args ...any)

	mu  sync.Mutex
	seq int
}

// NewFileRecorder creates a recorder rooted at baseDir, creating the
// directory if needed.
func NewFileRecorder(baseDir string) (*FileRecorder, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileRecorder{baseDir: baseDir, logf: log.Printf}, nil
}

// Record writes the interaction to interaction_<timestamp>_<seq>.json.
// Failures are logged, never returned.
func (r *FileRecorder) Record(record InteractionRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	r.seq++
	name := fmt.Sprintf("interaction_%s_%04d.json",
		record.Timestamp.UTC().Format("20060102T150405"), r.seq)
	r.mu.Unlock()

	if err := writeJSON(filepath.Join(r.baseDir, name), record); err != nil {
		r.logf("learn: failed to record interaction: %v", err)
	}
}

// NopRecorder discards every record. It is the default when no log
// directory is configured.
type NopRecorder struct{}

func (NopRecorder) Record(InteractionRecord) {}

// DeltaBetween builds the delta event for two profile snapshots, or
// ok=false when nothing changed.
func DeltaBetween(before, after schema.Profile) (ProfileDelta, bool) {
	if before.Kind == after.Kind && before.Confidence == after.Confidence {
		return ProfileDelta{}, false
	}
	return ProfileDelta{
		FromKind:       before.Kind,
		ToKind:         after.Kind,
		FromConfidence: before.Confidence,
		ToConfidence:   after.Confidence,
	}, true
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
