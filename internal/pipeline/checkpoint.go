/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pipeline

import (
	"fmt"
	"os"
	"sync"

	"github.com/friendsincode/signalwave/internal/atomicfile"
	"github.com/friendsincode/signalwave/internal/contentstore"
	"github.com/friendsincode/signalwave/internal/jsoncodec"
)

// StageName is one of the three pipeline stages.
type StageName string

const (
	GenerateStage   StageName = "Generate"
	AuditStage      StageName = "Audit"
	SynthesizeStage StageName = "Synthesize"
)

// StageStatus tracks one stage's progress across a run.
type StageStatus string

const (
	NotStarted StageStatus = "NotStarted"
	InProgress StageStatus = "InProgress"
	Completed  StageStatus = "Completed"
	Failed     StageStatus = "Failed"
)

// Ordering names the two acceptable orchestration orders.
type Ordering string

const (
	StageMajor Ordering = "StageMajor"
	ItemMajor  Ordering = "ItemMajor"
)

// StageState is the persisted progress of one stage.
type StageState struct {
	Status        StageStatus     `json:"status"`
	Processed     int             `json:"processed"`
	Passed        int             `json:"passed"`
	Failed        int             `json:"failed"`
	Skipped       int             `json:"skipped"`
	CompletedKeys map[string]bool `json:"completed_keys"`
}

func newStageState() StageState {
	return StageState{Status: NotStarted, CompletedKeys: make(map[string]bool)}
}

// ConfigSnapshot freezes the batch configuration a run used, so --resume
// can refuse to silently continue a run under a different configuration
// — a resume must use the same ordering.
type ConfigSnapshot struct {
	ContentTypes []string `json:"content_types"`
	Personas     []string `json:"personas"`
	Mode         string   `json:"mode"`
	StageFilter  string   `json:"stage_filter"`
	Ordering     Ordering `json:"ordering"`
}

// CheckpointMismatchError is returned by LoadCheckpoint when path exists
// but was written by a run configured differently.
type CheckpointMismatchError struct {
	Field string
}

func (e *CheckpointMismatchError) Error() string {
	return fmt.Sprintf("pipeline: checkpoint was written with a different %s; refusing to resume under a mismatched configuration", e.Field)
}

// CheckpointWriteError wraps a failed checkpoint persist. It is always
// fatal to the run.
type CheckpointWriteError struct {
	Err error
}

func (e *CheckpointWriteError) Error() string {
	return fmt.Sprintf("pipeline: checkpoint write failed (aborting run, cannot proceed without recording progress): %v", e.Err)
}

func (e *CheckpointWriteError) Unwrap() error { return e.Err }

// Checkpoint is the full persisted state of one pipeline run.
type Checkpoint struct {
	mu sync.Mutex

	RunID  string                    `json:"run_id"`
	Config ConfigSnapshot            `json:"config_snapshot"`
	Stages map[StageName]*StageState `json:"stages"`

	path string
}

// NewCheckpoint constructs a fresh checkpoint for a new run.
func NewCheckpoint(runID string, cfg ConfigSnapshot, path string) *Checkpoint {
	stages := make(map[StageName]*StageState, 3)
	for _, name := range []StageName{GenerateStage, AuditStage, SynthesizeStage} {
		state := newStageState()
		stages[name] = &state
	}
	return &Checkpoint{RunID: runID, Config: cfg, Stages: stages, path: path}
}

// checkpointDocument is the on-disk shape; Checkpoint itself is not
// directly (un)marshalable because of its mutex.
type checkpointDocument struct {
	RunID  string                    `json:"run_id"`
	Config ConfigSnapshot            `json:"config_snapshot"`
	Stages map[StageName]*StageState `json:"stages"`
}

// LoadCheckpoint reads a checkpoint from path. A missing file returns
// (nil, nil) — a fresh run, not an error. If the file exists but its
// ConfigSnapshot disagrees with want on any resuming-relevant field, it
// returns a *CheckpointMismatchError.
func LoadCheckpoint(path string, want ConfigSnapshot) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var doc checkpointDocument
	if err := jsoncodec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}

	if doc.Config.Ordering != want.Ordering {
		return nil, &CheckpointMismatchError{Field: "ordering"}
	}
	if doc.Config.Mode != want.Mode {
		return nil, &CheckpointMismatchError{Field: "mode"}
	}
	if doc.Config.StageFilter != want.StageFilter {
		return nil, &CheckpointMismatchError{Field: "stage_filter"}
	}

	for _, name := range []StageName{GenerateStage, AuditStage, SynthesizeStage} {
		if doc.Stages[name] == nil {
			state := newStageState()
			doc.Stages[name] = &state
		}
		if doc.Stages[name].CompletedKeys == nil {
			doc.Stages[name].CompletedKeys = make(map[string]bool)
		}
	}

	return &Checkpoint{RunID: doc.RunID, Config: doc.Config, Stages: doc.Stages, path: path}, nil
}

// Save persists the checkpoint atomically. A failure here is always
// fatal to the run.
func (c *Checkpoint) Save() error {
	c.mu.Lock()
	doc := checkpointDocument{RunID: c.RunID, Config: c.Config, Stages: c.Stages}
	c.mu.Unlock()

	data, err := jsoncodec.Marshal(doc)
	if err != nil {
		return &CheckpointWriteError{Err: err}
	}
	if err := atomicfile.WriteFile(c.path, data, 0o644); err != nil {
		return &CheckpointWriteError{Err: err}
	}
	return nil
}

// IsKeyComplete reports whether key is already marked complete for stage.
func (c *Checkpoint) IsKeyComplete(stage StageName, key contentstore.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Stages[stage].CompletedKeys[key.String()]
}

// ClearKeyComplete removes key from stage's CompletedKeys, forcing the
// next pass over it to run for real instead of short-circuiting as
// already-done. Used to force a fresh Generate after a failed Audit.
func (c *Checkpoint) ClearKeyComplete(stage StageName, key contentstore.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Stages[stage].CompletedKeys, key.String())
}

// MarkKeyOutcome records the outcome of processing key at stage and
// updates the stage's counters. outcome is one of "passed", "failed",
// "skipped" for accounting; key is added to CompletedKeys unless outcome
// is "failed" without completion (callers decide the per-stage
// skip/retry semantics).
func (c *Checkpoint) MarkKeyOutcome(stage StageName, key contentstore.Key, outcome string, complete bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.Stages[stage]
	state.Processed++
	switch outcome {
	case "passed":
		state.Passed++
	case "failed":
		state.Failed++
	case "skipped":
		state.Skipped++
	}
	if complete {
		state.CompletedKeys[key.String()] = true
	}
}

// SetStageStatus updates a stage's overall status.
func (c *Checkpoint) SetStageStatus(stage StageName, status StageStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Stages[stage].Status = status
}

// StageSnapshot returns a copy of one stage's counters for reporting.
func (c *Checkpoint) StageSnapshot(stage StageName) StageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := *c.Stages[stage]
	return s
}
