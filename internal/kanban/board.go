package kanban

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInvalidStage = errors.New("invalid stage key")
	ErrJobNotFound  = errors.New("job not found")
)

// JobRepository loads a user's jobs and persists status changes.
type JobRepository interface {
	ListJobs(ctx context.Context, ownerID string) ([]Job, error)
	UpdateJobStatus(ctx context.Context, ownerID, jobID, status string) (Job, error)
}

// StageLoader resolves the stage list for a user.
type StageLoader interface {
	GetOrCreate(ctx context.Context, userID string) ([]Stage, error)
}

type MoveReason string

const (
	ReasonMovedStage  MoveReason = "moved_stage"
	ReasonMovedToDone MoveReason = "moved_to_done"
)

// MoveNote describes a completed move so callers can append a note to the
// job's history.
type MoveNote struct {
	JobID         string     `json:"jobId"`
	FromStageKey  string     `json:"fromStageKey"`
	ToStageKey    string     `json:"toStageKey"`
	FromStageName string     `json:"fromStageName,omitempty"`
	ToStageName   string     `json:"toStageName,omitempty"`
	Reason        MoveReason `json:"reason"`
}

// MoveHook runs after a move has been persisted.
type MoveHook func(ctx context.Context, note MoveNote)

type Column struct {
	Stage Stage `json:"stage"`
	Jobs  []Job `json:"jobs"`
}

// Board is an in-memory view of one user's pipeline. Moves are applied
// optimistically and rolled back if persistence fails.
type Board struct {
	ownerID string
	repo    JobRepository
	stages  StageLoader
	onMove  MoveHook

	mu        sync.Mutex
	stageList []Stage
	jobs      []Job
}

func NewBoard(ownerID string, repo JobRepository, stages StageLoader, onMove MoveHook) *Board {
	return &Board{ownerID: ownerID, repo: repo, stages: stages, onMove: onMove}
}

// Load refreshes stages and jobs from their repositories.
func (b *Board) Load(ctx context.Context) error {
	stages, err := b.stages.GetOrCreate(ctx, b.ownerID)
	if err != nil {
		return err
	}
	jobs, err := b.repo.ListJobs(ctx, b.ownerID)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stageList = stages
	b.jobs = jobs
	return nil
}

func (b *Board) Stages() []Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Stage, len(b.stageList))
	copy(out, b.stageList)
	return out
}

func (b *Board) Jobs() []Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Job, len(b.jobs))
	copy(out, b.jobs)
	return out
}

// Columns groups jobs by normalized stage, newest first in each column.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	grouped := make(map[string][]Job, len(b.stageList))
	for _, job := range b.jobs {
		key := NormalizeStatus(job, b.stageList)
		grouped[key] = append(grouped[key], job)
	}
	columns := make([]Column, 0, len(b.stageList))
	for _, stage := range b.stageList {
		columns = append(columns, Column{Stage: stage, Jobs: byMostRecent(grouped[stage.Key])})
	}
	return columns
}

// Move relocates a job to another stage. The in-memory board reflects the
// move while the update is in flight; on failure the previous status is
// restored and the persistence error is returned.
func (b *Board) Move(ctx context.Context, jobID, toStageKey string) (Job, error) {
	b.mu.Lock()
	if !hasStage(toStageKey, b.stageList) {
		b.mu.Unlock()
		return Job{}, ErrInvalidStage
	}
	idx := b.indexOf(jobID)
	if idx < 0 {
		b.mu.Unlock()
		return Job{}, ErrJobNotFound
	}
	target := b.jobs[idx]
	if target.KanbanStatus == toStageKey {
		b.mu.Unlock()
		return target, nil
	}
	// A stale or unknown stored status renders in the target column but
	// still has to be rewritten; no move note is emitted for it.
	fromStageKey := NormalizeStatus(target, b.stageList)
	corrective := fromStageKey == toStageKey
	previous := target.KanbanStatus
	b.jobs[idx].KanbanStatus = toStageKey
	stages := b.stageList
	b.mu.Unlock()

	updated, err := b.repo.UpdateJobStatus(ctx, b.ownerID, jobID, toStageKey)

	b.mu.Lock()
	idx = b.indexOf(jobID)
	if err != nil {
		if idx >= 0 && b.jobs[idx].KanbanStatus == toStageKey {
			b.jobs[idx].KanbanStatus = previous
		}
		b.mu.Unlock()
		return Job{}, fmt.Errorf("persist move: %w", err)
	}
	if updated.KanbanStatus == "" {
		updated.KanbanStatus = toStageKey
	}
	if idx >= 0 {
		b.jobs[idx] = updated
	}
	b.mu.Unlock()

	if b.onMove != nil && !corrective {
		b.onMove(ctx, buildMoveNote(stages, jobID, fromStageKey, toStageKey))
	}
	return updated, nil
}

func (b *Board) indexOf(jobID string) int {
	for i := range b.jobs {
		if b.jobs[i].ID == jobID {
			return i
		}
	}
	return -1
}

func buildMoveNote(stages []Stage, jobID, from, to string) MoveNote {
	reason := ReasonMovedStage
	if to == StageDone {
		reason = ReasonMovedToDone
	}
	note := MoveNote{JobID: jobID, FromStageKey: from, ToStageKey: to, Reason: reason}
	if hasStage(from, stages) {
		note.FromStageName = StageLabel(from, stages)
	}
	if hasStage(to, stages) {
		note.ToStageName = StageLabel(to, stages)
	}
	return note
}
