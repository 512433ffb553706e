package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
)

func (s *Service) kanbanSettings() *kanban.Settings {
	return kanban.NewSettings(s.store)
}

func (s *Service) KanbanStages(ctx context.Context, userID string) ([]kanban.Stage, error) {
	return s.kanbanSettings().GetOrCreate(ctx, userID)
}

// SaveKanbanStages sanitizes the submitted list. todo and done are always
// kept, whatever the client sent.
func (s *Service) SaveKanbanStages(ctx context.Context, userID string, stages []kanban.Stage) ([]kanban.Stage, error) {
	return s.kanbanSettings().Save(ctx, userID, stages)
}

func (s *Service) AddKanbanStage(ctx context.Context, userID, name string) ([]kanban.Stage, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationError("name is required")
	}
	return s.kanbanSettings().AddStage(ctx, userID, name)
}

type BoardView struct {
	Stages  []kanban.Stage  `json:"stages"`
	Columns []kanban.Column `json:"columns"`
}

func (s *Service) loadBoard(ctx context.Context, userID string, hook kanban.MoveHook) (*kanban.Board, error) {
	board := kanban.NewBoard(userID, s.store, s.kanbanSettings(), hook)
	if err := board.Load(ctx); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *Service) Board(ctx context.Context, userID string) (BoardView, error) {
	board, err := s.loadBoard(ctx, userID, nil)
	if err != nil {
		return BoardView{}, err
	}
	return BoardView{Stages: board.Stages(), Columns: board.Columns()}, nil
}

type MoveResult struct {
	Job  kanban.Job       `json:"job"`
	Note *kanban.MoveNote `json:"note"`
}

// MoveJob moves a job to another stage. On a persistence failure the board
// rolls back and the caller gets MOVE_FAILED.
func (s *Service) MoveJob(ctx context.Context, userID, jobID, toStage string) (MoveResult, error) {
	var note *kanban.MoveNote
	hook := func(ctx context.Context, n kanban.MoveNote) {
		note = &n
		s.logger.Info("job moved",
			zap.String("user_id", userID),
			zap.String("job_id", n.JobID),
			zap.String("from", n.FromStageKey),
			zap.String("to", n.ToStageKey),
			zap.String("reason", string(n.Reason)),
		)
	}
	board, err := s.loadBoard(ctx, userID, hook)
	if err != nil {
		return MoveResult{}, err
	}

	job, err := board.Move(ctx, jobID, toStage)
	switch {
	case err == nil:
	case errors.Is(err, kanban.ErrInvalidStage):
		return MoveResult{}, validationError("unknown stage " + toStage)
	case errors.Is(err, kanban.ErrJobNotFound):
		return MoveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	default:
		s.metrics.KanbanMove(toStage, false)
		s.logger.Error("persist kanban move", zap.String("job_id", jobID), zap.Error(err))
		return MoveResult{}, domainError(http.StatusBadGateway, "MOVE_FAILED", "Could not move job", nil)
	}

	s.metrics.KanbanMove(job.KanbanStatus, true)
	if stored, err := s.store.GetJobDescription(ctx, userID, job.ID); err == nil {
		s.search.IndexJob(jobRecord(userID, stored))
	}
	return MoveResult{Job: job, Note: note}, nil
}

type PipelineView struct {
	Stages  []kanban.Stage `json:"stages"`
	Buckets kanban.Buckets `json:"buckets"`
	Counts  kanban.Counts  `json:"counts"`
	Focus   []kanban.Job   `json:"focus"`
	Stalled []kanban.Job   `json:"stalled"`
}

// Pipeline derives the dashboard from one consistent read of stages and
// jobs.
func (s *Service) Pipeline(ctx context.Context, userID string) (PipelineView, error) {
	stages, err := s.KanbanStages(ctx, userID)
	if err != nil {
		return PipelineView{}, err
	}
	jobs, err := s.store.ListJobs(ctx, userID)
	if err != nil {
		return PipelineView{}, err
	}
	buckets := kanban.DeriveBuckets(jobs, stages)
	return PipelineView{
		Stages:  stages,
		Buckets: buckets,
		Counts:  kanban.CountBuckets(buckets),
		Focus:   kanban.RankFocusJobs(buckets, s.cfg.FocusLimit),
		Stalled: kanban.ComputeStalled(buckets.ActiveJobs, s.now(), s.cfg.StalledThresholdDays),
	}, nil
}
