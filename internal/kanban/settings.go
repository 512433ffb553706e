package kanban

import (
	"context"
	"fmt"
)

// SettingsRepository persists one stage list per user. found is false
// when the user has never saved settings.
type SettingsRepository interface {
	GetKanbanStages(ctx context.Context, userID string) (stages []Stage, found bool, err error)
	SaveKanbanStages(ctx context.Context, userID string, stages []Stage) error
}

type Settings struct {
	repo SettingsRepository
}

func NewSettings(repo SettingsRepository) *Settings {
	return &Settings{repo: repo}
}

// GetOrCreate returns the user's stages, creating the defaults on first
// use and repairing stored lists that lost their system stages.
func (s *Settings) GetOrCreate(ctx context.Context, userID string) ([]Stage, error) {
	stored, found, err := s.repo.GetKanbanStages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load kanban settings: %w", err)
	}
	if !found {
		defaults := DefaultStages()
		if err := s.repo.SaveKanbanStages(ctx, userID, defaults); err != nil {
			return nil, fmt.Errorf("create kanban settings: %w", err)
		}
		return defaults, nil
	}

	repaired := EnsureSystemStages(stored)
	if !sameStages(stored, repaired) {
		if err := s.repo.SaveKanbanStages(ctx, userID, repaired); err != nil {
			return nil, fmt.Errorf("repair kanban settings: %w", err)
		}
	}
	return repaired, nil
}

// Save replaces the stage list after enforcing the system stages.
func (s *Settings) Save(ctx context.Context, userID string, stages []Stage) ([]Stage, error) {
	ensured := EnsureSystemStages(stages)
	if err := s.repo.SaveKanbanStages(ctx, userID, ensured); err != nil {
		return nil, fmt.Errorf("save kanban settings: %w", err)
	}
	return ensured, nil
}

// AddStage appends a custom stage just before done.
func (s *Settings) AddStage(ctx context.Context, userID, name string) ([]Stage, error) {
	current, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(current))
	for _, stage := range current {
		keys = append(keys, stage.Key)
	}
	stage := Stage{Key: UniqueStageKey(name, keys), Name: name}
	next := make([]Stage, 0, len(current)+1)
	next = append(next, current[:len(current)-1]...)
	next = append(next, stage, current[len(current)-1])
	return s.Save(ctx, userID, next)
}
