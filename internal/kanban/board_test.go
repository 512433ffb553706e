package kanban

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobRepo struct {
	jobs     []Job
	updateFn func(ctx context.Context, ownerID, jobID, status string) (Job, error)
}

func (f *fakeJobRepo) ListJobs(context.Context, string) ([]Job, error) {
	out := make([]Job, len(f.jobs))
	copy(out, f.jobs)
	return out, nil
}

func (f *fakeJobRepo) UpdateJobStatus(ctx context.Context, ownerID, jobID, status string) (Job, error) {
	return f.updateFn(ctx, ownerID, jobID, status)
}

type memorySettings struct {
	stages map[string][]Stage
	saves  int
}

func (m *memorySettings) GetKanbanStages(_ context.Context, userID string) ([]Stage, bool, error) {
	stages, ok := m.stages[userID]
	return stages, ok, nil
}

func (m *memorySettings) SaveKanbanStages(_ context.Context, userID string, stages []Stage) error {
	if m.stages == nil {
		m.stages = map[string][]Stage{}
	}
	m.stages[userID] = stages
	m.saves++
	return nil
}

func loadedBoard(t *testing.T, repo *fakeJobRepo, hook MoveHook) *Board {
	t.Helper()
	board := NewBoard("user-1", repo, NewSettings(&memorySettings{}), hook)
	require.NoError(t, board.Load(context.Background()))
	return board
}

func statusOf(board *Board, jobID string) string {
	for _, job := range board.Jobs() {
		if job.ID == jobID {
			return job.KanbanStatus
		}
	}
	return ""
}

func TestBoardColumns(t *testing.T) {
	repo := &fakeJobRepo{jobs: []Job{
		{ID: "a", KanbanStatus: "applied", UpdatedAt: at("2026-01-01")},
		{ID: "b", KanbanStatus: "bogus"},
		{ID: "c", KanbanStatus: "applied", UpdatedAt: at("2026-02-01")},
	}}
	board := loadedBoard(t, repo, nil)

	columns := board.Columns()
	require.Len(t, columns, 4)
	assert.Equal(t, "todo", columns[0].Stage.Key)
	assert.Equal(t, []string{"b"}, ids(columns[0].Jobs))
	assert.Equal(t, []string{"c", "a"}, ids(columns[1].Jobs))
	assert.Empty(t, columns[3].Jobs)
}

func TestBoardMoveSuccess(t *testing.T) {
	var notes []MoveNote
	repo := &fakeJobRepo{
		jobs: []Job{{ID: "job-1", KanbanStatus: "applied"}},
		updateFn: func(_ context.Context, _, jobID, status string) (Job, error) {
			return Job{ID: jobID, KanbanStatus: status}, nil
		},
	}
	board := loadedBoard(t, repo, func(_ context.Context, note MoveNote) { notes = append(notes, note) })

	moved, err := board.Move(context.Background(), "job-1", "done")
	require.NoError(t, err)
	assert.Equal(t, "done", moved.KanbanStatus)
	assert.Equal(t, "done", statusOf(board, "job-1"))
	require.Len(t, notes, 1)
	assert.Equal(t, MoveNote{
		JobID:         "job-1",
		FromStageKey:  "applied",
		ToStageKey:    "done",
		FromStageName: "Applied",
		ToStageName:   "Done",
		Reason:        ReasonMovedToDone,
	}, notes[0])
}

func TestBoardMoveRollsBackOnFailure(t *testing.T) {
	persistErr := errors.New("network down")
	var observed string
	var board *Board
	repo := &fakeJobRepo{
		jobs: []Job{{ID: "job-1", KanbanStatus: ""}},
		updateFn: func(_ context.Context, _, jobID, _ string) (Job, error) {
			observed = statusOf(board, jobID)
			return Job{}, persistErr
		},
	}
	hookCalled := false
	board = loadedBoard(t, repo, func(context.Context, MoveNote) { hookCalled = true })

	_, err := board.Move(context.Background(), "job-1", "interview")
	require.Error(t, err)
	assert.ErrorIs(t, err, persistErr)
	assert.Equal(t, "interview", observed, "optimistic status should be visible while persisting")
	assert.Equal(t, "", statusOf(board, "job-1"))
	assert.False(t, hookCalled)
}

func TestBoardMoveRewritesUnknownStatusToTodo(t *testing.T) {
	var persisted []string
	repo := &fakeJobRepo{
		jobs: []Job{{ID: "job-1", KanbanStatus: "ghosted"}},
		updateFn: func(_ context.Context, _, jobID, status string) (Job, error) {
			persisted = append(persisted, status)
			return Job{ID: jobID, KanbanStatus: status}, nil
		},
	}
	hookCalled := false
	board := loadedBoard(t, repo, func(context.Context, MoveNote) { hookCalled = true })

	moved, err := board.Move(context.Background(), "job-1", "todo")
	require.NoError(t, err)
	assert.Equal(t, []string{"todo"}, persisted)
	assert.Equal(t, "todo", moved.KanbanStatus)
	assert.Equal(t, "todo", statusOf(board, "job-1"))
	assert.False(t, hookCalled)

	_, err = board.Move(context.Background(), "job-1", "todo")
	require.NoError(t, err)
	assert.Len(t, persisted, 1, "canonical status should not be rewritten")
}

func TestBoardMoveValidation(t *testing.T) {
	repo := &fakeJobRepo{
		jobs: []Job{{ID: "job-1", KanbanStatus: "applied"}},
		updateFn: func(context.Context, string, string, string) (Job, error) {
			t.Fatal("UpdateJobStatus should not be called")
			return Job{}, nil
		},
	}
	board := loadedBoard(t, repo, nil)
	ctx := context.Background()

	_, err := board.Move(ctx, "job-1", "nowhere")
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = board.Move(ctx, "missing", "done")
	assert.ErrorIs(t, err, ErrJobNotFound)

	same, err := board.Move(ctx, "job-1", "applied")
	require.NoError(t, err)
	assert.Equal(t, "applied", same.KanbanStatus)
}

func TestSettingsGetOrCreate(t *testing.T) {
	repo := &memorySettings{}
	settings := NewSettings(repo)
	ctx := context.Background()

	stages, err := settings.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultStages(), stages)
	assert.Equal(t, 1, repo.saves)

	_, err = settings.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.saves, "valid settings should not be rewritten")

	repo.stages["u2"] = []Stage{{Key: "offer", Name: "Offer", IsSystemDefault: true}}
	stages, err = settings.GetOrCreate(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []Stage{
		{Key: "todo", Name: "ToDo", IsSystemDefault: true},
		{Key: "offer", Name: "Offer"},
		{Key: "done", Name: "Done", IsSystemDefault: true},
	}, stages)
	assert.Equal(t, stages, repo.stages["u2"])
}

func TestSettingsAddStage(t *testing.T) {
	settings := NewSettings(&memorySettings{})
	stages, err := settings.AddStage(context.Background(), "u1", "Applied")
	require.NoError(t, err)

	keys := make([]string, 0, len(stages))
	for _, s := range stages {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"todo", "applied", "interview", "applied-2", "done"}, keys)
}
