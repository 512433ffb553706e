package kanban

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"  Phone Screen ":   "phone-screen",
		"Offer!!! (final)":  "offer-final",
		"--already-kebab--": "already-kebab",
		"ÉTÉ 2026":          "t-2026",
		"   ":               "",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUniqueStageKey(t *testing.T) {
	assert.Equal(t, "offer", UniqueStageKey("Offer", []string{"todo", "done"}))
	assert.Equal(t, "offer-2", UniqueStageKey("Offer", []string{"offer"}))
	assert.Equal(t, "offer-3", UniqueStageKey("offer", []string{"offer", "offer-2"}))
	assert.Equal(t, "stage", UniqueStageKey("!!!", nil))
}

func TestSanitizeStages(t *testing.T) {
	raw := []Stage{
		{},
		{Key: " Phone Screen ", Name: " Phone screen "},
		{Name: "Take Home"},
		{Key: "phone-screen", Name: "Duplicate", IsSystemDefault: true},
		{Key: "nameless"},
		{Key: "   ", Name: "   "},
	}

	got := SanitizeStages(raw)
	want := []Stage{
		{Key: "phone-screen", Name: "Phone screen"},
		{Key: "take-home", Name: "Take Home"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SanitizeStages() mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeStagesIsFixedPoint(t *testing.T) {
	inputs := [][]Stage{
		nil,
		DefaultStages(),
		{{Key: "A  b", Name: "x"}, {Name: "A B"}, {Key: "c", Name: " C "}},
	}
	for _, in := range inputs {
		once := SanitizeStages(in)
		if diff := cmp.Diff(once, SanitizeStages(once)); diff != "" {
			t.Fatalf("SanitizeStages() not a fixed point (-once +twice):\n%s", diff)
		}
	}
}

func TestEnsureSystemStages(t *testing.T) {
	got := EnsureSystemStages([]Stage{
		{Key: "done", Name: "Finished", IsSystemDefault: false},
		{Key: "interview", Name: "Interview", IsSystemDefault: true},
		{Key: "todo", Name: "Backlog"},
		{Key: "offer", Name: "Offer"},
	})
	want := []Stage{
		{Key: "todo", Name: "ToDo", IsSystemDefault: true},
		{Key: "interview", Name: "Interview"},
		{Key: "offer", Name: "Offer"},
		{Key: "done", Name: "Done", IsSystemDefault: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("EnsureSystemStages() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureSystemStagesInvariants(t *testing.T) {
	inputs := [][]Stage{
		nil,
		{{Key: "todo", Name: "x"}, {Key: "todo", Name: "y"}},
		{{Key: "done", Name: "Done"}, {Key: "applied", Name: "Applied"}},
		DefaultStages(),
	}
	for _, in := range inputs {
		once := EnsureSystemStages(in)
		if diff := cmp.Diff(once, EnsureSystemStages(once)); diff != "" {
			t.Fatalf("EnsureSystemStages() not idempotent (-once +twice):\n%s", diff)
		}

		var todo, done int
		for _, stage := range once {
			switch stage.Key {
			case StageTodo:
				todo++
				assert.True(t, stage.IsSystemDefault)
			case StageDone:
				done++
				assert.True(t, stage.IsSystemDefault)
			}
		}
		assert.Equal(t, 1, todo)
		assert.Equal(t, 1, done)
		assert.Equal(t, StageTodo, once[0].Key)
		assert.Equal(t, StageDone, once[len(once)-1].Key)
	}
}

func TestDefaultStagesAreAlreadyEnsured(t *testing.T) {
	if diff := cmp.Diff(DefaultStages(), EnsureSystemStages(DefaultStages())); diff != "" {
		t.Fatalf("DefaultStages() drifts from EnsureSystemStages (-default +ensured):\n%s", diff)
	}
}

func TestStageLabel(t *testing.T) {
	stages := DefaultStages()
	assert.Equal(t, "Interview", StageLabel("interview", stages))
	assert.Equal(t, "ghost", StageLabel("ghost", stages))
}
