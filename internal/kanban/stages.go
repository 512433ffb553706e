// Package kanban holds the job pipeline rules: stage configuration,
// status normalization, pipeline buckets and the board move workflow.
package kanban

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	StageTodo = "todo"
	StageDone = "done"

	defaultCustomStageKey = "stage"
)

// Stage is a pipeline column. Todo and done are system stages.
type Stage struct {
	Key             string `json:"key"`
	Name            string `json:"name"`
	IsSystemDefault bool   `json:"isSystemDefault"`
}

var systemStageNames = map[string]string{
	StageTodo: "ToDo",
	StageDone: "Done",
}

func DefaultStages() []Stage {
	return []Stage{
		{Key: StageTodo, Name: "ToDo", IsSystemDefault: true},
		{Key: "applied", Name: "Applied"},
		{Key: "interview", Name: "Interview"},
		{Key: StageDone, Name: "Done", IsSystemDefault: true},
	}
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	edgeDashes   = regexp.MustCompile(`^-+|-+$`)
	multiDashes  = regexp.MustCompile(`-{2,}`)
)

// NormalizeKey turns any label into a lowercase kebab-case key.
func NormalizeKey(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	key = nonSlugChars.ReplaceAllString(key, "-")
	key = edgeDashes.ReplaceAllString(key, "")
	return multiDashes.ReplaceAllString(key, "-")
}

// UniqueStageKey derives a key from name that does not collide with
// existing, appending -2, -3, ... as needed.
func UniqueStageKey(name string, existing []string) string {
	base := NormalizeKey(name)
	if base == "" {
		base = defaultCustomStageKey
	}
	used := make(map[string]struct{}, len(existing))
	for _, key := range existing {
		if key != "" {
			used[key] = struct{}{}
		}
	}
	if _, ok := used[base]; !ok {
		return base
	}
	for suffix := 2; ; suffix++ {
		candidate := base + "-" + strconv.Itoa(suffix)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}

// SanitizeStages normalizes keys, trims names and drops entries that end
// up without a key or a name. Duplicate keys keep the first occurrence.
// Zero-value entries (JSON nulls) are dropped.
func SanitizeStages(raw []Stage) []Stage {
	seen := make(map[string]struct{}, len(raw))
	out := make([]Stage, 0, len(raw))
	for _, stage := range raw {
		key := NormalizeKey(stage.Key)
		if key == "" {
			key = NormalizeKey(stage.Name)
		}
		name := strings.TrimSpace(stage.Name)
		if key == "" || name == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Stage{Key: key, Name: name, IsSystemDefault: stage.IsSystemDefault})
	}
	return out
}

// EnsureSystemStages sanitizes stages and pins todo first and done last
// with their canonical names. Every other stage keeps its order and is
// marked as a custom stage.
func EnsureSystemStages(stages []Stage) []Stage {
	sanitized := SanitizeStages(stages)
	out := make([]Stage, 0, len(sanitized)+2)
	out = append(out, Stage{Key: StageTodo, Name: systemStageNames[StageTodo], IsSystemDefault: true})
	for _, stage := range sanitized {
		if stage.Key == StageTodo || stage.Key == StageDone {
			continue
		}
		stage.IsSystemDefault = false
		out = append(out, stage)
	}
	return append(out, Stage{Key: StageDone, Name: systemStageNames[StageDone], IsSystemDefault: true})
}

// StageLabel returns the configured name for key, or key itself.
func StageLabel(key string, stages []Stage) string {
	for _, stage := range stages {
		if stage.Key == key {
			return stage.Name
		}
	}
	return key
}

func hasStage(key string, stages []Stage) bool {
	for _, stage := range stages {
		if stage.Key == key {
			return true
		}
	}
	return false
}

func sameStages(a, b []Stage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
