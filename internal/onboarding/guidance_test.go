package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateFor(mutate func(*Inputs)) *State {
	in := completeInputs()
	mutate(&in)
	state := ComputeState(in)
	return &state
}

func TestGuidanceNilStateHasNoLocks(t *testing.T) {
	for _, route := range Routes {
		t.Run(string(route), func(t *testing.T) {
			model := Guidance(route, nil, Context{})
			assert.Nil(t, model.Banner)
			assert.Empty(t, model.LockedFeatures)
		})
	}
}

func TestGuidanceUnknownRoute(t *testing.T) {
	state := ComputeState(Inputs{})
	assert.Equal(t, Model{}, Guidance(RouteKey("settings"), &state, Context{}))
}

func TestProfileGuidanceFirstMissingGate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Inputs)
		wantTitle string
		wantTo    string
	}{
		{
			name:      "cv first",
			mutate:    func(in *Inputs) { in.CVCount = 0; in.Profile = nil },
			wantTitle: "guidance.profile.banner.cv.title",
			wantTo:    "/onboarding",
		},
		{
			name:      "profile basics",
			mutate:    func(in *Inputs) { in.Profile.FullName = "" },
			wantTitle: "guidance.profile.banner.basics.title",
			wantTo:    "/profile/full?mode=edit",
		},
		{
			name:      "identity gate after phase one",
			mutate:    func(in *Inputs) { in.PersonalCanvasCount = 0 },
			wantTitle: "guidance.profile.banner.personalCanvas.title",
			wantTo:    "/profile/canvas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := Guidance(RouteProfile, stateFor(tt.mutate), Context{})
			require.NotNil(t, model.Banner)
			assert.Equal(t, tt.wantTitle, model.Banner.TitleKey)
			require.NotNil(t, model.Banner.CTA)
			assert.Equal(t, tt.wantTo, model.Banner.CTA.To)
		})
	}
}

func TestProfileGuidanceNeutralWhenComplete(t *testing.T) {
	model := Guidance(RouteProfile, stateFor(func(*Inputs) {}), Context{})
	assert.Equal(t, Model{}, model)
}

func TestGuidanceDoesNotShareBannerPointers(t *testing.T) {
	state := stateFor(func(in *Inputs) { in.CVCount = 0 })
	first := Guidance(RouteProfile, state, Context{})
	first.Banner.CTA.To = "/mutated"

	second := Guidance(RouteProfile, state, Context{})
	assert.Equal(t, "/onboarding", second.Banner.CTA.To)
}

func TestProfileStoriesGuidance(t *testing.T) {
	locked := Guidance(RouteProfileStories, stateFor(func(in *Inputs) { in.ExperiencesCount = 0 }), Context{StoriesCount: Count(0)})
	require.Len(t, locked.LockedFeatures, 1)
	assert.Equal(t, "stories-locked", locked.LockedFeatures[0].ID)
	assert.Nil(t, locked.EmptyState)

	empty := Guidance(RouteProfileStories, stateFor(func(*Inputs) {}), Context{StoriesCount: Count(0)})
	require.NotNil(t, empty.EmptyState)
	assert.Equal(t, "/profile/stories/new", empty.EmptyState.CTA.To)

	loading := Guidance(RouteProfileStories, stateFor(func(*Inputs) {}), Context{})
	assert.Equal(t, Model{}, loading)
}

func TestProfileCanvasGuidance(t *testing.T) {
	model := Guidance(RouteProfileCanvas, stateFor(func(in *Inputs) { in.Profile.Goals = nil }), Context{})
	require.Len(t, model.LockedFeatures, 1)
	assert.Equal(t, "guidance.profileCanvas.locked.descriptionProfileDepth", model.LockedFeatures[0].DescriptionKey)

	model = Guidance(RouteProfileCanvas, stateFor(func(in *Inputs) { in.StoriesCount = 0 }), Context{})
	require.Len(t, model.LockedFeatures, 1)
	assert.Equal(t, "/profile/stories/new", model.LockedFeatures[0].CTA.To)

	assert.Equal(t, Model{}, Guidance(RouteProfileCanvas, stateFor(func(in *Inputs) { in.PersonalCanvasCount = 0 }), Context{}))
}

func TestJobsGuidance(t *testing.T) {
	noMatch := false
	state := stateFor(func(in *Inputs) { in.MatchingSummaryCount = 0 })

	empty := Guidance(RouteJobs, state, Context{JobsCount: Count(0)})
	require.NotNil(t, empty.EmptyState)
	assert.Equal(t, "/jobs/new", empty.EmptyState.CTA.To)

	match := Guidance(RouteJobs, state, Context{JobsCount: Count(2), JobID: "job-1", HasMatchingSummary: &noMatch})
	require.NotNil(t, match.Banner)
	assert.Equal(t, "/jobs/job-1/match", match.Banner.CTA.To)

	detail := Guidance(RouteJobDetail, state, Context{JobID: "job-1", HasMatchingSummary: &noMatch})
	require.NotNil(t, detail.Banner)
	assert.Equal(t, "guidance.jobDetail.banner.title", detail.Banner.TitleKey)

	complete := Guidance(RouteJobDetail, stateFor(func(*Inputs) {}), Context{JobID: "job-1", HasMatchingSummary: &noMatch})
	assert.Equal(t, Model{}, complete)
}

func TestApplicationsGuidanceLockOrder(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Inputs)
		wantTitle string
	}{
		{name: "phase one", mutate: func(in *Inputs) { in.CVCount = 0 }, wantTitle: "guidance.applications.lockedPhase1.title"},
		{name: "profile depth", mutate: func(in *Inputs) { in.Profile.Aspirations = nil; in.JobsCount = 0 }, wantTitle: "guidance.applications.lockedProfileDepth.title"},
		{name: "canvas", mutate: func(in *Inputs) { in.PersonalCanvasCount = 0 }, wantTitle: "guidance.applications.lockedCanvas.title"},
		{name: "job", mutate: func(in *Inputs) { in.JobsCount = 0 }, wantTitle: "guidance.applications.lockedJob.title"},
		{name: "matching summary", mutate: func(in *Inputs) { in.MatchingSummaryCount = 0 }, wantTitle: "guidance.applications.lockedMatchingSummary.title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := Guidance(RouteApplicationsCV, stateFor(tt.mutate), Context{CVCount: Count(0)})
			require.Len(t, model.LockedFeatures, 1)
			assert.Equal(t, "cv-locked", model.LockedFeatures[0].ID)
			assert.Equal(t, tt.wantTitle, model.LockedFeatures[0].TitleKey)
			assert.Nil(t, model.EmptyState)
		})
	}
}

func TestApplicationsGuidanceUnlocked(t *testing.T) {
	state := stateFor(func(in *Inputs) { in.TailoredCoverLetterCount = 0 })

	empty := Guidance(RouteApplicationsCoverLetter, state, Context{CoverLetterCount: Count(0)})
	assert.Empty(t, empty.LockedFeatures)
	require.NotNil(t, empty.EmptyState)
	assert.Equal(t, "/applications/cover-letters/new", empty.EmptyState.CTA.To)

	populated := Guidance(RouteApplicationsSpeech, state, Context{SpeechCount: Count(4)})
	assert.Equal(t, Model{}, populated)
}

func TestParseRouteKey(t *testing.T) {
	route, ok := ParseRouteKey("applications-speech")
	assert.True(t, ok)
	assert.Equal(t, RouteApplicationsSpeech, route)

	_, ok = ParseRouteKey("nope")
	assert.False(t, ok)
}
