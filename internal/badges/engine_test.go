package badges

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
)

func TestEligibleCatalogOrder(t *testing.T) {
	in := onboarding.Inputs{
		Profile: &onboarding.Profile{
			FullName:       "Grace Hopper",
			PrimaryPhone:   "+1 555 0100",
			WorkPermitInfo: "Citizen",
			Goals:          []string{"Compilers"},
			Aspirations:    []string{"Teach"},
			PersonalValues: []string{"Pragmatism"},
		},
		CVCount:                  1,
		ExperiencesCount:         3,
		StoriesCount:             2,
		PersonalCanvasCount:      1,
		JobsCount:                1,
		MatchingSummaryCount:     1,
		TailoredCVCount:          1,
		TailoredCoverLetterCount: 1,
		TailoredSpeechCount:      1,
		CompanyCanvasCount:       1,
	}

	got := Eligible(in, onboarding.ComputeState(in))
	want := []ID{Grounded, JobClarity, IdentityDefined, CVTailored, ApplicationComplete, BeyondTheCV, CompanyStrategist}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Eligible() mismatch (-want +got):\n%s", diff)
	}
}

func TestEligibleNothingForEmptyInputs(t *testing.T) {
	in := onboarding.Inputs{}
	got := Eligible(in, onboarding.ComputeState(in))
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestEligibleIndependentPredicates(t *testing.T) {
	in := onboarding.Inputs{TailoredCVCount: 1, HasCustomTemplate: true}
	assert.Equal(t, []ID{CVTailored, CustomApproach}, Eligible(in, onboarding.ComputeState(in)))
}

func TestDiffBadges(t *testing.T) {
	tests := []struct {
		name      string
		existing  []ID
		eligible  []ID
		wantAll   []ID
		wantNewly []ID
	}{
		{
			name:      "appends newly earned",
			existing:  []ID{Grounded},
			eligible:  []ID{Grounded, CVTailored},
			wantAll:   []ID{Grounded, CVTailored},
			wantNewly: []ID{CVTailored},
		},
		{
			name:      "keeps badges no longer eligible",
			existing:  []ID{JobClarity, Grounded},
			eligible:  []ID{Grounded},
			wantAll:   []ID{JobClarity, Grounded},
			wantNewly: []ID{},
		},
		{
			name:      "nothing earned yet",
			existing:  nil,
			eligible:  []ID{Grounded, JobClarity},
			wantAll:   []ID{Grounded, JobClarity},
			wantNewly: []ID{Grounded, JobClarity},
		},
		{
			name:      "collapses duplicates",
			existing:  []ID{Grounded, Grounded},
			eligible:  []ID{Grounded},
			wantAll:   []ID{Grounded},
			wantNewly: []ID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffBadges(tt.existing, tt.eligible)
			assert.Equal(t, tt.wantAll, got.AllEarned)
			assert.Equal(t, tt.wantNewly, got.NewlyEarned)
		})
	}
}

func TestFilterKnown(t *testing.T) {
	assert.Equal(t, []ID{Grounded, CustomApproach}, FilterKnown([]string{"grounded", "legacyBadge", "customApproach"}))
}

func TestCatalogKeys(t *testing.T) {
	def, ok := Lookup(CompanyStrategist)
	assert.True(t, ok)
	assert.Equal(t, "badges.catalog.companyStrategist.title", def.TitleKey)
	assert.Equal(t, onboarding.PhaseBonus, def.Phase)
	assert.Len(t, Catalog(), 8)
}
