// Package onboarding derives a user's position in the onboarding journey
// from profile data and entity counts, and resolves the guidance, next
// actions and wizard steps that depend on it.
package onboarding

import "strings"

type Phase string

const (
	PhaseOne   Phase = "phase1"
	PhaseTwo   Phase = "phase2"
	PhaseThree Phase = "phase3"
	PhaseBonus Phase = "bonus"
)

// Gate names a single prerequisite inside a phase.
type Gate string

const (
	GateCVUploaded          Gate = "cvUploaded"
	GateExperienceCount     Gate = "experienceCount"
	GateProfileBasics       Gate = "profileBasics"
	GateJobUploaded         Gate = "jobUploaded"
	GateMatchingSummary     Gate = "matchingSummary"
	GateProfileDepth        Gate = "profileDepth"
	GateStories             Gate = "stories"
	GatePersonalCanvas      Gate = "personalCanvas"
	GateTailoredCV          Gate = "tailoredCv"
	GateTailoredCoverLetter Gate = "tailoredCoverLetter"
	GateTailoredSpeech      Gate = "tailoredSpeech"
)

// Profile is the subset of the user profile the progress rules read.
type Profile struct {
	FullName       string   `json:"fullName"`
	Headline       string   `json:"headline"`
	Location       string   `json:"location"`
	PrimaryEmail   string   `json:"primaryEmail"`
	PrimaryPhone   string   `json:"primaryPhone"`
	WorkPermitInfo string   `json:"workPermitInfo"`
	Goals          []string `json:"goals"`
	Aspirations    []string `json:"aspirations"`
	PersonalValues []string `json:"personalValues"`
	Strengths      []string `json:"strengths"`
	Interests      []string `json:"interests"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications"`
	Languages      []string `json:"languages"`
	SocialLinks    []string `json:"socialLinks"`
}

// Inputs is everything ComputeState needs. Counts are expected to be
// non-negative; a negative count behaves like zero.
type Inputs struct {
	Profile                  *Profile `json:"profile"`
	CVCount                  int      `json:"cvCount"`
	ExperiencesCount         int      `json:"experiencesCount"`
	StoriesCount             int      `json:"storiesCount"`
	PersonalCanvasCount      int      `json:"personalCanvasCount"`
	JobsCount                int      `json:"jobsCount"`
	MatchingSummaryCount     int      `json:"matchingSummaryCount"`
	TailoredCVCount          int      `json:"tailoredCvCount"`
	TailoredCoverLetterCount int      `json:"tailoredCoverLetterCount"`
	TailoredSpeechCount      int      `json:"tailoredSpeechCount"`
	CompanyCanvasCount       int      `json:"companyCanvasCount"`
	HasCustomTemplate        bool     `json:"hasCustomTemplate"`
}

type CheckResult struct {
	IsComplete bool   `json:"isComplete"`
	Missing    []Gate `json:"missing"`
}

// Has reports whether gate is among the missing prerequisites.
func (c CheckResult) Has(gate Gate) bool {
	for _, missing := range c.Missing {
		if missing == gate {
			return true
		}
	}
	return false
}

// State is the derived progress snapshot. Phase2A is the job path and
// Phase2B the identity path.
type State struct {
	Phase   Phase       `json:"phase"`
	Phase1  CheckResult `json:"phase1"`
	Phase2A CheckResult `json:"phase2A"`
	Phase2B CheckResult `json:"phase2B"`
	Phase3  CheckResult `json:"phase3"`
}

type gateCheck struct {
	gate Gate
	ok   bool
}

func check(checks ...gateCheck) CheckResult {
	missing := make([]Gate, 0, len(checks))
	for _, c := range checks {
		if !c.ok {
			missing = append(missing, c.gate)
		}
	}
	return CheckResult{IsComplete: len(missing) == 0, Missing: missing}
}

// ComputeState evaluates every phase gate for the given inputs.
func ComputeState(in Inputs) State {
	state := State{
		Phase1: check(
			gateCheck{GateCVUploaded, in.CVCount >= 1},
			gateCheck{GateExperienceCount, in.ExperiencesCount >= 1},
			gateCheck{GateProfileBasics, hasProfileBasics(in.Profile)},
		),
		Phase2A: check(
			gateCheck{GateJobUploaded, in.JobsCount >= 1},
			gateCheck{GateMatchingSummary, in.MatchingSummaryCount >= 1},
		),
		Phase2B: check(
			gateCheck{GateProfileDepth, hasProfileDepth(in.Profile)},
			gateCheck{GateStories, in.StoriesCount >= 1},
			gateCheck{GatePersonalCanvas, in.PersonalCanvasCount >= 1},
		),
		Phase3: check(
			gateCheck{GateTailoredCV, in.TailoredCVCount >= 1},
			gateCheck{GateTailoredCoverLetter, in.TailoredCoverLetterCount >= 1},
			gateCheck{GateTailoredSpeech, in.TailoredSpeechCount >= 1},
		),
	}

	switch {
	case !state.Phase1.IsComplete:
		state.Phase = PhaseOne
	case !state.Phase2A.IsComplete || !state.Phase2B.IsComplete:
		state.Phase = PhaseTwo
	case !state.Phase3.IsComplete:
		state.Phase = PhaseThree
	default:
		state.Phase = PhaseBonus
	}
	return state
}

func hasProfileBasics(p *Profile) bool {
	if p == nil {
		return false
	}
	hasContact := notBlank(p.PrimaryEmail) || notBlank(p.PrimaryPhone)
	return notBlank(p.FullName) && hasContact && notBlank(p.WorkPermitInfo)
}

func hasProfileDepth(p *Profile) bool {
	if p == nil {
		return false
	}
	// Non-empty lists count even when their entries are blank.
	return len(p.Goals) > 0 && len(p.Aspirations) > 0 && len(p.PersonalValues) > 0
}

func notBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Unlocks lists the feature areas opened by the current progress.
type Unlocks struct {
	Phase2Enabled bool `json:"phase2Enabled"`
	Phase3Enabled bool `json:"phase3Enabled"`
	BonusEnabled  bool `json:"bonusEnabled"`
}

func UnlocksFor(state State) Unlocks {
	phase2 := state.Phase1.IsComplete
	phase3 := phase2 && state.Phase2A.IsComplete && state.Phase2B.IsComplete
	return Unlocks{
		Phase2Enabled: phase2,
		Phase3Enabled: phase3,
		BonusEnabled:  phase3 && state.Phase3.IsComplete,
	}
}
