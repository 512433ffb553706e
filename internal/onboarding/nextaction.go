package onboarding

// Action is a single suggested step with i18n keys and a target route.
type Action struct {
	ID           string `json:"id"`
	LabelKey     string `json:"labelKey"`
	RationaleKey string `json:"rationaleKey"`
	To           string `json:"to"`
}

type NextAction struct {
	Phase                Phase    `json:"phase"`
	Primary              Action   `json:"primary"`
	Secondary            []Action `json:"secondary"`
	MissingPrerequisites []Gate   `json:"missingPrerequisites"`
}

var (
	actionUploadCV          = Action{"upload-cv", "progress.actions.uploadCv", "progress.rationale.cvUpload", "/profile/cv-upload"}
	actionAddExperiences    = Action{"add-experiences", "progress.actions.addExperiences", "progress.rationale.experiences", "/profile/experiences"}
	actionCompleteProfile   = Action{"complete-profile", "progress.actions.completeProfile", "progress.rationale.profileBasics", "/profile"}
	actionProfileDepth      = Action{"profile-depth", "progress.actions.profileDepth", "progress.rationale.profileDepth", "/profile"}
	actionAddStories        = Action{"add-stories", "progress.actions.addStories", "progress.rationale.stories", "/profile/stories"}
	actionBuildCanvas       = Action{"build-canvas", "progress.actions.buildCanvas", "progress.rationale.personalCanvas", "/profile/canvas"}
	actionUploadJob         = Action{"upload-job", "progress.actions.uploadJob", "progress.rationale.jobUpload", "/jobs/new"}
	actionGenerateMatch     = Action{"generate-match", "progress.actions.generateMatch", "progress.rationale.matchingSummary", "/jobs"}
	actionTailorMaterials   = Action{"tailor-materials", "progress.actions.tailorMaterials", "progress.rationale.tailoredMaterials", "/jobs"}
	actionOptimizeMaterials = Action{"optimize-materials", "progress.actions.optimizeMaterials", "progress.rationale.bonus", "/applications/cv"}
)

// NextActionFor picks the most useful step for the current phase. In
// phase 2 the identity path is suggested before the job path.
func NextActionFor(state State) NextAction {
	switch {
	case !state.Phase1.IsComplete:
		return NextAction{
			Phase:                PhaseOne,
			Primary:              phase1Primary(state),
			Secondary:            []Action{},
			MissingPrerequisites: cloneGates(state.Phase1.Missing),
		}
	case !state.Phase2A.IsComplete || !state.Phase2B.IsComplete:
		missing := append(cloneGates(state.Phase2A.Missing), state.Phase2B.Missing...)
		return NextAction{
			Phase:                PhaseTwo,
			Primary:              phase2Primary(state),
			Secondary:            phase2Secondary(state),
			MissingPrerequisites: missing,
		}
	case !state.Phase3.IsComplete:
		return NextAction{
			Phase:                PhaseThree,
			Primary:              actionTailorMaterials,
			Secondary:            []Action{},
			MissingPrerequisites: cloneGates(state.Phase3.Missing),
		}
	default:
		return NextAction{
			Phase:                PhaseBonus,
			Primary:              actionOptimizeMaterials,
			Secondary:            []Action{},
			MissingPrerequisites: []Gate{},
		}
	}
}

func phase1Primary(state State) Action {
	switch {
	case state.Phase1.Has(GateCVUploaded):
		return actionUploadCV
	case state.Phase1.Has(GateExperienceCount):
		return actionAddExperiences
	default:
		return actionCompleteProfile
	}
}

func phase2Primary(state State) Action {
	if !state.Phase2B.IsComplete {
		switch {
		case state.Phase2B.Has(GateProfileDepth):
			return actionProfileDepth
		case state.Phase2B.Has(GateStories):
			return actionAddStories
		default:
			return actionBuildCanvas
		}
	}
	if state.Phase2A.Has(GateJobUploaded) {
		return actionUploadJob
	}
	return actionGenerateMatch
}

func phase2Secondary(state State) []Action {
	switch {
	case !state.Phase2B.IsComplete && state.Phase2A.IsComplete:
		return []Action{actionProfileDepth, actionAddStories}
	case state.Phase2B.IsComplete && !state.Phase2A.IsComplete:
		return []Action{actionUploadJob, actionGenerateMatch}
	default:
		return []Action{actionProfileDepth, actionUploadJob}
	}
}

func cloneGates(gates []Gate) []Gate {
	out := make([]Gate, len(gates))
	copy(out, gates)
	return out
}
