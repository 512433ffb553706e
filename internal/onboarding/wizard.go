package onboarding

type StepID string

const (
	StepCVUpload         StepID = "cv-upload"
	StepExperienceReview StepID = "experience-review"
	StepProfileBasics    StepID = "profile-basics"
	StepComplete         StepID = "complete"
)

// Steps is the linear wizard order.
var Steps = []StepID{StepCVUpload, StepExperienceReview, StepProfileBasics, StepComplete}

// StepIndex returns the position of step in Steps, or -1 when unknown.
func StepIndex(step StepID) int {
	for i, s := range Steps {
		if s == step {
			return i
		}
	}
	return -1
}

func ParseStep(raw string) (StepID, bool) {
	step := StepID(raw)
	return step, StepIndex(step) >= 0
}

// RequiredStep is the earliest step whose phase-1 prerequisite is still
// missing, or StepComplete.
func RequiredStep(state State) StepID {
	switch {
	case state.Phase1.Has(GateCVUploaded):
		return StepCVUpload
	case state.Phase1.Has(GateExperienceCount):
		return StepExperienceReview
	case state.Phase1.Has(GateProfileBasics):
		return StepProfileBasics
	default:
		return StepComplete
	}
}

// ClampStep never lets the user sit ahead of the required step. Unknown
// steps resolve to required.
func ClampStep(desired, required StepID) StepID {
	desiredIndex := StepIndex(desired)
	if desiredIndex < 0 || desiredIndex > StepIndex(required) {
		return required
	}
	return desired
}

func NextStep(current StepID) StepID {
	i := StepIndex(current)
	if i < 0 {
		return Steps[0]
	}
	return Steps[min(i+1, len(Steps)-1)]
}

func PreviousStep(current StepID) StepID {
	i := StepIndex(current)
	if i < 0 {
		return Steps[0]
	}
	return Steps[max(i-1, 0)]
}
