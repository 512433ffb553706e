// Package badges evaluates achievement badges from progress data.
package badges

import "github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"

type ID string

const (
	Grounded            ID = "grounded"
	JobClarity          ID = "jobClarity"
	IdentityDefined     ID = "identityDefined"
	CVTailored          ID = "cvTailored"
	ApplicationComplete ID = "applicationComplete"
	BeyondTheCV         ID = "beyondTheCv"
	CompanyStrategist   ID = "companyStrategist"
	CustomApproach      ID = "customApproach"
)

type Definition struct {
	ID             ID               `json:"id"`
	TitleKey       string           `json:"titleKey"`
	DescriptionKey string           `json:"descriptionKey"`
	Icon           string           `json:"icon"`
	Phase          onboarding.Phase `json:"phase"`

	eligible func(onboarding.Inputs, onboarding.State) bool
}

func define(id ID, icon string, phase onboarding.Phase, eligible func(onboarding.Inputs, onboarding.State) bool) Definition {
	return Definition{
		ID:             id,
		TitleKey:       "badges.catalog." + string(id) + ".title",
		DescriptionKey: "badges.catalog." + string(id) + ".description",
		Icon:           icon,
		Phase:          phase,
		eligible:       eligible,
	}
}

var catalog = []Definition{
	define(Grounded, "i-heroicons-check-badge", onboarding.PhaseOne,
		func(_ onboarding.Inputs, s onboarding.State) bool { return s.Phase1.IsComplete }),
	define(JobClarity, "i-heroicons-light-bulb", onboarding.PhaseTwo,
		func(_ onboarding.Inputs, s onboarding.State) bool { return s.Phase2A.IsComplete }),
	define(IdentityDefined, "i-heroicons-user-circle", onboarding.PhaseTwo,
		func(_ onboarding.Inputs, s onboarding.State) bool { return s.Phase2B.IsComplete }),
	define(CVTailored, "i-heroicons-document-check", onboarding.PhaseThree,
		func(in onboarding.Inputs, _ onboarding.State) bool { return in.TailoredCVCount >= 1 }),
	define(ApplicationComplete, "i-heroicons-clipboard-document-check", onboarding.PhaseThree,
		func(_ onboarding.Inputs, s onboarding.State) bool { return s.Phase3.IsComplete }),
	define(BeyondTheCV, "i-heroicons-sparkles", onboarding.PhaseBonus,
		func(_ onboarding.Inputs, s onboarding.State) bool { return s.Phase == onboarding.PhaseBonus }),
	define(CompanyStrategist, "i-heroicons-building-office", onboarding.PhaseBonus,
		func(in onboarding.Inputs, _ onboarding.State) bool { return in.CompanyCanvasCount >= 1 }),
	define(CustomApproach, "i-heroicons-pencil-square", onboarding.PhaseBonus,
		func(in onboarding.Inputs, _ onboarding.State) bool { return in.HasCustomTemplate }),
}

// Catalog returns the badge definitions in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(id ID) (Definition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}
