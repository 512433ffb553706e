package onboarding

// RouteKey identifies a page that can show contextual guidance.
type RouteKey string

const (
	RouteProfile                 RouteKey = "profile"
	RouteProfileExperiences      RouteKey = "profile-experiences"
	RouteProfileStories          RouteKey = "profile-stories"
	RouteProfileCanvas           RouteKey = "profile-canvas"
	RouteJobs                    RouteKey = "jobs"
	RouteJobDetail               RouteKey = "job-detail"
	RouteApplicationsCV          RouteKey = "applications-cv"
	RouteApplicationsCoverLetter RouteKey = "applications-cover-letters"
	RouteApplicationsSpeech      RouteKey = "applications-speech"
)

// Routes lists every known route key.
var Routes = []RouteKey{
	RouteProfile,
	RouteProfileExperiences,
	RouteProfileStories,
	RouteProfileCanvas,
	RouteJobs,
	RouteJobDetail,
	RouteApplicationsCV,
	RouteApplicationsCoverLetter,
	RouteApplicationsSpeech,
}

func ParseRouteKey(raw string) (RouteKey, bool) {
	for _, route := range Routes {
		if string(route) == raw {
			return route, true
		}
	}
	return "", false
}

// Context carries page-level counts. A nil count means unknown and is
// treated as non-zero so that no empty state is shown while loading.
type Context struct {
	ExperiencesCount   *int   `json:"experiencesCount,omitempty"`
	StoriesCount       *int   `json:"storiesCount,omitempty"`
	CanvasCount        *int   `json:"canvasCount,omitempty"`
	JobsCount          *int   `json:"jobsCount,omitempty"`
	CVCount            *int   `json:"cvCount,omitempty"`
	CoverLetterCount   *int   `json:"coverLetterCount,omitempty"`
	SpeechCount        *int   `json:"speechCount,omitempty"`
	HasMatchingSummary *bool  `json:"hasMatchingSummary,omitempty"`
	JobID              string `json:"jobId,omitempty"`
	IsGenerating       bool   `json:"isGenerating,omitempty"`
}

// Count returns a pointer for use in Context literals.
func Count(n int) *int { return &n }

func isZero(n *int) bool { return n != nil && *n == 0 }

type CTA struct {
	LabelKey string `json:"labelKey"`
	To       string `json:"to"`
}

type Banner struct {
	TitleKey       string `json:"titleKey"`
	DescriptionKey string `json:"descriptionKey"`
	CTA            *CTA   `json:"cta,omitempty"`
}

type EmptyState struct {
	TitleKey       string `json:"titleKey"`
	DescriptionKey string `json:"descriptionKey"`
	Icon           string `json:"icon,omitempty"`
	CTA            CTA    `json:"cta"`
}

type LockedFeature struct {
	ID             string `json:"id"`
	TitleKey       string `json:"titleKey"`
	DescriptionKey string `json:"descriptionKey"`
	CTA            CTA    `json:"cta"`
}

type Model struct {
	Banner         *Banner         `json:"banner,omitempty"`
	EmptyState     *EmptyState     `json:"emptyState,omitempty"`
	LockedFeatures []LockedFeature `json:"lockedFeatures,omitempty"`
}

type guidanceHandler func(state *State, ctx Context) Model

var guidanceHandlers = map[RouteKey]guidanceHandler{
	RouteProfile:                 profileGuidance,
	RouteProfileExperiences:      profileExperiencesGuidance,
	RouteProfileStories:          profileStoriesGuidance,
	RouteProfileCanvas:           profileCanvasGuidance,
	RouteJobs:                    jobsGuidance,
	RouteJobDetail:               jobDetailGuidance,
	RouteApplicationsCV:          applicationsGuidance("cv-locked", func(c Context) *int { return c.CVCount }, applicationsCVEmpty),
	RouteApplicationsCoverLetter: applicationsGuidance("cover-letters-locked", func(c Context) *int { return c.CoverLetterCount }, applicationsCoverLetterEmpty),
	RouteApplicationsSpeech:      applicationsGuidance("speech-locked", func(c Context) *int { return c.SpeechCount }, applicationsSpeechEmpty),
}

// Guidance resolves the banner, empty state and locked features for a
// route. A nil state yields no banner and no locks; an unknown route yields
// an empty model.
func Guidance(route RouteKey, state *State, ctx Context) Model {
	handler, ok := guidanceHandlers[route]
	if !ok {
		return Model{}
	}
	return handler(state, ctx)
}

func banner(prefix string, to string) *Banner {
	return &Banner{
		TitleKey:       prefix + ".title",
		DescriptionKey: prefix + ".description",
		CTA:            &CTA{LabelKey: prefix + ".cta", To: to},
	}
}

var profileBanners = map[Gate]*Banner{
	GateCVUploaded:      banner("guidance.profile.banner.cv", "/onboarding"),
	GateExperienceCount: banner("guidance.profile.banner.experiences", "/profile/experiences/new"),
	GateProfileBasics:   banner("guidance.profile.banner.basics", "/profile/full?mode=edit"),
	GateProfileDepth:    banner("guidance.profile.banner.profileDepth", "/profile/full?mode=edit"),
	GateStories:         banner("guidance.profile.banner.stories", "/profile/stories/new"),
	GatePersonalCanvas:  banner("guidance.profile.banner.personalCanvas", "/profile/canvas"),
}

// firstBanner returns the banner for the first missing gate that has one.
func firstBanner(banners map[Gate]*Banner, missing ...[]Gate) *Banner {
	for _, gates := range missing {
		for _, gate := range gates {
			if b, ok := banners[gate]; ok {
				copied := *b
				if b.CTA != nil {
					cta := *b.CTA
					copied.CTA = &cta
				}
				return &copied
			}
		}
	}
	return nil
}

func profileGuidance(state *State, _ Context) Model {
	if state == nil {
		return Model{}
	}
	missing := [][]Gate{state.Phase1.Missing}
	if state.Phase1.IsComplete {
		missing = append(missing, state.Phase2B.Missing)
	}
	return Model{Banner: firstBanner(profileBanners, missing...)}
}

var profileExperiencesBanners = map[Gate]*Banner{
	GateCVUploaded:      banner("guidance.profileExperiences.banner.cv", "/onboarding"),
	GateExperienceCount: banner("guidance.profileExperiences.banner.experience", "/profile/experiences/new"),
}

func profileExperiencesGuidance(state *State, _ Context) Model {
	if state == nil {
		return Model{}
	}
	return Model{Banner: firstBanner(profileExperiencesBanners, state.Phase1.Missing)}
}

func profileStoriesGuidance(state *State, ctx Context) Model {
	if state == nil {
		return Model{}
	}
	switch {
	case state.Phase1.Has(GateCVUploaded):
		return Model{LockedFeatures: []LockedFeature{{
			ID:             "stories-locked",
			TitleKey:       "guidance.profileStories.locked.title",
			DescriptionKey: "guidance.profileExperiences.banner.cv.title",
			CTA:            CTA{LabelKey: "guidance.profileExperiences.banner.cv.cta", To: "/onboarding"},
		}}}
	case state.Phase1.Has(GateExperienceCount):
		return Model{LockedFeatures: []LockedFeature{{
			ID:             "stories-locked",
			TitleKey:       "guidance.profileStories.locked.title",
			DescriptionKey: "guidance.profileStories.locked.description",
			CTA:            CTA{LabelKey: "guidance.profileStories.locked.cta", To: "/profile/experiences"},
		}}}
	}
	if !isZero(ctx.StoriesCount) {
		return Model{}
	}
	return Model{EmptyState: &EmptyState{
		TitleKey:       "guidance.profileStories.empty.title",
		DescriptionKey: "guidance.profileStories.empty.description",
		Icon:           "i-heroicons-star",
		CTA:            CTA{LabelKey: "guidance.profileStories.empty.cta", To: "/profile/stories/new"},
	}}
}

func profileCanvasGuidance(state *State, _ Context) Model {
	if state == nil {
		return Model{}
	}
	if !state.Phase2B.Has(GateProfileDepth) && !state.Phase2B.Has(GateStories) {
		return Model{}
	}

	feature := LockedFeature{ID: "canvas", TitleKey: "guidance.profileCanvas.locked.title"}
	switch {
	case state.Phase1.Has(GateCVUploaded):
		feature.DescriptionKey = "guidance.profile.banner.cv.title"
		feature.CTA = CTA{LabelKey: "guidance.profile.banner.cv.cta", To: "/onboarding"}
	case state.Phase1.Has(GateExperienceCount):
		feature.DescriptionKey = "guidance.profile.banner.experiences.title"
		feature.CTA = CTA{LabelKey: "guidance.profile.banner.experiences.cta", To: "/profile/experiences/new"}
	case state.Phase2B.Has(GateProfileDepth):
		feature.DescriptionKey = "guidance.profileCanvas.locked.descriptionProfileDepth"
		feature.CTA = CTA{LabelKey: "guidance.profileCanvas.locked.ctaProfileDepth", To: "/profile/full?mode=edit"}
	default:
		feature.DescriptionKey = "guidance.profileCanvas.locked.descriptionStories"
		feature.CTA = CTA{LabelKey: "guidance.profileCanvas.locked.ctaStories", To: "/profile/stories/new"}
	}
	return Model{LockedFeatures: []LockedFeature{feature}}
}

// missingMatch reports whether the page shows a job without a matching
// summary while the matching-summary gate is still open.
func missingMatch(state *State, ctx Context) bool {
	if ctx.JobID == "" || ctx.HasMatchingSummary == nil || *ctx.HasMatchingSummary {
		return false
	}
	return state != nil && state.Phase2A.Has(GateMatchingSummary)
}

func jobsGuidance(state *State, ctx Context) Model {
	if !isZero(ctx.JobsCount) {
		if missingMatch(state, ctx) {
			b := banner("guidance.jobs.banner.matchMissing", "/jobs/"+ctx.JobID+"/match")
			return Model{Banner: b}
		}
		return Model{}
	}
	return Model{EmptyState: &EmptyState{
		TitleKey:       "guidance.jobs.empty.title",
		DescriptionKey: "guidance.jobs.empty.description",
		Icon:           "i-heroicons-briefcase",
		CTA:            CTA{LabelKey: "guidance.jobs.empty.cta", To: "/jobs/new"},
	}}
}

func jobDetailGuidance(state *State, ctx Context) Model {
	if !missingMatch(state, ctx) {
		return Model{}
	}
	return Model{Banner: banner("guidance.jobDetail.banner", "/jobs/"+ctx.JobID+"/match")}
}

type lockRule struct {
	gate   Gate
	prefix string
	to     string
}

// Identity prerequisites are reported before job prerequisites.
var applicationLockRules = []lockRule{
	{GateProfileDepth, "guidance.applications.lockedProfileDepth", "/profile/full?mode=edit"},
	{GateStories, "guidance.applications.lockedStories", "/profile/stories"},
	{GatePersonalCanvas, "guidance.applications.lockedCanvas", "/profile/canvas"},
	{GateJobUploaded, "guidance.applications.lockedJob", "/jobs/new"},
	{GateMatchingSummary, "guidance.applications.lockedMatchingSummary", "/jobs"},
}

func lockedFeature(id, prefix, to string) LockedFeature {
	return LockedFeature{
		ID:             id,
		TitleKey:       prefix + ".title",
		DescriptionKey: prefix + ".description",
		CTA:            CTA{LabelKey: prefix + ".cta", To: to},
	}
}

func applicationsLocked(state *State, id string) []LockedFeature {
	if state == nil {
		return nil
	}
	if !state.Phase1.IsComplete {
		return []LockedFeature{lockedFeature(id, "guidance.applications.lockedPhase1", "/profile/experiences")}
	}
	if state.Phase2A.IsComplete && state.Phase2B.IsComplete {
		return nil
	}
	for _, rule := range applicationLockRules {
		if state.Phase2A.Has(rule.gate) || state.Phase2B.Has(rule.gate) {
			return []LockedFeature{lockedFeature(id, rule.prefix, rule.to)}
		}
	}
	return []LockedFeature{lockedFeature(id, "guidance.applications.locked", "/jobs")}
}

func applicationsGuidance(id string, count func(Context) *int, empty EmptyState) guidanceHandler {
	return func(state *State, ctx Context) Model {
		locked := applicationsLocked(state, id)
		if len(locked) > 0 || !isZero(count(ctx)) {
			return Model{LockedFeatures: locked}
		}
		copied := empty
		return Model{EmptyState: &copied}
	}
}

var (
	applicationsCVEmpty = EmptyState{
		TitleKey:       "guidance.applications.cv.empty.title",
		DescriptionKey: "guidance.applications.cv.empty.description",
		Icon:           "i-heroicons-document-text",
		CTA:            CTA{LabelKey: "guidance.applications.cv.empty.cta", To: "/applications/cv/new"},
	}
	applicationsCoverLetterEmpty = EmptyState{
		TitleKey:       "guidance.applications.coverLetters.empty.title",
		DescriptionKey: "guidance.applications.coverLetters.empty.description",
		Icon:           "i-heroicons-envelope",
		CTA:            CTA{LabelKey: "guidance.applications.coverLetters.empty.cta", To: "/applications/cover-letters/new"},
	}
	applicationsSpeechEmpty = EmptyState{
		TitleKey:       "guidance.applications.speech.empty.title",
		DescriptionKey: "guidance.applications.speech.empty.description",
		Icon:           "i-heroicons-chat-bubble-left-right",
		CTA:            CTA{LabelKey: "guidance.applications.speech.empty.cta", To: "/applications/speech/new"},
	}
)
