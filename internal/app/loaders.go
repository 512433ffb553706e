package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/julienreichel/on-track-career-os-sub005/internal/badges"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
)

const (
	progressLoadError = "Failed to load progress"
	badgesLoadError   = "Failed to load badges"
	badgesSaveError   = "Failed to save badges"
)

// ProgressView is the progress loader payload. Error is set instead of an
// HTTP failure when the snapshot could not be read.
type ProgressView struct {
	State      *onboarding.State      `json:"state"`
	Unlocks    onboarding.Unlocks     `json:"unlocks"`
	NextAction *onboarding.NextAction `json:"nextAction"`
	Error      *string                `json:"error"`
}

func (s *Service) Progress(ctx context.Context, userID string) ProgressView {
	inputs, err := s.store.ProgressSnapshot(ctx, userID)
	if err != nil {
		s.logger.Error("progress snapshot", zap.String("user_id", userID), zap.Error(err))
		msg := progressLoadError
		return ProgressView{Error: &msg}
	}
	state := onboarding.ComputeState(inputs)
	next := onboarding.NextActionFor(state)
	return ProgressView{
		State:      &state,
		Unlocks:    onboarding.UnlocksFor(state),
		NextAction: &next,
	}
}

// BadgeView lists badge definitions. Earned keeps every badge ever awarded.
type BadgeView struct {
	Catalog     []badges.Definition `json:"catalog"`
	Earned      []badges.Definition `json:"earned"`
	NewlyEarned []badges.Definition `json:"newlyEarned"`
	Error       *string             `json:"error"`
}

// Badges evaluates eligibility and persists newly earned badges. Earned
// badges are never revoked.
func (s *Service) Badges(ctx context.Context, userID string) BadgeView {
	view := BadgeView{
		Catalog:     badges.Catalog(),
		Earned:      []badges.Definition{},
		NewlyEarned: []badges.Definition{},
	}
	fail := func(msg string, err error) BadgeView {
		s.logger.Error("badges", zap.String("user_id", userID), zap.String("stage", msg), zap.Error(err))
		view.Error = &msg
		return view
	}

	inputs, err := s.store.ProgressSnapshot(ctx, userID)
	if err != nil {
		return fail(badgesLoadError, err)
	}
	var existing []badges.ID
	profile, err := s.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
		existing = badges.FilterKnown(profile.EarnedBadges)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fail(badgesLoadError, err)
	}

	diff := badges.DiffBadges(existing, badges.Eligible(inputs, onboarding.ComputeState(inputs)))
	view.Earned = definitions(diff.AllEarned)
	if len(diff.NewlyEarned) == 0 {
		return view
	}
	if err := s.store.UpdateEarnedBadges(ctx, userID, badges.Strings(diff.AllEarned)); err != nil {
		view.Earned = definitions(existing)
		return fail(badgesSaveError, err)
	}
	view.NewlyEarned = definitions(diff.NewlyEarned)
	s.metrics.BadgesAwarded(badges.Strings(diff.NewlyEarned))
	s.logger.Info("badges awarded", zap.String("user_id", userID), zap.Strings("badges", badges.Strings(diff.NewlyEarned)))
	return view
}

func definitions(ids []badges.ID) []badges.Definition {
	out := make([]badges.Definition, 0, len(ids))
	for _, id := range ids {
		if def, ok := badges.Lookup(id); ok {
			out = append(out, def)
		}
	}
	return out
}

// Guidance resolves page guidance. A failed snapshot degrades to neutral
// guidance rather than an error.
func (s *Service) Guidance(ctx context.Context, userID, route string, pageCtx onboarding.Context) (onboarding.Model, error) {
	key, ok := onboarding.ParseRouteKey(route)
	if !ok {
		return onboarding.Model{}, domainError(http.StatusNotFound, "UNKNOWN_ROUTE", "No guidance for route", map[string]any{"route": route})
	}
	var state *onboarding.State
	if inputs, err := s.store.ProgressSnapshot(ctx, userID); err != nil {
		s.logger.Warn("guidance snapshot", zap.String("user_id", userID), zap.Error(err))
	} else {
		computed := onboarding.ComputeState(inputs)
		state = &computed
	}
	return onboarding.Guidance(key, state, pageCtx), nil
}

type OnboardingView struct {
	Step         onboarding.StepID   `json:"step"`
	RequiredStep onboarding.StepID   `json:"requiredStep"`
	StepIndex    int                 `json:"stepIndex"`
	Steps        []onboarding.StepID `json:"steps"`
	Complete     bool                `json:"complete"`
	Previous     onboarding.StepID   `json:"previous"`
	Next         onboarding.StepID   `json:"next"`
}

func (s *Service) onboardingView(step, required onboarding.StepID) OnboardingView {
	return OnboardingView{
		Step:         step,
		RequiredStep: required,
		StepIndex:    onboarding.StepIndex(step),
		Steps:        onboarding.Steps,
		Complete:     required == onboarding.StepComplete,
		Previous:     onboarding.PreviousStep(step),
		Next:         onboarding.ClampStep(onboarding.NextStep(step), required),
	}
}

func (s *Service) requiredStep(ctx context.Context, userID string) (onboarding.StepID, error) {
	inputs, err := s.store.ProgressSnapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	return onboarding.RequiredStep(onboarding.ComputeState(inputs)), nil
}

// Onboarding resumes the wizard at the saved step, clamped so the user
// never sits past an unmet prerequisite.
func (s *Service) Onboarding(ctx context.Context, userID string) (OnboardingView, error) {
	required, err := s.requiredStep(ctx, userID)
	if err != nil {
		return OnboardingView{}, err
	}
	desired := required
	saved, ok, err := s.sessions.LoadOnboardingStep(ctx, userID)
	if err != nil {
		s.logger.Warn("load onboarding step", zap.String("user_id", userID), zap.Error(err))
	} else if ok {
		desired = onboarding.StepID(saved)
	}
	return s.onboardingView(onboarding.ClampStep(desired, required), required), nil
}

func (s *Service) SaveOnboardingStep(ctx context.Context, userID, rawStep string) (OnboardingView, error) {
	desired, ok := onboarding.ParseStep(rawStep)
	if !ok {
		return OnboardingView{}, validationError("step must be one of cv-upload, experience-review, profile-basics, complete")
	}
	required, err := s.requiredStep(ctx, userID)
	if err != nil {
		return OnboardingView{}, err
	}
	step := onboarding.ClampStep(desired, required)
	if err := s.sessions.SaveOnboardingStep(ctx, userID, string(step)); err != nil {
		return OnboardingView{}, err
	}
	return s.onboardingView(step, required), nil
}
