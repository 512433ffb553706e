package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/julienreichel/on-track-career-os-sub005/internal/auth"
	"github.com/julienreichel/on-track-career-os-sub005/internal/authpw"
	"github.com/julienreichel/on-track-career-os-sub005/internal/config"
	"github.com/julienreichel/on-track-career-os-sub005/internal/export"
	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
	"github.com/julienreichel/on-track-career-os-sub005/internal/logging"
	"github.com/julienreichel/on-track-career-os-sub005/internal/metrics"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
	"github.com/julienreichel/on-track-career-os-sub005/internal/revisions"
	"github.com/julienreichel/on-track-career-os-sub005/internal/search"
	"github.com/julienreichel/on-track-career-os-sub005/internal/session"
	"github.com/julienreichel/on-track-career-os-sub005/internal/storage"
	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
	"github.com/julienreichel/on-track-career-os-sub005/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	authpw.UserStore
	kanban.JobRepository
	kanban.SettingsRepository
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	GetProfile(context.Context, string) (store.Profile, error)
	UpsertProfile(context.Context, string, onboarding.Profile) (store.Profile, error)
	UpdateEarnedBadges(context.Context, string, []string) error
	ProgressSnapshot(context.Context, string) (onboarding.Inputs, error)
	ListExperiences(context.Context, string) ([]store.Experience, error)
	CreateExperience(context.Context, store.Experience) (store.Experience, error)
	DeleteExperience(context.Context, string, string) error
	ListStories(context.Context, string) ([]store.Story, error)
	CreateStory(context.Context, store.Story) (store.Story, error)
	DeleteStory(context.Context, string, string) error
	UpsertPersonalCanvas(context.Context, string, json.RawMessage) (store.PersonalCanvas, error)
	CreateCompanyCanvas(context.Context, store.CompanyCanvas) (store.CompanyCanvas, error)
	ListJobDescriptions(context.Context, string) ([]store.JobDescription, error)
	GetJobDescription(context.Context, string, string) (store.JobDescription, error)
	CreateJobDescription(context.Context, store.JobDescription) (store.JobDescription, error)
	DeleteJobDescription(context.Context, string, string) error
	UpdateJobNotes(context.Context, string, string, string) (store.JobDescription, error)
	UpsertMatchingSummary(context.Context, store.MatchingSummary) (store.MatchingSummary, error)
	ListMaterials(context.Context, string, store.MaterialKind) ([]store.Material, error)
	GetMaterial(context.Context, string, string) (store.Material, error)
	CreateMaterial(context.Context, store.Material) (store.Material, error)
	UpdateMaterial(context.Context, store.Material) (store.Material, error)
	DeleteMaterial(context.Context, string, string) error
	Ping(context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(context.Context, string, store.User, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	SaveOnboardingStep(context.Context, string, string) error
	LoadOnboardingStep(context.Context, string) (string, bool, error)
}

type searchIndex interface {
	Search(context.Context, search.Query) search.Response
	IndexJob(search.JobRecord)
	IndexMaterial(search.MaterialRecord)
	DeleteJob(string)
	DeleteMaterial(string)
}

type objectStore interface {
	PutCV(ctx context.Context, ownerID, filename string, body io.Reader, size int64, contentType string) (storage.Object, error)
	DownloadURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type exporter interface {
	Export(context.Context, export.Document, export.Format) (*export.Result, error)
}

type revisionLog interface {
	Commit(materialID string, content revisions.Content, author, message string) (revisions.Revision, error)
	History(materialID string, limit int) ([]revisions.Revision, error)
	ContentAt(materialID, hash string) (revisions.Content, error)
	Remove(materialID string) error
}

// Dependencies are the collaborators wired by main. Uploads may be nil.
type Dependencies struct {
	Store     *store.PostgresStore
	Sessions  *session.RedisStore
	Search    *search.Service
	Uploads   *storage.Storage
	Exporter  *export.Service
	Revisions *revisions.Service
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	accounts  *authpw.Service
	tokens    *auth.Signer
	search    searchIndex
	uploads   objectStore
	exporter  exporter
	revisions revisionLog
	metrics   *metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, deps Dependencies) *Service {
	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  deps.Sessions,
		accounts:  authpw.NewService(deps.Store),
		tokens:    auth.NewSigner(cfg.JWTSecret, cfg.AccessTTL),
		search:    deps.Search,
		exporter:  deps.Exporter,
		revisions: deps.Revisions,
		metrics:   deps.Metrics,
		logger:    logging.OrNop(deps.Logger).Named("app"),
		now:       time.Now,
	}
	if deps.Uploads != nil {
		s.uploads = deps.Uploads
	}
	return s
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.accounts.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("account created", zap.String("user_id", user.ID))
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.accounts.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	token, claims, err := s.tokens.Issue(user.ID, user.DisplayName, user.Email, util.NewID("jti"), now)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          claims.TokenID,
		ExpiresAt:    claims.Expiry(),
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.tokens.Parse(token, s.now())
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.TokenID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		JTI:       claims.TokenID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

// Logout revokes whatever it is given. Failures are logged, not returned.
func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) {
	if sess.JTI != "" {
		if err := s.store.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt); err != nil {
			s.logger.Warn("revoke access token", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("revoke refresh token", zap.Error(err))
		}
	}
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) UploadsEnabled() bool {
	return s.uploads != nil
}
