package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateUser inserts the account and its empty profile in one transaction.
func (s *PostgresStore) CreateUser(ctx context.Context, displayName, email, passwordHash string) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var user User
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (display_name, email, password_hash)
		VALUES ($1, LOWER($2), $3)
		RETURNING id, display_name, email, password_hash, created_at
	`, displayName, email, passwordHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, full_name, primary_email)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, user.ID, displayName, user.Email); err != nil {
		return User{}, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit create user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Profile

const profileColumns = `full_name, headline, location, primary_email, primary_phone, work_permit_info,
	goals, aspirations, personal_values, strengths, interests, skills, certifications, languages,
	social_links, earned_badges, updated_at`

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE user_id=$1`, userID)
	return scanProfile(row)
}

func scanProfile(row rowScanner) (Profile, error) {
	var profile Profile
	var goals, aspirations, personalValues, strengths, interests, skills, certifications, languages, links, badges []byte
	err := row.Scan(
		&profile.FullName, &profile.Headline, &profile.Location, &profile.PrimaryEmail, &profile.PrimaryPhone,
		&profile.WorkPermitInfo, &goals, &aspirations, &personalValues, &strengths, &interests, &skills,
		&certifications, &languages, &links, &badges, &profile.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	lists := []struct {
		raw  []byte
		dest *[]string
	}{
		{goals, &profile.Goals},
		{aspirations, &profile.Aspirations},
		{personalValues, &profile.PersonalValues},
		{strengths, &profile.Strengths},
		{interests, &profile.Interests},
		{skills, &profile.Skills},
		{certifications, &profile.Certifications},
		{languages, &profile.Languages},
		{links, &profile.SocialLinks},
		{badges, &profile.EarnedBadges},
	}
	for _, list := range lists {
		values, err := decodeStringList(list.raw)
		if err != nil {
			return Profile{}, fmt.Errorf("decode profile list: %w", err)
		}
		*list.dest = values
	}
	return profile, nil
}

// UpsertProfile replaces the profile fields. Earned badges are left alone.
func (s *PostgresStore) UpsertProfile(ctx context.Context, userID string, profile onboarding.Profile) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_profiles (
			user_id, full_name, headline, location, primary_email, primary_phone, work_permit_info,
			goals, aspirations, personal_values, strengths, interests, skills, certifications, languages, social_links
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name=EXCLUDED.full_name,
			headline=EXCLUDED.headline,
			location=EXCLUDED.location,
			primary_email=EXCLUDED.primary_email,
			primary_phone=EXCLUDED.primary_phone,
			work_permit_info=EXCLUDED.work_permit_info,
			goals=EXCLUDED.goals,
			aspirations=EXCLUDED.aspirations,
			personal_values=EXCLUDED.personal_values,
			strengths=EXCLUDED.strengths,
			interests=EXCLUDED.interests,
			skills=EXCLUDED.skills,
			certifications=EXCLUDED.certifications,
			languages=EXCLUDED.languages,
			social_links=EXCLUDED.social_links,
			updated_at=NOW()
		RETURNING `+profileColumns,
		userID, profile.FullName, profile.Headline, profile.Location, profile.PrimaryEmail, profile.PrimaryPhone,
		profile.WorkPermitInfo, encodeStringList(profile.Goals), encodeStringList(profile.Aspirations),
		encodeStringList(profile.PersonalValues), encodeStringList(profile.Strengths), encodeStringList(profile.Interests),
		encodeStringList(profile.Skills), encodeStringList(profile.Certifications), encodeStringList(profile.Languages),
		encodeStringList(profile.SocialLinks),
	)
	saved, err := scanProfile(row)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) UpdateEarnedBadges(ctx context.Context, userID string, badges []string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles SET earned_badges=$2, updated_at=NOW() WHERE user_id=$1
	`, userID, encodeStringList(badges))
	if err != nil {
		return fmt.Errorf("update earned badges: %w", err)
	}
	return requireAffected(result)
}

// ProgressSnapshot collects every count the progress engine needs. The
// profile is nil when the user has none.
func (s *PostgresStore) ProgressSnapshot(ctx context.Context, userID string) (onboarding.Inputs, error) {
	var in onboarding.Inputs
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM materials WHERE owner_id=$1 AND kind='cv'),
			(SELECT COUNT(*) FROM experiences WHERE owner_id=$1),
			(SELECT COUNT(*) FROM stories WHERE owner_id=$1),
			(SELECT COUNT(*) FROM personal_canvases WHERE owner_id=$1),
			(SELECT COUNT(*) FROM job_descriptions WHERE owner_id=$1),
			(SELECT COUNT(*) FROM matching_summaries WHERE owner_id=$1),
			(SELECT COUNT(*) FROM materials WHERE owner_id=$1 AND kind='cv' AND job_id IS NOT NULL),
			(SELECT COUNT(*) FROM materials WHERE owner_id=$1 AND kind='cover_letter' AND job_id IS NOT NULL),
			(SELECT COUNT(*) FROM materials WHERE owner_id=$1 AND kind='speech' AND job_id IS NOT NULL),
			(SELECT COUNT(*) FROM company_canvases WHERE owner_id=$1),
			EXISTS(SELECT 1 FROM materials WHERE owner_id=$1 AND kind='template')
	`, userID).Scan(
		&in.CVCount, &in.ExperiencesCount, &in.StoriesCount, &in.PersonalCanvasCount, &in.JobsCount,
		&in.MatchingSummaryCount, &in.TailoredCVCount, &in.TailoredCoverLetterCount, &in.TailoredSpeechCount,
		&in.CompanyCanvasCount, &in.HasCustomTemplate,
	)
	if err != nil {
		return onboarding.Inputs{}, fmt.Errorf("progress counts: %w", err)
	}

	profile, err := s.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return onboarding.Inputs{}, fmt.Errorf("progress profile: %w", err)
	default:
		in.Profile = &profile.Profile
	}
	return in, nil
}

// Experiences and stories

func (s *PostgresStore) ListExperiences(ctx context.Context, ownerID string) ([]Experience, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, company_name, start_date, end_date, responsibilities, tasks, created_at
		FROM experiences
		WHERE owner_id=$1
		ORDER BY start_date DESC NULLS LAST, created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	items := make([]Experience, 0)
	for rows.Next() {
		item, err := scanExperience(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		item.OwnerID = ownerID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiences: %w", err)
	}
	return items, nil
}

func scanExperience(row rowScanner) (Experience, error) {
	var item Experience
	var responsibilities, tasks []byte
	if err := row.Scan(&item.ID, &item.Title, &item.CompanyName, &item.StartDate, &item.EndDate, &responsibilities, &tasks, &item.CreatedAt); err != nil {
		return Experience{}, err
	}
	var err error
	if item.Responsibilities, err = decodeStringList(responsibilities); err != nil {
		return Experience{}, err
	}
	if item.Tasks, err = decodeStringList(tasks); err != nil {
		return Experience{}, err
	}
	return item, nil
}

func (s *PostgresStore) CreateExperience(ctx context.Context, item Experience) (Experience, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO experiences (owner_id, title, company_name, start_date, end_date, responsibilities, tasks)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, title, company_name, start_date, end_date, responsibilities, tasks, created_at
	`, item.OwnerID, item.Title, item.CompanyName, item.StartDate, item.EndDate,
		encodeStringList(item.Responsibilities), encodeStringList(item.Tasks))
	created, err := scanExperience(row)
	if err != nil {
		return Experience{}, fmt.Errorf("insert experience: %w", err)
	}
	created.OwnerID = item.OwnerID
	return created, nil
}

func (s *PostgresStore) DeleteExperience(ctx context.Context, ownerID, experienceID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM experiences WHERE owner_id=$1 AND id=$2`, ownerID, experienceID)
	if err != nil {
		return fmt.Errorf("delete experience: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStore) ListStories(ctx context.Context, ownerID string) ([]Story, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, experience_id, situation, task, action, result, created_at
		FROM stories
		WHERE owner_id=$1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	items := make([]Story, 0)
	for rows.Next() {
		var item Story
		if err := rows.Scan(&item.ID, &item.ExperienceID, &item.Situation, &item.Task, &item.Action, &item.Result, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		item.OwnerID = ownerID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return items, nil
}

// CreateStory attaches a story to an experience owned by the same user.
// It returns sql.ErrNoRows when the experience does not belong to owner.
func (s *PostgresStore) CreateStory(ctx context.Context, item Story) (Story, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO stories (owner_id, experience_id, situation, task, action, result)
		SELECT $1, e.id, $3, $4, $5, $6
		FROM experiences e
		WHERE e.id=$2 AND e.owner_id=$1
		RETURNING id, created_at
	`, item.OwnerID, item.ExperienceID, item.Situation, item.Task, item.Action, item.Result).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Story{}, err
		}
		return Story{}, fmt.Errorf("insert story: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteStory(ctx context.Context, ownerID, storyID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE owner_id=$1 AND id=$2`, ownerID, storyID)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	return requireAffected(result)
}

// Canvases

func (s *PostgresStore) UpsertPersonalCanvas(ctx context.Context, ownerID string, content json.RawMessage) (PersonalCanvas, error) {
	canvas := PersonalCanvas{OwnerID: ownerID}
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO personal_canvases (owner_id, content)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE SET content=EXCLUDED.content, updated_at=NOW()
		RETURNING content, updated_at
	`, ownerID, jsonObject(content)).Scan(&raw, &canvas.UpdatedAt)
	if err != nil {
		return PersonalCanvas{}, fmt.Errorf("upsert personal canvas: %w", err)
	}
	canvas.Content = json.RawMessage(raw)
	return canvas, nil
}

func (s *PostgresStore) CreateCompanyCanvas(ctx context.Context, item CompanyCanvas) (CompanyCanvas, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO company_canvases (owner_id, company_name, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, item.OwnerID, item.CompanyName, jsonObject(item.Content)).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return CompanyCanvas{}, fmt.Errorf("insert company canvas: %w", err)
	}
	item.Content = json.RawMessage(jsonObject(item.Content))
	return item, nil
}

// Jobs

const jobColumns = `id, title, company_name, raw_text, kanban_status, notes, created_at, updated_at`

func scanJob(row rowScanner) (JobDescription, error) {
	var item JobDescription
	var createdAt time.Time
	var updatedAt sql.NullTime
	if err := row.Scan(&item.ID, &item.Title, &item.CompanyName, &item.RawText, &item.KanbanStatus, &item.Notes, &createdAt, &updatedAt); err != nil {
		return JobDescription{}, err
	}
	item.CreatedAt = &createdAt
	if updatedAt.Valid {
		at := updatedAt.Time
		item.UpdatedAt = &at
	}
	return item, nil
}

func (s *PostgresStore) ListJobDescriptions(ctx context.Context, ownerID string) ([]JobDescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM job_descriptions
		WHERE owner_id=$1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]JobDescription, 0)
	for rows.Next() {
		item, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		item.OwnerID = ownerID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return items, nil
}

// ListJobs implements kanban.JobRepository.
func (s *PostgresStore) ListJobs(ctx context.Context, ownerID string) ([]kanban.Job, error) {
	items, err := s.ListJobDescriptions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	jobs := make([]kanban.Job, 0, len(items))
	for _, item := range items {
		jobs = append(jobs, item.Job)
	}
	return jobs, nil
}

func (s *PostgresStore) GetJobDescription(ctx context.Context, ownerID, jobID string) (JobDescription, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM job_descriptions WHERE owner_id=$1 AND id=$2`, ownerID, jobID)
	item, err := scanJob(row)
	if err != nil {
		return JobDescription{}, err
	}
	item.OwnerID = ownerID
	return item, nil
}

func (s *PostgresStore) CreateJobDescription(ctx context.Context, item JobDescription) (JobDescription, error) {
	status := strings.TrimSpace(item.KanbanStatus)
	if status == "" {
		status = kanban.StageTodo
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO job_descriptions (owner_id, title, company_name, raw_text, kanban_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+jobColumns,
		item.OwnerID, item.Title, item.CompanyName, item.RawText, status, item.Notes)
	created, err := scanJob(row)
	if err != nil {
		return JobDescription{}, fmt.Errorf("insert job: %w", err)
	}
	created.OwnerID = item.OwnerID
	return created, nil
}

func (s *PostgresStore) DeleteJobDescription(ctx context.Context, ownerID, jobID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM job_descriptions WHERE owner_id=$1 AND id=$2`, ownerID, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return requireAffected(result)
}

// UpdateJobStatus implements kanban.JobRepository.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, ownerID, jobID, status string) (kanban.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE job_descriptions SET kanban_status=$3, updated_at=NOW()
		WHERE owner_id=$1 AND id=$2
		RETURNING `+jobColumns, ownerID, jobID, status)
	item, err := scanJob(row)
	if err != nil {
		return kanban.Job{}, err
	}
	return item.Job, nil
}

func (s *PostgresStore) UpdateJobNotes(ctx context.Context, ownerID, jobID, notes string) (JobDescription, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE job_descriptions SET notes=$3, updated_at=NOW()
		WHERE owner_id=$1 AND id=$2
		RETURNING `+jobColumns, ownerID, jobID, notes)
	item, err := scanJob(row)
	if err != nil {
		return JobDescription{}, err
	}
	item.OwnerID = ownerID
	return item, nil
}

// UpsertMatchingSummary keeps one summary per job.
func (s *PostgresStore) UpsertMatchingSummary(ctx context.Context, item MatchingSummary) (MatchingSummary, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO matching_summaries (owner_id, job_id, summary, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, job_id) DO UPDATE SET summary=EXCLUDED.summary, score=EXCLUDED.score, created_at=NOW()
		RETURNING id, created_at
	`, item.OwnerID, item.JobID, item.Summary, item.Score).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return MatchingSummary{}, fmt.Errorf("upsert matching summary: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) HasMatchingSummary(ctx context.Context, ownerID, jobID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM matching_summaries WHERE owner_id=$1 AND job_id=$2)
	`, ownerID, jobID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check matching summary: %w", err)
	}
	return exists, nil
}

// Materials

const materialColumns = `id, kind, job_id, title, content, file_key, created_at, updated_at`

func scanMaterial(row rowScanner) (Material, error) {
	var item Material
	var jobID sql.NullString
	if err := row.Scan(&item.ID, &item.Kind, &jobID, &item.Title, &item.Content, &item.FileKey, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Material{}, err
	}
	if jobID.Valid {
		id := jobID.String
		item.JobID = &id
	}
	return item, nil
}

// ListMaterials returns the user's materials, newest first. An empty kind
// lists every kind.
func (s *PostgresStore) ListMaterials(ctx context.Context, ownerID string, kind MaterialKind) ([]Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE owner_id=$1 AND ($2 = '' OR kind=$2)
		ORDER BY updated_at DESC
	`, ownerID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	items := make([]Material, 0)
	for rows.Next() {
		item, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		item.OwnerID = ownerID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetMaterial(ctx context.Context, ownerID, materialID string) (Material, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+materialColumns+` FROM materials WHERE owner_id=$1 AND id=$2`, ownerID, materialID)
	item, err := scanMaterial(row)
	if err != nil {
		return Material{}, err
	}
	item.OwnerID = ownerID
	return item, nil
}

func (s *PostgresStore) CreateMaterial(ctx context.Context, item Material) (Material, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO materials (owner_id, kind, job_id, title, content, file_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+materialColumns,
		item.OwnerID, string(item.Kind), item.JobID, item.Title, item.Content, item.FileKey)
	created, err := scanMaterial(row)
	if err != nil {
		return Material{}, fmt.Errorf("insert material: %w", err)
	}
	created.OwnerID = item.OwnerID
	return created, nil
}

func (s *PostgresStore) UpdateMaterial(ctx context.Context, item Material) (Material, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE materials SET title=$3, content=$4, job_id=$5, updated_at=NOW()
		WHERE owner_id=$1 AND id=$2
		RETURNING `+materialColumns,
		item.OwnerID, item.ID, item.Title, item.Content, item.JobID)
	updated, err := scanMaterial(row)
	if err != nil {
		return Material{}, err
	}
	updated.OwnerID = item.OwnerID
	return updated, nil
}

func (s *PostgresStore) DeleteMaterial(ctx context.Context, ownerID, materialID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE owner_id=$1 AND id=$2`, ownerID, materialID)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return requireAffected(result)
}

// Kanban settings implement kanban.SettingsRepository.

func (s *PostgresStore) GetKanbanStages(ctx context.Context, userID string) ([]kanban.Stage, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT stages FROM kanban_settings WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read kanban settings: %w", err)
	}
	var stages []kanban.Stage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stages); err != nil {
			return nil, false, fmt.Errorf("decode kanban stages: %w", err)
		}
	}
	return stages, true, nil
}

func (s *PostgresStore) SaveKanbanStages(ctx context.Context, userID string, stages []kanban.Stage) error {
	if stages == nil {
		stages = []kanban.Stage{}
	}
	raw, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("encode kanban stages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kanban_settings (user_id, stages)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET stages=EXCLUDED.stages, updated_at=NOW()
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("save kanban settings: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func encodeStringList(values []string) []byte {
	if values == nil {
		values = []string{}
	}
	raw, _ := json.Marshal(values)
	return raw
}

func decodeStringList(raw []byte) ([]string, error) {
	values := []string{}
	if len(raw) == 0 || string(raw) == "null" {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func jsonObject(raw json.RawMessage) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []byte("{}")
	}
	return []byte(trimmed)
}
