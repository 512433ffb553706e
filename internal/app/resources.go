package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/julienreichel/on-track-career-os-sub005/internal/export"
	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
	"github.com/julienreichel/on-track-career-os-sub005/internal/revisions"
	"github.com/julienreichel/on-track-career-os-sub005/internal/search"
	"github.com/julienreichel/on-track-career-os-sub005/internal/storage"
	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
)

const defaultHistoryLimit = 50

var errUploadsDisabled = domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "File uploads are not configured", nil)

func (s *Service) Profile(ctx context.Context, userID string) (store.Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, profile onboarding.Profile) (store.Profile, error) {
	if profile.PrimaryEmail != "" && !strings.Contains(profile.PrimaryEmail, "@") {
		return store.Profile{}, validationError("primaryEmail is invalid")
	}
	return s.store.UpsertProfile(ctx, userID, profile)
}

// Experiences

func (s *Service) Experiences(ctx context.Context, userID string) ([]store.Experience, error) {
	return s.store.ListExperiences(ctx, userID)
}

func (s *Service) CreateExperience(ctx context.Context, userID string, item store.Experience) (store.Experience, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return store.Experience{}, validationError("title is required")
	}
	if item.StartDate != nil && item.EndDate != nil && item.EndDate.Before(*item.StartDate) {
		return store.Experience{}, validationError("endDate must not be before startDate")
	}
	item.OwnerID = userID
	return s.store.CreateExperience(ctx, item)
}

func (s *Service) DeleteExperience(ctx context.Context, userID, experienceID string) error {
	return s.store.DeleteExperience(ctx, userID, experienceID)
}

func (s *Service) Stories(ctx context.Context, userID string) ([]store.Story, error) {
	return s.store.ListStories(ctx, userID)
}

// CreateStory attaches a STAR story to one of the user's experiences.
func (s *Service) CreateStory(ctx context.Context, userID, experienceID string, item store.Story) (store.Story, error) {
	if strings.TrimSpace(item.Situation+item.Task+item.Action+item.Result) == "" {
		return store.Story{}, validationError("story must not be empty")
	}
	item.OwnerID = userID
	item.ExperienceID = experienceID
	created, err := s.store.CreateStory(ctx, item)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Story{}, domainError(http.StatusNotFound, "NOT_FOUND", "Experience not found", nil)
	}
	return created, err
}

func (s *Service) DeleteStory(ctx context.Context, userID, storyID string) error {
	return s.store.DeleteStory(ctx, userID, storyID)
}

// Canvases

func (s *Service) SavePersonalCanvas(ctx context.Context, userID string, content json.RawMessage) (store.PersonalCanvas, error) {
	if !isJSONObject(content) {
		return store.PersonalCanvas{}, validationError("content must be a JSON object")
	}
	return s.store.UpsertPersonalCanvas(ctx, userID, content)
}

func (s *Service) CreateCompanyCanvas(ctx context.Context, userID string, item store.CompanyCanvas) (store.CompanyCanvas, error) {
	item.CompanyName = strings.TrimSpace(item.CompanyName)
	if item.CompanyName == "" {
		return store.CompanyCanvas{}, validationError("companyName is required")
	}
	if len(item.Content) > 0 && !isJSONObject(item.Content) {
		return store.CompanyCanvas{}, validationError("content must be a JSON object")
	}
	item.OwnerID = userID
	return s.store.CreateCompanyCanvas(ctx, item)
}

func isJSONObject(raw json.RawMessage) bool {
	var object map[string]any
	return json.Unmarshal(raw, &object) == nil && object != nil
}

// Jobs

func jobRecord(userID string, job store.JobDescription) search.JobRecord {
	return search.JobRecord{
		ID:          job.ID,
		OwnerID:     userID,
		Title:       job.Title,
		CompanyName: job.CompanyName,
		Body:        job.RawText,
		Status:      job.KanbanStatus,
	}
}

func (s *Service) Jobs(ctx context.Context, userID string) ([]store.JobDescription, error) {
	return s.store.ListJobDescriptions(ctx, userID)
}

func (s *Service) Job(ctx context.Context, userID, jobID string) (store.JobDescription, error) {
	return s.store.GetJobDescription(ctx, userID, jobID)
}

// CreateJob stores a job description. A status outside the user's stages
// is reset to todo.
func (s *Service) CreateJob(ctx context.Context, userID string, item store.JobDescription) (store.JobDescription, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return store.JobDescription{}, validationError("title is required")
	}
	if item.KanbanStatus != "" {
		stages, err := s.KanbanStages(ctx, userID)
		if err != nil {
			return store.JobDescription{}, err
		}
		item.KanbanStatus = kanban.NormalizeStatus(kanban.Job{KanbanStatus: item.KanbanStatus}, stages)
	}
	item.OwnerID = userID
	created, err := s.store.CreateJobDescription(ctx, item)
	if err != nil {
		return store.JobDescription{}, err
	}
	s.search.IndexJob(jobRecord(userID, created))
	return created, nil
}

func (s *Service) DeleteJob(ctx context.Context, userID, jobID string) error {
	if err := s.store.DeleteJobDescription(ctx, userID, jobID); err != nil {
		return err
	}
	s.search.DeleteJob(jobID)
	return nil
}

func (s *Service) UpdateJobNotes(ctx context.Context, userID, jobID, notes string) (store.JobDescription, error) {
	updated, err := s.store.UpdateJobNotes(ctx, userID, jobID, notes)
	if err != nil {
		return store.JobDescription{}, err
	}
	s.search.IndexJob(jobRecord(userID, updated))
	return updated, nil
}

func (s *Service) SaveMatchingSummary(ctx context.Context, userID, jobID string, item store.MatchingSummary) (store.MatchingSummary, error) {
	if strings.TrimSpace(item.Summary) == "" {
		return store.MatchingSummary{}, validationError("summary is required")
	}
	if item.Score < 0 || item.Score > 100 {
		return store.MatchingSummary{}, validationError("score must be between 0 and 100")
	}
	if _, err := s.store.GetJobDescription(ctx, userID, jobID); err != nil {
		return store.MatchingSummary{}, err
	}
	item.OwnerID = userID
	item.JobID = jobID
	return s.store.UpsertMatchingSummary(ctx, item)
}

// Materials

type MaterialInput struct {
	Kind    store.MaterialKind `json:"kind"`
	JobID   *string            `json:"jobId"`
	Title   string             `json:"title"`
	Content string             `json:"content"`
	// Message is an optional revision message.
	Message string `json:"message"`
}

// MaterialView adds a presigned download link for uploaded files.
type MaterialView struct {
	store.Material
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func materialRecord(userID string, m store.Material) search.MaterialRecord {
	record := search.MaterialRecord{
		ID:      m.ID,
		OwnerID: userID,
		Kind:    string(m.Kind),
		Title:   m.Title,
		Content: m.Content,
	}
	if m.JobID != nil {
		record.JobID = *m.JobID
	}
	return record
}

func (s *Service) Materials(ctx context.Context, userID, kind string) ([]store.Material, error) {
	materialKind := store.MaterialKind(kind)
	if kind != "" && !materialKind.Valid() {
		return nil, validationError("kind must be one of cv, cover_letter, speech, template")
	}
	return s.store.ListMaterials(ctx, userID, materialKind)
}

func (s *Service) Material(ctx context.Context, userID, materialID string) (MaterialView, error) {
	material, err := s.store.GetMaterial(ctx, userID, materialID)
	if err != nil {
		return MaterialView{}, err
	}
	view := MaterialView{Material: material}
	if material.FileKey != "" && s.uploads != nil {
		link, err := s.uploads.DownloadURL(ctx, material.FileKey)
		if err != nil {
			s.logger.Warn("presign download", zap.String("material_id", material.ID), zap.Error(err))
		} else {
			view.DownloadURL = link
		}
	}
	return view, nil
}

// resolveJobID checks that a tailoring target belongs to the user. Blank
// ids mean "not tailored".
func (s *Service) resolveJobID(ctx context.Context, userID string, jobID *string) (*string, error) {
	if jobID == nil || strings.TrimSpace(*jobID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*jobID)
	if _, err := s.store.GetJobDescription(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, validationError("jobId does not match any of your jobs")
		}
		return nil, err
	}
	return &id, nil
}

func (s *Service) CreateMaterial(ctx context.Context, sess Session, input MaterialInput) (store.Material, error) {
	if !input.Kind.Valid() {
		return store.Material{}, validationError("kind must be one of cv, cover_letter, speech, template")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return store.Material{}, validationError("title is required")
	}
	jobID, err := s.resolveJobID(ctx, sess.UserID, input.JobID)
	if err != nil {
		return store.Material{}, err
	}
	created, err := s.store.CreateMaterial(ctx, store.Material{
		OwnerID: sess.UserID,
		Kind:    input.Kind,
		JobID:   jobID,
		Title:   input.Title,
		Content: input.Content,
	})
	if err != nil {
		return store.Material{}, err
	}
	s.afterMaterialWrite(sess, created, firstNonEmpty(input.Message, "Create "+created.Title))
	return created, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, sess Session, materialID string, input MaterialInput) (store.Material, error) {
	current, err := s.store.GetMaterial(ctx, sess.UserID, materialID)
	if err != nil {
		return store.Material{}, err
	}
	if input.Kind != "" && input.Kind != current.Kind {
		return store.Material{}, validationError("kind cannot be changed")
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		current.Title = title
	}
	current.Content = input.Content
	jobID, err := s.resolveJobID(ctx, sess.UserID, input.JobID)
	if err != nil {
		return store.Material{}, err
	}
	current.JobID = jobID

	updated, err := s.store.UpdateMaterial(ctx, current)
	if err != nil {
		return store.Material{}, err
	}
	s.afterMaterialWrite(sess, updated, input.Message)
	return updated, nil
}

// afterMaterialWrite refreshes the search index and records a revision.
// Neither failure undoes the write.
func (s *Service) afterMaterialWrite(sess Session, m store.Material, message string) {
	s.search.IndexMaterial(materialRecord(sess.UserID, m))
	content := revisions.Content{Title: m.Title, Kind: string(m.Kind), Body: m.Content}
	if m.JobID != nil {
		content.JobID = *m.JobID
	}
	if _, err := s.revisions.Commit(m.ID, content, sess.UserName, message); err != nil {
		s.logger.Warn("record material revision", zap.String("material_id", m.ID), zap.Error(err))
	}
}

func (s *Service) DeleteMaterial(ctx context.Context, userID, materialID string) error {
	material, err := s.store.GetMaterial(ctx, userID, materialID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMaterial(ctx, userID, materialID); err != nil {
		return err
	}
	s.search.DeleteMaterial(materialID)
	if err := s.revisions.Remove(materialID); err != nil {
		s.logger.Warn("remove material history", zap.String("material_id", materialID), zap.Error(err))
	}
	if material.FileKey != "" && s.uploads != nil {
		if err := s.uploads.Delete(ctx, material.FileKey); err != nil {
			s.logger.Warn("delete uploaded file", zap.String("key", material.FileKey), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) MaterialHistory(ctx context.Context, userID, materialID string, limit int) ([]revisions.Revision, error) {
	if _, err := s.store.GetMaterial(ctx, userID, materialID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.revisions.History(materialID, limit)
}

func (s *Service) MaterialRevision(ctx context.Context, userID, materialID, hash string) (revisions.Content, error) {
	if _, err := s.store.GetMaterial(ctx, userID, materialID); err != nil {
		return revisions.Content{}, err
	}
	content, err := s.revisions.ContentAt(materialID, hash)
	if errors.Is(err, revisions.ErrNotFound) {
		return revisions.Content{}, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	return content, err
}

func (s *Service) ExportMaterial(ctx context.Context, sess Session, materialID string, format export.Format) (*export.Result, error) {
	material, err := s.store.GetMaterial(ctx, sess.UserID, materialID)
	if err != nil {
		return nil, err
	}
	doc := export.Document{
		Title:     material.Title,
		Kind:      string(material.Kind),
		Author:    sess.UserName,
		Content:   material.Content,
		UpdatedAt: material.UpdatedAt,
	}
	if material.JobID != nil {
		if job, err := s.store.GetJobDescription(ctx, sess.UserID, *material.JobID); err == nil {
			doc.Company = job.CompanyName
		}
	}

	result, err := s.exporter.Export(ctx, doc, format)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, export.ErrContentUnavailable):
		return nil, domainError(http.StatusUnprocessableEntity, "EXPORT_EMPTY", "Material has no content to export", nil)
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
	default:
		return nil, fmt.Errorf("export material %s: %w", materialID, err)
	}
}

// UploadCV stores the file and creates a CV material pointing at it. The
// object is removed again if the material cannot be created.
func (s *Service) UploadCV(ctx context.Context, sess Session, filename, contentType string, body io.Reader, size int64, title, text string) (MaterialView, error) {
	if s.uploads == nil {
		return MaterialView{}, errUploadsDisabled
	}
	object, err := s.uploads.PutCV(ctx, sess.UserID, filename, body, size, contentType)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrEmptyUpload), errors.Is(err, storage.ErrUnsupportedMedia):
		return MaterialView{}, validationError(err.Error())
	case errors.Is(err, storage.ErrUploadTooLarge):
		return MaterialView{}, domainError(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error(), nil)
	default:
		return MaterialView{}, err
	}

	title = firstNonEmpty(strings.TrimSpace(title), strings.TrimSpace(filename), "CV "+s.now().Format(time.DateOnly))
	created, err := s.store.CreateMaterial(ctx, store.Material{
		OwnerID: sess.UserID,
		Kind:    store.MaterialCV,
		Title:   title,
		Content: text,
		FileKey: object.Key,
	})
	if err != nil {
		if delErr := s.uploads.Delete(ctx, object.Key); delErr != nil {
			s.logger.Warn("clean up orphaned upload", zap.String("key", object.Key), zap.Error(delErr))
		}
		return MaterialView{}, err
	}
	s.afterMaterialWrite(sess, created, "Upload "+title)

	view := MaterialView{Material: created}
	if link, err := s.uploads.DownloadURL(ctx, object.Key); err == nil {
		view.DownloadURL = link
	}
	return view, nil
}

// Search runs a per-user search over jobs and materials.
func (s *Service) Search(ctx context.Context, userID, text, filterType string, limit, offset int) (search.Response, error) {
	resultType, ok := search.ParseResultType(filterType)
	if !ok {
		return search.Response{}, validationError("type must be job or material")
	}
	if limit > 100 {
		limit = 100
	}
	resp := s.search.Search(ctx, search.Query{
		Text:       strings.TrimSpace(text),
		OwnerID:    userID,
		FilterType: resultType,
		Limit:      limit,
		Offset:     offset,
	})
	s.metrics.SearchQuery(resp.Backend)
	return resp, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
