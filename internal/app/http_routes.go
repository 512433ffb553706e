package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienreichel/on-track-career-os-sub005/internal/export"
	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
	"github.com/julienreichel/on-track-career-os-sub005/internal/storage"
	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
)

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) != 0 {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		profile, err := s.service.Profile(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var body onboarding.Profile
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		profile, err := s.service.UpdateProfile(r.Context(), session.UserID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	default:
		notFound(w)
	}
}

func (s *HTTPServer) handleExperiences(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		items, err := s.service.Experiences(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"experiences": items})
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body store.Experience
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateExperience(r.Context(), session.UserID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteExperience(r.Context(), session.UserID, rest[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(rest) == 2 && rest[1] == "stories" && r.Method == http.MethodPost:
		var body store.Story
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateStory(r.Context(), session.UserID, rest[0], body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		notFound(w)
	}
}

func (s *HTTPServer) handleStories(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		items, err := s.service.Stories(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stories": items})
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteStory(r.Context(), session.UserID, rest[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		notFound(w)
	}
}

// handleCanvases serves PUT /api/canvas and POST /api/company-canvases.
func (s *HTTPServer) handleCanvases(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	switch {
	case len(parts) == 1 && parts[0] == "canvas" && r.Method == http.MethodPut:
		var body struct {
			Content json.RawMessage `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		canvas, err := s.service.SavePersonalCanvas(r.Context(), session.UserID, body.Content)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, canvas)
	case len(parts) == 1 && parts[0] == "company-canvases" && r.Method == http.MethodPost:
		var body store.CompanyCanvas
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateCompanyCanvas(r.Context(), session.UserID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		notFound(w)
	}
}

func (s *HTTPServer) handleJobs(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		items, err := s.service.Jobs(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": items})
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body store.JobDescription
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateJob(r.Context(), session.UserID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case len(rest) == 1 && r.Method == http.MethodGet:
		job, err := s.service.Job(r.Context(), session.UserID, rest[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteJob(r.Context(), session.UserID, rest[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(rest) == 2 && rest[1] == "notes" && r.Method == http.MethodPut:
		var body struct {
			Notes string `json:"notes"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		job, err := s.service.UpdateJobNotes(r.Context(), session.UserID, rest[0], body.Notes)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	case len(rest) == 2 && rest[1] == "matching-summary" && r.Method == http.MethodPost:
		var body store.MatchingSummary
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		summary, err := s.service.SaveMatchingSummary(r.Context(), session.UserID, rest[0], body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	default:
		notFound(w)
	}
}

func (s *HTTPServer) handleMaterials(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		items, err := s.service.Materials(r.Context(), session.UserID, r.URL.Query().Get("kind"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"materials": items})
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body MaterialInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		created, err := s.service.CreateMaterial(r.Context(), session, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case len(rest) == 1 && r.Method == http.MethodGet:
		view, err := s.service.Material(r.Context(), session.UserID, rest[0])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case len(rest) == 1 && r.Method == http.MethodPut:
		var body MaterialInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		updated, err := s.service.UpdateMaterial(r.Context(), session, rest[0], body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteMaterial(r.Context(), session.UserID, rest[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(rest) == 2 && rest[1] == "history" && r.Method == http.MethodGet:
		limit, err := queryInt(r.URL.Query().Get("limit"), 0)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		history, err := s.service.MaterialHistory(r.Context(), session.UserID, rest[0], limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": history})
	case len(rest) == 3 && rest[1] == "history" && r.Method == http.MethodGet:
		content, err := s.service.MaterialRevision(r.Context(), session.UserID, rest[0], rest[2])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hash": rest[2], "content": content})
	case len(rest) == 2 && rest[1] == "export" && r.Method == http.MethodGet:
		s.handleExport(w, r, session, rest[0])
	default:
		notFound(w)
	}
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, session Session, materialID string) {
	format, ok := export.ParseFormat(strings.ToLower(r.URL.Query().Get("format")))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf or html", nil)
		return
	}
	result, err := s.service.ExportMaterial(r.Context(), session, materialID, format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// handleUploads accepts a multipart form with a "file" part and optional
// "title" and "text" fields.
func (s *HTTPServer) handleUploads(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) != 1 || rest[0] != "cv" || r.Method != http.MethodPost {
		notFound(w)
		return
	}
	if !s.service.UploadsEnabled() {
		s.fail(w, r, errUploadsDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(storage.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "File exceeds the upload limit", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Expected multipart form data", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	view, err := s.service.UploadCV(
		r.Context(),
		session,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
		r.FormValue("title"),
		r.FormValue("text"),
	)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleLoaders(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	switch {
	case len(parts) == 1 && parts[0] == "progress" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.service.Progress(r.Context(), session.UserID))
	case len(parts) == 1 && parts[0] == "badges" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.service.Badges(r.Context(), session.UserID))
	case len(parts) == 2 && parts[0] == "guidance" && r.Method == http.MethodGet:
		pageCtx, err := guidanceContext(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		model, err := s.service.Guidance(r.Context(), session.UserID, parts[1], pageCtx)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, model)
	case len(parts) == 1 && parts[0] == "onboarding" && r.Method == http.MethodGet:
		view, err := s.service.Onboarding(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case len(parts) == 2 && parts[0] == "onboarding" && parts[1] == "step" && r.Method == http.MethodPut:
		var body struct {
			Step string `json:"step"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		view, err := s.service.SaveOnboardingStep(r.Context(), session.UserID, body.Step)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		notFound(w)
	}
}

// guidanceContext reads the optional page counts from the query string.
// Absent keys stay nil so guidance can tell "unknown" from zero.
func guidanceContext(query url.Values) (onboarding.Context, error) {
	var pageCtx onboarding.Context
	counts := []struct {
		key    string
		target **int
	}{
		{"experiencesCount", &pageCtx.ExperiencesCount},
		{"storiesCount", &pageCtx.StoriesCount},
		{"canvasCount", &pageCtx.CanvasCount},
		{"jobsCount", &pageCtx.JobsCount},
		{"cvCount", &pageCtx.CVCount},
		{"coverLetterCount", &pageCtx.CoverLetterCount},
		{"speechCount", &pageCtx.SpeechCount},
	}
	for _, count := range counts {
		raw := strings.TrimSpace(query.Get(count.key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return onboarding.Context{}, fmt.Errorf("%s must be a non-negative integer", count.key)
		}
		*count.target = &value
	}
	if raw := strings.TrimSpace(query.Get("hasMatchingSummary")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return onboarding.Context{}, fmt.Errorf("hasMatchingSummary must be a boolean")
		}
		pageCtx.HasMatchingSummary = &value
	}
	pageCtx.JobID = strings.TrimSpace(query.Get("jobId"))
	pageCtx.IsGenerating, _ = strconv.ParseBool(query.Get("isGenerating"))
	return pageCtx, nil
}

func (s *HTTPServer) handlePipeline(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	switch {
	case len(parts) == 1 && parts[0] == "pipeline" && r.Method == http.MethodGet:
		view, err := s.service.Pipeline(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case len(parts) == 2 && parts[1] == "settings" && r.Method == http.MethodGet:
		stages, err := s.service.KanbanStages(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stages": stages})
	case len(parts) == 2 && parts[1] == "settings" && r.Method == http.MethodPut:
		var body struct {
			Stages []kanban.Stage `json:"stages"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		stages, err := s.service.SaveKanbanStages(r.Context(), session.UserID, body.Stages)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stages": stages})
	case len(parts) == 2 && parts[1] == "stages" && r.Method == http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		stages, err := s.service.AddKanbanStage(r.Context(), session.UserID, body.Name)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"stages": stages})
	case len(parts) == 2 && parts[1] == "board" && r.Method == http.MethodGet:
		view, err := s.service.Board(r.Context(), session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case len(parts) == 2 && parts[1] == "move" && r.Method == http.MethodPost:
		var body struct {
			JobID   string `json:"jobId"`
			ToStage string `json:"toStage"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.JobID) == "" || strings.TrimSpace(body.ToStage) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "jobId and toStage are required", nil)
			return
		}
		result, err := s.service.MoveJob(r.Context(), session.UserID, body.JobID, body.ToStage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		notFound(w)
	}
}
