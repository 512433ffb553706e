package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/julienreichel/on-track-career-os-sub005/internal/auth"
	"github.com/julienreichel/on-track-career-os-sub005/internal/authpw"
	"github.com/julienreichel/on-track-career-os-sub005/internal/config"
	"github.com/julienreichel/on-track-career-os-sub005/internal/export"
	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
	"github.com/julienreichel/on-track-career-os-sub005/internal/revisions"
	"github.com/julienreichel/on-track-career-os-sub005/internal/search"
	"github.com/julienreichel/on-track-career-os-sub005/internal/session"
	"github.com/julienreichel/on-track-career-os-sub005/internal/storage"
	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
)

// fakeStore is an in-memory dataStore. The *Err fields inject failures.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]store.User
	revoked   map[string]bool
	profiles  map[string]store.Profile
	jobs      map[string]store.JobDescription
	jobOrder  []string
	materials map[string]store.Material
	stages    map[string][]kanban.Stage
	inputs    onboarding.Inputs

	progressErr       error
	updateStatusErr   error
	updateBadgesErr   error
	createMaterialErr error
	pingErr           error
	badgeWrites       [][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]store.User{},
		revoked:   map[string]bool{},
		profiles:  map[string]store.Profile{},
		jobs:      map[string]store.JobDescription{},
		materials: map[string]store.Material{},
		stages:    map[string][]kanban.Stage{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) CreateUser(_ context.Context, displayName, email, passwordHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := store.User{ID: f.nextID("user"), DisplayName: displayName, Email: email, PasswordHash: passwordHash, CreatedAt: testNow}
	f.users[user.ID] = user
	f.profiles[user.ID] = store.Profile{}
	return user, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return store.Profile{}, sql.ErrNoRows
	}
	return profile, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, userID string, profile onboarding.Profile) (store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.profiles[userID]
	current.Profile = profile
	current.UpdatedAt = testNow
	f.profiles[userID] = current
	return current, nil
}

func (f *fakeStore) UpdateEarnedBadges(_ context.Context, userID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateBadgesErr != nil {
		return f.updateBadgesErr
	}
	f.badgeWrites = append(f.badgeWrites, ids)
	current := f.profiles[userID]
	current.EarnedBadges = ids
	f.profiles[userID] = current
	return nil
}

func (f *fakeStore) ProgressSnapshot(context.Context, string) (onboarding.Inputs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return onboarding.Inputs{}, f.progressErr
	}
	return f.inputs, nil
}

func (f *fakeStore) ListExperiences(context.Context, string) ([]store.Experience, error) {
	return []store.Experience{}, nil
}

func (f *fakeStore) CreateExperience(_ context.Context, item store.Experience) (store.Experience, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextID("exp")
	return item, nil
}

func (f *fakeStore) DeleteExperience(context.Context, string, string) error { return nil }

func (f *fakeStore) ListStories(context.Context, string) ([]store.Story, error) {
	return []store.Story{}, nil
}

func (f *fakeStore) CreateStory(_ context.Context, item store.Story) (store.Story, error) {
	if item.ExperienceID == "missing" {
		return store.Story{}, sql.ErrNoRows
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextID("story")
	return item, nil
}

func (f *fakeStore) DeleteStory(context.Context, string, string) error { return nil }

func (f *fakeStore) UpsertPersonalCanvas(_ context.Context, userID string, content json.RawMessage) (store.PersonalCanvas, error) {
	return store.PersonalCanvas{OwnerID: userID, Content: content, UpdatedAt: testNow}, nil
}

func (f *fakeStore) CreateCompanyCanvas(_ context.Context, item store.CompanyCanvas) (store.CompanyCanvas, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextID("company")
	return item, nil
}

func (f *fakeStore) ListJobDescriptions(_ context.Context, userID string) ([]store.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.JobDescription{}
	for _, id := range f.jobOrder {
		if job, ok := f.jobs[id]; ok && job.OwnerID == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeStore) ListJobs(ctx context.Context, userID string) ([]kanban.Job, error) {
	items, err := f.ListJobDescriptions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]kanban.Job, 0, len(items))
	for _, item := range items {
		out = append(out, item.Job)
	}
	return out, nil
}

func (f *fakeStore) GetJobDescription(_ context.Context, userID, jobID string) (store.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.OwnerID != userID {
		return store.JobDescription{}, sql.ErrNoRows
	}
	return job, nil
}

func (f *fakeStore) CreateJobDescription(_ context.Context, item store.JobDescription) (store.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == "" {
		item.ID = f.nextID("job")
	}
	if item.KanbanStatus == "" {
		item.KanbanStatus = kanban.StageTodo
	}
	f.jobs[item.ID] = item
	f.jobOrder = append(f.jobOrder, item.ID)
	return item, nil
}

func (f *fakeStore) DeleteJobDescription(_ context.Context, userID, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.OwnerID != userID {
		return sql.ErrNoRows
	}
	delete(f.jobs, jobID)
	return nil
}

func (f *fakeStore) UpdateJobNotes(_ context.Context, userID, jobID, notes string) (store.JobDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.OwnerID != userID {
		return store.JobDescription{}, sql.ErrNoRows
	}
	job.Notes = notes
	f.jobs[jobID] = job
	return job, nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, userID, jobID, status string) (kanban.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateStatusErr != nil {
		return kanban.Job{}, f.updateStatusErr
	}
	job, ok := f.jobs[jobID]
	if !ok || job.OwnerID != userID {
		return kanban.Job{}, sql.ErrNoRows
	}
	job.KanbanStatus = status
	f.jobs[jobID] = job
	return job.Job, nil
}

func (f *fakeStore) UpsertMatchingSummary(_ context.Context, item store.MatchingSummary) (store.MatchingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextID("summary")
	return item, nil
}

func (f *fakeStore) ListMaterials(_ context.Context, userID string, kind store.MaterialKind) ([]store.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Material{}
	for _, m := range f.materials {
		if m.OwnerID == userID && (kind == "" || m.Kind == kind) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetMaterial(_ context.Context, userID, id string) (store.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[id]
	if !ok || m.OwnerID != userID {
		return store.Material{}, sql.ErrNoRows
	}
	return m, nil
}

func (f *fakeStore) CreateMaterial(_ context.Context, m store.Material) (store.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createMaterialErr != nil {
		return store.Material{}, f.createMaterialErr
	}
	m.ID = f.nextID("mat")
	m.CreatedAt = testNow
	m.UpdatedAt = testNow
	f.materials[m.ID] = m
	return m, nil
}

func (f *fakeStore) UpdateMaterial(_ context.Context, m store.Material) (store.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.materials[m.ID]; !ok {
		return store.Material{}, sql.ErrNoRows
	}
	m.UpdatedAt = testNow
	f.materials[m.ID] = m
	return m, nil
}

func (f *fakeStore) DeleteMaterial(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.materials[id]
	if !ok || m.OwnerID != userID {
		return sql.ErrNoRows
	}
	delete(f.materials, id)
	return nil
}

func (f *fakeStore) GetKanbanStages(_ context.Context, userID string) ([]kanban.Stage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stages, ok := f.stages[userID]
	return stages, ok, nil
}

func (f *fakeStore) SaveKanbanStages(_ context.Context, userID string, stages []kanban.Stage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages[userID] = stages
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) addJob(ownerID string, job kanban.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = store.JobDescription{Job: job, OwnerID: ownerID}
	f.jobOrder = append(f.jobOrder, job.ID)
}

type fakeSearch struct {
	mu               sync.Mutex
	indexedJobs      []string
	indexedMaterials []string
	deleted          []string
	queries          []search.Query
}

func (f *fakeSearch) Search(_ context.Context, query search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return search.Response{Results: []search.Result{}, Query: query.Text, Backend: "fake"}
}

func (f *fakeSearch) IndexJob(job search.JobRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexedJobs = append(f.indexedJobs, job.ID)
}

func (f *fakeSearch) IndexMaterial(m search.MaterialRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexedMaterials = append(f.indexedMaterials, m.ID)
}

func (f *fakeSearch) DeleteJob(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

func (f *fakeSearch) DeleteMaterial(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

type fakeRevisions struct {
	mu        sync.Mutex
	commits   map[string][]revisions.Content
	messages  map[string][]string
	commitErr error
	removed   []string
}

func (f *fakeRevisions) Commit(materialID string, content revisions.Content, author, message string) (revisions.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return revisions.Revision{}, f.commitErr
	}
	if f.commits == nil {
		f.commits = map[string][]revisions.Content{}
		f.messages = map[string][]string{}
	}
	f.commits[materialID] = append(f.commits[materialID], content)
	f.messages[materialID] = append(f.messages[materialID], message)
	return revisions.Revision{Hash: fmt.Sprintf("%07d", len(f.commits[materialID])), Message: message, Author: author}, nil
}

func (f *fakeRevisions) History(materialID string, limit int) ([]revisions.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []revisions.Revision{}
	for i := len(f.messages[materialID]) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, revisions.Revision{Hash: fmt.Sprintf("%07d", i+1), Message: f.messages[materialID][i]})
	}
	return out, nil
}

func (f *fakeRevisions) ContentAt(materialID, hash string) (revisions.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, content := range f.commits[materialID] {
		if fmt.Sprintf("%07d", i+1) == hash {
			return content, nil
		}
	}
	return revisions.Content{}, revisions.ErrNotFound
}

func (f *fakeRevisions) Remove(materialID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, materialID)
	delete(f.commits, materialID)
	delete(f.messages, materialID)
	return nil
}

type fakeExporter struct {
	err  error
	docs []export.Document
}

func (f *fakeExporter) Export(_ context.Context, doc export.Document, format export.Format) (*export.Result, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	if format == export.FormatHTML {
		return &export.Result{Data: []byte("<html></html>"), Filename: "doc.html", MimeType: "text/html; charset=utf-8"}, nil
	}
	return &export.Result{Data: []byte("%PDF-1.7"), Filename: "doc.pdf", MimeType: "application/pdf"}, nil
}

type fakeUploads struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func (f *fakeUploads) PutCV(_ context.Context, ownerID, filename string, body io.Reader, _ int64, contentType string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return storage.Object{}, f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Object{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	key := "cvs/" + ownerID + "/" + filename
	f.objects[key] = data
	return storage.Object{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (f *fakeUploads) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://objects.test/" + key, nil
}

func (f *fakeUploads) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

var testNow = time.Now().UTC().Truncate(time.Second)

type testDeps struct {
	store     *fakeStore
	search    *fakeSearch
	revisions *fakeRevisions
	exporter  *fakeExporter
	redis     *miniredis.Miniredis
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deps := &testDeps{
		store:     newFakeStore(),
		search:    &fakeSearch{},
		revisions: &fakeRevisions{},
		exporter:  &fakeExporter{},
		redis:     mr,
	}
	svc := &Service{
		cfg: config.Config{
			JWTSecret:            "test-secret",
			AccessTTL:            time.Hour,
			RefreshTTL:           24 * time.Hour,
			StalledThresholdDays: 14,
			FocusLimit:           3,
		},
		store:     deps.store,
		sessions:  session.NewRedisStoreWithClient(client),
		accounts:  authpw.NewServiceWithCost(deps.store, bcrypt.MinCost),
		tokens:    auth.NewSigner("test-secret", time.Hour),
		search:    deps.search,
		exporter:  deps.exporter,
		revisions: deps.revisions,
		logger:    zap.NewNop(),
		now:       func() time.Time { return testNow },
	}
	return svc, deps
}

func signUpTestUser(t *testing.T, svc *Service) Session {
	t.Helper()
	sess, err := svc.SignUp(context.Background(), authpw.SignUpRequest{
		Email:       "avery@example.com",
		Password:    "correct-horse",
		DisplayName: "Avery",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return sess
}
