package search

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSearcher struct {
	healthy bool
	results []Result
	err     error
	queries []Query
}

func (f *fakeSearcher) Search(_ context.Context, q Query) ([]Result, int, error) {
	f.queries = append(f.queries, q)
	return f.results, len(f.results), f.err
}

func (f *fakeSearcher) Healthy() bool { return f.healthy }

type fakeIndex struct {
	fakeSearcher
	indexed chan string
}

func (f *fakeIndex) IndexJob(job JobRecord) error { f.indexed <- "job:" + job.ID; return nil }
func (f *fakeIndex) IndexMaterial(m MaterialRecord) error {
	f.indexed <- "material:" + m.ID
	return nil
}
func (f *fakeIndex) DeleteJob(id string) error      { f.indexed <- "-job:" + id; return nil }
func (f *fakeIndex) DeleteMaterial(id string) error { f.indexed <- "-material:" + id; return nil }
func (f *fakeIndex) IndexJobs(jobs []JobRecord) error {
	for _, job := range jobs {
		f.indexed <- "job:" + job.ID
	}
	return nil
}
func (f *fakeIndex) IndexMaterials(materials []MaterialRecord) error {
	for _, m := range materials {
		f.indexed <- "material:" + m.ID
	}
	return nil
}

type fakeLoader struct {
	jobs      []JobRecord
	materials []MaterialRecord
}

func (f fakeLoader) LoadAllRecords(context.Context) ([]JobRecord, []MaterialRecord, error) {
	return f.jobs, f.materials, nil
}

func TestServiceFallsBackWhenMeiliFails(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true, err: errors.New("boom")}}
	fallback := &fakeSearcher{healthy: true, results: []Result{{Type: ResultJob, ID: "job-1"}}}
	svc := &Service{meili: index, fallback: fallback, logger: zap.NewNop()}

	resp := svc.Search(context.Background(), Query{Text: "golang", OwnerID: "user-1"})
	assert.Equal(t, BackendPostgres, resp.Backend)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, fallback.queries, 1)
	assert.Equal(t, "user-1", fallback.queries[0].OwnerID)
}

func TestServiceUsesHealthyMeili(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true}}
	fallback := &fakeSearcher{healthy: true}
	svc := &Service{meili: index, fallback: fallback, logger: zap.NewNop()}

	resp := svc.Search(context.Background(), Query{Text: "golang", OwnerID: "user-1"})
	assert.Equal(t, BackendMeili, resp.Backend)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, fallback.queries)
}

func TestServiceDegradesToEmpty(t *testing.T) {
	svc := &Service{fallback: &fakeSearcher{err: errors.New("db down")}, logger: zap.NewNop()}
	resp := svc.Search(context.Background(), Query{Text: "x", OwnerID: "u"})
	assert.Equal(t, []Result{}, resp.Results)
	assert.Equal(t, 0, resp.Total)
}

func TestServiceIndexingIsAsync(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true}, indexed: make(chan string, 4)}
	svc := &Service{meili: index, fallback: &fakeSearcher{}, logger: zap.NewNop()}

	svc.IndexJob(JobRecord{ID: "job-1"})
	svc.DeleteMaterial("mat-9")

	got := map[string]bool{}
	for range 2 {
		select {
		case event := <-index.indexed:
			got[event] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for indexing")
		}
	}
	assert.True(t, got["job:job-1"])
	assert.True(t, got["-material:mat-9"])
}

func TestServiceSkipsIndexingWhenUnhealthy(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: false}, indexed: make(chan string, 1)}
	svc := &Service{meili: index, fallback: &fakeSearcher{}, logger: zap.NewNop()}
	svc.IndexMaterial(MaterialRecord{ID: "mat-1"})
	svc.ReindexAll(context.Background())
	assert.Len(t, index.indexed, 0)
}

func TestReindexAll(t *testing.T) {
	index := &fakeIndex{fakeSearcher: fakeSearcher{healthy: true}, indexed: make(chan string, 4)}
	svc := &Service{
		meili:    index,
		fallback: &fakeSearcher{},
		loader:   fakeLoader{jobs: []JobRecord{{ID: "j"}}, materials: []MaterialRecord{{ID: "m"}}},
		logger:   zap.NewNop(),
	}
	svc.ReindexAll(context.Background())
	assert.Equal(t, "job:j", <-index.indexed)
	assert.Equal(t, "material:m", <-index.indexed)
}

func TestPgFTSSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM (")).
		WithArgs("golang", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY rank DESC")).
		WithArgs("golang", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"type", "id", "title", "snippet", "kind", "job_id"}).
			AddRow("material", "mat-1", "Tailored CV", "<b>golang</b> backend", "cv", "job-1"))

	results, total, err := NewPgFTS(db).Search(context.Background(), Query{Text: "golang", OwnerID: "user-1", FilterType: ResultMaterial})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []Result{{Type: ResultMaterial, ID: "mat-1", Title: "Tailored CV", Snippet: "<b>golang</b> backend", Kind: "cv", JobID: "job-1"}}, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFTSRequiresOwner(t *testing.T) {
	p := NewPgFTS(nil)
	results, _, err := p.Search(context.Background(), Query{Text: " "})
	assert.NoError(t, err)
	assert.Nil(t, results)

	_, _, err = p.Search(context.Background(), Query{Text: "golang"})
	assert.Error(t, err)
}

func TestHitToResult(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`"mat-1"`),
		"title":      json.RawMessage(`"Cover letter"`),
		"kind":       json.RawMessage(`"cover_letter"`),
		"jobId":      json.RawMessage(`"job-7"`),
		"content":    json.RawMessage(`"Dear team"`),
		"_formatted": json.RawMessage(`{"title":"<mark>Cover</mark> letter","content":"Dear <mark>team</mark>","ownerId":"u"}`),
	}
	got := hitToResult(hit, ResultMaterial)
	assert.Equal(t, Result{
		Type:    ResultMaterial,
		ID:      "mat-1",
		Title:   "<mark>Cover</mark> letter",
		Snippet: "Dear <mark>team</mark>",
		Kind:    "cover_letter",
		JobID:   "job-7",
	}, got)
}

func TestParseResultType(t *testing.T) {
	for _, value := range []string{"", "job", "material"} {
		_, ok := ParseResultType(value)
		assert.True(t, ok, value)
	}
	_, ok := ParseResultType("thread")
	assert.False(t, ok)
}

func TestOwnerFilterQuotes(t *testing.T) {
	assert.Equal(t, `ownerId = "a\"b"`, ownerFilter(`a"b`))
}
