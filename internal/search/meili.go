package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	idxJobs      = "ontrack_jobs"
	idxMaterials = "ontrack_materials"

	healthInterval = 10 * time.Second
)

var errUnhealthy = errors.New("meilisearch unhealthy")

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
	stopped chan struct{}
}

// NewMeili creates a Meilisearch client, configures indexes and starts a
// background health monitor. An unreachable server is not an error: the
// client starts unhealthy and recovers when the server comes up.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	m := &Meili{
		client:  meili.New(url, meili.WithAPIKey(apiKey)),
		logger:  logger.Named("meilisearch"),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxJobs,
			filterable: []string{"ownerId", "status"},
			searchable: []string{"title", "companyName", "body"},
		},
		{
			uid:        idxMaterials,
			filterable: []string{"ownerId", "kind", "jobId"},
			searchable: []string{"title", "content"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idx.uid, PrimaryKey: "id"}); err != nil {
			m.logger.Debug("create index (may already exist)", zap.String("index", idx.uid), zap.Error(err))
		}

		index := m.client.Index(idx.uid)
		filterable := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterable[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.logger.Warn("update filterable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			m.logger.Warn("update searchable attributes", zap.String("index", idx.uid), zap.Error(err))
		}
	}
}

func (m *Meili) healthLoop() {
	defer close(m.stopped)
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor and waits for it to exit.
func (m *Meili) Close() {
	close(m.done)
	<-m.stopped
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the job and material indexes, scoped to the owner.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, errUnhealthy
	}
	if strings.TrimSpace(q.OwnerID) == "" {
		return nil, 0, errors.New("search owner is required")
	}
	limit, offset := normalizeWindow(q)

	targets := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxJobs, ResultJob},
		{idxMaterials, ResultMaterial},
	}

	var queries []*meili.SearchRequest
	for _, target := range targets {
		if q.FilterType != "" && q.FilterType != target.rtyp {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              target.uid,
			Query:                 q.Text,
			Limit:                 int64(limit),
			Offset:                int64(offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			Filter:                ownerFilter(q.OwnerID),
		})
	}
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}
	return results, total, nil
}

func ownerFilter(ownerID string) string {
	return fmt.Sprintf("ownerId = %q", ownerID)
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxJobs:
		return ResultJob
	case idxMaterials:
		return ResultMaterial
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp, ID: decodeString(hit, "id")}
	r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))

	switch rtyp {
	case ResultJob:
		r.Kind = decodeString(hit, "status")
		r.JobID = r.ID
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "body"), decodeString(hit, "companyName"))
	case ResultMaterial:
		r.Kind = decodeString(hit, "kind")
		r.JobID = decodeString(hit, "jobId")
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "content"))
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(formatted[key], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexJob adds or updates a job in the search index.
func (m *Meili) IndexJob(job JobRecord) error {
	_, err := m.client.Index(idxJobs).AddDocuments([]JobRecord{job}, nil)
	return err
}

// IndexMaterial adds or updates a material in the search index.
func (m *Meili) IndexMaterial(material MaterialRecord) error {
	_, err := m.client.Index(idxMaterials).AddDocuments([]MaterialRecord{material}, nil)
	return err
}

func (m *Meili) DeleteJob(id string) error {
	_, err := m.client.Index(idxJobs).DeleteDocument(id, nil)
	return err
}

func (m *Meili) DeleteMaterial(id string) error {
	_, err := m.client.Index(idxMaterials).DeleteDocument(id, nil)
	return err
}

// IndexJobs bulk-indexes jobs.
func (m *Meili) IndexJobs(jobs []JobRecord) error {
	if len(jobs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxJobs).AddDocuments(jobs, nil)
	return err
}

// IndexMaterials bulk-indexes materials.
func (m *Meili) IndexMaterials(materials []MaterialRecord) error {
	if len(materials) == 0 {
		return nil
	}
	_, err := m.client.Index(idxMaterials).AddDocuments(materials, nil)
	return err
}
