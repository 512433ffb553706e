// Package search provides per-user full-text search over job descriptions
// and career materials.
package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultJob      ResultType = "job"
	ResultMaterial ResultType = "material"
)

// ParseResultType accepts "", "job" or "material".
func ParseResultType(value string) (ResultType, bool) {
	switch ResultType(value) {
	case "", ResultJob, ResultMaterial:
		return ResultType(value), true
	}
	return "", false
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	// Kind is the material kind, or the kanban status for jobs.
	Kind  string `json:"kind,omitempty"`
	JobID string `json:"jobId,omitempty"`
}

// Query describes a search request. OwnerID is mandatory: results never
// cross user boundaries.
type Query struct {
	Text       string
	OwnerID    string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Backend string   `json:"backend"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// JobRecord is the data we index for a job description.
type JobRecord struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	CompanyName string `json:"companyName"`
	Body        string `json:"body"`
	Status      string `json:"status"`
}

// MaterialRecord is the data we index for a CV, letter, speech or template.
type MaterialRecord struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Content string `json:"content"`
	JobID   string `json:"jobId"`
}

const defaultLimit = 20

func normalizeWindow(q Query) (limit, offset int) {
	limit = q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return limit, max(0, q.Offset)
}
