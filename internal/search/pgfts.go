package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

const (
	jobVector      = `to_tsvector('simple', coalesce(j.title, '') || ' ' || coalesce(j.company_name, '') || ' ' || coalesce(j.raw_text, ''))`
	materialVector = `to_tsvector('simple', coalesce(m.title, '') || ' ' || coalesce(m.content, ''))`
	tsQuery        = `plainto_tsquery('simple', $1)`
)

// Search runs a UNION ALL over jobs and materials of one owner, ranked
// with ts_rank and snippets from ts_headline.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	if strings.TrimSpace(q.OwnerID) == "" {
		return nil, 0, errors.New("search owner is required")
	}
	limit, offset := normalizeWindow(q)

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultJob {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'job'::text AS type, j.id::text AS id, j.title,
				ts_headline('simple', coalesce(j.raw_text, ''), %[2]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				j.kanban_status AS kind, j.id::text AS job_id,
				ts_rank(%[1]s, %[2]s) AS rank
			FROM job_descriptions j
			WHERE j.owner_id::text = $2 AND %[1]s @@ %[2]s`, jobVector, tsQuery))
	}
	if q.FilterType == "" || q.FilterType == ResultMaterial {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'material'::text AS type, m.id::text AS id, m.title,
				ts_headline('simple', coalesce(m.content, ''), %[2]s, 'MaxFragments=1,MaxWords=30') AS snippet,
				m.kind AS kind, coalesce(m.job_id::text, '') AS job_id,
				ts_rank(%[1]s, %[2]s) AS rank
			FROM materials m
			WHERE m.owner_id::text = $2 AND %[1]s @@ %[2]s`, materialVector, tsQuery))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	args := []any{q.Text, q.OwnerID}

	var total int
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM (%s) sub", union), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT type, id, title, snippet, kind, job_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Kind, &r.JobID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]JobRecord, []MaterialRecord, error) {
	jobRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, owner_id::text, title, company_name, raw_text, kanban_status
		FROM job_descriptions
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load jobs: %w", err)
	}
	defer jobRows.Close()

	jobs := make([]JobRecord, 0)
	for jobRows.Next() {
		var j JobRecord
		if err := jobRows.Scan(&j.ID, &j.OwnerID, &j.Title, &j.CompanyName, &j.Body, &j.Status); err != nil {
			return nil, nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := jobRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate jobs: %w", err)
	}

	materialRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, owner_id::text, kind, title, content, coalesce(job_id::text, '')
		FROM materials
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load materials: %w", err)
	}
	defer materialRows.Close()

	materials := make([]MaterialRecord, 0)
	for materialRows.Next() {
		var m MaterialRecord
		if err := materialRows.Scan(&m.ID, &m.OwnerID, &m.Kind, &m.Title, &m.Content, &m.JobID); err != nil {
			return nil, nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}
	if err := materialRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate materials: %w", err)
	}

	return jobs, materials, nil
}
