package search

import (
	"context"

	"go.uber.org/zap"
)

const (
	BackendMeili    = "meilisearch"
	BackendPostgres = "postgres"
)

// indexer is the write side of Meili, split out so tests can fake it.
type indexer interface {
	Searcher
	IndexJob(JobRecord) error
	IndexMaterial(MaterialRecord) error
	DeleteJob(id string) error
	DeleteMaterial(id string) error
	IndexJobs([]JobRecord) error
	IndexMaterials([]MaterialRecord) error
}

// recordLoader feeds a full reindex.
type recordLoader interface {
	LoadAllRecords(ctx context.Context) ([]JobRecord, []MaterialRecord, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili    indexer
	fallback Searcher
	loader   recordLoader
	logger   *zap.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS, logger *zap.Logger) *Service {
	s := &Service{fallback: pgfts, loader: pgfts, logger: logger.Named("search")}
	if meili != nil {
		s.meili = meili
	}
	return s
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
// Failures degrade to an empty result set.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliReady() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: BackendMeili}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text, Backend: BackendPostgres}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Backend: BackendPostgres}
}

// IndexJob indexes a job (fire-and-forget to Meilisearch).
func (s *Service) IndexJob(job JobRecord) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexJob(job); err != nil {
			s.logger.Warn("index job", zap.String("id", job.ID), zap.Error(err))
		}
	}()
}

// IndexMaterial indexes a material (fire-and-forget to Meilisearch).
func (s *Service) IndexMaterial(material MaterialRecord) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexMaterial(material); err != nil {
			s.logger.Warn("index material", zap.String("id", material.ID), zap.Error(err))
		}
	}()
}

func (s *Service) DeleteJob(id string) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.DeleteJob(id); err != nil {
			s.logger.Warn("delete job", zap.String("id", id), zap.Error(err))
		}
	}()
}

func (s *Service) DeleteMaterial(id string) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.DeleteMaterial(id); err != nil {
			s.logger.Warn("delete material", zap.String("id", id), zap.Error(err))
		}
	}()
}

// ReindexAll reads every job and material from Postgres and pushes them to
// Meilisearch. Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.meiliReady() || s.loader == nil {
		return
	}
	jobs, materials, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn("reindex load failed", zap.Error(err))
		return
	}
	if err := s.meili.IndexJobs(jobs); err != nil {
		s.logger.Warn("reindex jobs", zap.Error(err))
	}
	if err := s.meili.IndexMaterials(materials); err != nil {
		s.logger.Warn("reindex materials", zap.Error(err))
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
