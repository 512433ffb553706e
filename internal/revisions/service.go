// Package revisions keeps a git history per career material so users can
// see and restore earlier versions of a CV, cover letter or speech.
package revisions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const contentFile = "material.json"

var (
	ErrInvalidID = errors.New("invalid material id")
	ErrNotFound  = errors.New("revision not found")
)

// Content is the versioned part of a material.
type Content struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	JobID string `json:"jobId,omitempty"`
	Body  string `json:"body"`
}

// Revision summarizes one commit.
type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
}

// FieldChange is one differing field between two revisions.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Commit records content as the newest revision. The repository is
// created on first use. Unchanged content does not produce a commit; the
// current head is returned instead.
func (s *Service) Commit(materialID string, content Content, author, message string) (Revision, error) {
	if !validID(materialID) {
		return Revision{}, ErrInvalidID
	}
	lock := s.materialLock(materialID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(materialID)
	if err != nil {
		return Revision{}, err
	}

	if head, err := headCommit(repo); err == nil {
		current, err := readContentFromCommit(head)
		if err == nil && !HasChanges(current, content) {
			return toRevision(head), nil
		}
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Revision{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, fmt.Errorf("open worktree: %w", err)
	}
	payload, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return Revision{}, fmt.Errorf("marshal content: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), contentFile), append(payload, '\n'), 0o644); err != nil {
		return Revision{}, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return Revision{}, fmt.Errorf("git add content: %w", err)
	}

	if strings.TrimSpace(message) == "" {
		message = "Update " + content.Title
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@users.ontrack.local", sanitizeEmail(author)),
			When:  s.now(),
		},
	})
	if err != nil {
		return Revision{}, fmt.Errorf("commit content: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

// History lists revisions newest first. A material without a repository
// has an empty history.
func (s *Service) History(materialID string, limit int) ([]Revision, error) {
	if !validID(materialID) {
		return nil, ErrInvalidID
	}
	lock := s.materialLock(materialID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(materialID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the material as it was at the given revision.
func (s *Service) ContentAt(materialID, hash string) (Content, error) {
	if !validID(materialID) {
		return Content{}, ErrInvalidID
	}
	lock := s.materialLock(materialID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(materialID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Content{}, ErrNotFound
	}
	if err != nil {
		return Content{}, fmt.Errorf("open repo: %w", err)
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return Content{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return Content{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readContentFromCommit(commitObj)
}

// Remove deletes the material's history.
func (s *Service) Remove(materialID string) error {
	if !validID(materialID) {
		return ErrInvalidID
	}
	lock := s.materialLock(materialID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(materialID)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) openOrInit(materialID string) (*git.Repository, error) {
	path := s.repoPath(materialID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(materialID string) string {
	return filepath.Join(s.baseDir, materialID)
}

func (s *Service) materialLock(materialID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[materialID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[materialID] = lock
	return lock
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load head commit: %w", err)
	}
	return commitObj, nil
}

func readContentFromCommit(commitObj *object.Commit) (Content, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return Content{}, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return Content{}, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return Content{}, fmt.Errorf("read content bytes: %w", err)
	}
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return Content{}, fmt.Errorf("decode commit content: %w", err)
	}
	return content, nil
}

// Diff lists changed fields, body last.
func Diff(from, to Content) []FieldChange {
	pairs := []FieldChange{
		{Field: "title", Before: from.Title, After: to.Title},
		{Field: "kind", Before: from.Kind, After: to.Kind},
		{Field: "jobId", Before: from.JobID, After: to.JobID},
		{Field: "body", Before: from.Body, After: to.Body},
	}
	result := make([]FieldChange, 0, len(pairs))
	for _, item := range pairs {
		if item.Before != item.After {
			result = append(result, item)
		}
	}
	return result
}

func HasChanges(from, to Content) bool {
	return from != to
}

func toRevision(commitObj *object.Commit) Revision {
	rev := Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
	if stats, err := commitObj.Stats(); err == nil {
		for _, stat := range stats {
			rev.Added += stat.Addition
			rev.Removed += stat.Deletion
		}
	}
	return rev
}

func validID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
