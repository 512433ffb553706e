package kanban

import (
	"sort"
	"strings"
	"time"
)

const (
	DefaultFocusLimit = 3

	dayMillis = int64(24 * time.Hour / time.Millisecond)
)

// Job is the slice of a job description the pipeline works on.
type Job struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	CompanyName  string     `json:"companyName,omitempty"`
	KanbanStatus string     `json:"kanbanStatus"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// LastActivity is UpdatedAt, falling back to CreatedAt. ok is false when
// neither is set.
func (j Job) LastActivity() (time.Time, bool) {
	switch {
	case j.UpdatedAt != nil && !j.UpdatedAt.IsZero():
		return *j.UpdatedAt, true
	case j.CreatedAt != nil && !j.CreatedAt.IsZero():
		return *j.CreatedAt, true
	default:
		return time.Time{}, false
	}
}

func (j Job) activityMillis() int64 {
	at, ok := j.LastActivity()
	if !ok {
		return 0
	}
	return at.UnixMilli()
}

// NormalizeStatus resolves the stage key a job belongs to. Empty statuses
// and statuses unknown to a non-empty stage list fall back to todo.
func NormalizeStatus(job Job, stages []Stage) string {
	status := strings.TrimSpace(job.KanbanStatus)
	if status == "" {
		return StageTodo
	}
	if len(stages) > 0 && !hasStage(status, stages) {
		return StageTodo
	}
	return status
}

type Buckets struct {
	TodoJobs   []Job `json:"todoJobs"`
	ActiveJobs []Job `json:"activeJobs"`
	DoneJobs   []Job `json:"doneJobs"`
}

// DeriveBuckets partitions jobs by normalized status, keeping input order.
func DeriveBuckets(jobs []Job, stages []Stage) Buckets {
	buckets := Buckets{TodoJobs: []Job{}, ActiveJobs: []Job{}, DoneJobs: []Job{}}
	for _, job := range jobs {
		switch NormalizeStatus(job, stages) {
		case StageDone:
			buckets.DoneJobs = append(buckets.DoneJobs, job)
		case StageTodo:
			buckets.TodoJobs = append(buckets.TodoJobs, job)
		default:
			buckets.ActiveJobs = append(buckets.ActiveJobs, job)
		}
	}
	return buckets
}

type Counts struct {
	Todo   int `json:"todo"`
	Active int `json:"active"`
	Done   int `json:"done"`
	Total  int `json:"total"`
}

func CountBuckets(b Buckets) Counts {
	return Counts{
		Todo:   len(b.TodoJobs),
		Active: len(b.ActiveJobs),
		Done:   len(b.DoneJobs),
		Total:  len(b.TodoJobs) + len(b.ActiveJobs) + len(b.DoneJobs),
	}
}

// byMostRecent returns a copy sorted newest first; ties keep input order.
func byMostRecent(jobs []Job) []Job {
	sorted := make([]Job, len(jobs))
	copy(sorted, jobs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].activityMillis() > sorted[j].activityMillis()
	})
	return sorted
}

// RankFocusJobs lists active jobs then todo jobs, each newest first, cut
// to limit. A negative limit yields no jobs.
func RankFocusJobs(b Buckets, limit int) []Job {
	limit = max(0, limit)
	ranked := append(byMostRecent(b.ActiveJobs), byMostRecent(b.TodoJobs)...)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ComputeStalled returns the jobs idle for at least thresholdDays, newest
// first. Jobs without any timestamp are never stalled.
func ComputeStalled(jobs []Job, now time.Time, thresholdDays int) []Job {
	threshold := int64(max(0, thresholdDays)) * dayMillis
	nowMillis := now.UnixMilli()
	stalled := make([]Job, 0)
	for _, job := range byMostRecent(jobs) {
		at := job.activityMillis()
		if at == 0 {
			continue
		}
		if nowMillis-at >= threshold {
			stalled = append(stalled, job)
		}
	}
	return stalled
}
