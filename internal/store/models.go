package store

import (
	"encoding/json"
	"time"

	"github.com/julienreichel/on-track-career-os-sub005/internal/kanban"
	"github.com/julienreichel/on-track-career-os-sub005/internal/onboarding"
)

type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the stored profile plus the badge ratchet.
type Profile struct {
	onboarding.Profile
	EarnedBadges []string  `json:"earnedBadges"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Experience struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"-"`
	Title            string     `json:"title"`
	CompanyName      string     `json:"companyName"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	Responsibilities []string   `json:"responsibilities"`
	Tasks            []string   `json:"tasks"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Story is a STAR story attached to one experience.
type Story struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	ExperienceID string    `json:"experienceId"`
	Situation    string    `json:"situation"`
	Task         string    `json:"task"`
	Action       string    `json:"action"`
	Result       string    `json:"result"`
	CreatedAt    time.Time `json:"createdAt"`
}

type PersonalCanvas struct {
	OwnerID   string          `json:"-"`
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type CompanyCanvas struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"-"`
	CompanyName string          `json:"companyName"`
	Content     json.RawMessage `json:"content"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// JobDescription is a stored job with its pipeline fields.
type JobDescription struct {
	kanban.Job
	OwnerID string `json:"-"`
	RawText string `json:"rawText"`
}

type MatchingSummary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	JobID     string    `json:"jobId"`
	Summary   string    `json:"summary"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

type MaterialKind string

const (
	MaterialCV          MaterialKind = "cv"
	MaterialCoverLetter MaterialKind = "cover_letter"
	MaterialSpeech      MaterialKind = "speech"
	MaterialTemplate    MaterialKind = "template"
)

func (k MaterialKind) Valid() bool {
	switch k {
	case MaterialCV, MaterialCoverLetter, MaterialSpeech, MaterialTemplate:
		return true
	}
	return false
}

// Material is a CV, cover letter, speech or template. A non-nil JobID
// marks a document tailored to that job.
type Material struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"-"`
	Kind      MaterialKind `json:"kind"`
	JobID     *string      `json:"jobId,omitempty"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	FileKey   string       `json:"fileKey,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
