package model

import "time"

// Profile is a candidate's resume and its structured extraction.
type Profile struct {
	ID            string
	UserID        string
	RawResumeText string
	Skills        []string
	Experience    []Experience
	Summary       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CandidateSkills is the skill list of one profile, used by keyword search.
type CandidateSkills struct {
	ProfileID string
	UserID    string
	Skills    []string
}

// Experience is one role extracted from a resume.
type Experience struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Duration         string   `json:"duration"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements     []string `json:"achievements,omitempty"`
}

// ProfileUpdate carries the fields to overwrite; nil fields are left alone.
type ProfileUpdate struct {
	RawResumeText *string
	Skills        []string
	Experience    []Experience
	Summary       *string
}

// InteractionType is how a user engaged with a job.
type InteractionType string

const (
	InteractionViewed    InteractionType = "viewed"
	InteractionDismissed InteractionType = "dismissed"
	InteractionApplied   InteractionType = "applied"
	InteractionSaved     InteractionType = "saved"
)

// InteractionTypes lists every valid interaction type.
var InteractionTypes = []InteractionType{
	InteractionViewed,
	InteractionDismissed,
	InteractionApplied,
	InteractionSaved,
}

// Interaction is keyed by the (user, job, type) triple.
type Interaction struct {
	UserID  string          `validate:"required"`
	JobUUID string          `validate:"required"`
	Type    InteractionType `validate:"required,oneof=viewed dismissed applied saved"`
}
