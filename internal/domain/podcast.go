// Package domain defines the persistence models for podcast generation jobs.
// These types are mapped with GORM and form the core data layer of the
// service: the Job Record (Podcast), its lifecycle Status, and the
// Reference entries attached by the external generator on completion.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-podcast-backend/internal/podcode"
)

// Bounds for the requested podcast length, in minutes (inclusive).
const (
	MinLengthMinutes = 2
	MaxLengthMinutes = 15

	// Column widths of city_name and language, in characters.
	MaxCityNameLen = 255
	MaxLanguageLen = 64
)

// Status is the lifecycle state of a generation job.
//
//	pending ──► generating ──► completed
//	   │             │
//	   └─────────────┴───────► failed
//
// The external generator may skip generating and write a terminal state
// directly. Nothing leaves completed or failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a job in state s may move to state to.
// Only the creating request writes pending, so no transition targets it.
func (s Status) CanTransition(to Status) bool {
	return s.Valid() && to.Valid() && !s.IsTerminal() && to != StatusPending
}

// Reference is a source cited by a generated podcast script.
type Reference struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	LastUpdated string `json:"last_updated"`
}

// ErrMalformedRecord is wrapped by Validate when a stored row does not match
// the Podcast schema.
var ErrMalformedRecord = errors.New("malformed podcast record")

// Podcast is the Job Record: one row per generation request, keyed
// externally by its Code.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned at insert.
//   - Code: 6-symbol lookup code, unique across all rows.
//   - CityName: the requested subject; required.
//   - Language / Length: generation parameters; Length is minutes in [2,15].
//   - Status: lifecycle state, pending at insert.
//   - Title, Description, AudioURL, ScriptContent, References, ErrorMessage:
//     absent until the generator reports a result.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Podcast struct {
	ID            string                         `json:"id"             gorm:"type:char(36);primaryKey"`
	Code          string                         `json:"code"           gorm:"type:char(6);not null;uniqueIndex:ux_podcasts_code"`
	CityName      string                         `json:"city_name"      gorm:"type:varchar(255);not null"`
	Language      string                         `json:"language"       gorm:"type:varchar(64);not null"`
	Length        float64                        `json:"length"         gorm:"not null"`
	Status        Status                         `json:"status"         gorm:"type:varchar(16);not null;default:'pending';index:idx_podcasts_status_updated,priority:1"`
	Title         *string                        `json:"title"          gorm:"type:text"`
	Description   *string                        `json:"description"    gorm:"type:text"`
	AudioURL      *string                        `json:"audio_url"      gorm:"column:audio_url;type:text"`
	ScriptContent *string                        `json:"script_content" gorm:"type:text"`
	References    datatypes.JSONSlice[Reference] `json:"references"     gorm:"column:source_references"`
	ErrorMessage  *string                        `json:"error_message"  gorm:"type:text"`
	CreatedAt     time.Time                      `json:"created_at"     gorm:"index:idx_podcasts_created"`
	UpdatedAt     time.Time                      `json:"updated_at"     gorm:"index:idx_podcasts_status_updated,priority:2"`
}

// TableName returns the database table name for Podcast.
func (Podcast) TableName() string { return "podcasts" }

// Validate checks a row read from storage against the Podcast schema and
// returns an error wrapping ErrMalformedRecord on the first violation.
func (p *Podcast) Validate() error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil record", ErrMalformedRecord)
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: empty id", ErrMalformedRecord)
	case !podcode.Valid(p.Code):
		return fmt.Errorf("%w: bad code %q", ErrMalformedRecord, p.Code)
	case !p.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrMalformedRecord, p.Status)
	case strings.TrimSpace(p.CityName) == "":
		return fmt.Errorf("%w: empty city_name", ErrMalformedRecord)
	case strings.TrimSpace(p.Language) == "":
		return fmt.Errorf("%w: empty language", ErrMalformedRecord)
	case p.Length < MinLengthMinutes || p.Length > MaxLengthMinutes:
		return fmt.Errorf("%w: length %v out of range", ErrMalformedRecord, p.Length)
	}
	return nil
}

// PodcastSummary is the field-limited view of a Podcast served by the
// polling endpoint. It omits the generation parameters and references.
type PodcastSummary struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	CityName      string    `json:"city_name"`
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	AudioURL      *string   `json:"audio_url"`
	ScriptContent *string   `json:"script_content"`
	Status        Status    `json:"status"`
	ErrorMessage  *string   `json:"error_message"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summary projects p onto the PodcastSummary view.
func (p *Podcast) Summary() PodcastSummary {
	return PodcastSummary{
		ID:            p.ID,
		Code:          p.Code,
		CityName:      p.CityName,
		Title:         p.Title,
		Description:   p.Description,
		AudioURL:      p.AudioURL,
		ScriptContent: p.ScriptContent,
		Status:        p.Status,
		ErrorMessage:  p.ErrorMessage,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// PodcastResult carries the fields the external generator reports back for a
// job. Nil pointers leave the stored column untouched.
type PodcastResult struct {
	Status        Status
	Title         *string
	Description   *string
	AudioURL      *string
	ScriptContent *string
	References    []Reference
	ErrorMessage  *string
}
