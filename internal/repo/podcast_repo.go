// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Podcast
// job record.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (an alias of gorm.ErrRecordNotFound).
//   - A code collision on insert surfaces as ErrDuplicateCode. The unique
//     index on podcasts.code is the final arbiter of code ownership.
//   - A result that would move a job out of a terminal state surfaces as
//     ErrInvalidTransition.
//   - Anything else is the raw driver error.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-podcast-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

var (
	// ErrDuplicateCode indicates the code is already held by another row.
	ErrDuplicateCode = errors.New("duplicate podcast code")
	// ErrInvalidTransition indicates the stored status does not allow the
	// requested change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InsertPodcast persists p as a new pending job. ID and timestamps are filled
// in when empty. A unique violation on code maps to ErrDuplicateCode.
func InsertPodcast(ctx context.Context, db *gorm.DB, p *domain.Podcast) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = domain.StatusPending
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

// CodeExists reports whether any row holds code.
func CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Podcast{}).
		Where("code = ?", code).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// FindPodcastByCode returns the row holding code, or ErrNotFound.
func FindPodcastByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Podcast, error) {
	var p domain.Podcast
	if err := db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListRecentPodcasts returns at most limit rows ordered newest first.
// Ties on created_at are broken by id so pages are stable.
func ListRecentPodcasts(ctx context.Context, db *gorm.DB, limit int) ([]domain.Podcast, error) {
	var out []domain.Podcast
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ApplyPodcastResult records a generator result for the job holding code.
//
// The status change is guarded by the status read inside the transaction, so
// two concurrent results cannot both leave a non-terminal state. Nil fields
// in res leave the stored columns untouched.
func ApplyPodcastResult(ctx context.Context, db *gorm.DB, code string, res domain.PodcastResult) (*domain.Podcast, error) {
	var out domain.Podcast
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur domain.Podcast
		if err := tx.Where("code = ?", code).First(&cur).Error; err != nil {
			return err
		}
		if !cur.Status.CanTransition(res.Status) {
			return ErrInvalidTransition
		}

		updates := map[string]any{
			"status":     res.Status,
			"updated_at": time.Now().UTC(),
		}
		if res.Title != nil {
			updates["title"] = *res.Title
		}
		if res.Description != nil {
			updates["description"] = *res.Description
		}
		if res.AudioURL != nil {
			updates["audio_url"] = *res.AudioURL
		}
		if res.ScriptContent != nil {
			updates["script_content"] = *res.ScriptContent
		}
		if res.References != nil {
			updates["source_references"] = datatypes.JSONSlice[domain.Reference](res.References)
		}
		if res.ErrorMessage != nil {
			updates["error_message"] = *res.ErrorMessage
		}

		q := tx.Model(&domain.Podcast{}).
			Where("id = ? AND status = ?", cur.ID, cur.Status).
			Updates(updates)
		if q.Error != nil {
			return q.Error
		}
		if q.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return tx.Where("id = ?", cur.ID).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePodcast removes the job holding code. A missing row is not an error.
func DeletePodcast(ctx context.Context, db *gorm.DB, code string) error {
	return db.WithContext(ctx).Where("code = ?", code).Delete(&domain.Podcast{}).Error
}

// FailStalePodcasts marks every non-terminal job last updated before cutoff
// as failed with msg. It returns the number of rows changed.
func FailStalePodcasts(ctx context.Context, db *gorm.DB, cutoff time.Time, msg string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Podcast{}).
		Where("status IN ? AND updated_at < ?", []domain.Status{domain.StatusPending, domain.StatusGenerating}, cutoff).
		Updates(map[string]any{
			"status":        domain.StatusFailed,
			"error_message": msg,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// isUniqueViolation recognises unique-constraint failures across drivers.
// glebarez/sqlite and lib/pq both surface them as plain-text errors when the
// dialector cannot translate them.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
