// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the code issued for a submission, keyed by
// (client_key, key). A client retrying the same submission with the same
// Idempotency-Key receives the original code instead of starting a second job.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);not null;primaryKey"`
	ClientKey string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_client_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_client_key,priority:2"`
	Code      string    `gorm:"type:char(6);not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
