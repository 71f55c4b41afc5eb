// Package domain defines the core persistence models for the application.
package domain

import "time"

// IdempotencyKey records a previously processed public submission, keyed by
// (scope, subject, key). It lets the vet-call intake endpoint deduplicate
// form double-submits and client retries without re-executing side effects.
type IdempotencyKey struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:1"`
	Subject   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:3"`
	RecordID  uint      `gorm:"type:INTEGER NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyKey) TableName() string { return "idempotency_keys" }
