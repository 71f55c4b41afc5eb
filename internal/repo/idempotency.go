// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// IdempotencyKey model used to implement safe-retry semantics for public
// POST endpoints (vet-call submissions).
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// GetIdempotencyKey returns a non-expired record or ErrNotFound.
func GetIdempotencyKey(ctx context.Context, db *gorm.DB, scope, subject, key string, now time.Time) (*domain.IdempotencyKey, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.IdempotencyKey
	err := db.WithContext(ctx).
		Where("scope = ? AND subject = ? AND key = ? AND expires_at > ?", scope, subject, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotencyKey inserts a record and returns ErrDuplicate on unique
// violation.
func CreateIdempotencyKey(ctx context.Context, db *gorm.DB, scope, subject, key string, recordID uint, status int, ttl time.Duration) (*domain.IdempotencyKey, error) {
	now := time.Now().UTC()
	rec := &domain.IdempotencyKey{
		ID:        uuid.NewString(),
		Scope:     scope,
		Subject:   subject,
		Key:       key,
		RecordID:  recordID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
