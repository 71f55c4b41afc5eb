// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the VetCall
// home-visit requests coming in from the public web form.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// CreateVetCall inserts a new home-visit request in pending status.
func CreateVetCall(ctx context.Context, db *gorm.DB, call *domain.VetCall) (*domain.VetCall, error) {
	call.Status = domain.VetCallStatusPending
	call.CreatedAt = time.Now().UTC()
	return call, db.WithContext(ctx).Create(call).Error
}

// GetVetCall fetches a home-visit request by primary key.
func GetVetCall(ctx context.Context, db *gorm.DB, id uint) (*domain.VetCall, error) {
	var call domain.VetCall
	if err := db.WithContext(ctx).First(&call, id).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

// ListVetCallsPage returns a page of requests, newest first, optionally
// filtered by status.
func ListVetCallsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.VetCall, error) {
	q := db.WithContext(ctx).Model(&domain.VetCall{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.VetCall
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountVetCalls counts requests, optionally by status.
func CountVetCalls(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.VetCall{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// UpdateVetCallStatus moves a request through its workflow. Returns
// ErrNotFound when the request does not exist.
func UpdateVetCallStatus(ctx context.Context, db *gorm.DB, id uint, status string) error {
	res := db.WithContext(ctx).Model(&domain.VetCall{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
