// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Doctor
// model and the persisted registration sessions that precede a Doctor row.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// CreateDoctor inserts a freshly registered doctor. New doctors start
// unapproved and active; approval happens through the admin surface.
func CreateDoctor(ctx context.Context, db *gorm.DB, chatID int64, username, fullName, photoFileID string) (*domain.Doctor, error) {
	now := time.Now().UTC()
	d := &domain.Doctor{
		ChatID:       chatID,
		Username:     username,
		FullName:     fullName,
		PhotoFileID:  photoFileID,
		IsApproved:   false,
		IsActive:     true,
		RegisteredAt: now,
		LastActivity: now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return d, nil
}

// GetDoctor fetches a doctor by primary key.
func GetDoctor(ctx context.Context, db *gorm.DB, id uint) (*domain.Doctor, error) {
	var d domain.Doctor
	if err := db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDoctorByChatID fetches a doctor by their Telegram chat id.
func GetDoctorByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Doctor, error) {
	var d domain.Doctor
	if err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListEligibleDoctors returns the doctors that qualify for notification
// fan-out: approved by an admin and currently accepting assignments.
// Eligibility is evaluated at the instant of the query only.
func ListEligibleDoctors(ctx context.Context, db *gorm.DB) ([]domain.Doctor, error) {
	var out []domain.Doctor
	err := db.WithContext(ctx).
		Where("is_approved = ? AND is_active = ?", true, true).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ListDoctorsPage returns a page of doctors ordered by registration time.
func ListDoctorsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Doctor, error) {
	var out []domain.Doctor
	err := db.WithContext(ctx).
		Order("registered_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountDoctors returns the total number of doctors, optionally restricted to
// those still awaiting approval.
func CountDoctors(ctx context.Context, db *gorm.DB, pendingOnly bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Doctor{})
	if pendingOnly {
		q = q.Where("is_approved = ?", false)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// SetDoctorApproval flips the admin approval flag. Returns ErrNotFound when
// the doctor does not exist.
func SetDoctorApproval(ctx context.Context, db *gorm.DB, id uint, approved bool) error {
	res := db.WithContext(ctx).Model(&domain.Doctor{}).
		Where("id = ?", id).
		Update("is_approved", approved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDoctorActive toggles the doctor's own availability for new assignments.
func SetDoctorActive(ctx context.Context, db *gorm.DB, id uint, active bool) error {
	res := db.WithContext(ctx).Model(&domain.Doctor{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchDoctorActivity stamps last_activity with the current time.
func TouchDoctorActivity(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Model(&domain.Doctor{}).
		Where("id = ?", id).
		Update("last_activity", time.Now().UTC()).Error
}

// GetRegistrationSession returns the in-progress registration for a chat, or
// ErrNotFound when none exists.
func GetRegistrationSession(ctx context.Context, db *gorm.DB, chatID int64) (*domain.RegistrationSession, error) {
	var s domain.RegistrationSession
	if err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveRegistrationSession upserts the registration step for a chat.
func SaveRegistrationSession(ctx context.Context, db *gorm.DB, chatID int64, step, fullName string) error {
	var s domain.RegistrationSession
	err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&s).Error
	now := time.Now().UTC()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(&domain.RegistrationSession{
			ChatID:    chatID,
			Step:      step,
			FullName:  fullName,
			UpdatedAt: now,
		}).Error
	}
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&s).Updates(map[string]any{
		"step":       step,
		"full_name":  fullName,
		"updated_at": now,
	}).Error
}

// DeleteRegistrationSession removes the session once registration finishes
// or is cancelled. Deleting a missing session is not an error.
func DeleteRegistrationSession(ctx context.Context, db *gorm.DB, chatID int64) error {
	return db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&domain.RegistrationSession{}).Error
}

// isUniqueViolation detects unique-constraint failures from the pure-Go
// sqlite driver, which reports them as plain-text errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return err == gorm.ErrDuplicatedKey ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
