// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for
// DoctorNotification rows created during fan-out and suppressed at claim.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// CreateDoctorNotification records one successfully delivered broadcast.
func CreateDoctorNotification(ctx context.Context, db *gorm.DB, consultationID, doctorID uint, messageID int) (*domain.DoctorNotification, error) {
	n := &domain.DoctorNotification{
		ConsultationID: consultationID,
		DoctorID:       doctorID,
		MessageID:      messageID,
		IsResponded:    false,
		SentAt:         time.Now().UTC(),
	}
	return n, db.WithContext(ctx).Create(n).Error
}

// MarkNotificationResponded flips the claim flag for one (consultation,
// doctor) pair. The transition is one-way; re-marking is a no-op.
func MarkNotificationResponded(ctx context.Context, db *gorm.DB, consultationID, doctorID uint) error {
	return db.WithContext(ctx).Model(&domain.DoctorNotification{}).
		Where("consultation_id = ? AND doctor_id = ?", consultationID, doctorID).
		Update("is_responded", true).Error
}

// ListOpenNotifications returns the not-yet-responded sibling notifications
// for a consultation, excluding the given doctor. Used to edit the stale
// claim broadcasts of the losing doctors.
func ListOpenNotifications(ctx context.Context, db *gorm.DB, consultationID uint, excludeDoctorID uint) ([]domain.DoctorNotification, error) {
	var out []domain.DoctorNotification
	err := db.WithContext(ctx).
		Where("consultation_id = ? AND is_responded = ? AND doctor_id <> ?", consultationID, false, excludeDoctorID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// MarkAllNotificationsResponded mirrors the claim flag to every outstanding
// notification of the consultation in one statement.
func MarkAllNotificationsResponded(ctx context.Context, db *gorm.DB, consultationID uint) error {
	return db.WithContext(ctx).Model(&domain.DoctorNotification{}).
		Where("consultation_id = ? AND is_responded = ?", consultationID, false).
		Update("is_responded", true).Error
}

// CountNotifications returns how many broadcasts were recorded for a
// consultation.
func CountNotifications(ctx context.Context, db *gorm.DB, consultationID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.DoctorNotification{}).
		Where("consultation_id = ?", consultationID).
		Count(&total).Error
	return total, err
}
