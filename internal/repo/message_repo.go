// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// ConsultationMessage history.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// AppendConsultationMessage writes one history row. SentAt is stamped at
// write time, which is what keeps per-consultation ordering monotonic.
func AppendConsultationMessage(ctx context.Context, db *gorm.DB, consultationID uint, senderType string, senderID int64, senderName, text string, telegramMessageID int) (*domain.ConsultationMessage, error) {
	m := &domain.ConsultationMessage{
		ConsultationID:    consultationID,
		SenderType:        senderType,
		SenderID:          senderID,
		SenderName:        senderName,
		MessageText:       text,
		SentAt:            time.Now().UTC(),
		TelegramMessageID: telegramMessageID,
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// ListConsultationMessages returns the full history for a thread ordered
// deterministically (SentAt ASC, ID ASC).
func ListConsultationMessages(ctx context.Context, db *gorm.DB, consultationID uint) ([]domain.ConsultationMessage, error) {
	var out []domain.ConsultationMessage
	err := db.WithContext(ctx).
		Where("consultation_id = ?", consultationID).
		Order("sent_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListConsultationMessagesPage returns a paginated slice of the history.
func ListConsultationMessagesPage(ctx context.Context, db *gorm.DB, consultationID uint, offset, limit int) ([]domain.ConsultationMessage, error) {
	var out []domain.ConsultationMessage
	err := db.WithContext(ctx).
		Where("consultation_id = ?", consultationID).
		Order("sent_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountConsultationMessages uses a raw COUNT so a missing table surfaces as
// an error rather than a silent zero.
func CountConsultationMessages(ctx context.Context, db *gorm.DB, consultationID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM consultation_messages WHERE consultation_id = ?", consultationID).
		Scan(&total).Error
	return total, err
}
