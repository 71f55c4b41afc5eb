// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Consultation
// and ActiveConsultation, including the conditional claim update that
// arbitrates concurrent doctor claims.
//
// Error semantics:
//   - Missing records surface as ErrNotFound.
//   - ClaimActiveConsultation never errors on a lost race; it reports
//     claimed=false and leaves interpretation to the service layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// CreateConsultation inserts the AI-answered question record.
func CreateConsultation(ctx context.Context, db *gorm.DB, userID uint, question, aiResponse, status string) (*domain.Consultation, error) {
	c := &domain.Consultation{
		UserID:     userID,
		Question:   question,
		AIResponse: aiResponse,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	return c, db.WithContext(ctx).Create(c).Error
}

// GetConsultation fetches a consultation by primary key.
func GetConsultation(ctx context.Context, db *gorm.DB, id uint) (*domain.Consultation, error) {
	var c domain.Consultation
	if err := db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// SetConsultationStatus updates the lifecycle status of a consultation.
func SetConsultationStatus(ctx context.Context, db *gorm.DB, id uint, status string) error {
	res := db.WithContext(ctx).Model(&domain.Consultation{}).
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

// SetAdminResponse records an operator answer on the consultation record.
func SetAdminResponse(ctx context.Context, db *gorm.DB, id uint, response, adminUsername string) error {
	res := db.WithContext(ctx).Model(&domain.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"admin_response": response,
			"admin_username": adminUsername,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConsultationsPage returns a page of consultations, newest first.
func ListConsultationsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Consultation, error) {
	var out []domain.Consultation
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountConsultations returns the total number of consultation records.
func CountConsultations(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Consultation{}).Count(&total).Error
	return total, err
}

// CreateActiveConsultation inserts a new escalation thread in waiting status.
// Callers should first check FindOpenActiveByClient to keep the one-open-
// thread-per-client invariant; the service layer owns that decision.
func CreateActiveConsultation(ctx context.Context, db *gorm.DB, clientID int64, clientUsername, clientName, initialMessage string, consultationID *uint) (*domain.ActiveConsultation, error) {
	ac := &domain.ActiveConsultation{
		ClientID:       clientID,
		ConsultationID: consultationID,
		StartedAt:      time.Now().UTC(),
		Status:         domain.ActiveStatusWaiting,
		ClientUsername: clientUsername,
		ClientName:     clientName,
		InitialMessage: initialMessage,
	}
	return ac, db.WithContext(ctx).Create(ac).Error
}

// GetActiveConsultation fetches an escalation thread by primary key.
func GetActiveConsultation(ctx context.Context, db *gorm.DB, id uint) (*domain.ActiveConsultation, error) {
	var ac domain.ActiveConsultation
	if err := db.WithContext(ctx).First(&ac, id).Error; err != nil {
		return nil, err
	}
	return &ac, nil
}

// FindOpenActiveByClient returns the client's non-terminal escalation thread,
// or ErrNotFound when the client has none.
func FindOpenActiveByClient(ctx context.Context, db *gorm.DB, clientID int64) (*domain.ActiveConsultation, error) {
	var ac domain.ActiveConsultation
	err := db.WithContext(ctx).
		Where("client_id = ? AND status IN ?", clientID,
			[]string{domain.ActiveStatusWaiting, domain.ActiveStatusAssigned, domain.ActiveStatusActive}).
		Order("started_at DESC, id DESC").
		First(&ac).Error
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// FindCurrentByDoctor returns the doctor's non-terminal escalation thread,
// or ErrNotFound. A doctor holds at most one at a time; the claim path
// enforces that upstream.
func FindCurrentByDoctor(ctx context.Context, db *gorm.DB, doctorID uint) (*domain.ActiveConsultation, error) {
	var ac domain.ActiveConsultation
	err := db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ?", doctorID,
			[]string{domain.ActiveStatusAssigned, domain.ActiveStatusActive}).
		Order("started_at DESC, id DESC").
		First(&ac).Error
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// ClaimActiveConsultation performs the atomic first-claim-wins update:
//
//	UPDATE active_consultations
//	SET doctor_id = ?, status = 'assigned'
//	WHERE id = ? AND status = 'waiting'
//	  AND NOT EXISTS (another non-terminal row for this doctor)
//
// The WHERE guard is the sole arbiter under concurrent claims. Exactly one
// caller observes claimed=true; every later caller matches zero rows. The
// NOT EXISTS clause enforces one open thread per doctor inside the same
// statement, so a doctor pressing two claim buttons at once can win at most
// one of them.
func ClaimActiveConsultation(ctx context.Context, db *gorm.DB, id, doctorID uint) (claimed bool, err error) {
	res := db.WithContext(ctx).Model(&domain.ActiveConsultation{}).
		Where("id = ? AND status = ?", id, domain.ActiveStatusWaiting).
		Where("NOT EXISTS (SELECT 1 FROM active_consultations held WHERE held.doctor_id = ? AND held.status IN ?)",
			doctorID, []string{domain.ActiveStatusAssigned, domain.ActiveStatusActive}).
		Updates(map[string]any{
			"doctor_id": doctorID,
			"status":    domain.ActiveStatusAssigned,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PromoteActiveConsultation moves assigned -> active using the same
// conditional-update shape as the claim. Promoting an already-active thread
// matches zero rows and is not an error.
func PromoteActiveConsultation(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Model(&domain.ActiveConsultation{}).
		Where("id = ? AND status = ?", id, domain.ActiveStatusAssigned).
		Update("status", domain.ActiveStatusActive).Error
}

// CompleteActiveConsultation closes a non-terminal thread. Returns
// ErrNotFound when the thread does not exist or is already completed.
func CompleteActiveConsultation(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Model(&domain.ActiveConsultation{}).
		Where("id = ? AND status <> ?", id, domain.ActiveStatusCompleted).
		Update("status", domain.ActiveStatusCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReassignActiveDoctor rebinds a non-terminal thread to another doctor
// without touching its status.
func ReassignActiveDoctor(ctx context.Context, db *gorm.DB, id, doctorID uint) error {
	res := db.WithContext(ctx).Model(&domain.ActiveConsultation{}).
		Where("id = ? AND status <> ?", id, domain.ActiveStatusCompleted).
		Update("doctor_id", doctorID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveConsultationsPage returns a page of escalation threads, newest
// first, optionally filtered by status.
func ListActiveConsultationsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.ActiveConsultation, error) {
	q := db.WithContext(ctx).Model(&domain.ActiveConsultation{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.ActiveConsultation
	err := q.Order("started_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountActiveConsultations counts escalation threads, optionally by status.
func CountActiveConsultations(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.ActiveConsultation{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}
