// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate counts shown on the
// operator dashboard.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

// DashboardStats is a snapshot of service-wide counters.
type DashboardStats struct {
	Users                int64 `json:"users"`
	Doctors              int64 `json:"doctors"`
	DoctorsPending       int64 `json:"doctors_pending"`
	Consultations        int64 `json:"consultations"`
	WaitingConsultations int64 `json:"waiting_consultations"`
	OpenConsultations    int64 `json:"open_consultations"`
	PendingVetCalls      int64 `json:"pending_vet_calls"`
}

// CollectDashboardStats runs the count queries behind the admin dashboard.
// Each count is a single lightweight query; partial failure aborts the whole
// snapshot so the dashboard never renders mixed-epoch numbers.
func CollectDashboardStats(ctx context.Context, db *gorm.DB) (*DashboardStats, error) {
	var s DashboardStats
	var err error

	if s.Users, err = CountUsers(ctx, db); err != nil {
		return nil, err
	}
	if s.Doctors, err = CountDoctors(ctx, db, false); err != nil {
		return nil, err
	}
	if s.DoctorsPending, err = CountDoctors(ctx, db, true); err != nil {
		return nil, err
	}
	if s.Consultations, err = CountConsultations(ctx, db); err != nil {
		return nil, err
	}
	if s.WaitingConsultations, err = CountActiveConsultations(ctx, db, domain.ActiveStatusWaiting); err != nil {
		return nil, err
	}

	var open int64
	if err = db.WithContext(ctx).Model(&domain.ActiveConsultation{}).
		Where("status IN ?", []string{domain.ActiveStatusWaiting, domain.ActiveStatusAssigned, domain.ActiveStatusActive}).
		Count(&open).Error; err != nil {
		return nil, err
	}
	s.OpenConsultations = open

	if s.PendingVetCalls, err = CountVetCalls(ctx, db, domain.VetCallStatusPending); err != nil {
		return nil, err
	}
	return &s, nil
}
