package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
)

// minDoctorNameLen is the minimum accepted length of a doctor's full name.
const minDoctorNameLen = 5

var nameCaser = cases.Title(language.Und)

// DoctorService manages doctor onboarding and availability. Registration is
// a persisted two-step flow (full name, then photo) so an in-flight
// registration survives a process restart.
type DoctorService struct {
	DB *gorm.DB
}

// NewDoctorService returns a DoctorService over the given database handle.
func NewDoctorService(db *gorm.DB) *DoctorService {
	return &DoctorService{DB: db}
}

// BeginRegistration starts (or restarts) the registration flow for chatID.
// Already registered doctors get ErrAlreadyRegistered.
func (s *DoctorService) BeginRegistration(ctx context.Context, chatID int64) error {
	tr := otel.Tracer("services/DoctorService")
	ctx, span := tr.Start(ctx, "BeginRegistration",
		trace.WithAttributes(attribute.Int64("doctor.chat_id", chatID)),
	)
	defer span.End()

	if _, err := repo.GetDoctorByChatID(ctx, s.DB, chatID); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	return repo.SaveRegistrationSession(ctx, s.DB, chatID, domain.RegistrationStepName, "")
}

// RegistrationStep reports which input the flow expects next, or
// ErrNoRegistration when no flow is in progress.
func (s *DoctorService) RegistrationStep(ctx context.Context, chatID int64) (string, error) {
	sess, err := repo.GetRegistrationSession(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrNoRegistration
		}
		return "", err
	}
	return sess.Step, nil
}

// SubmitName records the doctor's full name and advances the flow to the
// photo step. The name is trimmed and title-cased before storage.
func (s *DoctorService) SubmitName(ctx context.Context, chatID int64, fullName string) error {
	tr := otel.Tracer("services/DoctorService")
	ctx, span := tr.Start(ctx, "SubmitName",
		trace.WithAttributes(attribute.Int64("doctor.chat_id", chatID)),
	)
	defer span.End()

	sess, err := repo.GetRegistrationSession(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoRegistration
		}
		return err
	}
	if sess.Step != domain.RegistrationStepName {
		return ErrNoRegistration
	}

	fullName = strings.TrimSpace(fullName)
	if len([]rune(fullName)) < minDoctorNameLen {
		return ErrNameTooShort
	}
	fullName = nameCaser.String(strings.ToLower(fullName))

	return repo.SaveRegistrationSession(ctx, s.DB, chatID, domain.RegistrationStepPhoto, fullName)
}

// SubmitPhoto completes the flow: the doctor record is created unapproved
// and the registration session is discarded. Returns the created doctor.
func (s *DoctorService) SubmitPhoto(ctx context.Context, chatID int64, username, photoFileID string) (*domain.Doctor, error) {
	tr := otel.Tracer("services/DoctorService")
	ctx, span := tr.Start(ctx, "SubmitPhoto",
		trace.WithAttributes(attribute.Int64("doctor.chat_id", chatID)),
	)
	defer span.End()

	sess, err := repo.GetRegistrationSession(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoRegistration
		}
		return nil, err
	}
	if sess.Step != domain.RegistrationStepPhoto || sess.FullName == "" {
		return nil, ErrNoRegistration
	}

	doctor, err := repo.CreateDoctor(ctx, s.DB, chatID, username, sess.FullName, photoFileID)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}
	if derr := repo.DeleteRegistrationSession(ctx, s.DB, chatID); derr != nil {
		log.Warn().Err(derr).Int64("chat_id", chatID).Msg("registration session not cleaned up")
	}

	log.Info().
		Uint("doctor_id", doctor.ID).
		Str("full_name", doctor.FullName).
		Msg("doctor registered, awaiting approval")
	return doctor, nil
}

// CancelRegistration abandons any in-flight registration for chatID.
func (s *DoctorService) CancelRegistration(ctx context.Context, chatID int64) error {
	return repo.DeleteRegistrationSession(ctx, s.DB, chatID)
}

// Approve flips the doctor's approval flag. Only approved doctors receive
// the claim fan-out.
func (s *DoctorService) Approve(ctx context.Context, doctorID uint, approved bool) error {
	if err := repo.SetDoctorApproval(ctx, s.DB, doctorID, approved); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}
	log.Info().Uint("doctor_id", doctorID).Bool("approved", approved).Msg("doctor approval changed")
	return nil
}

// SetAvailability pauses or resumes a doctor. Paused doctors keep their
// current consultation but receive no new fan-out.
func (s *DoctorService) SetAvailability(ctx context.Context, chatID int64, active bool) (*domain.Doctor, error) {
	doctor, err := repo.GetDoctorByChatID(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if err := repo.SetDoctorActive(ctx, s.DB, doctor.ID, active); err != nil {
		return nil, err
	}
	doctor.IsActive = active
	return doctor, nil
}

// Profile returns the doctor bound to chatID.
func (s *DoctorService) Profile(ctx context.Context, chatID int64) (*domain.Doctor, error) {
	doctor, err := repo.GetDoctorByChatID(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return doctor, nil
}
