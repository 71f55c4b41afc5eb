package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
)

// vetCallKeyTTL bounds how long a submitted Idempotency-Key suppresses a
// duplicate home-visit request.
const vetCallKeyTTL = 24 * time.Hour

// Validation errors for the vet-call form.
var (
	ErrVetCallNotFound  = errors.New("vet call not found")
	ErrInvalidVetCall   = errors.New("invalid vet call request")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrDuplicateVetCall = errors.New("duplicate vet call submission")
)

// VetCallService handles "call a vet to my home" requests submitted through
// the public API or collected by the client bot.
type VetCallService struct {
	DB *gorm.DB
}

// NewVetCallService returns a VetCallService over the given database handle.
func NewVetCallService(db *gorm.DB) *VetCallService {
	return &VetCallService{DB: db}
}

// Submit validates and stores a home-visit request. When idemKey is
// non-empty, a repeated submission with the same key within the TTL returns
// the original record instead of creating a second one.
func (s *VetCallService) Submit(ctx context.Context, call *domain.VetCall, idemKey string) (*domain.VetCall, bool, error) {
	if err := validateVetCall(call); err != nil {
		return nil, false, err
	}

	subject := strings.TrimSpace(call.Phone)
	if idemKey != "" {
		if prior, err := repo.GetIdempotencyKey(ctx, s.DB, "vet_call", subject, idemKey, time.Now()); err == nil {
			existing, gerr := repo.GetVetCall(ctx, s.DB, prior.RecordID)
			if gerr == nil {
				return existing, true, nil
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, false, err
		}
	}

	created, err := repo.CreateVetCall(ctx, s.DB, call)
	if err != nil {
		return nil, false, err
	}

	if idemKey != "" {
		if _, kerr := repo.CreateIdempotencyKey(ctx, s.DB, "vet_call", subject, idemKey, created.ID, 201, vetCallKeyTTL); kerr != nil {
			if errors.Is(kerr, repo.ErrDuplicate) {
				// Lost a race with an identical submission.
				return created, false, ErrDuplicateVetCall
			}
			log.Warn().Err(kerr).Uint("vet_call_id", created.ID).Msg("idempotency key not recorded")
		}
	}

	log.Info().
		Uint("vet_call_id", created.ID).
		Str("urgency", created.Urgency).
		Msg("vet call submitted")
	return created, false, nil
}

// Get returns one vet-call record.
func (s *VetCallService) Get(ctx context.Context, id uint) (*domain.VetCall, error) {
	call, err := repo.GetVetCall(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrVetCallNotFound
		}
		return nil, err
	}
	return call, nil
}

// List pages vet calls, optionally filtered by status.
func (s *VetCallService) List(ctx context.Context, status string, offset, limit int) ([]domain.VetCall, int64, error) {
	if status != "" && !validVetCallStatus(status) {
		return nil, 0, ErrInvalidStatus
	}
	calls, err := repo.ListVetCallsPage(ctx, s.DB, status, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountVetCalls(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	return calls, total, nil
}

// SetStatus moves a vet call to another workflow status.
func (s *VetCallService) SetStatus(ctx context.Context, id uint, status string) error {
	if !validVetCallStatus(status) {
		return ErrInvalidStatus
	}
	if err := repo.UpdateVetCallStatus(ctx, s.DB, id, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrVetCallNotFound
		}
		return err
	}
	return nil
}

func validVetCallStatus(status string) bool {
	switch status {
	case domain.VetCallStatusPending, domain.VetCallStatusApproved,
		domain.VetCallStatusCompleted, domain.VetCallStatusCancelled:
		return true
	}
	return false
}

func validateVetCall(call *domain.VetCall) error {
	if call == nil {
		return ErrInvalidVetCall
	}
	if strings.TrimSpace(call.Name) == "" ||
		strings.TrimSpace(call.Phone) == "" ||
		strings.TrimSpace(call.Address) == "" ||
		strings.TrimSpace(call.Problem) == "" {
		return ErrInvalidVetCall
	}
	return nil
}
