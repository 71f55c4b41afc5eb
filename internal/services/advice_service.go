package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetsupport/go-vet-backend/internal/ai"
	"github.com/vetsupport/go-vet-backend/internal/clinic"
	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
)

// maxQuestionLen bounds a single client question. Telegram caps messages at
// 4096 characters anyway, the limit here keeps the AI prompt sane.
const maxQuestionLen = 4000

// AdviceReply is what the client bot renders after a question comes in.
type AdviceReply struct {
	// Answer is never empty: either the AI answer or the clinic fallback.
	Answer string

	// Escalated is true when a new waiting thread was opened and doctors
	// should be notified.
	Escalated bool

	// Relayed is true when the message went into an already-open thread
	// instead of the AI. Answer is empty in that case.
	Relayed bool

	// Queued is true when the open thread is still waiting for a doctor,
	// so the follow-up only landed in the history and nobody has read it
	// yet. The client should be told the message was kept.
	Queued bool

	// ConsultationID identifies the open or newly created thread.
	ConsultationID uint
}

// AdviceService handles incoming client questions. A question either relays
// into the client's open consultation thread, or goes to the AI and opens a
// new waiting thread for a human follow-up.
type AdviceService struct {
	DB          *gorm.DB
	Advisor     ai.Advisor
	Coordinator *Coordinator
	Contact     clinic.Contact

	// AITimeout bounds the upstream completion call. Zero means no extra
	// bound beyond the HTTP client's own timeout.
	AITimeout time.Duration
}

// NewAdviceService wires an AdviceService with the default clinic contact.
func NewAdviceService(db *gorm.DB, advisor ai.Advisor, coord *Coordinator, contact clinic.Contact) *AdviceService {
	return &AdviceService{DB: db, Advisor: advisor, Coordinator: coord, Contact: contact}
}

// Ask processes one client question end to end.
//
// If the client already has an open thread with a bound doctor, the text is
// relayed there and no AI call happens. Otherwise the AI is consulted, the
// exchange is persisted as a Consultation, and a waiting escalation thread is
// opened regardless of whether the AI succeeded. The returned Answer is never
// empty on the AI path: an AI failure yields the clinic fallback text.
func (s *AdviceService) Ask(ctx context.Context, chatID int64, username, firstName, lastName, question string) (*AdviceReply, error) {
	tr := otel.Tracer("services/AdviceService")
	ctx, span := tr.Start(ctx, "Ask",
		trace.WithAttributes(attribute.Int64("client.chat_id", chatID)),
	)
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyMessage
	}
	if len(question) > maxQuestionLen {
		return nil, ErrQuestionTooLong
	}

	user, err := repo.UpsertUser(ctx, s.DB, chatID, username, firstName, lastName)
	if err != nil {
		return nil, err
	}
	displayName := user.FirstName
	if displayName == "" {
		displayName = user.Username
	}

	// An open thread takes priority over the AI: the client is already
	// talking to a person.
	if open, ferr := repo.FindOpenActiveByClient(ctx, s.DB, chatID); ferr == nil {
		if domain.IsRelayableStatus(open.Status) {
			if rerr := s.Coordinator.RelayClientMessage(ctx, open.ID, question); rerr != nil {
				return nil, rerr
			}
			return &AdviceReply{Relayed: true, ConsultationID: open.ID}, nil
		}
		// Waiting thread with no doctor yet: record the follow-up so the
		// eventual claimer sees it in the history flush.
		if _, aerr := repo.AppendConsultationMessage(ctx, s.DB, open.ID, domain.SenderClient, chatID, displayName, question, 0); aerr != nil {
			return nil, aerr
		}
		return &AdviceReply{Relayed: true, Queued: true, ConsultationID: open.ID}, nil
	} else if !errors.Is(ferr, repo.ErrNotFound) {
		return nil, ferr
	}

	answer := s.advise(ctx, question, displayName)

	consultation, err := repo.CreateConsultation(ctx, s.DB, user.ID, question, answer, domain.ConsultationStatusWaitingDoctor)
	if err != nil {
		return nil, err
	}

	ac, _, err := s.Coordinator.CreateRequest(ctx, chatID, username, displayName, question, &consultation.ID)
	if err != nil {
		return nil, err
	}
	if _, aerr := repo.AppendConsultationMessage(ctx, s.DB, ac.ID, domain.SenderAI, 0, "assistant", answer, 0); aerr != nil {
		log.Error().Err(aerr).Uint("consultation_id", ac.ID).Msg("ai answer not persisted to thread")
	}

	return &AdviceReply{Answer: answer, Escalated: true, ConsultationID: ac.ID}, nil
}

// advise runs the AI call and always produces usable text.
func (s *AdviceService) advise(ctx context.Context, question, displayName string) string {
	if s.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AITimeout)
		defer cancel()
	}

	answer, err := s.Advisor.GetAdvice(ctx, question, displayName)
	if err != nil || strings.TrimSpace(answer) == "" {
		aiRequests.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Msg("ai advice unavailable, using fallback")
		return clinic.FallbackAdvice(s.Contact)
	}
	aiRequests.WithLabelValues("ok").Inc()
	return answer
}
