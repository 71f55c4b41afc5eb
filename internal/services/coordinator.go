// Package services – Coordinator
//
// The Coordinator owns the lifecycle of an escalation from "question needs a
// human" to "conversation closed". It guarantees that exactly one doctor is
// bound to a given escalation thread even under concurrent claim attempts:
// the conditional UPDATE in repo.ClaimActiveConsultation is the sole arbiter,
// no external locking is involved.
//
// All transport work (Telegram sends/edits) is best-effort: history rows are
// persisted first, and a failed delivery never rolls back a database write.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/notify"
	"github.com/vetsupport/go-vet-backend/internal/repo"
)

// Claim outcome reasons reported in ClaimResult and on metrics.
const (
	ClaimAssigned     = "assigned"
	ClaimAlreadyTaken = "already_taken"
	ClaimNotFound     = "not_found"
	ClaimNotEligible  = "not_eligible"
	ClaimBusy         = "busy"
)

// maxBroadcastPreview caps how many characters of the client question are
// quoted in the fan-out notification.
const maxBroadcastPreview = 200

// ClaimResult is the typed outcome of a claim attempt. AlreadyClaimed and
// NotFound are expected, recoverable outcomes and are reported here rather
// than as errors.
type ClaimResult struct {
	Assigned bool
	Reason   string

	// Consultation and Doctor are set when Assigned is true.
	Consultation *domain.ActiveConsultation
	Doctor       *domain.Doctor

	// TakenBy carries the winning doctor's name when Reason is
	// already_taken and the winner is known.
	TakenBy string
}

// Coordinator creates consultation requests, fans out doctor notifications,
// performs the atomic claim, and relays messages between both channels.
type Coordinator struct {
	DB *gorm.DB

	// ClientChannel reaches pet owners, DoctorChannel reaches doctors.
	ClientChannel notify.Messenger
	DoctorChannel notify.Messenger
}

// NewCoordinator wires a Coordinator over the given database handle and the
// two outbound channels.
func NewCoordinator(db *gorm.DB, clientCh, doctorCh notify.Messenger) *Coordinator {
	return &Coordinator{DB: db, ClientChannel: clientCh, DoctorChannel: doctorCh}
}

// CreateRequest opens a waiting escalation thread for the client, or returns
// the already-open one. The created flag tells the caller whether a new
// broadcast is warranted.
//
// Deduplication is deliberate: unlimited duplicate waiting threads per client
// would multiply fan-out noise for doctors.
func (c *Coordinator) CreateRequest(ctx context.Context, clientID int64, clientUsername, clientName, initialMessage string, consultationID *uint) (ac *domain.ActiveConsultation, created bool, err error) {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "CreateRequest",
		trace.WithAttributes(attribute.Int64("client.id", clientID)),
	)
	defer span.End()

	existing, err := repo.FindOpenActiveByClient(ctx, c.DB, clientID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	ac, err = repo.CreateActiveConsultation(ctx, c.DB, clientID, clientUsername, clientName, initialMessage, consultationID)
	if err != nil {
		return nil, false, err
	}
	escalationsCreated.Inc()

	log.Info().
		Uint("consultation_id", ac.ID).
		Int64("client_id", clientID).
		Msg("escalation created")
	return ac, true, nil
}

// NotifyDoctors broadcasts the "new client waiting" notice, with a claim
// button, to every eligible doctor. Per-doctor delivery failures are logged
// and skipped; one DoctorNotification row is persisted per delivered notice.
// Returns the number of doctors actually notified; zero means "no doctor
// available" and is not an error.
func (c *Coordinator) NotifyDoctors(ctx context.Context, consultationID uint) (int, error) {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "NotifyDoctors",
		trace.WithAttributes(attribute.Int("consultation.id", int(consultationID))),
	)
	defer span.End()

	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrConsultationNotFound
		}
		return 0, err
	}

	doctors, err := repo.ListEligibleDoctors(ctx, c.DB)
	if err != nil {
		return 0, err
	}
	if len(doctors) == 0 {
		log.Warn().Uint("consultation_id", consultationID).Msg("no eligible doctors for fan-out")
		return 0, nil
	}

	text := broadcastText(ac)
	notified := 0
	for _, d := range doctors {
		msgID, serr := c.DoctorChannel.SendClaimPrompt(ctx, d.ChatID, text, consultationID)
		if serr != nil {
			doctorNotifications.WithLabelValues("failed").Inc()
			log.Error().Err(serr).
				Uint("consultation_id", consultationID).
				Uint("doctor_id", d.ID).
				Msg("fan-out delivery failed")
			continue
		}
		if _, nerr := repo.CreateDoctorNotification(ctx, c.DB, consultationID, d.ID, msgID); nerr != nil {
			log.Error().Err(nerr).
				Uint("consultation_id", consultationID).
				Uint("doctor_id", d.ID).
				Msg("notification row not persisted")
			continue
		}
		doctorNotifications.WithLabelValues("sent").Inc()
		notified++
	}

	log.Info().
		Uint("consultation_id", consultationID).
		Int("notified", notified).
		Int("eligible", len(doctors)).
		Msg("doctors notified")
	return notified, nil
}

// ClaimConsultation binds the doctor identified by doctorChatID to the
// waiting thread. Under N concurrent claims exactly one caller gets
// Assigned=true; the rest get Reason=already_taken.
//
// Winner side effects: the doctor's own notification is marked responded,
// sibling notifications are mirrored and their broadcast messages edited, the
// client is told a named doctor joined, and the thread history is flushed to
// the doctor for context.
func (c *Coordinator) ClaimConsultation(ctx context.Context, consultationID uint, doctorChatID int64) (*ClaimResult, error) {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "ClaimConsultation",
		trace.WithAttributes(
			attribute.Int("consultation.id", int(consultationID)),
			attribute.Int64("doctor.chat_id", doctorChatID),
		),
	)
	defer span.End()

	doctor, err := repo.GetDoctorByChatID(ctx, c.DB, doctorChatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			claimAttempts.WithLabelValues(ClaimNotFound).Inc()
			return &ClaimResult{Reason: ClaimNotFound}, nil
		}
		return nil, err
	}
	if !doctor.IsApproved || !doctor.IsActive {
		claimAttempts.WithLabelValues(ClaimNotEligible).Inc()
		return &ClaimResult{Reason: ClaimNotEligible}, nil
	}

	// One open thread per doctor: reject the claim up front so a doctor
	// cannot end up with ambiguous relay routing. This is the fast path;
	// the claim update re-checks the same condition inside the UPDATE so
	// two concurrent claims by one doctor cannot both win.
	if _, err := repo.FindCurrentByDoctor(ctx, c.DB, doctor.ID); err == nil {
		claimAttempts.WithLabelValues(ClaimBusy).Inc()
		return &ClaimResult{Reason: ClaimBusy}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	claimed, err := repo.ClaimActiveConsultation(ctx, c.DB, consultationID, doctor.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return c.lostClaim(ctx, consultationID)
	}
	claimAttempts.WithLabelValues(ClaimAssigned).Inc()

	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if err != nil {
		return nil, err
	}

	// Claim flag for the winner, then mirror to the losers while we still
	// know which broadcasts are outstanding.
	if err := repo.MarkNotificationResponded(ctx, c.DB, consultationID, doctor.ID); err != nil {
		log.Error().Err(err).Uint("consultation_id", consultationID).Msg("winner notification not marked")
	}
	c.suppressSiblings(ctx, ac, doctor)

	if _, err := repo.AppendConsultationMessage(ctx, c.DB, consultationID, domain.SenderSystem, 0, "system",
		fmt.Sprintf("Doctor %s joined the consultation", doctor.FullName), 0); err != nil {
		log.Error().Err(err).Uint("consultation_id", consultationID).Msg("system message not persisted")
	}

	if ac.ConsultationID != nil {
		if err := repo.SetConsultationStatus(ctx, c.DB, *ac.ConsultationID, domain.ConsultationStatusWithDoctor); err != nil {
			log.Error().Err(err).Uint("consultation_id", *ac.ConsultationID).Msg("consultation status not updated")
		}
	}

	if _, serr := c.ClientChannel.SendText(ctx, ac.ClientID,
		fmt.Sprintf("Doctor %s joined your consultation and will answer shortly.", doctor.FullName)); serr != nil {
		log.Error().Err(serr).Int64("client_id", ac.ClientID).Msg("client join notice failed")
	}

	c.flushHistory(ctx, ac, doctor)

	if err := repo.TouchDoctorActivity(ctx, c.DB, doctor.ID); err != nil {
		log.Debug().Err(err).Uint("doctor_id", doctor.ID).Msg("activity touch failed")
	}

	log.Info().
		Uint("consultation_id", consultationID).
		Uint("doctor_id", doctor.ID).
		Msg("consultation claimed")
	return &ClaimResult{
		Assigned:     true,
		Reason:       ClaimAssigned,
		Consultation: ac,
		Doctor:       doctor,
	}, nil
}

// lostClaim classifies a zero-rows-affected claim: the thread no longer
// exists, was taken first, or is still waiting because the doctor already
// holds another open thread.
func (c *Coordinator) lostClaim(ctx context.Context, consultationID uint) (*ClaimResult, error) {
	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if errors.Is(err, repo.ErrNotFound) {
		claimAttempts.WithLabelValues(ClaimNotFound).Inc()
		return &ClaimResult{Reason: ClaimNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	// A waiting row would have matched the claim update unless the busy
	// guard blocked it.
	if ac.Status == domain.ActiveStatusWaiting {
		claimAttempts.WithLabelValues(ClaimBusy).Inc()
		return &ClaimResult{Reason: ClaimBusy}, nil
	}

	res := &ClaimResult{Reason: ClaimAlreadyTaken}
	if ac.DoctorID != nil {
		if winner, derr := repo.GetDoctor(ctx, c.DB, *ac.DoctorID); derr == nil {
			res.TakenBy = winner.FullName
		}
	}
	claimAttempts.WithLabelValues(ClaimAlreadyTaken).Inc()
	return res, nil
}

// suppressSiblings mirrors the claim flag to every outstanding notification
// and edits the losers' broadcast messages in place. Edit failures are logged
// and skipped.
func (c *Coordinator) suppressSiblings(ctx context.Context, ac *domain.ActiveConsultation, winner *domain.Doctor) {
	open, err := repo.ListOpenNotifications(ctx, c.DB, ac.ID, winner.ID)
	if err != nil {
		log.Error().Err(err).Uint("consultation_id", ac.ID).Msg("open notifications not listed")
		return
	}
	if err := repo.MarkAllNotificationsResponded(ctx, c.DB, ac.ID); err != nil {
		log.Error().Err(err).Uint("consultation_id", ac.ID).Msg("sibling notifications not mirrored")
	}

	text := fmt.Sprintf("Client already taken by Dr. %s at %s.",
		winner.FullName, time.Now().UTC().Format("15:04"))
	for _, n := range open {
		loser, derr := repo.GetDoctor(ctx, c.DB, n.DoctorID)
		if derr != nil {
			continue
		}
		if eerr := c.DoctorChannel.EditText(ctx, loser.ChatID, n.MessageID, text); eerr != nil {
			log.Warn().Err(eerr).
				Uint("doctor_id", n.DoctorID).
				Uint("consultation_id", ac.ID).
				Msg("stale broadcast not edited")
		}
	}
}

// flushHistory replays the thread history to the claiming doctor so they have
// context before any relay happens.
func (c *Coordinator) flushHistory(ctx context.Context, ac *domain.ActiveConsultation, doctor *domain.Doctor) {
	msgs, err := repo.ListConsultationMessages(ctx, c.DB, ac.ID)
	if err != nil {
		log.Error().Err(err).Uint("consultation_id", ac.ID).Msg("history not loaded")
		return
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Client: %s\nInitial question: %s\n", ac.ClientName, ac.InitialMessage))
	for _, m := range msgs {
		if m.SenderType == domain.SenderSystem {
			continue
		}
		b.WriteString(fmt.Sprintf("\n[%s] %s: %s", m.SentAt.Format("15:04"), m.SenderName, m.MessageText))
	}
	if _, serr := c.DoctorChannel.SendText(ctx, doctor.ChatID, b.String()); serr != nil {
		log.Error().Err(serr).Uint("doctor_id", doctor.ID).Msg("history flush failed")
	}
}

// RelayClientMessage forwards a client message into the thread. Valid only
// while a doctor is bound (assigned or active). The history row is persisted
// before delivery; a transport failure is reported but does not undo it.
func (c *Coordinator) RelayClientMessage(ctx context.Context, consultationID uint, text string) error {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "RelayClientMessage",
		trace.WithAttributes(attribute.Int("consultation.id", int(consultationID))),
	)
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	ac, doctor, err := c.relayTarget(ctx, consultationID)
	if err != nil {
		return err
	}

	if _, err := repo.AppendConsultationMessage(ctx, c.DB, consultationID, domain.SenderClient, ac.ClientID, ac.ClientName, text, 0); err != nil {
		return err
	}
	relayedMessages.WithLabelValues("client_to_doctor").Inc()

	if _, serr := c.DoctorChannel.SendText(ctx, doctor.ChatID,
		fmt.Sprintf("Client %s:\n\n%s", ac.ClientName, text)); serr != nil {
		log.Error().Err(serr).Uint("consultation_id", consultationID).Msg("relay to doctor failed")
		return fmt.Errorf("relay to doctor: %w", serr)
	}
	return nil
}

// RelayDoctorMessage forwards a doctor message to the client. The first
// doctor-side traffic promotes the thread from assigned to active.
func (c *Coordinator) RelayDoctorMessage(ctx context.Context, consultationID uint, text string) error {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "RelayDoctorMessage",
		trace.WithAttributes(attribute.Int("consultation.id", int(consultationID))),
	)
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	ac, doctor, err := c.relayTarget(ctx, consultationID)
	if err != nil {
		return err
	}

	if ac.Status == domain.ActiveStatusAssigned {
		if perr := repo.PromoteActiveConsultation(ctx, c.DB, consultationID); perr != nil {
			log.Error().Err(perr).Uint("consultation_id", consultationID).Msg("promotion failed")
		}
	}

	if _, err := repo.AppendConsultationMessage(ctx, c.DB, consultationID, domain.SenderDoctor, doctor.ChatID, doctor.FullName, text, 0); err != nil {
		return err
	}
	relayedMessages.WithLabelValues("doctor_to_client").Inc()

	if err := repo.TouchDoctorActivity(ctx, c.DB, doctor.ID); err != nil {
		log.Debug().Err(err).Uint("doctor_id", doctor.ID).Msg("activity touch failed")
	}

	if _, serr := c.ClientChannel.SendText(ctx, ac.ClientID,
		fmt.Sprintf("Doctor %s:\n\n%s", doctor.FullName, text)); serr != nil {
		log.Error().Err(serr).Uint("consultation_id", consultationID).Msg("relay to client failed")
		return fmt.Errorf("relay to client: %w", serr)
	}
	return nil
}

// InjectAdminMessage records an operator message in the history and delivers
// it to the client. The operator shares the doctor-style presentation.
func (c *Coordinator) InjectAdminMessage(ctx context.Context, consultationID uint, adminUsername, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConsultationNotFound
		}
		return err
	}
	if domain.IsTerminalStatus(ac.Status) {
		return ErrConsultationClosed
	}

	if _, err := repo.AppendConsultationMessage(ctx, c.DB, consultationID, domain.SenderAdmin, 0, adminUsername, text, 0); err != nil {
		return err
	}
	relayedMessages.WithLabelValues("admin_to_client").Inc()

	if _, serr := c.ClientChannel.SendText(ctx, ac.ClientID,
		fmt.Sprintf("Clinic operator %s:\n\n%s", adminUsername, text)); serr != nil {
		log.Error().Err(serr).Uint("consultation_id", consultationID).Msg("admin message delivery failed")
		return fmt.Errorf("deliver admin message: %w", serr)
	}
	return nil
}

// Reassign rebinds the thread to another doctor. The target must exist, be
// eligible, and differ from the currently assigned doctor; the thread status
// is left untouched. A system history row announces the handover and the new
// doctor receives the thread history.
func (c *Coordinator) Reassign(ctx context.Context, consultationID, newDoctorID uint) error {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "Reassign",
		trace.WithAttributes(
			attribute.Int("consultation.id", int(consultationID)),
			attribute.Int("doctor.id", int(newDoctorID)),
		),
	)
	defer span.End()

	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConsultationNotFound
		}
		return err
	}
	if domain.IsTerminalStatus(ac.Status) {
		return ErrConsultationClosed
	}
	if ac.DoctorID != nil && *ac.DoctorID == newDoctorID {
		return ErrSameDoctor
	}

	doctor, err := repo.GetDoctor(ctx, c.DB, newDoctorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}
	if !doctor.IsApproved || !doctor.IsActive {
		return ErrDoctorNotEligible
	}

	if err := repo.ReassignActiveDoctor(ctx, c.DB, consultationID, newDoctorID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConsultationClosed
		}
		return err
	}

	if _, err := repo.AppendConsultationMessage(ctx, c.DB, consultationID, domain.SenderSystem, 0, "system",
		fmt.Sprintf("Consultation reassigned to doctor %s", doctor.FullName), 0); err != nil {
		log.Error().Err(err).Uint("consultation_id", consultationID).Msg("reassign message not persisted")
	}

	if _, serr := c.ClientChannel.SendText(ctx, ac.ClientID,
		fmt.Sprintf("Your consultation was handed over to doctor %s.", doctor.FullName)); serr != nil {
		log.Warn().Err(serr).Int64("client_id", ac.ClientID).Msg("reassign notice failed")
	}
	c.flushHistory(ctx, ac, doctor)

	log.Info().
		Uint("consultation_id", consultationID).
		Uint("doctor_id", newDoctorID).
		Msg("consultation reassigned")
	return nil
}

// Complete closes the thread, notifies both sides, and marks the backing
// consultation record completed. Relays into a completed thread are rejected
// with ErrConsultationClosed from then on.
func (c *Coordinator) Complete(ctx context.Context, consultationID uint) error {
	tr := otel.Tracer("services/Coordinator")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(attribute.Int("consultation.id", int(consultationID))),
	)
	defer span.End()

	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConsultationNotFound
		}
		return err
	}
	if domain.IsTerminalStatus(ac.Status) {
		return ErrConsultationClosed
	}

	if err := repo.CompleteActiveConsultation(ctx, c.DB, consultationID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConsultationClosed
		}
		return err
	}

	if _, err := repo.AppendConsultationMessage(ctx, c.DB, consultationID, domain.SenderSystem, 0, "system",
		"Consultation completed", 0); err != nil {
		log.Error().Err(err).Uint("consultation_id", consultationID).Msg("completion message not persisted")
	}
	if ac.ConsultationID != nil {
		if err := repo.SetConsultationStatus(ctx, c.DB, *ac.ConsultationID, domain.ConsultationStatusCompleted); err != nil {
			log.Error().Err(err).Uint("consultation_id", *ac.ConsultationID).Msg("consultation status not updated")
		}
	}

	if _, serr := c.ClientChannel.SendText(ctx, ac.ClientID,
		"Your consultation is finished. Send a new question any time."); serr != nil {
		log.Warn().Err(serr).Int64("client_id", ac.ClientID).Msg("completion notice to client failed")
	}
	if ac.DoctorID != nil {
		if doctor, derr := repo.GetDoctor(ctx, c.DB, *ac.DoctorID); derr == nil {
			if _, serr := c.DoctorChannel.SendText(ctx, doctor.ChatID,
				"Consultation closed. You are free for the next client."); serr != nil {
				log.Warn().Err(serr).Uint("doctor_id", doctor.ID).Msg("completion notice to doctor failed")
			}
		}
	}

	log.Info().Uint("consultation_id", consultationID).Msg("consultation completed")
	return nil
}

// CurrentForDoctor returns the doctor's single non-terminal thread, or
// ErrConsultationNotFound when the doctor is free.
func (c *Coordinator) CurrentForDoctor(ctx context.Context, doctorID uint) (*domain.ActiveConsultation, error) {
	ac, err := repo.FindCurrentByDoctor(ctx, c.DB, doctorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConsultationNotFound
		}
		return nil, err
	}
	return ac, nil
}

// History returns the full ordered message history of a thread.
func (c *Coordinator) History(ctx context.Context, consultationID uint) ([]domain.ConsultationMessage, error) {
	msgs, err := repo.ListConsultationMessages(ctx, c.DB, consultationID)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// relayTarget loads and validates the thread for a relay operation.
func (c *Coordinator) relayTarget(ctx context.Context, consultationID uint) (*domain.ActiveConsultation, *domain.Doctor, error) {
	ac, err := repo.GetActiveConsultation(ctx, c.DB, consultationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrConsultationNotFound
		}
		return nil, nil, err
	}
	if domain.IsTerminalStatus(ac.Status) {
		return nil, nil, ErrConsultationClosed
	}
	if !domain.IsRelayableStatus(ac.Status) || ac.DoctorID == nil {
		return nil, nil, ErrNotAssigned
	}

	doctor, err := repo.GetDoctor(ctx, c.DB, *ac.DoctorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrDoctorNotFound
		}
		return nil, nil, err
	}
	return ac, doctor, nil
}

// broadcastText renders the fan-out notice sent to every eligible doctor.
func broadcastText(ac *domain.ActiveConsultation) string {
	preview := ac.InitialMessage
	// Truncate on rune boundaries so a multi-byte question is never cut
	// mid-character; Telegram rejects text that is not valid UTF-8.
	if runes := []rune(preview); len(runes) > maxBroadcastPreview {
		preview = string(runes[:maxBroadcastPreview]) + "..."
	}
	return fmt.Sprintf(
		"New client waiting for a consultation!\n\n"+
			"Client: %s\nQuestion: %s\nTime: %s\n\n"+
			"The first doctor to press the button takes the client.",
		ac.ClientName, preview, time.Now().UTC().Format("15:04"))
}
