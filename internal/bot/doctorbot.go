package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/notify"
	"github.com/vetsupport/go-vet-backend/internal/services"
)

const doctorWelcome = `Welcome to the doctor workspace.

If you are not registered yet, send /register to start.

Commands:
/register - register as a clinic doctor
/pause - stop receiving new clients
/resume - start receiving new clients again
/complete - close your current consultation
/status - your registration and availability`

// DoctorBot is the doctor-facing long-poll loop.
type DoctorBot struct {
	api     *tgbotapi.BotAPI
	doctors *services.DoctorService
	coord   *services.Coordinator
}

// NewDoctorBot authorizes against Telegram and returns the loop.
func NewDoctorBot(token string, doctors *services.DoctorService, coord *services.Coordinator) (*DoctorBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("doctor bot auth: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("doctor bot authorized")
	return &DoctorBot{api: api, doctors: doctors, coord: coord}, nil
}

// API exposes the underlying client for building a notify.Messenger over the
// same connection.
func (b *DoctorBot) API() *tgbotapi.BotAPI { return b.api }

// Run consumes updates until ctx is cancelled.
func (b *DoctorBot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.CallbackQuery != nil:
				b.handleCallback(ctx, update.CallbackQuery)
			case update.Message != nil:
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

// handleCallback processes claim button presses.
func (b *DoctorBot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() {
		// Always answer the callback so the client-side spinner stops.
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Debug().Err(err).Msg("callback ack failed")
		}
	}()

	if !strings.HasPrefix(cb.Data, notify.ClaimCallbackPrefix) {
		return
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(cb.Data, notify.ClaimCallbackPrefix), 10, 64)
	if err != nil {
		log.Warn().Str("data", cb.Data).Msg("malformed claim callback")
		return
	}
	chatID := cb.From.ID

	res, err := b.coord.ClaimConsultation(ctx, uint(id), chatID)
	if err != nil {
		log.Error().Err(err).Uint64("consultation_id", id).Msg("claim failed")
		b.reply(chatID, "Something went wrong, try again in a moment.")
		return
	}

	switch res.Reason {
	case services.ClaimAssigned:
		// Winner side effects (history flush, client notice) are already
		// done; just confirm.
		b.reply(chatID, "The client is yours. Everything you write here goes to them. Send /complete when done.")
	case services.ClaimAlreadyTaken:
		if res.TakenBy != "" {
			b.reply(chatID, fmt.Sprintf("Too late, Dr. %s already took this client.", res.TakenBy))
		} else {
			b.reply(chatID, "Too late, another doctor already took this client.")
		}
	case services.ClaimBusy:
		b.reply(chatID, "Finish your current consultation first (/complete), then take a new client.")
	case services.ClaimNotEligible:
		b.reply(chatID, "Your account is not approved yet or is paused.")
	default:
		b.reply(chatID, "This consultation is no longer available.")
	}
}

func (b *DoctorBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, msg)
		return
	}

	// Registration photo step.
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, chatID, msg)
		return
	}

	// In-flight registration consumes free text as the name step.
	if step, err := b.doctors.RegistrationStep(ctx, chatID); err == nil && step == domain.RegistrationStepName {
		b.handleNameStep(ctx, chatID, msg.Text)
		return
	}

	b.relayToClient(ctx, chatID, msg.Text)
}

func (b *DoctorBot) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, doctorWelcome)

	case "register":
		switch err := b.doctors.BeginRegistration(ctx, chatID); {
		case err == nil:
			b.reply(chatID, "Let's get you registered. Send your full name (as clients should see it).")
		case errors.Is(err, services.ErrAlreadyRegistered):
			b.reply(chatID, "You are already registered.")
		default:
			log.Error().Err(err).Int64("chat_id", chatID).Msg("registration start failed")
			b.reply(chatID, "Could not start registration, try again later.")
		}

	case "cancel":
		if err := b.doctors.CancelRegistration(ctx, chatID); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("registration cancel failed")
		}
		b.reply(chatID, "Registration cancelled.")

	case "pause":
		b.setAvailability(ctx, chatID, false, "You are paused and will not receive new clients. Send /resume to come back.")

	case "resume":
		b.setAvailability(ctx, chatID, true, "You are back on duty and will receive new clients.")

	case "complete":
		b.completeCurrent(ctx, chatID)

	case "status":
		b.sendStatus(ctx, chatID)

	default:
		b.reply(chatID, "Unknown command. Send /help for the list.")
	}
}

func (b *DoctorBot) handleNameStep(ctx context.Context, chatID int64, text string) {
	switch err := b.doctors.SubmitName(ctx, chatID, text); {
	case err == nil:
		b.reply(chatID, "Now send a photo of yourself or of your diploma.")
	case errors.Is(err, services.ErrNameTooShort):
		b.reply(chatID, "That name looks too short. Send your full name, e.g. \"Anna Petrova\".")
	default:
		log.Error().Err(err).Int64("chat_id", chatID).Msg("name step failed")
		b.reply(chatID, "Could not save the name, try again.")
	}
}

func (b *DoctorBot) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	// Telegram sends multiple sizes, the last one is the largest.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	doctor, err := b.doctors.SubmitPhoto(ctx, chatID, msg.From.UserName, fileID)
	switch {
	case err == nil:
		b.reply(chatID, fmt.Sprintf(
			"Thank you, %s! Your application is submitted and awaits administrator approval. You will start receiving clients once approved.",
			doctor.FullName))
	case errors.Is(err, services.ErrNoRegistration):
		b.reply(chatID, "Send /register first to start the registration.")
	case errors.Is(err, services.ErrAlreadyRegistered):
		b.reply(chatID, "You are already registered.")
	default:
		log.Error().Err(err).Int64("chat_id", chatID).Msg("photo step failed")
		b.reply(chatID, "Could not finish the registration, try again.")
	}
}

func (b *DoctorBot) relayToClient(ctx context.Context, chatID int64, text string) {
	doctor, err := b.doctors.Profile(ctx, chatID)
	if err != nil {
		b.reply(chatID, "You are not registered. Send /register to start.")
		return
	}

	current, err := b.coord.CurrentForDoctor(ctx, doctor.ID)
	if err != nil {
		if errors.Is(err, services.ErrConsultationNotFound) {
			b.reply(chatID, "You have no active consultation. Wait for a new client notification.")
			return
		}
		log.Error().Err(err).Int64("chat_id", chatID).Msg("current consultation lookup failed")
		return
	}

	if err := b.coord.RelayDoctorMessage(ctx, current.ID, text); err != nil {
		log.Error().Err(err).Uint("consultation_id", current.ID).Msg("doctor relay failed")
		b.reply(chatID, "The message could not be delivered, try again.")
	}
}

func (b *DoctorBot) completeCurrent(ctx context.Context, chatID int64) {
	doctor, err := b.doctors.Profile(ctx, chatID)
	if err != nil {
		b.reply(chatID, "You are not registered. Send /register to start.")
		return
	}
	current, err := b.coord.CurrentForDoctor(ctx, doctor.ID)
	if err != nil {
		b.reply(chatID, "You have no active consultation to complete.")
		return
	}
	if err := b.coord.Complete(ctx, current.ID); err != nil {
		log.Error().Err(err).Uint("consultation_id", current.ID).Msg("completion failed")
		b.reply(chatID, "Could not complete the consultation, try again.")
	}
}

func (b *DoctorBot) setAvailability(ctx context.Context, chatID int64, active bool, okText string) {
	if _, err := b.doctors.SetAvailability(ctx, chatID, active); err != nil {
		if errors.Is(err, services.ErrDoctorNotFound) {
			b.reply(chatID, "You are not registered. Send /register to start.")
			return
		}
		log.Error().Err(err).Int64("chat_id", chatID).Msg("availability change failed")
		b.reply(chatID, "Could not change your availability, try again.")
		return
	}
	b.reply(chatID, okText)
}

func (b *DoctorBot) sendStatus(ctx context.Context, chatID int64) {
	doctor, err := b.doctors.Profile(ctx, chatID)
	if err != nil {
		b.reply(chatID, "You are not registered. Send /register to start.")
		return
	}

	state := "awaiting approval"
	if doctor.IsApproved && doctor.IsActive {
		state = "on duty"
	} else if doctor.IsApproved {
		state = "paused"
	}

	text := fmt.Sprintf("Name: %s\nStatus: %s", doctor.FullName, state)
	if current, cerr := b.coord.CurrentForDoctor(ctx, doctor.ID); cerr == nil {
		text += fmt.Sprintf("\nCurrent client: %s", current.ClientName)
	}
	b.reply(chatID, text)
}

func (b *DoctorBot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("doctor reply failed")
	}
}
