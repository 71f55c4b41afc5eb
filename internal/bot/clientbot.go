// Package bot hosts the two Telegram long-poll loops: the client-facing bot
// that pet owners talk to and the doctor-facing bot that doctors claim and
// answer consultations from. Both loops are context-aware and drain cleanly
// when the root context is cancelled.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/vetsupport/go-vet-backend/internal/clinic"
	"github.com/vetsupport/go-vet-backend/internal/services"
)

// pollTimeout is the long-poll timeout in seconds for GetUpdates.
const pollTimeout = 60

const clientWelcome = `Hello! I am the veterinary clinic assistant.

Describe your pet's problem in one message and I will answer right away.
A licensed doctor will review every question and join the chat if needed.

Commands:
/help - how this works
/call - order a home visit`

const clientHelp = `Send any question about your pet as plain text.

You get an instant first answer, and the question is forwarded to our
doctors. When a doctor joins, the chat becomes a live conversation:
everything you write goes straight to the doctor until the consultation
is closed.

/call - order a vet home visit`

// ClientBot is the pet-owner facing long-poll loop.
type ClientBot struct {
	api     *tgbotapi.BotAPI
	advice  *services.AdviceService
	coord   *services.Coordinator
	contact clinic.Contact
}

// NewClientBot authorizes against Telegram and returns the loop.
func NewClientBot(token string, advice *services.AdviceService, coord *services.Coordinator, contact clinic.Contact) (*ClientBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("client bot auth: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("client bot authorized")
	return &ClientBot{api: api, advice: advice, coord: coord, contact: contact}, nil
}

// API exposes the underlying client so the process can build a
// notify.Messenger over the same connection.
func (b *ClientBot) API() *tgbotapi.BotAPI { return b.api }

// Run consumes updates until ctx is cancelled.
func (b *ClientBot) Run(ctx context.Context) {
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
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *ClientBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.reply(chatID, clientWelcome)
		case "help":
			b.reply(chatID, clientHelp)
		case "call":
			b.reply(chatID, clinic.VetCallInstructions(b.contact))
		default:
			b.reply(chatID, "Unknown command. Send /help for the list.")
		}
		return
	}

	if msg.Text == "" {
		b.reply(chatID, "Please describe the problem as text so the doctor can read it.")
		return
	}

	reply, err := b.advice.Ask(ctx, chatID, msg.From.UserName, msg.From.FirstName, msg.From.LastName, msg.Text)
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			b.reply(chatID, "The message is empty. Describe your pet's problem as text.")
		case services.ErrQuestionTooLong:
			b.reply(chatID, "That message is too long. Please split it into shorter ones.")
		default:
			log.Error().Err(err).Int64("chat_id", chatID).Msg("question handling failed")
			b.reply(chatID, clinic.FallbackAdvice(b.contact))
		}
		return
	}

	if reply.Relayed {
		// No AI answer to render. A queued follow-up still deserves an
		// acknowledgement, the thread has no doctor to answer yet.
		if reply.Queued {
			b.reply(chatID, "Added to your pending consultation. The doctor will see the full history when they join.")
		}
		return
	}

	b.reply(chatID, reply.Answer+"\n\nYour question was also forwarded to our doctors. One of them will join this chat shortly.")
	if reply.Escalated {
		if _, nerr := b.coord.NotifyDoctors(ctx, reply.ConsultationID); nerr != nil {
			log.Error().Err(nerr).Uint("consultation_id", reply.ConsultationID).Msg("doctor fan-out failed")
		}
	}
}

func (b *ClientBot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("client reply failed")
	}
}
