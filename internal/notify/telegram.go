// Telegram-backed Messenger implementation.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ClaimCallbackPrefix prefixes the callback payload of the claim button.
// The doctor bot parses "take_client_<id>" back out of callback queries.
const ClaimCallbackPrefix = "take_client_"

// Telegram adapts a tgbotapi.BotAPI to the Messenger interface.
type Telegram struct {
	api *tgbotapi.BotAPI
}

// NewTelegram wraps an authorized bot API handle.
func NewTelegram(api *tgbotapi.BotAPI) *Telegram {
	return &Telegram{api: api}
}

// SendText implements Messenger.
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendClaimPrompt implements Messenger.
func (t *Telegram) SendClaimPrompt(ctx context.Context, chatID int64, text string, consultationID uint) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"Take this client",
				fmt.Sprintf("%s%d", ClaimCallbackPrefix, consultationID),
			),
		),
	)
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditText implements Messenger. Editing drops the inline keyboard, which is
// exactly what the "already taken" suppression needs.
func (t *Telegram) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := t.api.Send(edit)
	return err
}

// DeleteMessage implements Messenger.
func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}
