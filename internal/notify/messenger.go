// Package notify abstracts the outbound messaging transport used by the
// coordinator and bots. Two logical channels exist: the client-facing bot
// and the doctor-facing bot; both satisfy the same Messenger interface so
// the coordinator never touches Telegram types directly.
package notify

import "context"

// Messenger is one outbound messaging channel.
//
// SendText and SendClaimPrompt return the transport message id so callers
// can later edit or delete the message. All methods are best-effort from the
// coordinator's point of view: a failed delivery is reported but must never
// roll back persisted state.
type Messenger interface {
	// SendText delivers plain text to the chat and returns the message id.
	SendText(ctx context.Context, chatID int64, text string) (int, error)

	// SendClaimPrompt delivers text with a single inline claim button whose
	// callback payload carries the consultation id.
	SendClaimPrompt(ctx context.Context, chatID int64, text string, consultationID uint) (int, error)

	// EditText replaces the text (and drops any buttons) of a previously
	// sent message.
	EditText(ctx context.Context, chatID int64, messageID int, text string) error

	// DeleteMessage removes a previously sent message.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
