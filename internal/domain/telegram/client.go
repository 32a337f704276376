package telegram

import (
	"errors"

	"gopkg.in/telebot.v3"
)

// Edit and delete failures the core treats as non-fatal. The adapter
// classifies raw Bot API errors into these sentinels.
var (
	ErrMessageNotModified = errors.New("message is not modified")
	ErrMessageNotFound    = errors.New("message to edit or delete not found")
)

// Client defines an interface for delivering and maintaining messages via a
// Telegram bot. It decouples the application logic from the bot library: the
// returned message ID is the delivery handle used for later edits/deletes.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) (messageID int, err error)
	EditMessageText(chatID int64, messageID int, text string) error
	DeleteMessage(chatID int64, messageID int) error
}
