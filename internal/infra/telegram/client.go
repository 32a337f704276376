// internal/infra/telegram/client.go
package telegram

import (
	"strconv"
	"strings"

	domainTelegram "lead_qualification_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain Client interface using the
// gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient and returns the
// message ID as the delivery handle.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) (int, error) {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // Participants and the manager are direct user chats
	msg, err := tba.bot.Send(recipient, text, options)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (tba *TelebotAdapter) EditMessageText(chatID int64, messageID int, text string) error {
	ref := &telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	_, err := tba.bot.Edit(ref, text)
	return classify(err)
}

func (tba *TelebotAdapter) DeleteMessage(chatID int64, messageID int) error {
	ref := &telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	return classify(tba.bot.Delete(ref))
}

// classify maps Bot API failures onto the domain sentinels the core treats
// as non-fatal. Matching on the response description mirrors how the Bot API
// reports these cases.
func classify(err error) error {
	if err == nil {
		return nil
	}
	desc := err.Error()
	switch {
	case strings.Contains(desc, "message is not modified"):
		return domainTelegram.ErrMessageNotModified
	case strings.Contains(desc, "message to edit not found"),
		strings.Contains(desc, "message to delete not found"),
		strings.Contains(desc, "message can't be deleted"),
		strings.Contains(desc, "message not found"):
		return domainTelegram.ErrMessageNotFound
	default:
		return err
	}
}
