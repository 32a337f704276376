// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"

	"lead_qualification_bot/internal/app"
	"lead_qualification_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig, // For ManagerTelegramID
	surveyService app.SurveyService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	commandLogger := baseLogger.WithField("handler_group", "commands")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := commandLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		// The manager's chat receives leads, not the questionnaire.
		if senderID == cfg.ManagerTelegramID {
			logCtx.Info("User identified as Manager")
			return c.Send(app.MsgManagerGreeting)
		}

		if err := surveyService.HandleStart(ctx, senderID, c.Sender().Username); err != nil {
			logCtx.WithError(err).Error("Error processing /start command")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		return nil
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := commandLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID == cfg.ManagerTelegramID {
			return c.Send("Новые анкеты приходят в этот чат автоматически. Кнопка «✅ Взять в работу» закрепляет лид за вами.")
		}
		return c.Send("Нажмите /start, чтобы начать или продолжить анкету. " +
			"Отвечайте кнопками под вопросами; кнопка «Назад» возвращает к предыдущему вопросу.")
	})
}
