// internal/infra/telegram/survey_handlers.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"lead_qualification_bot/internal/app" // For SurveyService interface

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterSurveyHandlers wires all callback and message events of the survey
// flow into the orchestrator. Telebot allows a single OnCallback handler, so
// the manager's take-lead button is routed from here as well.
func RegisterSurveyHandlers(
	ctx context.Context,
	b *telebot.Bot,
	surveyService app.SurveyService,
	leadService *app.LeadService,
	baseLogger *logrus.Entry,
) {
	callbackLogger := baseLogger.WithField("handler_group", "survey_callbacks")

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimPrefix(c.Callback().Data, "\f")
		senderID := c.Sender().ID
		logCtx := callbackLogger.WithFields(logrus.Fields{"sender_id": senderID, "data": data})

		switch {
		case data == app.CallbackBeginSurvey:
			// The start keyboard stays in the chat; strip its buttons so a
			// stale tap cannot restart the flow unnoticed.
			if err := c.Edit(&telebot.ReplyMarkup{}); err != nil {
				logCtx.WithError(err).Debug("Could not strip start keyboard")
			}
			if err := surveyService.HandleBeginSurvey(ctx, senderID); err != nil {
				logCtx.WithError(err).Error("Failed to begin survey")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка. Попробуйте позже."})
			}
			return c.Respond()

		case strings.HasPrefix(data, app.CallbackAnswerPrefix):
			step, optionIndex, err := parseAnswerData(data)
			if err != nil {
				logCtx.WithError(err).Warn("Malformed answer callback")
				return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки ответа."})
			}
			if err := surveyService.HandleChoiceAnswer(ctx, senderID, step, optionIndex); err != nil {
				logCtx.WithError(err).Error("Failed to process choice answer")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			return c.Respond()

		case strings.HasPrefix(data, app.CallbackBackPrefix):
			step, err := strconv.Atoi(strings.TrimPrefix(data, app.CallbackBackPrefix))
			if err != nil {
				logCtx.WithError(err).Warn("Malformed back callback")
				return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки ответа."})
			}
			if err := surveyService.HandleBack(ctx, senderID, step); err != nil {
				logCtx.WithError(err).Error("Failed to process back event")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			return c.Respond()

		case strings.HasPrefix(data, app.CallbackContinuePrefix):
			targetID, err := strconv.ParseInt(strings.TrimPrefix(data, app.CallbackContinuePrefix), 10, 64)
			if err != nil {
				logCtx.WithError(err).Warn("Malformed continue callback")
				return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки ответа."})
			}
			if targetID != senderID {
				return c.Respond(&telebot.CallbackResponse{Text: "Это напоминание не для вас", ShowAlert: true})
			}
			// The reminder message has served its purpose.
			if err := c.Delete(); err != nil {
				logCtx.WithError(err).Debug("Could not delete reminder message")
			}
			if err := surveyService.HandleContinue(ctx, senderID); err != nil {
				logCtx.WithError(err).Error("Failed to resume after reminder")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			return c.Respond()

		case data == app.CallbackSubmitLead:
			if err := c.Edit(&telebot.ReplyMarkup{}); err != nil {
				logCtx.WithError(err).Debug("Could not strip submit keyboard")
			}
			if err := surveyService.HandleSkipComment(ctx, senderID); err != nil {
				logCtx.WithError(err).Error("Failed to submit application")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			return c.Respond()

		case strings.HasPrefix(data, app.CallbackTakeLeadPrefix):
			return handleTakeLead(ctx, c, data, leadService, logCtx)
		}

		logCtx.Debug("Unhandled callback data")
		return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
	})

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		return surveyService.HandleText(ctx, c.Sender().ID, c.Message().ID, c.Text())
	})

	b.Handle(telebot.OnContact, func(c telebot.Context) error {
		contact := c.Message().Contact
		if contact == nil {
			return nil
		}
		return surveyService.HandleContactShare(ctx, c.Sender().ID, contact.PhoneNumber)
	})
}

func parseAnswerData(data string) (step, optionIndex int, err error) {
	parts := strings.Split(data, "_") // answer_<step>_<optionIndex>
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("invalid answer callback format: %s", data)
	}
	step, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid step in answer callback %q: %w", data, err)
	}
	optionIndex, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid option index in answer callback %q: %w", data, err)
	}
	return step, optionIndex, nil
}
