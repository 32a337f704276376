package telegram

import (
	"context"
	"strconv"
	"strings"

	"lead_qualification_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// handleTakeLead processes the manager's claim button under a surfaced lead.
// Invoked from the shared callback router.
func handleTakeLead(
	ctx context.Context,
	c telebot.Context,
	data string,
	leadService *app.LeadService,
	logCtx *logrus.Entry,
) error {
	participantID, err := strconv.ParseInt(strings.TrimPrefix(data, app.CallbackTakeLeadPrefix), 10, 64)
	if err != nil {
		logCtx.WithError(err).Warn("Malformed take-lead callback")
		return c.Respond(&telebot.CallbackResponse{Text: "Ошибка ID заявки."})
	}

	snapshot, err := leadService.Claim(ctx, participantID, c.Sender().ID)
	if err != nil {
		switch err {
		case app.ErrClaimNotAuthorized:
			logCtx.Warn("Unauthorized take-lead attempt")
			return c.Respond(&telebot.CallbackResponse{Text: "Доступ запрещен", ShowAlert: true})
		case app.ErrLeadAlreadyClaimed:
			return c.Respond(&telebot.CallbackResponse{Text: "Лид уже взят в работу", ShowAlert: true})
		default:
			logCtx.WithError(err).Error("Failed to claim lead")
			return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
		}
	}

	// Replace the claimable message with the claimed snapshot.
	if err := c.Delete(); err != nil {
		logCtx.WithError(err).Debug("Could not delete claimed lead message")
	}
	if err := c.Send("Лид закреплён за вами"); err != nil {
		logCtx.WithError(err).Error("Failed to confirm lead claim")
	}
	if err := c.Send(snapshot); err != nil {
		logCtx.WithError(err).Error("Failed to re-send claimed lead snapshot")
	}
	return c.Respond()
}
