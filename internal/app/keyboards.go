package app

import (
	"fmt"

	"lead_qualification_bot/internal/domain/survey"

	"gopkg.in/telebot.v3"
)

// Callback data prefixes shared with the telegram handlers.
const (
	CallbackBeginSurvey     = "begin_survey"
	CallbackAnswerPrefix    = "answer_"    // answer_<step>_<optionIndex>
	CallbackBackPrefix      = "back_"      // back_<step>
	CallbackContinuePrefix  = "continue_"  // continue_<participantID>
	CallbackSubmitLead      = "submit_application"
	CallbackTakeLeadPrefix  = "take_lead_" // take_lead_<participantID>
)

func startKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btnEstimate := markup.Data("Оценить шансы на поступление", CallbackBeginSurvey)
	btnConsult := markup.Data("Получить бесплатную консультацию", CallbackBeginSurvey)
	markup.Inline(markup.Row(btnEstimate), markup.Row(btnConsult))
	return markup
}

// questionKeyboard builds the inline options for a step, one option per row,
// plus a back button for every step after the first. The free-text step gets
// the back button only.
func questionKeyboard(step int) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(survey.Questions[step].Options)+1)
	for idx, option := range survey.Questions[step].Options {
		btn := markup.Data(option, fmt.Sprintf("%s%d_%d", CallbackAnswerPrefix, step, idx))
		rows = append(rows, markup.Row(btn))
	}
	if step > 1 {
		btnBack := markup.Data("Назад", fmt.Sprintf("%s%d", CallbackBackPrefix, step))
		rows = append(rows, markup.Row(btnBack))
	}
	markup.Inline(rows...)
	return markup
}

func contactKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	btn := markup.Contact("📱 Поделиться контактом")
	markup.Reply(markup.Row(btn))
	return markup
}

func removeKeyboard() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}

func commentKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btn := markup.Data("📤 Отправить заявку", CallbackSubmitLead)
	markup.Inline(markup.Row(btn))
	return markup
}

func continueKeyboard(participantID int64) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btn := markup.Data("➡️ Продолжить", fmt.Sprintf("%s%d", CallbackContinuePrefix, participantID))
	markup.Inline(markup.Row(btn))
	return markup
}

func takeLeadKeyboard(participantID int64) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btn := markup.Data("✅ Взять в работу", fmt.Sprintf("%s%d", CallbackTakeLeadPrefix, participantID))
	markup.Inline(markup.Row(btn))
	return markup
}

func faqKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btnInstagram := markup.URL("Instagram*", "http://instagram.com/jetminds.company/")
	btnChannel := markup.URL("Телеграм-канал", "http://t.me/jetmindscompany")
	markup.Inline(markup.Row(btnInstagram), markup.Row(btnChannel))
	return markup
}
