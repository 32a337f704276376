package app

import (
	"fmt"
	"strings"

	"lead_qualification_bot/internal/domain/participant"
	"lead_qualification_bot/internal/domain/survey"
)

// User-facing texts of the survey flow.
const (
	MsgManagerGreeting = "✅ Бот работает! Все новые анкеты будут автоматически приходить в этот чат."

	MsgHello = "Привет! Я помогу оценить ваши шансы на поступление в зарубежный вуз.\n\n" +
		"Ответьте на 9 коротких вопросов — это займёт не больше трёх минут, " +
		"а в конце вы получите персональную оценку и бесплатную консультацию."

	MsgHistoryHeader = "📋 Ваши ответы:"

	MsgContactRequest = "Отличные новости — ваш профиль нам подходит! 🎉\n\n" +
		"Оставьте номер телефона, чтобы мы могли связаться с вами: нажмите кнопку ниже " +
		"или введите номер в формате +7XXXXXXXXXX."

	MsgContactReceived = "✅ Контакт получен!"

	MsgCommentRequest = "Почти готово! Если хотите, добавьте комментарий: удобное время для звонка, " +
		"предпочтительный мессенджер или вопросы к консультанту.\n\n" +
		"Или просто отправьте заявку кнопкой ниже."

	MsgSuccess = "🎉 Заявка отправлена! Наш консультант свяжется с вами в ближайшее время."

	MsgNotQualified = "Спасибо за ответы! Сейчас мы не сможем взять вас в работу: " +
		"наши программы рассчитаны на другие вводные.\n\n" +
		"Подпишитесь на наши каналы — там много бесплатных материалов о поступлении."

	MsgFAQ = "Здесь мы делимся разборами кейсов, гайдами и отвечаем на вопросы:"

	MsgFreeTextError = "Пожалуйста, ответьте одним текстовым сообщением (не длиннее 1500 символов)."

	MsgCommentError = "Комментарий должен быть текстом не длиннее 1500 символов. " +
		"Или отправьте заявку кнопкой ниже."

	MsgPhoneFormatError = "Проверьте введённый номер: нужен формат +7XXXXXXXXXX. " +
		"Или поделитесь контактом кнопкой ниже."

	MsgAlreadyCompleted = "Вы уже прошли опрос"

	MsgReminder10Min = "Вы начали анкету, но не закончили — осталось всего несколько вопросов! " +
		"Нажмите «Продолжить», чтобы вернуться."

	MsgReminder2H = "Напоминаем про анкету: ответы займут пару минут, " +
		"а мы подготовим для вас персональную оценку шансов."

	MsgReminder24H = "Последнее напоминание: анкета всё ещё ждёт вас. " +
		"После заполнения мы свяжемся с вами и расскажем про варианты поступления."

	// CommentSkipSentinel is stored when the participant submits without a comment.
	CommentSkipSentinel = "-"
)

func reminderText(tier participant.ReminderTier) string {
	switch tier {
	case participant.ReminderTier10Min:
		return MsgReminder10Min
	case participant.ReminderTier2Hours:
		return MsgReminder2H
	case participant.ReminderTier24Hours:
		return MsgReminder24H
	default:
		return MsgReminder2H
	}
}

// formatHistory renders the running answer history shown in the pinned
// history message.
func formatHistory(entries []survey.HistoryEntry) string {
	var b strings.Builder
	b.WriteString(MsgHistoryHeader)
	b.WriteString("\n\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "%d. %s\n   ✅ %s\n\n", entry.Step, survey.Questions[entry.Step].Text, entry.Answer)
	}
	return b.String()
}
