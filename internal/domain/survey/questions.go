package survey

// QuestionCount is the number of questionnaire steps before the contact phase.
const QuestionCount = 9

// FreeTextStep is the one open-ended question answered with a text message
// instead of an inline option.
const FreeTextStep = 8

// MaxFreeTextLen bounds free-text answers and comments.
const MaxFreeTextLen = 1500

// Question is one questionnaire step. Options is empty for the free-text step.
type Question struct {
	Text    string
	Options []string
}

// Questions holds the questionnaire keyed by step number (1..QuestionCount).
var Questions = map[int]Question{
	1: {
		Text:    "Сколько вам лет?",
		Options: []string{"до 14", "14–17", "18–22", "23 и старше"},
	},
	2: {
		Text:    "Где вы сейчас учитесь?",
		Options: []string{"школа", "колледж", "студент", "уже закончил(а)"},
	},
	3: {
		Text:    "В какую страну рассматриваете поступление?",
		Options: []string{"США", "Великобритания", "Европа", "Азия", "Ещё не решил(а)"},
	},
	4: {
		Text:    "Как планируете финансировать обучение?",
		Options: []string{"Собственные средства", "гранты и собственные средства", "Рассчитываю только на грант"},
	},
	5: {
		Text:    "Какой у вас уровень английского?",
		Options: []string{"Начальный", "Средний", "Свободный", "Есть сертификат IELTS/TOEFL"},
	},
	6: {
		Text:    "В каком году планируете поступать?",
		Options: []string{"2026", "2027", "2028 и позже"},
	},
	7: {
		Text:    "Какое направление вам интересно?",
		Options: []string{"IT и инженерия", "Бизнес и экономика", "Медицина", "Творческие специальности", "Другое"},
	},
	8: {
		Text: "Расскажите о своих академических достижениях: средний балл, олимпиады, проекты. Ответьте одним сообщением.",
	},
	9: {
		Text:    "Как планируете готовиться к поступлению?",
		Options: []string{"с менторами", "самостоятельно"},
	},
}
