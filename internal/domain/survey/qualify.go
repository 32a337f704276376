package survey

// Disqualifying answer literals, keyed by question number. Any single match
// disqualifies the participant regardless of the remaining answers.
var disqualifiers = map[int]string{
	1: "до 14",
	2: "школа",
	4: "Рассчитываю только на грант",
	6: "2028 и позже",
	9: "самостоятельно",
}

// Qualified maps a completed answer set to the qualification verdict. Pure
// function, no I/O.
func Qualified(answers map[int]string) bool {
	for step, value := range disqualifiers {
		if answers[step] == value {
			return false
		}
	}
	return true
}
