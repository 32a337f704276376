package survey

import "testing"

func eligibleAnswers() map[int]string {
	return map[int]string{
		1: "14–17",
		2: "студент",
		3: "США",
		4: "гранты и собственные средства",
		5: "Средний",
		6: "2026",
		7: "IT и инженерия",
		8: "текст",
		9: "с менторами",
	}
}

func TestQualifiedTruthTable(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[int]string)
		expected bool
	}{
		{"all eligible", func(map[int]string) {}, true},
		{"too young", func(a map[int]string) { a[1] = "до 14" }, false},
		{"still in school", func(a map[int]string) { a[2] = "школа" }, false},
		{"grant-only funding", func(a map[int]string) { a[4] = "Рассчитывает только на грант" }, true}, // not the exact literal
		{"grant-only funding exact", func(a map[int]string) { a[4] = "Рассчитываю только на грант" }, false},
		{"late target year", func(a map[int]string) { a[6] = "2028 и позже" }, false},
		{"self-guided", func(a map[int]string) { a[9] = "самостоятельно" }, false},
		{
			// Age disqualifier alone suffices regardless of other answers.
			"age disqualifier dominates",
			func(a map[int]string) {
				a[1] = "до 14"
				a[2] = "студент"
				a[4] = "гранты и собственные средства"
				a[6] = "2026"
				a[9] = "с менторами"
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := eligibleAnswers()
			tt.mutate(answers)
			if got := Qualified(answers); got != tt.expected {
				t.Errorf("Qualified(%v) = %v, want %v", answers, got, tt.expected)
			}
		})
	}
}

func TestQuestionnaireShape(t *testing.T) {
	for step := 1; step <= QuestionCount; step++ {
		q, ok := Questions[step]
		if !ok {
			t.Fatalf("question %d is not defined", step)
		}
		if q.Text == "" {
			t.Fatalf("question %d has no text", step)
		}
		if step == FreeTextStep {
			if len(q.Options) != 0 {
				t.Fatalf("free-text step %d unexpectedly has options", step)
			}
			continue
		}
		if len(q.Options) == 0 {
			t.Fatalf("question %d has no options", step)
		}
	}
}
