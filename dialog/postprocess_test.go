package dialog

import "testing"

func TestStripQuestionsDropsInterrogativeSentence(t *testing.T) {
	got := StripQuestions("Конечно! Когда вам удобно? Пришлю варианты.")
	if got != "Конечно! Пришлю варианты." {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestStripQuestionsKeepsCleanText(t *testing.T) {
	in := "Пришлю 2-3 варианта сегодня."
	if got := StripQuestions(in); got != in {
		t.Fatalf("clean text must pass through, got %q", got)
	}
}

func TestStripQuestionsAllQuestionsFallsBackToFirstSentence(t *testing.T) {
	got := StripQuestions("Когда вам удобно? Может завтра?")
	if got != "Когда вам удобно." {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestStripQuestionsEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   "} {
		if got := StripQuestions(in); got != SafeFallback {
			t.Fatalf("blank input %q must yield the safe fallback, got %q", in, got)
		}
	}
}

func TestStripQuestionsBareQuestionMarks(t *testing.T) {
	if got := StripQuestions("?"); got != SafeFallback {
		t.Fatalf("nothing usable must yield the safe fallback, got %q", got)
	}
}

func TestStripQuestionsSplitsOnExclamations(t *testing.T) {
	got := StripQuestions("Отлично! А бюджет какой? Жду.")
	if got != "Отлично! Жду." {
		t.Fatalf("unexpected result: %q", got)
	}
}
