package dialog

import (
	"regexp"
	"strings"
)

// SafeFallback is returned when question stripping leaves nothing usable.
const SafeFallback = "Поняла, сейчас пришлю 2-3 варианта под ваш запрос 🙂"

var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	// Keep the terminator with its sentence: "A. B" -> ["A.", "B"].
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// StripQuestions removes interrogative sentences from generated text. It is
// a lexical heuristic kept behind this one entry point so the decider never
// depends on how sentences are segmented. If no sentence survives, the
// first sentence is kept with '?' replaced by '.'; if even that is blank,
// SafeFallback is returned.
func StripQuestions(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return SafeFallback
	}

	kept := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if !strings.Contains(s, "?") {
			kept = append(kept, s)
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}

	first := strings.TrimSpace(strings.ReplaceAll(sentences[0], "?", "."))
	if first == "" || first == "." {
		return SafeFallback
	}
	return first
}
