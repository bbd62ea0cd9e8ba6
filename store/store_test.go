package store

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/semiekhin/sofia-bot/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = t.TempDir() + "/sofia_test.sqlite"
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHistoryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, 1, "assistant", "Здравствуйте!"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, 1, "user", "привет"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, 2, "user", "другой чат"); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := s.History(ctx, 1, 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("want 2 messages, got %d", len(history))
	}
	// Chronological, most recent last.
	if history[0].Role != "assistant" || history[1].Content != "привет" {
		t.Fatalf("order wrong: %+v", history)
	}
}

func TestHistoryLimitKeepsMostRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, content := range []string{"a", "b", "c", "d"} {
		if err := s.Append(ctx, 1, "user", content); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	history, err := s.History(ctx, 1, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Content != "c" || history[1].Content != "d" {
		t.Fatalf("limit must keep the tail: %+v", history)
	}
}

func TestClientName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	name, err := s.ClientName(ctx, 1)
	if err != nil || name != "" {
		t.Fatalf("unknown chat: name=%q err=%v", name, err)
	}
	if err := s.SaveClientName(ctx, 1, "Иван"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveClientName(ctx, 1, "Иван П."); err != nil {
		t.Fatalf("update: %v", err)
	}
	name, err = s.ClientName(ctx, 1)
	if err != nil || name != "Иван П." {
		t.Fatalf("name=%q err=%v", name, err)
	}
}

func TestClearChatResetsSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.Append(ctx, 1, "user", "привет")
	_ = s.RecordDecision(ctx, DecisionLog{ChatID: 1, Action: "CONTINUE"})
	if err := s.ClearChat(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}

	history, _ := s.History(ctx, 1, 10)
	if len(history) != 0 {
		t.Fatalf("history must be empty after reset: %+v", history)
	}
	decisions, _ := s.RecentDecisions(ctx, 1, 10)
	if len(decisions) != 0 {
		t.Fatalf("decision logs must be cleared: %+v", decisions)
	}
}

func TestModelModePersistence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mode, err := s.ModelMode(ctx)
	if err != nil || mode != llm.DefaultMode {
		t.Fatalf("default mode: %q err=%v", mode, err)
	}
	if err := s.SetModelMode(ctx, "gpt-4o"); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	mode, _ = s.ModelMode(ctx)
	if mode != "gpt-4o" {
		t.Fatalf("mode not persisted: %q", mode)
	}
	if err := s.SetModelMode(ctx, "gpt-9000"); err == nil {
		t.Fatalf("unknown mode must be rejected")
	}
}

func TestRecentDecisions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_ = s.RecordDecision(ctx, DecisionLog{ChatID: 1, Action: "CONTINUE", Reason: "normal"})
	}
	rows, err := s.RecentDecisions(ctx, 1, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("want 5 rows, got %d", len(rows))
	}
}

func TestFeedbackExport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fb := Feedback{
		ChatID:     1,
		UserID:     7,
		ExpertName: "Анна",
		Rating:     "good",
		Comment:    "живой тон",
		Context:    MarshalContext([]llm.Message{{Role: "user", Content: "привет"}}),
	}
	if err := s.SaveFeedback(ctx, fb); err != nil {
		t.Fatalf("save feedback: %v", err)
	}

	var buf bytes.Buffer
	n, err := s.ExportFeedbackJSON(ctx, &buf)
	if err != nil || n != 1 {
		t.Fatalf("export json: n=%d err=%v", n, err)
	}
	var records []FeedbackExportRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if records[0].Rating != "good" || records[0].ExpertName != "Анна" {
		t.Fatalf("unexpected record: %+v", records[0])
	}

	buf.Reset()
	n, err = s.ExportFeedbackCSV(ctx, &buf)
	if err != nil || n != 1 {
		t.Fatalf("export csv: n=%d err=%v", n, err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "context,rating") {
		t.Fatalf("unexpected csv: %q", buf.String())
	}

	summary, err := s.FeedbackSummary(ctx)
	if err != nil || summary.Good != 1 || summary.Bad != 0 || summary.WithComments != 1 {
		t.Fatalf("summary: %+v err=%v", summary, err)
	}
}

func TestActiveChats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.SaveClientName(ctx, 1, "Иван")
	_ = s.SaveClientName(ctx, 2, "Анна")
	_ = s.Append(ctx, 1, "user", "привет")

	chats, err := s.ActiveChats(ctx)
	if err != nil {
		t.Fatalf("active chats: %v", err)
	}
	if len(chats) != 1 || chats[0].ChatID != 1 {
		t.Fatalf("only chats with messages are active: %+v", chats)
	}
}
