package main

import (
	"strings"
	"testing"

	"github.com/semiekhin/sofia-bot/dialog"
	"github.com/semiekhin/sofia-bot/llm"
	"github.com/semiekhin/sofia-bot/persona"
	"github.com/semiekhin/sofia-bot/store"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in  string
		cmd string
		arg string
	}{
		{"/start", "/start", ""},
		{"/start Иван Петров", "/start", "Иван Петров"},
		{"/model gpt-4o", "/model", "gpt-4o"},
		{"/reset@sofia_bot", "/reset", ""},
		{"  /help  ", "/help", ""},
	}
	for _, tc := range cases {
		cmd, arg := splitCommand(tc.in)
		if cmd != tc.cmd || arg != tc.arg {
			t.Fatalf("splitCommand(%q) = %q, %q, want %q, %q", tc.in, cmd, arg, tc.cmd, tc.arg)
		}
	}
}

func TestTelegramDisplayName(t *testing.T) {
	cases := []struct {
		user *telegramUser
		want string
	}{
		{nil, ""},
		{&telegramUser{FirstName: "Анна", LastName: "Иванова"}, "Анна Иванова"},
		{&telegramUser{FirstName: "Анна"}, "Анна"},
		{&telegramUser{Username: "anna"}, "@anna"},
		{&telegramUser{}, ""},
	}
	for _, tc := range cases {
		if got := telegramDisplayName(tc.user); got != tc.want {
			t.Fatalf("telegramDisplayName(%#v) = %q, want %q", tc.user, got, tc.want)
		}
	}
}

func TestMorningPingText(t *testing.T) {
	got := morningPingText(store.ChatMeta{ChatID: 1, ClientName: "Иван Петров"})
	if !strings.HasPrefix(got, "Иван, ") {
		t.Fatalf("expected first name prefix, got %q", got)
	}
	got = morningPingText(store.ChatMeta{ChatID: 2})
	if !strings.HasPrefix(got, "друг, ") {
		t.Fatalf("expected fallback name, got %q", got)
	}
}

func TestSnapshotDecisionPendingTurnCountedOnce(t *testing.T) {
	history := []llm.Message{
		{Role: "assistant", Content: "Анна, здравствуйте! Что ищете?"},
		{Role: "user", Content: "Пришлите подборку"},
	}
	stats, decision := snapshotDecision(history, dialog.DefaultThresholds())
	if decision.Reason != dialog.ReasonFirstSendRequest {
		t.Fatalf("reason = %q, want %q", decision.Reason, dialog.ReasonFirstSendRequest)
	}
	if decision.Action != dialog.ActionQualifyThenSend {
		t.Fatalf("action = %q, want %q", decision.Action, dialog.ActionQualifyThenSend)
	}
	if stats.SendRequests != 0 {
		t.Fatalf("send requests in analyzed history = %d, want 0 (the pending turn is the latest utterance)", stats.SendRequests)
	}
}

func TestSnapshotDecisionAnsweredTurn(t *testing.T) {
	history := []llm.Message{
		{Role: "assistant", Content: "Анна, здравствуйте! Что ищете?"},
		{Role: "user", Content: "Пришлите подборку"},
		{Role: "assistant", Content: "Конечно, пришлю 2-3 варианта."},
	}
	stats, decision := snapshotDecision(history, dialog.DefaultThresholds())
	if stats.SendRequests != 1 {
		t.Fatalf("send requests = %d, want 1", stats.SendRequests)
	}
	if decision.Reason != dialog.ReasonNormal {
		t.Fatalf("reason = %q, want %q", decision.Reason, dialog.ReasonNormal)
	}
}

func TestStatusTextIncludesDecision(t *testing.T) {
	stats := dialog.Stats{TotalMessages: 4, UserMessages: 2, BotMessages: 2}
	decision := dialog.Decision{Action: dialog.ActionQualifyOrCall, Reason: dialog.ReasonNormal}
	got := statusText(stats, decision)
	if !strings.Contains(got, "Сообщений: 4") {
		t.Fatalf("missing message count in %q", got)
	}
	if !strings.Contains(got, string(dialog.ActionQualifyOrCall)) {
		t.Fatalf("missing action in %q", got)
	}
}

func TestHealthReportStatuses(t *testing.T) {
	p := persona.Default()
	report := healthReport(p, store.FeedbackStats{Good: 9, Bad: 1}, 12)
	if !strings.Contains(report, "GOOD rate: 90%") {
		t.Fatalf("unexpected rate in %q", report)
	}
	if !strings.Contains(report, "Диалогов: 12") {
		t.Fatalf("missing dialog count in %q", report)
	}

	report = healthReport(p, store.FeedbackStats{}, 0)
	if !strings.Contains(report, "GOOD rate: 0%") {
		t.Fatalf("expected zero rate in %q", report)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("короткий", 80); got != "короткий" {
		t.Fatalf("short string changed: %q", got)
	}
	long := strings.Repeat("а", 100)
	got := truncate(long, 80)
	if r := []rune(got); len(r) != 81 || r[80] != '…' {
		t.Fatalf("bad truncation: %q", got)
	}
}
