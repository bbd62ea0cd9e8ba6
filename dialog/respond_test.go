package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/semiekhin/sofia-bot/llm"
	"github.com/semiekhin/sofia-bot/persona"
)

type fakeClient struct {
	text string
	err  error
	last llm.Request
}

func (f *fakeClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	f.last = req
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.text}, nil
}

func newTestResponder(c llm.Client) *Responder {
	return NewResponder(c, persona.Default(), DefaultThresholds(), nil)
}

func TestProcessTurnHappyPath(t *testing.T) {
	fc := &fakeClient{text: "Здравствуйте! Подскажите, какая локация интересна?"}
	r := newTestResponder(fc)

	text, trace := r.ProcessTurn(context.Background(), nil, "интересует недвижимость", "Иван", llm.ModeConfig("gpt-5.2"))
	if text != "Здравствуйте! Подскажите, какая локация интересна?" {
		t.Fatalf("unexpected text: %q", text)
	}
	if trace.Action != ActionQualifyOrCall || trace.Reason != ReasonNormal {
		t.Fatalf("unexpected trace: %+v", trace)
	}
	if trace.ID == "" {
		t.Fatalf("trace id must be set")
	}
	if !trace.ResponseHasQuestion {
		t.Fatalf("question should be flagged in the trace")
	}
	if !strings.Contains(fc.last.Instructions, "ИМЯ КЛИЕНТА: Иван") {
		t.Fatalf("persona must carry the client name: %q", fc.last.Instructions)
	}
}

func TestProcessTurnEnforcesNoQuestions(t *testing.T) {
	fc := &fakeClient{text: "Конечно! Когда вам удобно? Пришлю варианты."}
	r := newTestResponder(fc)

	history := []llm.Message{
		{Role: "user", Content: "хватит мне писать"},
		{Role: "assistant", Content: "Простите!"},
	}
	text, trace := r.ProcessTurn(context.Background(), history, "ладно", "Иван", llm.ModeConfig("gpt-5.2"))
	if trace.AllowQuestions {
		t.Fatalf("irritated history must disallow questions: %+v", trace)
	}
	if text != "Конечно! Пришлю варианты." {
		t.Fatalf("question must be stripped, got %q", text)
	}
	if trace.ResponseHasQuestion {
		t.Fatalf("stripped response must carry no question")
	}
}

func TestProcessTurnStripsQuotesAndLabel(t *testing.T) {
	fc := &fakeClient{text: `"София: Пришлю варианты сегодня."`}
	r := newTestResponder(fc)

	text, _ := r.ProcessTurn(context.Background(), nil, "здравствуйте", "", llm.ModeConfig("gpt-4o"))
	if text != "Пришлю варианты сегодня." {
		t.Fatalf("artifacts must be stripped, got %q", text)
	}
}

func TestProcessTurnGeneratorFailure(t *testing.T) {
	fc := &fakeClient{err: errors.New("timeout")}
	r := newTestResponder(fc)

	text, trace := r.ProcessTurn(context.Background(), nil, "здравствуйте", "", llm.ModeConfig("gpt-5.2"))
	if text != Apology {
		t.Fatalf("generator failure must yield the apology, got %q", text)
	}
	if !trace.GenerationFailed {
		t.Fatalf("failure must be traced: %+v", trace)
	}
}

func TestProcessTurnBoundsHistoryWindow(t *testing.T) {
	fc := &fakeClient{text: "Хорошо."}
	r := newTestResponder(fc)
	r.HistoryWindow = 4

	history := make([]llm.Message, 12)
	for i := range history {
		history[i] = llm.Message{Role: "user", Content: "сообщение"}
	}
	_, _ = r.ProcessTurn(context.Background(), history, "ещё думаю", "", llm.ModeConfig("gpt-5.2"))

	// 4 history messages + latest + task prompt.
	if len(fc.last.Messages) != 6 {
		t.Fatalf("want 6 outgoing messages, got %d", len(fc.last.Messages))
	}
	task := fc.last.Messages[len(fc.last.Messages)-1].Content
	if !strings.Contains(task, "ЗАДАЧА:") {
		t.Fatalf("last message must be the task directive: %q", task)
	}
}

func TestProcessTurnEmptyGenerationFallsBack(t *testing.T) {
	fc := &fakeClient{text: "  "}
	r := newTestResponder(fc)

	text, _ := r.ProcessTurn(context.Background(), nil, "здравствуйте", "", llm.ModeConfig("gpt-5.2"))
	if text != SafeFallback {
		t.Fatalf("blank generation must fall back, got %q", text)
	}
}
