package dialog

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/semiekhin/sofia-bot/llm"
	"github.com/semiekhin/sofia-bot/persona"
)

// Apology is the fixed user-facing reply when the generator fails. Raw
// errors never reach the client.
const Apology = "Простите, связь подвисла. Напишите ещё раз?"

const noQuestionsDirective = "ВАЖНО: НЕ задавай вопросов. Никаких. Ни одного знака '?'."
const oneQuestionDirective = "Можешь задать один вопрос в конце."

var (
	surroundingQuotes = regexp.MustCompile(`^["'«]|["'»]$`)
	speakerLabel      = regexp.MustCompile(`^София:\s*`)
)

// Trace is the per-turn audit record handed to the decision-trace sink.
type Trace struct {
	ID                  string `json:"id"`
	Stats               Stats  `json:"stats"`
	Action              ActionKind
	Reason              Reason
	AllowQuestions      bool
	ResponseHasQuestion bool
	GenerationFailed    bool
	Mode                string
	Model               string
}

// Responder combines the decider's directive with bounded history into one
// generation request and enforces the no-question constraint on the result.
type Responder struct {
	Client        llm.Client
	Persona       *persona.Builder
	Thresholds    Thresholds
	HistoryWindow int
	Logger        *slog.Logger
}

func NewResponder(client llm.Client, p *persona.Builder, th Thresholds, logger *slog.Logger) *Responder {
	if p == nil {
		p = persona.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		Client:        client,
		Persona:       p,
		Thresholds:    th,
		HistoryWindow: 10,
		Logger:        logger,
	}
}

// ProcessTurn runs the full pipeline for one incoming utterance: analyze,
// decide, generate, post-process. Generator failures degrade to Apology and
// are reported via Trace.GenerationFailed, never as an error.
func (r *Responder) ProcessTurn(ctx context.Context, history []llm.Message, userMessage, clientName string, gen llm.GenerationConfig) (string, Trace) {
	stats := AnalyzeHistory(history)
	decision := DecideAction(stats, userMessage, r.Thresholds)

	trace := Trace{
		ID:             uuid.NewString(),
		Stats:          stats,
		Action:         decision.Action,
		Reason:         decision.Reason,
		AllowQuestions: decision.AllowQuestions,
		Mode:           gen.Mode,
		Model:          gen.Model,
	}

	text, err := r.generate(ctx, history, userMessage, clientName, decision, gen)
	if err != nil {
		r.Logger.Warn("generate_failed",
			"trace_id", trace.ID,
			"action", string(decision.Action),
			"error", err.Error(),
		)
		trace.GenerationFailed = true
		trace.ResponseHasQuestion = HasQuestion(Apology)
		return Apology, trace
	}

	trace.ResponseHasQuestion = HasQuestion(text)
	return text, trace
}

func (r *Responder) generate(ctx context.Context, history []llm.Message, userMessage, clientName string, decision Decision, gen llm.GenerationConfig) (string, error) {
	questionDirective := oneQuestionDirective
	if !decision.AllowQuestions {
		questionDirective = noQuestionsDirective
	}
	taskPrompt := "ЗАДАЧА: " + decision.Instruction + "\n\n" +
		questionDirective + "\n\n" +
		"Напиши ответ Софии (1-3 строки):"

	window := history
	if r.HistoryWindow > 0 && len(window) > r.HistoryWindow {
		window = window[len(window)-r.HistoryWindow:]
	}
	messages := make([]llm.Message, 0, len(window)+2)
	messages = append(messages, window...)
	messages = append(messages,
		llm.Message{Role: "user", Content: userMessage},
		llm.Message{Role: "user", Content: taskPrompt},
	)

	res, err := r.Client.Chat(ctx, gen.Request(r.Persona.Instructions(clientName), messages))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(res.Text)
	text = surroundingQuotes.ReplaceAllString(text, "")
	text = speakerLabel.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if !decision.AllowQuestions && HasQuestion(text) {
		text = StripQuestions(text)
	}
	if strings.TrimSpace(text) == "" {
		text = SafeFallback
	}
	return text, nil
}
