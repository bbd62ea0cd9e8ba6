package llm

import (
	"context"
	"sort"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

// Request is a single completion call. Instructions carry the persona
// system prompt; Messages carry the dialog plus the task directive.
type Request struct {
	Model           string
	Instructions    string
	Messages        []Message
	MaxTokens       int
	Temperature     float64
	ReasoningEffort string
	UseResponsesAPI bool
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// GenerationConfig is an explicit per-call value owned by the caller.
// The active mode lives in the settings store, never in process env.
type GenerationConfig struct {
	Mode            string
	Model           string
	UseResponsesAPI bool
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
}

const DefaultMode = "gpt-5.2"

var modeConfigs = map[string]GenerationConfig{
	"gpt-4o": {
		Mode:        "gpt-4o",
		Model:       "gpt-4o",
		Temperature: 0.4,
		MaxTokens:   200,
	},
	"gpt-5.2": {
		Mode:            "gpt-5.2",
		Model:           "gpt-5.2",
		UseResponsesAPI: true,
		MaxTokens:       400,
	},
	"gpt-5.2-reasoning": {
		Mode:            "gpt-5.2-reasoning",
		Model:           "gpt-5.2",
		UseResponsesAPI: true,
		MaxTokens:       400,
		ReasoningEffort: "xhigh",
	},
}

// ModeConfig resolves a named generation mode; unknown names fall back to
// the default mode.
func ModeConfig(mode string) GenerationConfig {
	if cfg, ok := modeConfigs[mode]; ok {
		return cfg
	}
	return modeConfigs[DefaultMode]
}

func KnownMode(mode string) bool {
	_, ok := modeConfigs[mode]
	return ok
}

func ModeNames() []string {
	names := make([]string, 0, len(modeConfigs))
	for name := range modeConfigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c GenerationConfig) Request(instructions string, messages []Message) Request {
	return Request{
		Model:           c.Model,
		Instructions:    instructions,
		Messages:        messages,
		MaxTokens:       c.MaxTokens,
		Temperature:     c.Temperature,
		ReasoningEffort: c.ReasoningEffort,
		UseResponsesAPI: c.UseResponsesAPI,
	}
}
