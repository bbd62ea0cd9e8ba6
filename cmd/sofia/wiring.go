package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/semiekhin/sofia-bot/dialog"
	"github.com/semiekhin/sofia-bot/internal/logutil"
	"github.com/semiekhin/sofia-bot/llm"
	"github.com/semiekhin/sofia-bot/persona"
	"github.com/semiekhin/sofia-bot/providers/openai"
	"github.com/semiekhin/sofia-bot/store"
)

func loggerFromViper() (*slog.Logger, error) {
	return logutil.LoggerFromViper()
}

func storeFromViper() (*store.Store, error) {
	cfg := store.DefaultConfig()
	cfg.DSN = viper.GetString("db.dsn")
	cfg.SQLite.BusyTimeoutMs = viper.GetInt("db.busy_timeout_ms")
	cfg.SQLite.WAL = viper.GetBool("db.wal")
	cfg.AutoMigrate = viper.GetBool("db.auto_migrate")
	return store.Open(cfg)
}

func llmClientFromViper() llm.Client {
	client := openai.New(viper.GetString("llm.endpoint"), viper.GetString("llm.api_key"))
	if timeout := viper.GetDuration("llm.request_timeout"); timeout > 0 {
		client.HTTP = &http.Client{Timeout: timeout}
	}
	return client
}

func thresholdsFromViper() dialog.Thresholds {
	th := dialog.DefaultThresholds()
	if v := viper.GetInt("policy.max_messages"); v > 0 {
		th.MaxMessages = v
	}
	if v := viper.GetInt("policy.max_questions_after_send"); v > 0 {
		th.MaxQuestionsAfterSend = v
	}
	if v := viper.GetInt("policy.max_call_rejections"); v > 0 {
		th.MaxCallRejections = v
	}
	if v := viper.GetInt("policy.max_neutral_answers"); v > 0 {
		th.MaxNeutralAnswers = v
	}
	if v := viper.GetInt("policy.propose_call_after_user_turns"); v > 0 {
		th.ProposeCallAfterUserTurns = v
	}
	return th
}

func responderFromViper(logger *slog.Logger) (*dialog.Responder, error) {
	p, err := persona.Load(viper.GetString("persona.file"))
	if err != nil {
		return nil, err
	}
	r := dialog.NewResponder(llmClientFromViper(), p, thresholdsFromViper(), logger)
	if window := viper.GetInt("policy.history_window"); window > 0 {
		r.HistoryWindow = window
	}
	return r, nil
}

func telegramFromViper() *telegramAPI {
	return newTelegramAPI(
		&http.Client{Timeout: 60 * time.Second},
		"https://api.telegram.org",
		viper.GetString("telegram.bot_token"),
	)
}
