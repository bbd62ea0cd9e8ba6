package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)

	// Dialogue policy thresholds. Change with care: branch order in the
	// decider depends on these being caps, not targets.
	viper.SetDefault("policy.max_messages", 14)
	viper.SetDefault("policy.max_questions_after_send", 1)
	viper.SetDefault("policy.max_call_rejections", 2)
	viper.SetDefault("policy.max_neutral_answers", 3)
	viper.SetDefault("policy.propose_call_after_user_turns", 4)
	viper.SetDefault("policy.history_window", 10)

	viper.SetDefault("persona.file", "")

	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.busy_timeout_ms", 5000)
	viper.SetDefault("db.wal", true)
	viper.SetDefault("db.auto_migrate", true)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.admin_chat_id", int64(0))
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.task_timeout", 2*time.Minute)
	viper.SetDefault("telegram.max_concurrency", 3)
	viper.SetDefault("telegram.history_max_messages", 50)
	viper.SetDefault("telegram.feedback.enabled", true)
	viper.SetDefault("telegram.feedback.context_size", 6)
}
