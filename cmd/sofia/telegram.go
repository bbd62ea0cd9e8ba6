package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/semiekhin/sofia-bot/dialog"
	"github.com/semiekhin/sofia-bot/internal/retryutil"
	"github.com/semiekhin/sofia-bot/llm"
	"github.com/semiekhin/sofia-bot/persona"
	"github.com/semiekhin/sofia-bot/store"
)

// pendingFeedback holds a 👎 rating while we wait for the expert's comment.
type pendingFeedback struct {
	Feedback store.Feedback
}

func newTelegramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram long-poll bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromViper()
			if err != nil {
				return err
			}
			st, err := storeFromViper()
			if err != nil {
				return err
			}
			defer st.Close()

			responder, err := responderFromViper(logger)
			if err != nil {
				return err
			}

			token := strings.TrimSpace(viper.GetString("telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("telegram.bot_token is required")
			}
			api := telegramFromViper()

			pollTimeout := viper.GetDuration("telegram.poll_timeout")
			taskTimeout := viper.GetDuration("telegram.task_timeout")
			maxConc := viper.GetInt("telegram.max_concurrency")
			if maxConc <= 0 {
				maxConc = 3
			}
			historyMax := viper.GetInt("telegram.history_max_messages")
			if historyMax <= 0 {
				historyMax = 50
			}
			adminChatID := viper.GetInt64("telegram.admin_chat_id")
			feedbackEnabled := viper.GetBool("telegram.feedback.enabled")
			feedbackContext := viper.GetInt("telegram.feedback.context_size")
			if feedbackContext <= 0 {
				feedbackContext = 6
			}

			ctx := cmd.Context()
			me, err := api.getMe(ctx)
			if err != nil {
				return fmt.Errorf("telegram getMe: %w", err)
			}

			sem := make(chan struct{}, maxConc)
			var (
				mu      sync.Mutex
				workers = make(map[int64]*chatWorker)
				pending = make(map[int64]*pendingFeedback)
				offset  int64
			)

			logger.Info("telegram_start",
				"bot_username", me.Username,
				"bot_id", me.ID,
				"poll_timeout", pollTimeout.String(),
				"task_timeout", taskTimeout.String(),
				"max_concurrency", maxConc,
				"history_max_messages", historyMax,
				"feedback_enabled", feedbackEnabled,
			)

			getOrStartWorker := func(chatID int64) *chatWorker {
				mu.Lock()
				defer mu.Unlock()
				if w, ok := workers[chatID]; ok && w != nil {
					return w
				}
				w := newChatWorker()
				workers[chatID] = w

				generate := func(taskCtx context.Context, job chatJob) (string, dialog.Trace) {
					typingStop := startTypingTicker(context.Background(), api, chatID, 4*time.Second)
					defer typingStop()

					history, err := st.History(taskCtx, chatID, historyMax)
					if err != nil {
						logger.Warn("telegram_history_error", "chat_id", chatID, "error", err.Error())
					}
					// The message itself was persisted at receipt; the
					// responder appends it to history on its own, so
					// drop the trailing copy before handing it over.
					if n := len(history); n > 0 && history[n-1].Role == "user" && history[n-1].Content == job.Text {
						history = history[:n-1]
					}

					mode, err := st.ModelMode(taskCtx)
					if err != nil {
						mode = llm.DefaultMode
					}
					return responder.ProcessTurn(taskCtx, history, job.Text, job.ClientName, llm.ModeConfig(mode))
				}

				deliver := func(job chatJob, reply string, trace dialog.Trace) {
					var keyboard *telegramInlineKeyboard
					if feedbackEnabled {
						keyboard = feedbackKeyboard()
					}
					if err := api.sendMessageWithKeyboard(context.Background(), chatID, reply, keyboard); err != nil {
						logger.Warn("telegram_send_error", "chat_id", chatID, "error", err.Error())
						return
					}

					statsJSON, _ := json.Marshal(trace.Stats)
					persist := func(ctx context.Context) error {
						if err := st.Append(ctx, chatID, "assistant", reply); err != nil {
							return err
						}
						return st.RecordDecision(ctx, store.DecisionLog{
							TraceID:     trace.ID,
							ChatID:      chatID,
							UserMessage: job.Text,
							BotResponse: reply,
							Action:      string(trace.Action),
							Reason:      string(trace.Reason),
							ModelMode:   trace.Mode,
							Stats:       string(statsJSON),
						})
					}
					persistCtx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancelPersist()
					if err := persist(persistCtx); err != nil {
						logger.Warn("telegram_persist_error", "chat_id", chatID, "error", err.Error())
						retryutil.Async(logger, "telegram_persist_turn", persist)
					}

					logger.Info("telegram_reply_sent",
						"chat_id", chatID,
						"trace_id", trace.ID,
						"action", string(trace.Action),
						"reason", string(trace.Reason),
					)
				}

				dropped := func(job chatJob) {
					logger.Info("telegram_job_superseded", "chat_id", chatID, "version", job.Version)
				}

				go w.run(sem, taskTimeout, generate, deliver, dropped)
				return w
			}

			supersede := func(chatID int64) {
				getOrStartWorker(chatID).supersede()
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("telegram_stop")
					return nil
				default:
				}

				updates, next, err := api.getUpdates(ctx, offset, pollTimeout)
				if err != nil {
					if ctx.Err() != nil {
						logger.Info("telegram_stop")
						return nil
					}
					logger.Warn("telegram_poll_error", "error", err.Error())
					time.Sleep(2 * time.Second)
					continue
				}
				offset = next

				for _, upd := range updates {
					if upd.CallbackQuery != nil {
						handleFeedbackCallback(ctx, logger, st, api, upd.CallbackQuery, feedbackContext, &mu, pending)
						continue
					}
					msg := upd.Message
					if msg == nil || msg.Chat == nil {
						continue
					}
					if msg.From != nil && msg.From.IsBot {
						continue
					}
					chatID := msg.Chat.ID
					text := strings.TrimSpace(msg.Text)
					if text == "" {
						continue
					}

					mu.Lock()
					pf := pending[chatID]
					mu.Unlock()
					if pf != nil && !strings.HasPrefix(text, "/") {
						pf.Feedback.Comment = text
						if err := st.SaveFeedback(ctx, pf.Feedback); err != nil {
							logger.Warn("telegram_feedback_error", "chat_id", chatID, "error", err.Error())
						}
						mu.Lock()
						delete(pending, chatID)
						mu.Unlock()
						_ = api.sendMessage(ctx, chatID, "Спасибо, комментарий сохранён.")
						continue
					}

					if strings.HasPrefix(text, "/") {
						handleCommand(ctx, logger, st, api, responder, chatID, adminChatID, text, &mu, pending, supersede)
						continue
					}

					clientName, err := st.ClientName(ctx, chatID)
					if err != nil || strings.TrimSpace(clientName) == "" {
						clientName = telegramDisplayName(msg.From)
					}
					if strings.TrimSpace(clientName) == "" {
						clientName = persona.DefaultClientName
					}

					// First contact: remember the name and seed the opener
					// into history so the policy sees the bot spoke first.
					if prior, err := st.History(ctx, chatID, 1); err == nil && len(prior) == 0 {
						if err := st.SaveClientName(ctx, chatID, clientName); err != nil {
							logger.Warn("telegram_name_error", "chat_id", chatID, "error", err.Error())
						}
						if err := st.Append(ctx, chatID, "assistant", persona.Greeting(clientName)); err != nil {
							logger.Warn("telegram_append_error", "chat_id", chatID, "error", err.Error())
						}
					}

					if err := st.Append(ctx, chatID, "user", text); err != nil {
						logger.Warn("telegram_append_error", "chat_id", chatID, "error", err.Error())
					}

					w := getOrStartWorker(chatID)
					job := chatJob{Text: text, ClientName: clientName, Version: w.supersede()}
					if w.enqueue(job) {
						logger.Info("telegram_task_enqueued", "chat_id", chatID, "version", job.Version)
					} else {
						logger.Warn("telegram_queue_full", "chat_id", chatID)
						_ = api.sendMessage(ctx, chatID, "Секунду, отвечаю по порядку 🙂")
					}
				}
			}
		},
	}
}

func handleCommand(
	ctx context.Context,
	logger *slog.Logger,
	st *store.Store,
	api *telegramAPI,
	responder *dialog.Responder,
	chatID, adminChatID int64,
	text string,
	mu *sync.Mutex,
	pending map[int64]*pendingFeedback,
	supersede func(int64),
) {
	cmd, arg := splitCommand(text)
	switch cmd {
	case "/start":
		supersede(chatID)
		mu.Lock()
		delete(pending, chatID)
		mu.Unlock()
		if err := st.ClearChat(ctx, chatID); err != nil {
			logger.Warn("telegram_clear_error", "chat_id", chatID, "error", err.Error())
		}
		name := strings.TrimSpace(arg)
		if name != "" {
			if err := st.SaveClientName(ctx, chatID, name); err != nil {
				logger.Warn("telegram_name_error", "chat_id", chatID, "error", err.Error())
			}
		} else {
			name, _ = st.ClientName(ctx, chatID)
			if strings.TrimSpace(name) == "" {
				name = persona.DefaultClientName
			}
		}
		greeting := persona.Greeting(name)
		if err := api.sendMessage(ctx, chatID, greeting); err != nil {
			logger.Warn("telegram_send_error", "chat_id", chatID, "error", err.Error())
			return
		}
		if err := st.Append(ctx, chatID, "assistant", greeting); err != nil {
			logger.Warn("telegram_append_error", "chat_id", chatID, "error", err.Error())
			retryutil.Async(logger, "telegram_persist_greeting", func(ctx context.Context) error {
				return st.Append(ctx, chatID, "assistant", greeting)
			})
		}
		logger.Info("telegram_chat_started", "chat_id", chatID, "client_name", name)

	case "/reset":
		supersede(chatID)
		mu.Lock()
		delete(pending, chatID)
		mu.Unlock()
		if err := st.ClearChat(ctx, chatID); err != nil {
			logger.Warn("telegram_clear_error", "chat_id", chatID, "error", err.Error())
		}
		_ = api.sendMessage(ctx, chatID, "История диалога очищена. Можно начинать заново: /start Имя")
		logger.Info("telegram_chat_reset", "chat_id", chatID)

	case "/status":
		history, err := st.History(ctx, chatID, 0)
		if err != nil {
			_ = api.sendMessage(ctx, chatID, "Не удалось получить статус: "+err.Error())
			return
		}
		if len(history) == 0 {
			_ = api.sendMessage(ctx, chatID, "Нет активного диалога. Напишите /start")
			return
		}
		stats, decision := snapshotDecision(history, responder.Thresholds)
		_ = api.sendMessage(ctx, chatID, statusText(stats, decision))

	case "/debug":
		recs, err := st.RecentDecisions(ctx, chatID, 5)
		if err != nil {
			_ = api.sendMessage(ctx, chatID, "Не удалось получить решения: "+err.Error())
			return
		}
		_ = api.sendMessage(ctx, chatID, debugText(recs))

	case "/model":
		if adminChatID != 0 && chatID != adminChatID {
			_ = api.sendMessage(ctx, chatID, "Эта команда доступна только администратору.")
			return
		}
		mode := strings.TrimSpace(arg)
		if mode == "" {
			current, _ := st.ModelMode(ctx)
			_ = api.sendMessage(ctx, chatID, fmt.Sprintf("Текущий режим: %s\nДоступные: %s", current, strings.Join(llm.ModeNames(), ", ")))
			return
		}
		if err := st.SetModelMode(ctx, mode); err != nil {
			_ = api.sendMessage(ctx, chatID, "Ошибка: "+err.Error())
			return
		}
		_ = api.sendMessage(ctx, chatID, "Режим переключен: "+mode)
		logger.Info("telegram_mode_changed", "chat_id", chatID, "mode", mode)

	case "/skip":
		mu.Lock()
		pf := pending[chatID]
		delete(pending, chatID)
		mu.Unlock()
		if pf != nil {
			if err := st.SaveFeedback(ctx, pf.Feedback); err != nil {
				logger.Warn("telegram_feedback_error", "chat_id", chatID, "error", err.Error())
			}
			_ = api.sendMessage(ctx, chatID, "Оценка сохранена без комментария.")
			return
		}
		_ = api.sendMessage(ctx, chatID, "Нечего пропускать.")

	case "/help":
		_ = api.sendMessage(ctx, chatID, helpText())

	default:
		_ = api.sendMessage(ctx, chatID, "Неизвестная команда. Список: /help")
	}
}

func handleFeedbackCallback(
	ctx context.Context,
	logger *slog.Logger,
	st *store.Store,
	api *telegramAPI,
	cb *telegramCallback,
	contextSize int,
	mu *sync.Mutex,
	pending map[int64]*pendingFeedback,
) {
	_ = api.answerCallbackQuery(ctx, cb.ID)
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	var rating string
	switch cb.Data {
	case "fb:good":
		rating = "good"
	case "fb:bad":
		rating = "bad"
	default:
		return
	}

	history, err := st.History(ctx, chatID, contextSize)
	if err != nil {
		logger.Warn("telegram_feedback_context_error", "chat_id", chatID, "error", err.Error())
	}
	fb := store.Feedback{
		ChatID:     chatID,
		ExpertName: telegramDisplayName(cb.From),
		Rating:     rating,
		Context:    store.MarshalContext(history),
	}
	if cb.From != nil {
		fb.UserID = cb.From.ID
	}

	if rating == "good" {
		if err := st.SaveFeedback(ctx, fb); err != nil {
			logger.Warn("telegram_feedback_error", "chat_id", chatID, "error", err.Error())
			return
		}
		_ = api.sendMessage(ctx, chatID, "Спасибо за оценку! 👍")
		logger.Info("telegram_feedback_saved", "chat_id", chatID, "rating", rating)
		return
	}

	mu.Lock()
	pending[chatID] = &pendingFeedback{Feedback: fb}
	mu.Unlock()
	_ = api.sendMessage(ctx, chatID, "Что не так с ответом? Напишите комментарий или /skip.")
	logger.Info("telegram_feedback_pending", "chat_id", chatID, "rating", rating)
}

func feedbackKeyboard() *telegramInlineKeyboard {
	return &telegramInlineKeyboard{
		InlineKeyboard: [][]telegramInlineButton{{
			{Text: "👍", CallbackData: "fb:good"},
			{Text: "👎", CallbackData: "fb:bad"},
		}},
	}
}

func splitCommand(text string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	cmd := parts[0]
	// Commands in groups arrive as /cmd@botname.
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	if len(parts) == 2 {
		return cmd, strings.TrimSpace(parts[1])
	}
	return cmd, ""
}

// snapshotDecision replays the engine's view of the stored conversation: a
// trailing user message is the incoming turn, not part of the analyzed
// history, exactly as the worker evaluates it. Analyzing it in both roles
// would report a single send request as a repeated one.
func snapshotDecision(history []llm.Message, th dialog.Thresholds) (dialog.Stats, dialog.Decision) {
	lastUser := ""
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		lastUser = history[n-1].Content
		history = history[:n-1]
	}
	stats := dialog.AnalyzeHistory(history)
	return stats, dialog.DecideAction(stats, lastUser, th)
}

func statusText(stats dialog.Stats, decision dialog.Decision) string {
	var b strings.Builder
	b.WriteString("📊 Статус диалога\n")
	fmt.Fprintf(&b, "Сообщений: %d (клиент %d / бот %d)\n", stats.TotalMessages, stats.UserMessages, stats.BotMessages)
	fmt.Fprintf(&b, "Запросов на отправку: %d\n", stats.SendRequests)
	fmt.Fprintf(&b, "Отказов от созвона: %d\n", stats.CallRejections)
	fmt.Fprintf(&b, "Согласий на созвон: %d\n", stats.CallAgreements)
	fmt.Fprintf(&b, "Нейтральных ответов: %d\n", stats.NeutralAnswers)
	fmt.Fprintf(&b, "Раздражение: %v\n", stats.IrritationDetected)
	fmt.Fprintf(&b, "Созвон предлагался: %v\n", stats.CallOffered)
	fmt.Fprintf(&b, "Следующее действие: %s (%s)", decision.Action, decision.Reason)
	return b.String()
}

func debugText(recs []store.DecisionLog) string {
	if len(recs) == 0 {
		return "Решений пока нет."
	}
	var b strings.Builder
	b.WriteString("🔍 Последние решения\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "\n[%s] %s / %s\n", r.CreatedAt.Format("02.01 15:04"), r.Action, r.Reason)
		fmt.Fprintf(&b, "Клиент: %s\n", truncate(r.UserMessage, 80))
		fmt.Fprintf(&b, "Бот: %s\n", truncate(r.BotResponse, 80))
	}
	return b.String()
}

func helpText() string {
	return strings.Join([]string{
		"Команды:",
		"/start Имя — начать диалог заново с именем клиента",
		"/reset — очистить историю",
		"/status — статистика текущего диалога",
		"/debug — последние решения движка",
		"/model [режим] — показать или сменить режим модели",
		"/skip — пропустить комментарий к оценке",
	}, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
