package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/semiekhin/sofia-bot/persona"
	"github.com/semiekhin/sofia-bot/store"
)

func newHealthCmd() *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report persona size and feedback quality",
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

			p, err := persona.Load(viper.GetString("persona.file"))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			fb, err := st.FeedbackSummary(ctx)
			if err != nil {
				return err
			}
			dialogs, err := st.DialogCount(ctx)
			if err != nil {
				return err
			}

			report := healthReport(p, fb, dialogs)
			fmt.Fprintln(cmd.OutOrStdout(), report)

			if send {
				adminChatID := viper.GetInt64("telegram.admin_chat_id")
				if adminChatID == 0 {
					return fmt.Errorf("telegram.admin_chat_id is required with --send")
				}
				api := telegramFromViper()
				if err := api.sendMessage(ctx, adminChatID, report); err != nil {
					return err
				}
				logger.Info("health_sent", "chat_id", adminChatID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "deliver the report to the admin chat")
	return cmd
}

func healthReport(p *persona.Builder, fb store.FeedbackStats, dialogs int64) string {
	tokens := p.EstimatedTokens()
	total := fb.Good + fb.Bad
	rate := 0.0
	if total > 0 {
		rate = float64(fb.Good) / float64(total) * 100
	}

	tokenStatus := "🟢"
	switch {
	case tokens >= 15000:
		tokenStatus = "🔴"
	case tokens >= 8000:
		tokenStatus = "🟡"
	}
	rateStatus := "🟢"
	switch {
	case total == 0 || rate <= 65:
		rateStatus = "🔴"
	case rate <= 80:
		rateStatus = "🟡"
	}

	var b strings.Builder
	b.WriteString("📊 ЗДОРОВЬЕ ПРОМПТА\n\n")
	fmt.Fprintf(&b, "%s Токены: ~%d (строк: %d)\n", tokenStatus, tokens, p.Lines())
	fmt.Fprintf(&b, "%s GOOD rate: %.0f%% (%d/%d)\n", rateStatus, rate, fb.Good, total)
	fmt.Fprintf(&b, "📈 Диалогов: %d\n", dialogs)

	if tokens >= 15000 {
		b.WriteString("\n⚠️ Промпт большой — стоит сократить")
	} else if total > 0 && rate < 65 {
		b.WriteString("\n⚠️ Много BAD-оценок — проверь инструкции")
	} else {
		b.WriteString("\n✅ Всё в норме")
	}
	return b.String()
}
