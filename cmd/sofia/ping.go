package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semiekhin/sofia-bot/store"
)

func newPingCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Send the morning check-in to every active chat",
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

			chats, err := st.ActiveChats(cmd.Context())
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				logger.Info("ping_no_chats")
				return nil
			}

			api := telegramFromViper()
			ctx := cmd.Context()

			var sent, failed int
			for _, chat := range chats {
				text := morningPingText(chat)
				if dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", chat.ChatID, text)
					continue
				}
				if err := api.sendMessage(ctx, chat.ChatID, text); err != nil {
					failed++
					logger.Warn("ping_send_error", "chat_id", chat.ChatID, "error", err.Error())
					continue
				}
				if err := st.Append(ctx, chat.ChatID, "assistant", text); err != nil {
					logger.Warn("ping_append_error", "chat_id", chat.ChatID, "error", err.Error())
				}
				sent++
			}
			logger.Info("ping_done", "chats", len(chats), "sent", sent, "failed", failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print messages instead of sending")
	return cmd
}

func morningPingText(chat store.ChatMeta) string {
	name := strings.TrimSpace(chat.ClientName)
	if i := strings.Index(name, " "); i > 0 {
		name = name[:i]
	}
	if name == "" {
		name = "друг"
	}
	return name + ", доброе утро! ☀️ Я готова учиться дальше)) Пообщаемся?"
}
