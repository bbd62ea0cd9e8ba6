package dialog

import "github.com/semiekhin/sofia-bot/llm"

// Stats is a pure function of the full conversation history, recomputed
// fresh on every turn. No counter survives outside the history itself, so
// every decision is replayable from the stored messages.
type Stats struct {
	TotalMessages          int  `json:"total_messages"`
	UserMessages           int  `json:"user_messages"`
	BotMessages            int  `json:"bot_messages"`
	SendRequests           int  `json:"send_requests"`
	CallRejections         int  `json:"call_rejections"`
	CallAgreements         int  `json:"call_agreements"`
	NeutralAnswers         int  `json:"neutral_answers"`
	IrritationDetected     bool `json:"irritation_detected"`
	QuestionsAfterLastSend int  `json:"questions_after_last_send"`
	LastSendRequestIndex   int  `json:"last_send_request_index"`
	CallOffered            bool `json:"call_offered"`
}

// AnalyzeHistory folds the ordered history into Stats.
// LastSendRequestIndex is -1 when no send request was seen.
func AnalyzeHistory(history []llm.Message) Stats {
	stats := Stats{
		TotalMessages:        len(history),
		LastSendRequestIndex: -1,
	}

	for i, msg := range history {
		switch msg.Role {
		case "user":
			stats.UserMessages++
			if IsSendRequest(msg.Content) {
				stats.SendRequests++
				stats.LastSendRequestIndex = i
			}
			if IsCallRejection(msg.Content) {
				stats.CallRejections++
			}
			if IsCallAgreement(msg.Content) {
				stats.CallAgreements++
			}
			if IsNeutralAnswer(msg.Content) {
				stats.NeutralAnswers++
			}
			if IsIrritated(msg.Content) {
				stats.IrritationDetected = true
			}
		case "assistant":
			stats.BotMessages++
			if mentionsCallOffer(msg.Content) {
				stats.CallOffered = true
			}
		}
	}

	if stats.LastSendRequestIndex >= 0 {
		for _, msg := range history[stats.LastSendRequestIndex+1:] {
			if msg.Role == "assistant" && HasQuestion(msg.Content) {
				stats.QuestionsAfterLastSend++
			}
		}
	}

	return stats
}
