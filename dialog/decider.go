package dialog

// ActionKind is the discrete conversational action chosen for a turn.
type ActionKind string

const (
	ActionConfirmCall     ActionKind = "CONFIRM_CALL"
	ActionSendMaterials   ActionKind = "SEND_MATERIALS"
	ActionQualifyThenSend ActionKind = "QUALIFY_THEN_SEND"
	ActionContinue        ActionKind = "CONTINUE"
	ActionProposeCall     ActionKind = "PROPOSE_CALL"
	ActionQualifyOrCall   ActionKind = "QUALIFY_OR_CALL"
)

// Reason records which guard of the cascade fired, for audit.
type Reason string

const (
	ReasonCallAgreed           Reason = "call_agreed"
	ReasonIrritated            Reason = "irritated"
	ReasonMultipleSendRequests Reason = "multiple_send_requests"
	ReasonAskedAfterSend       Reason = "asked_after_send"
	ReasonTooLong              Reason = "too_long"
	ReasonCallRejectedTwice    Reason = "call_rejected_twice"
	ReasonTooManyNeutral       Reason = "too_many_neutral"
	ReasonFirstSendRequest     Reason = "first_send_request"
	ReasonFirstCallRejection   Reason = "first_call_rejection"
	ReasonEnoughQualification  Reason = "enough_qualification"
	ReasonNormalAfterCallOffer Reason = "normal_after_call_offer"
	ReasonNormal               Reason = "normal"
)

// Decision is produced fresh each turn and only logged, never used as
// stored state. Instruction is a directive for the generator, not text to
// relay to the client.
type Decision struct {
	Action         ActionKind `json:"action"`
	AllowQuestions bool       `json:"allow_questions"`
	Reason         Reason     `json:"reason"`
	Instruction    string     `json:"instruction"`
}

// Thresholds are tunable policy constants (config keys policy.*).
type Thresholds struct {
	MaxMessages               int
	MaxQuestionsAfterSend     int
	MaxCallRejections         int
	MaxNeutralAnswers         int
	ProposeCallAfterUserTurns int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxMessages:               14,
		MaxQuestionsAfterSend:     1,
		MaxCallRejections:         2,
		MaxNeutralAnswers:         3,
		ProposeCallAfterUserTurns: 4,
	}
}

// DecideAction maps (stats, latest not-yet-recorded utterance) to exactly
// one Decision. The cascade is ordered; the first matching guard wins, and
// the order itself is the policy (do not reorder the caps).
func DecideAction(stats Stats, lastMessage string, th Thresholds) Decision {
	currentIsSend := IsSendRequest(lastMessage)
	currentIsIrritated := IsIrritated(lastMessage)
	currentIsRejection := IsCallRejection(lastMessage)
	currentIsAgreement := IsCallAgreement(lastMessage)
	currentIsNeutral := IsNeutralAnswer(lastMessage)

	if currentIsAgreement {
		return Decision{
			Action:         ActionConfirmCall,
			AllowQuestions: true,
			Reason:         ReasonCallAgreed,
			Instruction:    "Клиент согласился на созвон! Подтверди время. Можешь спросить: 'Решение сами принимаете или с кем-то?'",
		}
	}

	if currentIsIrritated || stats.IrritationDetected {
		return Decision{
			Action:         ActionSendMaterials,
			AllowQuestions: false,
			Reason:         ReasonIrritated,
			Instruction:    "Клиент раздражён. Извинись коротко и скажи что пришлёшь 2-3 варианта. БЕЗ ВОПРОСОВ. Никаких.",
		}
	}

	// The question gate must run before the repeated-request guard, or it
	// could never fire: a question after a send request implies a prior
	// send request, which the guard below would already match.
	if stats.QuestionsAfterLastSend >= th.MaxQuestionsAfterSend && currentIsSend {
		return Decision{
			Action:         ActionSendMaterials,
			AllowQuestions: false,
			Reason:         ReasonAskedAfterSend,
			Instruction:    "Клиент просил скинуть, мы задали вопрос, он снова просит. Хватит. Скажи что пришлёшь. БЕЗ ВОПРОСОВ.",
		}
	}

	if stats.SendRequests >= 2 || (stats.SendRequests >= 1 && currentIsSend) {
		return Decision{
			Action:         ActionSendMaterials,
			AllowQuestions: false,
			Reason:         ReasonMultipleSendRequests,
			Instruction:    "Клиент уже несколько раз просил скинуть. Хватит. Скажи что пришлёшь 2-3 варианта. БЕЗ ВОПРОСОВ.",
		}
	}

	if stats.TotalMessages >= th.MaxMessages {
		return Decision{
			Action:         ActionSendMaterials,
			AllowQuestions: false,
			Reason:         ReasonTooLong,
			Instruction:    "Диалог слишком длинный. Заканчиваем. Скажи что пришлёшь варианты. БЕЗ ЛИШНИХ ВОПРОСОВ.",
		}
	}

	totalRejections := stats.CallRejections
	if currentIsRejection {
		totalRejections++
	}
	if totalRejections >= th.MaxCallRejections {
		return Decision{
			Action:         ActionSendMaterials,
			AllowQuestions: false,
			Reason:         ReasonCallRejectedTwice,
			Instruction:    "Клиент уже отказывался от созвона. Не настаивай. Скажи что пришлёшь 2-3 варианта. БЕЗ ВОПРОСОВ.",
		}
	}

	totalNeutral := stats.NeutralAnswers
	if currentIsNeutral {
		totalNeutral++
	}
	if totalNeutral >= th.MaxNeutralAnswers {
		return Decision{
			Action:         ActionSendMaterials,
			AllowQuestions: false,
			Reason:         ReasonTooManyNeutral,
			Instruction:    "Клиент много раз отвечал 'без разницы'. Хватит спрашивать. Скажи что пришлёшь варианты. БЕЗ ВОПРОСОВ.",
		}
	}

	if currentIsSend && stats.QuestionsAfterLastSend == 0 {
		return Decision{
			Action:         ActionQualifyThenSend,
			AllowQuestions: true,
			Reason:         ReasonFirstSendRequest,
			Instruction:    "Клиент просит скинуть. Подтверди что пришлёшь. Можешь задать ОДИН уточняющий вопрос.",
		}
	}

	if currentIsRejection && totalRejections == 1 {
		return Decision{
			Action:         ActionContinue,
			AllowQuestions: true,
			Reason:         ReasonFirstCallRejection,
			Instruction:    "Клиент отказался от созвона. Спокойно продолжай квалификацию. Спроси про бюджет если не знаем.",
		}
	}

	if stats.UserMessages >= th.ProposeCallAfterUserTurns && !stats.CallOffered {
		return Decision{
			Action:         ActionProposeCall,
			AllowQuestions: true,
			Reason:         ReasonEnoughQualification,
			Instruction:    "Уже достаточно пообщались. ОБЯЗАТЕЛЬНО предложи созвон: Давайте созвонимся на 15 минут — покажу варианты под ваш запрос. Когда удобнее?",
		}
	}

	if stats.CallOffered {
		return Decision{
			Action:         ActionContinue,
			AllowQuestions: true,
			Reason:         ReasonNormalAfterCallOffer,
			Instruction:    "Продолжай квалификацию. Узнай что не выяснено: бюджет, способ оплаты, сроки. Один вопрос.",
		}
	}

	return Decision{
		Action:         ActionQualifyOrCall,
		AllowQuestions: true,
		Reason:         ReasonNormal,
		Instruction:    "Если знаем цель+локацию+способ оплаты — предложи созвон на 15 минут. Если нет — задай следующий вопрос.",
	}
}
