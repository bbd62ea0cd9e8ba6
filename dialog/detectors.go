package dialog

import "strings"

// Marker sets are plain lowercase substrings tested against a case-folded
// utterance. They are package-level vars so the sales team can tune wording
// without touching the policy logic.

var sendRequestMarkers = []string{
	"скин",
	"скид",
	"пришли",
	"пришлите",
	"отправь",
	"отправьте",
	"вышли",
	"вышлите",
	"сбрось",
	"сбросьте",
	"подборк",
	"каталог",
	"материал",
	"на почту",
	"в ватсап",
	"в whatsapp",
}

var callRejectMarkers = []string{
	"не хочу звон",
	"не хочу созв",
	"не надо звон",
	"не надо созвон",
	"без звонк",
	"без созвон",
	"не звоните",
	"звонить не",
	"созвон не",
	"не могу говорить",
	"неудобно говорить",
	"не до звонков",
	"только переписк",
	"лучше в переписке",
	"лучше напишите",
	"лучше письменно",
	"некогда",
}

var callAgreeMarkers = []string{
	"давайте созвон",
	"давайте позвон",
	"давайте завтра",
	"можно созвон",
	"можем созвон",
	"готов созвониться",
	"готова созвониться",
	"согласен на созвон",
	"согласна на созвон",
	"позвоните",
	"наберите",
	"договорились",
	"удобно в",
	"удобно после",
}

var neutralMarkers = []string{
	"без разницы",
	"все равно",
	"всё равно",
	"не важно",
	"неважно",
	"как хотите",
	"как скажете",
	"на ваше усмотрение",
	"не знаю",
	"любой вариант",
	"любая",
}

var irritatedMarkers = []string{
	"надоел",
	"хватит",
	"отстань",
	"отстаньте",
	"достал",
	"задолбал",
	"сколько можно",
	"перестаньте",
	"прекратите",
	"не пишите мне",
	"отписаться",
}

// callOfferMarkers are matched against assistant turns to detect that a
// call/video-presentation was already proposed.
var callOfferMarkers = []string{
	"созвон",
	"видеопрезентац",
}

func matchesAny(text string, markers []string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// IsSendRequest reports whether the utterance asks to just send materials.
func IsSendRequest(text string) bool {
	return matchesAny(text, sendRequestMarkers)
}

// IsCallRejection reports whether the utterance declines a call.
func IsCallRejection(text string) bool {
	return matchesAny(text, callRejectMarkers)
}

// IsCallAgreement reports whether the utterance agrees to a call.
// Rejection markers in the same utterance win: "давайте созвонимся... хотя
// нет, не надо созвона" is not an agreement.
func IsCallAgreement(text string) bool {
	return matchesAny(text, callAgreeMarkers) && !matchesAny(text, callRejectMarkers)
}

// IsNeutralAnswer reports a "don't care" non-answer.
func IsNeutralAnswer(text string) bool {
	return matchesAny(text, neutralMarkers)
}

// IsIrritated reports irritation with the conversation itself.
func IsIrritated(text string) bool {
	return matchesAny(text, irritatedMarkers)
}

// HasQuestion reports whether the text contains a question mark.
func HasQuestion(text string) bool {
	return strings.Contains(text, "?")
}

func mentionsCallOffer(text string) bool {
	return matchesAny(text, callOfferMarkers)
}
