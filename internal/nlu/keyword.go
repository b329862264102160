package nlu

import (
	"context"
	"strings"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// KeywordClassifier is the deterministic degraded-mode classifier: lexical
// cue lists per intent, English and Arabic, checked in priority order. It
// extracts no item entities; the resolver treats the whole message as one
// mention when entities are absent.
type KeywordClassifier struct{}

type cueRule struct {
	intent     domain.Intent
	confidence float64
	cues       []string
}

// Rules are ordered: safety-relevant intents (complaint, escalate) and
// state-changing ones (confirm, cancel) must win over the broad ordering
// and inquiry buckets.
var keywordRules = []cueRule{
	{domain.IntentEscalate, 0.90, []string{
		"human", "agent", "manager", "real person", "موظف", "مدير", "انسان",
	}},
	{domain.IntentComplaint, 0.80, []string{
		"missing", "wrong order", "cold", "late", "refund", "complaint", "complain",
		"terrible", "never arrived", "شكوى", "ناقص", "غلط", "بارد", "متأخر", "استرجاع",
	}},
	{domain.IntentConfirmOrder, 0.85, []string{
		"confirm", "place the order", "place my order", "checkout", "that's all",
		"thats all", "أكد", "اكد الطلب", "تمام اطلب", "خلاص اطلب",
	}},
	{domain.IntentCancel, 0.85, []string{
		"cancel", "start over", "never mind", "الغاء", "ألغي", "الغي",
	}},
	{domain.IntentRemove, 0.80, []string{
		"remove", "delete", "take off", "without the", "احذف", "حذف", "شيل",
	}},
	{domain.IntentTracking, 0.80, []string{
		"where is my order", "track", "status of my order", "how long", "وين طلبي", "تتبع",
	}},
	{domain.IntentQueryOrder, 0.75, []string{
		"what's in my order", "whats in my order", "my cart", "show my order",
		"what did i order", "وش طلبت", "شو في طلبي",
	}},
	{domain.IntentFarewell, 0.90, []string{
		"bye", "goodbye", "see you", "مع السلامة", "الى اللقاء",
	}},
	{domain.IntentGreeting, 0.90, []string{
		"hi", "hello", "hey", "good morning", "good evening", "مرحبا", "السلام عليكم", "هلا",
	}},
	{domain.IntentOrdering, 0.70, []string{
		"i want", "i'd like", "id like", "add", "get me", "can i have", "give me",
		"order a", "أريد", "اريد", "ابي", "بدي", "عايز", "أضف", "اضف",
	}},
	{domain.IntentInquiry, 0.70, []string{
		"menu", "price", "how much", "what do you have", "do you have", "vegetarian",
		"calories", "القائمة", "المنيو", "كم سعر", "بكم", "عندكم",
	}},
}

var negativeWords = []string{
	"terrible", "awful", "angry", "worst", "horrible", "disgusting", "unacceptable",
	"سيء", "فظيع", "زعلان",
}

var positiveWords = []string{
	"great", "thanks", "thank you", "love", "awesome", "perfect", "delicious",
	"شكرا", "ممتاز", "رائع",
}

// Classify implements IntentClassifier. It never fails.
func (KeywordClassifier) Classify(_ context.Context, message string, sc SessionContext) (IntentResult, error) {
	msg := strings.ToLower(strings.TrimSpace(message))
	res := IntentResult{
		Intent:     domain.IntentUnclear,
		Confidence: 0.2,
		Sentiment:  sentimentOf(msg),
	}
	if msg == "" {
		res.Confidence = 0
		return res, nil
	}

	// Bare affirmation while a confirmation is pending reads as consent.
	if sc.State == domain.StateConfirmingOrder && isAffirmation(msg) {
		res.Intent = domain.IntentConfirmOrder
		res.Confidence = 0.85
		return res, nil
	}

	for _, rule := range keywordRules {
		for _, cue := range rule.cues {
			if containsCue(msg, cue) {
				res.Intent = rule.intent
				res.Confidence = rule.confidence
				return res, nil
			}
		}
	}
	return res, nil
}

func isAffirmation(msg string) bool {
	switch msg {
	case "yes", "yeah", "yep", "sure", "ok", "okay", "نعم", "ايوه", "اي", "تمام":
		return true
	}
	return false
}

// containsCue matches multi-word cues as substrings and single-word cues as
// whole tokens, so "hi" does not fire inside "white".
func containsCue(msg, cue string) bool {
	if strings.ContainsAny(cue, " '") {
		return strings.Contains(msg, cue)
	}
	for _, tok := range strings.FieldsFunc(msg, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == '؟' || r == '،'
	}) {
		if tok == cue {
			return true
		}
	}
	return false
}

func sentimentOf(msg string) domain.Sentiment {
	for _, w := range negativeWords {
		if strings.Contains(msg, w) {
			return domain.SentimentNegative
		}
	}
	for _, w := range positiveWords {
		if strings.Contains(msg, w) {
			return domain.SentimentPositive
		}
	}
	return domain.SentimentNeutral
}
