// Package classifier flags messages that disclose crisis, harassment,
// violence or abuse so the conversation can switch to the sensitive-handling
// flow immediately, without waiting on a model call.
//
// Matching is plain lower-cased substring search over fixed phrase sets.
// That is intentionally conservative: false negatives are expected and
// acceptable (the model-side instructions are the backstop), but a match is
// near-certain, hence the fixed high confidence.
package classifier

import "strings"

// Sensitive categories, in priority order.
const (
	CategoryCrisis     = "crisis"
	CategoryHarassment = "harassment"
	CategoryViolence   = "violence"
	CategoryAbuse      = "abuse"
	CategoryNone       = "none"
)

// Result is the outcome of classifying a single message. It is derived fresh
// per message and never persisted; only its effect on the session sticks.
type Result struct {
	IsSensitive bool    `json:"isSensitive"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

type phraseSet struct {
	category string
	phrases  []string
}

// Ordered slice, not a map: the first matching category wins and iteration
// order must be deterministic.
var sensitivePhrases = []phraseSet{
	{CategoryCrisis, []string{
		"suicide", "kill myself", "end my life", "want to die",
		"self harm", "self-harm", "dont want to live", "don't want to live",
	}},
	{CategoryHarassment, []string{
		"harassed", "touched me", "groped", "followed me",
		"stalked", "threatened me", "assaulted", "molested",
	}},
	{CategoryViolence, []string{
		"stabbed", "gun", "weapon", "attacked me", "hurt me",
	}},
	{CategoryAbuse, []string{
		"abused", "beaten", "hit me", "forced me", "domestic violence",
	}},
}

// Classify inspects a single message and reports whether it contains
// sensitive content. Pure and deterministic.
func Classify(text string) Result {
	lower := strings.ToLower(text)

	for _, set := range sensitivePhrases {
		for _, phrase := range set.phrases {
			if strings.Contains(lower, phrase) {
				return Result{IsSensitive: true, Category: set.category, Confidence: 0.95}
			}
		}
	}

	return Result{IsSensitive: false, Category: CategoryNone, Confidence: 0.9}
}
