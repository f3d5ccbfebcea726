// Package matcher decides whether a comment's text triggers an auto-reply
// rule. Matching is case-sensitive substring containment; locale-aware or
// fuzzy matching would be added as new Strategy implementations.
package matcher

import (
	"strings"

	"github.com/threadlyhq/replybot/model"
)

// Strategy evaluates trigger keywords against comment text.
type Strategy interface {
	Matches(text string, keywords []string) bool
}

// Any matches when the text contains at least one keyword.
type Any struct{}

func (Any) Matches(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// All matches only when the text contains every keyword.
type All struct{}

func (All) Matches(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

// Exact matches only when the trimmed text equals one of the keywords.
type Exact struct{}

func (Exact) Matches(text string, keywords []string) bool {
	trimmed := strings.TrimSpace(text)
	for _, kw := range keywords {
		if trimmed == kw {
			return true
		}
	}
	return false
}

func StrategyFor(mode model.MatchMode) Strategy {
	switch mode {
	case model.MatchModeAll:
		return All{}
	case model.MatchModeExact:
		return Exact{}
	default:
		return Any{}
	}
}

// Matches applies a rule's trigger keywords under its match mode, then the
// exclusion override: any exclude-keyword hit forces a no-match regardless of
// the trigger outcome.
func Matches(text string, triggerKeywords []string, excludeKeywords []string, mode model.MatchMode) bool {
	for _, kw := range excludeKeywords {
		if strings.Contains(text, kw) {
			return false
		}
	}
	return StrategyFor(mode).Matches(text, triggerKeywords)
}
