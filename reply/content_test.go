package reply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/threadlyhq/replybot/model"
)

func TestResolve(t *testing.T) {
	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
	comment := model.Comment{
		ExternalAuthorUsername: "jamie",
		Text:                   "how much is the pro plan?",
	}

	t.Run("substitutes username, comment and date tokens", func(t *testing.T) {
		rule := model.Rule{ReplyContent: "Hi {{username}}! You asked: {{comment}} ({{date}})"}
		got := Resolve(rule, "", comment, "en-US", now)
		assert.Equal(t, "Hi jamie! You asked: how much is the pro plan? (March 7, 2026)", got)
	})

	t.Run("template content wins over inline content", func(t *testing.T) {
		rule := model.Rule{ReplyContent: "inline", TemplateID: "tpl_1"}
		got := Resolve(rule, "template for {{username}}", comment, "en", now)
		assert.Equal(t, "template for jamie", got)
	})

	t.Run("falls back to inline content when the template is empty", func(t *testing.T) {
		rule := model.Rule{ReplyContent: "inline {{username}}", TemplateID: "tpl_1"}
		got := Resolve(rule, "", comment, "en", now)
		assert.Equal(t, "inline jamie", got)
	})

	t.Run("leaves unknown tokens verbatim", func(t *testing.T) {
		rule := model.Rule{ReplyContent: "hi {{usernmae}}"}
		got := Resolve(rule, "", comment, "en", now)
		assert.Equal(t, "hi {{usernmae}}", got)
	})
}

func TestFormatDate(t *testing.T) {
	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		locale   string
		expected string
	}{
		{"en-US", "March 7, 2026"},
		{"de-DE", "7 March 2026"},
		{"ja-JP", "2026/03/07"},
		{"sv-SE", "2026-03-07"},
		{"", "2026-03-07"},
		{"not a locale", "2026-03-07"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.locale, func(t *testing.T) {
			assert.Equal(t, testCase.expected, FormatDate(now, testCase.locale))
		})
	}
}
