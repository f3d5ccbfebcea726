// Package reply resolves the final text of an automatic reply from a rule's
// template or inline content.
package reply

import (
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/threadlyhq/replybot/model"
)

// Supported substitution tokens. Unknown tokens are left verbatim.
const (
	tokenUsername = "{{username}}"
	tokenComment  = "{{comment}}"
	tokenDate     = "{{date}}"
)

// Resolve produces the reply text for a comment. Template content, when the
// rule references a template and it resolved to something, wins over the
// rule's inline reply content.
func Resolve(rule model.Rule, templateContent string, comment model.Comment, locale string, now time.Time) string {
	content := rule.ReplyContent
	if rule.TemplateID != "" && templateContent != "" {
		content = templateContent
	}
	return strings.NewReplacer(
		tokenUsername, comment.ExternalAuthorUsername,
		tokenComment, comment.Text,
		tokenDate, FormatDate(now, locale),
	).Replace(content)
}

// FormatDate renders a date in the workspace's display locale. The layout is
// chosen from the base language of the locale tag; unparseable or unknown
// locales fall back to the ISO form.
func FormatDate(t time.Time, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return t.Format("2006-01-02")
	}
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return t.Format("January 2, 2006")
	case "de", "fr", "es", "it", "pt", "nl":
		return t.Format("2 January 2006")
	case "ja", "zh", "ko":
		return t.Format("2006/01/02")
	default:
		return t.Format("2006-01-02")
	}
}
