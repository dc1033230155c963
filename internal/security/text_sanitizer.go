package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はタイトルや通報理由などの外部入力をプレーンテキストに変換する。
type TextSanitizer interface {
	PlainText(s string) string
}

// PlainTextSanitizer はbluemondayのStrictPolicyで全タグを除去するTextSanitizer実装。
// bluemondayのポリシーはスレッドセーフ。
type PlainTextSanitizer struct {
	policy   *bluemonday.Policy
	maxRunes int
}

// NewPlainTextSanitizer はPlainTextSanitizerを生成する。
// maxRunesが0以下の場合は長さを制限しない。
func NewPlainTextSanitizer(maxRunes int) *PlainTextSanitizer {
	return &PlainTextSanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxRunes: maxRunes,
	}
}

// PlainText はタグを除去し、エンティティを復元し、空白を1文字に詰めて返す。
func (s *PlainTextSanitizer) PlainText(in string) string {
	if in == "" {
		return ""
	}
	text := html.UnescapeString(s.policy.Sanitize(in))
	text = strings.Join(strings.Fields(text), " ")

	if s.maxRunes > 0 && utf8.RuneCountInString(text) > s.maxRunes {
		runes := []rune(text)
		text = string(runes[:s.maxRunes])
	}
	return text
}

var _ TextSanitizer = (*PlainTextSanitizer)(nil)
