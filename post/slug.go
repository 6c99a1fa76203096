package post

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRegex   = regexp.MustCompile(`\s+`)
	invalidRegex = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\-ー]`)
)

// Slugify は、トピックをファイル名に使える形に変換します。
// 全角英数字は NFKC で半角に揃え、空白は "-" に置き換え、
// 文字・数字・"_"・"-"・"ー" 以外を取り除いて小文字にします。
// 結果に対して再度 Slugify しても変化しません。
func Slugify(s string) string {
	s = norm.NFKC.String(s)
	s = spaceRegex.ReplaceAllString(strings.TrimSpace(s), "-")
	s = invalidRegex.ReplaceAllString(s, "")
	return norm.NFKC.String(strings.ToLower(s))
}
