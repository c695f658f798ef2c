// Package clash はClash of Clans APIのクライアントを提供する。
// プレイヤー・クラン・ウォーログの取得と、タグの正規化・エラー変換を含む。
package clash

import (
	"net/url"
	"strings"
)

// NormalizeTag はプレイヤー／クランタグを正規化する。
// 前後の空白を除去し、先頭の"#"を取り除く。冪等:
// NormalizeTag(tag) == NormalizeTag("#" + NormalizeTag(tag)) が常に成り立つ。
// 大文字化は行わない（上流APIはタグの大文字小文字を区別しない）。
func NormalizeTag(tag string) string {
	t := strings.TrimSpace(tag)
	t = strings.TrimPrefix(t, "#")
	return strings.TrimSpace(t)
}

// DisplayTag は正規化済みタグに"#"を付けた表示形式を返す。
func DisplayTag(tag string) string {
	return "#" + NormalizeTag(tag)
}

// encodeTag は上流APIのパス用にタグをURLエンコードする。
// "#ABC123" → "%23ABC123"
func encodeTag(tag string) string {
	return url.PathEscape(DisplayTag(tag))
}
