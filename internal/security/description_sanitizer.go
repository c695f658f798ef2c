// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizerService は上流APIから取得したクラン説明文をサニタイズする。
// 説明文はプレイヤーが自由に入力できるテキストであり、
// ブラウザにそのまま返す前にマークアップを全て除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService はクラン説明文のサニタイズ機能のインターフェースを定義する。
type DescriptionSanitizerService interface {
	// Sanitize は説明文からHTMLタグを全て除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// クラン説明文は表示上プレーンテキストのため、許可タグは一切なし（StrictPolicy）。
func NewDescriptionSanitizer() *descriptionSanitizer {
	return &descriptionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は説明文からHTMLタグを全て除去したプレーンテキストを返す。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
