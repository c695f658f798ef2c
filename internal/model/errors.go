// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, upstream, config, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeAPIKeyNotConfigured = "API_KEY_NOT_CONFIGURED"
	ErrCodeClanNotFound        = "CLAN_NOT_FOUND"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewMissingFieldError は必須フィールド未指定エラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("%s は必須です。", field),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤っているかは明かさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、サインインしてください。",
	}
}

// NewSessionNotFoundError はセッション無効エラーを生成する。
func NewSessionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  "セッションが無効か期限切れです。",
		Category: "auth",
		Action:   "再度サインインしてください。",
	}
}

// NewAPIKeyNotConfiguredError はAPIトークン未設定の設定エラーを生成する。
// ルックアップ失敗（UpstreamError）とは区別する。
func NewAPIKeyNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeAPIKeyNotConfigured,
		Message:  "Clash of Clans APIトークンが設定されていません。",
		Category: "config",
		Action:   "サーバーの CLASH_API_TOKEN 環境変数を設定してください。",
	}
}

// UpstreamError は外部ゲームAPIの非2xx応答を表す。
// ステータスコードとレスポンスボディをそのまま保持し、
// プロキシ関数は呼び出し元へ同じステータスで中継する。
type UpstreamError struct {
	StatusCode int
	Details    string
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}
