// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, conflict, auth, upstream
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryValidation = "validation"
	CategoryNotFound   = "not_found"
	CategoryConflict   = "conflict"
	CategoryAuth       = "auth"
	CategoryUpstream   = "upstream"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeMissingFields       = "MISSING_FIELDS"
	ErrCodeFieldTooLong        = "FIELD_TOO_LONG"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeInvalidEmail        = "INVALID_EMAIL"
	ErrCodeInvalidID           = "INVALID_ID"
	ErrCodeInvalidCredits      = "INVALID_CREDITS"
	ErrCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	ErrCodeCreditsOutOfRange   = "CREDITS_OUT_OF_RANGE"
	ErrCodeInvalidPassword     = "INVALID_PASSWORD"
	ErrCodeInvalidReportAction = "INVALID_REPORT_ACTION"
	ErrCodeCannotDeleteSelf    = "CANNOT_DELETE_SELF"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeFeedNotFound        = "FEED_NOT_FOUND"
	ErrCodeSavedFeedNotFound   = "SAVED_FEED_NOT_FOUND"
	ErrCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeSourceUnavailable   = "SOURCE_UNAVAILABLE"
	ErrCodeSourceNotConfigured = "SOURCE_NOT_CONFIGURED"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeCSRFTokenInvalid    = "CSRF_TOKEN_INVALID"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// HasCategory はerrがAPIErrorであり、指定カテゴリに属するかを返す。
func HasCategory(err error, category string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == category
}

// HasCode はerrがAPIErrorであり、指定コードを持つかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewMissingFieldsError は必須項目の欠落エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("必須項目が指定されていません: %v", fields),
		Category: CategoryValidation,
		Action:   "すべての必須項目を入力してください。",
	}
}

// NewFieldTooLongError は項目の長さ超過エラーを生成する。
func NewFieldTooLongError(field string, max int) *APIError {
	return &APIError{
		Code:     ErrCodeFieldTooLong,
		Message:  fmt.Sprintf("%s は%d文字以内で指定してください。", field, max),
		Category: CategoryValidation,
		Action:   "入力内容を短くしてください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: CategoryValidation,
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewInvalidEmailError はメールアドレス形式の不正エラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("メールアドレスの形式が不正です: %s", email),
		Category: CategoryValidation,
		Action:   "正しいメールアドレスを入力してください。",
	}
}

// NewInvalidIDError はID形式の不正エラーを生成する。
func NewInvalidIDError(kind, id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("%sの形式が不正です: %s", kind, id),
		Category: CategoryValidation,
		Action:   "IDを確認してください。",
	}
}

// NewInvalidCreditsError はクレジット値の不正エラーを生成する。
func NewInvalidCreditsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredits,
		Message:  "クレジットは0以上の整数で指定してください。",
		Category: CategoryValidation,
		Action:   "0以上の整数を入力してください。",
	}
}

// NewInsufficientCreditsError は残高が負になる加減算のエラーを生成する。
func NewInsufficientCreditsError(balance, delta int) *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientCredits,
		Message:  fmt.Sprintf("クレジットが不足しています（残高 %d、変更量 %d）。", balance, delta),
		Category: CategoryValidation,
		Action:   "残高を確認してください。",
	}
}

// NewCreditsOutOfRangeError は残高が上限を超える加算のエラーを生成する。
func NewCreditsOutOfRangeError(balance, delta int) *APIError {
	return &APIError{
		Code:     ErrCodeCreditsOutOfRange,
		Message:  fmt.Sprintf("クレジットが上限 %d を超えます（残高 %d、変更量 %d）。", MaxCredits, balance, delta),
		Category: CategoryValidation,
		Action:   "変更量を小さくしてください。",
	}
}

// NewInvalidPasswordError はパスワード要件の不一致エラーを生成する。
func NewInvalidPasswordError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  fmt.Sprintf("パスワードが要件を満たしていません: %s", reason),
		Category: CategoryValidation,
		Action:   "6文字以上72バイト以下のパスワードを指定してください。",
	}
}

// NewInvalidReportActionError は未知の通報対応種別エラーを生成する。
func NewInvalidReportActionError(action string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReportAction,
		Message:  fmt.Sprintf("無効な対応種別です: %s", action),
		Category: CategoryValidation,
		Action:   "delete または ignore を指定してください。",
	}
}

// NewCannotDeleteSelfError は管理者が自分自身を削除しようとした場合のエラーを生成する。
func NewCannotDeleteSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeCannotDeleteSelf,
		Message:  "自分自身のアカウントは削除できません。",
		Category: CategoryValidation,
		Action:   "別の管理者に依頼してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryNotFound,
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewFeedNotFoundError はフィードが見つからない場合のエラーを生成する。
func NewFeedNotFoundError(feedID string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotFound,
		Message:  fmt.Sprintf("指定されたフィードが見つかりません: %s", feedID),
		Category: CategoryNotFound,
		Action:   "フィードIDを確認してください。",
	}
}

// NewSavedFeedNotFoundError は保存リストに該当エントリがない場合のエラーを生成する。
func NewSavedFeedNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodeSavedFeedNotFound,
		Message:  fmt.Sprintf("保存済みフィードに見つかりません: %s", postID),
		Category: CategoryNotFound,
		Action:   "保存済みフィード一覧を確認してください。",
	}
}

// NewUserAlreadyExistsError はメールアドレスまたはユーザー名の重複エラーを生成する。
func NewUserAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  "このメールアドレスまたはユーザー名は既に使用されています。",
		Category: CategoryConflict,
		Action:   "ログインするか、別のメールアドレス・ユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスの存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作は管理者のみ実行できます。",
		Category: CategoryAuth,
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewSourceUnavailableError は外部投稿ソースの取得失敗エラーを生成する。
func NewSourceUnavailableError(source string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceUnavailable,
		Message:  fmt.Sprintf("%s の投稿を取得できませんでした。", source),
		Category: CategoryUpstream,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSourceNotConfiguredError は外部投稿ソースが未設定の場合のエラーを生成する。
func NewSourceNotConfiguredError(source string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceNotConfigured,
		Message:  fmt.Sprintf("%s の取得設定がされていません。", source),
		Category: CategoryUpstream,
		Action:   "管理者に連絡してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: CategorySystem,
		Action:   "Retry-Afterで指定された時間が経過してから再度お試しください。",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: CategoryAuth,
		Action:   "/api/csrf-token でトークンを取得し、X-CSRF-Tokenヘッダーに設定してください。",
	}
}

// NewInternalError は詳細を伏せた内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}
