// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
)

// UserRepository はユーザーとクレジット残高の永続化インターフェース。
// クレジットの加減算はすべて単一のUPDATE文で行い、同時更新で加算が失われないようにする。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。email/usernameが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// UpdateProfile はnilでないフィールドのみ更新する。
	// 見つからない場合はnil、一意制約違反の場合はErrDuplicateを返す。
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, now time.Time) (*model.User, error)

	// SetCredits はクレジットを上書きする。見つからない場合はnilを返す。
	SetCredits(ctx context.Context, id string, credits int, now time.Time) (*model.User, error)

	// AddCredits はクレジットにdeltaを加算する。
	// 結果が負になる場合は更新せずErrInsufficientCreditsを返す。見つからない場合はnilを返す。
	AddCredits(ctx context.Context, id string, delta int, now time.Time) (*model.User, error)

	// ApplyLoginBonus はlast_loginが[dayStart, dayEnd)の外にある場合のみ
	// amountを加算しlast_loginをnowにする。appliedは加算したかどうか。
	// 見つからない場合はnilを返す。
	ApplyLoginBonus(ctx context.Context, id string, amount int, now, dayStart, dayEnd time.Time) (user *model.User, applied bool, err error)

	// DeleteByID は指定IDのユーザーを削除する。saved_feedsはCASCADE削除される。
	// 見つからない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}

// FeedRepository は正規化済みフィード（外部投稿）の永続化インターフェース。
type FeedRepository interface {
	// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Feed, error)

	// FindByPostID はpost_idでフィードを検索する。見つからない場合はnilを返す。
	FindByPostID(ctx context.Context, postID string) (*model.Feed, error)

	// Create はフィードを作成する。post_idが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, feed *model.Feed) error

	// ListReported は通報済みフィードを更新日時の降順で返す。
	ListReported(ctx context.Context) ([]*model.Feed, error)

	// MarkReported は通報フラグと理由を設定する。見つからない場合はnilを返す。
	MarkReported(ctx context.Context, id, reason string, now time.Time) (*model.Feed, error)

	// ClearReport は通報フラグと理由を初期値に戻す。見つからない場合はnilを返す。
	ClearReport(ctx context.Context, id string, now time.Time) (*model.Feed, error)

	// DeleteByID は指定IDのフィードを削除する。見つからない場合はErrNotFoundを返す。
	// saved_feedsの参照は残る。
	DeleteByID(ctx context.Context, id string) error
}

// SavedFeedRepository はユーザーの保存リストの永続化インターフェース。
type SavedFeedRepository interface {
	// SaveWithAward は保存エントリの作成とクレジット加算を同一トランザクションで行う。
	// 既に保存済みの場合はinserted=falseで何も変更しない。
	// creditsは処理後の残高。ユーザーが存在しない場合はErrNotFoundを返す。
	SaveWithAward(ctx context.Context, userID, postID string, award int, savedAt time.Time) (inserted bool, credits int, err error)

	// FindByUserAndPost は保存エントリを参照先フィード付きで取得する。見つからない場合はnilを返す。
	FindByUserAndPost(ctx context.Context, userID, postID string) (*model.SavedFeed, error)

	// ListByUser はユーザーの保存エントリを保存日時の昇順で返す。
	// 参照先フィードが削除済みのエントリはFeedがnilになる。
	ListByUser(ctx context.Context, userID string) ([]model.SavedFeed, error)

	// Delete は保存エントリを削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, userID, postID string) error
}

// Pinger はDB疎通確認用のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

var _ Pinger = (*sql.DB)(nil)
