// Package model はドメインモデルを定義する。
package model

import "time"

// Feed は外部サービス（Reddit/Twitter）の投稿1件を正規化したレコード。
// post_idごとに1行だけ存在し、複数ユーザーから共有参照される。
type Feed struct {
	ID           string
	PostID       string
	Source       string
	Title        string
	URL          string
	Reported     bool
	ReportReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SavedFeed はユーザーの保存リストの1エントリ。
// Feedへの参照はpost_idで保持する弱参照で、Feedのコピーは持たない。
// 参照先のFeedが管理者により削除された場合、Feedはnilになる。
// 同じpost_idのFeedが再作成されると、既存の参照はそのFeedを指す。
type SavedFeed struct {
	UserID  string
	PostID  string
	SavedAt time.Time
	Feed    *Feed
}

// Available は参照先のFeedが現存するかを返す。
func (s SavedFeed) Available() bool {
	return s.Feed != nil
}

// ReportAction は通報への対応種別を表す。
type ReportAction string

const (
	// ReportActionDelete はフィードを削除する対応。
	ReportActionDelete ReportAction = "delete"
	// ReportActionIgnore は通報を取り消す対応。
	ReportActionIgnore ReportAction = "ignore"
)

// DefaultReportReason は理由が空の通報に設定される文言。
const DefaultReportReason = "No reason provided"
