package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
)

// 保存エントリとフィードの外部結合。フィードが削除済みの場合はf.*がNULLになる。
const savedFeedSelect = `
	SELECT s.user_id, s.post_id, s.saved_at,
	       f.id, f.source, f.title, f.url, f.reported, f.report_reason, f.created_at, f.updated_at
	FROM saved_feeds s
	LEFT JOIN feeds f ON f.post_id = s.post_id`

// PostgresSavedFeedRepo はPostgreSQLを使用した保存リストリポジトリ。
type PostgresSavedFeedRepo struct {
	db *sql.DB
}

// NewPostgresSavedFeedRepo はPostgresSavedFeedRepoを生成する。
func NewPostgresSavedFeedRepo(db *sql.DB) *PostgresSavedFeedRepo {
	return &PostgresSavedFeedRepo{db: db}
}

func scanSavedFeed(row rowScanner) (model.SavedFeed, error) {
	var (
		saved        model.SavedFeed
		feedID       sql.NullString
		source       sql.NullString
		title        sql.NullString
		url          sql.NullString
		reported     sql.NullBool
		reportReason sql.NullString
		createdAt    sql.NullTime
		updatedAt    sql.NullTime
	)
	err := row.Scan(
		&saved.UserID, &saved.PostID, &saved.SavedAt,
		&feedID, &source, &title, &url, &reported, &reportReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return saved, err
	}
	if feedID.Valid {
		saved.Feed = &model.Feed{
			ID:           feedID.String,
			PostID:       saved.PostID,
			Source:       source.String,
			Title:        title.String,
			URL:          url.String,
			Reported:     reported.Bool,
			ReportReason: reportReason.String,
			CreatedAt:    createdAt.Time,
			UpdatedAt:    updatedAt.Time,
		}
	}
	return saved, nil
}

// SaveWithAward は保存エントリの作成とクレジット加算を同一トランザクションで行う。
// INSERT ... ON CONFLICT DO NOTHING で重複保存を検出するため、
// 同一(user, post)の同時保存でも加算は1回だけになる。残高はMaxCreditsで頭打ちにする。
func (r *PostgresSavedFeedRepo) SaveWithAward(ctx context.Context, userID, postID string, award int, savedAt time.Time) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO saved_feeds (user_id, post_id, saved_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID, savedAt,
	)
	if isForeignKeyViolation(err) {
		return false, 0, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to insert saved feed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	inserted := rowsAffected > 0

	var credits int
	if inserted {
		err = tx.QueryRowContext(ctx,
			`UPDATE users SET credits = LEAST(credits::bigint + $2::bigint, $4)::integer, updated_at = $3
			 WHERE id = $1 RETURNING credits`,
			userID, int64(award), savedAt, int64(model.MaxCredits),
		).Scan(&credits)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to award credits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, credits, nil
}

// FindByUserAndPost は保存エントリを参照先フィード付きで取得する。見つからない場合はnilを返す。
func (r *PostgresSavedFeedRepo) FindByUserAndPost(ctx context.Context, userID, postID string) (*model.SavedFeed, error) {
	saved, err := scanSavedFeed(r.db.QueryRowContext(ctx,
		savedFeedSelect+` WHERE s.user_id = $1 AND s.post_id = $2`,
		userID, postID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("保存済みフィードの取得に失敗しました: %w", err)
	}
	return &saved, nil
}

// ListByUser はユーザーの保存エントリを保存日時の昇順で返す。
// 参照はpost_idで結合するため、削除後に同じpost_idのフィードが再作成されると再び解決される。
func (r *PostgresSavedFeedRepo) ListByUser(ctx context.Context, userID string) ([]model.SavedFeed, error) {
	rows, err := r.db.QueryContext(ctx,
		savedFeedSelect+` WHERE s.user_id = $1 ORDER BY s.saved_at ASC, s.post_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("保存済みフィード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	saved := []model.SavedFeed{}
	for rows.Next() {
		entry, err := scanSavedFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("保存済みフィードのスキャンに失敗しました: %w", err)
		}
		saved = append(saved, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("保存済みフィード一覧の走査に失敗しました: %w", err)
	}
	return saved, nil
}

// Delete は保存エントリを削除する。クレジットは変更しない。
func (r *PostgresSavedFeedRepo) Delete(ctx context.Context, userID, postID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_feeds WHERE user_id = $1 AND post_id = $2`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("保存済みフィードの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("saved feed %s/%s: %w", userID, postID, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ SavedFeedRepository = (*PostgresSavedFeedRepo)(nil)
