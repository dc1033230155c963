package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
)

const feedColumns = `id, post_id, source, title, url, reported, report_reason, created_at, updated_at`

// PostgresFeedRepo はPostgreSQLを使用したフィードリポジトリ。
type PostgresFeedRepo struct {
	db *sql.DB
}

// NewPostgresFeedRepo はPostgresFeedRepoを生成する。
func NewPostgresFeedRepo(db *sql.DB) *PostgresFeedRepo {
	return &PostgresFeedRepo{db: db}
}

func scanFeed(row rowScanner) (*model.Feed, error) {
	feed := &model.Feed{}
	err := row.Scan(
		&feed.ID, &feed.PostID, &feed.Source, &feed.Title, &feed.URL,
		&feed.Reported, &feed.ReportReason, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func (r *PostgresFeedRepo) queryFeed(ctx context.Context, msg, query string, args ...any) (*model.Feed, error) {
	feed, err := scanFeed(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return feed, nil
}

// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByID(ctx context.Context, id string) (*model.Feed, error) {
	return r.queryFeed(ctx, "フィードの取得に失敗しました",
		`SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
}

// FindByPostID はpost_idでフィードを検索する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByPostID(ctx context.Context, postID string) (*model.Feed, error) {
	return r.queryFeed(ctx, "post_idによるフィードの検索に失敗しました",
		`SELECT `+feedColumns+` FROM feeds WHERE post_id = $1`, postID)
}

// Create はフィードを作成する。post_idの一意制約違反はErrDuplicateになる。
func (r *PostgresFeedRepo) Create(ctx context.Context, feed *model.Feed) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feeds (id, post_id, source, title, url, reported, report_reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		feed.ID, feed.PostID, feed.Source, feed.Title, feed.URL,
		feed.Reported, feed.ReportReason, feed.CreatedAt, feed.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("フィードの作成に失敗しました: %w", err)
	}
	return nil
}

// ListReported は通報済みフィードを更新日時の降順で返す。
func (r *PostgresFeedRepo) ListReported(ctx context.Context) ([]*model.Feed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feedColumns+` FROM feeds WHERE reported = true ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("通報済みフィードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var feeds []*model.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("フィードのスキャンに失敗しました: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィード一覧の走査に失敗しました: %w", err)
	}
	return feeds, nil
}

// MarkReported は通報フラグと理由を設定する。再通報は理由を上書きする。
func (r *PostgresFeedRepo) MarkReported(ctx context.Context, id, reason string, now time.Time) (*model.Feed, error) {
	return r.queryFeed(ctx, "フィードの通報に失敗しました",
		`UPDATE feeds SET reported = true, report_reason = $2, updated_at = $3
		 WHERE id = $1 RETURNING `+feedColumns,
		id, reason, now)
}

// ClearReport は通報フラグと理由を初期値に戻す。
func (r *PostgresFeedRepo) ClearReport(ctx context.Context, id string, now time.Time) (*model.Feed, error) {
	return r.queryFeed(ctx, "フィードの通報解除に失敗しました",
		`UPDATE feeds SET reported = false, report_reason = '', updated_at = $2
		 WHERE id = $1 RETURNING `+feedColumns,
		id, now)
}

// DeleteByID は指定IDのフィードを削除する。
func (r *PostgresFeedRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("フィードの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("feed %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ FeedRepository = (*PostgresFeedRepo)(nil)
