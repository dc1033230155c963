// Package savedfeed はユーザーの保存フィードと保存時のクレジット付与を扱う。
package savedfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/feedcredit/internal/metrics"
	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
	"github.com/hitoshi/feedcredit/internal/security"
)

// SaveAward は新規保存1件あたりに付与されるクレジット。
const SaveAward = 5

const (
	maxPostIDLength = 255
	maxSourceLength = 32
)

// SaveFeedInput はフィード保存の入力。
type SaveFeedInput struct {
	PostID string
	Source string
	Title  string
	URL    string
}

// SaveResult はフィード保存の結果。
// AlreadySavedがtrueの場合、保存リストとクレジットは変更されていない。
type SaveResult struct {
	Credits      int
	SavedFeeds   []model.SavedFeed
	PostID       string
	Feed         *model.Feed
	AlreadySaved bool
}

// UserFinder は保存前のユーザー存在確認に使うインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Service は保存フィードのサービス層。
type Service struct {
	users     UserFinder
	feeds     repository.FeedRepository
	saved     repository.SavedFeedRepository
	validator security.URLValidator
	sanitizer security.TextSanitizer
	metrics   metrics.Recorder
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。
func NewService(
	users UserFinder,
	feeds repository.FeedRepository,
	saved repository.SavedFeedRepository,
	validator security.URLValidator,
	sanitizer security.TextSanitizer,
	recorder metrics.Recorder,
) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		users:     users,
		feeds:     feeds,
		saved:     saved,
		validator: validator,
		sanitizer: sanitizer,
		metrics:   recorder,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// normalize は入力を検証し、保存用に正規化した値を返す。
func (s *Service) normalize(in SaveFeedInput) (SaveFeedInput, error) {
	out := SaveFeedInput{
		PostID: strings.TrimSpace(in.PostID),
		Source: strings.ToLower(strings.TrimSpace(in.Source)),
		Title:  s.sanitizer.PlainText(in.Title),
		URL:    strings.TrimSpace(in.URL),
	}

	var missing []string
	if out.PostID == "" {
		missing = append(missing, "postId")
	}
	if out.Source == "" {
		missing = append(missing, "source")
	}
	if out.Title == "" {
		missing = append(missing, "title")
	}
	if out.URL == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return out, model.NewMissingFieldsError(missing...)
	}

	if utf8.RuneCountInString(out.PostID) > maxPostIDLength {
		return out, model.NewFieldTooLongError("postId", maxPostIDLength)
	}
	if utf8.RuneCountInString(out.Source) > maxSourceLength {
		return out, model.NewFieldTooLongError("source", maxSourceLength)
	}
	if err := s.validator.ValidateLink(out.URL); err != nil {
		return out, model.NewInvalidURLError(err.Error())
	}
	return out, nil
}

// SaveFeed はpost_idのフィードをユーザーの保存リストに追加し、SaveAwardを付与する。
// フィードが未登録の場合は入力から作成する。既存フィードのメタデータは上書きしない。
// 既に保存済みの場合はエラーにせず、AlreadySaved=trueで何も変更しない。
func (s *Service) SaveFeed(ctx context.Context, userID string, in SaveFeedInput) (*SaveResult, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return nil, err
	}
	input, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	// 存在しないユーザーのためにフィードを作成しない
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	feed, err := s.findOrCreateFeed(ctx, input)
	if err != nil {
		return nil, err
	}

	inserted, credits, err := s.saved.SaveWithAward(ctx, userID, feed.PostID, SaveAward, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewUserNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("フィードの保存に失敗しました: %w", err)
	}

	list, err := s.saved.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済みフィード一覧の取得に失敗しました: %w", err)
	}

	s.metrics.RecordFeedSaved(!inserted)
	if inserted {
		s.metrics.RecordCreditsAwarded(metrics.ReasonSaveAward, SaveAward)
		slog.Info("フィードを保存しました",
			slog.String("user_id", userID),
			slog.String("post_id", feed.PostID),
			slog.Int("credits", credits),
		)
	} else {
		slog.Debug("保存済みのフィードです（無視）",
			slog.String("user_id", userID),
			slog.String("post_id", feed.PostID),
		)
	}

	return &SaveResult{
		Credits:      credits,
		SavedFeeds:   list,
		PostID:       feed.PostID,
		Feed:         feed,
		AlreadySaved: !inserted,
	}, nil
}

// findOrCreateFeed はpost_idのフィードを取得し、なければ作成する。
// 同時作成で一意制約違反になった場合は、先に作成された行を取得し直す。
func (s *Service) findOrCreateFeed(ctx context.Context, in SaveFeedInput) (*model.Feed, error) {
	feed, err := s.feeds.FindByPostID(ctx, in.PostID)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	if feed != nil {
		return feed, nil
	}

	now := s.now()
	feed = &model.Feed{
		ID:        s.newID(),
		PostID:    in.PostID,
		Source:    in.Source,
		Title:     in.Title,
		URL:       in.URL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.feeds.Create(ctx, feed)
	if err == nil {
		return feed, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("フィードの作成に失敗しました: %w", err)
	}

	existing, err := s.feeds.FindByPostID(ctx, in.PostID)
	if err != nil {
		return nil, fmt.Errorf("フィードの再取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("post_id %s のフィードが作成直後に見つかりません", in.PostID)
	}
	return existing, nil
}

// ListSavedFeeds はユーザーの保存フィードを保存順に返す。
// 削除済みフィードを参照するエントリはFeedがnilになる。
func (s *Service) ListSavedFeeds(ctx context.Context, userID string) ([]model.SavedFeed, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return nil, err
	}
	list, err := s.saved.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("保存済みフィード一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}

// GetSavedFeed は保存リスト内の1件を返す。
func (s *Service) GetSavedFeed(ctx context.Context, userID, postID string) (*model.SavedFeed, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return nil, err
	}
	saved, err := s.saved.FindByUserAndPost(ctx, userID, postID)
	if err != nil {
		return nil, fmt.Errorf("保存済みフィードの取得に失敗しました: %w", err)
	}
	if saved == nil {
		return nil, model.NewSavedFeedNotFoundError(postID)
	}
	return saved, nil
}

// UnsaveFeed は保存リストから1件を削除する。付与済みのクレジットは戻さない。
func (s *Service) UnsaveFeed(ctx context.Context, userID, postID string) error {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return err
	}
	err := s.saved.Delete(ctx, userID, postID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewSavedFeedNotFoundError(postID)
	}
	if err != nil {
		return fmt.Errorf("保存済みフィードの削除に失敗しました: %w", err)
	}

	slog.Info("保存済みフィードを削除しました",
		slog.String("user_id", userID),
		slog.String("post_id", postID),
	)
	return nil
}

// ShareFeed はフィードの共有リンクを生成する。状態は変更しない。
func (s *Service) ShareFeed(ctx context.Context, feedID string) (*ShareLinks, error) {
	if err := model.ValidateID("フィードID", feedID); err != nil {
		return nil, err
	}
	feed, err := s.feeds.FindByID(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	if feed == nil {
		return nil, model.NewFeedNotFoundError(feedID)
	}
	links := BuildShareLinks(feed)
	return &links, nil
}
