// Package moderation はフィードの通報と管理者による通報対応を提供する。
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/feedcredit/internal/metrics"
	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
	"github.com/hitoshi/feedcredit/internal/security"
)

// Service は通報管理のサービス層。
type Service struct {
	feeds     repository.FeedRepository
	sanitizer security.TextSanitizer
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(feeds repository.FeedRepository, sanitizer security.TextSanitizer, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		feeds:     feeds,
		sanitizer: sanitizer,
		metrics:   recorder,
		now:       time.Now,
	}
}

// ReportFeed はフィードを通報済みにする。理由が空の場合はmodel.DefaultReportReasonを使う。
// 再通報は理由を上書きする。
func (s *Service) ReportFeed(ctx context.Context, feedID, reason string) (*model.Feed, error) {
	if err := model.ValidateID("フィードID", feedID); err != nil {
		return nil, err
	}

	reason = s.sanitizer.PlainText(reason)
	if reason == "" {
		reason = model.DefaultReportReason
	}

	feed, err := s.feeds.MarkReported(ctx, feedID, reason, s.now())
	if err != nil {
		return nil, fmt.Errorf("フィードの通報に失敗しました: %w", err)
	}
	if feed == nil {
		return nil, model.NewFeedNotFoundError(feedID)
	}

	s.metrics.RecordReport("report")
	slog.Info("フィードが通報されました",
		slog.String("feed_id", feedID),
		slog.String("reason", reason),
	)
	return feed, nil
}

// ListReportedFeeds は通報済みフィードを新しい順に返す。
func (s *Service) ListReportedFeeds(ctx context.Context) ([]*model.Feed, error) {
	feeds, err := s.feeds.ListReported(ctx)
	if err != nil {
		return nil, fmt.Errorf("通報済みフィードの取得に失敗しました: %w", err)
	}
	if feeds == nil {
		feeds = []*model.Feed{}
	}
	return feeds, nil
}

// ResolveReport は通報に対応する。
// deleteはフィードを削除し、ignoreは通報フラグと理由を初期値に戻す。
// ユーザーの保存エントリは削除しない。
func (s *Service) ResolveReport(ctx context.Context, feedID string, action model.ReportAction) error {
	if action != model.ReportActionDelete && action != model.ReportActionIgnore {
		return model.NewInvalidReportActionError(string(action))
	}
	if err := model.ValidateID("フィードID", feedID); err != nil {
		return err
	}

	switch action {
	case model.ReportActionDelete:
		err := s.feeds.DeleteByID(ctx, feedID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewFeedNotFoundError(feedID)
		}
		if err != nil {
			return fmt.Errorf("フィードの削除に失敗しました: %w", err)
		}
	case model.ReportActionIgnore:
		feed, err := s.feeds.ClearReport(ctx, feedID, s.now())
		if err != nil {
			return fmt.Errorf("通報の解除に失敗しました: %w", err)
		}
		if feed == nil {
			return model.NewFeedNotFoundError(feedID)
		}
	}

	s.metrics.RecordReport(string(action))
	slog.Info("通報に対応しました",
		slog.String("feed_id", feedID),
		slog.String("action", string(action)),
	)
	return nil
}
