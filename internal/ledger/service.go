// Package ledger はユーザーごとのクレジット残高とログインボーナスを管理する。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hitoshi/feedcredit/internal/metrics"
	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
)

// DailyLoginBonus はカレンダー日ごとの初回ログインで加算されるクレジット。
const DailyLoginBonus = 10

// Service はクレジット残高の操作を提供する。
// 残高の変更はすべてリポジトリの単一UPDATEで行い、読み取り後の書き戻しはしない。
type Service struct {
	users    repository.UserRepository
	location *time.Location
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewService はServiceを生成する。
// locationはログインボーナスの日付判定に使うタイムゾーンで、nilの場合はUTC。
func NewService(users repository.UserRepository, location *time.Location, recorder metrics.Recorder) *Service {
	if location == nil {
		location = time.UTC
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		users:    users,
		location: location,
		metrics:  recorder,
		now:      time.Now,
	}
}

// DayBounds はnowが属するカレンダー日の[開始, 翌日開始)をサービスのタイムゾーンで返す。
func (s *Service) DayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

// ApplyDailyLoginBonus はlast_loginが未設定またはnowと異なる日付の場合に
// DailyLoginBonusを加算し、last_loginをnowに更新する。同日2回目以降は何もしない。
func (s *Service) ApplyDailyLoginBonus(ctx context.Context, userID string, now time.Time) (*model.User, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return nil, err
	}

	dayStart, dayEnd := s.DayBounds(now)
	user, applied, err := s.users.ApplyLoginBonus(ctx, userID, DailyLoginBonus, now, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("ログインボーナスの適用に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if applied {
		s.metrics.RecordCreditsAwarded(metrics.ReasonLoginBonus, DailyLoginBonus)
		slog.Info("ログインボーナスを付与しました",
			slog.String("user_id", userID),
			slog.Int("credits", user.Credits),
		)
	}
	return user, nil
}

// SetCredits は管理者操作としてクレジットを上書きする。
// valueは0以上の整数でなければならない（JSON数値をそのまま受け取るためfloat64）。
func (s *Service) SetCredits(ctx context.Context, userID string, value float64) (*model.User, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return nil, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value != math.Trunc(value) || value > model.MaxCredits {
		return nil, model.NewInvalidCreditsError()
	}

	user, err := s.users.SetCredits(ctx, userID, int(value), s.now())
	if err != nil {
		return nil, fmt.Errorf("クレジットの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("クレジットを上書きしました",
		slog.String("user_id", userID),
		slog.Int("credits", user.Credits),
	)
	return user, nil
}

// AdjustCredits はクレジットにdeltaを加算する。
// 残高が負になる変更とmodel.MaxCreditsを超える変更は拒否し、残高は変更しない。
func (s *Service) AdjustCredits(ctx context.Context, userID string, delta int) (*model.User, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return nil, err
	}
	if delta > model.MaxCredits || delta < -model.MaxCredits {
		return nil, model.NewCreditsOutOfRangeError(s.balanceOf(ctx, userID), delta)
	}

	user, err := s.users.AddCredits(ctx, userID, delta, s.now())
	if errors.Is(err, repository.ErrInsufficientCredits) {
		return nil, model.NewInsufficientCreditsError(s.balanceOf(ctx, userID), delta)
	}
	if errors.Is(err, repository.ErrCreditsOutOfRange) {
		return nil, model.NewCreditsOutOfRangeError(s.balanceOf(ctx, userID), delta)
	}
	if err != nil {
		return nil, fmt.Errorf("クレジットの加算に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	s.metrics.RecordCreditsAwarded(metrics.ReasonAdjust, delta)
	return user, nil
}

// balanceOf はエラーメッセージ用の現在残高を返す。取得できない場合は0。
func (s *Service) balanceOf(ctx context.Context, userID string) int {
	if current, err := s.users.FindByID(ctx, userID); err == nil && current != nil {
		return current.Credits
	}
	return 0
}

// GetCredits は現在のクレジット残高を返す。
func (s *Service) GetCredits(ctx context.Context, userID string) (int, error) {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return 0, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return 0, model.NewUserNotFoundError()
	}
	return user.Credits, nil
}
