// Package admin は管理者向けのユーザー管理機能を提供する。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
)

// Service は管理者向けユーザー管理のサービス層。
type Service struct {
	users repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// ListUsers は全ユーザーを作成日時の昇順で返す。該当なしの場合は空スライス。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []*model.User{}
	}
	return users, nil
}

// DeleteUser はユーザーを削除する。
// 保存リストはCASCADE削除され、フィードは共有データとして残す。
// 自分自身は削除できない。
func (s *Service) DeleteUser(ctx context.Context, actorID, userID string) error {
	if err := model.ValidateID("ユーザーID", userID); err != nil {
		return err
	}
	if actorID == userID {
		return model.NewCannotDeleteSelfError()
	}

	if err := s.users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザーを削除しました",
		slog.String("user_id", userID),
		slog.String("actor_id", actorID),
	)
	return nil
}
