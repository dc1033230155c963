// Package auth はパスワード認証、アクセストークン、プロフィール更新を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
)

// LoginBonusApplier はログイン時のボーナス付与インターフェース。
type LoginBonusApplier interface {
	ApplyDailyLoginBonus(ctx context.Context, userID string, now time.Time) (*model.User, error)
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// ProfileInput はプロフィール更新の入力。nilのフィールドは変更しない。
type ProfileInput struct {
	FullName *string
	Username *string
	Email    *string
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	bonus  LoginBonusApplier
	hasher *PasswordHasher
	tokens *TokenManager
	now    func() time.Time
	newID  func() string
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	bonus LoginBonusApplier,
	hasher *PasswordHasher,
	tokens *TokenManager,
) *Service {
	return &Service{
		users:  users,
		bonus:  bonus,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.NewInvalidEmailError(email)
	}
	return nil
}

// Register はユーザーを登録する。ロールは常にuser。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	username := normalizeUsername(in.Username)
	email := normalizeEmail(in.Email)

	var missing []string
	if fullName == "" {
		missing = append(missing, "fullName")
	}
	if username == "" {
		missing = append(missing, "username")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           s.newID(),
		FullName:     fullName,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		Credits:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUserAlreadyExistsError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login はメールアドレスとパスワードで認証し、当日初回ならログインボーナスを付与して
// アクセストークンを発行する。ユーザー不在とパスワード不一致は区別しない。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	now := s.now()
	user, err = s.bonus.ApplyDailyLoginBonus(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user, now)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.Int("credits", user.Credits),
	)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken はアクセストークンを検証してIdentityを返す。
func (s *Service) VerifyToken(token string) (*Identity, error) {
	return s.tokens.Verify(token)
}

// CurrentUser は認証済みユーザーを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile はプロフィールを更新する。少なくとも1項目の指定が必要。
// 登録時と同じ正規化と一意性のルールを適用する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	var update model.ProfileUpdate
	var missing []string

	if in.FullName != nil {
		v := strings.TrimSpace(*in.FullName)
		if v == "" {
			missing = append(missing, "fullName")
		}
		update.FullName = &v
	}
	if in.Username != nil {
		v := normalizeUsername(*in.Username)
		if v == "" {
			missing = append(missing, "username")
		}
		update.Username = &v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		if v == "" {
			missing = append(missing, "email")
		}
		update.Email = &v
	}
	if update.Empty() {
		return nil, model.NewMissingFieldsError("fullName", "username", "email")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}
	if update.Email != nil {
		if err := validateEmail(*update.Email); err != nil {
			return nil, err
		}
	}

	user, err := s.users.UpdateProfile(ctx, userID, update, s.now())
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, model.NewUserAlreadyExistsError()
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
