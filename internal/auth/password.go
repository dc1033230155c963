package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/feedcredit/internal/model"
)

// パスワード要件
const (
	MinPasswordLength = 6
	// bcryptは72バイトを超える入力を扱えない
	MaxPasswordBytes = 72
)

// PasswordHasher はbcryptによるパスワードのハッシュ化と照合を行う。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher はPasswordHasherを生成する。costが範囲外の場合はbcrypt.DefaultCostを使う。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// ValidatePassword はパスワード要件を検証する。
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return model.NewInvalidPasswordError(fmt.Sprintf("%d文字以上必要です", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return model.NewInvalidPasswordError(fmt.Sprintf("%dバイト以下にしてください", MaxPasswordBytes))
	}
	return nil
}

// Hash はパスワードをハッシュ化する。呼び出し前にValidatePasswordで検証すること。
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare はハッシュとパスワードが一致するかを返す。
// 不一致以外のエラー（不正なハッシュ形式など）はerrorで返す。
func (h *PasswordHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare password: %w", err)
}
