// Package model はドメインモデルを定義する。
package model

import (
	"math"
	"time"
)

// MaxCredits はクレジット残高の上限（creditsカラムがINTEGERのため）。
const MaxCredits = math.MaxInt32

// Role はユーザーの権限種別を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。ユーザー管理と通報対応ができる。
	RoleAdmin Role = "admin"
)

// Valid はRoleが定義済みの2値のいずれかであるかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User はサービス利用ユーザーを表す。
// Creditsは常に0以上（DBのCHECK制約でも保証する）。
type User struct {
	ID           string
	FullName     string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Credits      int
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin は管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ProfileUpdate はプロフィール更新の差分を表す。
// nilフィールドは変更しない。
type ProfileUpdate struct {
	FullName *string
	Username *string
	Email    *string
}

// Empty は更新対象のフィールドが1つもないかを返す。
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Username == nil && p.Email == nil
}
