package handler

import (
	"context"

	"github.com/hitoshi/feedcredit/internal/admin"
	"github.com/hitoshi/feedcredit/internal/ledger"
	"github.com/hitoshi/feedcredit/internal/model"
)

// AdminServiceAdapter はadmin.Service（ユーザー管理）とledger.Service（クレジット操作）を
// AdminServiceInterfaceにまとめるアダプタ。
type AdminServiceAdapter struct {
	users  *admin.Service
	ledger *ledger.Service
}

// NewAdminServiceAdapter はAdminServiceAdapterを生成する。
func NewAdminServiceAdapter(users *admin.Service, ledger *ledger.Service) *AdminServiceAdapter {
	return &AdminServiceAdapter{users: users, ledger: ledger}
}

// ListUsers は全ユーザーを返す。
func (a *AdminServiceAdapter) ListUsers(ctx context.Context) ([]*model.User, error) {
	return a.users.ListUsers(ctx)
}

// DeleteUser はユーザーを削除する。
func (a *AdminServiceAdapter) DeleteUser(ctx context.Context, actorID, userID string) error {
	return a.users.DeleteUser(ctx, actorID, userID)
}

// SetCredits はクレジットを上書きする。
func (a *AdminServiceAdapter) SetCredits(ctx context.Context, userID string, value float64) (*model.User, error) {
	return a.ledger.SetCredits(ctx, userID, value)
}

// AdjustCredits はクレジットを加減算する。
func (a *AdminServiceAdapter) AdjustCredits(ctx context.Context, userID string, delta int) (*model.User, error) {
	return a.ledger.AdjustCredits(ctx, userID, delta)
}

// GetCredits はクレジット残高を返す。
func (a *AdminServiceAdapter) GetCredits(ctx context.Context, userID string) (int, error) {
	return a.ledger.GetCredits(ctx, userID)
}

var _ AdminServiceInterface = (*AdminServiceAdapter)(nil)
