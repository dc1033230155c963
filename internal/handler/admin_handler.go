package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedcredit/internal/middleware"
	"github.com/hitoshi/feedcredit/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	DeleteUser(ctx context.Context, actorID, userID string) error
	SetCredits(ctx context.Context, userID string, value float64) (*model.User, error)
	AdjustCredits(ctx context.Context, userID string, delta int) (*model.User, error)
	GetCredits(ctx context.Context, userID string) (int, error)
}

// AdminHandler はユーザー管理とクレジット操作のHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type usersResponse struct {
	Users []userResponse `json:"users"`
}

type creditsResponse struct {
	Credits int `json:"credits"`
}

// setCreditsRequest はクレジット上書きのボディ。
// 小数や負数はサービス層で検証するため、float64で受け取る。
type setCreditsRequest struct {
	Credits *float64 `json:"credits"`
}

type adjustCreditsRequest struct {
	Delta *int `json:"delta"`
}

// ListUsers は全ユーザーを返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	results := make([]userResponse, len(users))
	for i, u := range users {
		results[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: results})
}

// SetCredits はユーザーのクレジットを上書きする。
// PUT /api/admin/user/credits/{userId}
func (h *AdminHandler) SetCredits(w http.ResponseWriter, r *http.Request) {
	var req setCreditsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Credits == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("credits"))
		return
	}

	user, err := h.service.SetCredits(r.Context(), chi.URLParam(r, "userId"), *req.Credits)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// AdjustCredits はユーザーのクレジットにdeltaを加減算する。残高が負になる場合は拒否する。
// PATCH /api/admin/user/credits/{userId}
func (h *AdminHandler) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req adjustCreditsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Delta == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("delta"))
		return
	}

	user, err := h.service.AdjustCredits(r.Context(), chi.URLParam(r, "userId"), *req.Delta)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteUser はユーザーを削除する。
// DELETE /api/admin/user/{userId}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorID, chi.URLParam(r, "userId")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyCredits は認証済みユーザー自身のクレジット残高を返す。
// GET /api/admin/credits
func (h *AdminHandler) MyCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	credits, err := h.service.GetCredits(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creditsResponse{Credits: credits})
}
