package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedcredit/internal/model"
)

// ModerationServiceInterface は通報ハンドラーが必要とするサービスインターフェース。
type ModerationServiceInterface interface {
	ReportFeed(ctx context.Context, feedID, reason string) (*model.Feed, error)
	ListReportedFeeds(ctx context.Context) ([]*model.Feed, error)
	ResolveReport(ctx context.Context, feedID string, action model.ReportAction) error
}

// ReportHandler は通報と通報対応のHTTPハンドラー。
type ReportHandler struct {
	service ModerationServiceInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(service ModerationServiceInterface) *ReportHandler {
	return &ReportHandler{service: service}
}

type reportRequest struct {
	Reason string `json:"reason"`
}

type reportedFeedsResponse struct {
	Feeds []*feedResponse `json:"feeds"`
}

// Report はフィードを通報する。ボディは省略可能。
// POST /api/report/{feedId}
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	feed, err := h.service.ReportFeed(r.Context(), chi.URLParam(r, "feedId"), req.Reason)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedResponse(feed))
}

// ListReported は通報済みフィードの一覧を返す（管理者のみ）。
// GET /api/report/all
func (h *ReportHandler) ListReported(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.service.ListReportedFeeds(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportedFeedsResponse{Feeds: toFeedResponses(feeds)})
}

// Delete は通報されたフィードを削除する（管理者のみ）。
// DELETE /api/report/delete/{feedId}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, model.ReportActionDelete)
}

// Ignore は通報を取り消す（管理者のみ）。
// PUT /api/report/ignore/{feedId}
func (h *ReportHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, model.ReportActionIgnore)
}

func (h *ReportHandler) resolve(w http.ResponseWriter, r *http.Request, action model.ReportAction) {
	if err := h.service.ResolveReport(r.Context(), chi.URLParam(r, "feedId"), action); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
