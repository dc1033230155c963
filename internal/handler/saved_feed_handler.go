package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/savedfeed"
)

// SavedFeedServiceInterface は保存フィードハンドラーが必要とするサービスインターフェース。
type SavedFeedServiceInterface interface {
	SaveFeed(ctx context.Context, userID string, in savedfeed.SaveFeedInput) (*savedfeed.SaveResult, error)
	ListSavedFeeds(ctx context.Context, userID string) ([]model.SavedFeed, error)
	GetSavedFeed(ctx context.Context, userID, postID string) (*model.SavedFeed, error)
	UnsaveFeed(ctx context.Context, userID, postID string) error
	ShareFeed(ctx context.Context, feedID string) (*savedfeed.ShareLinks, error)
}

// SavedFeedHandler はフィードの保存・一覧・共有のHTTPハンドラー。
type SavedFeedHandler struct {
	service SavedFeedServiceInterface
}

// NewSavedFeedHandler はSavedFeedHandlerを生成する。
func NewSavedFeedHandler(service SavedFeedServiceInterface) *SavedFeedHandler {
	return &SavedFeedHandler{service: service}
}

type saveFeedRequest struct {
	PostID string `json:"postId"`
	Source string `json:"source"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

type saveFeedResponse struct {
	Message      string              `json:"message"`
	AlreadySaved bool                `json:"alreadySaved"`
	Credits      int                 `json:"credits"`
	PostID       string              `json:"postId"`
	Feed         *feedResponse       `json:"feed"`
	SavedFeeds   []savedFeedResponse `json:"savedFeeds"`
}

type savedFeedListResponse struct {
	SavedFeeds []savedFeedResponse `json:"savedFeeds"`
}

type shareResponse struct {
	FeedID   string `json:"feedId"`
	Twitter  string `json:"twitter"`
	LinkedIn string `json:"linkedin"`
}

// Save はフィードを保存する。初回保存は201、保存済みの場合は200で変更なし。
// POST /api/feed/save
func (h *SavedFeedHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req saveFeedRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.service.SaveFeed(r.Context(), userID, savedfeed.SaveFeedInput{
		PostID: req.PostID,
		Source: req.Source,
		Title:  req.Title,
		URL:    req.URL,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	message := "フィードを保存しました。"
	if result.AlreadySaved {
		status = http.StatusOK
		message = "このフィードは保存済みです。"
	}
	writeJSON(w, status, saveFeedResponse{
		Message:      message,
		AlreadySaved: result.AlreadySaved,
		Credits:      result.Credits,
		PostID:       result.PostID,
		Feed:         toFeedResponse(result.Feed),
		SavedFeeds:   toSavedFeedResponses(result.SavedFeeds),
	})
}

// List は保存済みフィードの一覧を返す。
// GET /api/feed/saved
func (h *SavedFeedHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	saved, err := h.service.ListSavedFeeds(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, savedFeedListResponse{SavedFeeds: toSavedFeedResponses(saved)})
}

// Get は保存済みフィード1件を返す。
// GET /api/feed/saved/{postId}
func (h *SavedFeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	saved, err := h.service.GetSavedFeed(r.Context(), userID, chi.URLParam(r, "postId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavedFeedResponses([]model.SavedFeed{*saved})[0])
}

// Unsave は保存を解除する。クレジットは減算しない。
// DELETE /api/feed/saved/{postId}
func (h *SavedFeedHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.UnsaveFeed(r.Context(), userID, chi.URLParam(r, "postId")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Share はフィードの共有用URLを返す。
// POST /api/feed/share/{feedId}
func (h *SavedFeedHandler) Share(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ShareFeed(r.Context(), chi.URLParam(r, "feedId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		FeedID:   links.FeedID,
		Twitter:  links.Twitter,
		LinkedIn: links.LinkedIn,
	})
}
