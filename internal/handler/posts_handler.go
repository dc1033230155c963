package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/feedcredit/internal/posts"
)

// PostsServiceInterface は外部投稿ハンドラーが必要とするサービスインターフェース。
type PostsServiceInterface interface {
	Reddit(ctx context.Context) ([]posts.Post, error)
	Twitter(ctx context.Context) ([]posts.Post, error)
}

// PostsHandler は外部投稿取得のHTTPハンドラー。
type PostsHandler struct {
	service PostsServiceInterface
}

// NewPostsHandler はPostsHandlerを生成する。
func NewPostsHandler(service PostsServiceInterface) *PostsHandler {
	return &PostsHandler{service: service}
}

type postsResponse struct {
	Posts []posts.Post `json:"posts"`
}

// Reddit はRedditの新着投稿を返す。
// GET /api/posts/reddit
func (h *PostsHandler) Reddit(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Reddit)
}

// Twitter はTwitterの検索結果を返す。
// GET /api/posts/twitter
func (h *PostsHandler) Twitter(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.Twitter)
}

func (h *PostsHandler) serve(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]posts.Post, error)) {
	list, err := fetch(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []posts.Post{}
	}
	writeJSON(w, http.StatusOK, postsResponse{Posts: list})
}
