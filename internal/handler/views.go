package handler

import (
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string     `json:"id"`
	FullName  string     `json:"fullName"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Credits   int        `json:"credits"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Credits:   u.Credits,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

// feedResponse はフィード情報のAPIレスポンス。
type feedResponse struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	Source       string    `json:"source"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Reported     bool      `json:"reported"`
	ReportReason string    `json:"reportReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toFeedResponse(f *model.Feed) *feedResponse {
	if f == nil {
		return nil
	}
	return &feedResponse{
		ID:           f.ID,
		PostID:       f.PostID,
		Source:       f.Source,
		Title:        f.Title,
		URL:          f.URL,
		Reported:     f.Reported,
		ReportReason: f.ReportReason,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func toFeedResponses(feeds []*model.Feed) []*feedResponse {
	results := make([]*feedResponse, len(feeds))
	for i, f := range feeds {
		results[i] = toFeedResponse(f)
	}
	return results
}

// savedFeedResponse は保存エントリのAPIレスポンス。
// 参照先フィードが削除されている場合はavailable=false、feed=nullになる。
type savedFeedResponse struct {
	PostID    string        `json:"postId"`
	SavedAt   time.Time     `json:"savedAt"`
	Available bool          `json:"available"`
	Feed      *feedResponse `json:"feed"`
}

func toSavedFeedResponses(saved []model.SavedFeed) []savedFeedResponse {
	results := make([]savedFeedResponse, len(saved))
	for i, s := range saved {
		results[i] = savedFeedResponse{
			PostID:    s.PostID,
			SavedAt:   s.SavedAt,
			Available: s.Available(),
			Feed:      toFeedResponse(s.Feed),
		}
	}
	return results
}
