package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
)

// recent searchのmax_resultsは10〜100
const (
	twitterMinResults = 10
	twitterMaxResults = 100
)

// tweetSearchResponse はTwitter API v2 recent searchのレスポンスのうち使用する部分。
type tweetSearchResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		AuthorID  string `json:"author_id"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// Twitter は設定されたクエリでTwitter API v2のrecent searchを呼び出す。
// ベアラートークンが未設定の場合は SOURCE_NOT_CONFIGURED を返す。
func (s *Service) Twitter(ctx context.Context) ([]Post, error) {
	if s.cfg.TwitterBearerToken == "" {
		return nil, model.NewSourceNotConfiguredError(SourceTwitter)
	}

	return s.fetch(SourceTwitter, func() ([]Post, error) {
		maxResults := min(max(s.cfg.Limit, twitterMinResults), twitterMaxResults)
		q := url.Values{}
		q.Set("query", s.cfg.TwitterQuery)
		q.Set("max_results", strconv.Itoa(maxResults))
		q.Set("tweet.fields", "created_at,author_id")
		q.Set("expansions", "author_id")
		q.Set("user.fields", "username")
		searchURL := strings.TrimRight(s.cfg.TwitterBaseURL, "/") + "/2/tweets/search/recent?" + q.Encode()

		header := http.Header{}
		header.Set("Authorization", "Bearer "+s.cfg.TwitterBearerToken)
		header.Set("Accept", "application/json")

		body, err := s.get(ctx, SourceTwitter, searchURL, header)
		if err != nil {
			return nil, err
		}

		var resp tweetSearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
		return s.convertTweets(resp), nil
	})
}

func (s *Service) convertTweets(resp tweetSearchResponse) []Post {
	usernames := make(map[string]string, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		usernames[u.ID] = u.Username
	}

	posts := make([]Post, 0, len(resp.Data))
	for _, tw := range resp.Data {
		title := s.sanitizer.PlainText(tw.Text)
		if tw.ID == "" || title == "" {
			continue
		}
		post := Post{
			PostID: SourceTwitter + "_" + tw.ID,
			Source: SourceTwitter,
			Title:  title,
			URL:    "https://twitter.com/i/web/status/" + url.PathEscape(tw.ID),
			Author: usernames[tw.AuthorID],
		}
		if t, err := time.Parse(time.RFC3339, tw.CreatedAt); err == nil {
			created := t.UTC()
			post.PublishedAt = &created
		}
		posts = append(posts, post)
		if len(posts) >= s.cfg.Limit {
			break
		}
	}
	return posts
}
