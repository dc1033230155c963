package posts

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// Reddit は設定されたsubredditの新着投稿をAtomフィードから取得する。
// 投稿のURLは本文中の「[link]」アンカーが指す外部リンクで、
// 見つからない場合（セルフ投稿）はスレッドのパーマリンクを使う。
func (s *Service) Reddit(ctx context.Context) ([]Post, error) {
	return s.fetch(SourceReddit, func() ([]Post, error) {
		feedURL := fmt.Sprintf("%s/r/%s/new/.rss?limit=%d",
			strings.TrimRight(s.cfg.RedditBaseURL, "/"),
			url.PathEscape(s.cfg.Subreddit),
			s.cfg.Limit,
		)
		body, err := s.get(ctx, SourceReddit, feedURL, nil)
		if err != nil {
			return nil, err
		}

		parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("フィードのパースに失敗しました: %w", err)
		}
		return s.convertRedditItems(parsed.Items), nil
	})
}

func (s *Service) convertRedditItems(items []*gofeed.Item) []Post {
	posts := make([]Post, 0, len(items))
	for _, item := range items {
		if item == nil || item.GUID == "" {
			continue
		}
		link := extractRedditLink(item.Content)
		if link == "" {
			link = item.Link
		}
		title := s.sanitizer.PlainText(item.Title)
		if link == "" || title == "" {
			continue
		}

		post := Post{
			PostID: SourceReddit + "_" + item.GUID,
			Source: SourceReddit,
			Title:  title,
			URL:    link,
		}
		if item.Author != nil {
			post.Author = strings.TrimPrefix(item.Author.Name, "/u/")
		}
		if t := item.PublishedParsed; t != nil {
			published := t.UTC()
			post.PublishedAt = &published
		} else if t := item.UpdatedParsed; t != nil {
			updated := t.UTC()
			post.PublishedAt = &updated
		}
		posts = append(posts, post)
		if len(posts) >= s.cfg.Limit {
			break
		}
	}
	return posts
}

// extractRedditLink はエントリ本文のHTMLから「[link]」アンカーのhrefを返す。
func extractRedditLink(content string) string {
	if content == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(content))
	var href string
	inAnchor := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""

		case html.StartTagToken:
			tn, hasAttr := tokenizer.TagName()
			if string(tn) != "a" {
				continue
			}
			inAnchor = true
			href = ""
			for hasAttr {
				key, val, more := tokenizer.TagAttr()
				if strings.EqualFold(string(key), "href") {
					href = string(val)
				}
				hasAttr = more
			}

		case html.TextToken:
			if inAnchor && strings.TrimSpace(string(tokenizer.Text())) == "[link]" {
				if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
					return href
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "a" {
				inAnchor = false
			}
		}
	}
}
