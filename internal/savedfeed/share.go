package savedfeed

import (
	"net/url"
	"strings"

	"github.com/hitoshi/feedcredit/internal/model"
)

const (
	twitterIntentURL = "https://twitter.com/intent/tweet"
	linkedInShareURL = "https://www.linkedin.com/sharing/share-offsite/"
)

// ShareLinks はSNS共有用のURL。
type ShareLinks struct {
	FeedID   string
	Twitter  string
	LinkedIn string
}

// BuildShareLinks はフィードのタイトルとURLから共有リンクを生成する。
func BuildShareLinks(feed *model.Feed) ShareLinks {
	return ShareLinks{
		FeedID:   feed.ID,
		Twitter:  twitterIntentURL + "?text=" + componentEscape(feed.Title) + "&url=" + componentEscape(feed.URL),
		LinkedIn: linkedInShareURL + "?url=" + componentEscape(feed.URL),
	}
}

// componentEscape はクエリ値をエスケープする。空白は"+"ではなく"%20"にする。
func componentEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
