package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/feedcredit/internal/model"
)

// --- モック定義 ---

// mockModerationService はModerationServiceInterfaceのモック実装。
type mockModerationService struct {
	reportFeedFn        func(ctx context.Context, feedID, reason string) (*model.Feed, error)
	listReportedFeedsFn func(ctx context.Context) ([]*model.Feed, error)
	resolveReportFn     func(ctx context.Context, feedID string, action model.ReportAction) error
}

func (m *mockModerationService) ReportFeed(ctx context.Context, feedID, reason string) (*model.Feed, error) {
	if m.reportFeedFn != nil {
		return m.reportFeedFn(ctx, feedID, reason)
	}
	return nil, errors.New("not implemented")
}

func (m *mockModerationService) ListReportedFeeds(ctx context.Context) ([]*model.Feed, error) {
	if m.listReportedFeedsFn != nil {
		return m.listReportedFeedsFn(ctx)
	}
	return []*model.Feed{}, nil
}

func (m *mockModerationService) ResolveReport(ctx context.Context, feedID string, action model.ReportAction) error {
	if m.resolveReportFn != nil {
		return m.resolveReportFn(ctx, feedID, action)
	}
	return nil
}

// --- POST /api/report/{feedId} テスト ---

func TestReportHandler_Report(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{"with reason", `{"reason":"spam"}`, "spam"},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := testFeed()
			svc := &mockModerationService{
				reportFeedFn: func(ctx context.Context, feedID, reason string) (*model.Feed, error) {
					if feedID != feed.ID {
						t.Errorf("feedID = %q", feedID)
					}
					if reason != tt.wantReason {
						t.Errorf("reason = %q, want %q", reason, tt.wantReason)
					}
					feed.Reported = true
					feed.ReportReason = model.DefaultReportReason
					return feed, nil
				},
			}
			h := NewReportHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/report/"+feed.ID, strings.NewReader(tt.body))
			req = withChiURLParam(withUserID(req, "user-123"), "feedId", feed.ID)
			w := httptest.NewRecorder()

			h.Report(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if got := decodeBody[feedResponse](t, w); !got.Reported {
				t.Errorf("reported = false")
			}
		})
	}
}

func TestReportHandler_Report_NotFound(t *testing.T) {
	svc := &mockModerationService{
		reportFeedFn: func(ctx context.Context, feedID, reason string) (*model.Feed, error) {
			return nil, model.NewFeedNotFoundError(feedID)
		},
	}
	h := NewReportHandler(svc)

	req := withChiURLParam(httptest.NewRequest(http.MethodPost, "/api/report/x", nil), "feedId", "x")
	w := httptest.NewRecorder()

	h.Report(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- GET /api/report/all テスト ---

func TestReportHandler_ListReported(t *testing.T) {
	svc := &mockModerationService{
		listReportedFeedsFn: func(ctx context.Context) ([]*model.Feed, error) {
			f := testFeed()
			f.Reported = true
			return []*model.Feed{f}, nil
		},
	}
	h := NewReportHandler(svc)

	w := httptest.NewRecorder()
	h.ListReported(w, httptest.NewRequest(http.MethodGet, "/api/report/all", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	got := decodeBody[reportedFeedsResponse](t, w)
	if len(got.Feeds) != 1 || got.Feeds[0].PostID != "reddit_abc" {
		t.Errorf("feeds = %+v", got.Feeds)
	}
}

// --- DELETE /api/report/delete/{feedId}, PUT /api/report/ignore/{feedId} テスト ---

func TestReportHandler_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		call       func(h *ReportHandler) http.HandlerFunc
		wantAction model.ReportAction
	}{
		{"delete", func(h *ReportHandler) http.HandlerFunc { return h.Delete }, model.ReportActionDelete},
		{"ignore", func(h *ReportHandler) http.HandlerFunc { return h.Ignore }, model.ReportActionIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAction model.ReportAction
			svc := &mockModerationService{
				resolveReportFn: func(ctx context.Context, feedID string, action model.ReportAction) error {
					gotAction = action
					return nil
				},
			}
			h := NewReportHandler(svc)

			req := withChiURLParam(httptest.NewRequest(http.MethodPut, "/", nil), "feedId", testFeed().ID)
			w := httptest.NewRecorder()

			tt.call(h)(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
			}
			if gotAction != tt.wantAction {
				t.Errorf("action = %q, want %q", gotAction, tt.wantAction)
			}
		})
	}
}
