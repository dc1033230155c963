package savedfeed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
)

// store はfeeds、saved_feeds、users.creditsを1つのロックで守るインメモリDB。
// リポジトリの一意制約とトランザクションの振る舞いを再現する。
type store struct {
	mu          sync.Mutex
	feeds       map[string]*model.Feed // post_id -> feed
	saved       map[string]map[string]time.Time
	credits     map[string]int
	createCalls int

	// beforeCreate はCreateの直前に呼ばれる。同時作成の再現に使う。
	beforeCreate func(feed *model.Feed)
}

func newStore(userIDs ...string) *store {
	s := &store{
		feeds:   map[string]*model.Feed{},
		saved:   map[string]map[string]time.Time{},
		credits: map[string]int{},
	}
	for _, id := range userIDs {
		s.credits[id] = 0
	}
	return s
}

func (s *store) feedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feeds)
}

func (s *store) balance(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits[userID]
}

// --- FeedRepository ---

type fakeFeedRepo struct{ s *store }

func (r *fakeFeedRepo) FindByID(ctx context.Context, id string) (*model.Feed, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.feeds {
		if f.ID == id {
			c := *f
			return &c, nil
		}
	}
	return nil, nil
}
func (r *fakeFeedRepo) FindByPostID(ctx context.Context, postID string) (*model.Feed, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if f, ok := r.s.feeds[postID]; ok {
		c := *f
		return &c, nil
	}
	return nil, nil
}
func (r *fakeFeedRepo) Create(ctx context.Context, feed *model.Feed) error {
	if r.s.beforeCreate != nil {
		r.s.beforeCreate(feed)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.createCalls++
	if _, ok := r.s.feeds[feed.PostID]; ok {
		return repository.ErrDuplicate
	}
	c := *feed
	r.s.feeds[feed.PostID] = &c
	return nil
}
func (r *fakeFeedRepo) ListReported(ctx context.Context) ([]*model.Feed, error) { return nil, nil }
func (r *fakeFeedRepo) MarkReported(ctx context.Context, id, reason string, now time.Time) (*model.Feed, error) {
	return nil, nil
}
func (r *fakeFeedRepo) ClearReport(ctx context.Context, id string, now time.Time) (*model.Feed, error) {
	return nil, nil
}
func (r *fakeFeedRepo) DeleteByID(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for postID, f := range r.s.feeds {
		if f.ID == id {
			delete(r.s.feeds, postID)
			return nil
		}
	}
	return repository.ErrNotFound
}

// --- SavedFeedRepository ---

type fakeSavedRepo struct{ s *store }

func (r *fakeSavedRepo) SaveWithAward(ctx context.Context, userID, postID string, award int, savedAt time.Time) (bool, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	credits, ok := r.s.credits[userID]
	if !ok {
		return false, 0, repository.ErrNotFound
	}
	entries := r.s.saved[userID]
	if entries == nil {
		entries = map[string]time.Time{}
		r.s.saved[userID] = entries
	}
	if _, exists := entries[postID]; exists {
		return false, credits, nil
	}
	entries[postID] = savedAt
	r.s.credits[userID] = credits + award
	return true, credits + award, nil
}

func (r *fakeSavedRepo) resolve(userID, postID string, savedAt time.Time) model.SavedFeed {
	entry := model.SavedFeed{UserID: userID, PostID: postID, SavedAt: savedAt}
	if f, ok := r.s.feeds[postID]; ok {
		c := *f
		entry.Feed = &c
	}
	return entry
}

func (r *fakeSavedRepo) FindByUserAndPost(ctx context.Context, userID, postID string) (*model.SavedFeed, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	savedAt, ok := r.s.saved[userID][postID]
	if !ok {
		return nil, nil
	}
	entry := r.resolve(userID, postID, savedAt)
	return &entry, nil
}
func (r *fakeSavedRepo) ListByUser(ctx context.Context, userID string) ([]model.SavedFeed, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []model.SavedFeed{}
	for postID, savedAt := range r.s.saved[userID] {
		list = append(list, r.resolve(userID, postID, savedAt))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].SavedAt.Equal(list[j].SavedAt) {
			return list[i].SavedAt.Before(list[j].SavedAt)
		}
		return list[i].PostID < list[j].PostID
	})
	return list, nil
}
func (r *fakeSavedRepo) Delete(ctx context.Context, userID, postID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.saved[userID][postID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.saved[userID], postID)
	return nil
}

// --- UserFinder ---

type fakeUserFinder struct{ s *store }

func (f *fakeUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	credits, ok := f.s.credits[id]
	if !ok {
		return nil, nil
	}
	return &model.User{ID: id, Credits: credits}, nil
}

// --- 補助 ---

type stubValidator struct{ err error }

func (v stubValidator) ValidateLink(string) error { return v.err }
