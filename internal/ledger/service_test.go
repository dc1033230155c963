package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
	"github.com/hitoshi/feedcredit/internal/repository"
)

const (
	userA = "6f1c1d7e-2b8f-4a43-9c3e-1d2f3a4b5c6d"
	userB = "0b8e6a52-7c0f-4d7e-9b0a-2f1e3d4c5b6a"
)

// --- フェイク ---

// fakeUserRepo はリポジトリの条件付きUPDATEと同じ意味論を持つインメモリ実装。
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) copyOf(id string) *model.User {
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(id), r.err
}
func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (r *fakeUserRepo) List(ctx context.Context) ([]*model.User, error)    { return nil, nil }
func (r *fakeUserRepo) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, now time.Time) (*model.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) SetCredits(ctx context.Context, id string, credits int, now time.Time) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Credits = credits
	return r.copyOf(id), nil
}
func (r *fakeUserRepo) AddCredits(ctx context.Context, id string, delta int, now time.Time) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if u.Credits+delta < 0 {
		return nil, repository.ErrInsufficientCredits
	}
	if u.Credits+delta > model.MaxCredits {
		return nil, repository.ErrCreditsOutOfRange
	}
	u.Credits += delta
	return r.copyOf(id), nil
}
func (r *fakeUserRepo) ApplyLoginBonus(ctx context.Context, id string, amount int, now, dayStart, dayEnd time.Time) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, false, nil
	}
	if u.LastLogin != nil && !u.LastLogin.Before(dayStart) && u.LastLogin.Before(dayEnd) {
		return r.copyOf(id), false, nil
	}
	u.Credits = min(u.Credits+amount, model.MaxCredits)
	t := now
	u.LastLogin = &t
	return r.copyOf(id), true, nil
}
func (r *fakeUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

// --- テスト ---

func TestService_ApplyDailyLoginBonus_FirstLogin(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: userA, Credits: 0})
	svc := NewService(repo, nil, nil)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	user, err := svc.ApplyDailyLoginBonus(context.Background(), userA, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Credits != 10 {
		t.Errorf("Credits = %d, want 10", user.Credits)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(now) {
		t.Errorf("LastLogin = %v, want %v", user.LastLogin, now)
	}
}

// 同日2回のログインではボーナスは1回、日付をまたぐと2回になることを検証する。
func TestService_ApplyDailyLoginBonus_OncePerDay(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: userA})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	day1Morning := time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC)
	day1Night := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)

	svc.ApplyDailyLoginBonus(ctx, userA, day1Morning)
	user, _ := svc.ApplyDailyLoginBonus(ctx, userA, day1Night)
	if user.Credits != 10 {
		t.Fatalf("同日2回目 Credits = %d, want 10", user.Credits)
	}
	if !user.LastLogin.Equal(day1Morning) {
		t.Errorf("同日2回目でLastLoginが更新された: %v", user.LastLogin)
	}

	user, _ = svc.ApplyDailyLoginBonus(ctx, userA, day2)
	if user.Credits != 20 {
		t.Errorf("翌日 Credits = %d, want 20", user.Credits)
	}
}

// 日付判定が設定タイムゾーンで行われることを検証する。
// UTCでは同日でも、Asia/Tokyoでは日付が変わる時刻。
func TestService_ApplyDailyLoginBonus_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	repo := newFakeUserRepo(&model.User{ID: userA})
	svc := NewService(repo, tokyo, nil)
	ctx := context.Background()

	// 2024-03-01 14:00 UTC = 2024-03-01 23:00 JST
	svc.ApplyDailyLoginBonus(ctx, userA, time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC))
	// 2024-03-01 16:00 UTC = 2024-03-02 01:00 JST
	user, err := svc.ApplyDailyLoginBonus(ctx, userA, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Credits != 20 {
		t.Errorf("Credits = %d, want 20", user.Credits)
	}
}

func TestService_ApplyDailyLoginBonus_UserNotFound(t *testing.T) {
	svc := NewService(newFakeUserRepo(), nil, nil)

	_, err := svc.ApplyDailyLoginBonus(context.Background(), userB, time.Now())
	if !model.HasCode(err, model.ErrCodeUserNotFound) {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

func TestService_DayBounds(t *testing.T) {
	svc := NewService(nil, nil, nil)
	start, end := svc.DayBounds(time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC))
	if want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

func TestService_SetCredits(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		value    float64
		wantCode string
		want     int
	}{
		{"正常", userA, 42, "", 42},
		{"ゼロ", userA, 0, "", 0},
		{"負の値", userA, -1, model.ErrCodeInvalidCredits, 0},
		{"小数", userA, 1.5, model.ErrCodeInvalidCredits, 0},
		{"上限超過", userA, 1e12, model.ErrCodeInvalidCredits, 0},
		{"不正なID", "abc", 5, model.ErrCodeInvalidID, 0},
		{"存在しないユーザー", userB, 5, model.ErrCodeUserNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo(&model.User{ID: userA, Credits: 7})
			svc := NewService(repo, nil, nil)

			user, err := svc.SetCredits(context.Background(), tt.userID, tt.value)
			if tt.wantCode != "" {
				if !model.HasCode(err, tt.wantCode) {
					t.Fatalf("error = %v, want %s", err, tt.wantCode)
				}
				if got, _ := repo.FindByID(context.Background(), userA); got.Credits != 7 {
					t.Errorf("失敗時に残高が変更された: %d", got.Credits)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Credits != tt.want {
				t.Errorf("Credits = %d, want %d", user.Credits, tt.want)
			}
		})
	}
}

// 残高を負にする加減算が拒否され、残高が変わらないことを検証する。
func TestService_AdjustCredits(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: userA, Credits: 5})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	user, err := svc.AdjustCredits(ctx, userA, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Credits != 0 {
		t.Errorf("Credits = %d, want 0", user.Credits)
	}

	_, err = svc.AdjustCredits(ctx, userA, -1)
	if !model.HasCode(err, model.ErrCodeInsufficientCredits) {
		t.Fatalf("error = %v, want INSUFFICIENT_CREDITS", err)
	}
	if got, _ := svc.GetCredits(ctx, userA); got != 0 {
		t.Errorf("拒否後の残高 = %d, want 0", got)
	}

	if _, err := svc.AdjustCredits(ctx, userB, 1); !model.HasCode(err, model.ErrCodeUserNotFound) {
		t.Errorf("error = %v, want USER_NOT_FOUND", err)
	}
}

func TestService_AdjustCredits_OutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		balance int
		delta   int
	}{
		{"delta above int32", 0, model.MaxCredits + 1},
		{"delta below -int32", model.MaxCredits, -model.MaxCredits - 1},
		{"3e9 delta", 10, 3_000_000_000},
		{"sum exceeds cap", model.MaxCredits - 5, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo(&model.User{ID: userA, Credits: tt.balance})
			svc := NewService(repo, nil, nil)

			_, err := svc.AdjustCredits(context.Background(), userA, tt.delta)
			if !model.HasCode(err, model.ErrCodeCreditsOutOfRange) {
				t.Fatalf("error = %v, want CREDITS_OUT_OF_RANGE", err)
			}
			if !model.HasCategory(err, model.CategoryValidation) {
				t.Errorf("category should be validation: %v", err)
			}
			if got, _ := svc.GetCredits(context.Background(), userA); got != tt.balance {
				t.Errorf("拒否後の残高 = %d, want %d", got, tt.balance)
			}
		})
	}
}

func TestService_AdjustCredits_UpToCap(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: userA, Credits: model.MaxCredits - 5})
	svc := NewService(repo, nil, nil)

	user, err := svc.AdjustCredits(context.Background(), userA, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Credits != model.MaxCredits {
		t.Errorf("Credits = %d, want %d", user.Credits, model.MaxCredits)
	}
}

func TestService_ApplyDailyLoginBonus_AtCapStillSucceeds(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: userA, Credits: model.MaxCredits - 3})
	svc := NewService(repo, nil, nil)

	user, err := svc.ApplyDailyLoginBonus(context.Background(), userA, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Credits != model.MaxCredits {
		t.Errorf("Credits = %d, want %d", user.Credits, model.MaxCredits)
	}
}

// 並行する加算がすべて反映されることを検証する。
func TestService_AdjustCredits_Concurrent(t *testing.T) {
	repo := newFakeUserRepo(&model.User{ID: userA})
	svc := NewService(repo, nil, nil)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.AdjustCredits(context.Background(), userA, 5)
		}()
	}
	wg.Wait()

	if got, _ := svc.GetCredits(context.Background(), userA); got != 250 {
		t.Errorf("Credits = %d, want 250", got)
	}
}

func TestService_GetCredits_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("connection refused")
	svc := NewService(repo, nil, nil)

	_, err := svc.GetCredits(context.Background(), userA)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("リポジトリエラーがAPIErrorになっている: %v", apiErr)
	}
}
