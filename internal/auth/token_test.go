package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/feedcredit/internal/model"
)

func newTestTokenManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, ttl)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return m
}

func TestNewTokenManager_RejectsShortSecret(t *testing.T) {
	if _, err := NewTokenManager([]byte("short"), time.Hour); err == nil {
		t.Error("expected error for short secret")
	}
	if _, err := NewTokenManager(testSecret, 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	now := time.Now()
	user := &model.User{ID: "u-1", Role: model.RoleAdmin, Email: "admin@example.com"}

	token, expiresAt, err := m.Issue(user, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, now.Add(time.Hour))
	}

	identity, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.UserID != "u-1" || !identity.IsAdmin() || identity.Email != "admin@example.com" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestTokenManager_Verify_Expired(t *testing.T) {
	m := newTestTokenManager(t, time.Minute)
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token, _, err := m.Issue(&model.User{ID: "u-1", Role: model.RoleUser}, issuedAt)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	if _, err := m.Verify(token); !model.HasCode(err, model.ErrCodeUnauthorized) {
		t.Errorf("error = %v, want UNAUTHORIZED", err)
	}
}

func TestTokenManager_Verify_Rejects(t *testing.T) {
	m := newTestTokenManager(t, time.Hour)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims accessClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		return s
	}
	base := func() accessClaims {
		return accessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    TokenIssuerName,
				Subject:   "u-1",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Role: "user",
		}
	}

	otherSecret := []byte("ffffffffffffffffffffffffffffffff")
	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	noExpiry := base()
	noExpiry.ExpiresAt = nil
	badRole := base()
	badRole.Role = "root"
	noSubject := base()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"空", ""},
		{"形式不正", "not.a.jwt"},
		{"別の鍵", sign(jwt.SigningMethodHS256, otherSecret, base())},
		{"alg=none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base())},
		{"HS512", sign(jwt.SigningMethodHS512, testSecret, base())},
		{"発行者違い", sign(jwt.SigningMethodHS256, testSecret, wrongIssuer)},
		{"期限なし", sign(jwt.SigningMethodHS256, testSecret, noExpiry)},
		{"未知のロール", sign(jwt.SigningMethodHS256, testSecret, badRole)},
		{"subなし", sign(jwt.SigningMethodHS256, testSecret, noSubject)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !model.HasCode(err, model.ErrCodeUnauthorized) {
				t.Errorf("error = %v, want UNAUTHORIZED", err)
			}
		})
	}
}
