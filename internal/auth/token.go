package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/feedcredit/internal/model"
)

// TokenIssuerName はアクセストークンのissクレーム。
const TokenIssuerName = "feedcredit"

// Identity はアクセストークンから復元した認証主体。
type Identity struct {
	UserID string
	Role   model.Role
	Email  string
}

// IsAdmin は管理者かどうかを返す。
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// accessClaims はアクセストークンのクレーム。subにユーザーIDを入れる。
type accessClaims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
}

// TokenManager はHS256署名のアクセストークンを発行・検証する。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret []byte, ttl time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenManager{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue はユーザーのアクセストークンと有効期限を返す。
func (m *TokenManager) Issue(user *model.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(m.ttl)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuerName,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role:  string(user.Role),
		Email: user.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はアクセストークンを検証してIdentityを返す。
// 署名・期限・発行者・ロールのいずれかが不正な場合はUNAUTHORIZEDを返す。
func (m *TokenManager) Verify(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	role := model.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return nil, model.NewUnauthorizedError()
	}
	return &Identity{UserID: claims.Subject, Role: role, Email: claims.Email}, nil
}
