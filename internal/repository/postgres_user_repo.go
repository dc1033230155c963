package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/feedcredit/internal/model"
)

const userColumns = `id, full_name, username, email, password_hash, role, credits, last_login, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID, &user.FullName, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Credits, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return user, nil
}

// queryUser は1行を返すクエリを実行し、0行の場合はnilを返す。
func (r *PostgresUserRepo) queryUser(ctx context.Context, op, query string, args ...any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if isNumericOutOfRange(err) {
		return nil, fmt.Errorf("failed to %s: %w", op, ErrCreditsOutOfRange)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.queryUser(ctx, "find user by ID",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.queryUser(ctx, "find user by email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, username, email, password_hash, role, credits, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.FullName, user.Username, user.Email, user.PasswordHash,
		user.Role, user.Credits, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// List は全ユーザーを作成日時の昇順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdateProfile はnilでないフィールドのみ更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate, now time.Time) (*model.User, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, now}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("full_name", update.FullName)
	add("username", update.Username)
	add("email", update.Email)

	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+userColumns,
		args...,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}
	return user, nil
}

// SetCredits はクレジットを上書きする。見つからない場合はnilを返す。
func (r *PostgresUserRepo) SetCredits(ctx context.Context, id string, credits int, now time.Time) (*model.User, error) {
	return r.queryUser(ctx, "set credits",
		`UPDATE users SET credits = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		id, credits, now)
}

// AddCredits はクレジットにdeltaを加算する。
// 結果が[0, MaxCredits]を外れる場合は0行更新となるため、再取得した残高で
// ErrInsufficientCreditsとErrCreditsOutOfRangeを区別する。
// 加算はbigintで行い、INTEGERのオーバーフローを起こさない。
func (r *PostgresUserRepo) AddCredits(ctx context.Context, id string, delta int, now time.Time) (*model.User, error) {
	user, err := r.queryUser(ctx, "add credits",
		`UPDATE users SET credits = (credits::bigint + $2::bigint)::integer, updated_at = $3
		 WHERE id = $1 AND credits::bigint + $2::bigint BETWEEN 0 AND $4
		 RETURNING `+userColumns,
		id, int64(delta), now, int64(model.MaxCredits))
	if err != nil || user != nil {
		return user, err
	}

	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if int64(existing.Credits)+int64(delta) < 0 {
		return nil, ErrInsufficientCredits
	}
	return nil, ErrCreditsOutOfRange
}

// ApplyLoginBonus はlast_loginが当日範囲外の場合のみボーナスを加算する。
// 判定と加算を1文で行うため、同時のログインで二重加算されない。
// 残高はMaxCreditsで頭打ちにし、上限付近でもログイン自体は失敗させない。
func (r *PostgresUserRepo) ApplyLoginBonus(ctx context.Context, id string, amount int, now, dayStart, dayEnd time.Time) (*model.User, bool, error) {
	user, err := r.queryUser(ctx, "apply login bonus",
		`UPDATE users SET credits = LEAST(credits::bigint + $2::bigint, $6)::integer, last_login = $3, updated_at = $3
		 WHERE id = $1 AND (last_login IS NULL OR last_login < $4 OR last_login >= $5)
		 RETURNING `+userColumns,
		id, int64(amount), now, dayStart, dayEnd, int64(model.MaxCredits))
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, true, nil
	}

	user, err = r.FindByID(ctx, id)
	return user, false, err
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するsaved_feedsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
