package repository

import (
	"errors"

	"github.com/lib/pq"
)

// リポジトリが返す番兵エラー。
// 見つからない場合のFindByX系はnilを返すため、ErrNotFoundは更新・削除系でのみ使用する。
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicate           = errors.New("duplicate record")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrCreditsOutOfRange   = errors.New("credits out of range")
)

// PostgreSQLのSQLSTATE
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqNumericOutOfRange   = "22003"
)

func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqErrorCode(err) == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqErrorCode(err) == pqForeignKeyViolation
}

func isNumericOutOfRange(err error) bool {
	return pqErrorCode(err) == pqNumericOutOfRange
}
