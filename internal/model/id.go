package model

import "github.com/google/uuid"

// ValidateID はidがUUID形式であることを検証する。
// kindはエラーメッセージに含める対象名（例: "ユーザーID"）。
func ValidateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return NewInvalidIDError(kind, id)
	}
	return nil
}
