package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateID(t *testing.T) {
	if err := ValidateID("ユーザーID", "6f1c1d7e-2b8f-4a43-9c3e-1d2f3a4b5c6d"); err != nil {
		t.Errorf("valid uuid: unexpected error %v", err)
	}
	err := ValidateID("ユーザーID", "not-a-uuid")
	if !HasCode(err, ErrCodeInvalidID) || !HasCategory(err, CategoryValidation) {
		t.Errorf("invalid uuid: got %v, want INVALID_ID validation error", err)
	}
}

// ラップされたAPIErrorもカテゴリ判定できることを検証する。
func TestHasCategory_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewFeedNotFoundError("f1"))
	if !HasCategory(err, CategoryNotFound) {
		t.Error("HasCategory(wrapped) = false, want true")
	}
	if HasCategory(errors.New("plain"), CategoryNotFound) {
		t.Error("HasCategory(plain error) = true, want false")
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%q.Valid() = false", r)
		}
	}
	if Role("root").Valid() {
		t.Error(`Role("root").Valid() = true`)
	}
}

func TestSavedFeed_Available(t *testing.T) {
	if (SavedFeed{PostID: "p1"}).Available() {
		t.Error("Feed=nil のエントリがAvailable")
	}
	if !(SavedFeed{PostID: "p1", Feed: &Feed{ID: "f1"}}).Available() {
		t.Error("Feedありのエントリが利用不可")
	}
}

func TestProfileUpdate_Empty(t *testing.T) {
	if !(ProfileUpdate{}).Empty() {
		t.Error("zero value should be empty")
	}
	name := "x"
	if (ProfileUpdate{FullName: &name}).Empty() {
		t.Error("update with FullName should not be empty")
	}
}
