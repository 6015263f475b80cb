package apperr

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestPathError_IsSentinel(t *testing.T) {
	err := IO("market/a.json", fs.ErrNotExist)
	if !errors.Is(err, ErrIO) {
		t.Error("expected ErrIO")
	}
	if errors.Is(err, ErrParse) {
		t.Error("IO error must not match ErrParse")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("cause should stay reachable")
	}
	if !strings.Contains(err.Error(), "market/a.json") {
		t.Errorf("message lacks path: %v", err)
	}
}

func TestFieldError_IsValidation(t *testing.T) {
	err := error(&FieldError{Field: "QuantityPercent", Input: "abc", Err: errors.New("bad")})
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ErrValidation")
	}
}
