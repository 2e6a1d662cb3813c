package db

import (
	"errors"
	"testing"
)

func TestError_KeepsCauseAndCommand(t *testing.T) {
	err := &Error{Op: OpXAdd, Err: errors.New("NOGROUP")}
	if err.Error() != "XADD: NOGROUP" {
		t.Errorf("message = %q", err.Error())
	}

	wrapped := &Error{Op: OpSearch, Err: ErrIndexNotFound}
	if !errors.Is(wrapped, ErrIndexNotFound) {
		t.Error("index miss should stay matchable through Error")
	}
	var dbErr *Error
	if !errors.As(error(wrapped), &dbErr) || dbErr.Op != OpSearch {
		t.Errorf("errors.As = %+v", dbErr)
	}
}
