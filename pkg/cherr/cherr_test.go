package cherr

import (
	"errors"
	"testing"
)

func TestNewFormatsMessage(t *testing.T) {
	err := New(IngestMalformed, "bad node id %d", 7)
	want := "IngestMalformed: bad node id 7"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IngestMalformed, cause, "write block")
	if !errors.Is(err, cause) {
		t.Error("Wrap must preserve the cause for errors.Is/As")
	}
}

func TestAssertPanicsOnFalse(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Assert(false, ...) should panic")
		}
		cerr, ok := r.(*Error)
		if !ok || cerr.Kind != InvariantViolation {
			t.Errorf("panic value = %v, want an InvariantViolation *Error", r)
		}
	}()
	Assert(false, "should never happen")
}

func TestAssertDoesNotPanicOnTrue(t *testing.T) {
	Assert(true, "fine")
}

func TestIsFatal(t *testing.T) {
	for _, k := range []Kind{IngestMalformed, FormatUnsupported, InvariantViolation} {
		if !k.IsFatal() {
			t.Errorf("%s should be fatal", k)
		}
	}
	if CoreEmpty.IsFatal() {
		t.Error("CoreEmpty should not be fatal")
	}
}
