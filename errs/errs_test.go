package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestIsByKind(t *testing.T) {
	err := New(KindRange, "buffer.At", "index %d out of range [0,%d)", 12, 10)
	if !errors.Is(err, ErrRange) {
		t.Errorf("expected range error to match ErrRange")
	}
	if errors.Is(err, ErrStructural) {
		t.Errorf("range error matched ErrStructural")
	}
	if errors.Is(err, ErrCoordinateOutOfRange) {
		t.Errorf("uncoded range error matched coded sentinel")
	}
}

func TestIsByCode(t *testing.T) {
	err := Coded(ErrDuplicateChunk, "volume.Insert", "chunk already present")
	wrapped := fmt.Errorf("insert: %w", err)

	if !errors.Is(wrapped, ErrDuplicateChunk) {
		t.Errorf("expected wrapped error to match ErrDuplicateChunk")
	}
	if !errors.Is(wrapped, ErrStructural) {
		t.Errorf("expected wrapped error to match ErrStructural")
	}
	if errors.Is(wrapped, ErrNotRectangular) {
		t.Errorf("duplicate chunk matched ErrNotRectangular")
	}
}

func TestIOCarriesFormat(t *testing.T) {
	err := IO("format.Load", "gz", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected IO kind")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected cause to be reachable")
	}
	if got := FormatOf(fmt.Errorf("outer: %w", err)); got != "gz" {
		t.Errorf("expected format gz, got %q", got)
	}
	if KindOf(err) != KindIO {
		t.Errorf("expected KindIO, got %q", KindOf(err))
	}
}

func TestErrorString(t *testing.T) {
	err := Wrap(KindResource, "buffer.Map", io.EOF, "mapping %s", "x.raw")
	want := "buffer.Map: mapping x.raw: EOF"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if ErrNotABranch.Error() != "structural error (NOT_A_BRANCH)" {
		t.Errorf("unexpected sentinel text %q", ErrNotABranch.Error())
	}
}
