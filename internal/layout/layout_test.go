package layout

import (
	"bytes"
	"testing"
)

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestLinearAndCoords(t *testing.T) {
	dims := []int{4, 3, 2, 5}
	for idx := 0; idx < Volume(dims); idx++ {
		c := Coords(dims, idx)
		if got := Linear(dims, c); got != idx {
			t.Fatalf("index %d: coords %v map back to %d", idx, c, got)
		}
	}
	if got := Linear(dims, []int{1, 2, 1, 3}); got != 1+2*4+1*12+3*24 {
		t.Errorf("unexpected linear index %d", got)
	}
}

func TestStrides(t *testing.T) {
	got := Strides([]int{4, 3, 2}, 2)
	want := []int{2, 8, 24}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCopyBox2D(t *testing.T) {
	// 4x3 array of bytes 0..11, rows fastest
	src := seq(12)
	got := make([]byte, 4)
	if err := CopyBox(got, []int{2, 2}, []int{0, 0}, src, []int{4, 3}, []int{1, 1}, []int{2, 2}, 1); err != nil {
		t.Fatalf("CopyBox failed: %v", err)
	}
	want := []byte{5, 6, 9, 10}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCopyBoxWideElements(t *testing.T) {
	src := seq(2 * 2 * 2 * 4)
	dst := make([]byte, 4*2*2*4)
	// place a 2x2x2 block of 4-byte elements into columns 2..3 of a 4x2x2 array
	err := CopyBox(dst, []int{4, 2, 2}, []int{2, 0, 0}, src, []int{2, 2, 2}, []int{0, 0, 0}, []int{2, 2, 2}, 4)
	if err != nil {
		t.Fatalf("CopyBox failed: %v", err)
	}
	for s := 0; s < 2; s++ {
		for c := 0; c < 2; c++ {
			for r := 0; r < 2; r++ {
				so := Linear([]int{2, 2, 2}, []int{r, c, s}) * 4
				do := Linear([]int{4, 2, 2}, []int{r + 2, c, s}) * 4
				if !bytes.Equal(dst[do:do+4], src[so:so+4]) {
					t.Fatalf("element (%d,%d,%d) not copied", r, c, s)
				}
			}
		}
	}
	if dst[0] != 0 || dst[4] != 0 {
		t.Errorf("copy must not touch the rest of the destination")
	}
}

func TestCopyBoxBounds(t *testing.T) {
	src := seq(8)
	dst := make([]byte, 8)
	if err := CopyBox(dst, []int{8}, []int{4}, src, []int{8}, []int{0}, []int{5}, 1); err == nil {
		t.Errorf("expected error for box past destination end")
	}
	if err := CopyBox(dst, []int{8}, []int{0}, src, []int{2, 4}, []int{0, 0}, []int{1, 1}, 1); err == nil {
		t.Errorf("expected error for rank mismatch")
	}
}

func TestReverse(t *testing.T) {
	// 3x2 array, reverse rows then columns
	data := seq(6)
	if err := Reverse(data, []int{3, 2}, 0, 1); err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if want := []byte{2, 1, 0, 5, 4, 3}; !bytes.Equal(data, want) {
		t.Errorf("axis 0: expected %v, got %v", want, data)
	}
	if err := Reverse(data, []int{3, 2}, 1, 1); err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if want := []byte{5, 4, 3, 2, 1, 0}; !bytes.Equal(data, want) {
		t.Errorf("axis 1: expected %v, got %v", want, data)
	}
	if err := Reverse(data, []int{3, 2}, 2, 1); err == nil {
		t.Errorf("expected error for axis out of range")
	}
}
