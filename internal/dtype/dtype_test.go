package dtype

import (
	"math"
	"testing"
)

func TestLimits(t *testing.T) {
	if lo, hi := Limits[uint8](); lo != 0 || hi != 255 {
		t.Errorf("uint8: expected 0..255, got %d..%d", lo, hi)
	}
	if lo, hi := Limits[int16](); lo != -32768 || hi != 32767 {
		t.Errorf("int16: expected -32768..32767, got %d..%d", lo, hi)
	}
	if lo, hi := Limits[float32](); lo != -math.MaxFloat32 || hi != math.MaxFloat32 {
		t.Errorf("float32: unexpected limits %g..%g", lo, hi)
	}
	if !IsSigned[int8]() || IsSigned[uint64]() {
		t.Errorf("signedness mismatch")
	}
	if IsInteger[float64]() || !IsInteger[uint32]() {
		t.Errorf("integer classification mismatch")
	}
}

func TestCastRoundTrip(t *testing.T) {
	src := []uint16{1, 2, 0xABCD}
	b := Bytes(src)
	if len(b) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(b))
	}
	back := Cast[uint16](b)
	for i := range src {
		if back[i] != src[i] {
			t.Errorf("index %d: expected %d, got %d", i, src[i], back[i])
		}
	}
	if Cast[uint32](b[:3]) != nil {
		t.Errorf("expected nil view for short input")
	}
}

func TestSwapBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwapBytes(b, 4)
	want := []byte{4, 3, 2, 1, 8, 7, 6, 5}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, b)
		}
	}
	SwapBytes(b, 1)
	if b[0] != 4 {
		t.Errorf("width 1 must be a no-op")
	}
}

func TestComputeScalingFloatToUint8(t *testing.T) {
	s := ComputeScaling(Range{Min: -2, Max: 2, DomainMin: 0, DomainMax: 255, DstInteger: true}, AutoScale)
	if math.Abs(s.Scale-255.0/4.0) > 1e-9 {
		t.Errorf("expected scale %g, got %g", 255.0/4.0, s.Scale)
	}
	if math.Abs(s.Offset-2*s.Scale) > 1e-9 {
		t.Errorf("expected offset %g, got %g", 2*s.Scale, s.Offset)
	}
}

func TestComputeScalingSigned(t *testing.T) {
	s := ComputeScaling(Range{Min: -2, Max: 2, DomainMin: -128, DomainMax: 127, DstInteger: true}, AutoScale)
	if s.Offset != 0 {
		t.Errorf("expected zero offset around zero, got %g", s.Offset)
	}
	if s.Scale != 63.5 {
		t.Errorf("expected scale 63.5, got %g", s.Scale)
	}
}

func TestComputeScalingModes(t *testing.T) {
	r := Range{Min: 0, Max: 10, DomainMin: 0, DomainMax: 255, DstInteger: true}

	if s := ComputeScaling(r, NoScale); !s.IsIdentity() {
		t.Errorf("noscale: expected identity, got %+v", s)
	}
	if s := ComputeScaling(r, NoUpscale); !s.IsIdentity() {
		t.Errorf("noupscale: expected identity, got %+v", s)
	}
	if s := ComputeScaling(r, AutoScale); s.Scale != 25.5 {
		t.Errorf("autoscale: expected 25.5, got %g", s.Scale)
	}

	r.SrcInteger = true
	if s := ComputeScaling(r, AutoScale); !s.IsIdentity() {
		t.Errorf("integer source must not upscale, got %+v", s)
	}

	r.DstInteger = false
	if s := ComputeScaling(r, AutoScale); !s.IsIdentity() {
		t.Errorf("float destination must not scale, got %+v", s)
	}
}

func TestComputeScalingDownscale(t *testing.T) {
	s := ComputeScaling(Range{Min: 0, Max: 1000, DomainMin: 0, DomainMax: 255, SrcInteger: true, DstInteger: true}, AutoScale)
	if math.Abs(s.Scale-0.255) > 1e-12 {
		t.Errorf("expected scale 0.255, got %g", s.Scale)
	}
}

func TestComputeScalingDegenerate(t *testing.T) {
	s := ComputeScaling(Range{Min: 5, Max: 5, DomainMin: 0, DomainMax: 255, DstInteger: true}, AutoScale)
	if !s.IsIdentity() {
		t.Errorf("expected identity for a constant in-domain source, got %+v", s)
	}
	if math.IsInf(s.Scale, 0) || math.IsNaN(s.Offset) {
		t.Errorf("degenerate scaling must stay finite, got %+v", s)
	}
}

func TestConvertScaledRounding(t *testing.T) {
	src := make([]float32, 12)
	for i := range src {
		src[i] = -2 + float32(i)*4/11
	}
	s := ComputeScaling(Range{Min: -2, Max: 2, DomainMin: 0, DomainMax: 255, DstInteger: true}, AutoScale)
	dst := make([]uint8, len(src))
	if clamped := Convert(dst, src, s); clamped != 0 {
		t.Errorf("expected no clamping, got %d", clamped)
	}
	if dst[0] != 0 {
		t.Errorf("expected -2 -> 0, got %d", dst[0])
	}
	if dst[11] != 255 {
		t.Errorf("expected 2 -> 255, got %d", dst[11])
	}
}

func TestConvertClamps(t *testing.T) {
	src := []float64{-1, 300, math.NaN(), 2.5, -2.5}
	dst := make([]uint8, len(src))
	clamped := Convert(dst, src, Identity)
	if clamped != 4 {
		t.Errorf("expected 4 clamped values, got %d", clamped)
	}
	want := []uint8{0, 255, 0, 3, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], dst[i])
		}
	}

	signed := make([]int8, 2)
	Convert(signed, []float64{2.5, -2.5}, Identity)
	if signed[0] != 3 || signed[1] != -3 {
		t.Errorf("expected half away from zero, got %v", signed)
	}
}

func TestConvertIntegersExact(t *testing.T) {
	src := []int64{math.MaxInt64, -1, 1 << 60}
	dst := make([]uint64, len(src))
	clamped := Convert(dst, src, Identity)
	if clamped != 1 {
		t.Errorf("expected 1 clamped value, got %d", clamped)
	}
	if dst[0] != math.MaxInt64 || dst[1] != 0 || dst[2] != 1<<60 {
		t.Errorf("unexpected result %v", dst)
	}

	narrow := make([]int16, 2)
	if Convert(narrow, []uint32{70000, 5}, Identity) != 1 || narrow[0] != math.MaxInt16 || narrow[1] != 5 {
		t.Errorf("unexpected narrowing result %v", narrow)
	}
}

func TestConvertFloatOverflow(t *testing.T) {
	dst := make([]float32, 3)
	clamped := Convert(dst, []float64{1e300, math.Inf(-1), 1.5}, Identity)
	if clamped != 1 {
		t.Errorf("expected 1 clamped value, got %d", clamped)
	}
	if dst[0] != math.MaxFloat32 || !math.IsInf(float64(dst[1]), -1) || dst[2] != 1.5 {
		t.Errorf("unexpected result %v", dst)
	}
}

func TestMinMax(t *testing.T) {
	lo, hi, ok := MinMax([]float32{3, float32(math.NaN()), -1, 7})
	if !ok || lo != -1 || hi != 7 {
		t.Errorf("expected -1..7, got %g..%g (ok=%v)", lo, hi, ok)
	}
	if _, _, ok := MinMax([]int32{}); ok {
		t.Errorf("expected ok=false for empty input")
	}
}

func TestDiffer(t *testing.T) {
	if n := Differ([]int32{1, 2, 3}, []int32{1, 0, 3, 9}); n != 1 {
		t.Errorf("expected 1 difference, got %d", n)
	}
}
