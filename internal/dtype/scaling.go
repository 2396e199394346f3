package dtype

import "math"

// Mode selects how a value range is fitted into a destination domain.
type Mode int

const (
	AutoScale Mode = iota
	NoScale
	NoUpscale
)

func (m Mode) String() string {
	switch m {
	case AutoScale:
		return "autoscale"
	case NoScale:
		return "noscale"
	case NoUpscale:
		return "noupscale"
	}
	return "unknown"
}

// Scaling is the linear transform dst = src*Scale + Offset.
type Scaling struct {
	Scale  float64
	Offset float64
}

// Identity leaves values unchanged.
var Identity = Scaling{Scale: 1}

// IsIdentity reports whether s leaves values unchanged.
func (s Scaling) IsIdentity() bool {
	return s.Scale == 1 && s.Offset == 0
}

// Range describes a conversion for ComputeScaling.
type Range struct {
	Min, Max   float64 // source value range
	DomainMin  float64 // destination lowest value
	DomainMax  float64 // destination highest value
	SrcInteger bool
	DstInteger bool
}

// ComputeScaling derives the scaling that fits r.Min..r.Max into the
// destination domain.
func ComputeScaling(r Range, mode Mode) Scaling {
	if mode == NoScale || !r.DstInteger {
		return Identity
	}
	if mode == AutoScale && r.SrcInteger {
		mode = NoUpscale
	}

	minval, maxval := r.Min, r.Max
	if minval > maxval {
		minval, maxval = maxval, minval
	}
	dmin, dmax := r.DomainMin, r.DomainMax

	offset := 0.0
	if minval > 0 || dmin == 0 {
		offset = -minval
	} else if maxval < 0 || dmax == 0 {
		offset = -maxval
	}

	rangeMax := maxval + offset
	rangeMin := minval + offset

	scaleMax := math.MaxFloat64
	if rangeMax != 0 {
		scaleMax = dmax / rangeMax
	}
	scaleMin := math.MaxFloat64
	if rangeMin != 0 {
		scaleMin = dmin / rangeMin
	}
	if scaleMax == 0 {
		scaleMax = math.MaxFloat64
	}
	if scaleMin == 0 {
		scaleMin = math.MaxFloat64
	}
	scale := math.Min(scaleMax, scaleMin)

	// a single-valued source has nothing to stretch
	if scale == math.MaxFloat64 {
		scale = 1
	}
	if mode == NoUpscale && scale > 1 {
		scale = 1
	}

	if scale == 1 {
		if minval-dmin > 0 && dmax-maxval > 0 {
			offset = 0
		}
	} else {
		offset *= scale
	}
	return Scaling{Scale: scale, Offset: offset}
}
