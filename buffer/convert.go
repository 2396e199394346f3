package buffer

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/alloc"
	"github.com/robert-malhotra/go-volume/internal/dtype"
)

// Mode selects how the source range is fitted into an integer destination.
type Mode = dtype.Mode

const (
	// AutoScale stretches or shrinks floating point sources to fill the
	// destination; integer sources are only ever scaled down.
	AutoScale = dtype.AutoScale
	// NoScale converts values as they are, clamping what does not fit.
	NoScale = dtype.NoScale
	// NoUpscale shrinks ranges that do not fit but never stretches.
	NoUpscale = dtype.NoUpscale
)

// Scaling is the linear transform dst = src*Scale + Offset.
type Scaling = dtype.Scaling

// Identity leaves values unchanged.
var Identity = dtype.Identity

// ConvertOption configures a conversion.
type ConvertOption func(*convertOptions)

type convertOptions struct {
	mode      Mode
	scaling   *Scaling
	strict    bool
	logger    logrus.FieldLogger
	allocator *Allocator
}

func defaultConvertOptions() *convertOptions {
	return &convertOptions{
		mode:   AutoScale,
		logger: discard,
	}
}

var discard = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// WithMode sets the scaling mode (default AutoScale).
func WithMode(m Mode) ConvertOption {
	return func(o *convertOptions) {
		o.mode = m
	}
}

// WithScaling forces a scaling instead of deriving one from the source range.
func WithScaling(s Scaling) ConvertOption {
	return func(o *convertOptions) {
		o.scaling = &s
	}
}

// WithStrict turns clamping into an error.
func WithStrict(strict bool) ConvertOption {
	return func(o *convertOptions) {
		o.strict = strict
	}
}

// WithLogger sets the logger that receives clamping warnings.
func WithLogger(l logrus.FieldLogger) ConvertOption {
	return func(o *convertOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAllocator allocates the destination of ConvertTo from a.
func WithAllocator(a *Allocator) ConvertOption {
	return func(o *convertOptions) {
		o.allocator = a
	}
}

// AllocatorOf returns the allocator set in opts, or nil.
func AllocatorOf(opts ...ConvertOption) *Allocator {
	o := defaultConvertOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o.allocator
}

// pairing is how elements of one type map onto another.
type pairing int

const (
	pairNone pairing = iota
	// same component count, component-wise
	pairDirect
	// scalar into the real part of a complex
	pairReal
	// scalar into all three color channels
	pairGray
)

func pairOf(src, dst ElementType) pairing {
	si, di := src.Info(), dst.Info()
	if !src.Valid() || !dst.Valid() {
		return pairNone
	}
	scalar := func(c Class) bool { return c == ClassInteger || c == ClassFloat }
	switch {
	case scalar(si.Class) && scalar(di.Class):
		return pairDirect
	case scalar(si.Class) && di.Class == ClassComplex:
		return pairReal
	case scalar(si.Class) && di.Class == ClassColor:
		return pairGray
	case si.Class == di.Class && si.Components == di.Components:
		return pairDirect
	}
	return pairNone
}

// CanConvert reports whether a buffer of type src converts to dst.
func CanConvert(src, dst ElementType) bool {
	return pairOf(src, dst) != pairNone
}

// ScalingTo returns the scaling a conversion of b into t would use. The
// source range is taken over all components, so color and complex data
// keep the ratio between channels.
func (b *Buffer) ScalingTo(t ElementType, mode Mode) (Scaling, error) {
	const op = "buffer.ScalingTo"
	if err := b.check(op); err != nil {
		return Identity, err
	}
	if pairOf(b.typ, t) == pairNone {
		return Identity, unsupported(op, b.typ, t)
	}
	return b.scalingTo(t, mode), nil
}

func (b *Buffer) scalingTo(t ElementType, mode Mode) Scaling {
	si, di := b.typ.Info(), t.Info()
	if !di.Integer() || mode == NoScale {
		return Identity
	}
	lo, hi, ok := ops[si.Component].minmax(b.data)
	if !ok {
		return Identity
	}
	return dtype.ComputeScaling(dtype.Range{
		Min:        lo,
		Max:        hi,
		DomainMin:  di.Min,
		DomainMax:  di.Max,
		SrcInteger: si.Integer(),
		DstInteger: true,
	}, mode)
}

// ConvertTo converts b into a new buffer of type t.
func (b *Buffer) ConvertTo(t ElementType, opts ...ConvertOption) (*Buffer, error) {
	const op = "buffer.ConvertTo"
	if err := b.check(op); err != nil {
		return nil, err
	}
	if pairOf(b.typ, t) == pairNone {
		return nil, unsupported(op, b.typ, t)
	}
	o := defaultConvertOptions()
	for _, opt := range opts {
		opt(o)
	}
	dst, err := o.allocator.Allocate(t, b.n)
	if err != nil {
		return nil, err
	}
	if err := b.convertInto(op, dst, o); err != nil {
		dst.Release()
		return nil, err
	}
	return dst, nil
}

// ConvertInto converts b into dst, which must have the same length.
func (b *Buffer) ConvertInto(dst *Buffer, opts ...ConvertOption) error {
	const op = "buffer.ConvertInto"
	if err := b.check(op); err != nil {
		return err
	}
	if err := dst.writable(op); err != nil {
		return err
	}
	o := defaultConvertOptions()
	for _, opt := range opts {
		opt(o)
	}
	return b.convertInto(op, dst, o)
}

func (b *Buffer) convertInto(op string, dst *Buffer, o *convertOptions) error {
	if dst.n != b.n {
		return errs.Coded(errs.ErrSizeMismatch, op,
			"source has %d elements, destination %d", b.n, dst.n)
	}
	pair := pairOf(b.typ, dst.typ)
	if pair == pairNone {
		return unsupported(op, b.typ, dst.typ)
	}

	s := Identity
	switch {
	case o.scaling != nil:
		s = *o.scaling
	case b.typ == dst.typ:
		copy(dst.data, b.data)
		return nil
	default:
		s = b.scalingTo(dst.typ, o.mode)
	}

	si, di := b.typ.Info(), dst.typ.Info()
	k := ops[si.Component].convert[di.Component]
	var clamped int

	switch pair {
	case pairDirect:
		clamped = k(dst.data, b.data, s)
	case pairReal, pairGray:
		width := ops[di.Component].size
		tmp, err := alloc.Aligned(uint64(b.n * width))
		if err != nil {
			return errs.Wrap(errs.KindResource, op, err, "scratch for %d elements", b.n)
		}
		clamped = k(tmp, b.data, s)
		spread(dst.data, tmp, width, di.Components, pair == pairGray)
	}

	if clamped > 0 {
		if o.strict {
			return errs.Coded(errs.ErrLossyConversion, op,
				"%d of %d values clamped converting %s to %s", clamped, b.n*si.Components, b.typ, dst.typ)
		}
		o.logger.WithFields(logrus.Fields{
			"from":    b.typ.String(),
			"to":      dst.typ.String(),
			"clamped": clamped,
			"scale":   s.Scale,
			"offset":  s.Offset,
		}).Warn("values clamped during conversion")
	}
	return nil
}

// spread writes each width-byte value of src into lane 0 of dst elements of
// lanes components, or into every lane when fill is set. Other lanes are
// zeroed.
func spread(dst, src []byte, width, lanes int, fill bool) {
	elem := width * lanes
	for i := 0; i*width < len(src); i++ {
		v := src[i*width : (i+1)*width]
		d := dst[i*elem : (i+1)*elem]
		copy(d, v)
		for l := 1; l < lanes; l++ {
			lane := d[l*width : (l+1)*width]
			if fill {
				copy(lane, v)
			} else {
				clear(lane)
			}
		}
	}
}

func unsupported(op string, src, dst ElementType) error {
	return errs.Coded(errs.ErrUnsupportedConversion, op,
		"cannot convert %s to %s", src, dst)
}
