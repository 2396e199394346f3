package volume

import (
	"io"
	"slices"

	"github.com/sirupsen/logrus"
)

// Property paths the engine itself interprets.
const (
	PropIndexOrigin         = "indexOrigin"
	PropAcquisitionNumber   = "acquisitionNumber"
	PropAcquisitionTime     = "acquisitionTime"
	PropVoxelSize           = "voxelSize"
	PropVoxelGap            = "voxelGap"
	PropRowVec              = "rowVec"
	PropColumnVec           = "columnVec"
	PropSliceVec            = "sliceVec"
	PropSequenceNumber      = "sequenceNumber"
	PropSequenceDescription = "sequenceDescription"
	PropSequenceStart       = "sequenceStart"
	PropCoilChannelMask     = "coilChannelMask"
	PropSource              = "source"
)

// Requirements lists the property paths that must hold a non-empty value
// for a chunk or an image to be valid.
type Requirements struct {
	Chunk []string
	Image []string
}

// DefaultRequirements is used when no Requirements are configured.
func DefaultRequirements() Requirements {
	chunk := []string{PropIndexOrigin, PropAcquisitionNumber, PropVoxelSize, PropRowVec, PropColumnVec}
	return Requirements{
		Chunk: chunk,
		Image: append(slices.Clone(chunk), PropSliceVec, PropSequenceNumber),
	}
}

// DefaultPrimaryKeys are the properties that must match for chunks to
// share a group.
func DefaultPrimaryKeys() []string {
	return []string{PropRowVec, PropColumnVec, PropSliceVec, PropCoilChannelMask, PropSequenceNumber}
}

// DefaultSecondaryKeys order chunks inside a group.
func DefaultSecondaryKeys() []string {
	return []string{PropAcquisitionNumber, PropAcquisitionTime}
}

// Option configures an Assembler or BuildImages.
type Option func(*options)

type options struct {
	strict        bool
	primaryKeys   []string
	secondaryKeys []string
	imageKeys     []string
	requirements  Requirements
	stride        uint32
	logger        logrus.FieldLogger
}

func defaultOptions() *options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &options{
		primaryKeys:   DefaultPrimaryKeys(),
		secondaryKeys: DefaultSecondaryKeys(),
		requirements:  DefaultRequirements(),
		logger:        l,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithStrict makes every structural problem a hard failure: a non
// rectangular assembly fails instead of being trimmed, and BuildImages
// stops at the first rejected chunk.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithPrimaryKeys sets the grouping properties.
func WithPrimaryKeys(paths ...string) Option {
	return func(o *options) {
		o.primaryKeys = slices.Clone(paths)
	}
}

// WithSecondaryKeys sets the ordering properties, most significant first.
func WithSecondaryKeys(paths ...string) Option {
	return func(o *options) {
		if len(paths) > 0 {
			o.secondaryKeys = slices.Clone(paths)
		}
	}
}

// WithImageKeys sets properties every chunk of an image must share.
// Chunks that differ from the first chunk in any of them are refused with
// ErrForeignChunk, and BuildImages moves them to another image. None are
// set by default, so such chunks form separate groups instead.
func WithImageKeys(paths ...string) Option {
	return func(o *options) {
		o.imageKeys = slices.Clone(paths)
	}
}

// WithRequirements sets the required property paths.
func WithRequirements(r Requirements) Option {
	return func(o *options) {
		o.requirements = Requirements{Chunk: slices.Clone(r.Chunk), Image: slices.Clone(r.Image)}
	}
}

// WithSpliceStride sets the acquisition number step between slabs when a
// chunk is split because its secondary key is a list.
func WithSpliceStride(stride uint32) Option {
	return func(o *options) {
		o.stride = stride
	}
}

// WithLogger sets the logger for skipped chunks and trimmed groups.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
