package volume

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/errs"
)

// BuildImages assembles as many images as chunks allows. Invalid chunks
// are rejected. Chunks that do not fit the image being built, because of
// their geometry, element type, image keys or a repeated key, are carried
// over to the next one.
//
// In strict mode the first invalid chunk, duplicate key or non rectangular
// assembly aborts the build. Otherwise such problems are logged and the
// chunks concerned are returned in rejected.
func BuildImages(chunks []*Chunk, opts ...Option) (images []*Image, rejected []*Chunk, err error) {
	o := buildOptions(opts)
	log := o.logger

	var pending []*Chunk
	for _, c := range chunks {
		if missing := c.props.Missing(o.requirements.Chunk); len(missing) > 0 {
			if o.strict {
				return nil, nil, errs.Coded(errs.ErrInsufficient, "volume.BuildImages", "chunk %s misses %v", c, missing)
			}
			log.WithFields(logrus.Fields{"chunk": c.String(), "missing": missing}).Warn("skipping invalid chunk")
			rejected = append(rejected, c)
			continue
		}
		pending = append(pending, c)
	}

	for len(pending) > 0 {
		a := NewAssembler(opts...)
		var next []*Chunk
		for _, c := range pending {
			err := a.Insert(c)
			switch {
			case err == nil:
			case errors.Is(err, errs.ErrSizeMismatch), errors.Is(err, errs.ErrForeignChunk):
				next = append(next, c)
			case errors.Is(err, errs.ErrDuplicateChunk) && !o.strict:
				log.WithError(err).Debug("deferring chunk to the next image")
				next = append(next, c)
			case o.strict:
				return nil, nil, err
			default:
				log.WithError(err).Warn("rejecting chunk")
				rejected = append(rejected, c)
			}
		}
		if a.Len() == 0 {
			rejected = append(rejected, next...)
			break
		}
		img, err := a.ReIndex()
		if err != nil {
			if o.strict {
				return nil, nil, err
			}
			log.WithError(err).Warn("cannot index assembly")
			rejected = append(rejected, a.Chunks()...)
		} else {
			images = append(images, img)
			rejected = append(rejected, a.Dropped()...)
		}
		pending = next
	}
	return images, rejected, nil
}
