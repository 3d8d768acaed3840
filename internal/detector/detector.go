// Package detector is the boundary to the out-of-process object detector.
package detector

import (
	"context"
	"errors"

	"github.com/ashureev/assembly-coach/internal/domain"
)

// ErrUnavailable is returned when the detector cannot be reached or fails.
var ErrUnavailable = errors.New("detector unavailable")

// Detector answers class-filtered queries about a frame.
type Detector interface {
	// DetectByCategories returns the detections in frame whose class is in
	// categories, stamped with frameIndex.
	DetectByCategories(ctx context.Context, frame domain.Frame, categories []string, frameIndex int) ([]domain.DetectedObject, error)

	// AllDetections returns every detection for the frame regardless of the
	// categories most recently queried.
	AllDetections(ctx context.Context, frame domain.Frame, frameIndex int) ([]domain.DetectedObject, error)
}

// Backend runs the model once over a frame.
type Backend interface {
	Detect(ctx context.Context, frame domain.Frame, frameIndex int) ([]domain.DetectedObject, error)
}

// Cached adapts a Backend into a Detector that runs inference at most once
// per frame index and filters the cached result per query.
type Cached struct {
	backend Backend
	index   int
	valid   bool
	objects []domain.DetectedObject
}

// NewCached wraps backend.
func NewCached(backend Backend) *Cached {
	return &Cached{backend: backend}
}

// DetectByCategories implements Detector.
func (c *Cached) DetectByCategories(ctx context.Context, frame domain.Frame, categories []string, frameIndex int) ([]domain.DetectedObject, error) {
	all, err := c.detect(ctx, frame, frameIndex)
	if err != nil {
		return nil, err
	}
	return domain.FilterByClass(all, categories), nil
}

// AllDetections implements Detector.
func (c *Cached) AllDetections(ctx context.Context, frame domain.Frame, frameIndex int) ([]domain.DetectedObject, error) {
	all, err := c.detect(ctx, frame, frameIndex)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DetectedObject, len(all))
	copy(out, all)
	return out, nil
}

func (c *Cached) detect(ctx context.Context, frame domain.Frame, frameIndex int) ([]domain.DetectedObject, error) {
	if c.valid && c.index == frameIndex {
		return c.objects, nil
	}
	objects, err := c.backend.Detect(ctx, frame, frameIndex)
	if err != nil {
		c.valid = false
		return nil, err
	}
	c.index = frameIndex
	c.objects = objects
	c.valid = true
	return objects, nil
}
