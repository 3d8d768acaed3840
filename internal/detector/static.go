package detector

import (
	"context"
	"sync"

	"github.com/ashureev/assembly-coach/internal/domain"
)

// Static is an in-process Detector that reports a fixed scene until told
// otherwise. It backs DETECTOR_STUB mode and the package tests.
type Static struct {
	mu      sync.Mutex
	scene   []domain.DetectedObject
	err     error
	queries int
}

// NewStatic creates a Static detector reporting objects.
func NewStatic(objects ...domain.DetectedObject) *Static {
	s := &Static{}
	s.Set(objects...)
	return s
}

// Set replaces the scene.
func (s *Static) Set(objects ...domain.DetectedObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = append([]domain.DetectedObject(nil), objects...)
}

// Fail makes every subsequent call return err; nil restores normal behaviour.
func (s *Static) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Queries returns how many DetectByCategories calls have been made.
func (s *Static) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// DetectByCategories implements Detector.
func (s *Static) DetectByCategories(_ context.Context, _ domain.Frame, categories []string, frameIndex int) ([]domain.DetectedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.err != nil {
		return nil, s.err
	}
	return stamp(domain.FilterByClass(s.scene, categories), frameIndex), nil
}

// AllDetections implements Detector.
func (s *Static) AllDetections(_ context.Context, _ domain.Frame, frameIndex int) ([]domain.DetectedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return stamp(s.scene, frameIndex), nil
}

func stamp(objects []domain.DetectedObject, frameIndex int) []domain.DetectedObject {
	out := make([]domain.DetectedObject, len(objects))
	for i, obj := range objects {
		obj.FrameIndex = frameIndex
		out[i] = obj
	}
	return out
}
