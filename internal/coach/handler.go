package coach

import (
	"context"

	"github.com/ashureev/assembly-coach/internal/detector"
	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/stability"
)

// Outcome is what a step policy decided for one frame. Image and Video are
// logical asset names; the machine resolves them.
type Outcome struct {
	Speech string
	Image  string
	Video  string

	// Advance moves the session to the step's successor.
	Advance bool
	// HoldUnits arms a delay, in time units, paid before the next frame is
	// dispatched.
	HoldUnits int
}

// Handler is the policy for one step instance. Each handler owns its
// stability buffers as named fields; nothing is shared between steps.
type Handler interface {
	// Introduction returns the static guidance shown on the first frame of
	// the step. It must not touch the detector.
	Introduction() Outcome
	// Verify inspects one frame.
	Verify(ctx context.Context, fc *frameContext) (Outcome, error)
	// Reset clears every buffer the handler owns.
	Reset()
}

// Timing of the holds armed by step policies, in time units.
const (
	correctionHoldUnits = 5
	demoHoldUnits       = 10
	restartHoldUnits    = 10
)

// frameContext carries the frame under inspection to a handler.
type frameContext struct {
	frame domain.Frame
	index int
	det   detector.Detector
}

func (fc *frameContext) query(ctx context.Context, classes ...string) ([]domain.DetectedObject, error) {
	return fc.det.DetectByCategories(ctx, fc.frame, classes, fc.index)
}

// bufferFactory builds a buffer with the session's stability settings.
type bufferFactory func() *stability.Buffer

func clearAll(bufs ...*stability.Buffer) {
	for _, b := range bufs {
		b.Clear()
	}
}

func stagedClearAll(bufs ...*stability.Buffer) {
	for _, b := range bufs {
		b.StagedClear()
	}
}
