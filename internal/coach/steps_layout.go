package coach

import (
	"context"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/geometry"
	"github.com/ashureev/assembly-coach/internal/stability"
)

var layoutSpeech = map[int]string{
	1: "Please find two different sized rims,two different sized tires, and arrange them like this.",
	2: "Find the other set of two different sized rims, two different sized tires, and show me this configuration.",
}

// layoutStep checks that two tires sit below two rims, thick on the left and
// thin on the right.
type layoutStep struct {
	part             int
	compareThreshold float64

	leftTire  *stability.Buffer
	rightTire *stability.Buffer
	leftRim   *stability.Buffer
	rightRim  *stability.Buffer
}

func newLayoutStep(part int, compareThreshold float64, newBuffer bufferFactory) *layoutStep {
	return &layoutStep{
		part:             part,
		compareThreshold: compareThreshold,
		leftTire:         newBuffer(),
		rightTire:        newBuffer(),
		leftRim:          newBuffer(),
		rightRim:         newBuffer(),
	}
}

func (s *layoutStep) Introduction() Outcome {
	return Outcome{Speech: layoutSpeech[s.part], Image: "tire-rim-legend.jpg"}
}

func (s *layoutStep) Reset() {
	clearAll(s.leftTire, s.rightTire, s.leftRim, s.rightRim)
}

func (s *layoutStep) Verify(ctx context.Context, fc *frameContext) (Outcome, error) {
	tires, err := fc.query(ctx, classThickWheelSide, classThinWheelSide)
	if err != nil {
		return Outcome{}, err
	}
	rims, err := fc.query(ctx, classThickRimSide, classThinRimSide)
	if err != nil {
		return Outcome{}, err
	}

	if len(tires) != 2 || len(rims) != 2 {
		stagedClearAll(s.leftTire, s.rightTire, s.leftRim, s.rightRim)
		return Outcome{}, nil
	}

	lt, rt := geometry.OrderPair(tires[0], tires[1], geometry.AxisX)
	lr, rr := geometry.OrderPair(rims[0], rims[1], geometry.AxisX)
	if !s.leftTire.AddAndCheckStable(lt) ||
		!s.rightTire.AddAndCheckStable(rt) ||
		!s.leftRim.AddAndCheckStable(lr) ||
		!s.rightRim.AddAndCheckStable(rr) {
		return Outcome{}, nil
	}

	out := s.evaluate()
	s.Reset()
	return out, nil
}

// evaluate judges a stable layout. Tires must sit lower in the image (larger
// y1) than the rims on the same side.
func (s *layoutStep) evaluate() Outcome {
	ltBox, _ := s.leftTire.AveragedBBox()
	rtBox, _ := s.rightTire.AveragedBBox()
	lrBox, _ := s.leftRim.AveragedBBox()
	rrBox, _ := s.rightRim.AveragedBBox()

	leftBelow := ltBox.Y1() > lrBox.Y1()
	rightBelow := rtBox.Y1() > rrBox.Y1()
	leftAbove := ltBox.Y1() < lrBox.Y1()
	rightAbove := rtBox.Y1() < rrBox.Y1()

	switch {
	case leftBelow && rightBelow:
		return s.evaluateSizes(lrBox, rrBox)
	case leftBelow && rightAbove:
		return Outcome{Speech: "The orientation of tire and rim on the right is wrong. Please switch their positions"}
	case leftAbove && rightBelow:
		return Outcome{Speech: "The orientation of tire and rim on the left is wrong. Please switch their positions"}
	default:
		return Outcome{Speech: "The orientation of tire and rim on the left and the right is wrong. " +
			"Please switch the positions of the tire and rim on the left and then switch the positions of the tire and rim on the right."}
	}
}

func (s *layoutStep) evaluateSizes(leftRim, rightRim domain.BBox) Outcome {
	ltClass, _ := s.leftTire.AveragedClass()
	rtClass, _ := s.rightTire.AveragedClass()
	lrClass, _ := s.leftRim.AveragedClass()
	rrClass, _ := s.rightRim.AveragedClass()

	rims := geometry.CompareHeight(leftRim, rightRim, s.compareThreshold)

	switch {
	case ltClass == classThickWheelSide && rtClass == classThinWheelSide &&
		lrClass == classThickRimSide && rrClass == classThinRimSide:
		return Outcome{Advance: true}
	case ltClass != classThickWheelSide:
		return Outcome{Speech: "Please switch out the left tire with a bigger tire."}
	case rtClass != classThinWheelSide:
		return Outcome{Speech: "Please switch out the right tire with a smaller tire."}
	case rims == geometry.Second:
		return Outcome{Speech: "Please switch the positions of the rims."}
	case rims == geometry.Same && lrClass != classThickRimSide:
		return Outcome{Speech: "Please switch out the left rim with a bigger rim."}
	case rims == geometry.Same && rrClass != classThinRimSide:
		return Outcome{Speech: "Please switch out the right rim with a smaller rim."}
	}
	return Outcome{}
}

// videoGateStep shows a demonstration and lets the user through on the next
// frame. Nothing is verified.
type videoGateStep struct {
	speech string
	video  string
}

func (s *videoGateStep) Introduction() Outcome {
	return Outcome{Speech: s.speech, Video: s.video}
}

func (s *videoGateStep) Reset() {}

func (s *videoGateStep) Verify(context.Context, *frameContext) (Outcome, error) {
	return Outcome{Advance: true, HoldUnits: demoHoldUnits}, nil
}
