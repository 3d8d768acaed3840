package coach

// Transition is one row of the step table.
type Transition struct {
	ID   StepID `json:"id"`
	Kind Kind   `json:"kind"`
	Next StepID `json:"next"`
}

// StepInfo is a Transition annotated with whether the session can reach it.
type StepInfo struct {
	Transition
	Reachable bool `json:"reachable"`
}

// transitions is the full step graph. The layout steps through
// acquire_black_frame stay in the table but start skips them unless the
// machine is configured to include them.
var transitions = []Transition{
	{StepStart, KindControl, StepInsertGreenWasher1},
	{StepLayoutWheelsRims1, KindVision, StepCombineWheelRim1},
	{StepCombineWheelRim1, KindVideo, StepLayoutWheelsRims2},
	{StepLayoutWheelsRims2, KindVision, StepCombineWheelRim2},
	{StepCombineWheelRim2, KindVideo, StepAxleIntoWheel1},
	{StepAxleIntoWheel1, KindVision, StepAcquireBlackFrame},
	{StepAcquireBlackFrame, KindVision, StepInsertGreenWasher1},
	{StepInsertGreenWasher1, KindVision, StepInsertGoldWasher1},
	{StepInsertGoldWasher1, KindVision, StepInsertPinkGearFront},
	{StepInsertPinkGearFront, KindVision, StepInsertAxle1},
	{StepInsertAxle1, KindVision, StepInsertGreenWasher2},
	{StepInsertGreenWasher2, KindVision, StepInsertGoldWasher2},
	{StepInsertGoldWasher2, KindVision, StepPressWheel1},
	{StepPressWheel1, KindVision, StepInsertGreenWasher3},
	{StepInsertGreenWasher3, KindVision, StepInsertGoldWasher3},
	{StepInsertGoldWasher3, KindVision, StepInsertBrownGear},
	{StepInsertBrownGear, KindVision, StepInsertPinkGearBack},
	{StepInsertPinkGearBack, KindVision, StepInsertAxle2},
	{StepInsertAxle2, KindVision, StepInsertGreenWasher4},
	{StepInsertGreenWasher4, KindVision, StepInsertGoldWasher4},
	{StepInsertGoldWasher4, KindVision, StepPressWheel2},
	{StepPressWheel2, KindVision, StepAddGearAxle},
	{StepAddGearAxle, KindVision, StepFinalCheck},
	{StepFinalCheck, KindVision, StepComplete},
	{StepComplete, KindControl, StepNothing},
	{StepNothing, KindControl, StepStart},
}

var transitionIndex = func() map[StepID]Transition {
	m := make(map[StepID]Transition, len(transitions))
	for _, t := range transitions {
		m[t.ID] = t
	}
	return m
}()

func lookup(id StepID) (Transition, bool) {
	t, ok := transitionIndex[id]
	return t, ok
}

// successor returns the step after id. With includeLayout, start leads into
// the wheel layout steps instead of straight to the first washer.
func successor(id StepID, includeLayout bool) StepID {
	if id == StepStart && includeLayout {
		return StepLayoutWheelsRims1
	}
	return transitionIndex[id].Next
}

// Steps returns the step table in order, marking which steps a session
// starting at start will visit.
func Steps(includeLayout bool) []StepInfo {
	reachable := make(map[StepID]bool, len(transitions))
	for id := StepStart; !reachable[id]; id = successor(id, includeLayout) {
		reachable[id] = true
	}

	out := make([]StepInfo, len(transitions))
	for i, t := range transitions {
		t.Next = successor(t.ID, includeLayout)
		out[i] = StepInfo{Transition: t, Reachable: reachable[t.ID]}
	}
	return out
}
