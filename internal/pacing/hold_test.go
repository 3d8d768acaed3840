package pacing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoldZeroValueIsReady(t *testing.T) {
	t.Parallel()

	var h Hold
	assert.True(t, h.Ready(time.Now()))
	assert.False(t, h.Armed())
	assert.Zero(t, h.Remaining(time.Now()))
}

func TestHoldReleasesAtDeadline(t *testing.T) {
	t.Parallel()

	clock := NewMockClock(time.Unix(1000, 0))
	var h Hold
	h.Arm(clock.Now(), 5*time.Second)

	assert.False(t, h.Ready(clock.Now()))
	assert.Equal(t, 5*time.Second, h.Remaining(clock.Now()))

	clock.Advance(4 * time.Second)
	assert.False(t, h.Ready(clock.Now()))
	assert.Equal(t, time.Second, h.Remaining(clock.Now()))

	clock.Advance(time.Second)
	assert.True(t, h.Ready(clock.Now()))
	assert.False(t, h.Armed())
}

func TestHoldArmExtendsOnly(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	var h Hold
	h.Arm(now, 10*time.Second)
	h.Arm(now, 5*time.Second)
	assert.Equal(t, 10*time.Second, h.Remaining(now))

	h.Arm(now.Add(8*time.Second), 5*time.Second)
	assert.Equal(t, 13*time.Second, h.Remaining(now))
}

func TestHoldIgnoresNonPositive(t *testing.T) {
	t.Parallel()

	var h Hold
	h.Arm(time.Now(), 0)
	assert.False(t, h.Armed())
}
