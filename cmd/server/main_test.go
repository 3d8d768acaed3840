package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ashureev/assembly-coach/internal/coach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"steps"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(coach.Steps(false))+1)
	assert.Contains(t, lines[0], "STEP")
	assert.Regexp(t, `^start\s+control\s+insert_green_washer_1\s+true$`, lines[1])
}

func TestStepsCommandLayout(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"steps", "--layout"})
	require.NoError(t, cmd.Execute())

	assert.Regexp(t, `(?m)^start\s+control\s+layout_wheels_rims_1\s+true$`, out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(out.String(), "assembly-coach "))
}
