package main

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/bunirules/logsim/devices"
)

func TestLevelGlyph(t *testing.T) {
	assert.Equal(t, "_", levelGlyph(devices.Low))
	assert.Equal(t, "‾", levelGlyph(devices.High))
	assert.Equal(t, "/", levelGlyph(devices.Rising))
	assert.Equal(t, "\\", levelGlyph(devices.Falling))
	assert.Equal(t, ".", levelGlyph(devices.Blank))
}

func TestLevelColorPicksDistinctColorsForOnAndOff(t *testing.T) {
	assert.Equal(t, color.New(color.FgGreen), levelColor(devices.High))
	assert.Equal(t, color.New(color.FgGreen), levelColor(devices.Rising))
	assert.Equal(t, color.New(color.FgRed), levelColor(devices.Low))
	assert.Equal(t, color.New(color.FgRed), levelColor(devices.Falling))
	assert.Equal(t, color.New(color.FgHiBlack), levelColor(devices.Blank))
}
