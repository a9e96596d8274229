package devices_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bunirules/logsim/devices"
	"github.com/bunirules/logsim/names"
)

func setup(t *testing.T) (*names.Table, *devices.Devices) {
	t.Helper()
	tab := names.NewWithKeywords()
	return tab, devices.New(tab)
}

func TestMakeSwitchSetsInitialOutput(t *testing.T) {
	tab, d := setup(t)
	sw := tab.Intern("SW1")
	require.NoError(t, d.MakeSwitch(sw, devices.High))

	dev, ok := d.Get(sw)
	require.True(t, ok)
	assert.Equal(t, devices.High, dev.Outputs[devices.NoPin])
}

func TestMakeDuplicateFails(t *testing.T) {
	tab, d := setup(t)
	sw := tab.Intern("SW1")
	require.NoError(t, d.MakeSwitch(sw, devices.Low))

	err := d.MakeSwitch(sw, devices.High)
	var dup *devices.DuplicateError
	require.ErrorAs(t, err, &dup)
}

func TestMakeGateDeclaresPins(t *testing.T) {
	tab, d := setup(t)
	g := tab.Intern("G1")
	require.NoError(t, d.MakeGate(g, devices.And, 3))

	dev, ok := d.Get(g)
	require.True(t, ok)
	assert.Len(t, dev.Inputs, 3)
	assert.Contains(t, dev.Inputs, d.PinI(1))
	assert.Contains(t, dev.Inputs, d.PinI(3))
	assert.NotContains(t, dev.Inputs, d.PinI(4))
	assert.Equal(t, devices.Blank, dev.Outputs[devices.NoPin])
}

func TestMakeDTypePins(t *testing.T) {
	tab, d := setup(t)
	dt := tab.Intern("DT1")
	require.NoError(t, d.MakeDType(dt))

	dev, ok := d.Get(dt)
	require.True(t, ok)
	assert.Contains(t, dev.Inputs, d.PinData())
	assert.Contains(t, dev.Inputs, d.PinClk())
	assert.Contains(t, dev.Inputs, d.PinSet())
	assert.Contains(t, dev.Inputs, d.PinClear())
	q := dev.Outputs[d.PinQ()]
	qbar := dev.Outputs[d.PinQBar()]
	assert.NotEqual(t, q, qbar)
}

func TestSetSwitchRejectsNonSwitch(t *testing.T) {
	tab, d := setup(t)
	g := tab.Intern("G1")
	require.NoError(t, d.MakeGate(g, devices.Not, 1))

	err := d.SetSwitch(g, devices.High)
	var kindErr *devices.KindError
	require.ErrorAs(t, err, &kindErr)
}

func TestColdStartupPreservesSwitchResetsClock(t *testing.T) {
	tab, d := setup(t)
	sw := tab.Intern("SW1")
	clk := tab.Intern("CLK1")
	require.NoError(t, d.MakeSwitch(sw, devices.High))
	require.NoError(t, d.MakeClock(clk, 3))

	clkDev, _ := d.Get(clk)
	clkDev.Outputs[devices.NoPin] = devices.Rising

	d.ColdStartup()

	swDev, _ := d.Get(sw)
	assert.Equal(t, devices.High, swDev.Outputs[devices.NoPin])
	clkDev, _ = d.Get(clk)
	assert.Equal(t, devices.Low, clkDev.Outputs[devices.NoPin])
}

func TestFindDevicesFiltersByKind(t *testing.T) {
	tab, d := setup(t)
	sw := tab.Intern("SW1")
	g := tab.Intern("G1")
	require.NoError(t, d.MakeSwitch(sw, devices.Low))
	require.NoError(t, d.MakeGate(g, devices.Or, 2))

	switches := d.FindDevices(devices.Switch)
	require.Len(t, switches, 1)
	assert.Equal(t, sw, switches[0])

	all := d.FindDevices()
	assert.Len(t, all, 2)
}

func TestGetSignalNameRoundTrip(t *testing.T) {
	tab, d := setup(t)
	g := tab.Intern("G1")
	require.NoError(t, d.MakeGate(g, devices.And, 2))

	name, err := d.GetSignalName(g, devices.NoPin)
	require.NoError(t, err)
	assert.Equal(t, "G1", name)

	pinName, err := d.GetSignalName(g, d.PinI(1))
	require.NoError(t, err)
	assert.Equal(t, "G1.I1", pinName)

	dev, pin := d.GetSignalIds(tab, "G1.I1")
	assert.Equal(t, g, dev)
	assert.Equal(t, d.PinI(1), pin)

	dev2, pin2 := d.GetSignalIds(tab, "G1")
	assert.Equal(t, g, dev2)
	assert.Equal(t, devices.NoPin, pin2)
}
