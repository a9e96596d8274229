// Package network holds the connection graph over device pins and
// execute_network, the fixed-point signal propagation that advances the
// simulation by one cycle (spec §4.5).
package network

import (
	"sort"
	"strings"

	"github.com/bunirules/logsim/devices"
	"github.com/bunirules/logsim/names"
)

// ErrorCode is the result of MakeConnection.
type ErrorCode int

const (
	NoError ErrorCode = iota
	InputConnected
	OutputToOutput
	DeviceAbsent1
	DeviceAbsent2
	PortAbsent1
	PortAbsent2
)

// Message returns the canned diagnostic text for an error code, indexed
// the way the original error_message table is (spec §4.5).
func (c ErrorCode) Message() string {
	switch c {
	case NoError:
		return ""
	case InputConnected:
		return "Input is already connected"
	case OutputToOutput:
		return "Output connected to output"
	case DeviceAbsent1:
		return "Device does not exist"
	case DeviceAbsent2:
		return "Device does not exist"
	case PortAbsent1:
		return "Port does not exist"
	case PortAbsent2:
		return "Port does not exist"
	default:
		return "Unknown connection error"
	}
}

// pinKey identifies one (device, pin) pair.
type pinKey struct {
	dev, pin names.ID
}

// Connection is a directed edge from an output pin to an input pin.
type Connection struct {
	SrcDevice, SrcPin names.ID
	DstDevice, DstPin names.ID
}

// maxPropagationRounds bounds the fixed-point search in ExecuteNetwork; a
// network that has not settled after this many full scans is reported as
// oscillating (spec §4.5, §5 "bounded fixed-point-iteration count").
const maxPropagationRounds = 1000

// Network is the connection graph plus the propagation engine, both
// addressed purely through Device-name IDs owned by a shared devices.Devices.
type Network struct {
	devices *devices.Devices
	conns   map[pinKey]Connection
}

// New returns an empty Network over d.
func New(d *devices.Devices) *Network {
	return &Network{devices: d, conns: make(map[pinKey]Connection)}
}

func (n *Network) resolveSource(dev, pin names.ID) (bool, ErrorCode) {
	d, ok := n.devices.Get(dev)
	if !ok {
		return false, DeviceAbsent1
	}
	if _, isOutput := d.Outputs[pin]; !isOutput {
		return false, PortAbsent1
	}
	return true, NoError
}

func (n *Network) resolveDest(dev, pin names.ID) (bool, ErrorCode) {
	d, ok := n.devices.Get(dev)
	if !ok {
		return false, DeviceAbsent2
	}
	if _, isOutput := d.Outputs[pin]; isOutput {
		return false, OutputToOutput
	}
	if _, isInput := d.Inputs[pin]; !isInput {
		return false, PortAbsent2
	}
	return true, NoError
}

// MakeConnection wires (srcDev, srcPin) to (dstDev, dstPin), or reports why
// it could not (spec §4.5).
func (n *Network) MakeConnection(srcDev, srcPin, dstDev, dstPin names.ID) ErrorCode {
	if ok, code := n.resolveSource(srcDev, srcPin); !ok {
		return code
	}
	if ok, code := n.resolveDest(dstDev, dstPin); !ok {
		return code
	}
	key := pinKey{dstDev, dstPin}
	if _, exists := n.conns[key]; exists {
		return InputConnected
	}
	n.conns[key] = Connection{srcDev, srcPin, dstDev, dstPin}
	return NoError
}

// GetConnectedOutput returns the source of the connection feeding
// (dstDev, dstPin), if any.
func (n *Network) GetConnectedOutput(dstDev, dstPin names.ID) (srcDev, srcPin names.ID, ok bool) {
	c, ok := n.conns[pinKey{dstDev, dstPin}]
	if !ok {
		return 0, 0, false
	}
	return c.SrcDevice, c.SrcPin, true
}

// ReplaceConnection atomically retargets (dstDev, dstPin) from
// (oldSrcDev, oldSrcPin) to (newSrcDev, newSrcPin). It fails without effect
// unless the current source matches the old source exactly and the new
// source resolves (spec §4.5, "atomic replacement used by the GUI").
func (n *Network) ReplaceConnection(dstDev, dstPin, newSrcDev, newSrcPin, oldSrcDev, oldSrcPin names.ID) bool {
	key := pinKey{dstDev, dstPin}
	cur, ok := n.conns[key]
	if !ok || cur.SrcDevice != oldSrcDev || cur.SrcPin != oldSrcPin {
		return false
	}
	if ok, _ := n.resolveSource(newSrcDev, newSrcPin); !ok {
		return false
	}
	n.conns[key] = Connection{newSrcDev, newSrcPin, dstDev, dstPin}
	return true
}

// CheckNetwork returns a space-separated, space-terminated list of
// "dev.pin" strings for every input pin with no incoming connection, in
// ascending-name order. An empty string means the network is fully wired.
func (n *Network) CheckNetwork() string {
	var unconnected []string
	for _, id := range n.devices.FindDevices() {
		dev, _ := n.devices.Get(id)
		for pin := range dev.Inputs {
			if _, ok := n.conns[pinKey{id, pin}]; ok {
				continue
			}
			name, err := n.devices.GetSignalName(id, pin)
			if err == nil {
				unconnected = append(unconnected, name)
			}
		}
	}
	sort.Strings(unconnected)

	var b strings.Builder
	for _, name := range unconnected {
		b.WriteString(name)
		b.WriteByte(' ')
	}
	return b.String()
}

func classify(prevSteady, newSteady devices.Level) devices.Level {
	if newSteady == devices.Blank {
		return devices.Blank
	}
	if prevSteady == newSteady {
		return newSteady
	}
	if newSteady == devices.High {
		return devices.Rising
	}
	return devices.Falling
}

func (n *Network) propagateInputs() {
	for key, conn := range n.conns {
		src, ok := n.devices.Get(conn.SrcDevice)
		if !ok {
			continue
		}
		dst, ok := n.devices.Get(conn.DstDevice)
		if !ok {
			continue
		}
		dst.Inputs[key.pin] = src.Outputs[conn.SrcPin]
	}
}

// evaluateGate computes a gate's output from its currently visible input
// levels. AND/NAND and OR/NOR apply dominant-value short-circuiting before
// falling back to BLANK: a single LOW input already decides an AND/NAND
// gate's result regardless of any other input still reading BLANK, and
// symmetrically a single HIGH input decides OR/NOR. This is what lets a
// cross-coupled gate pair (e.g. a NAND latch) climb out of the mutual
// BLANK each side starts with, rather than deadlocking at BLANK forever
// (spec §4.5 "BLANK propagates as BLANK", read as the fallback once no
// input dominates).
func evaluateGate(dev *devices.Device) devices.Level {
	boolLevel := func(b bool) devices.Level {
		if b {
			return devices.High
		}
		return devices.Low
	}

	switch dev.Kind {
	case devices.And, devices.Nand:
		sawBlank := false
		for _, lvl := range dev.Inputs {
			if lvl == devices.Blank {
				sawBlank = true
				continue
			}
			if lvl.Steady() == devices.Low {
				return boolLevel(dev.Kind == devices.Nand)
			}
		}
		if sawBlank {
			return devices.Blank
		}
		return boolLevel(dev.Kind != devices.Nand)
	case devices.Or, devices.Nor:
		sawBlank := false
		for _, lvl := range dev.Inputs {
			if lvl == devices.Blank {
				sawBlank = true
				continue
			}
			if lvl.Steady() == devices.High {
				return boolLevel(dev.Kind == devices.Or)
			}
		}
		if sawBlank {
			return devices.Blank
		}
		return boolLevel(dev.Kind == devices.Nor)
	case devices.Xor:
		highCount := 0
		for _, lvl := range dev.Inputs {
			if lvl == devices.Blank {
				return devices.Blank
			}
			if lvl.Steady() == devices.High {
				highCount++
			}
		}
		return boolLevel(highCount == 1)
	case devices.Not:
		for _, lvl := range dev.Inputs {
			if lvl == devices.Blank {
				return devices.Blank
			}
			return boolLevel(lvl.Steady() == devices.Low)
		}
		return devices.Low
	default:
		return devices.Low
	}
}

// ExecuteNetwork advances the simulation by one cycle: it updates clocks,
// iterates combinational gates to a fixed point, then samples D-types on
// CLK rising edges. It returns false if no fixed point is reached within
// the bounded retry count (spec §4.5, §5 ordering contract).
func (n *Network) ExecuteNetwork() bool {
	gateIDs := n.devices.FindDevices(devices.And, devices.Nand, devices.Or, devices.Nor, devices.Xor, devices.Not)

	prevSteady := make(map[names.ID]devices.Level, len(gateIDs))
	for _, id := range gateIDs {
		dev, _ := n.devices.Get(id)
		steady := dev.Outputs[devices.NoPin].Steady()
		prevSteady[id] = steady
		dev.Outputs[devices.NoPin] = steady
	}

	// A D-type's Q/QBAR only change when setQ runs (a CLK rising edge, SET
	// or CLEAR); on every other cycle the RISING/FALLING classify() produced
	// last time would otherwise sit in Outputs forever, since nothing else
	// reads or rewrites it. Collapse both pins to their steady value here so
	// a quiescent cycle reports HIGH/LOW rather than replaying the old edge.
	pinQ, pinQBar := n.devices.PinQ(), n.devices.PinQBar()
	for _, id := range n.devices.FindDevices(devices.DType) {
		dev, _ := n.devices.Get(id)
		dev.Outputs[pinQ] = dev.Outputs[pinQ].Steady()
		dev.Outputs[pinQBar] = dev.Outputs[pinQBar].Steady()
	}

	for _, id := range n.devices.FindDevices(devices.Clock) {
		dev, _ := n.devices.Get(id)
		dev.Tick()
	}

	settled := false
	for round := 0; round < maxPropagationRounds; round++ {
		n.propagateInputs()
		changed := false
		for _, id := range gateIDs {
			dev, _ := n.devices.Get(id)
			newVal := evaluateGate(dev)
			if dev.Outputs[devices.NoPin] != newVal {
				changed = true
			}
			dev.Outputs[devices.NoPin] = newVal
		}
		if !changed {
			settled = true
			break
		}
	}
	if !settled {
		return false
	}
	n.propagateInputs()

	for _, id := range gateIDs {
		dev, _ := n.devices.Get(id)
		dev.Outputs[devices.NoPin] = classify(prevSteady[id], dev.Outputs[devices.NoPin])
	}

	for _, id := range n.devices.FindDevices(devices.DType) {
		n.sampleDType(id)
	}

	return true
}

func (n *Network) sampleDType(id names.ID) {
	dev, _ := n.devices.Get(id)

	newClk := dev.Inputs[n.devices.PinClk()].Steady()
	if newClk != devices.Blank {
		if dev.PrevCLK == devices.Low && newClk == devices.High {
			n.setQ(dev, dev.Inputs[n.devices.PinData()].Steady())
			dev.Initialized = true
		}
		dev.PrevCLK = newClk
	}

	if dev.Inputs[n.devices.PinSet()].Steady() == devices.High {
		n.setQ(dev, devices.High)
	} else if dev.Inputs[n.devices.PinClear()].Steady() == devices.High {
		n.setQ(dev, devices.Low)
	}
}

func (n *Network) setQ(dev *devices.Device, value devices.Level) {
	pinQ, pinQBar := n.devices.PinQ(), n.devices.PinQBar()
	dev.Outputs[pinQ] = classify(dev.Outputs[pinQ].Steady(), value)
	dev.Outputs[pinQBar] = classify(dev.Outputs[pinQBar].Steady(), devices.Complement(value))
}
