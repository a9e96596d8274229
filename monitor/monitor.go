// Package monitor holds the registry of monitored output pins and their
// append-only per-cycle signal traces (spec §4.6).
package monitor

import (
	"sort"

	"github.com/bunirules/logsim/devices"
	"github.com/bunirules/logsim/names"
)

// ErrorCode is the result of MakeMonitor.
type ErrorCode int

const (
	NoError ErrorCode = iota
	MonitorPresent
	NotOutput
	DeviceAbsent
)

// Message returns the canned diagnostic text for an error code.
func (c ErrorCode) Message() string {
	switch c {
	case NoError:
		return ""
	case MonitorPresent:
		return "Monitor already present on this pin"
	case NotOutput:
		return "Cannot monitor an input pin"
	case DeviceAbsent:
		return "Device does not exist"
	default:
		return "Unknown monitor error"
	}
}

type pinKey struct {
	dev, pin names.ID
}

// Monitor is one monitored (device, output-pin) pair and its trace.
type Monitor struct {
	Device names.ID
	Pin    names.ID
	Trace  []devices.Level
}

// Monitors is the registry of active monitors, backed by a shared
// devices.Devices for output-level lookups and pin-existence checks.
type Monitors struct {
	devices *devices.Devices
	byPin   map[pinKey]*Monitor
	order   []pinKey // insertion order, for deterministic iteration
}

// New returns an empty registry over d.
func New(d *devices.Devices) *Monitors {
	return &Monitors{devices: d, byPin: make(map[pinKey]*Monitor)}
}

// MakeMonitor registers a monitor on (dev, pin), back-filling its trace
// with cyclesAlreadyRun BLANK entries so every trace stays the same length
// (invariant I4).
func (m *Monitors) MakeMonitor(dev, pin names.ID, cyclesAlreadyRun int) ErrorCode {
	d, ok := m.devices.Get(dev)
	if !ok {
		return DeviceAbsent
	}
	if _, isOutput := d.Outputs[pin]; !isOutput {
		return NotOutput
	}
	key := pinKey{dev, pin}
	if _, exists := m.byPin[key]; exists {
		return MonitorPresent
	}

	trace := make([]devices.Level, cyclesAlreadyRun)
	for i := range trace {
		trace[i] = devices.Blank
	}
	m.byPin[key] = &Monitor{Device: dev, Pin: pin, Trace: trace}
	m.order = append(m.order, key)
	return NoError
}

// RemoveMonitor deletes the monitor on (dev, pin), reporting whether one
// was present.
func (m *Monitors) RemoveMonitor(dev, pin names.ID) bool {
	key := pinKey{dev, pin}
	if _, exists := m.byPin[key]; !exists {
		return false
	}
	delete(m.byPin, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// RecordSignals appends each monitored pin's current output level to its
// trace. The driver calls this exactly once per successful ExecuteNetwork
// (spec §5 "record_signals runs exactly once per successful
// execute_network call").
func (m *Monitors) RecordSignals() {
	for _, key := range m.order {
		mon := m.byPin[key]
		dev, ok := m.devices.Get(key.dev)
		if !ok {
			continue
		}
		mon.Trace = append(mon.Trace, dev.Outputs[key.pin])
	}
}

// ResetMonitors truncates every trace to length zero.
func (m *Monitors) ResetMonitors() {
	for _, key := range m.order {
		m.byPin[key].Trace = m.byPin[key].Trace[:0]
	}
}

// Get returns the monitor on (dev, pin), if any.
func (m *Monitors) Get(dev, pin names.ID) (*Monitor, bool) {
	mon, ok := m.byPin[pinKey{dev, pin}]
	return mon, ok
}

// GetSignalNames returns the "dev" / "dev.pin" names of every device output
// in the network, split into monitored and not-monitored, each sorted.
func (m *Monitors) GetSignalNames() (monitored, notMonitored []string) {
	for _, id := range m.devices.FindDevices() {
		dev, _ := m.devices.Get(id)
		for pin := range dev.Outputs {
			name, err := m.devices.GetSignalName(id, pin)
			if err != nil {
				continue
			}
			if _, ok := m.byPin[pinKey{id, pin}]; ok {
				monitored = append(monitored, name)
			} else {
				notMonitored = append(notMonitored, name)
			}
		}
	}
	sort.Strings(monitored)
	sort.Strings(notMonitored)
	return monitored, notMonitored
}
