// Package devices holds the registry of instantiated circuit elements:
// switches, clocks, logic gates and D-type flip-flops, each keyed by its
// device-name ID and carrying kind-specific mutable state.
package devices

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/bunirules/logsim/names"
)

// Kind classifies a Device.
type Kind int

const (
	Switch Kind = iota
	Clock
	And
	Nand
	Or
	Nor
	Xor
	Not
	DType
)

func (k Kind) String() string {
	switch k {
	case Switch:
		return "SWITCH"
	case Clock:
		return "CLOCK"
	case And:
		return "AND"
	case Nand:
		return "NAND"
	case Or:
		return "OR"
	case Nor:
		return "NOR"
	case Xor:
		return "XOR"
	case Not:
		return "NOT"
	case DType:
		return "DTYPE"
	default:
		return "UNKNOWN"
	}
}

// Level is one of the five signal values a pin can carry.
type Level int

const (
	Low Level = iota
	High
	Rising
	Falling
	Blank
)

func (l Level) String() string {
	switch l {
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	case Rising:
		return "RISING"
	case Falling:
		return "FALLING"
	default:
		return "BLANK"
	}
}

// Steady collapses a transition level to the boolean value it represents,
// for use in combinational evaluation (spec §4.5 "collapsing RISING→HIGH,
// FALLING→LOW"). LOW, HIGH and BLANK pass through unchanged.
func (l Level) Steady() Level {
	switch l {
	case Rising:
		return High
	case Falling:
		return Low
	default:
		return l
	}
}

// NoPin is the sentinel output-pin ID representing a device's single
// unnamed output (spec §3 "output pin None"). It is distinct from any real
// pin ID ever interned since those are always non-negative.
const NoPin = names.NoID

// DuplicateError reports a make_* call for a device-name ID already present
// in the registry (invariant I2).
type DuplicateError struct {
	ID names.ID
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("devices: device id %d already exists", int(e.ID))
}

// NotFoundError reports an operation on a device-name ID not yet created.
type NotFoundError struct {
	ID names.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("devices: no device with id %d", int(e.ID))
}

// KindError reports an operation applied to a device of the wrong kind.
type KindError struct {
	ID   names.ID
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("devices: device %d is %s, not %s", int(e.ID), e.Got, e.Want)
}

// Device is one instantiated circuit element.
type Device struct {
	ID   names.ID
	Kind Kind

	// Inputs and Outputs map pin-name IDs to their currently visible signal
	// level. A device with a single unnamed output keys that output by
	// NoPin (spec §3).
	Inputs  map[names.ID]Level
	Outputs map[names.ID]Level

	// HalfPeriod and phase are CLOCK-only state: phase counts cycles down
	// to the next toggle, reset to HalfPeriod on every toggle.
	HalfPeriod int
	phase      int

	// PrevCLK and Initialized are DTYPE-only state: the CLK level sampled
	// at the end of the previous execute_network call, and whether Q has
	// been driven by at least one clock edge since the last cold-startup.
	PrevCLK     Level
	Initialized bool
}

// Devices is the registry of instantiated devices, keyed by device-name ID.
// It also owns the pre-declared pin-name IDs shared by every device of a
// given kind (spec §4.4).
type Devices struct {
	names *names.Table
	byID  map[names.ID]*Device

	pinI                                      [16]names.ID
	pinData, pinClk, pinSet, pinClear         names.ID
	pinQ, pinQBar                             names.ID
}

// New returns an empty registry, interning the fixed pin-name vocabulary
// into tab so that Name/Query on those strings always succeeds.
func New(tab *names.Table) *Devices {
	d := &Devices{names: tab, byID: make(map[names.ID]*Device)}
	for i := 0; i < 16; i++ {
		d.pinI[i] = tab.Intern(fmt.Sprintf("I%d", i+1))
	}
	d.pinData = tab.Intern("DATA")
	d.pinClk = tab.Intern("CLK")
	d.pinSet = tab.Intern("SET")
	d.pinClear = tab.Intern("CLEAR")
	d.pinQ = tab.Intern("Q")
	d.pinQBar = tab.Intern("QBAR")
	return d
}

// PinI returns the pre-declared ID for gate input pin "I<n>", 1 <= n <= 16.
func (d *Devices) PinI(n int) names.ID { return d.pinI[n-1] }

// PinData, PinClk, PinSet, PinClear, PinQ and PinQBar return the
// pre-declared D-type pin IDs.
func (d *Devices) PinData() names.ID  { return d.pinData }
func (d *Devices) PinClk() names.ID   { return d.pinClk }
func (d *Devices) PinSet() names.ID   { return d.pinSet }
func (d *Devices) PinClear() names.ID { return d.pinClear }
func (d *Devices) PinQ() names.ID     { return d.pinQ }
func (d *Devices) PinQBar() names.ID  { return d.pinQBar }

// Get returns the device registered under id, if any.
func (d *Devices) Get(id names.ID) (*Device, bool) {
	dev, ok := d.byID[id]
	return dev, ok
}

func (d *Devices) add(id names.ID, kind Kind) (*Device, error) {
	if _, exists := d.byID[id]; exists {
		return nil, &DuplicateError{ID: id}
	}
	dev := &Device{
		ID:      id,
		Kind:    kind,
		Inputs:  make(map[names.ID]Level),
		Outputs: make(map[names.ID]Level),
	}
	d.byID[id] = dev
	return dev, nil
}

// MakeSwitch registers id as a SWITCH with the given initial output level.
func (d *Devices) MakeSwitch(id names.ID, init Level) error {
	dev, err := d.add(id, Switch)
	if err != nil {
		return err
	}
	dev.Outputs[NoPin] = init
	return nil
}

// MakeClock registers id as a CLOCK with the given half-period in cycles.
func (d *Devices) MakeClock(id names.ID, halfPeriod int) error {
	dev, err := d.add(id, Clock)
	if err != nil {
		return err
	}
	dev.HalfPeriod = halfPeriod
	dev.phase = halfPeriod
	dev.Outputs[NoPin] = Low
	return nil
}

// MakeGate registers id as a gate of the given kind with nInputs input pins
// I1..InInputs, all BLANK until first connected and evaluated.
func (d *Devices) MakeGate(id names.ID, kind Kind, nInputs int) error {
	dev, err := d.add(id, kind)
	if err != nil {
		return err
	}
	for i := 0; i < nInputs; i++ {
		dev.Inputs[d.pinI[i]] = Blank
	}
	dev.Outputs[NoPin] = Blank
	return nil
}

// MakeDType registers id as a DTYPE with DATA/CLK/SET/CLEAR inputs and
// Q/QBAR outputs. Q starts at a random level (spec §4.5 "Initial Q is
// random on cold-startup until first clocked").
func (d *Devices) MakeDType(id names.ID) error {
	dev, err := d.add(id, DType)
	if err != nil {
		return err
	}
	dev.Inputs[d.pinData] = Blank
	dev.Inputs[d.pinClk] = Blank
	dev.Inputs[d.pinSet] = Blank
	dev.Inputs[d.pinClear] = Blank
	q := randomLevel()
	dev.Outputs[d.pinQ] = q
	dev.Outputs[d.pinQBar] = complement(q)
	dev.PrevCLK = Low
	return nil
}

// Tick advances a CLOCK device by one cycle: it decrements the phase
// counter and, on reaching zero, toggles the output and resets the counter
// to HalfPeriod (spec §4.5 step 2). Calling Tick on a non-CLOCK device is a
// caller error; Network only ever calls it on devices it found by kind.
func (dev *Device) Tick() {
	dev.phase--
	if dev.phase <= 0 {
		if dev.Outputs[NoPin].Steady() == High {
			dev.Outputs[NoPin] = Falling
		} else {
			dev.Outputs[NoPin] = Rising
		}
		dev.phase = dev.HalfPeriod
		return
	}
	dev.Outputs[NoPin] = dev.Outputs[NoPin].Steady()
}

func randomLevel() Level {
	if rand.Intn(2) == 0 {
		return Low
	}
	return High
}

// Complement returns the opposite steady level, used to derive QBAR from Q.
func Complement(l Level) Level {
	if l == High {
		return Low
	}
	return High
}

func complement(l Level) Level { return Complement(l) }

// SetSwitch sets the output level of the SWITCH device id.
func (d *Devices) SetSwitch(id names.ID, value Level) error {
	dev, ok := d.byID[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if dev.Kind != Switch {
		return &KindError{ID: id, Want: Switch, Got: dev.Kind}
	}
	dev.Outputs[NoPin] = value
	return nil
}

// ColdStartup re-initializes every CLOCK's phase counter and every DTYPE's
// Q/QBAR to a fresh random level; SWITCH state is left untouched, since a
// switch's position is driver-controlled rather than simulation-derived.
func (d *Devices) ColdStartup() {
	for _, dev := range d.byID {
		switch dev.Kind {
		case Clock:
			dev.phase = dev.HalfPeriod
			dev.Outputs[NoPin] = Low
		case DType:
			q := randomLevel()
			dev.Outputs[d.pinQ] = q
			dev.Outputs[d.pinQBar] = complement(q)
			dev.PrevCLK = Low
			dev.Initialized = false
		}
	}
}

// FindDevices returns the IDs of every device whose kind is one of kinds,
// in ascending ID order. With no kinds given, it returns every device.
func (d *Devices) FindDevices(kinds ...Kind) []names.ID {
	match := func(Kind) bool { return true }
	if len(kinds) > 0 {
		set := make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			set[k] = true
		}
		match = func(k Kind) bool { return set[k] }
	}

	var ids []names.ID
	for id, dev := range d.byID {
		if match(dev.Kind) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetSignalName renders (dev, pin) as "dev" for an unnamed pin, or
// "dev.pin" otherwise.
func (d *Devices) GetSignalName(dev, pin names.ID) (string, error) {
	devStr, err := d.names.Name(dev)
	if err != nil {
		return "", err
	}
	if devStr == "" {
		return "", &NotFoundError{ID: dev}
	}
	if pin == NoPin {
		return devStr, nil
	}
	pinStr, err := d.names.Name(pin)
	if err != nil {
		return "", err
	}
	return devStr + "." + pinStr, nil
}

// GetSignalIds is the inverse of GetSignalName: it resolves "dev" or
// "dev.pin" to their Name IDs via tab, without interning.
func (d *Devices) GetSignalIds(tab *names.Table, signal string) (dev, pin names.ID) {
	for i := 0; i < len(signal); i++ {
		if signal[i] == '.' {
			return tab.Query(signal[:i]), tab.Query(signal[i+1:])
		}
	}
	return tab.Query(signal), NoPin
}
