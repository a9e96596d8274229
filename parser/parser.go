// Package parser drives a Scanner through the circuit definition grammar,
// resolving identifiers through a Names table and invoking Devices,
// Network and Monitors to build the circuit the source describes (spec
// §4.3). Every violation is accumulated as a diagnostic rather than
// raised; parsing always runs to EOF.
package parser

import (
	"fmt"
	"strings"

	"github.com/bunirules/logsim/devices"
	"github.com/bunirules/logsim/monitor"
	"github.com/bunirules/logsim/names"
	"github.com/bunirules/logsim/network"
	"github.com/bunirules/logsim/scanner"
)

const keywordList = "'CIRCUIT', 'DEVICES', 'CONNECT', 'MONITOR', 'END', " +
	"'CLOCK', 'SWITCH', 'AND', 'NAND', 'OR', 'NOR', 'XOR', 'NOT', 'DTYPE'"

type nameKind int

const (
	nameKindDevice nameKind = iota
	nameKindPin
)

// pinPoint is one parsed "name [ '.' name ]" point, holding the pin token
// when present and a fallback anchor (the device token) when it is not —
// a dot-less point denotes a device's single unnamed pin (devices.NoPin).
type pinPoint struct {
	Symbol scanner.Symbol
	HasPin bool
}

// Parser parses one circuit definition source against a Names table and
// the Devices/Network/Monitors it mutates.
type Parser struct {
	names    *names.Table
	devices  *devices.Devices
	network  *network.Network
	monitors *monitor.Monitors
	scanner  *scanner.Scanner

	symbol scanner.Symbol

	hadError   bool
	errorCount int
	skip       bool
	errText    strings.Builder

	curDeviceNames []scanner.Symbol
	curPinNames    []pinPoint
	curArrow       scanner.Symbol
	curAttribute   int

	kwCircuit, kwDevices, kwConnect, kwMonitor, kwEnd names.ID
	kwClock, kwSwitch, kwAnd, kwNand, kwOr, kwNor      names.ID
	kwXor, kwNot, kwDtype                              names.ID
}

// New returns a Parser positioned at the first Symbol of sc.
func New(tab *names.Table, d *devices.Devices, net *network.Network, mons *monitor.Monitors, sc *scanner.Scanner) *Parser {
	p := &Parser{
		names: tab, devices: d, network: net, monitors: mons, scanner: sc,
		kwCircuit: tab.Intern("CIRCUIT"),
		kwDevices: tab.Intern("DEVICES"),
		kwConnect: tab.Intern("CONNECT"),
		kwMonitor: tab.Intern("MONITOR"),
		kwEnd:     tab.Intern("END"),
		kwClock:   tab.Intern("CLOCK"),
		kwSwitch:  tab.Intern("SWITCH"),
		kwAnd:     tab.Intern("AND"),
		kwNand:    tab.Intern("NAND"),
		kwOr:      tab.Intern("OR"),
		kwNor:     tab.Intern("NOR"),
		kwXor:     tab.Intern("XOR"),
		kwNot:     tab.Intern("NOT"),
		kwDtype:   tab.Intern("DTYPE"),
	}
	p.symbol = sc.GetSymbol()
	return p
}

// ErrorCount returns the number of diagnostics accumulated so far.
func (p *Parser) ErrorCount() int { return p.errorCount }

// ErrorText returns the accumulated diagnostic text, each entry separated
// by a blank line, ending with "Error Count: N" once Parse has returned.
func (p *Parser) ErrorText() string { return p.errText.String() }

// reportError is the sole diagnostic sink: it marks the parse as failed,
// prints a three-section message anchored at anchor (or the current
// lookahead symbol when anchor is nil), and resynchronizes by consuming
// tokens until one spelled stop is reached (or leaves the cursor alone
// when stop is nil), matching the stopping-symbol discipline of spec §4.3.
func (p *Parser) reportError(message string, stop *string, anchor *scanner.Symbol) {
	sym := p.symbol
	if anchor != nil {
		sym = *anchor
	}
	p.hadError = true
	p.errorCount++
	out := p.scanner.PrintError(sym, message)
	if stop != nil {
		for p.symbol.Text != *stop && p.symbol.Kind != scanner.EOF {
			p.symbol = p.scanner.GetSymbol()
		}
	}
	p.errText.WriteString("\n\n")
	p.errText.WriteString(out)
}

var semicolon = ";"

// error reports message anchored at the current symbol and resynchronizes
// to the next semicolon.
func (p *Parser) error(message string) {
	p.reportError(message, &semicolon, nil)
}

// errorStop is like error but resynchronizes to stop instead of ";".
func (p *Parser) errorStop(message, stop string) {
	p.reportError(message, &stop, nil)
}

// errorNoAdvance reports message anchored at the current symbol without
// consuming any tokens — the caller is responsible for recovery.
func (p *Parser) errorNoAdvance(message string) {
	p.reportError(message, nil, nil)
}

// errorAnchored reports message anchored at a specific symbol, typically
// one captured earlier in the production, without consuming tokens.
func (p *Parser) errorAnchored(message string, anchor scanner.Symbol) {
	p.reportError(message, nil, &anchor)
}

// Parse runs the full grammar over the scanner supplied to New. It returns
// true iff no diagnostic was ever reported (spec §4.3 "Return").
func (p *Parser) Parse() bool {
	p.circuit()
	if p.symbol.Kind == scanner.Keyword && p.symbol.ID == p.kwEnd {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.error("Expected 'END'")
	}
	p.errText.WriteString("\n\n")
	fmt.Fprintf(&p.errText, "Error Count: %d", p.errorCount)
	return !p.hadError
}

func (p *Parser) circuit() {
	if p.symbol.Kind == scanner.Keyword && p.symbol.ID == p.kwCircuit {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorStop("Expected 'CIRCUIT'", "{")
	}
	if p.symbol.Kind == scanner.BraceLeft {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorNoAdvance("Expected '{'")
	}

	p.deviceList()
	p.connectionList()
	p.monitorList()

	if p.symbol.Kind == scanner.BraceRight {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorNoAdvance("Expected '}'")
	}
}

func (p *Parser) deviceList() {
	rightBrace := true
	if p.symbol.Kind == scanner.Keyword && p.symbol.ID == p.kwDevices {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorStop("Expected 'DEVICES'", "{")
	}
	if p.symbol.Kind == scanner.BraceLeft {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorNoAdvance("Expected '{'")
	}

	p.device()
	for p.symbol.Kind != scanner.BraceRight && p.symbol.Kind != scanner.EOF {
		if p.symbol.ID == p.kwConnect {
			check := p.scanner.GetSymbol()
			if check.Kind == scanner.BraceLeft {
				p.skip = true
				p.errorNoAdvance("Expected '}'")
				p.symbol = check
				rightBrace = false
				break
			}
			p.error("Device names cannot be Keywords: " + keywordList)
			p.symbol = p.scanner.GetSymbol()
		}
		p.device()
	}
	if rightBrace {
		p.symbol = p.scanner.GetSymbol()
	}
}

func (p *Parser) device() {
	p.curDeviceNames = nil
	if !p.deviceName() {
		p.closeDevice()
		return
	}

	validList := true
	for p.symbol.Kind == scanner.Comma && validList {
		p.symbol = p.scanner.GetSymbol()
		validList = p.deviceName()
	}
	if !validList {
		p.closeDevice()
		return
	}

	if p.symbol.Kind != scanner.Equals {
		p.error("Expected '=' or ','")
		p.closeDevice()
		return
	}
	p.symbol = p.scanner.GetSymbol()

	switch {
	case p.symbol.ID == p.kwClock:
		p.symbol = p.scanner.GetSymbol()
		p.clockParams()
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeClock(id, p.curAttribute)
			}
		}
	case p.symbol.ID == p.kwSwitch:
		p.symbol = p.scanner.GetSymbol()
		p.switchParams()
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeSwitch(id, devices.Level(p.curAttribute))
			}
		}
	case p.symbol.ID == p.kwAnd:
		p.symbol = p.scanner.GetSymbol()
		p.gateParams("AND")
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeGate(id, devices.And, p.curAttribute)
			}
		}
	case p.symbol.ID == p.kwNand:
		p.symbol = p.scanner.GetSymbol()
		p.gateParams("NAND")
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeGate(id, devices.Nand, p.curAttribute)
			}
		}
	case p.symbol.ID == p.kwOr:
		p.symbol = p.scanner.GetSymbol()
		p.gateParams("OR")
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeGate(id, devices.Or, p.curAttribute)
			}
		}
	case p.symbol.ID == p.kwNor:
		p.symbol = p.scanner.GetSymbol()
		p.gateParams("NOR")
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeGate(id, devices.Nor, p.curAttribute)
			}
		}
	case p.symbol.ID == p.kwDtype:
		p.symbol = p.scanner.GetSymbol()
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeDType(id)
			}
		}
	case p.symbol.ID == p.kwXor:
		p.symbol = p.scanner.GetSymbol()
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeGate(id, devices.Xor, 2)
			}
		}
	case p.symbol.ID == p.kwNot:
		p.symbol = p.scanner.GetSymbol()
		if !p.hadError {
			for _, id := range p.internDeviceNames() {
				p.devices.MakeGate(id, devices.Not, 1)
			}
		}
	default:
		p.error("Not a supported device, supported devices: CLOCK, SWITCH, AND, NAND, OR, NOR, DTYPE, XOR, NOT")
	}

	p.closeDevice()
}

func (p *Parser) closeDevice() {
	if p.symbol.Kind == scanner.Semicolon {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorNoAdvance("Expected ';'")
	}
}

// internDeviceNames resolves every collected device-name token into a
// Name ID, interning new strings (spec §4.1 "lookup"). Called only while no
// error has been reported so far, so the collected names are guaranteed
// syntactically valid.
func (p *Parser) internDeviceNames() []names.ID {
	strs := make([]string, len(p.curDeviceNames))
	for i, sym := range p.curDeviceNames {
		strs[i] = sym.Text
	}
	return p.names.InternMany(strs)
}

func (p *Parser) deviceName() bool { return p.parseName(nameKindDevice) }
func (p *Parser) pinName() bool    { return p.parseName(nameKindPin) }

func (p *Parser) parseName(kind nameKind) bool {
	switch p.symbol.Kind {
	case scanner.Name:
		sym := p.symbol
		if !p.hadError {
			switch kind {
			case nameKindDevice:
				p.curDeviceNames = append(p.curDeviceNames, sym)
			case nameKindPin:
				p.curPinNames = append(p.curPinNames, pinPoint{Symbol: sym, HasPin: true})
			}
		}
		p.symbol = p.scanner.GetSymbol()
		return true
	case scanner.Keyword:
		p.error("Names cannot be Keywords: " + keywordList)
		return false
	default:
		if kind == nameKindDevice {
			p.error("Device names must start with a letter and be alphanumeric")
		} else {
			p.error("Pin names must start with a letter and be alphanumeric")
		}
		return false
	}
}

func (p *Parser) clockParams() {
	if p.symbol.Kind != scanner.ParenLeft {
		p.error("Expected '('")
		return
	}
	p.symbol = p.scanner.GetSymbol()
	if p.symbol.Kind != scanner.Number && p.symbol.Kind != scanner.Zero {
		p.error("Expected a number n > 0, the number of simulation cycles after which the state changes")
		return
	}
	num := p.symbol.Num
	if num <= 0 {
		p.skip = true
		p.error("Clock half period must be greater than 0")
	}
	if !p.hadError {
		p.curAttribute = num
	}
	if !p.skip {
		p.symbol = p.scanner.GetSymbol()
		if p.symbol.Kind == scanner.ParenRight {
			p.symbol = p.scanner.GetSymbol()
		} else {
			p.error("Expected ')'")
		}
	}
	p.skip = false
}

func (p *Parser) switchParams() {
	if p.symbol.Kind != scanner.ParenLeft {
		p.error("Expected '('")
		return
	}
	p.symbol = p.scanner.GetSymbol()
	isZero := p.symbol.Kind == scanner.Zero
	isOne := p.symbol.Kind == scanner.Number && p.symbol.Num == 1
	if !isZero && !isOne {
		p.error("Expected state, either 0(OFF) or 1(ON)")
		return
	}
	if !p.hadError {
		p.curAttribute = p.symbol.Num
	}
	p.symbol = p.scanner.GetSymbol()
	if p.symbol.Kind == scanner.ParenRight {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.error("Expected ')'")
	}
}

func (p *Parser) gateParams(label string) {
	if p.symbol.Kind != scanner.ParenLeft {
		p.error("Expected '('")
		return
	}
	p.symbol = p.scanner.GetSymbol()
	if p.symbol.Kind != scanner.Number && p.symbol.Kind != scanner.Zero {
		p.error(fmt.Sprintf("Expected number of inputs for %s gate (valid range: 1-16)", label))
		return
	}
	num := p.symbol.Num
	if num < 1 || num > 16 {
		p.skip = true
		p.error("Number of inputs must be between 1-16")
	}
	if !p.hadError {
		p.curAttribute = num
	}
	if !p.skip {
		p.symbol = p.scanner.GetSymbol()
		if p.symbol.Kind == scanner.ParenRight {
			p.symbol = p.scanner.GetSymbol()
		} else {
			p.error("Expected ')'")
		}
	}
	p.skip = false
}

func (p *Parser) connectionList() {
	connectSym := p.symbol
	rightBrace := true
	if !p.skip {
		if p.symbol.Kind == scanner.Keyword && p.symbol.ID == p.kwConnect {
			p.symbol = p.scanner.GetSymbol()
		} else {
			p.errorStop("Expected 'CONNECT'", "{")
		}
	}
	p.skip = false

	if p.symbol.Kind == scanner.BraceLeft {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorNoAdvance("Expected '{'")
	}

	p.con()
	for p.symbol.Kind != scanner.BraceRight && p.symbol.Kind != scanner.EOF {
		if p.symbol.ID == p.kwMonitor {
			check := p.scanner.GetSymbol()
			if check.Kind == scanner.BraceLeft {
				p.skip = true
				p.errorNoAdvance("Expected '}'")
				p.symbol = check
				rightBrace = false
				break
			}
			p.error("Device names cannot be Keywords: " + keywordList)
			p.symbol = p.scanner.GetSymbol()
		}
		p.con()
	}

	if !p.hadError {
		if unconnected := p.network.CheckNetwork(); unconnected != "" {
			p.errorAnchored("unconnected inputs: "+unconnected, connectSym)
		}
	}

	if rightBrace {
		p.symbol = p.scanner.GetSymbol()
	}
}

func (p *Parser) con() {
	p.curDeviceNames = nil
	p.curPinNames = nil

	var outDeviceSym, outPinSym scanner.Symbol
	var outDeviceID, outPinID names.ID

	if p.point() {
		if !p.hadError {
			outDeviceSym = p.curDeviceNames[0]
			outDeviceID = p.names.Query(outDeviceSym.Text)
			if p.curPinNames[0].HasPin {
				outPinSym = p.curPinNames[0].Symbol
				outPinID = p.names.Query(outPinSym.Text)
			} else {
				outPinSym = p.curPinNames[0].Symbol
				outPinID = devices.NoPin
			}
			p.curDeviceNames = nil
			p.curPinNames = nil
		}

		if p.symbol.Kind == scanner.Arrow {
			p.curArrow = p.symbol
			p.symbol = p.scanner.GetSymbol()
			p.point()
			for p.symbol.Kind == scanner.Comma {
				p.symbol = p.scanner.GetSymbol()
				p.point()
			}
			if p.symbol.Kind != scanner.Semicolon {
				if p.symbol.Kind == scanner.BraceRight {
					p.skip = true
					p.errorNoAdvance("Expected ';'")
				} else {
					p.error("Expected '.' or ',' or ';'")
				}
			}
		} else {
			p.error("Expected '>'")
		}
	}

	if !p.hadError {
		for i, devSym := range p.curDeviceNames {
			inDevID := p.names.Query(devSym.Text)
			var inPinID names.ID
			if p.curPinNames[i].HasPin {
				inPinID = p.names.Query(p.curPinNames[i].Symbol.Text)
			} else {
				inPinID = devices.NoPin
			}
			code := p.network.MakeConnection(outDeviceID, outPinID, inDevID, inPinID)
			if code == network.NoError {
				continue
			}
			switch code {
			case network.InputConnected, network.PortAbsent2:
				p.errorAnchored(code.Message(), p.curPinNames[i].Symbol)
			case network.OutputToOutput:
				p.errorAnchored(code.Message(), devSym)
			case network.DeviceAbsent2:
				p.errorAnchored(code.Message(), devSym)
			case network.DeviceAbsent1:
				p.errorAnchored(code.Message(), outDeviceSym)
			case network.PortAbsent1:
				p.errorAnchored(code.Message(), outPinSym)
			default:
				p.errorAnchored(code.Message(), p.curArrow)
			}
			break
		}
	}

	if !p.skip {
		if p.symbol.Kind == scanner.Semicolon {
			p.symbol = p.scanner.GetSymbol()
		} else {
			p.errorNoAdvance("Expected ';'")
		}
	}
	p.skip = false
}

// point parses "name [ '.' name ]", appending the resolved device token to
// curDeviceNames and the pin token (or a dot-less placeholder anchored at
// the device token) to curPinNames.
func (p *Parser) point() bool {
	devSym := p.symbol
	if !p.deviceName() {
		return false
	}
	if p.symbol.Kind == scanner.Dot {
		p.symbol = p.scanner.GetSymbol()
		return p.pinName()
	}
	p.curPinNames = append(p.curPinNames, pinPoint{Symbol: devSym, HasPin: false})
	return true
}

func (p *Parser) monitorList() {
	rightBrace := true
	if !p.skip {
		if p.symbol.Kind == scanner.Keyword && p.symbol.ID == p.kwMonitor {
			p.symbol = p.scanner.GetSymbol()
		} else {
			p.errorStop("Expected 'MONITOR'", "{")
		}
	}
	p.skip = false

	if p.symbol.Kind != scanner.BraceLeft {
		p.errorNoAdvance("Expected '{'")
		return
	}
	p.symbol = p.scanner.GetSymbol()
	p.monitor()

	for p.symbol.Kind != scanner.BraceRight && p.symbol.Kind != scanner.EOF {
		if p.symbol.ID == p.kwEnd {
			p.errorNoAdvance("Expected '}'")
			rightBrace = false
			break
		}
		p.monitor()
	}
	if rightBrace {
		p.symbol = p.scanner.GetSymbol()
	}
}

func (p *Parser) monitor() {
	p.curDeviceNames = nil
	p.curPinNames = nil
	p.point()
	if !p.hadError && len(p.curDeviceNames) > 0 && len(p.curPinNames) > 0 {
		devID := p.names.Query(p.curDeviceNames[0].Text)
		var pinID names.ID
		if p.curPinNames[0].HasPin {
			pinID = p.names.Query(p.curPinNames[0].Symbol.Text)
		} else {
			pinID = devices.NoPin
		}
		code := p.monitors.MakeMonitor(devID, pinID, 0)
		if code != monitor.NoError {
			p.errorNoAdvance(code.Message())
		}
	}
	if p.symbol.Kind == scanner.Semicolon {
		p.symbol = p.scanner.GetSymbol()
	} else {
		p.errorNoAdvance("Expected ';'")
	}
}
