// Package logsim is the root façade over the circuit-definition front end
// and gate-level simulation kernel: it composes Names, Devices, Network,
// Monitors and Parser into the single entry point an external driver needs
// (spec §9 "one top-level owner"), the way part5.go composes info/session/
// track for the teacher's protocol stack.
package logsim

import (
	"errors"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/bunirules/logsim/devices"
	"github.com/bunirules/logsim/monitor"
	"github.com/bunirules/logsim/names"
	"github.com/bunirules/logsim/network"
	"github.com/bunirules/logsim/parser"
	"github.com/bunirules/logsim/scanner"
)

// Config holds the minimal external configuration a driver supplies: the
// circuit definition path and how many cycles to run it for, the same
// exported-fields-plus-Valid() shape as the teacher's session.Config.
type Config struct {
	Path   string
	Cycles int
}

// Valid reports whether c can be used to Build and Run a Circuit.
func (c Config) Valid() error {
	if c.Path == "" {
		return errors.New("logsim: path is required")
	}
	if c.Cycles < 0 {
		return errors.New("logsim: cycles must be non-negative")
	}
	return nil
}

// Circuit owns the fully-wired object graph for one circuit definition:
// its interned names, instantiated devices, connection graph and monitor
// traces. It is the unit a driver builds once and then repeatedly Runs.
type Circuit struct {
	Names    *names.Table
	Devices  *devices.Devices
	Network  *network.Network
	Monitors *monitor.Monitors

	log *logrus.Logger
}

// BuildResult is the outcome of Build: either a usable Circuit with OK set,
// or a Circuit whose devices/network may be partially wired with OK unset
// (spec §7 "parse_network returns false if any error occurred"). ErrorText
// always holds the parser's accumulated diagnostics followed by its
// "Error Count: N" line; on success it is just "Error Count: 0".
type BuildResult struct {
	Circuit   *Circuit
	OK        bool
	ErrorText string
}

// Build reads the circuit definition at path and parses it against a fresh
// Names/Devices/Network/Monitors graph. A non-nil error means construction
// itself failed abruptly (bad path, wrong extension) — spec §7's
// ResourceError class, not a reportable parse diagnostic. log receives
// build diagnostics; a nil log defaults to logrus.StandardLogger().
func Build(path string, log *logrus.Logger) (*BuildResult, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	tab := names.NewWithKeywords()
	sc, err := scanner.New(path, tab)
	if err != nil {
		return nil, goerrors.Wrap(err, 1)
	}

	d := devices.New(tab)
	net := network.New(d)
	mons := monitor.New(d)
	p := parser.New(tab, d, net, mons, sc)

	log.WithField("path", path).Info("parsing circuit definition")
	ok := p.Parse()
	if ok {
		log.Info("circuit definition parsed successfully")
	} else {
		log.WithField("errors", p.ErrorCount()).Warn("circuit definition failed to parse")
	}

	c := &Circuit{Names: tab, Devices: d, Network: net, Monitors: mons, log: log}
	return &BuildResult{Circuit: c, OK: ok, ErrorText: p.ErrorText()}, nil
}

// Run advances the simulation by cycles steps, recording every monitor's
// trace after each successful step. It stops and returns false at the
// first cycle that fails to settle (spec §4.5 "execute_network returns
// false on oscillation"), leaving the traces recorded up to that point.
func (c *Circuit) Run(cycles int) bool {
	for i := 0; i < cycles; i++ {
		if !c.Network.ExecuteNetwork() {
			c.log.WithField("cycle", i).Error("network failed to settle: oscillation detected")
			return false
		}
		c.Monitors.RecordSignals()
	}
	return true
}

// SignalNames returns every device output's "dev" / "dev.pin" name, split
// into monitored and not-monitored, each sorted (spec §4.6).
func (c *Circuit) SignalNames() (monitored, notMonitored []string) {
	return c.Monitors.GetSignalNames()
}

// ResolveSignal resolves a "dev" or "dev.pin" string, as returned by
// SignalNames, back to the Name IDs Monitors.Get expects.
func (c *Circuit) ResolveSignal(signal string) (dev, pin names.ID) {
	return c.Devices.GetSignalIds(c.Names, signal)
}
