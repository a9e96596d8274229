package logsim_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logsim "github.com/bunirules/logsim"
	"github.com/bunirules/logsim/devices"
	"github.com/bunirules/logsim/scanner"
)

func writeCircuit(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "circuit.txt")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestConfigValid(t *testing.T) {
	assert.NoError(t, logsim.Config{Path: "circuit.txt", Cycles: 10}.Valid())
	assert.Error(t, logsim.Config{Path: "", Cycles: 10}.Valid())
	assert.Error(t, logsim.Config{Path: "circuit.txt", Cycles: -1}.Valid())
}

func TestBuildRejectsBadPath(t *testing.T) {
	_, err := logsim.Build(filepath.Join(t.TempDir(), "missing.txt"), silentLogger())
	require.Error(t, err)
}

func TestBuildReportsParseFailure(t *testing.T) {
	path := writeCircuit(t, `CIRCUIT { DEVICES { } CONNECT { } MONITOR { } }`)

	result, err := logsim.Build(path, silentLogger())
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.ErrorText)
}

func TestBuildAndRunSucceeds(t *testing.T) {
	path := writeCircuit(t, `
CIRCUIT {
DEVICES {
SW1 = SWITCH(1);
G1 = NOT;
}
CONNECT {
SW1 > G1.I1;
}
MONITOR {
G1;
}
}
END`)

	result, err := logsim.Build(path, silentLogger())
	require.NoError(t, err)
	require.True(t, result.OK, result.ErrorText)

	ok := result.Circuit.Run(5)
	require.True(t, ok)

	dev, pin := result.Circuit.ResolveSignal("G1")
	mon, found := result.Circuit.Monitors.Get(dev, pin)
	require.True(t, found)
	require.Len(t, mon.Trace, 5)
	for _, lvl := range mon.Trace {
		assert.Equal(t, devices.Low, lvl.Steady())
	}
}

func TestRunStopsOnOscillation(t *testing.T) {
	path := writeCircuit(t, `
CIRCUIT {
DEVICES {
G1 = NOT;
}
CONNECT {
G1 > G1.I1;
}
MONITOR {
G1;
}
}
END`)

	result, err := logsim.Build(path, silentLogger())
	require.NoError(t, err)
	require.True(t, result.OK, result.ErrorText)

	// A freshly built gate starts BLANK, and a BLANK self-feed would settle
	// trivially (BLANK in, BLANK out, no change) rather than oscillate.
	// Seed a determinate value so the NOT gate actually toggles every round.
	g1 := result.Circuit.Names.Query("G1")
	dev, ok := result.Circuit.Devices.Get(g1)
	require.True(t, ok)
	dev.Outputs[devices.NoPin] = devices.High

	assert.False(t, result.Circuit.Run(5))
}

func TestSignalNamesSplitsMonitoredAndNot(t *testing.T) {
	path := writeCircuit(t, `
CIRCUIT {
DEVICES {
SW1, SW2 = SWITCH(0);
}
CONNECT {
SW1 > SW2;
}
MONITOR {
}
}
END`)

	// SW1 > SW2 is an illegal output-to-output connection; use a file whose
	// parse fails to confirm ResolveSignal/SignalNames stay usable even
	// without a clean build, since they only read from Devices/Monitors.
	result, err := logsim.Build(path, silentLogger())
	require.NoError(t, err)
	assert.False(t, result.OK)

	_, notMonitored := result.Circuit.SignalNames()
	assert.Contains(t, notMonitored, "SW1")
	assert.Contains(t, notMonitored, "SW2")
}

func TestScannerRejectsNonTxtExtensionThroughBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "circuit.dat")
	require.NoError(t, os.WriteFile(path, []byte("CIRCUIT"), 0o644))

	_, err := logsim.Build(path, silentLogger())
	require.Error(t, err)
	// Build wraps the scanner's FileError with a stack trace; the
	// underlying cause must still be reachable for driver-level reporting.
	var fe *scanner.FileError
	assert.ErrorAs(t, err, &fe)
}
