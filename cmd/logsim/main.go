package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/integrii/flaggy"
	"github.com/sirupsen/logrus"

	logsim "github.com/bunirules/logsim"
	"github.com/bunirules/logsim/devices"
)

var CmdLog = log.New(os.Stderr, filepath.Base(os.Args[0])+": ", 0)

func main() {
	flaggy.SetName("logsim")
	flaggy.SetDescription("Parse and simulate gate-level logic circuit definitions")

	var path string
	cycles := 10
	var verbose bool

	runCmd := flaggy.NewSubcommand("run")
	runCmd.Description = "Parse a circuit definition and run it for a number of cycles"
	runCmd.AddPositionalValue(&path, "path", 1, true, "circuit definition file (.txt)")
	runCmd.Int(&cycles, "n", "cycles", "number of simulation cycles to run")
	runCmd.Bool(&verbose, "v", "verbose", "log build and per-cycle diagnostics")
	flaggy.AttachSubcommand(runCmd, 1)

	checkCmd := flaggy.NewSubcommand("check")
	checkCmd.Description = "Parse a circuit definition and report errors without running it"
	checkCmd.AddPositionalValue(&path, "path", 1, true, "circuit definition file (.txt)")
	flaggy.AttachSubcommand(checkCmd, 1)

	flaggy.Parse()

	if !runCmd.Used && !checkCmd.Used {
		flaggy.ShowHelpAndExit("a subcommand (run or check) is required")
	}

	cfg := logsim.Config{Path: path, Cycles: cycles}
	if err := cfg.Valid(); err != nil {
		CmdLog.Fatal(err)
	}

	logger := logrus.New()
	if !verbose {
		logger.SetLevel(logrus.WarnLevel)
	}

	result, err := logsim.Build(cfg.Path, logger)
	if err != nil {
		CmdLog.Fatal(err)
	}
	if !result.OK {
		fmt.Println(result.ErrorText)
		os.Exit(1)
	}

	if checkCmd.Used {
		fmt.Println("circuit definition is valid")
		return
	}

	if !result.Circuit.Run(cfg.Cycles) {
		CmdLog.Fatal("network failed to settle: oscillation detected")
	}

	printTraces(result.Circuit)
}

// printTraces renders every monitored signal's trace as one line of
// colorized level glyphs, the minimal command-line stand-in for the GUI
// trace view spec §6.3 leaves to an external collaborator.
func printTraces(c *logsim.Circuit) {
	monitored, _ := c.SignalNames()
	for _, name := range monitored {
		dev, pin := c.ResolveSignal(name)
		mon, ok := c.Monitors.Get(dev, pin)
		if !ok {
			continue
		}
		fmt.Printf("%-16s ", name)
		for _, lvl := range mon.Trace {
			fmt.Print(levelColor(lvl).Sprint(levelGlyph(lvl)))
		}
		fmt.Println()
	}
}

func levelGlyph(lvl devices.Level) string {
	switch lvl {
	case devices.Low:
		return "_"
	case devices.High:
		return "‾"
	case devices.Rising:
		return "/"
	case devices.Falling:
		return "\\"
	default:
		return "."
	}
}

func levelColor(lvl devices.Level) *color.Color {
	switch lvl {
	case devices.High, devices.Rising:
		return color.New(color.FgGreen)
	case devices.Low, devices.Falling:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}
