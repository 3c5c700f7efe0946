// Command riscvvp runs an Intel-HEX bare-metal image against the
// simulator kernel (spec §6.1).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sarchlab/riscv-vp/loader"
	"github.com/sarchlab/riscv-vp/sim"
	"github.com/sarchlab/riscv-vp/timing/latency"
)

var (
	imagePath  = flag.String("f", "", "path to the Intel HEX image (required)")
	xlen       = flag.Int("R", 32, "register width: 32 or 64")
	gdbStub    = flag.Bool("D", false, "request a GDB stub (not implemented: prints a notice and runs to completion)")
	wallSecs   = flag.Int("t", 0, "wall-clock timeout in seconds (0 = unlimited)")
	maxInstr   = flag.Uint64("max-instr", 0, "instruction-count cap (0 = unlimited)")
	variant    = flag.String("variant", string(sim.VariantSixStage), "CPU variant: simple-lt, 2-stage, or 6-stage")
	configPath = flag.String("config", "", "path to a timing configuration JSON file")
)

func main() {
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "riscvvp: -f <path-to-intel-hex> is required")
		flag.Usage()
		os.Exit(1)
	}
	if *xlen != 32 && *xlen != 64 {
		fmt.Fprintln(os.Stderr, "riscvvp: -R must be 32 or 64")
		os.Exit(1)
	}

	prog, err := loader.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riscvvp: loading image: %v\n", err)
		os.Exit(1)
	}

	timingConfig := latency.DefaultTimingConfig()
	if *configPath != "" {
		timingConfig, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "riscvvp: loading timing config: %v\n", err)
			os.Exit(1)
		}
	}
	if ns, ok := envInt64("RVSIM_MEM_LAT_NS"); ok {
		timingConfig.MemLatencyNs = ns
	}

	if *gdbStub {
		fmt.Fprintln(os.Stderr, "riscvvp: -D (GDB stub) is not implemented by this build")
	}

	cfg := sim.Config{
		Variant:         sim.Variant(*variant),
		XLEN:            *xlen,
		Timing:          timingConfig,
		MaxInstructions: *maxInstr,
		WallTimeout:     time.Duration(*wallSecs) * time.Second,
		DisableDMI:      os.Getenv("DISABLE_DMI") != "",
		TraceStdout:     os.Getenv("TRACE_STDOUT") != "",
	}

	vp, err := sim.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "riscvvp: %v\n", err)
		os.Exit(1)
	}
	vp.LoadProgram(prog)

	exitCode, reason := vp.Run()
	if reason != sim.StopHalted {
		fmt.Fprintf(os.Stderr, "riscvvp: stopped (%s) before halting\n", reason)
	}

	os.Exit(int(exitCode))
}

func envInt64(name string) (int64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
