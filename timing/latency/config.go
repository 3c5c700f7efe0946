package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the latency values consulted by the pipelined CPU
// variants (spec §4.6, §4.7, §4.8).
type TimingConfig struct {
	// ALULatency is the execution latency for base-integer ALU ops.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the execution latency for branch and jump
	// resolution. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is the pipeline-side execution latency billed for a
	// load, on top of whatever the bus transaction itself takes.
	// Default: 1 cycle.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the pipeline-side execution latency for a store.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MulLatency is the latency for M-extension multiply operations.
	// Default: 3 cycles.
	MulLatency uint64 `json:"mul_latency"`

	// DivLatencyMin/DivLatencyMax bound the latency for M-extension
	// divide operations; the 6-stage pipeline bills DivLatencyMax since
	// it has no data-dependent early-out. Defaults: 8/16 cycles.
	DivLatencyMin uint64 `json:"div_latency_min"`
	DivLatencyMax uint64 `json:"div_latency_max"`

	// SyscallLatency is the latency for ECALL/EBREAK handling.
	// Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency"`

	// IRQLatencyCycles is the number of stall cycles billed when an
	// interrupt is taken (spec §4.8). Default: 2 cycles.
	IRQLatencyCycles uint64 `json:"irq_latency_cycles"`

	// MemLatencyNs is the main-memory bus transaction latency in
	// nanoseconds, overridable by RVSIM_MEM_LAT_NS (spec §6.1).
	// Default: 10 ns.
	MemLatencyNs int64 `json:"mem_latency_ns"`

	// DMALatencyNs is a per-beat DMA latency that is loaded, saved and
	// validated with the rest of the config; the DMA engine does not read
	// it. Default: 20 ns.
	DMALatencyNs int64 `json:"dma_latency_ns"`
}

// DefaultTimingConfig returns a TimingConfig with the simulator's default
// latency values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:       1,
		BranchLatency:    1,
		LoadLatency:      1,
		StoreLatency:     1,
		MulLatency:       3,
		DivLatencyMin:    8,
		DivLatencyMax:    16,
		SyscallLatency:   1,
		IRQLatencyCycles: 2,
		MemLatencyNs:     10,
		DMALatencyNs:     20,
	}
}

// LoadConfig loads a TimingConfig from a JSON file, starting from the
// defaults so an incomplete file still produces a valid config.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are usable.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.SyscallLatency == 0 {
		return fmt.Errorf("syscall_latency must be > 0")
	}
	if c.IRQLatencyCycles == 0 {
		return fmt.Errorf("irq_latency_cycles must be > 0")
	}
	if c.DivLatencyMin > c.DivLatencyMax {
		return fmt.Errorf("div_latency_min must be <= div_latency_max")
	}
	if c.MemLatencyNs < 0 || c.DMALatencyNs < 0 {
		return fmt.Errorf("latencies in nanoseconds must be >= 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
