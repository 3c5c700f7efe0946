// Package main provides a pointer to the real entry point.
// RISCV-VP is a RISC-V instruction-set simulator packaged as a virtual
// prototype: bus fabric, memory-mapped peripherals, and a choice of
// Simple-LT, 2-stage, or 6-stage CPU timing models.
//
// For the full CLI, use: go run ./cmd/riscvvp
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("RISCV-VP - RISC-V virtual prototype")
	fmt.Println("")
	fmt.Println("Usage: riscvvp -f <path-to-intel-hex> [-R 32|64] [-D] [-t <wall-seconds>] [--max-instr N]")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/riscvvp' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: you provided arguments. Use 'go run ./cmd/riscvvp' instead.")
	}
}
