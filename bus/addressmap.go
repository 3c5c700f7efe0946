package bus

// Default address map (§6.2): the base and size of every window the fabric
// routes on. Per-target register offsets are owned by the peripherals
// package.
const (
	ClintBase    = 0x0200_0000
	ClintSize    = 64 * 1024
	PlicBase     = 0x0C00_0000
	PlicSize     = 4 * 1024 * 1024
	UARTBase     = 0x1000_0000
	UARTSize     = 256
	DMABase      = 0x3000_0000
	DMASize      = 4 * 1024
	TraceBase    = 0x4000_0000
	TraceSize    = 4
	LegacyTimerBase = 0x4000_4000
	LegacyTimerSize = 16
	SyscallHookBase = 0x8000_0000
	SyscallHookSize = 4 * 1024
	ToHostAddr      = 0x8000_1000
	LegacyToHostAddr = 0x9000_0000

	// MemoryBase is where the implementation relocates main memory, per
	// §6.2's note that the implementer may choose the backing window. It
	// deliberately coincides with UARTBase: the fabric checks registered
	// peripheral ranges before falling back to memory, so UART's 256-byte
	// window is carved out of memory's nominal start rather than
	// colliding with it.
	MemoryBase = 0x1000_0000
)
