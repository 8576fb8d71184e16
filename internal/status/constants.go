// internal/status/constants.go
package status

// Mirror block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of register slots per block.
// Block 0 carries loop data; block n carries one device.
const SlotsPerDevice = 20

// ---- DEVICE SLOT INDICES ----

// SlotHealthCode holds the device health state.
const SlotHealthCode = 0

// SlotMissedCycles holds consecutive cycles without a reply.
const SlotMissedCycles = 1

// SlotBus holds the bus the device answered on.
const SlotBus = 2

// StatusSlots is the prefix written even when the device is absent.
const StatusSlots = 3

// SlotMode holds the controller mode register.
const SlotMode = 3

// SlotFault holds the controller fault register.
const SlotFault = 4

// Slot 5 is reserved.

// Float32 values, two slots each, high word first.
const (
	SlotPosition    = 6
	SlotVelocity    = 8
	SlotTorque      = 10
	SlotVoltage     = 12
	SlotTemperature = 14
)

// Slots 16-19 are reserved for future use.

// ---- LOOP SLOT INDICES (BLOCK 0) ----

// SlotCycleCount holds the cycle sequence as uint32, high word first.
const SlotCycleCount = 0

// SlotRate holds the cycle rate in Hz x100.
const SlotRate = 2

// SlotTimeouts holds total missed replies as uint32, high word first.
const SlotTimeouts = 3

// SlotPresent holds the number of devices that answered the last cycle.
const SlotPresent = 5

// SlotTracked holds the number of devices in the poll set.
const SlotTracked = 6

// ---- LIMITS ----

// MaxMissed is where the missed-cycle counter saturates.
const MaxMissed = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents a device that never answered.
const HealthUnknown uint16 = 0

// HealthOK represents a device that answered the last cycle.
const HealthOK uint16 = 1

// HealthStale represents a device that answered before but not in the last cycle.
const HealthStale uint16 = 3
