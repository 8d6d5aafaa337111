// internal/status/constants.go
package status

// Tracker Status Block layout constants.
// These values define the register map and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of holding registers per tracker.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the tracker health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last report error code (HTTP status when known).
const SlotLastErrorCode = 1

// SlotSecondsSinceReport holds seconds since the last successful position report.
const SlotSecondsSinceReport = 2

// SlotTrackingState holds 1 while the loop is running, 0 otherwise.
const SlotTrackingState = 3

// SlotActiveOrder holds 1 while an order is in transit.
const SlotActiveOrder = 4

// LiveSlots is the number of leading slots rewritten incrementally.
const LiveSlots = 5

// ---- RESERVED RANGE ----

// Slots 5-11 are reserved and always zero.
const SlotReservedStart = 5
const SlotReservedEnd = 11

// ---- DEVICE NAME ----

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameStart is the first device name slot. The name always
// occupies the last SlotDeviceNameSlots slots of the block.
const SlotDeviceNameStart = SlotsPerDevice - SlotDeviceNameSlots

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// SecondsMax is the saturation value for SlotSecondsSinceReport.
const SecondsMax uint16 = 65535

// ---- HEALTH CODES ----

// HealthUnknown means running but no report has completed yet.
const HealthUnknown uint16 = 0

// HealthOK means the last report succeeded recently.
const HealthOK uint16 = 1

// HealthError means the last report failed.
const HealthError uint16 = 2

// HealthStale means reports succeed but not recently enough.
const HealthStale uint16 = 3

// HealthDisabled means tracking is stopped.
const HealthDisabled uint16 = 4
