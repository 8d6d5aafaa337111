// internal/status/encode.go
package status

// Encode converts a Snapshot and device name into a full status block.
// Layout is fixed. No IO. No side effects.
func Encode(s Snapshot, deviceName string) []uint16 {
	regs := make([]uint16, SlotsPerDevice)
	copy(regs, EncodeLive(s))

	// reserved slots stay zero

	copy(regs[SlotDeviceNameStart:], EncodeDeviceName(deviceName))
	return regs
}

// EncodeLive returns the LiveSlots leading registers.
func EncodeLive(s Snapshot) []uint16 {
	regs := make([]uint16, LiveSlots)
	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsSinceReport] = s.SecondsSinceReport
	regs[SlotTrackingState] = s.Tracking
	regs[SlotActiveOrder] = s.ActiveOrder
	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 uint16 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
