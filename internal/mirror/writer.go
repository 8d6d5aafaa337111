// internal/mirror/writer.go
package mirror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/domipancho/courier-tracker/internal/status"
)

// RegisterWriter is the transport the mirror writes through.
// *EndpointClient satisfies it.
type RegisterWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Plan says where the status block lives.
type Plan struct {
	UnitID     uint8
	Slot       uint16 // block index; base address is Slot * SlotsPerDevice
	DeviceName string
}

// Writer delivers status snapshots into holding registers.
// It receives a snapshot and writes it verbatim; it does not derive health.
type Writer struct {
	plan Plan
	cli  RegisterWriter

	needFull bool
	last     []uint16
	nameRegs []uint16
}

func NewWriter(plan Plan, cli RegisterWriter) (*Writer, error) {
	if cli == nil {
		return nil, errors.New("mirror: register writer required")
	}
	if (uint32(plan.Slot)+1)*status.SlotsPerDevice > 65536 {
		return nil, fmt.Errorf("mirror: slot %d out of address range", plan.Slot)
	}

	return &Writer{
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first write
		last:     make([]uint16, status.LiveSlots),
		nameRegs: status.EncodeDeviceName(plan.DeviceName),
	}, nil
}

// WriteStatus delivers a snapshot. The first call writes the whole block;
// later calls write only slots that changed. On any failure the next call
// re-asserts the whole block.
func (w *Writer) WriteStatus(s status.Snapshot) error {
	base := w.baseAddr()
	live := status.EncodeLive(s)

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if w.needFull {
		regs := make([]uint16, status.SlotsPerDevice)
		copy(regs, live)
		copy(regs[status.SlotDeviceNameStart:], w.nameRegs)

		if err := w.cli.WriteRegisters(w.plan.UnitID, base, regs); err != nil {
			return fmt.Errorf("mirror: full block write failed: %w", err)
		}

		w.needFull = false
		copy(w.last, live)
		return nil
	}

	var errs []string

	for slot, v := range live {
		if w.last[slot] == v {
			continue
		}
		if err := w.cli.WriteRegisters(w.plan.UnitID, base+uint16(slot), []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		w.last[slot] = v
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt, re-assert on next write.
		w.needFull = true
		return errors.New("mirror: " + strings.Join(errs, " | "))
	}

	return nil
}

func (w *Writer) baseAddr() uint16 {
	return w.plan.Slot * status.SlotsPerDevice
}
