// internal/mirror/writer_test.go
package mirror

import (
	"errors"
	"testing"

	"github.com/domipancho/courier-tracker/internal/status"
)

// ---- fake register writer ----

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeRegisterWriter struct {
	writes []writeCall
	fail   bool
}

func (f *fakeRegisterWriter) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.fail {
		return errors.New("connection reset")
	}
	cp := append([]uint16(nil), regs...)
	f.writes = append(f.writes, writeCall{unitID: unitID, addr: addr, regs: cp})
	return nil
}

func (f *fakeRegisterWriter) last() writeCall {
	return f.writes[len(f.writes)-1]
}

func newTestWriter(t *testing.T, cli *fakeRegisterWriter) *Writer {
	t.Helper()
	w, err := NewWriter(Plan{UnitID: 3, Slot: 2, DeviceName: "MOTO-07"}, cli)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	return w
}

// ---- tests ----

func TestDeviceNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeRegisterWriter{}
	w := newTestWriter(t, cli)

	// ---- first write: FULL ASSERT ----
	first := status.Snapshot{Health: status.HealthOK, Tracking: 1}
	if err := w.WriteStatus(first); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	call := cli.last()
	if len(call.regs) != status.SlotsPerDevice {
		t.Fatalf("expected full block write (%d regs), got %d", status.SlotsPerDevice, len(call.regs))
	}
	if call.unitID != 3 || call.addr != 2*status.SlotsPerDevice {
		t.Fatalf("full block at unit=%d addr=%d", call.unitID, call.addr)
	}

	expectedName := status.EncodeDeviceName("MOTO-07")
	for i := 0; i < status.SlotDeviceNameSlots; i++ {
		slot := status.SlotDeviceNameStart + i
		if call.regs[slot] != expectedName[i] {
			t.Fatalf("device name slot %d mismatch: got=%d want=%d", slot, call.regs[slot], expectedName[i])
		}
	}

	// ---- second write: INCREMENTAL ONLY ----
	second := first
	second.ActiveOrder = 1
	if err := w.WriteStatus(second); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	call = cli.last()
	if len(call.regs) != 1 || call.addr != 2*status.SlotsPerDevice+status.SlotActiveOrder || call.regs[0] != 1 {
		t.Fatalf("unexpected incremental write: %+v", call)
	}
}

func TestUnchangedSnapshotWritesNothing(t *testing.T) {
	cli := &fakeRegisterWriter{}
	w := newTestWriter(t, cli)

	snap := status.Snapshot{Health: status.HealthOK, Tracking: 1, SecondsSinceReport: 4}
	for i := 0; i < 3; i++ {
		if err := w.WriteStatus(snap); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if len(cli.writes) != 1 {
		t.Fatalf("expected only the initial full write, got %d writes", len(cli.writes))
	}
}

func TestFailureForcesFullReassert(t *testing.T) {
	cli := &fakeRegisterWriter{}
	w := newTestWriter(t, cli)

	if err := w.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	cli.fail = true
	if err := w.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 503}); err == nil {
		t.Fatalf("expected error from failing transport")
	}

	cli.fail = false
	if err := w.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 503}); err != nil {
		t.Fatalf("recovery write: %v", err)
	}

	call := cli.last()
	if len(call.regs) != status.SlotsPerDevice {
		t.Fatalf("expected full re-assert after failure, got %d regs", len(call.regs))
	}
	if call.regs[status.SlotHealthCode] != status.HealthError || call.regs[status.SlotLastErrorCode] != 503 {
		t.Fatalf("re-asserted block carries stale values: %v", call.regs[:status.LiveSlots])
	}
}

func TestSecondsResetOnRecovery(t *testing.T) {
	cli := &fakeRegisterWriter{}
	w := newTestWriter(t, cli)

	errSnap := status.Snapshot{Health: status.HealthError, LastErrorCode: 1, SecondsSinceReport: 40, Tracking: 1}
	if err := w.WriteStatus(errSnap); err != nil {
		t.Fatalf("error snapshot write failed: %v", err)
	}

	okSnap := status.Snapshot{Health: status.HealthOK, SecondsSinceReport: 0, Tracking: 1}
	if err := w.WriteStatus(okSnap); err != nil {
		t.Fatalf("recovery snapshot write failed: %v", err)
	}

	// health, last error, seconds: three single-slot writes after the full block
	if len(cli.writes) != 4 {
		t.Fatalf("expected 4 writes, got %d", len(cli.writes))
	}
	call := cli.last()
	if call.addr != 2*status.SlotsPerDevice+status.SlotSecondsSinceReport || call.regs[0] != 0 {
		t.Fatalf("seconds not reset: %+v", call)
	}
}

func TestNewWriter_Validation(t *testing.T) {
	if _, err := NewWriter(Plan{}, nil); err == nil {
		t.Fatalf("expected error for nil writer")
	}
	if _, err := NewWriter(Plan{Slot: 65535}, &fakeRegisterWriter{}); err == nil {
		t.Fatalf("expected error for out of range slot")
	}
}
