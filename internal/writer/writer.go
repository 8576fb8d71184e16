// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/servoscan/internal/servo"
	"github.com/tamzrod/servoscan/internal/status"
)

// endpointClient is the exact contract the writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

type modbusWriter struct {
	plan    Plan
	cli     endpointClient
	devices map[servo.Target]*deviceStatusWriter
}

func New(plan Plan, cli endpointClient) Writer {
	w := &modbusWriter{
		plan:    plan,
		cli:     cli,
		devices: make(map[servo.Target]*deviceStatusWriter, len(plan.Blocks)),
	}
	for tg, block := range plan.Blocks {
		w.devices[tg] = newDeviceStatusWriter(cli, plan.UnitID, blockAddr(plan.BaseAddress, block))
	}
	return w
}

func (w *modbusWriter) Write(t *status.Tracker) error {
	var errs []string

	// ------------------------------------------------------------
	// LOOP BLOCK
	// ------------------------------------------------------------

	if err := w.cli.WriteRegisters(w.plan.UnitID, w.plan.BaseAddress, status.EncodeLoop(t.Loop())); err != nil {
		errs = append(errs, fmt.Sprintf(
			"writer: loop block unit=%d addr=%d err=%v",
			w.plan.UnitID, w.plan.BaseAddress, err,
		))
	}

	// ------------------------------------------------------------
	// DEVICE BLOCKS
	// ------------------------------------------------------------

	for _, snap := range t.Snapshots() {
		dw := w.devices[snap.Target]
		if dw == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: no block for bus=%d id=%d",
				snap.Target.Bus, snap.Target.ID,
			))
			continue
		}
		if err := dw.WriteStatus(snap); err != nil {
			errs = append(errs, fmt.Sprintf("id=%d: %v", snap.Target.ID, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}

func blockAddr(base, block uint16) uint16 {
	return base + block*status.SlotsPerDevice
}
