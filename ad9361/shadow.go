package ad9361

import "fmt"

// shadowRegisters holds the software copy of every multi-purpose register.
// The copy, not a hardware read-back, is the source of truth.
type shadowRegisters struct {
	vals map[uint16]uint8
}

// shadowDefaults are the values the shadow set starts from after reset.
var shadowDefaults = map[uint16]uint8{
	RegVCODivs:       0x00,
	RegInputSel:      0x30,
	RegRxFilt:        0x00,
	RegTxFilt:        0x00,
	RegBBPLLCtl:      0x02,
	RegRxBBFTuneCfg:  0x1e,
	RegTxBBFTuneMode: 0x1e,
}

func newShadowRegisters() shadowRegisters {
	s := shadowRegisters{vals: make(map[uint16]uint8, len(shadowDefaults))}
	s.reset()
	return s
}

func (s *shadowRegisters) reset() {
	for reg, v := range shadowDefaults {
		s.vals[reg] = v
	}
}

func (s *shadowRegisters) get(reg uint16) uint8 {
	return s.vals[reg]
}

// merge replaces the bits of reg selected by mask with bits and returns the
// new shadow value.
func (s *shadowRegisters) merge(reg uint16, bits, mask uint8) uint8 {
	v := (s.vals[reg] &^ mask) | (bits & mask)
	s.vals[reg] = v
	return v
}

// writeShadow merges bits into the shadow copy of reg under mask and writes
// the resulting byte to the chip.
func (d *Device) writeShadow(reg uint16, bits, mask uint8) (uint8, error) {
	if _, ok := d.regs.vals[reg]; !ok {
		return 0, fmt.Errorf("register 0x%03X has no shadow copy", reg)
	}
	v := d.regs.merge(reg, bits, mask)
	if err := d.write(reg, v); err != nil {
		return v, err
	}
	return v, nil
}

// flushShadow rewrites reg from its shadow copy.
func (d *Device) flushShadow(reg uint16) error {
	return d.write(reg, d.regs.get(reg))
}

func (d *Device) write(addr uint16, value uint8) error {
	if err := d.bus.WriteRegister(addr, value); err != nil {
		return fmt.Errorf("failed to write register 0x%03X: %w", addr, err)
	}
	return nil
}

func (d *Device) read(addr uint16) (uint8, error) {
	v, err := d.bus.ReadRegister(addr)
	if err != nil {
		return 0, fmt.Errorf("failed to read register 0x%03X: %w", addr, err)
	}
	return v, nil
}

// regWrite is one entry of a fixed register sequence.
type regWrite struct {
	addr  uint16
	value uint8
}

func (d *Device) writeSeq(seq []regWrite) error {
	for _, w := range seq {
		if err := d.write(w.addr, w.value); err != nil {
			return err
		}
	}
	return nil
}
