package ad9361

import (
	"fmt"
	"slices"
	"time"
)

// SupportedFIRTaps lists the tap counts with coefficient sets.
var SupportedFIRTaps = []int{48, 64, 96, 128}

// FIR indirect port offsets from the per-direction base register
const (
	firAddr   = 0
	firDataLo = 1
	firDataHi = 2
	firStrobe = 4
	firConfig = 5
	firRxGain = 6
)

// setupFIR loads the coefficient set for taps and programs it.
func (d *Device) setupFIR(dir Direction, taps int) error {
	if !slices.Contains(SupportedFIRTaps, taps) {
		return fmt.Errorf("%w: %s %d", ErrUnsupportedTapCount, dir, taps)
	}
	coeffs, err := d.data.FIRCoefficients(taps)
	if err != nil {
		return fmt.Errorf("%w: %s %d: %v", ErrUnsupportedTapCount, dir, taps, err)
	}
	if len(coeffs) != taps {
		return fmt.Errorf("%w: %s coefficient set has %d entries, want %d",
			ErrUnsupportedTapCount, dir, len(coeffs), taps)
	}
	return d.programFIR(dir, coeffs)
}

// programFIR writes coefficients through the indirect port, zeroing the
// unused taps, and sets the -6 dB filter gain.
func (d *Device) programFIR(dir Direction, coeffs []int16) error {
	base := uint16(RegRxFIRBase)
	if dir == TX {
		base = RegTxFIRBase
	}
	n := len(coeffs)
	numTaps := uint8(((n/16)-1)&0x07) << 5

	// filter clock on
	if err := d.write(base+firConfig, numTaps|0x1a); err != nil {
		return err
	}
	d.sleep(time.Millisecond)

	tap := func(addr int, c uint16) error {
		return d.writeSeq([]regWrite{
			{base + firAddr, uint8(addr)},
			{base + firDataLo, uint8(c)},
			{base + firDataHi, uint8(c >> 8)},
			{base + firConfig, numTaps | 0x1e},
			{base + firStrobe, 0x00},
			{base + firStrobe, 0x00},
		})
	}
	for addr := n; addr < 128; addr++ {
		if err := tap(addr, 0); err != nil {
			return err
		}
	}
	for addr, c := range coeffs {
		if err := tap(addr, uint16(c)); err != nil {
			return err
		}
	}

	// clear the write bit before the clock stops
	if err := d.write(base+firConfig, numTaps|0x1a); err != nil {
		return err
	}
	if dir == RX {
		if err := d.write(base+firConfig, numTaps|0x18); err != nil {
			return err
		}
		return d.write(base+firRxGain, 0x02)
	}
	return d.write(base+firConfig, numTaps|0x19)
}
