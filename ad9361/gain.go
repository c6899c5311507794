package ad9361

import (
	"fmt"
	"math"
)

// MaxTxGain is the TX gain at zero attenuation, in dB.
const MaxTxGain = 89.75

// Maximum TX attenuation word, 0.25 dB steps.
const maxTxAttenReg = 359

// Highest populated RX gain table index.
const maxRxGainIndex = GainTableEntries - 1

var (
	gmSubGain = [16]uint8{0x78, 0x74, 0x70, 0x6C, 0x68, 0x64, 0x60, 0x5C, 0x58, 0x54, 0x50, 0x4C, 0x48, 0x30, 0x18, 0x00}
	gmSubGM   = [16]uint8{0x00, 0x0D, 0x15, 0x1B, 0x21, 0x25, 0x29, 0x2C, 0x2F, 0x31, 0x33, 0x34, 0x35, 0x3A, 0x3D, 0x3E}
)

// programMixerGMSubtable loads the fixed mixer GM sub-table.
func (d *Device) programMixerGMSubtable() error {
	if err := d.write(RegGMSubCfg, 0x02); err != nil {
		return err
	}
	for i := 15; i >= 0; i-- {
		err := d.writeSeq([]regWrite{
			{RegGMSubAddr, uint8(i)},
			{RegGMSubGain, gmSubGain[15-i]},
			{RegGMSubBias, 0x00},
			{RegGMSubGM, gmSubGM[15-i]},
			{RegGMSubCfg, 0x06},
			{RegGMSubStrb, 0x00},
			{RegGMSubStrb, 0x00},
		})
		if err != nil {
			return err
		}
	}
	// clear the write bit, then stop the clock
	return d.writeSeq([]regWrite{
		{RegGMSubCfg, 0x02},
		{RegGMSubStrb, 0x00},
		{RegGMSubStrb, 0x00},
		{RegGMSubCfg, 0x00},
	})
}

// GainTableFor returns the RX gain table covering an LO frequency.
func GainTableFor(rxFreq float64) (GainTableID, error) {
	switch {
	case rxFreq < 1300e6:
		return GainTableSub1300, nil
	case rxFreq < 4e9:
		return GainTable1300To4000, nil
	case rxFreq <= 6e9:
		return GainTable4000To6000, nil
	}
	return GainTableNone, fmt.Errorf("%w: rx %.0f Hz has no gain table", ErrFrequencyOutOfRange, rxFreq)
}

// programGainTable loads the gain table for the current RX LO, unless it is
// already loaded.
func (d *Device) programGainTable() error {
	id, err := GainTableFor(d.st.rxFreq)
	if err != nil {
		return err
	}
	if id == d.st.gainTable {
		return nil
	}
	entries, err := d.data.GainTable(id)
	if err != nil {
		return fmt.Errorf("gain table %s: %w", id, err)
	}
	if len(entries) != GainTableEntries {
		return fmt.Errorf("gain table %s has %d entries, want %d", id, len(entries), GainTableEntries)
	}

	if err := d.write(RegGainTableCfg, 0x1A); err != nil {
		return err
	}
	for idx := 0; idx < GainTableSize; idx++ {
		var e GainEntry
		if idx < GainTableEntries {
			e = entries[idx]
		}
		err := d.writeSeq([]regWrite{
			{RegGainTableAddr, uint8(idx)},
			{RegGainTableWord1, e[0]},
			{RegGainTableWord2, e[1]},
			{RegGainTableWord3, e[2]},
			{RegGainTableCfg, 0x1E},
			{RegGainTableStrb, 0x00},
			{RegGainTableStrb, 0x00},
		})
		if err != nil {
			return err
		}
	}
	err = d.writeSeq([]regWrite{
		{RegGainTableCfg, 0x1A},
		{RegGainTableStrb, 0x00},
		{RegGainTableStrb, 0x00},
		{RegGainTableCfg, 0x00},
	})
	if err != nil {
		return err
	}
	d.st.gainTable = id
	d.logger.Debug("gain table loaded", "table", id)
	return nil
}

// setupGainControl puts both RX chains in manual gain control.
func (d *Device) setupGainControl() error {
	return d.writeSeq([]regWrite{
		{0x0FA, 0xE0}, // gain control mode select
		{0x0FB, 0x08}, // table, digital gain, manual gain control
		{0x0FC, 0x23}, // increment step size, ADC overrange size
		{0x0FD, 0x4C}, // max full/LMT gain table index
		{0x0FE, 0x44}, // decrement step size, peak overload time
		{0x100, 0x6F}, // max digital gain
		{0x104, 0x2F}, // ADC small overload threshold
		{0x105, 0x3A}, // ADC large overload threshold
		{0x107, 0x31}, // large LMT overload threshold
		{0x108, 0x39}, // small LMT overload threshold
		{RegRx1GainIndex, 0x23},
		{0x10A, 0x58}, // RX1 LPF gain index
		{0x10B, 0x00}, // RX1 digital gain index
		{RegRx2GainIndex, 0x23},
		{0x10D, 0x18}, // RX2 LPF gain index
		{0x10E, 0x00}, // RX2 digital gain index
		{0x114, 0x30}, // low power threshold
		{0x11A, 0x27}, // initial LMT gain limit
		{0x081, 0x00}, // TX symbol gain control
	})
}

// RXGainIndex maps an RX gain in dB to a gain table index for the band of
// rxFreq. It returns the index and the gain that index achieves.
func RXGainIndex(rxFreq, db float64) (index int, achieved float64) {
	offset := 14
	switch {
	case rxFreq < 1300e6:
		offset = 5
	case rxFreq < 4000e6:
		offset = 3
	}
	v := db + float64(offset)
	switch {
	case math.IsNaN(v) || v <= 0:
		index = 0
	case v >= maxRxGainIndex:
		index = maxRxGainIndex
	default:
		index = int(v)
	}
	return index, float64(index - offset)
}

// TXAttenuation maps a TX gain in dB to the attenuation word. Attenuation is
// never negative.
func TXAttenuation(db float64) (reg int, achieved float64) {
	atten := (MaxTxGain - db) * 4
	switch {
	case math.IsNaN(atten) || atten <= 0:
		reg = 0
	case atten >= maxTxAttenReg:
		reg = maxTxAttenReg
	default:
		reg = int(atten)
	}
	return reg, MaxTxGain - float64(reg)/4
}

// setGain programs one chain's gain and records the requested value.
func (d *Device) setGain(dir Direction, chain Chain, db float64) (float64, error) {
	if !chain.valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChain, chain)
	}
	switch dir {
	case RX:
		index, achieved := RXGainIndex(d.st.rxFreq, db)
		reg := uint16(RegRx1GainIndex)
		if chain == Chain2 {
			reg = RegRx2GainIndex
		}
		if err := d.write(reg, uint8(index)); err != nil {
			return 0, err
		}
		d.st.rxGain[chain-1] = db
		return achieved, nil

	case TX:
		// latch attenuation words immediately
		if err := d.writeSeq([]regWrite{{RegTx1AttenCtl, 0x40}, {RegTx2AttenCtl, 0x40}}); err != nil {
			return 0, err
		}
		attenReg, achieved := TXAttenuation(db)
		lo, hi := uint16(RegTx1AttenLow), uint16(RegTx1AttenHigh)
		if chain == Chain2 {
			lo, hi = RegTx2AttenLow, RegTx2AttenHigh
		}
		if err := d.writeSeq([]regWrite{{lo, uint8(attenReg)}, {hi, uint8(attenReg>>8) & 0x01}}); err != nil {
			return 0, err
		}
		d.st.txGain[chain-1] = db
		return achieved, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidDirection, dir)
}

// reprogramGains rewrites all four chain gains from their requested values,
// remapping the RX indices for the current band.
func (d *Device) reprogramGains() error {
	for _, g := range []struct {
		dir   Direction
		chain Chain
		db    float64
	}{
		{RX, Chain1, d.st.rxGain[0]},
		{RX, Chain2, d.st.rxGain[1]},
		{TX, Chain1, d.st.txGain[0]},
		{TX, Chain2, d.st.txGain[1]},
	} {
		if _, err := d.setGain(g.dir, g.chain, g.db); err != nil {
			return err
		}
	}
	return nil
}

// chainBits returns the enable bits for chain 1 and chain 2.
func chainBits(c1, c2 bool) uint8 {
	var v uint8
	if c1 {
		v |= Chain1Enable
	}
	if c2 {
		v |= Chain2Enable
	}
	return v
}

// setActiveChains updates the chain enables. From FDD the chip is moved to
// ALERT through the flush state first, and returned to FDD afterwards.
func (d *Device) setActiveChains(tx1, tx2, rx1, rx2 bool) error {
	d.regs.merge(RegTxFilt, chainBits(tx1, tx2), ChainMask)
	d.regs.merge(RegRxFilt, chainBits(rx1, rx2), ChainMask)

	st, err := d.ensmState()
	if err != nil {
		return err
	}
	backToFDD := false
	if st == StateFDD {
		if err := d.requestState(ENSMRequestAlert); err != nil {
			return err
		}
		backToFDD = true
	}
	if st == StateFDD || st == StateFDDFlush {
		if err := d.waitFlush(); err != nil {
			return err
		}
	}

	if err := d.flushShadow(RegTxFilt); err != nil {
		return err
	}
	if err := d.flushShadow(RegRxFilt); err != nil {
		return err
	}
	if backToFDD {
		return d.requestState(ENSMRequestFDD)
	}
	return nil
}
