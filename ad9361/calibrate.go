package ad9361

import (
	"fmt"
	"math"
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// calibrateChargePumps calibrates the RX then the TX synthesizer charge
// pump. The chip must be in ALERT.
func (d *Device) calibrateChargePumps() error {
	if err := d.requireAlert("charge pump calibration"); err != nil {
		return err
	}
	for _, r := range []struct {
		synth synthRegs
		poll  pollSpec
	}{
		{rxSynth, pollRxChargePump},
		{txSynth, pollTxChargePump},
	} {
		if err := d.write(r.synth.cpCalCtl, 0x04); err != nil {
			return err
		}
		if err := d.pollBits(r.poll, r.synth.cpCalStatus, StatCPCalDone, StatCPCalDone); err != nil {
			return err
		}
		if err := d.write(r.synth.cpCalCtl, 0x00); err != nil {
			return err
		}
	}
	return nil
}

// RXFilterSetting is the RX baseband filter tuning derived from bandwidth.
type RXFilterSetting struct {
	BBBW    float64 // one-sided bandwidth after clamping, Hz
	TuneDiv int     // 9-bit tune clock divider
	MHz     uint8   // integer MHz corner
	KHz     uint8   // fractional corner in 7.8125 kHz steps
}

// RXFilterTuning derives the RX baseband filter registers for a complex
// bandwidth and BBPLL frequency.
func RXFilterTuning(bandwidth, bbpllFreq float64) RXFilterSetting {
	bbbw := clamp(bandwidth/2, 0.2e6, 28e6)
	tuneClk := 1.4 * bbbw * 2 * math.Pi / math.Ln2
	div := min(511, int(math.Ceil(bbpllFreq/tuneClk)))

	mhz := bbbw / 1e6
	khz := math.Floor((mhz-math.Floor(mhz))*1000/7.8125 + 0.5)
	return RXFilterSetting{
		BBBW:    bbbw,
		TuneDiv: div,
		MHz:     uint8(mhz),
		KHz:     uint8(math.Min(127, khz)),
	}
}

// TXFilterTuning returns the clamped one-sided bandwidth and tune divider
// for the TX baseband filter.
func TXFilterTuning(bandwidth, bbpllFreq float64) (bbbw float64, div int) {
	bbbw = clamp(bandwidth/2, 0.625e6, 20e6)
	tuneClk := 1.6 * bbbw * 2 * math.Pi / math.Ln2
	return bbbw, min(511, int(math.Ceil(bbpllFreq/tuneClk)))
}

// calibrateRxBBFilter tunes the RX analog baseband filter and returns the
// bandwidth it was tuned for.
func (d *Device) calibrateRxBBFilter() (float64, error) {
	s := RXFilterTuning(d.st.bandwidth, d.st.bbpllFreq)
	d.st.rxBBFTuneDiv = s.TuneDiv
	cfg := d.regs.merge(RegRxBBFTuneCfg, uint8(s.TuneDiv>>8), 0x01)

	err := d.writeSeq([]regWrite{
		{RegRxBBBWMHz, s.MHz},
		{RegRxBBBWkHz, s.KHz},
		{RegRxBBFTuneDiv, uint8(s.TuneDiv)},
		{RegRxBBFTuneCfg, cfg},
		{RegRxMixVoltage2, 0x3f},
		{RegRxMixVoltage1, 0x03},
		{RegRx1TuneCtl, 0x02}, // tuners on
		{RegRx2TuneCtl, 0x02},
	})
	if err != nil {
		return 0, err
	}
	if err := d.calibrate(pollRxBBFilter, CalRxBBFilter); err != nil {
		return 0, err
	}
	if err := d.writeSeq([]regWrite{{RegRx1TuneCtl, 0x03}, {RegRx2TuneCtl, 0x03}}); err != nil {
		return 0, err
	}
	return s.BBBW, nil
}

// calibrateTxBBFilter tunes the TX analog baseband filter.
func (d *Device) calibrateTxBBFilter() (float64, error) {
	bbbw, div := TXFilterTuning(d.st.bandwidth, d.st.bbpllFreq)
	mode := d.regs.merge(RegTxBBFTuneMode, uint8(div>>8), 0x01)

	err := d.writeSeq([]regWrite{
		{RegTxBBFTuneDiv, uint8(div)},
		{RegTxBBFTuneMode, mode},
		{RegTxBBFTuneEnable, 0x22},
	})
	if err != nil {
		return 0, err
	}
	if err := d.calibrate(pollTxBBFilter, CalTxBBFilter); err != nil {
		return 0, err
	}
	if err := d.write(RegTxBBFTuneEnable, 0x26); err != nil {
		return 0, err
	}
	return bbbw, nil
}

// SecondaryTXFilter returns the 0x0D0, 0x0D1 and 0x0D2 values for a complex
// bandwidth.
func SecondaryTXFilter(bandwidth float64) (reg0d0, reg0d1, reg0d2 uint8) {
	mhz := clamp(bandwidth/2, 0.53e6, 20e6) / 1e6
	corner := 5 * mhz * 2 * math.Pi

	res := 100
	capCode := 0
	for i := 0; i <= 3; i++ {
		capCode = int(math.Floor(0.5+(1/(corner*float64(res)*1e6))*1e12)) - 12
		if capCode <= 63 {
			break
		}
		res *= 2
	}
	capCode = min(capCode, 63)

	switch {
	case mhz*2 <= 9:
		reg0d0 = 0x59
	case mhz*2 <= 24:
		reg0d0 = 0x56
	default:
		reg0d0 = 0x57
	}

	switch res {
	case 200:
		reg0d1 = 0x04
	case 400:
		reg0d1 = 0x03
	case 800:
		reg0d1 = 0x01
	default:
		reg0d1 = 0x0c
	}
	return reg0d0, reg0d1, uint8(max(capCode, 0))
}

func (d *Device) calibrateSecondaryTxFilter() error {
	r0, r1, r2 := SecondaryTXFilter(d.st.bandwidth)
	return d.writeSeq([]regWrite{
		{RegTxSecondFilt2, r2},
		{RegTxSecondFilt1, r1},
		{RegTxSecondFilt0, r0},
	})
}

// TIASetting holds the RX TIA register values.
type TIASetting struct {
	Config    uint8 // 0x1DB
	CapLow    uint8 // 0x1DC and 0x1DE
	CapHigh   uint8 // 0x1DD and 0x1DF
	CTIAFemto float64
}

// RXTIASetting derives the TIA registers from the RX filter capacitor and
// resistor codes (0x1EB, 0x1EC, 0x1E6) and the complex bandwidth.
func RXTIASetting(c3msb, c3lsb, r2346 uint8, bandwidth float64) TIASetting {
	bbbw := clamp(bandwidth/2, 0.2e6, 20e6)
	ceilMHz := math.Ceil(bbbw / 1e6)

	cbbf := int(c3msb&0x3F)*160 + int(c3lsb&0x7F)*10 + 140
	r := 18300 * int(r2346&0x07)
	ctia := float64(cbbf*r) * 0.56 / 3500

	var s TIASetting
	s.CTIAFemto = ctia
	switch {
	case ceilMHz <= 3:
		s.Config = 0xe0
	case ceilMHz <= 10:
		s.Config = 0x60
	default:
		s.Config = 0x20
	}

	if ctia > 2920 {
		s.CapLow = 0x40
		s.CapHigh = uint8(clampInt(int(math.Floor(0.5+(ctia-400)/320)), 0, 127))
	} else {
		s.CapLow = uint8(clampInt(int(math.Floor(0.5+(ctia-400)/40))+0x40, 0, 127))
		s.CapHigh = 0
	}
	return s
}

func (d *Device) calibrateRxTIAs() error {
	c3msb, err := d.read(RegRxBBFC3MSB)
	if err != nil {
		return err
	}
	c3lsb, err := d.read(RegRxBBFC3LSB)
	if err != nil {
		return err
	}
	r2346, err := d.read(RegRxBBFR2346)
	if err != nil {
		return err
	}

	s := RXTIASetting(c3msb, c3lsb, r2346, d.st.bandwidth)
	return d.writeSeq([]regWrite{
		{RegRxTIAConfig, s.Config},
		{RegRxTIA1CHigh, s.CapHigh},
		{RegRxTIA2CHigh, s.CapHigh},
		{RegRxTIA1CLow, s.CapLow},
		{RegRxTIA2CLow, s.CapLow},
	})
}

func (d *Device) calibrateBasebandDCOffset() error {
	err := d.writeSeq([]regWrite{
		{RegBBDCConfig1, 0x3f},
		{RegBBDCTracking, 0x0f},
		{RegBBDCConfig2, 0x01},
	})
	if err != nil {
		return err
	}
	return d.calibrate(pollBasebandDC, CalBBDC)
}

func (d *Device) calibrateRFDCOffset() error {
	counts := []regWrite{{RegRFDCCount1, 0x32}, {RegRFDCCount2, 0x24}, {RegRFDCCount3, 0x05}}
	if d.st.rxFreq >= 4e9 {
		counts = []regWrite{{RegRFDCCount1, 0x28}, {RegRFDCCount2, 0x34}, {RegRFDCCount3, 0x06}}
	}
	err := d.writeSeq(append(counts,
		regWrite{RegRFDCWaitCount, 0x20},
		regWrite{RegDCOffsetConfig, 0x83},
		regWrite{RegRFDCConfig1, 0x30},
	))
	if err != nil {
		return err
	}
	return d.calibrate(pollRFDC, CalRFDC)
}

// calibrateRxQuadrature enables continuous RX quadrature tracking. The chip
// free-runs it from here on, so there is nothing to wait for.
func (d *Device) calibrateRxQuadrature() error {
	return d.writeSeq([]regWrite{
		{RegRxQuadTone, 0x03},
		{RegRxQuadGainIndex, 0x25},
		{RegRxQuadKexpPhase, 0x75},
		{RegRxQuadKexpAmp, 0x15},
		{RegRxQuadTracking, 0xcf},
		{RegDCOffsetConfig, 0xad},
	})
}

// calibrateTxQuadrature runs the TX quadrature calibration for output A then
// output B, and restores the input selection.
func (d *Device) calibrateTxQuadrature() error {
	if err := d.requireAlert("tx quadrature calibration"); err != nil {
		return err
	}
	// free-running calibrations off; rx quadrature turns them back on
	if err := d.write(RegRxQuadTracking, 0xc0); err != nil {
		return err
	}

	orig := d.regs.get(RegInputSel)
	for _, txb := range []uint8{0, InputSelTxB} {
		if _, err := d.writeShadow(RegInputSel, txb, InputSelTxB); err != nil {
			return err
		}
		if err := d.txQuadratureRoutine(); err != nil {
			return err
		}
	}
	_, err := d.writeShadow(RegInputSel, orig, 0xFF)
	return err
}

// MaxCalToneFreq returns the highest TX quadrature calibration tone for the
// NCO selection bits (0x0A3[7:6]).
func MaxCalToneFreq(bandwidth float64, txFIRFactor int, nco uint8) float64 {
	return ((bandwidth * float64(txFIRFactor) * float64((nco>>6)+1)) / 32) * 2
}

func (d *Device) txQuadratureRoutine() error {
	v, err := d.read(RegTxQuadNCO)
	if err != nil {
		return err
	}
	nco := v & 0xC0
	if err := d.write(RegTxQuadRxNCO, 0x15|(nco>>1)); err != nil {
		return err
	}
	if v, err = d.read(RegTxQuadNCO); err != nil {
		return err
	}
	if err := d.write(RegTxQuadNCO, (v&0x3F)|nco); err != nil {
		return err
	}

	maxCal := MaxCalToneFreq(d.st.bandwidth, d.st.tfir, nco)
	bbbw := clamp(d.st.bandwidth/2, 0.2e6, 28e6)
	if maxCal > bbbw {
		return fmt.Errorf("%w: tone %.0f Hz, bandwidth %.0f Hz", ErrCalibrationToneOutOfBand, maxCal, bbbw)
	}

	// mid-table index giving TIA index 1 and LPF index 0
	gainIndex := uint8(0x25)
	if d.st.rxFreq >= 1300e6 && d.st.rxFreq < 4000e6 {
		gainIndex = 0x22
	}
	err = d.writeSeq([]regWrite{
		{RegTxQuadTracking, 0x7B},
		{RegTxQuadCount, 0xff},
		{RegTxQuadKexp, 0x7f},
		{RegTxQuadMagThr1, 0x01},
		{RegTxQuadMagThr2, 0x01},
		{RegTxQuadGainIndex, gainIndex},
		{RegTxQuadSettle, 0xf0},
		{RegTxQuadLPFIndex, 0x00},
	})
	if err != nil {
		return err
	}

	if err := d.calibrateBasebandDCOffset(); err != nil {
		return err
	}
	if err := d.calibrateRFDCOffset(); err != nil {
		return err
	}
	return d.calibrate(pollTxQuadrature, CalTxQuad)
}
