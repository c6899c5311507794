package ad9361

import (
	"fmt"
	"math"
)

// NearlyEqual reports whether two frequencies differ by less than 1 Hz.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1
}

// pllConfig parameterizes the fractional-N planner for one PLL.
type pllConfig struct {
	name    string
	refHz   float64
	modulus int
	vcoMin  float64
	vcoMax  float64
	minExp  int
	maxExp  int
	divider func(exp int) int
}

var (
	bbpllConfig = pllConfig{
		name:    "bbpll",
		refHz:   40e6,
		modulus: 2088960,
		vcoMin:  672e6,
		vcoMax:  1430e6,
		minExp:  1,
		maxExp:  6,
		divider: func(exp int) int { return 1 << exp },
	}
	rfpllConfig = pllConfig{
		name:    "rfpll",
		refHz:   80e6,
		modulus: 8388593,
		vcoMin:  6e9,
		vcoMax:  12e9,
		minExp:  0,
		maxExp:  6,
		divider: func(exp int) int { return 2 << exp },
	}
)

// PLLPlan is the result of fractional-N planning for one target.
type PLLPlan struct {
	Exponent  int     // divider exponent written to the divider field
	Divider   int     // VCO output divider
	VCORate   float64 // requested VCO rate, target × Divider
	Nint      int
	Nfrac     int
	ActualVCO float64 // refHz × (Nint + Nfrac/modulus)
	Actual    float64 // ActualVCO / Divider
}

func (c pllConfig) plan(target float64) (PLLPlan, error) {
	if !(target > 0) || math.IsInf(target, 0) {
		return PLLPlan{}, fmt.Errorf("%w: %s target %v", ErrNoValidDivider, c.name, target)
	}
	for exp := c.minExp; exp <= c.maxExp; exp++ {
		div := c.divider(exp)
		vco := target * float64(div)
		if vco < c.vcoMin || vco > c.vcoMax {
			continue
		}

		n := vco / c.refHz
		nint := int(math.Floor(n))
		nfrac := int(math.Round((n - float64(nint)) * float64(c.modulus)))
		if nfrac >= c.modulus {
			nint++
			nfrac -= c.modulus
		}
		actual := c.refHz * (float64(nint) + float64(nfrac)/float64(c.modulus))
		return PLLPlan{
			Exponent:  exp,
			Divider:   div,
			VCORate:   vco,
			Nint:      nint,
			Nfrac:     nfrac,
			ActualVCO: actual,
			Actual:    actual / float64(div),
		}, nil
	}
	return PLLPlan{}, fmt.Errorf("%w: %s target %.0f Hz", ErrNoValidDivider, c.name, target)
}

// PlanBBPLL plans the baseband PLL for a core clock rate (sample rate times
// the decimation factor). The returned Actual is the ADC clock.
func PlanBBPLL(rate float64) (PLLPlan, error) {
	return bbpllConfig.plan(rate)
}

// PlanRFPLL plans an RX or TX RF PLL for a local oscillator frequency.
func PlanRFPLL(freq float64) (PLLPlan, error) {
	return rfpllConfig.plan(freq)
}

// bbpllChargePump scales the BBPLL charge pump current linearly with the
// achieved VCO rate: 150 uA at 1280 MHz, in 25 uA steps.
func bbpllChargePump(actualVCO float64) uint8 {
	icp := 150e-6 * (actualVCO / 1280e6)
	return uint8(int(icp/25e-6)-1) & 0x3F
}

// tuneBBVCO programs the BBPLL for rate and returns the ADC clock. A rate
// nearly equal to the last one is a no-op.
func (d *Device) tuneBBVCO(rate float64) (float64, error) {
	if NearlyEqual(rate, d.st.reqCoreClock) {
		return d.st.adcClock, nil
	}

	plan, err := PlanBBPLL(rate)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("bbpll plan", "rate", rate, "divider", plan.Divider,
		"nint", plan.Nint, "nfrac", plan.Nfrac, "vco", plan.ActualVCO)

	err = d.writeSeq([]regWrite{
		{RegBBPLLRefDiv, 0x00}, // REFCLK / 1
		{RegBBPLLCPCurrent, bbpllChargePump(plan.ActualVCO)},
		{RegBBPLLLoopFilt1, 0xe8},
		{RegBBPLLLoopFilt2, 0x5b},
		{RegBBPLLLoopFilt3, 0x35},
		{RegBBPLLVCOCtl, 0xe0},
		{RegBBPLLAccuracy, 0x10},
		{RegBBPLLNfrac1, uint8(plan.Nfrac)},
		{RegBBPLLNfrac2, uint8(plan.Nfrac >> 8)},
		{RegBBPLLNfrac3, uint8(plan.Nfrac >> 16)},
		{RegBBPLLNint, uint8(plan.Nint)},
	})
	if err != nil {
		return 0, err
	}
	if err := d.calibrateLockBBPLL(); err != nil {
		return 0, err
	}

	d.regs.merge(RegBBPLLCtl, uint8(plan.Exponent), BBPLLDividerMask)
	d.st.reqCoreClock = rate
	d.st.bbpllFreq = plan.ActualVCO
	d.st.adcClock = plan.Actual
	return plan.Actual, nil
}

// calibrateLockBBPLL starts the BBPLL VCO calibration and waits for lock.
func (d *Device) calibrateLockBBPLL() error {
	err := d.writeSeq([]regWrite{
		{RegBBPLLCalStart, 0x05},
		{RegBBPLLCalStart, 0x01},
		{RegBBPLLKV, 0x86},
		{RegBBPLLPhase, 0x01},
		{RegBBPLLPhase, 0x05},
	})
	if err != nil {
		return err
	}
	return d.pollBits(pollBBPLLLock, RegBBPLLStatus, StatBBPLLLocked, StatBBPLLLocked)
}

// synthRegs is the per-direction RF synthesizer register block.
type synthRegs struct {
	lockPoll    pollSpec
	nint1       uint16
	nint2       uint16
	nfrac1      uint16
	nfrac2      uint16
	nfrac3      uint16
	calOffset   uint16
	varactor    uint16
	outLevel    uint16
	cpCurrent   uint16
	cpCalCtl    uint16
	cpCalStatus uint16
	loopC       uint16
	loopRC      uint16
	loopR3      uint16
	bias        uint16
	vcoCalCtl   uint16
	varRefTcf   uint16
	varRef      uint16
	pllStatus   uint16
	vcoDivShift uint
}

var (
	rxSynth = synthRegs{
		lockPoll:    pollRxPLLLock,
		nint1:       RegRxNint1,
		nint2:       RegRxNint2,
		nfrac1:      RegRxNfrac1,
		nfrac2:      RegRxNfrac2,
		nfrac3:      RegRxNfrac3,
		calOffset:   RegRxVCOCalOffset,
		varactor:    RegRxVCOVaractor,
		outLevel:    RegRxVCOOutLevel,
		cpCurrent:   RegRxCPCurrent,
		cpCalCtl:    RegRxCPCalCtl,
		cpCalStatus: RegRxCPCalStatus,
		loopC:       RegRxLoopFiltC,
		loopRC:      RegRxLoopFiltRC,
		loopR3:      RegRxLoopFiltR3,
		bias:        RegRxVCOBias,
		vcoCalCtl:   RegRxVCOCalCtl,
		varRefTcf:   RegRxVCOVarRefTcf,
		varRef:      RegRxVCOVarRef,
		pllStatus:   RegRxPLLStatus,
		vcoDivShift: 0,
	}
	txSynth = synthRegs{
		lockPoll:    pollTxPLLLock,
		nint1:       RegTxNint1,
		nint2:       RegTxNint2,
		nfrac1:      RegTxNfrac1,
		nfrac2:      RegTxNfrac2,
		nfrac3:      RegTxNfrac3,
		calOffset:   RegTxVCOCalOffset,
		varactor:    RegTxVCOVaractor,
		outLevel:    RegTxVCOOutLevel,
		cpCurrent:   RegTxCPCurrent,
		cpCalCtl:    RegTxCPCalCtl,
		cpCalStatus: RegTxCPCalStatus,
		loopC:       RegTxLoopFiltC,
		loopRC:      RegTxLoopFiltRC,
		loopR3:      RegTxLoopFiltR3,
		bias:        RegTxVCOBias,
		vcoCalCtl:   RegTxVCOCalCtl,
		varRefTcf:   RegTxVCOVarRefTcf,
		varRef:      RegTxVCOVarRef,
		pllStatus:   RegTxPLLStatus,
		vcoDivShift: 4,
	}
)

func synthFor(dir Direction) synthRegs {
	if dir == TX {
		return txSynth
	}
	return rxSynth
}

// synthIndex returns the LUT row for vcoRate: the first row whose lower
// boundary lies below the rate, or the last row.
func synthIndex(rates []float64, vcoRate float64) int {
	idx := 0
	for i, r := range rates {
		idx = i
		if vcoRate > r {
			break
		}
	}
	return idx
}

// setupSynth programs the VCO and loop filter from the calibration LUT.
func (d *Device) setupSynth(dir Direction, vcoRate float64) error {
	rates := d.data.SynthVCORates()
	lut := d.data.SynthLUT()
	if len(rates) == 0 || len(lut) < len(rates) {
		return fmt.Errorf("synthesizer LUT has %d rows for %d VCO rates", len(lut), len(rates))
	}
	row := lut[synthIndex(rates, vcoRate)]
	r := synthFor(dir)

	return d.writeSeq([]regWrite{
		{r.outLevel, 0x40 | row[0]},
		{r.varactor, 0xC0 | row[1]},
		{r.bias, row[2] | row[3]<<3},
		{r.calOffset, row[4] << 3},
		{r.vcoCalCtl, 0x00},
		{r.varRef, row[5]},
		{r.varRefTcf, 0x70},
		{r.cpCurrent, 0x80 | row[6]},
		{r.loopC, row[8] | row[7]<<4},
		{r.loopRC, row[10] | row[9]<<4},
		{r.loopR3, row[11]},
	})
}

// selectInputPath merges the band dependent input/output selection bits for
// freq into the input select shadow and writes it.
func (d *Device) selectInputPath(dir Direction, freq float64) error {
	var bits, mask uint8
	switch dir {
	case RX:
		mask = InputSelRxMask
		switch {
		case freq < d.params.BandEdge(RxBand0):
			bits = InputSelRxBandA
		case freq < d.params.BandEdge(RxBand1):
			bits = InputSelRxBandB
		case freq <= 6e9:
			bits = InputSelRxBandC
		default:
			return fmt.Errorf("%w: rx %.0f Hz", ErrFrequencyOutOfRange, freq)
		}
	case TX:
		mask = InputSelTxB
		switch {
		case freq < d.params.BandEdge(TxBand0):
			bits = InputSelTxB
		case freq <= 6e9:
			bits = 0
		default:
			return fmt.Errorf("%w: tx %.0f Hz", ErrFrequencyOutOfRange, freq)
		}
	default:
		return ErrInvalidDirection
	}
	_, err := d.writeShadow(RegInputSel, bits, mask)
	return err
}

// tuneRF programs the RX or TX RF PLL and verifies lock. It returns the
// achieved LO frequency.
func (d *Device) tuneRF(dir Direction, freq float64) (float64, error) {
	plan, err := PlanRFPLL(freq)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("rfpll plan", "direction", dir, "frequency", freq,
		"divider", plan.Divider, "nint", plan.Nint, "nfrac", plan.Nfrac)

	if err := d.selectInputPath(dir, freq); err != nil {
		return 0, err
	}

	r := synthFor(dir)
	d.regs.merge(RegVCODivs, uint8(plan.Exponent)<<r.vcoDivShift, 0x0F<<r.vcoDivShift)

	if err := d.setupSynth(dir, plan.ActualVCO); err != nil {
		return 0, err
	}

	err = d.writeSeq([]regWrite{
		{r.nfrac1, uint8(plan.Nfrac)},
		{r.nfrac2, uint8(plan.Nfrac >> 8)},
		{r.nfrac3, uint8(plan.Nfrac >> 16)},
		{r.nint2, uint8(plan.Nint >> 8)},
		{r.nint1, uint8(plan.Nint)},
	})
	if err != nil {
		return 0, err
	}
	if err := d.flushShadow(RegVCODivs); err != nil {
		return 0, err
	}

	d.sleep(r.lockPoll.interval)
	if err := d.pollBits(r.lockPoll, r.pllStatus, StatPLLLocked, StatPLLLocked); err != nil {
		return 0, err
	}

	if dir == RX {
		d.st.reqRxFreq, d.st.rxFreq = freq, plan.Actual
	} else {
		d.st.reqTxFreq, d.st.txFreq = freq, plan.Actual
	}
	return plan.Actual, nil
}
