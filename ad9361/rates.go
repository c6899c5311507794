package ad9361

import (
	"fmt"
	"math"
)

// MaxClockRate is the highest supported master sample rate.
const MaxClockRate = 61.44e6

// FilterConfig is the decimation/interpolation setup for one rate band.
type FilterConfig struct {
	RxFilt      uint8 // RX filter enables, both chains on
	TxFilt      uint8 // TX filter enables, both chains on
	DivFactor   int   // BBPLL core clock = rate × DivFactor
	TxFIRFactor int   // TX FIR interpolation, 1 or 2
}

// SelectFilterConfig maps a master sample rate to its filter configuration.
// Every configuration enables both chains; the chain bits are narrowed
// afterwards by SetActiveChains.
func SelectFilterConfig(rate float64) (FilterConfig, error) {
	switch {
	case math.IsNaN(rate) || rate <= 0 || rate > MaxClockRate:
		return FilterConfig{}, fmt.Errorf("%w: %.0f Hz", ErrRateOutOfRange, rate)
	case rate < 0.33e6:
		return FilterConfig{RxFilt: 0xEF, TxFilt: 0xEF, DivFactor: 48, TxFIRFactor: 2}, nil
	case rate < 0.66e6:
		return FilterConfig{RxFilt: 0xDF, TxFilt: 0xDF, DivFactor: 32, TxFIRFactor: 2}, nil
	case rate <= 20e6:
		return FilterConfig{RxFilt: 0xDE, TxFilt: 0xDE, DivFactor: 16, TxFIRFactor: 2}, nil
	case rate < 23e6:
		return FilterConfig{RxFilt: 0xEE, TxFilt: 0xE6, DivFactor: 24, TxFIRFactor: 2}, nil
	case rate < 41e6:
		return FilterConfig{RxFilt: 0xDE, TxFilt: 0xCE, DivFactor: 16, TxFIRFactor: 2}, nil
	case rate <= 56e6:
		return FilterConfig{RxFilt: 0xE6, TxFilt: 0xE2, DivFactor: 12, TxFIRFactor: 2}, nil
	default:
		return FilterConfig{RxFilt: 0xE2, TxFilt: 0xE1, DivFactor: 6, TxFIRFactor: 1}, nil
	}
}

var tapCounts = []int{16, 32, 48, 64, 80, 96, 112, 128}

// TapCount snaps a computed tap maximum down to a hardware tap count.
// Anything below 16 yields 128.
func TapCount(maxTaps int) int {
	if maxTaps < tapCounts[0] {
		return 128
	}
	n := tapCounts[0]
	for _, c := range tapCounts {
		if c > maxTaps {
			break
		}
		n = c
	}
	return n
}

// FIRTaps sizes the RX and TX FIR filters. The FIRs compute 16 taps per
// clock, so the clock to rate ratio bounds the length; the TX FIR holds at
// most 64 taps with 1x interpolation.
func FIRTaps(adcClock, dacClock, rate float64, txFIRFactor int) (rxTaps, txTaps int) {
	txLimit := 128
	if txFIRFactor == 1 {
		txLimit = 64
	}
	maxTx := min(16*int(dacClock/rate+0.5), 128, txLimit)
	maxRx := min(16*int(adcClock/rate+0.5), 128)
	return TapCount(maxRx), TapCount(maxTx)
}

// planRate selects the filter configuration for rate and checks that the
// BBPLL can reach rate times its decimation factor.
func planRate(rate float64) (FilterConfig, error) {
	cfg, err := SelectFilterConfig(rate)
	if err != nil {
		return FilterConfig{}, err
	}
	if _, err := PlanBBPLL(rate * float64(cfg.DivFactor)); err != nil {
		return FilterConfig{}, err
	}
	return cfg, nil
}

// setupRates configures decimation, the BBPLL and both FIRs for rate and
// returns the baseband bandwidth. All chains are left enabled.
func (d *Device) setupRates(rate float64) (float64, error) {
	cfg, err := planRate(rate)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("rate config", "rate", rate, "divfactor", cfg.DivFactor, "tfir", cfg.TxFIRFactor)

	adc, err := d.tuneBBVCO(rate * float64(cfg.DivFactor))
	if err != nil {
		return 0, err
	}
	d.regs.merge(RegRxFilt, cfg.RxFilt, 0xFF)
	d.regs.merge(RegTxFilt, cfg.TxFilt, 0xFF)
	dac := adc
	if adc > 336e6 {
		d.regs.merge(RegBBPLLCtl, BBPLLDACHalf, BBPLLDACHalf)
		dac = adc / 2
	} else {
		d.regs.merge(RegBBPLLCtl, 0, BBPLLDACHalf)
	}

	for _, reg := range []uint16{RegTxFilt, RegRxFilt, RegInputSel, RegBBPLLCtl} {
		if err := d.flushShadow(reg); err != nil {
			return 0, err
		}
	}

	d.st.tfir = cfg.TxFIRFactor
	d.st.dacClock = dac
	d.st.bandwidth = adc / float64(cfg.DivFactor)

	rxTaps, txTaps := FIRTaps(adc, dac, rate, cfg.TxFIRFactor)
	if err := d.setupFIR(TX, txTaps); err != nil {
		return 0, err
	}
	if err := d.setupFIR(RX, rxTaps); err != nil {
		return 0, err
	}
	d.st.rxFIRTaps, d.st.txFIRTaps = rxTaps, txTaps
	d.st.reqClockRate = rate
	return d.st.bandwidth, nil
}
