// Package ad9361 controls an AD9361 RF transceiver through its register
// interface: frequency planning for the baseband and RF PLLs, sample rate
// and FIR configuration, the calibration sequence, and ENSM aware
// orchestration of initialization, clock rate changes, tuning and gain.
package ad9361

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Bring-up constants
const (
	InitClockRate = 50e6
	InitRxFreq    = 800e6
	InitTxFreq    = 850e6
)

// state is the frequency, gain and derived configuration owned by a Device.
type state struct {
	reqClockRate float64
	reqCoreClock float64 // last BBPLL target, rate × divide factor
	bandwidth    float64
	bbpllFreq    float64
	adcClock     float64
	dacClock     float64
	tfir         int
	rxFIRTaps    int
	txFIRTaps    int
	rxBBFTuneDiv int

	reqRxFreq float64
	reqTxFreq float64
	rxFreq    float64
	txFreq    float64

	rxGain    [2]float64
	txGain    [2]float64
	gainTable GainTableID

	initialized bool
}

// Device is a handle on one transceiver. All public methods are safe for
// concurrent use; each holds the device for its full duration, including
// every calibration wait.
type Device struct {
	mu sync.Mutex

	bus    Bus
	params ClientParams
	data   DataProvider
	reset  ResetLine
	logger *slog.Logger
	sleep  func(time.Duration)

	regs shadowRegisters
	st   state
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithResetLine sets the hardware reset line pulsed by Initialize.
func WithResetLine(r ResetLine) Option {
	return func(d *Device) {
		d.reset = r
	}
}

// WithSleep replaces time.Sleep for every settle and poll delay.
func WithSleep(fn func(time.Duration)) Option {
	return func(d *Device) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// New creates a Device. No register is touched until Initialize.
func New(bus Bus, params ClientParams, data DataProvider, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, errors.New("register bus is required")
	}
	if params == nil {
		return nil, errors.New("client parameters are required")
	}
	if data == nil {
		return nil, errors.New("data provider is required")
	}

	d := &Device{
		bus:    bus,
		params: params,
		data:   data,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:  time.Sleep,
		regs:   newShadowRegisters(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Initialize resets the chip and runs the complete bring-up and calibration
// sequence. It ends in FDD with TX1 and RX1 enabled.
func (d *Device) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	d.logger.Info("AD9361 initialized",
		"bandwidth", d.st.bandwidth,
		"rx_freq", d.st.rxFreq,
		"tx_freq", d.st.txFreq)
	return nil
}

func (d *Device) initialize() error {
	d.regs.reset()
	d.st = state{}

	// collaborator settings are checked before the chip is touched
	clockSeq, err := clockingSequence(d.params.ClockingMode())
	if err != nil {
		return err
	}
	portSeq, err := interfaceSequence(d.params.DigitalInterfaceMode())
	if err != nil {
		return err
	}

	if d.reset != nil {
		if err := d.reset.Reset(); err != nil {
			return fmt.Errorf("hardware reset: %w", err)
		}
	}

	// soft reset
	if err := d.writeSeq([]regWrite{{RegSPIConf, 0x01}, {RegSPIConf, 0x00}}); err != nil {
		return err
	}
	d.sleep(20 * time.Millisecond)

	err = d.writeSeq([]regWrite{
		{0x3df, 0x01},
		{0x2a6, 0x0e}, // master bias
		{0x2a8, 0x0e}, // bandgap trim
		{0x2ab, 0x07}, // RFPLL reference clock scale, REFCLK × 2
		{0x2ac, 0xff},
	})
	if err != nil {
		return err
	}
	if err := d.writeSeq(clockSeq); err != nil {
		return err
	}
	d.sleep(20 * time.Millisecond)

	if _, err := d.setupRates(InitClockRate); err != nil {
		return err
	}

	if err := d.writeSeq(portSeq); err != nil {
		return err
	}
	t := d.params.DigitalInterfaceTiming()
	err = d.writeSeq([]regWrite{
		{RegRxClkDataDelay, (t.RxClkDelay&0x0F)<<4 | t.RxDataDelay&0x0F},
		{RegTxClkDataDelay, (t.TxClkDelay&0x0F)<<4 | t.TxDataDelay&0x0F},
	})
	if err != nil {
		return err
	}
	if err := d.writeSeq(bringUpSequence); err != nil {
		return err
	}

	if err := d.enterAlert(); err != nil {
		return err
	}
	if err := d.calibrateChargePumps(); err != nil {
		return err
	}
	if _, err := d.tuneRF(RX, InitRxFreq); err != nil {
		return err
	}
	if _, err := d.tuneRF(TX, InitTxFreq); err != nil {
		return err
	}
	if err := d.programMixerGMSubtable(); err != nil {
		return err
	}
	if err := d.programGainTable(); err != nil {
		return err
	}
	if err := d.setupGainControl(); err != nil {
		return err
	}
	if err := d.runAnalogCalibrations(); err != nil {
		return err
	}
	if err := d.finishCalibration(); err != nil {
		return err
	}

	// default TX attenuation: none
	err = d.writeSeq([]regWrite{
		{RegTx1AttenLow, 0x00},
		{RegTx1AttenHigh, 0x00},
		{RegTx2AttenLow, 0x00},
		{RegTx2AttenHigh, 0x00},
	})
	if err != nil {
		return err
	}
	if err := d.writeSeq(rssiSequence); err != nil {
		return err
	}

	if err := d.requestState(ENSMRequestFDD); err != nil {
		return err
	}
	if err := d.setActiveChains(true, false, true, false); err != nil {
		return err
	}
	// replace the calibration gain indices with the recorded gains
	if err := d.reprogramGains(); err != nil {
		return err
	}
	d.st.initialized = true
	return nil
}

// runAnalogCalibrations runs the filter, TIA, ADC and quadrature
// calibrations in their required order.
func (d *Device) runAnalogCalibrations() error {
	if _, err := d.calibrateRxBBFilter(); err != nil {
		return err
	}
	if _, err := d.calibrateTxBBFilter(); err != nil {
		return err
	}
	if err := d.calibrateRxTIAs(); err != nil {
		return err
	}
	if err := d.calibrateSecondaryTxFilter(); err != nil {
		return err
	}
	if err := d.setupADC(); err != nil {
		return err
	}
	if err := d.calibrateTxQuadrature(); err != nil {
		return err
	}
	return d.calibrateRxQuadrature()
}

// finishCalibration re-asserts the data port configuration and the ENSM
// mode after the calibration sequence.
func (d *Device) finishCalibration() error {
	port := uint8(0x02)
	if d.params.DigitalInterfaceMode() == InterfaceLVDS {
		port = 0x10
	}
	return d.writeSeq([]regWrite{
		{RegParallelPort3, port},
		{RegENSMMode, 0x01},
		{RegENSMConfig2, 0x04},
	})
}

// SetClockRate changes the master sample rate, re-running the calibrations
// that depend on it, and returns the achieved baseband bandwidth. The chip
// must be in ALERT or FDD and is returned to that state.
func (d *Device) SetClockRate(rate float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	bw, err := d.setClockRate(rate)
	if err != nil {
		return 0, fmt.Errorf("set clock rate %.0f: %w", rate, err)
	}
	return bw, nil
}

func (d *Device) setClockRate(rate float64) (float64, error) {
	if _, err := planRate(rate); err != nil {
		return 0, err
	}
	if !d.st.initialized {
		return 0, ErrNotInitialized
	}
	if NearlyEqual(rate, d.st.reqClockRate) {
		return d.st.bandwidth, nil
	}

	entry, err := d.ensmState()
	if err != nil {
		return 0, err
	}
	switch entry {
	case StateAlert:
		if err := d.requestState(ENSMRequestFDD); err != nil {
			return 0, err
		}
		d.sleep(5 * time.Millisecond)
		if err := d.requestState(ENSMRequestWait); err != nil {
			return 0, err
		}
	case StateFDD:
		if err := d.requestState(ENSMRequestWait); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownOperatingState, entry)
	}

	// every chain is enabled for calibration; remember the user's choice
	txChains := d.regs.get(RegTxFilt) & ChainMask
	rxChains := d.regs.get(RegRxFilt) & ChainMask

	bw, err := d.setupRates(rate)
	if err != nil {
		return 0, err
	}

	if err := d.enterAlert(); err != nil {
		return 0, err
	}
	if err := d.calibrateChargePumps(); err != nil {
		return 0, err
	}
	if _, err := d.tuneRF(RX, d.st.reqRxFreq); err != nil {
		return 0, err
	}
	if _, err := d.tuneRF(TX, d.st.reqTxFreq); err != nil {
		return 0, err
	}
	if err := d.programMixerGMSubtable(); err != nil {
		return 0, err
	}
	if err := d.programGainTable(); err != nil {
		return 0, err
	}
	if err := d.setupGainControl(); err != nil {
		return 0, err
	}
	if err := d.reprogramGains(); err != nil {
		return 0, err
	}
	if err := d.runAnalogCalibrations(); err != nil {
		return 0, err
	}
	if err := d.finishCalibration(); err != nil {
		return 0, err
	}

	if entry == StateFDD {
		if _, err := d.writeShadow(RegTxFilt, txChains, ChainMask); err != nil {
			return 0, err
		}
		if _, err := d.writeShadow(RegRxFilt, rxChains, ChainMask); err != nil {
			return 0, err
		}
		if err := d.requestState(ENSMRequestFDD); err != nil {
			return 0, err
		}
	}

	d.logger.Info("clock rate set", "rate", rate, "bandwidth", bw,
		"adc_clock", d.st.adcClock, "rx_taps", d.st.rxFIRTaps, "tx_taps", d.st.txFIRTaps)
	return bw, nil
}

// Tune sets the RX or TX LO frequency and returns the achieved frequency.
// Requests within 1 Hz of the previous one are not re-tuned.
func (d *Device) Tune(dir Direction, freq float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := d.tune(dir, freq)
	if err != nil {
		return 0, fmt.Errorf("tune %s %.0f: %w", dir, freq, err)
	}
	return f, nil
}

func (d *Device) tune(dir Direction, freq float64) (float64, error) {
	switch dir {
	case RX:
		if NearlyEqual(freq, d.st.reqRxFreq) {
			return d.st.rxFreq, nil
		}
	case TX:
		if NearlyEqual(freq, d.st.reqTxFreq) {
			return d.st.txFreq, nil
		}
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidDirection, dir)
	}
	if _, err := PlanRFPLL(freq); err != nil {
		return 0, err
	}
	if !d.st.initialized {
		return 0, ErrNotInitialized
	}

	st, err := d.ensmState()
	if err != nil {
		return 0, err
	}
	restore := st == StateFDD || st == StateFDDFlush
	if st != StateAlert {
		if err := d.requestState(ENSMRequestAlert); err != nil {
			return 0, err
		}
		if err := d.waitFlush(); err != nil {
			return 0, err
		}
	}

	actual, err := d.tuneRF(dir, freq)
	if err != nil {
		return 0, err
	}
	if dir == RX {
		if err := d.programGainTable(); err != nil {
			return 0, err
		}
	}
	if err := d.reprogramGains(); err != nil {
		return 0, err
	}
	if err := d.calibrateTxQuadrature(); err != nil {
		return 0, err
	}
	if err := d.calibrateRxQuadrature(); err != nil {
		return 0, err
	}

	if restore {
		if err := d.requestState(ENSMRequestFDD); err != nil {
			return 0, err
		}
	}
	d.logger.Info("LO tuned", "direction", dir, "requested", freq, "actual", actual)
	return actual, nil
}

// SetGain sets one chain's gain in dB and returns the achieved gain. RX
// gain selects a gain table index; TX gain is applied as attenuation from
// MaxTxGain in 0.25 dB steps.
func (d *Device) SetGain(dir Direction, chain Chain, db float64) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, err := d.setGain(dir, chain, db)
	if err != nil {
		return 0, fmt.Errorf("set %s%d gain: %w", dir, chain, err)
	}
	return g, nil
}

// SetActiveChains enables the given TX and RX chains.
func (d *Device) SetActiveChains(tx1, tx2, rx1, rx2 bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setActiveChains(tx1, tx2, rx1, rx2); err != nil {
		return fmt.Errorf("set active chains: %w", err)
	}
	return nil
}

// OutputTestTone enables the built-in TX test tone.
func (d *Device) OutputTestTone() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.writeSeq([]regWrite{
		{RegBISTConfig, 0x0B},
		{RegBISTTone1, 0xFF},
		{RegBISTTone2, 0xFF},
		{RegBISTTone3, 0x3F},
	})
}

// SetDigitalLoopback routes TX data back to RX inside the data port.
func (d *Device) SetDigitalLoopback(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := uint8(0x00)
	if enabled {
		v = 0x01
	}
	return d.write(RegDataPortCfg, v)
}

// ReadRegister reads a raw register for diagnostics. It does not touch the
// shadow state.
func (d *Device) ReadRegister(addr uint16) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.read(addr)
}
