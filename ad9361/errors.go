package ad9361

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a Device operation matches
// exactly one of these through errors.Is, except bus transport errors which
// are passed through wrapped.
var (
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrOperatingState          = errors.New("operating state violation")
	ErrCalibrationTimeout      = errors.New("calibration timeout")
	ErrCalibrationPrecondition = errors.New("calibration precondition failed")
)

// Invalid parameters
var (
	ErrRateOutOfRange           = fmt.Errorf("%w: rate out of range", ErrInvalidParameter)
	ErrNoValidDivider           = fmt.Errorf("%w: no VCO divider places rate in VCO range", ErrInvalidParameter)
	ErrUnsupportedTapCount      = fmt.Errorf("%w: unsupported FIR tap count", ErrInvalidParameter)
	ErrUnsupportedInterfaceMode = fmt.Errorf("%w: unsupported digital interface mode", ErrInvalidParameter)
	ErrUnsupportedClockingMode  = fmt.Errorf("%w: unsupported clocking mode", ErrInvalidParameter)
	ErrFrequencyOutOfRange      = fmt.Errorf("%w: frequency out of range", ErrInvalidParameter)
	ErrInvalidDirection         = fmt.Errorf("%w: invalid direction", ErrInvalidParameter)
	ErrInvalidChain             = fmt.Errorf("%w: invalid chain", ErrInvalidParameter)
)

// Operating state violations
var (
	ErrWrongOperatingState   = fmt.Errorf("%w: device not in ALERT", ErrOperatingState)
	ErrUnknownOperatingState = fmt.Errorf("%w: device in unknown state", ErrOperatingState)
	ErrNotInitialized        = fmt.Errorf("%w: device not initialized", ErrOperatingState)
)

// ErrCalibrationToneOutOfBand is returned when the TX quadrature calibration
// tones would fall outside the RX baseband filter.
var ErrCalibrationToneOutOfBand = fmt.Errorf("%w: calibration tone outside baseband bandwidth", ErrCalibrationPrecondition)

// ErrPLLNotLocked is matched by timeouts of the PLL lock stages.
var ErrPLLNotLocked = errors.New("PLL not locked")

// Stage identifies the bounded wait that timed out.
type Stage string

const (
	StageBBPLLLock    Stage = "bbpll lock"
	StageRxPLLLock    Stage = "rx pll lock"
	StageTxPLLLock    Stage = "tx pll lock"
	StageRxChargePump Stage = "rx charge pump"
	StageTxChargePump Stage = "tx charge pump"
	StageRxBBFilter   Stage = "rx baseband filter"
	StageTxBBFilter   Stage = "tx baseband filter"
	StageBasebandDC   Stage = "baseband dc offset"
	StageRFDC         Stage = "rf dc offset"
	StageTxQuadrature Stage = "tx quadrature"
	StageFDDFlush     Stage = "fdd flush"
)

// TimeoutError reports a bounded poll that exceeded its attempt budget.
type TimeoutError struct {
	Stage    Stage
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no completion after %d attempts", e.Stage, e.Attempts)
}

// Is matches ErrCalibrationTimeout, and ErrPLLNotLocked for the PLL stages.
func (e *TimeoutError) Is(target error) bool {
	switch target {
	case ErrCalibrationTimeout:
		return true
	case ErrPLLNotLocked:
		return e.Stage == StageBBPLLLock || e.Stage == StageRxPLLLock || e.Stage == StageTxPLLLock
	}
	return false
}
