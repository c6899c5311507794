package ad9361

import "time"

// pollSpec bounds one busy-wait: at most attempts checks, interval apart.
type pollSpec struct {
	stage    Stage
	interval time.Duration
	attempts int
}

// Poll budgets per stage
var (
	pollBBPLLLock    = pollSpec{StageBBPLLLock, 2 * time.Millisecond, 1000}
	pollRxChargePump = pollSpec{StageRxChargePump, time.Millisecond, 6}
	pollTxChargePump = pollSpec{StageTxChargePump, time.Millisecond, 6}
	pollRxBBFilter   = pollSpec{StageRxBBFilter, time.Millisecond, 100}
	pollTxBBFilter   = pollSpec{StageTxBBFilter, time.Millisecond, 100}
	pollBasebandDC   = pollSpec{StageBasebandDC, 5 * time.Millisecond, 100}
	pollRFDC         = pollSpec{StageRFDC, 50 * time.Millisecond, 100}
	pollTxQuadrature = pollSpec{StageTxQuadrature, 10 * time.Millisecond, 100}
	pollRxPLLLock    = pollSpec{StageRxPLLLock, 2 * time.Millisecond, 1}
	pollTxPLLLock    = pollSpec{StageTxPLLLock, 2 * time.Millisecond, 1}
	pollFDDFlush     = pollSpec{StageFDDFlush, time.Millisecond, 1000}
)

// pollWithTimeout evaluates done until it reports true, sleeping the
// interval between checks, or until the attempt budget is spent. Predicate
// errors abort immediately.
func (d *Device) pollWithTimeout(p pollSpec, done func() (bool, error)) error {
	for i := 0; i < p.attempts; i++ {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		d.sleep(p.interval)
	}
	return &TimeoutError{Stage: p.stage, Attempts: p.attempts}
}

// pollBits waits until (reg & mask) == want.
func (d *Device) pollBits(p pollSpec, reg uint16, mask, want uint8) error {
	return d.pollWithTimeout(p, func() (bool, error) {
		v, err := d.read(reg)
		if err != nil {
			return false, err
		}
		return v&mask == want, nil
	})
}

// calibrate sets a self-clearing trigger bit in RegCalControl and waits for
// the chip to clear it.
func (d *Device) calibrate(p pollSpec, bit uint8) error {
	if err := d.write(RegCalControl, bit); err != nil {
		return err
	}
	return d.pollBits(p, RegCalControl, bit, 0)
}
