package ad9361

import (
	"fmt"
	"time"
)

// OperatingState is the ENSM state read from the low nibble of RegENSMState.
type OperatingState uint8

const (
	StateSleep    OperatingState = 0x0 // SLEEP / WAIT
	StateAlert    OperatingState = 0x5
	StateFDD      OperatingState = 0xA
	StateFDDFlush OperatingState = 0xB
)

func (s OperatingState) String() string {
	switch s {
	case StateSleep:
		return "sleep"
	case StateAlert:
		return "alert"
	case StateFDD:
		return "fdd"
	case StateFDDFlush:
		return "fdd_flush"
	}
	return fmt.Sprintf("state(0x%X)", uint8(s))
}

func (d *Device) ensmState() (OperatingState, error) {
	v, err := d.read(RegENSMState)
	if err != nil {
		return 0, err
	}
	return OperatingState(v & 0x0F), nil
}

func (d *Device) requestState(req uint8) error {
	return d.write(RegENSMConfig1, req)
}

// enterAlert enables the ENSM in dual synth mode and requests ALERT with
// TXNRX under SPI control.
func (d *Device) enterAlert() error {
	err := d.writeSeq([]regWrite{
		{RegENSMConfig2, 0x04},
		{RegENSMConfig1, ENSMRequestCal},
		{RegENSMMode, 0x01},
	})
	if err != nil {
		return err
	}
	d.sleep(time.Millisecond)
	return nil
}

// requireAlert fails unless the chip is in ALERT.
func (d *Device) requireAlert(what string) error {
	st, err := d.ensmState()
	if err != nil {
		return err
	}
	if st != StateAlert {
		return fmt.Errorf("%w: %s in state %s", ErrWrongOperatingState, what, st)
	}
	return nil
}

// waitFlush waits until the chip leaves FDD and FDD flush.
func (d *Device) waitFlush() error {
	return d.pollWithTimeout(pollFDDFlush, func() (bool, error) {
		st, err := d.ensmState()
		if err != nil {
			return false, err
		}
		return st != StateFDD && st != StateFDDFlush, nil
	})
}
