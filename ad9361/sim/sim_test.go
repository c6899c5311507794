package sim

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func mustRead(t *testing.T, c *Chip, addr uint16) uint8 {
	t.Helper()
	v, err := c.ReadRegister(addr)
	test.That(t, err, test.ShouldBeNil)
	return v
}

func TestPowerOn(t *testing.T) {
	c := New()
	test.That(t, c.State(), test.ShouldEqual, uint8(StateSleep))
	test.That(t, c.Peek(regRxBBFC3MSB), test.ShouldEqual, uint8(0x18))
	test.That(t, c.Peek(regRxBBFC3LSB), test.ShouldEqual, uint8(0x40))
	test.That(t, c.Peek(regRxBBFR2346), test.ShouldEqual, uint8(0x01))

	c.Poke(0x123, 0x55)
	c.SetState(StateFDD)
	test.That(t, c.WriteRegister(regSPIConf, 0x01), test.ShouldBeNil)
	test.That(t, c.Peek(0x123), test.ShouldEqual, uint8(0))
	test.That(t, c.State(), test.ShouldEqual, uint8(StateSleep))
	test.That(t, c.Peek(regSPIConf), test.ShouldEqual, uint8(0))
}

func TestENSMRequests(t *testing.T) {
	c := New()

	test.That(t, c.WriteRegister(regENSMConfig1, 0x05), test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, uint8(StateAlert))

	test.That(t, c.WriteRegister(regENSMConfig1, 0x21), test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, uint8(StateFDD))

	test.That(t, c.WriteRegister(regENSMConfig1, 0x00), test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, uint8(StateSleep))

	// an alert request outside FDD goes straight to ALERT
	test.That(t, c.WriteRegister(regENSMConfig1, 0x01), test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, uint8(StateAlert))
}

func TestFlushCountdown(t *testing.T) {
	c := New()
	c.FlushReads = 2
	c.SetState(StateFDD)

	test.That(t, c.WriteRegister(regENSMConfig1, 0x01), test.ShouldBeNil)
	test.That(t, mustRead(t, c, regENSMState), test.ShouldEqual, uint8(StateFDDFlush))
	test.That(t, mustRead(t, c, regENSMState), test.ShouldEqual, uint8(StateFDDFlush))
	test.That(t, mustRead(t, c, regENSMState), test.ShouldEqual, uint8(StateFDDFlush))
	test.That(t, mustRead(t, c, regENSMState), test.ShouldEqual, uint8(StateAlert))

	t.Run("stuck", func(t *testing.T) {
		c := New()
		c.SetFaults(Faults{StuckFlush: true})
		c.SetState(StateFDD)
		test.That(t, c.WriteRegister(regENSMConfig1, 0x01), test.ShouldBeNil)
		for i := 0; i < 20; i++ {
			test.That(t, mustRead(t, c, regENSMState), test.ShouldEqual, uint8(StateFDDFlush))
		}
	})
}

func TestCalibrationTriggers(t *testing.T) {
	c := New()
	c.CalReads = 2

	test.That(t, c.WriteRegister(regCalControl, 0x80), test.ShouldBeNil)
	test.That(t, mustRead(t, c, regCalControl), test.ShouldEqual, uint8(0x80))
	test.That(t, mustRead(t, c, regCalControl), test.ShouldEqual, uint8(0x80))
	test.That(t, mustRead(t, c, regCalControl), test.ShouldEqual, uint8(0))

	c.SetFaults(Faults{StuckCalBits: 0x02})
	test.That(t, c.WriteRegister(regCalControl, 0x03), test.ShouldBeNil)
	for i := 0; i < 5; i++ {
		mustRead(t, c, regCalControl)
	}
	test.That(t, mustRead(t, c, regCalControl), test.ShouldEqual, uint8(0x02))
}

func TestLockStatus(t *testing.T) {
	c := New()
	test.That(t, mustRead(t, c, regBBPLLStatus)&0x80, test.ShouldEqual, uint8(0x80))
	test.That(t, mustRead(t, c, regRxPLLStatus)&0x02, test.ShouldEqual, uint8(0x02))
	test.That(t, mustRead(t, c, regTxPLLStatus)&0x02, test.ShouldEqual, uint8(0x02))

	c.SetFaults(Faults{BBPLLUnlocked: true, TxPLLUnlocked: true})
	test.That(t, mustRead(t, c, regBBPLLStatus)&0x80, test.ShouldEqual, uint8(0))
	test.That(t, mustRead(t, c, regRxPLLStatus)&0x02, test.ShouldEqual, uint8(0x02))
	test.That(t, mustRead(t, c, regTxPLLStatus)&0x02, test.ShouldEqual, uint8(0))

	// status registers ignore writes
	test.That(t, c.WriteRegister(regENSMState, StateFDD), test.ShouldBeNil)
	test.That(t, c.State(), test.ShouldEqual, uint8(StateSleep))
}

func TestChargePump(t *testing.T) {
	c := New()
	test.That(t, c.WriteRegister(regRxCPCalCtl, 0x04), test.ShouldBeNil)
	test.That(t, c.Peek(regRxCPCalStatus), test.ShouldEqual, uint8(0x80))
	test.That(t, c.WriteRegister(regRxCPCalCtl, 0x00), test.ShouldBeNil)
	test.That(t, c.Peek(regRxCPCalStatus), test.ShouldEqual, uint8(0))

	c.SetFaults(Faults{TxChargePumpBad: true})
	test.That(t, c.WriteRegister(regTxCPCalCtl, 0x04), test.ShouldBeNil)
	test.That(t, c.Peek(regTxCPCalStatus), test.ShouldEqual, uint8(0))
}

func TestLogAndFailures(t *testing.T) {
	c := New()
	test.That(t, c.WriteRegister(0x002, 0x11), test.ShouldBeNil)
	test.That(t, c.WriteRegister(0x003, 0x22), test.ShouldBeNil)
	test.That(t, c.WriteRegister(0x002, 0x33), test.ShouldBeNil)
	mustRead(t, c, 0x002)

	test.That(t, c.WriteCount(), test.ShouldEqual, 3)
	test.That(t, c.ReadCount(), test.ShouldEqual, 1)
	test.That(t, c.WritesTo(0x002), test.ShouldResemble, []uint8{0x11, 0x33})
	test.That(t, c.Writes()[1].String(), test.ShouldEqual, "0x003=0x22")

	c.ClearLog()
	test.That(t, c.WriteCount(), test.ShouldEqual, 0)
	test.That(t, c.ReadCount(), test.ShouldEqual, 0)

	boom := errors.New("bus fault")
	c.FailWrite(0x002, boom)
	c.FailRead(0x003, boom)
	test.That(t, c.WriteRegister(0x002, 0x44), test.ShouldEqual, boom)
	_, err := c.ReadRegister(0x003)
	test.That(t, err, test.ShouldEqual, boom)
	test.That(t, c.WriteCount(), test.ShouldEqual, 0)
	test.That(t, c.Peek(0x002), test.ShouldEqual, uint8(0x33))

	c.FailWrite(0x002, nil)
	c.FailRead(0x003, nil)
	test.That(t, c.WriteRegister(0x002, 0x44), test.ShouldBeNil)
	test.That(t, mustRead(t, c, 0x003), test.ShouldEqual, uint8(0x22))

	_, err = c.ReadRegister(addrSpace)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, c.WriteRegister(addrSpace, 0), test.ShouldNotBeNil)
}
