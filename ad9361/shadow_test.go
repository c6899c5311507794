package ad9361

import (
	"errors"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/linht/ad9361-manager/ad9361/sim"
)

type nopParams struct{}

func (nopParams) ClockingMode() ClockingMode              { return ClockXtalN }
func (nopParams) DigitalInterfaceMode() InterfaceMode     { return InterfaceLVCMOS }
func (nopParams) DigitalInterfaceTiming() InterfaceTiming { return InterfaceTiming{} }
func (nopParams) BandEdge(BandEdge) float64               { return 6e9 }

type nopData struct{}

func (nopData) FIRCoefficients(taps int) ([]int16, error)  { return make([]int16, taps), nil }
func (nopData) GainTable(GainTableID) ([]GainEntry, error) { return make([]GainEntry, GainTableEntries), nil }
func (nopData) SynthVCORates() []float64                   { return []float64{6e9} }
func (nopData) SynthLUT() []SynthRow                       { return make([]SynthRow, 1) }

func newTestDevice(t *testing.T) (*Device, *sim.Chip) {
	t.Helper()
	chip := sim.New()
	d, err := New(chip, nopParams{}, nopData{}, WithSleep(func(time.Duration) {}))
	test.That(t, err, test.ShouldBeNil)
	return d, chip
}

func TestShadowDefaults(t *testing.T) {
	s := newShadowRegisters()
	test.That(t, s.get(RegInputSel), test.ShouldEqual, uint8(0x30))
	test.That(t, s.get(RegBBPLLCtl), test.ShouldEqual, uint8(0x02))
	test.That(t, s.get(RegRxBBFTuneCfg), test.ShouldEqual, uint8(0x1e))
	test.That(t, s.get(RegTxBBFTuneMode), test.ShouldEqual, uint8(0x1e))
	test.That(t, s.get(RegVCODivs), test.ShouldEqual, uint8(0x00))

	s.merge(RegInputSel, 0xFF, 0xFF)
	s.reset()
	test.That(t, s.get(RegInputSel), test.ShouldEqual, uint8(0x30))
}

func TestShadowMerge(t *testing.T) {
	s := newShadowRegisters()

	test.That(t, s.merge(RegVCODivs, 0x02, 0x0F), test.ShouldEqual, uint8(0x02))
	test.That(t, s.merge(RegVCODivs, 0x30, 0xF0), test.ShouldEqual, uint8(0x32))
	// bits outside the mask are ignored
	test.That(t, s.merge(RegVCODivs, 0xFF, 0x0F), test.ShouldEqual, uint8(0x3F))
	test.That(t, s.merge(RegVCODivs, 0x00, 0xF0), test.ShouldEqual, uint8(0x0F))
}

func TestWriteShadow(t *testing.T) {
	d, chip := newTestDevice(t)

	v, err := d.writeShadow(RegInputSel, InputSelTxB, InputSelTxB)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, uint8(0x70))
	test.That(t, chip.Peek(RegInputSel), test.ShouldEqual, uint8(0x70))

	// the shadow, not the chip, is the source of truth
	chip.Poke(RegInputSel, 0x00)
	v, err = d.writeShadow(RegInputSel, InputSelRxBandC, InputSelRxMask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, uint8(0x43))
	test.That(t, chip.Peek(RegInputSel), test.ShouldEqual, uint8(0x43))

	_, err = d.writeShadow(RegBISTConfig, 0x01, 0xFF)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no shadow copy")
}

func TestWriteErrorsCarryAddress(t *testing.T) {
	d, chip := newTestDevice(t)
	boom := errors.New("bus fault")
	chip.FailWrite(RegTxFilt, boom)

	err := d.flushShadow(RegTxFilt)
	test.That(t, errors.Is(err, boom), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "failed to write register 0x002: bus fault")

	chip.FailRead(RegENSMState, boom)
	_, err = d.ensmState()
	test.That(t, err.Error(), test.ShouldEqual, "failed to read register 0x017: bus fault")
}
