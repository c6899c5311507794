package ad9361_test

import (
	"testing"

	"go.viam.com/test"

	"github.com/linht/ad9361-manager/ad9361"
)

func TestRXFilterTuning(t *testing.T) {
	tests := []struct {
		name      string
		bw, bbpll float64
		want      ad9361.RXFilterSetting
	}{
		{"bring-up", 50e6, 1200e6, ad9361.RXFilterSetting{BBBW: 25e6, TuneDiv: 4, MHz: 25, KHz: 0}},
		{"10 MHz", 10e6, 1280e6, ad9361.RXFilterSetting{BBBW: 5e6, TuneDiv: 21, MHz: 5, KHz: 0}},
		{"fractional corner", 5.5e6, 1280e6, ad9361.RXFilterSetting{BBBW: 2.75e6, TuneDiv: 37, MHz: 2, KHz: 96}},
		{"clamped low", 0.1e6, 768e6, ad9361.RXFilterSetting{BBBW: 0.2e6, TuneDiv: 303, MHz: 0, KHz: 26}},
		{"clamped high", 80e6, 1200e6, ad9361.RXFilterSetting{BBBW: 28e6, TuneDiv: 4, MHz: 28, KHz: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.That(t, ad9361.RXFilterTuning(tt.bw, tt.bbpll), test.ShouldResemble, tt.want)
		})
	}

	// the divider is a 9-bit field
	test.That(t, ad9361.RXFilterTuning(0.2e6, 1430e6).TuneDiv, test.ShouldEqual, 511)
}

func TestTXFilterTuning(t *testing.T) {
	bbbw, div := ad9361.TXFilterTuning(50e6, 1200e6)
	test.That(t, bbbw, test.ShouldEqual, 20e6)
	test.That(t, div, test.ShouldEqual, 5)

	bbbw, div = ad9361.TXFilterTuning(10e6, 1280e6)
	test.That(t, bbbw, test.ShouldEqual, 5e6)
	test.That(t, div, test.ShouldEqual, 18)

	bbbw, div = ad9361.TXFilterTuning(0.25e6, 768e6)
	test.That(t, bbbw, test.ShouldEqual, 0.625e6)
	test.That(t, div, test.ShouldEqual, 85)
}

func TestSecondaryTXFilter(t *testing.T) {
	tests := []struct {
		bw         float64
		r0, r1, r2 uint8
	}{
		{50e6, 0x57, 0x0c, 4},
		{20e6, 0x56, 0x0c, 20},
		{10e6, 0x56, 0x0c, 52},
		// narrow bandwidths walk the resistor up to 800 ohm
		{1e6, 0x59, 0x01, 63},
		{0.25e6, 0x59, 0x01, 63},
	}
	for _, tt := range tests {
		r0, r1, r2 := ad9361.SecondaryTXFilter(tt.bw)
		test.That(t, r0, test.ShouldEqual, tt.r0)
		test.That(t, r1, test.ShouldEqual, tt.r1)
		test.That(t, r2, test.ShouldEqual, tt.r2)
	}
}

func TestRXTIASetting(t *testing.T) {
	// above the 2920 fF threshold the high capacitor carries the value
	s := ad9361.RXTIASetting(0x18, 0x40, 0x01, 50e6)
	test.That(t, s.Config, test.ShouldEqual, uint8(0x20))
	test.That(t, s.CapLow, test.ShouldEqual, uint8(0x40))
	test.That(t, s.CapHigh, test.ShouldEqual, uint8(41))
	test.That(t, s.CTIAFemto, test.ShouldAlmostEqual, 13527.36, 0.01)

	s = ad9361.RXTIASetting(0x00, 0x0A, 0x01, 1e6)
	test.That(t, s.Config, test.ShouldEqual, uint8(0xe0))
	test.That(t, s.CapLow, test.ShouldEqual, uint8(0x48))
	test.That(t, s.CapHigh, test.ShouldEqual, uint8(0))

	s = ad9361.RXTIASetting(0x00, 0x00, 0x01, 16e6)
	test.That(t, s.Config, test.ShouldEqual, uint8(0x60))
	test.That(t, s.CapLow, test.ShouldEqual, uint8(0x40))

	// upper bits of the codes are ignored
	test.That(t, ad9361.RXTIASetting(0xD8, 0xC0, 0xF9, 50e6), test.ShouldResemble, ad9361.RXTIASetting(0x18, 0x40, 0x01, 50e6))
}

func TestADCSetup(t *testing.T) {
	t.Run("bring-up", func(t *testing.T) {
		d := ad9361.ADCSetup(ad9361.ADCInputs{
			BBPLLFreq:    1200e6,
			ADCClock:     600e6,
			RxBBFTuneDiv: 4,
			C3MSB:        0x18,
			C3LSB:        0x40,
			R2346:        0x01,
		})
		test.That(t, d[3], test.ShouldEqual, uint8(0x24))
		test.That(t, d[4], test.ShouldEqual, uint8(0x24))
		test.That(t, d[7], test.ShouldEqual, uint8(124))
		test.That(t, d[8], test.ShouldEqual, uint8(2))
		test.That(t, d[9], test.ShouldEqual, uint8(101))
		test.That(t, d[10], test.ShouldEqual, uint8(127))
		test.That(t, d[11], test.ShouldEqual, uint8(2))
		test.That(t, d[12], test.ShouldEqual, uint8(127))
		test.That(t, d[13], test.ShouldEqual, uint8(0))
		test.That(t, d[14], test.ShouldEqual, uint8(0))
		test.That(t, d[15], test.ShouldEqual, uint8(127))
		test.That(t, d[18], test.ShouldEqual, uint8(123))
		test.That(t, d[24], test.ShouldEqual, uint8(0x2e))
		test.That(t, d[35], test.ShouldEqual, uint8(0x40))
		test.That(t, d[37], test.ShouldEqual, uint8(0x2c))
	})

	t.Run("low rate", func(t *testing.T) {
		d := ad9361.ADCSetup(ad9361.ADCInputs{
			BBPLLFreq:    768e6,
			ADCClock:     12e6,
			RxBBFTuneDiv: 303,
			C3MSB:        0x18,
			C3LSB:        0x40,
			R2346:        0x01,
		})
		test.That(t, d[7], test.ShouldEqual, uint8(7))
		test.That(t, d[8], test.ShouldEqual, uint8(255))
		test.That(t, d[9], test.ShouldEqual, uint8(5))
		test.That(t, d[13], test.ShouldEqual, uint8(255))
		test.That(t, d[14], test.ShouldEqual, uint8(105))
		// copies of the computed values
		test.That(t, d[17], test.ShouldEqual, d[15])
		test.That(t, d[20], test.ShouldEqual, d[18])
		test.That(t, d[23], test.ShouldEqual, d[21])
	})

	t.Run("degenerate codes stay in range", func(t *testing.T) {
		d := ad9361.ADCSetup(ad9361.ADCInputs{BBPLLFreq: 1200e6, ADCClock: 600e6})
		test.That(t, d[7], test.ShouldEqual, uint8(0))
		test.That(t, d[8], test.ShouldEqual, uint8(0))
		test.That(t, d[24], test.ShouldEqual, uint8(0x2e))
	})
}

func TestMaxCalToneFreq(t *testing.T) {
	test.That(t, ad9361.MaxCalToneFreq(50e6, 2, 0x00), test.ShouldEqual, 6.25e6)
	test.That(t, ad9361.MaxCalToneFreq(50e6, 2, 0x40), test.ShouldEqual, 12.5e6)
	test.That(t, ad9361.MaxCalToneFreq(61.44e6, 1, 0xC0), test.ShouldEqual, 15.36e6)
}
