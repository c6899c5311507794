package ad9361

import "math"

// ADCSetupRegisters is the number of consecutive ADC setup registers.
const ADCSetupRegisters = 40

// ADCInputs are the values the ADC register derivation depends on.
type ADCInputs struct {
	BBPLLFreq    float64 // Hz
	ADCClock     float64 // Hz
	RxBBFTuneDiv int
	C3MSB        uint8 // 0x1EB, 6 bits
	C3LSB        uint8 // 0x1EC, 7 bits
	R2346        uint8 // 0x1E6, 3 bits
}

// code floors v and clamps it to [0, hi].
func code(v, hi float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(clamp(math.Floor(v), 0, hi))
}

// ADCSetup derives the 40 ADC setup register values. The order matters:
// later registers are computed from the already quantized earlier ones.
func ADCSetup(in ADCInputs) [ADCSetupRegisters]uint8 {
	bbbwMHz := 0.2
	if in.RxBBFTuneDiv > 0 {
		bbbwMHz = ((in.BBPLLFreq / 1e6) / float64(in.RxBBFTuneDiv)) * math.Ln2 / (1.4 * 2 * math.Pi)
	}
	bbbwMHz = clamp(bbbwMHz, 0.2, 28)

	msb := float64(in.C3MSB & 0x3F)
	lsb := float64(in.C3LSB & 0x7F)
	r := float64(in.R2346 & 0x07)
	fs := in.ADCClock / 1e6

	denom := (1.4 * 2 * math.Pi) * (18300 * r) * (160e-15*msb + 10e-15*lsb + 140e-15) * (bbbwMHz * 1e6)
	if bbbwMHz >= 18 {
		denom *= 1 + 0.01*(bbbwMHz-18)
	}
	rc := 1 / denom

	scaleRes := math.Sqrt(1 / rc)
	scaleCap := math.Sqrt(1 / rc)
	scaleSNR := 1.0
	if in.ADCClock >= 80e6 {
		scaleSNR = 1.584893192
	}
	const maxSNR = 640.0 / 160.0

	ratio := 640 / fs
	snrLimit := math.Min(1, math.Sqrt(maxSNR*fs/640))
	settle := 0.98 + 0.02*math.Max(1, ratio/maxSNR)

	var data [ADCSetupRegisters]uint8
	data[3] = 0x24
	data[4] = 0x24

	data[7] = code(-0.5+80*scaleSNR*scaleRes*snrLimit, 124)
	d7 := float64(data[7])
	data[8] = code(0.5+20*ratio*(d7/80)/(scaleRes*scaleCap), 255)

	data[10] = code(-0.5+77*scaleRes*snrLimit, 127)
	d10 := float64(data[10])
	data[9] = code(0.8*d10, 127)
	data[11] = code(0.5+20*ratio*(d10/77)/(scaleRes*scaleCap), 255)

	data[12] = code(-0.5+80*scaleRes*snrLimit, 127)
	d12 := float64(data[12])
	data[13] = code(-1.5+20*ratio*(d12/80)/(scaleRes*scaleCap), 255)

	data[14] = 21 * code(0.1*ratio, 12)

	data[15] = code(1.025*d7, 127)
	data[16] = code(float64(data[15])*settle, 127)
	data[17] = data[15]

	data[18] = code(0.975*d10, 127)
	data[19] = code(float64(data[18])*settle, 127)
	data[20] = data[18]

	data[21] = code(0.975*d12, 127)
	data[22] = code(float64(data[21])*settle, 127)
	data[23] = data[21]

	data[24] = 0x2e

	lin := math.Min(63, 63*(fs/640))
	trim := math.Min(63, 63*(fs/640)*(0.92+0.08*ratio))
	half := math.Min(63, 32*math.Sqrt(fs/640))
	for _, base := range []int{25, 28, 31} {
		data[base] = code(128+lin, 255)
		data[base+1] = code(trim, 63)
		if base != 31 {
			data[base+2] = code(half, 63)
		}
	}
	data[33] = code(math.Min(63, 63*math.Sqrt(fs/640)), 63)
	data[34] = code(64*math.Sqrt(fs/640), 127)

	data[35] = 0x40
	data[36] = 0x40
	data[37] = 0x2c
	return data
}

// setupADC reads the RX filter codes and writes the derived ADC setup block.
func (d *Device) setupADC() error {
	in := ADCInputs{
		BBPLLFreq:    d.st.bbpllFreq,
		ADCClock:     d.st.adcClock,
		RxBBFTuneDiv: d.st.rxBBFTuneDiv,
	}
	var err error
	if in.C3MSB, err = d.read(RegRxBBFC3MSB); err != nil {
		return err
	}
	if in.C3LSB, err = d.read(RegRxBBFC3LSB); err != nil {
		return err
	}
	if in.R2346, err = d.read(RegRxBBFR2346); err != nil {
		return err
	}

	data := ADCSetup(in)
	for i, v := range data {
		if err := d.write(RegADCSetupBase+uint16(i), v); err != nil {
			return err
		}
	}
	return nil
}
