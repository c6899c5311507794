package ad9361

import "fmt"

func clockingSequence(mode ClockingMode) ([]regWrite, error) {
	switch mode {
	case ClockXtalN:
		return []regWrite{{RegClockEnable, 0x17}}, nil
	case ClockXtalP:
		return []regWrite{
			{RegClockEnable, 0x07},
			{0x292, 0x08},
			{0x293, 0x80},
			{0x294, 0x00},
			{0x295, 0x14},
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedClockingMode, mode)
}

// interfaceSequence configures the FDD dual port DDR data interface, TX on
// one port and RX on the other.
func interfaceSequence(mode InterfaceMode) ([]regWrite, error) {
	switch mode {
	case InterfaceLVCMOS:
		return []regWrite{
			{RegParallelPort1, 0xc8},
			{RegParallelPort2, 0x00},
			{RegParallelPort3, 0x02},
		}, nil
	case InterfaceLVDS:
		return []regWrite{
			{RegParallelPort1, 0xcc},
			{RegParallelPort2, 0x00},
			{RegParallelPort3, 0x10},
			{RegLVDSBias, 0x23},
			{RegLVDSInvert1, 0xFF},
			{RegLVDSInvert2, 0x0F},
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedInterfaceMode, mode)
}

// bringUpSequence covers the auxiliary blocks and synthesizer defaults
// programmed once per Initialize, before the ENSM is enabled.
var bringUpSequence = []regWrite{
	// AuxDAC
	{0x018, 0x00}, // AuxDAC1 word[9:2]
	{0x019, 0x00}, // AuxDAC2 word[9:2]
	{0x01A, 0x00}, // AuxDAC1 config and word[1:0]
	{0x01B, 0x00}, // AuxDAC2 config and word[1:0]
	{0x022, 0x4A}, // invert bypassed LNA
	{0x023, 0xFF}, // AuxDAC manual/auto control
	{0x026, 0x00}, // AuxDAC manual select, GPO manual select
	{0x030, 0x00}, // AuxDAC1 RX delay
	{0x031, 0x00}, // AuxDAC1 TX delay
	{0x032, 0x00}, // AuxDAC2 RX delay
	{0x033, 0x00}, // AuxDAC2 TX delay

	// AuxADC and temperature sensor
	{0x00B, 0x00}, // offset
	{0x00C, 0x00}, // temp window
	{0x00D, 0x03}, // periodic measure
	{0x00F, 0x04}, // decimation
	{0x01C, 0x10}, // AuxADC clock divider
	{0x01D, 0x01}, // AuxADC decimation, enable

	// control outputs
	{0x035, 0x07},
	{0x036, 0xFF},

	// GPO
	{0x03a, 0x27}, // delay
	{0x020, 0x00}, // auto enable in RX and TX
	{0x027, 0x03}, // manual and auto value in ALERT
	{0x028, 0x00},
	{0x029, 0x00},
	{0x02A, 0x00},
	{0x02B, 0x00},
	{0x02C, 0x00},
	{0x02D, 0x00},
	{0x02E, 0x00},
	{0x02F, 0x00},

	// LO power, VCO LDOs, synthesizer defaults
	{0x261, 0x00}, // RX LO power
	{0x2a1, 0x00}, // TX LO power
	{0x248, 0x0b}, // RX VCO LDO
	{0x288, 0x0b}, // TX VCO LDO
	{0x246, 0x02}, // RX cal Tcf power down
	{0x286, 0x02}, // TX cal Tcf power down
	{0x249, 0x8e}, // RX VCO cal length
	{0x289, 0x8e}, // TX VCO cal length
	{RegRxCPCurrent, 0x80},
	{RegTxCPCurrent, 0x80},
	{0x243, 0x0d}, // RX prescaler bias
	{0x283, 0x0d}, // TX prescaler bias
	{RegRxCPCalCtl, 0x00},
	{RegTxCPCalCtl, 0x00},
}

// rssiSequence sets up RSSI and power measurement.
var rssiSequence = []regWrite{
	{0x150, 0x0E}, // measurement duration 0, 1
	{0x151, 0x00}, // measurement duration 2, 3
	{0x152, 0xFF}, // weighted multiplier 0
	{0x153, 0x00},
	{0x154, 0x00},
	{0x155, 0x00},
	{0x156, 0x00}, // delay
	{0x157, 0x00}, // wait
	{0x158, 0x0D}, // mode select
	{0x15C, 0x67}, // power measurement duration
}
