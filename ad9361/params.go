package ad9361

import "fmt"

// Bus is the register interface to the chip: byte wide registers behind a
// 10-bit address. Implementations need not be safe for concurrent use, the
// Device serializes every access.
type Bus interface {
	ReadRegister(addr uint16) (uint8, error)
	WriteRegister(addr uint16, value uint8) error
}

// ResetLine pulses the chip's hardware reset pin. Optional.
type ResetLine interface {
	Reset() error
}

// ClockingMode selects the reference clock path.
type ClockingMode int

const (
	ClockXtalN ClockingMode = iota // reference on XTALN
	ClockXtalP                     // crystal between XTALP and XTALN
)

func (m ClockingMode) String() string {
	switch m {
	case ClockXtalN:
		return "xtal_n"
	case ClockXtalP:
		return "xtal_p"
	}
	return fmt.Sprintf("ClockingMode(%d)", int(m))
}

// InterfaceMode selects the data port physical layer.
type InterfaceMode int

const (
	InterfaceLVCMOS InterfaceMode = iota // FDD dual port DDR CMOS
	InterfaceLVDS                        // FDD DDR LVDS
)

func (m InterfaceMode) String() string {
	switch m {
	case InterfaceLVCMOS:
		return "lvcmos"
	case InterfaceLVDS:
		return "lvds"
	}
	return fmt.Sprintf("InterfaceMode(%d)", int(m))
}

// InterfaceTiming holds the data port clock/data delays, 4 bits each.
type InterfaceTiming struct {
	RxClkDelay  uint8 `yaml:"rx_clk_delay" json:"rx_clk_delay"`
	RxDataDelay uint8 `yaml:"rx_data_delay" json:"rx_data_delay"`
	TxClkDelay  uint8 `yaml:"tx_clk_delay" json:"tx_clk_delay"`
	TxDataDelay uint8 `yaml:"tx_data_delay" json:"tx_data_delay"`
}

// BandEdge names a board-specific frequency threshold.
type BandEdge int

const (
	RxBand0 BandEdge = iota // upper edge of RX input A
	RxBand1                 // upper edge of RX input B
	RxBand2                 // upper edge of RX input C
	TxBand0                 // upper edge of TX output B
	TxBand1                 // upper edge of TX output A
)

// ClientParams is the board configuration collaborator.
type ClientParams interface {
	ClockingMode() ClockingMode
	DigitalInterfaceMode() InterfaceMode
	DigitalInterfaceTiming() InterfaceTiming
	BandEdge(edge BandEdge) float64
}

// GainEntry is one row of an RX gain table: the three table words written
// at each index.
type GainEntry [3]uint8

// GainTableID identifies one of the frequency-band keyed RX gain tables.
type GainTableID int

const (
	GainTableNone       GainTableID = iota // nothing loaded yet
	GainTableSub1300                       // below 1.3 GHz
	GainTable1300To4000                    // 1.3 GHz to 4 GHz
	GainTable4000To6000                    // 4 GHz to 6 GHz
)

func (g GainTableID) String() string {
	switch g {
	case GainTableNone:
		return "none"
	case GainTableSub1300:
		return "sub_1300mhz"
	case GainTable1300To4000:
		return "1300mhz_to_4000mhz"
	case GainTable4000To6000:
		return "4000mhz_to_6000mhz"
	}
	return fmt.Sprintf("GainTableID(%d)", int(g))
}

// Static data sizes
const (
	GainTableEntries = 77 // populated gain table rows
	GainTableSize    = 91 // rows programmed, the rest are zero
	SynthLUTRows     = 53
	SynthLUTColumns  = 12
)

// SynthRow holds the synthesizer calibration values for one VCO range:
// output level, varactor, bias ref, bias tcf, cal offset, varactor ref,
// charge pump current, loop filter C2, C1, R1, C3, R3.
type SynthRow [SynthLUTColumns]uint8

// DataProvider publishes the immutable lookup data the core programs.
type DataProvider interface {
	// FIRCoefficients returns the coefficient set with exactly taps entries.
	FIRCoefficients(taps int) ([]int16, error)
	// GainTable returns the GainTableEntries populated rows for id.
	GainTable(id GainTableID) ([]GainEntry, error)
	// SynthVCORates returns the SynthLUTRows lower boundary VCO rates in Hz,
	// in descending order.
	SynthVCORates() []float64
	// SynthLUT returns the SynthLUTRows calibration rows.
	SynthLUT() []SynthRow
}

// Direction selects the receive or transmit path.
type Direction int

const (
	RX Direction = iota
	TX
)

func (d Direction) String() string {
	switch d {
	case RX:
		return "rx"
	case TX:
		return "tx"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "rx" or "tx".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "rx", "RX":
		return RX, nil
	case "tx", "TX":
		return TX, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Chain selects side A (1) or side B (2) of a direction.
type Chain int

const (
	Chain1 Chain = 1
	Chain2 Chain = 2
)

func (c Chain) valid() bool {
	return c == Chain1 || c == Chain2
}
