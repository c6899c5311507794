package ad9361

// AD9361 register addresses used by the control core
const (
	// General / digital interface
	RegSPIConf        = 0x000 // SPI configuration (soft reset)
	RegTxFilt         = 0x002 // TX enables and interpolation filters
	RegRxFilt         = 0x003 // RX enables and decimation filters
	RegInputSel       = 0x004 // RX input / TX output selection
	RegVCODivs        = 0x005 // RX/TX RFPLL VCO dividers
	RegRxClkDataDelay = 0x006 // RX clock and data delay
	RegTxClkDataDelay = 0x007 // TX clock and data delay
	RegClockEnable    = 0x009 // Reference clock enables
	RegBBPLLCtl       = 0x00A // BBPLL divider and DAC clock select
	RegParallelPort1  = 0x010 // Parallel port configuration 1
	RegParallelPort2  = 0x011 // Parallel port configuration 2
	RegParallelPort3  = 0x012 // Parallel port configuration 3
	RegENSMMode       = 0x013 // ENSM mode (FDD)
	RegENSMConfig1    = 0x014 // ENSM configuration 1 (state requests)
	RegENSMConfig2    = 0x015 // ENSM configuration 2 (synth control)
	RegCalControl     = 0x016 // Calibration triggers, self clearing
	RegENSMState      = 0x017 // ENSM state readback
	RegLVDSBias       = 0x03C // LVDS bias control
	RegLVDSInvert1    = 0x03D // LVDS invert control 1
	RegLVDSInvert2    = 0x03E // LVDS invert control 2

	// BBPLL
	RegBBPLLCalStart  = 0x03F // BBPLL calibration start
	RegBBPLLNfrac3    = 0x041 // Nfrac[23:16]
	RegBBPLLNfrac2    = 0x042 // Nfrac[15:8]
	RegBBPLLNfrac1    = 0x043 // Nfrac[7:0]
	RegBBPLLNint      = 0x044 // Nint
	RegBBPLLRefDiv    = 0x045 // Reference clock divider to BBPLL
	RegBBPLLCPCurrent = 0x046 // BBPLL charge pump current
	RegBBPLLLoopFilt1 = 0x048 // BBPLL loop filter 1
	RegBBPLLLoopFilt2 = 0x049 // BBPLL loop filter 2
	RegBBPLLLoopFilt3 = 0x04A // BBPLL loop filter 3
	RegBBPLLVCOCtl    = 0x04B // BBPLL VCO control
	RegBBPLLKV        = 0x04C // BBPLL KV
	RegBBPLLPhase     = 0x04D // BBPLL phase margin
	RegBBPLLAccuracy  = 0x04E // BBPLL accuracy
	RegBBPLLStatus    = 0x05E // BBPLL lock status

	// TX FIR (indirect port)
	RegTxFIRBase = 0x060

	// TX attenuation
	RegTx1AttenLow  = 0x073
	RegTx1AttenHigh = 0x074
	RegTx2AttenLow  = 0x075
	RegTx2AttenHigh = 0x076
	RegTx1AttenCtl  = 0x077
	RegTx2AttenCtl  = 0x07C

	// TX quadrature calibration
	RegTxQuadRxNCO     = 0x0A0
	RegTxQuadTracking  = 0x0A1
	RegTxQuadKexp      = 0x0A2
	RegTxQuadNCO       = 0x0A3
	RegTxQuadSettle    = 0x0A4
	RegTxQuadMagThr1   = 0x0A5
	RegTxQuadMagThr2   = 0x0A6
	RegTxQuadCount     = 0x0A9
	RegTxQuadGainIndex = 0x0AA
	RegTxQuadLPFIndex  = 0x0AE

	// TX baseband filter
	RegTxBBFTuneEnable = 0x0CA
	RegTxSecondFilt0   = 0x0D0
	RegTxSecondFilt1   = 0x0D1
	RegTxSecondFilt2   = 0x0D2
	RegTxBBFTuneDiv    = 0x0D6
	RegTxBBFTuneMode   = 0x0D7

	// RX FIR (indirect port)
	RegRxFIRBase = 0x0F0

	// Gain control
	RegRx1GainIndex = 0x109
	RegRx2GainIndex = 0x10C

	// Gain table (indirect port)
	RegGainTableAddr  = 0x130
	RegGainTableWord1 = 0x131
	RegGainTableWord2 = 0x132
	RegGainTableWord3 = 0x133
	RegGainTableStrb  = 0x134
	RegGainTableCfg   = 0x137

	// Mixer GM sub-table (indirect port)
	RegGMSubAddr = 0x138
	RegGMSubGain = 0x139
	RegGMSubBias = 0x13A
	RegGMSubGM   = 0x13B
	RegGMSubStrb = 0x13C
	RegGMSubCfg  = 0x13F

	// RX quadrature / DC offset
	RegRxQuadTone      = 0x168
	RegRxQuadTracking  = 0x169
	RegRxQuadKexpPhase = 0x16A
	RegRxQuadKexpAmp   = 0x16B
	RegRxQuadGainIndex = 0x16E
	RegRFDCWaitCount   = 0x185
	RegRFDCCount1      = 0x186
	RegRFDCCount2      = 0x187
	RegRFDCCount3      = 0x188
	RegRFDCConfig1     = 0x189
	RegDCOffsetConfig  = 0x18B
	RegBBDCTracking    = 0x190
	RegBBDCConfig1     = 0x193
	RegBBDCConfig2     = 0x194

	// RX baseband filter / TIA
	RegRxMixVoltage1 = 0x1C0
	RegRxMixVoltage2 = 0x1D5
	RegRxTIAConfig   = 0x1DB
	RegRxTIA1CLow    = 0x1DC
	RegRxTIA1CHigh   = 0x1DD
	RegRxTIA2CLow    = 0x1DE
	RegRxTIA2CHigh   = 0x1DF
	RegRx1TuneCtl    = 0x1E2
	RegRx2TuneCtl    = 0x1E3
	RegRxBBFR2346    = 0x1E6
	RegRxBBFC3MSB    = 0x1EB
	RegRxBBFC3LSB    = 0x1EC
	RegRxBBFTuneDiv  = 0x1F8
	RegRxBBFTuneCfg  = 0x1F9
	RegRxBBBWMHz     = 0x1FB
	RegRxBBBWkHz     = 0x1FC

	// ADC setup block (40 consecutive registers)
	RegADCSetupBase = 0x200

	// RX RFPLL
	RegRxNint1        = 0x231
	RegRxNint2        = 0x232
	RegRxNfrac1       = 0x233
	RegRxNfrac2       = 0x234
	RegRxNfrac3       = 0x235
	RegRxVCOCalOffset = 0x238
	RegRxVCOVaractor  = 0x239
	RegRxVCOOutLevel  = 0x23A
	RegRxCPCurrent    = 0x23B
	RegRxCPCalCtl     = 0x23D
	RegRxLoopFiltC    = 0x23E
	RegRxLoopFiltRC   = 0x23F
	RegRxLoopFiltR3   = 0x240
	RegRxVCOBias      = 0x242
	RegRxCPCalStatus  = 0x244
	RegRxVCOCalCtl    = 0x245
	RegRxPLLStatus    = 0x247
	RegRxVCOVarRefTcf = 0x250
	RegRxVCOVarRef    = 0x251

	// TX RFPLL
	RegTxNint1        = 0x271
	RegTxNint2        = 0x272
	RegTxNfrac1       = 0x273
	RegTxNfrac2       = 0x274
	RegTxNfrac3       = 0x275
	RegTxVCOCalOffset = 0x278
	RegTxVCOVaractor  = 0x279
	RegTxVCOOutLevel  = 0x27A
	RegTxCPCurrent    = 0x27B
	RegTxCPCalCtl     = 0x27D
	RegTxLoopFiltC    = 0x27E
	RegTxLoopFiltRC   = 0x27F
	RegTxLoopFiltR3   = 0x280
	RegTxVCOBias      = 0x282
	RegTxCPCalStatus  = 0x284
	RegTxVCOCalCtl    = 0x285
	RegTxPLLStatus    = 0x287
	RegTxVCOVarRefTcf = 0x290
	RegTxVCOVarRef    = 0x291

	// BIST / test
	RegBISTConfig  = 0x3F4
	RegDataPortCfg = 0x3F5
	RegBISTTone1   = 0x3FC
	RegBISTTone2   = 0x3FD
	RegBISTTone3   = 0x3FE
)

// RegCalControl (0x016) trigger bits
const (
	CalRxBBFilter = 1 << 7
	CalTxBBFilter = 1 << 6
	CalTxQuad     = 1 << 4
	CalRFDC       = 1 << 1
	CalBBDC       = 1 << 0
)

// Status bits
const (
	StatBBPLLLocked = 1 << 7 // RegBBPLLStatus
	StatCPCalDone   = 1 << 7 // RegRxCPCalStatus / RegTxCPCalStatus
	StatPLLLocked   = 1 << 1 // RegRxPLLStatus / RegTxPLLStatus
)

// RegENSMConfig1 (0x014) request values
const (
	ENSMRequestWait  = 0x00
	ENSMRequestAlert = 0x01 // from FDD this passes through FDD flush
	ENSMRequestCal   = 0x05 // SPI TXNRX control, to ALERT, TX on
	ENSMRequestFDD   = 0x21
)

// Chain enable bits in RegTxFilt / RegRxFilt
const (
	ChainMask    = 0xC0
	Chain1Enable = 0x40
	Chain2Enable = 0x80
)

// RegInputSel bits
const (
	InputSelTxB     = 0x40 // TX output B selected
	InputSelRxMask  = 0x3F
	InputSelRxBandA = 0x30
	InputSelRxBandB = 0x0C
	InputSelRxBandC = 0x03
)

// RegBBPLLCtl bits
const (
	BBPLLDividerMask = 0x07
	BBPLLDACHalf     = 0x08 // DAC clock = ADC clock / 2, TX FIR bypassed
)

// Register descriptions for the diagnostic read endpoint
var RegisterDescriptions = map[uint16]string{
	RegSPIConf:      "SPI_CONF - SPI configuration / soft reset",
	RegTxFilt:       "TX_FILT - TX enables and interpolation",
	RegRxFilt:       "RX_FILT - RX enables and decimation",
	RegInputSel:     "INPUT_SEL - RX input and TX output select",
	RegVCODivs:      "VCO_DIVS - RFPLL VCO dividers",
	RegBBPLLCtl:     "BBPLL_CTL - BBPLL divider and DAC clock",
	RegENSMMode:     "ENSM_MODE - ENSM mode",
	RegENSMConfig1:  "ENSM_CONFIG1 - ENSM state requests",
	RegENSMConfig2:  "ENSM_CONFIG2 - synthesizer control",
	RegCalControl:   "CAL_CTRL - calibration triggers",
	RegENSMState:    "ENSM_STATE - ENSM state readback",
	RegBBPLLStatus:  "BBPLL_STATUS - BBPLL lock",
	RegRx1GainIndex: "RX1_GAIN - RX1 gain table index",
	RegRx2GainIndex: "RX2_GAIN - RX2 gain table index",
	RegRxPLLStatus:  "RX_PLL_STATUS - RX RFPLL lock",
	RegTxPLLStatus:  "TX_PLL_STATUS - TX RFPLL lock",
	RegDataPortCfg:  "DATA_PORT - digital loopback",
}
