package ad9361

// Chains reports which chains are enabled.
type Chains struct {
	TX1 bool `json:"tx1"`
	TX2 bool `json:"tx2"`
	RX1 bool `json:"rx1"`
	RX2 bool `json:"rx2"`
}

// Status is a snapshot of the device state.
type Status struct {
	Initialized bool           `json:"initialized"`
	State       string         `json:"state"`
	StateCode   OperatingState `json:"state_code"`
	ClockRate   float64        `json:"clock_rate"`
	Bandwidth   float64        `json:"bandwidth"`
	BBPLLFreq   float64        `json:"bbpll_freq"`
	ADCClock    float64        `json:"adc_clock"`
	DACClock    float64        `json:"dac_clock"`
	RxFIRTaps   int            `json:"rx_fir_taps"`
	TxFIRTaps   int            `json:"tx_fir_taps"`
	RxFreq      float64        `json:"rx_freq"`
	TxFreq      float64        `json:"tx_freq"`
	RequestedRx float64        `json:"requested_rx_freq"`
	RequestedTx float64        `json:"requested_tx_freq"`
	RxGain      [2]float64     `json:"rx_gain"`
	TxGain      [2]float64     `json:"tx_gain"`
	GainTable   string         `json:"gain_table"`
	Chains      Chains         `json:"chains"`
}

// Status returns a snapshot. The operating state is read from the chip
// once the device is initialized.
func (d *Device) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	txf := d.regs.get(RegTxFilt)
	rxf := d.regs.get(RegRxFilt)
	s := Status{
		Initialized: d.st.initialized,
		ClockRate:   d.st.reqClockRate,
		Bandwidth:   d.st.bandwidth,
		BBPLLFreq:   d.st.bbpllFreq,
		ADCClock:    d.st.adcClock,
		DACClock:    d.st.dacClock,
		RxFIRTaps:   d.st.rxFIRTaps,
		TxFIRTaps:   d.st.txFIRTaps,
		RxFreq:      d.st.rxFreq,
		TxFreq:      d.st.txFreq,
		RequestedRx: d.st.reqRxFreq,
		RequestedTx: d.st.reqTxFreq,
		RxGain:      d.st.rxGain,
		TxGain:      d.st.txGain,
		GainTable:   d.st.gainTable.String(),
		Chains: Chains{
			TX1: txf&Chain1Enable != 0,
			TX2: txf&Chain2Enable != 0,
			RX1: rxf&Chain1Enable != 0,
			RX2: rxf&Chain2Enable != 0,
		},
		State: "unknown",
	}
	if !d.st.initialized {
		return s, nil
	}

	st, err := d.ensmState()
	if err != nil {
		return s, err
	}
	s.StateCode = st
	s.State = st.String()
	return s, nil
}
