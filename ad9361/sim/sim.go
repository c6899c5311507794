// Package sim is a register level AD9361 simulation. It models the parts of
// the chip the control core waits on: the ENSM, the self-clearing
// calibration triggers, and the PLL lock and charge pump status bits.
package sim

import (
	"fmt"
	"sync"
)

// Register addresses the simulation reacts to
const (
	regSPIConf       = 0x000
	regENSMMode      = 0x013
	regENSMConfig1   = 0x014
	regCalControl    = 0x016
	regENSMState     = 0x017
	regBBPLLStatus   = 0x05E
	regRxBBFR2346    = 0x1E6
	regRxBBFC3MSB    = 0x1EB
	regRxBBFC3LSB    = 0x1EC
	regRxCPCalCtl    = 0x23D
	regRxCPCalStatus = 0x244
	regRxPLLStatus   = 0x247
	regTxCPCalCtl    = 0x27D
	regTxCPCalStatus = 0x284
	regTxPLLStatus   = 0x287

	addrSpace = 0x400
)

// ENSM states
const (
	StateSleep    = 0x0
	StateAlert    = 0x5
	StateFDD      = 0xA
	StateFDDFlush = 0xB
)

// Write is one logged register write.
type Write struct {
	Addr  uint16
	Value uint8
}

func (w Write) String() string {
	return fmt.Sprintf("0x%03X=0x%02X", w.Addr, w.Value)
}

// Faults selects failure behaviour.
type Faults struct {
	BBPLLUnlocked   bool
	RxPLLUnlocked   bool
	TxPLLUnlocked   bool
	RxChargePumpBad bool
	TxChargePumpBad bool
	StuckCalBits    uint8 // RegCalControl bits that never clear
	StuckFlush      bool  // FDD flush never completes
}

// Chip is a simulated AD9361. It is safe for concurrent use.
type Chip struct {
	mu sync.Mutex

	regs   [addrSpace]uint8
	writes []Write
	reads  int
	faults Faults

	// FlushReads is how many ENSM state reads the FDD flush lasts.
	FlushReads int
	// CalReads is how many RegCalControl reads a trigger stays set.
	CalReads int

	flushLeft int
	calLeft   map[uint8]int
	readErr   map[uint16]error
	writeErr  map[uint16]error
}

// New returns a chip in its power-on state.
func New() *Chip {
	c := &Chip{
		FlushReads: 2,
		CalReads:   1,
		calLeft:    make(map[uint8]int),
		readErr:    make(map[uint16]error),
		writeErr:   make(map[uint16]error),
	}
	c.powerOn()
	return c
}

func (c *Chip) powerOn() {
	c.regs = [addrSpace]uint8{}
	// RX filter capacitor/resistor codes as left by a filter calibration
	c.regs[regRxBBFC3MSB] = 0x18
	c.regs[regRxBBFC3LSB] = 0x40
	c.regs[regRxBBFR2346] = 0x01
	c.regs[regENSMState] = StateSleep
	c.flushLeft = 0
	clear(c.calLeft)
}

// SetFaults replaces the active fault set.
func (c *Chip) SetFaults(f Faults) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = f
}

// FailRead makes reads of addr return err. A nil err clears it.
func (c *Chip) FailRead(addr uint16, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.readErr, addr)
		return
	}
	c.readErr[addr] = err
}

// FailWrite makes writes to addr return err. A nil err clears it.
func (c *Chip) FailWrite(addr uint16, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.writeErr, addr)
		return
	}
	c.writeErr[addr] = err
}

// SetState forces the ENSM state.
func (c *Chip) SetState(state uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[regENSMState] = state & 0x0F
	c.flushLeft = 0
}

// State returns the ENSM state without counting as a read.
func (c *Chip) State() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[regENSMState] & 0x0F
}

// Peek returns a register value without side effects.
func (c *Chip) Peek(addr uint16) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr%addrSpace]
}

// Poke sets a register value without side effects.
func (c *Chip) Poke(addr uint16, v uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[addr%addrSpace] = v
}

// Writes returns a copy of the write log.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Write, len(c.writes))
	copy(out, c.writes)
	return out
}

// WritesTo returns the logged values written to addr, in order.
func (c *Chip) WritesTo(addr uint16) []uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []uint8
	for _, w := range c.writes {
		if w.Addr == addr {
			out = append(out, w.Value)
		}
	}
	return out
}

// WriteCount returns the number of logged writes.
func (c *Chip) WriteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// ReadCount returns the number of reads served.
func (c *Chip) ReadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// ClearLog empties the write log and read counter.
func (c *Chip) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
	c.reads = 0
}

// ReadRegister implements the register bus.
func (c *Chip) ReadRegister(addr uint16) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr >= addrSpace {
		return 0, fmt.Errorf("register address 0x%03X out of range", addr)
	}
	if err := c.readErr[addr]; err != nil {
		return 0, err
	}
	c.reads++

	switch addr {
	case regENSMState:
		v := c.regs[addr]
		if v&0x0F == StateFDDFlush && !c.faults.StuckFlush {
			if c.flushLeft <= 0 {
				c.regs[addr] = StateAlert
			} else {
				c.flushLeft--
			}
		}
		return v, nil

	case regCalControl:
		v := c.regs[addr]
		for bit, left := range c.calLeft {
			if bit&c.faults.StuckCalBits != 0 {
				continue
			}
			if left <= 0 {
				c.regs[addr] &^= bit
				delete(c.calLeft, bit)
			} else {
				c.calLeft[bit] = left - 1
			}
		}
		return v, nil

	case regBBPLLStatus:
		if c.faults.BBPLLUnlocked {
			return c.regs[addr] &^ 0x80, nil
		}
		return c.regs[addr] | 0x80, nil

	case regRxPLLStatus:
		if c.faults.RxPLLUnlocked {
			return c.regs[addr] &^ 0x02, nil
		}
		return c.regs[addr] | 0x02, nil

	case regTxPLLStatus:
		if c.faults.TxPLLUnlocked {
			return c.regs[addr] &^ 0x02, nil
		}
		return c.regs[addr] | 0x02, nil
	}
	return c.regs[addr], nil
}

// WriteRegister implements the register bus.
func (c *Chip) WriteRegister(addr uint16, value uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if addr >= addrSpace {
		return fmt.Errorf("register address 0x%03X out of range", addr)
	}
	if err := c.writeErr[addr]; err != nil {
		return err
	}
	c.writes = append(c.writes, Write{Addr: addr, Value: value})

	switch addr {
	case regSPIConf:
		if value&0x01 != 0 {
			c.powerOn()
		}
		c.regs[addr] = value &^ 0x01
		return nil

	case regENSMConfig1:
		c.regs[addr] = value
		c.request(value)
		return nil

	case regCalControl:
		c.regs[addr] |= value
		for bit := uint8(1); bit != 0; bit <<= 1 {
			if value&bit != 0 {
				c.calLeft[bit] = c.CalReads - 1
			}
		}
		return nil

	case regENSMState, regBBPLLStatus, regRxPLLStatus, regTxPLLStatus:
		// read only
		return nil

	case regRxCPCalCtl:
		c.regs[addr] = value
		c.chargePump(value, regRxCPCalStatus, c.faults.RxChargePumpBad)
		return nil

	case regTxCPCalCtl:
		c.regs[addr] = value
		c.chargePump(value, regTxCPCalStatus, c.faults.TxChargePumpBad)
		return nil
	}

	c.regs[addr] = value
	return nil
}

func (c *Chip) chargePump(ctl uint8, status uint16, bad bool) {
	switch {
	case ctl&0x04 == 0:
		c.regs[status] &^= 0x80
	case !bad:
		c.regs[status] |= 0x80
	}
}

// request applies an ENSM state request written to RegENSMConfig1.
func (c *Chip) request(value uint8) {
	cur := c.regs[regENSMState] & 0x0F
	switch value {
	case 0x00:
		c.regs[regENSMState] = StateSleep
	case 0x05:
		c.regs[regENSMState] = StateAlert
	case 0x01:
		if cur == StateFDD {
			c.regs[regENSMState] = StateFDDFlush
			c.flushLeft = c.FlushReads
			return
		}
		if cur != StateFDDFlush {
			c.regs[regENSMState] = StateAlert
		}
	case 0x21:
		c.regs[regENSMState] = StateFDD
	}
}
