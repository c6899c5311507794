package plugins

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// AD9361 SPI instruction word: bit 15 selects write, bits 14:12 hold the
// byte count minus one, bits 9:0 the register address.
const (
	spiWrite    = 0x80
	spiAddrHigh = 0x03
	spiMaxAddr  = 0x3FF
)

// SPIBus is the register transport to the transceiver over spidev. It
// implements ad9361.Bus with single byte transfers.
type SPIBus struct {
	conn   spi.Conn
	port   spi.PortCloser
	device string
	speed  physic.Frequency
}

// OpenSPIBus opens an SPI device using periph.io
func OpenSPIBus(device string, speed uint32) (*SPIBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io: %w", err)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI device %s: %w", device, err)
	}

	bus, err := NewSPIBus(port, physic.Frequency(speed)*physic.Hertz)
	if err != nil {
		port.Close()
		return nil, err
	}
	bus.device = device
	return bus, nil
}

// NewSPIBus connects to an already opened port. The transceiver samples on
// the falling edge: SPI mode 1, 8 bit words.
func NewSPIBus(port spi.PortCloser, speed physic.Frequency) (*SPIBus, error) {
	conn, err := port.Connect(speed, spi.Mode1, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SPI device: %w", err)
	}
	return &SPIBus{
		conn:   conn,
		port:   port,
		device: port.String(),
		speed:  speed,
	}, nil
}

// Close closes the SPI port
func (s *SPIBus) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}

func (s *SPIBus) transfer(tx, rx []byte) error {
	if s.conn == nil {
		return fmt.Errorf("SPI device not open")
	}
	if err := s.conn.Tx(tx, rx); err != nil {
		return fmt.Errorf("SPI transfer failed: %w", err)
	}
	return nil
}

// WriteRegister writes one register
func (s *SPIBus) WriteRegister(addr uint16, value uint8) error {
	if addr > spiMaxAddr {
		return fmt.Errorf("register address 0x%03X out of range", addr)
	}
	tx := []byte{spiWrite | uint8(addr>>8)&spiAddrHigh, uint8(addr), value}
	return s.transfer(tx, make([]byte, len(tx)))
}

// ReadRegister reads one register. The value arrives in the third byte.
func (s *SPIBus) ReadRegister(addr uint16) (uint8, error) {
	if addr > spiMaxAddr {
		return 0, fmt.Errorf("register address 0x%03X out of range", addr)
	}
	tx := []byte{uint8(addr>>8) & spiAddrHigh, uint8(addr), 0x00}
	rx := make([]byte, len(tx))
	if err := s.transfer(tx, rx); err != nil {
		return 0, err
	}
	return rx[2], nil
}

// String describes the bus
func (s *SPIBus) String() string {
	if s.conn == nil {
		return fmt.Sprintf("%s (closed)", s.device)
	}
	return fmt.Sprintf("%s @ %s", s.device, s.speed)
}
