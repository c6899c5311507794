package plugins

import (
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestSPIBusInstructionWord(t *testing.T) {
	port := &spitest.Playback{
		Playback: conntest.Playback{
			Ops: []conntest.IO{
				// write 0x05 to 0x014
				{W: []byte{0x80, 0x14, 0x05}, R: []byte{0, 0, 0}},
				// write 0xAB to 0x3F4, address bits 9:8 in the first byte
				{W: []byte{0x83, 0xF4, 0xAB}, R: []byte{0, 0, 0}},
				// read 0x017
				{W: []byte{0x00, 0x17, 0x00}, R: []byte{0, 0, 0x0A}},
				// read 0x247
				{W: []byte{0x02, 0x47, 0x00}, R: []byte{0, 0, 0x02}},
			},
		},
	}

	bus, err := NewSPIBus(port, 5*physic.MegaHertz)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, bus.WriteRegister(0x014, 0x05), test.ShouldBeNil)
	test.That(t, bus.WriteRegister(0x3F4, 0xAB), test.ShouldBeNil)

	v, err := bus.ReadRegister(0x017)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, uint8(0x0A))

	v, err = bus.ReadRegister(0x247)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, uint8(0x02))

	// out of range addresses never reach the wire
	test.That(t, bus.WriteRegister(0x400, 0x00), test.ShouldNotBeNil)
	_, err = bus.ReadRegister(0x400)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, bus.Close(), test.ShouldBeNil)
}

func TestSPIBusTransferError(t *testing.T) {
	port := &spitest.Playback{
		Playback: conntest.Playback{
			Ops:       []conntest.IO{{W: []byte{0x80, 0x02, 0x01}, R: []byte{0, 0, 0}}},
			DontPanic: true,
		},
	}
	bus, err := NewSPIBus(port, 5*physic.MegaHertz)
	test.That(t, err, test.ShouldBeNil)

	// playback expects a different transfer
	err = bus.WriteRegister(0x003, 0x01)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "SPI transfer failed")
}
