package ad9361_test

import (
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/linht/ad9361-manager/ad9361"
	"github.com/linht/ad9361-manager/ad9361/sim"
	"github.com/linht/ad9361-manager/tables"
)

type board struct {
	clock  ad9361.ClockingMode
	iface  ad9361.InterfaceMode
	timing ad9361.InterfaceTiming
}

func (b board) ClockingMode() ad9361.ClockingMode              { return b.clock }
func (b board) DigitalInterfaceMode() ad9361.InterfaceMode     { return b.iface }
func (b board) DigitalInterfaceTiming() ad9361.InterfaceTiming { return b.timing }

func (b board) BandEdge(edge ad9361.BandEdge) float64 {
	switch edge {
	case ad9361.RxBand0:
		return 2e9
	case ad9361.RxBand1:
		return 3e9
	case ad9361.TxBand0:
		return 3e9
	}
	return 6e9
}

// sleepLog records requested delays instead of sleeping.
type sleepLog struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepLog) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
}

func (s *sleepLog) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == d {
			n++
		}
	}
	return n
}

func (s *sleepLog) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

type fixture struct {
	dev    *ad9361.Device
	chip   *sim.Chip
	sleeps *sleepLog
}

func newFixture(t *testing.T, b board, opts ...ad9361.Option) fixture {
	t.Helper()
	data, err := tables.Default()
	test.That(t, err, test.ShouldBeNil)

	chip := sim.New()
	sl := &sleepLog{}
	dev, err := ad9361.New(chip, b, data, append([]ad9361.Option{ad9361.WithSleep(sl.sleep)}, opts...)...)
	test.That(t, err, test.ShouldBeNil)
	return fixture{dev: dev, chip: chip, sleeps: sl}
}

// newInitialized returns a device brought up on an LVCMOS XTALN board, with
// the chip write log cleared.
func newInitialized(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t, board{})
	test.That(t, f.dev.Initialize(), test.ShouldBeNil)
	f.chip.ClearLog()
	f.sleeps.reset()
	return f
}
