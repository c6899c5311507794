package plugins

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Reset pulse timing. RESETB is active low.
const (
	resetPulse  = time.Millisecond
	resetSettle = time.Millisecond
)

// ResetLine drives the transceiver RESETB pin through the GPIO character
// device. It implements ad9361.ResetLine.
type ResetLine struct {
	chip     *gpiocdev.Chip
	line     *gpiocdev.Line
	chipPath string
	pin      int
	sleep    func(time.Duration)
}

// OpenResetLine requests pin on chipPath as an output, initially high (not
// in reset).
func OpenResetLine(chipPath string, pin int) (*ResetLine, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipPath, err)
	}

	line, err := chip.RequestLine(
		pin,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("ad9361-reset"),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request reset pin %d: %w", pin, err)
	}

	return &ResetLine{
		chip:     chip,
		line:     line,
		chipPath: chipPath,
		pin:      pin,
		sleep:    time.Sleep,
	}, nil
}

// Reset holds RESETB low, releases it and waits for the chip to come up.
func (r *ResetLine) Reset() error {
	if r.line == nil {
		return fmt.Errorf("reset line not initialized")
	}

	if err := r.line.SetValue(0); err != nil {
		return fmt.Errorf("failed to set reset pin LOW: %w", err)
	}
	r.sleep(resetPulse)

	if err := r.line.SetValue(1); err != nil {
		return fmt.Errorf("failed to set reset pin HIGH: %w", err)
	}
	r.sleep(resetSettle)
	return nil
}

// Close releases the line and the chip
func (r *ResetLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close reset line: %w", err))
		}
		r.line = nil
	}

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close GPIO chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing GPIO: %v", errs)
	}
	return nil
}

// String describes the line
func (r *ResetLine) String() string {
	if r.chip == nil {
		return fmt.Sprintf("%s:%d (closed)", r.chipPath, r.pin)
	}
	return fmt.Sprintf("%s (%s):%d", r.chipPath, r.chip.Label, r.pin)
}
