// Package tables provides the static lookup data programmed into the
// AD9361: FIR coefficient sets, RX gain tables and the RF synthesizer VCO
// calibration table. The data is read from a YAML file; a default set is
// compiled in.
package tables

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/linht/ad9361-manager/ad9361"
)

//go:embed default.yaml
var defaultData []byte

// file is the on-disk layout.
type file struct {
	FIR        map[int][]int      `yaml:"fir"`
	GainTables map[string][][]int `yaml:"gain_tables"`
	Synth      struct {
		VCORates []float64 `yaml:"vco_rates"`
		LUT      [][]int   `yaml:"lut"`
	} `yaml:"synth"`
}

// Tables is a validated, immutable data set. It implements
// ad9361.DataProvider.
type Tables struct {
	fir      map[int][]int16
	gain     map[ad9361.GainTableID][]ad9361.GainEntry
	vcoRates []float64
	lut      []ad9361.SynthRow
}

// Default returns the compiled-in data set.
func Default() (*Tables, error) {
	return Parse(defaultData)
}

// Load reads a data set from path. An empty path selects the default.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data tables: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML data set.
func Parse(data []byte) (*Tables, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse data tables: %w", err)
	}

	t := &Tables{
		fir:  make(map[int][]int16, len(ad9361.SupportedFIRTaps)),
		gain: make(map[ad9361.GainTableID][]ad9361.GainEntry, 3),
	}
	if err := t.loadFIR(f.FIR); err != nil {
		return nil, err
	}
	if err := t.loadGainTables(f.GainTables); err != nil {
		return nil, err
	}
	if err := t.loadSynth(f.Synth.VCORates, f.Synth.LUT); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tables) loadFIR(sets map[int][]int) error {
	for _, taps := range ad9361.SupportedFIRTaps {
		raw, ok := sets[taps]
		if !ok {
			return fmt.Errorf("fir: missing %d tap set", taps)
		}
		if len(raw) != taps {
			return fmt.Errorf("fir: %d tap set has %d coefficients", taps, len(raw))
		}
		coeffs := make([]int16, taps)
		for i, c := range raw {
			if c < math.MinInt16 || c > math.MaxInt16 {
				return fmt.Errorf("fir: %d tap set coefficient %d out of range: %d", taps, i, c)
			}
			coeffs[i] = int16(c)
		}
		t.fir[taps] = coeffs
	}
	for taps := range sets {
		if !slices.Contains(ad9361.SupportedFIRTaps, taps) {
			return fmt.Errorf("fir: unsupported tap count %d", taps)
		}
	}
	return nil
}

func (t *Tables) loadGainTables(tables map[string][][]int) error {
	for _, id := range []ad9361.GainTableID{
		ad9361.GainTableSub1300,
		ad9361.GainTable1300To4000,
		ad9361.GainTable4000To6000,
	} {
		rows, ok := tables[id.String()]
		if !ok {
			return fmt.Errorf("gain table %s: missing", id)
		}
		if len(rows) != ad9361.GainTableEntries {
			return fmt.Errorf("gain table %s: %d rows, want %d", id, len(rows), ad9361.GainTableEntries)
		}
		entries := make([]ad9361.GainEntry, len(rows))
		for i, row := range rows {
			if len(row) != len(entries[i]) {
				return fmt.Errorf("gain table %s: row %d has %d words", id, i, len(row))
			}
			for j, w := range row {
				if w < 0 || w > 0xFF {
					return fmt.Errorf("gain table %s: row %d word %d out of range: %d", id, i, j, w)
				}
				entries[i][j] = uint8(w)
			}
		}
		t.gain[id] = entries
	}
	return nil
}

func (t *Tables) loadSynth(rates []float64, lut [][]int) error {
	if len(rates) != ad9361.SynthLUTRows {
		return fmt.Errorf("synth: %d VCO rates, want %d", len(rates), ad9361.SynthLUTRows)
	}
	for i := 1; i < len(rates); i++ {
		if rates[i] >= rates[i-1] {
			return fmt.Errorf("synth: VCO rates not descending at row %d", i)
		}
	}
	if len(lut) != ad9361.SynthLUTRows {
		return fmt.Errorf("synth: %d LUT rows, want %d", len(lut), ad9361.SynthLUTRows)
	}
	t.lut = make([]ad9361.SynthRow, len(lut))
	for i, row := range lut {
		if len(row) != ad9361.SynthLUTColumns {
			return fmt.Errorf("synth: LUT row %d has %d columns", i, len(row))
		}
		for j, v := range row {
			if v < 0 || v > 0x3F {
				return fmt.Errorf("synth: LUT row %d column %d out of range: %d", i, j, v)
			}
			t.lut[i][j] = uint8(v)
		}
	}
	t.vcoRates = slices.Clone(rates)
	return nil
}

// FIRCoefficients returns a copy of the coefficient set for taps.
func (t *Tables) FIRCoefficients(taps int) ([]int16, error) {
	c, ok := t.fir[taps]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ad9361.ErrUnsupportedTapCount, taps)
	}
	return slices.Clone(c), nil
}

// GainTable returns a copy of the gain table for id.
func (t *Tables) GainTable(id ad9361.GainTableID) ([]ad9361.GainEntry, error) {
	g, ok := t.gain[id]
	if !ok {
		return nil, fmt.Errorf("no gain table %s", id)
	}
	return slices.Clone(g), nil
}

// SynthVCORates returns the LUT boundary rates, highest first.
func (t *Tables) SynthVCORates() []float64 {
	return slices.Clone(t.vcoRates)
}

// SynthLUT returns the synthesizer calibration rows.
func (t *Tables) SynthLUT() []ad9361.SynthRow {
	return slices.Clone(t.lut)
}
