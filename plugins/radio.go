package plugins

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/linht/ad9361-manager/ad9361"
	"github.com/linht/ad9361-manager/ad9361/sim"
	"github.com/linht/ad9361-manager/tables"
)

// Radio defaults
const (
	DefaultSPISpeed       = 5000000 // 5 MHz
	DefaultStatusInterval = time.Second

	defaultRxBand0 = 2.2e9
	defaultRxBand1 = 4e9
	defaultRxBand2 = 6e9
	defaultTxBand0 = 3e9
	defaultTxBand1 = 6e9
)

// RadioConfig holds the transceiver configuration
type RadioConfig struct {
	SPIDevice string `yaml:"spi_device"`
	SPISpeed  uint32 `yaml:"spi_speed"`
	GPIOChip  string `yaml:"gpio_chip"`
	ResetPin  int    `yaml:"reset_pin"`
	Simulate  bool   `yaml:"simulate"`
	DataPath  string `yaml:"data_path"`

	ClockingMode  string                 `yaml:"clocking_mode"`
	InterfaceMode string                 `yaml:"interface_mode"`
	Timing        ad9361.InterfaceTiming `yaml:"timing"`
	BandEdges     BandEdges              `yaml:"band_edges"`

	StatusIntervalMS int `yaml:"status_interval_ms"`
}

// BandEdges are the board input/output switch-over frequencies in Hz
type BandEdges struct {
	RX0 float64 `yaml:"rx0" json:"rx0"`
	RX1 float64 `yaml:"rx1" json:"rx1"`
	RX2 float64 `yaml:"rx2" json:"rx2"`
	TX0 float64 `yaml:"tx0" json:"tx0"`
	TX1 float64 `yaml:"tx1" json:"tx1"`
}

// boardParams is the validated board configuration handed to the device.
type boardParams struct {
	clock  ad9361.ClockingMode
	iface  ad9361.InterfaceMode
	timing ad9361.InterfaceTiming
	edges  BandEdges
}

func (b boardParams) ClockingMode() ad9361.ClockingMode              { return b.clock }
func (b boardParams) DigitalInterfaceMode() ad9361.InterfaceMode     { return b.iface }
func (b boardParams) DigitalInterfaceTiming() ad9361.InterfaceTiming { return b.timing }

func (b boardParams) BandEdge(edge ad9361.BandEdge) float64 {
	switch edge {
	case ad9361.RxBand0:
		return b.edges.RX0
	case ad9361.RxBand1:
		return b.edges.RX1
	case ad9361.RxBand2:
		return b.edges.RX2
	case ad9361.TxBand0:
		return b.edges.TX0
	case ad9361.TxBand1:
		return b.edges.TX1
	}
	return 0
}

func parseClockingMode(s string) (ad9361.ClockingMode, error) {
	switch s {
	case "", "xtal_n":
		return ad9361.ClockXtalN, nil
	case "xtal_p":
		return ad9361.ClockXtalP, nil
	}
	return 0, fmt.Errorf("%w: clocking mode %q", ad9361.ErrInvalidParameter, s)
}

func parseInterfaceMode(s string) (ad9361.InterfaceMode, error) {
	switch s {
	case "", "lvcmos":
		return ad9361.InterfaceLVCMOS, nil
	case "lvds":
		return ad9361.InterfaceLVDS, nil
	}
	return 0, fmt.Errorf("%w: interface mode %q", ad9361.ErrInvalidParameter, s)
}

// withDefaults fills unset fields the way the board ships.
func (cfg RadioConfig) withDefaults() RadioConfig {
	if cfg.SPISpeed == 0 {
		cfg.SPISpeed = DefaultSPISpeed
	}
	if cfg.StatusIntervalMS <= 0 {
		cfg.StatusIntervalMS = int(DefaultStatusInterval / time.Millisecond)
	}
	e := &cfg.BandEdges
	if e.RX0 == 0 {
		e.RX0 = defaultRxBand0
	}
	if e.RX1 == 0 {
		e.RX1 = defaultRxBand1
	}
	if e.RX2 == 0 {
		e.RX2 = defaultRxBand2
	}
	if e.TX0 == 0 {
		e.TX0 = defaultTxBand0
	}
	if e.TX1 == 0 {
		e.TX1 = defaultTxBand1
	}
	return cfg
}

// board validates the configuration and returns the board parameters.
func (cfg RadioConfig) board() (boardParams, error) {
	clock, err := parseClockingMode(cfg.ClockingMode)
	if err != nil {
		return boardParams{}, err
	}
	iface, err := parseInterfaceMode(cfg.InterfaceMode)
	if err != nil {
		return boardParams{}, err
	}
	t := cfg.Timing
	for name, v := range map[string]uint8{
		"rx_clk_delay":  t.RxClkDelay,
		"rx_data_delay": t.RxDataDelay,
		"tx_clk_delay":  t.TxClkDelay,
		"tx_data_delay": t.TxDataDelay,
	} {
		if v > 0x0F {
			return boardParams{}, fmt.Errorf("%w: %s %d exceeds 4 bits", ad9361.ErrInvalidParameter, name, v)
		}
	}
	e := cfg.BandEdges
	if e.RX0 > e.RX1 || e.RX1 > e.RX2 {
		return boardParams{}, fmt.Errorf("%w: rx band edges not ascending", ad9361.ErrInvalidParameter)
	}
	if e.TX0 > e.TX1 {
		return boardParams{}, fmt.Errorf("%w: tx band edges not ascending", ad9361.ErrInvalidParameter)
	}
	return boardParams{clock: clock, iface: iface, timing: t, edges: e}, nil
}

// RadioPlugin exposes the AD9361 control core over HTTP. The device stays
// open for the plugin's lifetime; its shadow registers hold the register
// state.
type RadioPlugin struct {
	config         RadioConfig
	dev            *ad9361.Device
	closers        []io.Closer
	tokenValidator TokenValidator

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRadioPlugin opens the register bus and reset line and creates the
// device. With simulate set no hardware is touched.
func NewRadioPlugin(cfg RadioConfig) (*RadioPlugin, error) {
	cfg = cfg.withDefaults()
	board, err := cfg.board()
	if err != nil {
		return nil, err
	}
	data, err := tables.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("plugin", "radio")
	opts := []ad9361.Option{ad9361.WithLogger(logger)}
	var bus ad9361.Bus
	var closers []io.Closer

	if cfg.Simulate {
		bus = sim.New()
		opts = append(opts, ad9361.WithSleep(func(time.Duration) {}))
	} else {
		spiBus, err := OpenSPIBus(cfg.SPIDevice, cfg.SPISpeed)
		if err != nil {
			return nil, err
		}
		bus = spiBus
		closers = append(closers, spiBus)

		if cfg.GPIOChip != "" {
			reset, err := OpenResetLine(cfg.GPIOChip, cfg.ResetPin)
			if err != nil {
				spiBus.Close()
				return nil, err
			}
			opts = append(opts, ad9361.WithResetLine(reset))
			closers = append(closers, reset)
		}
	}

	dev, err := ad9361.New(bus, board, data, opts...)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}

	slog.Info("Radio plugin initializing",
		"spi_device", cfg.SPIDevice,
		"spi_speed", cfg.SPISpeed,
		"gpio_chip", cfg.GPIOChip,
		"reset_pin", cfg.ResetPin,
		"simulate", cfg.Simulate,
		"clocking_mode", board.clock,
		"interface_mode", board.iface)

	return &RadioPlugin{
		config:  cfg,
		dev:     dev,
		closers: closers,
		stop:    make(chan struct{}),
	}, nil
}

// Name returns the plugin identifier
func (p *RadioPlugin) Name() string {
	return "radio"
}

// SetTokenValidator sets the token check used by the status stream
func (p *RadioPlugin) SetTokenValidator(validator TokenValidator) {
	p.tokenValidator = validator
}

// RegisterRoutes adds the plugin's HTTP routes
func (p *RadioPlugin) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/radio")

	api.Post("/init", p.handleInit)
	api.Post("/rate", p.handleSetRate)
	api.Post("/tune/:dir", p.handleTune)
	api.Post("/gain/:dir/:chain", p.handleSetGain)
	api.Post("/chains", p.handleSetChains)
	api.Post("/test-tone", p.handleTestTone)
	api.Post("/loopback", p.handleLoopback)

	api.Get("/status", p.handleStatus)
	api.Get("/info", p.handleInfo)
	api.Get("/register/:addr", p.handleReadRegister)

	api.Get("/ws", websocket.New(p.handleStatusStream))

	slog.Info("Radio plugin routes registered")
}

// Shutdown stops status streams and releases the hardware
func (p *RadioPlugin) Shutdown() error {
	p.stopOnce.Do(func() { close(p.stop) })

	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// sendRadioError maps the device error categories to HTTP status codes.
func sendRadioError(c *fiber.Ctx, op string, err error) error {
	status := 500
	switch {
	case errors.Is(err, ad9361.ErrInvalidParameter):
		status = 400
	case errors.Is(err, ad9361.ErrOperatingState):
		status = 409
	}
	return SendOpError(c, status, op, err)
}

func newOpID() string {
	return uuid.New().String()
}

// Device control handlers

func (p *RadioPlugin) handleInit(c *fiber.Ctx) error {
	op := newOpID()
	if err := p.dev.Initialize(); err != nil {
		slog.Error("Failed to initialize radio", "op", op, "error", err)
		return sendRadioError(c, op, err)
	}

	st, err := p.dev.Status()
	if err != nil {
		return sendRadioError(c, op, err)
	}

	slog.Info("Radio initialized", "op", op, "state", st.State)
	return SendOpSuccess(c, op, fiber.Map{
		"status": st,
	}, "Radio initialized")
}

func (p *RadioPlugin) handleSetRate(c *fiber.Ctx) error {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	op := newOpID()
	bw, err := p.dev.SetClockRate(req.Rate)
	if err != nil {
		slog.Error("Failed to set clock rate", "op", op, "rate", req.Rate, "error", err)
		return sendRadioError(c, op, err)
	}

	slog.Info("Clock rate set", "op", op, "rate", req.Rate, "bandwidth", bw)
	return SendOpSuccess(c, op, fiber.Map{
		"rate":      req.Rate,
		"bandwidth": bw,
	}, "Clock rate set")
}

func (p *RadioPlugin) handleTune(c *fiber.Ctx) error {
	dir, err := ad9361.ParseDirection(c.Params("dir"))
	if err != nil {
		return sendRadioError(c, "", err)
	}
	var req struct {
		Frequency float64 `json:"frequency"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	op := newOpID()
	actual, err := p.dev.Tune(dir, req.Frequency)
	if err != nil {
		slog.Error("Failed to tune", "op", op, "direction", dir, "frequency", req.Frequency, "error", err)
		return sendRadioError(c, op, err)
	}

	slog.Info("LO frequency set", "op", op, "direction", dir, "requested", req.Frequency, "actual", actual)
	return SendOpSuccess(c, op, fiber.Map{
		"direction": dir.String(),
		"requested": req.Frequency,
		"frequency": actual,
	}, "Frequency set")
}

func (p *RadioPlugin) handleSetGain(c *fiber.Ctx) error {
	dir, err := ad9361.ParseDirection(c.Params("dir"))
	if err != nil {
		return sendRadioError(c, "", err)
	}
	chain, err := c.ParamsInt("chain")
	if err != nil {
		return SendErrorMessage(c, 400, "Invalid chain")
	}
	var req struct {
		Gain float64 `json:"gain"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	op := newOpID()
	got, err := p.dev.SetGain(dir, ad9361.Chain(chain), req.Gain)
	if err != nil {
		return sendRadioError(c, op, err)
	}

	slog.Info("Gain set", "op", op, "direction", dir, "chain", chain, "requested", req.Gain, "gain", got)
	return SendOpSuccess(c, op, fiber.Map{
		"direction": dir.String(),
		"chain":     chain,
		"gain":      got,
	}, "Gain set")
}

func (p *RadioPlugin) handleSetChains(c *fiber.Ctx) error {
	var req ad9361.Chains
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	op := newOpID()
	if err := p.dev.SetActiveChains(req.TX1, req.TX2, req.RX1, req.RX2); err != nil {
		return sendRadioError(c, op, err)
	}

	slog.Info("Active chains set", "op", op, "tx1", req.TX1, "tx2", req.TX2, "rx1", req.RX1, "rx2", req.RX2)
	return SendOpSuccess(c, op, fiber.Map{
		"chains": req,
	}, "Active chains set")
}

func (p *RadioPlugin) handleTestTone(c *fiber.Ctx) error {
	op := newOpID()
	if err := p.dev.OutputTestTone(); err != nil {
		return sendRadioError(c, op, err)
	}
	slog.Info("Test tone enabled", "op", op)
	return SendOpSuccess(c, op, nil, "Test tone enabled")
}

func (p *RadioPlugin) handleLoopback(c *fiber.Ctx) error {
	var req struct {
		Enable bool `json:"enable"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	op := newOpID()
	if err := p.dev.SetDigitalLoopback(req.Enable); err != nil {
		return sendRadioError(c, op, err)
	}
	slog.Info("Digital loopback set", "op", op, "enabled", req.Enable)
	return SendOpSuccess(c, op, fiber.Map{
		"enabled": req.Enable,
	}, "Digital loopback set")
}

func (p *RadioPlugin) handleStatus(c *fiber.Ctx) error {
	st, err := p.dev.Status()
	if err != nil {
		return sendRadioError(c, "", err)
	}
	return SendSuccess(c, st, "")
}

func (p *RadioPlugin) handleInfo(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.Map{
		"config": p.config,
	}, "")
}

// Register access handler. Addresses may be given in decimal or 0x hex.
// Raw writes are not exposed, they would bypass the shadow registers.
func (p *RadioPlugin) handleReadRegister(c *fiber.Ctx) error {
	addr, err := strconv.ParseUint(c.Params("addr"), 0, 16)
	if err != nil || addr > 0x3FF {
		return SendErrorMessage(c, 400, "Invalid register address")
	}

	value, err := p.dev.ReadRegister(uint16(addr))
	if err != nil {
		return sendRadioError(c, "", err)
	}

	desc := ad9361.RegisterDescriptions[uint16(addr)]
	if desc == "" {
		desc = "Unknown register"
	}

	return SendSuccess(c, fiber.Map{
		"address":     fmt.Sprintf("0x%03X", addr),
		"value":       fmt.Sprintf("0x%02X", value),
		"value_dec":   value,
		"description": desc,
	}, "")
}

// handleStatusStream pushes a status snapshot every status interval until
// the client goes away or the plugin shuts down.
func (p *RadioPlugin) handleStatusStream(c *websocket.Conn) {
	if p.tokenValidator != nil && !p.tokenValidator(c.Query("token")) {
		c.WriteJSON(fiber.Map{"error": "Unauthorized"})
		return
	}

	// drain client frames so a close is noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Duration(p.config.StatusIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		msg := fiber.Map{}
		st, err := p.dev.Status()
		msg["status"] = st
		if err != nil {
			msg["error"] = err.Error()
		}
		if err := c.WriteJSON(msg); err != nil {
			slog.Debug("Status stream closed", "error", err)
			return
		}

		select {
		case <-done:
			return
		case <-p.stop:
			return
		case <-ticker.C:
		}
	}
}

// Register the plugin
func init() {
	Register("radio", func(config interface{}) (Plugin, error) {
		switch cfg := config.(type) {
		case RadioConfig:
			return NewRadioPlugin(cfg)
		case *RadioConfig:
			return NewRadioPlugin(*cfg)
		case nil:
			return NewRadioPlugin(RadioConfig{Simulate: true})
		}
		return nil, fmt.Errorf("invalid config for radio plugin: expected RadioConfig")
	})
}
