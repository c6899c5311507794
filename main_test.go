package main

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.viam.com/test"
	"golang.org/x/crypto/bcrypt"
)

const testConfig = `
server:
  host: 127.0.0.1
  port: "8080"
log_level: debug
radio:
  simulate: true
  clocking_mode: xtal_p
  interface_mode: lvds
  timing:
    rx_clk_delay: 3
    tx_data_delay: 2
  band_edges:
    rx0: 1.5e9
plugins:
  - radio
  - missing
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadConfig(t *testing.T) {
	config = Config{}
	test.That(t, loadConfig(writeConfig(t, testConfig)), test.ShouldBeNil)

	test.That(t, config.Server.Port, test.ShouldEqual, "8080")
	test.That(t, config.LogLevel, test.ShouldEqual, "debug")
	test.That(t, config.Radio.Simulate, test.ShouldBeTrue)
	test.That(t, config.Radio.ClockingMode, test.ShouldEqual, "xtal_p")
	test.That(t, config.Radio.Timing.RxClkDelay, test.ShouldEqual, uint8(3))
	test.That(t, config.Radio.Timing.TxDataDelay, test.ShouldEqual, uint8(2))
	test.That(t, config.Radio.BandEdges.RX0, test.ShouldEqual, 1.5e9)
	test.That(t, config.Plugins, test.ShouldResemble, []string{"radio", "missing"})

	test.That(t, loadConfig(filepath.Join(t.TempDir(), "none.yaml")), test.ShouldNotBeNil)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := parseLogLevel(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, want)
	}

	_, err := parseLogLevel("chatty")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInitPlugins(t *testing.T) {
	config = Config{}
	test.That(t, loadConfig(writeConfig(t, testConfig)), test.ShouldBeNil)

	app := fiber.New()
	loaded, err := initPlugins(app)
	test.That(t, err, test.ShouldBeNil)
	defer shutdownPlugins(loaded)
	test.That(t, loaded, test.ShouldHaveLength, 1)
	test.That(t, loaded[0].Name(), test.ShouldEqual, "radio")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/radio/status", nil), -1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, 200)

	config.Radio.ClockingMode = "external"
	_, err = initPlugins(fiber.New())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "plugin radio")
}

func TestAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	test.That(t, err, test.ShouldBeNil)
	config = Config{}
	config.Auth.PasswordHash = string(hash)

	app := fiber.New()
	app.Post("/login", handleLogin)
	app.Post("/logout", handleLogout)
	app.Use("/api", authMiddleware)
	app.Get("/api/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	login := func(password string) int {
		req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"password":"`+password+`"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		test.That(t, err, test.ShouldBeNil)
		return resp.StatusCode
	}

	test.That(t, login("wrong"), test.ShouldEqual, 401)
	test.That(t, login("secret"), test.ShouldEqual, 200)

	sessionMu.RLock()
	token := currentSession.Token
	sessionMu.RUnlock()
	test.That(t, validateToken(token), test.ShouldBeTrue)
	test.That(t, validateToken(""), test.ShouldBeFalse)
	test.That(t, validateToken("nope"), test.ShouldBeFalse)

	req := httptest.NewRequest("GET", "/api/ping", nil)
	resp, err := app.Test(req, -1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, 401)

	req = httptest.NewRequest("GET", "/api/ping", nil)
	req.Header.Set("X-Auth-Token", token)
	resp, err = app.Test(req, -1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, 200)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/ping?token="+token, nil), -1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, 200)

	// expired sessions are rejected
	sessionMu.Lock()
	currentSession.ExpiresAt = time.Now().Add(-time.Minute)
	sessionMu.Unlock()
	test.That(t, validateToken(token), test.ShouldBeFalse)

	_, err = app.Test(httptest.NewRequest("POST", "/logout", nil), -1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, validateToken(token), test.ShouldBeFalse)
}
