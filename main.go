package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/linht/ad9361-manager/plugins"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Configuration constants
const (
	// Server timeouts
	ServerReadTimeout  = 120 * time.Second
	ServerWriteTimeout = 120 * time.Second

	// Control requests are small JSON bodies
	MaxBodySize = 64 * 1024

	// Session management (24-hour expiry)
	SessionDuration = 24 * time.Hour
	TokenBytes      = 32
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`
	Auth struct {
		PasswordHash string `yaml:"password_hash"`
	} `yaml:"auth"`
	LogLevel string              `yaml:"log_level"`
	Radio    plugins.RadioConfig `yaml:"radio"`
	Plugins  []string            `yaml:"plugins"`
}

// Session represents a simple authenticated session for local use
type Session struct {
	Token     string
	ExpiresAt time.Time
}

var (
	config         Config
	currentSession *Session
	sessionMu      sync.RWMutex
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load configuration
	if err := loadConfig(configPath); err != nil {
		slog.Error("Failed to load config", "error", err, "path", configPath)
		os.Exit(1)
	}

	// Setup structured logging
	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Info("Configuration loaded", "path", configPath, "log_level", level)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  ServerReadTimeout,
		WriteTimeout: ServerWriteTimeout,
		AppName:      "AD9361 Manager",
		BodyLimit:    MaxBodySize,
	})

	// Add logger middleware
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// Serve static files
	app.Static("/", "./web")

	// Login/logout endpoints (no auth required for login)
	app.Post("/login", handleLogin)
	app.Post("/logout", handleLogout)

	// Auth middleware for all other API routes
	app.Use("/api", authMiddleware)

	// Initialize and register plugins
	loaded, err := initPlugins(app)
	if err != nil {
		slog.Error("Failed to initialize plugins", "error", err)
		os.Exit(1)
	}
	defer shutdownPlugins(loaded)

	// Start server with graceful shutdown
	addr := config.Server.Host + ":" + config.Server.Port

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		slog.Info("Shutting down server...")
		if err := app.ShutdownWithContext(context.Background()); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	slog.Info("Starting AD9361 Manager", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err, "address", addr)
		shutdownPlugins(loaded)
		os.Exit(1)
	}
}

func loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, &config)
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

func handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(config.Auth.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("Failed login attempt", "ip", c.IP())
		return c.Status(401).JSON(fiber.Map{"error": "Invalid password"})
	}

	slog.Info("Successful login", "ip", c.IP())

	// Generate new session (replaces any existing session for local-only use)
	session := &Session{
		Token:     generateToken(),
		ExpiresAt: time.Now().Add(SessionDuration),
	}
	sessionMu.Lock()
	currentSession = session
	sessionMu.Unlock()

	return c.JSON(fiber.Map{
		"success": true,
		"token":   session.Token,
		"expires": session.ExpiresAt.Unix(),
	})
}

func handleLogout(c *fiber.Ctx) error {
	sessionMu.Lock()
	currentSession = nil
	sessionMu.Unlock()
	slog.Info("User logged out", "ip", c.IP())
	return c.JSON(fiber.Map{"success": true})
}

func authMiddleware(c *fiber.Ctx) error {
	// Check for token in header first, fallback to query parameter (for WebSocket/SSE)
	token := c.Get("X-Auth-Token")
	if token == "" {
		token = c.Query("token")
	}

	if !validateToken(token) {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	return c.Next()
}

func validateToken(token string) bool {
	if token == "" {
		return false
	}

	sessionMu.RLock()
	defer sessionMu.RUnlock()

	if currentSession == nil {
		return false
	}

	// Check token match and expiration
	if currentSession.Token != token {
		return false
	}

	if time.Now().After(currentSession.ExpiresAt) {
		return false
	}

	return true
}

func generateToken() string {
	b := make([]byte, TokenBytes)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func initPlugins(app *fiber.App) ([]plugins.Plugin, error) {
	var loaded []plugins.Plugin
	for _, name := range config.Plugins {
		factory, exists := plugins.Get(name)
		if !exists {
			slog.Warn("Unknown plugin", "name", name)
			continue
		}

		// Get plugin-specific config
		var pluginConfig interface{}
		switch name {
		case "radio":
			pluginConfig = config.Radio
		}

		plugin, err := factory(pluginConfig)
		if err != nil {
			shutdownPlugins(loaded)
			return nil, fmt.Errorf("plugin %s: %w", name, err)
		}

		// Set token validator for plugins
		if radioPlugin, ok := plugin.(*plugins.RadioPlugin); ok {
			radioPlugin.SetTokenValidator(validateToken)
		}

		plugin.RegisterRoutes(app)
		loaded = append(loaded, plugin)
		slog.Info("Plugin loaded", "name", plugin.Name())
	}
	return loaded, nil
}

func shutdownPlugins(loaded []plugins.Plugin) {
	for _, p := range loaded {
		if err := p.Shutdown(); err != nil {
			slog.Error("Plugin shutdown error", "name", p.Name(), "error", err)
		}
	}
}
