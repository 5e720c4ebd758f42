package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults match the demo deployment: a single USB webcam at VGA resolution.
const (
	DefaultDevice    = "/dev/video0"
	DefaultTargetFPS = 30
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultHTTPAddr  = ":5500"
	DefaultDBPath    = "camerad.db"

	DefaultStaleThreshold = 5 * time.Second
	DefaultEmitInterval   = 100 * time.Millisecond
)

// Config holds all process-level settings. It is read once at startup and
// handed to constructors; nothing reads the environment after that.
type Config struct {
	// Device is the capture device path, e.g. /dev/video0.
	Device string
	// TargetFPS caps the capture loop rate. The device may deliver slower.
	TargetFPS int
	// Width and Height are requested from the device; the device may
	// negotiate a different resolution.
	Width  int
	Height int

	// HTTPAddr is the listen address for the stream and event channel.
	HTTPAddr string
	// DBPath is the SQLite file backing the snapshot store.
	DBPath string

	// StaleThreshold is how long without a published frame before the
	// pipeline is reported stale.
	StaleThreshold time.Duration
	// EmitInterval is the metadata emitter cadence.
	EmitInterval time.Duration
}

// Load builds a Config from environment variables, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Device:         getEnv("CAMERA_DEVICE", DefaultDevice),
		HTTPAddr:       getEnv("HTTP_ADDR", DefaultHTTPAddr),
		DBPath:         getEnv("SNAPSHOT_DB", DefaultDBPath),
		StaleThreshold: DefaultStaleThreshold,
		EmitInterval:   DefaultEmitInterval,
	}

	var err error
	if cfg.TargetFPS, err = getEnvInt("TARGET_FPS", DefaultTargetFPS); err != nil {
		return nil, err
	}
	if cfg.Width, err = getEnvInt("FRAME_WIDTH", DefaultWidth); err != nil {
		return nil, err
	}
	if cfg.Height, err = getEnvInt("FRAME_HEIGHT", DefaultHeight); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("camera device must not be empty")
	}
	if c.TargetFPS <= 0 || c.TargetFPS > 120 {
		return fmt.Errorf("invalid target fps: %d", c.TargetFPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid resolution: %dx%d", c.Width, c.Height)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http listen address must not be empty")
	}
	return nil
}

// Resolution returns the "WxH" form used in status messages.
func (c *Config) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}
