package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDevice, cfg.Device)
	assert.Equal(t, DefaultTargetFPS, cfg.TargetFPS)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, "640x480", cfg.Resolution())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CAMERA_DEVICE", "/dev/video2")
	t.Setenv("TARGET_FPS", "15")
	t.Setenv("FRAME_WIDTH", "1280")
	t.Setenv("FRAME_HEIGHT", "720")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("SNAPSHOT_DB", "/tmp/snaps.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/dev/video2", cfg.Device)
	assert.Equal(t, 15, cfg.TargetFPS)
	assert.Equal(t, "1280x720", cfg.Resolution())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "/tmp/snaps.db", cfg.DBPath)
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	t.Setenv("TARGET_FPS", "thirty")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TARGET_FPS")
}

func TestLoadRejectsOutOfRangeFPS(t *testing.T) {
	t.Setenv("TARGET_FPS", "500")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Device:    DefaultDevice,
			TargetFPS: DefaultTargetFPS,
			Width:     DefaultWidth,
			Height:    DefaultHeight,
			HTTPAddr:  DefaultHTTPAddr,
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Device = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.TargetFPS = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Width = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.HTTPAddr = ""
	assert.Error(t, cfg.Validate())
}
