package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placerworks/pnpvision/internal/camera"
	"github.com/placerworks/pnpvision/internal/units"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sim", cfg.Camera.Name)
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 480, cfg.Camera.Height)
	assert.InDelta(t, 10.0, cfg.Camera.FPS, 1e-9)
	assert.InDelta(t, 0.05, cfg.Camera.UnitsPerPixelX, 1e-9)
	assert.Equal(t, "127.0.0.1:8520", cfg.Server.Address())
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "pnpvision.yaml")
	data := `
log_level: debug
camera:
  name: top
  looking: down
  settle_ms: 120
  unit: mm
  units_per_pixel_x: 0.04
  units_per_pixel_y: 0.041
  safe_z: 25
  calibration:
    - z: 0
      units_per_pixel_x: 0.03
      units_per_pixel_y: 0.03
    - z: 20
      units_per_pixel_x: 0.05
      units_per_pixel_y: 0.05
server:
  host: 0.0.0.0
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	loader := NewLoader()
	loader.SetConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "top", cfg.Camera.Name)
	assert.Equal(t, 120, cfg.Camera.SettleMS)
	require.Len(t, cfg.Camera.Calibration, 2)
	assert.InDelta(t, 20.0, cfg.Camera.Calibration[1].Z, 1e-9)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address())

	// Unset keys keep their defaults.
	assert.Equal(t, 640, cfg.Camera.Width)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "pnpvision.yaml")
	require.NoError(t, os.WriteFile(path, []byte("camera: [not: a: mapping"), 0o600))

	loader := NewLoader()
	loader.SetConfigFile(path)
	_, err := loader.Load()
	require.Error(t, err)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("PNPVISION_LOG_LEVEL", "warn")
	t.Setenv("PNPVISION_SERVER_PORT", "9100")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestCameraSettingsConversion(t *testing.T) {
	cc := CameraConfig{
		Name:            "top",
		Looking:         "up",
		SettleMS:        80,
		FPS:             15,
		Unit:            "mm",
		UnitsPerPixelX:  0.04,
		UnitsPerPixelY:  0.05,
		CalibratedAtZ:   10,
		DefaultZ:        10,
		SafeZ:           25,
		LightOffDelayMS: 300,
		Calibration: []CalibrationSampleConfig{
			{Z: 0, UppX: 0.03, UppY: 0.03},
			{Z: 20, UppX: 0.05, UppY: 0.05},
		},
	}

	settings, err := cc.CameraSettings()
	require.NoError(t, err)

	assert.Equal(t, camera.LookingUp, settings.Looking)
	assert.Equal(t, 80*time.Millisecond, settings.SettleTime)
	assert.Equal(t, 300*time.Millisecond, settings.LightOffDelay)
	assert.Equal(t, units.NewLocation(units.Millimeters, 0.04, 0.05, 10, 0), settings.UnitsPerPixel)
	assert.Equal(t, units.NewLength(25, units.Millimeters), settings.SafeZ)
	require.Len(t, settings.Calibration, 2)
	assert.Equal(t, units.NewLength(20, units.Millimeters), settings.Calibration[1].Z)
}

func TestCameraSettingsDefaultsUnitAndLooking(t *testing.T) {
	settings, err := CameraConfig{Name: "cam"}.CameraSettings()
	require.NoError(t, err)
	assert.Equal(t, camera.LookingDown, settings.Looking)
	assert.Equal(t, units.Millimeters, settings.UnitsPerPixel.Unit)
}

func TestCameraSettingsRejectsBadValues(t *testing.T) {
	_, err := CameraConfig{Name: "cam", Unit: "furlong"}.CameraSettings()
	require.Error(t, err)

	_, err = CameraConfig{Name: "cam", Looking: "sideways"}.CameraSettings()
	require.Error(t, err)
}

func TestFiducialPoints(t *testing.T) {
	cc := CameraConfig{Fiducials: []PointConfig{{X: 10, Y: 20}, {X: 30, Y: 40}}}
	pts := cc.FiducialPoints()
	require.Len(t, pts, 2)
	assert.Equal(t, 30, pts[1].X)
	assert.Equal(t, 40, pts[1].Y)
}
