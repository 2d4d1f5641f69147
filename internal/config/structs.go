// Package config loads the pnpvision application configuration from
// files, environment variables, and flags.
package config

import (
	"fmt"
	"image"
	"time"

	"github.com/placerworks/pnpvision/internal/camera"
	"github.com/placerworks/pnpvision/internal/units"
)

// Config is the complete application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Camera   CameraConfig   `mapstructure:"camera" yaml:"camera" json:"camera"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
}

// CameraConfig describes the machine's camera.
type CameraConfig struct {
	Name     string  `mapstructure:"name" yaml:"name" json:"name"`
	Looking  string  `mapstructure:"looking" yaml:"looking" json:"looking"` // down, up
	Width    int     `mapstructure:"width" yaml:"width" json:"width"`
	Height   int     `mapstructure:"height" yaml:"height" json:"height"`
	FPS      float64 `mapstructure:"fps" yaml:"fps" json:"fps"`
	SettleMS int     `mapstructure:"settle_ms" yaml:"settle_ms" json:"settle_ms"`

	Rotation   float64 `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
	FlipX      bool    `mapstructure:"flip_x" yaml:"flip_x" json:"flip_x"`
	FlipY      bool    `mapstructure:"flip_y" yaml:"flip_y" json:"flip_y"`
	CropWidth  int     `mapstructure:"crop_width" yaml:"crop_width" json:"crop_width"`
	CropHeight int     `mapstructure:"crop_height" yaml:"crop_height" json:"crop_height"`

	// Flat units-per-pixel: physical size of one pixel in Unit, measured
	// at height Z.
	Unit            string  `mapstructure:"unit" yaml:"unit" json:"unit"`
	UnitsPerPixelX  float64 `mapstructure:"units_per_pixel_x" yaml:"units_per_pixel_x" json:"units_per_pixel_x"`
	UnitsPerPixelY  float64 `mapstructure:"units_per_pixel_y" yaml:"units_per_pixel_y" json:"units_per_pixel_y"`
	CalibratedAtZ   float64 `mapstructure:"calibrated_at_z" yaml:"calibrated_at_z" json:"calibrated_at_z"`
	DefaultZ        float64 `mapstructure:"default_z" yaml:"default_z" json:"default_z"`
	SafeZ           float64 `mapstructure:"safe_z" yaml:"safe_z" json:"safe_z"`
	LightOffDelayMS int     `mapstructure:"light_off_delay_ms" yaml:"light_off_delay_ms" json:"light_off_delay_ms"`

	Calibration []CalibrationSampleConfig `mapstructure:"calibration" yaml:"calibration" json:"calibration"`
	ToolOffsets map[string]OffsetConfig   `mapstructure:"tool_offsets" yaml:"tool_offsets" json:"tool_offsets"`
	Fiducials   []PointConfig             `mapstructure:"fiducials" yaml:"fiducials" json:"fiducials"`
}

// CalibrationSampleConfig is one measured units-per-pixel sample.
type CalibrationSampleConfig struct {
	Z    float64 `mapstructure:"z" yaml:"z" json:"z"`
	UppX float64 `mapstructure:"units_per_pixel_x" yaml:"units_per_pixel_x" json:"units_per_pixel_x"`
	UppY float64 `mapstructure:"units_per_pixel_y" yaml:"units_per_pixel_y" json:"units_per_pixel_y"`
}

// OffsetConfig is a per-tool location correction.
type OffsetConfig struct {
	X float64 `mapstructure:"x" yaml:"x" json:"x"`
	Y float64 `mapstructure:"y" yaml:"y" json:"y"`
	Z float64 `mapstructure:"z" yaml:"z" json:"z"`
}

// PointConfig is a pixel coordinate, used for simulated fiducials.
type PointConfig struct {
	X int `mapstructure:"x" yaml:"x" json:"x"`
	Y int `mapstructure:"y" yaml:"y" json:"y"`
}

// PipelineConfig points at the pipeline definition to run.
type PipelineConfig struct {
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig configures the live-view server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
}

// Address returns the server's listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CameraSettings converts the persisted camera section into the camera
// package's runtime configuration.
func (c CameraConfig) CameraSettings() (camera.Config, error) {
	unit := units.Unit(c.Unit)
	if c.Unit == "" {
		unit = units.Millimeters
	}
	if !unit.Valid() {
		return camera.Config{}, fmt.Errorf("camera %q: unknown unit %q", c.Name, c.Unit)
	}
	looking := camera.LookingDown
	switch c.Looking {
	case "", "down":
	case "up":
		looking = camera.LookingUp
	default:
		return camera.Config{}, fmt.Errorf("camera %q: unknown looking %q", c.Name, c.Looking)
	}

	samples := make([]camera.CalibrationSample, 0, len(c.Calibration))
	for _, s := range c.Calibration {
		samples = append(samples, camera.CalibrationSample{
			Z:             units.NewLength(s.Z, unit),
			UnitsPerPixel: units.NewLocation(unit, s.UppX, s.UppY, s.Z, 0),
		})
	}

	return camera.Config{
		Name:          c.Name,
		Looking:       looking,
		SettleTime:    time.Duration(c.SettleMS) * time.Millisecond,
		FPS:           c.FPS,
		Rotation:      c.Rotation,
		FlipX:         c.FlipX,
		FlipY:         c.FlipY,
		CropWidth:     c.CropWidth,
		CropHeight:    c.CropHeight,
		UnitsPerPixel: units.NewLocation(unit, c.UnitsPerPixelX, c.UnitsPerPixelY, c.CalibratedAtZ, 0),
		DefaultZ:      units.NewLength(c.DefaultZ, unit),
		SafeZ:         units.NewLength(c.SafeZ, unit),
		Calibration:   samples,
		LightOffDelay: time.Duration(c.LightOffDelayMS) * time.Millisecond,
	}, nil
}

// FiducialPoints returns the configured simulated fiducial positions.
func (c CameraConfig) FiducialPoints() []image.Point {
	pts := make([]image.Point, 0, len(c.Fiducials))
	for _, p := range c.Fiducials {
		pts = append(pts, image.Pt(p.X, p.Y))
	}
	return pts
}
