// Package config defines the JSON configuration of the handeye tool: which arm and camera to
// use, the calibration recipe, and where results and logs go.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"time"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/handeye/calibration/record"
	"go.viam.com/handeye/calibration/sequencer"
	"go.viam.com/handeye/components/camera"
	"go.viam.com/handeye/logging"
)

// Arm models.
const (
	ArmModelFake = "fake"
	ArmModelSim  = "sim"
	ArmModelUR   = "ur"
)

// Camera models.
const (
	CameraModelFake = "fake"
)

// DefaultStorePath is where run history is kept when the config does not say otherwise.
const DefaultStorePath = "workspace/handeye.db"

// Config is the top level configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Arm    Component `json:"arm"`
	Camera Camera    `json:"camera"`
	Recipe Recipe    `json:"recipe"`
	// Center is the pose to calibrate around in millimeters and degrees. When empty, the arm's
	// pose at the start of the run is used.
	Center []float64 `json:"center,omitempty"`
	Motion Motion    `json:"motion"`
	Store  Store     `json:"store"`
	Log    Log       `json:"log"`
}

// Camera selects the image source and where captured frames are saved.
type Camera struct {
	Component
	CaptureDir string `json:"capture_dir,omitempty"`
}

// Motion overrides timing and output paths of the sequencer. Zero values keep the defaults.
type Motion struct {
	PollIntervalMS  int    `json:"poll_interval_ms,omitempty"`
	GridSettleMS    int    `json:"grid_settle_ms,omitempty"`
	PyramidSettleMS int    `json:"pyramid_settle_ms,omitempty"`
	GridFile        string `json:"grid_file,omitempty"`
	PyramidFile     string `json:"pyramid_file,omitempty"`
}

// Store configures the run history database.
type Store struct {
	Path    string `json:"path,omitempty"`
	Disable bool   `json:"disable,omitempty"`
}

// Log configures logging output.
type Log struct {
	Level      string `json:"level,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Default returns a config that runs the default grid against a fake arm and camera.
func Default() *Config {
	return &Config{
		Arm:    Component{Model: ArmModelFake},
		Camera: Camera{Component: Component{Model: CameraModelFake}, CaptureDir: camera.DefaultCaptureDir},
		Recipe: DefaultRecipe(),
		Store:  Store{Path: DefaultStorePath},
		Log:    Log{Level: "info"},
	}
}

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from r. Fields missing from the input keep their Default values.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Default()
	cfg.ConfigFilePath = originalPath
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config from json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section, reporting errors with the path of the offending field.
func (c *Config) Validate() error {
	if err := c.Arm.Validate("arm", ArmModelFake, ArmModelSim, ArmModelUR); err != nil {
		return err
	}
	if err := c.Camera.Validate("camera", CameraModelFake); err != nil {
		return err
	}
	if err := c.Recipe.Validate("recipe"); err != nil {
		return err
	}
	if c.Center != nil && len(c.Center) != 6 {
		return goutils.NewConfigValidationError("center", errors.Errorf("need 6 values, got %d", len(c.Center)))
	}
	if err := c.Motion.Validate("motion"); err != nil {
		return err
	}
	if c.Log.Level != "" {
		if _, err := logging.LevelFromString(c.Log.Level); err != nil {
			return goutils.NewConfigValidationError("log.level", err)
		}
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return goutils.NewConfigValidationError("log", errors.New("max_size_mb and max_backups must not be negative"))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (m *Motion) Validate(path string) error {
	if m.PollIntervalMS < 0 {
		return goutils.NewConfigValidationError(path+".poll_interval_ms", errors.New("must not be negative"))
	}
	if m.GridSettleMS < 0 || m.PyramidSettleMS < 0 {
		return goutils.NewConfigValidationError(path, errors.New("settle times must not be negative"))
	}
	return nil
}

// SequencerConfig applies the motion overrides to the default sequencer parameters. Relative
// data file paths are resolved against dir.
func (c *Config) SequencerConfig(dir string) sequencer.Config {
	conf := sequencer.DefaultConfig()
	if c.Motion.PollIntervalMS > 0 {
		poll := time.Duration(c.Motion.PollIntervalMS) * time.Millisecond
		conf.GridBase.PollInterval = poll
		conf.PyramidBase.PollInterval = poll
		conf.Dither.PollInterval = poll
		conf.Restore.PollInterval = poll
	}
	if c.Motion.GridSettleMS > 0 {
		conf.GridSettle = time.Duration(c.Motion.GridSettleMS) * time.Millisecond
	}
	if c.Motion.PyramidSettleMS > 0 {
		conf.PyramidSettle = time.Duration(c.Motion.PyramidSettleMS) * time.Millisecond
	}
	conf.GridFile = resolve(dir, orDefault(c.Motion.GridFile, record.DefaultGridFile))
	conf.PyramidFile = resolve(dir, orDefault(c.Motion.PyramidFile, record.DefaultPyramidFile))
	return conf
}

// StorePath returns the run history location, or "" when history is disabled.
func (c *Config) StorePath(dir string) string {
	if c.Store.Disable {
		return ""
	}
	return resolve(dir, orDefault(c.Store.Path, DefaultStorePath))
}

// CaptureDir returns where captured frames are written.
func (c *Config) CaptureDir(dir string) string {
	return resolve(dir, orDefault(c.Camera.CaptureDir, camera.DefaultCaptureDir))
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger(name string) (logging.Logger, error) {
	logger := logging.NewLogger(name)
	if c.Log.Level != "" {
		level, err := logging.LevelFromString(c.Log.Level)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	if c.Log.File != "" {
		const (
			defaultMaxSizeMB  = 10
			defaultMaxBackups = 3
		)
		size := c.Log.MaxSizeMB
		if size == 0 {
			size = defaultMaxSizeMB
		}
		backups := c.Log.MaxBackups
		if backups == 0 {
			backups = defaultMaxBackups
		}
		logger.AddAppender(logging.NewFileAppender(c.Log.File, size, backups))
	}
	return logger, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func resolve(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
