package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/handeye/calibration/record"
	"go.viam.com/handeye/calibration/trajectory"
	"go.viam.com/handeye/components/arm/universalrobots"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

const pyramidConfig = `{
	"arm": {
		"model": "ur",
		"attributes": {"host": "${HANDEYE_TEST_HOST}", "dashboard_port": 30029}
	},
	"camera": {"model": "fake", "attributes": {"width": 640, "height": 360}, "capture_dir": "frames"},
	"recipe": {
		"mode": "pyramid",
		"layers": 3,
		"base_width_mm": 200,
		"top_width_mm": 80,
		"height_mm": 150,
		"tilt_deg": 15,
		"direction": "z-"
	},
	"center": [400, 0, 300, 180, 0, 0],
	"motion": {"poll_interval_ms": 50, "pyramid_settle_ms": 2000},
	"store": {"path": "/var/lib/handeye/runs.db"},
	"log": {"level": "debug"}
}`

func TestRead(t *testing.T) {
	t.Setenv("HANDEYE_TEST_HOST", "10.0.0.7")
	path := filepath.Join(t.TempDir(), "handeye.json")
	test.That(t, os.WriteFile(path, []byte(pyramidConfig), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Arm.Model, test.ShouldEqual, ArmModelUR)

	var urConf universalrobots.Config
	test.That(t, cfg.Arm.ConvertAttributes(&urConf), test.ShouldBeNil)
	test.That(t, urConf.Host, test.ShouldEqual, "10.0.0.7")
	test.That(t, urConf.DashboardPort, test.ShouldEqual, 30029)

	recipe, err := cfg.Recipe.Convert()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recipe, test.ShouldResemble, trajectory.Pyramid{
		Layers: 3, BaseWidthMM: 200, TopWidthMM: 80, HeightMM: 150, TiltDeg: 15,
		Direction: trajectory.DirectionZMinus,
	})

	seqConf := cfg.SequencerConfig("/work")
	test.That(t, seqConf.Dither.PollInterval, test.ShouldEqual, 50*time.Millisecond)
	test.That(t, seqConf.GridBase.PollInterval, test.ShouldEqual, 50*time.Millisecond)
	test.That(t, seqConf.PyramidSettle, test.ShouldEqual, 2*time.Second)
	test.That(t, seqConf.GridSettle, test.ShouldEqual, 500*time.Millisecond)
	test.That(t, seqConf.PyramidFile, test.ShouldEqual, filepath.Join("/work", record.DefaultPyramidFile))

	test.That(t, cfg.StorePath("/work"), test.ShouldEqual, "/var/lib/handeye/runs.db")
	test.That(t, cfg.CaptureDir("/work"), test.ShouldEqual, filepath.Join("/work", "frames"))

	logger, err := cfg.NewLogger("handeye")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
}

func TestDefaults(t *testing.T) {
	cfg, err := FromReader("", strings.NewReader(`{}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Arm.Model, test.ShouldEqual, ArmModelFake)
	test.That(t, cfg.Camera.Model, test.ShouldEqual, CameraModelFake)

	recipe, err := cfg.Recipe.Convert()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, recipe, test.ShouldResemble, trajectory.Grid9{StepMM: 50, Normal: spatialmath.X})

	seqConf := cfg.SequencerConfig("")
	test.That(t, seqConf.GridFile, test.ShouldEqual, record.DefaultGridFile)
	test.That(t, seqConf.GridBase.PollInterval, test.ShouldEqual, 100*time.Millisecond)
	test.That(t, cfg.StorePath(""), test.ShouldEqual, DefaultStorePath)

	cfg.Store.Disable = true
	test.That(t, cfg.StorePath(""), test.ShouldBeEmpty)
}

func TestValidationErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		msg   string
	}{
		{"no arm model", `{"arm": {"model": ""}}`, `"arm"`},
		{"unknown arm", `{"arm": {"model": "kuka"}}`, "kuka"},
		{"unknown camera", `{"camera": {"model": "webcam"}}`, "webcam"},
		{"bad mode", `{"recipe": {"mode": "spiral"}}`, "spiral"},
		{"bad normal", `{"recipe": {"mode": "grid9", "normal": "w"}}`, "axis"},
		{"bad direction", `{"recipe": {"mode": "pyramid", "layers": 1, "base_width_mm": 10, "direction": "Q+"}}`, "direction"},
		{"no layers", `{"recipe": {"mode": "pyramid", "base_width_mm": 10, "direction": "Z+"}}`, "layer"},
		{"short center", `{"center": [1, 2, 3]}`, "center"},
		{"negative poll", `{"motion": {"poll_interval_ms": -1}}`, "poll_interval_ms"},
		{"bad level", `{"log": {"level": "loud"}}`, "log.level"},
		{"bad json", `{"arm": `, "decode"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("", strings.NewReader(tc.input))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestConvertAttributes(t *testing.T) {
	c := Component{Model: ArmModelUR, Attributes: map[string]interface{}{
		"host":          "robot.local",
		"realtime_port": "30013",
	}}
	var conf universalrobots.Config
	test.That(t, c.ConvertAttributes(&conf), test.ShouldBeNil)
	test.That(t, conf.Host, test.ShouldEqual, "robot.local")
	test.That(t, conf.RealtimePort, test.ShouldEqual, 30013)

	c.Attributes["hots"] = "typo"
	err := c.ConvertAttributes(&universalrobots.Config{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "hots")
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handeye.log")
	cfg := Default()
	cfg.Log.File = path
	logger, err := cfg.NewLogger("handeye")
	test.That(t, err, test.ShouldBeNil)
	logger.Info("hello file")
	test.That(t, logger.Sync(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "hello file")
}
