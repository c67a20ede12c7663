package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/kinetica/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.MQTTTopicPrefix, convey.ShouldEqual, "kinetica")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KINETICA_ADDR", ":8080")
			_ = os.Setenv("KINETICA_QUEUE_SIZE", "2048")
			_ = os.Setenv("KINETICA_HYSTERESIS_FRAMES", "4")
			_ = os.Setenv("KINETICA_VALGUS_SCALE", "250.5")
			_ = os.Setenv("KINETICA_MQTT_BROKER", "tcp://localhost:1883")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 2048)
				convey.So(cfg.HysteresisFrames, convey.ShouldEqual, 4)
				convey.So(cfg.ValgusScale, convey.ShouldEqual, 250.5)
				convey.So(cfg.MQTTBroker, convey.ShouldEqual, "tcp://localhost:1883")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
worker_count: 6
smoothing_window: 3
calibration_target_frames: 45
exercise_catalog: /etc/kinetica/exercises.toml
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KINETICA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values are merged with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.SmoothingWindow, convey.ShouldEqual, 3)
				convey.So(cfg.CalibrationTargetFrames, convey.ShouldEqual, 45)
				convey.So(cfg.ExerciseCatalog, convey.ShouldEqual, "/etc/kinetica/exercises.toml")
				convey.So(cfg.HysteresisFrames, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When both file and environment are set", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nworker_count: 6\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KINETICA_CONFIG", tmpFile)
			_ = os.Setenv("KINETICA_WORKER_COUNT", "12")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 12)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("KINETICA_CONFIG", "/nonexistent/kinetica.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			tmpFile := createTempConfigFile("addr: [unclosed\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KINETICA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the file empties the address", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("KINETICA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("KINETICA_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When a variable fails validation", func() {
			_ = os.Setenv("KINETICA_SMOOTHING_WINDOW", "-1")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"KINETICA_CONFIG",
		"KINETICA_ADDR",
		"KINETICA_QUEUE_SIZE",
		"KINETICA_WORKER_COUNT",
		"KINETICA_HYSTERESIS_FRAMES",
		"KINETICA_VALGUS_SCALE",
		"KINETICA_MQTT_BROKER",
		"KINETICA_SMOOTHING_WINDOW",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "kinetica-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
