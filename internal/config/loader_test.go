package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/ginput/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Mode, convey.ShouldEqual, config.ModeGinput)
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GINPUT_ADDR", ":8080")
			_ = os.Setenv("GINPUT_MODE", "clabel")
			_ = os.Setenv("GINPUT_COUNT", "4")
			_ = os.Setenv("GINPUT_TIMEOUT_MS", "-1")
			_ = os.Setenv("GINPUT_SHOW_CLICKS", "false")
			_ = os.Setenv("GINPUT_INLINE_SPACING", "2.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Mode, convey.ShouldEqual, config.ModeClabel)
				convey.So(cfg.Count, convey.ShouldEqual, 4)
				convey.So(cfg.Timeout(), convey.ShouldEqual, -time.Millisecond)
				convey.So(cfg.ShowClicks, convey.ShouldBeFalse)
				convey.So(cfg.InlineSpacing, convey.ShouldEqual, 2.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
mode: waitforbuttonpress
queue_size: 64
dedupe_size: 128
finish_button: "3"
undo_button: middle
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GINPUT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Mode, convey.ShouldEqual, config.ModeWaitForButtonPress)
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 128)
				convey.So(cfg.FinishButton, convey.ShouldEqual, "3")
				convey.So(cfg.UndoButton, convey.ShouldEqual, "middle")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 64
count: 3
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GINPUT_CONFIG", tmpFile)
			_ = os.Setenv("GINPUT_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")      // env
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 64) // file
				convey.So(cfg.Count, convey.ShouldEqual, 3)           // file
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000) // defaults
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")  // defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GINPUT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GINPUT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("GINPUT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown mode", func() {
			_ = os.Setenv("GINPUT_MODE", "zoom")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("GINPUT_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with YAML file containing comments", func() {
			yamlContent := `
# figure
figure_width: 800  # pixels
figure_height: 600
# interaction
inline: true
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("GINPUT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should parse YAML with comments", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.FigureWidth, convey.ShouldEqual, 800)
				convey.So(cfg.FigureHeight, convey.ShouldEqual, 600)
				convey.So(cfg.Inline, convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigLoaderDotEnv(t *testing.T) {
	convey.Convey("Given a dotenv file", t, func() {
		ctx := context.Background()
		dot := createTempConfigFile("GINPUT_ADDR=:7070\nGINPUT_COUNT=5\n")
		defer func() { _ = os.Remove(dot) }()
		_ = os.Setenv("GINPUT_ENV_FILE", dot)
		defer clearConfigEnvVars()

		convey.Convey("When loading", func() {
			_ = os.Setenv("GINPUT_COUNT", "2")
			cfg, err := config.Load(ctx)

			convey.Convey("Then unset variables come from the file and set ones win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Count, convey.ShouldEqual, 2)
			})
		})
	})

	convey.Convey("Given a missing dotenv file", t, func() {
		_ = os.Setenv("GINPUT_ENV_FILE", "/non/existent/.env")
		defer clearConfigEnvVars()

		cfg, err := config.Load(context.Background())

		convey.Convey("Then loading fails", func() {
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestConfigWatch(t *testing.T) {
	convey.Convey("Given no config file", t, func() {
		clearConfigEnvVars()

		convey.Convey("Then watching is a no-op", func() {
			err := config.Watch(context.Background(), func(*config.Config, error) {})
			convey.So(err, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a watched config file", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		tmpFile := createTempConfigFile("log_level: info\n")
		defer func() { _ = os.Remove(tmpFile) }()
		_ = os.Setenv("GINPUT_CONFIG", tmpFile)
		defer clearConfigEnvVars()

		changes := make(chan *config.Config, 4)
		err := config.Watch(ctx, func(c *config.Config, err error) {
			if err == nil {
				changes <- c
			}
		})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the file is rewritten", func() {
			convey.So(os.WriteFile(tmpFile, []byte("log_level: debug\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then the new config is delivered", func() {
				select {
				case c := <-changes:
					convey.So(c.LogLevel, convey.ShouldEqual, "debug")
				case <-time.After(5 * time.Second):
					convey.So("no reload", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"GINPUT_CONFIG",
		"GINPUT_ENV_FILE",
		"GINPUT_ADDR",
		"GINPUT_MODE",
		"GINPUT_COUNT",
		"GINPUT_TIMEOUT_MS",
		"GINPUT_SHOW_CLICKS",
		"GINPUT_INLINE_SPACING",
		"GINPUT_QUEUE_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "ginput-config-*.yaml")
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
