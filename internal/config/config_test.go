package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/ginput/internal/config"
	"github.com/okian/ginput/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Mode, convey.ShouldEqual, config.ModeGinput)
			convey.So(cfg.Count, convey.ShouldEqual, 1)
			convey.So(cfg.Timeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.ShowClicks, convey.ShouldBeTrue)
			convey.So(cfg.InlineSpacing, convey.ShouldEqual, 5)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the buttons follow the usual roles", func() {
			finish, undo, err := cfg.Buttons()
			convey.So(err, convey.ShouldBeNil)
			convey.So(finish, convey.ShouldEqual, model.ButtonMiddle)
			convey.So(undo, convey.ShouldEqual, model.ButtonRight)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with a single bad value", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown mode", func(c *config.Config) { c.Mode = "zoom" }},
			{"log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"queue size", func(c *config.Config) { c.EventQueueSize = 0 }},
			{"dedupe size", func(c *config.Config) { c.DedupeSize = -1 }},
			{"inline spacing", func(c *config.Config) { c.InlineSpacing = -2 }},
			{"figure size", func(c *config.Config) { c.FigureHeight = 0 }},
			{"bad button", func(c *config.Config) { c.UndoButton = "wheel" }},
			{"same role button", func(c *config.Config) { c.FinishButton = "right" }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)

			convey.Convey("Then validation rejects "+tc.name, func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
