package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/segscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.ReferencePath, convey.ShouldEqual, "data/test_data_reference.npz")
			convey.So(cfg.ResultsPath, convey.ShouldEqual, "data/results.json")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendJSON)
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 1024*1024)
			convey.So(cfg.DiceMode, convey.ShouldEqual, config.ModeMulticlass)
			convey.So(cfg.ScoringConcurrency, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.PodiumSize, convey.ShouldEqual, 3)
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid fields", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"empty reference":    func(c *config.Config) { c.ReferencePath = " " },
			"zero upload cap":    func(c *config.Config) { c.MaxUploadBytes = 0 },
			"unknown backend":    func(c *config.Config) { c.StoreBackend = "redis" },
			"empty sqlite path":  func(c *config.Config) { c.StoreBackend = config.BackendSQLite; c.SQLitePath = "" },
			"unknown format":     func(c *config.Config) { c.ReferenceFormat = "nii" },
			"unknown dice mode":  func(c *config.Config) { c.DiceMode = "weighted" },
			"negative podium":    func(c *config.Config) { c.PodiumSize = -1 },
			"empty results path": func(c *config.Config) { c.ResultsPath = "" },
			"zero name length":   func(c *config.Config) { c.NameMaxLen = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" should be rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a negative podium size", t, func() {
		cfg := config.New()
		cfg.PodiumSize = -1

		convey.Convey("Then the error names the key", func() {
			convey.So(cfg.Validate(), convey.ShouldBeError, "invalid config: podium_size must not be negative")
		})
	})
}
