package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/segscore/internal/config"
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
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 1<<20)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendJSON)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SEGSCORE_ADDR", ":9090")
			_ = os.Setenv("SEGSCORE_REFERENCE_PATH", "/srv/ref.npz")
			_ = os.Setenv("SEGSCORE_MAX_UPLOAD_BYTES", "2048")
			_ = os.Setenv("SEGSCORE_STORE_BACKEND", "sqlite")
			_ = os.Setenv("SEGSCORE_DICE_MODE", "binary")
			_ = os.Setenv("SEGSCORE_SUBMIT_RATE_PER_SEC", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ReferencePath, convey.ShouldEqual, "/srv/ref.npz")
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 2048)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendSQLite)
				convey.So(cfg.DiceMode, convey.ShouldEqual, config.ModeBinary)
				convey.So(cfg.SubmitRatePerSec, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# scoring service
addr: ":7000"
results_path: /tmp/results.json
podium_size: 5
reference_format: png
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SEGSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
				convey.So(cfg.ResultsPath, convey.ShouldEqual, "/tmp/results.json")
				convey.So(cfg.PodiumSize, convey.ShouldEqual, 5)
				convey.So(cfg.ReferenceFormat, convey.ShouldEqual, config.FormatPNG)
				convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 1<<20)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":7000\"\npodium_size: 5\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SEGSCORE_CONFIG", tmpFile)
			_ = os.Setenv("SEGSCORE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PodiumSize, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SEGSCORE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SEGSCORE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SEGSCORE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SEGSCORE_MAX_UPLOAD_BYTES", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("SEGSCORE_STORE_BACKEND", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected as invalid", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SEGSCORE_CONFIG",
		"SEGSCORE_ADDR",
		"SEGSCORE_REFERENCE_PATH",
		"SEGSCORE_MAX_UPLOAD_BYTES",
		"SEGSCORE_STORE_BACKEND",
		"SEGSCORE_DICE_MODE",
		"SEGSCORE_SUBMIT_RATE_PER_SEC",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "segscore-config-*.yaml")
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
