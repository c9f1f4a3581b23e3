package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"

	"github.com/appkins-org/go-uefi-bootorder/internal/backup"
	"github.com/appkins-org/go-uefi-bootorder/internal/firmware/efibootmgr"
)

// Config carries the process-wide settings: the boot manager command, its
// invocation timeout, the default backup location, and the log level. All
// keys can come from bootorder.yaml or a BOOTORDER_* environment variable.
type Config struct {
	Command    string        `yaml:"command" mapstructure:"command"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BackupPath string        `yaml:"backup_path" mapstructure:"backup_path"`
	LogLevel   string        `yaml:"log_level" mapstructure:"log_level"`
	Log        logr.Logger   `yaml:"-" mapstructure:"-"`
}

func New() (*Config, error) {
	conf := &Config{}

	viper.SetConfigName("bootorder")
	viper.SetConfigType("yaml")

	viper.AddConfigPath("/etc/bootorder/")
	viper.AddConfigPath(".")

	viper.SetDefault("command", efibootmgr.DefaultCommand)
	viper.SetDefault("timeout", efibootmgr.DefaultTimeout.String())
	viper.SetDefault("backup_path", backup.DefaultPath)
	viper.SetDefault("log_level", "info")

	// The config file is optional; a malformed one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	for _, key := range viper.AllKeys() {
		envKey := "BOOTORDER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := viper.BindEnv(key, envKey); err != nil {
			return nil, fmt.Errorf("config: unable to bind env: %w", err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	conf.Log = Logger(conf.LogLevel)

	return conf, nil
}

// Logger builds a logr.Logger over a slog JSON handler.
func Logger(level string) logr.Logger {
	// source file and function can be long. This makes the logs less readable.
	// truncate source file and function to last 3 parts for improved readability.
	customAttr := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			ss, ok := a.Value.Any().(*slog.Source)
			if !ok || ss == nil {
				return a
			}
			f := strings.Split(ss.Function, "/")
			if len(f) > 3 {
				ss.Function = filepath.Join(f[len(f)-3:]...)
			}
			p := strings.Split(ss.File, "/")
			if len(p) > 3 {
				ss.File = filepath.Join(p[len(p)-3:]...)
			}

			return a
		}

		return a
	}
	opts := &slog.HandlerOptions{AddSource: true, ReplaceAttr: customAttr}
	switch level {
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		opts.Level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, opts))

	return logr.FromSlogHandler(log.Handler())
}
