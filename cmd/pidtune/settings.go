package main

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/san-kum/pidtune/internal/persistence"
	"github.com/san-kum/pidtune/internal/storage"
	"github.com/san-kum/pidtune/internal/ui"
)

// Settings are the application-wide values read from the settings file and
// PIDTUNE_* environment variables.
type Settings struct {
	DataDir string `mapstructure:"data_dir"`
	DbPath  string `mapstructure:"db_path"`

	Api struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"api"`

	Live struct {
		Speed       float64 `mapstructure:"speed"`
		ErrorWindow int     `mapstructure:"error_window"`
	} `mapstructure:"live"`
}

var (
	settings Settings
	dataDir  string
)

func initSettings(cfgFile string) error {
	v := viper.New()
	v.SetConfigName("pidtune")
	v.SetConfigType("yaml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			ui.Warning("Couldn't detect home directory: %v", err)
		}
		v.AddConfigPath(".")
		if home != "" {
			v.AddConfigPath(filepath.Join(home, ".pidtune"))
		}
		v.AddConfigPath("/etc/pidtune/")
	}

	v.SetEnvPrefix("PIDTUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaultValues(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	} else {
		ui.Debug("Using settings file at: %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&settings); err != nil {
		return err
	}
	if dataDir != "" {
		settings.DataDir = dataDir
	}
	var err error
	if settings.DataDir, err = homedir.Expand(settings.DataDir); err != nil {
		return err
	}
	if settings.DbPath, err = homedir.Expand(settings.DbPath); err != nil {
		return err
	}
	return nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("data_dir", ".pidtune/runs")
	v.SetDefault("db_path", ".pidtune/models.db")
	v.SetDefault("api.host", "localhost")
	v.SetDefault("api.port", 9000)
	v.SetDefault("live.speed", 1.0)
	v.SetDefault("live.error_window", 100)
}

func runStore() (*storage.Store, error) {
	st := storage.New(settings.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func modelStore() (persistence.Persistence, error) {
	p := persistence.NewPersistence(settings.DbPath)
	if err := p.Init(); err != nil {
		return nil, err
	}
	return p, nil
}
