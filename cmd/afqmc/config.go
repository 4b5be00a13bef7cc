package main

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config holds the run configuration.
type Config struct {
	NBasis int `toml:"nbasis"`
	NUp    int `toml:"nup"`
	NDown  int `toml:"ndown"`

	NumWalkers   int `toml:"num_walkers"`
	NumSteps     int `toml:"num_steps"`
	ReorthoEvery int `toml:"reortho_every"`

	Batched bool `toml:"batched"`
	Workers int  `toml:"workers"`

	Seed   uint64 `toml:"seed"`
	DBPath string `toml:"db_path"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		NBasis:       16,
		NUp:          4,
		NDown:        3,
		NumWalkers:   32,
		NumSteps:     4096,
		ReorthoEvery: 8,
		Workers:      0,
		Seed:         7,
		DBPath:       "afqmc.db",
	}
}

// LoadFileConfig overlays the TOML file at path onto cfg.
func LoadFileConfig(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.NBasis <= 0 || c.NUp <= 0 || c.NDown < 0:
		return errors.Errorf("%d %d %d", c.NBasis, c.NUp, c.NDown)
	case c.NUp > c.NBasis || c.NDown > c.NBasis:
		return errors.Errorf("%d %d %d", c.NBasis, c.NUp, c.NDown)
	case c.NumWalkers <= 0 || c.NumSteps <= 0 || c.ReorthoEvery <= 0:
		return errors.Errorf("%d %d %d", c.NumWalkers, c.NumSteps, c.ReorthoEvery)
	case c.DBPath == "":
		return errors.Errorf("empty db path")
	}
	return nil
}
