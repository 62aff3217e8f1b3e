// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/lib/config"
)

// ConfigSource resolves the supervisor configuration for commands that
// read boot state (report, journal, snapshots). Commands embed it in
// their parameter struct and register its flag alongside their own:
//
//	flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
//	params.Config.AddFlags(flagSet)
type ConfigSource struct {
	// File is an explicit config file path. Empty means the standard
	// resolution: GATEHOUSE_CONFIG, then /etc/gatehouse/config.yaml,
	// then built-in defaults. GATEHOUSE_* variables apply either way,
	// so a command pointed at a live container volume sees the same
	// paths the supervisor used.
	File string
}

// AddFlags registers the --config flag on the given flag set.
func (c *ConfigSource) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.File, "config", "",
		"supervisor config file (default: $GATEHOUSE_CONFIG, then "+config.DefaultFile+")")
}

// Load resolves the effective configuration.
func (c *ConfigSource) Load() (*config.Config, error) {
	if c.File != "" {
		return config.LoadFile(c.File)
	}
	return config.Load()
}
