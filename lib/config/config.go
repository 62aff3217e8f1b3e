// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file consulted when GATEHOUSE_CONFIG is
// unset. Its absence is not an error; the supervisor is expected to
// run on defaults plus environment variables in most deployments.
const DefaultFile = "/etc/gatehouse/config.yaml"

// Diagnostic verbosity levels accepted by Config.Diagnostics.
const (
	DiagnosticsFull  = "full"
	DiagnosticsQuiet = "quiet"
	DiagnosticsOff   = "off"
)

// Config is the supervisor configuration. Every field can be set in
// the YAML file; the environment variable named on each field takes
// precedence over the file.
type Config struct {
	// User is the target identity the managed process runs as, either
	// "user" or "user:group". The account must exist in the container's
	// user database. Env: GATEHOUSE_USER. Default: evennia.
	User string `yaml:"user"`

	// Selector is the argv[0] token that selects managed mode. Any
	// other first argument makes the supervisor exec the given command
	// unprivileged with no side effects. Env: GATEHOUSE_SELECTOR.
	// Default: evennia.
	Selector string `yaml:"selector"`

	// Diagnostics selects the boot diagnostic verbosity: full, quiet,
	// or off. Env: GATEHOUSE_DIAGNOSTICS. Default: quiet.
	Diagnostics string `yaml:"diagnostics"`

	// MetricsDir, when set, is a node-exporter textfile collector
	// directory; the supervisor writes gatehouse.prom there before
	// handoff. Empty disables metrics. Env: GATEHOUSE_METRICS_DIR.
	MetricsDir string `yaml:"metrics_dir"`

	// Paths configures the managed directory trees.
	Paths PathsConfig `yaml:"paths"`

	// Secret configures secret settings materialization.
	Secret SecretConfig `yaml:"secret"`

	// Migration configures the one-shot migration step.
	Migration MigrationConfig `yaml:"migration"`

	// Hooks configures the boot hook manifest.
	Hooks HooksConfig `yaml:"hooks"`

	// Snapshot configures the pre-migration database snapshot.
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// PathsConfig configures the directory trees whose ownership the
// supervisor manages.
type PathsConfig struct {
	// Framework is the framework install tree.
	// Env: GATEHOUSE_FRAMEWORK_DIR. Default: /usr/src/evennia.
	Framework string `yaml:"framework"`

	// Game is the game data tree (settings, database, logs).
	// Env: GATEHOUSE_GAME_DIR. Default: /usr/src/game.
	Game string `yaml:"game"`

	// State is where the supervisor keeps its own state: boot report,
	// journal, snapshots, handoff marker. Env: GATEHOUSE_STATE_DIR.
	// Default: <game>/server/.gatehouse.
	State string `yaml:"state"`
}

// SecretConfig configures secret settings materialization.
type SecretConfig struct {
	// Source is the secret mount path checked at boot. If a regular
	// file exists here it is linked into the game configuration
	// directory. Env: GATEHOUSE_SECRET_SOURCE.
	// Default: /run/secrets/secret_settings.py.
	Source string `yaml:"source"`

	// Link is where the symlink is created.
	// Env: GATEHOUSE_SECRET_LINK.
	// Default: <game>/server/conf/secret_settings.py.
	Link string `yaml:"link"`

	// Identity is the age identity file used to unseal
	// <source>.age when no plaintext secret is mounted. Empty
	// disables the sealed variant. Env: GATEHOUSE_SECRET_IDENTITY.
	Identity string `yaml:"identity"`
}

// MigrationConfig configures the one-shot migration step.
type MigrationConfig struct {
	// Command is the migration invocation, run as the target identity
	// in the game directory. Default: [<selector>, migrate].
	Command []string `yaml:"command"`

	// Timeout bounds the migration run, as a Go duration string.
	// Default: 10m.
	Timeout string `yaml:"timeout"`

	// Skip disables the migration step entirely. Intended for images
	// whose schema is managed out of band. Env: GATEHOUSE_SKIP_MIGRATION
	// (truthy values: 1, true, yes).
	Skip bool `yaml:"skip"`
}

// HooksConfig configures the boot hook manifest.
type HooksConfig struct {
	// Manifest is the JSONC hook manifest path. A missing file means
	// no hooks. Env: GATEHOUSE_HOOKS.
	// Default: <game>/server/conf/hooks.jsonc.
	Manifest string `yaml:"manifest"`
}

// SnapshotConfig configures the pre-migration database snapshot.
type SnapshotConfig struct {
	// Database is the game database file to snapshot before running
	// the migration. A missing file is a valid first-boot state.
	// Default: <game>/server/evennia.db3.
	Database string `yaml:"database"`

	// Keep is how many snapshots to retain; older ones are pruned
	// after a successful snapshot. Default: 5.
	Keep int `yaml:"keep"`

	// Disable turns snapshots off.
	Disable bool `yaml:"disable"`
}

// Default returns the built-in configuration for the stock image
// layout. These are real operating defaults, not placeholders: a
// container with no config file and no GATEHOUSE_* variables boots
// with exactly these values.
func Default() *Config {
	return &Config{
		User:        "evennia",
		Selector:    "evennia",
		Diagnostics: DiagnosticsQuiet,
		Paths: PathsConfig{
			Framework: "/usr/src/evennia",
			Game:      "/usr/src/game",
		},
		Secret: SecretConfig{
			Source: "/run/secrets/secret_settings.py",
		},
		Migration: MigrationConfig{
			Timeout: "10m",
		},
		Snapshot: SnapshotConfig{
			Keep: 5,
		},
	}
}

// Load builds the effective configuration: defaults, then the config
// file (GATEHOUSE_CONFIG, or DefaultFile when it exists), then
// GATEHOUSE_* environment variables, then variable expansion and
// dependent-path derivation.
//
// Load does not validate; the supervisor validates on the managed
// path only, so that a broken managed configuration cannot break
// pass-through invocations.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("GATEHOUSE_CONFIG")
	switch {
	case path != "":
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	default:
		// The default file is optional.
		if err := cfg.loadFile(DefaultFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", DefaultFile, err)
		}
	}

	cfg.applyEnvironment()
	cfg.expandVariables()
	cfg.deriveDependentPaths()
	return cfg, nil
}

// LoadFile builds the effective configuration from an explicit file
// path, skipping the GATEHOUSE_CONFIG lookup. Used by gatehousectl.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.applyEnvironment()
	cfg.expandVariables()
	cfg.deriveDependentPaths()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnvironment applies GATEHOUSE_* overrides. Environment wins
// over the file: the variables are the container-native tuning
// surface and must work without shipping a config file into the
// image.
func (c *Config) applyEnvironment() {
	setString := func(target *string, name string) {
		if value := os.Getenv(name); value != "" {
			*target = value
		}
	}

	setString(&c.User, "GATEHOUSE_USER")
	setString(&c.Selector, "GATEHOUSE_SELECTOR")
	setString(&c.Diagnostics, "GATEHOUSE_DIAGNOSTICS")
	setString(&c.MetricsDir, "GATEHOUSE_METRICS_DIR")
	setString(&c.Paths.Framework, "GATEHOUSE_FRAMEWORK_DIR")
	setString(&c.Paths.Game, "GATEHOUSE_GAME_DIR")
	setString(&c.Paths.State, "GATEHOUSE_STATE_DIR")
	setString(&c.Secret.Source, "GATEHOUSE_SECRET_SOURCE")
	setString(&c.Secret.Link, "GATEHOUSE_SECRET_LINK")
	setString(&c.Secret.Identity, "GATEHOUSE_SECRET_IDENTITY")
	setString(&c.Hooks.Manifest, "GATEHOUSE_HOOKS")

	switch os.Getenv("GATEHOUSE_SKIP_MIGRATION") {
	case "1", "true", "yes":
		c.Migration.Skip = true
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. GAME and FRAMEWORK are bound to the configured roots so the
// file can say, for example, manifest: ${GAME}/server/conf/hooks.jsonc.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":      os.Getenv("HOME"),
		"FRAMEWORK": c.Paths.Framework,
		"GAME":      c.Paths.Game,
	}

	c.Paths.Framework = expandVars(c.Paths.Framework, vars)
	vars["FRAMEWORK"] = c.Paths.Framework
	c.Paths.Game = expandVars(c.Paths.Game, vars)
	vars["GAME"] = c.Paths.Game

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Secret.Source = expandVars(c.Secret.Source, vars)
	c.Secret.Link = expandVars(c.Secret.Link, vars)
	c.Secret.Identity = expandVars(c.Secret.Identity, vars)
	c.Hooks.Manifest = expandVars(c.Hooks.Manifest, vars)
	c.Snapshot.Database = expandVars(c.Snapshot.Database, vars)
	c.MetricsDir = expandVars(c.MetricsDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// deriveDependentPaths fills empty paths that conventionally live
// under the game tree. Derivation happens after overrides so a
// relocated game directory moves its dependents with it.
func (c *Config) deriveDependentPaths() {
	if c.Paths.State == "" {
		c.Paths.State = filepath.Join(c.Paths.Game, "server", ".gatehouse")
	}
	if c.Secret.Link == "" {
		c.Secret.Link = filepath.Join(c.Paths.Game, "server", "conf", "secret_settings.py")
	}
	if c.Hooks.Manifest == "" {
		c.Hooks.Manifest = filepath.Join(c.Paths.Game, "server", "conf", "hooks.jsonc")
	}
	if c.Snapshot.Database == "" {
		c.Snapshot.Database = filepath.Join(c.Paths.Game, "server", "evennia.db3")
	}
	if len(c.Migration.Command) == 0 {
		c.Migration.Command = []string{c.Selector, "migrate"}
	}
}

// Validate checks the configuration for errors, accumulating every
// problem rather than stopping at the first. Called on the managed
// path only.
func (c *Config) Validate() error {
	var errs []error

	if c.User == "" {
		errs = append(errs, fmt.Errorf("user is required"))
	}
	if c.Selector == "" {
		errs = append(errs, fmt.Errorf("selector is required"))
	}
	switch c.Diagnostics {
	case DiagnosticsFull, DiagnosticsQuiet, DiagnosticsOff:
	default:
		errs = append(errs, fmt.Errorf("diagnostics must be one of full, quiet, off; got %q", c.Diagnostics))
	}
	if c.Paths.Framework == "" {
		errs = append(errs, fmt.Errorf("paths.framework is required"))
	} else if !filepath.IsAbs(c.Paths.Framework) {
		errs = append(errs, fmt.Errorf("paths.framework must be absolute, got %q", c.Paths.Framework))
	}
	if c.Paths.Game == "" {
		errs = append(errs, fmt.Errorf("paths.game is required"))
	} else if !filepath.IsAbs(c.Paths.Game) {
		errs = append(errs, fmt.Errorf("paths.game must be absolute, got %q", c.Paths.Game))
	}
	if len(c.Migration.Command) == 0 && !c.Migration.Skip {
		errs = append(errs, fmt.Errorf("migration.command is required unless migration.skip is set"))
	}
	if _, err := c.MigrationTimeout(); err != nil {
		errs = append(errs, fmt.Errorf("migration.timeout: %w", err))
	}
	if c.Snapshot.Keep < 1 {
		errs = append(errs, fmt.Errorf("snapshot.keep must be at least 1, got %d", c.Snapshot.Keep))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// MigrationTimeout parses the migration timeout string. Zero means no
// timeout.
func (c *Config) MigrationTimeout() (time.Duration, error) {
	if c.Migration.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(c.Migration.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", c.Migration.Timeout, err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("timeout %s is negative", timeout)
	}
	return timeout, nil
}

// EnsureStateDir creates the state directory tree (state root plus
// the snapshots subdirectory).
func (c *Config) EnsureStateDir() error {
	for _, path := range []string{c.Paths.State, filepath.Join(c.Paths.State, "snapshots")} {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// SnapshotDir returns the snapshot directory under the state root.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.Paths.State, "snapshots")
}

// ReportPath returns the boot report file path.
func (c *Config) ReportPath() string {
	return filepath.Join(c.Paths.State, "boot-report.cbor")
}

// JournalPath returns the boot journal database path.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.State, "journal.db")
}

// MarkerPath returns the handoff marker file path.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.Paths.State, "handoff.state")
}

// SealedSource returns the sealed variant of the secret source path.
func (c *SecretConfig) SealedSource() string {
	return c.Source + ".age"
}
