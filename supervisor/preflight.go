// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/gatehouse-project/gatehouse/lib/config"
	"github.com/gatehouse-project/gatehouse/lib/hookdef"
)

// ValidationResult holds the result of one preflight check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator accumulates preflight checks for the managed boot path. It
// never stops at the first failure: a broken container is easiest to
// fix when one boot attempt reports every problem at once.
type Validator struct {
	results []ValidationResult
	errors  int
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		results: make([]ValidationResult, 0),
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

// Err returns the accumulated failures as a single error, or nil when
// every check passed.
func (v *Validator) Err() error {
	if v.errors == 0 {
		return nil
	}
	var errs []error
	for _, result := range v.results {
		if !result.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", result.Name, result.Message))
		}
	}
	return errors.Join(errs...)
}

// pass records a successful validation.
func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
	})
}

// warn records a warning (not a failure).
func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  true,
		Message: message,
		Warning: true,
	})
}

// fail records a validation failure.
func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{
		Name:    name,
		Passed:  false,
		Message: message,
	})
	v.errors++
}

// Preflight runs every managed-mode check: configuration validity,
// target identity, managed paths, secret source shape, state
// directory, migration command, and the hooks manifest. Returns the
// validator plus the resolved identity and parsed manifest so the boot
// sequence does not resolve them twice.
//
// The identity is nil and the manifest empty when their checks failed;
// callers must consult HasErrors before using them.
func Preflight(cfg *config.Config) (*Validator, *Identity, *hookdef.Manifest) {
	v := NewValidator()
	v.checkConfig(cfg)
	identity := v.checkIdentity(cfg.User)
	v.checkDirectory("game directory", cfg.Paths.Game)
	v.checkDirectory("framework directory", cfg.Paths.Framework)
	v.checkSecret(&cfg.Secret)
	v.checkStateDir(cfg)
	v.checkMigration(&cfg.Migration)
	manifest := v.checkHooks(cfg.Hooks.Manifest)
	return v, identity, manifest
}

// checkConfig runs the configuration's own validation, reporting each
// accumulated problem as its own failure line.
func (v *Validator) checkConfig(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			v.fail("config", line)
		}
		return
	}
	v.pass("config", "valid")
}

// checkIdentity resolves the target identity against the container's
// user database. A missing account is the classic broken-image state
// (the Dockerfile forgot its useradd).
func (v *Validator) checkIdentity(spec string) *Identity {
	identity, err := ResolveIdentity(spec)
	if err != nil {
		v.fail("target identity", err.Error())
		return nil
	}
	v.pass("target identity", identity.String())
	return identity
}

// checkDirectory verifies a managed path exists and is a directory.
func (v *Validator) checkDirectory(name, path string) {
	info, err := os.Stat(path)
	if err != nil {
		v.fail(name, fmt.Sprintf("cannot stat %s: %v", path, err))
		return
	}
	if !info.IsDir() {
		v.fail(name, fmt.Sprintf("%s is not a directory", path))
		return
	}
	v.pass(name, path)
}

// checkSecret verifies the secret source's shape without reading it.
// Absence is a valid state (development boots have no secret mount);
// a present source that is not a regular file is not.
func (v *Validator) checkSecret(secretConfig *config.SecretConfig) {
	info, err := os.Lstat(secretConfig.Source)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			v.fail("secret", fmt.Sprintf("%s exists but is not a regular file", secretConfig.Source))
			return
		}
		v.pass("secret", fmt.Sprintf("mounted at %s", secretConfig.Source))
		return
	case !os.IsNotExist(err):
		v.fail("secret", fmt.Sprintf("cannot stat %s: %v", secretConfig.Source, err))
		return
	}

	// No plaintext mount. A sealed variant needs an identity file to
	// be of any use.
	sealedPath := secretConfig.SealedSource()
	if _, err := os.Stat(sealedPath); err != nil {
		v.pass("secret", "not mounted (skipped)")
		return
	}
	if secretConfig.Identity == "" {
		v.warn("secret", fmt.Sprintf("%s present but no identity configured, ignoring it", sealedPath))
		return
	}
	if _, err := os.Stat(secretConfig.Identity); err != nil {
		v.fail("secret", fmt.Sprintf("identity file: cannot stat %s: %v", secretConfig.Identity, err))
		return
	}
	v.pass("secret", fmt.Sprintf("sealed at %s", sealedPath))
}

// checkStateDir creates the supervisor's state tree. Creation belongs
// in preflight so every later phase can assume the directories exist.
func (v *Validator) checkStateDir(cfg *config.Config) {
	if err := cfg.EnsureStateDir(); err != nil {
		v.fail("state directory", err.Error())
		return
	}
	v.pass("state directory", cfg.Paths.State)
}

// checkMigration verifies the migration command resolves to an
// executable. PATH resolution happens with the supervisor's
// environment, the same one the de-escalated child inherits.
func (v *Validator) checkMigration(migration *config.MigrationConfig) {
	if migration.Skip {
		v.pass("migration", "skipped by configuration")
		return
	}
	if len(migration.Command) == 0 {
		v.fail("migration", "no command configured")
		return
	}
	path, err := exec.LookPath(migration.Command[0])
	if err != nil {
		v.fail("migration", fmt.Sprintf("command %q not found: %v", migration.Command[0], err))
		return
	}
	v.pass("migration", fmt.Sprintf("%s (%s)", strings.Join(migration.Command, " "), path))
}

// checkHooks parses and validates the hooks manifest. A missing
// manifest means no hooks and is the common case. Returns the parsed
// manifest, or an empty one when absent or broken.
func (v *Validator) checkHooks(path string) *hookdef.Manifest {
	manifest, err := hookdef.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			v.pass("hooks", "no manifest (skipped)")
			return &hookdef.Manifest{}
		}
		v.fail("hooks", err.Error())
		return &hookdef.Manifest{}
	}
	if issues := hookdef.Validate(manifest); len(issues) > 0 {
		for _, issue := range issues {
			v.fail("hooks", issue)
		}
		return &hookdef.Manifest{}
	}
	v.pass("hooks", fmt.Sprintf("%d hook(s) in %s", len(manifest.Hooks), path))
	return manifest
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Preflight failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Preflight passed")
	}
}
