// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package hookdef

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONC(t *testing.T) {
	t.Parallel()

	data := []byte(`{
	// Boot hooks for the production deployment.
	"description": "production hooks",
	"hooks": [
		{
			"name": "install-requirements",
			"run": "pip install --no-deps -r requirements.txt",
			"when": "test -f requirements.txt",
			"timeout": "5m", // trailing comma below is tolerated
		},
		/* disabled while the CDN migration is in flight
		{
			"name": "collect-static",
			"run": "evennia collectstatic --noinput",
		},
		*/
		{
			"name": "rebuild-cache",
			"run": "evennia rebuildcache",
			"phase": "post-migration",
			"optional": true,
		},
	],
}`)

	manifest, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if manifest.Description != "production hooks" {
		t.Errorf("Description = %q, want %q", manifest.Description, "production hooks")
	}
	if len(manifest.Hooks) != 2 {
		t.Fatalf("got %d hooks, want 2 (block-commented hook should be dropped)", len(manifest.Hooks))
	}
	if manifest.Hooks[0].Name != "install-requirements" {
		t.Errorf("Hooks[0].Name = %q, want install-requirements", manifest.Hooks[0].Name)
	}
	if manifest.Hooks[0].Timeout != "5m" {
		t.Errorf("Hooks[0].Timeout = %q, want 5m", manifest.Hooks[0].Timeout)
	}
	if !manifest.Hooks[1].Optional {
		t.Error("Hooks[1].Optional should be true")
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"hooks": [}`)); err == nil {
		t.Fatal("Parse should fail on malformed JSON")
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hooks.jsonc")
	content := `{
	"hooks": [
		{"name": "noop", "run": "true"}, // trailing comma
	],
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	manifest, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(manifest.Hooks) != 1 || manifest.Hooks[0].Name != "noop" {
		t.Errorf("unexpected manifest: %+v", manifest)
	}
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonc"))
	if err == nil {
		t.Fatal("ReadFile should fail for a missing file")
	}
	// Callers treat a missing manifest as "no hooks", so the error
	// must stay recognizable.
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist, got: %v", err)
	}
}

func TestHooksFor(t *testing.T) {
	t.Parallel()

	manifest := &Manifest{
		Hooks: []Hook{
			{Name: "first", Run: "true"}, // empty phase defaults to pre-migration
			{Name: "second", Run: "true", Phase: PhasePreMigration},
			{Name: "third", Run: "true", Phase: PhasePostMigration},
			{Name: "fourth", Run: "true"},
		},
	}

	pre := manifest.HooksFor(PhasePreMigration)
	if len(pre) != 3 {
		t.Fatalf("got %d pre-migration hooks, want 3", len(pre))
	}
	for index, want := range []string{"first", "second", "fourth"} {
		if pre[index].Name != want {
			t.Errorf("pre[%d].Name = %q, want %q (manifest order must be preserved)", index, pre[index].Name, want)
		}
	}

	post := manifest.HooksFor(PhasePostMigration)
	if len(post) != 1 || post[0].Name != "third" {
		t.Errorf("unexpected post-migration hooks: %+v", post)
	}
}
