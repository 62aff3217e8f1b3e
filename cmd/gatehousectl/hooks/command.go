// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package hooks implements "gatehousectl hooks": validating the boot
// hook manifest before an image ships with a typo that only surfaces
// at container start.
package hooks

import (
	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
)

// Command returns the "hooks" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "hooks",
		Summary: "Work with the boot hook manifest",
		Subcommands: []*cli.Command{
			lintCommand(),
		},
	}
}
