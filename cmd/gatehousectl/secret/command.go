// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret implements the "gatehousectl secret" subtree: age
// keypair generation, sealing a settings file for the container
// identity, and verifying that a sealed file decrypts.
package secret

import (
	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
)

// Command returns the "secret" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "secret",
		Summary: "Manage sealed secret settings",
		Description: `Tooling for the sealed secret settings workflow.

A game image ships without its production settings. At boot, the
supervisor either links a plaintext secret mounted by the orchestrator
or unseals an age-encrypted one using the identity mounted at the
container's secret.identity path. These commands produce the pieces:
an identity for the container, a sealed settings file for the volume,
and a verification that the two fit together.`,
		Subcommands: []*cli.Command{
			keygenCommand(),
			sealCommand(),
			checkCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Generate a container identity and capture the public key",
				Command:     "gatehousectl secret keygen -o /srv/secrets/gatehouse.key > recipient.txt",
			},
			{
				Description: "Seal the production settings to that identity",
				Command:     "gatehousectl secret seal -r $(cat recipient.txt) secret_settings.py",
			},
			{
				Description: "Prove the container will be able to unseal it",
				Command:     "gatehousectl secret check --identity /srv/secrets/gatehouse.key secret_settings.py.age",
			},
		},
	}
}
