// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	"github.com/gatehouse-project/gatehouse/lib/sealed"
	libsecret "github.com/gatehouse-project/gatehouse/lib/secret"
)

type checkParams struct {
	IdentityFile string
	Passphrase   bool
}

func checkCommand() *cli.Command {
	var params checkParams

	return &cli.Command{
		Name:    "check",
		Summary: "Verify a sealed file decrypts",
		Description: `Decrypt a sealed settings file and report success.

The decrypted bytes stay in locked memory and are never printed or
written anywhere. Run this before shipping a container: a sealed file
the mounted identity cannot open means a boot that dies in the secret
phase.`,
		Usage: "gatehousectl secret check [flags] <sealed-file>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flagSet.StringVarP(&params.IdentityFile, "identity", "i", "",
				"age identity file (use - to read the identity from stdin)")
			flagSet.BoolVar(&params.Passphrase, "passphrase", false,
				"the file is sealed with a passphrase (prompted)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Check against the container identity",
				Command:     "gatehousectl secret check -i /srv/secrets/gatehouse.key secret_settings.py.age",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one sealed file is required")
			}
			return runCheck(params, args[0], os.Stdout)
		},
	}
}

func runCheck(params checkParams, path string, stdout io.Writer) error {
	if params.Passphrase && params.IdentityFile != "" {
		return fmt.Errorf("choose either --identity or --passphrase, not both")
	}
	if !params.Passphrase && params.IdentityFile == "" {
		return fmt.Errorf("an --identity file is required (or --passphrase)")
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var plaintext *libsecret.Buffer
	if params.Passphrase {
		passphrase, promptErr := promptPassphrase("Passphrase", false)
		if promptErr != nil {
			return promptErr
		}
		defer passphrase.Close()
		plaintext, err = sealed.DecryptWithPassphrase(ciphertext, passphrase)
	} else {
		identity, readErr := libsecret.ReadFromPath(params.IdentityFile)
		if readErr != nil {
			return fmt.Errorf("reading identity: %w", readErr)
		}
		defer identity.Close()
		plaintext, err = sealed.Decrypt(ciphertext, identity)
	}
	if err != nil {
		return fmt.Errorf("%s does not decrypt: %w", path, err)
	}
	defer plaintext.Close()

	fmt.Fprintf(stdout, "ok: %s decrypts (%d plaintext bytes)\n", path, plaintext.Len())
	return nil
}
