// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/gatehouse-project/gatehouse/cmd/gatehousectl/cli"
	"github.com/gatehouse-project/gatehouse/lib/sealed"
	libsecret "github.com/gatehouse-project/gatehouse/lib/secret"
)

type keygenParams struct {
	Output string
	Force  bool
}

func keygenCommand() *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age identity for sealed secrets",
		Description: `Generate an age x25519 keypair.

The public key (recipient) goes to stdout so it can be piped into
deployment config. The identity (private key) goes to a file with
--output, or to stderr when no file is given. The identity belongs in
a secret mount on the game container, never in an image layer.`,
		Usage: "gatehousectl secret keygen [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&params.Output, "output", "o", "",
				"write the identity to this file (mode 0600) instead of stderr")
			flagSet.BoolVar(&params.Force, "force", false,
				"overwrite an existing identity file")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Print both halves (identity on stderr, recipient on stdout)",
				Command:     "gatehousectl secret keygen",
			},
			{
				Description: "Write the identity to a file, recipient to stdout",
				Command:     "gatehousectl secret keygen -o gatehouse.key",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runKeygen(params, os.Stdout, os.Stderr)
		},
	}
}

func runKeygen(params keygenParams, stdout, stderr io.Writer) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()

	if params.Output != "" {
		if err := writeIdentityFile(params.Output, keypair.Identity, params.Force); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "identity written to %s\n", params.Output)
	} else {
		fmt.Fprintf(stderr, "# Identity (keep secret; mount it at the container's secret identity path):\n")
		fmt.Fprintf(stderr, "%s\n", keypair.Identity.String())
	}

	fmt.Fprintln(stdout, keypair.Recipient)
	return nil
}

// writeIdentityFile writes the identity 0600, refusing to clobber an
// existing file unless forced. The bytes come straight from the locked
// buffer; no heap copy of the key is made on this path.
func writeIdentityFile(path string, identity *libsecret.Buffer, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return err
	}
	if _, err := file.Write(identity.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
