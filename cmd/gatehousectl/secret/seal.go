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
)

type sealParams struct {
	Recipients []string
	Passphrase bool
	Output     string
	Force      bool
}

func sealCommand() *cli.Command {
	var params sealParams

	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt a settings file for the container",
		Description: `Seal a plaintext settings file with age.

The result is safe to store on the game volume or in deployment
config: only the named recipients (or the passphrase) can open it.
Sealing to several recipients, typically the container identity plus
an operator escrow key, keeps the file recoverable when one identity
is lost. The supervisor looks for the sealed file next to the
configured secret source, under the same name plus ".age".`,
		Usage: "gatehousectl secret seal [flags] <settings-file>",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&params.Recipients, "recipient", "r", nil,
				"age public key to seal to (repeatable)")
			flagSet.BoolVar(&params.Passphrase, "passphrase", false,
				"seal with a passphrase instead of recipients (prompted)")
			flagSet.StringVarP(&params.Output, "output", "o", "",
				"output file (default: <settings-file>.age)")
			flagSet.BoolVar(&params.Force, "force", false,
				"overwrite an existing output file")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Seal to the container identity and an escrow key",
				Command:     "gatehousectl secret seal -r age1container... -r age1escrow... secret_settings.py",
			},
			{
				Description: "Seal with a passphrase for offline archival",
				Command:     "gatehousectl secret seal --passphrase secret_settings.py",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("exactly one settings file is required")
			}
			return runSeal(params, args[0], os.Stdout)
		},
	}
}

func runSeal(params sealParams, input string, stdout io.Writer) error {
	if params.Passphrase && len(params.Recipients) > 0 {
		return fmt.Errorf("choose either --recipient or --passphrase, not both")
	}
	if !params.Passphrase && len(params.Recipients) == 0 {
		return fmt.Errorf("at least one --recipient is required (or --passphrase)")
	}
	for _, recipient := range params.Recipients {
		if err := sealed.ValidateRecipient(recipient); err != nil {
			return fmt.Errorf("recipient %q: %w", recipient, err)
		}
	}

	plaintext, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	var ciphertext []byte
	if params.Passphrase {
		passphrase, promptErr := promptPassphrase("Passphrase", true)
		if promptErr != nil {
			return promptErr
		}
		defer passphrase.Close()
		ciphertext, err = sealed.EncryptWithPassphrase(plaintext, passphrase)
	} else {
		ciphertext, err = sealed.Encrypt(plaintext, params.Recipients)
	}
	if err != nil {
		return err
	}

	output := params.Output
	if output == "" {
		output = input + ".age"
	}
	if err := writeCiphertext(output, ciphertext, params.Force); err != nil {
		return err
	}

	how := fmt.Sprintf("%d recipient(s)", len(params.Recipients))
	if params.Passphrase {
		how = "passphrase"
	}
	fmt.Fprintf(stdout, "sealed %s -> %s (%d bytes, %s)\n", input, output, len(ciphertext), how)
	return nil
}

// writeCiphertext writes the sealed blob 0644. Ciphertext is safe to
// read; the whole point of sealing is that possession is not access.
func writeCiphertext(path string, ciphertext []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return err
	}
	if _, err := file.Write(ciphertext); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
