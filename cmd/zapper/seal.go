package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/narvanalabs/zapper/internal/secrets"
	"github.com/spf13/cobra"
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "encrypt a repository password for a step file",
	Long: `seal reads a password from stdin and prints it encrypted to
$ZAPPER_AGE_RECIPIENT (or the recipient of $ZAPPER_AGE_IDENTITY). Put the
output in the step file's credentials.password.

With --keygen it prints a new age key pair instead.`,
	RunE: doSeal,
}

var sealKeygen bool

func init() {
	sealCmd.Flags().BoolVar(&sealKeygen, "keygen", false, "generate a new age key pair")
}

func doSeal(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if sealKeygen {
		recipient, identity, err := secrets.GenerateKeyPair()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ZAPPER_AGE_RECIPIENT=%s\nZAPPER_AGE_IDENTITY=%s\n", recipient, identity)
		return nil
	}

	svc, err := newSecrets(cfg, log)
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password from stdin: %w", err)
	}
	sealed, err := svc.Seal(cmd.Context(), strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Fprint(out, sealed)
	return nil
}
