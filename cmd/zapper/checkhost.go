package main

import (
	"fmt"

	"github.com/narvanalabs/zapper/internal/validation"
	"github.com/spf13/cobra"
)

var checkHostCmd = &cobra.Command{
	Use:   "check-host VALUE",
	Short: "validate a host or host:port value as the step form does",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ""
		if len(args) == 1 {
			value = args[0]
		}
		target, err := validation.ValidateHostTarget(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: host %s port %d\n", target.HostName, target.Port)
		return nil
	},
}
