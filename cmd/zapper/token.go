package main

import (
	"fmt"
	"time"

	"github.com/narvanalabs/zapper/internal/auth"
	"github.com/spf13/cobra"
)

var tokenFlags struct {
	subject string
	expiry  time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "print a bearer token for the step server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Server.JWTSecret == "" {
			return fmt.Errorf("ZAPPER_JWT_SECRET is required to sign tokens")
		}
		svc := auth.NewService(&auth.Config{
			JWTSecret:   []byte(cfg.Server.JWTSecret),
			TokenExpiry: tokenFlags.expiry,
		}, log.Logger)
		token, err := svc.GenerateToken(tokenFlags.subject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.subject, "subject", "ci", "token subject, usually the CI job name")
	tokenCmd.Flags().DurationVar(&tokenFlags.expiry, "expiry", 24*365*time.Hour, "token lifetime")
}
