package main

import (
	"fmt"

	"github.com/narvanalabs/zapper/internal/builder"
	"github.com/narvanalabs/zapper/internal/launch"
	"github.com/narvanalabs/zapper/internal/scan"
	"github.com/narvanalabs/zapper/internal/secrets"
	"github.com/narvanalabs/zapper/internal/vcs"
	"github.com/narvanalabs/zapper/pkg/config"
	"github.com/narvanalabs/zapper/pkg/logger"
)

// newRunner assembles the scan step from configuration.
func newRunner(cfg *config.Config, log *logger.Logger) (*scan.Runner, error) {
	client, err := vcs.NewClient(cfg.VCS.Client, cfg.VCS.Binary(), log.WithComponent("vcs").Logger)
	if err != nil {
		return nil, err
	}
	syncer := vcs.NewSyncer(client, log.WithComponent("sync").Logger)

	buildCfg := builder.DefaultConfig()
	buildCfg.AntBinary = cfg.Build.AntBinary
	buildCfg.JavaBinary = cfg.Build.JavaBinary
	buildCfg.JavaHome = cfg.Build.JavaHome
	buildCfg.MinJavaVersion = cfg.Build.MinJavaVersion
	buildCfg.VerifyArtifact = cfg.Build.VerifyArtifact
	orchestrator := builder.NewOrchestrator(buildCfg, log.WithComponent("builder").Logger)

	launcher := launch.NewLauncher(log.WithComponent("launch").Logger)

	opts := []scan.Option{scan.WithWorkDir(cfg.WorkDir)}
	if cfg.Secrets.AgeIdentity != "" {
		svc, err := newSecrets(cfg, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scan.WithCredentialResolver(svc))
	}

	return scan.NewRunner(syncer, orchestrator, launcher, log.Logger, opts...), nil
}

func newSecrets(cfg *config.Config, log *logger.Logger) (*secrets.Service, error) {
	svc, err := secrets.NewService(&secrets.Config{
		Recipient: cfg.Secrets.AgeRecipient,
		Identity:  cfg.Secrets.AgeIdentity,
	}, log.WithComponent("secrets").Logger)
	if err != nil {
		return nil, fmt.Errorf("configuring age keys: %w", err)
	}
	return svc, nil
}
