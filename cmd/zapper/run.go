package main

import (
	"fmt"
	"os"

	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/progress"
	"github.com/narvanalabs/zapper/pkg/config"
	"github.com/spf13/cobra"
)

type runOptions struct {
	file          string
	install       string
	installedPath string
	repository    string
	checkoutPath  string
	host          string
	username      string
	password      string
}

var runFlags runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the build step: build or locate ZAP, then launch it as a daemon",
	Long: `run executes the ZAP build step.

With --install auto (the default) zapper checks the Java runtime, checks out
or updates the ZAP source, builds it with Ant and launches the result. With
--install installed it launches the ZAP found at --installed-path.

Step settings can come from a YAML file (--file); flags override it.`,
	RunE: doRun,
}

func init() {
	bindRunFlags(runCmd)
}

func bindRunFlags(cmd *cobra.Command) {
	runFlags = runOptions{}
	f := cmd.Flags()
	f.StringVarP(&runFlags.file, "file", "f", "", "YAML step file")
	f.StringVar(&runFlags.install, "install", "", `"auto" to build from source, anything else to use --installed-path`)
	f.StringVar(&runFlags.installedPath, "installed-path", "", "directory of an existing ZAP installation")
	f.StringVar(&runFlags.repository, "repository", "", "source repository URL")
	f.StringVar(&runFlags.checkoutPath, "checkout-path", "", "local checkout directory")
	f.StringVar(&runFlags.host, "host", "", "daemon address, host or host:port")
	f.StringVar(&runFlags.username, "username", "", "repository user name")
	f.StringVar(&runFlags.password, "password", "", "repository password, plain or age-armored (default $ZAPPER_REPO_PASSWORD)")
}

// stepForm merges the step file with flags that were set.
func stepForm(cmd *cobra.Command, defaults config.Defaults) (models.StepForm, error) {
	var form models.StepForm
	if runFlags.file != "" {
		loaded, err := config.LoadStepFile(runFlags.file)
		if err != nil {
			return form, err
		}
		form = loaded
	}

	flags := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("install", &form.InstallType, runFlags.install)
	set("installed-path", &form.InstalledPath, runFlags.installedPath)
	set("repository", &form.RepositoryURL, runFlags.repository)
	set("checkout-path", &form.CheckoutPath, runFlags.checkoutPath)
	set("host", &form.Host, runFlags.host)

	password := runFlags.password
	if !flags.Changed("password") {
		password = os.Getenv("ZAPPER_REPO_PASSWORD")
	}
	if flags.Changed("username") || password != "" {
		if form.Credentials == nil {
			form.Credentials = &models.RepositoryCredentials{}
		}
		if flags.Changed("username") {
			form.Credentials.Username = runFlags.username
		}
		if password != "" {
			form.Credentials.Password = password
		}
	}

	defaults.Apply(&form)
	return form, nil
}

func doRun(cmd *cobra.Command, _ []string) error {
	form, err := stepForm(cmd, cfg.Defaults)
	if err != nil {
		return err
	}
	stepCfg := form.ToConfig()

	runner, err := newRunner(cfg, log)
	if err != nil {
		return err
	}

	sink := progress.Multi(
		progress.NewWriterSink(cmd.OutOrStdout()),
		progress.NewSlogSink(log.WithComponent("progress").Logger),
	)
	report := runner.Run(cmd.Context(), &stepCfg, sink)
	if !report.Succeeded {
		return fmt.Errorf("build step failed during %s: %w", report.Stage, report.Err)
	}
	log.Info("build step finished", "run_id", report.RunID, "command", report.Command.Line)
	return nil
}
