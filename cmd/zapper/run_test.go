package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/narvanalabs/zapper/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	bindRunFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func testDefaults() config.Defaults {
	return config.DefaultsFor(config.VCSSVN, "/work")
}

func TestStepForm_DefaultsOnly(t *testing.T) {
	t.Setenv("ZAPPER_REPO_PASSWORD", "")
	cmd := parseRunFlags(t)

	form, err := stepForm(cmd, testDefaults())
	require.NoError(t, err)

	assert.Equal(t, config.DefaultHost, form.Host)
	assert.Equal(t, config.DefaultSVNRepository, form.RepositoryURL)
	assert.Nil(t, form.Credentials)
	assert.True(t, form.ToConfig().Install.IsAuto())
}

func TestStepForm_FlagsOverrideFile(t *testing.T) {
	t.Setenv("ZAPPER_REPO_PASSWORD", "")
	path := filepath.Join(t.TempDir(), "step.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`install_type: installed
installed_path: /opt/zap
host: scanner:9000
credentials:
  username: ci
`), 0o644))

	cmd := parseRunFlags(t, "--file", path, "--host", "localhost:8091", "--password", "s3cret")

	form, err := stepForm(cmd, testDefaults())
	require.NoError(t, err)

	assert.Equal(t, "localhost:8091", form.Host)
	assert.Equal(t, "/opt/zap", form.InstalledPath)
	require.NotNil(t, form.Credentials)
	assert.Equal(t, "ci", form.Credentials.Username)
	assert.Equal(t, "s3cret", form.Credentials.Password)

	path2, ok := form.ToConfig().Install.Path()
	assert.True(t, ok)
	assert.Equal(t, "/opt/zap", path2)
}

func TestStepForm_PasswordFromEnv(t *testing.T) {
	t.Setenv("ZAPPER_REPO_PASSWORD", "from-env")
	cmd := parseRunFlags(t, "--username", "builder")

	form, err := stepForm(cmd, testDefaults())
	require.NoError(t, err)

	require.NotNil(t, form.Credentials)
	assert.Equal(t, "builder", form.Credentials.Username)
	assert.Equal(t, "from-env", form.Credentials.Password)
}

func TestStepForm_MissingFile(t *testing.T) {
	cmd := parseRunFlags(t, "--file", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := stepForm(cmd, testDefaults())
	assert.Error(t, err)
}
