package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/awx-launch/internal/awxtest"
	"github.com/rflorenc/awx-launch/internal/config"
	"github.com/rflorenc/awx-launch/internal/platform"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key := strings.SplitN(kv, "=", 2)[0]
		switch {
		case strings.HasPrefix(key, "PLUGIN_"),
			key == "DRONE_OUTPUT", key == "HARNESS_OUTPUT_SECRET_FILE",
			key == "INVENTORY_DESC", key == "ORGANIZATION_ID", key == "TARGET_DESC":
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestRun_EndToEnd(t *testing.T) {
	ctrl := awxtest.NewController()
	defer ctrl.Close()
	ctrl.SetStatuses("running", "successful")
	ctrl.SetCredentials("admin", "hunter2-xyz")

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.env")
	secretPath := filepath.Join(dir, "secret.env")

	clearEnv(t)
	t.Setenv("PLUGIN_ENDPOINT", ctrl.URL)
	t.Setenv("PLUGIN_USERNAME", "admin")
	t.Setenv("PLUGIN_PASSWORD", "hunter2-xyz")
	t.Setenv("PLUGIN_JOB_TEMPLATE_ID", "5")
	t.Setenv("PLUGIN_TARGET_HOSTNAME", "h1")
	t.Setenv("PLUGIN_ORGANIZATION_ID", "1")
	t.Setenv("PLUGIN_SAVE_TOKEN", "true")
	t.Setenv("PLUGIN_POLL_INTERVAL", "1ms")
	t.Setenv("DRONE_OUTPUT", outPath)
	t.Setenv("HARNESS_OUTPUT_SECRET_FILE", secretPath)

	var stderr bytes.Buffer
	require.NoError(t, run(context.Background(), &stderr))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "INVENTORY_ID=10\nJOB_ID=100\nJOB_STATUS=successful\nJOB_URL="+ctrl.URL+"/#/jobs/playbook/100/output\n", string(out))

	secret, err := os.ReadFile(secretPath)
	require.NoError(t, err)
	assert.Equal(t, "AWX_TOKEN=tok-123\n", string(secret))

	logs := stderr.String()
	assert.Contains(t, logs, "run=")
	assert.Contains(t, logs, `msg="job completed"`)
	assert.NotContains(t, logs, "hunter2-xyz", "the password is never logged")
	assert.Contains(t, logs, "password=••••••••")
}

func TestRun_MissingConfigurationMakesNoCalls(t *testing.T) {
	ctrl := awxtest.NewController()
	defer ctrl.Close()

	clearEnv(t)
	t.Setenv("PLUGIN_ENDPOINT", ctrl.URL)
	t.Setenv("PLUGIN_USERNAME", "admin")

	var stderr bytes.Buffer
	err := run(context.Background(), &stderr)
	require.Error(t, err)

	var cerr *config.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "PASSWORD", cerr.Setting)
	assert.Contains(t, stderr.String(), "PASSWORD required")
	assert.Empty(t, ctrl.Calls())
}

func TestRun_AuthenticationFailure(t *testing.T) {
	ctrl := awxtest.NewController()
	defer ctrl.Close()

	outPath := filepath.Join(t.TempDir(), "out.env")
	clearEnv(t)
	t.Setenv("PLUGIN_ENDPOINT", ctrl.URL)
	t.Setenv("PLUGIN_USERNAME", "admin")
	t.Setenv("PLUGIN_PASSWORD", "wrong")
	t.Setenv("PLUGIN_JOB_TEMPLATE_ID", "5")
	t.Setenv("PLUGIN_TARGET_HOSTNAME", "h1")
	t.Setenv("DRONE_OUTPUT", outPath)

	var stderr bytes.Buffer
	err := run(context.Background(), &stderr)

	var authErr *platform.AuthenticationError
	require.True(t, errors.As(err, &authErr), "error = %v", err)
	assert.Len(t, ctrl.Calls(), 1)
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "outputs are not written after a fatal error")
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "awx-launch dev (commit: none, built: unknown)\n", stdout.String())
}
