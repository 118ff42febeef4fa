package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

// isolate points HOME at an empty directory so no real config is read.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KUBECONFIG", "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "oc", cfg.Cluster.Backend)
	assert.Equal(t, "oc", cfg.Cluster.Binary)
	assert.Equal(t, filepath.Join(home, ".kube", "config"), cfg.Cluster.Kubeconfig)
	assert.Equal(t, 60*time.Second, cfg.Cluster.CommandTimeout)
	assert.Equal(t, defaultProxyPath, cfg.Prometheus.ProxyPath)
	assert.Equal(t, 4, cfg.Collection.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, tools.DefaultThresholds(), cfg.ToolOptions().Thresholds)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
cluster:
  backend: kube
  context: prod
  command_timeout: 90s
prometheus:
  url: https://thanos-querier.example.com
thresholds:
  top_n: 5
  pv_breach_percent: 90
logging:
  format: console
`), 0o600))

	t.Setenv("OCP_MCP_THRESHOLDS_TOP_N", "7")
	t.Setenv("OCP_MCP_CLUSTER_DEBUG_IMAGE", "registry.example.com/tools:latest")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("context", "", "")
	fs.String("log-level", "", "")
	require.NoError(t, fs.Parse([]string{"--log-level=debug"}))

	cfg, err := Load(file, map[string]*pflag.Flag{
		"logging.level":   fs.Lookup("log-level"),
		"cluster.context": nil, // not set on the command line
	})
	require.NoError(t, err)

	assert.Equal(t, "kube", cfg.Cluster.Backend)
	assert.Equal(t, "prod", cfg.Cluster.Context)
	assert.Equal(t, 90*time.Second, cfg.Cluster.CommandTimeout)
	assert.Equal(t, "https://thanos-querier.example.com", cfg.Prometheus.URL)
	assert.Equal(t, 7, cfg.Thresholds.TopN, "environment beats the file")
	assert.Equal(t, 90.0, cfg.Thresholds.PvBreachPercent)
	assert.Equal(t, "registry.example.com/tools:latest", cfg.Cluster.DebugImage)
	assert.Equal(t, "debug", cfg.Logging.Level, "a set flag beats everything")
	assert.Equal(t, "console", cfg.Logging.Format)

	opts := cfg.ToolOptions()
	assert.Equal(t, 7, opts.Thresholds.TopN)
	assert.Equal(t, "registry.example.com/tools:latest", opts.DebugImage)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("OCP_MCP_CLUSTER_BACKEND", "ssh")
	t.Setenv("OCP_MCP_THRESHOLDS_RESTART_WINDOW", "forever")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster.backend must be oc or kube")
	assert.Contains(t, err.Error(), "restart_window")
}

func TestValidate(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())

	cfg.Cluster.Binary = ""
	cfg.Cluster.CommandTimeout = 0
	cfg.Prometheus.ProxyPath = ""
	cfg.Collection.Concurrency = 0
	cfg.Thresholds.TopN = 0
	cfg.Thresholds.GpuIdlePercent = 101
	cfg.Thresholds.GpuTemperatureCelsius = 0
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Logging.File = "/var/log/mcp.log"
	cfg.Logging.MaxSizeMB = 0
	assert.Len(t, cfg.Validate(), 10)

	cfg = DefaultConfig()
	cfg.Prometheus.ProxyPath = ""
	cfg.Prometheus.URL = "http://prometheus:9090"
	assert.Empty(t, cfg.Validate())
}
