// Package config loads server settings from defaults, an optional YAML file,
// OCP_MCP_* environment variables and command-line flags, in rising order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/junzzhu/openshift-mcp-server/help"
	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

const EnvPrefix = "OCP_MCP"

type Config struct {
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Collection CollectionConfig `mapstructure:"collection"`
	Thresholds ThresholdConfig  `mapstructure:"thresholds"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ClusterConfig struct {
	Backend        string        `mapstructure:"backend"` // oc | kube
	Binary         string        `mapstructure:"binary"`
	Kubeconfig     string        `mapstructure:"kubeconfig"`
	Context        string        `mapstructure:"context"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	DebugImage     string        `mapstructure:"debug_image"`
}

type PrometheusConfig struct {
	URL                string        `mapstructure:"url"` // empty: go through the API server proxy
	ProxyPath          string        `mapstructure:"proxy_path"`
	BearerToken        string        `mapstructure:"bearer_token"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type CollectionConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ThresholdConfig struct {
	TopN                    int     `mapstructure:"top_n"`
	RestartCount            float64 `mapstructure:"restart_count"`
	RestartWindow           string  `mapstructure:"restart_window"`
	PodRestartSensitivity   int32   `mapstructure:"pod_restart_sensitivity"`
	GpuIdlePercent          float64 `mapstructure:"gpu_idle_percent"`
	GpuHighPercent          float64 `mapstructure:"gpu_high_percent"`
	GpuTemperatureCelsius   float64 `mapstructure:"gpu_temperature_celsius"`
	PvBreachPercent         float64 `mapstructure:"pv_breach_percent"`
	BalanceDeviationPercent float64 `mapstructure:"balance_deviation_percent"`
	BalancePressurePercent  float64 `mapstructure:"balance_pressure_percent"`
	FragmentationGapPercent float64 `mapstructure:"fragmentation_gap_percent"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json | console
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type MetricsConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

const defaultProxyPath = "/api/v1/namespaces/openshift-monitoring/services/https:prometheus-k8s:9091/proxy/api/v1/query"

func DefaultConfig() Config {
	th := tools.DefaultThresholds()
	return Config{
		Cluster: ClusterConfig{
			Backend:        "oc",
			Binary:         "oc",
			Kubeconfig:     help.DefaultKubeconfig(),
			CommandTimeout: 60 * time.Second,
		},
		Prometheus: PrometheusConfig{
			ProxyPath: defaultProxyPath,
			Timeout:   30 * time.Second,
		},
		Collection: CollectionConfig{Concurrency: 4},
		Thresholds: ThresholdConfig{
			TopN:                    th.TopN,
			RestartCount:            th.RestartCount,
			RestartWindow:           th.RestartWindow,
			PodRestartSensitivity:   th.PodRestartSensitivity,
			GpuIdlePercent:          th.GpuIdlePercent,
			GpuHighPercent:          th.GpuHighPercent,
			GpuTemperatureCelsius:   th.GpuTemperatureCelsius,
			PvBreachPercent:         th.PvBreachPercent,
			BalanceDeviationPercent: th.BalanceDeviationPercent,
			BalancePressurePercent:  th.BalancePressurePercent,
			FragmentationGapPercent: th.FragmentationGapPercent,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", MaxSizeMB: 50, MaxBackups: 3},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("cluster.backend", d.Cluster.Backend)
	v.SetDefault("cluster.binary", d.Cluster.Binary)
	v.SetDefault("cluster.kubeconfig", d.Cluster.Kubeconfig)
	v.SetDefault("cluster.context", d.Cluster.Context)
	v.SetDefault("cluster.command_timeout", d.Cluster.CommandTimeout)
	v.SetDefault("cluster.debug_image", d.Cluster.DebugImage)

	v.SetDefault("prometheus.url", d.Prometheus.URL)
	v.SetDefault("prometheus.proxy_path", d.Prometheus.ProxyPath)
	v.SetDefault("prometheus.bearer_token", d.Prometheus.BearerToken)
	v.SetDefault("prometheus.insecure_skip_verify", d.Prometheus.InsecureSkipVerify)
	v.SetDefault("prometheus.timeout", d.Prometheus.Timeout)

	v.SetDefault("collection.concurrency", d.Collection.Concurrency)

	v.SetDefault("thresholds.top_n", d.Thresholds.TopN)
	v.SetDefault("thresholds.restart_count", d.Thresholds.RestartCount)
	v.SetDefault("thresholds.restart_window", d.Thresholds.RestartWindow)
	v.SetDefault("thresholds.pod_restart_sensitivity", d.Thresholds.PodRestartSensitivity)
	v.SetDefault("thresholds.gpu_idle_percent", d.Thresholds.GpuIdlePercent)
	v.SetDefault("thresholds.gpu_high_percent", d.Thresholds.GpuHighPercent)
	v.SetDefault("thresholds.gpu_temperature_celsius", d.Thresholds.GpuTemperatureCelsius)
	v.SetDefault("thresholds.pv_breach_percent", d.Thresholds.PvBreachPercent)
	v.SetDefault("thresholds.balance_deviation_percent", d.Thresholds.BalanceDeviationPercent)
	v.SetDefault("thresholds.balance_pressure_percent", d.Thresholds.BalancePressurePercent)
	v.SetDefault("thresholds.fragmentation_gap_percent", d.Thresholds.FragmentationGapPercent)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)

	v.SetDefault("metrics.listen_address", d.Metrics.ListenAddress)
}

// Load reads the configuration. file may be empty, in which case the default
// location is tried and its absence is not an error. flags maps config keys
// (e.g. "cluster.kubeconfig") to command-line flags; a flag only overrides
// when it was set.
func Load(file string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		file = help.DefaultConfigFile()
	}
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	for key, f := range flags {
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate reports every problem, not just the first.
func (c *Config) Validate() []error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch c.Cluster.Backend {
	case "oc", "kube":
	default:
		add("cluster.backend must be oc or kube, got %q", c.Cluster.Backend)
	}
	if c.Cluster.Binary == "" {
		add("cluster.binary must not be empty")
	}
	if c.Cluster.CommandTimeout <= 0 {
		add("cluster.command_timeout must be positive")
	}
	if c.Prometheus.URL == "" && c.Prometheus.ProxyPath == "" {
		add("prometheus.proxy_path is required when prometheus.url is empty")
	}
	if c.Prometheus.Timeout < 0 {
		add("prometheus.timeout must not be negative")
	}
	if c.Collection.Concurrency < 1 {
		add("collection.concurrency must be at least 1")
	}

	t := c.Thresholds
	if t.TopN < 1 {
		add("thresholds.top_n must be at least 1")
	}
	if t.RestartCount < 0 {
		add("thresholds.restart_count must not be negative")
	}
	if d, err := model.ParseDuration(t.RestartWindow); err != nil || d <= 0 {
		add("thresholds.restart_window %q is not a positive duration", t.RestartWindow)
	}
	if t.PodRestartSensitivity < 0 {
		add("thresholds.pod_restart_sensitivity must not be negative")
	}
	for name, p := range map[string]float64{
		"gpu_idle_percent":          t.GpuIdlePercent,
		"gpu_high_percent":          t.GpuHighPercent,
		"pv_breach_percent":         t.PvBreachPercent,
		"balance_deviation_percent": t.BalanceDeviationPercent,
		"balance_pressure_percent":  t.BalancePressurePercent,
		"fragmentation_gap_percent": t.FragmentationGapPercent,
	} {
		if p < 0 || p > 100 {
			add("thresholds.%s must be within [0,100], got %v", name, p)
		}
	}
	if t.GpuTemperatureCelsius <= 0 {
		add("thresholds.gpu_temperature_celsius must be positive")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level: %v", err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		add("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 1 {
		add("logging.max_size_mb must be at least 1")
	}
	return errs
}

// ToolOptions converts the thresholds and collection settings for the
// toolbox.
func (c *Config) ToolOptions() tools.Options {
	t := c.Thresholds
	return tools.Options{
		Thresholds: tools.Thresholds{
			TopN:                    t.TopN,
			RestartCount:            t.RestartCount,
			RestartWindow:           t.RestartWindow,
			PodRestartSensitivity:   t.PodRestartSensitivity,
			GpuIdlePercent:          t.GpuIdlePercent,
			GpuHighPercent:          t.GpuHighPercent,
			GpuTemperatureCelsius:   t.GpuTemperatureCelsius,
			PvBreachPercent:         t.PvBreachPercent,
			BalanceDeviationPercent: t.BalanceDeviationPercent,
			BalancePressurePercent:  t.BalancePressurePercent,
			FragmentationGapPercent: t.FragmentationGapPercent,
		},
		Concurrency: c.Collection.Concurrency,
		DebugImage:  c.Cluster.DebugImage,
	}
}
