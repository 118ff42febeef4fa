package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/junzzhu/openshift-mcp-server/internal/app"
	"github.com/junzzhu/openshift-mcp-server/internal/config"
	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	kk "github.com/junzzhu/openshift-mcp-server/internal/infrastructure/k8s"
	"github.com/junzzhu/openshift-mcp-server/internal/infrastructure/mock"
	"github.com/junzzhu/openshift-mcp-server/internal/infrastructure/oc"
	"github.com/junzzhu/openshift-mcp-server/internal/infrastructure/prom"
	"github.com/junzzhu/openshift-mcp-server/internal/logging"
	"github.com/junzzhu/openshift-mcp-server/internal/mcpserver"
	"github.com/junzzhu/openshift-mcp-server/internal/metrics"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

type globals struct {
	configFile string
	useMock    bool
	flags      *pflag.FlagSet
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "openshift-mcp-server",
		Short:         "OpenShift diagnostics over the Model Context Protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), g)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default $HOME/.config/openshift-mcp-server/config.yaml)")
	pf.BoolVar(&g.useMock, "mock", false, "serve a built-in fixture cluster instead of a real one")
	pf.String("kubeconfig", "", "path to kubeconfig")
	pf.String("context", "", "kube context")
	pf.String("backend", "", "resource backend: oc or kube")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	g.flags = pf

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve MCP over stdio (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), g)
			},
		},
		newReportCmd(g),
		&cobra.Command{
			Use:   "browse",
			Short: "Browse tool reports interactively",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return browse(g)
			},
		},
		&cobra.Command{
			Use:   "tools",
			Short: "List the available tools",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				for _, e := range tools.Catalog() {
					req := ""
					if len(e.Required) > 0 {
						req = " (requires " + strings.Join(e.Required, ", ") + ")"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-32s %s%s\n", e.Name, e.Description, req)
				}
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

func newReportCmd(g *globals) *cobra.Command {
	var pairs []string
	var rawJSON string
	cmd := &cobra.Command{
		Use:   "report <tool>",
		Short: "Run one tool and print its markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := reportArgs(pairs, rawJSON)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			tb, _, done, err := setup(g)
			if err != nil {
				return err
			}
			defer done()
			rep, err := tb.Invoke(ctx, args[0], raw)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), diagerr.Describe(err).JSON())
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Render(rep))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&pairs, "arg", nil, "tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&rawJSON, "json", "", "tool arguments as a JSON object")
	return cmd
}

// reportArgs merges --json with --arg pairs; pairs win.
func reportArgs(pairs []string, rawJSON string) (json.RawMessage, error) {
	obj := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &obj); err != nil {
			return nil, fmt.Errorf("--json: %w", err)
		}
	}
	return tools.ArgsFromPairs(obj, pairs)
}

func loadConfig(g *globals) (*config.Config, error) {
	return config.Load(g.configFile, map[string]*pflag.Flag{
		"cluster.kubeconfig": changed(g.flags, "kubeconfig"),
		"cluster.context":    changed(g.flags, "context"),
		"cluster.backend":    changed(g.flags, "backend"),
		"logging.level":      changed(g.flags, "log-level"),
	})
}

// changed returns the flag only when set on the command line so that an
// empty default does not mask the config file or environment.
func changed(fs *pflag.FlagSet, name string) *pflag.Flag {
	f := fs.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	return f
}

// setup loads configuration and wires the collaborators into a toolbox.
func setup(g *globals) (*tools.Toolbox, *config.Config, func(), error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, nil, err
	}
	log, sync, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := cfg.ToolOptions()

	var collab domain.Collaborators
	if g.useMock {
		collab = mock.New().Collaborators()
		opts.Now = func() time.Time { return mock.Now }
		log.Info("using fixture cluster")
	} else {
		collab, err = collaborators(cfg, log)
		if err != nil {
			sync()
			return nil, nil, nil, err
		}
	}
	return tools.New(collab, opts, log), cfg, sync, nil
}

func collaborators(cfg *config.Config, log *zap.Logger) (domain.Collaborators, error) {
	runner := oc.New(oc.Options{
		Binary:     cfg.Cluster.Binary,
		Kubeconfig: cfg.Cluster.Kubeconfig,
		Context:    cfg.Cluster.Context,
		Timeout:    cfg.Cluster.CommandTimeout,
	}, log.Named("oc"))

	var lister domain.ResourceLister
	switch cfg.Cluster.Backend {
	case "kube":
		repo, err := kk.New(cfg.Cluster.Kubeconfig, cfg.Cluster.Context)
		if err != nil {
			return domain.Collaborators{}, fmt.Errorf("kubernetes client: %w", err)
		}
		lister = repo
	default:
		lister = oc.NewLister(runner)
	}

	var querier domain.MetricsQuerier
	if cfg.Prometheus.URL != "" {
		c, err := prom.New(prom.Options{
			URL:                cfg.Prometheus.URL,
			BearerToken:        cfg.Prometheus.BearerToken,
			InsecureSkipVerify: cfg.Prometheus.InsecureSkipVerify,
			Timeout:            cfg.Prometheus.Timeout,
		}, log.Named("prometheus"))
		if err != nil {
			return domain.Collaborators{}, err
		}
		querier = c
	} else {
		querier = prom.NewProxy(lister, cfg.Prometheus.ProxyPath)
	}
	log.Info("cluster collaborators ready",
		zap.String("backend", cfg.Cluster.Backend),
		zap.String("binary", cfg.Cluster.Binary),
		zap.Bool("prometheus_direct", cfg.Prometheus.URL != ""))
	return domain.Collaborators{Runner: runner, Lister: lister, Metrics: querier}, nil
}

func serve(parent context.Context, g *globals) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tb, cfg, done, err := setup(g)
	if err != nil {
		return err
	}
	defer done()
	log := tb.Logger()

	errCh := make(chan error, 1)
	if addr := cfg.Metrics.ListenAddress; addr != "" {
		go func() { errCh <- metrics.Serve(ctx, addr, log) }()
	}

	srv := mcpserver.New(tb, version, log)
	var names []string
	for _, e := range tools.Catalog() {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	log.Info("tools registered", zap.Strings("tools", names), zap.String("version", version))

	if err := mcpserver.Serve(ctx, srv, log); err != nil {
		log.Error("mcp server stopped", zap.Error(err))
		return err
	}
	stop()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("metrics listener stopped", zap.Error(err))
		}
	default:
	}
	return nil
}

func browse(g *globals) error {
	tb, cfg, done, err := setup(g)
	if err != nil {
		return err
	}
	defer done()
	m := app.New(tb, cfg.Cluster.Context)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
