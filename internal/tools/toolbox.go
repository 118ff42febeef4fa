// Package tools sequences collaborator calls, parsers, signal computers and
// the report model for each diagnostic tool.
package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/metrics"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
)

// Thresholds are the defaults a caller may override per invocation.
type Thresholds struct {
	TopN                    int
	RestartCount            float64
	RestartWindow           string
	PodRestartSensitivity   int32
	GpuIdlePercent          float64
	GpuHighPercent          float64
	GpuTemperatureCelsius   float64
	PvBreachPercent         float64
	BalanceDeviationPercent float64
	BalancePressurePercent  float64
	FragmentationGapPercent float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TopN:                    10,
		RestartCount:            5,
		RestartWindow:           "1h",
		PodRestartSensitivity:   5,
		GpuIdlePercent:          1,
		GpuHighPercent:          90,
		GpuTemperatureCelsius:   80,
		PvBreachPercent:         80,
		BalanceDeviationPercent: 20,
		BalancePressurePercent:  85,
		FragmentationGapPercent: 50,
	}
}

type Options struct {
	Thresholds  Thresholds
	Concurrency int
	// DebugImage is passed to `debug node/...` when set; kubectl needs one.
	DebugImage string
	// Now is the clock; tests pin it.
	Now func() time.Time
}

type Toolbox struct {
	runner  domain.ClusterRunner
	lister  domain.ResourceLister
	metrics domain.MetricsQuerier
	opts    Options
	log     *zap.Logger
}

func New(c domain.Collaborators, opts Options, log *zap.Logger) *Toolbox {
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Toolbox{runner: c.Runner, lister: c.Lister, metrics: c.Metrics, opts: opts, log: log}
}

type invocationKey struct{}

// WithInvocationID tags ctx so logs from one call can be correlated.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey{}, id)
}

func invocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// observe wraps one tool invocation with logging and self metrics.
func (t *Toolbox) observe(ctx context.Context, tool string, run func(context.Context) (*report.Report, error)) (*report.Report, error) {
	id := invocationID(ctx)
	ctx = WithInvocationID(ctx, id)
	log := t.log.With(zap.String("tool", tool), zap.String("invocation_id", id))
	start := time.Now()

	rep, err := run(ctx)

	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
	metrics.ToolInvocations.WithLabelValues(tool, metrics.Status(err)).Inc()
	if err != nil {
		log.Warn("tool failed", zap.Duration("duration", elapsed),
			zap.String("kind", string(diagerr.KindOf(err))), zap.Error(err))
		return nil, err
	}
	if rep != nil && rep.Coverage.Collected < rep.Coverage.Total {
		metrics.PartialUnits.WithLabelValues(tool).Add(float64(rep.Coverage.Total - rep.Coverage.Collected))
	}
	log.Info("tool completed", zap.Duration("duration", elapsed),
		zap.Int("sections", len(rep.Sections)), zap.Int("notes", len(rep.Notes)))
	return rep, nil
}

func (t *Toolbox) record(collaborator string, err error) {
	metrics.CollaboratorCalls.WithLabelValues(collaborator, metrics.Status(err)).Inc()
}

// unavailable wraps a collaborator failure unless it is caller cancellation.
func unavailable(subject, op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || diagerr.KindOf(err) != "" {
		return err
	}
	return diagerr.Unavailable(subject, op, err)
}

func (t *Toolbox) list(ctx context.Context, kind, namespace string) ([]byte, error) {
	if t.lister == nil {
		return nil, diagerr.Unavailable(kind, "list", errors.New("no resource lister configured"))
	}
	raw, err := t.lister.ListResources(ctx, kind, namespace)
	t.record("lister", err)
	return raw, unavailable(kind, "list", err)
}

func (t *Toolbox) get(ctx context.Context, kind, namespace, name string) ([]byte, error) {
	if t.lister == nil {
		return nil, diagerr.Unavailable(kind, "get", errors.New("no resource lister configured"))
	}
	raw, err := t.lister.GetResource(ctx, kind, namespace, name)
	t.record("lister", err)
	return raw, unavailable(namespace+"/"+name, "get", err)
}

func (t *Toolbox) rawGet(ctx context.Context, subject, path string) ([]byte, error) {
	if t.lister == nil {
		return nil, diagerr.Unavailable(subject, "get", errors.New("no resource lister configured"))
	}
	raw, err := t.lister.RawGet(ctx, path)
	t.record("lister", err)
	return raw, unavailable(subject, "get "+path, err)
}

func (t *Toolbox) run(ctx context.Context, subject string, args ...string) (string, error) {
	if t.runner == nil {
		return "", diagerr.Unavailable(subject, "run", errors.New("no cluster command runner configured"))
	}
	t.log.Debug("running cluster command", zap.Strings("args", args))
	res, err := t.runner.Run(ctx, args...)
	out, err := domain.CheckExit(subject, res, err)
	t.record("runner", err)
	return out, err
}

// collectPerNode runs fn for every node with at most Concurrency calls in
// flight. A node's failure is kept in its Unit; only caller cancellation
// aborts the whole collection, and then nothing partial is returned.
func collectPerNode[T any](ctx context.Context, t *Toolbox, tool string, nodes []string, fn func(context.Context, string) (T, error)) ([]domain.Unit[T], error) {
	units := make([]domain.Unit[T], len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Concurrency)
	for i, node := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, node)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				t.log.Warn("unit failed", zap.String("tool", tool), zap.String("unit", node),
					zap.String("kind", string(diagerr.KindOf(err))), zap.Error(err))
			}
			units[i] = domain.Unit[T]{Name: node, Value: v, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// allFailed turns a collection in which no unit succeeded into one error, so
// the caller gets a structured failure instead of a report of notes.
func allFailed[T any](tool string, units []domain.Unit[T]) error {
	if len(units) == 0 {
		return nil
	}
	var msgs []string
	for _, u := range units {
		if u.OK() {
			return nil
		}
		msgs = append(msgs, u.Name+": "+u.Err.Error())
	}
	kind := diagerr.KindOf(units[0].Err)
	if kind == "" {
		kind = diagerr.CollaboratorUnavailable
	}
	return &diagerr.Error{Kind: kind, Subject: tool, Op: "collect", Err: errors.New(strings.Join(msgs, "; "))}
}

func unavailableNote(what string, err error) string {
	return "data unavailable for " + what + ": " + diagerr.Describe(err).Message
}

func (t *Toolbox) Logger() *zap.Logger { return t.log }
