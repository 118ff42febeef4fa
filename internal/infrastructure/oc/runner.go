// Package oc talks to the cluster through the oc (or kubectl) binary.
package oc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
)

type Options struct {
	Binary     string
	Kubeconfig string
	Context    string
	Timeout    time.Duration
}

// Runner executes one binary invocation per call. It is safe for concurrent
// use.
type Runner struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options, log *zap.Logger) *Runner {
	if opts.Binary == "" {
		opts.Binary = "oc"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{opts: opts, log: log}
}

// Run returns the result of a completed process even when its exit code is
// nonzero; err is set only when the process could not run or timed out.
func (r *Runner) Run(ctx context.Context, args ...string) (domain.CommandResult, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	full := r.globalArgs(args)
	cmd := exec.CommandContext(ctx, r.opts.Binary, full...)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := domain.CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	r.log.Debug("cluster command finished", zap.String("binary", r.opts.Binary),
		zap.Strings("args", full), zap.Duration("duration", time.Since(start)), zap.Error(err))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return res, fmt.Errorf("%s timed out after %s: %w", r.opts.Binary, r.opts.Timeout, ctxErr)
			}
			return res, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("run %s: %w", r.opts.Binary, err)
	}
	return res, nil
}

func (r *Runner) globalArgs(args []string) []string {
	var out []string
	if r.opts.Kubeconfig != "" {
		out = append(out, "--kubeconfig="+r.opts.Kubeconfig)
	}
	if r.opts.Context != "" {
		out = append(out, "--context="+r.opts.Context)
	}
	return append(out, args...)
}

// Lister implements domain.ResourceLister on top of a ClusterRunner with
// `get -o json` and `get --raw`.
type Lister struct {
	runner domain.ClusterRunner
}

func NewLister(runner domain.ClusterRunner) *Lister {
	return &Lister{runner: runner}
}

func (l *Lister) ListResources(ctx context.Context, kind, namespace string) ([]byte, error) {
	args := []string{"get", kind, "-o", "json"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	} else {
		args = append(args, "--all-namespaces")
	}
	return l.output(ctx, kind, args)
}

func (l *Lister) GetResource(ctx context.Context, kind, namespace, name string) ([]byte, error) {
	args := []string{"get", kind, name, "-o", "json"}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	return l.output(ctx, kind+"/"+name, args)
}

func (l *Lister) RawGet(ctx context.Context, path string) ([]byte, error) {
	return l.output(ctx, path, []string{"get", "--raw", path})
}

func (l *Lister) output(ctx context.Context, subject string, args []string) ([]byte, error) {
	res, err := l.runner.Run(ctx, args...)
	out, err := domain.CheckExit(subject, res, err)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("%s: empty output", subject)
	}
	return []byte(out), nil
}
