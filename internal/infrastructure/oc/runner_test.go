package oc

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
)

func needShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestRunnerExitCode(t *testing.T) {
	needShell(t)
	r := New(Options{Binary: "sh"}, nil)
	res, err := r.Run(context.Background(), "-c", "echo out; echo err >&2; exit 3")
	require.NoError(t, err, "a nonzero exit is a result, not an error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunnerTimeout(t *testing.T) {
	needShell(t)
	r := New(Options{Binary: "sleep", Timeout: 50 * time.Millisecond}, nil)
	_, err := r.Run(context.Background(), "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after 50ms")
}

func TestRunnerCancellation(t *testing.T) {
	needShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{Binary: "sleep"}, nil).Run(ctx, "5")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerMissingBinary(t *testing.T) {
	_, err := New(Options{Binary: "/nonexistent/oc"}, nil).Run(context.Background(), "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run /nonexistent/oc")
}

func TestGlobalArgs(t *testing.T) {
	r := New(Options{Kubeconfig: "/tmp/kubeconfig", Context: "prod"}, nil)
	assert.Equal(t, "oc", r.opts.Binary)
	assert.Equal(t, []string{"--kubeconfig=/tmp/kubeconfig", "--context=prod", "get", "nodes"}, r.globalArgs([]string{"get", "nodes"}))
	assert.Equal(t, []string{"logs"}, New(Options{}, nil).globalArgs([]string{"logs"}))
}

type fakeRunner struct {
	calls [][]string
	res   domain.CommandResult
	err   error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (domain.CommandResult, error) {
	f.calls = append(f.calls, args)
	return f.res, f.err
}

func TestListerArgs(t *testing.T) {
	f := &fakeRunner{res: domain.CommandResult{Stdout: `{"items":[]}`}}
	l := NewLister(f)
	ctx := context.Background()

	_, err := l.ListResources(ctx, "pods", "payments")
	require.NoError(t, err)
	_, err = l.ListResources(ctx, "nodes", "")
	require.NoError(t, err)
	raw, err := l.GetResource(ctx, "pod", "payments", "pod-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(raw))
	_, err = l.RawGet(ctx, "/api/v1/nodes/worker-0/proxy/stats/summary")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"get", "pods", "-o", "json", "-n", "payments"},
		{"get", "nodes", "-o", "json", "--all-namespaces"},
		{"get", "pod", "pod-a", "-o", "json", "-n", "payments"},
		{"get", "--raw", "/api/v1/nodes/worker-0/proxy/stats/summary"},
	}, f.calls)
}

func TestListerErrors(t *testing.T) {
	ctx := context.Background()

	l := NewLister(&fakeRunner{res: domain.CommandResult{ExitCode: 1, Stderr: `Error from server (NotFound): pods "pod-z" not found`}})
	_, err := l.GetResource(ctx, "pod", "payments", "pod-z")
	require.Error(t, err)
	assert.True(t, diagerr.Is(err, diagerr.CollaboratorUnavailable))
	var exitErr *domain.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	l = NewLister(&fakeRunner{res: domain.CommandResult{Stdout: "  \n"}})
	_, err = l.ListResources(ctx, "events", "payments")
	assert.ErrorContains(t, err, "empty output")

	l = NewLister(&fakeRunner{err: context.Canceled})
	_, err = l.RawGet(ctx, "/healthz")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, diagerr.KindOf(err))
}
