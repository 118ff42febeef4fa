package domain

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/model"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
)

type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ClusterRunner executes the cluster command-line tool.
type ClusterRunner interface {
	Run(ctx context.Context, args ...string) (CommandResult, error)
}

// ResourceLister returns JSON documents for cluster resources.
type ResourceLister interface {
	ListResources(ctx context.Context, kind, namespace string) ([]byte, error)
	GetResource(ctx context.Context, kind, namespace, name string) ([]byte, error)
	RawGet(ctx context.Context, path string) ([]byte, error)
}

// MetricsQuerier evaluates an instant query. No series is an empty vector,
// not an error.
type MetricsQuerier interface {
	Query(ctx context.Context, query string, at time.Time) (model.Vector, error)
}

type Collaborators struct {
	Runner  ClusterRunner
	Lister  ResourceLister
	Metrics MetricsQuerier
}

// CheckExit folds a transport error or nonzero exit into a
// CollaboratorUnavailable error and returns stdout otherwise. Caller
// cancellation passes through untouched.
func CheckExit(subject string, res CommandResult, err error) (string, error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", diagerr.Unavailable(subject, "run", err)
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = "no stderr"
		}
		return "", diagerr.Unavailable(subject, "run", &ExitError{Code: res.ExitCode, Stderr: msg})
	}
	return res.Stdout, nil
}

type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return "exit code " + strconv.Itoa(e.Code) + ": " + e.Stderr
}
