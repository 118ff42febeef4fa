// Package k8s implements domain.ResourceLister with client-go.
package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

type Repo struct {
	core    kubernetes.Interface
	metrics metricsclient.Interface
	// raw is nil when built from clientsets without a REST config.
	raw rest.Interface
}

func New(kubeconfigPath, contextName string) (*Repo, error) {
	cfg, err := loadRESTConfig(kubeconfigPath, contextName)
	if err != nil {
		return nil, err
	}
	cfg.QPS = 30
	cfg.Burst = 60
	core, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	m, err := metricsclient.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Repo{core: core, metrics: m, raw: core.CoreV1().RESTClient()}, nil
}

// NewFromClients wraps existing clientsets; tests pass fakes.
func NewFromClients(core kubernetes.Interface, m metricsclient.Interface) *Repo {
	return &Repo{core: core, metrics: m}
}

func loadRESTConfig(kubeconfigPath, contextName string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

// ListResources returns the JSON list for kind. An empty namespace lists
// across all namespaces.
func (r *Repo) ListResources(ctx context.Context, kind, namespace string) ([]byte, error) {
	opts := metav1.ListOptions{}
	var (
		list any
		err  error
	)
	switch normalizeKind(kind) {
	case "nodes":
		list, err = r.core.CoreV1().Nodes().List(ctx, opts)
	case "pods":
		list, err = r.core.CoreV1().Pods(namespace).List(ctx, opts)
	case "events":
		list, err = r.core.CoreV1().Events(namespace).List(ctx, opts)
	case "persistentvolumeclaims":
		list, err = r.core.CoreV1().PersistentVolumeClaims(namespace).List(ctx, opts)
	case "nodes.metrics.k8s.io":
		if r.metrics == nil {
			return nil, fmt.Errorf("metrics.k8s.io client not configured")
		}
		list, err = r.metrics.MetricsV1beta1().NodeMetricses().List(ctx, opts)
	default:
		return nil, fmt.Errorf("list %s: unsupported kind", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return json.Marshal(list)
}

func (r *Repo) GetResource(ctx context.Context, kind, namespace, name string) ([]byte, error) {
	var (
		obj any
		err error
	)
	switch normalizeKind(kind) {
	case "pods":
		obj, err = r.core.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	case "nodes":
		obj, err = r.core.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	case "persistentvolumeclaims":
		obj, err = r.core.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
	default:
		return nil, fmt.Errorf("get %s: unsupported kind", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s/%s: %w", kind, namespace, name, err)
	}
	return json.Marshal(obj)
}

// RawGet issues a GET against an absolute API path such as a node's
// stats/summary proxy or a service proxy.
func (r *Repo) RawGet(ctx context.Context, path string) ([]byte, error) {
	if r.raw == nil {
		return nil, fmt.Errorf("get %s: no REST client configured", path)
	}
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	req := r.raw.Get().AbsPath(u.Path)
	for k, vs := range u.Query() {
		for _, v := range vs {
			req = req.Param(k, v)
		}
	}
	body, err := req.DoRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return body, nil
}

func normalizeKind(kind string) string {
	switch k := strings.ToLower(kind); k {
	case "pod", "po":
		return "pods"
	case "node", "no":
		return "nodes"
	case "event", "ev":
		return "events"
	case "pvc", "persistentvolumeclaim":
		return "persistentvolumeclaims"
	default:
		return k
	}
}
