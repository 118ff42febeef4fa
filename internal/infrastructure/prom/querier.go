// Package prom evaluates instant queries against Prometheus, either directly
// over its HTTP API or through the API server's service proxy.
package prom

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/parser"
)

type Options struct {
	URL                string
	BearerToken        string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client queries a Prometheus endpoint with the client_golang API client.
type Client struct {
	api     promv1.API
	timeout time.Duration
	log     *zap.Logger
}

func New(opts Options, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var rt http.RoundTripper = api.DefaultRoundTripper
	if opts.InsecureSkipVerify {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed cluster certs
		rt = tr
	}
	if opts.BearerToken != "" {
		rt = &bearer{token: opts.BearerToken, next: rt}
	}
	c, err := api.NewClient(api.Config{Address: opts.URL, RoundTripper: rt})
	if err != nil {
		return nil, fmt.Errorf("prometheus client for %s: %w", opts.URL, err)
	}
	return &Client{api: promv1.NewAPI(c), timeout: opts.Timeout, log: log}, nil
}

func (c *Client) Query(ctx context.Context, query string, at time.Time) (model.Vector, error) {
	var qo []promv1.Option
	if c.timeout > 0 {
		qo = append(qo, promv1.WithTimeout(c.timeout))
	}
	val, warnings, err := c.api.Query(ctx, query, at, qo...)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		c.log.Warn("prometheus warning", zap.String("query", query), zap.String("warning", w))
	}
	switch v := val.(type) {
	case model.Vector:
		return v, nil
	case nil:
		return model.Vector{}, nil
	default:
		return nil, fmt.Errorf("query %q: expected vector result, got %s", query, val.Type())
	}
}

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b *bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}

// Proxy sends queries through a ResourceLister's raw GET, which reuses the
// cluster credentials instead of a Prometheus token.
type Proxy struct {
	lister domain.ResourceLister
	path   string
}

func NewProxy(lister domain.ResourceLister, path string) *Proxy {
	return &Proxy{lister: lister, path: path}
}

func (p *Proxy) Query(ctx context.Context, query string, at time.Time) (model.Vector, error) {
	params := url.Values{}
	params.Set("query", query)
	if !at.IsZero() {
		params.Set("time", strconv.FormatFloat(float64(at.UnixMilli())/1000, 'f', 3, 64))
	}
	raw, err := p.lister.RawGet(ctx, p.path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return parser.ParseQueryResponse("prometheus", raw)
}
