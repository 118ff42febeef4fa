package tools

import (
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
)

func checkNamespace(param, ns string, required bool) error {
	if ns == "" {
		if required {
			return diagerr.Invalid(param, "is required")
		}
		return nil
	}
	if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
		return diagerr.Invalid(param, "%q: %s", ns, strings.Join(errs, "; "))
	}
	return nil
}

// checkName validates pod and node names, which are DNS-1123 subdomains.
func checkName(param, name string, required bool) error {
	if name == "" {
		if required {
			return diagerr.Invalid(param, "is required")
		}
		return nil
	}
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return diagerr.Invalid(param, "%q: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// checkContainer validates a container name (a DNS-1123 label).
func checkContainer(param, name string) error {
	if name == "" {
		return nil
	}
	if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
		return diagerr.Invalid(param, "%q: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// checkWindow parses a Prometheus duration such as 1h, 30m or 1d.
func checkWindow(param, s string) (time.Duration, error) {
	d, err := model.ParseDuration(s)
	if err != nil {
		return 0, diagerr.Invalid(param, "%q is not a duration like 30m, 1h or 1d", s)
	}
	if d <= 0 {
		return 0, diagerr.Invalid(param, "%q must be positive", s)
	}
	return time.Duration(d), nil
}

func checkPercent(param string, v float64) error {
	if v < 0 || v > 100 {
		return diagerr.Invalid(param, "%g is outside [0,100]", v)
	}
	return nil
}

func checkNonNegative(param string, v float64) error {
	if v < 0 {
		return diagerr.Invalid(param, "%g must not be negative", v)
	}
	return nil
}

func checkAtLeastOne(param string, n int) error {
	if n < 1 {
		return diagerr.Invalid(param, "%d must be at least 1", n)
	}
	return nil
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
