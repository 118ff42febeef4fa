package signal

import (
	"fmt"
	"unicode/utf8"

	"github.com/junzzhu/openshift-mcp-server/internal/domain"
)

// PodIssues lists what is wrong with a pod, in a fixed order: phase,
// conditions, container states, readiness, restarts. An empty result means
// no issue was found.
func PodIssues(p domain.PodDiagnosticRecord, restartSensitivity int32) []string {
	var issues []string
	if p.Phase != "Running" && p.Phase != "Succeeded" {
		issues = append(issues, fmt.Sprintf("pod phase is %s", p.Phase))
	}
	for _, c := range p.Conditions {
		if c.Status == "False" {
			msg := fmt.Sprintf("condition %s is False", c.Type)
			if c.Reason != "" {
				msg += " (" + c.Reason + ")"
			}
			issues = append(issues, msg)
		}
	}
	for _, c := range p.Containers {
		switch {
		case c.State == domain.StateWaiting && c.Reason != "":
			issues = append(issues, fmt.Sprintf("container %s is waiting: %s", c.Name, c.Reason))
		case c.State == domain.StateTerminated && c.Reason != "" && !completed(c):
			issues = append(issues, fmt.Sprintf("container %s terminated: %s (exit %d)", c.Name, c.Reason, exitCode(c)))
		}
	}
	if p.Phase != "Succeeded" {
		for _, c := range p.Containers {
			if !c.Ready && !c.Init && !completed(c) {
				issues = append(issues, fmt.Sprintf("container %s is not ready", c.Name))
			}
		}
	}
	for _, c := range p.Containers {
		if c.Restarts > restartSensitivity {
			issues = append(issues, fmt.Sprintf("container %s restarted %d times", c.Name, c.Restarts))
		}
	}
	return issues
}

// a container that ran to completion is not a problem
func completed(c domain.ContainerDiagnostic) bool {
	return c.State == domain.StateTerminated && c.ExitCode != nil && *c.ExitCode == 0
}

// PodRecommendations maps container states to follow-up actions.
func PodRecommendations(p domain.PodDiagnosticRecord, restartSensitivity int32) []string {
	var out []string
	for _, c := range p.Containers {
		switch c.Reason {
		case "ImagePullBackOff", "ErrImagePull":
			out = append(out, fmt.Sprintf("%s: image pull failed; check the image name and registry access", c.Name))
		case "CrashLoopBackOff":
			out = append(out, fmt.Sprintf("%s: container is crash looping; check its logs with get_pod_logs", c.Name))
		case "CreateContainerConfigError":
			out = append(out, fmt.Sprintf("%s: configuration error; check referenced ConfigMaps and Secrets", c.Name))
		case "OOMKilled":
			out = append(out, fmt.Sprintf("%s: OOMKilled (exit %d); increase the memory limit", c.Name, exitCode(c)))
		case "Error":
			if code := exitCode(c); code != 0 {
				out = append(out, fmt.Sprintf("%s: exited with code %d; check application logs", c.Name, code))
			}
		}
		if c.Restarts > restartSensitivity {
			out = append(out, fmt.Sprintf("%s: high restart count (%d); the pod is unstable", c.Name, c.Restarts))
		}
	}
	return out
}

func exitCode(c domain.ContainerDiagnostic) int32 {
	if c.ExitCode == nil {
		return 0
	}
	return *c.ExitCode
}

// WarningEvents keeps the last limit Warning/Error events, newest first, with
// messages cut to maxMessage runes.
func WarningEvents(events []domain.PodEvent, limit, maxMessage int) []domain.PodEvent {
	var warn []domain.PodEvent
	for _, e := range events {
		if e.Type == "Warning" || e.Type == "Error" {
			warn = append(warn, e)
		}
	}
	if len(warn) > limit {
		warn = warn[len(warn)-limit:]
	}
	out := make([]domain.PodEvent, 0, len(warn))
	for i := len(warn) - 1; i >= 0; i-- {
		e := warn[i]
		e.Message = Truncate(e.Message, maxMessage)
		out = append(out, e)
	}
	return out
}

func Truncate(s string, max int) string {
	if max <= 3 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
