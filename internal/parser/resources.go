package parser

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/domain"
	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

// NodeCapacity is the allocatable side of one node.
type NodeCapacity struct {
	Name        string
	CPUCores    float64
	Memory      quantity.Quantity
	PodCapacity int
}

// NodeRequests sums container requests of the pods bound to a node.
type NodeRequests struct {
	CPUCores float64
	Memory   quantity.Quantity
	Pods     int
}

type NodeUsage struct {
	CPUCores float64
	Memory   quantity.Quantity
}

type ClaimInfo struct {
	Namespace    string
	Name         string
	VolumeName   string
	StorageClass string
	Phase        string
	Requested    quantity.Quantity
}

func cores(q resource.Quantity) float64 { return float64(q.MilliValue()) / 1000 }

// ParseNodeNames returns node names sorted.
func ParseNodeNames(raw []byte) ([]string, error) {
	var list corev1.NodeList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, diagerr.Schema("nodes", "node list: %v", err)
	}
	out := make([]string, 0, len(list.Items))
	for _, n := range list.Items {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ParseNodeCapacities decodes a node list. A node without a name or without
// allocatable cpu/memory becomes a failed unit; the rest still decode.
func ParseNodeCapacities(raw []byte) ([]domain.Unit[NodeCapacity], error) {
	var list corev1.NodeList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, diagerr.Schema("nodes", "node list: %v", err)
	}
	out := make([]domain.Unit[NodeCapacity], 0, len(list.Items))
	for i, n := range list.Items {
		if n.Name == "" {
			ref := "items[" + strconv.Itoa(i) + "]"
			out = append(out, domain.Unit[NodeCapacity]{
				Name: ref,
				Err:  diagerr.Schema(ref, "node has no metadata.name"),
			})
			continue
		}
		cpu, okCPU := n.Status.Allocatable[corev1.ResourceCPU]
		mem, okMem := n.Status.Allocatable[corev1.ResourceMemory]
		if !okCPU || !okMem {
			out = append(out, domain.Unit[NodeCapacity]{
				Name: n.Name,
				Err:  diagerr.Schema(n.Name, "node has no status.allocatable cpu/memory"),
			})
			continue
		}
		pods := n.Status.Allocatable[corev1.ResourcePods]
		out = append(out, domain.Unit[NodeCapacity]{Name: n.Name, Value: NodeCapacity{
			Name:        n.Name,
			CPUCores:    cores(cpu),
			Memory:      quantity.FromBytes(mem.Value()),
			PodCapacity: int(pods.Value()),
		}})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ParsePodRequests sums requests per node for pods that hold resources
// (everything except Succeeded and Failed).
func ParsePodRequests(raw []byte) (map[string]NodeRequests, error) {
	var list corev1.PodList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, diagerr.Schema("pods", "pod list: %v", err)
	}
	out := map[string]NodeRequests{}
	for _, p := range list.Items {
		if p.Status.Phase == corev1.PodSucceeded || p.Status.Phase == corev1.PodFailed {
			continue
		}
		node := p.Spec.NodeName
		if node == "" {
			continue
		}
		acc := out[node]
		acc.Pods++
		for _, c := range p.Spec.Containers {
			if q, ok := c.Resources.Requests[corev1.ResourceCPU]; ok {
				acc.CPUCores += cores(q)
			}
			if q, ok := c.Resources.Requests[corev1.ResourceMemory]; ok {
				acc.Memory, _ = acc.Memory.Add(quantity.FromBytes(q.Value()))
			}
		}
		out[node] = acc
	}
	return out, nil
}

// ParseNodeMetrics decodes a metrics.k8s.io NodeMetricsList.
func ParseNodeMetrics(raw []byte) (map[string]NodeUsage, error) {
	var list metricsv1beta1.NodeMetricsList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, diagerr.Schema("nodes.metrics.k8s.io", "node metrics: %v", err)
	}
	out := make(map[string]NodeUsage, len(list.Items))
	for _, m := range list.Items {
		var u NodeUsage
		if q, ok := m.Usage[corev1.ResourceCPU]; ok {
			u.CPUCores = cores(q)
		}
		if q, ok := m.Usage[corev1.ResourceMemory]; ok {
			u.Memory = quantity.FromBytes(q.Value())
		}
		out[m.Name] = u
	}
	return out, nil
}

// ParsePod decodes one pod into a diagnostic record (issues left empty) and
// returns the container names, init containers first.
func ParsePod(raw []byte) (domain.PodDiagnosticRecord, []string, error) {
	var p corev1.Pod
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.PodDiagnosticRecord{}, nil, diagerr.Schema("pod", "pod: %v", err)
	}
	if p.Name == "" {
		return domain.PodDiagnosticRecord{}, nil, diagerr.Schema("pod", "pod has no metadata.name")
	}
	rec := domain.PodDiagnosticRecord{
		Namespace: p.Namespace,
		PodName:   p.Name,
		Phase:     string(p.Status.Phase),
		NodeName:  p.Spec.NodeName,
		QoSClass:  string(p.Status.QOSClass),
	}
	if rec.Phase == "" {
		rec.Phase = "Unknown"
	}
	if p.Status.StartTime != nil {
		t := p.Status.StartTime.Time.UTC()
		rec.StartTime = &t
	}
	for _, c := range p.Status.Conditions {
		rec.Conditions = append(rec.Conditions, domain.PodCondition{
			Type: string(c.Type), Status: string(c.Status), Reason: c.Reason, Message: c.Message,
		})
	}
	for _, cs := range p.Status.InitContainerStatuses {
		rec.Containers = append(rec.Containers, containerDiagnostic(cs, true))
	}
	for _, cs := range p.Status.ContainerStatuses {
		rec.Containers = append(rec.Containers, containerDiagnostic(cs, false))
	}

	var names []string
	for _, c := range p.Spec.InitContainers {
		names = append(names, c.Name)
	}
	for _, c := range p.Spec.Containers {
		names = append(names, c.Name)
	}
	return rec, names, nil
}

func containerDiagnostic(cs corev1.ContainerStatus, init bool) domain.ContainerDiagnostic {
	d := domain.ContainerDiagnostic{
		Name:     cs.Name,
		Init:     init,
		Ready:    cs.Ready,
		Restarts: cs.RestartCount,
		State:    domain.StateUnknown,
	}
	switch {
	case cs.State.Running != nil:
		d.State = domain.StateRunning
	case cs.State.Waiting != nil:
		d.State = domain.StateWaiting
		d.Reason = cs.State.Waiting.Reason
		d.Message = cs.State.Waiting.Message
	case cs.State.Terminated != nil:
		d.State = domain.StateTerminated
		d.Reason = cs.State.Terminated.Reason
		d.Message = cs.State.Terminated.Message
		code := cs.State.Terminated.ExitCode
		d.ExitCode = &code
	}
	return d
}

// ParseEvents decodes an event list, oldest first. A non-empty involved
// keeps only events about that object.
func ParseEvents(raw []byte, involved string) ([]domain.PodEvent, error) {
	var list corev1.EventList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, diagerr.Schema("events", "event list: %v", err)
	}
	out := make([]domain.PodEvent, 0, len(list.Items))
	for _, e := range list.Items {
		if involved != "" && e.InvolvedObject.Name != involved {
			continue
		}
		out = append(out, domain.PodEvent{
			Type:      e.Type,
			Reason:    e.Reason,
			Message:   e.Message,
			Timestamp: eventTime(e),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func eventTime(e corev1.Event) time.Time {
	switch {
	case !e.LastTimestamp.IsZero():
		return e.LastTimestamp.Time.UTC()
	case !e.EventTime.IsZero():
		return e.EventTime.Time.UTC()
	case !e.FirstTimestamp.IsZero():
		return e.FirstTimestamp.Time.UTC()
	}
	return e.CreationTimestamp.Time.UTC()
}

// ParseClaims decodes a PersistentVolumeClaimList.
func ParseClaims(raw []byte) ([]ClaimInfo, error) {
	var list corev1.PersistentVolumeClaimList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, diagerr.Schema("persistentvolumeclaims", "claim list: %v", err)
	}
	out := make([]ClaimInfo, 0, len(list.Items))
	for _, c := range list.Items {
		ci := ClaimInfo{
			Namespace:  c.Namespace,
			Name:       c.Name,
			VolumeName: c.Spec.VolumeName,
			Phase:      string(c.Status.Phase),
		}
		if c.Spec.StorageClassName != nil {
			ci.StorageClass = *c.Spec.StorageClassName
		}
		if q, ok := c.Spec.Resources.Requests[corev1.ResourceStorage]; ok {
			ci.Requested = quantity.FromBytes(q.Value())
		}
		out = append(out, ci)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ParsePhase reads a pod phase from either a full pod document or plain text
// (jsonpath output).
func ParsePhase(raw []byte) string {
	var p corev1.Pod
	if err := json.Unmarshal(raw, &p); err == nil && p.Status.Phase != "" {
		return string(p.Status.Phase)
	}
	return string(bytes.TrimSpace(raw))
}
