package domain

import (
	"time"

	"github.com/junzzhu/openshift-mcp-server/internal/quantity"
)

type NodeStorageRecord struct {
	NodeName     string
	FsUsed       quantity.Quantity
	FsCapacity   quantity.Quantity
	FsAvailable  quantity.Quantity
	ImageFsUsed  quantity.Quantity
	HasImageFs   bool
	PodEphemeral quantity.Quantity // sum over pods with usage > 0
}

type FilesystemUsage struct {
	Filesystem string
	Type       string
	Size       quantity.Quantity
	Used       quantity.Quantity
	Available  quantity.Quantity
	UsePct     quantity.Quantity
	HasUsePct  bool
	MountedOn  string
}

type Layer string

const (
	LayerUnclassified Layer = ""
	LayerWritable     Layer = "writable-layer"
	LayerEphemeralVol Layer = "ephemeral-volume"
)

type PodConsumptionRecord struct {
	Namespace string
	PodName   string
	Consumed  quantity.Quantity
	Layer     Layer
}

func (p PodConsumptionRecord) Key() string { return p.Namespace + "/" + p.PodName }

// ReclaimableSpaceRecord is derived from an image inventory and the set of
// running containers. Known=false means the inventory could not be read.
type ReclaimableSpaceRecord struct {
	NodeName      string
	Known         bool
	Size          quantity.Quantity
	Unreferenced  int
	TotalImages   int
	InventoryTime time.Time
}

type ResourceBalanceRecord struct {
	NodeName       string
	CPUAllocatable float64 // cores
	CPURequested   float64
	CPUUsed        float64
	MemAllocatable quantity.Quantity
	MemRequested   quantity.Quantity
	MemUsed        quantity.Quantity
	PodCount       int
	PodCapacity    int
	HasUsage       bool

	CPURequestedPct quantity.Quantity
	CPUUsedPct      quantity.Quantity
	MemRequestedPct quantity.Quantity
	MemUsedPct      quantity.Quantity
	CPUDeviation    float64 // percentage points from the cluster mean
	MemDeviation    float64
	Flagged         bool
}

// BalanceSpread summarises one utilisation ratio across the node set, in
// percentage points.
type BalanceSpread struct {
	Resource string
	Basis    string // "used" or "requested"
	Mean     float64
	Min      float64
	Max      float64
	Range    float64
	StdDev   float64
}

type RestartAnomalyRecord struct {
	Namespace   string
	PodName     string
	Restarts    float64
	WindowStart time.Time
	WindowEnd   time.Time
}

type GpuStatus string

const (
	GpuIdle   GpuStatus = "Idle"
	GpuActive GpuStatus = "Active"
)

type GpuUtilizationRecord struct {
	NodeName    string
	GPU         string
	Device      string
	Utilization quantity.Quantity
	MemUsedPct  quantity.Quantity
	HasMemory   bool
	MemFreeMiB  float64
	Status      GpuStatus
}

type GpuHealthFinding struct {
	NodeName string
	GPU      string
	Kind     string // "xid", "throttle", "temperature"
	Detail   string
	Value    float64
}

type PvCapacityRecord struct {
	Namespace    string
	ClaimName    string
	VolumeName   string
	StorageClass string
	NodeName     string
	Used         quantity.Quantity
	Capacity     quantity.Quantity
	UsedPct      quantity.Quantity
	Breached     bool
}

type ContainerState string

const (
	StateRunning    ContainerState = "Running"
	StateWaiting    ContainerState = "Waiting"
	StateTerminated ContainerState = "Terminated"
	StateUnknown    ContainerState = "Unknown"
)

type ContainerDiagnostic struct {
	Name     string
	Init     bool
	Ready    bool
	Restarts int32
	State    ContainerState
	Reason   string
	Message  string
	ExitCode *int32
}

type PodCondition struct {
	Type    string
	Status  string
	Reason  string
	Message string
}

type PodEvent struct {
	Type      string
	Reason    string
	Message   string
	Timestamp time.Time
}

type PodDiagnosticRecord struct {
	Namespace  string
	PodName    string
	Phase      string
	NodeName   string
	QoSClass   string
	StartTime  *time.Time
	Containers []ContainerDiagnostic
	Conditions []PodCondition
	Issues     []string
}

// Unit is the outcome of collecting data for one node, pod or volume: either
// a value or the reason it is missing.
type Unit[T any] struct {
	Name  string
	Value T
	Err   error
}

func (u Unit[T]) OK() bool { return u.Err == nil }
