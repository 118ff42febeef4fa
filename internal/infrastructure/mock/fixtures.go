package mock

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
)

type (
	podT   = corev1.Pod
	eventT = corev1.Event
	claimT = corev1.PersistentVolumeClaim
)

const (
	Ki = int64(1) << 10
	Mi = int64(1) << 20
	Gi = int64(1) << 30
)

// Node names of the fixture cluster.
const (
	Worker0 = "worker-0"
	Worker1 = "worker-1"
	GpuNode = "gpu-worker-0"
)

type series struct {
	labels map[string]string
	value  float64
}

type fixtures struct {
	nodes        *corev1.NodeList
	nodeMetrics  *metricsv1beta1.NodeMetricsList
	pods         *corev1.PodList
	events       *corev1.EventList
	claims       *corev1.PersistentVolumeClaimList
	summaries    map[string]map[string]any
	debug        map[string]string
	logs         map[string]string
	previousLogs map[string]string
	nvidiaSmi    map[string]string
	restarts     []series
	dcgm         map[string][]series
}

func build() fixtures {
	return fixtures{
		nodes: &corev1.NodeList{Items: []corev1.Node{
			node(Worker0, "8", "32Gi"),
			node(Worker1, "8", "32Gi"),
			node(GpuNode, "16", "64Gi"),
		}},
		nodeMetrics: &metricsv1beta1.NodeMetricsList{Items: []metricsv1beta1.NodeMetrics{
			nodeUsage(Worker0, "2100m", "9Gi"),
			nodeUsage(Worker1, "6800m", "27Gi"),
			nodeUsage(GpuNode, "3200m", "20Gi"),
		}},
		pods:   &corev1.PodList{Items: pods()},
		events: &corev1.EventList{Items: events()},
		claims: &corev1.PersistentVolumeClaimList{Items: []corev1.PersistentVolumeClaim{
			claim("ml-team", "training-data", "pvc-5b1e", "50Gi", corev1.ClaimBound),
			claim("openshift-monitoring", "prometheus-data", "pvc-9c07", "100Gi", corev1.ClaimBound),
			claim("ml-team", "scratch", "", "20Gi", corev1.ClaimPending),
		}},
		summaries: map[string]map[string]any{
			// 36.70 Gi of 99.44 Gi used, 34.17 Gi image FS, 5.19 Gi pod ephemeral
			Worker0: summary(Worker0, 39406324941, 106772886979, 36689758126, []map[string]any{
				podSummary("openshift-monitoring", "prometheus-k8s-0", 2791728742, 200*Mi,
					volume("prometheus-data", 20*Gi, 100*Gi, "openshift-monitoring", "prometheus-data"),
					volume("config-out", 2791728742-200*Mi, 0, "", "")),
				podSummary("openshift-image-registry", "image-registry-5d9c7b7f4-xk2lp", 1022319657, 1022319657),
				podSummary("ml-team", "notebook-0", 879334834, 300*Mi,
					volume("training-data", 45*Gi, 50*Gi, "ml-team", "training-data")),
				podSummary("openshift-dns", "dns-default-8r6mq", 879336834, 879336834),
			}),
			Worker1: summary(Worker1, 61*Gi, 120*Gi, 40*Gi, []map[string]any{
				podSummary("payments", "pod-a", 120*Mi, 120*Mi),
				podSummary("payments", "pod-b", 310*Mi, 110*Mi, volume("cache", 200*Mi, 0, "", "")),
			}),
			GpuNode: summary(GpuNode, 180*Gi, 240*Gi, 150*Gi, []map[string]any{
				podSummary("ml-team", "trainer-7f9c4d-2qjzp", 4*Gi, 1*Gi, volume("dshm", 3*Gi, 0, "", "")),
			}),
		},
		debug: map[string]string{
			Worker0: debugOutput(df("/dev/nvme0n1p4", "250G", "206G", "44G", "83%"), worker0Images(), worker0Containers()),
			Worker1: debugOutput(df("/dev/nvme0n1p4", "120G", "61G", "59G", "51%"), images(img("sha256:1d2e", "registry.example.com/payments/api:1.4.2", 410*Mi)),
				containers(ctr("c1", "api", "payments", "pod-b", "registry.example.com/payments/api:1.4.2", "sha256:1d2e"))),
		},
		logs: map[string]string{
			"payments/pod-a/migrate":             "applying migration 0042_orders_index\nmigrations complete\n",
			"payments/pod-a/api":                 "starting api server\nconnecting to postgres at db:5432\n",
			"payments/pod-b/envoy":               "[2025-03-14 09:29:58.101][1][info][main] starting main dispatch loop\n",
			"payments/pod-b/api":                 "GET /healthz 200\nGET /orders 200\nGET /orders/17 404\n",
			"ml-team/trainer-7f9c4d-2qjzp/train": "epoch 12/50 loss=0.412\nepoch 13/50 loss=0.398\n",
		},
		previousLogs: map[string]string{
			"payments/pod-a/api": "starting api server\nconnecting to postgres at db:5432\npanic: dial tcp 10.0.4.12:5432: connect: connection refused\n",
		},
		nvidiaSmi: map[string]string{
			"ml-team/trainer-7f9c4d-2qjzp": nvidiaSmi,
		},
		restarts: []series{
			{map[string]string{"namespace": "payments", "pod": "pod-a"}, 34},
			{map[string]string{"namespace": "payments", "pod": "pod-b"}, 16},
			{map[string]string{"namespace": "ml-team", "pod": "notebook-0"}, 2},
		},
		dcgm: map[string][]series{
			"DCGM_FI_DEV_GPU_UTIL":               gpuSeries(0, 85.2),
			"DCGM_FI_DEV_FB_USED":                gpuSeries(512, 30720),
			"DCGM_FI_DEV_FB_FREE":                gpuSeries(40448, 10240),
			"DCGM_FI_DEV_XID_ERRORS":             gpuSeries(0, 79),
			"DCGM_FI_DEV_CLOCK_THROTTLE_REASONS": gpuSeries(1, 8),
			"DCGM_FI_DEV_GPU_TEMP":               gpuSeries(41, 86),
		},
	}
}

func node(name, cpu, mem string) corev1.Node {
	return corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse(cpu),
				corev1.ResourceMemory: resource.MustParse(mem),
				corev1.ResourcePods:   resource.MustParse("250"),
			},
			NodeInfo: corev1.NodeSystemInfo{KubeletVersion: "v1.29.8+f10c92d"},
		},
	}
}

func nodeUsage(name, cpu, mem string) metricsv1beta1.NodeMetrics {
	return metricsv1beta1.NodeMetrics{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Timestamp:  metav1.NewTime(Now),
		Usage: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(cpu),
			corev1.ResourceMemory: resource.MustParse(mem),
		},
	}
}

func requests(cpu, mem string) corev1.ResourceRequirements {
	return corev1.ResourceRequirements{Requests: corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse(cpu),
		corev1.ResourceMemory: resource.MustParse(mem),
	}}
}

func pod(ns, name, nodeName string, phase corev1.PodPhase, containers ...corev1.Container) corev1.Pod {
	start := metav1.NewTime(Now.Add(-26 * time.Hour))
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec:       corev1.PodSpec{NodeName: nodeName, Containers: containers},
		Status: corev1.PodStatus{
			Phase:     phase,
			QOSClass:  corev1.PodQOSBurstable,
			StartTime: &start,
			Conditions: []corev1.PodCondition{
				{Type: corev1.PodScheduled, Status: corev1.ConditionTrue},
				{Type: corev1.PodReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func running(name string, restarts int32) corev1.ContainerStatus {
	return corev1.ContainerStatus{
		Name: name, Ready: true, RestartCount: restarts,
		State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{StartedAt: metav1.NewTime(Now.Add(-time.Hour))}},
	}
}

func pods() []corev1.Pod {
	prom := pod("openshift-monitoring", "prometheus-k8s-0", Worker0, corev1.PodRunning,
		corev1.Container{Name: "prometheus", Resources: requests("1", "4Gi")})
	prom.Status.ContainerStatuses = []corev1.ContainerStatus{running("prometheus", 0)}

	registry := pod("openshift-image-registry", "image-registry-5d9c7b7f4-xk2lp", Worker0, corev1.PodRunning,
		corev1.Container{Name: "registry", Resources: requests("100m", "256Mi")})
	registry.Status.ContainerStatuses = []corev1.ContainerStatus{running("registry", 0)}

	notebook := pod("ml-team", "notebook-0", Worker0, corev1.PodRunning,
		corev1.Container{Name: "notebook", Resources: requests("500m", "2Gi")})
	notebook.Status.ContainerStatuses = []corev1.ContainerStatus{running("notebook", 2)}

	podA := pod("payments", "pod-a", Worker1, corev1.PodRunning,
		corev1.Container{Name: "api", Resources: requests("2", "8Gi")})
	podA.Spec.InitContainers = []corev1.Container{{Name: "migrate"}}
	podA.Status.InitContainerStatuses = []corev1.ContainerStatus{{
		Name: "migrate", Ready: true,
		State: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{Reason: "Completed", ExitCode: 0}},
	}}
	podA.Status.Conditions[1] = corev1.PodCondition{Type: corev1.PodReady, Status: corev1.ConditionFalse,
		Reason: "ContainersNotReady", Message: "containers with unready status: [api]"}
	podA.Status.ContainerStatuses = []corev1.ContainerStatus{{
		Name: "api", RestartCount: 34,
		State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{
			Reason:  "CrashLoopBackOff",
			Message: "back-off 5m0s restarting failed container=api pod=pod-a_payments",
		}},
		LastTerminationState: corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{Reason: "Error", ExitCode: 2}},
	}}

	podB := pod("payments", "pod-b", Worker1, corev1.PodRunning,
		corev1.Container{Name: "api", Resources: requests("3", "12Gi")},
		corev1.Container{Name: "envoy", Resources: requests("500m", "512Mi")})
	podB.Status.ContainerStatuses = []corev1.ContainerStatus{running("api", 16), running("envoy", 0)}

	trainer := pod("ml-team", "trainer-7f9c4d-2qjzp", GpuNode, corev1.PodRunning,
		corev1.Container{Name: "train", Resources: requests("4", "24Gi")})
	trainer.Status.QOSClass = corev1.PodQOSGuaranteed
	trainer.Status.ContainerStatuses = []corev1.ContainerStatus{running("train", 0)}

	return []corev1.Pod{prom, registry, notebook, podA, podB, trainer}
}

func event(ns, object, typ, reason, msg string, minutesAgo int) corev1.Event {
	ts := metav1.NewTime(Now.Add(-time.Duration(minutesAgo) * time.Minute))
	return corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Namespace: ns, Name: fmt.Sprintf("%s.%d", object, minutesAgo)},
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Namespace: ns, Name: object},
		Type:           typ,
		Reason:         reason,
		Message:        msg,
		LastTimestamp:  ts,
	}
}

func events() []corev1.Event {
	return []corev1.Event{
		event("payments", "pod-a", corev1.EventTypeNormal, "Pulled", `Container image "registry.example.com/payments/api:1.4.2" already present on machine`, 40),
		event("payments", "pod-a", corev1.EventTypeWarning, "Unhealthy", "Readiness probe failed: Get \"http://10.128.2.17:8080/ready\": dial tcp 10.128.2.17:8080: connect: connection refused", 12),
		event("payments", "pod-a", corev1.EventTypeWarning, "BackOff", "Back-off restarting failed container api in pod pod-a_payments(3f1d2c9e-8a7b-4c21-9d0e-5b6a7c8d9e0f)", 2),
		event("payments", "pod-b", corev1.EventTypeWarning, "Unhealthy", "Liveness probe failed: HTTP probe failed with statuscode: 503", 30),
	}
}

func claim(ns, name, volume, size string, phase corev1.PersistentVolumeClaimPhase) corev1.PersistentVolumeClaim {
	sc := "gp3-csi"
	return corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec: corev1.PersistentVolumeClaimSpec{
			VolumeName:       volume,
			StorageClassName: &sc,
			Resources: corev1.VolumeResourceRequirements{Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse(size),
			}},
		},
		Status: corev1.PersistentVolumeClaimStatus{Phase: phase},
	}
}

func summary(nodeName string, used, capacity, imageFs int64, pods []map[string]any) map[string]any {
	return map[string]any{
		"node": map[string]any{
			"nodeName": nodeName,
			"fs":       map[string]any{"usedBytes": used, "capacityBytes": capacity, "availableBytes": capacity - used},
			"runtime":  map[string]any{"imageFs": map[string]any{"usedBytes": imageFs}},
		},
		"pods": pods,
	}
}

func podSummary(ns, name string, ephemeral, rootfs int64, volumes ...map[string]any) map[string]any {
	return map[string]any{
		"podRef":            map[string]any{"namespace": ns, "name": name},
		"containers":        []map[string]any{{"name": "main", "rootfs": map[string]any{"usedBytes": rootfs}}},
		"volume":            volumes,
		"ephemeral-storage": map[string]any{"usedBytes": ephemeral},
	}
}

func volume(name string, used, capacity int64, claimNs, claimName string) map[string]any {
	v := map[string]any{"name": name, "usedBytes": used}
	if capacity > 0 {
		v["capacityBytes"] = capacity
	}
	if claimName != "" {
		v["pvcRef"] = map[string]any{"namespace": claimNs, "name": claimName}
	}
	return v
}

func debugOutput(sections ...string) string {
	names := []string{"df", "images", "containers"}
	var b strings.Builder
	for i, s := range sections {
		b.WriteString("=== section:" + names[i] + "\n")
		b.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func df(device, size, used, avail, pct string) string {
	return fmt.Sprintf("Filesystem      Size  Used Avail Use%% Mounted on\n%s  %s  %s  %s  %s /sysroot\ntmpfs            16G   84K   16G   1%% /tmp\n",
		device, size, used, avail, pct)
}

type image struct {
	ID          string   `json:"id"`
	RepoTags    []string `json:"repoTags"`
	RepoDigests []string `json:"repoDigests"`
	Size        string   `json:"size"`
}

func img(id, tag string, size int64) image {
	return image{ID: id, RepoTags: []string{tag}, Size: fmt.Sprint(size)}
}

func images(ims ...image) string {
	b, _ := json.Marshal(map[string]any{"images": ims})
	return string(b)
}

type container struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
	Image    map[string]string `json:"image"`
	ImageRef string            `json:"imageRef"`
	State    string            `json:"state"`
	Labels   map[string]string `json:"labels"`
}

func ctr(id, name, ns, pod, image, imageRef string) container {
	return container{
		ID:       id,
		Metadata: map[string]string{"name": name},
		Image:    map[string]string{"image": image},
		ImageRef: imageRef,
		State:    "CONTAINER_RUNNING",
		Labels:   map[string]string{"io.kubernetes.pod.namespace": ns, "io.kubernetes.pod.name": pod},
	}
}

func containers(cs ...container) string {
	b, _ := json.Marshal(map[string]any{"containers": cs})
	return string(b)
}

// worker-0 holds 249.42 Gi of images no running container references.
func worker0Images() string {
	return images(
		img("sha256:7a1f", "quay.io/prometheus/prometheus:v2.53.1", 1200*Mi),
		img("sha256:2b3c", "quay.io/openshift/origin-docker-registry:4.16", 420*Mi),
		img("sha256:e901", "quay.io/ml-team/cuda-train:2024-11", 120*Gi),
		img("sha256:e902", "quay.io/ml-team/cuda-train:2024-12", 100*Gi),
		img("sha256:e903", "quay.io/ml-team/datasets-cache:v3", 267812685742-220*Gi),
	)
}

func worker0Containers() string {
	return containers(
		ctr("a1", "prometheus", "openshift-monitoring", "prometheus-k8s-0", "quay.io/prometheus/prometheus:v2.53.1", "sha256:7a1f"),
		ctr("a2", "registry", "openshift-image-registry", "image-registry-5d9c7b7f4-xk2lp", "quay.io/openshift/origin-docker-registry:4.16", "sha256:2b3c"),
	)
}

func gpuSeries(v0, v1 float64) []series {
	return []series{
		{map[string]string{"Hostname": GpuNode, "gpu": "0", "modelName": "NVIDIA A100-SXM4-40GB"}, v0},
		{map[string]string{"Hostname": GpuNode, "gpu": "1", "modelName": "NVIDIA A100-SXM4-40GB"}, v1},
	}
}

const nvidiaSmi = `+-----------------------------------------------------------------------------------------+
| NVIDIA-SMI 550.90.07              Driver Version: 550.90.07      CUDA Version: 12.4     |
|-----------------------------------------+------------------------+----------------------+
| GPU  Name                 Persistence-M | Bus-Id          Disp.A | Volatile Uncorr. ECC |
|=========================================+========================+======================|
|   0  NVIDIA A100-SXM4-40GB          On  |   00000000:00:04.0 Off |                    0 |
| N/A   41C    P0             61W /  400W |     512MiB /  40960MiB |      0%      Default |
+-----------------------------------------+------------------------+----------------------+
`
