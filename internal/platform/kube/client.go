// Package kube implements the container-orchestration collaborator over
// client-go. Services provisioned by the control plane run as pods labelled
// with their service id; this client resolves that label to surface pod
// status, logs and resource usage for diagnostics.
package kube

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// serviceLabel is the label the control plane stamps on every pod backing a
// managed service.
const serviceLabel = "quickspin.io/service-id"

type Client struct {
	clientset kubernetes.Interface
	metrics   metricsv.Interface
	namespace string
}

// New builds a client from config, using the in-cluster service account when
// configured and the kubeconfig file otherwise.
func New(cfg model.KubeConfig) (*Client, error) {
	var (
		rc  *rest.Config
		err error
	)
	if cfg.InCluster {
		rc, err = rest.InClusterConfig()
	} else {
		rc, err = clientcmd.BuildConfigFromFlags("", expandHome(cfg.Kubeconfig))
	}
	if err != nil {
		return nil, fmt.Errorf("load kube config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	metricsClient, err := metricsv.NewForConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("create metrics client: %w", err)
	}

	return &Client{clientset: clientset, metrics: metricsClient, namespace: cfg.Namespace}, nil
}

// NewWithClientset is used by tests to inject fake clientsets.
func NewWithClientset(clientset kubernetes.Interface, metrics metricsv.Interface, namespace string) *Client {
	return &Client{clientset: clientset, metrics: metrics, namespace: namespace}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// findPod resolves the pod backing a service via the service-id label.
func (c *Client) findPod(ctx context.Context, serviceID string) (*corev1.Pod, error) {
	pods, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: serviceLabel + "=" + serviceID,
		Limit:         1,
	})
	if err != nil {
		return nil, errx.WrapCollaborator(err, "container orchestration")
	}
	if len(pods.Items) == 0 {
		return nil, errx.Newf(errx.KindServiceNotFound, "no pod found for service %s", serviceID)
	}
	return &pods.Items[0], nil
}

// GetPodStatus returns the status of the pod backing the service.
func (c *Client) GetPodStatus(ctx context.Context, serviceID string) (*model.PodStatus, error) {
	pod, err := c.findPod(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	status := &model.PodStatus{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
	}
	for _, cond := range pod.Status.Conditions {
		status.Conditions = append(status.Conditions, model.PodCondition{
			Type:   string(cond.Type),
			Status: string(cond.Status),
			Reason: cond.Reason,
		})
	}
	for _, cs := range pod.Status.ContainerStatuses {
		status.Containers = append(status.Containers, model.ContainerStatus{
			Name:         cs.Name,
			Ready:        cs.Ready,
			RestartCount: cs.RestartCount,
			State:        containerState(cs.State),
		})
	}
	return status, nil
}

func containerState(s corev1.ContainerState) string {
	switch {
	case s.Running != nil:
		return "running"
	case s.Waiting != nil:
		return "waiting:" + s.Waiting.Reason
	case s.Terminated != nil:
		return "terminated:" + s.Terminated.Reason
	default:
		return ""
	}
}

// GetLogs returns up to tailLines recent log lines from the service's pod.
func (c *Client) GetLogs(ctx context.Context, serviceID string, tailLines int64) ([]string, error) {
	pod, err := c.findPod(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	req := c.clientset.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
		TailLines: &tailLines,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return nil, errx.WrapCollaborator(err, "container orchestration")
	}
	defer stream.Close()

	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, errx.WrapCollaborator(err, "container orchestration")
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

// GetResourceUsage returns live CPU (millicores) and memory (bytes) usage for
// the service's pod from the metrics API. Requires metrics-server.
func (c *Client) GetResourceUsage(ctx context.Context, serviceID string) (cpuMilli, memoryBytes int64, err error) {
	pod, err := c.findPod(ctx, serviceID)
	if err != nil {
		return 0, 0, err
	}

	pm, err := c.metrics.MetricsV1beta1().PodMetricses(pod.Namespace).Get(ctx, pod.Name, metav1.GetOptions{})
	if err != nil {
		return 0, 0, errx.WrapCollaborator(err, "metrics server")
	}
	for _, container := range pm.Containers {
		cpuMilli += container.Usage.Cpu().MilliValue()
		memoryBytes += container.Usage.Memory().Value()
	}
	return cpuMilli, memoryBytes, nil
}

// RestartPod deletes the service's pod so its controller recreates it. This
// is a mutating operation: callers must hold an explicit user confirmation
// before invoking it, and it is never retried automatically.
func (c *Client) RestartPod(ctx context.Context, serviceID string) error {
	pod, err := c.findPod(ctx, serviceID)
	if err != nil {
		return err
	}
	if err := c.clientset.CoreV1().Pods(pod.Namespace).Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil {
		return errx.WrapCollaborator(err, "container orchestration")
	}
	logx.Info().Str("pod", pod.Name).Str("service_id", serviceID).Msg("pod restart requested")
	return nil
}
