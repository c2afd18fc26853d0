// Package k8s is the Scheduler Client (spec C1): a typed capability
// surface over the cluster API. Methods take and return plain Go
// values or k8s.io/api object types, with failures classified into
// the error kinds in errors.go; NewFromClients accepts fake clientsets
// so the rest of the control plane can be tested without a cluster.
//
// Bootstrap follows the teacher's pkg/kubernetes/configuration.go:
// try in-cluster config first, fall back to the default kubeconfig
// resolution chain.
package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/drycc/controller/pkg/version"
)

// Client is the concrete Scheduler Client.
type Client struct {
	cfg       *rest.Config
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	discovery discovery.DiscoveryInterface
	metrics   metricsclientset.Interface
}

// New builds a Client, trying in-cluster config first and falling
// back to the kubeconfig resolution chain (KUBECONFIG env, then
// ~/.kube/config), exactly as the teacher's ConfigurationView does.
func New() (*Client, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		cfg, err = resolveConfig().ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("resolve kube config: %w", err)
		}
	}
	cfg.UserAgent = version.BinaryName + "/" + version.Version

	return NewForConfig(cfg)
}

// NewForConfig builds a Client from an explicit rest.Config, mainly
// for tests that point at an envtest/fake API server.
func NewForConfig(cfg *rest.Config) (*Client, error) {
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build typed clientset: %w", err)
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build dynamic client: %w", err)
	}
	disc, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build discovery client: %w", err)
	}
	metrics, err := metricsclientset.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build metrics client: %w", err)
	}
	return &Client{
		cfg:       cfg,
		clientset: clientset,
		dynamic:   dyn,
		discovery: disc,
		metrics:   metrics,
	}, nil
}

// NewFromClients wires a Client from already-constructed client-go
// interfaces, letting tests pass fake.NewSimpleClientset() etc.
// without touching a real or envtest cluster.
func NewFromClients(clientset kubernetes.Interface, dyn dynamic.Interface, disc discovery.DiscoveryInterface, metrics metricsclientset.Interface) *Client {
	return &Client{clientset: clientset, dynamic: dyn, discovery: disc, metrics: metrics}
}

func resolveConfig() clientcmd.ClientConfig {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
}

// Ping is used by the health readiness probe: a cheap discovery call
// that fails fast if the API server is unreachable.
func (c *Client) Ping() error {
	_, err := c.discovery.ServerVersion()
	if err != nil {
		return fmt.Errorf("cluster unreachable: %w", err)
	}
	return nil
}

// CheckMetricsAvailable probes the metrics API, used as an autoscale
// pre-check so a cluster without metrics-server fails fast instead of
// leaving a perpetually unready HPA behind.
func (c *Client) CheckMetricsAvailable(ctx context.Context) error {
	_, err := c.metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return classify(err)
	}
	return nil
}
