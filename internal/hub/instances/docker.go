package instances

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
)

const (
	labelManagedBy = "hub.managed-by"
	labelUserID    = "hub.user-id"
	labelToolName  = "hub.tool-name"
	managedByValue = "hub"

	stopTimeout = 10 * time.Second
)

// DockerRuntime implements Runtime by running each tool instance as a
// sandboxed container, one per (user, tool) pair.
type DockerRuntime struct {
	client  *dockerclient.Client
	network string
	image   func(toolName string) string
}

// NewDockerRuntime creates a runtime using the DOCKER_HOST env var or the
// default socket path. imageFor resolves a tool name to its container
// image reference.
func NewDockerRuntime(networkName string, imageFor func(toolName string) string) (*DockerRuntime, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("instances: docker client: %w", err)
	}
	return &DockerRuntime{client: cli, network: networkName, image: imageFor}, nil
}

// EnsureNetwork creates the Hub's bridge network if it doesn't exist.
func (d *DockerRuntime) EnsureNetwork(ctx context.Context) error {
	nets, err := d.client.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", d.network)),
	})
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	for _, n := range nets {
		if n.Name == d.network {
			return nil
		}
	}
	_, err = d.client.NetworkCreate(ctx, d.network, network.CreateOptions{
		Driver:     "bridge",
		Attachable: true,
		Labels:     map[string]string{labelManagedBy: managedByValue},
	})
	if err != nil {
		return fmt.Errorf("create network %q: %w", d.network, err)
	}
	return nil
}

func (d *DockerRuntime) containerName(userID, toolName string) string {
	return fmt.Sprintf("hub-%s-%s-%s", managedByValue, userID, toolName)
}

// Start creates and starts the tool's container, injecting config as
// environment variables. Existing containers for the same (user, tool)
// are removed first so Start is safe to call on a stale instance.
func (d *DockerRuntime) Start(ctx context.Context, userID, toolName string, config map[string]any) error {
	image := d.image(toolName)
	if image == "" {
		return fmt.Errorf("instances: no container image configured for tool %q", toolName)
	}

	name := d.containerName(userID, toolName)
	_ = d.removeIfExists(ctx, name)

	env := make([]string, 0, len(config)+2)
	env = append(env, fmt.Sprintf("HUB_USER_ID=%s", userID), fmt.Sprintf("HUB_TOOL_NAME=%s", toolName))
	for k, v := range config {
		env = append(env, fmt.Sprintf("HUB_TOOL_CONFIG_%s=%v", strings.ToUpper(k), v))
	}

	containerCfg := &container.Config{
		Image: image,
		Env:   env,
		Labels: map[string]string{
			labelManagedBy: managedByValue,
			labelUserID:    userID,
			labelToolName:  toolName,
		},
	}
	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}
	networkCfg := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{d.network: {}},
	}

	resp, err := d.client.ContainerCreate(ctx, containerCfg, hostCfg, networkCfg, nil, name)
	if err != nil {
		return fmt.Errorf("instances: create container: %w", err)
	}
	if err := d.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = d.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("instances: start container: %w", err)
	}
	return nil
}

// Stop stops and removes the tool's container.
func (d *DockerRuntime) Stop(ctx context.Context, userID, toolName string) error {
	name := d.containerName(userID, toolName)
	return d.removeIfExists(ctx, name)
}

func (d *DockerRuntime) removeIfExists(ctx context.Context, name string) error {
	timeout := int(stopTimeout.Seconds())
	_ = d.client.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout})
	if err := d.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		if dockerclient.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("instances: remove container %q: %w", name, err)
	}
	return nil
}
