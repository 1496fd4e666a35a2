package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"ringkeep/internal/ring"
)

// DockerBootstrap discovers peers running as sibling containers on a
// shared Docker network, for the integration test harness (§11.6). It
// matches containers by a substring of their name (the suffix field)
// rather than inspecting IPs, so peers
// are addressed by their container DNS name on the given network.
type DockerBootstrap struct {
	cli     *client.Client
	suffix  string
	port    int
	network string
}

// NewDockerBootstrap builds a DockerBootstrap using a Docker client
// sourced from the environment (DOCKER_HOST and friends).
func NewDockerBootstrap(suffix string, port int, network string) (*DockerBootstrap, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create docker client: %w", err)
	}
	return &DockerBootstrap{
		cli:     cli,
		suffix:  strings.TrimSpace(suffix),
		port:    port,
		network: strings.TrimSpace(network),
	}, nil
}

// Discover lists running containers whose name contains the configured
// suffix and are attached to the configured network, returning one
// "<name>:<port>" address per match.
func (d *DockerBootstrap) Discover(ctx context.Context) ([]string, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("network", d.network)),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: list containers: %w", err)
	}

	var addrs []string
	for _, c := range containers {
		for _, name := range c.Names {
			name = strings.TrimPrefix(name, "/")
			if !strings.Contains(name, d.suffix) {
				continue
			}
			addrs = append(addrs, fmt.Sprintf("%s:%d", name, d.port))
			break
		}
	}
	return addrs, nil
}

// Register is a no-op: membership in the Docker network is itself the
// discovery mechanism.
func (d *DockerBootstrap) Register(ctx context.Context, id ring.NodeId, udpAddr string) error {
	return nil
}

// Deregister is a no-op.
func (d *DockerBootstrap) Deregister(ctx context.Context, id ring.NodeId) error {
	return nil
}
