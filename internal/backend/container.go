package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"net/netip"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// Container is a llama-server running in Docker with its port published on
// localhost. It satisfies Instance like Server does, so the protocol runner
// does not care how the backend was launched.
type Container struct {
	Port int
	id   string
	cli  *client.Client
}

type ContainerOpts struct {
	Image     string
	ModelPath string
	Ctx       int
	Threads   int
}

const containerPort = "8080/tcp"

func StartContainer(ctx context.Context, opts *ContainerOpts) (*Container, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	hostPort, err := FindFreePort()
	if err != nil {
		cli.Close()
		return nil, err
	}

	modelAbs, err := filepath.Abs(opts.ModelPath)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("resolving model path: %w", err)
	}
	modelInContainer := "/models/" + filepath.Base(modelAbs)

	containerCfg := &container.Config{
		Image: opts.Image,
		Cmd: []string{
			"-m", modelInContainer,
			"--host", "0.0.0.0",
			"--port", "8080",
			"--ctx-size", fmt.Sprintf("%d", opts.Ctx),
			"--threads", fmt.Sprintf("%d", opts.Threads),
		},
		ExposedPorts: network.PortSet{network.MustParsePort(containerPort): struct{}{}},
		Labels:       map[string]string{"joules-per-bit": "true"},
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Init: &initTrue,
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   modelAbs,
				Target:   modelInContainer,
				ReadOnly: true,
			},
		},
		PortBindings: network.PortMap{
			network.MustParsePort(containerPort): []network.PortBinding{
				{HostIP: netip.MustParseAddr("127.0.0.1"), HostPort: fmt.Sprintf("%d", hostPort)},
			},
		},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("creating container: %w", err)
	}
	c := &Container{Port: hostPort, id: createResp.ID, cli: cli}

	if _, err := cli.ContainerStart(ctx, c.id, client.ContainerStartOptions{}); err != nil {
		c.remove()
		return nil, fmt.Errorf("starting container: %w", err)
	}

	if err := waitForPort(hostPort, startupTimeout); err != nil {
		c.remove()
		return nil, fmt.Errorf("llama-server container did not start: %w", err)
	}
	return c, nil
}

func (c *Container) URL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

func (c *Container) Stop() error {
	c.remove()
	return nil
}

// remove is best-effort: a container that is already gone is fine.
func (c *Container) remove() {
	c.cli.ContainerRemove(context.Background(), c.id, client.ContainerRemoveOptions{Force: true})
	c.cli.Close()
}
