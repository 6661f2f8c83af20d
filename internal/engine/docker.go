package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// Containers managed by dockhand carry these labels so status and list never
// guess from names.
const (
	LabelProject = "dockhand.project"
	LabelService = "dockhand.service"
)

const defaultCallTimeout = 30 * time.Second

var _ Engine = (*Docker)(nil)

// Docker implements Engine using the Docker Engine API.
type Docker struct {
	cli     client.APIClient
	clock   Clock
	timeout time.Duration
}

// NewDocker creates a Docker engine with a client from the environment.
func NewDocker() (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return NewDockerFromClient(cli), nil
}

// NewDockerFromClient wraps an existing Docker API client.
func NewDockerFromClient(cli client.APIClient) *Docker {
	return &Docker{cli: cli, clock: RealClock{}, timeout: defaultCallTimeout}
}

// WithTimeout overrides the per-call deadline.
func (d *Docker) WithTimeout(timeout time.Duration) *Docker {
	d.timeout = timeout
	return d
}

// call runs one engine operation under the per-call deadline, retrying
// transient connection failures before surfacing ErrUnavailable.
func (d *Docker) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := retryTransient(callCtx, func() error { return fn(callCtx) }, client.IsErrConnectionFailed)
	return mapDeadline(callCtx, ctx, err)
}

func (d *Docker) Ping(ctx context.Context) error {
	return d.call(ctx, func(ctx context.Context) error {
		_, err := d.cli.Ping(ctx)
		if err != nil {
			return fmt.Errorf("ping engine: %w", err)
		}
		return nil
	})
}

func (d *Docker) ContainerCreate(ctx context.Context, cfg CreateConfig) error {
	return d.call(ctx, func(ctx context.Context) error {
		cc, hc, err := dockerConfigs(cfg)
		if err != nil {
			return err
		}

		_, err = d.cli.ContainerCreate(ctx, cc, hc, nil, nil, cfg.Name)
		if err == nil {
			return nil
		}
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("create container %q: %w", cfg.Name, err)
		}

		// Image missing locally: pull and retry once.
		if err := d.pull(ctx, cfg.Image); err != nil {
			return err
		}
		if _, err := d.cli.ContainerCreate(ctx, cc, hc, nil, nil, cfg.Name); err != nil {
			return fmt.Errorf("create container %q after pull: %w", cfg.Name, err)
		}
		return nil
	})
}

func (d *Docker) ContainerStart(ctx context.Context, name string) error {
	return d.call(ctx, func(ctx context.Context) error {
		if err := d.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
			return fmt.Errorf("start container %q: %w", name, err)
		}
		return nil
	})
}

// ContainerStop is idempotent: stopping an absent container succeeds.
func (d *Docker) ContainerStop(ctx context.Context, name string) error {
	return d.call(ctx, func(ctx context.Context) error {
		if err := d.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("stop container %q: %w", name, err)
		}
		return nil
	})
}

// ContainerRemove is idempotent: removing an absent container succeeds.
func (d *Docker) ContainerRemove(ctx context.Context, name string, force bool) error {
	return d.call(ctx, func(ctx context.Context) error {
		if err := d.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: force}); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove container %q: %w", name, err)
		}
		return nil
	})
}

func (d *Docker) ImagePull(ctx context.Context, img string) error {
	return d.call(ctx, func(ctx context.Context) error {
		return d.pull(ctx, img)
	})
}

func (d *Docker) pull(ctx context.Context, img string) error {
	resp, err := d.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", img, err)
	}
	defer resp.Close()
	if _, err := io.Copy(io.Discard, resp); err != nil {
		return fmt.Errorf("pull image %q: read response: %w", img, err)
	}
	return nil
}

func (d *Docker) List(ctx context.Context, projectName string) ([]ContainerState, error) {
	var out []ContainerState
	err := d.call(ctx, func(ctx context.Context) error {
		summaries, err := d.cli.ContainerList(ctx, container.ListOptions{
			All:     true,
			Filters: filters.NewArgs(filters.Arg("label", LabelProject+"="+projectName)),
		})
		if err != nil {
			return fmt.Errorf("list containers for %q: %w", projectName, err)
		}

		now := d.clock.Now()
		out = out[:0]
		for _, summary := range summaries {
			state := ContainerState{
				ID:         summary.ID,
				Service:    summary.Labels[LabelService],
				Status:     parseDockerState(summary.State),
				ObservedAt: now,
			}
			if state.Status == StatusExited {
				if info, err := d.cli.ContainerInspect(ctx, summary.ID); err == nil && info.State != nil {
					state.ExitCode = info.State.ExitCode
				}
			}
			out = append(out, state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Docker) Logs(ctx context.Context, projectName, service string, follow bool) (<-chan LogLine, error) {
	name := ContainerName(projectName, service)
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	}

	// No per-call deadline here: a followed stream is expected to outlive
	// any bounded timeout. Cancellation comes from the caller's ctx.
	rc, err := d.cli.ContainerLogs(ctx, name, opts)
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("container logs %q: %w", name, err)
	}

	lines := make(chan LogLine, 64)
	go func() {
		defer close(lines)
		defer rc.Close()
		streamLogLines(ctx, rc, lines)
	}()
	return lines, nil
}

func (d *Docker) Close() error {
	return d.cli.Close()
}

// streamLogLines demultiplexes the docker log stream (8-byte frame headers)
// and emits complete lines. Returns when the stream ends or ctx is done.
func streamLogLines(ctx context.Context, r io.Reader, lines chan<- LogLine) {
	br := bufio.NewReader(r)
	var pending []byte

	flush := func(chunk []byte) bool {
		pending = append(pending, chunk...)
		for {
			idx := -1
			for i, b := range pending {
				if b == '\n' {
					idx = i
					break
				}
			}
			if idx < 0 {
				return true
			}
			line := strings.TrimRight(string(pending[:idx]), "\r")
			pending = pending[idx+1:]
			select {
			case lines <- LogLine{Text: line}:
			case <-ctx.Done():
				return false
			}
		}
	}

	header := make([]byte, 8)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := io.ReadFull(br, header); err != nil {
			if len(pending) > 0 {
				flush([]byte("\n"))
			}
			if err != io.EOF && err != io.ErrUnexpectedEOF && ctx.Err() == nil {
				select {
				case lines <- LogLine{Err: err}:
				default:
				}
			}
			return
		}
		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size == 0 {
			continue
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			flush(payload)
			return
		}
		if !flush(payload) {
			return
		}
	}
}

func parseDockerState(state string) Status {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "running", "up":
		return StatusRunning
	case "exited", "dead":
		return StatusExited
	case "restarting":
		return StatusRestarting
	case "created", "paused":
		return StatusCreated
	default:
		return StatusStopped
	}
}

// dockerConfigs translates a CreateConfig into docker API structures.
func dockerConfigs(cfg CreateConfig) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range cfg.Ports {
		port, err := nat.NewPort(protocolOrTCP(p.Protocol), fmt.Sprintf("%d", p.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("port %d/%s: %w", p.ContainerPort, p.Protocol, err)
		}
		exposed[port] = struct{}{}
		binding := nat.PortBinding{}
		if p.HostPort != 0 {
			binding.HostPort = fmt.Sprintf("%d", p.HostPort)
		}
		bindings[port] = append(bindings[port], binding)
	}

	mounts := make([]mount.Mount, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		mountType := mount.TypeVolume
		if strings.ContainsAny(m.Source, "/.") {
			mountType = mount.TypeBind
		}
		mounts = append(mounts, mount.Mount{
			Type:     mountType,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	labels := map[string]string{
		LabelProject: cfg.Project,
		LabelService: cfg.Service,
	}

	cc := &container.Config{
		Image:        cfg.Image,
		Env:          cfg.Env,
		Labels:       labels,
		ExposedPorts: exposed,
	}
	hc := &container.HostConfig{
		PortBindings: bindings,
		Mounts:       mounts,
		ExtraHosts:   cfg.ExtraHosts,
		RestartPolicy: container.RestartPolicy{
			Name: restartPolicyMode(cfg.RestartPolicy),
		},
	}
	return cc, hc, nil
}

func protocolOrTCP(proto string) string {
	proto = strings.ToLower(strings.TrimSpace(proto))
	if proto == "" {
		return "tcp"
	}
	return proto
}

func restartPolicyMode(policy string) container.RestartPolicyMode {
	switch strings.TrimSpace(policy) {
	case "", string(container.RestartPolicyDisabled):
		return container.RestartPolicyDisabled
	case string(container.RestartPolicyAlways):
		return container.RestartPolicyAlways
	case string(container.RestartPolicyOnFailure):
		return container.RestartPolicyOnFailure
	default:
		return container.RestartPolicyUnlessStopped
	}
}
