// Package dockeradapter is the Docker adapter (§4.B): a narrow, typed
// surface over the Docker Engine. Every exported method maps to one
// engine operation (Exec makes the create, attach and inspect calls of a
// single exec) and classifies the result into the Anvyl error
// taxonomy at this boundary — callers above this package never see a raw
// Docker SDK or errdefs type (§9 re-architecture note).
package dockeradapter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// engineClient is the subset of *client.Client this adapter calls. Tests
// substitute a fake implementation so error-taxonomy classification can
// be exercised without a live Docker daemon.
type engineClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
	ContainerStatsOneShot(ctx context.Context, containerID string) (types.ContainerStats, error)
	Close() error
}

// Adapter wraps the Docker SDK client used by the Infrastructure Service.
// It is safe for concurrent use; the SDK client manages its own
// connection pooling.
type Adapter struct {
	cli engineClient
}

// New connects to the Docker daemon using the standard DOCKER_HOST/
// DOCKER_TLS_VERIFY/DOCKER_CERT_PATH environment, negotiating the API
// version with the daemon, and pings it once to fail fast if the engine
// is unreachable.
func New(ctx context.Context) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.EngineUnavailable, "create docker client", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		_ = cli.Close()
		return nil, anvylerrors.Wrap(anvylerrors.EngineUnavailable, "docker daemon unreachable", err)
	}

	return &Adapter{cli: cli}, nil
}

// newWithClient is used by tests to inject a fake engineClient.
func newWithClient(cli engineClient) *Adapter {
	return &Adapter{cli: cli}
}

// Close releases the underlying Docker SDK client.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

// Ping reports whether the engine is currently reachable, for /health.
func (a *Adapter) Ping(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := a.cli.Ping(pingCtx)
	return err == nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errdefs.IsNotFound(err):
		return anvylerrors.Wrap(anvylerrors.NotFound, op, err)
	case errdefs.IsInvalidParameter(err):
		return anvylerrors.Wrap(anvylerrors.Validation, op, err)
	case errdefs.IsConflict(err):
		return anvylerrors.Wrap(anvylerrors.Conflict, op, err)
	case errdefs.IsUnavailable(err), errdefs.IsSystem(err), errdefs.IsCancelled(err), errdefs.IsDeadline(err):
		return anvylerrors.Wrap(anvylerrors.EngineUnavailable, op, err)
	default:
		return anvylerrors.Wrap(anvylerrors.EngineUnavailable, op, err)
	}
}

// ContainerSummary is the subset of the engine's list/inspect response
// the Infrastructure Service's reconciler and handlers need.
type ContainerSummary struct {
	DockerID   string
	Names      []string
	Image      string
	State      string
	Status     string
	Labels     map[string]string
	CreatedAt  int64
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
}

// ListContainers lists engine containers. all=true includes stopped/
// exited containers, per §4.B.
func (a *Adapter) ListContainers(ctx context.Context, all bool) ([]ContainerSummary, error) {
	list, err := a.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, classify("list containers", err)
	}
	out := make([]ContainerSummary, 0, len(list))
	for _, c := range list {
		out = append(out, ContainerSummary{
			DockerID:  c.ID,
			Names:     c.Names,
			Image:     c.Image,
			State:     c.State,
			Status:    c.Status,
			Labels:    c.Labels,
			CreatedAt: c.Created,
		})
	}
	return out, nil
}

// Inspect returns the full engine record for a container.
func (a *Adapter) Inspect(ctx context.Context, dockerID string) (*ContainerSummary, error) {
	info, err := a.cli.ContainerInspect(ctx, dockerID)
	if err != nil {
		return nil, classify("inspect container", err)
	}
	sum := &ContainerSummary{
		DockerID: info.ID,
		Image:    info.Config.Image,
	}
	if info.State != nil {
		sum.State = info.State.Status
		sum.Status = info.State.Status
		sum.ExitCode = info.State.ExitCode
		if t, err := time.Parse(time.RFC3339Nano, info.State.StartedAt); err == nil {
			sum.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, info.State.FinishedAt); err == nil {
			sum.FinishedAt = t
		}
	}
	if info.Config != nil {
		sum.Labels = info.Config.Labels
	}
	return sum, nil
}

// CreateSpec describes a container to create.
type CreateSpec struct {
	Name      string
	Image     string
	Labels    map[string]string
	Env       []string
	Cmd       []string
	PortBinds []string          // "hostPort:containerPort[/proto]" entries
	Volumes   map[string]string // hostPath -> containerPath
}

// CreateContainer creates (but does not start) an engine container and
// returns its docker_id.
func (a *Adapter) CreateContainer(ctx context.Context, spec CreateSpec) (string, error) {
	if spec.Image == "" {
		return "", anvylerrors.New(anvylerrors.Validation, "image is required")
	}

	exposedPorts, portBindings, err := buildPortBindings(spec.PortBinds)
	if err != nil {
		return "", err
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Cmd:          spec.Cmd,
		Labels:       spec.Labels,
		ExposedPorts: exposedPorts,
	}
	hostCfg := &container.HostConfig{
		PortBindings: portBindings,
	}
	for hostPath, containerPath := range spec.Volumes {
		hostCfg.Binds = append(hostCfg.Binds, fmt.Sprintf("%s:%s", hostPath, containerPath))
	}

	resp, err := a.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", anvylerrors.Wrap(anvylerrors.Validation, "image not found, pull required", err)
		}
		return "", classify("create container", err)
	}
	return resp.ID, nil
}

// buildPortBindings turns "hostPort:containerPort[/proto]" entries into
// the nat.PortSet/nat.PortMap pair the Docker SDK expects on
// container.Config.ExposedPorts and container.HostConfig.PortBindings.
// Binding the loopback-only "127.0.0.1" host IP here would break the
// common case of reaching a published port from another machine, so the
// host IP is left empty (all interfaces), matching `docker run -p`.
func buildPortBindings(specs []string) (nat.PortSet, nat.PortMap, error) {
	if len(specs) == 0 {
		return nil, nil, nil
	}

	exposed := make(nat.PortSet, len(specs))
	bindings := make(nat.PortMap, len(specs))
	for _, spec := range specs {
		hostPort, containerPort, found := strings.Cut(spec, ":")
		if !found || hostPort == "" || containerPort == "" {
			return nil, nil, anvylerrors.New(anvylerrors.Validation, fmt.Sprintf("malformed port mapping %q, expected hostPort:containerPort", spec))
		}

		proto := "tcp"
		if cp, p, ok := strings.Cut(containerPort, "/"); ok {
			containerPort, proto = cp, p
		}

		port, err := nat.NewPort(proto, containerPort)
		if err != nil {
			return nil, nil, anvylerrors.Wrap(anvylerrors.Validation, fmt.Sprintf("malformed port mapping %q", spec), err)
		}

		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{HostIP: "", HostPort: hostPort})
	}
	return exposed, bindings, nil
}

// Start starts a created container.
func (a *Adapter) Start(ctx context.Context, dockerID string) error {
	err := a.cli.ContainerStart(ctx, dockerID, container.StartOptions{})
	return classify("start container", err)
}

// Stop sends SIGTERM and waits up to timeoutSeconds before SIGKILL.
func (a *Adapter) Stop(ctx context.Context, dockerID string, timeoutSeconds int) error {
	timeout := timeoutSeconds
	err := a.cli.ContainerStop(ctx, dockerID, container.StopOptions{Timeout: &timeout})
	return classify("stop container", err)
}

// Remove removes a container from the engine.
func (a *Adapter) Remove(ctx context.Context, dockerID string, force bool) error {
	err := a.cli.ContainerRemove(ctx, dockerID, container.RemoveOptions{Force: force})
	return classify("remove container", err)
}

// Logs returns a reader over the container's combined stdout/stderr. The
// caller must Close it. When follow is false the reader reaches EOF once
// the last available line has been read.
func (a *Adapter) Logs(ctx context.Context, dockerID string, tail int, follow bool) (io.ReadCloser, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	}
	if tail > 0 {
		opts.Tail = fmt.Sprintf("%d", tail)
	}
	rc, err := a.cli.ContainerLogs(ctx, dockerID, opts)
	if err != nil {
		return nil, classify("container logs", err)
	}
	return rc, nil
}

// ExecResult is the outcome of a one-shot exec.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Exec runs argv inside the container and waits for it to finish. In TTY
// mode stdout and stderr are merged, matching the engine's own behavior.
func (a *Adapter) Exec(ctx context.Context, dockerID string, argv []string, tty bool) (*ExecResult, error) {
	created, err := a.cli.ContainerExecCreate(ctx, dockerID, types.ExecConfig{
		Cmd:          argv,
		Tty:          tty,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, classify("exec create", err)
	}

	attach, err := a.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{Tty: tty})
	if err != nil {
		return nil, classify("exec attach", err)
	}
	defer attach.Close()

	stdout, stderr, err := demuxExecOutput(attach.Reader, tty)
	if err != nil {
		return nil, anvylerrors.Wrap(anvylerrors.Internal, "read exec output", err)
	}

	inspect, err := a.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, classify("exec inspect", err)
	}

	return &ExecResult{ExitCode: inspect.ExitCode, Stdout: stdout, Stderr: stderr}, nil
}

// Stats takes a single point-in-time CPU/memory sample.
func (a *Adapter) Stats(ctx context.Context, dockerID string) (*ContainerStatSample, error) {
	resp, err := a.cli.ContainerStatsOneShot(ctx, dockerID)
	if err != nil {
		return nil, classify("container stats", err)
	}
	defer resp.Body.Close()
	return decodeStats(resp.Body)
}
