package dockeradapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

// fakeEngine implements engineClient for tests that never touch a real
// Docker daemon.
type fakeEngine struct {
	inspectErr error
	startErr   error

	createdCfg     *container.Config
	createdHostCfg *container.HostConfig
}

func (f *fakeEngine) Ping(ctx context.Context) (types.Ping, error) { return types.Ping{}, nil }

func (f *fakeEngine) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	return nil, nil
}

func (f *fakeEngine) ContainerInspect(ctx context.Context, id string) (types.ContainerJSON, error) {
	if f.inspectErr != nil {
		return types.ContainerJSON{}, f.inspectErr
	}
	return types.ContainerJSON{}, nil
}

func (f *fakeEngine) ContainerCreate(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, platform *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.createdCfg = cfg
	f.createdHostCfg = hostCfg
	return container.CreateResponse{ID: "deadbeef"}, nil
}

func (f *fakeEngine) ContainerStart(ctx context.Context, id string, options container.StartOptions) error {
	return f.startErr
}

func (f *fakeEngine) ContainerStop(ctx context.Context, id string, options container.StopOptions) error {
	return nil
}

func (f *fakeEngine) ContainerRemove(ctx context.Context, id string, options container.RemoveOptions) error {
	return nil
}

func (f *fakeEngine) ContainerLogs(ctx context.Context, id string, options container.LogsOptions) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeEngine) ContainerExecCreate(ctx context.Context, id string, cfg types.ExecConfig) (types.IDResponse, error) {
	return types.IDResponse{ID: "exec1"}, nil
}

func (f *fakeEngine) ContainerExecAttach(ctx context.Context, execID string, cfg types.ExecStartCheck) (types.HijackedResponse, error) {
	return types.HijackedResponse{}, errors.New("not wired in this fake")
}

func (f *fakeEngine) ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error) {
	return types.ContainerExecInspect{}, nil
}

func (f *fakeEngine) ContainerStatsOneShot(ctx context.Context, id string) (types.ContainerStats, error) {
	return types.ContainerStats{}, nil
}

func (f *fakeEngine) Close() error { return nil }

func TestInspectClassifiesNotFound(t *testing.T) {
	a := newWithClient(&fakeEngine{inspectErr: errdefs.NotFound(errors.New("no such container"))})

	_, err := a.Inspect(context.Background(), "missing")
	if anvylerrors.KindOf(err) != anvylerrors.NotFound {
		t.Fatalf("Inspect classified %v as %s, want NotFound", err, anvylerrors.KindOf(err))
	}
}

func TestStartClassifiesConflict(t *testing.T) {
	a := newWithClient(&fakeEngine{startErr: errdefs.Conflict(errors.New("already started"))})

	err := a.Start(context.Background(), "abc")
	if anvylerrors.KindOf(err) != anvylerrors.Conflict {
		t.Fatalf("Start classified %v as %s, want Conflict", err, anvylerrors.KindOf(err))
	}
}

func TestCreateContainerRejectsMissingImage(t *testing.T) {
	a := newWithClient(&fakeEngine{})

	_, err := a.CreateContainer(context.Background(), CreateSpec{Name: "t1"})
	if anvylerrors.KindOf(err) != anvylerrors.Validation {
		t.Fatalf("CreateContainer with no image = %v, want Validation", err)
	}
}

func TestCreateContainerReturnsDockerID(t *testing.T) {
	a := newWithClient(&fakeEngine{})

	id, err := a.CreateContainer(context.Background(), CreateSpec{Name: "t1", Image: "nginx:alpine"})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if id != "deadbeef" {
		t.Fatalf("CreateContainer id = %q, want deadbeef", id)
	}
}

// TestCreateContainerSetsPortBindings guards the S1 scenario's
// ports:["8080:80"] create request: the published port must reach
// container.Config.ExposedPorts and container.HostConfig.PortBindings,
// not be silently dropped.
func TestCreateContainerSetsPortBindings(t *testing.T) {
	fake := &fakeEngine{}
	a := newWithClient(fake)

	_, err := a.CreateContainer(context.Background(), CreateSpec{
		Name:      "t1",
		Image:     "nginx:alpine",
		PortBinds: []string{"8080:80"},
	})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	if _, ok := fake.createdCfg.ExposedPorts["80/tcp"]; !ok {
		t.Fatalf("ExposedPorts = %v, want 80/tcp present", fake.createdCfg.ExposedPorts)
	}
	bindings := fake.createdHostCfg.PortBindings["80/tcp"]
	if len(bindings) != 1 || bindings[0].HostPort != "8080" {
		t.Fatalf("PortBindings[80/tcp] = %v, want host port 8080", bindings)
	}
}

func TestCreateContainerRejectsMalformedPortSpec(t *testing.T) {
	a := newWithClient(&fakeEngine{})

	_, err := a.CreateContainer(context.Background(), CreateSpec{
		Name:      "t1",
		Image:     "nginx:alpine",
		PortBinds: []string{"not-a-port-spec"},
	})
	if anvylerrors.KindOf(err) != anvylerrors.Validation {
		t.Fatalf("CreateContainer with malformed port spec = %v, want Validation", err)
	}
}
