package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLocalHostUniqueness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	local, err := s.AddHost(ctx, NewHostFields{Name: "local", IP: "127.0.0.1", IsLocal: true})
	if err != nil {
		t.Fatalf("AddHost local: %v", err)
	}

	got, err := s.GetLocalHost(ctx)
	if err != nil {
		t.Fatalf("GetLocalHost: %v", err)
	}
	if got.ID != local.ID {
		t.Fatalf("GetLocalHost returned %s, want %s", got.ID, local.ID)
	}

	if _, err := s.AddHost(ctx, NewHostFields{Name: "remote", IP: "10.0.0.2"}); err != nil {
		t.Fatalf("AddHost remote: %v", err)
	}

	hosts, err := s.ListHosts(ctx)
	if err != nil {
		t.Fatalf("ListHosts: %v", err)
	}
	localCount := 0
	for _, h := range hosts {
		if h.IsLocal {
			localCount++
		}
	}
	if localCount != 1 {
		t.Fatalf("expected exactly one local host, got %d", localCount)
	}
}

func TestLocalHostNotDeletable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	local, err := s.AddHost(ctx, NewHostFields{Name: "local", IP: "127.0.0.1", IsLocal: true})
	if err != nil {
		t.Fatalf("AddHost: %v", err)
	}

	err = s.RemoveHost(ctx, local.ID)
	if anvylerrors.KindOf(err) != anvylerrors.Invariant {
		t.Fatalf("RemoveHost(local) = %v, want Invariant", err)
	}

	got, err := s.GetHost(ctx, local.ID)
	if err != nil {
		t.Fatalf("GetHost after failed remove: %v", err)
	}
	if got.ID != local.ID {
		t.Fatalf("local host missing after failed remove")
	}
}

func TestContainerNameUniquePerHost(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	host, err := s.AddHost(ctx, NewHostFields{Name: "local", IP: "127.0.0.1", IsLocal: true})
	if err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	other, err := s.AddHost(ctx, NewHostFields{Name: "other", IP: "10.0.0.2"})
	if err != nil {
		t.Fatalf("AddHost other: %v", err)
	}

	if _, err := s.AddContainer(ctx, NewContainerFields{Name: "web", Image: "nginx", HostID: host.ID}); err != nil {
		t.Fatalf("AddContainer: %v", err)
	}

	_, err = s.AddContainer(ctx, NewContainerFields{Name: "web", Image: "nginx", HostID: host.ID})
	if anvylerrors.KindOf(err) != anvylerrors.Conflict {
		t.Fatalf("duplicate (host,name) = %v, want Conflict", err)
	}

	// Same name on a different host is allowed.
	if _, err := s.AddContainer(ctx, NewContainerFields{Name: "web", Image: "nginx", HostID: other.ID}); err != nil {
		t.Fatalf("AddContainer on other host: %v", err)
	}
}

func TestContainerRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	host, err := s.AddHost(ctx, NewHostFields{Name: "local", IP: "127.0.0.1", IsLocal: true})
	if err != nil {
		t.Fatalf("AddHost: %v", err)
	}

	created, err := s.AddContainer(ctx, NewContainerFields{Name: "t1", Image: "nginx:alpine", HostID: host.ID})
	if err != nil {
		t.Fatalf("AddContainer: %v", err)
	}

	dockerID := "abc123"
	running := "running"
	started := int64(1000)
	updated, err := s.UpdateContainer(ctx, created.ID, ContainerUpdate{DockerID: &dockerID, Status: &running, StartedAt: &started})
	if err != nil {
		t.Fatalf("UpdateContainer: %v", err)
	}
	if updated.DockerID == nil || *updated.DockerID != dockerID {
		t.Fatalf("docker_id not set after update")
	}

	got, err := s.GetContainer(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetContainer: %v", err)
	}
	if got.DockerID == nil || *got.DockerID != dockerID {
		t.Fatalf("GetContainer did not return docker_id")
	}

	if err := s.RemoveContainer(ctx, created.ID); err != nil {
		t.Fatalf("RemoveContainer: %v", err)
	}
	_, err = s.GetContainer(ctx, created.ID)
	if anvylerrors.KindOf(err) != anvylerrors.NotFound {
		t.Fatalf("GetContainer after remove = %v, want NotFound", err)
	}
}

func TestRemoveHostCascadesContainers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.AddHost(ctx, NewHostFields{Name: "local", IP: "127.0.0.1", IsLocal: true}); err != nil {
		t.Fatalf("AddHost local: %v", err)
	}
	remote, err := s.AddHost(ctx, NewHostFields{Name: "remote", IP: "10.0.0.5"})
	if err != nil {
		t.Fatalf("AddHost remote: %v", err)
	}
	container, err := s.AddContainer(ctx, NewContainerFields{Name: "c1", Image: "redis", HostID: remote.ID})
	if err != nil {
		t.Fatalf("AddContainer: %v", err)
	}

	if err := s.RemoveHost(ctx, remote.ID); err != nil {
		t.Fatalf("RemoveHost: %v", err)
	}

	_, err = s.GetContainer(ctx, container.ID)
	if anvylerrors.KindOf(err) != anvylerrors.NotFound {
		t.Fatalf("container should be cascaded away, got %v", err)
	}
}
