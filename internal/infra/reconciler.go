package infra

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/store"
)

const defaultReconcileInterval = 15 * time.Second

// runReconciler drives the single background reconciliation task (§4.C).
// It holds no locks across HTTP requests; each container row it touches
// is serialized through that container's write mutex so it never races a
// concurrent stop/remove request.
func (s *Service) runReconciler(ctx context.Context) {
	defer close(s.reconcileDone)

	interval := s.cfg.ReconcileInterval
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileOnce(ctx)
		}
	}
}

func (s *Service) reconcileOnce(ctx context.Context) {
	engineContainers, err := s.docker.ListContainers(ctx, true)
	if err != nil {
		klog.Errorf("reconciler: list engine containers: %v", err)
		return
	}

	seenDockerIDs := make(map[string]bool, len(engineContainers))

	for _, ec := range engineContainers {
		if ec.Labels[labelManaged] != "true" {
			continue
		}
		internalID := ec.Labels[labelContainer]
		if internalID == "" {
			continue
		}
		seenDockerIDs[ec.DockerID] = true

		lock := s.containerLock(internalID)
		lock.Lock()
		s.reconcileOneContainer(ctx, internalID, ec.DockerID)
		lock.Unlock()
	}

	s.reconcileMissingRows(ctx, seenDockerIDs)
	s.refreshLocalHostResources(ctx)
}

func (s *Service) reconcileOneContainer(ctx context.Context, internalID, dockerID string) {
	detail, err := s.docker.Inspect(ctx, dockerID)
	if err != nil {
		klog.Warningf("reconciler: inspect %s: %v", dockerID, err)
		return
	}

	row, err := s.store.GetContainer(ctx, internalID)
	if err != nil {
		// A row recovered on an earlier tick has a fresh id but carries
		// this docker_id, so find it by that before recovering again.
		row, err = s.store.GetContainer(ctx, dockerID)
	}
	update := store.ContainerUpdate{Status: &detail.Status}
	if !detail.StartedAt.IsZero() {
		started := detail.StartedAt.UnixMilli()
		update.StartedAt = &started
	}
	if !detail.FinishedAt.IsZero() {
		finished := detail.FinishedAt.UnixMilli()
		update.FinishedAt = &finished
	}
	if detail.ExitCode != 0 {
		exitCode := int64(detail.ExitCode)
		update.ExitCode = &exitCode
	}

	if err != nil {
		// Row lost to store corruption; recover it so the engine
		// container stays attributable to Anvyl.
		dockerIDCopy := dockerID
		recovered, addErr := s.store.AddContainer(ctx, store.NewContainerFields{
			Name:   internalID,
			Image:  "",
			HostID: s.localHostID,
		})
		if addErr != nil {
			klog.Errorf("reconciler: recover row for %s: %v", internalID, addErr)
			return
		}
		update.DockerID = &dockerIDCopy
		if _, err := s.store.UpdateContainer(ctx, recovered.ID, update); err != nil {
			klog.Errorf("reconciler: update recovered row %s: %v", recovered.ID, err)
		}
		return
	}

	if _, err := s.store.UpdateContainer(ctx, row.ID, update); err != nil {
		klog.Errorf("reconciler: update row %s: %v", row.ID, err)
	}
}

// reconcileMissingRows drops store rows whose docker_id has not appeared
// in the engine's container list for two consecutive ticks.
func (s *Service) reconcileMissingRows(ctx context.Context, seenDockerIDs map[string]bool) {
	rows, err := s.store.ListContainers(ctx, "")
	if err != nil {
		klog.Errorf("reconciler: list store containers: %v", err)
		return
	}

	s.missingTicksMu.Lock()
	defer s.missingTicksMu.Unlock()

	stillMissing := make(map[string]int, len(s.missingTicks))
	for _, c := range rows {
		if c.DockerID == nil || c.Status == "removed" {
			continue
		}
		if seenDockerIDs[*c.DockerID] {
			continue
		}

		misses := s.missingTicks[*c.DockerID] + 1
		if misses >= 2 {
			lock := s.containerLock(c.ID)
			lock.Lock()
			if err := s.store.RemoveContainer(ctx, c.ID); err != nil {
				klog.Errorf("reconciler: remove stale row %s: %v", c.ID, err)
			} else {
				klog.V(0).Infof("reconciler: dropped container %s (%s), missing from engine for %d ticks", c.ID, c.Name, misses)
			}
			lock.Unlock()
			continue
		}
		stillMissing[*c.DockerID] = misses
	}
	s.missingTicks = stillMissing
}

func (s *Service) refreshLocalHostResources(ctx context.Context) {
	sample, err := sampleLocalResources(ctx)
	if err != nil {
		klog.Warningf("reconciler: sample local resources: %v", err)
		return
	}
	resources := marshalResources(sample)
	if _, err := s.store.UpdateHost(ctx, s.localHostID, store.HostUpdate{Resources: &resources}); err != nil {
		klog.Warningf("reconciler: refresh local host resources: %v", err)
	}
}
