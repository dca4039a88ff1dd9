package infra

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
	"github.com/anvylhq/anvyl/internal/dockeradapter"
	"github.com/anvylhq/anvyl/internal/store"
)

const (
	labelManaged   = "anvyl.managed"
	labelContainer = "anvyl.container_id"
)

func (s *Service) handleListContainers(w http.ResponseWriter, r *http.Request) {
	hostID := r.URL.Query().Get("host_id")
	containers, err := s.store.ListContainers(r.Context(), hostID)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("all") != "true" {
		filtered := containers[:0]
		for _, c := range containers {
			switch c.Status {
			case "removed", "stopped", "exited":
				continue
			}
			filtered = append(filtered, c)
		}
		containers = filtered
	}
	writeJSON(w, http.StatusOK, containers)
}

func (s *Service) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := s.store.GetContainer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type createContainerRequest struct {
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	HostID      string            `json:"host_id"`
	Ports       []string          `json:"ports"`
	Volumes     map[string]string `json:"volumes"`
	Environment map[string]string `json:"environment"`
	Labels      map[string]string `json:"labels"`
	Command     []string          `json:"command"`
}

// handleCreateContainer implements the create-container sequence:
// validate, persist with status=created, call the engine, then either
// promote the row to running or delete it on adapter failure.
func (s *Service) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	var req createContainerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.Image == "" {
		writeError(w, anvylerrors.New(anvylerrors.Validation, "name and image are required"))
		return
	}
	if req.HostID == "" {
		req.HostID = s.localHostID
	} else if req.HostID != s.localHostID {
		writeError(w, anvylerrors.New(anvylerrors.Validation, "host_id must be the local host (single-node scope)"))
		return
	}

	env := make([]string, 0, len(req.Environment))
	for k, v := range req.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	labels := req.Labels
	if labels == nil {
		labels = map[string]string{}
	}

	row, err := s.store.AddContainer(r.Context(), store.NewContainerFields{
		Name:        req.Name,
		Image:       req.Image,
		HostID:      req.HostID,
		Labels:      marshalJSON(labels),
		Ports:       marshalJSON(req.Ports),
		Volumes:     marshalJSON(req.Volumes),
		Environment: marshalJSON(req.Environment),
		Command:     marshalJSON(req.Command),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	labels[labelManaged] = "true"
	labels[labelContainer] = row.ID

	lock := s.containerLock(row.ID)
	lock.Lock()
	defer lock.Unlock()

	dockerID, err := s.docker.CreateContainer(r.Context(), dockeradapter.CreateSpec{
		Name:      row.ID,
		Image:     req.Image,
		Labels:    labels,
		Env:       env,
		Cmd:       req.Command,
		PortBinds: req.Ports,
		Volumes:   req.Volumes,
	})
	if err != nil {
		if delErr := s.store.RemoveContainer(r.Context(), row.ID); delErr != nil {
			klog.Errorf("rollback container row %s after create failure: %v", row.ID, delErr)
		}
		writeError(w, err)
		return
	}

	if err := s.docker.Start(r.Context(), dockerID); err != nil {
		if delErr := s.store.RemoveContainer(r.Context(), row.ID); delErr != nil {
			klog.Errorf("rollback container row %s after start failure: %v", row.ID, delErr)
		}
		_ = s.docker.Remove(r.Context(), dockerID, true)
		writeError(w, err)
		return
	}

	started := nowMillis()
	updated, err := s.store.UpdateContainer(r.Context(), row.ID, store.ContainerUpdate{
		DockerID:  &dockerID,
		Status:    strPtr("running"),
		StartedAt: &started,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type stopContainerRequest struct {
	Timeout *int `json:"timeout"`
}

func (s *Service) handleStopContainer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req stopContainerRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	timeout := 10
	if req.Timeout != nil {
		timeout = *req.Timeout
	}

	lock := s.containerLock(id)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.store.GetContainer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c.DockerID == nil {
		writeError(w, anvylerrors.New(anvylerrors.Invariant, "container has no running engine instance"))
		return
	}
	if err := s.docker.Stop(r.Context(), *c.DockerID, timeout); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.store.UpdateContainer(r.Context(), c.ID, store.ContainerUpdate{Status: strPtr("stopped")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) handleRemoveContainer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	force := r.URL.Query().Get("force") == "true"

	lock := s.containerLock(id)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.store.GetContainer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c.DockerID != nil {
		if err := s.docker.Stop(r.Context(), *c.DockerID, 10); err != nil && anvylerrors.KindOf(err) != anvylerrors.NotFound {
			if !force {
				writeError(w, err)
				return
			}
		}
		if err := s.docker.Remove(r.Context(), *c.DockerID, force); err != nil && anvylerrors.KindOf(err) != anvylerrors.NotFound {
			writeError(w, err)
			return
		}
	}
	if err := s.store.RemoveContainer(r.Context(), c.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Service) handleContainerLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tail := 100
	if v := r.URL.Query().Get("tail"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			tail = n
		}
	}
	follow := r.URL.Query().Get("follow") == "true"

	c, err := s.store.GetContainer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c.DockerID == nil {
		writeError(w, anvylerrors.New(anvylerrors.Invariant, "container has no running engine instance"))
		return
	}

	rc, err := s.docker.Logs(r.Context(), *c.DockerID, tail, follow)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	if !follow {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := io.Copy(w, rc); err != nil {
			klog.Errorf("stream logs for %s: %v", id, err)
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, anvylerrors.New(anvylerrors.Internal, "streaming not supported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		fmt.Fprintf(w, "event: log\ndata: %s\n\n", scanner.Text())
		flusher.Flush()
		select {
		case <-r.Context().Done():
			return
		default:
		}
	}
}

type execContainerRequest struct {
	Command []string `json:"command"`
	TTY     bool     `json:"tty"`
}

func (s *Service) handleExecContainer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req execContainerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Command) == 0 {
		writeError(w, anvylerrors.New(anvylerrors.Validation, "command must be a non-empty argv list"))
		return
	}

	c, err := s.store.GetContainer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c.DockerID == nil {
		writeError(w, anvylerrors.New(anvylerrors.Invariant, "container has no running engine instance"))
		return
	}

	result, err := s.docker.Exec(r.Context(), *c.DockerID, req.Command, req.TTY)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func strPtr(s string) *string { return &s }
