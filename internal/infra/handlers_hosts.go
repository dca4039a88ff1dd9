package infra

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anvylhq/anvyl/internal/anvylerrors"
	"github.com/anvylhq/anvyl/internal/store"
)

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]bool{
		"db":     s.store.Ping(),
		"docker": s.docker.Ping(r.Context()),
	}
	status := "ok"
	code := http.StatusOK
	for _, ok := range components {
		if !ok {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": status, "components": components})
}

func (s *Service) handleListHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.store.ListHosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hosts)
}

func (s *Service) handleGetHost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h, err := s.store.GetHost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type addHostRequest struct {
	Name string   `json:"name"`
	IP   string   `json:"ip"`
	OS   string   `json:"os"`
	Tags []string `json:"tags"`
}

func (s *Service) handleAddHost(w http.ResponseWriter, r *http.Request) {
	var req addHostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.IP == "" {
		writeError(w, anvylerrors.New(anvylerrors.Validation, "name and ip are required"))
		return
	}
	h, err := s.store.AddHost(r.Context(), store.NewHostFields{
		Name: req.Name,
		IP:   req.IP,
		OS:   req.OS,
		Tags: req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type updateHostRequest struct {
	Name      *string   `json:"name"`
	Status    *string   `json:"status"`
	Tags      *[]string `json:"tags"`
	Resources *string   `json:"resources"`
	Metadata  *string   `json:"metadata"`
}

func (s *Service) handleUpdateHost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updateHostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h, err := s.store.UpdateHost(r.Context(), id, store.HostUpdate{
		Name:      req.Name,
		Status:    req.Status,
		Tags:      req.Tags,
		Resources: req.Resources,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Service) handleRemoveHost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.RemoveHost(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Service) handleHostMetrics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h, err := s.store.GetHost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if id == s.localHostID || h.IsLocal {
		sample, err := sampleLocalResources(r.Context())
		if err != nil {
			writeError(w, anvylerrors.Wrap(anvylerrors.Internal, "sample local resources", err))
			return
		}
		writeJSON(w, http.StatusOK, sample)
		return
	}

	if h.Resources == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no metrics reported yet"})
		return
	}
	var cached hostResources
	if err := json.Unmarshal([]byte(h.Resources), &cached); err != nil {
		writeError(w, anvylerrors.Wrap(anvylerrors.Internal, "decode cached resources", err))
		return
	}
	writeJSON(w, http.StatusOK, cached)
}
