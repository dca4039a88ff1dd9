package agent

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"k8s.io/klog/v2"
)

func (s *Service) newRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/hosts", s.handleAddHost).Methods(http.MethodPost)
	r.HandleFunc("/hosts", s.handleListHosts).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("encode response: %v", err)
	}
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	resp, err := s.runQuery(r.Context(), req)
	if err != nil {
		if qe, ok := err.(*queryErr); ok {
			writeJSON(w, qe.status, map[string]string{"error": qe.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"model":       s.cfg.Model,
		"provider_url": s.cfg.ProviderURL,
		"mcp_url":     s.cfg.MCPURL,
		"tools":       s.toolNames(),
	})
}

type addHostRequest struct {
	ID string `json:"id"`
	IP string `json:"ip"`
}

func (s *Service) handleAddHost(w http.ResponseWriter, r *http.Request) {
	var req addHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	host := RemoteHost{ID: req.ID, IP: req.IP}

	s.hostsMu.Lock()
	s.hosts[host.ID] = host
	s.hostsMu.Unlock()

	writeJSON(w, http.StatusOK, host)
}

func (s *Service) handleListHosts(w http.ResponseWriter, r *http.Request) {
	s.hostsMu.Lock()
	hosts := make([]RemoteHost, 0, len(s.hosts))
	for _, h := range s.hosts {
		hosts = append(hosts, h)
	}
	s.hostsMu.Unlock()
	writeJSON(w, http.StatusOK, hosts)
}
