package infra

import (
	"net/http"
	"time"
)

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *Service) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.store.ListHosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	containers, err := s.store.ListContainers(r.Context(), "")
	if err != nil {
		writeError(w, err)
		return
	}

	running, stopped, total := 0, 0, 0
	for _, c := range containers {
		if c.Status == "removed" {
			continue
		}
		total++
		switch c.Status {
		case "running":
			running++
		case "stopped", "exited":
			stopped++
		}
	}

	engine := "ok"
	if !s.docker.Ping(r.Context()) {
		engine = "down"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hosts": len(hosts),
		"containers": map[string]int{
			"running": running,
			"stopped": stopped,
			"total":   total,
		},
		"engine": engine,
	})
}
