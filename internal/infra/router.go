package infra

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"k8s.io/klog/v2"
)

// newRouter registers one route per line, mirroring the teacher's router
// layout: adding an endpoint means adding one line here.
func (s *Service) newRouter() http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware, recoverMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/hosts", s.handleListHosts).Methods(http.MethodGet)
	r.HandleFunc("/hosts", s.handleAddHost).Methods(http.MethodPost)
	r.HandleFunc("/hosts/{id}", s.handleGetHost).Methods(http.MethodGet)
	r.HandleFunc("/hosts/{id}", s.handleUpdateHost).Methods(http.MethodPut)
	r.HandleFunc("/hosts/{id}", s.handleRemoveHost).Methods(http.MethodDelete)
	r.HandleFunc("/hosts/{id}/metrics", s.handleHostMetrics).Methods(http.MethodGet)

	r.HandleFunc("/containers", s.handleListContainers).Methods(http.MethodGet)
	r.HandleFunc("/containers", s.handleCreateContainer).Methods(http.MethodPost)
	r.HandleFunc("/containers/{id}", s.handleGetContainer).Methods(http.MethodGet)
	r.HandleFunc("/containers/{id}", s.handleRemoveContainer).Methods(http.MethodDelete)
	r.HandleFunc("/containers/{id}/stop", s.handleStopContainer).Methods(http.MethodPost)
	r.HandleFunc("/containers/{id}/logs", s.handleContainerLogs).Methods(http.MethodGet)
	r.HandleFunc("/containers/{id}/exec", s.handleExecContainer).Methods(http.MethodPost)

	r.HandleFunc("/system/status", s.handleSystemStatus).Methods(http.MethodGet)

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		klog.V(1).Infof("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				klog.Errorf("panic handling %s %s: %v\n%s", r.Method, r.URL.Path, rec, buf[:n])
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
