// Package infra implements the Infrastructure Service (§4.C): the single
// authority for host and container state on this node. It owns one
// persistence handle, one Docker adapter handle, the local host id, and
// the background reconciler — all constructed once at service start and
// torn down on graceful shutdown, per the "process-wide state" rule.
package infra

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/dockeradapter"
	"github.com/anvylhq/anvyl/internal/healthutil"
	"github.com/anvylhq/anvyl/internal/store"
)

// Config configures a Service.
type Config struct {
	Port              int
	DBPath            string
	ReconcileInterval time.Duration
}

// Service is the Infrastructure Service's process-wide state.
type Service struct {
	cfg     Config
	store   *store.Store
	docker  *dockeradapter.Adapter
	health  *healthutil.Checker
	server  *http.Server

	localHostID string

	containerLocksMu sync.Mutex
	containerLocks   map[string]*sync.Mutex

	reconcileCancel context.CancelFunc
	reconcileDone   chan struct{}

	// missingTicks counts, per docker_id, consecutive reconciler ticks in
	// which the engine did not report the container (§4.C reconciler
	// step 3: two consecutive misses before the row is dropped).
	missingTicksMu sync.Mutex
	missingTicks   map[string]int
}

// New constructs a Service, opening the store and connecting to Docker,
// but does not yet bootstrap the local host or start listening.
func New(ctx context.Context, cfg Config) (*Service, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	adapter, err := dockeradapter.New(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("connect docker: %w", err)
	}

	s := &Service{
		cfg:            cfg,
		store:          st,
		docker:         adapter,
		containerLocks: make(map[string]*sync.Mutex),
		missingTicks:   make(map[string]int),
	}
	s.health = healthutil.NewChecker(map[string]func() bool{
		"db":     func() bool { return s.store.Ping() },
		"docker": func() bool { return s.docker.Ping(context.Background()) },
	})
	return s, nil
}

// Start bootstraps the local host if needed, starts the HTTP listener,
// and launches the reconciler goroutine. It blocks until the listener
// stops (on Shutdown) or fails.
func (s *Service) Start(ctx context.Context) error {
	if err := s.bootstrapLocalHost(ctx); err != nil {
		return fmt.Errorf("bootstrap local host: %w", err)
	}

	reconcileCtx, cancel := context.WithCancel(context.Background())
	s.reconcileCancel = cancel
	s.reconcileDone = make(chan struct{})
	go s.runReconciler(reconcileCtx)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.newRouter(),
	}

	s.health.SetReady(true)
	klog.V(0).Infof("infra service listening on %s", s.server.Addr)

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the reconciler, the HTTP listener, and closes the store
// and Docker adapter. It is safe to call once, from a SIGTERM handler.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.reconcileCancel != nil {
		s.reconcileCancel()
		<-s.reconcileDone
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			klog.Errorf("infra HTTP shutdown: %v", err)
		}
	}
	if err := s.docker.Close(); err != nil {
		klog.Errorf("close docker adapter: %v", err)
	}
	return s.store.Close()
}

// bootstrapLocalHost creates the is_local=true row on first start (§3
// lifecycle, §4.C).
func (s *Service) bootstrapLocalHost(ctx context.Context) error {
	local, err := s.store.GetLocalHost(ctx)
	if err == nil {
		s.localHostID = local.ID
		return nil
	}

	hostname, herr := os.Hostname()
	if herr != nil {
		hostname = "localhost"
	}
	ip := firstNonLoopbackAddr()

	host, err := s.store.AddHost(ctx, store.NewHostFields{
		Name:    hostname,
		IP:      ip,
		OS:      currentOS(),
		IsLocal: true,
	})
	if err != nil {
		return err
	}
	klog.V(0).Infof("bootstrapped local host %s (%s, %s)", host.ID, hostname, ip)
	s.localHostID = host.ID
	return nil
}

func firstNonLoopbackAddr() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return "127.0.0.1"
}

// containerLock returns (creating if necessary) the per-container mutex
// serializing create/stop/remove/reconcile for the given internal id
// (§5 ordering guarantees).
func (s *Service) containerLock(id string) *sync.Mutex {
	s.containerLocksMu.Lock()
	defer s.containerLocksMu.Unlock()
	m, ok := s.containerLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.containerLocks[id] = m
	}
	return m
}
