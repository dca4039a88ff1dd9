// Package agent implements the Agent Service (§4.E): it translates a
// natural-language instruction into MCP tool invocations by driving an
// external OpenAI-compatible chat model in a bounded loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"k8s.io/klog/v2"

	"github.com/anvylhq/anvyl/internal/config"
)

// mcpTimeout bounds each HTTP call to the MCP server.
const mcpTimeout = 30 * time.Second

// Service is the Agent Service's process-wide state: one cached tool
// catalog (fetched once at startup per §4.E), one provider client, and
// an in-memory host registry.
type Service struct {
	cfg        *config.Config
	provider   *openai.Client
	mcp        *mcpClient
	httpClient *http.Client
	toolDescs  []toolDescriptor

	hostsMu sync.Mutex
	hosts   map[string]RemoteHost

	localHostID string
	server      *http.Server
}

// New constructs a Service and fetches the MCP tool catalog once. If that
// fetch fails, New returns the error and the service does not start — it
// cannot usefully serve /query without the catalog.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	s := &Service{
		cfg:        cfg,
		provider:   newProviderClient(cfg.ProviderURL),
		mcp:        newMCPClient(cfg.MCPURL, &http.Client{Timeout: mcpTimeout}),
		httpClient: httpClient,
		hosts:      make(map[string]RemoteHost),
	}

	tools, err := s.mcp.listTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch mcp tool catalog: %w", err)
	}
	s.toolDescs = tools

	localID, err := s.fetchLocalHostID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve local host: %w", err)
	}
	s.localHostID = localID

	klog.V(0).Infof("agent service initialized, %d tools cached from %s, local host %s", len(tools), cfg.MCPURL, localID)
	return s, nil
}

// fetchLocalHostID asks the Infrastructure Service which registered host
// is this one (is_local=true), so systemMessage can tell a local host_id
// from a remote one instead of treating every non-empty host_id as a
// cross-host request.
func (s *Service) fetchLocalHostID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.InfraURL+"/hosts", nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("infra service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var hosts []struct {
		ID      string `json:"id"`
		IsLocal bool   `json:"is_local"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hosts); err != nil {
		return "", fmt.Errorf("decode host list: %w", err)
	}
	for _, h := range hosts {
		if h.IsLocal {
			return h.ID, nil
		}
	}
	return "", nil
}

// Start serves the §4.E HTTP surface until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.AgentPort),
		Handler: s.newRouter(),
	}
	klog.V(0).Infof("agent service listening on %s", s.server.Addr)

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Service) toolNames() []string {
	names := make([]string, 0, len(s.toolDescs))
	for _, t := range s.toolDescs {
		names = append(names, t.Name)
	}
	return names
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.RequestTimeout)
}
