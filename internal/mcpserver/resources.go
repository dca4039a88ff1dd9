package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// docResource is a static reference document, grounded on the teacher's
// PodDocumentation{URI, Name, Description, MIMEType, Content} shape
// (pkg/kubernetes-documentation/pod.go).
type docResource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Content     string
}

var staticDocs = []docResource{
	{
		URI:         "anvyl://docs/container-lifecycle",
		Name:        "Container lifecycle",
		Description: "How Anvyl creates, starts, stops, and reconciles containers",
		MIMEType:    "text/markdown",
		Content: `# Container lifecycle

A container row is always persisted with status=created before the
engine call that creates and starts it. On engine failure the row is
deleted rather than left orphaned. Once the engine reports success the
row is promoted to status=running with a docker_id and started_at.

The background reconciler is the only process that ever drops a row for
a container no longer seen on the engine, and only after it has been
missing for two consecutive reconciliation ticks.`,
	},
	{
		URI:         "anvyl://docs/host-model",
		Name:        "Host model",
		Description: "The distinction between the local host and registered remote hosts",
		MIMEType:    "text/markdown",
		Content: `# Host model

Exactly one host row has is_local=true: the node the Infrastructure
Service itself runs on. It is created automatically on first start and
can never be removed. Containers may only be created against the local
host in this version of Anvyl; remote hosts are tracked for inventory
and metrics purposes only.`,
	},
}

func (s *Server) registerResources() {
	for _, doc := range staticDocs {
		resource := mcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Description: doc.Description,
			MIMEType:    doc.MIMEType,
		}
		handler := func(content, mimeType string) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				return []mcp.ResourceContents{
					mcp.TextResourceContents{URI: req.Params.URI, MIMEType: mimeType, Text: content},
				}, nil
			}
		}(doc.Content, doc.MIMEType)
		s.mcp.AddResource(resource, handler)
	}

	s.mcp.AddResource(mcp.Resource{
		URI:         "anvyl://hosts/local",
		Name:        "Local host",
		Description: "Live state of the local host (read-through to the Infrastructure Service)",
		MIMEType:    "application/json",
	}, s.readLocalHost)

	s.mcp.AddResource(mcp.Resource{
		URI:         "anvyl://containers/running",
		Name:        "Running containers",
		Description: "Live list of running containers (read-through to the Infrastructure Service)",
		MIMEType:    "application/json",
	}, s.readRunningContainers)
}

func (s *Server) readLocalHost(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	body, err := s.call(ctx, http.MethodGet, "/hosts", nil)
	if err != nil {
		return nil, err
	}
	var hosts []json.RawMessage
	if err := json.Unmarshal([]byte(body), &hosts); err != nil {
		return nil, fmt.Errorf("decode host list: %w", err)
	}
	for _, h := range hosts {
		var probe struct {
			IsLocal bool `json:"is_local"`
		}
		if json.Unmarshal(h, &probe) == nil && probe.IsLocal {
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(h)},
			}, nil
		}
	}
	return nil, fmt.Errorf("no local host registered")
}

func (s *Server) readRunningContainers(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	body, err := s.call(ctx, http.MethodGet, "/containers", nil)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: body},
	}, nil
}
