package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for fileupload resources.
	uriScheme = "fileupload://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Active configuration with secrets masked",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// settingsView is the JSON shape of the settings resource.
type settingsView struct {
	Graph struct {
		TenantID     string `json:"tenant_id"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		DriveID      string `json:"drive_id"`
		ParentPath   string `json:"parent_path"`
	} `json:"graph"`
	Retrieval struct {
		Endpoint string `json:"endpoint"`
		TopN     int    `json:"top_n"`
	} `json:"retrieval"`
	Completion struct {
		Endpoint   string `json:"endpoint"`
		Deployment string `json:"deployment,omitempty"`
		Model      string `json:"model,omitempty"`
		APIKey     string `json:"api_key"`
	} `json:"completion"`
	Configured bool `json:"configured"`
}

// handleSettingsResource returns the active settings, secrets masked.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Settings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	data, err := json.MarshalIndent(newSettingsView(settings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling settings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func newSettingsView(settings *domain.AppSettings) settingsView {
	r := settings.Redacted()

	var v settingsView
	v.Graph.TenantID = r.Graph.TenantID
	v.Graph.ClientID = r.Graph.ClientID
	v.Graph.ClientSecret = r.Graph.ClientSecret
	v.Graph.DriveID = r.Graph.DriveID
	v.Graph.ParentPath = r.Graph.ParentPath
	v.Retrieval.Endpoint = r.Retrieval.Endpoint
	v.Retrieval.TopN = r.Retrieval.TopN
	v.Completion.Endpoint = r.Completion.Endpoint
	v.Completion.Deployment = r.Completion.Deployment
	v.Completion.Model = r.Completion.Model
	v.Completion.APIKey = r.Completion.APIKey
	v.Configured = settings.Validate() == nil
	return v
}
