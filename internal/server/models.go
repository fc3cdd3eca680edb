package server

import (
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/cluster"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/importer"
	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/mods"
)

// SuccessResponse represents a successful operation response
type SuccessResponse struct {
	Message string `json:"message"`
}

// InstanceResponse is one instance as presented over the API. The cluster
// token is never echoed back, only whether one is set.
type InstanceResponse struct {
	*cluster.Instance
	HasToken bool   `json:"has_token"`
	Uptime   string `json:"uptime,omitempty"`
}

// InstancesResponse represents a list of instances
type InstancesResponse struct {
	Instances []InstanceResponse `json:"instances"`
	Total     int                `json:"total"`
}

// CreateInstanceRequest represents a request to create an instance
type CreateInstanceRequest struct {
	Name     string            `json:"name" validate:"required"`
	Token    string            `json:"token"`
	Settings *cluster.Settings `json:"settings,omitempty"`
	Ports    *cluster.Ports    `json:"ports,omitempty"`
}

// UpdateSettingsRequest represents a settings update
type UpdateSettingsRequest struct {
	Settings cluster.Settings `json:"settings" validate:"required"`
}

// SetTokenRequest represents a cluster token update
type SetTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// SetPortsRequest represents a port triple update
type SetPortsRequest struct {
	Ports cluster.Ports `json:"ports" validate:"required"`
}

// StatusResponse represents an instance lifecycle state change
type StatusResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
}

// AddModRequest represents a request to add a mod
type AddModRequest struct {
	ID      string                 `json:"id" validate:"required"`
	Enabled *bool                  `json:"enabled,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ModStateRequest flips a mod's enabled flag
type ModStateRequest struct {
	Enabled bool `json:"enabled"`
}

// ConfigureModRequest replaces a mod's options
type ConfigureModRequest struct {
	Options map[string]interface{} `json:"options"`
}

// ReorderModsRequest represents a mod load-order change
type ReorderModsRequest struct {
	Order []string `json:"order" validate:"required"`
}

// ModsResponse represents an instance's mod list
type ModsResponse struct {
	Mods  []mods.Info `json:"mods"`
	Total int         `json:"total"`
}

// ImportRequest represents a request to import from a source cluster
type ImportRequest struct {
	Source    string             `json:"source" validate:"required"`
	Selection importer.Selection `json:"selection"`
}

// PresetsResponse represents the available world presets
type PresetsResponse struct {
	Presets []string `json:"presets"`
}

// StatusEvent is one websocket status frame
type StatusEvent struct {
	Type      string           `json:"type"`
	Instances []StatusResponse `json:"instances"`
}
