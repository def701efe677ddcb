package model

// Command actions understood by the session
const (
	ActionToggleFilterPanel = "toggleFilterPanel"
	ActionCheckFilterStatus = "checkFilterStatus"
	ActionReapplyFilters    = "reapplyFilters"
	ActionToggleFilter      = "toggleFilter"
	ActionResetFilters      = "resetFilters"
	ActionListFilters       = "listFilters"
)

// Panel toggle outcomes
const (
	PanelExpanded  = "expanded"
	PanelCollapsed = "collapsed"
	PanelNotFound  = "not_found"
)

// CommandRequest is a message from the host-controlled channel
type CommandRequest struct {
	Action   string `json:"action" binding:"required"`
	FilterID string `json:"filterId,omitempty"`
}

// CommandResponse answers a CommandRequest
type CommandResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Action     string `json:"action,omitempty"`
	IsExpanded *bool  `json:"isExpanded,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// FilterStatus is the data payload of checkFilterStatus
type FilterStatus struct {
	HasPanel      bool     `json:"hasPanel"`
	IsExpanded    bool     `json:"isExpanded"`
	FilterCount   int      `json:"filterCount"`
	ActiveFilters []string `json:"activeFilters"`
}

// FilterInfo describes one predicate for listFilters
type FilterInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

// FilterToggleResult is the data payload of toggleFilter
type FilterToggleResult struct {
	FilterID string `json:"filterId"`
	Enabled  bool   `json:"enabled"`
	Counts   Counts `json:"counts"`
}

// FilterList is the data payload of listFilters
type FilterList struct {
	Filters []FilterInfo `json:"filters"`
}
