package app

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"landfilter/internal/model"
)

// User-facing messages
const (
	MsgPanelExpanded      = "필터 패널이 펼쳐졌습니다."
	MsgPanelCollapsed     = "필터 패널이 접혔습니다."
	MsgPanelNotFound      = "필터 패널을 찾을 수 없습니다."
	MsgFilterReapplied    = "필터가 재적용되었습니다."
	MsgNoActiveFilters    = "활성화된 필터가 없습니다."
	MsgFilterApplied      = "필터가 적용되었습니다!"
	MsgFilterReset        = "필터가 초기화되었습니다!"
	MsgAllFiltersDisabled = "모든 필터가 해제되었습니다!"
	MsgUnknownAction      = "unknown action"
	MsgFilterIDRequired   = "filterId is required"
	MsgSessionClosed      = "session closed"
)

// HandleCommand runs one command and never panics
func (s *Session) HandleCommand(ctx context.Context, req model.CommandRequest) (resp model.CommandResponse) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command panicked", zap.String("action", req.Action), zap.Any("panic", r))
			resp = model.CommandResponse{Success: false, Message: fmt.Sprint(r)}
		}
		if s.metrics != nil {
			s.metrics.Commands.WithLabelValues(actionLabel(req.Action), strconv.FormatBool(resp.Success)).Inc()
		}
	}()

	s.logger.Debug("command", zap.String("action", req.Action), zap.String("filter_id", req.FilterID))
	if err := ctx.Err(); err != nil {
		return model.CommandResponse{Success: false, Message: err.Error()}
	}
	if s.isClosed() {
		return model.CommandResponse{Success: false, Message: MsgSessionClosed}
	}

	switch req.Action {
	case model.ActionToggleFilterPanel:
		return s.toggleFilterPanel()
	case model.ActionCheckFilterStatus:
		return s.checkFilterStatus()
	case model.ActionReapplyFilters:
		return s.reapplyFilters()
	case model.ActionToggleFilter:
		return s.toggleFilter(req.FilterID)
	case model.ActionResetFilters:
		return s.resetFilters()
	case model.ActionListFilters:
		return model.CommandResponse{Success: true, Data: model.FilterList{Filters: s.engine.Filters()}}
	default:
		return model.CommandResponse{Success: false, Message: MsgUnknownAction}
	}
}

// IsUnknownAction reports whether action is outside the command set
func IsUnknownAction(action string) bool {
	switch action {
	case model.ActionToggleFilterPanel, model.ActionCheckFilterStatus, model.ActionReapplyFilters,
		model.ActionToggleFilter, model.ActionResetFilters, model.ActionListFilters:
		return false
	}
	return true
}

// keeps metric label cardinality bounded
func actionLabel(action string) string {
	if IsUnknownAction(action) {
		return "unknown"
	}
	return action
}

func (s *Session) toggleFilterPanel() model.CommandResponse {
	s.mu.Lock()
	panel := s.panel
	s.mu.Unlock()

	if !panel.Present() {
		return model.CommandResponse{
			Success:    false,
			Message:    MsgPanelNotFound,
			Action:     model.PanelNotFound,
			IsExpanded: boolPtr(false),
		}
	}

	expanded, err := panel.Toggle()
	if err != nil {
		return model.CommandResponse{
			Success:    false,
			Message:    err.Error(),
			Action:     model.PanelNotFound,
			IsExpanded: boolPtr(false),
		}
	}
	if expanded {
		return model.CommandResponse{Success: true, Message: MsgPanelExpanded, Action: model.PanelExpanded, IsExpanded: boolPtr(true)}
	}
	return model.CommandResponse{Success: true, Message: MsgPanelCollapsed, Action: model.PanelCollapsed, IsExpanded: boolPtr(false)}
}

func (s *Session) checkFilterStatus() model.CommandResponse {
	s.mu.Lock()
	panel := s.panel
	s.mu.Unlock()

	active := s.engine.ActiveFilterNames()
	status := model.FilterStatus{
		HasPanel:      panel.Present(),
		IsExpanded:    panel.IsExpanded(),
		FilterCount:   len(active),
		ActiveFilters: active,
	}
	return model.CommandResponse{Success: status.HasPanel, Data: status}
}

func (s *Session) reapplyFilters() model.CommandResponse {
	if !s.engine.HasActiveFilters() {
		return model.CommandResponse{Success: true, Message: MsgNoActiveFilters}
	}
	s.updateStatus(s.engine.FilterAll())
	return model.CommandResponse{Success: true, Message: MsgFilterReapplied}
}

func (s *Session) toggleFilter(id string) model.CommandResponse {
	if id == "" {
		return model.CommandResponse{Success: false, Message: MsgFilterIDRequired}
	}
	enabled, err := s.engine.Toggle(id)
	if err != nil {
		return model.CommandResponse{Success: false, Message: err.Error()}
	}

	counts := s.OnFilterChange()
	msg := MsgFilterApplied
	if !s.engine.HasActiveFilters() {
		msg = MsgAllFiltersDisabled
	}
	s.notify(msg)
	return model.CommandResponse{
		Success: true,
		Message: msg,
		Data:    model.FilterToggleResult{FilterID: id, Enabled: enabled, Counts: counts},
	}
}

func (s *Session) resetFilters() model.CommandResponse {
	s.engine.ResetAllFilters()
	counts := s.OnFilterChange()
	s.notify(MsgFilterReset)
	return model.CommandResponse{Success: true, Message: MsgFilterReset, Data: counts}
}

func boolPtr(b bool) *bool {
	return &b
}
