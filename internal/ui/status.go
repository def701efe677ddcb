package ui

import (
	"fmt"
	"strings"
	"sync"

	"landfilter/internal/dom"
	"landfilter/internal/model"
)

const (
	StatusClass = "nlf-filter-status-indicator"
	// StatusHiddenClass is carried while no filter is active
	StatusHiddenClass = "nlf-status-hidden"
)

// StatusText is the indicator text for the active filters and counts
func StatusText(active []string, counts model.Counts) string {
	return fmt.Sprintf("필터 적용중: %s (%d/%d개 표시)", strings.Join(active, ", "), counts.Visible, counts.Total)
}

// StatusIndicator is the fixed badge summarizing the active filters
type StatusIndicator struct {
	mu sync.Mutex
	el dom.Element
}

// MountStatus appends a hidden indicator to parent
func MountStatus(doc dom.Document, parent dom.Element) (*StatusIndicator, error) {
	el, err := doc.Append(parent, `<div class="`+StatusClass+` `+StatusHiddenClass+`"></div>`)
	if err != nil {
		return nil, fmt.Errorf("failed to append status indicator: %w", err)
	}
	return &StatusIndicator{el: el}, nil
}

// Update shows the summary when filters are active and hides it otherwise
func (s *StatusIndicator) Update(active []string, counts model.Counts) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.el == nil {
		return nil
	}

	if len(active) == 0 {
		return s.el.AddClass(StatusHiddenClass)
	}
	if err := s.el.SetText(StatusText(active, counts)); err != nil {
		return err
	}
	return s.el.RemoveClass(StatusHiddenClass)
}

// Remove detaches the indicator
func (s *StatusIndicator) Remove() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.el == nil {
		return nil
	}
	err := s.el.Remove()
	s.el = nil
	return err
}
