// Package ui renders the filter chrome into the host page: the control
// panel, the status indicator, toast notifications and the style rule
// that hides marked listings.
package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"landfilter/internal/dom"
	"landfilter/internal/model"
)

// Class and id names shared with the page stylesheet
const (
	PanelID       = "naver-land-filter-panel"
	PanelClass    = "naver-land-filter-panel"
	OptionClass   = "nlf-floor-filter-option"
	ContentClass  = "filter-content"
	CheckedClass  = "checked"
	ExpandedClass = "expanded"
	ToggleClass   = "filter-toggle"
	ResetID       = "reset-filters"
	// FilterIDData is the data attribute, without its prefix, naming the
	// filter an option controls.
	FilterIDData = "filter-id"
)

const (
	expandLabel   = "펼치기"
	collapseLabel = "접기"
)

var panelTemplate = template.Must(template.New("panel").Parse(`<div id="{{.ID}}" class="{{.Class}}">
  <div class="filter-header">
    <h3>🔍추가 필터</h3>
    <button type="button" class="{{.ToggleClass}}">{{.ToggleLabel}}</button>
  </div>
  <div class="filter-content">
    <div class="filter-section">
      <h4>숨길 옵션들</h4>
      <div class="nlf-floor-filter-options">
        {{- range .Filters}}
        <div class="nlf-floor-filter-option{{if .Enabled}} checked{{end}}" data-filter-id="{{.ID}}" data-category="{{.Category}}">
          <span class="nlf-checkbox"></span>
          <label>{{.Name}}</label>
        </div>
        {{- end}}
      </div>
    </div>
    <div class="filter-actions">
      <button type="button" id="{{.ResetID}}" class="reset-btn">초기화</button>
    </div>
  </div>
</div>`))

// RenderPanel returns the panel markup for filters, collapsed
func RenderPanel(filters []model.FilterInfo) (string, error) {
	var buf bytes.Buffer
	err := panelTemplate.Execute(&buf, struct {
		ID, Class, ToggleClass, ToggleLabel, ResetID string
		Filters                                     []model.FilterInfo
	}{PanelID, PanelClass, ToggleClass, expandLabel, ResetID, filters})
	if err != nil {
		return "", fmt.Errorf("failed to render panel: %w", err)
	}
	return buf.String(), nil
}

// Panel is the mounted control panel
type Panel struct {
	doc dom.Document

	mu       sync.Mutex
	el       dom.Element
	expanded bool
}

// MountPanelAfter inserts the panel right after anchor
func MountPanelAfter(doc dom.Document, anchor dom.Element, filters []model.FilterInfo) (*Panel, error) {
	markup, err := RenderPanel(filters)
	if err != nil {
		return nil, err
	}
	el, err := doc.InsertAfter(anchor, markup)
	if err != nil {
		return nil, fmt.Errorf("failed to insert panel: %w", err)
	}
	return &Panel{doc: doc, el: el}, nil
}

// MountPanelInto appends the panel to container
func MountPanelInto(doc dom.Document, container dom.Element, filters []model.FilterInfo) (*Panel, error) {
	markup, err := RenderPanel(filters)
	if err != nil {
		return nil, err
	}
	el, err := doc.Append(container, markup)
	if err != nil {
		return nil, fmt.Errorf("failed to append panel: %w", err)
	}
	return &Panel{doc: doc, el: el}, nil
}

// Present reports whether the panel is mounted
func (p *Panel) Present() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.el != nil
}

func (p *Panel) IsExpanded() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expanded
}

func (p *Panel) Expand() error {
	return p.setExpanded(true)
}

func (p *Panel) Collapse() error {
	return p.setExpanded(false)
}

// Toggle flips the panel and returns the new expanded state
func (p *Panel) Toggle() (bool, error) {
	p.mu.Lock()
	next := !p.expanded
	p.mu.Unlock()
	if err := p.setExpanded(next); err != nil {
		return !next, err
	}
	return next, nil
}

func (p *Panel) setExpanded(expanded bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil {
		return dom.ErrNotFound
	}

	content, ok, err := p.doc.Query("#" + PanelID + " ." + ContentClass)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("panel content: %w", dom.ErrNotFound)
	}
	label := expandLabel
	if expanded {
		err = content.AddClass(ExpandedClass)
		label = collapseLabel
	} else {
		err = content.RemoveClass(ExpandedClass)
	}
	if err != nil {
		return err
	}
	if btn, ok, err := p.doc.Query("#" + PanelID + " ." + ToggleClass); err == nil && ok {
		if err := btn.SetText(label); err != nil {
			return err
		}
	}
	p.expanded = expanded
	return nil
}

// Sync marks each option checked to match filters
func (p *Panel) Sync(filters []model.FilterInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil {
		return dom.ErrNotFound
	}

	for _, f := range filters {
		loc := fmt.Sprintf(`#%s .%s[data-filter-id=%q]`, PanelID, OptionClass, f.ID)
		opt, ok, err := p.doc.Query(loc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if f.Enabled {
			err = opt.AddClass(CheckedClass)
		} else {
			err = opt.RemoveClass(CheckedClass)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Remove detaches the panel
func (p *Panel) Remove() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil {
		return nil
	}
	err := p.el.Remove()
	p.el = nil
	p.expanded = false
	return err
}
